// Package config loads quire's settings from a TOML file and the environment.
//
// # Configuration Discovery
//
// The Load function follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/quire/config.toml (default)
//  3. If the config file doesn't exist, start from hardcoded defaults
//  4. Apply QUIRE_* environment variables on top
//  5. Fill any remaining empty or non-positive fields with defaults
//
// # Default Values
//
//   - Config file: ~/.config/quire/config.toml
//   - API root: http://127.0.0.1:8000/api/v1
//   - Session file: ~/.config/quire/session.toml
//   - Rate limit: none (burst 5 once a limit is set)
//   - Page size: 50
//   - Request timeout: 30 seconds
//
// # TOML Format
//
//	api_url = "https://reader.example.com/api/v1"
//	session_path = "~/.config/quire/session.toml"
//	rate_limit = 10.0
//	rate_burst = 5
//	page_size = 50
//	timeout_seconds = 30
//
// Every key is optional. Tilde expansion is performed on session_path.
//
// # Environment
//
// Variables are read with cleanenv and win over the file:
//
//   - QUIRE_API_URL: API root
//   - QUIRE_TOKEN: bearer token, used instead of the session file
//   - QUIRE_RATE_LIMIT: requests per second
//
// EnvUsage renders the same list for help output.
//
// # Error Handling
//
// Load returns errors for:
//   - Path expansion failures (e.g., cannot determine home directory)
//   - File read errors (except os.ErrNotExist, which triggers defaults)
//   - TOML syntax errors (wrapped with "parse config")
//   - Unparseable environment values and a negative rate limit
package config
