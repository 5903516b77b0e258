// Package app is the composition root for quire.
//
// # Overview
//
// Setup turns a config path into an Env: the resolved configuration, the
// session store and an API client whose bearer token is read from that store
// on every call. Commands that only need the client (login, tree, detect,
// import, export) stop there. Run goes on to start the library poller and the
// TUI.
//
// # Data Flow
//
//	┌──────────────┐
//	│   Setup()    │
//	└──────┬───────┘
//	       ├─────> config.Load()        TOML file plus QUIRE_* env
//	       ├─────> session.NewStore()   token source (api.Credentials)
//	       └─────> NewClient()          rate limit, timeout, logger
//
//	┌──────────────┐
//	│    Run()     │
//	└──────┬───────┘
//	       ├─────> library.New()        tree over client.Library
//	       ├─────> refresh()            first snapshot before the UI draws
//	       ├─────> StartPoller()        background root refresh
//	       └─────> ui.Run()             blocks until quit or cancel
//
// # Polling Behavior
//
// The poller lists the library root every 15 seconds by default and stores
// the result in a cache.Store. The UI reads snapshots from the store and
// never waits on the network to redraw the sidebar.
//
// After a failure the previous roots stay visible and the failure count
// grows. The next wait is the interval doubled per consecutive failure,
// capped at 30 seconds, computed with cenkalti/backoff. A cancelled refresh
// is not a failure and leaves the store untouched.
//
// # Error Handling
//
// Setup returns errors for an unreadable config and an invalid API URL.
// Poll failures are logged and shown in the header; they never stop Run.
package app
