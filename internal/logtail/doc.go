// Package logtail reads and highlights quire's own log file.
//
// The browser owns the terminal, so with -v it logs to quire.log beside the
// session file instead of stderr. The logs command prints the end of that
// file with Read and Colorize.
//
// Read scans the file once and keeps at most twice the requested number of
// lines in memory. A missing file reads as empty. Colorize understands the
// stdr line layout and leaves any other line untouched.
package logtail
