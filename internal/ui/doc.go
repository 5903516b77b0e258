// Package ui is quire's terminal browser, built on bubbletea.
//
// # Layout
//
// The screen has a header, two panes and a footer:
//
//   - Header: poller state (online, offline after two failed polls), root
//     count, last refresh age and the last poll error
//   - Library pane: the library tree, folders indented under their parent
//   - Entries pane: entries of the open feed or collection
//   - Footer: key hints, the last status message or the last error
//
// # Data Flow
//
// The sidebar roots come from the cache.Store the poller fills; the model
// re-reads it once a second. Folder children are fetched on expansion with
// library.Tree.Children and kept for five minutes in a cache.Cache keyed by
// folder id. R drops that cache so open folders refetch.
//
// Opening a feed lists its feed entries. Opening a collection lists
// subscription entries, which can be marked read. Both go through one
// api.Traversal, so opening another node cancels the listing in flight and
// its late page is discarded.
//
// # Key Bindings
//
//   - j/k, up/down: move in the focused pane
//   - enter: toggle a folder or open a feed or collection
//   - tab, esc: switch pane, back to the library
//   - m: load the next page
//   - r: mark the selected entry read
//   - T: cycle theme (saved to the session file)
//   - ?: toggle help
//   - q: quit
//
// Cancelled requests are never reported as errors.
package ui
