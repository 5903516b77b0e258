// Package library models the navigation sidebar as a lazily loaded tree of
// folders, feeds and collections.
//
// Only the levels a caller asks for are fetched: Roots lists the top level,
// Children lists one folder. Each Node remembers the folder ids above it, so
// a server that lists a folder inside itself or inside one of its
// descendants is reported with ErrCycle instead of being followed forever.
//
// Expansion state belongs to the caller; Expansion is a small set for UIs
// that need one.
package library
