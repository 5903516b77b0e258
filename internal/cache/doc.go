// Package cache holds data shared between the background poller and the UI.
//
// # Overview
//
// Two stores live here:
//
//   - Cache: a generic TTL map for records and list results, keyed with
//     RecordKey and QueryKey and cleared per family after mutations
//   - Store: the latest library root snapshot plus refresh health
//
// Neither is consulted by the api package. Callers decide what to cache and
// when to invalidate; the api client always goes to the network.
//
// # Concurrency Model
//
// Both types use a sync.RWMutex. Reads take the read lock and writes the
// write lock, and the lock is only held while copying. Values are cloned on
// the way in and out so the UI can never mutate what the poller stored.
//
// # Update Semantics
//
// Store.Update keeps the previous roots when the refresh failed and records
// the error instead:
//
//	store.Update(roots, nil)  → roots replaced, failures reset
//	store.Update(nil, err)    → roots kept, LastError set, failures+1
//
// Two consecutive failures mark the snapshot offline.
package cache
