package cache

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/five82/quire/internal/library"
)

// Snapshot is the latest library root seen by the poller.
type Snapshot struct {
	Roots               []library.Node
	HasRoots            bool
	LastUpdated         time.Time
	LastError           error
	ConsecutiveFailures int // Number of consecutive refresh failures
}

// IsOffline returns true when the API has been unreachable for multiple polls.
func (s Snapshot) IsOffline() bool {
	return s.ConsecutiveFailures >= 2
}

// Store coordinates concurrent updates to the snapshot.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
}

// Update replaces the stored roots. When err is non-nil the previous roots
// are kept and the error is recorded for display.
func (s *Store) Update(roots []library.Node, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot.LastUpdated = time.Now()
	if err != nil {
		s.snapshot.LastError = err
		s.snapshot.ConsecutiveFailures++
		return
	}

	s.snapshot.Roots = cloneNodes(roots)
	s.snapshot.HasRoots = true
	s.snapshot.LastError = nil
	s.snapshot.ConsecutiveFailures = 0
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	snap.Roots = cloneNodes(s.snapshot.Roots)
	if s.snapshot.LastError != nil {
		snap.LastError = fmt.Errorf("%w", s.snapshot.LastError)
	}
	return snap
}

func cloneNodes(nodes []library.Node) []library.Node {
	if len(nodes) == 0 {
		return nil
	}
	dup := make([]library.Node, len(nodes))
	for i, n := range nodes {
		n.Ancestors = slices.Clone(n.Ancestors)
		dup[i] = n
	}
	return dup
}
