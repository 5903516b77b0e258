package library

// Expansion records which folders are open. The zero value has every
// folder collapsed.
type Expansion struct {
	open map[string]struct{}
}

func (e *Expansion) IsExpanded(id string) bool {
	_, ok := e.open[id]
	return ok
}

// Toggle flips id and reports whether it is now expanded.
func (e *Expansion) Toggle(id string) bool {
	if e.IsExpanded(id) {
		delete(e.open, id)
		return false
	}
	if e.open == nil {
		e.open = make(map[string]struct{})
	}
	e.open[id] = struct{}{}
	return true
}

// Collapse closes id.
func (e *Expansion) Collapse(id string) { delete(e.open, id) }

// Reset collapses everything.
func (e *Expansion) Reset() { e.open = nil }

// Len returns the number of expanded folders.
func (e *Expansion) Len() int { return len(e.open) }
