package api

import (
	"bytes"
	"encoding/json"
	"time"
)

// Diff helpers build update deltas from a current and a desired record. A
// field equal in both is left absent so the server sees no change for it.

func diffString(cur, want string) Field[string] {
	if cur == want {
		return Field[string]{}
	}
	return Set(want)
}

func diffOptional[T comparable](cur, want *T) Field[T] {
	switch {
	case cur == nil && want == nil:
		return Field[T]{}
	case want == nil:
		return Null[T]()
	case cur != nil && *cur == *want:
		return Field[T]{}
	}
	return Set(*want)
}

func diffTime(cur, want *time.Time) Field[time.Time] {
	switch {
	case cur == nil && want == nil:
		return Field[time.Time]{}
	case want == nil:
		return Null[time.Time]()
	case cur != nil && cur.Equal(*want):
		return Field[time.Time]{}
	}
	return Set(*want)
}

func diffRaw(cur, want json.RawMessage) Field[json.RawMessage] {
	if bytes.Equal(compactJSON(cur), compactJSON(want)) {
		return Field[json.RawMessage]{}
	}
	if len(want) == 0 {
		return Null[json.RawMessage]()
	}
	return Set(want)
}

func compactJSON(raw json.RawMessage) []byte {
	if len(raw) == 0 {
		return nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return raw
	}
	return buf.Bytes()
}

// diffTagSet compares tag ids as sets: reordering alone is not a change.
func diffTagSet(cur, want []Tag) Field[[]string] {
	wantIDs := tagIDs(want)
	if SameIDSet(tagIDs(cur), wantIDs) {
		return Field[[]string]{}
	}
	if wantIDs == nil {
		wantIDs = []string{}
	}
	return Set(wantIDs)
}

func tagIDs(tags []Tag) []string {
	if len(tags) == 0 {
		return nil
	}
	ids := make([]string, len(tags))
	for i, t := range tags {
		ids[i] = t.ID
	}
	return ids
}

// SameIDSet reports whether a and b hold the same ids regardless of order
// and repetition.
func SameIDSet(a, b []string) bool {
	left := make(map[string]struct{}, len(a))
	for _, id := range a {
		left[id] = struct{}{}
	}
	right := make(map[string]struct{}, len(b))
	for _, id := range b {
		if _, ok := left[id]; !ok {
			return false
		}
		right[id] = struct{}{}
	}
	return len(left) == len(right)
}
