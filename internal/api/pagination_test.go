package api

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return ts
}

// scripted serves pages keyed by the cursor they answer; "" is the first.
func scripted(pages map[string]Page[string], calls *[]string) PageFunc[string] {
	return func(_ context.Context, cursor *string) (Page[string], error) {
		key := ""
		if cursor != nil {
			key = *cursor
		}
		*calls = append(*calls, key)
		page, ok := pages[key]
		if !ok {
			return Page[string]{}, errors.New("unknown cursor " + key)
		}
		return page, nil
	}
}

func identity(s string) string { return s }

func TestPager_FollowsCursorsInOrder(t *testing.T) {
	var calls []string
	p := NewPager(scripted(map[string]Page[string]{
		"":   {Data: []string{"a", "b"}, Cursor: ptr("c1")},
		"c1": {Data: []string{"c"}, Cursor: ptr("c2")},
		"c2": {Data: []string{}},
	}, &calls), identity)

	items, err := Collect(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, items)
	assert.Equal(t, []string{"", "c1", "c2"}, calls)
	assert.True(t, p.Done())

	_, err = p.Next(context.Background())
	assert.ErrorIs(t, err, ErrDone)
	assert.Len(t, calls, 3, "no request after the final page")
}

func TestPager_EmptyPageWithCursorContinues(t *testing.T) {
	var calls []string
	p := NewPager(scripted(map[string]Page[string]{
		"":   {Data: []string{"a"}, Cursor: ptr("c1")},
		"c1": {Data: []string{}, Cursor: ptr("c2")},
		"c2": {Data: []string{"b"}},
	}, &calls), identity)

	items, err := Collect(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, items)
	assert.Equal(t, []string{"", "c1", "c2"}, calls)
}

func TestPager_EmptyPageEchoingCursorIsRejected(t *testing.T) {
	var calls []string
	p := NewPager(scripted(map[string]Page[string]{
		"":   {Data: []string{"a"}, Cursor: ptr("c1")},
		"c1": {Data: []string{}, Cursor: ptr("c1")},
	}, &calls), identity)

	_, err := p.Next(context.Background())
	require.NoError(t, err)
	_, err = p.Next(context.Background())
	assert.ErrorIs(t, err, ErrValidation)
	assert.False(t, p.Done())
}

func TestPager_RejectsRepeatedCursor(t *testing.T) {
	var calls []string
	p := NewPager(scripted(map[string]Page[string]{
		"":   {Data: []string{"a"}, Cursor: ptr("c1")},
		"c1": {Data: []string{"b"}, Cursor: ptr("c1")},
	}, &calls), identity)

	_, err := p.Next(context.Background())
	require.NoError(t, err)
	_, err = p.Next(context.Background())
	assert.ErrorIs(t, err, ErrValidation)
}

func TestPager_RejectsDuplicateIDs(t *testing.T) {
	var calls []string
	p := NewPager(scripted(map[string]Page[string]{
		"":   {Data: []string{"a", "b"}, Cursor: ptr("c1")},
		"c1": {Data: []string{"b"}},
	}, &calls), identity)

	_, err := Collect(context.Background(), p)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestPager_ErrorKeepsPosition(t *testing.T) {
	fail := true
	var sent []*string
	p := NewPager(func(_ context.Context, cursor *string) (Page[string], error) {
		sent = append(sent, cursor)
		if cursor != nil && fail {
			fail = false
			return Page[string]{}, &Error{Kind: KindServer}
		}
		if cursor == nil {
			return Page[string]{Data: []string{"a"}, Cursor: ptr("next")}, nil
		}
		return Page[string]{Data: []string{"b"}}, nil
	}, identity)

	_, err := p.Next(context.Background())
	require.NoError(t, err)
	_, err = p.Next(context.Background())
	require.ErrorIs(t, err, ErrServer)
	page, err := p.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, page.Data)
	require.Len(t, sent, 3)
	assert.Equal(t, "next", *sent[1])
	assert.Equal(t, "next", *sent[2])
}

func TestTraversal_RestartDiscardsLateResults(t *testing.T) {
	started := make(chan struct{})
	slow := NewPager[string](func(ctx context.Context, _ *string) (Page[string], error) {
		close(started)
		<-ctx.Done()
		// A late answer still arrives; it must not be appended.
		return Page[string]{Data: []string{"stale"}}, nil
	}, nil)

	var tr Traversal[string]
	tr.Restart(slow)
	firstGen := tr.Generation()

	done := make(chan error, 1)
	go func() {
		_, err := tr.LoadMore(context.Background())
		done <- err
	}()
	<-started

	var calls []string
	tr.Restart(NewPager(scripted(map[string]Page[string]{
		"": {Data: []string{"x", "y"}},
	}, &calls), identity))

	select {
	case err := <-done:
		assert.True(t, IsCancelled(err), "stale load reports cancellation, got %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("stale load was not cancelled")
	}
	assert.NotEqual(t, firstGen, tr.Generation())

	got, err := tr.LoadMore(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, got)
	assert.Equal(t, []string{"x", "y"}, tr.Items())
	assert.True(t, tr.Done())
}

func TestTraversal_CloseStopsLoading(t *testing.T) {
	var tr Traversal[string]
	_, err := tr.LoadMore(context.Background())
	assert.ErrorIs(t, err, ErrDone)

	var calls []string
	tr.Restart(NewPager(scripted(map[string]Page[string]{"": {Data: []string{"a"}}}, &calls), identity))
	tr.Close()
	_, err = tr.LoadMore(context.Background())
	assert.ErrorIs(t, err, ErrDone)
	assert.Empty(t, calls)
	assert.Empty(t, tr.Items())
}

func TestTraversal_LoadMoreAtOldGenerationFetchesNothing(t *testing.T) {
	var first, second []string
	var tr Traversal[string]
	tr.Restart(NewPager(scripted(map[string]Page[string]{"": {Data: []string{"a"}}}, &first), identity))
	old := tr.Generation()
	tr.Restart(NewPager(scripted(map[string]Page[string]{"": {Data: []string{"b"}}}, &second), identity))

	_, err := tr.LoadMoreAt(context.Background(), old)
	assert.True(t, IsCancelled(err))
	assert.Empty(t, first)
	assert.Empty(t, second)
	assert.Empty(t, tr.Items())

	got, err := tr.LoadMoreAt(context.Background(), tr.Generation())
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, got)
}
