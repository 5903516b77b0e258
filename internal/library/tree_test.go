package library_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/quire/internal/api"
	"github.com/five82/quire/internal/api/apitest"
	"github.com/five82/quire/internal/library"
)

const (
	techID   = "aaaaaaaa-aaaa-4aaa-8aaa-aaaaaaaaaaaa"
	golangID = "bbbbbbbb-bbbb-4bbb-8bbb-bbbbbbbbbbbb"
	feedID   = "cccccccc-cccc-4ccc-8ccc-cccccccccccc"
	collID   = "dddddddd-dddd-4ddd-8ddd-dddddddddddd"
)

func fixtures() (tech, golang api.Folder, feed api.Feed, coll api.Collection) {
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	tech = api.Folder{ID: techID, Title: "Tech", CreatedAt: now, UpdatedAt: now}
	golang = api.Folder{ID: golangID, Title: "Go", ParentID: ptr(techID), CreatedAt: now, UpdatedAt: now}
	feed = api.Feed{ID: feedID, SourceURL: "https://go.dev/blog/feed.atom", Link: "https://go.dev/blog", Title: "Go Blog", CreatedAt: now, UpdatedAt: now}
	coll = api.Collection{ID: collID, Title: "Unread", CreatedAt: now, UpdatedAt: now}
	return tech, golang, feed, coll
}

func ptr[T any](v T) *T { return &v }

func newTree(t *testing.T, srv *apitest.Server) *library.Tree {
	t.Helper()
	c, err := api.NewClient(srv.URL)
	require.NoError(t, err)
	return library.New(c.Library, logr.Discard())
}

func TestTree_LoadsLevelsOnDemand(t *testing.T) {
	srv := apitest.New(t)
	tech, golang, feed, coll := fixtures()
	srv.SetLibrary("", api.FolderItem(tech), api.CollectionItem(coll))
	srv.SetLibrary(techID, api.FolderItem(golang))
	srv.SetLibrary(golangID, api.FeedItem(feed))
	tree := newTree(t, srv)
	ctx := context.Background()

	roots, err := tree.Roots(ctx)
	require.NoError(t, err)
	require.Len(t, roots, 2)
	assert.Equal(t, 1, srv.Calls(), "roots fetch only the top level")
	assert.True(t, roots[0].IsFolder())
	assert.False(t, roots[1].IsFolder())

	kids, err := tree.Children(ctx, roots[0])
	require.NoError(t, err)
	require.Len(t, kids, 1)
	assert.Equal(t, []string{techID}, kids[0].Ancestors)
	assert.Equal(t, techID, kids[0].ParentID())

	leaves, err := tree.Children(ctx, kids[0])
	require.NoError(t, err)
	require.Len(t, leaves, 1)
	assert.Equal(t, 2, leaves[0].Depth())
	assert.Equal(t, "Go Blog", leaves[0].Title())

	none, err := tree.Children(ctx, roots[1])
	require.NoError(t, err)
	assert.Empty(t, none)
	assert.Equal(t, 3, srv.Calls())
}

func TestTree_DetectsCycles(t *testing.T) {
	srv := apitest.New(t)
	tech, golang, _, _ := fixtures()
	srv.SetLibrary("", api.FolderItem(tech))
	srv.SetLibrary(techID, api.FolderItem(golang))
	// Go lists its own ancestor.
	srv.SetLibrary(golangID, api.FolderItem(tech))
	tree := newTree(t, srv)
	ctx := context.Background()

	roots, err := tree.Roots(ctx)
	require.NoError(t, err)
	kids, err := tree.Children(ctx, roots[0])
	require.NoError(t, err)

	_, err = tree.Children(ctx, kids[0])
	require.Error(t, err)
	assert.ErrorIs(t, err, library.ErrCycle)
	assert.ErrorIs(t, err, api.ErrValidation)

	err = tree.Walk(ctx, func(library.Node) error { return nil })
	assert.ErrorIs(t, err, library.ErrCycle)
}

func TestTree_SelfListingFolder(t *testing.T) {
	srv := apitest.New(t)
	tech, _, _, _ := fixtures()
	srv.SetLibrary("", api.FolderItem(tech))
	srv.SetLibrary(techID, api.FolderItem(tech))
	tree := newTree(t, srv)

	roots, err := tree.Roots(context.Background())
	require.NoError(t, err)
	_, err = tree.Children(context.Background(), roots[0])
	assert.ErrorIs(t, err, library.ErrCycle)
}

func TestTree_WalkVisitsDepthFirst(t *testing.T) {
	srv := apitest.New(t)
	tech, golang, feed, coll := fixtures()
	srv.SetLibrary("", api.FolderItem(tech), api.CollectionItem(coll))
	srv.SetLibrary(techID, api.FolderItem(golang))
	srv.SetLibrary(golangID, api.FeedItem(feed))
	tree := newTree(t, srv)

	var titles []string
	err := tree.Walk(context.Background(), func(n library.Node) error {
		titles = append(titles, n.Title())
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Tech", "Go", "Go Blog", "Unread"}, titles)

	stop := errors.New("stop")
	err = tree.Walk(context.Background(), func(library.Node) error { return stop })
	assert.ErrorIs(t, err, stop)
}

func TestTree_PropagatesAPIErrors(t *testing.T) {
	srv := apitest.New(t)
	srv.FailNext(500, `{"message":"db down"}`)
	tree := newTree(t, srv)

	_, err := tree.Roots(context.Background())
	assert.ErrorIs(t, err, api.ErrServer)
}

func TestExpansion_Toggle(t *testing.T) {
	var e library.Expansion
	assert.False(t, e.IsExpanded(techID))
	assert.True(t, e.Toggle(techID))
	assert.True(t, e.IsExpanded(techID))
	assert.False(t, e.Toggle(techID))
	assert.Zero(t, e.Len())

	e.Toggle(techID)
	e.Toggle(golangID)
	e.Collapse(techID)
	assert.Equal(t, 1, e.Len())
	e.Reset()
	assert.False(t, e.IsExpanded(golangID))
}
