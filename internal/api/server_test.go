package api_test

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/quire/internal/api"
	"github.com/five82/quire/internal/api/apitest"
)

func newClient(t *testing.T, srv *apitest.Server, opts ...api.Option) *api.Client {
	t.Helper()
	c, err := api.NewClient(srv.URL, opts...)
	require.NoError(t, err)
	return c
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestTags_CreateGetRoundTrip(t *testing.T) {
	srv := apitest.New(t)
	c := newClient(t, srv)
	ctx := testContext(t)

	created, err := c.Tags.Create(ctx, api.TagCreate{Title: "  golang  "})
	require.NoError(t, err)
	assert.Equal(t, "golang", created.Title)

	fetched, err := c.Tags.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, fetched.ID)
	assert.Equal(t, created.Title, fetched.Title)

	renamed, err := c.Tags.Update(ctx, created.ID, api.TagUpdate{Title: api.Set("go")})
	require.NoError(t, err)
	assert.Equal(t, "go", renamed.Title)

	require.NoError(t, c.Tags.Delete(ctx, created.ID))
	_, err = c.Tags.Get(ctx, created.ID)
	assert.ErrorIs(t, err, api.ErrNotFound)
}

func TestCreateGetRoundTrip_EveryFamily(t *testing.T) {
	// Each case creates one record and reads it back, reporting the id, the
	// title and one family-specific field from both sides.
	type snapshot struct{ id, title, extra string }
	tests := []struct {
		name   string
		create func(context.Context, *api.Client) (snapshot, error)
		get    func(context.Context, *api.Client, string) (snapshot, error)
	}{
		{
			name: "bookmarks",
			create: func(ctx context.Context, c *api.Client) (snapshot, error) {
				b, err := c.Bookmarks.Create(ctx, api.BookmarkCreate{URL: " https://example.com/a ", Title: " A "})
				if err != nil {
					return snapshot{}, err
				}
				return snapshot{b.ID, b.Title, b.Link}, nil
			},
			get: func(ctx context.Context, c *api.Client, id string) (snapshot, error) {
				b, err := c.Bookmarks.Get(ctx, id)
				if err != nil {
					return snapshot{}, err
				}
				return snapshot{b.ID, b.Title, b.Link}, nil
			},
		},
		{
			name: "feeds",
			create: func(ctx context.Context, c *api.Client) (snapshot, error) {
				f, err := c.Feeds.Create(ctx, api.FeedCreate{SourceURL: "https://go.dev/blog/feed.atom", Link: "https://go.dev/blog", Title: "Go Blog"})
				if err != nil {
					return snapshot{}, err
				}
				return snapshot{f.ID, f.Title, f.SourceURL}, nil
			},
			get: func(ctx context.Context, c *api.Client, id string) (snapshot, error) {
				f, err := c.Feeds.Get(ctx, id)
				if err != nil {
					return snapshot{}, err
				}
				return snapshot{f.ID, f.Title, f.SourceURL}, nil
			},
		},
		{
			name: "tags",
			create: func(ctx context.Context, c *api.Client) (snapshot, error) {
				tag, err := c.Tags.Create(ctx, api.TagCreate{Title: " golang "})
				if err != nil {
					return snapshot{}, err
				}
				return snapshot{tag.ID, tag.Title, ""}, nil
			},
			get: func(ctx context.Context, c *api.Client, id string) (snapshot, error) {
				tag, err := c.Tags.Get(ctx, id)
				if err != nil {
					return snapshot{}, err
				}
				return snapshot{tag.ID, tag.Title, ""}, nil
			},
		},
		{
			name: "collections",
			create: func(ctx context.Context, c *api.Client) (snapshot, error) {
				folder, err := c.Folders.Create(ctx, api.FolderCreate{Title: "Reading"})
				if err != nil {
					return snapshot{}, err
				}
				coll, err := c.Collections.Create(ctx, api.CollectionCreate{Title: "Unread", FolderID: &folder.ID})
				if err != nil {
					return snapshot{}, err
				}
				return snapshot{coll.ID, coll.Title, *coll.FolderID}, nil
			},
			get: func(ctx context.Context, c *api.Client, id string) (snapshot, error) {
				coll, err := c.Collections.Get(ctx, id)
				if err != nil || coll.FolderID == nil {
					return snapshot{}, err
				}
				return snapshot{coll.ID, coll.Title, *coll.FolderID}, nil
			},
		},
		{
			name: "streams",
			create: func(ctx context.Context, c *api.Client) (snapshot, error) {
				st, err := c.Streams.Create(ctx, api.StreamCreate{Title: "Morning"})
				if err != nil {
					return snapshot{}, err
				}
				return snapshot{st.ID, st.Title, ""}, nil
			},
			get: func(ctx context.Context, c *api.Client, id string) (snapshot, error) {
				st, err := c.Streams.Get(ctx, id)
				if err != nil {
					return snapshot{}, err
				}
				return snapshot{st.ID, st.Title, ""}, nil
			},
		},
		{
			name: "subscriptions",
			create: func(ctx context.Context, c *api.Client) (snapshot, error) {
				feed, err := c.Feeds.Create(ctx, api.FeedCreate{SourceURL: "https://go.dev/blog/feed.atom", Link: "https://go.dev/blog", Title: "Go Blog"})
				if err != nil {
					return snapshot{}, err
				}
				sub, err := c.Subscriptions.Create(ctx, api.SubscriptionCreate{Title: "Go", FeedID: feed.ID})
				if err != nil {
					return snapshot{}, err
				}
				return snapshot{sub.ID, sub.Title, sub.FeedID}, nil
			},
			get: func(ctx context.Context, c *api.Client, id string) (snapshot, error) {
				sub, err := c.Subscriptions.Get(ctx, id)
				if err != nil {
					return snapshot{}, err
				}
				return snapshot{sub.ID, sub.Title, sub.FeedID}, nil
			},
		},
		{
			name: "profiles",
			create: func(ctx context.Context, c *api.Client) (snapshot, error) {
				p, err := c.Profiles.Create(ctx, api.ProfileCreate{Title: "Ada"})
				if err != nil {
					return snapshot{}, err
				}
				return snapshot{p.ID, p.Title, ""}, nil
			},
			get: func(ctx context.Context, c *api.Client, id string) (snapshot, error) {
				p, err := c.Profiles.Get(ctx, id)
				if err != nil {
					return snapshot{}, err
				}
				return snapshot{p.ID, p.Title, ""}, nil
			},
		},
		{
			name: "folders",
			create: func(ctx context.Context, c *api.Client) (snapshot, error) {
				parent, err := c.Folders.Create(ctx, api.FolderCreate{Title: "Tech"})
				if err != nil {
					return snapshot{}, err
				}
				f, err := c.Folders.Create(ctx, api.FolderCreate{Title: "Go", ParentID: &parent.ID})
				if err != nil {
					return snapshot{}, err
				}
				return snapshot{f.ID, f.Title, *f.ParentID}, nil
			},
			get: func(ctx context.Context, c *api.Client, id string) (snapshot, error) {
				f, err := c.Folders.Get(ctx, id)
				if err != nil || f.ParentID == nil {
					return snapshot{}, err
				}
				return snapshot{f.ID, f.Title, *f.ParentID}, nil
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := apitest.New(t)
			c := newClient(t, srv)
			ctx := testContext(t)

			created, err := tt.create(ctx, c)
			require.NoError(t, err)
			assert.NotEmpty(t, created.id)
			assert.Equal(t, strings.TrimSpace(created.title), created.title, "titles are trimmed before sending")

			fetched, err := tt.get(ctx, c, created.id)
			require.NoError(t, err)
			assert.Equal(t, created, fetched)
		})
	}
}

func TestBookmarks_TagsExpandAndUnknownTagIsUnprocessable(t *testing.T) {
	srv := apitest.New(t)
	c := newClient(t, srv)
	ctx := testContext(t)

	tag, err := c.Tags.Create(ctx, api.TagCreate{Title: "reading"})
	require.NoError(t, err)

	bm, err := c.Bookmarks.Create(ctx, api.BookmarkCreate{
		URL:   "https://example.com/a",
		Title: "A",
		Tags:  []string{tag.ID, tag.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/a", bm.Link)
	assert.Equal(t, []string{tag.ID}, bm.TagIDs())

	_, err = c.Bookmarks.Create(ctx, api.BookmarkCreate{
		URL:   "https://example.com/b",
		Title: "B",
		Tags:  []string{"3f2504e0-4f89-41d3-9a0c-0305e82c3301"},
	})
	require.ErrorIs(t, err, api.ErrUnprocessable)
	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Contains(t, apiErr.Fields, "tags")
}

func TestInvalidRequestsNeverReachTheServer(t *testing.T) {
	srv := apitest.New(t)
	c := newClient(t, srv)
	ctx := testContext(t)

	_, err := c.Bookmarks.Create(ctx, api.BookmarkCreate{URL: "not a url", Title: "x"})
	assert.ErrorIs(t, err, api.ErrValidation)
	_, err = c.Feeds.Get(ctx, "12")
	assert.ErrorIs(t, err, api.ErrValidation)
	_, err = c.Subscriptions.MarkEntryAsRead(ctx, "sub", "entry")
	assert.ErrorIs(t, err, api.ErrValidation)

	assert.Zero(t, srv.Calls())
}

func TestMalformedSuccessResponse(t *testing.T) {
	srv := apitest.New(t)
	srv.Override(http.MethodGet, "/tags", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items":[]}`))
	})
	c := newClient(t, srv)

	_, err := c.Tags.List(testContext(t), api.TagListQuery{}, nil)
	assert.ErrorIs(t, err, api.ErrValidation)
	assert.Equal(t, 1, srv.CallsTo(http.MethodGet, "/tags"))
}

func TestInjectedStatusesMapToKinds(t *testing.T) {
	srv := apitest.New(t)
	c := newClient(t, srv)
	ctx := testContext(t)

	srv.FailNext(http.StatusForbidden, `{"message":"not yours"}`)
	_, err := c.Profiles.List(ctx, api.NoQuery{}, nil)
	assert.ErrorIs(t, err, api.ErrForbidden)

	srv.FailNext(http.StatusServiceUnavailable, `maintenance`)
	_, err = c.Profiles.List(ctx, api.NoQuery{}, nil)
	assert.ErrorIs(t, err, api.ErrServer)

	_, err = c.Bookmarks.Scrape(ctx, "https://unreachable.example")
	assert.ErrorIs(t, err, api.ErrBadGateway)
}

func TestSubscriptionEntries_UnreadTraversal(t *testing.T) {
	srv := apitest.New(t)
	srv.PageSize = 2
	c := newClient(t, srv)
	ctx := testContext(t)

	subID := srv.Seed("subscriptions", map[string]any{"title": "Blog", "feedId": "9b2c6a8e-1d4f-4c8e-8f5a-2a7e3c1b0d44"})[0]
	entryIDs := []string{
		"11111111-1111-4111-8111-111111111111",
		"22222222-2222-4222-8222-222222222222",
		"33333333-3333-4333-8333-333333333333",
		"44444444-4444-4444-8444-444444444444",
		"55555555-5555-4555-8555-555555555555",
	}
	for i, id := range entryIDs {
		srv.Seed("subscriptionEntries", api.SubscriptionEntry{SubscriptionID: subID, FeedEntryID: id, HasRead: i == 2})
	}

	unread := false
	items, err := api.Collect(ctx, c.SubscriptionEntries.Pages(api.SubscriptionEntryListQuery{HasRead: &unread}))
	require.NoError(t, err)
	require.Len(t, items, 4)
	for _, e := range items {
		assert.False(t, e.HasRead)
	}

	reqs := srv.Requests()
	require.Len(t, reqs, 2)
	assert.Empty(t, reqs[0].Query.Get("cursor"))
	assert.NotEmpty(t, reqs[1].Query.Get("cursor"))
	for _, r := range reqs {
		assert.Equal(t, "false", r.Query.Get("hasRead"))
	}

	entry, err := c.Subscriptions.MarkEntryAsRead(ctx, subID, entryIDs[0])
	require.NoError(t, err)
	assert.True(t, entry.HasRead)
	require.NotNil(t, entry.ReadAt)

	entry, err = c.Subscriptions.MarkEntryAsUnread(ctx, subID, entryIDs[0])
	require.NoError(t, err)
	assert.False(t, entry.HasRead)
	assert.Nil(t, entry.ReadAt)
}

func TestFolders_MoveToRoot(t *testing.T) {
	srv := apitest.New(t)
	c := newClient(t, srv)
	ctx := testContext(t)

	parent, err := c.Folders.Create(ctx, api.FolderCreate{Title: "Parent"})
	require.NoError(t, err)
	child, err := c.Folders.Create(ctx, api.FolderCreate{Title: "Child", ParentID: &parent.ID})
	require.NoError(t, err)
	require.NotNil(t, child.ParentID)

	moved, err := c.Folders.Update(ctx, child.ID, api.FolderUpdate{ParentID: api.Null[string]()})
	require.NoError(t, err)
	assert.Nil(t, moved.ParentID)

	last, ok := srv.LastRequest()
	require.True(t, ok)
	assert.JSONEq(t, `{"parentId":null}`, string(last.Body))
}

func TestAuth_LoginTokenAuthorizesCalls(t *testing.T) {
	srv := apitest.New(t)
	srv.RequireAuth()
	c := newClient(t, srv)
	ctx := testContext(t)

	_, err := c.Auth.Register(ctx, api.RegisterRequest{Email: "ada@example.com", Password: "pw"})
	require.NoError(t, err)
	_, err = c.Auth.Register(ctx, api.RegisterRequest{Email: "ada@example.com", Password: "pw"})
	assert.ErrorIs(t, err, api.ErrConflict)

	_, err = c.Auth.Login(ctx, api.LoginRequest{Email: "ada@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, api.ErrUnauthorized)

	tok, err := c.Auth.Login(ctx, api.LoginRequest{Email: "ada@example.com", Password: "pw"})
	require.NoError(t, err)

	_, err = c.Tags.List(ctx, api.TagListQuery{}, nil)
	assert.ErrorIs(t, err, api.ErrUnauthorized)

	authed := newClient(t, srv, api.WithCredentials(api.StaticToken(tok.AccessToken)))
	page, err := authed.Tags.List(ctx, api.TagListQuery{}, nil)
	require.NoError(t, err)
	assert.True(t, page.Last())
}

func TestFeeds_DetectImportExport(t *testing.T) {
	srv := apitest.New(t)
	c := newClient(t, srv)
	ctx := testContext(t)

	srv.SetCandidates("https://blog.example", api.FeedDetected{URL: "https://blog.example/rss", Title: "RSS"})
	res, err := c.Feeds.Detect(ctx, "https://blog.example")
	require.NoError(t, err)
	require.Len(t, res.Candidates, 1)
	assert.Nil(t, res.Feed)

	feed, err := c.Feeds.Create(ctx, api.FeedCreate{SourceURL: "https://blog.example/rss", Link: "https://blog.example", Title: "Blog"})
	require.NoError(t, err)
	res, err = c.Feeds.Detect(ctx, "https://blog.example/rss")
	require.NoError(t, err)
	require.NotNil(t, res.Feed)
	assert.Equal(t, feed.ID, res.Feed.ID)

	_, err = c.Subscriptions.Create(ctx, api.SubscriptionCreate{Title: "Blog", FeedID: feed.ID})
	require.NoError(t, err)

	opml := "<opml version=\"2.0\"></opml>"
	require.NoError(t, c.Subscriptions.Import(ctx, api.Upload{Filename: "subs.opml", Content: strings.NewReader(opml)}))
	got, ok := srv.Imported("subscriptions")
	require.True(t, ok)
	assert.Equal(t, opml, string(got))

	exported, err := c.Subscriptions.Export(ctx)
	require.NoError(t, err)
	assert.Contains(t, string(exported), `text="Blog"`)
}

func TestLibrary_ListsFolderChildren(t *testing.T) {
	srv := apitest.New(t)
	c := newClient(t, srv)
	ctx := testContext(t)

	now := time.Now().UTC()
	folder := api.Folder{ID: "66666666-6666-4666-8666-666666666666", Title: "Tech", CreatedAt: now, UpdatedAt: now}
	feed := api.Feed{ID: "77777777-7777-4777-8777-777777777777", SourceURL: "https://go.dev/blog/feed.atom", Link: "https://go.dev/blog", Title: "Go Blog", CreatedAt: now, UpdatedAt: now}
	srv.SetLibrary("", api.FolderItem(folder))
	srv.SetLibrary(folder.ID, api.FeedItem(feed))

	root, err := api.Collect(ctx, c.Library.Pages(api.LibraryListQuery{}))
	require.NoError(t, err)
	require.Len(t, root, 1)
	assert.Equal(t, api.LibraryFolder, root[0].Type)

	children, err := api.Collect(ctx, c.Library.Pages(api.LibraryListQuery{FolderID: folder.ID}))
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, "Go Blog", children[0].Title())
}
