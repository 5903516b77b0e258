package api

import (
	"context"
)

var (
	bookmarkFamily          = family[Bookmark, BookmarkCreate, BookmarkUpdate, BookmarkListQuery]{name: "bookmarks", eps: bookmarkEndpoints, diff: diffBookmark}
	feedFamily              = family[Feed, FeedCreate, FeedUpdate, NoQuery]{name: "feeds", eps: feedEndpoints, diff: diffFeed}
	feedEntryFamily         = family[FeedEntry, noBody, noDelta, FeedEntryListQuery]{name: "feedEntries", eps: feedEntryEndpoints}
	tagFamily               = family[Tag, TagCreate, TagUpdate, TagListQuery]{name: "tags", eps: tagEndpoints, diff: diffTag}
	collectionFamily        = family[Collection, CollectionCreate, CollectionUpdate, NoQuery]{name: "collections", eps: collectionEndpoints, diff: diffCollection}
	streamFamily            = family[Stream, StreamCreate, StreamUpdate, NoQuery]{name: "streams", eps: streamEndpoints, diff: diffStream}
	subscriptionFamily      = family[Subscription, SubscriptionCreate, SubscriptionUpdate, SubscriptionListQuery]{name: "subscriptions", eps: subscriptionEndpoints, diff: diffSubscription}
	subscriptionEntryFamily = family[SubscriptionEntry, noBody, noDelta, SubscriptionEntryListQuery]{name: "subscriptionEntries", eps: subscriptionEntryEndpoints}
	profileFamily           = family[Profile, ProfileCreate, ProfileUpdate, NoQuery]{name: "profiles", eps: profileEndpoints, diff: diffProfile}
	folderFamily            = family[Folder, FolderCreate, FolderUpdate, FolderListQuery]{name: "folders", eps: folderEndpoints, diff: diffFolder}
	libraryFamily           = family[LibraryItem, noBody, noDelta, LibraryListQuery]{name: "library", eps: libraryEndpoints}
)

// Bookmarks manages saved links.
type Bookmarks struct {
	*Resource[Bookmark, BookmarkCreate, BookmarkUpdate, BookmarkListQuery]
}

// Scrape asks the server to extract metadata from rawURL. A page the server
// cannot fetch or parse fails with KindBadGateway.
func (b *Bookmarks) Scrape(ctx context.Context, rawURL string, opts ...CallOption) (*BookmarkScraped, error) {
	var out BookmarkScraped
	if err := b.client.do(ctx, epBookmarkScrape, call{body: &urlBody{URL: rawURL}, dest: &out}, opts); err != nil {
		return nil, err
	}
	return &out, nil
}

// Import uploads a bookmarks file (e.g. Netscape HTML) for bulk ingestion.
func (b *Bookmarks) Import(ctx context.Context, up Upload, opts ...CallOption) error {
	return b.client.do(ctx, epBookmarkImport, call{body: &up}, opts)
}

// Feeds manages feed sources.
type Feeds struct {
	*Resource[Feed, FeedCreate, FeedUpdate, NoQuery]
}

// Detect looks for feeds at rawURL. The result holds either the candidates
// found on a web page or the feed itself.
func (f *Feeds) Detect(ctx context.Context, rawURL string, opts ...CallOption) (*DetectResult, error) {
	var out DetectResult
	if err := f.client.do(ctx, epFeedDetect, call{body: &urlBody{URL: rawURL}, dest: &out}, opts); err != nil {
		return nil, err
	}
	return &out, nil
}

// Import uploads an OPML file.
func (f *Feeds) Import(ctx context.Context, up Upload, opts ...CallOption) error {
	return f.client.do(ctx, epFeedImport, call{body: &up}, opts)
}

// FeedEntries reads entries published by feeds.
type FeedEntries struct {
	res *Resource[FeedEntry, noBody, noDelta, FeedEntryListQuery]
}

// List returns one page of entries, optionally for a single feed.
func (f *FeedEntries) List(ctx context.Context, q FeedEntryListQuery, cursor *string, opts ...CallOption) (Page[FeedEntry], error) {
	return f.res.List(ctx, q, cursor, opts...)
}

// Pages walks every entry matching q.
func (f *FeedEntries) Pages(q FeedEntryListQuery, opts ...CallOption) *Pager[FeedEntry] {
	return f.res.Pages(q, opts...)
}

// Get returns one entry by id.
func (f *FeedEntries) Get(ctx context.Context, id string, opts ...CallOption) (*FeedEntry, error) {
	return f.res.Get(ctx, id, opts...)
}

// Tags manages labels.
type Tags struct {
	*Resource[Tag, TagCreate, TagUpdate, TagListQuery]
}

// Collections manages saved bookmark filters.
type Collections struct {
	*Resource[Collection, CollectionCreate, CollectionUpdate, NoQuery]
}

// Streams manages saved entry filters.
type Streams struct {
	*Resource[Stream, StreamCreate, StreamUpdate, NoQuery]
}

// Subscriptions manages followed feeds and their read state.
type Subscriptions struct {
	*Resource[Subscription, SubscriptionCreate, SubscriptionUpdate, SubscriptionListQuery]
}

// MarkEntryAsRead marks one entry of a subscription as read.
func (s *Subscriptions) MarkEntryAsRead(ctx context.Context, subscriptionID, entryID string, opts ...CallOption) (*SubscriptionEntry, error) {
	return s.mark(ctx, epSubscriptionMarkRead, subscriptionID, entryID, opts)
}

// MarkEntryAsUnread reverts MarkEntryAsRead.
func (s *Subscriptions) MarkEntryAsUnread(ctx context.Context, subscriptionID, entryID string, opts ...CallOption) (*SubscriptionEntry, error) {
	return s.mark(ctx, epSubscriptionMarkUnread, subscriptionID, entryID, opts)
}

func (s *Subscriptions) mark(ctx context.Context, ep *Endpoint, subscriptionID, entryID string, opts []CallOption) (*SubscriptionEntry, error) {
	var out SubscriptionEntry
	params := map[string]string{"id": subscriptionID, "entryId": entryID}
	if err := s.client.do(ctx, ep, call{params: params, dest: &out}, opts); err != nil {
		return nil, err
	}
	return &out, nil
}

// Import uploads an OPML file of subscriptions.
func (s *Subscriptions) Import(ctx context.Context, up Upload, opts ...CallOption) error {
	return s.client.do(ctx, epSubscriptionImport, call{body: &up}, opts)
}

// Export returns the subscriptions as an OPML document.
func (s *Subscriptions) Export(ctx context.Context, opts ...CallOption) ([]byte, error) {
	var out []byte
	if err := s.client.do(ctx, epSubscriptionExport, call{dest: &out}, opts); err != nil {
		return nil, err
	}
	return out, nil
}

// SubscriptionEntries reads entries across subscriptions.
type SubscriptionEntries struct {
	res *Resource[SubscriptionEntry, noBody, noDelta, SubscriptionEntryListQuery]
}

// List returns one page of subscription entries matching q.
func (s *SubscriptionEntries) List(ctx context.Context, q SubscriptionEntryListQuery, cursor *string, opts ...CallOption) (Page[SubscriptionEntry], error) {
	return s.res.List(ctx, q, cursor, opts...)
}

// Pages walks every subscription entry matching q.
func (s *SubscriptionEntries) Pages(q SubscriptionEntryListQuery, opts ...CallOption) *Pager[SubscriptionEntry] {
	return s.res.Pages(q, opts...)
}

// Profiles manages reading profiles.
type Profiles struct {
	*Resource[Profile, ProfileCreate, ProfileUpdate, NoQuery]
}

// Me returns the profile the credentials belong to.
func (p *Profiles) Me(ctx context.Context, opts ...CallOption) (*Profile, error) {
	var out Profile
	if err := p.client.do(ctx, epProfileMe, call{dest: &out}, opts); err != nil {
		return nil, err
	}
	return &out, nil
}

// Folders manages library folders.
type Folders struct {
	*Resource[Folder, FolderCreate, FolderUpdate, FolderListQuery]
}

// Library lists the items shown in the navigation sidebar.
type Library struct {
	res *Resource[LibraryItem, noBody, noDelta, LibraryListQuery]
}

// List returns one page of the direct children of q.FolderID, or of the
// root when it is empty.
func (l *Library) List(ctx context.Context, q LibraryListQuery, cursor *string, opts ...CallOption) (Page[LibraryItem], error) {
	return l.res.List(ctx, q, cursor, opts...)
}

// Pages walks every direct child of the folder in q.
func (l *Library) Pages(q LibraryListQuery, opts ...CallOption) *Pager[LibraryItem] {
	return l.res.Pages(q, opts...)
}

// Auth registers accounts and issues tokens.
type Auth struct {
	client *Client
}

// Register creates an account. It does not sign in.
func (a *Auth) Register(ctx context.Context, req RegisterRequest, opts ...CallOption) (*User, error) {
	var out User
	if err := a.client.do(ctx, epAuthRegister, call{body: &req, dest: &out}, opts); err != nil {
		return nil, err
	}
	return &out, nil
}

// Login exchanges credentials for a bearer token. The caller decides where
// to keep it; the client never stores it.
func (a *Auth) Login(ctx context.Context, req LoginRequest, opts ...CallOption) (*Token, error) {
	var out Token
	if err := a.client.do(ctx, epAuthLogin, call{body: &req, dest: &out}, opts); err != nil {
		return nil, err
	}
	return &out, nil
}
