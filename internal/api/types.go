package api

import (
	"encoding/json"
	"net/url"
	"strconv"
	"strings"
	"time"

	"k8s.io/apimachinery/pkg/util/validation/field"
)

// Record is an identified value returned by the API.
type Record interface {
	Validatable
	RecordID() string
}

// Delta is the caller-supplied subset of fields for an update.
type Delta interface {
	Validatable
	Empty() bool
}

// Query encodes list filters. The cursor is added separately.
type Query interface {
	Validatable
	Values() url.Values
}

// NoQuery is the filter set of families that take none.
type NoQuery struct{}

func (NoQuery) Validate(*field.Path) field.ErrorList { return nil }
func (NoQuery) Values() url.Values                   { return url.Values{} }

type noBody struct{}

func (noBody) Validate(*field.Path) field.ErrorList { return nil }

type noDelta struct{}

func (noDelta) Validate(*field.Path) field.ErrorList { return nil }
func (noDelta) Empty() bool                          { return true }

func validateRecordMeta(id string, created, updated time.Time, path *field.Path) field.ErrorList {
	errs := ValidateID(id, path.Child("id"))
	if created.IsZero() {
		errs = append(errs, field.Required(path.Child("createdAt"), ""))
	}
	if updated.IsZero() {
		errs = append(errs, field.Required(path.Child("updatedAt"), ""))
	}
	return errs
}

// Tag labels bookmarks and subscriptions.
type Tag struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	BookmarkCount *int      `json:"bookmarkCount,omitempty"`
	FeedCount     *int      `json:"feedCount,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func (t Tag) RecordID() string { return t.ID }

func (t Tag) Validate(path *field.Path) field.ErrorList {
	errs := validateRecordMeta(t.ID, t.CreatedAt, t.UpdatedAt, path)
	return append(errs, validateTitle(t.Title, path.Child("title"))...)
}

type TagCreate struct {
	Title string `json:"title"`
}

func (b *TagCreate) Normalize() { b.Title = strings.TrimSpace(b.Title) }

func (b TagCreate) Validate(path *field.Path) field.ErrorList {
	return validateTitle(b.Title, path.Child("title"))
}

type TagUpdate struct {
	Title Field[string] `json:"title,omitzero"`
}

func (d *TagUpdate) Normalize() { trimField(&d.Title) }
func (d TagUpdate) Empty() bool { return d.Title.IsZero() }

func (d TagUpdate) Validate(path *field.Path) field.ErrorList {
	return validateTitleField(d.Title, path.Child("title"))
}

// TagType narrows a tag listing to tags in use by one kind of record.
type TagType string

const (
	TagTypeBookmarks TagType = "bookmarks"
	TagTypeFeeds     TagType = "feeds"
)

type TagListQuery struct {
	TagType TagType
}

func (q TagListQuery) Validate(path *field.Path) field.ErrorList {
	switch q.TagType {
	case "", TagTypeBookmarks, TagTypeFeeds:
		return nil
	}
	return field.ErrorList{field.NotSupported(path.Child("tagType"), q.TagType, []TagType{TagTypeBookmarks, TagTypeFeeds})}
}

func (q TagListQuery) Values() url.Values {
	v := url.Values{}
	if q.TagType != "" {
		v.Set("tagType", string(q.TagType))
	}
	return v
}

func diffTag(cur, want Tag) TagUpdate {
	return TagUpdate{Title: diffString(cur.Title, want.Title)}
}

// Bookmark is a saved link. Tags are embedded when the server expands them.
type Bookmark struct {
	ID           string     `json:"id"`
	Link         string     `json:"link"`
	Title        string     `json:"title"`
	ThumbnailURL *string    `json:"thumbnailUrl,omitempty"`
	PublishedAt  *time.Time `json:"publishedAt,omitempty"`
	Author       *string    `json:"author,omitempty"`
	ArchivedPath *string    `json:"archivedPath,omitempty"`
	Tags         []Tag      `json:"tags,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

func (b Bookmark) RecordID() string { return b.ID }

func (b Bookmark) Validate(path *field.Path) field.ErrorList {
	errs := validateRecordMeta(b.ID, b.CreatedAt, b.UpdatedAt, path)
	errs = append(errs, validateURL(b.Link, path.Child("link"))...)
	errs = append(errs, validateTitle(b.Title, path.Child("title"))...)
	errs = append(errs, validateOptionalURL(b.ThumbnailURL, path.Child("thumbnailUrl"))...)
	for i, t := range b.Tags {
		errs = append(errs, t.Validate(path.Child("tags").Index(i))...)
	}
	return errs
}

// TagIDs returns the ids of the embedded tags.
func (b Bookmark) TagIDs() []string { return tagIDs(b.Tags) }

type BookmarkCreate struct {
	URL          string     `json:"url"`
	Title        string     `json:"title"`
	ThumbnailURL *string    `json:"thumbnailUrl,omitempty"`
	PublishedAt  *time.Time `json:"publishedAt,omitempty"`
	Author       *string    `json:"author,omitempty"`
	Tags         []string   `json:"tags,omitempty"`
}

func (b *BookmarkCreate) Normalize() {
	b.URL = strings.TrimSpace(b.URL)
	b.Title = strings.TrimSpace(b.Title)
	trimPtr(b.ThumbnailURL)
	trimPtr(b.Author)
	b.Tags = uniqueIDs(b.Tags)
}

func (b BookmarkCreate) Validate(path *field.Path) field.ErrorList {
	errs := validateURL(b.URL, path.Child("url"))
	errs = append(errs, validateTitle(b.Title, path.Child("title"))...)
	errs = append(errs, validateOptionalURL(b.ThumbnailURL, path.Child("thumbnailUrl"))...)
	return append(errs, validateIDs(b.Tags, path.Child("tags"))...)
}

type BookmarkUpdate struct {
	Title        Field[string]    `json:"title,omitzero"`
	ThumbnailURL Field[string]    `json:"thumbnailUrl,omitzero"`
	PublishedAt  Field[time.Time] `json:"publishedAt,omitzero"`
	Author       Field[string]    `json:"author,omitzero"`
	Tags         Field[[]string]  `json:"tags,omitzero"`
}

func (d *BookmarkUpdate) Normalize() {
	trimField(&d.Title)
	trimField(&d.ThumbnailURL)
	trimField(&d.Author)
	if ids, ok := d.Tags.Get(); ok {
		d.Tags = Set(uniqueIDs(ids))
	}
}

func (d BookmarkUpdate) Empty() bool {
	return d.Title.IsZero() && d.ThumbnailURL.IsZero() && d.PublishedAt.IsZero() &&
		d.Author.IsZero() && d.Tags.IsZero()
}

func (d BookmarkUpdate) Validate(path *field.Path) field.ErrorList {
	errs := validateTitleField(d.Title, path.Child("title"))
	errs = append(errs, validateURLField(d.ThumbnailURL, path.Child("thumbnailUrl"))...)
	return append(errs, validateIDsField(d.Tags, path.Child("tags"))...)
}

type BookmarkListQuery struct {
	FilterByTags       bool
	Tags               []string
	FilterByCollection string
}

func (q BookmarkListQuery) Validate(path *field.Path) field.ErrorList {
	errs := validateIDs(q.Tags, path.Child("tag[]"))
	if q.FilterByCollection != "" {
		errs = append(errs, ValidateID(q.FilterByCollection, path.Child("filterByCollection"))...)
	}
	return errs
}

func (q BookmarkListQuery) Values() url.Values {
	v := url.Values{}
	if q.FilterByTags {
		v.Set("filterByTags", "true")
	}
	for _, id := range q.Tags {
		v.Add("tag[]", id)
	}
	if q.FilterByCollection != "" {
		v.Set("filterByCollection", q.FilterByCollection)
	}
	return v
}

func diffBookmark(cur, want Bookmark) BookmarkUpdate {
	return BookmarkUpdate{
		Title:        diffString(cur.Title, want.Title),
		ThumbnailURL: diffOptional(cur.ThumbnailURL, want.ThumbnailURL),
		PublishedAt:  diffTime(cur.PublishedAt, want.PublishedAt),
		Author:       diffOptional(cur.Author, want.Author),
		Tags:         diffTagSet(cur.Tags, want.Tags),
	}
}

// BookmarkScraped is the metadata the server extracted from a URL.
type BookmarkScraped struct {
	Link         string     `json:"link"`
	Title        string     `json:"title"`
	ThumbnailURL *string    `json:"thumbnailUrl,omitempty"`
	PublishedAt  *time.Time `json:"publishedAt,omitempty"`
	Author       *string    `json:"author,omitempty"`
}

func (s BookmarkScraped) Validate(path *field.Path) field.ErrorList {
	errs := validateURL(s.Link, path.Child("link"))
	return append(errs, validateOptionalURL(s.ThumbnailURL, path.Child("thumbnailUrl"))...)
}

type urlBody struct {
	URL string `json:"url"`
}

func (b *urlBody) Normalize() { b.URL = strings.TrimSpace(b.URL) }

func (b urlBody) Validate(path *field.Path) field.ErrorList {
	return validateURL(b.URL, path.Child("url"))
}

// Feed is a syndication source known to the server.
type Feed struct {
	ID          string     `json:"id"`
	SourceURL   string     `json:"sourceUrl"`
	Link        string     `json:"link"`
	Title       string     `json:"title"`
	Description *string    `json:"description,omitempty"`
	RefreshedAt *time.Time `json:"refreshedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func (f Feed) RecordID() string { return f.ID }

func (f Feed) Validate(path *field.Path) field.ErrorList {
	errs := validateRecordMeta(f.ID, f.CreatedAt, f.UpdatedAt, path)
	errs = append(errs, validateURL(f.SourceURL, path.Child("sourceUrl"))...)
	errs = append(errs, validateURL(f.Link, path.Child("link"))...)
	return append(errs, validateTitle(f.Title, path.Child("title"))...)
}

type FeedCreate struct {
	SourceURL   string  `json:"sourceUrl"`
	Link        string  `json:"link"`
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
}

func (b *FeedCreate) Normalize() {
	b.SourceURL = strings.TrimSpace(b.SourceURL)
	b.Link = strings.TrimSpace(b.Link)
	b.Title = strings.TrimSpace(b.Title)
	trimPtr(b.Description)
}

func (b FeedCreate) Validate(path *field.Path) field.ErrorList {
	errs := validateURL(b.SourceURL, path.Child("sourceUrl"))
	errs = append(errs, validateURL(b.Link, path.Child("link"))...)
	return append(errs, validateTitle(b.Title, path.Child("title"))...)
}

type FeedUpdate struct {
	Title       Field[string] `json:"title,omitzero"`
	Link        Field[string] `json:"link,omitzero"`
	Description Field[string] `json:"description,omitzero"`
}

func (d *FeedUpdate) Normalize() {
	trimField(&d.Title)
	trimField(&d.Link)
	trimField(&d.Description)
}

func (d FeedUpdate) Empty() bool {
	return d.Title.IsZero() && d.Link.IsZero() && d.Description.IsZero()
}

func (d FeedUpdate) Validate(path *field.Path) field.ErrorList {
	errs := validateTitleField(d.Title, path.Child("title"))
	if d.Link.IsNull() {
		errs = append(errs, field.Required(path.Child("link"), "link cannot be cleared"))
	}
	return append(errs, validateURLField(d.Link, path.Child("link"))...)
}

func diffFeed(cur, want Feed) FeedUpdate {
	return FeedUpdate{
		Title:       diffString(cur.Title, want.Title),
		Link:        diffString(cur.Link, want.Link),
		Description: diffOptional(cur.Description, want.Description),
	}
}

// FeedDetected is one feed candidate found on a web page.
type FeedDetected struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// DetectResult is either a list of candidates or the resolved feed when the
// URL pointed directly at one.
type DetectResult struct {
	Candidates []FeedDetected
	Feed       *Feed
}

func (r *DetectResult) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		r.Feed = nil
		return json.Unmarshal(data, &r.Candidates)
	}
	var feed Feed
	if err := json.Unmarshal(data, &feed); err != nil {
		return err
	}
	r.Candidates = nil
	r.Feed = &feed
	return nil
}

func (r DetectResult) Validate(path *field.Path) field.ErrorList {
	if r.Feed != nil {
		return r.Feed.Validate(path)
	}
	var errs field.ErrorList
	for i, c := range r.Candidates {
		errs = append(errs, validateURL(c.URL, path.Index(i).Child("url"))...)
	}
	return errs
}

// FeedEntry is one item published by a feed.
type FeedEntry struct {
	ID           string    `json:"id"`
	Link         string    `json:"link"`
	Title        string    `json:"title"`
	PublishedAt  time.Time `json:"publishedAt"`
	Description  *string   `json:"description,omitempty"`
	Author       *string   `json:"author,omitempty"`
	ThumbnailURL *string   `json:"thumbnailUrl,omitempty"`
	FeedID       string    `json:"feedId"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (e FeedEntry) RecordID() string { return e.ID }

func (e FeedEntry) Validate(path *field.Path) field.ErrorList {
	errs := validateRecordMeta(e.ID, e.CreatedAt, e.UpdatedAt, path)
	errs = append(errs, validateURL(e.Link, path.Child("link"))...)
	errs = append(errs, ValidateID(e.FeedID, path.Child("feedId"))...)
	return append(errs, validateOptionalURL(e.ThumbnailURL, path.Child("thumbnailUrl"))...)
}

type FeedEntryListQuery struct {
	FeedID string
}

func (q FeedEntryListQuery) Validate(path *field.Path) field.ErrorList {
	if q.FeedID == "" {
		return nil
	}
	return ValidateID(q.FeedID, path.Child("feedId"))
}

func (q FeedEntryListQuery) Values() url.Values {
	v := url.Values{}
	if q.FeedID != "" {
		v.Set("feedId", q.FeedID)
	}
	return v
}

// Collection is a saved bookmark filter that lives in the library.
type Collection struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	Filter    json.RawMessage `json:"filter,omitempty"`
	FolderID  *string         `json:"folderId,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

func (c Collection) RecordID() string { return c.ID }

func (c Collection) Validate(path *field.Path) field.ErrorList {
	errs := validateRecordMeta(c.ID, c.CreatedAt, c.UpdatedAt, path)
	errs = append(errs, validateTitle(c.Title, path.Child("title"))...)
	errs = append(errs, validateFilter(c.Filter, path.Child("filter"))...)
	return append(errs, validateOptionalID(c.FolderID, path.Child("folderId"))...)
}

type CollectionCreate struct {
	Title    string          `json:"title"`
	Filter   json.RawMessage `json:"filter,omitempty"`
	FolderID *string         `json:"folderId,omitempty"`
}

func (b *CollectionCreate) Normalize() { b.Title = strings.TrimSpace(b.Title) }

func (b CollectionCreate) Validate(path *field.Path) field.ErrorList {
	errs := validateTitle(b.Title, path.Child("title"))
	errs = append(errs, validateFilter(b.Filter, path.Child("filter"))...)
	return append(errs, validateOptionalID(b.FolderID, path.Child("folderId"))...)
}

type CollectionUpdate struct {
	Title    Field[string]          `json:"title,omitzero"`
	Filter   Field[json.RawMessage] `json:"filter,omitzero"`
	FolderID Field[string]          `json:"folderId,omitzero"`
}

func (d *CollectionUpdate) Normalize() { trimField(&d.Title) }

func (d CollectionUpdate) Empty() bool {
	return d.Title.IsZero() && d.Filter.IsZero() && d.FolderID.IsZero()
}

func (d CollectionUpdate) Validate(path *field.Path) field.ErrorList {
	errs := validateTitleField(d.Title, path.Child("title"))
	if raw, ok := d.Filter.Get(); ok {
		errs = append(errs, validateFilter(raw, path.Child("filter"))...)
	}
	return append(errs, validateIDField(d.FolderID, path.Child("folderId"))...)
}

func diffCollection(cur, want Collection) CollectionUpdate {
	return CollectionUpdate{
		Title:    diffString(cur.Title, want.Title),
		Filter:   diffRaw(cur.Filter, want.Filter),
		FolderID: diffOptional(cur.FolderID, want.FolderID),
	}
}

// Stream is a saved filter over subscription entries.
type Stream struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	Filter    json.RawMessage `json:"filter,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

func (s Stream) RecordID() string { return s.ID }

func (s Stream) Validate(path *field.Path) field.ErrorList {
	errs := validateRecordMeta(s.ID, s.CreatedAt, s.UpdatedAt, path)
	errs = append(errs, validateTitle(s.Title, path.Child("title"))...)
	return append(errs, validateFilter(s.Filter, path.Child("filter"))...)
}

type StreamCreate struct {
	Title  string          `json:"title"`
	Filter json.RawMessage `json:"filter,omitempty"`
}

func (b *StreamCreate) Normalize() { b.Title = strings.TrimSpace(b.Title) }

func (b StreamCreate) Validate(path *field.Path) field.ErrorList {
	errs := validateTitle(b.Title, path.Child("title"))
	return append(errs, validateFilter(b.Filter, path.Child("filter"))...)
}

type StreamUpdate struct {
	Title  Field[string]          `json:"title,omitzero"`
	Filter Field[json.RawMessage] `json:"filter,omitzero"`
}

func (d *StreamUpdate) Normalize() { trimField(&d.Title) }
func (d StreamUpdate) Empty() bool { return d.Title.IsZero() && d.Filter.IsZero() }

func (d StreamUpdate) Validate(path *field.Path) field.ErrorList {
	errs := validateTitleField(d.Title, path.Child("title"))
	if raw, ok := d.Filter.Get(); ok {
		errs = append(errs, validateFilter(raw, path.Child("filter"))...)
	}
	return errs
}

func diffStream(cur, want Stream) StreamUpdate {
	return StreamUpdate{
		Title:  diffString(cur.Title, want.Title),
		Filter: diffRaw(cur.Filter, want.Filter),
	}
}

// Subscription is a profile's follow of a feed.
type Subscription struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description,omitempty"`
	FeedID      string    `json:"feedId"`
	Feed        *Feed     `json:"feed,omitempty"`
	Tags        []Tag     `json:"tags,omitempty"`
	UnreadCount *int      `json:"unreadCount,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (s Subscription) RecordID() string { return s.ID }

func (s Subscription) Validate(path *field.Path) field.ErrorList {
	errs := validateRecordMeta(s.ID, s.CreatedAt, s.UpdatedAt, path)
	errs = append(errs, validateTitle(s.Title, path.Child("title"))...)
	errs = append(errs, ValidateID(s.FeedID, path.Child("feedId"))...)
	if s.Feed != nil {
		errs = append(errs, s.Feed.Validate(path.Child("feed"))...)
	}
	if s.UnreadCount != nil && *s.UnreadCount < 0 {
		errs = append(errs, field.Invalid(path.Child("unreadCount"), *s.UnreadCount, "must not be negative"))
	}
	for i, t := range s.Tags {
		errs = append(errs, t.Validate(path.Child("tags").Index(i))...)
	}
	return errs
}

type SubscriptionCreate struct {
	Title       string   `json:"title"`
	Description *string  `json:"description,omitempty"`
	FeedID      string   `json:"feedId"`
	Tags        []string `json:"tags,omitempty"`
}

func (b *SubscriptionCreate) Normalize() {
	b.Title = strings.TrimSpace(b.Title)
	trimPtr(b.Description)
	b.Tags = uniqueIDs(b.Tags)
}

func (b SubscriptionCreate) Validate(path *field.Path) field.ErrorList {
	errs := validateTitle(b.Title, path.Child("title"))
	errs = append(errs, ValidateID(b.FeedID, path.Child("feedId"))...)
	return append(errs, validateIDs(b.Tags, path.Child("tags"))...)
}

type SubscriptionUpdate struct {
	Title       Field[string]   `json:"title,omitzero"`
	Description Field[string]   `json:"description,omitzero"`
	Tags        Field[[]string] `json:"tags,omitzero"`
}

func (d *SubscriptionUpdate) Normalize() {
	trimField(&d.Title)
	trimField(&d.Description)
	if ids, ok := d.Tags.Get(); ok {
		d.Tags = Set(uniqueIDs(ids))
	}
}

func (d SubscriptionUpdate) Empty() bool {
	return d.Title.IsZero() && d.Description.IsZero() && d.Tags.IsZero()
}

func (d SubscriptionUpdate) Validate(path *field.Path) field.ErrorList {
	errs := validateTitleField(d.Title, path.Child("title"))
	return append(errs, validateIDsField(d.Tags, path.Child("tags"))...)
}

type SubscriptionListQuery struct {
	FilterByTags bool
	Tags         []string
}

func (q SubscriptionListQuery) Validate(path *field.Path) field.ErrorList {
	return validateIDs(q.Tags, path.Child("tag[]"))
}

func (q SubscriptionListQuery) Values() url.Values {
	v := url.Values{}
	if q.FilterByTags {
		v.Set("filterByTags", "true")
	}
	for _, id := range q.Tags {
		v.Add("tag[]", id)
	}
	return v
}

func diffSubscription(cur, want Subscription) SubscriptionUpdate {
	return SubscriptionUpdate{
		Title:       diffString(cur.Title, want.Title),
		Description: diffOptional(cur.Description, want.Description),
		Tags:        diffTagSet(cur.Tags, want.Tags),
	}
}

// SubscriptionEntry is a feed entry as seen through one subscription.
type SubscriptionEntry struct {
	SubscriptionID string     `json:"subscriptionId"`
	FeedEntryID    string     `json:"feedEntryId"`
	HasRead        bool       `json:"hasRead"`
	ReadAt         *time.Time `json:"readAt,omitempty"`
	FeedEntry      *FeedEntry `json:"feedEntry,omitempty"`
}

func (e SubscriptionEntry) RecordID() string { return e.FeedEntryID }

func (e SubscriptionEntry) Validate(path *field.Path) field.ErrorList {
	errs := ValidateID(e.SubscriptionID, path.Child("subscriptionId"))
	errs = append(errs, ValidateID(e.FeedEntryID, path.Child("feedEntryId"))...)
	if e.FeedEntry != nil {
		errs = append(errs, e.FeedEntry.Validate(path.Child("feedEntry"))...)
		if e.FeedEntry.ID != e.FeedEntryID {
			errs = append(errs, field.Invalid(path.Child("feedEntry", "id"), e.FeedEntry.ID, "must match feedEntryId"))
		}
	}
	if !e.HasRead && e.ReadAt != nil {
		errs = append(errs, field.Invalid(path.Child("readAt"), e.ReadAt, "set on an unread entry"))
	}
	return errs
}

type SubscriptionEntryListQuery struct {
	HasRead        *bool
	SubscriptionID string
	StreamID       string
	CollectionID   string
	Tags           []string
}

func (q SubscriptionEntryListQuery) Validate(path *field.Path) field.ErrorList {
	var errs field.ErrorList
	for _, f := range []struct{ name, id string }{
		{"subscriptionId", q.SubscriptionID},
		{"streamId", q.StreamID},
		{"collectionId", q.CollectionID},
	} {
		if f.id != "" {
			errs = append(errs, ValidateID(f.id, path.Child(f.name))...)
		}
	}
	return append(errs, validateIDs(q.Tags, path.Child("tag[]"))...)
}

func (q SubscriptionEntryListQuery) Values() url.Values {
	v := url.Values{}
	if q.HasRead != nil {
		v.Set("hasRead", strconv.FormatBool(*q.HasRead))
	}
	if q.SubscriptionID != "" {
		v.Set("subscriptionId", q.SubscriptionID)
	}
	if q.StreamID != "" {
		v.Set("streamId", q.StreamID)
	}
	if q.CollectionID != "" {
		v.Set("collectionId", q.CollectionID)
	}
	for _, id := range q.Tags {
		v.Add("tag[]", id)
	}
	return v
}

// Profile is one reading identity of a user.
type Profile struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	ImageURL  *string   `json:"imageUrl,omitempty"`
	IsDefault bool      `json:"isDefault"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (p Profile) RecordID() string { return p.ID }

func (p Profile) Validate(path *field.Path) field.ErrorList {
	errs := validateRecordMeta(p.ID, p.CreatedAt, p.UpdatedAt, path)
	errs = append(errs, validateTitle(p.Title, path.Child("title"))...)
	return append(errs, validateOptionalURL(p.ImageURL, path.Child("imageUrl"))...)
}

type ProfileCreate struct {
	Title    string  `json:"title"`
	ImageURL *string `json:"imageUrl,omitempty"`
}

func (b *ProfileCreate) Normalize() {
	b.Title = strings.TrimSpace(b.Title)
	trimPtr(b.ImageURL)
}

func (b ProfileCreate) Validate(path *field.Path) field.ErrorList {
	errs := validateTitle(b.Title, path.Child("title"))
	return append(errs, validateOptionalURL(b.ImageURL, path.Child("imageUrl"))...)
}

type ProfileUpdate struct {
	Title    Field[string] `json:"title,omitzero"`
	ImageURL Field[string] `json:"imageUrl,omitzero"`
}

func (d *ProfileUpdate) Normalize() {
	trimField(&d.Title)
	trimField(&d.ImageURL)
}

func (d ProfileUpdate) Empty() bool { return d.Title.IsZero() && d.ImageURL.IsZero() }

func (d ProfileUpdate) Validate(path *field.Path) field.ErrorList {
	errs := validateTitleField(d.Title, path.Child("title"))
	return append(errs, validateURLField(d.ImageURL, path.Child("imageUrl"))...)
}

func diffProfile(cur, want Profile) ProfileUpdate {
	return ProfileUpdate{
		Title:    diffString(cur.Title, want.Title),
		ImageURL: diffOptional(cur.ImageURL, want.ImageURL),
	}
}

// Folder groups library items. A nil ParentID places it at the root.
type Folder struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	ParentID  *string   `json:"parentId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (f Folder) RecordID() string { return f.ID }

func (f Folder) Validate(path *field.Path) field.ErrorList {
	errs := validateRecordMeta(f.ID, f.CreatedAt, f.UpdatedAt, path)
	errs = append(errs, validateTitle(f.Title, path.Child("title"))...)
	errs = append(errs, validateOptionalID(f.ParentID, path.Child("parentId"))...)
	if f.ParentID != nil && *f.ParentID == f.ID {
		errs = append(errs, field.Invalid(path.Child("parentId"), *f.ParentID, "folder cannot be its own parent"))
	}
	return errs
}

type FolderCreate struct {
	Title    string  `json:"title"`
	ParentID *string `json:"parentId,omitempty"`
}

func (b *FolderCreate) Normalize() { b.Title = strings.TrimSpace(b.Title) }

func (b FolderCreate) Validate(path *field.Path) field.ErrorList {
	errs := validateTitle(b.Title, path.Child("title"))
	return append(errs, validateOptionalID(b.ParentID, path.Child("parentId"))...)
}

// FolderUpdate moves a folder to the root when ParentID is Null.
type FolderUpdate struct {
	Title    Field[string] `json:"title,omitzero"`
	ParentID Field[string] `json:"parentId,omitzero"`
}

func (d *FolderUpdate) Normalize() { trimField(&d.Title) }
func (d FolderUpdate) Empty() bool { return d.Title.IsZero() && d.ParentID.IsZero() }

func (d FolderUpdate) Validate(path *field.Path) field.ErrorList {
	errs := validateTitleField(d.Title, path.Child("title"))
	return append(errs, validateIDField(d.ParentID, path.Child("parentId"))...)
}

type FolderListQuery struct {
	ParentID string
}

func (q FolderListQuery) Validate(path *field.Path) field.ErrorList {
	if q.ParentID == "" {
		return nil
	}
	return ValidateID(q.ParentID, path.Child("parentId"))
}

func (q FolderListQuery) Values() url.Values {
	v := url.Values{}
	if q.ParentID != "" {
		v.Set("parentId", q.ParentID)
	}
	return v
}

func diffFolder(cur, want Folder) FolderUpdate {
	return FolderUpdate{
		Title:    diffString(cur.Title, want.Title),
		ParentID: diffOptional(cur.ParentID, want.ParentID),
	}
}

// User is an account returned by registration.
type User struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName *string   `json:"displayName,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (u User) Validate(path *field.Path) field.ErrorList {
	errs := validateRecordMeta(u.ID, u.CreatedAt, u.UpdatedAt, path)
	return append(errs, validateEmail(u.Email, path.Child("email"))...)
}

type RegisterRequest struct {
	Email       string  `json:"email"`
	Password    string  `json:"password"`
	DisplayName *string `json:"displayName,omitempty"`
}

func (r *RegisterRequest) Normalize() {
	r.Email = strings.TrimSpace(r.Email)
	trimPtr(r.DisplayName)
}

func (r RegisterRequest) Validate(path *field.Path) field.ErrorList {
	errs := validateEmail(r.Email, path.Child("email"))
	if r.Password == "" {
		errs = append(errs, field.Required(path.Child("password"), ""))
	}
	return errs
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *LoginRequest) Normalize() { r.Email = strings.TrimSpace(r.Email) }

func (r LoginRequest) Validate(path *field.Path) field.ErrorList {
	errs := validateEmail(r.Email, path.Child("email"))
	if r.Password == "" {
		errs = append(errs, field.Required(path.Child("password"), ""))
	}
	return errs
}

// Token is the bearer credential issued by login.
type Token struct {
	AccessToken string `json:"accessToken"`
	TokenType   string `json:"tokenType"`
	ExpiresIn   int    `json:"expiresIn"`
}

func (t Token) Validate(path *field.Path) field.ErrorList {
	var errs field.ErrorList
	if t.AccessToken == "" {
		errs = append(errs, field.Required(path.Child("accessToken"), ""))
	}
	if t.TokenType != "" && !strings.EqualFold(t.TokenType, "bearer") {
		errs = append(errs, field.NotSupported(path.Child("tokenType"), t.TokenType, []string{"bearer"}))
	}
	return errs
}
