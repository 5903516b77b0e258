package ui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/quire/internal/api"
	"github.com/five82/quire/internal/library"
)

// entry is one row of the entry list. Rows listed from a collection carry
// the subscription they belong to and can be marked read; rows listed
// straight from a feed cannot.
type entry struct {
	SubscriptionID string
	ID             string
	Title          string
	Link           string
	PublishedAt    time.Time
	HasRead        bool
}

func (e entry) key() string { return e.SubscriptionID + "/" + e.ID }

func (e entry) markable() bool { return e.SubscriptionID != "" }

func fromSubscriptionEntry(se api.SubscriptionEntry) entry {
	e := entry{SubscriptionID: se.SubscriptionID, ID: se.FeedEntryID, Title: se.FeedEntryID, HasRead: se.HasRead}
	if fe := se.FeedEntry; fe != nil {
		e.Title, e.Link, e.PublishedAt = fe.Title, fe.Link, fe.PublishedAt
	}
	return e
}

func fromFeedEntry(fe api.FeedEntry) entry {
	return entry{ID: fe.ID, Title: fe.Title, Link: fe.Link, PublishedAt: fe.PublishedAt}
}

// entryPager returns the pager backing the entry list of node, or nil when
// the node has no entries of its own.
func entryPager(client *api.Client, node library.Node) *api.Pager[entry] {
	switch node.Item.Type {
	case api.LibraryFeed:
		q := api.FeedEntryListQuery{FeedID: node.ID()}
		return api.NewPager(func(ctx context.Context, cursor *string) (api.Page[entry], error) {
			page, err := client.FeedEntries.List(ctx, q, cursor)
			if err != nil {
				return api.Page[entry]{}, err
			}
			return mapPage(page, fromFeedEntry), nil
		}, entry.key)
	case api.LibraryCollection:
		q := api.SubscriptionEntryListQuery{CollectionID: node.ID()}
		return api.NewPager(func(ctx context.Context, cursor *string) (api.Page[entry], error) {
			page, err := client.SubscriptionEntries.List(ctx, q, cursor)
			if err != nil {
				return api.Page[entry]{}, err
			}
			return mapPage(page, fromSubscriptionEntry), nil
		}, entry.key)
	default:
		return nil
	}
}

func mapPage[T any](page api.Page[T], fn func(T) entry) api.Page[entry] {
	out := api.Page[entry]{Data: make([]entry, len(page.Data)), Cursor: page.Cursor}
	for i, item := range page.Data {
		out.Data[i] = fn(item)
	}
	return out
}

type entriesMsg struct {
	gen uint64
	err error
}

type markedMsg struct {
	key string
	err error
}

// loadMoreCmd fetches the next page of the current traversal. The
// generation lets Update drop results of a list that was replaced meanwhile.
func loadMoreCmd(ctx context.Context, trav *api.Traversal[entry]) tea.Cmd {
	gen := trav.Generation()
	return func() tea.Msg {
		_, err := trav.LoadMoreAt(ctx, gen)
		return entriesMsg{gen: gen, err: err}
	}
}

func markReadCmd(ctx context.Context, client *api.Client, e entry) tea.Cmd {
	return func() tea.Msg {
		_, err := client.Subscriptions.MarkEntryAsRead(ctx, e.SubscriptionID, e.ID)
		return markedMsg{key: e.key(), err: err}
	}
}
