// Package api provides a typed client for the reader API: bookmarks, feeds,
// subscriptions, tags, collections, streams, profiles, folders and the
// library tree.
//
// # Overview
//
// Every HTTP operation is described once in a Registry of Endpoints. A
// resource family binds its endpoints to Go shapes (record, create body,
// update delta, list query) and exposes them through the generic Resource
// type. All calls run the same pipeline:
//
//	validate request -> transport -> map status -> decode and validate response
//
// Nothing reaches the transport unless the request passed validation, and no
// value reaches the caller unless the response did.
//
// # Architecture
//
//   - schema.go: endpoint descriptors and the registry
//   - validate.go: field rules, request and response validation
//   - transport.go: the one-round-trip Transport seam and the net/http version
//   - errors.go: the closed error taxonomy and the status mapper
//   - client.go: Client construction, request building, the call pipeline
//   - resource.go: the generic list/get/create/update/delete client
//   - families.go: per-family extras (scrape, detect, import, export, marks)
//   - pagination.go: Page, Pager and the restartable Traversal
//   - types.go, library.go: records, bodies, deltas and queries
//   - field.go, diff.go: tri-state update fields and delta construction
//
// # Client Usage
//
//	client, err := api.NewClient("http://127.0.0.1:8000/api/v1",
//		api.WithCredentials(store),
//		api.WithRateLimit(10, 5),
//		api.WithLogger(log),
//	)
//	if err != nil {
//		return err
//	}
//
//	bm, err := client.Bookmarks.Create(ctx, api.BookmarkCreate{
//		URL:   "https://example.com/post",
//		Title: "A post",
//	})
//
// # Updates
//
// Update deltas are built from Field values. An absent field is left
// unchanged by the server, Null clears it and Set replaces it. A delta with
// no fields present is not sent at all: Update returns (nil, nil). Save
// computes the delta between a current and a desired record; tag lists are
// compared as sets, so reordering alone never produces a call.
//
// # Pagination
//
// Lists are cursor paginated. A nil cursor asks for the first page and a page
// without a cursor is the last one. Pager serializes page requests and
// reports a repeated cursor or a repeated id as a validation error.
//
//	pager := client.SubscriptionEntries.Pages(api.SubscriptionEntryListQuery{HasRead: &unread})
//	for entry, err := range pager.All(ctx) {
//		...
//	}
//
// Traversal wraps a Pager for list screens. Restart cancels the request in
// flight and discards whatever it returns later.
//
// # Error Handling
//
// Every failure is an *Error with a Kind:
//
//   - KindValidation: rejected locally, or a 2xx body that broke the contract
//   - KindUnauthorized, KindForbidden, KindNotFound, KindConflict: 401, 403, 404, 409
//   - KindUnprocessable: 422, with Fields when the server reports them
//   - KindBadGateway: 502, e.g. a scrape target that could not be fetched
//   - KindServer: any other non-2xx status
//   - KindTransport: no status was produced, including deadline expiry
//   - KindCancelled: the caller cancelled; not a failure to report
//
// Use errors.Is with the Err* sentinels or KindOf. IsCancelled identifies
// outcomes the caller should drop silently.
//
// # Thread Safety
//
// Client and its families hold no per-call state and are safe for
// concurrent use. A Pager is safe for concurrent Next calls but they are
// served one at a time.
package api
