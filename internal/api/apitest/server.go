// Package apitest runs an in-memory reader API for tests.
//
// The server keeps records as JSON objects per family, paginates with opaque
// cursors, issues signed tokens on login and records every request so tests
// can assert what reached the wire. Failures are injected with FailNext and
// Override.
package apitest

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/five82/quire/internal/api"
)

// Prefix is the API root under which every route is mounted.
const Prefix = "/api/v1"

// Recorded is one request as the server received it.
type Recorded struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
}

type failure struct {
	status int
	body   string
}

// Server is a fake reader API. The zero value is not usable; call New.
type Server struct {
	// URL is the API root, suitable for api.NewClient.
	URL string
	// PageSize caps the items returned per list page.
	PageSize int
	// TokenTTL is the lifetime of issued tokens.
	TokenTTL time.Duration

	srv *httptest.Server
	key []byte

	mu          sync.Mutex
	records     map[string][]map[string]any
	library     map[string][]api.LibraryItem
	users       map[string]string
	requireAuth bool
	scrapes     map[string]api.BookmarkScraped
	candidates  map[string][]api.FeedDetected
	imports     map[string][]byte
	failures    []failure
	overrides   map[string]http.HandlerFunc
	calls       map[string]int
	requests    []Recorded
}

// New starts a server and stops it when t finishes.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		PageSize:   50,
		TokenTTL:   time.Hour,
		key:        []byte(uuid.NewString()),
		records:    make(map[string][]map[string]any),
		library:    make(map[string][]api.LibraryItem),
		users:      make(map[string]string),
		scrapes:    make(map[string]api.BookmarkScraped),
		candidates: make(map[string][]api.FeedDetected),
		imports:    make(map[string][]byte),
		overrides:  make(map[string]http.HandlerFunc),
		calls:      make(map[string]int),
	}
	s.srv = httptest.NewServer(s.routes())
	s.URL = s.srv.URL + Prefix
	t.Cleanup(s.srv.Close)
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Route(Prefix, func(r chi.Router) {
		r.Use(s.record, s.inject)

		r.Post("/auth/register", s.register)
		r.Post("/auth/login", s.login)

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)

			r.Post("/bookmarks/scrape", s.scrape)
			r.Post("/bookmarks/import", s.upload("bookmarks"))
			r.Post("/feeds/detect", s.detect)
			r.Post("/feeds/import", s.upload("feeds"))
			r.Post("/subscriptions/import", s.upload("subscriptions"))
			r.Get("/subscriptions/export", s.export)
			r.Post("/subscriptions/{id}/entries/{entryId}/markAsRead", s.mark(true))
			r.Post("/subscriptions/{id}/entries/{entryId}/markAsUnread", s.mark(false))
			r.Get("/profiles/@me", s.me)
			r.Get("/library", s.listLibrary)

			for _, fam := range []string{"bookmarks", "feeds", "tags", "collections", "streams", "subscriptions", "profiles", "folders"} {
				r.Get("/"+fam, s.list(fam))
				r.Post("/"+fam, s.create(fam))
				r.Get("/"+fam+"/{id}", s.get(fam))
				r.Patch("/"+fam+"/{id}", s.update(fam))
				r.Delete("/"+fam+"/{id}", s.remove(fam))
			}
			r.Get("/feedEntries", s.list("feedEntries"))
			r.Get("/feedEntries/{id}", s.get("feedEntries"))
			r.Get("/subscriptionEntries", s.list("subscriptionEntries"))
		})
	})
	return r
}

// record counts and stores the request before any handler runs.
func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = r.Body.Close()
		r.Body = io.NopCloser(strings.NewReader(string(body)))

		path := strings.TrimPrefix(r.URL.Path, Prefix)
		s.mu.Lock()
		s.calls[r.Method+" "+path]++
		s.requests = append(s.requests, Recorded{
			Method: r.Method,
			Path:   path,
			Query:  r.URL.Query(),
			Header: r.Header.Clone(),
			Body:   body,
		})
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) inject(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, Prefix)
		s.mu.Lock()
		override := s.overrides[r.Method+" "+path]
		var fail *failure
		if len(s.failures) > 0 {
			fail = &s.failures[0]
			s.failures = s.failures[1:]
		}
		s.mu.Unlock()

		switch {
		case fail != nil:
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(fail.status)
			_, _ = io.WriteString(w, fail.body)
		case override != nil:
			override(w, r)
		default:
			next.ServeHTTP(w, r)
		}
	})
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		required := s.requireAuth
		s.mu.Unlock()
		if required {
			raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || s.verify(raw) != nil {
				writeError(w, http.StatusUnauthorized, "invalid or missing token", nil)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAuth makes every route except /auth reject requests without a token
// issued by login.
func (s *Server) RequireAuth() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requireAuth = true
}

// FailNext makes the next request answer status with body instead of being
// handled. Calls queue up.
func (s *Server) FailNext(status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, failure{status: status, body: body})
}

// Override replaces the handler for an exact method and path below the root,
// e.g. Override("GET", "/tags", h).
func (s *Server) Override(method, path string, h http.HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides[method+" "+path] = h
}

// Calls returns the number of requests received.
func (s *Server) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

// CallsTo returns the number of requests for method and concrete path.
func (s *Server) CallsTo(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method+" "+path]
}

// Requests returns a copy of every request received.
func (s *Server) Requests() []Recorded {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.requests)
}

// LastRequest returns the most recent request.
func (s *Server) LastRequest() (Recorded, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return Recorded{}, false
	}
	return s.requests[len(s.requests)-1], true
}

// Seed stores records for family as the server would return them. Missing
// ids and timestamps are filled in. It returns the stored ids in order.
func (s *Server) Seed(family string, records ...any) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(records))
	for _, rec := range records {
		obj := toObject(rec)
		stamp(obj)
		s.records[family] = append(s.records[family], obj)
		ids = append(ids, recordKey(family, obj))
	}
	return ids
}

// Record returns the stored JSON object for id.
func (s *Server) Record(family, id string) (map[string]any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(family, id)
	if i < 0 {
		return nil, false
	}
	return s.records[family][i], true
}

// SetLibrary replaces the children listed under folderID; "" is the root.
// Nothing stops a folder from listing one of its ancestors.
func (s *Server) SetLibrary(folderID string, items ...api.LibraryItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.library[folderID] = items
}

// SetScrape fixes the metadata returned for rawURL. Unknown URLs answer 502.
func (s *Server) SetScrape(rawURL string, scraped api.BookmarkScraped) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scrapes[rawURL] = scraped
}

// SetCandidates fixes the feeds detected on the page at rawURL.
func (s *Server) SetCandidates(rawURL string, found ...api.FeedDetected) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.candidates[rawURL] = found
}

// Imported returns the last file uploaded to family's import route.
func (s *Server) Imported(family string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.imports[family]
	return data, ok
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req api.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "malformed body", nil)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[req.Email]; exists {
		writeError(w, http.StatusConflict, "email already registered", nil)
		return
	}
	s.users[req.Email] = req.Password
	now := time.Now().UTC()
	writeJSON(w, http.StatusCreated, api.User{
		ID:          uuid.NewString(),
		Email:       req.Email,
		DisplayName: req.DisplayName,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req api.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "malformed body", nil)
		return
	}
	s.mu.Lock()
	password, ok := s.users[req.Email]
	ttl := s.TokenTTL
	s.mu.Unlock()
	if !ok || password != req.Password {
		writeError(w, http.StatusUnauthorized, "invalid credentials", nil)
		return
	}
	token, err := s.Issue(req.Email, ttl)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	writeJSON(w, http.StatusOK, api.Token{AccessToken: token, TokenType: "bearer", ExpiresIn: int(ttl.Seconds())})
}

// Issue signs a token for subject that the server accepts until ttl passes.
func (s *Server) Issue(subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
}

func (s *Server) verify(raw string) error {
	_, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{}, func(*jwt.Token) (any, error) {
		return s.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	return err
}

func (s *Server) list(family string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		s.mu.Lock()
		var matched []map[string]any
		for _, rec := range s.records[family] {
			if matches(rec, q) {
				matched = append(matched, rec)
			}
		}
		size := s.PageSize
		s.mu.Unlock()
		s.writePage(w, q.Get("cursor"), q.Has("cursor"), matched, size)
	}
}

func (s *Server) listLibrary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	s.mu.Lock()
	items := slices.Clone(s.library[q.Get("folderId")])
	size := s.PageSize
	s.mu.Unlock()
	s.writePage(w, q.Get("cursor"), q.Has("cursor"), items, size)
}

func (s *Server) writePage(w http.ResponseWriter, cursor string, hasCursor bool, items any, size int) {
	all := toSlice(items)
	offset := 0
	if hasCursor {
		n, err := decodeCursor(cursor)
		if err != nil || n > len(all) {
			writeError(w, http.StatusUnprocessableEntity, "invalid cursor", map[string]any{"cursor": "unknown cursor"})
			return
		}
		offset = n
	}
	if size < 1 {
		size = len(all) + 1
	}
	end := min(offset+size, len(all))
	page := struct {
		Data   []any   `json:"data"`
		Cursor *string `json:"cursor,omitempty"`
	}{Data: all[offset:end]}
	if end < len(all) {
		next := encodeCursor(end)
		page.Cursor = &next
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) get(family string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		i := s.indexOf(family, chi.URLParam(r, "id"))
		if i < 0 {
			writeError(w, http.StatusNotFound, family+" not found", nil)
			return
		}
		writeJSON(w, http.StatusOK, s.records[family][i])
	}
}

func (s *Server) create(family string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body == nil {
			writeError(w, http.StatusUnprocessableEntity, "malformed body", nil)
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()

		rec := make(map[string]any, len(body)+3)
		for k, v := range body {
			rec[k] = v
		}
		switch family {
		case "bookmarks":
			rec["link"] = rec["url"]
			delete(rec, "url")
		case "subscriptions":
			if s.indexOf("feeds", fmt.Sprint(rec["feedId"])) < 0 {
				writeError(w, http.StatusUnprocessableEntity, "unknown feed", map[string]any{"feedId": "does not exist"})
				return
			}
		case "profiles":
			rec["isDefault"] = len(s.records[family]) == 0
		}
		if !s.expandTags(w, rec) {
			return
		}
		stamp(rec)
		s.records[family] = append(s.records[family], rec)
		writeJSON(w, http.StatusCreated, rec)
	}
}

func (s *Server) update(family string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body == nil {
			writeError(w, http.StatusUnprocessableEntity, "malformed body", nil)
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		id := chi.URLParam(r, "id")
		i := s.indexOf(family, id)
		if i < 0 {
			writeError(w, http.StatusNotFound, family+" not found", nil)
			return
		}
		if family == "folders" && body["parentId"] == id {
			writeError(w, http.StatusConflict, "folder cannot contain itself", nil)
			return
		}
		rec := s.records[family][i]
		for k, v := range body {
			if v == nil {
				delete(rec, k)
				continue
			}
			rec[k] = v
		}
		if !s.expandTags(w, rec) {
			return
		}
		rec["updatedAt"] = now()
		writeJSON(w, http.StatusOK, rec)
	}
}

func (s *Server) remove(family string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		i := s.indexOf(family, chi.URLParam(r, "id"))
		if i < 0 {
			writeError(w, http.StatusNotFound, family+" not found", nil)
			return
		}
		s.records[family] = slices.Delete(s.records[family], i, i+1)
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) scrape(w http.ResponseWriter, r *http.Request) {
	var body struct {
		URL string `json:"url"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	s.mu.Lock()
	scraped, ok := s.scrapes[body.URL]
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusBadGateway, "could not fetch "+body.URL, nil)
		return
	}
	writeJSON(w, http.StatusOK, scraped)
}

func (s *Server) detect(w http.ResponseWriter, r *http.Request) {
	var body struct {
		URL string `json:"url"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, feed := range s.records["feeds"] {
		if feed["sourceUrl"] == body.URL {
			writeJSON(w, http.StatusOK, feed)
			return
		}
	}
	found := s.candidates[body.URL]
	if found == nil {
		found = []api.FeedDetected{}
	}
	writeJSON(w, http.StatusOK, found)
}

func (s *Server) upload(family string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		file, _, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "file is required", map[string]any{"file": "required"})
			return
		}
		defer func() { _ = file.Close() }()
		data, err := io.ReadAll(file)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error(), nil)
			return
		}
		s.mu.Lock()
		s.imports[family] = data
		s.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) export(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString(`<opml version="2.0"><head><title>Subscriptions</title></head><body>` + "\n")
	for _, sub := range s.records["subscriptions"] {
		fmt.Fprintf(&b, "<outline type=\"rss\" text=%q/>\n", fmt.Sprint(sub["title"]))
	}
	b.WriteString("</body></opml>\n")
	w.Header().Set("Content-Type", "text/x-opml")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, b.String())
}

func (s *Server) mark(read bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subID, entryID := chi.URLParam(r, "id"), chi.URLParam(r, "entryId")
		s.mu.Lock()
		defer s.mu.Unlock()
		for _, entry := range s.records["subscriptionEntries"] {
			if entry["subscriptionId"] != subID || entry["feedEntryId"] != entryID {
				continue
			}
			entry["hasRead"] = read
			if read {
				entry["readAt"] = now()
			} else {
				delete(entry, "readAt")
			}
			writeJSON(w, http.StatusOK, entry)
			return
		}
		writeError(w, http.StatusNotFound, "subscription entry not found", nil)
	}
}

func (s *Server) me(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.records["profiles"] {
		if p["isDefault"] == true {
			writeJSON(w, http.StatusOK, p)
			return
		}
	}
	writeError(w, http.StatusNotFound, "no profile", nil)
}

// expandTags replaces a list of tag ids with the tag records. It reports
// false after answering 422 for an unknown id.
func (s *Server) expandTags(w http.ResponseWriter, rec map[string]any) bool {
	raw, ok := rec["tags"].([]any)
	if !ok {
		return true
	}
	tags := make([]any, 0, len(raw))
	for _, v := range raw {
		if obj, isObj := v.(map[string]any); isObj {
			tags = append(tags, obj)
			continue
		}
		i := s.indexOf("tags", fmt.Sprint(v))
		if i < 0 {
			writeError(w, http.StatusUnprocessableEntity, "unknown tag", map[string]any{"tags": []string{fmt.Sprintf("tag %v does not exist", v)}})
			return false
		}
		tags = append(tags, s.records["tags"][i])
	}
	rec["tags"] = tags
	return true
}

func (s *Server) indexOf(family, id string) int {
	for i, rec := range s.records[family] {
		if recordKey(family, rec) == id {
			return i
		}
	}
	return -1
}

func recordKey(family string, rec map[string]any) string {
	if family == "subscriptionEntries" {
		return fmt.Sprint(rec["feedEntryId"])
	}
	return fmt.Sprint(rec["id"])
}

// matches applies the equality filters a list route understands.
func matches(rec map[string]any, q url.Values) bool {
	for _, key := range []string{"feedId", "parentId", "subscriptionId", "hasRead"} {
		if !q.Has(key) {
			continue
		}
		if rec[key] == nil || fmt.Sprint(rec[key]) != q.Get(key) {
			return false
		}
	}
	if want := q["tag[]"]; len(want) > 0 {
		tags, _ := rec["tags"].([]any)
		found := false
		for _, t := range tags {
			if obj, ok := t.(map[string]any); ok && slices.Contains(want, fmt.Sprint(obj["id"])) {
				found = true
			}
		}
		if !found {
			return false
		}
	}
	return true
}

const zeroTime = "0001-01-01T00:00:00Z"

// stamp fills the server-owned fields a seed or create body left empty.
func stamp(rec map[string]any) {
	if _, entry := rec["feedEntryId"]; entry {
		return
	}
	if id, _ := rec["id"].(string); id == "" {
		rec["id"] = uuid.NewString()
	}
	ts := now()
	for _, key := range []string{"createdAt", "updatedAt"} {
		if v, _ := rec[key].(string); v == "" || v == zeroTime {
			rec[key] = ts
		}
	}
}

func now() string { return time.Now().UTC().Format(time.RFC3339Nano) }

func toObject(v any) map[string]any {
	if obj, ok := v.(map[string]any); ok {
		return obj
	}
	raw, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("apitest: marshal seed: %v", err))
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		panic(fmt.Sprintf("apitest: seed %T is not an object: %v", v, err))
	}
	return obj
}

func toSlice(items any) []any {
	switch v := items.(type) {
	case []map[string]any:
		out := make([]any, len(v))
		for i := range v {
			out[i] = v[i]
		}
		return out
	case []api.LibraryItem:
		out := make([]any, len(v))
		for i := range v {
			out[i] = v[i]
		}
		return out
	}
	return nil
}

func encodeCursor(offset int) string {
	return base64.RawURLEncoding.EncodeToString([]byte("o:" + strconv.Itoa(offset)))
}

func decodeCursor(cursor string) (int, error) {
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return 0, err
	}
	n, ok := strings.CutPrefix(string(raw), "o:")
	if !ok {
		return 0, fmt.Errorf("malformed cursor")
	}
	return strconv.Atoi(n)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string, fields map[string]any) {
	body := map[string]any{"message": message}
	if fields != nil {
		body["errors"] = fields
	}
	writeJSON(w, status, body)
}
