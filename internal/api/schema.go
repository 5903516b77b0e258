package api

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// BodyKind describes what an endpoint sends.
type BodyKind int

const (
	BodyNone BodyKind = iota
	BodyJSON
	BodyMultipart
)

// ResponseKind describes what an endpoint returns on success.
type ResponseKind int

const (
	ResponseJSON ResponseKind = iota
	ResponseEmpty
	ResponseBinary
)

// Endpoint is the static description of one HTTP operation. Query and body
// shapes are the Go types bound to the endpoint by its resource family.
type Endpoint struct {
	Name     string
	Method   string
	Path     string
	Body     BodyKind
	Response ResponseKind
}

// PathParams returns the {name} placeholders of the path template in order.
func (e Endpoint) PathParams() []string {
	var names []string
	rest := e.Path
	for {
		start := strings.IndexByte(rest, '{')
		if start < 0 {
			return names
		}
		end := strings.IndexByte(rest[start:], '}')
		if end < 0 {
			return names
		}
		names = append(names, rest[start+1:start+end])
		rest = rest[start+end+1:]
	}
}

// Expand substitutes path parameters into the template.
func (e Endpoint) Expand(params map[string]string) (string, error) {
	declared := e.PathParams()
	known := make(map[string]struct{}, len(declared))
	path := e.Path
	for _, name := range declared {
		known[name] = struct{}{}
		value, ok := params[name]
		if !ok || value == "" {
			return "", fmt.Errorf("%s: missing path parameter %q", e.Name, name)
		}
		path = strings.Replace(path, "{"+name+"}", url.PathEscape(value), 1)
	}
	for name := range params {
		if _, ok := known[name]; !ok {
			return "", fmt.Errorf("%s: undeclared path parameter %q", e.Name, name)
		}
	}
	return path, nil
}

type endpointKey struct {
	method string
	path   string
}

// Registry indexes endpoint descriptors by method and path template.
type Registry struct {
	byKey map[endpointKey]*Endpoint
}

// Register adds ep and returns it. Duplicate keys are a programming error.
func (r *Registry) Register(ep Endpoint) *Endpoint {
	if r.byKey == nil {
		r.byKey = make(map[endpointKey]*Endpoint)
	}
	key := endpointKey{method: ep.Method, path: ep.Path}
	if _, dup := r.byKey[key]; dup {
		panic(fmt.Sprintf("api: endpoint %s %s registered twice", ep.Method, ep.Path))
	}
	stored := ep
	r.byKey[key] = &stored
	return &stored
}

// Lookup returns the descriptor for method and path template.
func (r *Registry) Lookup(method, path string) (Endpoint, bool) {
	ep, ok := r.byKey[endpointKey{method: method, path: path}]
	if !ok {
		return Endpoint{}, false
	}
	return *ep, true
}

// Endpoints lists every descriptor sorted by path then method.
func (r *Registry) Endpoints() []Endpoint {
	out := make([]Endpoint, 0, len(r.byKey))
	for _, ep := range r.byKey {
		out = append(out, *ep)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Path != out[j].Path {
			return out[i].Path < out[j].Path
		}
		return out[i].Method < out[j].Method
	})
	return out
}

// Endpoints is the registry of every operation the client knows.
var Endpoints Registry

// crud registers the uniform list/get/create/update/delete shape for a family.
type crud struct {
	list, get, create, update, delete *Endpoint
}

func registerCRUD(name, base string, methods string) crud {
	var c crud
	item := base + "/{id}"
	if strings.Contains(methods, "L") {
		c.list = Endpoints.Register(Endpoint{Name: name + ".list", Method: "GET", Path: base})
	}
	if strings.Contains(methods, "G") {
		c.get = Endpoints.Register(Endpoint{Name: name + ".get", Method: "GET", Path: item})
	}
	if strings.Contains(methods, "C") {
		c.create = Endpoints.Register(Endpoint{Name: name + ".create", Method: "POST", Path: base, Body: BodyJSON})
	}
	if strings.Contains(methods, "U") {
		c.update = Endpoints.Register(Endpoint{Name: name + ".update", Method: "PATCH", Path: item, Body: BodyJSON})
	}
	if strings.Contains(methods, "D") {
		c.delete = Endpoints.Register(Endpoint{Name: name + ".delete", Method: "DELETE", Path: item, Response: ResponseEmpty})
	}
	return c
}

var (
	bookmarkEndpoints          = registerCRUD("bookmarks", "/bookmarks", "LGCUD")
	feedEndpoints              = registerCRUD("feeds", "/feeds", "LGCUD")
	feedEntryEndpoints         = registerCRUD("feedEntries", "/feedEntries", "LG")
	tagEndpoints               = registerCRUD("tags", "/tags", "LGCUD")
	collectionEndpoints        = registerCRUD("collections", "/collections", "LGCUD")
	streamEndpoints            = registerCRUD("streams", "/streams", "LGCUD")
	subscriptionEndpoints      = registerCRUD("subscriptions", "/subscriptions", "LGCUD")
	subscriptionEntryEndpoints = registerCRUD("subscriptionEntries", "/subscriptionEntries", "L")
	profileEndpoints           = registerCRUD("profiles", "/profiles", "LGCUD")
	folderEndpoints            = registerCRUD("folders", "/folders", "LGCUD")
	libraryEndpoints           = registerCRUD("library", "/library", "L")
	epBookmarkScrape           = Endpoints.Register(Endpoint{Name: "bookmarks.scrape", Method: "POST", Path: "/bookmarks/scrape", Body: BodyJSON})
	epBookmarkImport           = Endpoints.Register(Endpoint{Name: "bookmarks.import", Method: "POST", Path: "/bookmarks/import", Body: BodyMultipart, Response: ResponseEmpty})
	epFeedDetect               = Endpoints.Register(Endpoint{Name: "feeds.detect", Method: "POST", Path: "/feeds/detect", Body: BodyJSON})
	epFeedImport               = Endpoints.Register(Endpoint{Name: "feeds.import", Method: "POST", Path: "/feeds/import", Body: BodyMultipart, Response: ResponseEmpty})
	epSubscriptionMarkRead     = Endpoints.Register(Endpoint{Name: "subscriptions.markAsRead", Method: "POST", Path: "/subscriptions/{id}/entries/{entryId}/markAsRead"})
	epSubscriptionMarkUnread   = Endpoints.Register(Endpoint{Name: "subscriptions.markAsUnread", Method: "POST", Path: "/subscriptions/{id}/entries/{entryId}/markAsUnread"})
	epSubscriptionImport       = Endpoints.Register(Endpoint{Name: "subscriptions.import", Method: "POST", Path: "/subscriptions/import", Body: BodyMultipart, Response: ResponseEmpty})
	epSubscriptionExport       = Endpoints.Register(Endpoint{Name: "subscriptions.export", Method: "GET", Path: "/subscriptions/export", Response: ResponseBinary})
	epProfileMe                = Endpoints.Register(Endpoint{Name: "profiles.me", Method: "GET", Path: "/profiles/@me"})
	epAuthRegister             = Endpoints.Register(Endpoint{Name: "auth.register", Method: "POST", Path: "/auth/register", Body: BodyJSON})
	epAuthLogin                = Endpoints.Register(Endpoint{Name: "auth.login", Method: "POST", Path: "/auth/login", Body: BodyJSON})
)

// idParams are path parameters that must carry a UUID-shaped identifier.
var idParams = map[string]struct{}{"id": {}, "entryId": {}}
