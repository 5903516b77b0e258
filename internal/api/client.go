package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"golang.org/x/time/rate"
	"k8s.io/apimachinery/pkg/util/validation/field"
)

const (
	defaultBaseURL   = "http://127.0.0.1:8000/api/v1"
	defaultUserAgent = "quire/0.1"
	requestTimeout   = 30 * time.Second
)

// Client talks to the reader API. It holds no per-call state and is safe for
// concurrent use.
type Client struct {
	baseURL   *url.URL
	transport Transport
	creds     Credentials
	log       logr.Logger
	userAgent string

	Auth                *Auth
	Bookmarks           *Bookmarks
	Feeds               *Feeds
	FeedEntries         *FeedEntries
	Tags                *Tags
	Collections         *Collections
	Streams             *Streams
	Subscriptions       *Subscriptions
	SubscriptionEntries *SubscriptionEntries
	Profiles            *Profiles
	Folders             *Folders
	Library             *Library
}

// Option configures a Client.
type Option func(*Client)

// WithTransport replaces the network layer.
func WithTransport(t Transport) Option {
	return func(c *Client) { c.transport = t }
}

// WithHTTPClient keeps the default transport but sends through hc.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if ht, ok := c.transport.(*HTTPTransport); ok {
			ht.Client = hc
		}
	}
}

// WithRateLimit throttles the default transport to rps requests per second.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if ht, ok := c.transport.(*HTTPTransport); ok && rps > 0 {
			if burst < 1 {
				burst = 1
			}
			ht.Limiter = rate.NewLimiter(rate.Limit(rps), burst)
		}
	}
}

// WithCredentials sets the bearer token source for every call.
func WithCredentials(creds Credentials) Option {
	return func(c *Client) { c.creds = creds }
}

// WithLogger sets the logger. Calls log at V(1), failures at V(0).
func WithLogger(log logr.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua = strings.TrimSpace(ua); ua != "" {
			c.userAgent = ua
		}
	}
}

// NewClient builds a Client rooted at baseURL, e.g. http://host:8000/api/v1.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	base, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL:   base,
		transport: &HTTPTransport{Client: &http.Client{Timeout: requestTimeout}},
		log:       logr.Discard(),
		userAgent: defaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.Auth = &Auth{client: c}
	c.Bookmarks = &Bookmarks{Resource: newResource(c, bookmarkFamily)}
	c.Feeds = &Feeds{Resource: newResource(c, feedFamily)}
	c.FeedEntries = &FeedEntries{res: newResource(c, feedEntryFamily)}
	c.Tags = &Tags{Resource: newResource(c, tagFamily)}
	c.Collections = &Collections{Resource: newResource(c, collectionFamily)}
	c.Streams = &Streams{Resource: newResource(c, streamFamily)}
	c.Subscriptions = &Subscriptions{Resource: newResource(c, subscriptionFamily)}
	c.SubscriptionEntries = &SubscriptionEntries{res: newResource(c, subscriptionEntryFamily)}
	c.Profiles = &Profiles{Resource: newResource(c, profileFamily)}
	c.Folders = &Folders{Resource: newResource(c, folderFamily)}
	c.Library = &Library{res: newResource(c, libraryFamily)}
	return c, nil
}

// BaseURL returns the API root.
func (c *Client) BaseURL() string { return c.baseURL.String() }

// CallOption adjusts a single call.
type CallOption func(*callOptions)

type callOptions struct {
	creds  Credentials
	header http.Header
}

// WithToken sends token for this call instead of the client credentials.
func WithToken(token string) CallOption {
	return func(o *callOptions) { o.creds = StaticToken(token) }
}

// WithHeader adds a request header for this call.
func WithHeader(key, value string) CallOption {
	return func(o *callOptions) {
		if o.header == nil {
			o.header = http.Header{}
		}
		o.header.Add(key, value)
	}
}

// Upload is the file part of a bulk import.
type Upload struct {
	Filename string
	Content  io.Reader
}

func (u *Upload) Validate(path *field.Path) field.ErrorList {
	var errs field.ErrorList
	if strings.TrimSpace(u.Filename) == "" {
		errs = append(errs, field.Required(path.Child("filename"), ""))
	}
	if u.Content == nil {
		errs = append(errs, field.Required(path.Child("content"), ""))
	}
	return errs
}

// call is one operation against a described endpoint.
type call struct {
	params map[string]string
	query  Validatable
	values url.Values
	body   any
	dest   any
}

// do runs validate -> transport -> map -> validate for ep.
func (c *Client) do(ctx context.Context, ep *Endpoint, in call, opts []CallOption) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	if ep == nil {
		return fmt.Errorf("operation not supported by this resource")
	}
	if ctx.Err() != nil {
		return transportError(ctx, ep.Name, ctx.Err())
	}
	if err := ValidateRequest(ep, in.params, in.query, in.body); err != nil {
		return err
	}

	var o callOptions
	for _, opt := range opts {
		opt(&o)
	}
	req, err := c.buildRequest(ctx, ep, in, o)
	if err != nil {
		return err
	}

	start := time.Now()
	resp, err := c.transport.RoundTrip(ctx, req)
	if err != nil {
		apiErr := transportError(ctx, ep.Name, err)
		if apiErr.Kind != KindCancelled {
			c.log.Info("api call failed", "endpoint", ep.Name, "error", err.Error())
		}
		return apiErr
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		// The caller gave up while the response was in flight.
		return cancelledError(ep.Name)
	}
	c.log.V(1).Info("api call", "endpoint", ep.Name, "status", resp.Status, "duration", time.Since(start))

	if resp.Status < 200 || resp.Status > 299 {
		apiErr := MapError(resp.Status, resp.Body)
		apiErr.Op = ep.Name
		c.log.Info("api call failed", "endpoint", ep.Name, "status", resp.Status, "kind", apiErr.Kind.String())
		return apiErr
	}

	switch ep.Response {
	case ResponseEmpty:
		return nil
	case ResponseBinary:
		if dest, ok := in.dest.(*[]byte); ok {
			*dest = resp.Body
		}
		return nil
	}
	if in.dest == nil {
		return nil
	}
	return ValidateResponse(ep, resp.Body, in.dest)
}

func (c *Client) buildRequest(ctx context.Context, ep *Endpoint, in call, o callOptions) (*Request, error) {
	path, err := ep.Expand(in.params)
	if err != nil {
		return nil, validationError(ep.Name, field.ErrorList{field.Invalid(field.NewPath("path"), ep.Path, err.Error())})
	}
	u := c.baseURL.JoinPath(path)
	if len(in.values) > 0 {
		u.RawQuery = in.values.Encode()
	}

	header := http.Header{}
	header.Set("Accept", "application/json")
	header.Set("User-Agent", c.userAgent)

	var body []byte
	switch ep.Body {
	case BodyJSON:
		body, err = json.Marshal(in.body)
		if err != nil {
			return nil, validationError(ep.Name, field.ErrorList{field.Invalid(field.NewPath("body"), nil, err.Error())})
		}
		header.Set("Content-Type", "application/json")
	case BodyMultipart:
		var contentType string
		body, contentType, err = encodeUpload(in.body.(*Upload))
		if err != nil {
			return nil, validationError(ep.Name, field.ErrorList{field.Invalid(field.NewPath("body", "content"), nil, err.Error())})
		}
		header.Set("Content-Type", contentType)
	}

	creds := c.creds
	if o.creds != nil {
		creds = o.creds
	}
	if creds != nil {
		token, err := creds.Token(ctx)
		if err != nil {
			return nil, transportError(ctx, ep.Name, fmt.Errorf("load credentials: %w", err))
		}
		if token = strings.TrimSpace(token); token != "" {
			header.Set("Authorization", "Bearer "+token)
		}
	}
	for key, values := range o.header {
		for _, v := range values {
			header.Add(key, v)
		}
	}
	return &Request{Method: ep.Method, URL: u.String(), Header: header, Body: body}, nil
}

func encodeUpload(up *Upload) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", up.Filename)
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, up.Content); err != nil {
		return nil, "", fmt.Errorf("read upload: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

func parseBaseURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		trimmed = defaultBaseURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse api url %q: %w", raw, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("parse api url %q: missing host", raw)
	}
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
