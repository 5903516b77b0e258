package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBaseURL_DefaultsAndNormalizes(t *testing.T) {
	u, err := parseBaseURL("")
	require.NoError(t, err)
	assert.Equal(t, defaultBaseURL, u.String())

	u, err = parseBaseURL("reader.local:8000/api/v1/?x=1#frag")
	require.NoError(t, err)
	assert.Equal(t, "http://reader.local:8000/api/v1", u.String())

	_, err = parseBaseURL("http:///nohost")
	assert.Error(t, err)
}

func TestClient_CancelledBeforeSendIsSilent(t *testing.T) {
	c, calls, _ := countingClient(t, http.StatusOK, `{}`)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Tags.Get(ctx, testID)
	assert.True(t, IsCancelled(err))
	assert.Zero(t, calls.Load())
}

func TestClient_CancelledInFlightIsSilent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	c, err := NewClient("http://api.test", WithTransport(TransportFunc(func(ctx context.Context, _ *Request) (*Response, error) {
		cancel()
		return nil, ctx.Err()
	})))
	require.NoError(t, err)

	_, err = c.Profiles.Me(ctx)
	assert.True(t, IsCancelled(err))
	assert.NotErrorIs(t, err, ErrTransport)
}

func TestClient_ResponseAfterCancelIsDropped(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	c, err := NewClient("http://api.test", WithTransport(TransportFunc(func(context.Context, *Request) (*Response, error) {
		cancel()
		return &Response{Status: http.StatusInternalServerError, Body: []byte(`{"message":"boom"}`)}, nil
	})))
	require.NoError(t, err)

	_, err = c.Tags.Get(ctx, testID)
	assert.True(t, IsCancelled(err))
}

func TestClient_TransportFailure(t *testing.T) {
	c, err := NewClient("http://api.test", WithTransport(TransportFunc(func(context.Context, *Request) (*Response, error) {
		return nil, errors.New("dial tcp: connection refused")
	})))
	require.NoError(t, err)

	_, err = c.Tags.Get(context.Background(), testID)
	assert.ErrorIs(t, err, ErrTransport)
	assert.False(t, IsCancelled(err))
}

func TestClient_OversizedBodyFailsInsteadOfTruncating(t *testing.T) {
	opml := strings.Repeat("x", 64)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write([]byte(opml))
	}))
	t.Cleanup(srv.Close)

	tooSmall, err := NewClient(srv.URL, WithTransport(&HTTPTransport{Client: srv.Client(), MaxBody: 63}))
	require.NoError(t, err)
	got, err := tooSmall.Subscriptions.Export(context.Background())
	assert.ErrorIs(t, err, ErrTransport)
	assert.ErrorContains(t, err, "response exceeds 63 bytes")
	assert.Nil(t, got)

	exact, err := NewClient(srv.URL, WithTransport(&HTTPTransport{Client: srv.Client(), MaxBody: 64}))
	require.NoError(t, err)
	got, err = exact.Subscriptions.Export(context.Background())
	require.NoError(t, err)
	assert.Equal(t, opml, string(got))
}

func TestClient_DeadlineAfterResponseKeepsResult(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	c, err := NewClient("http://api.test", WithTransport(TransportFunc(func(ctx context.Context, _ *Request) (*Response, error) {
		<-ctx.Done()
		return &Response{Status: http.StatusNoContent}, nil
	})))
	require.NoError(t, err)

	assert.NoError(t, c.Tags.Delete(ctx, testID))
}

func TestClient_HeadersAndCredentials(t *testing.T) {
	var got *Request
	c, err := NewClient("http://api.test/api/v1",
		WithCredentials(StaticToken("stored")),
		WithUserAgent("quire-test/1"),
		WithTransport(TransportFunc(func(_ context.Context, req *Request) (*Response, error) {
			got = req
			return &Response{Status: http.StatusNoContent}, nil
		})),
	)
	require.NoError(t, err)

	require.NoError(t, c.Tags.Delete(context.Background(), testID))
	assert.Equal(t, "Bearer stored", got.Header.Get("Authorization"))
	assert.Equal(t, "quire-test/1", got.Header.Get("User-Agent"))
	assert.Equal(t, "http://api.test/api/v1/tags/"+testID, got.URL)

	require.NoError(t, c.Tags.Delete(context.Background(), testID, WithToken("override"), WithHeader("X-Trace", "1")))
	assert.Equal(t, "Bearer override", got.Header.Get("Authorization"))
	assert.Equal(t, "1", got.Header.Get("X-Trace"))
}

func TestClient_MarkEntryExpandsBothIDs(t *testing.T) {
	c, _, seen := countingClient(t, http.StatusOK, `{"subscriptionId":"`+testID+`","feedEntryId":"`+otherTestID+`","hasRead":true}`)
	entry, err := c.Subscriptions.MarkEntryAsRead(context.Background(), testID, otherTestID)
	require.NoError(t, err)
	assert.True(t, entry.HasRead)
	assert.Equal(t, "http://api.test/api/v1/subscriptions/"+testID+"/entries/"+otherTestID+"/markAsRead", (*seen)[0].URL)
	assert.Nil(t, (*seen)[0].Body)
}

func TestRegistry_EveryEndpointUnique(t *testing.T) {
	eps := Endpoints.Endpoints()
	require.NotEmpty(t, eps)
	seen := map[string]bool{}
	for _, ep := range eps {
		assert.False(t, seen[ep.Name], "duplicate name %s", ep.Name)
		seen[ep.Name] = true
		got, ok := Endpoints.Lookup(ep.Method, ep.Path)
		assert.True(t, ok)
		assert.Equal(t, ep, got)
	}
	_, ok := Endpoints.Lookup(http.MethodPut, "/tags/{id}")
	assert.False(t, ok)
}

func TestEndpoint_ExpandEscapesAndChecks(t *testing.T) {
	ep := Endpoint{Name: "x", Path: "/a/{id}/b/{entryId}"}
	assert.Equal(t, []string{"id", "entryId"}, ep.PathParams())

	path, err := ep.Expand(map[string]string{"id": "1 2", "entryId": "3"})
	require.NoError(t, err)
	assert.Equal(t, "/a/1%202/b/3", path)

	_, err = ep.Expand(map[string]string{"id": "1"})
	assert.Error(t, err)
	_, err = ep.Expand(map[string]string{"id": "1", "entryId": "2", "extra": "3"})
	assert.Error(t, err)
}
