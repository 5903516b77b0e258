package cache

import (
	"net/url"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestCache(ttl time.Duration) (*Cache[[]string], *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := New(ttl, slices.Clone[[]string])
	c.now = clock.now
	return c, clock
}

func TestCache_ExpiresAfterTTL(t *testing.T) {
	c, clock := newTestCache(time.Minute)
	c.Set(RecordKey("tags", "1"), []string{"go"})

	got, ok := c.Get(RecordKey("tags", "1"))
	require.True(t, ok)
	assert.Equal(t, []string{"go"}, got)

	clock.advance(time.Minute)
	_, ok = c.Get(RecordKey("tags", "1"))
	assert.False(t, ok)
	assert.Equal(t, 1, c.Len())

	c.Purge()
	assert.Zero(t, c.Len())
}

func TestCache_ClonesValues(t *testing.T) {
	c, _ := newTestCache(time.Minute)
	value := []string{"a", "b"}
	c.Set("k", value)
	value[0] = "changed"

	got, _ := c.Get("k")
	assert.Equal(t, []string{"a", "b"}, got)
	got[1] = "changed"

	again, _ := c.Get("k")
	assert.Equal(t, []string{"a", "b"}, again)
}

func TestCache_InvalidateFamily(t *testing.T) {
	c, _ := newTestCache(time.Minute)
	c.Set(RecordKey("tags", "1"), nil)
	c.Set(QueryKey("tags", url.Values{"tagType": {"feeds"}}), nil)
	c.Set(RecordKey("tagsets", "1"), nil)
	c.Set(RecordKey("feeds", "1"), nil)

	assert.Equal(t, 2, c.InvalidateFamily("tags"))
	assert.Equal(t, 2, c.Len())
	_, ok := c.Get(RecordKey("tagsets", "1"))
	assert.True(t, ok)

	c.Invalidate(RecordKey("feeds", "1"))
	assert.Equal(t, 1, c.Len())
}

func TestQueryKey_IsOrderIndependent(t *testing.T) {
	a := url.Values{}
	a.Set("hasRead", "false")
	a.Set("subscriptionId", "x")
	b := url.Values{}
	b.Set("subscriptionId", "x")
	b.Set("hasRead", "false")
	assert.Equal(t, QueryKey("subscriptionEntries", a), QueryKey("subscriptionEntries", b))
}

func TestCache_ConcurrentAccess(t *testing.T) {
	c := New[int](time.Minute, nil)
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range 100 {
				c.Set(RecordKey("feeds", string(rune('a'+i))), j)
				c.Get(RecordKey("feeds", "a"))
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 8, c.Len())
}
