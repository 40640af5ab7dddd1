package cache

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestCache(enabled bool) (*Cache, *clock) {
	clk := &clock{t: time.Date(2024, 7, 10, 9, 0, 0, 0, time.UTC)}
	c := New(enabled, time.Hour)
	c.now = clk.now
	return c, clk
}

func TestKeyIsCanonical(t *testing.T) {
	a := Key("copywriting", json.RawMessage(`{"tone":"warm","product_name":"X"}`))
	b := Key("copywriting", json.RawMessage(` {"product_name": "X",  "tone": "warm"} `))
	assert.Equal(t, a, b)
	assert.Len(t, a, 32)

	assert.NotEqual(t, a, Key("image_prompt", json.RawMessage(`{"tone":"warm","product_name":"X"}`)))
	assert.NotEqual(t, a, Key("copywriting", json.RawMessage(`{"tone":"calm","product_name":"X"}`)))
	assert.Equal(t, Key("quality_score", nil), Key("quality_score", json.RawMessage(`null`)))
	assert.Equal(t, Key("quality_score", nil), Key("quality_score", json.RawMessage(`{}`)))
}

func TestGetSetExpire(t *testing.T) {
	c, clk := newTestCache(true)
	c.Set("k", "v")

	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", got)

	clk.t = clk.t.Add(59 * time.Minute)
	_, ok = c.Get("k")
	assert.True(t, ok)

	clk.t = clk.t.Add(2 * time.Minute)
	_, ok = c.Get("k")
	assert.False(t, ok)

	s := c.Stats()
	assert.Equal(t, 2, s.Hits)
	assert.Equal(t, 1, s.Misses)
	assert.Equal(t, 0, s.Total)
}

func TestCleanupAndStats(t *testing.T) {
	c, clk := newTestCache(true)
	c.Set("old", 1)
	clk.t = clk.t.Add(90 * time.Minute)
	c.Set("new", 2)

	s := c.Stats()
	assert.Equal(t, Stats{Enabled: true, Total: 2, Expired: 1, Active: 1, TTL: time.Hour}, s)

	assert.Equal(t, 1, c.Cleanup())
	assert.Equal(t, 0, c.Cleanup())
	c.Clear()
	assert.Equal(t, 0, c.Stats().Total)
}

func TestDisabledCacheStoresNothing(t *testing.T) {
	c, _ := newTestCache(false)
	c.Set("k", "v")
	_, ok := c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, Stats{TTL: time.Hour}, c.Stats())
}

func TestConcurrentUse(t *testing.T) {
	c := New(true, time.Minute)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := Key("daily_check", json.RawMessage(`{"target_roas":3}`))
			c.Set(key, i)
			c.Get(key)
			c.Stats()
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 1, c.Stats().Total)
}
