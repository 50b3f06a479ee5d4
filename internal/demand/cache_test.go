package demand

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponseCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewResponseCache(2, time.Minute)
	a, b, d := &Response{HorizonHours: 1}, &Response{HorizonHours: 2}, &Response{HorizonHours: 3}

	c.Put("a", a)
	c.Put("b", b)
	_, ok := c.Get("a")
	require.True(t, ok)

	c.Put("d", d)
	assert.Equal(t, 2, c.Len())

	_, ok = c.Get("b")
	assert.False(t, ok, "b was least recently used")
	got, ok := c.Get("a")
	assert.True(t, ok)
	assert.Same(t, a, got)
	got, ok = c.Get("d")
	assert.True(t, ok)
	assert.Same(t, d, got)
}

func TestResponseCacheExpires(t *testing.T) {
	now := testNow
	c := NewResponseCache(4, 30*time.Second)
	c.now = func() time.Time { return now }

	c.Put("k", &Response{})
	now = now.Add(30 * time.Second)
	_, ok := c.Get("k")
	assert.True(t, ok)

	now = now.Add(time.Second)
	_, ok = c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestResponseCacheDisabled(t *testing.T) {
	c := NewResponseCache(0, time.Minute)
	c.Put("k", &Response{})
	_, ok := c.Get("k")
	assert.False(t, ok)

	var nilCache *ResponseCache
	nilCache.Put("k", &Response{})
	_, ok = nilCache.Get("k")
	assert.False(t, ok)
}

func TestRequestKey(t *testing.T) {
	fix := mustMonitor(t, MonitorSpec{Type: "fix", Fix: "MERIT"})
	seg := mustMonitor(t, MonitorSpec{Type: "segment", From: "CAM", To: "GDM"})
	sameFix := mustMonitor(t, MonitorSpec{Type: "FIX", Fix: "merit"})

	base := requestKey([]*Monitor{fix, seg}, 15, 4)
	assert.Equal(t, base, requestKey([]*Monitor{sameFix, seg}, 15, 4))
	assert.NotEqual(t, base, requestKey([]*Monitor{seg, fix}, 15, 4))
	assert.NotEqual(t, base, requestKey([]*Monitor{fix, seg}, 30, 4))
	assert.NotEqual(t, base, requestKey([]*Monitor{fix, seg}, 15, 6))
}
