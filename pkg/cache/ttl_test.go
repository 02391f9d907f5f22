package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) Now() time.Time { return f.t }

func TestTTL(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}

	t.Run("Expires", func(t *testing.T) {
		c := NewTTL[string, int](time.Minute, 10, clock.Now)
		c.Set("a", 1)

		v, ok := c.Get("a")
		assert.True(t, ok)
		assert.Equal(t, 1, v)

		clock.t = clock.t.Add(time.Minute)
		_, ok = c.Get("a")
		assert.False(t, ok)
		assert.Equal(t, 0, c.Len())
	})

	t.Run("Bounded", func(t *testing.T) {
		c := NewTTL[string, int](time.Minute, 2, clock.Now)
		c.Set("a", 1)
		clock.t = clock.t.Add(time.Second)
		c.Set("b", 2)
		clock.t = clock.t.Add(time.Second)
		c.Set("c", 3)

		assert.Equal(t, 2, c.Len())
		_, ok := c.Get("a")
		assert.False(t, ok, "entry closest to expiry is evicted")
		_, ok = c.Get("c")
		assert.True(t, ok)
	})

	t.Run("Overwrite Does Not Evict", func(t *testing.T) {
		c := NewTTL[string, int](time.Minute, 1, clock.Now)
		c.Set("a", 1)
		c.Set("a", 2)

		v, ok := c.Get("a")
		assert.True(t, ok)
		assert.Equal(t, 2, v)
	})

	t.Run("Delete", func(t *testing.T) {
		c := NewTTL[string, int](time.Minute, 2, clock.Now)
		c.Set("a", 1)
		c.Delete("a")

		_, ok := c.Get("a")
		assert.False(t, ok)
	})
}
