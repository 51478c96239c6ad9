package cache

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryGetSetExpire(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewMemory()
	c.now = func() time.Time { return now }

	c.Set("courses", 3, time.Minute)
	v, ok := c.Get("courses")
	require.True(t, ok)
	assert.Equal(t, 3, v)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get("courses")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestMemoryInvalidatePrefix(t *testing.T) {
	c := NewMemory()
	c.Set("course:intro", 1, 0)
	c.Set("course:intro_2", 2, 0)
	c.Set("doc:intro/a.md", 3, 0)
	c.Set("courses", 4, 0)

	c.Invalidate("course:intro")
	_, ok := c.Get("course:intro")
	assert.False(t, ok)
	_, ok = c.Get("course:intro_2")
	assert.False(t, ok, "prefix match also drops longer keys")
	_, ok = c.Get("doc:intro/a.md")
	assert.True(t, ok)

	c.Invalidate("")
	assert.Equal(t, 0, c.Len())
}

func TestGetOrComputeCachesValue(t *testing.T) {
	c := NewMemory()
	calls := 0
	compute := func() (interface{}, error) {
		calls++
		return "value", nil
	}

	for i := 0; i < 3; i++ {
		v, err := c.GetOrCompute("k", time.Minute, compute)
		require.NoError(t, err)
		assert.Equal(t, "value", v)
	}
	assert.Equal(t, 1, calls)
}

func TestGetOrComputeDoesNotCacheErrors(t *testing.T) {
	c := NewMemory()
	boom := errors.New("boom")

	_, err := c.GetOrCompute("k", time.Minute, func() (interface{}, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)

	v, err := c.GetOrCompute("k", time.Minute, func() (interface{}, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestGetOrComputeSharesConcurrentMisses(t *testing.T) {
	c := NewMemory()
	var calls int32
	release := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = c.GetOrCompute("slow", time.Minute, func() (interface{}, error) {
				atomic.AddInt32(&calls, 1)
				<-release
				return 1, nil
			})
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.LessOrEqual(t, atomic.LoadInt32(&calls), int32(10))
	v, ok := c.Get("slow")
	require.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestGetOrComputeDropsResultAfterInvalidate(t *testing.T) {
	c := NewMemory()

	v, err := c.GetOrCompute("courses", time.Minute, func() (interface{}, error) {
		c.Invalidate("courses")
		return "stale", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "stale", v)

	_, ok := c.Get("courses")
	assert.False(t, ok)
}

func TestGetOrComputeRestartsAfterInvalidate(t *testing.T) {
	c := NewMemory()
	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan interface{})

	go func() {
		v, _ := c.GetOrCompute("courses", time.Minute, func() (interface{}, error) {
			close(started)
			<-release
			return "stale", nil
		})
		done <- v
	}()
	<-started

	c.Invalidate("courses")
	v, err := c.GetOrCompute("courses", time.Minute, func() (interface{}, error) {
		return "fresh", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "fresh", v)

	close(release)
	assert.Equal(t, "stale", <-done)

	v, ok := c.Get("courses")
	require.True(t, ok)
	assert.Equal(t, "fresh", v)
}

func TestFetchTyped(t *testing.T) {
	c := NewMemory()
	got, err := Fetch(c, "n", time.Minute, func() ([]string, error) { return []string{"a"}, nil })
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, got)

	got, err = Fetch(Nop{}, "n", time.Minute, func() ([]string, error) { return []string{"b"}, nil })
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, got)
}
