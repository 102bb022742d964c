package session

import (
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item string

func (i item) ID() string { return string(i) }

func TestStoreAddGetDelete(t *testing.T) {
	s := NewStore[item](4)
	require.True(t, s.Add("a"))
	assert.False(t, s.Add("a"))
	assert.Equal(t, 1, s.Len())

	got, ok := s.Get("a")
	require.True(t, ok)
	assert.Equal(t, item("a"), got)

	assert.True(t, s.Delete("a"))
	assert.False(t, s.Delete("a"))
	assert.Zero(t, s.Len())
}

func TestStoreRangeAllowsReentry(t *testing.T) {
	s := NewStore[item](2)
	for i := 0; i < 10; i++ {
		s.Add(item(strconv.Itoa(i)))
	}
	n := 0
	s.Range(func(e item) bool {
		s.Delete(e.ID())
		n++
		return true
	})
	assert.Equal(t, 10, n)
	assert.Zero(t, s.Len())
}

func TestStoreDrainRefusesLateAdds(t *testing.T) {
	s := NewStore[item](0)
	for i := 0; i < 100; i++ {
		s.Add(item(strconv.Itoa(i)))
	}
	drained := s.Drain()
	assert.Len(t, drained, 100)
	assert.Zero(t, s.Len())
	assert.True(t, s.Closed())
	assert.False(t, s.Add("late"))
	assert.Empty(t, s.Drain())
}

func TestStoreConcurrentAddDrain(t *testing.T) {
	s := NewStore[item](8)
	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted := map[string]bool{}
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				id := strconv.Itoa(g*1000 + i)
				if s.Add(item(id)) {
					mu.Lock()
					accepted[id] = true
					mu.Unlock()
				}
			}
		}(g)
	}
	drained := s.Drain()
	wg.Wait()
	drained = append(drained, s.Drain()...)

	// every accepted entry is returned by exactly one drain
	assert.Len(t, drained, len(accepted))
	for _, e := range drained {
		assert.True(t, accepted[e.ID()])
	}
	assert.Zero(t, s.Len())
}
