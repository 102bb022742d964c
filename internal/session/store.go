// File: internal/session/store.go
// Package session
// Author: momentics <momentics@gmail.com>
//
// Sharded, thread-safe session registry for high concurrency.

package session

import (
	"hash/fnv"
	"sync"
	"sync/atomic"
)

// Entry is anything registered by identity.
type Entry interface {
	ID() string
}

// Store implements sharded storage for sessions. Once drained it refuses
// new entries for good.
type Store[T Entry] struct {
	shards []*shard[T]
	mask   uint32
	size   atomic.Int64
	closed atomic.Bool
}

type shard[T Entry] struct {
	mu      sync.RWMutex
	entries map[string]T
}

// NewStore constructs a store with shardCount shards rounded up to a power
// of two.
func NewStore[T Entry](shardCount int) *Store[T] {
	if shardCount <= 0 {
		shardCount = 16
	}
	m := nextPowerOfTwo(uint32(shardCount))
	shards := make([]*shard[T], m)
	for i := range shards {
		shards[i] = &shard[T]{entries: make(map[string]T)}
	}
	return &Store[T]{shards: shards, mask: m - 1}
}

// shard picks the correct shard for a given id.
func (s *Store[T]) shard(id string) *shard[T] {
	return s.shards[fnv32(id)&s.mask]
}

// Add registers e. It returns false if the id is taken or the store has
// been drained.
func (s *Store[T]) Add(e T) bool {
	sh := s.shard(e.ID())
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if s.closed.Load() {
		return false
	}
	if _, ok := sh.entries[e.ID()]; ok {
		return false
	}
	sh.entries[e.ID()] = e
	s.size.Add(1)
	return true
}

// Get fetches an entry if present.
func (s *Store[T]) Get(id string) (T, bool) {
	sh := s.shard(id)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	e, ok := sh.entries[id]
	return e, ok
}

// Delete removes an entry and reports whether it was present.
func (s *Store[T]) Delete(id string) bool {
	sh := s.shard(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if _, ok := sh.entries[id]; !ok {
		return false
	}
	delete(sh.entries, id)
	s.size.Add(-1)
	return true
}

// Len returns the number of registered entries.
func (s *Store[T]) Len() int {
	return int(s.size.Load())
}

// Range applies fn to a snapshot of all entries. fn runs without any shard
// lock held, so it may call back into the store.
func (s *Store[T]) Range(fn func(T) bool) {
	for _, e := range s.snapshot(false) {
		if !fn(e) {
			return
		}
	}
}

// Drain closes the store to new entries, removes every entry and returns
// them.
func (s *Store[T]) Drain() []T {
	s.closed.Store(true)
	return s.snapshot(true)
}

// Closed reports whether Drain has been called.
func (s *Store[T]) Closed() bool {
	return s.closed.Load()
}

func (s *Store[T]) snapshot(clear bool) []T {
	out := make([]T, 0, s.Len())
	for _, sh := range s.shards {
		if clear {
			sh.mu.Lock()
		} else {
			sh.mu.RLock()
		}
		for id, e := range sh.entries {
			out = append(out, e)
			if clear {
				delete(sh.entries, id)
				s.size.Add(-1)
			}
		}
		if clear {
			sh.mu.Unlock()
		} else {
			sh.mu.RUnlock()
		}
	}
	return out
}

// fnv32 hashes a string to uint32.
func fnv32(key string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(key))
	return h.Sum32()
}

// nextPowerOfTwo returns the next power-of-two >= v.
func nextPowerOfTwo(v uint32) uint32 {
	v--
	v |= v >> 1
	v |= v >> 2
	v |= v >> 4
	v |= v >> 8
	v |= v >> 16
	v++
	return v
}
