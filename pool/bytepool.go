// File: pool/bytepool.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// BytePool recycles byte slices in power-of-two size classes. Requests above
// the largest class are allocated directly and dropped on Put.

package pool

import (
	"math/bits"
	"sync"
	"sync/atomic"
)

const (
	minClassShift = 6 // 64 B
	maxClassShift = 20
)

// BytePool is a size-classed pool of byte slices.
type BytePool struct {
	classes []sync.Pool
	minSize int
	maxSize int

	gets     atomic.Int64
	puts     atomic.Int64
	misses   atomic.Int64
	oversize atomic.Int64
}

// Stats aggregates pool accounting.
type Stats struct {
	Gets     int64
	Puts     int64
	Misses   int64 // Get calls that allocated
	Oversize int64 // requests above the largest class
}

// NewBytePool creates a pool whose classes range from 64 bytes up to
// maxSize rounded to a power of two. A non-positive maxSize selects 1 MiB.
func NewBytePool(maxSize int) *BytePool {
	shift := maxClassShift
	if maxSize > 0 {
		shift = classShift(maxSize)
		if shift < minClassShift {
			shift = minClassShift
		}
	}
	return &BytePool{
		classes: make([]sync.Pool, shift-minClassShift+1),
		minSize: 1 << minClassShift,
		maxSize: 1 << shift,
	}
}

// Get returns a slice of length n. Its capacity is the size class of n.
func (p *BytePool) Get(n int) []byte {
	p.gets.Add(1)
	if n > p.maxSize {
		p.oversize.Add(1)
		return make([]byte, n)
	}
	idx := p.classIndex(n)
	if v := p.classes[idx].Get(); v != nil {
		buf := *(v.(*[]byte))
		return buf[:n]
	}
	p.misses.Add(1)
	return make([]byte, n, p.minSize<<idx)
}

// Put returns a slice obtained from Get. Slices whose capacity is not an
// exact size class are discarded.
func (p *BytePool) Put(buf []byte) {
	c := cap(buf)
	if c < p.minSize || c > p.maxSize || c&(c-1) != 0 {
		return
	}
	p.puts.Add(1)
	buf = buf[:0]
	p.classes[p.classIndex(c)].Put(&buf)
}

// Stats returns a snapshot of pool counters.
func (p *BytePool) Stats() Stats {
	return Stats{
		Gets:     p.gets.Load(),
		Puts:     p.puts.Load(),
		Misses:   p.misses.Load(),
		Oversize: p.oversize.Load(),
	}
}

func (p *BytePool) classIndex(n int) int {
	if n <= p.minSize {
		return 0
	}
	return classShift(n) - minClassShift
}

// classShift returns the exponent of the smallest power of two >= n.
func classShift(n int) int {
	if n <= 1 {
		return 0
	}
	return bits.Len(uint(n - 1))
}
