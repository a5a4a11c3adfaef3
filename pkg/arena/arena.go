package arena

import (
	"math/bits"
	"sync"
)

const (
	// PropertySize is the capacity used for single property writes.
	PropertySize = 1 << 10
	// CallSize is the capacity used for building a call frame.
	CallSize = 1 << 13
)

// Arena is a fixed-capacity bump allocator. Memory handed out by Alloc is
// valid until the next Reset.
type Arena struct {
	buf  []byte
	off  int
	refs int
}

// New creates an Arena with the given capacity in bytes.
func New(capacity int) *Arena {
	return &Arena{buf: make([]byte, capacity)}
}

// Cap returns the capacity of the arena.
func (a *Arena) Cap() int {
	return len(a.buf)
}

// Used returns the number of bytes handed out since the last Reset.
func (a *Arena) Used() int {
	return a.off
}

// Alloc returns size zeroed bytes aligned to align, or nil when the arena is
// exhausted. An align that is not a power of two is rounded up to the next
// one. A zero size still returns a non-nil, empty slice.
func (a *Arena) Alloc(size, align int) []byte {
	if size < 0 {
		return nil
	}
	if align <= 0 {
		align = 1
	}
	if align&(align-1) != 0 {
		align = 1 << bits.Len(uint(align))
	}
	start := (a.off + align - 1) &^ (align - 1)
	end := start + size
	if end > len(a.buf) {
		return nil
	}
	a.off = end
	a.refs++
	mem := a.buf[start:end:end]
	clear(mem)
	return mem
}

// Allocations returns how many allocations were served since the last Reset.
func (a *Arena) Allocations() int {
	return a.refs
}

// Reset invalidates every allocation and makes the full capacity available.
func (a *Arena) Reset() {
	a.off = 0
	a.refs = 0
}

// Pool hands out arenas of a fixed capacity. An arena checked out with
// Acquire belongs to the caller until it is given back with Release, so two
// execution contexts never share one.
type Pool struct {
	capacity int
	pool     sync.Pool
}

// NewPool creates a Pool of arenas with the given capacity.
func NewPool(capacity int) *Pool {
	p := &Pool{capacity: capacity}
	p.pool.New = func() any {
		return New(capacity)
	}
	return p
}

// Capacity returns the capacity of arenas handed out by the pool.
func (p *Pool) Capacity() int {
	return p.capacity
}

// Acquire checks an arena out of the pool.
func (p *Pool) Acquire() *Arena {
	return p.pool.Get().(*Arena)
}

// Release resets a and returns it to the pool.
func (p *Pool) Release(a *Arena) {
	if a == nil {
		return
	}
	a.Reset()
	p.pool.Put(a)
}

// Scoped checks out an arena and returns it with its release func, meant to
// be deferred right away:
//
//	a, release := pool.Scoped()
//	defer release()
func (p *Pool) Scoped() (*Arena, func()) {
	a := p.Acquire()
	return a, func() { p.Release(a) }
}
