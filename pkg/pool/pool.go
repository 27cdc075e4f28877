// Package pool provides typed object pooling over sync.Pool with usage
// counters.
//
// Example usage:
//
//	buffers := pool.New(
//	    func() *bytes.Buffer { return new(bytes.Buffer) },
//	    func(b *bytes.Buffer) { b.Reset() },
//	)
//	buf := buffers.Get()
//	defer buffers.Put(buf)
package pool

import (
	"bytes"
	"sync"
	"sync/atomic"
)

// Pool is a type-safe object pool. It is safe for concurrent use.
type Pool[T any] struct {
	pool  sync.Pool
	reset func(T)
	stats struct {
		allocated int64
		inUse     int64
	}
}

// New creates a pool. reset, if not nil, runs on every object handed back
// through Put.
func New[T any](new func() T, reset func(T)) *Pool[T] {
	p := &Pool[T]{reset: reset}
	p.pool.New = func() interface{} {
		atomic.AddInt64(&p.stats.allocated, 1)
		return new()
	}
	return p
}

// Get takes an object from the pool, allocating one when it is empty.
func (p *Pool[T]) Get() T {
	atomic.AddInt64(&p.stats.inUse, 1)
	return p.pool.Get().(T)
}

// Put resets obj and returns it to the pool.
func (p *Pool[T]) Put(obj T) {
	if p.reset != nil {
		p.reset(obj)
	}
	atomic.AddInt64(&p.stats.inUse, -1)
	p.pool.Put(obj)
}

// Stats returns the number of objects ever allocated and the number
// currently checked out.
func (p *Pool[T]) Stats() (allocated, inUse int64) {
	return atomic.LoadInt64(&p.stats.allocated), atomic.LoadInt64(&p.stats.inUse)
}

// maxBufferCap keeps oversized buffers out of the pool.
const maxBufferCap = 1 << 20

// NewBufferPool returns a pool of buffers with at least size bytes of
// capacity. Buffers that grew past 1 MiB are dropped on Put.
func NewBufferPool(size int) *Pool[*bytes.Buffer] {
	return New(
		func() *bytes.Buffer { return bytes.NewBuffer(make([]byte, 0, size)) },
		func(b *bytes.Buffer) { b.Reset() },
	)
}

// PutBuffer returns b to p unless it grew too large to keep.
func PutBuffer(p *Pool[*bytes.Buffer], b *bytes.Buffer) {
	if b.Cap() > maxBufferCap {
		atomic.AddInt64(&p.stats.inUse, -1)
		return
	}
	p.Put(b)
}
