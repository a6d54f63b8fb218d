// Package pool provides reference-counted byte buffers drawn from
// size-classed sync.Pools. A Buffer starts with a reference count of one
// and is returned to its pool when the count reaches zero.
package pool

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Allocator hands out pool-owned buffers. Implementations must return a
// buffer with capacity of at least size and a reference count of one.
type Allocator interface {
	Get(size int) *Buffer
}

// Buffer is a pool-owned byte buffer. The holder must call Release exactly
// once when done; Retain adds a holder. Data is only valid while the
// reference count is above zero.
type Buffer struct {
	data []byte
	n    int
	refs atomic.Int32
	home *sync.Pool
}

// Bytes returns the written portion of the buffer.
func (b *Buffer) Bytes() []byte {
	return b.data[:b.n]
}

// Free returns the unwritten remainder of the buffer's capacity.
func (b *Buffer) Free() []byte {
	return b.data[b.n:]
}

// Advance marks n more bytes of the free region as written.
func (b *Buffer) Advance(n int) {
	if b.n+n > len(b.data) {
		panic(fmt.Sprintf("pool: advance %d beyond capacity %d", n, len(b.data)-b.n))
	}
	b.n += n
}

// Write appends p, growing the underlying slice if the pooled capacity is
// exceeded. Oversized buffers are not returned to the pool.
func (b *Buffer) Write(p []byte) (int, error) {
	if b.n+len(p) > len(b.data) {
		grown := make([]byte, b.n+len(p))
		copy(grown, b.data[:b.n])
		b.data = grown
		b.home = nil
	}
	copy(b.data[b.n:], p)
	b.n += len(p)
	return len(p), nil
}

// Len returns the number of written bytes.
func (b *Buffer) Len() int { return b.n }

// Refs returns the current reference count.
func (b *Buffer) Refs() int { return int(b.refs.Load()) }

// Retain increments the reference count.
func (b *Buffer) Retain() {
	if b.refs.Add(1) <= 1 {
		panic("pool: retain of released buffer")
	}
}

// Release decrements the reference count and recycles the buffer once it
// reaches zero. Releasing more times than retained panics: a double release
// is always a caller bug.
func (b *Buffer) Release() {
	switch refs := b.refs.Add(-1); {
	case refs == 0:
		data := b.data
		b.data = nil
		b.n = 0
		if b.home != nil {
			b.home.Put(&data)
		}
	case refs < 0:
		panic("pool: release of already-released buffer")
	}
}

// Size classes. 8KiB covers a typical decompressed read; the larger classes
// avoid growing when callers know the payload size up front.
var classes = [...]int{8 << 10, 32 << 10, 128 << 10}

type allocator struct {
	pools [len(classes)]sync.Pool
}

// NewAllocator returns a size-classed pooling allocator.
func NewAllocator() Allocator {
	a := &allocator{}
	for i := range a.pools {
		size := classes[i]
		a.pools[i].New = func() interface{} {
			data := make([]byte, size)
			return &data
		}
	}
	return a
}

// DefaultAllocator is the allocator used when none is configured.
var DefaultAllocator = NewAllocator()

func (a *allocator) Get(size int) *Buffer {
	for i, class := range classes {
		if size <= class {
			data := a.pools[i].Get().(*[]byte)
			buf := &Buffer{data: *data, home: &a.pools[i]}
			buf.refs.Store(1)
			return buf
		}
	}
	// Off the end of the size classes; allocate directly and skip pooling.
	buf := &Buffer{data: make([]byte, size)}
	buf.refs.Store(1)
	return buf
}

// Unpooled wraps an existing slice in a Buffer that is not backed by any
// pool. It still carries a reference count so ownership tracking stays
// uniform.
func Unpooled(p []byte) *Buffer {
	buf := &Buffer{data: p, n: len(p)}
	buf.refs.Store(1)
	return buf
}
