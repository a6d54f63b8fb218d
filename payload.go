package streamdec

import (
	"github.com/streamdec/streamdec/internal/pool"
)

// Payload is one body data chunk flowing through a stream. Its bytes are
// either plain-owned (a regular slice, reclaimed by the GC) or pool-owned
// (drawn from a pool.Allocator and reference counted). Pool-owned payloads
// must be closed exactly once by whoever holds them last.
type Payload struct {
	buf  *pool.Buffer
	data []byte
}

// PayloadOf wraps b in a plain-owned payload. The payload takes ownership
// of b; callers must not modify it afterwards.
func PayloadOf(b []byte) Payload {
	return Payload{data: b}
}

// PooledPayloadOf wraps a pool-owned buffer. The payload takes over the
// buffer's reference; closing the payload releases it.
func PooledPayloadOf(buf *pool.Buffer) Payload {
	return Payload{buf: buf}
}

// Bytes returns the payload bytes. For pool-owned payloads the slice is
// only valid until Close.
func (p Payload) Bytes() []byte {
	if p.buf != nil {
		return p.buf.Bytes()
	}
	return p.data
}

// Len returns the payload length in bytes.
func (p Payload) Len() int {
	return len(p.Bytes())
}

// IsPooled reports whether the payload is pool-owned.
func (p Payload) IsPooled() bool {
	return p.buf != nil
}

// Buffer returns the underlying pool-owned buffer, or nil for plain-owned
// payloads. Useful for inspecting reference counts.
func (p Payload) Buffer() *pool.Buffer {
	return p.buf
}

// Retain adds a reference to a pool-owned payload. No-op for plain ones.
func (p Payload) Retain() {
	if p.buf != nil {
		p.buf.Retain()
	}
}

// Close releases a pool-owned payload's buffer. Closing a plain-owned
// payload is a no-op. Closing a pool-owned payload twice panics.
func (p Payload) Close() {
	if p.buf != nil {
		p.buf.Release()
	}
}

// Unpooled returns a plain-owned payload with the same bytes, releasing the
// pool-owned source. The copy happens before the release, so the returned
// payload never aliases recycled memory. Plain payloads are returned as is.
func (p Payload) Unpooled() Payload {
	if p.buf == nil {
		return p
	}
	data := make([]byte, p.buf.Len())
	copy(data, p.buf.Bytes())
	p.buf.Release()
	return Payload{data: data}
}

func (p Payload) isStreamObject() {}
