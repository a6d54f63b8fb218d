package pool

import (
	"bytes"
	"testing"
)

func TestBufferLifecycle(t *testing.T) {
	alloc := NewAllocator()
	buf := alloc.Get(16)
	if got := buf.Refs(); got != 1 {
		t.Fatalf("fresh buffer refs = %d, want 1", got)
	}
	buf.Write([]byte("hello"))
	if got := string(buf.Bytes()); got != "hello" {
		t.Fatalf("Bytes() = %q, want %q", got, "hello")
	}
	buf.Retain()
	if got := buf.Refs(); got != 2 {
		t.Fatalf("refs after retain = %d, want 2", got)
	}
	buf.Release()
	if got := buf.Refs(); got != 1 {
		t.Fatalf("refs after release = %d, want 1", got)
	}
	buf.Release()
	if got := buf.Refs(); got != 0 {
		t.Fatalf("refs after final release = %d, want 0", got)
	}
}

func TestDoubleReleasePanics(t *testing.T) {
	buf := NewAllocator().Get(8)
	buf.Release()
	defer func() {
		if recover() == nil {
			t.Error("second release should panic")
		}
	}()
	buf.Release()
}

func TestRetainAfterReleasePanics(t *testing.T) {
	buf := NewAllocator().Get(8)
	buf.Release()
	defer func() {
		if recover() == nil {
			t.Error("retain of a released buffer should panic")
		}
	}()
	buf.Retain()
}

func TestAdvanceTracksReads(t *testing.T) {
	buf := NewAllocator().Get(64)
	n := copy(buf.Free(), "abcdef")
	buf.Advance(n)
	if got := string(buf.Bytes()); got != "abcdef" {
		t.Fatalf("Bytes() = %q", got)
	}
	if buf.Len() != 6 {
		t.Fatalf("Len() = %d, want 6", buf.Len())
	}
	buf.Release()
}

func TestWriteGrowsPastClass(t *testing.T) {
	buf := NewAllocator().Get(8)
	big := bytes.Repeat([]byte("z"), 9<<10)
	buf.Write(big)
	if !bytes.Equal(buf.Bytes(), big) {
		t.Fatal("grown buffer lost data")
	}
	buf.Release()
}

func TestOversizedAllocation(t *testing.T) {
	buf := NewAllocator().Get(1 << 20)
	if len(buf.Free()) < 1<<20 {
		t.Fatalf("oversized buffer capacity = %d", len(buf.Free()))
	}
	buf.Release()
}

func TestUnpooledWrap(t *testing.T) {
	b := []byte("wrapped")
	buf := Unpooled(b)
	if got := string(buf.Bytes()); got != "wrapped" {
		t.Fatalf("Bytes() = %q", got)
	}
	if buf.Refs() != 1 {
		t.Fatalf("refs = %d, want 1", buf.Refs())
	}
	buf.Release()
	if buf.Refs() != 0 {
		t.Fatalf("refs = %d, want 0", buf.Refs())
	}
}
