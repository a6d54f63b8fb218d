package streamdec

import (
	"bytes"
	"sync"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/streamdec/streamdec/internal/pool"
)

// streamCollector is the downstream consumer used across the suites. It
// records everything it observes and never closes pooled payloads unless a
// test does so explicitly.
type streamCollector struct {
	sub       Subscription
	objects   []Object
	errs      []error
	completes int
	onNext    func(Object)
}

func (c *streamCollector) OnSubscribe(s Subscription) { c.sub = s }

func (c *streamCollector) OnNext(o Object) {
	c.objects = append(c.objects, o)
	if c.onNext != nil {
		c.onNext(o)
	}
}

func (c *streamCollector) OnError(err error) { c.errs = append(c.errs, err) }
func (c *streamCollector) OnComplete()      { c.completes++ }

func (c *streamCollector) payloads() []Payload {
	var ps []Payload
	for _, o := range c.objects {
		if p, ok := o.(Payload); ok {
			ps = append(ps, p)
		}
	}
	return ps
}

func (c *streamCollector) body() []byte {
	var buf bytes.Buffer
	for _, p := range c.payloads() {
		buf.Write(p.Bytes())
	}
	return buf.Bytes()
}

// trackingAllocator records every buffer it hands out so tests can verify
// that the pipeline released all of them.
type trackingAllocator struct {
	mu   sync.Mutex
	bufs []*pool.Buffer
}

func newTrackingAllocator() *trackingAllocator { return &trackingAllocator{} }

func (a *trackingAllocator) Get(size int) *pool.Buffer {
	buf := pool.DefaultAllocator.Get(size)
	a.mu.Lock()
	a.bufs = append(a.bufs, buf)
	a.mu.Unlock()
	return buf
}

func (a *trackingAllocator) liveCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	live := 0
	for _, buf := range a.bufs {
		if buf.Refs() > 0 {
			live++
		}
	}
	return live
}

func gzipBytes(t *testing.T, b []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(b); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func deflateBytes(t *testing.T, b []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	fw, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write(b); err != nil {
		t.Fatal(err)
	}
	if err := fw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func brotliBytes(t *testing.T, b []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	bw := brotli.NewWriter(&buf)
	if _, err := bw.Write(b); err != nil {
		t.Fatal(err)
	}
	if err := bw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func zstdBytes(t *testing.T, b []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw, err := zstd.NewWriter(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := zw.Write(b); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// pooledPayload copies b into a pool-owned payload.
func pooledPayload(b []byte) Payload {
	buf := pool.DefaultAllocator.Get(len(b))
	buf.Write(b)
	return PooledPayloadOf(buf)
}

func gzipHeaders() *Headers {
	return NewHeaders("200", Field{Name: ContentEncoding, Value: "gzip"})
}
