package streamdec

import (
	"bytes"
	"errors"
	"io"
	"sync"

	"github.com/streamdec/streamdec/internal/compress"
	"github.com/streamdec/streamdec/internal/pool"
)

// readChunkSize is the target size of decoded output chunks. Output chunk
// boundaries are independent of input chunk boundaries.
const readChunkSize = 8 << 10

// StreamDecoder incrementally decompresses one response body. Feed accepts
// compressed bytes in arbitrary splits; the concatenation of all returned
// buffers across Feed and Finish equals a single-pass decompression of the
// concatenated input. Returned buffers carry one reference each and belong
// to the caller. Finish must be called exactly once after the last Feed;
// Destroy releases everything still held and may be called at any point,
// including after Finish.
type StreamDecoder interface {
	Feed(p []byte) ([]*pool.Buffer, error)
	Finish() ([]*pool.Buffer, error)
	Destroy()
}

// DecoderFactory constructs a fresh StreamDecoder drawing output buffers
// from alloc. An error is fatal for the subscription.
type DecoderFactory func(alloc pool.Allocator) (StreamDecoder, error)

// CodecFactory returns a factory for one of the built-in encodings
// (compress.Gzip, compress.Deflate, compress.Brotli, compress.Zstd).
func CodecFactory(encoding string) DecoderFactory {
	return func(alloc pool.Allocator) (StreamDecoder, error) {
		if !compress.Supported(encoding) {
			return nil, errors.New("no codec for encoding " + encoding)
		}
		return newReaderDecoder(alloc, func(src io.Reader) io.Reader {
			return compress.NewReader(src, encoding)
		}), nil
	}
}

var errDecoderDestroyed = errors.New("streamdec: decoder destroyed")

// readerDecoder adapts an io.Reader-style codec to the feed-based
// StreamDecoder contract. The codec runs in a pump goroutine that reads
// from an in-memory source; Feed appends input and returns once the pump
// has consumed it all and gone back to sleep, so every call observes
// exactly the outputs its input produced and the decoder behaves
// synchronously from the caller's point of view.
type readerDecoder struct {
	alloc pool.Allocator

	mu      sync.Mutex
	cond    *sync.Cond
	in      bytes.Buffer   // compressed bytes not yet consumed by the codec
	closed  bool           // Finish called, no more input
	failed  error          // source poisoned by Destroy
	waiting bool           // pump is asleep waiting for input
	outs    []*pool.Buffer // decoded, not yet collected
	done    bool           // pump exited
	err     error          // pump exit cause; io.EOF is a clean end
	discard bool           // release output instead of collecting it
}

func newReaderDecoder(alloc pool.Allocator, newCodec func(io.Reader) io.Reader) *readerDecoder {
	d := &readerDecoder{alloc: alloc}
	d.cond = sync.NewCond(&d.mu)
	go d.run(newCodec((*decoderSource)(d)))
	return d
}

func (d *readerDecoder) run(codec io.Reader) {
	for {
		buf := d.alloc.Get(readChunkSize)
		n, err := codec.Read(buf.Free())
		buf.Advance(n)
		d.mu.Lock()
		if n > 0 && !d.discard {
			d.outs = append(d.outs, buf)
		} else {
			buf.Release()
		}
		if err != nil {
			d.done = true
			d.err = err
			d.cond.Broadcast()
			d.mu.Unlock()
			return
		}
		d.mu.Unlock()
	}
}

func (d *readerDecoder) Feed(p []byte) ([]*pool.Buffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failed != nil {
		return nil, errDecoderDestroyed
	}
	if !d.done {
		if len(p) > 0 {
			d.in.Write(p)
		}
		d.cond.Broadcast()
		// Wait for the pump to drain the input and block again, or exit.
		for !d.done && !(d.in.Len() == 0 && d.waiting) {
			d.cond.Wait()
		}
	}
	return d.collectLocked()
}

func (d *readerDecoder) Finish() ([]*pool.Buffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failed != nil {
		return nil, errDecoderDestroyed
	}
	if !d.done {
		d.closed = true
		d.cond.Broadcast()
		for !d.done {
			d.cond.Wait()
		}
	}
	return d.collectLocked()
}

func (d *readerDecoder) Destroy() {
	d.mu.Lock()
	d.discard = true
	if !d.done {
		d.failed = errDecoderDestroyed
		d.cond.Broadcast()
		for !d.done {
			d.cond.Wait()
		}
	}
	outs := d.outs
	d.outs = nil
	d.mu.Unlock()
	for _, buf := range outs {
		buf.Release()
	}
}

func (d *readerDecoder) collectLocked() ([]*pool.Buffer, error) {
	outs := d.outs
	d.outs = nil
	if d.done && d.err != io.EOF {
		for _, buf := range outs {
			buf.Release()
		}
		return nil, d.err
	}
	return outs, nil
}

// decoderSource is the io.Reader the codec pulls compressed bytes from.
// Reads block until input arrives, the input is closed, or the decoder is
// destroyed.
type decoderSource readerDecoder

func (s *decoderSource) Read(p []byte) (int, error) {
	d := (*readerDecoder)(s)
	d.mu.Lock()
	defer d.mu.Unlock()
	for d.in.Len() == 0 && !d.closed && d.failed == nil {
		d.waiting = true
		d.cond.Broadcast()
		d.cond.Wait()
	}
	d.waiting = false
	if d.failed != nil {
		return 0, d.failed
	}
	if d.in.Len() == 0 {
		return 0, io.EOF
	}
	n, _ := d.in.Read(p)
	return n, nil
}
