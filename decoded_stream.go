package streamdec

import (
	"sync"

	"github.com/streamdec/streamdec/internal/pool"
)

// DecodedStream wraps an upstream body stream and transparently replaces
// compressed data chunks with their decompressed form. The encoding
// indicator (and the now-wrong Content-Length) is stripped from the
// forwarded header set; trailers pass through unchanged. Encodings with no
// registered decoder pass through untouched, body included.
//
// A DecodedStream serves exactly one response body and may be subscribed
// at most once.
type DecodedStream struct {
	upstream   Publisher
	registry   *Registry
	alloc      pool.Allocator
	logger     Logger
	subscribed bool
}

// Option configures a DecodedStream.
type Option func(*DecodedStream)

// WithRegistry sets the codec registry. Default is DefaultRegistry().
func WithRegistry(r *Registry) Option {
	return func(s *DecodedStream) { s.registry = r }
}

// WithAllocator sets the pooled allocator used for decoded output buffers.
func WithAllocator(alloc pool.Allocator) Option {
	return func(s *DecodedStream) { s.alloc = alloc }
}

// WithLogger sets the diagnostics logger. Passing nil disables logging.
func WithLogger(l Logger) Option {
	return func(s *DecodedStream) {
		if l == nil {
			l = &disableLogger{}
		}
		s.logger = l
	}
}

// NewDecodedStream wraps upstream in a decoding stream.
func NewDecodedStream(upstream Publisher, opts ...Option) *DecodedStream {
	s := &DecodedStream{
		upstream: upstream,
		registry: DefaultRegistry(),
		alloc:    pool.DefaultAllocator,
		logger:   createLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *DecodedStream) Subscribe(down Subscriber, opts ...SubscribeOption) {
	if s.subscribed {
		panic("streamdec: decoded stream subscribed twice")
	}
	s.subscribed = true
	sub := &decodedSubscription{
		down:     down,
		options:  newSubscribeOptions(opts),
		registry: s.registry,
		alloc:    s.alloc,
		logger:   s.logger,
	}
	// Always take pooled payloads from upstream: the subscription releases
	// every buffer itself, whatever representation downstream asked for.
	s.upstream.Subscribe(sub, WithPooledPayloads())
	down.OnSubscribe(sub)
}

const (
	stateAwaitingHeaders = iota
	stateDecoding
	statePassthrough
	stateTerminated
)

// decodedSubscription is both the subscriber half facing upstream and the
// subscription half facing downstream. All transitions run under mu; the
// terminated state is absorbing, which is what makes cancellation race-free
// against an in-flight terminal signal.
type decodedSubscription struct {
	mu       sync.Mutex
	down     Subscriber
	options  SubscribeOptions
	registry *Registry
	alloc    pool.Allocator
	logger   Logger

	up       Subscription
	state    int
	decoder  StreamDecoder
	encoding string

	demand    int      // downstream demand not yet satisfied
	upPending int      // objects requested upstream, not yet arrived
	queue     []Object // produced but not yet emitted
	finished  bool     // upstream terminal observed
	termErr   error    // error to forward once the queue is drained
	emitting  bool
}

// Subscription half (downstream-facing).

func (s *decodedSubscription) Request(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n <= 0 || s.state == stateTerminated {
		return
	}
	s.demand = addDemand(s.demand, n)
	s.drainLocked()
}

func (s *decodedSubscription) Cancel() {
	s.mu.Lock()
	if s.state == stateTerminated {
		s.mu.Unlock()
		return
	}
	s.state = stateTerminated
	s.releaseQueueLocked()
	s.destroyDecoderLocked()
	up := s.up
	s.mu.Unlock()
	if up != nil {
		up.Cancel()
	}
}

// Subscriber half (upstream-facing).

func (s *decodedSubscription) OnSubscribe(up Subscription) {
	s.mu.Lock()
	s.up = up
	s.mu.Unlock()
}

func (s *decodedSubscription) OnNext(obj Object) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == stateTerminated {
		if p, ok := obj.(Payload); ok {
			p.Close()
		}
		return
	}
	if s.upPending > 0 {
		s.upPending--
	}
	switch o := obj.(type) {
	case *Headers:
		s.onHeadersLocked(o)
	case Payload:
		s.onPayloadLocked(o)
	case *Trailers:
		// Trailers end the body: flush the decoder before forwarding them
		// so no data chunk is ever queued behind the trailer set.
		if s.finishDecoderLocked() {
			s.queue = append(s.queue, o)
		}
	}
	s.drainLocked()
}

func (s *decodedSubscription) OnComplete() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == stateTerminated {
		return
	}
	s.finished = true
	s.finishDecoderLocked()
	s.drainLocked()
}

// finishDecoderLocked flushes and destroys the decoder, queueing any final
// output. It reports whether the stream is still healthy afterwards.
func (s *decodedSubscription) finishDecoderLocked() bool {
	if s.decoder == nil {
		return true
	}
	outs, err := s.decoder.Finish()
	s.destroyDecoderLocked()
	if err != nil {
		s.logger.Errorf("decoding %s body failed: %v", s.encoding, err)
		s.failLocked(&CorruptInputError{Encoding: s.encoding, Err: err})
		return false
	}
	for _, buf := range outs {
		s.queue = append(s.queue, s.adaptDecodedLocked(buf))
	}
	return true
}

func (s *decodedSubscription) OnError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == stateTerminated {
		return
	}
	// Forward the upstream error unchanged once held buffers are gone.
	s.finished = true
	s.termErr = err
	s.releaseQueueLocked()
	s.destroyDecoderLocked()
	s.drainLocked()
}

func (s *decodedSubscription) onHeadersLocked(h *Headers) {
	encoding := h.contentEncoding()
	factory := s.registry.Lookup(encoding)
	if factory == nil {
		if encoding != "" {
			s.logger.Debugf("no decoder registered for encoding %q, passing body through", encoding)
		}
		s.state = statePassthrough
		s.queue = append(s.queue, h)
		return
	}
	decoder, err := factory(s.alloc)
	if err != nil {
		s.logger.Errorf("failed to create %s decoder: %v", encoding, err)
		s.failLocked(&InitError{Encoding: encoding, Err: err})
		return
	}
	s.decoder = decoder
	s.encoding = encoding
	s.state = stateDecoding
	rewritten := h.Clone()
	rewritten.Del(ContentEncoding)
	rewritten.Del(ContentLength)
	s.queue = append(s.queue, rewritten)
}

func (s *decodedSubscription) onPayloadLocked(p Payload) {
	if s.state != stateDecoding {
		if s.options.PooledPayloads {
			s.queue = append(s.queue, p)
		} else {
			s.queue = append(s.queue, p.Unpooled())
		}
		return
	}
	outs, err := s.decoder.Feed(p.Bytes())
	// The input chunk is consumed in full by the decode step; release it
	// before anything is forwarded, whatever the outcome.
	p.Close()
	if err != nil {
		s.logger.Errorf("decoding %s body failed: %v", s.encoding, err)
		s.failLocked(&CorruptInputError{Encoding: s.encoding, Err: err})
		return
	}
	for _, buf := range outs {
		s.queue = append(s.queue, s.adaptDecodedLocked(buf))
	}
}

// adaptDecodedLocked resolves a decoded buffer to the representation the
// subscriber asked for. Pooled: hand over the reference as-is. Plain: copy
// first, then release, so downstream never sees a dangling reference.
func (s *decodedSubscription) adaptDecodedLocked(buf *pool.Buffer) Object {
	p := PooledPayloadOf(buf)
	if s.options.PooledPayloads {
		return p
	}
	return p.Unpooled()
}

func (s *decodedSubscription) failLocked(err error) {
	s.finished = true
	s.termErr = err
	s.releaseQueueLocked()
	s.destroyDecoderLocked()
	if s.up != nil {
		s.up.Cancel()
	}
}

func (s *decodedSubscription) destroyDecoderLocked() {
	if s.decoder != nil {
		s.decoder.Destroy()
		s.decoder = nil
	}
}

func (s *decodedSubscription) releaseQueueLocked() {
	for _, obj := range s.queue {
		if p, ok := obj.(Payload); ok {
			p.Close()
		}
	}
	s.queue = nil
}

// drainLocked emits queued objects within downstream demand, terminates
// once the queue is empty after the upstream terminal, and translates
// unsatisfied demand into upstream demand (one object at a time; one
// upstream chunk may become zero or many downstream chunks). Downstream
// callbacks run with mu released; the emitting flag keeps reentrant
// Request calls out of the loop.
func (s *decodedSubscription) drainLocked() {
	if s.emitting {
		return
	}
	s.emitting = true
	defer func() { s.emitting = false }()

	for {
		if s.state == stateTerminated {
			return
		}
		if len(s.queue) > 0 && s.demand > 0 {
			obj := s.queue[0]
			s.queue = s.queue[1:]
			s.demand--
			s.mu.Unlock()
			s.down.OnNext(obj)
			s.mu.Lock()
			continue
		}
		if len(s.queue) == 0 && s.finished {
			s.state = stateTerminated
			err := s.termErr
			s.mu.Unlock()
			if err != nil {
				s.down.OnError(err)
			} else {
				s.down.OnComplete()
			}
			s.mu.Lock()
			return
		}
		if s.demand > 0 && !s.finished && s.upPending == 0 && s.up != nil {
			s.upPending++
			up := s.up
			s.mu.Unlock()
			up.Request(1)
			s.mu.Lock()
			continue
		}
		return
	}
}
