package streamdec

import (
	"strings"
	"sync"

	"golang.org/x/text/transform"

	"github.com/streamdec/streamdec/internal/charsets"
)

// CharsetStream normalizes the character encoding of a text body to UTF-8.
// It sniffs the charset from the first data chunk (BOM, declared charset,
// HTML meta prescan) and, when a conversion is needed, re-encodes the body
// incrementally; multi-byte sequences split across chunk boundaries are
// handled. Non-text bodies and bodies already in UTF-8 pass through
// untouched. Typically layered on top of a DecodedStream, since sniffing
// compressed bytes is meaningless.
//
// Converted payloads are always plain-owned; pass-through payloads follow
// the subscriber's preference like any other stream.
type CharsetStream struct {
	upstream   Publisher
	logger     Logger
	subscribed bool
}

// CharsetOption configures a CharsetStream.
type CharsetOption func(*CharsetStream)

// WithCharsetLogger sets the diagnostics logger. Passing nil disables
// logging.
func WithCharsetLogger(l Logger) CharsetOption {
	return func(s *CharsetStream) {
		if l == nil {
			l = &disableLogger{}
		}
		s.logger = l
	}
}

// NewCharsetStream wraps upstream in a charset-normalizing stream.
func NewCharsetStream(upstream Publisher, opts ...CharsetOption) *CharsetStream {
	s := &CharsetStream{upstream: upstream, logger: createLogger()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *CharsetStream) Subscribe(down Subscriber, opts ...SubscribeOption) {
	if s.subscribed {
		panic("streamdec: charset stream subscribed twice")
	}
	s.subscribed = true
	sub := &charsetSubscription{
		down:    down,
		options: newSubscribeOptions(opts),
		logger:  s.logger,
	}
	s.upstream.Subscribe(sub, WithPooledPayloads())
	down.OnSubscribe(sub)
}

func isTextContentType(contentType string) bool {
	for _, keyword := range []string{"text", "json", "xml", "html", "java"} {
		if strings.Contains(contentType, keyword) {
			return true
		}
	}
	return false
}

const (
	charsetAwaitingHeaders = iota
	charsetSniffing    // text body, first chunk decides
	charsetConverting  // conversion active
	charsetPassthrough // binary, utf-8, or conversion failed
	charsetTerminated
)

type charsetSubscription struct {
	mu      sync.Mutex
	down    Subscriber
	options SubscribeOptions
	logger  Logger

	up          Subscription
	state       int
	contentType string
	conv        *chunkTransformer

	demand    int
	upPending int
	queue     []Object
	finished  bool
	termErr   error
	emitting  bool
}

func (s *charsetSubscription) Request(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n <= 0 || s.state == charsetTerminated {
		return
	}
	s.demand = addDemand(s.demand, n)
	s.drainLocked()
}

func (s *charsetSubscription) Cancel() {
	s.mu.Lock()
	if s.state == charsetTerminated {
		s.mu.Unlock()
		return
	}
	s.state = charsetTerminated
	s.releaseQueueLocked()
	up := s.up
	s.mu.Unlock()
	if up != nil {
		up.Cancel()
	}
}

func (s *charsetSubscription) OnSubscribe(up Subscription) {
	s.mu.Lock()
	s.up = up
	s.mu.Unlock()
}

func (s *charsetSubscription) OnNext(obj Object) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == charsetTerminated {
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
		ct, _ := o.Get(ContentType)
		s.contentType = ct
		if isTextContentType(ct) {
			s.state = charsetSniffing
		} else {
			s.state = charsetPassthrough
		}
		s.queue = append(s.queue, o)
	case Payload:
		s.onPayloadLocked(o)
	case *Trailers:
		// Trailers end the body: flush the converter first so no text chunk
		// is queued behind the trailer set.
		s.flushConverterLocked()
		s.queue = append(s.queue, o)
	}
	s.drainLocked()
}

func (s *charsetSubscription) OnComplete() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == charsetTerminated {
		return
	}
	s.finished = true
	s.flushConverterLocked()
	s.drainLocked()
}

func (s *charsetSubscription) flushConverterLocked() {
	if s.state != charsetConverting {
		return
	}
	s.state = charsetPassthrough
	if out, err := s.conv.transform(nil, true); err != nil {
		s.logger.Warnf("charset conversion flush failed: %v", err)
	} else if len(out) > 0 {
		s.queue = append(s.queue, PayloadOf(out))
	}
}

func (s *charsetSubscription) OnError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == charsetTerminated {
		return
	}
	s.finished = true
	s.termErr = err
	s.releaseQueueLocked()
	s.drainLocked()
}

func (s *charsetSubscription) onPayloadLocked(p Payload) {
	switch s.state {
	case charsetSniffing:
		enc, name := charsets.FindEncoding(p.Bytes(), s.contentType)
		if enc == nil {
			s.state = charsetPassthrough
			s.queuePassthroughLocked(p)
			return
		}
		s.logger.Debugf("converting %s body to utf-8", name)
		s.state = charsetConverting
		s.conv = &chunkTransformer{t: enc.NewDecoder()}
		s.convertLocked(p)
	case charsetConverting:
		s.convertLocked(p)
	default:
		s.queuePassthroughLocked(p)
	}
}

func (s *charsetSubscription) convertLocked(p Payload) {
	out, err := s.conv.transform(p.Bytes(), false)
	if err != nil {
		// Keep the stream alive: emit the rest of the body unconverted,
		// the way a client that failed to sniff would have. Decoders built
		// by x/text substitute U+FFFD rather than erroring, so in practice
		// this path only fires for broken custom transformers.
		s.logger.Warnf("charset conversion failed, passing body through: %v", err)
		s.state = charsetPassthrough
		s.queuePassthroughLocked(p)
		return
	}
	p.Close()
	if len(out) > 0 {
		s.queue = append(s.queue, PayloadOf(out))
	}
}

func (s *charsetSubscription) queuePassthroughLocked(p Payload) {
	if s.options.PooledPayloads {
		s.queue = append(s.queue, p)
	} else {
		s.queue = append(s.queue, p.Unpooled())
	}
}

func (s *charsetSubscription) releaseQueueLocked() {
	for _, obj := range s.queue {
		if p, ok := obj.(Payload); ok {
			p.Close()
		}
	}
	s.queue = nil
}

func (s *charsetSubscription) drainLocked() {
	if s.emitting {
		return
	}
	s.emitting = true
	defer func() { s.emitting = false }()

	for {
		if s.state == charsetTerminated {
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
			s.state = charsetTerminated
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

// chunkTransformer drives a transform.Transformer over arbitrarily split
// input, carrying unconsumed bytes between chunks.
type chunkTransformer struct {
	t   transform.Transformer
	rem []byte
}

func (c *chunkTransformer) transform(p []byte, atEOF bool) ([]byte, error) {
	src := p
	if len(c.rem) > 0 {
		src = append(c.rem, p...)
		c.rem = nil
	}
	var out []byte
	buf := make([]byte, len(src)+32)
	for {
		nDst, nSrc, err := c.t.Transform(buf, src, atEOF)
		out = append(out, buf[:nDst]...)
		src = src[nSrc:]
		switch err {
		case nil:
			return out, nil
		case transform.ErrShortDst:
			continue
		case transform.ErrShortSrc:
			if atEOF {
				return out, err
			}
			c.rem = append(c.rem, src...)
			return out, nil
		default:
			return out, err
		}
	}
}
