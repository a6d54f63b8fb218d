package streamdec

import "math"

// Object is one item of a body stream: *Headers first, then zero or more
// Payload chunks, then at most one *Trailers.
type Object interface {
	isStreamObject()
}

// Subscription is the handle a Publisher gives its Subscriber to control
// flow. Request and Cancel may be called from within Subscriber callbacks.
type Subscription interface {
	// Request announces that the subscriber is ready to receive up to n
	// more objects. Non-positive n is ignored.
	Request(n int)
	// Cancel stops the stream. Idempotent; no objects are delivered after
	// it returns.
	Cancel()
}

// RequestMax requests effectively unbounded delivery.
const RequestMax = math.MaxInt

// Subscriber receives a stream: exactly one OnSubscribe, then objects
// within announced demand, then exactly one terminal OnComplete or OnError.
type Subscriber interface {
	OnSubscribe(Subscription)
	OnNext(Object)
	OnError(err error)
	OnComplete()
}

// Publisher is a pull-based object stream. One publisher serves one
// logical response body; Subscribe must be called at most once.
type Publisher interface {
	Subscribe(sub Subscriber, opts ...SubscribeOption)
}

// SubscribeOptions carries per-subscription preferences.
type SubscribeOptions struct {
	// PooledPayloads requests pool-owned payloads where the producer can
	// supply them. The subscriber then owns each payload and must close
	// it. Default is plain-owned output.
	PooledPayloads bool
}

// SubscribeOption mutates SubscribeOptions at subscribe time.
type SubscribeOption func(*SubscribeOptions)

// WithPooledPayloads requests pool-owned payloads from the producer.
func WithPooledPayloads() SubscribeOption {
	return func(o *SubscribeOptions) {
		o.PooledPayloads = true
	}
}

func newSubscribeOptions(opts []SubscribeOption) SubscribeOptions {
	var o SubscribeOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// addDemand adds n to demand, saturating at RequestMax.
func addDemand(demand, n int) int {
	if n <= 0 {
		return demand
	}
	if demand > RequestMax-n {
		return RequestMax
	}
	return demand + n
}
