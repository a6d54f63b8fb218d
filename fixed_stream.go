package streamdec

// StreamOf returns a publisher that delivers the given objects in order,
// respecting demand, then completes. The first object should be the
// *Headers of the stream. Pool-owned payloads are handed over as-is to a
// subscriber that opted into pooled payloads, and copied to plain-owned
// ones otherwise; undelivered pool-owned payloads are released when the
// subscription is cancelled.
func StreamOf(objects ...Object) Publisher {
	return &fixedStream{objects: objects}
}

// FailingStreamOf is like StreamOf but terminates with err instead of
// completing, after all objects have been delivered.
func FailingStreamOf(err error, objects ...Object) Publisher {
	return &fixedStream{objects: objects, err: err}
}

type fixedStream struct {
	objects    []Object
	err        error
	subscribed bool
}

func (s *fixedStream) Subscribe(sub Subscriber, opts ...SubscribeOption) {
	if s.subscribed {
		panic("streamdec: fixed stream subscribed twice")
	}
	s.subscribed = true
	fs := &fixedSubscription{
		objects: s.objects,
		err:     s.err,
		sub:     sub,
		options: newSubscribeOptions(opts),
	}
	sub.OnSubscribe(fs)
}

type fixedSubscription struct {
	objects  []Object
	err      error
	sub      Subscriber
	options  SubscribeOptions
	demand   int
	emitting bool
	done     bool
}

func (s *fixedSubscription) Request(n int) {
	if n <= 0 || s.done {
		return
	}
	s.demand = addDemand(s.demand, n)
	s.emit()
}

func (s *fixedSubscription) Cancel() {
	if s.done {
		return
	}
	s.done = true
	s.releaseRemaining()
}

// emit delivers objects while demand lasts. The emitting flag keeps
// reentrant Request calls from OnNext from re-entering the loop.
func (s *fixedSubscription) emit() {
	if s.emitting {
		return
	}
	s.emitting = true
	defer func() { s.emitting = false }()

	for !s.done && s.demand > 0 && len(s.objects) > 0 {
		obj := s.objects[0]
		s.objects = s.objects[1:]
		s.demand--
		if p, ok := obj.(Payload); ok && !s.options.PooledPayloads {
			obj = p.Unpooled()
		}
		s.sub.OnNext(obj)
	}
	if !s.done && len(s.objects) == 0 {
		s.done = true
		if s.err != nil {
			s.sub.OnError(s.err)
		} else {
			s.sub.OnComplete()
		}
	}
}

func (s *fixedSubscription) releaseRemaining() {
	for _, obj := range s.objects {
		if p, ok := obj.(Payload); ok {
			p.Close()
		}
	}
	s.objects = nil
}
