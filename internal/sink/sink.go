// Package sink fans finished canonical events out to subscribers without
// ever blocking the producer.
package sink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/voguh/unichat-sub000/internal/event"
	"github.com/voguh/unichat-sub000/internal/logging"
)

const defaultBufferSize = 1024

// ErrClosed is returned by Publish and Subscribe after Close.
var ErrClosed = errors.New("sink closed")

// Stats are cumulative counters of a Sink.
type Stats struct {
	Published   uint64 `json:"published"`
	Dropped     uint64 `json:"dropped"`
	Subscribers int    `json:"subscribers"`
}

// Option configures a Sink.
type Option func(*Sink)

// WithBufferSize sets the default subscription buffer. Default: 1024.
func WithBufferSize(n int) Option {
	return func(s *Sink) {
		if n > 0 {
			s.bufSize = n
		}
	}
}

// WithLogger sets the logger used to report dropped events.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(s *Sink) { s.logger = logging.OrNop(l) }
}

// Sink distributes events to every subscription. Each subscription has a
// bounded buffer; when it is full the oldest buffered event is dropped to
// make room.
type Sink struct {
	mu      sync.RWMutex
	subs    map[*Subscription]struct{}
	closed  bool
	bufSize int
	logger  *zap.SugaredLogger

	published atomic.Uint64
	dropped   atomic.Uint64
}

// New creates a Sink.
func New(opts ...Option) *Sink {
	s := &Sink{
		subs:    make(map[*Subscription]struct{}),
		bufSize: defaultBufferSize,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe registers a new subscription. A buffer <= 0 uses the sink
// default.
func (s *Sink) Subscribe(buffer int) (*Subscription, error) {
	if buffer <= 0 {
		buffer = s.bufSize
	}
	sub := &Subscription{sink: s, ch: make(chan event.Event, buffer)}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	s.subs[sub] = struct{}{}
	return sub, nil
}

// Publish hands e to every subscription. It never blocks.
func (s *Sink) Publish(e event.Event) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}

	s.published.Add(1)
	for sub := range s.subs {
		if sub.offer(e) {
			s.dropped.Add(1)
			s.logger.Debugf("Subscription buffer full, dropped oldest event for %s", e.Kind())
		}
	}
	return nil
}

// Stats returns the current counters.
func (s *Sink) Stats() Stats {
	s.mu.RLock()
	n := len(s.subs)
	s.mu.RUnlock()
	return Stats{Published: s.published.Load(), Dropped: s.dropped.Load(), Subscribers: n}
}

// Close closes every subscription. Further publishes fail with ErrClosed.
func (s *Sink) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	subs := s.subs
	s.subs = make(map[*Subscription]struct{})
	s.mu.Unlock()

	for sub := range subs {
		sub.close()
	}
}

// Subscription is one consumer's view of the sink.
type Subscription struct {
	sink    *Sink
	ch      chan event.Event
	mu      sync.Mutex
	closed  bool
	dropped atomic.Uint64
}

// C returns the event channel. It is closed when the subscription or the
// sink is closed.
func (sub *Subscription) C() <-chan event.Event {
	return sub.ch
}

// Dropped returns how many events this subscription lost to overflow.
func (sub *Subscription) Dropped() uint64 {
	return sub.dropped.Load()
}

// offer enqueues e, evicting the oldest buffered event when full. It
// reports whether an event was dropped.
func (sub *Subscription) offer(e event.Event) bool {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if sub.closed {
		return false
	}

	select {
	case sub.ch <- e:
		return false
	default:
	}

	dropped := false
	select {
	case <-sub.ch:
		dropped = true
		sub.dropped.Add(1)
	default:
	}
	select {
	case sub.ch <- e:
	default:
		// Unbuffered channel with no reader waiting.
		dropped = true
		sub.dropped.Add(1)
	}
	return dropped
}

// Close detaches the subscription and closes its channel.
func (sub *Subscription) Close() {
	sub.sink.mu.Lock()
	delete(sub.sink.subs, sub)
	sub.sink.mu.Unlock()
	sub.close()
}

func (sub *Subscription) close() {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if !sub.closed {
		sub.closed = true
		close(sub.ch)
	}
}

// WriteJSONLines writes every event of sub to w as one JSON document per
// line until the subscription closes or ctx is done.
func WriteJSONLines(ctx context.Context, sub *Subscription, w io.Writer) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e, ok := <-sub.C():
			if !ok {
				return nil
			}
			b, err := event.Marshal(e)
			if err != nil {
				return err
			}
			if _, err := w.Write(append(b, '\n')); err != nil {
				return fmt.Errorf("write event: %w", err)
			}
		}
	}
}
