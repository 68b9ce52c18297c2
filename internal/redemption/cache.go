package redemption

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/voguh/unichat-sub000/internal/event"
)

// DefaultTTL bounds how long an unmatched half waits for its counterpart.
const DefaultTTL = 5 * time.Minute

// ErrClosed is returned by a cache used after Close.
var ErrClosed = errors.New("redemption cache closed")

type pendingReward struct {
	reward   *Reward
	deadline time.Time
}

type pendingMessage struct {
	message  *Message
	deadline time.Time
}

// Cache holds unmatched halves keyed by (reward id, author id). Each key
// keeps a FIFO queue so repeated redemptions by one author are not lost.
type Cache struct {
	ttl time.Duration
	now func() time.Time

	mu       sync.Mutex
	closed   bool
	rewards  map[Key][]pendingReward
	messages map[Key][]pendingMessage
}

// Option configures a Cache.
type Option func(*Cache)

// WithTTL sets the pending entry lifetime. Zero or negative keeps entries
// until they match.
func WithTTL(d time.Duration) Option {
	return func(c *Cache) { c.ttl = d }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// NewCache creates an empty cache.
func NewCache(opts ...Option) *Cache {
	c := &Cache{
		ttl:      DefaultTTL,
		now:      time.Now,
		rewards:  make(map[Key][]pendingReward),
		messages: make(map[Key][]pendingMessage),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cache) deadline() time.Time {
	if c.ttl <= 0 {
		return time.Time{}
	}
	return c.now().Add(c.ttl)
}

// OfferReward registers the metadata half. It returns the merged event when
// the chat half was already waiting, or when the reward has no user input
// and needs no chat half at all.
func (c *Cache) OfferReward(r *Reward) (*event.Redemption, error) {
	if !r.NeedsMessage() {
		c.mu.Lock()
		closed := c.closed
		c.mu.Unlock()
		if closed {
			return nil, ErrClosed
		}
		return RewardOnly(r), nil
	}

	key := r.Key()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}

	if queue := c.messages[key]; len(queue) > 0 {
		m := queue[0]
		c.popMessage(key)
		return Merge(r, m.message.Event), nil
	}
	c.rewards[key] = append(c.rewards[key], pendingReward{reward: r, deadline: c.deadline()})
	return nil, nil
}

// OfferMessage registers the chat half, symmetric to OfferReward.
func (c *Cache) OfferMessage(m *Message) (*event.Redemption, error) {
	key := m.Key()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}

	if queue := c.rewards[key]; len(queue) > 0 {
		r := queue[0]
		c.popReward(key)
		return Merge(r.reward, m.Event), nil
	}
	c.messages[key] = append(c.messages[key], pendingMessage{message: m, deadline: c.deadline()})
	return nil, nil
}

func (c *Cache) popReward(key Key) {
	if rest := c.rewards[key][1:]; len(rest) > 0 {
		c.rewards[key] = rest
	} else {
		delete(c.rewards, key)
	}
}

func (c *Cache) popMessage(key Key) {
	if rest := c.messages[key][1:]; len(rest) > 0 {
		c.messages[key] = rest
	} else {
		delete(c.messages, key)
	}
}

// Pending returns the number of waiting reward and message halves.
func (c *Cache) Pending() (rewards, messages int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, q := range c.rewards {
		rewards += len(q)
	}
	for _, q := range c.messages {
		messages += len(q)
	}
	return rewards, messages
}

// Sweep drops halves whose deadline passed and returns their fallback
// events: a redemption carrying the pushed user input for a reward half,
// the plain chat message for a message half.
func (c *Cache) Sweep(now time.Time) []event.Event {
	return c.sweep(func(deadline time.Time) bool {
		return !deadline.IsZero() && !now.Before(deadline)
	})
}

// Flush returns the fallback events of every pending half and empties the
// cache, regardless of deadlines.
func (c *Cache) Flush() []event.Event {
	return c.sweep(func(time.Time) bool { return true })
}

func (c *Cache) sweep(expired func(deadline time.Time) bool) []event.Event {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []event.Event
	for key, queue := range c.rewards {
		kept := queue[:0]
		for _, p := range queue {
			if !expired(p.deadline) {
				kept = append(kept, p)
				continue
			}
			e := RewardOnly(p.reward)
			e.Flags[FlagUnmatched] = nil
			out = append(out, e)
		}
		if len(kept) == 0 {
			delete(c.rewards, key)
		} else {
			c.rewards[key] = kept
		}
	}
	for key, queue := range c.messages {
		kept := queue[:0]
		for _, p := range queue {
			if !expired(p.deadline) {
				kept = append(kept, p)
				continue
			}
			out = append(out, p.message.Event)
		}
		if len(kept) == 0 {
			delete(c.messages, key)
		} else {
			c.messages[key] = kept
		}
	}
	return out
}

// Run sweeps every interval until ctx is done, handing fallbacks to emit.
func (c *Cache) Run(ctx context.Context, interval time.Duration, emit func(event.Event)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			for _, e := range c.Sweep(c.now()) {
				emit(e)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close rejects further offers. Pending halves are discarded.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.rewards = make(map[Key][]pendingReward)
	c.messages = make(map[Key][]pendingMessage)
}
