// Package session owns the registries one chat session works with and
// routes raw platform input through the extractors, the redemption cache
// and into the sink.
package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/voguh/unichat-sub000/internal/author"
	"github.com/voguh/unichat-sub000/internal/emotes"
	"github.com/voguh/unichat-sub000/internal/event"
	"github.com/voguh/unichat-sub000/internal/kick"
	"github.com/voguh/unichat-sub000/internal/logging"
	"github.com/voguh/unichat-sub000/internal/redemption"
	"github.com/voguh/unichat-sub000/internal/sink"
	"github.com/voguh/unichat-sub000/internal/twitch"
	"github.com/voguh/unichat-sub000/internal/youtube"
)

const defaultSweepInterval = 30 * time.Second

// DeadLetter archives raw input that failed to parse.
type DeadLetter interface {
	Write(source string, raw []byte, cause error)
}

// Stats is a snapshot of session counters.
type Stats struct {
	Ingested        uint64     `json:"ingested"`
	Emitted         uint64     `json:"emitted"`
	ParseFailures   uint64     `json:"parseFailures"`
	Unknown         uint64     `json:"unknown"`
	Invalid         uint64     `json:"invalid"`
	PendingRewards  int        `json:"pendingRewards"`
	PendingMessages int        `json:"pendingMessages"`
	ReadyChannels   int        `json:"readyChannels"`
	GlobalEmotes    int        `json:"globalEmotes"`
	EmoteChannels   int        `json:"emoteChannels"`
	Badges          int        `json:"badges"`
	Cheermotes      int        `json:"cheermotes"`
	Sink            sink.Stats `json:"sink"`
}

type options struct {
	logger        *zap.SugaredLogger
	providers     []emotes.Provider
	emoteTimeout  time.Duration
	ttl           time.Duration
	sweepInterval time.Duration
	sinkOpts      []sink.Option
	deadLetter    DeadLetter
	assetsBaseURL string
	logUnknown    bool
	cheermotes    []string
}

// Option configures a Session.
type Option func(*options)

// WithLogger sets the session logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(o *options) { o.logger = l }
}

// WithEmoteProviders sets the shared emote providers, in merge order.
func WithEmoteProviders(p []emotes.Provider, timeout time.Duration) Option {
	return func(o *options) {
		o.providers = p
		o.emoteTimeout = timeout
	}
}

// WithRedemptionTTL sets how long half a redemption waits for the other.
func WithRedemptionTTL(ttl, sweep time.Duration) Option {
	return func(o *options) {
		o.ttl = ttl
		o.sweepInterval = sweep
	}
}

// WithSinkOptions configures the event sink.
func WithSinkOptions(opts ...sink.Option) Option {
	return func(o *options) { o.sinkOpts = append(o.sinkOpts, opts...) }
}

// WithDeadLetter archives input that fails to parse.
func WithDeadLetter(d DeadLetter) Option {
	return func(o *options) { o.deadLetter = d }
}

// WithAssetsBaseURL sets the base URL of the static badge icons.
func WithAssetsBaseURL(u string) Option {
	return func(o *options) { o.assetsBaseURL = u }
}

// WithLogUnknown logs input that matches no known shape at debug level.
func WithLogUnknown(v bool) Option {
	return func(o *options) { o.logUnknown = v }
}

// WithCheermotes replaces the default cheermote prefixes.
func WithCheermotes(prefixes []string) Option {
	return func(o *options) { o.cheermotes = prefixes }
}

// Session is one ingestion context. Independent sessions share nothing.
type Session struct {
	logger     *zap.SugaredLogger
	deadLetter DeadLetter
	logUnknown bool

	authors    *author.Resolver
	badges     *author.BadgeRegistry
	cheermotes *twitch.CheermoteRegistry
	emotes     *emotes.Dictionary
	refresher  *emotes.Refresher
	cache      *redemption.Cache
	sink       *sink.Sink

	twitch  *twitch.Extractor
	youtube *youtube.Extractor
	kick    *kick.Extractor

	sweepInterval time.Duration

	readyMu sync.Mutex
	ready   map[string]bool

	ingested      atomic.Uint64
	emitted       atomic.Uint64
	parseFailures atomic.Uint64
	unknown       atomic.Uint64
	invalid       atomic.Uint64

	closeOnce sync.Once
}

// New creates a session.
func New(opts ...Option) *Session {
	o := options{
		ttl:           redemption.DefaultTTL,
		sweepInterval: defaultSweepInterval,
		cheermotes:    twitch.DefaultCheermotes,
	}
	for _, opt := range opts {
		opt(&o)
	}
	logger := logging.OrNop(o.logger)

	var authorOpts []author.Option
	if o.assetsBaseURL != "" {
		authorOpts = append(authorOpts, author.WithAssetsBaseURL(o.assetsBaseURL))
	}
	sweep := o.sweepInterval
	if sweep <= 0 {
		sweep = defaultSweepInterval
	}

	s := &Session{
		logger:        logger,
		deadLetter:    o.deadLetter,
		logUnknown:    o.logUnknown,
		authors:       author.NewResolver(authorOpts...),
		badges:        author.NewBadgeRegistry(),
		cheermotes:    twitch.NewCheermoteRegistry(o.cheermotes...),
		emotes:        emotes.NewDictionary(),
		cache:         redemption.NewCache(redemption.WithTTL(o.ttl)),
		sink:          sink.New(append([]sink.Option{sink.WithLogger(logger.Named("sink"))}, o.sinkOpts...)...),
		sweepInterval: sweep,
		ready:         make(map[string]bool),
	}
	s.refresher = emotes.NewRefresher(s.emotes, o.providers, logger.Named("emotes"), o.emoteTimeout)
	s.twitch = twitch.NewExtractor(s.authors, s.badges, s.cheermotes, s.emotes)
	s.youtube = youtube.NewExtractor(s.authors, s.emotes)
	s.kick = kick.NewExtractor(s.authors, s.emotes)
	return s
}

// Sink returns the event sink finished events are published to.
func (s *Session) Sink() *sink.Sink { return s.sink }

// Subscribe is a shortcut for Sink().Subscribe.
func (s *Session) Subscribe(buffer int) (*sink.Subscription, error) {
	return s.sink.Subscribe(buffer)
}

// ChannelReady marks a channel as joined and schedules its shared emote
// refresh. Repeated calls for the same channel are ignored.
func (s *Session) ChannelReady(platform event.Platform, channelID, channelName string) {
	if channelID == "" {
		return
	}
	key := emotes.ChannelKey(platform, channelID)

	s.readyMu.Lock()
	seen := s.ready[key]
	s.ready[key] = true
	s.readyMu.Unlock()
	if seen {
		return
	}

	s.logger.Infof("Channel ready: %s (%s)", key, channelName)
	s.refresher.Refresh(platform, channelID)
}

// ReplaceBadges swaps the badge table used for Twitch badge tags.
func (s *Session) ReplaceBadges(entries map[string]event.Badge) {
	s.badges.Replace(entries)
	s.logger.Infof("Loaded %d badges", len(entries))
}

// ReplaceCheermotes swaps the known cheermote prefixes.
func (s *Session) ReplaceCheermotes(prefixes []string) {
	s.cheermotes.Replace(prefixes)
	s.logger.Infof("Loaded %d cheermote prefixes", len(prefixes))
}

// Run sweeps expired redemption halves until ctx is done. Fallback events
// are published like any other event.
func (s *Session) Run(ctx context.Context) error {
	return s.cache.Run(ctx, s.sweepInterval, s.emit)
}

// Flush publishes the fallback of every pending redemption half. Replays
// call it at end of input so nothing waits for a deadline.
func (s *Session) Flush() {
	for _, e := range s.cache.Flush() {
		s.emit(e)
	}
}

// Stats returns a snapshot of the session counters.
func (s *Session) Stats() Stats {
	rewards, messages := s.cache.Pending()
	global, channels := s.emotes.Size()
	s.readyMu.Lock()
	ready := len(s.ready)
	s.readyMu.Unlock()

	return Stats{
		Ingested:        s.ingested.Load(),
		Emitted:         s.emitted.Load(),
		ParseFailures:   s.parseFailures.Load(),
		Unknown:         s.unknown.Load(),
		Invalid:         s.invalid.Load(),
		PendingRewards:  rewards,
		PendingMessages: messages,
		ReadyChannels:   ready,
		GlobalEmotes:    global,
		EmoteChannels:   channels,
		Badges:          s.badges.Len(),
		Cheermotes:      s.cheermotes.Len(),
		Sink:            s.sink.Stats(),
	}
}

// Close stops background refreshes and closes the cache and the sink.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.refresher.Close()
		s.cache.Close()
		s.sink.Close()
	})
}

// emit validates e and publishes it.
func (s *Session) emit(e event.Event) {
	if err := event.Validate(e); err != nil {
		s.invalid.Add(1)
		s.logger.Warnf("Dropping invalid event: %v", err)
		return
	}
	if err := s.sink.Publish(e); err != nil {
		s.logger.Debugf("Event not published: %v", err)
		return
	}
	s.emitted.Add(1)
}
