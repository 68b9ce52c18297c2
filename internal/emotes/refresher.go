package emotes

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/voguh/unichat-sub000/internal/event"
	"github.com/voguh/unichat-sub000/internal/logging"
)

const defaultRefreshTimeout = 15 * time.Second

// Refresher fills a Dictionary from providers. Refresh never blocks the
// caller; lookups keep serving the previous contents until a fetch lands.
type Refresher struct {
	dict      *Dictionary
	providers []Provider
	logger    *zap.SugaredLogger
	timeout   time.Duration

	group  singleflight.Group
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// NewRefresher creates a refresher. Providers are merged in slice order.
func NewRefresher(dict *Dictionary, providers []Provider, logger *zap.SugaredLogger, timeout time.Duration) *Refresher {
	if timeout <= 0 {
		timeout = defaultRefreshTimeout
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Refresher{
		dict:      dict,
		providers: providers,
		logger:    logging.OrNop(logger),
		timeout:   timeout,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Refresh schedules a background refresh for a channel that just became
// ready. Concurrent calls for the same channel share one fetch.
func (r *Refresher) Refresh(platform event.Platform, channelID string) {
	key := ChannelKey(platform, channelID)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		_, err, _ := r.group.Do(key, func() (any, error) {
			return nil, r.RefreshSync(r.ctx, platform, channelID)
		})
		if err != nil {
			r.logger.Warnf("Shared emote refresh for %s incomplete: %v", key, err)
		}
	}()
}

// RefreshSync fetches the global tier (only while it is empty) and the
// channel tier. Each provider gets its own timeout; a provider that fails or
// times out contributes an empty set and the others are still stored. The
// returned error is ctx's, if it ended before the fetches did.
func (r *Refresher) RefreshSync(ctx context.Context, platform event.Platform, channelID string) error {
	if !r.dict.HasGlobal() {
		sets := r.fetchAll(ctx, func(ctx context.Context, p Provider) ([]event.Emote, error) {
			return p.Global(ctx)
		})
		r.dict.SetGlobal(sets...)
		r.logger.Infof("Loaded global shared emotes from %d providers", len(r.providers))
	}

	sets := r.fetchAll(ctx, func(ctx context.Context, p Provider) ([]event.Emote, error) {
		return p.Channel(ctx, platform, channelID)
	})
	key := ChannelKey(platform, channelID)
	r.dict.SetChannel(key, sets...)
	r.logger.Infof("Loaded shared emotes for channel %s", key)
	return ctx.Err()
}

// fetchAll runs fetch for every provider concurrently and returns the sets
// in provider order, whatever order the fetches finish in.
func (r *Refresher) fetchAll(ctx context.Context, fetch func(context.Context, Provider) ([]event.Emote, error)) [][]event.Emote {
	sets := make([][]event.Emote, len(r.providers))
	var eg errgroup.Group
	for i, p := range r.providers {
		eg.Go(func() error {
			pctx, cancel := context.WithTimeout(ctx, r.timeout)
			defer cancel()
			emotes, err := fetch(pctx, p)
			if err != nil {
				r.logger.Warnf("Shared emote provider %s failed: %v", p.Name(), err)
				return nil
			}
			sets[i] = emotes
			return nil
		})
	}
	_ = eg.Wait()
	return sets
}

// Close cancels in-flight fetches and waits for them to return.
func (r *Refresher) Close() {
	r.cancel()
	r.wg.Wait()
}
