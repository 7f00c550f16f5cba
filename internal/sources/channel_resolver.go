package sources

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/aleister1102/piiwatch/internal/common"
	"github.com/aleister1102/piiwatch/internal/metrics"
	"github.com/aleister1102/piiwatch/internal/slack"
	"github.com/rs/zerolog"
)

// ChannelLister lists the channels visible to the bot
type ChannelLister interface {
	ListChannels(ctx context.Context) ([]slack.Channel, error)
}

type channelEntry struct {
	id        string
	expiresAt time.Time
}

// ChannelResolver maps configured channel names to ids. Only successful lookups are cached,
// so a channel created after a miss is found on the next attempt.
type ChannelResolver struct {
	lister  ChannelLister
	ttl     time.Duration
	now     func() time.Time
	metrics *metrics.Metrics
	logger  zerolog.Logger

	mu    sync.Mutex
	cache map[string]channelEntry
}

// NewChannelResolver creates a resolver caching names for ttl
func NewChannelResolver(lister ChannelLister, ttl time.Duration, m *metrics.Metrics, logger zerolog.Logger) *ChannelResolver {
	return &ChannelResolver{
		lister:  lister,
		ttl:     ttl,
		now:     time.Now,
		metrics: m,
		logger:  logger.With().Str("component", "ChannelResolver").Logger(),
		cache:   make(map[string]channelEntry),
	}
}

// NormalizeChannelName strips surrounding space and a leading '#'
func NormalizeChannelName(name string) string {
	return strings.TrimPrefix(strings.TrimSpace(name), "#")
}

// Resolve returns the id of the channel named name. Unknown names yield an error
// wrapping common.ErrNotFound.
func (r *ChannelResolver) Resolve(ctx context.Context, name string) (string, error) {
	name = NormalizeChannelName(name)

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if entry, ok := r.cache[name]; ok && now.Before(entry.expiresAt) {
		return entry.id, nil
	}

	channels, err := r.lister.ListChannels(ctx)
	if err != nil {
		return "", common.WrapError(err, "list channels")
	}

	// refresh every name seen, not just the one asked for
	expiresAt := now.Add(r.ttl)
	for _, ch := range channels {
		r.cache[ch.Name] = channelEntry{id: ch.ID, expiresAt: expiresAt}
	}

	if entry, ok := r.cache[name]; ok && entry.expiresAt.Equal(expiresAt) {
		return entry.id, nil
	}

	delete(r.cache, name)
	r.metrics.ObserveUnresolvedChannel()
	r.logger.Warn().Str("channel", name).Msg("Channel not found, skipping it this tick")
	return "", common.WrapErrorf(common.ErrNotFound, "channel %q", name)
}
