// Package scheduler drives the fixed-interval polling loop over all monitored sources.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/aleister1102/piiwatch/internal/config"
	"github.com/aleister1102/piiwatch/internal/metrics"
	"github.com/aleister1102/piiwatch/internal/models"
	"github.com/aleister1102/piiwatch/internal/sources"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Remediator handles one item; an error never stops the batch
type Remediator interface {
	Remediate(ctx context.Context, item models.ContentItem, adapter sources.Adapter) (models.RemediationResult, error)
}

// PollRecorder keeps a history of per-source polls
type PollRecorder interface {
	RecordPoll(ctx context.Context, summary models.PollSummary) error
}

// Scheduler polls every source once per tick and hands new items to the remediator.
type Scheduler struct {
	logger      zerolog.Logger
	sources     []models.MonitoredSource
	adapters    map[models.SourceKind]sources.Adapter
	remediator  Remediator
	history     PollRecorder
	metrics     *metrics.Metrics
	interval    time.Duration
	lookback    time.Duration
	stopTimeout time.Duration
	now         func() time.Time

	ctx        context.Context
	cancelFunc context.CancelFunc
	done       chan struct{}
	active     bool
	state      Watermarks
	mu         sync.Mutex // guards active and state
}

// Option customizes a Scheduler
type Option func(*Scheduler)

// WithPollHistory records one summary per source and tick
func WithPollHistory(history PollRecorder) Option {
	return func(s *Scheduler) { s.history = history }
}

// WithMetrics instruments ticks and polls
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scheduler) { s.metrics = m }
}

// New creates a scheduler. Sources whose kind has no adapter are logged and skipped at tick time.
func New(
	cfg config.SchedulerConfig,
	monitored []models.MonitoredSource,
	adapters []sources.Adapter,
	remediator Remediator,
	logger zerolog.Logger,
	opts ...Option,
) *Scheduler {
	byKind := make(map[models.SourceKind]sources.Adapter, len(adapters))
	for _, a := range adapters {
		byKind[a.Kind()] = a
	}

	s := &Scheduler{
		logger:      logger.With().Str("component", "Scheduler").Logger(),
		sources:     monitored,
		adapters:    byKind,
		remediator:  remediator,
		interval:    cfg.Interval(),
		lookback:    cfg.InitialLookback(),
		stopTimeout: time.Duration(cfg.StopTimeoutSeconds) * time.Second,
		now:         time.Now,
		state:       make(Watermarks),
	}
	if s.interval <= 0 {
		s.interval = config.DefaultPollIntervalMs * time.Millisecond
	}
	if s.stopTimeout <= 0 {
		s.stopTimeout = config.DefaultStopTimeoutSeconds * time.Second
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Tick polls every source once and returns the updated watermarks. marks is not modified.
// A source's watermark advances to the tick start only after its whole batch was handled;
// on adapter failure it stays put so the same window is fetched again.
func (s *Scheduler) Tick(ctx context.Context, marks Watermarks) Watermarks {
	tickStart := s.now()
	tickID := uuid.NewString()
	next := marks.Clone()
	log := s.logger.With().Str("tick_id", tickID).Logger()

	for _, src := range s.sources {
		if ctx.Err() != nil {
			log.Info().Msg("Tick interrupted, remaining sources skipped")
			break
		}

		key := src.Key()
		since, seen := next[key]
		if !seen {
			since = tickStart.Add(-s.lookback)
			next[key] = since
		}

		count, err := s.pollSource(ctx, log, src, since)

		summary := models.PollSummary{
			TickID:      tickID,
			Source:      src,
			WindowStart: since,
			TickStart:   tickStart,
			ItemCount:   count,
			Status:      models.PollStatusCompleted,
		}
		if err != nil {
			summary.Status = models.PollStatusFailed
			summary.Error = err.Error()
			s.metrics.ObservePollError(string(src.Kind))
			log.Error().Err(err).Str("source", key).Time("since", since).Msg("Poll failed, watermark unchanged")
		} else {
			next.advance(key, tickStart)
		}
		s.recordPoll(ctx, summary)
	}

	finished := s.now()
	s.metrics.ObserveTick(finished.Sub(tickStart), finished)
	log.Debug().Dur("duration", finished.Sub(tickStart)).Int("sources", len(s.sources)).Msg("Tick completed")
	return next
}

var errInterrupted = errors.New("batch interrupted by shutdown")

// pollSource lists and remediates one source's new items in adapter order
func (s *Scheduler) pollSource(ctx context.Context, log zerolog.Logger, src models.MonitoredSource, since time.Time) (int, error) {
	adapter, ok := s.adapters[src.Kind]
	if !ok {
		return 0, errors.New("no adapter for source kind " + string(src.Kind))
	}

	items, err := adapter.ListNew(ctx, src, since)
	if err != nil {
		return 0, err
	}
	s.metrics.ObserveItems(string(src.Kind), len(items))
	if len(items) > 0 {
		log.Info().Str("source", src.Key()).Int("items", len(items)).Msg("Processing new items")
	}

	for i, item := range items {
		if ctx.Err() != nil {
			return i, errInterrupted
		}
		result, err := s.remediator.Remediate(ctx, item, adapter)
		if err != nil {
			log.Warn().Err(err).
				Str("source", src.Key()).
				Str("item_id", item.ID).
				Str("state", string(result.State)).
				Msg("Item remediation failed")
		}
	}
	return len(items), nil
}

// recordPoll keeps failed polls and polls that returned items. Empty polls happen every
// interval and are only visible in metrics.
func (s *Scheduler) recordPoll(ctx context.Context, summary models.PollSummary) {
	if s.history == nil {
		return
	}
	if summary.Status == models.PollStatusCompleted && summary.ItemCount == 0 {
		return
	}
	// history is written even while shutting down
	if err := s.history.RecordPoll(context.WithoutCancel(ctx), summary); err != nil {
		s.logger.Warn().Err(err).Str("source", summary.Source.Key()).Msg("Failed to record poll history")
	}
}

// Watermarks returns a copy of the loop's current watermarks
func (s *Scheduler) Watermarks() Watermarks {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Start runs a first tick immediately, then one tick every interval after the previous one
// finished.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	if s.active {
		s.mu.Unlock()
		s.logger.Warn().Msg("Scheduler already active")
		return nil
	}
	s.active = true
	s.ctx, s.cancelFunc = context.WithCancel(context.Background())
	s.done = make(chan struct{})
	s.mu.Unlock()

	s.logger.Info().
		Dur("interval", s.interval).
		Int("sources", len(s.sources)).
		Msg("Starting scheduler")

	go s.loop()
	return nil
}

func (s *Scheduler) loop() {
	timer := time.NewTimer(0)
	defer func() {
		timer.Stop()
		s.mu.Lock()
		s.active = false
		s.mu.Unlock()
		close(s.done)
		s.logger.Info().Msg("Scheduler loop stopped")
	}()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-timer.C:
			marks := s.Watermarks()
			marks = s.Tick(s.ctx, marks)

			s.mu.Lock()
			s.state = marks
			s.mu.Unlock()

			timer.Reset(s.interval)
		}
	}
}

// Stop cancels the loop and waits up to the stop timeout for the current tick to wind down.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		s.logger.Info().Msg("Scheduler was not active")
		return
	}
	cancel, done := s.cancelFunc, s.done
	s.mu.Unlock()

	s.logger.Info().Msg("Stopping scheduler...")
	cancel()

	select {
	case <-done:
		s.logger.Info().Msg("Scheduler stopped successfully")
	case <-time.After(s.stopTimeout):
		s.logger.Warn().Dur("timeout", s.stopTimeout).Msg("Scheduler did not stop within the timeout")
	}
}
