// Package remediation decides whether an item contains PII and, if so, removes it and tells
// its author.
package remediation

import (
	"context"
	"time"

	"github.com/aleister1102/piiwatch/internal/attachments"
	"github.com/aleister1102/piiwatch/internal/config"
	"github.com/aleister1102/piiwatch/internal/identity"
	"github.com/aleister1102/piiwatch/internal/metrics"
	"github.com/aleister1102/piiwatch/internal/models"
	"github.com/aleister1102/piiwatch/internal/sources"
	"github.com/rs/zerolog"
)

// Classifier renders one verdict per call. Errors are never verdicts.
type Classifier interface {
	ClassifyText(ctx context.Context, text string) (bool, error)
	ClassifyImage(ctx context.Context, data []byte, mediaType string) (bool, error)
	ClassifyDocument(ctx context.Context, text string) (bool, error)
}

// Extractor turns a downloadable attachment into classifiable content
type Extractor interface {
	Extract(ctx context.Context, fetch attachments.Fetcher, att models.Attachment) (attachments.Content, error)
}

// IdentityResolver finds the DM-able identity of an item's author
type IdentityResolver interface {
	Resolve(ctx context.Context, item models.ContentItem, emails identity.EmailResolver) (models.AuthorIdentity, error)
}

// Messenger delivers the private notice to the author
type Messenger interface {
	SendMessage(ctx context.Context, channel, text string) error
}

// AuditRecorder persists remediation attempts
type AuditRecorder interface {
	RecordRemediation(ctx context.Context, event models.RemediationEvent) error
}

// OpsNotifier alerts operators about remediation attempts
type OpsNotifier interface {
	NotifyRemediation(ctx context.Context, event models.RemediationEvent)
}

// Engine runs the classify, resolve, remove, notify sequence for one item at a time
type Engine struct {
	classifier     Classifier
	extractor      Extractor
	identity       IdentityResolver
	messenger      Messenger
	audit          AuditRecorder
	ops            OpsNotifier
	metrics        *metrics.Metrics
	maxQuotedChars int
	now            func() time.Time
	logger         zerolog.Logger
}

// Option customizes an Engine
type Option func(*Engine)

// WithAudit records every positive item's outcome
func WithAudit(audit AuditRecorder) Option {
	return func(e *Engine) { e.audit = audit }
}

// WithOpsNotifier forwards outcomes to operators
func WithOpsNotifier(ops OpsNotifier) Option {
	return func(e *Engine) { e.ops = ops }
}

// WithMetrics counts outcomes
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// NewEngine creates an engine
func NewEngine(
	classifier Classifier,
	extractor Extractor,
	resolver IdentityResolver,
	messenger Messenger,
	cfg config.RemediationConfig,
	logger zerolog.Logger,
	opts ...Option,
) *Engine {
	maxQuoted := cfg.MaxQuotedChars
	if maxQuoted <= 0 {
		maxQuoted = config.DefaultRemediationMaxQuotedChars
	}
	e := &Engine{
		classifier:     classifier,
		extractor:      extractor,
		identity:       resolver,
		messenger:      messenger,
		maxQuotedChars: maxQuoted,
		now:            time.Now,
		logger:         logger.With().Str("component", "RemediationEngine").Logger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Remediate evaluates item and, on a positive verdict, removes it through adapter and notifies
// its author. Identity failure leaves the item in place; notification failure does not undo
// the removal. The returned error, if any, explains an OutcomeError result.
func (e *Engine) Remediate(ctx context.Context, item models.ContentItem, adapter sources.Adapter) (models.RemediationResult, error) {
	log := e.logger.With().
		Str("source", item.SourceID).
		Str("source_kind", string(adapter.Kind())).
		Str("item_id", item.ID).
		Logger()

	verdict := e.Evaluate(ctx, item, adapter)
	if !verdict.ContainsPII {
		result := models.RemediationResult{Outcome: models.OutcomeNoAction, State: models.StateClassifiedNegative}
		e.metrics.ObserveRemediation(string(adapter.Kind()), string(result.Outcome), string(result.State))
		log.Debug().Int("calls", verdict.Calls).Int("failed_calls", verdict.FailedCalls).Msg("No PII found")
		return result, nil
	}
	log.Info().Int("calls", verdict.Calls).Msg("PII detected")

	author, err := e.identity.Resolve(ctx, item, adapter)
	if err != nil {
		log.Error().Err(err).Str("author_id", item.AuthorID).Msg("Could not resolve author, leaving item in place")
		return e.finish(ctx, item, adapter, models.StateIdentityFailed, err)
	}

	if err := adapter.Remove(ctx, item); err != nil {
		log.Error().Err(err).Msg("Failed to remove item, author not notified")
		return e.finish(ctx, item, adapter, models.StateRemovalFailed, err)
	}
	log.Info().Msg("Item removed")

	if err := e.messenger.SendMessage(ctx, author.DMChannel, BuildNotice(item, e.maxQuotedChars)); err != nil {
		log.Error().Err(err).Str("user_id", author.UserID).Msg("Failed to notify author, removal is kept")
		return e.finish(ctx, item, adapter, models.StateNotifyFailed, err)
	}
	log.Info().Str("user_id", author.UserID).Msg("Author notified")

	return e.finish(ctx, item, adapter, models.StateNotified, nil)
}

func (e *Engine) finish(ctx context.Context, item models.ContentItem, adapter sources.Adapter, state models.ItemState, cause error) (models.RemediationResult, error) {
	result := models.RemediationResult{Outcome: models.OutcomeProcessed, State: state}
	if cause != nil {
		result.Outcome = models.OutcomeError
	}
	e.metrics.ObserveRemediation(string(adapter.Kind()), string(result.Outcome), string(result.State))

	event := models.RemediationEvent{
		Source:     models.MonitoredSource{ID: item.SourceID, Name: item.SourceID, Kind: adapter.Kind()},
		ItemID:     item.ID,
		AuthorID:   item.AuthorID,
		Result:     result,
		OccurredAt: e.now(),
	}
	if cause != nil {
		event.Error = cause.Error()
	}

	if e.audit != nil {
		if err := e.audit.RecordRemediation(ctx, event); err != nil {
			e.logger.Warn().Err(err).Str("item_id", item.ID).Msg("Failed to write audit record")
		}
	}
	if e.ops != nil {
		e.ops.NotifyRemediation(ctx, event)
	}
	return result, cause
}
