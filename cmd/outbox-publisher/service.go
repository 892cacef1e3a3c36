package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/registry"
)

const (
	relayName             = "outbox-publisher"
	defaultBatchSize      = 50
	defaultPollMs         = 500
	defaultPublishTimeout = 15 * time.Second
	defaultMaxAttempts    = 10
	maxBackoff            = 10 * time.Second
	jitterWindow          = 250 * time.Millisecond
)

var jitterSource = rand.New(rand.NewSource(time.Now().UnixNano()))

type dbPinger interface {
	Ping(context.Context) error
}

type streamClient interface {
	Ping(context.Context) error
	XAdd(ctx context.Context, stream string, values map[string]any, maxLen int64) (string, error)
	StreamKey(name string) string
}

type outboxRepository interface {
	FetchUnpublished(ctx context.Context, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublished(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, err error) error
	MarkTerminal(ctx context.Context, id uuid.UUID, err error, maxAttempts int) error
}

type registryResolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

type relayGuard interface {
	Claim(ctx context.Context, relay string, eventID uuid.UUID) (bool, error)
	Release(ctx context.Context, relay string, eventID uuid.UUID) error
}

type ServiceParams struct {
	Config     *config.Config
	Logger     *logger.Logger
	DB         dbPinger
	Streams    streamClient
	Repository outboxRepository
	Registry   registryResolver
	Guard      relayGuard
}

// Service copies pending outbox rows onto redis streams.
type Service struct {
	logg         *logger.Logger
	db           dbPinger
	streams      streamClient
	repo         outboxRepository
	registry     registryResolver
	guard        relayGuard
	batchSize    int
	maxAttempts  int
	maxLen       int64
	pollInterval time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Config == nil {
		return nil, errors.New("config is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.DB == nil {
		return nil, errors.New("database client is required")
	}
	if params.Streams == nil {
		return nil, errors.New("stream client is required")
	}
	if params.Repository == nil {
		return nil, errors.New("outbox repository is required")
	}
	if params.Registry == nil {
		return nil, errors.New("event registry is required")
	}

	cfg := params.Config.Outbox
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	pollMs := cfg.PollIntervalMS
	if pollMs <= 0 {
		pollMs = defaultPollMs
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	return &Service{
		logg:         params.Logger,
		db:           params.DB,
		streams:      params.Streams,
		repo:         params.Repository,
		registry:     params.Registry,
		guard:        params.Guard,
		batchSize:    batch,
		maxAttempts:  maxAttempts,
		maxLen:       cfg.StreamMaxLen,
		pollInterval: time.Duration(pollMs) * time.Millisecond,
	}, nil
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	if err := pingDependency(ctx, s.logg, "database", s.db.Ping); err != nil {
		return err
	}
	return pingDependency(ctx, s.logg, "redis", s.streams.Ping)
}

func pingDependency(ctx context.Context, logg *logger.Logger, name string, fn func(context.Context) error) error {
	if err := fn(ctx); err != nil {
		logg.Error(ctx, fmt.Sprintf("%s ping failed", name), err)
		return fmt.Errorf("%s ping failed: %w", name, err)
	}
	return nil
}

func (s *Service) Run(ctx context.Context) error {
	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}

	interval := s.pollInterval
	backoff := interval

	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "outbox publisher context canceled")
			return ctx.Err()
		default:
		}

		result, err := s.processBatch(ctx)
		if err != nil {
			s.logg.Error(ctx, "outbox publisher batch error", err)
			backoff = nextBackoff(backoff, interval, maxBackoff)
			if err := s.sleep(ctx, withJitter(backoff)); err != nil {
				return err
			}
			continue
		}

		if result.stalled() {
			// Nothing left the pending set; back off before the same rows are served again.
			backoff = nextBackoff(backoff, interval, maxBackoff)
			s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
				"fetched":    result.fetched,
				"backoff_ms": backoff.Milliseconds(),
			}), "outbox batch made no progress")
			if err := s.sleep(ctx, withJitter(backoff)); err != nil {
				return err
			}
			continue
		}

		backoff = interval

		if result.progressed > 0 {
			continue
		}

		if err := s.sleep(ctx, withJitter(interval)); err != nil {
			return err
		}
	}
}

// batchResult counts fetched rows and the rows that left the pending set,
// either published or marked terminal.
type batchResult struct {
	fetched    int
	progressed int
}

func (r batchResult) stalled() bool {
	return r.fetched > 0 && r.progressed == 0
}

// processBatch relays one batch. Per-row publish failures are recorded on the
// row; only bookkeeping failures abort the batch.
func (s *Service) processBatch(ctx context.Context) (batchResult, error) {
	events, err := s.repo.FetchUnpublished(ctx, s.batchSize, s.maxAttempts)
	if err != nil {
		return batchResult{}, err
	}
	result := batchResult{fetched: len(events)}

	for _, event := range events {
		done, err := s.relay(ctx, event)
		if done {
			result.progressed++
		}
		if err != nil {
			return result, err
		}
	}
	return result, nil
}

// relay reports whether the row left the pending set.
func (s *Service) relay(ctx context.Context, event models.OutboxEvent) (bool, error) {
	resolved, err := s.registry.Resolve(event)
	if err != nil {
		return s.handleTerminal(ctx, event, err, s.eventFields(event, outbox.PayloadEnvelope{}, ""))
	}

	stream := resolved.Descriptor.Stream
	fields := s.eventFields(event, resolved.Envelope, stream)
	eventID := envelopeID(event, resolved.Envelope)

	if s.guard != nil {
		already, err := s.guard.Claim(ctx, relayName, eventID)
		if err != nil {
			return s.handleRetryable(ctx, event, fmt.Errorf("claim relay marker: %w", err), fields)
		}
		if already {
			s.logg.Info(s.logg.WithFields(ctx, fields), "outbox event already relayed")
			if err := s.repo.MarkPublished(ctx, event.ID); err != nil {
				return false, fmt.Errorf("mark published %s: %w", event.ID, err)
			}
			return true, nil
		}
	}

	entryID, err := s.publish(ctx, event, resolved)
	if err != nil {
		if s.guard != nil {
			if releaseErr := s.guard.Release(ctx, relayName, eventID); releaseErr != nil {
				s.logg.Warn(s.logg.WithField(ctx, "error", releaseErr.Error()), "relay marker release failed")
			}
		}
		return s.handleRetryable(ctx, event, err, fields)
	}

	if err := s.repo.MarkPublished(ctx, event.ID); err != nil {
		// The entry is on the stream; the row still counts as progress.
		return true, fmt.Errorf("mark published %s: %w", event.ID, err)
	}
	fields["stream_entry_id"] = entryID
	s.logg.Info(s.logg.WithFields(ctx, fields), "outbox event published")
	return true, nil
}

func (s *Service) publish(ctx context.Context, event models.OutboxEvent, resolved *registry.ResolvedEvent) (string, error) {
	values := map[string]any{
		"event_id":       resolved.Envelope.EventID,
		"event_type":     string(event.EventType),
		"aggregate_type": string(event.AggregateType),
		"aggregate_id":   event.AggregateID.String(),
		"occurred_at":    resolved.Envelope.OccurredAt.Format(time.RFC3339Nano),
		"payload":        string(event.Payload),
	}

	publishCtx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
	defer cancel()
	return s.streams.XAdd(publishCtx, s.streams.StreamKey(resolved.Descriptor.Stream), values, s.maxLen)
}

func (s *Service) handleRetryable(ctx context.Context, event models.OutboxEvent, err error, fields map[string]any) (bool, error) {
	nextAttempt := event.AttemptCount + 1
	fields["attempt_count"] = nextAttempt
	if nextAttempt >= s.maxAttempts {
		fields["terminal_reason"] = "max_attempts"
		return s.handleTerminal(ctx, event, fmt.Errorf("max publish attempts reached: %w", err), fields)
	}

	logCtx := s.logg.WithFields(ctx, fields)
	logCtx = s.logg.WithField(logCtx, "error", err.Error())
	s.logg.Warn(logCtx, "outbox publish failed")
	if markErr := s.repo.MarkFailed(ctx, event.ID, err); markErr != nil {
		return false, fmt.Errorf("mark failure %s: %w", event.ID, markErr)
	}
	return false, nil
}

func (s *Service) handleTerminal(ctx context.Context, event models.OutboxEvent, err error, fields map[string]any) (bool, error) {
	logCtx := s.logg.WithFields(ctx, fields)
	logCtx = s.logg.WithField(logCtx, "error", err.Error())
	s.logg.Warn(logCtx, "outbox event will not be retried")

	if markErr := s.repo.MarkTerminal(ctx, event.ID, err, s.maxAttempts); markErr != nil {
		return false, fmt.Errorf("mark terminal %s: %w", event.ID, markErr)
	}
	return true, nil
}

func (s *Service) eventFields(event models.OutboxEvent, envelope outbox.PayloadEnvelope, stream string) map[string]any {
	fields := map[string]any{
		"outbox_id":      event.ID.String(),
		"event_type":     event.EventType,
		"aggregate_type": event.AggregateType,
		"aggregate_id":   event.AggregateID.String(),
		"batch_size":     s.batchSize,
		"attempt_count":  event.AttemptCount,
	}
	if envelope.EventID != "" {
		fields["event_id"] = envelope.EventID
		fields["occurred_at"] = envelope.OccurredAt.Format(time.RFC3339Nano)
	}
	if stream != "" {
		fields["stream"] = stream
	}
	if event.LastError != nil {
		fields["last_error"] = *event.LastError
	}
	return fields
}

// envelopeID prefers the envelope event ID and falls back to the row ID.
func envelopeID(event models.OutboxEvent, envelope outbox.PayloadEnvelope) uuid.UUID {
	if id, err := uuid.Parse(envelope.EventID); err == nil {
		return id
	}
	return event.ID
}

func (s *Service) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func nextBackoff(current, base, max time.Duration) time.Duration {
	if current <= 0 {
		current = base
	}
	next := current * 2
	if next > max {
		return max
	}
	return next
}

func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d + time.Duration(jitterSource.Int63n(int64(jitterWindow)))
}
