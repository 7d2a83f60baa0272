package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/wishlist-backend/pkg/config"
	"github.com/angelmondragon/wishlist-backend/pkg/db/models"
	"github.com/angelmondragon/wishlist-backend/pkg/logger"
	"github.com/angelmondragon/wishlist-backend/pkg/metrics"
	"github.com/angelmondragon/wishlist-backend/pkg/outbox"
)

const (
	failureCeiling = 10 * time.Second
	maxJitter      = 250 * time.Millisecond
)

// errUndeliverable marks rows whose payload can never be published.
var errUndeliverable = errors.New("undeliverable outbox row")

type txRunner interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

// broker delivers one message and waits for it to be acknowledged.
type broker interface {
	Ping(context.Context) error
	Send(ctx context.Context, data []byte, attrs map[string]string) error
}

type eventStore interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type RelayDeps struct {
	Logger  *logger.Logger
	DB      txRunner
	Broker  broker
	Store   eventStore
	Metrics *metrics.PublisherMetrics
}

type verdict int

const (
	delivered verdict = iota
	retrying
	parked
)

// Relay moves committed outbox rows onto the notification topic. Each batch is
// read under SKIP LOCKED inside one transaction, so several relays can run.
type Relay struct {
	logg        *logger.Logger
	db          txRunner
	broker      broker
	store       eventStore
	metrics     *metrics.PublisherMetrics
	batchSize   int
	maxAttempts int
	pace        *pacer
}

func NewRelay(cfg config.OutboxConfig, deps RelayDeps) (*Relay, error) {
	switch {
	case deps.Logger == nil:
		return nil, errors.New("logger is required")
	case deps.DB == nil:
		return nil, errors.New("database client is required")
	case deps.Broker == nil:
		return nil, errors.New("pubsub client is required")
	case deps.Store == nil:
		return nil, errors.New("outbox repository is required")
	}

	return &Relay{
		logg:        deps.Logger,
		db:          deps.DB,
		broker:      deps.Broker,
		store:       deps.Store,
		metrics:     deps.Metrics,
		batchSize:   positiveOr(cfg.BatchSize, 50),
		maxAttempts: positiveOr(cfg.MaxAttempts, 10),
		pace:        newPacer(cfg.PollInterval, failureCeiling),
	}, nil
}

// Run drains batches back to back while rows are waiting, idles when the table
// is empty and backs off exponentially after batch errors.
func (r *Relay) Run(ctx context.Context) error {
	deps := []struct {
		name string
		ping func(context.Context) error
	}{{"database", r.db.Ping}, {"pubsub", r.broker.Ping}}
	for _, dep := range deps {
		if err := dep.ping(ctx); err != nil {
			return fmt.Errorf("%s ping failed: %w", dep.name, err)
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			r.logg.Info(ctx, "outbox relay stopping")
			return err
		}

		n, err := r.drain(ctx)
		var wait time.Duration
		switch {
		case err != nil:
			r.logg.Error(ctx, "outbox batch failed", err)
			wait = r.pace.failed()
		case n > 0:
			r.pace.reset()
			continue
		default:
			r.pace.reset()
			wait = r.pace.idle()
		}
		if err := pause(ctx, wait); err != nil {
			return err
		}
	}
}

// drain handles one batch and returns how many rows it looked at. A row that
// fails to publish is recorded and the batch moves on.
func (r *Relay) drain(ctx context.Context) (int, error) {
	started := time.Now()
	var seen int
	err := r.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := r.store.FetchUnpublishedForPublish(tx, r.batchSize, r.maxAttempts)
		if err != nil {
			return fmt.Errorf("fetch outbox rows: %w", err)
		}
		seen = len(rows)
		for _, row := range rows {
			v, cause := r.deliver(ctx, row)
			if err := r.record(ctx, tx, row, v, cause); err != nil {
				return err
			}
		}
		return nil
	})
	if seen > 0 {
		r.metrics.ObserveBatch(time.Since(started))
	}
	return seen, err
}

func (r *Relay) deliver(ctx context.Context, row models.OutboxEvent) (verdict, error) {
	env, err := openEnvelope(row)
	if err != nil {
		return parked, err
	}
	if err := r.broker.Send(ctx, row.Payload, attributesFor(row, env)); err != nil {
		if row.AttemptCount+1 >= r.maxAttempts {
			return parked, fmt.Errorf("giving up after %d attempts: %w", row.AttemptCount+1, err)
		}
		return retrying, err
	}
	return delivered, nil
}

func (r *Relay) record(ctx context.Context, tx *gorm.DB, row models.OutboxEvent, v verdict, cause error) error {
	eventType := string(row.EventType)
	fields := map[string]any{
		"outbox_id":     row.ID.String(),
		"event_type":    eventType,
		"aggregate_id":  row.AggregateID.String(),
		"attempt_count": row.AttemptCount,
	}

	switch v {
	case delivered:
		if err := r.store.MarkPublishedTx(tx, row.ID); err != nil {
			return fmt.Errorf("mark published %s: %w", row.ID, err)
		}
		r.metrics.IncPublished(eventType)
		r.logg.Debug(r.logg.WithFields(ctx, fields), "outbox event published")
	case retrying:
		r.metrics.IncFailed(eventType)
		fields["error"] = cause.Error()
		r.logg.Warn(r.logg.WithFields(ctx, fields), "outbox publish failed, will retry")
		if err := r.store.MarkFailedTx(tx, row.ID, cause); err != nil {
			return fmt.Errorf("mark failed %s: %w", row.ID, err)
		}
	case parked:
		r.metrics.IncFailed(eventType)
		fields["error"] = cause.Error()
		r.logg.Warn(r.logg.WithFields(ctx, fields), "outbox event parked")
		if err := r.store.MarkTerminalTx(tx, row.ID, cause, r.maxAttempts); err != nil {
			return fmt.Errorf("park %s: %w", row.ID, err)
		}
	}
	return nil
}

func openEnvelope(row models.OutboxEvent) (outbox.Envelope, error) {
	if !row.EventType.IsValid() {
		return outbox.Envelope{}, fmt.Errorf("%w: unknown event type %q", errUndeliverable, row.EventType)
	}
	env, err := outbox.Open(row.Payload)
	if err != nil {
		return outbox.Envelope{}, fmt.Errorf("%w: %v", errUndeliverable, err)
	}
	return env, nil
}

// attributesFor lets subscribers filter and dedupe without decoding the body.
func attributesFor(row models.OutboxEvent, env outbox.Envelope) map[string]string {
	return map[string]string{
		"event_id":       env.EventID,
		"event_type":     string(row.EventType),
		"aggregate_type": string(row.AggregateType),
		"aggregate_id":   row.AggregateID.String(),
		"occurred_at":    env.OccurredAt.UTC().Format(time.RFC3339Nano),
	}
}

// pacer spaces out polls: the base interval when idle, doubling up to ceiling
// after consecutive failures, always with a little jitter.
type pacer struct {
	base    time.Duration
	ceiling time.Duration
	current time.Duration
	rnd     *rand.Rand
}

func newPacer(base, ceiling time.Duration) *pacer {
	if base <= 0 {
		base = 500 * time.Millisecond
	}
	return &pacer{base: base, ceiling: ceiling, current: base, rnd: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (p *pacer) reset() { p.current = p.base }

func (p *pacer) idle() time.Duration { return p.base + p.jitter() }

func (p *pacer) failed() time.Duration {
	p.current = min(p.current*2, p.ceiling)
	return p.current + p.jitter()
}

func (p *pacer) jitter() time.Duration {
	if p.rnd == nil {
		return 0
	}
	return time.Duration(p.rnd.Int63n(int64(maxJitter)))
}

func pause(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func positiveOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}
