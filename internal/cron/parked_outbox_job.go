package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/wishlist-backend/pkg/logger"
)

type parkedCounter interface {
	CountParked(ctx context.Context, maxAttempts int) (int64, error)
}

// NewParkedOutboxJob warns when rows have exhausted their publish attempts.
// Parked rows need an operator; the publisher will not pick them up again.
func NewParkedOutboxJob(logg *logger.Logger, repo parkedCounter, maxAttempts int) (Job, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if repo == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	if maxAttempts <= 0 {
		return nil, fmt.Errorf("max attempts must be positive")
	}
	return &parkedOutboxJob{logg: logg, repo: repo, maxAttempts: maxAttempts}, nil
}

type parkedOutboxJob struct {
	logg        *logger.Logger
	repo        parkedCounter
	maxAttempts int
}

func (j *parkedOutboxJob) Name() string { return "outbox-parked" }

// Run reports zero rows affected; it only inspects.
func (j *parkedOutboxJob) Run(ctx context.Context) (int64, error) {
	parked, err := j.repo.CountParked(ctx, j.maxAttempts)
	if err != nil {
		return 0, fmt.Errorf("count parked outbox rows: %w", err)
	}
	if parked > 0 {
		j.logg.Warn(j.logg.WithField(ctx, "parked", parked), "cron.outbox_parked_rows")
	}
	return 0, nil
}
