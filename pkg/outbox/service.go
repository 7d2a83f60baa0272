// Package outbox records integration events in the same transaction as the
// state change that caused them. cmd/outbox-publisher relays the rows to
// Pub/Sub afterwards.
package outbox

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/wishlist-backend/pkg/logger"
)

type Writer struct {
	repo *Repository
	logg *logger.Logger
	now  func() time.Time
}

func NewWriter(repo *Repository, logg *logger.Logger) *Writer {
	return &Writer{repo: repo, logg: logg, now: func() time.Time { return time.Now().UTC() }}
}

// Emit inserts event through tx, so it commits or rolls back with the caller.
func (w *Writer) Emit(ctx context.Context, tx *gorm.DB, event Event) error {
	if tx == nil {
		return errors.New("outbox: emit needs the caller's transaction")
	}
	row, env, err := seal(event, w.now())
	if err != nil {
		return err
	}
	if err := w.repo.Insert(tx, row); err != nil {
		return err
	}
	if w.logg != nil {
		w.logg.Debug(w.logg.WithFields(ctx, map[string]any{
			"event_id":     env.EventID,
			"event_type":   event.Type,
			"aggregate_id": event.AggregateID.String(),
		}), "outbox.queued")
	}
	return nil
}
