// Package notifications queues user-facing notices for asynchronous delivery.
// Rows are written to the outbox inside the caller's transaction and relayed
// by cmd/outbox-publisher; delivery itself happens outside this service.
package notifications

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/wishlist-backend/pkg/enums"
	"github.com/angelmondragon/wishlist-backend/pkg/outbox"
)

type emitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.Event) error
}

// WelcomeEmail is the payload of a welcome_email_requested event.
type WelcomeEmail struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
}

// AccountChangeNotice is the payload of an account_change_notice_requested event.
type AccountChangeNotice struct {
	Email   string   `json:"email"`
	Login   string   `json:"login"`
	Changed []string `json:"changed"`
}

// ProductContributed is the payload of a product_contributed event.
type ProductContributed struct {
	ProductID uuid.UUID `json:"product_id"`
	Slug      string    `json:"slug"`
	Login     string    `json:"login"`
}

type Enqueuer struct {
	outbox emitter
}

func NewEnqueuer(outbox emitter) (*Enqueuer, error) {
	if outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &Enqueuer{outbox: outbox}, nil
}

func (e *Enqueuer) EnqueueWelcomeEmail(ctx context.Context, tx *gorm.DB, userID uuid.UUID, email, firstName string) error {
	return e.outbox.Emit(ctx, tx, outbox.Event{
		Type:        enums.EventWelcomeEmailRequested,
		Aggregate:   enums.AggregateUser,
		AggregateID: userID,
		Data: WelcomeEmail{
			Email:     strings.TrimSpace(email),
			FirstName: strings.TrimSpace(firstName),
		},
	})
}

// EnqueueAccountChangeNotice is a no-op when nothing changed.
func (e *Enqueuer) EnqueueAccountChangeNotice(ctx context.Context, tx *gorm.DB, userID uuid.UUID, email, login string, changed []string) error {
	if len(changed) == 0 {
		return nil
	}
	return e.outbox.Emit(ctx, tx, outbox.Event{
		Type:        enums.EventAccountChangeNoticeRequested,
		Aggregate:   enums.AggregateUser,
		AggregateID: userID,
		Actor:       &outbox.ActorRef{UserID: userID, Login: login},
		Data: AccountChangeNotice{
			Email:   email,
			Login:   login,
			Changed: changed,
		},
	})
}

func (e *Enqueuer) EnqueueProductContributed(ctx context.Context, tx *gorm.DB, actorID uuid.UUID, login string, productID uuid.UUID, slug string) error {
	return e.outbox.Emit(ctx, tx, outbox.Event{
		Type:        enums.EventProductContributed,
		Aggregate:   enums.AggregateProduct,
		AggregateID: productID,
		Actor:       &outbox.ActorRef{UserID: actorID, Login: login},
		Data: ProductContributed{
			ProductID: productID,
			Slug:      slug,
			Login:     login,
		},
	})
}
