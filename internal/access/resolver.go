package access

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/wishlist-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/wishlist-backend/pkg/errors"
)

type userLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Resolver turns the authenticated user id carried by a request into an Actor.
// The login is read fresh on every call so a rename takes effect immediately.
type Resolver struct {
	users userLoader
}

func NewResolver(users userLoader) (*Resolver, error) {
	if users == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "user loader is required")
	}
	return &Resolver{users: users}, nil
}

// Resolve returns Anonymous for an empty or unknown user id, or for a
// deactivated account. Store faults are returned as errors.
func (r *Resolver) Resolve(ctx context.Context, rawUserID string) (Actor, error) {
	rawUserID = strings.TrimSpace(rawUserID)
	if rawUserID == "" {
		return Anonymous, nil
	}
	id, err := uuid.Parse(rawUserID)
	if err != nil {
		return Anonymous, nil
	}

	user, err := r.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Anonymous, nil
		}
		return Anonymous, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load acting user")
	}
	if user == nil || !user.IsActive {
		return Anonymous, nil
	}
	return Actor{UserID: user.ID, Login: user.Login}, nil
}
