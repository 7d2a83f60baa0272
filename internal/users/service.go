package users

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/wishlist-backend/pkg/db"
	"github.com/angelmondragon/wishlist-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/wishlist-backend/pkg/errors"
)

const (
	emailInUseMessage = "this email is already in use"
	loginInUseMessage = "this login is already in use"
)

// Service exposes profile reads and edits for the signed-in user.
type Service interface {
	Profile(ctx context.Context, userID uuid.UUID) (*UserDTO, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (*UserDTO, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type changeNotifier interface {
	EnqueueAccountChangeNotice(ctx context.Context, tx *gorm.DB, userID uuid.UUID, email, login string, changed []string) error
}

// ServiceParams groups dependencies for the users service.
type ServiceParams struct {
	Repo     *Repository
	DB       txRunner
	Notifier changeNotifier
}

type service struct {
	repo     *Repository
	db       txRunner
	notifier changeNotifier
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "user repository is required")
	}
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner is required")
	}
	if params.Notifier == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "notifier is required")
	}
	return &service{repo: params.Repo, db: params.DB, notifier: params.Notifier}, nil
}

func (s *service) Profile(ctx context.Context, userID uuid.UUID) (*UserDTO, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	return FromModel(user), nil
}

// UpdateProfile rewrites the editable fields, rejecting an email or login held
// by another account, and queues a change notice in the same transaction.
func (s *service) UpdateProfile(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (*UserDTO, error) {
	input.Login = strings.TrimSpace(input.Login)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.FirstName = strings.TrimSpace(input.FirstName)
	input.LastName = strings.TrimSpace(input.LastName)

	var updated *models.User
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		current, err := repo.FindByID(ctx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
		}

		conflicts := map[string]string{}
		if taken, err := repo.EmailTaken(ctx, input.Email, userID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check email")
		} else if taken {
			conflicts["email"] = emailInUseMessage
		}
		if taken, err := repo.LoginTaken(ctx, input.Login, userID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check login")
		} else if taken {
			conflicts["login"] = loginInUseMessage
		}
		if len(conflicts) > 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "profile conflicts with another account").WithDetails(conflicts)
		}

		access := current.Access
		if input.Access != nil {
			access = *input.Access
		}

		if err := repo.UpdateProfile(ctx, userID, input, access); err != nil {
			if db.IsUniqueViolation(err, "users_login_key") || db.IsUniqueViolation(err, "users_email_key") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "profile conflicts with another account")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update user")
		}

		changed := changedFields(current, input, access)
		if err := s.notifier.EnqueueAccountChangeNotice(ctx, tx, userID, input.Email, input.Login, changed); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue change notice")
		}

		updated, err = repo.FindByID(ctx, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload user")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return FromModel(updated), nil
}

func changedFields(before *models.User, after UpdateProfileInput, access bool) []string {
	var changed []string
	if before.Login != after.Login {
		changed = append(changed, "login")
	}
	if before.Email != after.Email {
		changed = append(changed, "email")
	}
	if before.FirstName != after.FirstName {
		changed = append(changed, "first_name")
	}
	if before.LastName != after.LastName {
		changed = append(changed, "last_name")
	}
	if before.Access != access {
		changed = append(changed, "access")
	}
	return changed
}
