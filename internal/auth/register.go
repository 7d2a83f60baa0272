package auth

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/angelmondragon/wishlist-backend/internal/users"
	"github.com/angelmondragon/wishlist-backend/pkg/db"
	"github.com/angelmondragon/wishlist-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/wishlist-backend/pkg/errors"
	"github.com/angelmondragon/wishlist-backend/pkg/security"
)

// Register creates the account, queues the welcome email in the same
// transaction and signs the new user in.
func (s *service) Register(ctx context.Context, req RegisterRequest) (*TokenResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	login := strings.TrimSpace(req.Login)

	fields := map[string]string{}
	if email == "" {
		fields["email"] = "email is required"
	}
	if login == "" {
		fields["login"] = "login is required"
	}
	if err := security.CheckPasswordPolicy(req.Password); err != nil {
		fields["password"] = err.Error()
	}
	if req.Password != req.PasswordConfirm {
		fields["password_confirm"] = "passwords do not match"
	}
	if len(fields) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "registration rejected").WithDetails(fields)
	}

	passwordHash, err := security.HashPassword(req.Password, s.hashing)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	var created *models.User
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.accounts.WithTx(tx)

		conflicts := map[string]string{}
		if _, err := repo.FindByEmail(ctx, email); err == nil {
			conflicts["email"] = "email already registered"
		} else if !db.IsNotFound(err) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check user email")
		}
		if _, err := repo.FindByLogin(ctx, login); err == nil {
			conflicts["login"] = "login already taken"
		} else if !db.IsNotFound(err) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check user login")
		}
		if len(conflicts) > 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "account already exists").WithDetails(conflicts)
		}

		user, err := repo.Create(ctx, users.CreateUserDTO{
			Email:        email,
			Login:        login,
			PasswordHash: passwordHash,
			FirstName:    strings.TrimSpace(req.FirstName),
			LastName:     strings.TrimSpace(req.LastName),
		})
		if err != nil {
			if db.IsUniqueViolation(err, "users_email_key") || db.IsUniqueViolation(err, "users_login_key") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "account already exists")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create user")
		}

		if err := s.welcome.EnqueueWelcomeEmail(ctx, tx, user.ID, user.Email, user.FirstName); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue welcome email")
		}
		created = user
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.issue(ctx, created, s.clock())
}
