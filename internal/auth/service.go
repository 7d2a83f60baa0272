// Package auth registers accounts and manages their sign-in sessions: an
// access JWT whose jti names a Redis-held session, and an opaque refresh
// token that rotates on every use.
package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/wishlist-backend/internal/users"
	"github.com/angelmondragon/wishlist-backend/pkg/config"
)

// Service is what the auth controllers call.
type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*TokenResponse, error)
	Login(ctx context.Context, req LoginRequest) (*TokenResponse, error)
	Refresh(ctx context.Context, accessToken, refreshToken string) (*TokenResponse, error)
	Logout(ctx context.Context, accessToken string) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// welcomeNotifier enqueues the welcome email inside the registration tx.
type welcomeNotifier interface {
	EnqueueWelcomeEmail(ctx context.Context, tx *gorm.DB, userID uuid.UUID, email, firstName string) error
}

type sessionManager interface {
	Generate(ctx context.Context, userID uuid.UUID, accessID string) (string, error)
	Rotate(ctx context.Context, oldAccessID, provided string) (uuid.UUID, string, string, error)
	Revoke(ctx context.Context, accessID string) error
}

type ServiceParams struct {
	UserRepo       *users.Repository
	DB             txRunner
	Notifier       welcomeNotifier
	SessionManager sessionManager
	JWTConfig      config.JWTConfig
	PasswordConfig config.PasswordConfig
}

type service struct {
	accounts *users.Repository
	tx       txRunner
	welcome  welcomeNotifier
	sessions sessionManager
	tokens   config.JWTConfig
	hashing  config.PasswordConfig
	clock    func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.UserRepo == nil:
		return nil, errors.New("auth: user repository is required")
	case params.DB == nil:
		return nil, errors.New("auth: transaction runner is required")
	case params.Notifier == nil:
		return nil, errors.New("auth: welcome notifier is required")
	case params.SessionManager == nil:
		return nil, errors.New("auth: session manager is required")
	}
	return &service{
		accounts: params.UserRepo,
		tx:       params.DB,
		welcome:  params.Notifier,
		sessions: params.SessionManager,
		tokens:   params.JWTConfig,
		hashing:  params.PasswordConfig,
		clock:    func() time.Time { return time.Now().UTC() },
	}, nil
}
