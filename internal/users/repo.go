package users

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/wishlist-backend/pkg/db/models"
)

// Repository reads and writes the users table. Lookups return
// gorm.ErrRecordNotFound for a miss.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to tx; a nil tx keeps the current handle.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, dto CreateUserDTO) (*models.User, error) {
	user := dto.ToModel()
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// FindByEmail expects the email already lower-cased.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.one(ctx, "email = ?", email)
}

// FindByLogin matches the login exactly; logins are case-sensitive.
func (r *Repository) FindByLogin(ctx context.Context, login string) (*models.User, error) {
	return r.one(ctx, "login = ?", login)
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.one(ctx, "id = ?", id)
}

func (r *Repository) one(ctx context.Context, cond string, arg any) (*models.User, error) {
	user := new(models.User)
	if err := r.db.WithContext(ctx).Where(cond, arg).Take(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// EmailTaken reports whether a user other than exclude holds email.
func (r *Repository) EmailTaken(ctx context.Context, email string, exclude uuid.UUID) (bool, error) {
	return r.heldByOther(ctx, "email", email, exclude)
}

// LoginTaken reports whether a user other than exclude holds login.
func (r *Repository) LoginTaken(ctx context.Context, login string, exclude uuid.UUID) (bool, error) {
	return r.heldByOther(ctx, "login", login, exclude)
}

func (r *Repository) heldByOther(ctx context.Context, column, value string, exclude uuid.UUID) (bool, error) {
	var holders int64
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where(column+" = ? AND id <> ?", value, exclude).
		Limit(1).
		Count(&holders).Error
	return holders > 0, err
}

// UpdateProfile writes the editable columns and the derived access flag.
func (r *Repository) UpdateProfile(ctx context.Context, id uuid.UUID, input UpdateProfileInput, access bool) error {
	return r.set(ctx, id, map[string]any{
		"login":      input.Login,
		"email":      input.Email,
		"first_name": input.FirstName,
		"last_name":  input.LastName,
		"access":     access,
		"updated_at": time.Now().UTC(),
	})
}

// RecordLogin stamps last_login_at. A non-empty rehashed replaces the stored
// password hash in the same statement.
func (r *Repository) RecordLogin(ctx context.Context, id uuid.UUID, at time.Time, rehashed string) error {
	cols := map[string]any{"last_login_at": at}
	if rehashed != "" {
		cols["password_hash"] = rehashed
	}
	return r.set(ctx, id, cols)
}

func (r *Repository) set(ctx context.Context, id uuid.UUID, cols map[string]any) error {
	return r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).UpdateColumns(cols).Error
}
