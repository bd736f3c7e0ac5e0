package persistence

import (
	"context"
	"errors"

	"github.com/delegates/backend/internal/domain/shared"
	"github.com/delegates/backend/internal/infrastructure/persistence/delegation"
	"github.com/delegates/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// GormUserRepository stores users, with lastname and email delegated to
// their contact record.
type GormUserRepository struct {
	db    *gorm.DB
	users *delegation.Delegator[models.User]
}

// UserRepositoryOption configures NewGormUserRepository
type UserRepositoryOption func(*userRepositoryOptions)

type userRepositoryOptions struct {
	logger         *zap.Logger
	partialUpdates bool
	delegation     []delegation.Option
}

// WithRepositoryLogger sets the logger for swallowed contact validation errors.
func WithRepositoryLogger(log *zap.Logger) UserRepositoryOption {
	return func(o *userRepositoryOptions) {
		o.logger = log
	}
}

// WithPartialUpdates makes saves write only changed columns.
func WithPartialUpdates(enabled bool) UserRepositoryOption {
	return func(o *userRepositoryOptions) {
		o.partialUpdates = enabled
	}
}

// WithDelegationOptions passes extra options, such as hooks, to the delegator.
func WithDelegationOptions(opts ...delegation.Option) UserRepositoryOption {
	return func(o *userRepositoryOptions) {
		o.delegation = append(o.delegation, opts...)
	}
}

// NewGormUserRepository creates a new GormUserRepository
func NewGormUserRepository(db *gorm.DB, opts ...UserRepositoryOption) (*GormUserRepository, error) {
	o := userRepositoryOptions{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	users, err := delegation.New[models.User](db, append([]delegation.Option{
		delegation.To("Contact", "lastname", "email"),
		delegation.WithLogger(o.logger),
		delegation.WithPartialUpdates(o.partialUpdates),
	}, o.delegation...)...)
	if err != nil {
		return nil, err
	}
	return &GormUserRepository{db: db, users: users}, nil
}

// Delegator exposes the underlying delegator for generic attribute access.
func (r *GormUserRepository) Delegator() *delegation.Delegator[models.User] {
	return r.users
}

// Create saves a new user and its contact. An invalid user yields a
// *delegation.RecordInvalidError.
func (r *GormUserRepository) Create(ctx context.Context, user *models.User) error {
	return r.users.SaveStrict(ctx, user)
}

// FindByID finds a user by ID, with its contact loaded
func (r *GormUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := r.users.Find(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return user, nil
}

// Save saves user and, unless disabled by opts, its contact. It returns
// false when user is invalid.
func (r *GormUserRepository) Save(ctx context.Context, user *models.User, opts ...delegation.SaveOption) (bool, error) {
	return r.users.Save(ctx, user, opts...)
}

// SaveStrict is Save with validation failures returned as errors.
func (r *GormUserRepository) SaveStrict(ctx context.Context, user *models.User, opts ...delegation.SaveOption) error {
	return r.users.SaveStrict(ctx, user, opts...)
}

// Lastname returns the user's delegated lastname.
func (r *GormUserRepository) Lastname(ctx context.Context, user *models.User) (string, error) {
	return delegation.Get[string](ctx, r.users, user, "lastname")
}

// SetLastname sets the user's delegated lastname in memory.
func (r *GormUserRepository) SetLastname(ctx context.Context, user *models.User, lastname string) error {
	return r.users.Write(ctx, user, "lastname", lastname)
}

// Email returns the user's delegated email.
func (r *GormUserRepository) Email(ctx context.Context, user *models.User) (string, error) {
	return delegation.Get[string](ctx, r.users, user, "email")
}

// SetEmail sets the user's delegated email in memory.
func (r *GormUserRepository) SetEmail(ctx context.Context, user *models.User, email string) error {
	return r.users.Write(ctx, user, "email", email)
}

// Delete deletes a user and its contact by ID
func (r *GormUserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&models.Contact{}).Error; err != nil {
			return err
		}

		result := tx.Delete(&models.User{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}
