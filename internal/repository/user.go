package repository

import (
	"context"
	"time"

	"github.com/ErlanBelekov/authgate/internal/domain"
)

type CreateUserInput struct {
	Email        string
	PasswordHash string
	Role         domain.Role
}

// UpdateUserInput carries optional changes; nil fields are left untouched.
type UpdateUserInput struct {
	Email        *string
	PasswordHash *string
	Role         *domain.Role
}

type ListUsersInput struct {
	Limit          int
	Offset         int
	IncludeDeleted bool
}

// UserRepository is the user store the auth core depends on. Lookups ignore
// soft-deleted users and report absence as domain.ErrUserNotFound. Email
// uniqueness violations surface as domain.ErrUserAlreadyExists.
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id int64) (*domain.User, error)
	Create(ctx context.Context, input CreateUserInput) (*domain.User, error)
	Update(ctx context.Context, id int64, input UpdateUserInput) (*domain.User, error)
	List(ctx context.Context, input ListUsersInput) ([]*domain.User, error)
	SoftDelete(ctx context.Context, id int64) error
	// VerifyEmail marks id verified if its current address equals email
	// (case-insensitive); otherwise it returns domain.ErrUserNotFound.
	VerifyEmail(ctx context.Context, id int64, email string) (*domain.User, error)

	// PurgeDeleted hard-deletes users soft-deleted before cutoff.
	PurgeDeleted(ctx context.Context, cutoff time.Time) (int64, error)
	Ping(ctx context.Context) error
}
