package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ErlanBelekov/authgate/internal/domain"
	"github.com/ErlanBelekov/authgate/internal/repository"
)

const (
	DefaultListLimit = 10
	MaxListLimit     = 100
)

// UpdateUserParams holds optional changes to the caller's own account.
type UpdateUserParams struct {
	Email    *string
	Password *string
}

// UserUsecase manages user records. Callers may only read or change their
// own record; any other id is reported as domain.ErrUserNotFound.
type UserUsecase struct {
	users  repository.UserRepository
	policy passwordPolicy
	hasher passwordHasher
	mail   verificationSender
	logger *slog.Logger
}

// NewUserUsecase wires account management. An email change mails a fresh
// verification link through mailer; a nil mailer skips it.
func NewUserUsecase(
	users repository.UserRepository,
	policy passwordPolicy,
	hasher passwordHasher,
	tokens verificationIssuer,
	mailer verificationMailer,
	logger *slog.Logger,
) *UserUsecase {
	logger = logger.With("component", "user_usecase")
	return &UserUsecase{
		users:  users,
		policy: policy,
		hasher: hasher,
		mail:   verificationSender{tokens: tokens, mailer: mailer, logger: logger},
		logger: logger,
	}
}

func (u *UserUsecase) Get(ctx context.Context, callerID, id int64) (*domain.User, error) {
	if callerID != id {
		return nil, domain.ErrUserNotFound
	}
	user, err := u.users.FindByID(ctx, id)
	if err != nil {
		return nil, passThrough(err, "find user")
	}
	return user, nil
}

func (u *UserUsecase) List(ctx context.Context, limit, offset int) ([]*domain.User, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	users, err := u.users.List(ctx, repository.ListUsersInput{Limit: limit, Offset: offset})
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (u *UserUsecase) Update(ctx context.Context, callerID, id int64, params UpdateUserParams) (*domain.User, error) {
	if callerID != id {
		return nil, domain.ErrUserNotFound
	}

	var input repository.UpdateUserInput
	if params.Email != nil {
		e := normalizeEmail(*params.Email)
		input.Email = &e
	}
	if params.Password != nil {
		if err := u.policy.Validate(*params.Password); err != nil {
			return nil, domain.ErrInvalidPassword
		}
		hash, err := u.hasher.Hash(ctx, *params.Password)
		if err != nil {
			return nil, passThrough(err, "hash password")
		}
		input.PasswordHash = &hash
	}

	user, err := u.users.Update(ctx, id, input)
	if err != nil {
		return nil, passThrough(err, "update user")
	}
	u.logger.InfoContext(ctx, "user updated", "user_id", id,
		"email_changed", params.Email != nil, "password_changed", params.Password != nil)

	if params.Email != nil && !user.IsEmailVerified {
		u.mail.send(ctx, user)
	}
	return user, nil
}

func (u *UserUsecase) Delete(ctx context.Context, callerID, id int64) error {
	if callerID != id {
		return domain.ErrUserNotFound
	}
	if err := u.users.SoftDelete(ctx, id); err != nil {
		return passThrough(err, "delete user")
	}
	u.logger.InfoContext(ctx, "user deleted", "user_id", id)
	return nil
}

// passThrough keeps the domain sentinels the handlers map to status codes and
// wraps everything else.
func passThrough(err error, op string) error {
	for _, sentinel := range []error{
		domain.ErrUserNotFound,
		domain.ErrUserAlreadyExists,
		domain.ErrInvalidPassword,
	} {
		if errors.Is(err, sentinel) {
			return sentinel
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
