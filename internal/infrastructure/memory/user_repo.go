// Package memory provides an in-process user store for local runs and tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ErlanBelekov/authgate/internal/domain"
	"github.com/ErlanBelekov/authgate/internal/repository"
)

// UserRepository mirrors the postgres store's semantics: emails are unique
// case-insensitively among active users, and soft-deleted users are invisible
// to lookups.
type UserRepository struct {
	mu     sync.RWMutex
	users  map[int64]*domain.User
	nextID int64
	now    func() time.Time
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		users: make(map[int64]*domain.User),
		now:   time.Now,
	}
}

func (r *UserRepository) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if u := r.activeByEmail(email); u != nil {
		return clone(u), nil
	}
	return nil, domain.ErrUserNotFound
}

func (r *UserRepository) FindByID(_ context.Context, id int64) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok || u.DeletedAt != nil {
		return nil, domain.ErrUserNotFound
	}
	return clone(u), nil
}

func (r *UserRepository) Create(_ context.Context, input repository.CreateUserInput) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.activeByEmail(input.Email) != nil {
		return nil, domain.ErrUserAlreadyExists
	}

	role := input.Role
	if role == "" {
		role = domain.RoleUser
	}

	r.nextID++
	now := r.now().UTC()
	u := &domain.User{
		ID:           r.nextID,
		Email:        input.Email,
		PasswordHash: input.PasswordHash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.users[u.ID] = u
	return clone(u), nil
}

func (r *UserRepository) Update(_ context.Context, id int64, input repository.UpdateUserInput) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok || u.DeletedAt != nil {
		return nil, domain.ErrUserNotFound
	}
	if input.Email != nil {
		if other := r.activeByEmail(*input.Email); other != nil && other.ID != id {
			return nil, domain.ErrUserAlreadyExists
		}
		if !strings.EqualFold(u.Email, *input.Email) {
			u.IsEmailVerified = false
		}
		u.Email = *input.Email
	}
	if input.PasswordHash != nil {
		u.PasswordHash = *input.PasswordHash
	}
	if input.Role != nil {
		u.Role = *input.Role
	}
	u.UpdatedAt = r.now().UTC()
	return clone(u), nil
}

func (r *UserRepository) List(_ context.Context, input repository.ListUsersInput) ([]*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]int64, 0, len(r.users))
	for id, u := range r.users {
		if u.DeletedAt == nil || input.IncludeDeleted {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	if input.Offset >= len(ids) {
		return []*domain.User{}, nil
	}
	ids = ids[input.Offset:]
	if input.Limit > 0 && input.Limit < len(ids) {
		ids = ids[:input.Limit]
	}

	out := make([]*domain.User, 0, len(ids))
	for _, id := range ids {
		out = append(out, clone(r.users[id]))
	}
	return out, nil
}

func (r *UserRepository) SoftDelete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok || u.DeletedAt != nil {
		return domain.ErrUserNotFound
	}
	now := r.now().UTC()
	u.DeletedAt = &now
	u.UpdatedAt = now
	return nil
}

func (r *UserRepository) VerifyEmail(_ context.Context, id int64, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok || u.DeletedAt != nil || !strings.EqualFold(u.Email, email) {
		return nil, domain.ErrUserNotFound
	}
	u.IsEmailVerified = true
	u.UpdatedAt = r.now().UTC()
	return clone(u), nil
}

func (r *UserRepository) PurgeDeleted(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, u := range r.users {
		if u.DeletedAt != nil && u.DeletedAt.Before(cutoff) {
			delete(r.users, id)
			n++
		}
	}
	return n, nil
}

func (r *UserRepository) Ping(context.Context) error { return nil }

// caller holds r.mu
func (r *UserRepository) activeByEmail(email string) *domain.User {
	for _, u := range r.users {
		if u.DeletedAt == nil && strings.EqualFold(u.Email, email) {
			return u
		}
	}
	return nil
}

func clone(u *domain.User) *domain.User {
	c := *u
	if u.DeletedAt != nil {
		t := *u.DeletedAt
		c.DeletedAt = &t
	}
	return &c
}
