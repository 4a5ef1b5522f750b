package usecase_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/ErlanBelekov/authgate/internal/domain"
	"github.com/ErlanBelekov/authgate/internal/password"
	"github.com/ErlanBelekov/authgate/internal/repository"
	"github.com/ErlanBelekov/authgate/internal/token"
)

// ---- fakes ----

type fakeUserRepo struct {
	findByEmail  func(ctx context.Context, email string) (*domain.User, error)
	findByID     func(ctx context.Context, id int64) (*domain.User, error)
	create       func(ctx context.Context, input repository.CreateUserInput) (*domain.User, error)
	update       func(ctx context.Context, id int64, input repository.UpdateUserInput) (*domain.User, error)
	list         func(ctx context.Context, input repository.ListUsersInput) ([]*domain.User, error)
	softDelete   func(ctx context.Context, id int64) error
	verifyEmail  func(ctx context.Context, id int64, email string) (*domain.User, error)
	purgeDeleted func(ctx context.Context, cutoff time.Time) (int64, error)
}

func (r *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findByEmail(ctx, email)
}

func (r *fakeUserRepo) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.findByID(ctx, id)
}

func (r *fakeUserRepo) Create(ctx context.Context, input repository.CreateUserInput) (*domain.User, error) {
	return r.create(ctx, input)
}

func (r *fakeUserRepo) Update(ctx context.Context, id int64, input repository.UpdateUserInput) (*domain.User, error) {
	return r.update(ctx, id, input)
}

func (r *fakeUserRepo) List(ctx context.Context, input repository.ListUsersInput) ([]*domain.User, error) {
	return r.list(ctx, input)
}

func (r *fakeUserRepo) SoftDelete(ctx context.Context, id int64) error {
	return r.softDelete(ctx, id)
}

func (r *fakeUserRepo) VerifyEmail(ctx context.Context, id int64, email string) (*domain.User, error) {
	return r.verifyEmail(ctx, id, email)
}

func (r *fakeUserRepo) PurgeDeleted(ctx context.Context, cutoff time.Time) (int64, error) {
	return r.purgeDeleted(ctx, cutoff)
}

func (r *fakeUserRepo) Ping(context.Context) error { return nil }

type fakeMailer struct {
	sendVerification func(ctx context.Context, to, token string) error
}

func (m *fakeMailer) SendVerification(ctx context.Context, to, token string) error {
	return m.sendVerification(ctx, to, token)
}

// failingHasher cannot hash and records every hash Verify is asked to compare.
type failingHasher struct {
	*password.Hasher
	compared []string
}

func (h *failingHasher) Hash(context.Context, string) (string, error) {
	return "", errors.New("hash pool closed")
}

func (h *failingHasher) Verify(ctx context.Context, plaintext, hash string) bool {
	h.compared = append(h.compared, hash)
	return h.Hasher.Verify(ctx, plaintext, hash)
}

// countingHasher wraps the real hasher and counts Verify calls.
type countingHasher struct {
	*password.Hasher
	verifies atomic.Int32
}

func (h *countingHasher) Verify(ctx context.Context, plaintext, hash string) bool {
	h.verifies.Add(1)
	return h.Hasher.Verify(ctx, plaintext, hash)
}

// ---- helpers ----

const (
	testJWTKey   = "test-jwt-secret-at-least-32-chars!!"
	goodPassword = "Abcdef1!"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newHasher() *countingHasher {
	return &countingHasher{Hasher: password.NewHasher(bcrypt.MinCost, 2)}
}

func newTokens(t *testing.T) *token.Service {
	t.Helper()
	s, err := token.NewService([]byte(testJWTKey))
	if err != nil {
		t.Fatalf("token service: %v", err)
	}
	return s
}

func mustHash(t *testing.T, plaintext string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return string(h)
}

func notFoundByEmail(_ context.Context, _ string) (*domain.User, error) {
	return nil, domain.ErrUserNotFound
}
