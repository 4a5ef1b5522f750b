package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/ErlanBelekov/authgate/internal/domain"
	"github.com/ErlanBelekov/authgate/internal/metrics"
	"github.com/ErlanBelekov/authgate/internal/repository"
)

// fallbackDummyHash is a valid bcrypt cost-10 hash used when the dummy hash
// cannot be computed, so unknown-email logins still run a full comparison.
const fallbackDummyHash = "$2a$10$XajjQvNhvvRt5GSeFk1xFeyqRrsxkhBkUiQeg0dt.wU1qD4aFDcga"

type passwordPolicy interface {
	Validate(password string) error
}

type passwordHasher interface {
	Hash(ctx context.Context, plaintext string) (string, error)
	Verify(ctx context.Context, plaintext, hash string) bool
}

type tokenIssuer interface {
	Generate(userID int64, role domain.Role) (string, error)
	GenerateEmailVerification(userID int64, email string) (string, error)
	VerifyEmailVerification(raw string) (int64, string, error)
}

type LoginResult struct {
	Token  string
	UserID int64
	Email  string
}

type RegisterResult struct {
	UserID int64
	Email  string
}

type AuthUsecase struct {
	users  repository.UserRepository
	policy passwordPolicy
	hasher passwordHasher
	tokens tokenIssuer
	mail   verificationSender
	logger *slog.Logger

	dummyOnce sync.Once
	dummyHash string
}

// NewAuthUsecase wires the login and registration flow. mailer may be nil, in
// which case no verification email is sent.
func NewAuthUsecase(
	users repository.UserRepository,
	policy passwordPolicy,
	hasher passwordHasher,
	tokens tokenIssuer,
	mailer verificationMailer,
	logger *slog.Logger,
) *AuthUsecase {
	logger = logger.With("component", "auth_usecase")
	return &AuthUsecase{
		users:  users,
		policy: policy,
		hasher: hasher,
		tokens: tokens,
		mail:   verificationSender{tokens: tokens, mailer: mailer, logger: logger},
		logger: logger,
	}
}

// Login checks credentials and issues an access token. Unknown email and
// wrong password both yield domain.ErrAuthentication, and both pay for one
// bcrypt comparison.
func (u *AuthUsecase) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = normalizeEmail(email)

	user, err := u.users.FindByEmail(ctx, email)
	if errors.Is(err, domain.ErrUserNotFound) {
		u.hasher.Verify(ctx, password, u.dummy())
		metrics.AuthAttemptsTotal.WithLabelValues("login", "failure").Inc()
		return nil, domain.ErrAuthentication
	}
	if err != nil {
		metrics.AuthAttemptsTotal.WithLabelValues("login", "error").Inc()
		return nil, fmt.Errorf("find user: %w", err)
	}

	if !u.hasher.Verify(ctx, password, user.PasswordHash) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		metrics.AuthAttemptsTotal.WithLabelValues("login", "failure").Inc()
		return nil, domain.ErrAuthentication
	}

	tok, err := u.tokens.Generate(user.ID, user.Role)
	if err != nil {
		metrics.AuthAttemptsTotal.WithLabelValues("login", "error").Inc()
		return nil, fmt.Errorf("generate token: %w", err)
	}

	metrics.AuthAttemptsTotal.WithLabelValues("login", "success").Inc()
	return &LoginResult{Token: tok, UserID: user.ID, Email: user.Email}, nil
}

// Register creates an unverified user. It does not log the user in.
func (u *AuthUsecase) Register(ctx context.Context, email, password string) (*RegisterResult, error) {
	email = normalizeEmail(email)

	_, err := u.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		metrics.AuthAttemptsTotal.WithLabelValues("register", "conflict").Inc()
		return nil, domain.ErrUserAlreadyExists
	case !errors.Is(err, domain.ErrUserNotFound):
		metrics.AuthAttemptsTotal.WithLabelValues("register", "error").Inc()
		return nil, fmt.Errorf("find user: %w", err)
	}

	if err := u.policy.Validate(password); err != nil {
		metrics.AuthAttemptsTotal.WithLabelValues("register", "invalid_password").Inc()
		return nil, domain.ErrInvalidPassword
	}

	hash, err := u.hasher.Hash(ctx, password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidPassword) {
			metrics.AuthAttemptsTotal.WithLabelValues("register", "invalid_password").Inc()
			return nil, domain.ErrInvalidPassword
		}
		metrics.AuthAttemptsTotal.WithLabelValues("register", "error").Inc()
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := u.users.Create(ctx, repository.CreateUserInput{
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleUser,
	})
	if err != nil {
		if errors.Is(err, domain.ErrUserAlreadyExists) {
			metrics.AuthAttemptsTotal.WithLabelValues("register", "conflict").Inc()
			return nil, domain.ErrUserAlreadyExists
		}
		metrics.AuthAttemptsTotal.WithLabelValues("register", "error").Inc()
		return nil, fmt.Errorf("create user: %w", err)
	}

	u.mail.send(ctx, user)

	metrics.AuthAttemptsTotal.WithLabelValues("register", "success").Inc()
	u.logger.InfoContext(ctx, "user registered", "user_id", user.ID)
	return &RegisterResult{UserID: user.ID, Email: user.Email}, nil
}

// VerifyEmail redeems an email-verification token. Tokens for users that no
// longer exist, or whose address changed since the link was sent, are
// reported as domain.ErrTokenInvalid.
func (u *AuthUsecase) VerifyEmail(ctx context.Context, raw string) (*domain.User, error) {
	userID, email, err := u.tokens.VerifyEmailVerification(raw)
	if err != nil {
		return nil, domain.ErrTokenInvalid
	}

	user, err := u.users.VerifyEmail(ctx, userID, email)
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil, domain.ErrTokenInvalid
	}
	if err != nil {
		return nil, fmt.Errorf("verify email: %w", err)
	}
	return user, nil
}

func (u *AuthUsecase) dummy() string {
	u.dummyOnce.Do(func() {
		h, err := u.hasher.Hash(context.Background(), "timing-equaliser-Aa1!")
		if err != nil {
			u.logger.Error("compute dummy hash, using fallback", "error", err)
			u.dummyHash = fallbackDummyHash
			return
		}
		u.dummyHash = h
	})
	return u.dummyHash
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
