// Package token issues and verifies the HS256 JWTs used as bearer tokens.
package token

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/ErlanBelekov/authgate/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

const (
	AccessTTL            = 24 * time.Hour
	EmailVerificationTTL = 48 * time.Hour

	accessAudience            = "authgate"
	emailVerificationAudience = "authgate:verify-email"
)

type claims struct {
	Role domain.Role `json:"role,omitempty"`
	// Email binds a verification token to the address it was mailed to.
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Service signs and verifies tokens with a single shared secret. It holds no
// mutable state and is safe for concurrent use.
type Service struct {
	key    []byte
	now    func() time.Time
	parser *jwt.Parser
}

type Option func(*Service)

// WithClock overrides the time source used for issuing and validating tokens.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(secret []byte, opts ...Option) (*Service, error) {
	if len(secret) == 0 {
		return nil, errors.New("token: empty signing secret")
	}
	s := &Service{
		key: secret,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(s.now),
	)
	return s, nil
}

// Generate issues an access token for userID valid for AccessTTL.
func (s *Service) Generate(userID int64, role domain.Role) (string, error) {
	return s.sign(claims{Role: role}, userID, accessAudience, AccessTTL)
}

// Verify checks signature, expiry and audience of an access token. Every
// failure is reported as domain.ErrTokenInvalid.
func (s *Service) Verify(raw string) (*domain.Claims, error) {
	c, userID, err := s.parse(raw, accessAudience)
	if err != nil {
		return nil, err
	}
	return &domain.Claims{
		Subject:   userID,
		Role:      c.Role,
		IssuedAt:  c.IssuedAt.Time,
		ExpiresAt: c.ExpiresAt.Time,
	}, nil
}

// GenerateEmailVerification issues a token for confirming email that can only
// be redeemed by VerifyEmailVerification.
func (s *Service) GenerateEmailVerification(userID int64, email string) (string, error) {
	if email == "" {
		return "", errors.New("token: verification token needs an email")
	}
	return s.sign(claims{Email: email}, userID, emailVerificationAudience, EmailVerificationTTL)
}

// VerifyEmailVerification returns the user id and the address the token was
// issued for.
func (s *Service) VerifyEmailVerification(raw string) (int64, string, error) {
	c, userID, err := s.parse(raw, emailVerificationAudience)
	if err != nil {
		return 0, "", err
	}
	if c.Email == "" {
		return 0, "", domain.ErrTokenInvalid
	}
	return userID, c.Email, nil
}

// sign fills the registered claims of c and signs it.
func (s *Service) sign(c claims, userID int64, audience string, ttl time.Duration) (string, error) {
	now := s.now()
	c.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		Audience:  jwt.ClaimStrings{audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := t.SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign jwt: %w", err)
	}
	return signed, nil
}

func (s *Service) parse(raw, audience string) (*claims, int64, error) {
	c := &claims{}
	tok, err := s.parser.ParseWithClaims(raw, c, func(*jwt.Token) (any, error) {
		return s.key, nil
	})
	if err != nil || !tok.Valid {
		return nil, 0, domain.ErrTokenInvalid
	}
	if len(c.Audience) != 1 || c.Audience[0] != audience {
		return nil, 0, domain.ErrTokenInvalid
	}
	userID, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return nil, 0, domain.ErrTokenInvalid
	}
	return c, userID, nil
}
