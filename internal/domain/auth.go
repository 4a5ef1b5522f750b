package domain

import (
	"errors"
	"time"
)

var (
	ErrAuthentication    = errors.New("authentication failed")
	ErrTokenInvalid      = errors.New("token is invalid or expired")
	ErrInvalidPassword   = errors.New("password does not meet requirements")
	ErrUserAlreadyExists = errors.New("user already exists")
	ErrUserNotFound      = errors.New("user not found")
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
)

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

type User struct {
	ID              int64
	Email           string
	PasswordHash    string
	Role            Role
	IsEmailVerified bool
	DeletedAt       *time.Time // nil while the account is active
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Claims is the verified identity carried by an access token.
type Claims struct {
	Subject   int64 // user id
	Role      Role
	IssuedAt  time.Time
	ExpiresAt time.Time
}
