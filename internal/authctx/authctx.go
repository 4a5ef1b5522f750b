// Package authctx carries the verified identity of a request through its
// context.Context.
package authctx

import (
	"context"

	"github.com/ErlanBelekov/authgate/internal/domain"
)

type ctxKey struct{}

// WithClaims returns a copy of ctx carrying claims.
func WithClaims(ctx context.Context, claims *domain.Claims) context.Context {
	return context.WithValue(ctx, ctxKey{}, claims)
}

// ClaimsFromContext returns the claims attached by the auth middleware.
func ClaimsFromContext(ctx context.Context) (*domain.Claims, bool) {
	c, ok := ctx.Value(ctxKey{}).(*domain.Claims)
	return c, ok && c != nil
}

// UserID returns the authenticated subject, or 0 when the request is anonymous.
func UserID(ctx context.Context) int64 {
	if c, ok := ClaimsFromContext(ctx); ok {
		return c.Subject
	}
	return 0
}
