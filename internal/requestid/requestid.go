package requestid

import (
	"context"

	"github.com/google/uuid"
)

// MaxLen bounds client-supplied IDs before they reach the logs.
const MaxLen = 128

type ctxKey struct{}

// New generates a random UUID v4 request ID.
func New() string {
	return uuid.NewString()
}

// FromHeader returns the client-supplied ID if it is usable, otherwise a fresh
// one. Usable means non-empty, at most MaxLen bytes and printable ASCII only,
// so a header value can never inject newlines or control bytes into log lines.
func FromHeader(raw string) string {
	if raw == "" || len(raw) > MaxLen {
		return New()
	}
	for i := 0; i < len(raw); i++ {
		if raw[i] < 0x21 || raw[i] > 0x7e {
			return New()
		}
	}
	return raw
}

// WithRequestID returns a copy of ctx with the request ID attached.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext extracts the request ID from ctx. Returns "" if absent.
func FromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}
