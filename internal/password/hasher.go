package password

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/ErlanBelekov/authgate/internal/domain"
	"github.com/ErlanBelekov/authgate/internal/metrics"
	"golang.org/x/crypto/bcrypt"
)

// Hasher hashes and verifies passwords with bcrypt. bcrypt is CPU-bound, so
// every call runs on a bounded pool of goroutines sized by workers; request
// goroutines only wait for a slot and a result.
type Hasher struct {
	cost int
	sem  chan struct{}
}

// NewHasher returns a Hasher with the given bcrypt cost. workers <= 0 means
// one slot per CPU.
func NewHasher(cost, workers int) *Hasher {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Hasher{
		cost: cost,
		sem:  make(chan struct{}, workers),
	}
}

type hashResult struct {
	hash []byte
	err  error
}

// Hash returns a salted bcrypt hash of plaintext. If ctx is cancelled first,
// Hash returns ctx.Err(); a computation already running finishes in the
// background and its result is dropped.
func (h *Hasher) Hash(ctx context.Context, plaintext string) (string, error) {
	res, err := h.run(ctx, "hash", func() hashResult {
		b, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
		return hashResult{hash: b, err: err}
	})
	if err != nil {
		return "", err
	}
	if res.err != nil {
		if errors.Is(res.err, bcrypt.ErrPasswordTooLong) {
			return "", domain.ErrInvalidPassword
		}
		return "", fmt.Errorf("bcrypt: %w", res.err)
	}
	return string(res.hash), nil
}

// Verify reports whether plaintext matches hash. A malformed hash or a
// cancelled context yields false.
func (h *Hasher) Verify(ctx context.Context, plaintext, hash string) bool {
	res, err := h.run(ctx, "verify", func() hashResult {
		return hashResult{err: bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))}
	})
	if err != nil {
		return false
	}
	return res.err == nil
}

func (h *Hasher) run(ctx context.Context, op string, fn func() hashResult) (hashResult, error) {
	if err := ctx.Err(); err != nil {
		return hashResult{}, err
	}

	select {
	case h.sem <- struct{}{}:
	case <-ctx.Done():
		return hashResult{}, ctx.Err()
	}

	// Buffered so the worker never blocks after the caller has gone away.
	done := make(chan hashResult, 1)
	go func() {
		defer func() { <-h.sem }()
		start := time.Now()
		res := fn()
		metrics.PasswordHashDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
		done <- res
	}()

	select {
	case res := <-done:
		return res, nil
	case <-ctx.Done():
		return hashResult{}, ctx.Err()
	}
}
