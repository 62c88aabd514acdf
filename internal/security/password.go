// Package security wraps bcrypt password hashing behind a small concurrency
// gate. A single hash takes tens to hundreds of milliseconds, so the number
// of in-flight hashes is capped to keep request-serving goroutines responsive
// under registration bursts.
package security

import (
	"context"

	"golang.org/x/crypto/bcrypt"

	"github.com/kalamna/auth-api/pkg/config"
)

const defaultMaxConcurrent = 8

// PasswordHasher hashes and verifies passwords with bcrypt.
type PasswordHasher struct {
	cost int
	sem  chan struct{}
}

// NewHasher builds a Hasher. A zero cost falls back to bcrypt.DefaultCost;
// the cost is a deployment-time tuning knob, not business logic.
func NewHasher(cfg config.PasswordConfig) *PasswordHasher {
	cost := cfg.BcryptCost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrent
	}
	return &PasswordHasher{
		cost: cost,
		sem:  make(chan struct{}, maxConcurrent),
	}
}

// Hash produces a salted bcrypt hash. Each call salts freshly, so two hashes
// of the same input differ. Blocks while all hashing slots are busy, honoring
// ctx cancellation during the wait.
func (h *PasswordHasher) Hash(ctx context.Context, plaintext string) (string, error) {
	select {
	case h.sem <- struct{}{}:
		defer func() { <-h.sem }()
	case <-ctx.Done():
		return "", ctx.Err()
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Verify compares plaintext against a stored hash in constant time.
// Malformed hashes simply fail verification; Verify never errors out.
func (h *PasswordHasher) Verify(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}
