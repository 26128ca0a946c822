package repositories

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/ytb/internal/shared"
)

// IdempotencyRepository maps client-supplied keys to the action they produced.
//
// Check-then-Register is not atomic: two concurrent first submissions of the
// same key can both pass Check before either registers. Claim closes that
// race with a unique-constraint insert for callers that want at-most-one
// execution guaranteed by storage.
type IdempotencyRepository struct {
	db *sql.DB
}

// NewIdempotencyRepository creates a new IdempotencyRepository with the given database connection
func NewIdempotencyRepository(db *sql.DB) *IdempotencyRepository {
	return &IdempotencyRepository{db: db}
}

// Check reports whether the key has been registered and the action it maps to.
func (r *IdempotencyRepository) Check(key string) (string, bool, error) {
	var actionID string
	err := r.db.QueryRow("SELECT action_id FROM idempotency_keys WHERE key = ?", key).Scan(&actionID)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to check idempotency key: %w", err)
	}
	return actionID, true, nil
}

// Register records the key after the guarded transaction has committed.
//
// Registering an already-present key is a no-op so a post-commit retry never
// fails the request.
func (r *IdempotencyRepository) Register(key, actionID string) error {
	query := "INSERT OR IGNORE INTO idempotency_keys (key, action_id, created_at) VALUES (?, ?, ?)"
	if _, err := r.db.Exec(query, key, actionID, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to register idempotency key: %w", err)
	}
	return nil
}

// Claim atomically registers the key, returning [shared.ErrKeyClaimed] when
// another execution already holds it.
func (r *IdempotencyRepository) Claim(key, actionID string) error {
	query := "INSERT INTO idempotency_keys (key, action_id, created_at) VALUES (?, ?, ?)"
	if _, err := r.db.Exec(query, key, actionID, time.Now().UTC()); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("%w: %s", shared.ErrKeyClaimed, key)
		}
		return fmt.Errorf("failed to claim idempotency key: %w", err)
	}
	return nil
}
