package store

import (
	"context"
	"database/sql"
	"fmt"
)

// UserVectorRepo persists the single interest vector per user.
type UserVectorRepo struct {
	db *sql.DB
}

// Get returns the user's vector, or nil when none has been stored yet.
func (r *UserVectorRepo) Get(ctx context.Context, userID string) ([]float64, error) {
	var raw any
	err := r.db.QueryRowContext(ctx,
		`SELECT vector::text FROM user_vectors WHERE user_id = $1`, userID,
	).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user vector: %w", err)
	}
	return decodeVector(raw)
}

// Upsert stores the user's vector, replacing any previous value.
// Last writer wins; concurrent sessions for the same user may race, which
// only weakens adaptation, never corrupts the vector.
func (r *UserVectorRepo) Upsert(ctx context.Context, userID string, vector []float64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO user_vectors (user_id, vector, updated_at)
		VALUES ($1, $2::vector, NOW())
		ON CONFLICT (user_id)
		DO UPDATE SET vector = EXCLUDED.vector, updated_at = NOW()
	`, userID, encodeVector(vector))
	if err != nil {
		return fmt.Errorf("failed to upsert user vector: %w", err)
	}
	return nil
}
