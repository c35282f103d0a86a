package store

import (
	"context"
	"database/sql"
	"fmt"

	"ownnews/internal/core"
)

// ProfileRepo persists per-user onboarding state.
type ProfileRepo struct {
	db *sql.DB
}

// Get returns the user's profile, or nil when the user is unknown.
func (r *ProfileRepo) Get(ctx context.Context, userID string) (*core.UserProfile, error) {
	var p core.UserProfile
	var displayName sql.NullString
	err := r.db.QueryRowContext(ctx, `
		SELECT user_id, onboarded, display_name
		FROM user_profiles
		WHERE user_id = $1
	`, userID).Scan(&p.UserID, &p.Onboarded, &displayName)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query profile: %w", err)
	}
	p.DisplayName = displayName.String
	return &p, nil
}

// Ensure creates the profile row if it does not exist and returns it.
func (r *ProfileRepo) Ensure(ctx context.Context, userID string) (*core.UserProfile, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO user_profiles (user_id, onboarded)
		VALUES ($1, FALSE)
		ON CONFLICT (user_id) DO NOTHING
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure profile: %w", err)
	}
	return r.Get(ctx, userID)
}

// SetOnboarded marks the user as onboarded. The transition is monotonic;
// there is no way back to the not-onboarded state.
func (r *ProfileRepo) SetOnboarded(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO user_profiles (user_id, onboarded)
		VALUES ($1, TRUE)
		ON CONFLICT (user_id) DO UPDATE SET onboarded = TRUE
	`, userID)
	if err != nil {
		return fmt.Errorf("failed to set onboarded: %w", err)
	}
	return nil
}
