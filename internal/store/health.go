package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"ownnews/internal/core"
)

// HealthRepo persists the daily informational-health snapshots.
type HealthRepo struct {
	db *sql.DB
}

// Upsert writes one snapshot keyed on (user, date). A second snapshot on
// the same day overwrites the row, leaving the row count unchanged.
func (r *HealthRepo) Upsert(ctx context.Context, snap core.HealthSnapshot) error {
	detail, err := json.Marshal(snap.Detail)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot detail: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO health_snapshots
			(user_id, score_date, diversity, bias_ratio, top_category, detail)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, score_date) DO UPDATE SET
			diversity = EXCLUDED.diversity,
			bias_ratio = EXCLUDED.bias_ratio,
			top_category = EXCLUDED.top_category,
			detail = EXCLUDED.detail
	`, snap.UserID, snap.ScoreDate, snap.Diversity, snap.BiasRatio,
		snap.TopCategory, detail)
	if err != nil {
		return fmt.Errorf("failed to upsert health snapshot: %w", err)
	}
	return nil
}

// History returns the user's last `days` snapshots ordered oldest first.
func (r *HealthRepo) History(ctx context.Context, userID string, days int) ([]core.HealthSnapshot, error) {
	query := `
		SELECT user_id, score_date, diversity, bias_ratio, top_category, detail
		FROM (
			SELECT user_id, to_char(score_date, 'YYYY-MM-DD') AS score_date,
			       diversity, bias_ratio, top_category, detail
			FROM health_snapshots
			WHERE user_id = $1
			ORDER BY score_date DESC
			LIMIT $2
		) recent
		ORDER BY score_date
	`
	rows, err := r.db.QueryContext(ctx, query, userID, days)
	if err != nil {
		return nil, fmt.Errorf("failed to query health history: %w", err)
	}
	defer rows.Close()

	var snaps []core.HealthSnapshot
	for rows.Next() {
		var s core.HealthSnapshot
		var detail []byte
		var topCategory sql.NullString
		if err := rows.Scan(&s.UserID, &s.ScoreDate, &s.Diversity,
			&s.BiasRatio, &topCategory, &detail); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		s.TopCategory = topCategory.String
		if len(detail) > 0 {
			if err := json.Unmarshal(detail, &s.Detail); err != nil {
				return nil, fmt.Errorf("failed to unmarshal snapshot detail: %w", err)
			}
		}
		snaps = append(snaps, s)
	}
	return snaps, rows.Err()
}
