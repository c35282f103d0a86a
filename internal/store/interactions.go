package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"ownnews/internal/core"
)

// DeletedTitle is shown for history rows whose article no longer exists.
const DeletedTitle = "(deleted)"

// InteractionRepo persists the per-user feedback log. The log is
// conceptually append-only; uniqueness on (user, article, kind) makes
// repeated clicks idempotent.
type InteractionRepo struct {
	db *sql.DB
}

// Upsert records one interaction. Re-recording the same triple only
// refreshes created_at.
func (r *InteractionRepo) Upsert(ctx context.Context, userID, articleID string, kind core.InteractionKind) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO interactions (user_id, article_id, interaction_type, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user_id, article_id, interaction_type)
		DO UPDATE SET created_at = NOW()
	`, userID, articleID, kind.String())
	if err != nil {
		return fmt.Errorf("failed to upsert interaction: %w", err)
	}
	return nil
}

// UserIDs returns the distinct users holding interactions of the given
// kinds (all kinds when empty).
func (r *InteractionRepo) UserIDs(ctx context.Context, kinds []core.InteractionKind) ([]string, error) {
	query := `
		SELECT DISTINCT user_id
		FROM interactions
		WHERE interaction_type = ANY($1)
	`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(kindStrings(kinds)))
	if err != nil {
		return nil, fmt.Errorf("failed to query user ids: %w", err)
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		users = append(users, id)
	}
	return users, rows.Err()
}

// IDs returns the set of article ids the user has interacted with,
// restricted to the given kinds (all kinds when empty).
func (r *InteractionRepo) IDs(ctx context.Context, userID string, kinds []core.InteractionKind) (map[string]struct{}, error) {
	query := `
		SELECT DISTINCT article_id
		FROM interactions
		WHERE user_id = $1 AND interaction_type = ANY($2)
	`
	rows, err := r.db.QueryContext(ctx, query, userID, pq.Array(kindStrings(kinds)))
	if err != nil {
		return nil, fmt.Errorf("failed to query interacted ids: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan article id: %w", err)
		}
		ids[id] = struct{}{}
	}
	return ids, rows.Err()
}

// History returns the user's interactions of the given kinds, newest first,
// enriched with article fields. Rows referencing deleted articles keep a
// placeholder title.
func (r *InteractionRepo) History(ctx context.Context, userID string, kinds []core.InteractionKind, limit int) ([]core.HistoryEntry, error) {
	query := `
		SELECT i.article_id, i.interaction_type, i.created_at,
		       a.title, a.link, a.category
		FROM interactions i
		LEFT JOIN articles a ON a.id = i.article_id
		WHERE i.user_id = $1 AND i.interaction_type = ANY($2)
		ORDER BY i.created_at DESC
		LIMIT $3
	`
	rows, err := r.db.QueryContext(ctx, query, userID, pq.Array(kindStrings(kinds)), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var entries []core.HistoryEntry
	for rows.Next() {
		var e core.HistoryEntry
		var kindStr string
		var title, link, category sql.NullString
		if err := rows.Scan(&e.ArticleID, &kindStr, &e.CreatedAt, &title, &link, &category); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		kind, err := core.ParseInteractionKind(kindStr)
		if err != nil {
			return nil, err
		}
		e.Kind = kind
		if title.Valid {
			e.Title = title.String
		} else {
			e.Title = DeletedTitle
		}
		e.Link = link.String
		e.Category = category.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// PositiveArticles returns articles the user viewed or dove into, newest
// interaction first, up to limit. Deleted articles are skipped; they cannot
// contribute labels.
func (r *InteractionRepo) PositiveArticles(ctx context.Context, userID string, limit int) ([]core.Article, error) {
	query := `
		SELECT a.id, a.title, a.category, a.category_medium, a.category_minor
		FROM interactions i
		JOIN articles a ON a.id = i.article_id
		WHERE i.user_id = $1 AND i.interaction_type = ANY($2)
		ORDER BY i.created_at DESC
		LIMIT $3
	`
	positive := []core.InteractionKind{core.KindView, core.KindDeepDive}
	rows, err := r.db.QueryContext(ctx, query, userID, pq.Array(kindStrings(positive)), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query positive articles: %w", err)
	}
	defer rows.Close()

	var articles []core.Article
	for rows.Next() {
		var a core.Article
		var medium sql.NullString
		if err := rows.Scan(&a.ID, &a.Title, &a.Category, &medium, pq.Array(&a.CategoryMinor)); err != nil {
			return nil, fmt.Errorf("failed to scan article: %w", err)
		}
		a.CategoryMedium = medium.String
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

// Counts returns the number of interactions per kind for the user.
func (r *InteractionRepo) Counts(ctx context.Context, userID string) (map[core.InteractionKind]int, error) {
	query := `
		SELECT interaction_type, COUNT(*)
		FROM interactions
		WHERE user_id = $1
		GROUP BY interaction_type
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query interaction counts: %w", err)
	}
	defer rows.Close()

	out := make(map[core.InteractionKind]int)
	for rows.Next() {
		var kindStr string
		var n int
		if err := rows.Scan(&kindStr, &n); err != nil {
			return nil, fmt.Errorf("failed to scan interaction count: %w", err)
		}
		kind, err := core.ParseInteractionKind(kindStr)
		if err != nil {
			return nil, err
		}
		out[kind] = n
	}
	return out, rows.Err()
}

func kindStrings(kinds []core.InteractionKind) []string {
	if len(kinds) == 0 {
		kinds = []core.InteractionKind{core.KindView, core.KindDeepDive, core.KindNotInterested}
	}
	out := make([]string, len(kinds))
	for i, k := range kinds {
		out[i] = k.String()
	}
	return out
}
