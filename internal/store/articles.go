package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"ownnews/internal/core"
)

// ArticleRepo reads and writes the shared article table. The ranking engine
// only reads; writes come from the collector and the maintenance commands.
type ArticleRepo struct {
	db *sql.DB
}

// ExistingLinks returns the set of all known article links, used by the
// collector to deduplicate incoming feed entries.
func (r *ArticleRepo) ExistingLinks(ctx context.Context) (map[string]struct{}, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT link FROM articles`)
	if err != nil {
		return nil, fmt.Errorf("failed to query links: %w", err)
	}
	defer rows.Close()

	links := make(map[string]struct{})
	for rows.Next() {
		var link string
		if err := rows.Scan(&link); err != nil {
			return nil, fmt.Errorf("failed to scan link: %w", err)
		}
		links[link] = struct{}{}
	}
	return links, rows.Err()
}

// Upsert writes a batch of articles keyed on link. Re-upserting an existing
// link refreshes the embedding and cached category columns, so a partially
// failed batch is safe to retry whole.
func (r *ArticleRepo) Upsert(ctx context.Context, articles []core.Article) error {
	if len(articles) == 0 {
		return nil
	}

	query := `
		INSERT INTO articles
			(id, link, title, summary, published, category, image_url,
			 embedding, category_medium, category_minor, collected_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::vector, $9, $10, NOW())
		ON CONFLICT (link) DO UPDATE SET
			embedding = EXCLUDED.embedding,
			category_medium = EXCLUDED.category_medium,
			category_minor = EXCLUDED.category_minor
	`

	for _, a := range articles {
		var emb any
		if len(a.Embedding) > 0 {
			emb = encodeVector(a.Embedding)
		}
		var medium any
		if a.CategoryMedium != "" {
			medium = a.CategoryMedium
		}
		_, err := r.db.ExecContext(ctx, query,
			a.ID, a.Link, a.Title, a.Summary, a.Published, a.Category,
			a.ImageURL, emb, medium, pq.Array(a.CategoryMinor),
		)
		if err != nil {
			return fmt.Errorf("failed to upsert article %s: %w", a.ID, err)
		}
	}
	return nil
}

// Match calls the match_articles stored procedure: top-k articles by cosine
// similarity to the query vector, sorted descending.
func (r *ArticleRepo) Match(ctx context.Context, queryVec []float64, matchCount int) ([]core.RankedArticle, error) {
	query := `
		SELECT id, title, link, summary, published, category, image_url, similarity
		FROM match_articles($1::vector, $2)
	`
	rows, err := r.db.QueryContext(ctx, query, encodeVector(queryVec), matchCount)
	if err != nil {
		return nil, fmt.Errorf("failed to match articles: %w", err)
	}
	defer rows.Close()

	var results []core.RankedArticle
	for rows.Next() {
		var ra core.RankedArticle
		var imageURL sql.NullString
		if err := rows.Scan(&ra.ID, &ra.Title, &ra.Link, &ra.Summary,
			&ra.Published, &ra.Category, &imageURL, &ra.Similarity); err != nil {
			return nil, fmt.Errorf("failed to scan match result: %w", err)
		}
		ra.ImageURL = imageURL.String
		results = append(results, ra)
	}
	return results, rows.Err()
}

// Random calls the random_articles stored procedure. Sampling distribution
// is the store's business; rows with pending embeddings are included.
func (r *ArticleRepo) Random(ctx context.Context, pickCount int) ([]core.Article, error) {
	query := `
		SELECT id, title, link, summary, published, category, image_url
		FROM random_articles($1)
	`
	rows, err := r.db.QueryContext(ctx, query, pickCount)
	if err != nil {
		return nil, fmt.Errorf("failed to pick random articles: %w", err)
	}
	defer rows.Close()

	var results []core.Article
	for rows.Next() {
		var a core.Article
		var imageURL sql.NullString
		if err := rows.Scan(&a.ID, &a.Title, &a.Link, &a.Summary,
			&a.Published, &a.Category, &imageURL); err != nil {
			return nil, fmt.Errorf("failed to scan random article: %w", err)
		}
		a.ImageURL = imageURL.String
		results = append(results, a)
	}
	return results, rows.Err()
}

// Latest returns the most recently collected articles, embeddings or not.
// This is the fallback feed when no user vector can be derived.
func (r *ArticleRepo) Latest(ctx context.Context, limit int) ([]core.Article, error) {
	query := `
		SELECT id, title, link, summary, published, category, image_url
		FROM articles
		ORDER BY collected_at DESC
		LIMIT $1
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest articles: %w", err)
	}
	defer rows.Close()

	var results []core.Article
	for rows.Next() {
		var a core.Article
		var imageURL sql.NullString
		if err := rows.Scan(&a.ID, &a.Title, &a.Link, &a.Summary,
			&a.Published, &a.Category, &imageURL); err != nil {
			return nil, fmt.Errorf("failed to scan article: %w", err)
		}
		a.ImageURL = imageURL.String
		results = append(results, a)
	}
	return results, rows.Err()
}

// Embedding returns the embedding of one article, or nil when the article
// is missing or its embedding is pending.
func (r *ArticleRepo) Embedding(ctx context.Context, articleID string) ([]float64, error) {
	var raw any
	err := r.db.QueryRowContext(ctx,
		`SELECT embedding::text FROM articles WHERE id = $1`, articleID,
	).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query embedding: %w", err)
	}
	return decodeVector(raw)
}

// Embeddings returns the non-null embeddings for the given article ids.
func (r *ArticleRepo) Embeddings(ctx context.Context, articleIDs []string) (map[string][]float64, error) {
	if len(articleIDs) == 0 {
		return map[string][]float64{}, nil
	}
	query := `
		SELECT id, embedding::text
		FROM articles
		WHERE id = ANY($1) AND embedding IS NOT NULL
	`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(articleIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to query embeddings: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]float64, len(articleIDs))
	for rows.Next() {
		var id string
		var raw any
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan embedding: %w", err)
		}
		vec, err := decodeVector(raw)
		if err != nil {
			return nil, fmt.Errorf("article %s: %w", id, err)
		}
		if vec != nil {
			out[id] = vec
		}
	}
	return out, rows.Err()
}

// SampleEmbeddings returns up to limit non-null embeddings in no particular
// order, used to seed a user vector from the corpus mean.
func (r *ArticleRepo) SampleEmbeddings(ctx context.Context, limit int) ([][]float64, error) {
	query := `
		SELECT embedding::text
		FROM articles
		WHERE embedding IS NOT NULL
		LIMIT $1
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to sample embeddings: %w", err)
	}
	defer rows.Close()

	var out [][]float64
	for rows.Next() {
		var raw any
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan embedding: %w", err)
		}
		vec, err := decodeVector(raw)
		if err != nil {
			return nil, err
		}
		if vec != nil {
			out = append(out, vec)
		}
	}
	return out, rows.Err()
}

// ByCategoryLike returns articles whose comma-joined category field matches
// the pattern %cat% case-insensitively, newest first.
func (r *ArticleRepo) ByCategoryLike(ctx context.Context, category string, limit int) ([]core.Article, error) {
	query := `
		SELECT id, title, link, summary, published, category, image_url
		FROM articles
		WHERE category ILIKE '%' || $1 || '%'
		ORDER BY collected_at DESC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, category, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query by category: %w", err)
	}
	defer rows.Close()

	var results []core.Article
	for rows.Next() {
		var a core.Article
		var imageURL sql.NullString
		if err := rows.Scan(&a.ID, &a.Title, &a.Link, &a.Summary,
			&a.Published, &a.Category, &imageURL); err != nil {
			return nil, fmt.Errorf("failed to scan article: %w", err)
		}
		a.ImageURL = imageURL.String
		results = append(results, a)
	}
	return results, rows.Err()
}

// Count returns the total number of articles.
func (r *ArticleRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM articles`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count articles: %w", err)
	}
	return n, nil
}

// DailyCounts returns collected-article counts keyed by calendar day.
func (r *ArticleRepo) DailyCounts(ctx context.Context) (map[string]int, error) {
	query := `
		SELECT to_char(collected_at, 'YYYY-MM-DD') AS day, COUNT(*)
		FROM articles
		GROUP BY day
		ORDER BY day
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily counts: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var day string
		var n int
		if err := rows.Scan(&day, &n); err != nil {
			return nil, fmt.Errorf("failed to scan daily count: %w", err)
		}
		out[day] = n
	}
	return out, rows.Err()
}

// MissingMedium pages through embedded articles whose cached medium
// category has not been computed yet.
func (r *ArticleRepo) MissingMedium(ctx context.Context, limit, offset int) ([]core.Article, error) {
	query := `
		SELECT id, title, summary, category
		FROM articles
		WHERE (category_medium IS NULL OR category_medium = '')
		  AND embedding IS NOT NULL
		ORDER BY collected_at
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query articles missing medium: %w", err)
	}
	defer rows.Close()

	var results []core.Article
	for rows.Next() {
		var a core.Article
		if err := rows.Scan(&a.ID, &a.Title, &a.Summary, &a.Category); err != nil {
			return nil, fmt.Errorf("failed to scan article: %w", err)
		}
		results = append(results, a)
	}
	return results, rows.Err()
}

// UpdateCategories sets the cached medium tag and minor keywords for one
// article. A column update, not an upsert, so other columns are untouched.
func (r *ArticleRepo) UpdateCategories(ctx context.Context, articleID, medium string, minor []string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE articles
		SET category_medium = $1, category_minor = $2
		WHERE id = $3
	`, medium, pq.Array(minor), articleID)
	if err != nil {
		return fmt.Errorf("failed to update categories for %s: %w", articleID, err)
	}
	return nil
}

// MissingNutrients pages through articles not yet scored on the nutrient
// axes. A zero fact score marks a row as unscored.
func (r *ArticleRepo) MissingNutrients(ctx context.Context, limit int) ([]core.Article, error) {
	query := `
		SELECT id, title, summary
		FROM articles
		WHERE fact_score IS NULL OR fact_score = 0
		ORDER BY collected_at
		LIMIT $1
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query articles missing nutrients: %w", err)
	}
	defer rows.Close()

	var results []core.Article
	for rows.Next() {
		var a core.Article
		if err := rows.Scan(&a.ID, &a.Title, &a.Summary); err != nil {
			return nil, fmt.Errorf("failed to scan article: %w", err)
		}
		results = append(results, a)
	}
	return results, rows.Err()
}

// UpdateNutrients stores the five nutrient scores for one article. The
// cached category columns are refreshed only when the new values are
// non-empty.
func (r *ArticleRepo) UpdateNutrients(ctx context.Context, articleID string, n core.Nutrients, medium string, minor []string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE articles
		SET fact_score        = $1,
		    context_score     = $2,
		    perspective_score = $3,
		    emotion_score     = $4,
		    immediacy_score   = $5,
		    category_medium   = CASE WHEN $6 <> '' THEN $6 ELSE category_medium END,
		    category_minor    = CASE WHEN cardinality($7::text[]) > 0 THEN $7::text[] ELSE category_minor END
		WHERE id = $8
	`, n.Fact, n.Context, n.Perspective, n.Emotion, n.Immediacy,
		medium, pq.Array(minor), articleID)
	if err != nil {
		return fmt.Errorf("failed to update nutrients for %s: %w", articleID, err)
	}
	return nil
}

// PendingEmbedding returns articles whose embedding is still null, oldest
// first, for the re-embed migration.
func (r *ArticleRepo) PendingEmbedding(ctx context.Context, limit int) ([]core.Article, error) {
	query := `
		SELECT id, title, summary
		FROM articles
		WHERE embedding IS NULL
		ORDER BY collected_at
		LIMIT $1
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending articles: %w", err)
	}
	defer rows.Close()

	var results []core.Article
	for rows.Next() {
		var a core.Article
		if err := rows.Scan(&a.ID, &a.Title, &a.Summary); err != nil {
			return nil, fmt.Errorf("failed to scan article: %w", err)
		}
		results = append(results, a)
	}
	return results, rows.Err()
}

// UpdateEmbedding stores the embedding for one article.
func (r *ArticleRepo) UpdateEmbedding(ctx context.Context, articleID string, embedding []float64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE articles SET embedding = $1::vector WHERE id = $2
	`, encodeVector(embedding), articleID)
	if err != nil {
		return fmt.Errorf("failed to update embedding for %s: %w", articleID, err)
	}
	return nil
}
