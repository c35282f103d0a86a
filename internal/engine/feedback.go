package engine

import (
	"context"

	"ownnews/internal/core"
	"ownnews/internal/logger"
	"ownnews/internal/vectors"
)

// RecordView applies weak positive feedback for one article.
func (e *Engine) RecordView(ctx context.Context, articleID string) error {
	return e.recordFeedback(ctx, articleID, core.KindView)
}

// RecordDeepDive applies strong positive feedback for one article.
func (e *Engine) RecordDeepDive(ctx context.Context, articleID string) error {
	return e.recordFeedback(ctx, articleID, core.KindDeepDive)
}

// RecordNotInterested applies strong negative feedback for one article.
func (e *Engine) RecordNotInterested(ctx context.Context, articleID string) error {
	return e.recordFeedback(ctx, articleID, core.KindNotInterested)
}

// recordFeedback logs the interaction and moves the user vector. The log
// write comes first: it is the audit trail, and a failed vector update is
// recomputed from the stale vector on the next feedback.
func (e *Engine) recordFeedback(ctx context.Context, articleID string, kind core.InteractionKind) error {
	if err := e.log.Upsert(ctx, e.userID, articleID, kind); err != nil {
		return err
	}

	v, err := e.articles.Embedding(ctx, articleID)
	if err != nil {
		return err
	}
	if v == nil {
		// Pending or deleted article; the interaction stands, the vector
		// stays put.
		return nil
	}

	u, err := e.vectors.Get(ctx, e.userID)
	if err != nil {
		return err
	}

	alpha := e.alpha[kind]
	if u == nil {
		if alpha <= 0 {
			return nil
		}
		return e.vectors.Upsert(ctx, e.userID, v)
	}
	if len(u) != len(v) {
		// Mixed embedding generations; skip the update until the corpus
		// is re-embedded.
		logger.Warn("embedding dimension mismatch, vector not updated",
			"user", e.userID, "article", articleID,
			"user_dim", len(u), "article_dim", len(v))
		return nil
	}

	return e.vectors.Upsert(ctx, e.userID, applyFeedback(u, v, alpha))
}

// applyFeedback returns the user vector after one feedback step.
// Positive alpha is a convex blend toward v, so the magnitude stays within
// max(norm u, norm v). Negative alpha pushes away from v and rescales back
// to the previous magnitude, so only the direction shifts.
func applyFeedback(u, v []float64, alpha float64) []float64 {
	if alpha >= 0 {
		return vectors.Axpy(alpha, v, vectors.Scale(u, 1-alpha))
	}
	s := -alpha
	moved := vectors.Axpy(-s, v, vectors.Scale(u, 1+s))
	return vectors.Rescale(moved, vectors.Norm(u))
}
