package engine

import (
	"context"

	"ownnews/internal/core"
	"ownnews/internal/taxonomy"
)

// InteractedIDs returns the ids of articles the user has interacted with,
// restricted to the given kinds (all kinds when empty).
func (e *Engine) InteractedIDs(ctx context.Context, kinds []core.InteractionKind) (map[string]struct{}, error) {
	return e.log.IDs(ctx, e.userID, kinds)
}

// InteractionHistory returns the user's enriched history rows, newest
// first.
func (e *Engine) InteractionHistory(ctx context.Context, kinds []core.InteractionKind, limit int) ([]core.HistoryEntry, error) {
	if limit < 1 {
		return nil, ErrInvalidTopN
	}
	return e.log.History(ctx, e.userID, kinds, limit)
}

// Stats aggregates the dashboard numbers: corpus totals, per-kind
// interaction counts, views per major category and articles collected per
// day.
func (e *Engine) Stats(ctx context.Context) (core.Stats, error) {
	var stats core.Stats

	total, err := e.articles.Count(ctx)
	if err != nil {
		return stats, err
	}
	stats.TotalArticles = total

	counts, err := e.log.Counts(ctx, e.userID)
	if err != nil {
		return stats, err
	}
	stats.ViewCount = counts[core.KindView]
	stats.DeepDiveCount = counts[core.KindDeepDive]
	stats.NotInterestedCount = counts[core.KindNotInterested]

	history, err := e.log.PositiveArticles(ctx, e.userID, positiveHistoryLimit)
	if err != nil {
		return stats, err
	}
	stats.CategoryCounts = make(map[string]int)
	for _, a := range history {
		for _, c := range taxonomy.SplitMajor(a.Category) {
			stats.CategoryCounts[c]++
		}
	}

	daily, err := e.articles.DailyCounts(ctx)
	if err != nil {
		return stats, err
	}
	stats.DailyCounts = daily

	return stats, nil
}
