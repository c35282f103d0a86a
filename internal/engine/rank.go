package engine

import (
	"context"
	"fmt"
	"math"
	"sort"

	"ownnews/internal/core"
	"ownnews/internal/logger"
	"ownnews/internal/taxonomy"
	"ownnews/internal/vectors"
)

// randomOverfetch extra random picks requested so the feed can be filled
// after discarding overlap with the similarity set.
const randomOverfetch = 10

// Rank produces the personalized feed. filterStrength trades
// personalization for exploration: 1 is pure similarity, 0 is (almost) pure
// random. Similarity results come first, random augmentation after, never
// more than topN items and never a duplicate id.
func (e *Engine) Rank(ctx context.Context, filterStrength float64, topN int) ([]core.RankedArticle, error) {
	if filterStrength < 0 || filterStrength > 1 {
		return nil, ErrInvalidFilterStrength
	}
	if topN < 1 {
		return nil, ErrInvalidTopN
	}

	u, err := e.userVector(ctx)
	if err != nil {
		return nil, err
	}
	if u == nil {
		// No vector could be derived from the corpus; serve latest-only.
		return e.latestFallback(ctx, topN)
	}

	kSim := int(math.Floor(float64(topN) * filterStrength))
	if kSim < 1 {
		kSim = 1
	}
	kRand := topN - kSim

	results, err := e.articles.Match(ctx, u, kSim)
	if err != nil {
		return nil, fmt.Errorf("similarity retrieval failed: %w", err)
	}

	if kRand > 0 {
		picks, err := e.articles.Random(ctx, kRand+randomOverfetch)
		if err != nil {
			return nil, fmt.Errorf("random retrieval failed: %w", err)
		}
		seen := make(map[string]struct{}, len(results))
		for _, r := range results {
			seen[r.ID] = struct{}{}
		}
		for _, a := range picks {
			if len(results) >= topN {
				break
			}
			if _, ok := seen[a.ID]; ok {
				continue
			}
			seen[a.ID] = struct{}{}
			results = append(results, core.RankedArticle{Article: a, Similarity: 0})
		}
	}
	if len(results) > topN {
		results = results[:topN]
	}

	top, err := e.topCategories(ctx)
	if err != nil {
		return nil, err
	}
	for i := range results {
		results[i].Reason = annotateReason(results[i].Similarity,
			taxonomy.SplitMajor(results[i].Category), top)
	}
	return results, nil
}

// RankUnread is Rank minus everything the user has already interacted with.
// Retrieval is widened by the interaction count so filtering still yields a
// full page.
func (e *Engine) RankUnread(ctx context.Context, filterStrength float64, topN int) ([]core.RankedArticle, error) {
	if topN < 1 {
		return nil, ErrInvalidTopN
	}

	interacted, err := e.log.IDs(ctx, e.userID, nil)
	if err != nil {
		return nil, err
	}

	fetch := topN + len(interacted)
	if fetch > topN+topCategoriesWindow {
		fetch = topN + topCategoriesWindow
	}
	ranked, err := e.Rank(ctx, filterStrength, fetch)
	if err != nil {
		return nil, err
	}

	var out []core.RankedArticle
	for _, r := range ranked {
		if _, ok := interacted[r.ID]; ok {
			continue
		}
		out = append(out, r)
		if len(out) >= topN {
			break
		}
	}
	return out, nil
}

// userVector loads the user's interest vector, seeding it from the corpus
// mean on first use. Returns nil when the corpus has no embeddings yet.
func (e *Engine) userVector(ctx context.Context) ([]float64, error) {
	u, err := e.vectors.Get(ctx, e.userID)
	if err != nil {
		return nil, err
	}
	if u != nil {
		return u, nil
	}

	sample, err := e.articles.SampleEmbeddings(ctx, vectorSeedSample)
	if err != nil {
		return nil, err
	}
	u = vectors.Mean(sample)
	if u == nil {
		return nil, nil
	}

	if err := e.vectors.Upsert(ctx, e.userID, u); err != nil {
		return nil, err
	}
	logger.Info("initialized user vector from corpus mean",
		"user", e.userID, "sample", len(sample))
	return u, nil
}

// latestFallback serves the newest articles with zero similarity when no
// user vector exists and none can be derived.
func (e *Engine) latestFallback(ctx context.Context, topN int) ([]core.RankedArticle, error) {
	latest, err := e.articles.Latest(ctx, topN)
	if err != nil {
		return nil, err
	}
	out := make([]core.RankedArticle, 0, len(latest))
	for _, a := range latest {
		out = append(out, core.RankedArticle{
			Article:    a,
			Similarity: 0,
			Reason:     annotateReason(0, taxonomy.SplitMajor(a.Category), nil),
		})
	}
	return out, nil
}

// topCategories returns the user's three most-read major categories, from
// the most recent positive interactions.
func (e *Engine) topCategories(ctx context.Context) ([]string, error) {
	history, err := e.log.PositiveArticles(ctx, e.userID, topCategoriesWindow)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	for _, a := range history {
		for _, c := range taxonomy.SplitMajor(a.Category) {
			counts[c]++
		}
	}

	labels := make([]string, 0, len(counts))
	for c := range counts {
		labels = append(labels, c)
	}
	sort.Slice(labels, func(i, j int) bool {
		if counts[labels[i]] != counts[labels[j]] {
			return counts[labels[i]] > counts[labels[j]]
		}
		return labels[i] < labels[j]
	})
	if len(labels) > 3 {
		labels = labels[:3]
	}
	return labels, nil
}

// annotateReason derives the one-line Japanese explanation for a result
// from its similarity and categories plus the user's top categories.
func annotateReason(similarity float64, categories, top []string) string {
	if similarity > 0.7 {
		return fmt.Sprintf("あなたの関心と%d%%マッチ", int(math.Floor(similarity*100)))
	}
	for _, c := range categories {
		for _, t := range top {
			if c == t {
				return fmt.Sprintf("よく読む「%s」カテゴリの記事", c)
			}
		}
	}
	if similarity > 0.3 {
		return fmt.Sprintf("関心に近い記事（%d%%マッチ）", int(math.Floor(similarity*100)))
	}
	if len(categories) > 0 {
		return fmt.Sprintf("新しい視点: %s", categories[0])
	}
	return "多様性のための提案"
}
