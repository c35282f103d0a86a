package engine

import (
	"context"

	"ownnews/internal/core"
	"ownnews/internal/logger"
	"ownnews/internal/vectors"
)

// RecomputeUserVectors rebuilds every user's interest vector as the mean of
// the embeddings of the articles they viewed or dove into. Run after a
// corpus re-embed: stored vectors keep the old dimension otherwise, and the
// dimension guard would skip every later feedback update. Users whose
// positive history carries no embeddings are left untouched. Returns the
// number of vectors written.
func RecomputeUserVectors(ctx context.Context, articles ArticleStore, log InteractionStore, vecs VectorStore) (int, error) {
	positive := []core.InteractionKind{core.KindView, core.KindDeepDive}

	users, err := log.UserIDs(ctx, positive)
	if err != nil {
		return 0, err
	}

	updated := 0
	for _, userID := range users {
		idSet, err := log.IDs(ctx, userID, positive)
		if err != nil {
			return updated, err
		}
		ids := make([]string, 0, len(idSet))
		for id := range idSet {
			ids = append(ids, id)
		}

		byID, err := articles.Embeddings(ctx, ids)
		if err != nil {
			return updated, err
		}
		embs := make([][]float64, 0, len(byID))
		for _, v := range byID {
			embs = append(embs, v)
		}

		mean := vectors.Mean(embs)
		if mean == nil {
			logger.Warn("no embeddings in positive history, vector unchanged", "user", userID)
			continue
		}
		if err := vecs.Upsert(ctx, userID, mean); err != nil {
			return updated, err
		}
		updated++
	}
	return updated, nil
}
