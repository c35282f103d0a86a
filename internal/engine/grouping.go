package engine

import (
	"context"

	"ownnews/internal/core"
	"ownnews/internal/vectors"
)

// GroupSimilarArticles partitions a ranked list into near-duplicate groups.
// A threshold of 0 selects the engine default. Embeddings missing from the
// input are backfilled from the store; articles that still lack one form
// singleton groups.
func (e *Engine) GroupSimilarArticles(ctx context.Context, list []core.RankedArticle, threshold float64) ([]core.ArticleGroup, error) {
	if threshold <= 0 {
		threshold = e.threshold
	}

	var missing []string
	for _, a := range list {
		if len(a.Embedding) == 0 {
			missing = append(missing, a.ID)
		}
	}
	if len(missing) > 0 {
		byID, err := e.articles.Embeddings(ctx, missing)
		if err != nil {
			return nil, err
		}
		for i := range list {
			if len(list[i].Embedding) == 0 {
				list[i].Embedding = byID[list[i].ID]
			}
		}
	}

	return groupGreedy(list, threshold), nil
}

// groupGreedy is the deterministic grouping pass. The first unvisited
// article becomes a representative; each later unvisited article joins the
// group when it sits within the threshold of ANY current member, so
// membership chains through absorbed articles. A member may therefore be
// far from the representative itself. Groups never re-merge once closed,
// so this is a single greedy pass, not transitive clustering over the
// whole list. Representatives keep input order.
func groupGreedy(list []core.RankedArticle, threshold float64) []core.ArticleGroup {
	visited := make([]bool, len(list))
	var groups []core.ArticleGroup

	for i, rep := range list {
		if visited[i] {
			continue
		}
		visited[i] = true

		group := core.ArticleGroup{Representative: rep}
		if len(rep.Embedding) > 0 {
			members := [][]float64{rep.Embedding}
			for j := i + 1; j < len(list); j++ {
				if visited[j] || len(list[j].Embedding) == 0 {
					continue
				}
				for _, m := range members {
					if vectors.Cosine(m, list[j].Embedding) >= threshold {
						visited[j] = true
						group.Related = append(group.Related, list[j])
						members = append(members, list[j].Embedding)
						break
					}
				}
			}
		}
		groups = append(groups, group)
	}
	return groups
}
