package engine

import (
	"context"
	"math"

	"ownnews/internal/core"
	"ownnews/internal/logger"
	"ownnews/internal/vectors"
)

// dislikeWeight scales the negative centroid subtracted from the positive
// centroid when seeding the vector from onboarding votes.
const dislikeWeight = 0.3

// IsOnboarded reports whether the user has completed onboarding, creating
// the profile row on first contact.
func (e *Engine) IsOnboarded(ctx context.Context) (bool, error) {
	profile, err := e.profiles.Ensure(ctx, e.userID)
	if err != nil {
		return false, err
	}
	return profile != nil && profile.Onboarded, nil
}

// OnboardingArticles selects sample articles for the vote screen: an even
// split across the chosen categories, padded with random picks, deduplicated
// by id.
func (e *Engine) OnboardingArticles(ctx context.Context, categories []string, count int) ([]core.Article, error) {
	if count < 1 {
		return nil, ErrInvalidTopN
	}

	var out []core.Article
	seen := make(map[string]struct{})

	if len(categories) > 0 {
		perCategory := int(math.Ceil(float64(count) / float64(len(categories))))
		if perCategory < 3 {
			perCategory = 3
		}
		for _, cat := range categories {
			matches, err := e.articles.ByCategoryLike(ctx, cat, perCategory)
			if err != nil {
				return nil, err
			}
			for _, a := range matches {
				if _, ok := seen[a.ID]; ok {
					continue
				}
				seen[a.ID] = struct{}{}
				out = append(out, a)
			}
		}
	}

	if len(out) < count {
		picks, err := e.articles.Random(ctx, count-len(out)+randomOverfetch)
		if err != nil {
			return nil, err
		}
		for _, a := range picks {
			if len(out) >= count {
				break
			}
			if _, ok := seen[a.ID]; ok {
				continue
			}
			seen[a.ID] = struct{}{}
			out = append(out, a)
		}
	}

	if len(out) > count {
		out = out[:count]
	}
	return out, nil
}

// CompleteOnboarding seeds the user vector from the vote lists and marks
// the user onboarded. The transition is monotonic.
//
// The seed is the mean of the liked embeddings; with dislikes it becomes
// mean(liked) - 0.3*mean(disliked), rescaled to the magnitude of the
// positive centroid.
func (e *Engine) CompleteOnboarding(ctx context.Context, likedIDs, dislikedIDs []string) error {
	if len(likedIDs)+len(dislikedIDs) < 3 {
		return ErrTooFewVotes
	}

	liked, err := e.embeddingsOf(ctx, likedIDs)
	if err != nil {
		return err
	}
	disliked, err := e.embeddingsOf(ctx, dislikedIDs)
	if err != nil {
		return err
	}

	posMean := vectors.Mean(liked)
	if posMean != nil {
		seed := posMean
		if negMean := vectors.Mean(disliked); negMean != nil && len(negMean) == len(posMean) {
			seed = vectors.Rescale(
				vectors.Axpy(-dislikeWeight, negMean, posMean),
				vectors.Norm(posMean))
		}
		if err := e.vectors.Upsert(ctx, e.userID, seed); err != nil {
			return err
		}
	} else {
		// All liked articles were pending; onboarding still completes and
		// the vector is lazily seeded on the first rank call.
		logger.Warn("onboarding votes carried no embeddings", "user", e.userID)
	}

	return e.profiles.SetOnboarded(ctx, e.userID)
}

func (e *Engine) embeddingsOf(ctx context.Context, ids []string) ([][]float64, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	byID, err := e.articles.Embeddings(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([][]float64, 0, len(byID))
	for _, id := range ids {
		if v, ok := byID[id]; ok {
			out = append(out, v)
		}
	}
	return out, nil
}
