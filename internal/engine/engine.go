// Package engine implements the per-user ranking engine: interest-vector
// lifecycle, blended similarity+random feeds, online feedback updates,
// near-duplicate grouping and informational-health analytics.
package engine

import (
	"context"
	"errors"
	"time"

	"ownnews/internal/core"
)

// Feedback learning rates and retrieval defaults.
const (
	DefaultAlphaView          = 0.03
	DefaultAlphaDeepDive      = 0.15
	DefaultAlphaNotInterested = -0.20

	DefaultGroupingThreshold = 0.85

	// vectorSeedSample is how many corpus embeddings seed a missing
	// user vector.
	vectorSeedSample = 100

	// topCategoriesWindow is how many recent positive interactions feed
	// the top-3 category set used for reason annotation.
	topCategoriesWindow = 200

	// positiveHistoryLimit bounds the viewing history consumed by the
	// health analytics.
	positiveHistoryLimit = 1000
)

// Typed errors for invalid API inputs. Stored state is never touched when
// one of these is returned.
var (
	ErrEmptyUserID           = errors.New("user id must not be empty")
	ErrInvalidFilterStrength = errors.New("filter strength must be in [0, 1]")
	ErrInvalidTopN           = errors.New("top n must be at least 1")
	ErrTooFewVotes           = errors.New("onboarding requires at least 3 votes")
)

// ArticleStore is the read-only slice of the article table the engine uses.
type ArticleStore interface {
	Match(ctx context.Context, queryVec []float64, matchCount int) ([]core.RankedArticle, error)
	Random(ctx context.Context, pickCount int) ([]core.Article, error)
	Latest(ctx context.Context, limit int) ([]core.Article, error)
	Embedding(ctx context.Context, articleID string) ([]float64, error)
	Embeddings(ctx context.Context, articleIDs []string) (map[string][]float64, error)
	SampleEmbeddings(ctx context.Context, limit int) ([][]float64, error)
	ByCategoryLike(ctx context.Context, category string, limit int) ([]core.Article, error)
	Count(ctx context.Context) (int, error)
	DailyCounts(ctx context.Context) (map[string]int, error)
}

// VectorStore persists the single interest vector per user.
type VectorStore interface {
	Get(ctx context.Context, userID string) ([]float64, error)
	Upsert(ctx context.Context, userID string, vector []float64) error
}

// InteractionStore persists the per-user feedback log.
type InteractionStore interface {
	Upsert(ctx context.Context, userID, articleID string, kind core.InteractionKind) error
	UserIDs(ctx context.Context, kinds []core.InteractionKind) ([]string, error)
	IDs(ctx context.Context, userID string, kinds []core.InteractionKind) (map[string]struct{}, error)
	History(ctx context.Context, userID string, kinds []core.InteractionKind, limit int) ([]core.HistoryEntry, error)
	PositiveArticles(ctx context.Context, userID string, limit int) ([]core.Article, error)
	Counts(ctx context.Context, userID string) (map[core.InteractionKind]int, error)
}

// ProfileStore persists onboarding state.
type ProfileStore interface {
	Ensure(ctx context.Context, userID string) (*core.UserProfile, error)
	SetOnboarded(ctx context.Context, userID string) error
}

// HealthStore persists daily health snapshots.
type HealthStore interface {
	Upsert(ctx context.Context, snap core.HealthSnapshot) error
	History(ctx context.Context, userID string, days int) ([]core.HealthSnapshot, error)
}

// Deps bundles the stores an engine reads and writes.
type Deps struct {
	Articles     ArticleStore
	Vectors      VectorStore
	Interactions InteractionStore
	Profiles     ProfileStore
	Health       HealthStore
}

// Options tunes the engine's constants. Zero values select the defaults.
type Options struct {
	GroupingThreshold  float64
	AlphaView          float64
	AlphaDeepDive      float64
	AlphaNotInterested float64
}

// Engine serves one user's feed, feedback and analytics. It is stateless
// between calls; all durable state lives in the stores.
type Engine struct {
	userID    string
	articles  ArticleStore
	vectors   VectorStore
	log       InteractionStore
	profiles  ProfileStore
	health    HealthStore
	threshold float64
	alpha     map[core.InteractionKind]float64
	now       func() time.Time
}

// New builds an engine bound to one user.
func New(userID string, deps Deps, opts Options) (*Engine, error) {
	if userID == "" {
		return nil, ErrEmptyUserID
	}

	if opts.GroupingThreshold == 0 {
		opts.GroupingThreshold = DefaultGroupingThreshold
	}
	if opts.AlphaView == 0 {
		opts.AlphaView = DefaultAlphaView
	}
	if opts.AlphaDeepDive == 0 {
		opts.AlphaDeepDive = DefaultAlphaDeepDive
	}
	if opts.AlphaNotInterested == 0 {
		opts.AlphaNotInterested = DefaultAlphaNotInterested
	}

	return &Engine{
		userID:    userID,
		articles:  deps.Articles,
		vectors:   deps.Vectors,
		log:       deps.Interactions,
		profiles:  deps.Profiles,
		health:    deps.Health,
		threshold: opts.GroupingThreshold,
		alpha: map[core.InteractionKind]float64{
			core.KindView:          opts.AlphaView,
			core.KindDeepDive:      opts.AlphaDeepDive,
			core.KindNotInterested: opts.AlphaNotInterested,
		},
		now: time.Now,
	}, nil
}

// UserID returns the identity this engine serves.
func (e *Engine) UserID() string {
	return e.userID
}
