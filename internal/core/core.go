package core

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Article represents a collected news article. Articles are immutable after
// ingestion and shared across users; only the Collector writes them.
type Article struct {
	ID             string    `json:"id"`              // First 16 hex chars of SHA-256(link)
	Link           string    `json:"link"`            // Canonical source URL (unique)
	Title          string    `json:"title"`           // Article title
	Summary        string    `json:"summary"`         // Feed-provided summary text
	Published      string    `json:"published"`       // Source-provided timestamp string, as-is
	Category       string    `json:"category"`        // Comma-joined coarse tags from the feed
	ImageURL       string    `json:"image_url"`       // OGP image URL, possibly empty
	Embedding      []float64 `json:"embedding"`       // Dense vector, nil while ingestion is pending
	CategoryMedium string    `json:"category_medium"` // Cached medium tag (optional)
	CategoryMinor  []string  `json:"category_minor"`  // Cached minor keywords (optional)
	Nutrients      Nutrients `json:"nutrients"`       // LLM-scored profile; zero until backfilled
	CollectedAt    time.Time `json:"collected_at"`    // Ingestion timestamp
}

// Nutrients are the five 0-100 axes of an article's news-nutrition profile.
// A zero Fact score marks an article as not yet scored.
type Nutrients struct {
	Fact        int `json:"fact_score"`        // objective data, 5W1H transparency
	Context     int `json:"context_score"`     // background, history, the "why"
	Perspective int `json:"perspective_score"` // breadth of viewpoints
	Emotion     int `json:"emotion_score"`     // emotional hook
	Immediacy   int `json:"immediacy_score"`   // freshness, urgency
}

// ArticleID derives the deterministic article identifier from a canonical URL.
func ArticleID(link string) string {
	sum := sha256.Sum256([]byte(link))
	return hex.EncodeToString(sum[:])[:16]
}

// RankedArticle is an article as surfaced in a personalized feed.
type RankedArticle struct {
	Article
	Similarity float64 `json:"similarity"` // Cosine similarity to the user vector; 0 for random picks
	Reason     string  `json:"reason"`     // One-line explanation of why the article was surfaced
}

// ArticleGroup collects near-duplicate articles under a representative.
type ArticleGroup struct {
	Representative RankedArticle   `json:"representative"` // First article of the group, in input order
	Related        []RankedArticle `json:"related"`        // Later articles absorbed by the representative
}

// InteractionKind is the closed set of feedback signals a user can emit.
type InteractionKind int

const (
	KindView InteractionKind = iota
	KindDeepDive
	KindNotInterested
)

// String returns the stable database vocabulary for the kind.
func (k InteractionKind) String() string {
	switch k {
	case KindView:
		return "view"
	case KindDeepDive:
		return "deep_dive"
	case KindNotInterested:
		return "not_interested"
	}
	return "unknown"
}

// Positive reports whether the kind counts toward viewing history and
// health analytics.
func (k InteractionKind) Positive() bool {
	return k == KindView || k == KindDeepDive
}

// ParseInteractionKind maps the database vocabulary back to a kind.
func ParseInteractionKind(s string) (InteractionKind, error) {
	switch s {
	case "view":
		return KindView, nil
	case "deep_dive":
		return KindDeepDive, nil
	case "not_interested":
		return KindNotInterested, nil
	}
	return 0, fmt.Errorf("unknown interaction kind %q", s)
}

// Interaction is a single (user, article, kind) fact. The triple is unique;
// repeated clicks upsert in place.
type Interaction struct {
	UserID    string          `json:"user_id"`
	ArticleID string          `json:"article_id"`
	Kind      InteractionKind `json:"kind"`
	CreatedAt time.Time       `json:"created_at"`
}

// HistoryEntry is an interaction enriched with article fields for display.
// Title carries a placeholder when the article has since been deleted.
type HistoryEntry struct {
	ArticleID string          `json:"article_id"`
	Title     string          `json:"title"`
	Link      string          `json:"link"`
	Category  string          `json:"category"`
	Kind      InteractionKind `json:"kind"`
	CreatedAt time.Time       `json:"created_at"`
}

// UserProfile holds per-user onboarding state.
type UserProfile struct {
	UserID      string `json:"user_id"`
	Onboarded   bool   `json:"onboarded"`
	DisplayName string `json:"display_name"`
}

// CategoryCount is one entry of an ordered label distribution.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// HealthReport is the diversity profile of a user's viewing history at a
// single taxonomy level.
type HealthReport struct {
	DiversityScore    int             `json:"diversity_score"`    // Normalized Shannon entropy, 0-100
	Distribution      []CategoryCount `json:"distribution"`       // Label counts, descending
	DominantCategory  string          `json:"dominant_category"`  // Mode of the label multiset
	DominantRatio     float64         `json:"dominant_ratio"`     // Share of the dominant label
	BiasLevel         string          `json:"bias_level"`         // Ordinal tag derived from DominantRatio
	MissingCategories []string        `json:"missing_categories"` // Onboarding categories never observed (major level only)
	TotalViewed       int             `json:"total_viewed"`       // Size of the label multiset
}

// HierarchicalHealth combines the three taxonomy levels.
type HierarchicalHealth struct {
	Major       HealthReport `json:"major"`
	Medium      HealthReport `json:"medium"`
	Minor       HealthReport `json:"minor"`
	TotalViewed int          `json:"total_viewed"`
}

// HealthSnapshot is the one-row-per-user-per-day persisted health record.
type HealthSnapshot struct {
	UserID      string             `json:"user_id"`
	ScoreDate   string             `json:"score_date"` // Calendar date, YYYY-MM-DD
	Diversity   int                `json:"diversity"`
	BiasRatio   float64            `json:"bias_ratio"`
	TopCategory string             `json:"top_category"`
	Detail      HierarchicalHealth `json:"detail"`
}

// Stats aggregates corpus and interaction totals for the dashboard.
type Stats struct {
	TotalArticles      int            `json:"total_articles"`
	ViewCount          int            `json:"view_count"`
	DeepDiveCount      int            `json:"deep_dive_count"`
	NotInterestedCount int            `json:"not_interested_count"`
	CategoryCounts     map[string]int `json:"category_counts"` // Views per major category
	DailyCounts        map[string]int `json:"daily_counts"`    // Articles collected per day (YYYY-MM-DD)
}
