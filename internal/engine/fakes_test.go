package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"ownnews/internal/core"
	"ownnews/internal/vectors"
)

// In-memory stores mirroring the persistence contracts, including the
// cosine-descending order of the similarity match and the idempotent
// interaction upsert.

type fakeArticles struct {
	byID        map[string]core.Article
	order       []string
	random      []core.Article
	daily       map[string]int
	matchCalls  int
	randomCalls int
}

func newFakeArticles(articles ...core.Article) *fakeArticles {
	f := &fakeArticles{byID: make(map[string]core.Article)}
	for _, a := range articles {
		f.byID[a.ID] = a
		f.order = append(f.order, a.ID)
	}
	return f
}

func (f *fakeArticles) Match(ctx context.Context, queryVec []float64, matchCount int) ([]core.RankedArticle, error) {
	f.matchCalls++
	var out []core.RankedArticle
	for _, id := range f.order {
		a := f.byID[id]
		if len(a.Embedding) == 0 {
			continue
		}
		out = append(out, core.RankedArticle{
			Article:    a,
			Similarity: vectors.Cosine(queryVec, a.Embedding),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Similarity > out[j].Similarity })
	if len(out) > matchCount {
		out = out[:matchCount]
	}
	return out, nil
}

func (f *fakeArticles) Random(ctx context.Context, pickCount int) ([]core.Article, error) {
	f.randomCalls++
	pool := f.random
	if pool == nil {
		for _, id := range f.order {
			pool = append(pool, f.byID[id])
		}
	}
	if len(pool) > pickCount {
		pool = pool[:pickCount]
	}
	return pool, nil
}

func (f *fakeArticles) Latest(ctx context.Context, limit int) ([]core.Article, error) {
	var out []core.Article
	for i := len(f.order) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, f.byID[f.order[i]])
	}
	return out, nil
}

func (f *fakeArticles) Embedding(ctx context.Context, articleID string) ([]float64, error) {
	a, ok := f.byID[articleID]
	if !ok || len(a.Embedding) == 0 {
		return nil, nil
	}
	return a.Embedding, nil
}

func (f *fakeArticles) Embeddings(ctx context.Context, articleIDs []string) (map[string][]float64, error) {
	out := make(map[string][]float64)
	for _, id := range articleIDs {
		if a, ok := f.byID[id]; ok && len(a.Embedding) > 0 {
			out[id] = a.Embedding
		}
	}
	return out, nil
}

func (f *fakeArticles) SampleEmbeddings(ctx context.Context, limit int) ([][]float64, error) {
	var out [][]float64
	for _, id := range f.order {
		if len(out) >= limit {
			break
		}
		if a := f.byID[id]; len(a.Embedding) > 0 {
			out = append(out, a.Embedding)
		}
	}
	return out, nil
}

func (f *fakeArticles) ByCategoryLike(ctx context.Context, category string, limit int) ([]core.Article, error) {
	var out []core.Article
	for _, id := range f.order {
		if len(out) >= limit {
			break
		}
		if a := f.byID[id]; strings.Contains(a.Category, category) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeArticles) Count(ctx context.Context) (int, error) {
	return len(f.byID), nil
}

func (f *fakeArticles) DailyCounts(ctx context.Context) (map[string]int, error) {
	return f.daily, nil
}

type fakeVectors struct {
	byUser  map[string][]float64
	upserts int
}

func newFakeVectors() *fakeVectors {
	return &fakeVectors{byUser: make(map[string][]float64)}
}

func (f *fakeVectors) Get(ctx context.Context, userID string) ([]float64, error) {
	v, ok := f.byUser[userID]
	if !ok {
		return nil, nil
	}
	out := make([]float64, len(v))
	copy(out, v)
	return out, nil
}

func (f *fakeVectors) Upsert(ctx context.Context, userID string, vector []float64) error {
	f.upserts++
	stored := make([]float64, len(vector))
	copy(stored, vector)
	f.byUser[userID] = stored
	return nil
}

type fakeLog struct {
	entries  map[string]core.Interaction
	order    []string
	articles *fakeArticles
	positive []core.Article // overrides article resolution when set
	clock    time.Time
}

func newFakeLog(articles *fakeArticles) *fakeLog {
	return &fakeLog{
		entries:  make(map[string]core.Interaction),
		articles: articles,
		clock:    time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC),
	}
}

func logKey(userID, articleID string, kind core.InteractionKind) string {
	return fmt.Sprintf("%s|%s|%s", userID, articleID, kind)
}

func (f *fakeLog) Upsert(ctx context.Context, userID, articleID string, kind core.InteractionKind) error {
	f.clock = f.clock.Add(time.Second)
	key := logKey(userID, articleID, kind)
	if _, ok := f.entries[key]; !ok {
		f.order = append(f.order, key)
	}
	f.entries[key] = core.Interaction{
		UserID:    userID,
		ArticleID: articleID,
		Kind:      kind,
		CreatedAt: f.clock,
	}
	return nil
}

func (f *fakeLog) matching(userID string, kinds []core.InteractionKind) []core.Interaction {
	if len(kinds) == 0 {
		kinds = []core.InteractionKind{core.KindView, core.KindDeepDive, core.KindNotInterested}
	}
	wanted := make(map[core.InteractionKind]bool)
	for _, k := range kinds {
		wanted[k] = true
	}
	var out []core.Interaction
	for _, key := range f.order {
		e := f.entries[key]
		if e.UserID == userID && wanted[e.Kind] {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (f *fakeLog) UserIDs(ctx context.Context, kinds []core.InteractionKind) ([]string, error) {
	wanted := make(map[core.InteractionKind]bool)
	if len(kinds) == 0 {
		kinds = []core.InteractionKind{core.KindView, core.KindDeepDive, core.KindNotInterested}
	}
	for _, k := range kinds {
		wanted[k] = true
	}
	seen := make(map[string]bool)
	var users []string
	for _, key := range f.order {
		e := f.entries[key]
		if wanted[e.Kind] && !seen[e.UserID] {
			seen[e.UserID] = true
			users = append(users, e.UserID)
		}
	}
	return users, nil
}

func (f *fakeLog) IDs(ctx context.Context, userID string, kinds []core.InteractionKind) (map[string]struct{}, error) {
	ids := make(map[string]struct{})
	for _, e := range f.matching(userID, kinds) {
		ids[e.ArticleID] = struct{}{}
	}
	return ids, nil
}

func (f *fakeLog) History(ctx context.Context, userID string, kinds []core.InteractionKind, limit int) ([]core.HistoryEntry, error) {
	var out []core.HistoryEntry
	for _, e := range f.matching(userID, kinds) {
		if len(out) >= limit {
			break
		}
		entry := core.HistoryEntry{ArticleID: e.ArticleID, Kind: e.Kind, CreatedAt: e.CreatedAt, Title: "(deleted)"}
		if a, ok := f.articles.byID[e.ArticleID]; ok {
			entry.Title = a.Title
			entry.Link = a.Link
			entry.Category = a.Category
		}
		out = append(out, entry)
	}
	return out, nil
}

func (f *fakeLog) PositiveArticles(ctx context.Context, userID string, limit int) ([]core.Article, error) {
	if f.positive != nil {
		out := f.positive
		if len(out) > limit {
			out = out[:limit]
		}
		return out, nil
	}
	var out []core.Article
	for _, e := range f.matching(userID, []core.InteractionKind{core.KindView, core.KindDeepDive}) {
		if len(out) >= limit {
			break
		}
		if a, ok := f.articles.byID[e.ArticleID]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeLog) Counts(ctx context.Context, userID string) (map[core.InteractionKind]int, error) {
	out := make(map[core.InteractionKind]int)
	for _, e := range f.matching(userID, nil) {
		out[e.Kind]++
	}
	return out, nil
}

type fakeProfiles struct {
	byUser map[string]*core.UserProfile
}

func newFakeProfiles() *fakeProfiles {
	return &fakeProfiles{byUser: make(map[string]*core.UserProfile)}
}

func (f *fakeProfiles) Ensure(ctx context.Context, userID string) (*core.UserProfile, error) {
	if p, ok := f.byUser[userID]; ok {
		return p, nil
	}
	p := &core.UserProfile{UserID: userID}
	f.byUser[userID] = p
	return p, nil
}

func (f *fakeProfiles) SetOnboarded(ctx context.Context, userID string) error {
	p, ok := f.byUser[userID]
	if !ok {
		p = &core.UserProfile{UserID: userID}
		f.byUser[userID] = p
	}
	p.Onboarded = true
	return nil
}

type fakeHealth struct {
	byKey map[string]core.HealthSnapshot
}

func newFakeHealth() *fakeHealth {
	return &fakeHealth{byKey: make(map[string]core.HealthSnapshot)}
}

func (f *fakeHealth) Upsert(ctx context.Context, snap core.HealthSnapshot) error {
	f.byKey[snap.UserID+"|"+snap.ScoreDate] = snap
	return nil
}

func (f *fakeHealth) History(ctx context.Context, userID string, days int) ([]core.HealthSnapshot, error) {
	var out []core.HealthSnapshot
	for _, s := range f.byKey {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScoreDate < out[j].ScoreDate })
	if len(out) > days {
		out = out[len(out)-days:]
	}
	return out, nil
}

// testHarness bundles an engine with its fakes.
type testHarness struct {
	engine   *Engine
	articles *fakeArticles
	vectors  *fakeVectors
	log      *fakeLog
	profiles *fakeProfiles
	health   *fakeHealth
}

func newHarness(t interface{ Fatalf(string, ...any) }, articles ...core.Article) *testHarness {
	fa := newFakeArticles(articles...)
	h := &testHarness{
		articles: fa,
		vectors:  newFakeVectors(),
		log:      newFakeLog(fa),
		profiles: newFakeProfiles(),
		health:   newFakeHealth(),
	}
	eng, err := New("user@example.com", Deps{
		Articles:     h.articles,
		Vectors:      h.vectors,
		Interactions: h.log,
		Profiles:     h.profiles,
		Health:       h.health,
	}, Options{})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	h.engine = eng
	return h
}

// article builds a test article with an id derived from its link.
func article(link, title, category string, embedding []float64) core.Article {
	return core.Article{
		ID:        core.ArticleID(link),
		Link:      link,
		Title:     title,
		Category:  category,
		Embedding: embedding,
	}
}
