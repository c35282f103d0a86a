package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"ownnews/internal/config"
	"ownnews/internal/core"
	"ownnews/internal/engine"
	"ownnews/internal/logger"
)

// fakeEngine records calls and returns canned data.
type fakeEngine struct {
	userID     string
	ranked     []core.RankedArticle
	rankErr    error
	recorded   []string
	onboarded  bool
	liked      []string
	disliked   []string
	unreadUsed bool
}

func (f *fakeEngine) Rank(ctx context.Context, filterStrength float64, topN int) ([]core.RankedArticle, error) {
	if f.rankErr != nil {
		return nil, f.rankErr
	}
	return f.ranked, nil
}

func (f *fakeEngine) RankUnread(ctx context.Context, filterStrength float64, topN int) ([]core.RankedArticle, error) {
	f.unreadUsed = true
	return f.ranked, nil
}

func (f *fakeEngine) GroupSimilarArticles(ctx context.Context, list []core.RankedArticle, threshold float64) ([]core.ArticleGroup, error) {
	groups := make([]core.ArticleGroup, len(list))
	for i, a := range list {
		groups[i] = core.ArticleGroup{Representative: a}
	}
	return groups, nil
}

func (f *fakeEngine) RecordView(ctx context.Context, articleID string) error {
	f.recorded = append(f.recorded, "view:"+articleID)
	return nil
}

func (f *fakeEngine) RecordDeepDive(ctx context.Context, articleID string) error {
	f.recorded = append(f.recorded, "deep_dive:"+articleID)
	return nil
}

func (f *fakeEngine) RecordNotInterested(ctx context.Context, articleID string) error {
	f.recorded = append(f.recorded, "not_interested:"+articleID)
	return nil
}

func (f *fakeEngine) IsOnboarded(ctx context.Context) (bool, error) { return f.onboarded, nil }

func (f *fakeEngine) OnboardingArticles(ctx context.Context, categories []string, count int) ([]core.Article, error) {
	return nil, nil
}

func (f *fakeEngine) CompleteOnboarding(ctx context.Context, likedIDs, dislikedIDs []string) error {
	if len(likedIDs)+len(dislikedIDs) < 3 {
		return engine.ErrTooFewVotes
	}
	f.liked = likedIDs
	f.disliked = dislikedIDs
	return nil
}

func (f *fakeEngine) InteractedIDs(ctx context.Context, kinds []core.InteractionKind) (map[string]struct{}, error) {
	return map[string]struct{}{"abc": {}}, nil
}

func (f *fakeEngine) InteractionHistory(ctx context.Context, kinds []core.InteractionKind, limit int) ([]core.HistoryEntry, error) {
	return nil, nil
}

func (f *fakeEngine) Stats(ctx context.Context) (core.Stats, error) {
	return core.Stats{TotalArticles: 42}, nil
}

func (f *fakeEngine) InfoHealth(ctx context.Context) (core.HealthReport, error) {
	return core.HealthReport{DiversityScore: 72, BiasLevel: "偏食（強）"}, nil
}

func (f *fakeEngine) HierarchicalHealth(ctx context.Context) (core.HierarchicalHealth, error) {
	return core.HierarchicalHealth{TotalViewed: 10}, nil
}

func (f *fakeEngine) RecordHealthSnapshot(ctx context.Context) error { return nil }

func (f *fakeEngine) HealthHistory(ctx context.Context, days int) ([]core.HealthSnapshot, error) {
	return nil, nil
}

type fakeAnalyst struct{ reply string }

func (f *fakeAnalyst) DeepDive(ctx context.Context, title, summary string) (string, error) {
	return f.reply, nil
}

func newTestServer(fake *fakeEngine, analyst Analyst) *Server {
	s := &Server{
		router:      chi.NewRouter(),
		analyst:     analyst,
		cfg:         &config.Config{},
		log:         logger.Get(),
		defaultUser: "default@example.com",
	}
	s.engines = func(userID string) (Engine, error) {
		fake.userID = userID
		return fake, nil
	}
	s.setupRoutes()
	return s
}

func doJSON(t *testing.T, s *Server, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var decoded map[string]any
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("response is not JSON: %v\n%s", err, rec.Body.String())
		}
	}
	return rec, decoded
}

func TestFeedEndpoint(t *testing.T) {
	fake := &fakeEngine{ranked: []core.RankedArticle{
		{Article: core.Article{ID: "a1", Title: "記事"}, Similarity: 0.9, Reason: "あなたの関心と90%マッチ"},
	}}
	s := newTestServer(fake, nil)

	rec, body := doJSON(t, s, http.MethodGet, "/api/feed?filter=0.8&n=10", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	articles := body["articles"].([]any)
	if len(articles) != 1 {
		t.Fatalf("got %d articles", len(articles))
	}
	if fake.userID != "default@example.com" {
		t.Errorf("engine resolved for %q, want the default user", fake.userID)
	}
	if fake.unreadUsed {
		t.Error("unread path used without the unread parameter")
	}
}

func TestFeedUnreadAndUserHeader(t *testing.T) {
	fake := &fakeEngine{}
	s := newTestServer(fake, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/feed?unread=1", nil)
	req.Header.Set("X-User-ID", "alice@example.com")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !fake.unreadUsed {
		t.Error("unread parameter did not select the unread path")
	}
	if fake.userID != "alice@example.com" {
		t.Errorf("engine resolved for %q, want the header user", fake.userID)
	}
}

func TestFeedValidationError(t *testing.T) {
	fake := &fakeEngine{rankErr: engine.ErrInvalidFilterStrength}
	s := newTestServer(fake, nil)

	rec, body := doJSON(t, s, http.MethodGet, "/api/feed?filter=2", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if body["error"] == nil {
		t.Error("error payload missing")
	}
}

func TestGroupedFeedEndpoint(t *testing.T) {
	fake := &fakeEngine{ranked: []core.RankedArticle{
		{Article: core.Article{ID: "a1"}},
		{Article: core.Article{ID: "a2"}},
	}}
	s := newTestServer(fake, nil)

	rec, body := doJSON(t, s, http.MethodGet, "/api/feed/grouped", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if groups := body["groups"].([]any); len(groups) != 2 {
		t.Errorf("got %d groups", len(groups))
	}
}

func TestRecordEndpoints(t *testing.T) {
	fake := &fakeEngine{}
	s := newTestServer(fake, nil)

	if rec, _ := doJSON(t, s, http.MethodPost, "/api/articles/a1/view", ""); rec.Code != http.StatusOK {
		t.Fatalf("view status = %d", rec.Code)
	}
	if rec, _ := doJSON(t, s, http.MethodPost, "/api/articles/a2/not-interested", ""); rec.Code != http.StatusOK {
		t.Fatalf("not-interested status = %d", rec.Code)
	}
	want := []string{"view:a1", "not_interested:a2"}
	for i, r := range fake.recorded {
		if r != want[i] {
			t.Errorf("recorded[%d] = %q, want %q", i, r, want[i])
		}
	}
}

func TestDeepDiveEndpointWithAnalysis(t *testing.T) {
	fake := &fakeEngine{}
	s := newTestServer(fake, &fakeAnalyst{reply: "背景の分析"})

	rec, body := doJSON(t, s, http.MethodPost, "/api/articles/a1/deep-dive",
		`{"title":"タイトル","summary":"概要"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body["analysis"] != "背景の分析" {
		t.Errorf("analysis = %v", body["analysis"])
	}
	if len(fake.recorded) != 1 || fake.recorded[0] != "deep_dive:a1" {
		t.Errorf("recorded = %v", fake.recorded)
	}
}

func TestDeepDiveWithoutAnalyst(t *testing.T) {
	fake := &fakeEngine{}
	s := newTestServer(fake, nil)

	rec, body := doJSON(t, s, http.MethodPost, "/api/articles/a1/deep-dive",
		`{"title":"タイトル"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if _, ok := body["analysis"]; ok {
		t.Error("analysis present without an analyst")
	}
}

func TestOnboardingEndpoints(t *testing.T) {
	fake := &fakeEngine{onboarded: true}
	s := newTestServer(fake, nil)

	rec, body := doJSON(t, s, http.MethodGet, "/api/onboarding/status", "")
	if rec.Code != http.StatusOK || body["onboarded"] != true {
		t.Fatalf("status body = %d %v", rec.Code, body)
	}

	rec, _ = doJSON(t, s, http.MethodPost, "/api/onboarding/complete",
		`{"liked":["a","b"],"disliked":["c"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("complete status = %d", rec.Code)
	}
	if len(fake.liked) != 2 || len(fake.disliked) != 1 {
		t.Errorf("votes = %v / %v", fake.liked, fake.disliked)
	}

	rec, _ = doJSON(t, s, http.MethodPost, "/api/onboarding/complete",
		`{"liked":["a"]}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("too few votes status = %d, want 400", rec.Code)
	}

	rec, _ = doJSON(t, s, http.MethodPost, "/api/onboarding/complete", `not json`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad body status = %d, want 400", rec.Code)
	}
}

func TestInteractionAndStatsEndpoints(t *testing.T) {
	fake := &fakeEngine{}
	s := newTestServer(fake, nil)

	rec, body := doJSON(t, s, http.MethodGet, "/api/interactions/ids?kinds=view,deep_dive", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("ids status = %d", rec.Code)
	}
	if ids := body["ids"].([]any); len(ids) != 1 || ids[0] != "abc" {
		t.Errorf("ids = %v", ids)
	}

	rec, _ = doJSON(t, s, http.MethodGet, "/api/interactions/ids?kinds=nonsense", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad kind status = %d, want 400", rec.Code)
	}

	rec, body = doJSON(t, s, http.MethodGet, "/api/stats", "")
	if rec.Code != http.StatusOK || body["total_articles"] != float64(42) {
		t.Errorf("stats = %d %v", rec.Code, body)
	}
}

func TestHealthProfileEndpoints(t *testing.T) {
	fake := &fakeEngine{}
	s := newTestServer(fake, nil)

	rec, body := doJSON(t, s, http.MethodGet, "/api/info-health/", "")
	if rec.Code != http.StatusOK || body["diversity_score"] != float64(72) {
		t.Fatalf("info-health = %d %v", rec.Code, body)
	}

	rec, body = doJSON(t, s, http.MethodGet, "/api/info-health/hierarchical", "")
	if rec.Code != http.StatusOK || body["total_viewed"] != float64(10) {
		t.Fatalf("hierarchical = %d %v", rec.Code, body)
	}

	rec, _ = doJSON(t, s, http.MethodPost, "/api/info-health/snapshot", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("snapshot status = %d", rec.Code)
	}

	rec, body = doJSON(t, s, http.MethodGet, "/api/info-health/history?days=7", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("history status = %d", rec.Code)
	}
	if _, ok := body["snapshots"]; !ok {
		t.Error("snapshots key missing")
	}
}
