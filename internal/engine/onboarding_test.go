package engine

import (
	"context"
	"errors"
	"math"
	"testing"

	"ownnews/internal/core"
	"ownnews/internal/vectors"
)

func TestIsOnboardedCreatesProfile(t *testing.T) {
	h := newHarness(t)

	onboarded, err := h.engine.IsOnboarded(context.Background())
	if err != nil {
		t.Fatalf("IsOnboarded failed: %v", err)
	}
	if onboarded {
		t.Error("fresh user reported as onboarded")
	}
	if _, ok := h.profiles.byUser["user@example.com"]; !ok {
		t.Error("profile row was not created on first contact")
	}
}

func TestCompleteOnboardingRequiresThreeVotes(t *testing.T) {
	h := newHarness(t)
	err := h.engine.CompleteOnboarding(context.Background(),
		[]string{"a"}, []string{"b"})
	if !errors.Is(err, ErrTooFewVotes) {
		t.Fatalf("err = %v, want ErrTooFewVotes", err)
	}
	if p := h.profiles.byUser["user@example.com"]; p != nil && p.Onboarded {
		t.Error("too few votes must not complete onboarding")
	}
}

func TestCompleteOnboardingLikedOnly(t *testing.T) {
	e1 := []float64{1, 0}
	e2 := []float64{0, 1}
	e3 := []float64{1, 1}
	a1 := article("https://n.example.com/1", "一", "経済", e1)
	a2 := article("https://n.example.com/2", "二", "政治", e2)
	a3 := article("https://n.example.com/3", "三", "国際", e3)
	h := newHarness(t, a1, a2, a3)

	err := h.engine.CompleteOnboarding(context.Background(),
		[]string{a1.ID, a2.ID, a3.ID}, nil)
	if err != nil {
		t.Fatalf("CompleteOnboarding failed: %v", err)
	}

	u := h.vectors.byUser["user@example.com"]
	want := vectors.Mean([][]float64{e1, e2, e3})
	if !almostEqual(u, want, 1e-12) {
		t.Errorf("u = %v, want mean of liked %v", u, want)
	}

	onboarded, _ := h.engine.IsOnboarded(context.Background())
	if !onboarded {
		t.Error("user not marked onboarded")
	}
}

func TestCompleteOnboardingWithDislikes(t *testing.T) {
	liked1 := article("https://n.example.com/1", "一", "経済", []float64{1, 0})
	liked2 := article("https://n.example.com/2", "二", "経済", []float64{0.8, 0.2})
	disliked := article("https://n.example.com/3", "三", "芸能", []float64{0, 1})
	h := newHarness(t, liked1, liked2, disliked)

	err := h.engine.CompleteOnboarding(context.Background(),
		[]string{liked1.ID, liked2.ID}, []string{disliked.ID})
	if err != nil {
		t.Fatalf("CompleteOnboarding failed: %v", err)
	}

	u := h.vectors.byUser["user@example.com"]
	posMean := vectors.Mean([][]float64{liked1.Embedding, liked2.Embedding})

	// Seed keeps the positive centroid's magnitude but points away from
	// the disliked embedding.
	if math.Abs(vectors.Norm(u)-vectors.Norm(posMean)) > 1e-9 {
		t.Errorf("norm = %v, want %v preserved", vectors.Norm(u), vectors.Norm(posMean))
	}
	if vectors.Cosine(u, disliked.Embedding) >= vectors.Cosine(posMean, disliked.Embedding) {
		t.Error("seed is not further from the disliked embedding than the positive mean")
	}
}

func TestCompleteOnboardingAllPendingStillOnboards(t *testing.T) {
	p1 := article("https://n.example.com/1", "一", "経済", nil)
	p2 := article("https://n.example.com/2", "二", "政治", nil)
	p3 := article("https://n.example.com/3", "三", "国際", nil)
	h := newHarness(t, p1, p2, p3)

	err := h.engine.CompleteOnboarding(context.Background(),
		[]string{p1.ID, p2.ID, p3.ID}, nil)
	if err != nil {
		t.Fatalf("CompleteOnboarding failed: %v", err)
	}
	if len(h.vectors.byUser) != 0 {
		t.Error("no vector should be stored when all votes are pending")
	}
	onboarded, _ := h.engine.IsOnboarded(context.Background())
	if !onboarded {
		t.Error("user must still complete onboarding")
	}
}

func TestOnboardingArticlesSplitAndPad(t *testing.T) {
	var articles []core.Article
	for i := 0; i < 4; i++ {
		articles = append(articles, article(link(i), "経済記事", "経済", []float64{1, 0}))
	}
	for i := 4; i < 8; i++ {
		articles = append(articles, article(link(i), "政治記事", "政治", []float64{0, 1}))
	}
	for i := 8; i < 20; i++ {
		articles = append(articles, article(link(i), "その他", "生活", []float64{1, 1}))
	}
	h := newHarness(t, articles...)

	got, err := h.engine.OnboardingArticles(context.Background(),
		[]string{"経済", "政治"}, 12)
	if err != nil {
		t.Fatalf("OnboardingArticles failed: %v", err)
	}
	if len(got) != 12 {
		t.Fatalf("got %d samples, want 12", len(got))
	}

	seen := make(map[string]bool)
	categoryHits := 0
	for _, a := range got {
		if seen[a.ID] {
			t.Errorf("duplicate sample %s", a.ID)
		}
		seen[a.ID] = true
		if a.Category == "経済" || a.Category == "政治" {
			categoryHits++
		}
	}
	// 4 matches per chosen category, the rest padded randomly.
	if categoryHits != 8 {
		t.Errorf("%d category matches, want 8", categoryHits)
	}
}

func TestOnboardingArticlesNoCategories(t *testing.T) {
	var articles []core.Article
	for i := 0; i < 10; i++ {
		articles = append(articles, article(link(i), "記事", "経済", []float64{1, 0}))
	}
	h := newHarness(t, articles...)

	got, err := h.engine.OnboardingArticles(context.Background(), nil, 6)
	if err != nil {
		t.Fatalf("OnboardingArticles failed: %v", err)
	}
	if len(got) != 6 {
		t.Errorf("got %d samples, want 6 random picks", len(got))
	}
}
