package engine

import (
	"context"
	"math"
	"testing"

	"ownnews/internal/core"
	"ownnews/internal/vectors"
)

func almostEqual(a, b []float64, tol float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.Abs(a[i]-b[i]) > tol {
			return false
		}
	}
	return true
}

func TestDeepDiveThenNotInterested(t *testing.T) {
	eA := []float64{1, 0}
	eB := []float64{0, 1}
	a := article("https://n.example.com/a", "A", "政治", eA)
	b := article("https://n.example.com/b", "B", "経済", eB)
	h := newHarness(t, a, b)
	h.vectors.byUser["user@example.com"] = eA

	if err := h.engine.RecordDeepDive(context.Background(), b.ID); err != nil {
		t.Fatalf("RecordDeepDive failed: %v", err)
	}
	u := h.vectors.byUser["user@example.com"]
	if !almostEqual(u, []float64{0.85, 0.15}, 1e-12) {
		t.Fatalf("after deep dive u = %v, want [0.85 0.15]", u)
	}

	normBefore := vectors.Norm(u)
	simBefore := vectors.Cosine(u, eB)

	if err := h.engine.RecordNotInterested(context.Background(), b.ID); err != nil {
		t.Fatalf("RecordNotInterested failed: %v", err)
	}
	u = h.vectors.byUser["user@example.com"]

	if math.Abs(vectors.Norm(u)-normBefore) > 1e-9 {
		t.Errorf("negative feedback changed the magnitude: %v -> %v",
			normBefore, vectors.Norm(u))
	}
	if sim := vectors.Cosine(u, eB); sim >= simBefore {
		t.Errorf("negative feedback did not move away from the article: %v -> %v",
			simBefore, sim)
	}
}

func TestFirstPositiveFeedbackAdoptsEmbedding(t *testing.T) {
	eA := []float64{0.2, 0.4, 0.6}
	a := article("https://n.example.com/a", "A", "政治", eA)
	h := newHarness(t, a)

	if err := h.engine.RecordView(context.Background(), a.ID); err != nil {
		t.Fatalf("RecordView failed: %v", err)
	}
	if u := h.vectors.byUser["user@example.com"]; !almostEqual(u, eA, 0) {
		t.Errorf("u = %v, want the article embedding", u)
	}
}

func TestNegativeFeedbackWithoutVectorIsNoop(t *testing.T) {
	a := article("https://n.example.com/a", "A", "政治", []float64{1, 0})
	h := newHarness(t, a)

	if err := h.engine.RecordNotInterested(context.Background(), a.ID); err != nil {
		t.Fatalf("RecordNotInterested failed: %v", err)
	}
	if len(h.vectors.byUser) != 0 {
		t.Error("negative feedback on a fresh user must not create a vector")
	}
	if ids, _ := h.log.IDs(context.Background(), "user@example.com", nil); len(ids) != 1 {
		t.Error("the interaction must still be logged")
	}
}

func TestFeedbackOnPendingArticleKeepsVector(t *testing.T) {
	pending := article("https://n.example.com/p", "保留", "経済", nil)
	h := newHarness(t, pending)
	h.vectors.byUser["user@example.com"] = []float64{1, 0}

	if err := h.engine.RecordView(context.Background(), pending.ID); err != nil {
		t.Fatalf("RecordView failed: %v", err)
	}
	if u := h.vectors.byUser["user@example.com"]; !almostEqual(u, []float64{1, 0}, 0) {
		t.Errorf("pending article moved the vector: %v", u)
	}
	if ids, _ := h.log.IDs(context.Background(), "user@example.com", nil); len(ids) != 1 {
		t.Error("the interaction must still be logged")
	}
}

func TestFeedbackDimensionMismatchSkipsUpdate(t *testing.T) {
	a := article("https://n.example.com/a", "A", "政治", []float64{1, 0, 0})
	h := newHarness(t, a)
	h.vectors.byUser["user@example.com"] = []float64{0, 1}

	if err := h.engine.RecordDeepDive(context.Background(), a.ID); err != nil {
		t.Fatalf("RecordDeepDive failed: %v", err)
	}
	if u := h.vectors.byUser["user@example.com"]; !almostEqual(u, []float64{0, 1}, 0) {
		t.Errorf("mismatched dimensions moved the vector: %v", u)
	}
}

func TestFeedbackNormStaysBounded(t *testing.T) {
	embeddings := [][]float64{
		{3, 0}, {0, 2}, {1, 1}, {-1, 2}, {0.5, -0.5},
	}
	var articles []core.Article
	for i, e := range embeddings {
		articles = append(articles, article(link(i), "記事", "経済", e))
	}
	h := newHarness(t, articles...)

	maxNorm := 0.0
	for _, e := range embeddings {
		if n := vectors.Norm(e); n > maxNorm {
			maxNorm = n
		}
	}

	steps := []func(context.Context, string) error{
		h.engine.RecordView,
		h.engine.RecordDeepDive,
		h.engine.RecordNotInterested,
		h.engine.RecordDeepDive,
		h.engine.RecordView,
	}
	for i, step := range steps {
		if err := step(context.Background(), articles[i].ID); err != nil {
			t.Fatalf("step %d failed: %v", i, err)
		}
		if n := vectors.Norm(h.vectors.byUser["user@example.com"]); n > maxNorm+1e-9 {
			t.Fatalf("step %d: norm %v exceeds bound %v", i, n, maxNorm)
		}
	}
}

func TestInteractionUpsertIdempotent(t *testing.T) {
	a := article("https://n.example.com/a", "A", "政治", []float64{1, 0})
	h := newHarness(t, a)

	for i := 0; i < 3; i++ {
		if err := h.engine.RecordView(context.Background(), a.ID); err != nil {
			t.Fatalf("RecordView failed: %v", err)
		}
	}
	if got := len(h.log.entries); got != 1 {
		t.Errorf("log holds %d rows, want 1", got)
	}

	// A different kind on the same article is a distinct row.
	if err := h.engine.RecordDeepDive(context.Background(), a.ID); err != nil {
		t.Fatalf("RecordDeepDive failed: %v", err)
	}
	if got := len(h.log.entries); got != 2 {
		t.Errorf("log holds %d rows, want 2", got)
	}
}

func TestApplyFeedbackUnnormalizedVector(t *testing.T) {
	u := []float64{3, 4} // norm 5
	v := []float64{0, 1}

	got := applyFeedback(u, v, -0.2)
	if math.Abs(vectors.Norm(got)-5) > 1e-9 {
		t.Errorf("norm = %v, want 5 preserved", vectors.Norm(got))
	}
	if vectors.Cosine(got, v) >= vectors.Cosine(u, v) {
		t.Error("direction did not move away from v")
	}
}
