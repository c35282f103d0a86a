package llm

import (
	"context"
	"strings"
	"testing"

	"ownnews/internal/core"
)

func TestScoreNutrients(t *testing.T) {
	chat := &fakeChat{reply: "```json\n" + `[
		{"id": "a1", "category_medium": "選挙", "category_minor": ["投票率"],
		 "fact_score": 80, "context_score": 60, "perspective_score": 40,
		 "emotion_score": 20, "immediacy_score": 90},
		{"category_medium": "経済", "fact_score": 50}
	]` + "\n```"}
	g := newTestGroq(chat)

	articles := []core.Article{{ID: "a1", Title: "選挙結果", Summary: "投票率が上昇"}}
	got, err := g.ScoreNutrients(context.Background(), articles)
	if err != nil {
		t.Fatalf("ScoreNutrients failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d results, want 1 (id-less entry dropped): %+v", len(got), got)
	}
	r := got[0]
	if r.ID != "a1" || r.CategoryMedium != "選挙" {
		t.Errorf("result = %+v", r)
	}
	if r.Fact != 80 || r.Immediacy != 90 {
		t.Errorf("scores = %+v", r.Nutrients)
	}

	req := chat.reqs[0]
	if req.Model != "llama-3.1-8b-instant" {
		t.Errorf("model = %q", req.Model)
	}
	if req.Temperature != 0.1 {
		t.Errorf("temperature = %v, want 0.1", req.Temperature)
	}
	if !strings.Contains(req.Messages[1].Content, `"a1"`) {
		t.Error("prompt does not carry the article id")
	}
}

func TestScoreNutrientsEmptyBatch(t *testing.T) {
	chat := &fakeChat{}
	g := newTestGroq(chat)
	got, err := g.ScoreNutrients(context.Background(), nil)
	if err != nil || got != nil {
		t.Fatalf("empty batch = (%v, %v), want (nil, nil)", got, err)
	}
	if len(chat.reqs) != 0 {
		t.Error("expected no API call for an empty batch")
	}
}

func TestParseNutrientResponse(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    int
		wantErr bool
	}{
		{"bare array", `[{"id":"x","fact_score":10}]`, 1, false},
		{"prose around array", "Here you go:\n[{\"id\":\"x\"}]\nDone.", 1, false},
		{"fenced", "```json\n[{\"id\":\"x\"}]\n```", 1, false},
		{"not json", "sorry, I cannot do that", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseNutrientResponse(tt.content)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if len(got) != tt.want {
				t.Errorf("got %d results, want %d", len(got), tt.want)
			}
		})
	}
}
