package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"ownnews/internal/core"
	"ownnews/internal/taxonomy"
)

const nutrientSystemPrompt = "You are a precise JSON output machine."

// NutrientResult is one article's scores as returned by the model. Category
// fields are optional; empty values leave the stored columns untouched.
type NutrientResult struct {
	ID             string   `json:"id"`
	CategoryMedium string   `json:"category_medium"`
	CategoryMinor  []string `json:"category_minor"`
	core.Nutrients
}

// ScoreNutrients asks the model to score a batch of articles on the five
// nutrient axes, classifying medium category and minor keywords in the same
// pass. Results whose id is missing are dropped.
func (g *Groq) ScoreNutrients(ctx context.Context, articles []core.Article) ([]NutrientResult, error) {
	if len(articles) == 0 {
		return nil, nil
	}
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.nutrientModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: nutrientSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: nutrientPrompt(articles)},
		},
		Temperature: 0.1,
	})
	if err != nil {
		return nil, fmt.Errorf("nutrient scoring request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("nutrient scoring returned no choices")
	}
	return parseNutrientResponse(resp.Choices[0].Message.Content)
}

// nutrientPrompt builds the scoring prompt: axis definitions, the allowed
// medium categories, and the batch as a JSON array.
func nutrientPrompt(articles []core.Article) string {
	type item struct {
		ID      string `json:"id"`
		Title   string `json:"title"`
		Summary string `json:"summary"`
	}
	items := make([]item, len(articles))
	for i, a := range articles {
		items[i] = item{ID: a.ID, Title: a.Title, Summary: a.Summary}
	}
	itemsJSON, _ := json.MarshalIndent(items, "", "  ")

	return fmt.Sprintf(`You are a professional news analyst.
Analyze the following news articles to:
1. Classify them into a "Medium Category".
2. Extract "Minor Keywords".
3. Calculate "Nutrient Scores" (0-100) based on the 5 elements of news.

Allowed Medium Categories: %s.

Nutrient Definitions:
- fact_score: objective data, 5W1H transparency. High: detailed stats/facts. Low: vague rumors.
- context_score: background info, history, "why". High: deep analysis. Low: just what happened.
- perspective_score: multi-viewpoints. High: pros/cons, diverse opinions. Low: single-sided.
- emotion_score: emotional hook/drama. High: heartwarming/shocking. Low: dry reporting.
- immediacy_score: freshness/urgency. High: breaking news. Low: evergreen/history.

Input Articles:
%s

Instructions:
1. Analyze each article title and summary.
2. Assign a "Medium Category" and "Minor Keywords".
3. Score each nutrient (0-100) as an integer.
4. Output strictly a JSON list of objects.
5. JSON format: [{"id": "...", "category_medium": "...", "category_minor": ["..."], "fact_score": 50, "context_score": 50, "perspective_score": 50, "emotion_score": 50, "immediacy_score": 50}]

Output strictly valid JSON. No markdown.`,
		strings.Join(append(append([]string{}, taxonomy.Categories...), taxonomy.Other), ", "), itemsJSON)
}

// parseNutrientResponse decodes the model output, tolerating markdown fences
// and prose around the JSON array.
func parseNutrientResponse(content string) ([]NutrientResult, error) {
	content = strings.ReplaceAll(content, "```json", "")
	content = strings.ReplaceAll(content, "```", "")
	if start, end := strings.Index(content, "["), strings.LastIndex(content, "]"); start >= 0 && end > start {
		content = content[start : end+1]
	}

	var results []NutrientResult
	if err := json.Unmarshal([]byte(content), &results); err != nil {
		return nil, fmt.Errorf("failed to parse nutrient response: %w", err)
	}

	kept := results[:0]
	for _, r := range results {
		if r.ID == "" {
			continue
		}
		kept = append(kept, r)
	}
	return kept, nil
}
