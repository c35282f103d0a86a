// Package llm wraps the Groq chat API (OpenAI-compatible) for the two
// text-analysis features: deep-dive article analysis and keyword
// extraction. Neither call influences ranking.
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"ownnews/internal/config"
	"ownnews/internal/taxonomy"
)

const (
	deepDiveSystemPrompt = "あなたはニュースアナリストです。" +
		"与えられたニュース記事について、背景・影響・今後の展望を" +
		"日本語で簡潔に分析してください（300字以内）。"

	keywordSystemPrompt = "あなたはニュース記事のキーワード抽出器です。" +
		"記事の特徴を表すキーワードを最大5つ、カンマ区切りで出力してください。" +
		"キーワードのみを出力し、説明や番号は不要です。" +
		"例: AI,半導体,NVIDIA,投資,競争"
)

// chatCompleter is the slice of the OpenAI client the Groq client needs;
// tests substitute a fake.
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Groq is a rate-limited client for Groq's chat completions.
type Groq struct {
	client        chatCompleter
	deepDiveModel string
	keywordModel  string
	nutrientModel string
	timeout       time.Duration
	limiter       *rate.Limiter
}

// New creates a Groq client from configuration.
func New(cfg *config.Config) (*Groq, error) {
	if cfg.Groq.APIKey == "" {
		return nil, fmt.Errorf("groq API key is required")
	}

	clientCfg := openai.DefaultConfig(cfg.Groq.APIKey)
	if cfg.Groq.BaseURL != "" {
		clientCfg.BaseURL = cfg.Groq.BaseURL
	}

	rpm := cfg.Groq.RequestsPerMinute
	if rpm <= 0 {
		rpm = 30
	}

	return &Groq{
		client:        openai.NewClientWithConfig(clientCfg),
		deepDiveModel: cfg.Groq.DeepDiveModel,
		keywordModel:  cfg.Groq.KeywordModel,
		nutrientModel: cfg.Groq.NutrientModel,
		timeout:       config.Duration(cfg.Groq.Timeout, 30*time.Second),
		limiter:       rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1),
	}, nil
}

// DeepDive analyzes one article: background, impact and outlook, in
// Japanese, within 300 characters.
func (g *Groq) DeepDive(ctx context.Context, title, summary string) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.deepDiveModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: deepDiveSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf("タイトル: %s\n概要: %s", title, summary)},
		},
		MaxTokens: 512,
	})
	if err != nil {
		return "", fmt.Errorf("deep dive request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("deep dive returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// ExtractKeywords asks the model for up to five distinctive keywords.
// On any failure, or when the input is too short to be worth a request,
// it falls back to regex extraction over the title.
func (g *Groq) ExtractKeywords(ctx context.Context, title, summary string) []string {
	text := strings.TrimSpace(title + " " + summary)
	if len([]rune(text)) < 10 {
		return taxonomy.ExtractMinorKeywords(title)
	}
	if len([]rune(text)) > 1500 {
		text = string([]rune(text)[:1500])
	}

	if err := g.limiter.Wait(ctx); err != nil {
		return taxonomy.ExtractMinorKeywords(title)
	}

	reqCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.client.CreateChatCompletion(reqCtx, openai.ChatCompletionRequest{
		Model: g.keywordModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: keywordSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		MaxTokens:   80,
		Temperature: 0.2,
	})
	if err != nil || len(resp.Choices) == 0 {
		return taxonomy.ExtractMinorKeywords(title)
	}

	keywords := taxonomy.ParseKeywordList(resp.Choices[0].Message.Content)
	if len(keywords) == 0 {
		return taxonomy.ExtractMinorKeywords(title)
	}
	if len(keywords) > 5 {
		keywords = keywords[:5]
	}
	return keywords
}
