// Package embed turns article text into dense vectors through a remote
// embedding service. Two providers are supported: Cloudflare Workers AI
// (the default deployment) and Gemini.
package embed

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ownnews/internal/config"
	"ownnews/internal/core"
	"ownnews/internal/logger"
)

// Embedder converts a batch of texts into one vector per text, in order.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float64, error)
}

// NewFromConfig builds the configured provider.
func NewFromConfig(cfg *config.Config) (Embedder, error) {
	timeout := config.Duration(cfg.Embedding.Timeout, 120*time.Second)
	switch strings.ToLower(cfg.Embedding.Provider) {
	case "cloudflare":
		return NewCloudflare(cfg.Embedding.Cloudflare.AccountID,
			cfg.Embedding.Cloudflare.APIToken,
			cfg.Embedding.Cloudflare.Model, timeout)
	case "gemini":
		return NewGemini(cfg.Embedding.Gemini.APIKey,
			cfg.Embedding.Gemini.Model, int32(cfg.Store.Dimensions))
	}
	return nil, fmt.Errorf("unknown embedding provider %q", cfg.Embedding.Provider)
}

// EmbeddingText is the canonical input for an article's embedding.
func EmbeddingText(a core.Article) string {
	return strings.TrimSpace(a.Title + " " + a.Summary)
}

// backoffSchedule is used by EmbedTextsWithRetry between attempts.
var backoffSchedule = []time.Duration{
	1 * time.Second,
	2 * time.Second,
	4 * time.Second,
	8 * time.Second,
	16 * time.Second,
}

// EmbedTextsWithRetry retries a failed batch with exponential backoff.
// Interactive callers surface errors immediately; this wrapper is for the
// batch migration scripts only.
func EmbedTextsWithRetry(ctx context.Context, e Embedder, texts []string) ([][]float64, error) {
	var lastErr error
	for attempt := 0; attempt <= len(backoffSchedule); attempt++ {
		if attempt > 0 {
			wait := backoffSchedule[attempt-1]
			logger.Warn("embedding batch failed, retrying",
				"attempt", attempt, "wait", wait.String())
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}
		vecs, err := e.EmbedTexts(ctx, texts)
		if err == nil {
			return vecs, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("embedding failed after %d attempts: %w", len(backoffSchedule)+1, lastErr)
}
