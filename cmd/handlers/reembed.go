package handlers

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"ownnews/internal/config"
	"ownnews/internal/embed"
	"ownnews/internal/engine"
	"ownnews/internal/logger"
)

// NewReembedCmd creates the re-embed migration command
func NewReembedCmd() *cobra.Command {
	var batchSize int

	cmd := &cobra.Command{
		Use:   "reembed",
		Short: "Embed articles whose embedding is still pending",
		Long: `Pick up articles stored without an embedding (failed batches,
or a provider/dimension migration after clearing the embedding column)
and embed them with the configured provider.

Batches are retried with exponential backoff before giving up. Once the
corpus is embedded, every user's interest vector is rebuilt from their
positive interaction history so vectors land in the new embedding space.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReembed(cmd.Context(), batchSize)
		},
	}

	cmd.Flags().IntVar(&batchSize, "batch", 0, "Texts per embedding request (default from config)")
	return cmd
}

func runReembed(ctx context.Context, batchSize int) error {
	cfg := config.Get()
	if batchSize == 0 {
		batchSize = cfg.Embedding.BatchSize
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	embedder, err := embed.NewFromConfig(cfg)
	if err != nil {
		return err
	}

	articles := st.Articles()
	done := 0
	for {
		pending, err := articles.PendingEmbedding(ctx, batchSize)
		if err != nil {
			return err
		}
		if len(pending) == 0 {
			break
		}

		texts := make([]string, len(pending))
		for i, a := range pending {
			texts[i] = embed.EmbeddingText(a)
		}

		vecs, err := embed.EmbedTextsWithRetry(ctx, embedder, texts)
		if err != nil {
			return fmt.Errorf("giving up after %d embedded: %w", done, err)
		}

		for i, a := range pending {
			if err := articles.UpdateEmbedding(ctx, a.ID, vecs[i]); err != nil {
				return err
			}
			done++
		}
		logger.Info("re-embed progress", "embedded", done)
	}

	users, err := engine.RecomputeUserVectors(ctx, articles, st.Interactions(), st.UserVectors())
	if err != nil {
		return fmt.Errorf("failed to recompute user vectors: %w", err)
	}

	fmt.Printf("Embedded %d pending articles, rebuilt %d user vectors\n", done, users)
	return nil
}
