package handlers

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"ownnews/internal/config"
	"ownnews/internal/llm"
	"ownnews/internal/logger"
	"ownnews/internal/taxonomy"
)

// NewBackfillCmd creates the category backfill command
func NewBackfillCmd() *cobra.Command {
	var (
		batchSize int
		noLLM     bool
	)

	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Compute cached category columns for older articles",
		Long: `Fill in the medium category tag and minor keywords for embedded
articles that predate category caching.

The medium tag comes from the keyword table. Minor keywords come from the
keyword-extraction model when a Groq key is configured (requests are rate
limited), falling back to regex extraction over the title.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBackfill(cmd.Context(), batchSize, noLLM)
		},
	}

	cmd.Flags().IntVar(&batchSize, "batch", 100, "Articles per page")
	cmd.Flags().BoolVar(&noLLM, "no-llm", false, "Use regex keyword extraction only")
	return cmd
}

func runBackfill(ctx context.Context, batchSize int, noLLM bool) error {
	cfg := config.Get()

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	var groq *llm.Groq
	if !noLLM && cfg.Groq.APIKey != "" {
		if groq, err = llm.New(cfg); err != nil {
			return err
		}
	}

	articles := st.Articles()
	updated := 0
	for {
		page, err := articles.MissingMedium(ctx, batchSize, 0)
		if err != nil {
			return err
		}
		if len(page) == 0 {
			break
		}

		for _, a := range page {
			medium := taxonomy.ClassifyMedium(a.Title, a.Category)
			var minor []string
			if groq != nil {
				minor = groq.ExtractKeywords(ctx, a.Title, a.Summary)
			} else {
				minor = taxonomy.ExtractMinorKeywords(a.Title)
			}
			if err := articles.UpdateCategories(ctx, a.ID, medium, minor); err != nil {
				return err
			}
			updated++
			if updated%50 == 0 {
				logger.Info("backfill progress", "updated", updated)
			}
		}
	}

	fmt.Printf("Backfilled categories for %d articles\n", updated)
	return nil
}
