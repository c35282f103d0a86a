package handlers

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"ownnews/internal/config"
	"ownnews/internal/llm"
	"ownnews/internal/logger"
)

// NewNutrientsCmd creates the nutrient-score backfill command
func NewNutrientsCmd() *cobra.Command {
	var (
		batchSize int
		limit     int
	)

	cmd := &cobra.Command{
		Use:   "nutrients",
		Short: "Score unscored articles on the five nutrient axes",
		Long: `Score articles on fact, context, perspective, emotion and immediacy
(0-100 each) with the configured model, filling in the cached category
columns in the same pass. Articles with a null or zero fact score count
as unscored.

Requests are rate limited; run on a schedule or with --limit for large
backlogs.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNutrients(cmd.Context(), batchSize, limit)
		},
	}

	cmd.Flags().IntVar(&batchSize, "batch", 10, "Articles per scoring request")
	cmd.Flags().IntVar(&limit, "limit", 1000, "Maximum articles to score this run")
	return cmd
}

func runNutrients(ctx context.Context, batchSize, limit int) error {
	cfg := config.Get()

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	groq, err := llm.New(cfg)
	if err != nil {
		return err
	}

	articles := st.Articles()
	scored := 0
	for scored < limit {
		page, err := articles.MissingNutrients(ctx, batchSize)
		if err != nil {
			return err
		}
		if len(page) == 0 {
			break
		}

		results, err := groq.ScoreNutrients(ctx, page)
		if err != nil {
			return fmt.Errorf("giving up after %d scored: %w", scored, err)
		}

		updated := 0
		for _, r := range results {
			if err := articles.UpdateNutrients(ctx, r.ID, r.Nutrients, r.CategoryMedium, r.CategoryMinor); err != nil {
				return err
			}
			updated++
		}
		if updated == 0 {
			// The model returned nothing usable; stop rather than refetch
			// the same rows forever.
			logger.Warn("nutrient batch produced no usable results", "batch", len(page))
			break
		}
		scored += updated
		logger.Info("nutrient backfill progress", "scored", scored)
	}

	fmt.Printf("Scored nutrients for %d articles\n", scored)
	return nil
}
