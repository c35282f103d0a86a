package handlers

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"ownnews/internal/config"
	"ownnews/internal/taxonomy"
)

// NewOnboardCmd creates the interactive onboarding command
func NewOnboardCmd() *cobra.Command {
	var (
		categories []string
		count      int
	)

	cmd := &cobra.Command{
		Use:   "onboard",
		Short: "Seed the interest vector by voting on sample articles",
		Long: `Present sample articles from the chosen categories and record
like/dislike votes. The interest vector is seeded from the mean of the
liked embeddings, pushed away from the disliked ones.

At least 3 votes are required.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnboard(cmd, categories, count)
		},
	}

	cmd.Flags().StringSliceVar(&categories, "categories", nil,
		"Categories to sample from (default: the standard onboarding set)")
	cmd.Flags().IntVar(&count, "n", 12, "Number of sample articles")
	return cmd
}

func runOnboard(cmd *cobra.Command, categories []string, count int) error {
	cfg := config.Get()

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	eng, err := newEngine(cmd, cfg, st)
	if err != nil {
		return err
	}

	ctx := context.Background()
	if onboarded, err := eng.IsOnboarded(ctx); err != nil {
		return err
	} else if onboarded {
		fmt.Println("Already onboarded. Votes will reseed the interest vector.")
	}

	if len(categories) == 0 {
		categories = taxonomy.OnboardingCategories
	}
	samples, err := eng.OnboardingArticles(ctx, categories, count)
	if err != nil {
		return err
	}
	if len(samples) == 0 {
		return fmt.Errorf("no sample articles available; run 'ownnews collect' first")
	}

	fmt.Println("Vote on each article: [y] like  [n] dislike  [s] skip")
	var liked, disliked []string
	reader := bufio.NewReader(os.Stdin)
	for i, a := range samples {
		fmt.Printf("\n%2d/%d  %s\n      %s\n[y/n/s] > ", i+1, len(samples), a.Title, a.Category)
		line, err := reader.ReadString('\n')
		if err != nil {
			break
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y":
			liked = append(liked, a.ID)
		case "n":
			disliked = append(disliked, a.ID)
		}
	}

	if err := eng.CompleteOnboarding(ctx, liked, disliked); err != nil {
		return err
	}
	fmt.Printf("\nOnboarding complete: %d liked, %d disliked.\n", len(liked), len(disliked))
	return nil
}
