package handlers

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"ownnews/internal/config"
)

// NewRankCmd creates the rank command for printing the personalized feed
func NewRankCmd() *cobra.Command {
	var (
		filter  float64
		topN    int
		unread  bool
		grouped bool
	)

	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Print the personalized feed",
		Long: `Rank articles for the user and print them: similarity-matched
articles first, random picks after, each with its similarity score and a
one-line reason.

--filter trades personalization for exploration: 1 is pure similarity,
0 is (almost) pure random.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRank(cmd, filter, topN, unread, grouped)
		},
	}

	cmd.Flags().Float64Var(&filter, "filter", -1, "Filter strength in [0,1] (default from config)")
	cmd.Flags().IntVar(&topN, "n", 0, "Number of articles (default from config)")
	cmd.Flags().BoolVar(&unread, "unread", false, "Exclude articles already interacted with")
	cmd.Flags().BoolVar(&grouped, "grouped", false, "Fold near-duplicate articles into groups")
	return cmd
}

func runRank(cmd *cobra.Command, filter float64, topN int, unread, grouped bool) error {
	cfg := config.Get()
	if filter < 0 {
		filter = cfg.Engine.DefaultFilter
	}
	if topN == 0 {
		topN = cfg.Engine.DefaultTopN
	}

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
	rank := eng.Rank
	if unread {
		rank = eng.RankUnread
	}
	results, err := rank(ctx, filter, topN)
	if err != nil {
		return err
	}

	if grouped {
		groups, err := eng.GroupSimilarArticles(ctx, results, 0)
		if err != nil {
			return err
		}
		for i, g := range groups {
			fmt.Printf("%2d. [%.2f] %s\n    %s\n", i+1,
				g.Representative.Similarity, g.Representative.Title, g.Representative.Reason)
			for _, rel := range g.Related {
				fmt.Printf("      └ %s\n", rel.Title)
			}
		}
		return nil
	}

	for i, r := range results {
		fmt.Printf("%2d. [%.2f] %s\n    %s\n    %s\n", i+1, r.Similarity, r.Title, r.Reason, r.Link)
	}
	return nil
}
