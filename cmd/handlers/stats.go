package handlers

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"ownnews/internal/config"
)

// NewStatsCmd creates the stats command
func NewStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show corpus and interaction totals",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(cmd)
		},
	}
	return cmd
}

func runStats(cmd *cobra.Command) error {
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

	stats, err := eng.Stats(context.Background())
	if err != nil {
		return err
	}

	fmt.Printf("Articles: %d\n", stats.TotalArticles)
	fmt.Printf("Views: %d  Deep dives: %d  Not interested: %d\n",
		stats.ViewCount, stats.DeepDiveCount, stats.NotInterestedCount)

	if len(stats.CategoryCounts) > 0 {
		fmt.Println("\nViews per category:")
		cats := make([]string, 0, len(stats.CategoryCounts))
		for c := range stats.CategoryCounts {
			cats = append(cats, c)
		}
		sort.Slice(cats, func(i, j int) bool {
			return stats.CategoryCounts[cats[i]] > stats.CategoryCounts[cats[j]]
		})
		for _, c := range cats {
			fmt.Printf("  %-20s %d\n", c, stats.CategoryCounts[c])
		}
	}

	if len(stats.DailyCounts) > 0 {
		fmt.Println("\nCollected per day:")
		days := make([]string, 0, len(stats.DailyCounts))
		for d := range stats.DailyCounts {
			days = append(days, d)
		}
		sort.Strings(days)
		for _, d := range days {
			fmt.Printf("  %s  %d\n", d, stats.DailyCounts[d])
		}
	}
	return nil
}
