package handlers

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"ownnews/internal/config"
	"ownnews/internal/core"
)

// NewHealthCmd creates the informational-health command
func NewHealthCmd() *cobra.Command {
	var (
		hierarchical bool
		snapshot     bool
		historyDays  int
	)

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Show the informational-health profile of your viewing history",
		Long: `Compute the diversity profile of positively-interacted articles:
category distribution, normalized-entropy diversity score, dominant
category and bias level, and the onboarding categories never touched.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHealth(cmd, hierarchical, snapshot, historyDays)
		},
	}

	cmd.Flags().BoolVar(&hierarchical, "hierarchical", false, "Include medium and minor levels")
	cmd.Flags().BoolVar(&snapshot, "snapshot", false, "Persist today's snapshot")
	cmd.Flags().IntVar(&historyDays, "history", 0, "Show the last N daily snapshots instead")
	return cmd
}

func runHealth(cmd *cobra.Command, hierarchical, snapshot bool, historyDays int) error {
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

	if historyDays > 0 {
		snaps, err := eng.HealthHistory(ctx, historyDays)
		if err != nil {
			return err
		}
		for _, s := range snaps {
			fmt.Printf("%s  diversity %3d  %s %.0f%%\n",
				s.ScoreDate, s.Diversity, s.TopCategory, s.BiasRatio*100)
		}
		return nil
	}

	if hierarchical {
		health, err := eng.HierarchicalHealth(ctx)
		if err != nil {
			return err
		}
		printReport("Major", health.Major)
		printReport("Medium", health.Medium)
		printReport("Minor", health.Minor)
		fmt.Printf("\nTotal viewed: %d\n", health.TotalViewed)
	} else {
		report, err := eng.InfoHealth(ctx)
		if err != nil {
			return err
		}
		printReport("Major", report)
	}

	if snapshot {
		if err := eng.RecordHealthSnapshot(ctx); err != nil {
			return err
		}
		fmt.Println("\nSnapshot recorded.")
	}
	return nil
}

func printReport(level string, r core.HealthReport) {
	fmt.Printf("\n%s  (diversity %d, %s)\n", level, r.DiversityScore, r.BiasLevel)
	for _, c := range r.Distribution {
		fmt.Printf("  %-20s %d\n", c.Category, c.Count)
	}
	if len(r.MissingCategories) > 0 {
		fmt.Printf("  missing: %v\n", r.MissingCategories)
	}
}
