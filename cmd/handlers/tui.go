package handlers

import (
	"github.com/spf13/cobra"

	"ownnews/internal/config"
	"ownnews/internal/tui"
)

// NewTUICmd creates the interactive feed browser command
func NewTUICmd() *cobra.Command {
	var (
		filter float64
		topN   int
	)

	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Browse the ranked feed interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, filter, topN)
		},
	}

	cmd.Flags().Float64Var(&filter, "filter", -1, "Filter strength 0..1 (default from config)")
	cmd.Flags().IntVar(&topN, "n", 0, "Number of articles (default from config)")
	return cmd
}

func runTUI(cmd *cobra.Command, filter float64, topN int) error {
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

	if filter < 0 {
		filter = cfg.Engine.DefaultFilter
	}
	if topN <= 0 {
		topN = cfg.Engine.DefaultTopN
	}

	tui.Start(eng, filter, topN)
	return nil
}
