package handlers

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"ownnews/internal/collector"
	"ownnews/internal/config"
	"ownnews/internal/embed"
)

// NewCollectCmd creates the collect command for one feed polling cycle
func NewCollectCmd() *cobra.Command {
	var noImages bool

	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Poll the RSS feeds and store new articles with embeddings",
		Long: `Fetch every configured feed, drop entries already in the store,
enrich new entries with OGP images and category tags, embed their text and
write them to the article store.

Intended to run on a schedule (e.g. cron). A feed that fails to fetch is
skipped; articles whose embedding batch fails are stored as pending and
picked up by 'ownnews reembed'.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCollect(cmd.Context(), noImages)
		},
	}

	cmd.Flags().BoolVar(&noImages, "no-images", false, "Skip OGP image fetching")
	return cmd
}

func runCollect(ctx context.Context, noImages bool) error {
	cfg := config.Get()
	if noImages {
		cfg.Collector.OGPEnabled = false
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

	res, err := collector.New(cfg, embedder, st.Articles()).Run(ctx)
	if err != nil {
		return fmt.Errorf("collection cycle failed: %w", err)
	}

	fmt.Printf("Fetched %d entries, %d new, %d embedded (%d feeds failed)\n",
		res.Fetched, res.New, res.Embedded, res.Failed)
	return nil
}
