package handlers

import (
	"fmt"

	"github.com/spf13/cobra"

	"ownnews/internal/config"
	"ownnews/internal/engine"
	"ownnews/internal/store"
)

// openStore connects to the configured article store.
func openStore(cfg *config.Config) (*store.Store, error) {
	st, err := store.New(cfg.Store.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	return st, nil
}

// newEngine builds the ranking engine for the command's user.
func newEngine(cmd *cobra.Command, cfg *config.Config, st *store.Store) (*engine.Engine, error) {
	return engine.New(userID(cmd), engine.Deps{
		Articles:     st.Articles(),
		Vectors:      st.UserVectors(),
		Interactions: st.Interactions(),
		Profiles:     st.Profiles(),
		Health:       st.Health(),
	}, engine.Options{
		GroupingThreshold:  cfg.Engine.GroupingThreshold,
		AlphaView:          cfg.Engine.AlphaView,
		AlphaDeepDive:      cfg.Engine.AlphaDeepDive,
		AlphaNotInterested: cfg.Engine.AlphaNotInterested,
	})
}
