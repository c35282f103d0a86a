package handlers

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ownnews/internal/config"
	"ownnews/internal/logger"
)

var cfgFile string

// NewRootCmd creates the root command with all subcommands attached
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ownnews",
		Short: "ownnews is a personal news recommender over RSS feeds.",
		Long: `ownnews collects articles from RSS feeds, embeds them, and serves a
personalized feed per user: similarity-ranked articles blended with random
picks, online feedback updates to the interest vector, and informational
health analytics over viewing history.`,
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./ownnews.yaml)")
	rootCmd.PersistentFlags().String("user", "", "user identity (default from config / OWNNEWS_USER_ID)")

	rootCmd.AddCommand(NewCollectCmd())
	rootCmd.AddCommand(NewServeCmd())
	rootCmd.AddCommand(NewRankCmd())
	rootCmd.AddCommand(NewOnboardCmd())
	rootCmd.AddCommand(NewBackfillCmd())
	rootCmd.AddCommand(NewNutrientsCmd())
	rootCmd.AddCommand(NewReembedCmd())
	rootCmd.AddCommand(NewHealthCmd())
	rootCmd.AddCommand(NewStatsCmd())
	rootCmd.AddCommand(NewTUICmd())
	rootCmd.AddCommand(NewMigrateCmd())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	if cfg.App.Debug {
		logger.SetLevel("debug")
	} else {
		logger.SetLevel(cfg.App.LogLevel)
	}
	if cfg.App.ConfigFile != "" {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", cfg.App.ConfigFile)
	}
}

// userID resolves the user identity from the --user flag or configuration.
func userID(cmd *cobra.Command) string {
	if flag, _ := cmd.Flags().GetString("user"); flag != "" {
		return flag
	}
	return config.Get().App.UserID
}
