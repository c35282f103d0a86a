package handlers

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"ownnews/internal/config"
	"ownnews/internal/llm"
	"ownnews/internal/logger"
	"ownnews/internal/server"
)

// NewServeCmd creates the serve command for the JSON API server
func NewServeCmd() *cobra.Command {
	var (
		port int
		host string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Long: `Serve the ranking engine as a JSON API: personalized feed, feedback
recording, onboarding, interaction history, stats and informational
health. The front-end is a thin consumer of these endpoints.

The per-request user identity comes from the X-User-ID header, falling
back to the configured default user.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(port, host)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "HTTP server port (default from config: 8080)")
	cmd.Flags().StringVar(&host, "host", "", "HTTP server host (default from config: localhost)")
	return cmd
}

func runServe(port int, host string) error {
	cfg := config.Get()
	if port != 0 {
		cfg.Server.Port = port
	}
	if host != "" {
		cfg.Server.Host = host
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	// Deep-dive analysis is optional; without a Groq key the endpoint
	// records feedback only.
	var analyst server.Analyst
	if cfg.Groq.APIKey != "" {
		groq, err := llm.New(cfg)
		if err != nil {
			return err
		}
		analyst = groq
	} else {
		logger.Warn("GROQ_API_KEY not set, deep-dive analysis disabled")
	}

	srv := server.New(cfg, st, analyst)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-stop:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}
