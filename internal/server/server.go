// Package server exposes the ranking engine over HTTP as a JSON API. The
// front-end is a thin consumer; every route maps onto one engine operation.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"ownnews/internal/config"
	"ownnews/internal/core"
	"ownnews/internal/engine"
	"ownnews/internal/logger"
	"ownnews/internal/store"
)

// Engine is the per-user operation surface the HTTP layer serves.
// *engine.Engine satisfies it; tests substitute a fake.
type Engine interface {
	Rank(ctx context.Context, filterStrength float64, topN int) ([]core.RankedArticle, error)
	RankUnread(ctx context.Context, filterStrength float64, topN int) ([]core.RankedArticle, error)
	GroupSimilarArticles(ctx context.Context, list []core.RankedArticle, threshold float64) ([]core.ArticleGroup, error)
	RecordView(ctx context.Context, articleID string) error
	RecordDeepDive(ctx context.Context, articleID string) error
	RecordNotInterested(ctx context.Context, articleID string) error
	IsOnboarded(ctx context.Context) (bool, error)
	OnboardingArticles(ctx context.Context, categories []string, count int) ([]core.Article, error)
	CompleteOnboarding(ctx context.Context, likedIDs, dislikedIDs []string) error
	InteractedIDs(ctx context.Context, kinds []core.InteractionKind) (map[string]struct{}, error)
	InteractionHistory(ctx context.Context, kinds []core.InteractionKind, limit int) ([]core.HistoryEntry, error)
	Stats(ctx context.Context) (core.Stats, error)
	InfoHealth(ctx context.Context) (core.HealthReport, error)
	HierarchicalHealth(ctx context.Context) (core.HierarchicalHealth, error)
	RecordHealthSnapshot(ctx context.Context) error
	HealthHistory(ctx context.Context, days int) ([]core.HealthSnapshot, error)
}

// EngineProvider resolves the engine serving one user.
type EngineProvider func(userID string) (Engine, error)

// Analyst produces the deep-dive text analysis for one article. Optional;
// a nil analyst disables the endpoint.
type Analyst interface {
	DeepDive(ctx context.Context, title, summary string) (string, error)
}

// Server is the HTTP front of the ranking engine.
type Server struct {
	router      *chi.Mux
	httpServer  *http.Server
	engines     EngineProvider
	analyst     Analyst
	store       *store.Store
	cfg         *config.Config
	log         *slog.Logger
	defaultUser string
}

// New creates the HTTP server. analyst may be nil.
func New(cfg *config.Config, st *store.Store, analyst Analyst) *Server {
	s := &Server{
		router:      chi.NewRouter(),
		analyst:     analyst,
		store:       st,
		cfg:         cfg,
		log:         logger.Get(),
		defaultUser: cfg.App.UserID,
	}
	s.engines = func(userID string) (Engine, error) {
		return engine.New(userID, engine.Deps{
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

	s.setupMiddleware()
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  config.Duration(cfg.Server.ReadTimeout, 15*time.Second),
		WriteTimeout: config.Duration(cfg.Server.WriteTimeout, 30*time.Second),
	}
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(60 * time.Second))

	if origins := splitOrigins(s.cfg.Server.AllowedOrigins); len(origins) > 0 {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins: origins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-User-ID", "X-Request-ID"},
			MaxAge:         300,
		}))
	}
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/feed", s.handleFeed)
		r.Get("/feed/grouped", s.handleGroupedFeed)

		r.Route("/articles/{id}", func(r chi.Router) {
			r.Post("/view", s.handleRecord(func(e Engine) recordFunc { return e.RecordView }))
			r.Post("/not-interested", s.handleRecord(func(e Engine) recordFunc { return e.RecordNotInterested }))
			r.Post("/deep-dive", s.handleDeepDive)
		})

		r.Route("/onboarding", func(r chi.Router) {
			r.Get("/status", s.handleOnboardingStatus)
			r.Get("/articles", s.handleOnboardingArticles)
			r.Post("/complete", s.handleCompleteOnboarding)
		})

		r.Get("/interactions", s.handleInteractionHistory)
		r.Get("/interactions/ids", s.handleInteractedIDs)
		r.Get("/stats", s.handleStats)

		r.Route("/info-health", func(r chi.Router) {
			r.Get("/", s.handleInfoHealth)
			r.Get("/hierarchical", s.handleHierarchicalHealth)
			r.Post("/snapshot", s.handleRecordSnapshot)
			r.Get("/history", s.handleHealthHistory)
		})
	})
}

// Start runs the server until it is shut down.
func (s *Server) Start() error {
	s.log.Info("starting HTTP server", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down HTTP server")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}

// Router exposes the chi router for tests.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// splitOrigins parses the comma-separated allowed-origins setting.
func splitOrigins(raw string) []string {
	var out []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// engineFor resolves the engine for the request's user. Identity comes
// from the X-User-ID header, falling back to the configured default.
func (s *Server) engineFor(r *http.Request) (Engine, error) {
	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		userID = s.defaultUser
	}
	return s.engines(userID)
}
