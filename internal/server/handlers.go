package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"ownnews/internal/core"
	"ownnews/internal/engine"
)

type recordFunc func(ctx context.Context, articleID string) error

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{"database": "ok"}
	if s.store != nil {
		if err := s.store.Ping(r.Context()); err != nil {
			checks["database"] = "error"
			s.respondJSON(w, http.StatusServiceUnavailable, map[string]any{
				"status": "unhealthy", "checks": checks,
			})
			return
		}
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"status": "ok", "checks": checks})
}

// handleFeed serves the ranked feed.
// Query: filter (default 0.5), n (default 30), unread (any value enables).
func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	eng, err := s.engineFor(r)
	if err != nil {
		s.respondEngineError(w, err)
		return
	}

	filter := queryFloat(r, "filter", 0.5)
	topN := queryInt(r, "n", 30)

	var results []core.RankedArticle
	if r.URL.Query().Get("unread") != "" {
		results, err = eng.RankUnread(r.Context(), filter, topN)
	} else {
		results, err = eng.Rank(r.Context(), filter, topN)
	}
	if err != nil {
		s.respondEngineError(w, err)
		return
	}
	if results == nil {
		results = []core.RankedArticle{}
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"articles": results})
}

// handleGroupedFeed serves the ranked feed with near-duplicates folded into
// groups. Query: filter, n, threshold.
func (s *Server) handleGroupedFeed(w http.ResponseWriter, r *http.Request) {
	eng, err := s.engineFor(r)
	if err != nil {
		s.respondEngineError(w, err)
		return
	}

	results, err := eng.Rank(r.Context(), queryFloat(r, "filter", 0.5), queryInt(r, "n", 30))
	if err != nil {
		s.respondEngineError(w, err)
		return
	}

	groups, err := eng.GroupSimilarArticles(r.Context(), results, queryFloat(r, "threshold", 0))
	if err != nil {
		s.respondEngineError(w, err)
		return
	}
	if groups == nil {
		groups = []core.ArticleGroup{}
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"groups": groups})
}

// handleRecord builds the handler for one feedback kind.
func (s *Server) handleRecord(pick func(Engine) recordFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		eng, err := s.engineFor(r)
		if err != nil {
			s.respondEngineError(w, err)
			return
		}
		articleID := chi.URLParam(r, "id")
		if articleID == "" {
			s.respondError(w, http.StatusBadRequest, "article id is required")
			return
		}
		if err := pick(eng)(r.Context(), articleID); err != nil {
			s.respondEngineError(w, err)
			return
		}
		s.respondJSON(w, http.StatusOK, map[string]any{"ok": true})
	}
}

type deepDiveRequest struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
}

// handleDeepDive records the strong positive feedback and, when an analyst
// is configured, returns the Japanese text analysis of the article.
func (s *Server) handleDeepDive(w http.ResponseWriter, r *http.Request) {
	eng, err := s.engineFor(r)
	if err != nil {
		s.respondEngineError(w, err)
		return
	}
	articleID := chi.URLParam(r, "id")
	if articleID == "" {
		s.respondError(w, http.StatusBadRequest, "article id is required")
		return
	}

	var req deepDiveRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	if err := eng.RecordDeepDive(r.Context(), articleID); err != nil {
		s.respondEngineError(w, err)
		return
	}

	resp := map[string]any{"ok": true}
	if s.analyst != nil && req.Title != "" {
		analysis, err := s.analyst.DeepDive(r.Context(), req.Title, req.Summary)
		if err != nil {
			// Feedback is already recorded; the analysis is best-effort.
			s.log.Warn("deep dive analysis failed", "article", articleID, "error", err)
		} else {
			resp["analysis"] = analysis
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleOnboardingStatus(w http.ResponseWriter, r *http.Request) {
	eng, err := s.engineFor(r)
	if err != nil {
		s.respondEngineError(w, err)
		return
	}
	onboarded, err := eng.IsOnboarded(r.Context())
	if err != nil {
		s.respondEngineError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"onboarded": onboarded})
}

// handleOnboardingArticles serves vote candidates.
// Query: categories (comma-separated), n (default 12).
func (s *Server) handleOnboardingArticles(w http.ResponseWriter, r *http.Request) {
	eng, err := s.engineFor(r)
	if err != nil {
		s.respondEngineError(w, err)
		return
	}

	var categories []string
	if raw := r.URL.Query().Get("categories"); raw != "" {
		for _, c := range strings.Split(raw, ",") {
			if c = strings.TrimSpace(c); c != "" {
				categories = append(categories, c)
			}
		}
	}

	articles, err := eng.OnboardingArticles(r.Context(), categories, queryInt(r, "n", 12))
	if err != nil {
		s.respondEngineError(w, err)
		return
	}
	if articles == nil {
		articles = []core.Article{}
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"articles": articles})
}

type completeOnboardingRequest struct {
	Liked    []string `json:"liked"`
	Disliked []string `json:"disliked"`
}

func (s *Server) handleCompleteOnboarding(w http.ResponseWriter, r *http.Request) {
	eng, err := s.engineFor(r)
	if err != nil {
		s.respondEngineError(w, err)
		return
	}

	var req completeOnboardingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := eng.CompleteOnboarding(r.Context(), req.Liked, req.Disliked); err != nil {
		s.respondEngineError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleInteractionHistory(w http.ResponseWriter, r *http.Request) {
	eng, err := s.engineFor(r)
	if err != nil {
		s.respondEngineError(w, err)
		return
	}
	kinds, err := queryKinds(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	history, err := eng.InteractionHistory(r.Context(), kinds, queryInt(r, "limit", 50))
	if err != nil {
		s.respondEngineError(w, err)
		return
	}
	if history == nil {
		history = []core.HistoryEntry{}
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"history": history})
}

func (s *Server) handleInteractedIDs(w http.ResponseWriter, r *http.Request) {
	eng, err := s.engineFor(r)
	if err != nil {
		s.respondEngineError(w, err)
		return
	}
	kinds, err := queryKinds(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	idSet, err := eng.InteractedIDs(r.Context(), kinds)
	if err != nil {
		s.respondEngineError(w, err)
		return
	}
	ids := make([]string, 0, len(idSet))
	for id := range idSet {
		ids = append(ids, id)
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"ids": ids})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	eng, err := s.engineFor(r)
	if err != nil {
		s.respondEngineError(w, err)
		return
	}
	stats, err := eng.Stats(r.Context())
	if err != nil {
		s.respondEngineError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, stats)
}

func (s *Server) handleInfoHealth(w http.ResponseWriter, r *http.Request) {
	eng, err := s.engineFor(r)
	if err != nil {
		s.respondEngineError(w, err)
		return
	}
	report, err := eng.InfoHealth(r.Context())
	if err != nil {
		s.respondEngineError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, report)
}

func (s *Server) handleHierarchicalHealth(w http.ResponseWriter, r *http.Request) {
	eng, err := s.engineFor(r)
	if err != nil {
		s.respondEngineError(w, err)
		return
	}
	health, err := eng.HierarchicalHealth(r.Context())
	if err != nil {
		s.respondEngineError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, health)
}

func (s *Server) handleRecordSnapshot(w http.ResponseWriter, r *http.Request) {
	eng, err := s.engineFor(r)
	if err != nil {
		s.respondEngineError(w, err)
		return
	}
	if err := eng.RecordHealthSnapshot(r.Context()); err != nil {
		s.respondEngineError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleHealthHistory(w http.ResponseWriter, r *http.Request) {
	eng, err := s.engineFor(r)
	if err != nil {
		s.respondEngineError(w, err)
		return
	}
	history, err := eng.HealthHistory(r.Context(), queryInt(r, "days", 30))
	if err != nil {
		s.respondEngineError(w, err)
		return
	}
	if history == nil {
		history = []core.HealthSnapshot{}
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"snapshots": history})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error("failed to encode JSON response", "error", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]any{
		"error": map[string]any{"status": status, "message": message},
	})
}

// respondEngineError maps the engine's typed input errors onto 400 and
// everything else onto 500.
func (s *Server) respondEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrInvalidFilterStrength),
		errors.Is(err, engine.ErrInvalidTopN),
		errors.Is(err, engine.ErrTooFewVotes),
		errors.Is(err, engine.ErrEmptyUserID):
		s.respondError(w, http.StatusBadRequest, err.Error())
	default:
		s.log.Error("request failed", "error", err)
		s.respondError(w, http.StatusInternalServerError, "internal error")
	}
}

func queryFloat(r *http.Request, key string, def float64) float64 {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return v
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

func queryKinds(r *http.Request) ([]core.InteractionKind, error) {
	raw := r.URL.Query().Get("kinds")
	if raw == "" {
		return nil, nil
	}
	var kinds []core.InteractionKind
	for _, part := range strings.Split(raw, ",") {
		kind, err := core.ParseInteractionKind(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, kind)
	}
	return kinds, nil
}
