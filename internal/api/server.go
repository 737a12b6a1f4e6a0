// Package api serves the game over HTTP.
// Game endpoints are public; admin endpoints require a bearer token.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zsenarchitect/ManVsGod/internal/chess"
	"github.com/zsenarchitect/ManVsGod/internal/decisions"
	"github.com/zsenarchitect/ManVsGod/internal/entropy"
	"github.com/zsenarchitect/ManVsGod/internal/game"
	"github.com/zsenarchitect/ManVsGod/internal/levels"
	"github.com/zsenarchitect/ManVsGod/internal/persistence"
	"github.com/zsenarchitect/ManVsGod/internal/rules"
	"github.com/zsenarchitect/ManVsGod/internal/telemetry"
)

const maxBodyBytes = 1 << 20

// Server serves the rules engine, the campaign and the crowd statistics.
type Server struct {
	Engine    *rules.Engine
	Game      *game.Service
	Catalog   *levels.Catalog
	Decisions *decisions.Fallback
	DB        *persistence.DB // optional
	Sink      *telemetry.Sink
	Noise     decisions.TimeNoise
	Jitter    entropy.Source
	Puzzles   *chess.PuzzleClient

	// OnDecision is called for each decision recorded through the API.
	OnDecision func(rules.Decision)

	Port        int
	AdminKey    string // Bearer token for admin endpoints. Empty = admin disabled.
	CORSOrigins []string
	Limiter     *RateLimiter // optional, guards the write endpoints

	StartedAt time.Time
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(requestMetrics)
	r.Use(recoverJSON)
	r.Use(corsMiddleware(s.CORSOrigins))
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.Heartbeat("/health"))

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)

		r.Get("/rules", s.handleRules)
		r.Get("/rules/{id}", s.handleRule)
		r.Get("/evolution", s.handleEvolution)
		r.Get("/player-stats", s.handlePlayerStats)

		r.Get("/levels", s.handleLevels)
		r.Get("/levels/{id}", s.handleLevel)
		r.Get("/sessions/{id}", s.handleSession)
		r.Get("/sessions/{id}/level", s.handleSessionLevel)

		r.Get("/stats", s.handleStats)
		r.Get("/probabilities", s.handleProbabilities)

		r.Get("/chess/analyze", s.handleAnalyze)
		r.Get("/chess/moves", s.handleMoves)
		r.Get("/chess/puzzles/daily", s.handleDailyPuzzle)
		r.Get("/chess/puzzles/random", s.handleRandomPuzzle)

		r.Group(func(r chi.Router) {
			if s.Limiter != nil {
				r.Use(RateLimitMiddleware(s.Limiter))
			}
			r.Post("/decisions", s.handleRecordDecision)
			r.Post("/submit-decision", s.handleSubmitDecision)
			r.Post("/sessions", s.handleStartSession)
			r.Post("/sessions/{id}/turns", s.handlePlayTurn)
			r.Post("/logs", s.handleReportLog)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.adminOnly)
			r.Get("/logs", s.handleLogs)
			r.Delete("/logs", s.handleClearLogs)
			r.Post("/admin/reset", s.handleReset)
			r.Post("/admin/snapshot", s.handleSnapshot)
			r.Get("/admin/export", s.handleExport)
		})
	})

	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "")

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		slog.Info("HTTP API shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

// checkBearerToken returns true if the request has a valid admin bearer token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	const prefix = "Bearer "
	auth := r.Header.Get("Authorization")
	return len(auth) > len(prefix) && auth[:len(prefix)] == prefix && auth[len(prefix):] == s.AdminKey
}

// adminOnly requires the admin bearer token on every method.
func (s *Server) adminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.AdminKey == "" {
			writeError(w, http.StatusForbidden, "admin endpoints disabled (no MANVSGOD_ADMIN_KEY set)")
			return
		}
		if !s.checkBearerToken(r) {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	stats := s.Engine.PlayerStats()
	status := map[string]any{
		"name":            "Man vs God",
		"uptime":          time.Since(s.StartedAt).Round(time.Second).String(),
		"levels":          s.Catalog.Count(),
		"sessions":        s.Game.Count(),
		"total_decisions": stats.TotalDecisions,
		"evolutions":      len(s.Engine.EvolutionHistory()),
		"remote_store":    s.Decisions != nil && s.Decisions.Remote(),
		"persistent":      s.DB != nil,
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		writeError(w, http.StatusServiceUnavailable, "database not available")
		return
	}

	if err := s.DB.SaveEngine(s.Engine.Snapshot()); err != nil {
		slog.Error("snapshot save failed", "error", err)
		writeError(w, http.StatusInternalServerError, "snapshot failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"rules":   len(s.Engine.ActiveRules()),
		"message": "snapshot saved",
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}
