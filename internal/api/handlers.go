package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/zsenarchitect/ManVsGod/internal/chess"
	"github.com/zsenarchitect/ManVsGod/internal/decisions"
	"github.com/zsenarchitect/ManVsGod/internal/game"
	"github.com/zsenarchitect/ManVsGod/internal/levels"
	"github.com/zsenarchitect/ManVsGod/internal/rules"
	"github.com/zsenarchitect/ManVsGod/internal/telemetry"
)

// --- rules engine ---

func (s *Server) handleRules(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Engine.ActiveRules())
}

func (s *Server) handleRule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rule, ok := s.Engine.Rule(id)
	if !ok {
		writeError(w, http.StatusNotFound, "rule not found")
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

func (s *Server) handleEvolution(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Engine.EvolutionHistory())
}

func (s *Server) handlePlayerStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Engine.PlayerStats())
}

func (s *Server) handleRecordDecision(w http.ResponseWriter, r *http.Request) {
	var d rules.Decision
	if err := decodeJSON(w, r, &d); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	// Stamp here so the engine log and OnDecision see the same instant.
	if d.Timestamp.IsZero() {
		d.Timestamp = time.Now().UTC()
	}
	if err := s.Engine.RecordDecision(d); err != nil {
		if errors.Is(err, rules.ErrInvalidDecision) {
			s.logf(r, telemetry.LevelWarn, telemetry.Validation, "decision rejected", map[string]any{"error": err.Error()})
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "record failed")
		return
	}
	telemetry.DecisionsRecorded.Inc()
	if s.OnDecision != nil {
		s.OnDecision(d)
	}
	writeJSON(w, http.StatusCreated, s.Engine.PlayerStats())
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.Engine.Reset()
	if s.DB != nil {
		if err := s.DB.ClearDecisions(); err != nil {
			slog.Error("clear persisted decisions failed", "error", err)
			writeError(w, http.StatusInternalServerError, "reset persisted state failed")
			return
		}
		if err := s.DB.SaveEngine(s.Engine.Snapshot()); err != nil {
			slog.Error("save reset engine failed", "error", err)
			writeError(w, http.StatusInternalServerError, "reset persisted state failed")
			return
		}
	}
	s.logf(r, telemetry.LevelInfo, telemetry.StateManagement, "rules reset", nil)
	writeJSON(w, http.StatusOK, s.Engine.ActiveRules())
}

// --- campaign ---

func (s *Server) handleLevels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"config":   s.Catalog.Config(),
		"levels":   s.Catalog.All(),
		"maxScore": s.Catalog.MaxScore(),
	})
}

func (s *Server) handleLevel(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "level id must be an integer")
		return
	}
	level, err := s.Catalog.Load(r.Context(), id)
	if err != nil {
		if errors.Is(err, levels.ErrLevelNotFound) {
			writeError(w, http.StatusNotFound, "level not found")
			return
		}
		s.logf(r, telemetry.LevelError, telemetry.LevelLoading, "level load failed", map[string]any{"level": id, "error": err.Error()})
		writeError(w, http.StatusInternalServerError, "level load failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"level":  level,
		"godBet": s.Catalog.GodBet(id, s.Jitter),
	})
}

type startRequest struct {
	PlayerID string `json:"playerId"`
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	writeJSON(w, http.StatusCreated, s.Game.Start(req.PlayerID))
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.Game.Session(chi.URLParam(r, "id"))
	if err != nil {
		s.writeGameError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleSessionLevel(w http.ResponseWriter, r *http.Request) {
	level, err := s.Game.CurrentLevel(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeGameError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, level)
}

func (s *Server) handlePlayTurn(w http.ResponseWriter, r *http.Request) {
	var t game.Turn
	if err := decodeJSON(w, r, &t); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.Game.Play(r.Context(), chi.URLParam(r, "id"), t)
	if err != nil {
		s.writeGameError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// writeGameError maps game sentinels to status codes.
func (s *Server) writeGameError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, game.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, game.ErrSessionComplete):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, game.ErrInvalidTurn),
		errors.Is(err, game.ErrInvalidMove),
		errors.Is(err, game.ErrBetOutOfRange),
		errors.Is(err, game.ErrInsufficientCurrency):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logf(r, telemetry.LevelError, telemetry.GameLogic, "turn failed", map[string]any{"error": err.Error()})
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// --- crowd statistics ---

func (s *Server) handleSubmitDecision(w http.ResponseWriter, r *http.Request) {
	var d decisions.ScenarioDecision
	if err := decodeJSON(w, r, &d); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if d.Timestamp.IsZero() {
		d.Timestamp = time.Now().UTC()
	}
	if d.PlayerID == "" {
		d.PlayerID = "player_" + uuid.NewString()
	}
	if err := s.Decisions.Append(r.Context(), d); err != nil {
		if errors.Is(err, decisions.ErrInvalid) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logf(r, telemetry.LevelError, telemetry.GoogleSheets, "decision submit failed", map[string]any{"error": err.Error()})
		writeError(w, http.StatusInternalServerError, "submit failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// handleStats returns one scenario's split with ?scenarioId, else all of them.
// A read failure serves the empty split rather than an error.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	ds, err := s.Decisions.ReadAll(r.Context())
	if err != nil {
		s.logf(r, telemetry.LevelError, telemetry.GoogleSheets, "decision read failed", map[string]any{"error": err.Error()})
		ds = nil
	}

	raw := r.URL.Query().Get("scenarioId")
	if raw == "" {
		all := decisions.AllStats(ds)
		if all == nil {
			all = []decisions.ScenarioStats{}
		}
		writeJSON(w, http.StatusOK, all)
		return
	}
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		writeError(w, http.StatusBadRequest, "scenarioId must be a positive integer")
		return
	}
	writeJSON(w, http.StatusOK, decisions.Stats(ds, id))
}

func (s *Server) handleProbabilities(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	id, err := strconv.Atoi(q.Get("scenarioId"))
	if err != nil || id < 1 {
		writeError(w, http.StatusBadRequest, "scenarioId must be a positive integer")
		return
	}
	base := 50.0
	if raw := q.Get("base"); raw != "" {
		base, err = strconv.ParseFloat(raw, 64)
		if err != nil || base < 0 || base > 100 {
			writeError(w, http.StatusBadRequest, "base must be between 0 and 100")
			return
		}
	}
	writeJSON(w, http.StatusOK, decisions.DynamicProbabilities(id, base, s.Noise, time.Now()))
}

// --- chess ---

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	fen := r.URL.Query().Get("fen")
	if fen == "" {
		writeError(w, http.StatusBadRequest, "fen is required")
		return
	}
	writeJSON(w, http.StatusOK, chess.Analyze(fen))
}

func (s *Server) handleMoves(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	fen, square := q.Get("fen"), q.Get("square")
	if fen == "" || square == "" {
		writeError(w, http.StatusBadRequest, "fen and square are required")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"square": square,
		"moves":  chess.LegalMovesFor(fen, square),
	})
}

// handleDailyPuzzle and handleRandomPuzzle fall back to a built-in puzzle
// when Lichess is unreachable.
func (s *Server) handleDailyPuzzle(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Puzzles.Daily(r.Context()))
}

func (s *Server) handleRandomPuzzle(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Puzzles.Random(r.Context()))
}

// --- export ---

// export is everything recorded so far, for offline analysis.
type export struct {
	ExportedAt             time.Time                    `json:"exportedAt"`
	TotalDecisions         int                          `json:"totalDecisions"`
	TotalScenarioDecisions int                          `json:"totalScenarioDecisions"`
	UniquePlayers          int                          `json:"uniquePlayers"`
	PlayerStats            rules.StatsSummary           `json:"playerStats"`
	Scenarios              []decisions.ScenarioStats    `json:"scenarios"`
	ScenarioDecisions      []decisions.ScenarioDecision `json:"scenarioDecisions"`
	Decisions              []rules.Decision             `json:"decisions"`
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	scenario, err := s.Decisions.ReadAll(r.Context())
	if err != nil {
		s.logf(r, telemetry.LevelError, telemetry.GoogleSheets, "decision read failed", map[string]any{"error": err.Error()})
		writeError(w, http.StatusBadGateway, "scenario decisions unavailable")
		return
	}
	if scenario == nil {
		scenario = []decisions.ScenarioDecision{}
	}
	engine := s.Engine.Decisions()

	players := make(map[string]bool)
	for _, d := range scenario {
		if d.PlayerID != "" {
			players[d.PlayerID] = true
		}
	}
	for _, d := range engine {
		players[d.ActorID] = true
	}
	scenarios := decisions.AllStats(scenario)
	if scenarios == nil {
		scenarios = []decisions.ScenarioStats{}
	}

	now := time.Now().UTC()
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="manVsGod_data_%s.json"`, now.Format(time.DateOnly)))
	writeJSON(w, http.StatusOK, export{
		ExportedAt:             now,
		TotalDecisions:         len(engine),
		TotalScenarioDecisions: len(scenario),
		UniquePlayers:          len(players),
		PlayerStats:            s.Engine.PlayerStats(),
		Scenarios:              scenarios,
		ScenarioDecisions:      scenario,
		Decisions:              engine,
	})
}

// --- telemetry ---

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	if s.Sink == nil {
		writeJSON(w, http.StatusOK, []telemetry.Entry{})
		return
	}
	entries := s.Sink.Entries()
	if r.URL.Query().Get("level") == string(telemetry.LevelError) {
		entries = s.Sink.ErrorEntries()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sessionId": s.Sink.SessionID(),
		"entries":   entries,
	})
}

func (s *Server) handleClearLogs(w http.ResponseWriter, r *http.Request) {
	if s.Sink != nil {
		s.Sink.Clear()
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleReportLog accepts a client-side log entry. Client reports are
// never forwarded.
func (s *Server) handleReportLog(w http.ResponseWriter, r *http.Request) {
	var e telemetry.Entry
	if err := decodeJSON(w, r, &e); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if e.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	if !e.Category.Valid() {
		writeError(w, http.StatusBadRequest, "unknown category")
		return
	}
	switch e.Level {
	case telemetry.LevelDebug, telemetry.LevelInfo, telemetry.LevelWarn, telemetry.LevelError:
	default:
		writeError(w, http.StatusBadRequest, "unknown level")
		return
	}
	if s.Sink != nil {
		s.Sink.Report(r.Context(), e)
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) logf(r *http.Request, level telemetry.Level, c telemetry.Category, msg string, details map[string]any) {
	if s.Sink == nil {
		return
	}
	s.Sink.Log(r.Context(), level, c, msg, details)
}
