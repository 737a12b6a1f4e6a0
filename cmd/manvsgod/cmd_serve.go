package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/zsenarchitect/ManVsGod/internal/api"
	"github.com/zsenarchitect/ManVsGod/internal/chess"
	"github.com/zsenarchitect/ManVsGod/internal/config"
	"github.com/zsenarchitect/ManVsGod/internal/decisions"
	"github.com/zsenarchitect/ManVsGod/internal/dilemma"
	"github.com/zsenarchitect/ManVsGod/internal/entropy"
	"github.com/zsenarchitect/ManVsGod/internal/game"
	"github.com/zsenarchitect/ManVsGod/internal/levels"
	"github.com/zsenarchitect/ManVsGod/internal/persistence"
	"github.com/zsenarchitect/ManVsGod/internal/rules"
	"github.com/zsenarchitect/ManVsGod/internal/sheets"
	"github.com/zsenarchitect/ManVsGod/internal/telemetry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Opens the state database, restores the rules engine (or seeds a fresh
one), and serves the game over HTTP until interrupted. The engine is saved
on an interval and once more on shutdown.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(rootFlags.configPath)
	if err != nil {
		return err
	}
	setupLogging(cfg.SlogLevel())
	slog.Info("Man vs God", "version", version)

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	noise := entropy.NewNoise(seed)

	// ── Database ──────────────────────────────────────────────────────
	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}
	}
	db, err := persistence.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()
	slog.Info("database opened", "path", cfg.DBPath)

	// ── Rules Engine ──────────────────────────────────────────────────
	engine, err := loadEngine(db, engineOptions(cfg, noise)...)
	if err != nil {
		return err
	}

	// ── Telemetry ─────────────────────────────────────────────────────
	var sinkOpts []telemetry.SinkOption
	if fwd := telemetry.NewFormForwarder(cfg.ErrorFormURL); fwd != nil {
		sinkOpts = append(sinkOpts, telemetry.WithForwarder(fwd))
		slog.Info("error forwarding enabled")
	}
	sink := telemetry.NewSink(sinkOpts...)

	// ── Decision Store ────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var remote decisions.Store
	if cfg.RemoteStore() {
		sheet, err := sheets.New(ctx, sheets.Config{
			SpreadsheetID: cfg.SheetID,
			APIKey:        cfg.GoogleAPIKey,
			Endpoint:      cfg.SheetsEndpoint,
		})
		if err != nil {
			slog.Warn("google sheets unavailable, storing decisions locally", "error", err)
		} else if sheet != nil {
			remote = sheet
			slog.Info("google sheets decision store enabled", "sheet", cfg.SheetID)
		}
	} else {
		slog.Warn("GOOGLE_SHEET_ID or GOOGLE_API_KEY not set, storing decisions locally")
	}
	store := decisions.NewFallback(db.Scenarios(), remote, slog.Default())

	// ── Campaign ──────────────────────────────────────────────────────
	gen := dilemma.NewGenerator(rand.New(rand.NewSource(seed)))
	puzzles := chess.NewPuzzleClient(cfg.PuzzleURL)
	catalog, err := levels.NewCatalog(gen, puzzles)
	if err != nil {
		return err
	}
	persist := func(d rules.Decision) {
		if err := db.AppendDecision(d); err != nil {
			slog.Error("persist decision failed", "actor", d.ActorID, "error", err)
		}
	}
	svc := game.NewService(catalog, engine,
		game.WithStore(store),
		game.WithJitter(noise),
		game.WithNoise(noise),
		game.WithSink(sink),
		game.OnDecision(persist),
	)

	// ── HTTP API ──────────────────────────────────────────────────────
	if cfg.AdminKey == "" {
		slog.Warn("MANVSGOD_ADMIN_KEY not set, admin endpoints will be disabled")
	}
	srv := &api.Server{
		Engine:      engine,
		Game:        svc,
		Catalog:     catalog,
		Decisions:   store,
		DB:          db,
		Sink:        sink,
		Noise:       noise,
		Jitter:      noise,
		Puzzles:     puzzles,
		OnDecision:  persist,
		Port:        cfg.Port,
		AdminKey:    cfg.AdminKey,
		CORSOrigins: cfg.CORSOrigins,
		StartedAt:   time.Now(),
	}
	if cfg.RateLimit > 0 {
		srv.Limiter = api.NewRateLimiter(cfg.RateLimit, time.Minute)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.ListenAndServe(gctx) })
	if cfg.Autosave > 0 {
		g.Go(func() error {
			autosave(gctx, db, engine, cfg.Autosave)
			return nil
		})
	}
	runErr := g.Wait()

	slog.Info("shutting down, saving rules engine")
	if err := db.SaveEngine(engine.Snapshot()); err != nil {
		return errors.Join(runErr, fmt.Errorf("final save: %w", err))
	}
	return runErr
}

func engineOptions(cfg config.Config, jitter rules.Jitter) []rules.Option {
	opts := []rules.Option{
		rules.WithJitter(jitter),
		rules.OnEvolve(func(ev rules.EvolutionEvent) {
			telemetry.RuleEvolutions.WithLabelValues(ev.RuleID, string(ev.Kind)).Inc()
		}),
	}
	if cfg.EvolutionCooldown > 0 {
		opts = append(opts, rules.WithCooldown(cfg.EvolutionCooldown))
	}
	return opts
}

// loadEngine restores the saved engine, or seeds and saves a fresh one.
func loadEngine(db *persistence.DB, opts ...rules.Option) (*rules.Engine, error) {
	snap, err := db.LoadEngine()
	if errors.Is(err, persistence.ErrNoState) {
		slog.Info("no saved rules found, seeding fresh engine")
		engine := rules.NewEngine(opts...)
		if err := db.SaveEngine(engine.Snapshot()); err != nil {
			slog.Error("initial save failed", "error", err)
		}
		return engine, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load engine: %w", err)
	}

	engine, err := rules.Restore(snap, opts...)
	if err != nil {
		return nil, err
	}
	slog.Info("rules engine restored",
		"rules", len(snap.Rules),
		"evolutions", len(snap.History),
		"decisions", len(snap.Decisions),
	)
	return engine, nil
}

func autosave(ctx context.Context, db *persistence.DB, engine *rules.Engine, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := db.SaveEngine(engine.Snapshot()); err != nil {
				slog.Error("autosave failed", "error", err)
			}
		}
	}
}
