package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/meltforce/ironlog/internal/config"
	"github.com/meltforce/ironlog/internal/models"
	"github.com/meltforce/ironlog/internal/records"
	"github.com/meltforce/ironlog/internal/rewards"
	"github.com/meltforce/ironlog/internal/server"
	"github.com/meltforce/ironlog/internal/session"
	"github.com/meltforce/ironlog/internal/storage"
	"tailscale.com/tsnet"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	migrateOnly := flag.Bool("migrate-only", false, "run migrations and exit")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	log.Info("IronLog starting", "version", Version)

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Run migrations
	dsn := cfg.Database.DSN()
	if err := storage.RunMigrations(dsn, "migrations"); err != nil {
		log.Error("migration failed", "error", err)
		os.Exit(1)
	}
	log.Info("migrations applied")

	if *migrateOnly {
		log.Info("migrate-only: exiting")
		return
	}

	// Connect database
	ctx := context.Background()
	db, err := storage.New(ctx, dsn)
	if err != nil {
		log.Error("failed to connect database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	log.Info("database connected")

	// Reward engine: rules + persisted progression state
	loc, err := cfg.Rewards.Location()
	if err != nil {
		log.Error("failed to resolve timezone", "error", err)
		os.Exit(1)
	}
	rules := rewards.LoadRules(cfg.Rewards.RulesPath, log)

	rewardsEngine := rewards.NewEngine(rules, db, log)
	rewardsEngine.SetClock(nil, loc)
	if err := restoreRewards(ctx, db, rewardsEngine); err != nil {
		log.Error("failed to restore reward state", "error", err)
		os.Exit(1)
	}

	// Exercise record index seeded from storage
	index := records.NewIndex(rules.PR.E1RMThresholdPct)
	recs, err := db.LoadExerciseRecords(ctx)
	if err != nil {
		log.Error("failed to load exercise records", "error", err)
		os.Exit(1)
	}
	index.Load(recs)
	log.Info("exercise records loaded", "count", len(recs))

	// Session engine: live-workout snapshots + completed history
	snapshots, err := session.OpenSnapshotStore(cfg.Session.SnapshotDir)
	if err != nil {
		log.Error("failed to open snapshot store", "error", err)
		os.Exit(1)
	}

	sessions := session.NewEngine(index, rewardsEngine, db, snapshots, log)
	completed, err := db.ListCompletedWorkouts(ctx)
	if err != nil {
		log.Error("failed to load completed workouts", "error", err)
		os.Exit(1)
	}
	sessions.Recover(completed)
	log.Info("session engine recovered", "completed_workouts", len(completed))

	// From here on, an exit without MarkCleanShutdown(true) counts as a crash
	// and any live snapshot is discarded on the next start.
	if err := snapshots.MarkCleanShutdown(false); err != nil {
		log.Warn("failed to clear clean-shutdown flag", "error", err)
	}

	// Weekly goals are re-evaluated after every completed workout and once at
	// startup, in case a goal was crossed by cardio ingested while down.
	evaluateWeeklyGoals(ctx, db, rewardsEngine, loc, log)
	rewardsEngine.Subscribe(func(s rewards.Summary) {
		if s.Event == models.EventWorkoutCompleted {
			evaluateWeeklyGoals(context.Background(), db, rewardsEngine, loc, log)
		}
	})

	// Create server
	srv := server.New(db, sessions, rewardsEngine, cfg.Auth.APIKey, log)

	// Start server — tsnet or plain HTTP
	var listener net.Listener
	var tsServer *tsnet.Server

	if cfg.Tailscale.Enabled {
		tsServer = &tsnet.Server{
			Hostname: cfg.Tailscale.Hostname,
			Dir:      cfg.Tailscale.StateDir,
		}
		if err := tsServer.Start(); err != nil {
			log.Error("tsnet start failed", "error", err)
			os.Exit(1)
		}
		defer tsServer.Close()

		listener, err = tsServer.Listen("tcp", ":80")
		if err != nil {
			log.Error("tsnet listen failed", "error", err)
			os.Exit(1)
		}
		log.Info("tsnet server starting", "hostname", cfg.Tailscale.Hostname)
	} else {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		listener, err = net.Listen("tcp", addr)
		if err != nil {
			log.Error("listen failed", "addr", addr, "error", err)
			os.Exit(1)
		}
		log.Info("server starting", "addr", addr, "mode", "dev (no tailscale)")
	}

	httpSrv := &http.Server{Handler: srv}

	go func() {
		if err := httpSrv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("shutting down", "signal", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}

	sessions.Close()
	if err := snapshots.MarkCleanShutdown(true); err != nil {
		log.Warn("failed to set clean-shutdown flag", "error", err)
	}
	if err := snapshots.Close(); err != nil {
		log.Warn("snapshot store close failed", "error", err)
	}
	log.Info("server stopped")
}

// restoreRewards rehydrates the reward engine from persisted progress,
// achievements, and the recent ledger (needed for per-day and per-workout
// grant caps).
func restoreRewards(ctx context.Context, db *storage.DB, engine *rewards.Engine) error {
	progress, err := db.LoadProgress(ctx)
	if err != nil {
		return fmt.Errorf("loading progress: %w", err)
	}
	if progress == nil {
		return nil
	}

	achievements, err := db.LoadAchievements(ctx)
	if err != nil {
		return fmt.Errorf("loading achievements: %w", err)
	}
	recent, err := db.QueryLedger(ctx, time.Now().AddDate(0, 0, -7), 0)
	if err != nil {
		return fmt.Errorf("loading recent ledger: %w", err)
	}

	engine.Restore(*progress, achievements, recent)
	return nil
}

func evaluateWeeklyGoals(ctx context.Context, db *storage.DB, engine *rewards.Engine, loc *time.Location, log *slog.Logger) {
	week := rewards.WeekStartOf(time.Now(), loc)
	activity, err := db.GetWeeklyActivity(ctx, week)
	if err != nil {
		log.Warn("weekly activity query failed", "error", err)
		return
	}
	engine.ApplyWeeklyGoals(ctx, time.Now(), activity.StrengthDays, activity.ActiveMinutes)
}
