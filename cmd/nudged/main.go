// Command nudged is the Nudge server daemon.
// It opens the task store and the platform scheduling adapter, wires the
// reminder lifecycle manager between them, and serves the REST API.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/nudgeapp/nudge/config"
	"github.com/nudgeapp/nudge/events"
	"github.com/nudgeapp/nudge/internal/version"
	"github.com/nudgeapp/nudge/notify"
	"github.com/nudgeapp/nudge/platform"
	"github.com/nudgeapp/nudge/platform/local"
	"github.com/nudgeapp/nudge/server"
	"github.com/nudgeapp/nudge/task"
)

var configPath = flag.String("config", "nudge.yaml", "path to config file")

func main() {
	flag.Parse()

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config %s: %v", *configPath, err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel),
	}))

	logger.Info("starting nudged",
		"version", version.Version,
		"commit", version.Commit,
	)

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Fatalf("Failed to create data dir %s: %v", cfg.DataDir, err)
	}

	store, err := task.NewSQLiteStore(filepath.Join(cfg.DataDir, "tasks.db"))
	if err != nil {
		log.Fatalf("Failed to open task store: %v", err)
	}
	defer store.Close() //nolint:errcheck

	sched, err := openScheduler(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to open %q scheduling platform: %v", cfg.Notify.Platform, err)
	}

	bus := events.NewInMemoryBus()

	if ls, ok := sched.(*local.Scheduler); ok {
		ls.SetNotifier(func(r platform.Reminder) {
			logger.Info("reminder delivered",
				"reminder_id", r.ID,
				"task_id", r.TaskID(),
				"title", r.Content.Title,
			)
			bus.Publish(events.Event{
				Type:       events.TypeDelivered,
				TaskID:     r.TaskID(),
				TaskTitle:  r.Content.Metadata[platform.MetaTaskTitle],
				ReminderID: r.ID,
			})
		})
		defer ls.Close() //nolint:errcheck
	}

	mgr := notify.NewManager(sched, logger, notify.Options{
		GuardInterval:      cfg.Notify.GuardInterval(),
		DefaultDisplayName: cfg.Auth.AdminUser,
		OnTap: func(taskID, taskTitle string) {
			bus.Publish(events.Event{
				Type:      events.TypeTapped,
				TaskID:    taskID,
				TaskTitle: taskTitle,
			})
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mgr.Initialize(ctx)
	defer mgr.Close()

	reconcile := func() {
		tasks, err := store.List(task.Filter{})
		if err != nil {
			logger.Error("reconcile: list tasks", "error", err)
			return
		}
		mgr.Reconcile(ctx, tasks)
	}
	reconcile()

	if cfg.Notify.ReconcileSchedule != "" {
		reconciler := cron.New()
		if _, err := reconciler.AddFunc(cfg.Notify.ReconcileSchedule, reconcile); err != nil {
			log.Fatalf("Invalid reconcile schedule %q: %v", cfg.Notify.ReconcileSchedule, err)
		}
		reconciler.Start()
		defer reconciler.Stop()
	}

	srv := server.New(*cfg, version.Version, logger)
	srv.SetTaskStore(store)
	srv.SetReminderManager(mgr)
	srv.SetBus(bus)
	if ls, ok := sched.(*local.Scheduler); ok {
		srv.SetTapper(ls)
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	fmt.Printf("Nudge server running on http://localhost%s\n", cfg.Server.Addr)
	fmt.Printf("Version: %s (%s)\n", version.Version, version.Commit)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		log.Fatalf("Server error: %v", err)
	case <-sigCh:
	}

	fmt.Println("Shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Error("server stop error", "error", err)
	}
	fmt.Println("Shutdown complete")
}

// openScheduler opens the configured scheduling platform. The local platform
// is opened directly so it gets the daemon logger; anything else goes through
// the registry.
func openScheduler(cfg *config.Config, logger *slog.Logger) (platform.Scheduler, error) {
	if cfg.Notify.Platform == "local" {
		return local.Open(filepath.Join(cfg.DataDir, "reminders.db"), logger)
	}
	return platform.Open(cfg.Notify.Platform, cfg.DataDir)
}

func logLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
