package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/elec-mate/elecmate-engine/internal/api"
	"github.com/elec-mate/elecmate-engine/internal/assessment"
	"github.com/elec-mate/elecmate-engine/internal/cleanup"
	"github.com/elec-mate/elecmate-engine/internal/config"
	"github.com/elec-mate/elecmate-engine/internal/documents"
	"github.com/elec-mate/elecmate-engine/internal/generator"
	"github.com/elec-mate/elecmate-engine/internal/metrics"
	"github.com/elec-mate/elecmate-engine/internal/models"
	"github.com/elec-mate/elecmate-engine/internal/notifications"
	"github.com/elec-mate/elecmate-engine/internal/questions"
	"github.com/elec-mate/elecmate-engine/internal/services"
	"github.com/elec-mate/elecmate-engine/internal/storage"
	"github.com/elec-mate/elecmate-engine/internal/templates"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.Log.Level,
	}))
	slog.SetDefault(logger)

	slog.Info("starting elecmate-engine",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	// Create context for initialization
	initCtx, initCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer initCancel()

	collector := metrics.NewCollector()
	registry := services.NewRegistry()

	repo, err := openRepository(initCtx, cfg, registry)
	if err != nil {
		slog.Error("failed to open repository", "error", err)
		os.Exit(1)
	}

	drafts, err := openDraftStore(initCtx, cfg, registry)
	if err != nil {
		slog.Error("failed to open draft store", "error", err)
		os.Exit(1)
	}

	// Load document templates
	templateLoader := templates.NewLoader()
	if err := templateLoader.LoadFromDir(cfg.Templates.Dir); err != nil {
		slog.Warn("failed to load templates from dir", "dir", cfg.Templates.Dir, "error", err)
	}

	// Load question banks
	banks := questions.NewRegistry()
	if err := banks.LoadFromDir(cfg.Exams.QuestionsDir); err != nil {
		slog.Warn("failed to load question banks", "dir", cfg.Exams.QuestionsDir, "error", err)
	}

	docs := documents.NewService(templateLoader, repo, collector)
	gen := generator.NewManager(templateLoader, docs, drafts, api.LogNotifier{}, collector)
	exams := assessment.NewManager(assessment.RegistryBanks(banks), repo, collector, cfg.Exams.TickInterval)
	exams.SetDuration(cfg.Exams.Duration)

	// Initialize cleanup worker
	cleaner := cleanup.NewCleaner(map[string]cleanup.Sweeper{
		"exam":      exams,
		"generator": gen,
	}, cfg.Cleanup.Interval, cfg.Cleanup.IdleTimeout)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cleaner.Start(ctx)

	// Setup HTTP server
	server := api.NewServer(cfg.Server, api.Deps{
		Documents:     docs,
		Generator:     gen,
		Exams:         exams,
		Banks:         banks,
		Notifications: notifications.NewService(repo),
		Repo:          repo,
		Health:        registry,
		Metrics:       collector,
	})
	httpServer := &http.Server{
		Addr:        cfg.Addr(),
		Handler:     server.Router(),
		ReadTimeout: 15 * time.Second,
		// Exam websocket streams stay open for the whole sitting
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		slog.Info("HTTP server starting", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down gracefully...")

	// Cancel context to stop background workers
	cancel()
	cleaner.Wait()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	exams.Shutdown()

	if err := repo.Close(); err != nil {
		slog.Error("repository close error", "error", err)
	}
	if err := registry.CloseAll(); err != nil {
		slog.Error("service close error", "error", err)
	}

	slog.Info("elecmate-engine stopped")
}

// openRepository connects to Postgres and migrates it, or falls back to the
// in-memory repository when no DSN is configured
func openRepository(ctx context.Context, cfg *config.Config, registry *services.Registry) (storage.Repository, error) {
	if cfg.Database.DSN == "" {
		slog.Warn("DATABASE_DSN not set, using in-memory storage")
		var clients []*models.ApiClient
		if key := cfg.Server.BootstrapAPIKey; key != "" {
			clients = append(clients, &models.ApiClient{
				ID:          1,
				Name:        "bootstrap",
				ApiKey:      key,
				IsActive:    true,
				Permissions: []string{"*"},
				CreatedAt:   time.Now(),
			})
		}
		repo := storage.NewMemoryRepository(clients...)
		registry.Register("storage", services.NewCheckFunc("memory", repo.Ping))
		return repo, nil
	}

	repo, err := storage.NewPostgresRepository(ctx, storage.PostgresConfig{
		DSN:          cfg.Database.DSN,
		MaxOpenConns: int32(cfg.Database.MaxOpenConns),
		MaxIdleConns: int32(cfg.Database.MaxIdleConns),
	})
	if err != nil {
		return nil, err
	}

	slog.Info("running database migrations", "dir", cfg.Database.MigrationsDir)
	if err := storage.MigrateDir(ctx, repo.Pool(), cfg.Database.MigrationsDir); err != nil {
		repo.Close()
		return nil, err
	}
	slog.Info("database connected successfully")
	registry.Register("storage", services.NewCheckFunc("pgxpool", repo.Ping))

	probe, err := services.NewPostgresProvider(ctx, cfg.Database.DSN)
	if err != nil {
		repo.Close()
		return nil, err
	}
	registry.Register("postgres", probe)
	return repo, nil
}

// openDraftStore uses Redis when configured so drafts survive restarts
func openDraftStore(ctx context.Context, cfg *config.Config, registry *services.Registry) (generator.DraftStore, error) {
	if cfg.Redis.Address == "" {
		slog.Warn("REDIS_ADDRESS not set, keeping generator drafts in memory")
		return generator.NewMemoryDraftStore(cfg.Redis.DraftTTL), nil
	}

	provider, err := services.NewRedisProvider(ctx, cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, err
	}
	registry.Register("redis", provider)

	if cfg.Redis.PurgeOnStart {
		if _, err := provider.Purge(ctx, generator.DraftKeyPrefix); err != nil {
			slog.Warn("failed to purge generator drafts", "error", err)
		}
	}
	return generator.NewRedisDraftStore(provider.Client(), cfg.Redis.DraftTTL), nil
}
