package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/rootsreach/rootsreach-backend/api/controllers"
	"github.com/rootsreach/rootsreach-backend/api/routes"
	"github.com/rootsreach/rootsreach-backend/internal/ai"
	"github.com/rootsreach/rootsreach-backend/internal/auth"
	"github.com/rootsreach/rootsreach-backend/internal/materials"
	"github.com/rootsreach/rootsreach-backend/internal/users"
	"github.com/rootsreach/rootsreach-backend/pkg/auth/session"
	"github.com/rootsreach/rootsreach-backend/pkg/config"
	"github.com/rootsreach/rootsreach-backend/pkg/db"
	"github.com/rootsreach/rootsreach-backend/pkg/logger"
	"github.com/rootsreach/rootsreach-backend/pkg/metrics"
	"github.com/rootsreach/rootsreach-backend/pkg/migrate"
	"github.com/rootsreach/rootsreach-backend/pkg/redis"
	"github.com/rootsreach/rootsreach-backend/pkg/storage"
	"github.com/rootsreach/rootsreach-backend/pkg/storage/gcs"
	"github.com/rootsreach/rootsreach-backend/pkg/storage/local"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Environment: cfg.App.Env,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) (err error) {
	dbClient, err := db.New(ctx, cfg.DB, logg, db.WithSQLite(cfg.FeatureFlags.UseSQLite))
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, dbClient.Close())
	}()

	if err := migrate.Ensure(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, redisClient.Close())
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		return err
	}

	images, uploads, err := buildImageStore(ctx, cfg, logg)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	userRepo := users.NewRepository(dbClient.DB())

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
		Logger:         logg,
	})
	if err != nil {
		return err
	}

	usersService, err := users.NewService(users.ServiceParams{
		Repo:     userRepo,
		Sessions: sessionManager,
		Logger:   logg,
	})
	if err != nil {
		return err
	}

	materialsService, err := materials.NewService(materials.ServiceParams{
		Repo:          materials.NewRepository(dbClient),
		Suppliers:     userRepo,
		Images:        images,
		MaxImageBytes: cfg.Storage.MaxImageBytes(),
		Metrics:       metrics.NewStockMetrics(registry),
		Logger:        logg,
	})
	if err != nil {
		return err
	}

	aiService, err := ai.NewService(cfg.AI, logg)
	if err != nil {
		return err
	}

	gate, err := auth.NewGate(cfg.JWT, sessionManager, userRepo)
	if err != nil {
		return err
	}

	health := map[string]controllers.Pinger{
		"database": dbClient,
		"redis":    redisClient,
	}
	if pinger, ok := images.(controllers.Pinger); ok {
		health["storage"] = pinger
	}

	handler := routes.NewRouter(routes.Deps{
		Config:    cfg,
		Logger:    logg,
		Gate:      gate,
		Store:     redisClient,
		Metrics:   metrics.NewHTTPMetrics(registry),
		Gatherer:  registry,
		Health:    health,
		Auth:      authService,
		Users:     usersService,
		Materials: materialsService,
		AI:        aiService,
		Uploads:   uploads,
	})

	addr := ":" + cfg.App.Port
	host, _ := os.Hostname()
	logCtx := logg.WithFields(ctx, map[string]any{
		"addr":     addr,
		"instance": host,
		"storage":  cfg.Storage.Driver,
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(logCtx, "starting api server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logg.Info(logCtx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// buildImageStore returns the configured image store and, for local storage,
// a handler that serves the stored files.
func buildImageStore(ctx context.Context, cfg *config.Config, logg *logger.Logger) (storage.Store, http.Handler, error) {
	switch cfg.Storage.Driver {
	case config.StorageDriverGCS:
		client, err := gcs.NewClient(ctx, cfg.GCS, cfg.GCP, logg)
		if err != nil {
			return nil, nil, err
		}
		return client, nil, nil
	default:
		store, err := local.New(cfg.Storage.LocalDir, cfg.Storage.PublicBaseURL)
		if err != nil {
			return nil, nil, err
		}
		return store, http.FileServer(http.Dir(store.Root())), nil
	}
}
