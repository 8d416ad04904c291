package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"lens/internal/config"
	"lens/internal/consul"
	"lens/internal/database"
	"lens/internal/logger"
	"lens/internal/migrations"
	"lens/internal/posts"
	"lens/internal/server"
	"lens/internal/session"
	"lens/internal/storage"
	"lens/internal/web"
)

func gracefulShutdown(ctx context.Context, apiServer *http.Server, registry *consul.Client, serviceID string, done chan bool) {
	<-ctx.Done()

	slog.Info("Shutting down gracefully, press Ctrl+C again to force")

	if registry != nil {
		if err := registry.Deregister(serviceID); err != nil {
			slog.Warn("Failed to deregister from Consul", "error", err)
		} else {
			slog.Info("Deregistered from Consul", "service_id", serviceID)
		}
	}

	// in-flight requests get 5 seconds
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	slog.Info("Server exiting")
	done <- true
}

func main() {
	log := logger.New()
	logger.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		log.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("Starting gallery service", "port", cfg.Port, "bucket", cfg.Storage.Bucket)

	startCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	db, err := database.New(startCtx, cfg.DatabaseURL)
	if err != nil {
		log.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	log.Info("Database connected")

	if cfg.RunMigrations {
		if err := migrations.Up(startCtx, db.Pool()); err != nil {
			log.Error("Failed to run migrations", "error", err)
			os.Exit(1)
		}
		log.Info("Migrations applied")
	}

	blobs, err := storage.New(startCtx, cfg.Storage)
	if err != nil {
		log.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	if err := blobs.EnsureBucketExists(startCtx); err != nil {
		log.Warn("Bucket check failed, uploads may fail", "bucket", cfg.Storage.Bucket, "error", err)
	}

	var sessionStore session.Store
	cache := posts.NewRedisClient(startCtx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, log)
	if cache != nil {
		defer cache.Close()
		sessionStore = session.NewRedisStore(cache)
	} else {
		log.Warn("Sessions kept in memory")
		sessionStore = session.NewMemoryStore()
	}

	postService := posts.NewService(posts.NewRepository(db, log), cache, log)

	broker := posts.NewBroker(db, log)
	broker.OnEvent(postService.Invalidate)
	go func() {
		if err := broker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("Change feed stopped", "error", err)
		}
	}()
	defer broker.Close()

	surface, err := web.New(ctx, web.Options{
		Records:        postService,
		Blobs:          blobs,
		Feed:           broker,
		Sessions:       session.NewManager(sessionStore, cfg.SessionTTL),
		Logger:         log,
		BlobMarker:     storage.PublicPrefix(cfg.Storage.Bucket),
		SessionTTL:     cfg.SessionTTL,
		AllowedOrigins: cfg.CORSOrigins,
		SecureCookies:  strings.HasPrefix(cfg.Storage.PublicBaseURL, "https://"),
	})
	if err != nil {
		log.Error("Failed to build web surface", "error", err)
		os.Exit(1)
	}
	go surface.Registry().Run(ctx)

	apiServer := server.New(server.Deps{
		Config:  cfg,
		DB:      db,
		Storage: blobs,
		Posts:   postService,
		Web:     surface,
		Logger:  log,
	}).HTTPServer()

	var registry *consul.Client
	svc := consul.GalleryService(cfg.ServiceHost, cfg.Port)
	if cfg.ConsulAddr != "" {
		registry, err = consul.NewClient(cfg.ConsulAddr, cfg.ConsulToken)
		if err != nil {
			log.Error("Failed to create Consul client", "error", err)
			os.Exit(1)
		}
		// a crashed previous instance may still hold the id
		_ = registry.Deregister(svc.ID)
		if err := registry.Register(svc); err != nil {
			log.Error("Failed to register service with Consul", "error", err)
			os.Exit(1)
		}
		log.Info("Registered with Consul", "service_id", svc.ID)
	}

	done := make(chan bool, 1)
	go gracefulShutdown(ctx, apiServer, registry, svc.ID, done)

	log.Info("Gallery listening", "addr", apiServer.Addr)
	if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("HTTP server error", "error", err)
		os.Exit(1)
	}

	<-done
	log.Info("Graceful shutdown complete")
}
