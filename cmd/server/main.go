package main

import (
	"context"
	"ctchen222/car-dealership/internal/api/controller"
	apirepository "ctchen222/car-dealership/internal/api/repository"
	"ctchen222/car-dealership/internal/api/service"
	"ctchen222/car-dealership/internal/config"
	"ctchen222/car-dealership/internal/db"
	"ctchen222/car-dealership/internal/logger"
	"ctchen222/car-dealership/internal/repository"
	"ctchen222/car-dealership/internal/server"
	"ctchen222/car-dealership/internal/session"
	"ctchen222/car-dealership/internal/telemetry"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize telemetry
	shutdown, err := telemetry.InitOtel(ctx, cfg.Telemetry)
	if err != nil {
		slog.Error("failed to initialize telemetry", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			slog.Error("Error shutting down telemetry", "error", err)
		}
	}()

	logger.Init(cfg.LogLevel)
	gin.SetMode(gin.ReleaseMode)

	if cfg.Session.Secret == config.DefaultSessionSecret {
		slog.Warn("SESSION_SECRET is not set, using the development default")
	}

	// Initialize the relational store
	pool, dialect, err := db.Connect(ctx, cfg.DB)
	if err != nil {
		slog.Error("failed to connect to database", "driver", cfg.DB.Driver, "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := db.InitializeSchema(ctx, pool, dialect); err != nil {
		slog.Error("Schema initialization failed, continuing", "error", err)
	}

	// Initialize the session store
	var store session.Store
	var rdb *redis.Client
	switch cfg.Session.Store {
	case config.SessionStoreRedis:
		rdb, err = db.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			slog.Error("failed to initialize redis", "error", err)
			os.Exit(1)
		}
		defer rdb.Close()
		store = repository.NewSessionRepository(rdb)
	default:
		slog.Warn("Using in-memory session store, sessions are lost on restart")
		store = session.NewMemoryStore()
	}

	sessions := session.NewManager(store, session.Options{
		Secret:     cfg.Session.Secret,
		TTL:        cfg.Session.TTL,
		CookieName: cfg.Session.CookieName,
		Secure:     cfg.Session.CookieSecure,
	})

	// Create repositories
	userRepo := apirepository.NewUserRepository(pool)

	// Create services
	userService := service.NewUserService(userRepo)

	// Create controllers
	userController := controller.NewUserController(userService, sessions)
	pageController := controller.NewPageController(userService, sessions)

	// Create the Gin-based server
	srv, err := server.NewServer(slog.Default(), sessions, userController, pageController)
	if err != nil {
		slog.Error("failed to build server", "error", err)
		os.Exit(1)
	}

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("http server started", "addr", cfg.HTTPAddr, "db.driver", cfg.DB.Driver, "session.store", cfg.Session.Store)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-stop:
	case err := <-serveErr:
		slog.Error("ListenAndServe failed", "error", err)
	}

	slog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	slog.Info("Server exiting")
}
