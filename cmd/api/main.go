package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/timmy/gallery/internal/api"
	"github.com/timmy/gallery/internal/config"
	"github.com/timmy/gallery/internal/logger"
	"github.com/timmy/gallery/internal/repository"
)

func main() {
	// CONFIG_PATH overrides the default config search for deployments.
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger := logger.New(cfg.Log.LoggerConfig("gallery-api"))
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	ctx := appLogger.WithContext(context.Background())
	ctx = logger.SetComponent(ctx, "server")

	store, closeStore, err := repository.NewImageStore(ctx, &cfg.Database)
	if err != nil {
		logger.CtxError(ctx, "Failed to initialize image store: %v", err)
		os.Exit(1)
	}
	defer closeStore()

	router := api.SetupRouter(store, &cfg.Server, appLogger)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.CtxInfo(ctx, "Starting API server: port=%d, mode=%s, driver=%s, page_size=%d",
			cfg.Server.Port, cfg.Server.Mode, cfg.Database.Driver, cfg.Server.PageSize)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.CtxError(ctx, "Failed to start server: %v", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.CtxInfo(ctx, "Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.CtxError(ctx, "Server forced to shutdown: %v", err)
	}

	logger.CtxInfo(ctx, "Server exited")
}
