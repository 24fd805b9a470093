package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"outbreaksim/adapters/rng"
	"outbreaksim/app"
	"outbreaksim/internal/api"
	"outbreaksim/internal/config"
	"outbreaksim/internal/logging"
	"outbreaksim/internal/metrics"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(appConfig.Env, appConfig.Log.Level)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	if appConfig.Server.GinMode != "" {
		gin.SetMode(appConfig.Server.GinMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := app.OpenResultStore(ctx, appConfig, logger)
	if err != nil {
		logger.Fatal("failed to open result store", zap.Error(err))
	}
	defer store.Close()

	registry := metrics.NewRegistry()
	service := app.NewExperimentService(rng.NewSeeded(), logger, registry, appConfig.Run.Parallelism)
	router := api.NewRouter(api.RouterConfig{
		Results:     store,
		Experiments: service,
		Metrics:     registry,
		Logger:      logger,
	})

	srv := &http.Server{
		Addr:              ":" + appConfig.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("results server listening",
			zap.String("addr", srv.Addr),
			zap.String("store", store.Backend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
