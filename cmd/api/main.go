package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"multiauth/internal/app"
	"multiauth/internal/config"
	apihttp "multiauth/internal/http"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	application, err := app.Build(ctx, cfg, logger, app.Hooks{
		Challenge: func(id, pageURL string) {
			logger.Info("challenge pending", zap.String("id", id), zap.String("page_url", pageURL))
		},
		OAuth: func(id, startURL string) {
			logger.Info("oauth redirect pending", zap.String("id", id), zap.String("start_url", startURL))
		},
	})
	if err != nil {
		logger.Fatal("build app", zap.Error(err))
	}
	defer application.Close()

	authHandler := apihttp.NewAuthHandler(logger, application.Auth, application.Tickets, application.Challenges, application.Browser, apihttp.HandlerConfig{
		TimeoutMs:            cfg.DefaultTimeoutMs,
		InteractiveTimeoutMs: cfg.ChallengeTimeoutMs,
	})
	router := apihttp.NewRouter(logger, authHandler, application.Metrics, application.Registry)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("server shutdown", zap.Error(err))
		}
	}()

	logger.Info("starting server", zap.String("port", cfg.HTTPPort), zap.String("directory", cfg.DirectoryBackend))

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server error", zap.Error(err))
	}
}
