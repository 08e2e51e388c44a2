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

	"videoforge/internal/generation"
	"videoforge/internal/http/handlers"
	"videoforge/internal/http/httpapi"
	"videoforge/internal/infra"
	"videoforge/internal/media"
	"videoforge/internal/orchestrator"
	"videoforge/internal/store"
	"videoforge/internal/transfer"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	for _, dir := range []string{cfg.KeyframesDir(), cfg.VideosDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logger.Fatal().Err(err).Str("dir", dir).Msg("failed to create data directory")
		}
	}

	st, err := store.Open(cfg.DatabaseFile(), logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open store")
	}

	objects, err := transfer.NewFileStore(cfg.DataDir + "/remote")
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure object store")
	}
	generator := generation.NewSynthetic(cfg.PollInterval)
	processor := media.NewBoomerang(cfg.FFmpegPath, logger)

	orch := orchestrator.New(st, generator, objects, processor, logger, orchestrator.Config{
		OutputBucket:  cfg.S3Bucket,
		VideosDir:     cfg.VideosDir(),
		PollInterval:  cfg.PollInterval,
		MaxConcurrent: cfg.MaxConcurrentJobs,
	})

	app := handlers.NewApp(st, orch, logger, cfg.KeyframesDir(), cfg.S3Bucket)
	router := httpapi.NewRouter(app, logger, cfg.CORSAllowedOrigins)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Str("addr", server.Addr()).Msg("API listening")
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	orch.Close()
	logger.Info().Msg("server stopped")
}
