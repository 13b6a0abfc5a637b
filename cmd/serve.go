package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gusuihan4-tech/kaluli/internal/config"
	"github.com/gusuihan4-tech/kaluli/internal/handler"
	"github.com/gusuihan4-tech/kaluli/internal/logger"
	"github.com/gusuihan4-tech/kaluli/internal/vision"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the analyze endpoint server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
}

// runServe is the testable server entrypoint.
func runServe(ctx context.Context) error {
	cfg := config.Load()
	log := logger.New(cfg.Env)
	log.Info("Starting kaluli analyze server", zap.String("addr", cfg.ListenAddr), zap.Bool("mock", cfg.Mock))

	var provider vision.Provider
	if cfg.AIAPIKey == "" {
		if !cfg.Mock {
			log.Warn("AI_API_KEY not set, falling back to mock predictions")
		}
		provider = vision.MockProvider{}
	} else {
		provider = vision.NewOpenAI(cfg.AIAPIKey, cfg.AIBaseURL, cfg.AIModel, logger.Named(log, "vision"))
	}

	h := handler.New(logger.Named(log, "handler"), validator.New(), provider, cfg.Mock)

	r := chi.NewRouter()
	r.Get("/healthz", h.Healthz)
	r.Post("/api/analyze", h.Analyze)

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()

	log.Info("Shutting down server")
	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctxShutdown)
	return nil
}
