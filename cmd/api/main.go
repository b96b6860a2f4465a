package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/huyng1801/restobot/backend/internal/config"
	"github.com/huyng1801/restobot/backend/internal/handler"
	"github.com/huyng1801/restobot/backend/internal/model/suggestion"
	"github.com/huyng1801/restobot/backend/internal/service/account"
	"github.com/huyng1801/restobot/backend/internal/service/ai"
	"github.com/huyng1801/restobot/backend/internal/service/chat"
	"github.com/huyng1801/restobot/backend/internal/service/connectivity"
	"github.com/huyng1801/restobot/backend/internal/service/dialogue"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger, closeLog := config.SetupLogger(cfg.Log)
	defer closeLog()
	slog.SetDefault(logger)

	if envErr != nil {
		logger.Warn("failed to load .env file, continuing with system environment variables only", "error", envErr)
	}

	httpClient := &http.Client{Timeout: cfg.Backend.RequestTimeout}

	rasa := dialogue.NewRasaClient(cfg.Backend.DialogueURL, httpClient)
	fallback := buildFallback(ctx, cfg, httpClient, logger)
	dispatcher := chat.NewDispatcher(rasa, fallback, cfg.Backend.RequestTimeout, logger)

	catalog := suggestion.NewMemoryStore(suggestion.Seed())
	sessions := chat.NewService(catalog, cfg.Chat.SessionCapacity, cfg.Chat.SessionTTL)
	accounts := account.NewClient(cfg.Backend.RestAPIURL, httpClient, cfg.Chat.SessionCapacity, 5*time.Minute)

	prober := connectivity.NewProber(cfg.Backend.DialogueURL, cfg.Backend.RestAPIURL, cfg.Backend.ProbeTimeout, nil, logger)
	poller := connectivity.NewPoller(prober, cfg.Chat.PollInterval)
	poller.Start(ctx)
	defer poller.Stop()

	router := handler.NewRouter(handler.Dependencies{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Logger:         logger,
		Sessions:       sessions,
		Dispatcher:     dispatcher,
		Suggestions:    catalog,
		Status:         poller,
		Accounts:       accounts,
	})

	if err := startServer(ctx, cfg.Server, router, logger); err != nil {
		logger.Error("server error", "error", err)
		poller.Stop()
		os.Exit(1)
	}
}

// buildFallback picks the channel tried after the dialogue engine fails.
func buildFallback(ctx context.Context, cfg *config.Config, httpClient *http.Client, logger *slog.Logger) dialogue.Channel {
	rest := dialogue.NewRestClient(cfg.Backend.RestAPIURL, httpClient)
	if cfg.Chat.Fallback != config.FallbackArk {
		return rest
	}

	if !cfg.AI.Enabled() {
		logger.Warn("CHAT_FALLBACK=ark but Ark 凭证未配置, using the REST API instead")
		return rest
	}

	concierge, err := ai.NewConcierge(ctx, cfg.AI, logger)
	if err != nil {
		logger.Warn("failed to initialize Ark concierge, using the REST API instead", "error", err)
		return rest
	}
	logger.Info("Ark concierge fallback enabled", "model", cfg.AI.Model)
	return concierge
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler, logger *slog.Logger) error {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info("RestoBot chat gateway listening", "addr", addr)
	return runServer(ctx, srv)
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
