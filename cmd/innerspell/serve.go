package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/hopetreehub/innerspell/internal/adapters/decks"
	httpadapter "github.com/hopetreehub/innerspell/internal/adapters/http"
	"github.com/hopetreehub/innerspell/internal/adapters/llm/gemini"
	"github.com/hopetreehub/innerspell/internal/adapters/llm/openrouter"
	"github.com/hopetreehub/innerspell/internal/adapters/sessions"
	"github.com/hopetreehub/innerspell/internal/adapters/sqlstore"
	"github.com/hopetreehub/innerspell/internal/app"
	"github.com/hopetreehub/innerspell/internal/config"
	"github.com/hopetreehub/innerspell/internal/metrics"
	"github.com/hopetreehub/innerspell/internal/ports"
	"github.com/hopetreehub/innerspell/internal/prompt"
)

// stdRNG delegates to math/rand/v2 (auto-seeded).
type stdRNG struct{}

func (stdRNG) Intn(n int) int { return rand.IntN(n) }

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := cfg.ValidateServer(); err != nil {
			return err
		}
		return serve(cmd.Context(), cfg)
	},
}

func newLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

func serve(ctx context.Context, cfg config.Config) error {
	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	defaults, err := prompt.LoadDefaults()
	if err != nil {
		return err
	}

	db, err := sqlstore.Open(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()
	if cfg.AutoMigrate {
		if err := sqlstore.Migrate(db); err != nil {
			return err
		}
	}
	store := sqlstore.New(db)

	sessionStore, closeSessions, err := openSessions(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeSessions()

	m := metrics.New()
	completer, err := newCompleter(ctx, cfg, logger)
	if err != nil {
		return err
	}
	completer = m.InstrumentCompleter(completer)

	deckStore := decks.NewEmbeddedStore()
	profiles := app.NewProfileService(store, logger)
	settings := app.NewSettingsService(store, profiles, defaults, logger)
	interp := app.NewInterpretationService(completer, settings, defaults, logger)

	handler := httpadapter.NewHandler(httpadapter.Services{
		Decks:      deckStore,
		Readings:   app.NewReadingService(deckStore, sessionStore, interp, store, stdRNG{}, cfg.SessionTTL, logger),
		History:    app.NewHistoryService(store, logger),
		Dreams:     app.NewDreamService(completer, settings, store, defaults, logger),
		Community:  app.NewCommunityService(store, store, profiles, logger),
		Profiles:   profiles,
		Newsletter: app.NewNewsletterService(store, logger),
		Settings:   settings,
	}, logger)

	e := httpadapter.NewRouter(handler, httpadapter.RouterConfig{
		JWTSecret:     []byte(cfg.JWTSecret),
		ContentSecret: cfg.ContentAPISecret,
		RateLimiter:   httpadapter.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, logger),
		Metrics:       m,
	}, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server",
			"addr", cfg.HTTPAddr,
			"llm_provider", cfg.LLMProvider,
			"llm_model", cfg.LLMModel,
			"database", cfg.DatabaseDriver,
			"sessions", cfg.SessionBackend,
		)
		if err := e.Start(cfg.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	return nil
}

func openSessions(ctx context.Context, cfg config.Config) (ports.SessionStore, func(), error) {
	if cfg.SessionBackend != config.BackendRedis {
		return sessions.NewMemoryStore(), func() {}, nil
	}
	client, err := sessions.DialRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, nil, err
	}
	return sessions.NewRedisStore(client), func() { _ = client.Close() }, nil
}

func newCompleter(ctx context.Context, cfg config.Config, logger *slog.Logger) (ports.Completer, error) {
	httpClient := &http.Client{Timeout: cfg.LLMTimeout}
	switch cfg.LLMProvider {
	case config.ProviderOpenRouter:
		return openrouter.NewClient(httpClient, cfg.OpenRouterAPIKey, cfg.OpenRouterBaseURL, cfg.LLMModel, logger), nil
	default:
		return gemini.NewClient(ctx, gemini.Options{
			APIKey:     cfg.GeminiAPIKey,
			Model:      cfg.LLMModel,
			HTTPClient: httpClient,
		}, logger)
	}
}
