package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"github.com/sumire/accounts/internal/config"
	"github.com/sumire/accounts/internal/domain"
	"github.com/sumire/accounts/internal/handler"
	"github.com/sumire/accounts/internal/provider"
	"github.com/sumire/accounts/internal/repository"
	"github.com/sumire/accounts/internal/service"
)

func main() {
	if err := run(); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	})))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := repository.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	slog.Info("database connected", "driver", cfg.DatabaseDriver)

	registry, err := newProviderRegistry(cfg)
	if err != nil {
		return err
	}
	idp, err := registry.Lookup(domain.AuthProvider(cfg.OAuthProvider))
	if err != nil {
		return fmt.Errorf("select identity provider: %w", err)
	}

	slog.Info("identity provider selected",
		"provider", idp.Name(),
		"registered", registry.Names(),
	)

	accountRepo := repository.NewAccountRepository(db)
	authSvc := service.NewAuthService(accountRepo, idp, service.AuthConfig{
		PublicURL: cfg.PublicURL,
	})

	e := handler.NewRouter(handler.RouterDeps{
		Auth:   authSvc,
		Signer: service.NewSessionSigner(cfg.SessionSecret),
		Store:  accountRepo,
		Config: handler.AuthHandlerConfig{
			InitializationSecret: cfg.InitializationSecret,
			SecureCookie:         cfg.CookieSecure,
		},
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "port", cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

func newProviderRegistry(cfg config.Config) (*provider.Registry, error) {
	retry := provider.RetryPolicy{
		Timeout:         cfg.ProviderTimeout,
		MaxAttempts:     cfg.ProviderMaxAttempts,
		InitialInterval: cfg.ProviderRetryInterval,
	}

	registry := provider.NewRegistry()

	if cfg.DiscordClientID != "" {
		err := registry.Register(provider.NewDiscord(provider.DiscordConfig{
			ClientID:     cfg.DiscordClientID,
			ClientSecret: cfg.DiscordClientSecret,
			Retry:        retry,
		}))
		if err != nil {
			return nil, fmt.Errorf("register discord: %w", err)
		}
	}

	if cfg.GitHubClientID != "" {
		err := registry.Register(provider.NewGitHub(provider.GitHubConfig{
			ClientID:     cfg.GitHubClientID,
			ClientSecret: cfg.GitHubClientSecret,
			Retry:        retry,
		}))
		if err != nil {
			return nil, fmt.Errorf("register github: %w", err)
		}
	}

	return registry, nil
}
