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

	"github.com/larriantoniy/domofon_bot/internal/adapters/botapi"
	"github.com/larriantoniy/domofon_bot/internal/adapters/memory"
	"github.com/larriantoniy/domofon_bot/internal/adapters/provider"
	"github.com/larriantoniy/domofon_bot/internal/adapters/tg"
	"github.com/larriantoniy/domofon_bot/internal/config"
	httphandler "github.com/larriantoniy/domofon_bot/internal/http"
	"github.com/larriantoniy/domofon_bot/internal/http/handlers"
	"github.com/larriantoniy/domofon_bot/internal/ports"
	"github.com/larriantoniy/domofon_bot/internal/useCases"
)

const (
	envDev  = "dev"
	envProd = "prod"

	shutdownTimeout = 10 * time.Second
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := setupLogger(cfg.Env)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		logger.Info("shutdown signal received")
		cancel()
	}()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("run error", "error", err)
		os.Exit(1)
	}

	logger.Info("exit")
}

func run(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) error {
	prov := provider.New(cfg.Domophone.APIURL, cfg.Domophone.APIToken, logger,
		provider.WithSuperUserPhone(cfg.Domophone.SuperUserPhone),
	)

	sessions, err := memory.NewSessionStore(logger)
	if err != nil {
		return fmt.Errorf("session store: %w", err)
	}

	chat, err := newMessenger(cfg, logger)
	if err != nil {
		return fmt.Errorf("messenger: %w", err)
	}
	defer chat.Close()

	dispatcher := useCases.NewDispatcher(logger, prov, sessions, chat)
	runner := useCases.NewRunner(dispatcher, logger, cfg.SessionIdle)
	defer runner.Close()

	relay := useCases.NewRelay(logger, prov, sessions, runner)
	router := httphandler.NewRouter(cfg.Webhook.Path, handlers.NewWebhookHandler(relay, logger), logger)

	srv := &http.Server{
		Addr:              cfg.Webhook.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      60 * time.Second, // снимок + отправка в Telegram
		IdleTimeout:       120 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		logger.Info("webhook server starting", "addr", cfg.Webhook.Addr, "path", cfg.Webhook.Path)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvErr <- err
		}
		close(srvErr)
	}()

	events, err := chat.Listen(ctx)
	if err != nil {
		shutdown(srv, logger)
		return fmt.Errorf("listen: %w", err)
	}

	runErr := make(chan error, 1)
	go func() { runErr <- runner.Run(ctx, events) }()

	logger.Info("bot started", "transport", cfg.Transport)

	var result error
	select {
	case <-ctx.Done():
	case err, ok := <-srvErr:
		if ok {
			result = fmt.Errorf("webhook server: %w", err)
		}
	case err := <-runErr:
		if err != nil && !errors.Is(err, context.Canceled) {
			result = fmt.Errorf("event loop: %w", err)
		}
	}

	shutdown(srv, logger)
	return result
}

func newMessenger(cfg *config.AppConfig, logger *slog.Logger) (ports.Messenger, error) {
	switch cfg.Transport {
	case config.TransportTDLib:
		return tg.New(tdlibConfig(cfg), logger)
	default:
		return botapi.New(cfg.Telegram.Token, logger)
	}
}

func tdlibConfig(cfg *config.AppConfig) tg.Config {
	c := tg.Config{
		APIID:   cfg.TDLib.ApiID,
		APIHash: cfg.TDLib.ApiHash,
		Token:   cfg.Telegram.Token,
		BaseDir: cfg.TDLib.BaseDir,
	}
	if cfg.TDLib.ProxyServer != "" {
		c.Proxy = &tg.ProxyConfig{
			Enabled:  true,
			Server:   cfg.TDLib.ProxyServer,
			Port:     cfg.TDLib.ProxyPort,
			Username: cfg.TDLib.ProxyUser,
			Password: cfg.TDLib.ProxyPassword,
		}
	}
	return c
}

func shutdown(srv *http.Server, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("webhook server forced to shutdown", "error", err)
	}
}

func setupLogger(env string) *slog.Logger {
	var logger *slog.Logger

	switch env {
	case envDev:
		logger = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		logger = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		logger = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
		logger.Warn("unknown env, falling back to info level", "env", env)
	}

	return logger
}
