// Command resumechat-server serves the session REST API and the live chat
// relay.
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

	"github.com/TheIchigoSimp/HackNova-Hackathon/internal/adapter/agentclient"
	"github.com/TheIchigoSimp/HackNova-Hackathon/internal/chat"
	"github.com/TheIchigoSimp/HackNova-Hackathon/internal/config"
	"github.com/TheIchigoSimp/HackNova-Hackathon/internal/logging"
	"github.com/TheIchigoSimp/HackNova-Hackathon/internal/policy"
	"github.com/TheIchigoSimp/HackNova-Hackathon/internal/repository"
	"github.com/TheIchigoSimp/HackNova-Hackathon/internal/service"
	transport "github.com/TheIchigoSimp/HackNova-Hackathon/internal/transport/http"
	"github.com/TheIchigoSimp/HackNova-Hackathon/internal/transport/ws"
)

func main() {
	// Load configuration
	cfg := config.Load()

	logger := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	slog.SetDefault(logger)

	logger.Info("starting resumechat server",
		"port", cfg.HTTPPort,
		"database", cfg.DatabaseURL,
		"agent_url", cfg.AgentURL,
		"agent_streaming", cfg.AgentStreaming,
	)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("resumechat server stopped")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize store
	db, err := store.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer db.Close()

	// Initialize policy engine
	policyEngine, err := policy.NewDefaultEngine(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize policy engine: %w", err)
	}

	// Initialize agent client
	agentClient := agentclient.NewClient(cfg.AgentURL)

	// Initialize service
	svc := service.New(db, agentClient, cfg, policyEngine, logger)

	relay := ws.NewRelay(cfg, func(userID string) chat.Sessions { return svc.ForUser(userID) }, agentClient, logger)
	server := transport.NewServer(svc, relay, cfg, logger)

	errCh := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		logger.Info("http server listening", "addr", addr)
		if err := server.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("failed to shutdown http server gracefully", "error", err)
	}
	// Hijacked websocket connections are not covered by server.Shutdown.
	if err := relay.Shutdown(shutdownCtx); err != nil {
		logger.Warn("failed to drain chat connections", "error", err)
	}
	return nil
}
