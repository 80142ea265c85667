// Package service implements the session controller: ownership scoping,
// request validation and error translation in front of the session store.
package service

import (
	"context"
	"log/slog"

	"github.com/TheIchigoSimp/HackNova-Hackathon/internal/adapter/agentclient"
	"github.com/TheIchigoSimp/HackNova-Hackathon/internal/config"
	"github.com/TheIchigoSimp/HackNova-Hackathon/internal/policy"
	"github.com/TheIchigoSimp/HackNova-Hackathon/internal/repository"
)

type Service struct {
	store        store.Store
	agentClient  *agentclient.Client
	config       *config.Config
	policyEngine *policy.Engine
	logger       *slog.Logger
}

func New(store store.Store, agentClient *agentclient.Client, cfg *config.Config, policyEngine *policy.Engine, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		store:        store,
		agentClient:  agentClient,
		config:       cfg,
		policyEngine: policyEngine,
		logger:       logger,
	}
}

// Health reports whether the agent service answers its health probe. The
// server itself is healthy whenever it can answer.
func (s *Service) Health(ctx context.Context) map[string]string {
	status := map[string]string{"status": "ok"}
	if s.agentClient == nil {
		status["agent"] = "unconfigured"
		return status
	}
	if err := s.agentClient.Health(ctx); err != nil {
		s.logger.Warn("agent health probe failed", "error", err)
		status["agent"] = "unreachable"
		return status
	}
	status["agent"] = "ok"
	return status
}

// storeContext bounds a single store call by the persist timeout.
func (s *Service) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.config == nil || s.config.PersistTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.config.PersistTimeout)
}
