package server

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// ReloadableName identifies the server to the hot reload coordinator.
const ReloadableName = "greeting"

// Name implements hotreload.Reloadable.
func (s *Server) Name() string {
	return ReloadableName
}

// Reload re-reads the configuration and swaps in the new greeting and
// contract. On any error the current greeting stays in place.
func (s *Server) Reload(ctx context.Context) error {
	err := s.reload(ctx)
	s.metrics.RecordReload(err)
	if err != nil {
		s.logger.Error("Greeting reload failed, keeping current greeting", zap.Error(err))
	}
	return err
}

func (s *Server) reload(ctx context.Context) error {
	if s.reloadSource == nil {
		return errors.New("no reload source configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	cfg, err := s.reloadSource()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	greeting, c, err := resolveGreeting(cfg.Greeting)
	if err != nil {
		return err
	}

	previous := s.Greeting()
	s.contract.Store(c)
	s.greeting.Store(&greeting)

	s.logger.Info("Greeting reloaded",
		zap.String("contract", c.Source()),
		zap.Bool("changed", previous != greeting),
		zap.Int("greeting_bytes", len(greeting)),
	)
	return nil
}
