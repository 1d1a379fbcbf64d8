// Package collection manages the contract index lifecycle: schema creation
// at startup, stats reporting, and the destructive reindex operation.
package collection

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Stats is the collection status exposed by the stats endpoint.
type Stats struct {
	Status    string
	Documents int
}

// Status values for Stats.
const (
	StatusReady    = "ready"
	StatusIndexing = "indexing"
)

// Service manages the contract index.
type Service struct {
	repo   Repository
	logger *zap.Logger
}

// New creates a collection service.
func New(repo Repository, logger *zap.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Ensure creates the index schema when missing. Called at startup and after
// a reset.
func (s *Service) Ensure(ctx context.Context) error {
	if err := s.repo.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Stats reports collection status and document count.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	info, err := s.repo.Info(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("index info: %w", err)
	}
	status := StatusReady
	if info.Indexing {
		status = StatusIndexing
	}
	return Stats{Status: status, Documents: info.Documents}, nil
}

// Reset drops and recreates the index with all its documents. Destructive.
func (s *Service) Reset(ctx context.Context) error {
	s.logger.Warn("Resetting contract index")
	if err := s.repo.Reset(ctx); err != nil {
		return fmt.Errorf("reset index: %w", err)
	}
	return nil
}

// Probe reports whether the index answers, for health checks.
func (s *Service) Probe(ctx context.Context) error {
	if _, err := s.repo.Info(ctx); err != nil {
		return fmt.Errorf("index probe: %w", err)
	}
	return nil
}
