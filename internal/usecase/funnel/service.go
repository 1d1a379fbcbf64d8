// Package funnel runs the coarse-to-fine retrieval with graceful
// degradation: the staged plan first, a single-stage dense search with a
// score threshold when a stage fails, an empty result when even the
// fallback fails. Only an unreachable index surfaces as an error.
package funnel

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/atticus-search/atticus/internal/domain"
	"github.com/atticus-search/atticus/internal/domain/rep"
	"github.com/atticus-search/atticus/internal/domain/search/filter"
	"github.com/atticus-search/atticus/internal/domain/search/hit"
	"github.com/atticus-search/atticus/internal/domain/search/plan"
	"github.com/atticus-search/atticus/internal/metrics"
)

// Limits configures the funnel stage ceilings and the fallback threshold.
type Limits struct {
	PrefetchLimit  int
	RerankLimit    int
	ScoreThreshold float64
}

// Service runs retrieval plans with fallback.
type Service struct {
	repo   Repository
	limits Limits
	logger *zap.Logger
}

// New creates a funnel service.
func New(repo Repository, limits Limits, logger *zap.Logger) *Service {
	return &Service{repo: repo, limits: limits, logger: logger}
}

// Run executes the staged funnel for the bundle and returns up to limit
// hits. The bool reports degradation: true when the staged plan failed and
// the hits come from the fallback path instead.
func (s *Service) Run(ctx context.Context, b *rep.Bundle, filters filter.Expression, limit int) ([]hit.Hit, bool, error) {
	p, err := plan.Build(b, s.limits.PrefetchLimit, s.limits.RerankLimit, limit)
	if err != nil {
		return nil, false, fmt.Errorf("build stage plan: %w", err)
	}

	metrics.SearchStagesTotal.WithLabelValues(strconv.Itoa(len(p.Stages))).Inc()

	hits, err := s.repo.QueryFunnel(ctx, b, p, filters)
	if err == nil {
		return hits, false, nil
	}
	if errors.Is(err, domain.ErrIndexUnavailable) {
		return nil, false, err
	}

	s.logger.Warn("Staged search failed, falling back to single-stage dense search",
		zap.Int("stages", len(p.Stages)), zap.Error(err))
	metrics.SearchFallbacksTotal.Inc()

	hits, err = s.fallback(ctx, b, filters, limit)
	return hits, err == nil, err
}

// fallback is the degraded path: one dense KNN, hits below the score
// threshold dropped. Its own soft failure yields an empty result.
func (s *Service) fallback(ctx context.Context, b *rep.Bundle, filters filter.Expression, limit int) ([]hit.Hit, error) {
	hits, err := s.repo.QuerySingle(ctx, rep.DenseCoarse, b, filters, limit)
	if err != nil {
		if errors.Is(err, domain.ErrIndexUnavailable) {
			return nil, err
		}
		s.logger.Error("Fallback search failed, returning empty result", zap.Error(err))
		return []hit.Hit{}, nil
	}

	kept := hits[:0]
	for _, h := range hits {
		if h.Score >= s.limits.ScoreThreshold {
			kept = append(kept, h)
		}
	}
	return kept, nil
}
