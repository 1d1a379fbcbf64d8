// Package search orchestrates one search request end to end: compile the
// filters, build the query representations, run the retrieval funnel, and
// assemble scored contracts.
package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/atticus-search/atticus/internal/domain"
	"github.com/atticus-search/atticus/internal/domain/contract"
	"github.com/atticus-search/atticus/internal/domain/rep"
	"github.com/atticus-search/atticus/internal/domain/search/filter"
	"github.com/atticus-search/atticus/internal/domain/search/hit"
	"github.com/atticus-search/atticus/internal/domain/search/result"
	"github.com/atticus-search/atticus/internal/metrics"
)

// Request is one search call.
type Request struct {
	Query   string
	Filters filter.Spec
	Limit   int
	Offset  int
}

// Response carries the assembled results and the wall-clock duration of the
// whole pipeline.
type Response struct {
	Results []result.Result
	Total   int
	Took    time.Duration
}

// Timeouts bounds the two external calls of one search. Zero disables the
// bound.
type Timeouts struct {
	Embed time.Duration
	Query time.Duration
}

// Service is the search orchestrator.
type Service struct {
	reps      Representer
	funnel    Funnel
	contracts ContractReader
	catalog   Catalog
	timeouts  Timeouts
	logger    *zap.Logger
}

// New creates a search service.
func New(
	reps Representer,
	funnel Funnel,
	contracts ContractReader,
	catalog Catalog,
	timeouts Timeouts,
	logger *zap.Logger,
) *Service {
	return &Service{
		reps:      reps,
		funnel:    funnel,
		contracts: contracts,
		catalog:   catalog,
		timeouts:  timeouts,
		logger:    logger,
	}
}

// Search runs the full pipeline for one request.
func (s *Service) Search(ctx context.Context, req Request) (Response, error) {
	start := time.Now()

	query := strings.TrimSpace(req.Query)
	if query == "" {
		return Response{}, fmt.Errorf("%w: query must not be empty", domain.ErrValidation)
	}
	if req.Limit <= 0 {
		return Response{}, fmt.Errorf("%w: limit must be positive", domain.ErrValidation)
	}
	if req.Offset < 0 {
		return Response{}, fmt.Errorf("%w: offset must not be negative", domain.ErrValidation)
	}

	filters, err := filter.Compile(req.Filters, contract.CategoricalFields())
	if err != nil {
		return Response{}, fmt.Errorf("compile filters: %w", err)
	}

	bundle, err := s.represent(ctx, query)
	if err != nil {
		return Response{}, fmt.Errorf("represent query: %w", err)
	}

	// The funnel is asked for offset+limit and the window is cut here;
	// stability across a concurrent reindex is not guaranteed.
	hits, degraded, err := s.runFunnel(ctx, bundle, filters, req.Offset+req.Limit)
	if err != nil {
		return Response{}, err
	}

	if req.Offset >= len(hits) {
		hits = hits[:0]
	} else {
		hits = hits[req.Offset:]
	}

	results := assemble(hits)
	took := time.Since(start)

	metrics.SearchRequestDuration.WithLabelValues(searchMode(degraded)).Observe(took.Seconds())
	metrics.SearchResultsReturned.Observe(float64(len(results)))
	if len(results) == 0 {
		metrics.SearchEmptyTotal.Inc()
	}
	s.logger.Debug("Search completed",
		zap.Int("results", len(results)),
		zap.Bool("degraded", degraded),
		zap.Duration("took", took))

	return Response{Results: results, Total: len(results), Took: took}, nil
}

func (s *Service) represent(ctx context.Context, query string) (*rep.Bundle, error) {
	if s.timeouts.Embed > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeouts.Embed)
		defer cancel()
	}
	return s.reps.Query(ctx, query)
}

func (s *Service) runFunnel(ctx context.Context, b *rep.Bundle, filters filter.Expression, limit int) ([]hit.Hit, bool, error) {
	if s.timeouts.Query > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeouts.Query)
		defer cancel()
	}
	hits, degraded, err := s.funnel.Run(ctx, b, filters, limit)
	if err != nil {
		return nil, false, fmt.Errorf("run funnel: %w", err)
	}
	return hits, degraded, nil
}

// searchMode is the duration metric label for the retrieval path taken.
func searchMode(degraded bool) string {
	if degraded {
		return "fallback"
	}
	return "funnel"
}

// GetByID loads one contract.
func (s *Service) GetByID(ctx context.Context, id string) (contract.Contract, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return contract.Contract{}, fmt.Errorf("%w: contract id must not be empty", domain.ErrValidation)
	}
	c, err := s.contracts.Retrieve(ctx, id)
	if err != nil {
		return contract.Contract{}, fmt.Errorf("retrieve contract: %w", err)
	}
	return c, nil
}

// FilterCatalog lists the available filter values per category.
func (s *Service) FilterCatalog(ctx context.Context) (map[string][]string, error) {
	values, err := s.catalog.Values(ctx)
	if err != nil {
		return nil, fmt.Errorf("filter catalog: %w", err)
	}
	return values, nil
}
