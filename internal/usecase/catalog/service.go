// Package catalog derives the filter-value catalog: the distinct values of
// each categorical field across stored contracts. Values come from a bounded
// scan, so on very large collections the catalog is an approximation of the
// full value set.
package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/atticus-search/atticus/internal/domain/contract"
)

// Repository pages through stored contracts.
type Repository interface {
	Scroll(ctx context.Context, offset, limit int, fields []string) ([]contract.Contract, int, error)
}

const defaultScanLimit = 1000

// Service builds the filter-value catalog.
type Service struct {
	repo      Repository
	scanLimit int
	logger    *zap.Logger
}

// New creates a catalog service. scanLimit bounds how many contracts one
// catalog request inspects; zero means the default.
func New(repo Repository, scanLimit int, logger *zap.Logger) *Service {
	if scanLimit <= 0 {
		scanLimit = defaultScanLimit
	}
	return &Service{repo: repo, scanLimit: scanLimit, logger: logger}
}

// Values returns the distinct non-empty values per categorical field, each
// list sorted ascending. Values are whitespace-trimmed before
// deduplication, so padded duplicates collapse to one entry.
func (s *Service) Values(ctx context.Context) (map[string][]string, error) {
	fields := contract.CategoricalFields()

	contracts, total, err := s.repo.Scroll(ctx, 0, s.scanLimit, fields)
	if err != nil {
		return nil, fmt.Errorf("scan contracts: %w", err)
	}
	if total > s.scanLimit {
		s.logger.Debug("Filter catalog built from a partial scan",
			zap.Int("scanned", len(contracts)), zap.Int("total", total))
	}

	seen := make(map[string]map[string]struct{}, len(fields))
	for _, f := range fields {
		seen[f] = make(map[string]struct{})
	}
	for i := range contracts {
		for f, v := range contracts[i].Categorical() {
			v = strings.TrimSpace(v)
			if v == "" {
				continue
			}
			seen[f][v] = struct{}{}
		}
	}

	out := make(map[string][]string, len(fields))
	for _, f := range fields {
		values := make([]string, 0, len(seen[f]))
		for v := range seen[f] {
			values = append(values, v)
		}
		sort.Strings(values)
		out[f] = values
	}
	return out, nil
}
