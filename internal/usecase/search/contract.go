package search

import (
	"context"

	"github.com/atticus-search/atticus/internal/domain/contract"
	"github.com/atticus-search/atticus/internal/domain/rep"
	"github.com/atticus-search/atticus/internal/domain/search/filter"
	"github.com/atticus-search/atticus/internal/domain/search/hit"
)

// Representer turns a query text into its representation bundle.
type Representer interface {
	Query(ctx context.Context, text string) (*rep.Bundle, error)
}

// Funnel executes the staged retrieval with fallback. The bool reports
// whether the hits came from the degraded fallback path.
type Funnel interface {
	Run(ctx context.Context, b *rep.Bundle, filters filter.Expression, limit int) ([]hit.Hit, bool, error)
}

// ContractReader loads a single contract by id.
type ContractReader interface {
	Retrieve(ctx context.Context, id string) (contract.Contract, error)
}

// Catalog lists the distinct categorical filter values.
type Catalog interface {
	Values(ctx context.Context) (map[string][]string, error)
}
