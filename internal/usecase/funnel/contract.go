package funnel

import (
	"context"

	"github.com/atticus-search/atticus/internal/domain/rep"
	"github.com/atticus-search/atticus/internal/domain/search/filter"
	"github.com/atticus-search/atticus/internal/domain/search/hit"
	"github.com/atticus-search/atticus/internal/domain/search/plan"
)

// Repository executes retrieval against the vector index.
type Repository interface {
	QueryFunnel(ctx context.Context, b *rep.Bundle, p plan.Plan, filters filter.Expression) ([]hit.Hit, error)
	QuerySingle(ctx context.Context, kind rep.Kind, b *rep.Bundle, filters filter.Expression, k int) ([]hit.Hit, error)
}
