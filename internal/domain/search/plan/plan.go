// Package plan builds the coarse-to-fine stage chain for one query from the
// representations that are actually present.
package plan

import (
	"github.com/atticus-search/atticus/internal/domain"
	"github.com/atticus-search/atticus/internal/domain/rep"
)

// Stage is one pass of the retrieval funnel: score candidates with the given
// representation kind and keep at most Limit of them.
type Stage struct {
	Kind  rep.Kind
	Limit int
}

// Plan is the ordered stage chain for one query. Stages narrow monotonically;
// the final stage's limit equals the requested result count.
type Plan struct {
	Stages []Stage
	Limit  int
}

// Build derives the stage chain from the bundle's available representations.
// The first stage prefers the cheap byte representation, the dense-fine
// rerank and multi-vector refinement stages join only when their
// representations exist. A byte-only bundle gets a dense-coarse final stage
// so byte distances never order the final results.
func Build(b *rep.Bundle, prefetchLimit, rerankLimit, limit int) (Plan, error) {
	if err := b.Validate(); err != nil {
		return Plan{}, err
	}
	if limit <= 0 || prefetchLimit <= 0 || rerankLimit <= 0 {
		return Plan{}, domain.ErrValidation
	}

	var stages []Stage
	if b.Has(rep.ByteCoarse) {
		stages = append(stages, Stage{Kind: rep.ByteCoarse, Limit: prefetchLimit})
	} else {
		stages = append(stages, Stage{Kind: rep.DenseCoarse, Limit: prefetchLimit})
	}
	if b.Has(rep.DenseFine) {
		stages = append(stages, Stage{Kind: rep.DenseFine, Limit: rerankLimit})
	}
	if b.Has(rep.MultiFine) {
		stages = append(stages, Stage{Kind: rep.MultiFine, Limit: limit})
	} else if stages[len(stages)-1].Kind == rep.ByteCoarse {
		stages = append(stages, Stage{Kind: rep.DenseCoarse, Limit: limit})
	}

	return Plan{Stages: stages, Limit: limit}, nil
}
