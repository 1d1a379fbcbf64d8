package search

import (
	"github.com/atticus-search/atticus/internal/domain/contract"
	"github.com/atticus-search/atticus/internal/domain/search/hit"
	"github.com/atticus-search/atticus/internal/domain/search/result"
)

// assemble turns raw hits into scored contracts, preserving the funnel's
// order. Unknown payload keys survive in Contract.Extra.
func assemble(hits []hit.Hit) []result.Result {
	results := make([]result.Result, 0, len(hits))
	for _, h := range hits {
		results = append(results, result.Result{
			Contract: contract.FromPayload(h.ID, h.Payload),
			Score:    h.Score,
		})
	}
	return results
}
