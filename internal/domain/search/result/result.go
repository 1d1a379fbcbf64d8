// Package result defines the assembled search result returned to callers.
package result

import "github.com/atticus-search/atticus/internal/domain/contract"

// Result is a single search hit with its contract metadata attached.
type Result struct {
	Contract contract.Contract
	Score    float64
}
