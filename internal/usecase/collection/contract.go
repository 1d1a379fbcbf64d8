package collection

import (
	"context"

	"github.com/atticus-search/atticus/internal/domain"
)

// Repository defines the index lifecycle contract.
type Repository interface {
	EnsureSchema(ctx context.Context) error
	Reset(ctx context.Context) error
	Info(ctx context.Context) (domain.IndexStats, error)
}
