package represent

import (
	"context"

	"github.com/atticus-search/atticus/internal/domain"
)

// Embedder vectorizes a single text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// BatchEmbedder vectorizes the chunk set in one call.
type BatchEmbedder interface {
	BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error)
}
