package health

import "context"

// IndexProber checks that the vector index answers.
type IndexProber interface {
	Probe(ctx context.Context) error
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}
