package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates the service answers but a non-critical dependency
	// is failing.
	Degraded Status = "degraded"
	// Unhealthy indicates the vector index is unreachable; search cannot work.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	index     IndexProber
	embedding EmbeddingChecker
}

// New creates a Service. embedding can be nil.
func New(index IndexProber, embedding EmbeddingChecker) *Service {
	return &Service{index: index, embedding: embedding}
}

// Check runs health checks against all components. An unreachable index is
// fatal; an embedding failure only degrades, searches still run against
// cached embeddings.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)
	status := Healthy

	if err := s.index.Probe(ctx); err != nil {
		checks["index"] = CheckError
		status = Unhealthy
	} else {
		checks["index"] = CheckOK
	}

	if s.embedding != nil {
		if err := s.embedding.HealthCheck(ctx); err != nil {
			checks["embedding"] = CheckError
			if status == Healthy {
				status = Degraded
			}
		} else {
			checks["embedding"] = CheckOK
		}
	}

	return Report{Status: status, Checks: checks}
}
