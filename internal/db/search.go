package db

import "github.com/atticus-search/atticus/internal/domain/search/filter"

// ScoreField is the alias under which SearchKNN yields the raw vector
// distance. The KNN clause binds the distance to this name explicitly, so
// it is stable regardless of which vector field is queried. Callers using
// ReturnFields must include it, or the index omits the distance from the
// reply.
const ScoreField = "__vector_score"

// KNNQuery is the input for vector similarity search against one named
// vector field. Blob carries the query vector already encoded for the
// field's storage type.
type KNNQuery struct {
	IndexName    string
	VectorField  string
	Filters      filter.Expression
	Blob         []byte
	K            int
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search. Score is the raw
// vector distance as reported by the index; callers convert it to a
// similarity appropriate for the field's metric.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}
