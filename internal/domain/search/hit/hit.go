// Package hit defines the raw index hit shared between the index repository
// and the retrieval funnel.
package hit

// Hit is a scored document as returned by the vector index, before payload
// assembly. Payload holds stored metadata fields with internal fields
// already stripped.
type Hit struct {
	ID      string
	Score   float64
	Payload map[string]string
}
