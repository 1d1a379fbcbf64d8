// Package rep defines the four text representation kinds used by the
// coarse-to-fine retrieval funnel, the per-query Bundle and the
// per-document Vectors. Presence of an optional representation is a typed
// state (nil slice = absent), never a map-membership check.
package rep

import "github.com/atticus-search/atticus/internal/domain"

// Kind identifies a representation kind.
type Kind string

const (
	// ByteCoarse is the quantized byte projection of the dense-coarse vector,
	// used purely as the cheapest first-pass filter.
	ByteCoarse Kind = "byte_coarse"
	// DenseCoarse is the compact dense vector for coarse ranking. Required.
	DenseCoarse Kind = "dense_coarse"
	// DenseFine is the higher-fidelity dense vector for mid-stage reranking.
	DenseFine Kind = "dense_fine"
	// MultiFine is the set of per-chunk vectors for late-interaction scoring.
	MultiFine Kind = "multi_fine"
)

// Bundle holds the representations computed from one query text. It lives
// for the duration of a single request and is never persisted.
type Bundle struct {
	DenseCoarse []float32
	DenseFine   []float32
	MultiFine   [][]float32
	ByteCoarse  []byte
}

// Has reports whether the bundle carries the given representation kind.
func (b *Bundle) Has(k Kind) bool {
	switch k {
	case ByteCoarse:
		return len(b.ByteCoarse) > 0
	case DenseCoarse:
		return len(b.DenseCoarse) > 0
	case DenseFine:
		return len(b.DenseFine) > 0
	case MultiFine:
		return len(b.MultiFine) > 0
	default:
		return false
	}
}

// Validate enforces the searchability invariant: dense-coarse must be present.
func (b *Bundle) Validate() error {
	if len(b.DenseCoarse) == 0 {
		return domain.ErrMissingRepresentation
	}
	return nil
}

// Vectors holds the stored representations of one document. Dense-coarse is
// required for the document to be searchable; the rest are optional and the
// funnel degrades when they are absent.
type Vectors struct {
	DenseCoarse []float32
	DenseFine   []float32
	MultiFine   [][]float32
	ByteCoarse  []byte
}

// Validate enforces the searchability invariant: dense-coarse must be present.
func (v *Vectors) Validate() error {
	if len(v.DenseCoarse) == 0 {
		return domain.ErrMissingRepresentation
	}
	return nil
}
