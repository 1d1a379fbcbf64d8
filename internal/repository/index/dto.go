package index

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/atticus-search/atticus/internal/domain/contract"
	"github.com/atticus-search/atticus/internal/domain/rep"
	"github.com/atticus-search/atticus/internal/domain/search/filter"
)

// Hash field names for the stored representations.
const (
	fieldDenseCoarse = "vec_dense"
	fieldDenseFine   = "vec_fine"
	fieldByteCoarse  = "vec_byte"
	fieldMultiFine   = "vec_chunks"
)

// vectorFieldFor maps a representation kind to its indexed hash field.
// Multi-vector chunks are stored but never KNN-queried, so they have no
// entry here.
func vectorFieldFor(kind rep.Kind) (string, bool) {
	switch kind {
	case rep.DenseCoarse:
		return fieldDenseCoarse, true
	case rep.DenseFine:
		return fieldDenseFine, true
	case rep.ByteCoarse:
		return fieldByteCoarse, true
	default:
		return "", false
	}
}

// --- Blob codecs (little-endian float32, matching FT.SEARCH PARAMS) ---

func encodeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeFloat32(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("invalid vector blob: len=%d (not multiple of 4)", len(data))
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec, nil
}

// encodeChunks flattens per-chunk vectors into one blob; all chunks share
// the same dimension.
func encodeChunks(chunks [][]float32) []byte {
	if len(chunks) == 0 {
		return nil
	}
	buf := make([]byte, 0, len(chunks)*len(chunks[0])*4)
	for _, c := range chunks {
		buf = append(buf, encodeFloat32(c)...)
	}
	return buf
}

func decodeChunks(data []byte, dim int) ([][]float32, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("invalid chunk dim %d", dim)
	}
	flat, err := decodeFloat32(data)
	if err != nil {
		return nil, err
	}
	if len(flat)%dim != 0 {
		return nil, fmt.Errorf("invalid chunks blob: %d floats not divisible by dim %d", len(flat), dim)
	}
	chunks := make([][]float32, 0, len(flat)/dim)
	for i := 0; i < len(flat); i += dim {
		chunks = append(chunks, flat[i:i+dim])
	}
	return chunks, nil
}

// --- Payload mapping ---

// buildFields flattens a contract and its vectors into hash fields. The
// filing date additionally lands as epoch seconds under the numeric filter
// field when it parses.
func buildFields(c *contract.Contract, v *rep.Vectors) map[string]string {
	fields := c.Payload()

	fields[fieldDenseCoarse] = string(encodeFloat32(v.DenseCoarse))
	if len(v.DenseFine) > 0 {
		fields[fieldDenseFine] = string(encodeFloat32(v.DenseFine))
	}
	if len(v.ByteCoarse) > 0 {
		fields[fieldByteCoarse] = string(v.ByteCoarse)
	}
	if len(v.MultiFine) > 0 {
		fields[fieldMultiFine] = string(encodeChunks(v.MultiFine))
	}

	if ts, ok := parseFilingDate(c.DateFiled); ok {
		fields[filter.DateField] = strconv.FormatInt(ts, 10)
	}

	return fields
}

func parseFilingDate(date string) (int64, bool) {
	if date == "" {
		return 0, false
	}
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return 0, false
	}
	return t.Unix(), true
}

// --- Scoring ---

// cosineSimilarity returns the cosine of the angle between a and b, or 0
// when either vector is degenerate.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// maxSim scores a document's chunk set against the query's chunk set: for
// each query chunk take the best-matching document chunk, then sum. This is
// the late-interaction relevance used by the final funnel stage.
func maxSim(query, doc [][]float32) float64 {
	if len(query) == 0 || len(doc) == 0 {
		return 0
	}
	var total float64
	for _, q := range query {
		best := math.Inf(-1)
		for _, d := range doc {
			if s := cosineSimilarity(q, d); s > best {
				best = s
			}
		}
		total += best
	}
	return total
}

// distanceToSimilarity converts the raw cosine distance reported by the
// index into a similarity clamped to [0,1].
func distanceToSimilarity(dist float64) float64 {
	return math.Max(0, 1-dist)
}
