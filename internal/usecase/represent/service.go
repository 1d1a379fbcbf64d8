// Package represent turns free text into the four retrieval representations:
// a dense coarse vector, an optional dense fine vector, optional per-chunk
// vectors for late interaction, and a byte-quantized copy of the coarse
// vector for cheap prefetch.
package represent

import (
	"context"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/atticus-search/atticus/internal/domain/rep"
)

// Limits bounds text preparation. Zero values fall back to the defaults.
type Limits struct {
	MaxChars   int // truncation budget for the embedded text
	ChunkChars int // per-chunk character budget
	MaxChunks  int
}

const (
	defaultMaxChars   = 2000
	defaultChunkChars = 200
	defaultMaxChunks  = 8
)

func (l Limits) withDefaults() Limits {
	if l.MaxChars <= 0 {
		l.MaxChars = defaultMaxChars
	}
	if l.ChunkChars <= 0 {
		l.ChunkChars = defaultChunkChars
	}
	if l.MaxChunks <= 0 {
		l.MaxChunks = defaultMaxChunks
	}
	return l
}

// Service generates representation bundles. The fine and chunk embedders are
// optional; a nil embedder leaves that representation absent and the funnel
// plans around it.
type Service struct {
	coarse Embedder
	fine   Embedder
	chunk  BatchEmbedder
	limits Limits
	logger *zap.Logger
}

// New creates a representation service. coarse is required; fine and chunk
// may be nil.
func New(coarse, fine Embedder, chunk BatchEmbedder, limits Limits, logger *zap.Logger) *Service {
	return &Service{
		coarse: coarse,
		fine:   fine,
		chunk:  chunk,
		limits: limits.withDefaults(),
		logger: logger,
	}
}

// Query builds the representation bundle for one search query. Any embedding
// failure fails the whole bundle; a partially built bundle never leaves this
// method.
func (s *Service) Query(ctx context.Context, text string) (*rep.Bundle, error) {
	v, err := s.generate(ctx, text)
	if err != nil {
		return nil, err
	}
	b := rep.Bundle(v)
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return &b, nil
}

// Document builds the stored vectors for one contract text. Same pipeline as
// Query so query and document representations stay comparable.
func (s *Service) Document(ctx context.Context, text string) (*rep.Vectors, error) {
	v, err := s.generate(ctx, text)
	if err != nil {
		return nil, err
	}
	if err := v.Validate(); err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *Service) generate(ctx context.Context, text string) (rep.Vectors, error) {
	var out rep.Vectors
	prepared := Prepare(text, s.limits.MaxChars)

	coarseRes, err := s.coarse.Embed(ctx, prepared)
	if err != nil {
		return rep.Vectors{}, fmt.Errorf("coarse embed: %w", err)
	}
	out.DenseCoarse = coarseRes.Embedding
	out.ByteCoarse = QuantizeBytes(coarseRes.Embedding)

	if s.fine != nil {
		fineRes, err := s.fine.Embed(ctx, prepared)
		if err != nil {
			return rep.Vectors{}, fmt.Errorf("fine embed: %w", err)
		}
		out.DenseFine = fineRes.Embedding
	}

	if s.chunk != nil {
		chunks := Chunk(prepared, s.limits.ChunkChars, s.limits.MaxChunks)
		if len(chunks) > 0 {
			chunkRes, err := s.chunk.BatchEmbed(ctx, chunks)
			if err != nil {
				return rep.Vectors{}, fmt.Errorf("chunk embed: %w", err)
			}
			out.MultiFine = chunkRes.Embeddings
		}
	}

	s.logger.Debug("Generated representations",
		zap.Int("dense_dim", len(out.DenseCoarse)),
		zap.Int("fine_dim", len(out.DenseFine)),
		zap.Int("chunks", len(out.MultiFine)))

	return out, nil
}

// Prepare collapses whitespace runs to single spaces and truncates to
// maxChars runes, appending an ellipsis when anything was cut.
func Prepare(text string, maxChars int) string {
	normalized := strings.Join(strings.Fields(text), " ")
	runes := []rune(normalized)
	if maxChars <= 0 || len(runes) <= maxChars {
		return normalized
	}
	return string(runes[:maxChars]) + "..."
}

// Chunk splits prepared text into word-bounded chunks of at most chunkChars
// characters each, keeping at most maxChunks of them. Never returns an empty
// chunk; a single overlong word becomes its own chunk.
func Chunk(text string, chunkChars, maxChunks int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var chunks []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			chunks = append(chunks, cur.String())
			cur.Reset()
		}
	}

	for _, w := range words {
		if len(chunks) == maxChunks {
			break
		}
		need := len(w)
		if cur.Len() > 0 {
			need += cur.Len() + 1
		}
		if need > chunkChars && cur.Len() > 0 {
			flush()
			if len(chunks) == maxChunks {
				break
			}
		}
		if cur.Len() > 0 {
			cur.WriteByte(' ')
		}
		cur.WriteString(w)
	}
	if len(chunks) < maxChunks {
		flush()
	}
	return chunks
}

// QuantizeBytes min-max quantizes a float vector to one byte per component.
// A constant vector (max == min) quantizes to all zeros.
func QuantizeBytes(v []float32) []byte {
	if len(v) == 0 {
		return nil
	}

	minV, maxV := v[0], v[0]
	for _, f := range v[1:] {
		if f < minV {
			minV = f
		}
		if f > maxV {
			maxV = f
		}
	}

	out := make([]byte, len(v))
	if maxV == minV {
		return out
	}

	scale := 255 / float64(maxV-minV)
	for i, f := range v {
		out[i] = byte(math.Round(float64(f-minV) * scale))
	}
	return out
}
