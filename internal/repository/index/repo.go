// Package index persists contracts with their vector representations in the
// Redis Query Engine and executes the coarse-to-fine retrieval funnel over
// them. The first funnel stage runs as a filtered KNN inside the index; the
// narrowing stages re-score the candidate set in-process from the stored
// vector blobs.
package index

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/atticus-search/atticus/internal/db"
	"github.com/atticus-search/atticus/internal/domain"
	"github.com/atticus-search/atticus/internal/domain/contract"
	"github.com/atticus-search/atticus/internal/domain/rep"
	"github.com/atticus-search/atticus/internal/domain/search/filter"
	"github.com/atticus-search/atticus/internal/domain/search/hit"
	"github.com/atticus-search/atticus/internal/domain/search/plan"
)

const (
	// IndexName is the FT index over contract hashes.
	IndexName = domain.KeyPrefix + "contracts:idx"
	docPrefix = domain.KeyPrefix + "contracts:"
)

// Schema holds the vector dimensions and HNSW build parameters for the
// contract index.
type Schema struct {
	DenseDim        int
	FineDim         int
	ChunkDim        int
	HNSWM           int
	HNSWEFConstruct int
}

// store is the consumer interface of the contract index repository (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Del(ctx context.Context, key string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
	Info(ctx context.Context, name string) (db.IndexInfo, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchList(ctx context.Context, index, query string, offset, limit int, fields []string) (*db.SearchResult, error)
}

// Repository is the contract index over a db.Store.
type Repository struct {
	store  store
	schema Schema
	logger *zap.Logger
}

// New creates a contract index repository.
func New(s store, schema Schema, logger *zap.Logger) *Repository {
	return &Repository{store: s, schema: schema, logger: logger}
}

// EnsureSchema creates the FT index when it does not exist yet.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	exists, err := r.store.IndexExists(ctx, IndexName)
	if err != nil {
		return r.mapErr(err)
	}
	if exists {
		return nil
	}

	def, err := r.indexDefinition()
	if err != nil {
		return fmt.Errorf("build index definition: %w", err)
	}
	if err := r.store.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return nil
		}
		return r.mapErr(err)
	}
	r.logger.Info("Created contract index", zap.String("index", IndexName))
	return nil
}

func (r *Repository) indexDefinition() (*db.IndexDefinition, error) {
	b := db.NewIndex(IndexName).Prefix(docPrefix)
	for _, f := range contract.CategoricalFields() {
		b.TagWithOpts(f, "", true)
	}
	b.Numeric(filter.DateField).
		VectorHNSW(fieldDenseCoarse, r.schema.DenseDim, db.DistanceCosine, r.schema.HNSWM, r.schema.HNSWEFConstruct).
		VectorFlatUint8(fieldByteCoarse, r.schema.DenseDim, db.DistanceL2)
	if r.schema.FineDim > 0 {
		b.VectorHNSW(fieldDenseFine, r.schema.FineDim, db.DistanceCosine, r.schema.HNSWM, r.schema.HNSWEFConstruct)
	}
	return b.Build()
}

// Upsert stores one contract with its vectors.
func (r *Repository) Upsert(ctx context.Context, c *contract.Contract, v *rep.Vectors) error {
	fields, err := r.docFields(c, v)
	if err != nil {
		return err
	}
	if err := r.store.HSet(ctx, docPrefix+c.ID, fields); err != nil {
		return r.mapErr(err)
	}
	return nil
}

// UpsertMulti stores a batch of contracts in one pipelined round-trip.
func (r *Repository) UpsertMulti(ctx context.Context, cs []*contract.Contract, vs []*rep.Vectors) error {
	if len(cs) != len(vs) {
		return fmt.Errorf("%w: %d contracts vs %d vector sets", domain.ErrValidation, len(cs), len(vs))
	}
	items := make([]db.HashSetItem, 0, len(cs))
	for i, c := range cs {
		fields, err := r.docFields(c, vs[i])
		if err != nil {
			return err
		}
		items = append(items, db.HashSetItem{Key: docPrefix + c.ID, Fields: fields})
	}
	if err := r.store.HSetMulti(ctx, items); err != nil {
		return r.mapErr(err)
	}
	return nil
}

func (r *Repository) docFields(c *contract.Contract, v *rep.Vectors) (map[string]string, error) {
	if c.ID == "" {
		return nil, fmt.Errorf("%w: contract id is required", domain.ErrValidation)
	}
	if err := v.Validate(); err != nil {
		return nil, err
	}
	if err := r.checkDims(v); err != nil {
		return nil, err
	}
	c.Normalize()
	return buildFields(c, v), nil
}

func (r *Repository) checkDims(v *rep.Vectors) error {
	if len(v.DenseCoarse) != r.schema.DenseDim {
		return fmt.Errorf("%w: dense vector dim %d, want %d", domain.ErrValidation, len(v.DenseCoarse), r.schema.DenseDim)
	}
	if len(v.DenseFine) > 0 && len(v.DenseFine) != r.schema.FineDim {
		return fmt.Errorf("%w: fine vector dim %d, want %d", domain.ErrValidation, len(v.DenseFine), r.schema.FineDim)
	}
	if len(v.ByteCoarse) > 0 && len(v.ByteCoarse) != r.schema.DenseDim {
		return fmt.Errorf("%w: byte vector dim %d, want %d", domain.ErrValidation, len(v.ByteCoarse), r.schema.DenseDim)
	}
	for _, chunk := range v.MultiFine {
		if len(chunk) != r.schema.ChunkDim {
			return fmt.Errorf("%w: chunk vector dim %d, want %d", domain.ErrValidation, len(chunk), r.schema.ChunkDim)
		}
	}
	return nil
}

// Delete removes one contract.
func (r *Repository) Delete(ctx context.Context, id string) error {
	if err := r.store.Del(ctx, docPrefix+id); err != nil {
		return r.mapErr(err)
	}
	return nil
}

// Retrieve loads one contract's metadata by id.
func (r *Repository) Retrieve(ctx context.Context, id string) (contract.Contract, error) {
	fields, err := r.store.HGetAll(ctx, docPrefix+id)
	if err != nil {
		return contract.Contract{}, r.mapErr(err)
	}
	if len(fields) == 0 {
		return contract.Contract{}, domain.ErrDocumentNotFound
	}
	return contract.FromPayload(id, fields), nil
}

// Scroll pages through indexed contracts without scoring. fields limits the
// returned payload (nil returns everything).
func (r *Repository) Scroll(ctx context.Context, offset, limit int, fields []string) ([]contract.Contract, int, error) {
	res, err := r.store.SearchList(ctx, IndexName, "*", offset, limit, fields)
	if err != nil {
		return nil, 0, r.mapErr(err)
	}
	out := make([]contract.Contract, 0, len(res.Entries))
	for _, e := range res.Entries {
		out = append(out, contract.FromPayload(docID(e.Key), e.Fields))
	}
	return out, res.Total, nil
}

// Info reports index statistics.
func (r *Repository) Info(ctx context.Context) (domain.IndexStats, error) {
	info, err := r.store.Info(ctx, IndexName)
	if err != nil {
		if errors.Is(err, db.ErrIndexNotFound) {
			return domain.IndexStats{}, nil
		}
		return domain.IndexStats{}, r.mapErr(err)
	}
	return domain.IndexStats{
		Documents:      info.NumDocs,
		Indexing:       info.Indexing,
		PercentIndexed: info.PercentIndexed,
	}, nil
}

// Reset drops the index and all contract documents, then recreates the
// schema empty.
func (r *Repository) Reset(ctx context.Context) error {
	if err := r.store.DropIndex(ctx, IndexName); err != nil && !errors.Is(err, db.ErrIndexNotFound) {
		return r.mapErr(err)
	}
	keys, err := r.store.Scan(ctx, docPrefix+"*")
	if err != nil {
		return r.mapErr(err)
	}
	for _, key := range keys {
		if err := r.store.Del(ctx, key); err != nil {
			return r.mapErr(err)
		}
	}
	return r.EnsureSchema(ctx)
}

// candidate is one document flowing through the funnel stages.
type candidate struct {
	id     string
	score  float64
	fields map[string]string
}

// QueryFunnel executes the staged retrieval plan: a filtered KNN prefetch
// inside the index followed by in-process re-scoring of the shrinking
// candidate set. Hits come back sorted by final-stage score, at most
// p.Limit of them, payloads stripped of internal fields.
func (r *Repository) QueryFunnel(ctx context.Context, b *rep.Bundle, p plan.Plan, filters filter.Expression) ([]hit.Hit, error) {
	if len(p.Stages) == 0 {
		return nil, fmt.Errorf("%w: empty stage plan", domain.ErrValidation)
	}

	candidates, err := r.prefetch(ctx, b, p.Stages[0], filters)
	if err != nil {
		return nil, err
	}

	for _, stage := range p.Stages[1:] {
		candidates = r.rescore(candidates, b, stage)
	}

	if len(candidates) > p.Limit {
		candidates = candidates[:p.Limit]
	}
	return r.assembleHits(ctx, candidates)
}

// QuerySingle runs a one-stage KNN search over the given representation.
// Used as the degraded path when the staged funnel fails.
func (r *Repository) QuerySingle(ctx context.Context, kind rep.Kind, b *rep.Bundle, filters filter.Expression, k int) ([]hit.Hit, error) {
	candidates, err := r.prefetch(ctx, b, plan.Stage{Kind: kind, Limit: k}, filters)
	if err != nil {
		return nil, err
	}
	return r.assembleHits(ctx, candidates)
}

// prefetch runs the first stage as a KNN query inside the index, returning
// candidates with the stored vector blobs needed for later re-scoring.
func (r *Repository) prefetch(ctx context.Context, b *rep.Bundle, stage plan.Stage, filters filter.Expression) ([]candidate, error) {
	field, ok := vectorFieldFor(stage.Kind)
	if !ok {
		return nil, fmt.Errorf("%w: %q cannot drive the prefetch stage", domain.ErrValidation, stage.Kind)
	}
	blob, err := queryBlob(b, stage.Kind)
	if err != nil {
		return nil, err
	}

	res, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    IndexName,
		VectorField:  field,
		Filters:      filters,
		Blob:         blob,
		K:            stage.Limit,
		ReturnFields: []string{fieldDenseCoarse, fieldDenseFine, fieldMultiFine, db.ScoreField},
	})
	if err != nil {
		return nil, r.mapErr(err)
	}

	candidates := make([]candidate, 0, len(res.Entries))
	for _, e := range res.Entries {
		score := distanceToSimilarity(e.Score)
		if stage.Kind == rep.ByteCoarse {
			// L2 distance over bytes orders the prefetch but is not a
			// similarity; later stages assign the real score.
			score = 0
		}
		candidates = append(candidates, candidate{
			id:     docID(e.Key),
			score:  score,
			fields: e.Fields,
		})
	}
	return candidates, nil
}

// rescore applies one narrowing stage in-process. Candidates lacking the
// stage's stored representation drop out of the funnel.
func (r *Repository) rescore(candidates []candidate, b *rep.Bundle, stage plan.Stage) []candidate {
	scored := make([]candidate, 0, len(candidates))
	for _, c := range candidates {
		score, ok := r.stageScore(c, b, stage.Kind)
		if !ok {
			continue
		}
		c.score = score
		scored = append(scored, c)
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].score > scored[j].score })
	if len(scored) > stage.Limit {
		scored = scored[:stage.Limit]
	}
	return scored
}

func (r *Repository) stageScore(c candidate, b *rep.Bundle, kind rep.Kind) (float64, bool) {
	switch kind {
	case rep.DenseCoarse:
		vec, err := decodeFloat32([]byte(c.fields[fieldDenseCoarse]))
		if err != nil || len(vec) == 0 {
			return 0, false
		}
		return cosineSimilarity(b.DenseCoarse, vec), true

	case rep.DenseFine:
		blob, ok := c.fields[fieldDenseFine]
		if !ok {
			return 0, false
		}
		vec, err := decodeFloat32([]byte(blob))
		if err != nil || len(vec) == 0 {
			return 0, false
		}
		return cosineSimilarity(b.DenseFine, vec), true

	case rep.MultiFine:
		blob, ok := c.fields[fieldMultiFine]
		if !ok {
			return 0, false
		}
		chunks, err := decodeChunks([]byte(blob), r.schema.ChunkDim)
		if err != nil || len(chunks) == 0 {
			return 0, false
		}
		return maxSim(b.MultiFine, chunks), true

	default:
		return 0, false
	}
}

// assembleHits loads the surviving candidates' payloads and strips the
// internal fields.
func (r *Repository) assembleHits(ctx context.Context, candidates []candidate) ([]hit.Hit, error) {
	if len(candidates) == 0 {
		return []hit.Hit{}, nil
	}

	keys := make([]string, len(candidates))
	for i, c := range candidates {
		keys[i] = docPrefix + c.id
	}
	payloads, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, r.mapErr(err)
	}

	hits := make([]hit.Hit, 0, len(candidates))
	for i, c := range candidates {
		hits = append(hits, hit.Hit{
			ID:      c.id,
			Score:   c.score,
			Payload: stripInternal(payloads[i]),
		})
	}
	return hits, nil
}

func queryBlob(b *rep.Bundle, kind rep.Kind) ([]byte, error) {
	switch kind {
	case rep.DenseCoarse:
		return encodeFloat32(b.DenseCoarse), nil
	case rep.DenseFine:
		return encodeFloat32(b.DenseFine), nil
	case rep.ByteCoarse:
		return b.ByteCoarse, nil
	default:
		return nil, fmt.Errorf("%w: no query blob for kind %q", domain.ErrValidation, kind)
	}
}

func stripInternal(fields map[string]string) map[string]string {
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		if strings.HasPrefix(k, "vec_") || k == filter.DateField {
			continue
		}
		out[k] = v
	}
	return out
}

func docID(key string) string {
	return strings.TrimPrefix(key, docPrefix)
}

// mapErr lifts connectivity-level store failures to the domain sentinel so
// the funnel can tell a hard index outage from a failed query.
func (r *Repository) mapErr(err error) error {
	if errors.Is(err, db.ErrUnavailable) {
		return fmt.Errorf("%w: %v", domain.ErrIndexUnavailable, err)
	}
	return err
}
