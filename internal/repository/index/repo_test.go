package index

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"go.uber.org/zap"

	"github.com/atticus-search/atticus/internal/db"
	"github.com/atticus-search/atticus/internal/domain"
	"github.com/atticus-search/atticus/internal/domain/contract"
	"github.com/atticus-search/atticus/internal/domain/rep"
	"github.com/atticus-search/atticus/internal/domain/search/filter"
	"github.com/atticus-search/atticus/internal/domain/search/plan"
)

// mockStore implements the repository's consumer interface with function
// fields, so each test overrides only what it needs.
type mockStore struct {
	hsetFn         func(ctx context.Context, key string, fields map[string]string) error
	hsetMultiFn    func(ctx context.Context, items []db.HashSetItem) error
	hgetAllFn      func(ctx context.Context, key string) (map[string]string, error)
	hgetAllMultiFn func(ctx context.Context, keys []string) ([]map[string]string, error)
	delFn          func(ctx context.Context, key string) error
	scanFn         func(ctx context.Context, pattern string) ([]string, error)
	createIndexFn  func(ctx context.Context, def *db.IndexDefinition) error
	dropIndexFn    func(ctx context.Context, name string) error
	indexExistsFn  func(ctx context.Context, name string) (bool, error)
	infoFn         func(ctx context.Context, name string) (db.IndexInfo, error)
	searchKNNFn    func(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	searchListFn   func(ctx context.Context, index, query string, offset, limit int, fields []string) (*db.SearchResult, error)
}

func (m *mockStore) HSet(ctx context.Context, key string, fields map[string]string) error {
	if m.hsetFn != nil {
		return m.hsetFn(ctx, key, fields)
	}
	return nil
}

func (m *mockStore) HSetMulti(ctx context.Context, items []db.HashSetItem) error {
	if m.hsetMultiFn != nil {
		return m.hsetMultiFn(ctx, items)
	}
	return nil
}

func (m *mockStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	if m.hgetAllFn != nil {
		return m.hgetAllFn(ctx, key)
	}
	return map[string]string{}, nil
}

func (m *mockStore) HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error) {
	if m.hgetAllMultiFn != nil {
		return m.hgetAllMultiFn(ctx, keys)
	}
	out := make([]map[string]string, len(keys))
	for i := range out {
		out[i] = map[string]string{}
	}
	return out, nil
}

func (m *mockStore) Del(ctx context.Context, key string) error {
	if m.delFn != nil {
		return m.delFn(ctx, key)
	}
	return nil
}

func (m *mockStore) Scan(ctx context.Context, pattern string) ([]string, error) {
	if m.scanFn != nil {
		return m.scanFn(ctx, pattern)
	}
	return nil, nil
}

func (m *mockStore) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	if m.createIndexFn != nil {
		return m.createIndexFn(ctx, def)
	}
	return nil
}

func (m *mockStore) DropIndex(ctx context.Context, name string) error {
	if m.dropIndexFn != nil {
		return m.dropIndexFn(ctx, name)
	}
	return nil
}

func (m *mockStore) IndexExists(ctx context.Context, name string) (bool, error) {
	if m.indexExistsFn != nil {
		return m.indexExistsFn(ctx, name)
	}
	return false, nil
}

func (m *mockStore) Info(ctx context.Context, name string) (db.IndexInfo, error) {
	if m.infoFn != nil {
		return m.infoFn(ctx, name)
	}
	return db.IndexInfo{}, nil
}

func (m *mockStore) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if m.searchKNNFn != nil {
		return m.searchKNNFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func (m *mockStore) SearchList(ctx context.Context, index, query string, offset, limit int, fields []string) (*db.SearchResult, error) {
	if m.searchListFn != nil {
		return m.searchListFn(ctx, index, query, offset, limit, fields)
	}
	return &db.SearchResult{}, nil
}

func testSchema() Schema {
	return Schema{DenseDim: 4, FineDim: 4, ChunkDim: 2, HNSWM: 16, HNSWEFConstruct: 200}
}

func newTestRepo(ms *mockStore) *Repository {
	return New(ms, testSchema(), zap.NewNop())
}

func testVectors() *rep.Vectors {
	return &rep.Vectors{
		DenseCoarse: []float32{1, 0, 0, 0},
		DenseFine:   []float32{0, 1, 0, 0},
		ByteCoarse:  []byte{10, 20, 30, 40},
		MultiFine:   [][]float32{{1, 0}, {0, 1}},
	}
}

// --- Schema ---

func TestEnsureSchema_CreatesWhenMissing(t *testing.T) {
	var created *db.IndexDefinition
	ms := &mockStore{
		indexExistsFn: func(_ context.Context, _ string) (bool, error) { return false, nil },
		createIndexFn: func(_ context.Context, def *db.IndexDefinition) error {
			created = def
			return nil
		},
	}

	if err := newTestRepo(ms).EnsureSchema(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created == nil {
		t.Fatal("expected CreateIndex to be called")
	}
	if created.Name != IndexName {
		t.Errorf("expected index name %q, got %q", IndexName, created.Name)
	}

	byName := make(map[string]db.IndexField, len(created.Fields))
	for _, f := range created.Fields {
		byName[f.Name] = f
	}

	for _, want := range []string{fieldDenseCoarse, fieldDenseFine, fieldByteCoarse} {
		f, ok := byName[want]
		if !ok {
			t.Fatalf("expected vector field %q in schema", want)
		}
		if f.Type != db.IndexFieldVector {
			t.Errorf("field %q: expected vector type, got %v", want, f.Type)
		}
	}
	if byName[fieldByteCoarse].VectorElemType != db.VectorUint8 {
		t.Errorf("byte field should use UINT8 elements, got %q", byName[fieldByteCoarse].VectorElemType)
	}
	if _, ok := byName[fieldMultiFine]; ok {
		t.Error("chunk blobs must not appear in the FT schema")
	}
	if _, ok := byName[filter.DateField]; !ok {
		t.Errorf("expected numeric field %q in schema", filter.DateField)
	}
	for _, f := range contract.CategoricalFields() {
		if _, ok := byName[f]; !ok {
			t.Errorf("expected tag field %q in schema", f)
		}
	}
}

func TestEnsureSchema_SkipsWhenExists(t *testing.T) {
	ms := &mockStore{
		indexExistsFn: func(_ context.Context, _ string) (bool, error) { return true, nil },
		createIndexFn: func(_ context.Context, _ *db.IndexDefinition) error {
			t.Fatal("CreateIndex must not be called when the index exists")
			return nil
		},
	}
	if err := newTestRepo(ms).EnsureSchema(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// --- Upsert ---

func TestUpsert_BuildsDocument(t *testing.T) {
	var gotKey string
	var gotFields map[string]string
	ms := &mockStore{
		hsetFn: func(_ context.Context, key string, fields map[string]string) error {
			gotKey = key
			gotFields = fields
			return nil
		},
	}

	c := &contract.Contract{
		ID:           "doc1",
		CaseName:     "Acme v. Globex",
		Jurisdiction: "  California  ",
		DateFiled:    "2023-05-15",
	}
	if err := newTestRepo(ms).Upsert(context.Background(), c, testVectors()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotKey != docPrefix+"doc1" {
		t.Errorf("expected key %q, got %q", docPrefix+"doc1", gotKey)
	}
	if len(gotFields[fieldDenseCoarse]) != 16 {
		t.Errorf("expected 16-byte dense blob, got %d bytes", len(gotFields[fieldDenseCoarse]))
	}
	if len(gotFields[fieldMultiFine]) != 16 {
		t.Errorf("expected 16-byte chunks blob, got %d bytes", len(gotFields[fieldMultiFine]))
	}
	if gotFields[contract.FieldJurisdiction] != "California" {
		t.Errorf("expected trimmed jurisdiction, got %q", gotFields[contract.FieldJurisdiction])
	}
	if gotFields[filter.DateField] == "" {
		t.Error("expected derived epoch field for the filing date")
	}
}

func TestUpsert_MissingDenseVector(t *testing.T) {
	err := newTestRepo(&mockStore{}).Upsert(context.Background(),
		&contract.Contract{ID: "doc1"}, &rep.Vectors{})
	if !errors.Is(err, domain.ErrMissingRepresentation) {
		t.Fatalf("expected ErrMissingRepresentation, got %v", err)
	}
}

func TestUpsert_DimMismatch(t *testing.T) {
	v := testVectors()
	v.DenseFine = []float32{1, 2} // schema wants 4
	err := newTestRepo(&mockStore{}).Upsert(context.Background(), &contract.Contract{ID: "doc1"}, v)
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestUpsertMulti_LengthMismatch(t *testing.T) {
	err := newTestRepo(&mockStore{}).UpsertMulti(context.Background(),
		[]*contract.Contract{{ID: "a"}, {ID: "b"}}, []*rep.Vectors{testVectors()})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestUpsertMulti_Pipelined(t *testing.T) {
	var gotItems []db.HashSetItem
	ms := &mockStore{
		hsetMultiFn: func(_ context.Context, items []db.HashSetItem) error {
			gotItems = items
			return nil
		},
	}
	cs := []*contract.Contract{{ID: "a"}, {ID: "b"}}
	vs := []*rep.Vectors{testVectors(), testVectors()}
	if err := newTestRepo(ms).UpsertMulti(context.Background(), cs, vs); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(gotItems) != 2 {
		t.Fatalf("expected 2 pipelined items, got %d", len(gotItems))
	}
	if gotItems[0].Key != docPrefix+"a" || gotItems[1].Key != docPrefix+"b" {
		t.Errorf("unexpected keys: %q, %q", gotItems[0].Key, gotItems[1].Key)
	}
}

// --- Retrieve ---

func TestRetrieve_StripsInternalFields(t *testing.T) {
	ms := &mockStore{
		hgetAllFn: func(_ context.Context, key string) (map[string]string, error) {
			if key != docPrefix+"doc1" {
				t.Errorf("unexpected key %q", key)
			}
			return map[string]string{
				contract.FieldCaseName: "Acme v. Globex",
				fieldDenseCoarse:       "blob",
				filter.DateField:       "1684108800",
			}, nil
		},
	}

	c, err := newTestRepo(ms).Retrieve(context.Background(), "doc1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.ID != "doc1" || c.CaseName != "Acme v. Globex" {
		t.Errorf("unexpected contract: %+v", c)
	}
	if len(c.Extra) != 0 {
		t.Errorf("internal fields must not surface in Extra: %v", c.Extra)
	}
}

func TestRetrieve_NotFound(t *testing.T) {
	ms := &mockStore{
		hgetAllFn: func(_ context.Context, _ string) (map[string]string, error) {
			return map[string]string{}, nil
		},
	}
	_, err := newTestRepo(ms).Retrieve(context.Background(), "missing")
	if !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
}

// --- Funnel ---

func prefetchEntries(entries ...db.SearchEntry) func(context.Context, *db.KNNQuery) (*db.SearchResult, error) {
	return func(_ context.Context, _ *db.KNNQuery) (*db.SearchResult, error) {
		return &db.SearchResult{Total: len(entries), Entries: entries}, nil
	}
}

func payloadsByKey(payloads map[string]map[string]string) func(context.Context, []string) ([]map[string]string, error) {
	return func(_ context.Context, keys []string) ([]map[string]string, error) {
		out := make([]map[string]string, len(keys))
		for i, k := range keys {
			out[i] = payloads[k]
		}
		return out, nil
	}
}

func TestQueryFunnel_SingleDenseStage(t *testing.T) {
	var gotQuery *db.KNNQuery
	ms := &mockStore{
		searchKNNFn: func(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
			gotQuery = q
			return &db.SearchResult{Total: 2, Entries: []db.SearchEntry{
				{Key: docPrefix + "a", Score: 0.1},
				{Key: docPrefix + "b", Score: 0.4},
			}}, nil
		},
		hgetAllMultiFn: payloadsByKey(map[string]map[string]string{
			docPrefix + "a": {contract.FieldCaseName: "A", fieldDenseCoarse: "blob"},
			docPrefix + "b": {contract.FieldCaseName: "B"},
		}),
	}

	b := &rep.Bundle{DenseCoarse: []float32{1, 0, 0, 0}}
	p := plan.Plan{Stages: []plan.Stage{{Kind: rep.DenseCoarse, Limit: 100}}, Limit: 10}

	hits, err := newTestRepo(ms).QueryFunnel(context.Background(), b, p, filter.Expression{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotQuery.VectorField != fieldDenseCoarse {
		t.Errorf("expected KNN over %q, got %q", fieldDenseCoarse, gotQuery.VectorField)
	}
	if gotQuery.K != 100 {
		t.Errorf("expected K=100, got %d", gotQuery.K)
	}
	// the RETURN list limits the reply, so the distance alias has to be
	// requested or every hit comes back with a zero distance
	scoreRequested := false
	for _, f := range gotQuery.ReturnFields {
		if f == db.ScoreField {
			scoreRequested = true
		}
	}
	if !scoreRequested {
		t.Errorf("expected %q among return fields %v", db.ScoreField, gotQuery.ReturnFields)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].ID != "a" || hits[1].ID != "b" {
		t.Errorf("expected prefixed keys stripped, got %q, %q", hits[0].ID, hits[1].ID)
	}
	// raw cosine distance 0.1 -> similarity 0.9
	if hits[0].Score < 0.89 || hits[0].Score > 0.91 {
		t.Errorf("expected similarity ~0.9, got %f", hits[0].Score)
	}
	if _, ok := hits[0].Payload[fieldDenseCoarse]; ok {
		t.Error("vector blobs must not leak into hit payloads")
	}
}

func TestQueryFunnel_FineRerankReorders(t *testing.T) {
	// Stage 1 returns a before b; the fine vectors reverse that order.
	aFine := string(encodeFloat32([]float32{0, 1, 0, 0}))
	bFine := string(encodeFloat32([]float32{1, 0, 0, 0}))

	ms := &mockStore{
		searchKNNFn: prefetchEntries(
			db.SearchEntry{Key: docPrefix + "a", Score: 0.1, Fields: map[string]string{fieldDenseFine: aFine}},
			db.SearchEntry{Key: docPrefix + "b", Score: 0.2, Fields: map[string]string{fieldDenseFine: bFine}},
		),
		hgetAllMultiFn: payloadsByKey(map[string]map[string]string{
			docPrefix + "a": {contract.FieldCaseName: "A"},
			docPrefix + "b": {contract.FieldCaseName: "B"},
		}),
	}

	b := &rep.Bundle{
		DenseCoarse: []float32{1, 0, 0, 0},
		DenseFine:   []float32{1, 0, 0, 0},
	}
	p := plan.Plan{
		Stages: []plan.Stage{
			{Kind: rep.DenseCoarse, Limit: 1000},
			{Kind: rep.DenseFine, Limit: 100},
		},
		Limit: 10,
	}

	hits, err := newTestRepo(ms).QueryFunnel(context.Background(), b, p, filter.Expression{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].ID != "b" {
		t.Errorf("expected fine rerank to promote b, got order %q, %q", hits[0].ID, hits[1].ID)
	}
	if hits[0].Score < 0.99 {
		t.Errorf("expected cosine ~1.0 for the top hit, got %f", hits[0].Score)
	}
}

func TestQueryFunnel_DropsCandidatesMissingStageVector(t *testing.T) {
	aFine := string(encodeFloat32([]float32{1, 0, 0, 0}))

	ms := &mockStore{
		searchKNNFn: prefetchEntries(
			db.SearchEntry{Key: docPrefix + "a", Score: 0.3, Fields: map[string]string{fieldDenseFine: aFine}},
			db.SearchEntry{Key: docPrefix + "b", Score: 0.1, Fields: map[string]string{}},
		),
		hgetAllMultiFn: payloadsByKey(map[string]map[string]string{
			docPrefix + "a": {},
		}),
	}

	b := &rep.Bundle{DenseCoarse: []float32{1, 0, 0, 0}, DenseFine: []float32{1, 0, 0, 0}}
	p := plan.Plan{
		Stages: []plan.Stage{
			{Kind: rep.DenseCoarse, Limit: 1000},
			{Kind: rep.DenseFine, Limit: 100},
		},
		Limit: 10,
	}

	hits, err := newTestRepo(ms).QueryFunnel(context.Background(), b, p, filter.Expression{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != 1 || hits[0].ID != "a" {
		t.Fatalf("expected only the candidate with a fine vector, got %+v", hits)
	}
}

func TestQueryFunnel_MultiFineFinalStage(t *testing.T) {
	// Doc a's chunks align with the query chunks, doc b's point away.
	aChunks := string(encodeChunks([][]float32{{1, 0}, {0, 1}}))
	bChunks := string(encodeChunks([][]float32{{-1, 0}, {0, -1}}))

	ms := &mockStore{
		searchKNNFn: prefetchEntries(
			db.SearchEntry{Key: docPrefix + "b", Score: 0.1, Fields: map[string]string{fieldMultiFine: bChunks}},
			db.SearchEntry{Key: docPrefix + "a", Score: 0.2, Fields: map[string]string{fieldMultiFine: aChunks}},
		),
		hgetAllMultiFn: payloadsByKey(map[string]map[string]string{
			docPrefix + "a": {},
			docPrefix + "b": {},
		}),
	}

	b := &rep.Bundle{
		DenseCoarse: []float32{1, 0, 0, 0},
		MultiFine:   [][]float32{{1, 0}, {0, 1}},
	}
	p := plan.Plan{
		Stages: []plan.Stage{
			{Kind: rep.DenseCoarse, Limit: 1000},
			{Kind: rep.MultiFine, Limit: 10},
		},
		Limit: 10,
	}

	hits, err := newTestRepo(ms).QueryFunnel(context.Background(), b, p, filter.Expression{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].ID != "a" {
		t.Errorf("expected the aligned chunk set first, got %q", hits[0].ID)
	}
	// sum over 2 query chunks of best-match cosine = 2.0
	if hits[0].Score < 1.99 {
		t.Errorf("expected maxSim ~2.0, got %f", hits[0].Score)
	}
}

func TestQueryFunnel_BytePrefetchKeepsOrderScoresLater(t *testing.T) {
	aDense := string(encodeFloat32([]float32{1, 0, 0, 0}))
	bDense := string(encodeFloat32([]float32{0, 1, 0, 0}))

	var gotQuery *db.KNNQuery
	ms := &mockStore{
		searchKNNFn: func(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
			gotQuery = q
			return &db.SearchResult{Total: 2, Entries: []db.SearchEntry{
				{Key: docPrefix + "b", Score: 12.0, Fields: map[string]string{fieldDenseCoarse: bDense}},
				{Key: docPrefix + "a", Score: 15.0, Fields: map[string]string{fieldDenseCoarse: aDense}},
			}}, nil
		},
		hgetAllMultiFn: payloadsByKey(map[string]map[string]string{
			docPrefix + "a": {},
			docPrefix + "b": {},
		}),
	}

	b := &rep.Bundle{
		DenseCoarse: []float32{1, 0, 0, 0},
		ByteCoarse:  []byte{255, 0, 0, 0},
	}
	p := plan.Plan{
		Stages: []plan.Stage{
			{Kind: rep.ByteCoarse, Limit: 1000},
			{Kind: rep.DenseCoarse, Limit: 10},
		},
		Limit: 10,
	}

	hits, err := newTestRepo(ms).QueryFunnel(context.Background(), b, p, filter.Expression{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotQuery.VectorField != fieldByteCoarse {
		t.Errorf("expected byte-field prefetch, got %q", gotQuery.VectorField)
	}
	if len(hits) != 2 || hits[0].ID != "a" {
		t.Fatalf("expected dense re-score to order hits, got %+v", hits)
	}
	// L2 distances must never surface as final scores
	if hits[0].Score < 0.99 || hits[1].Score > 0.01 {
		t.Errorf("expected cosine scores, got %f, %f", hits[0].Score, hits[1].Score)
	}
}

func TestQueryFunnel_TruncatesToPlanLimit(t *testing.T) {
	entries := make([]db.SearchEntry, 5)
	payloads := make(map[string]map[string]string, 5)
	for i := range entries {
		key := docPrefix + fmt.Sprintf("doc%d", i)
		entries[i] = db.SearchEntry{Key: key, Score: float64(i) * 0.1}
		payloads[key] = map[string]string{}
	}
	ms := &mockStore{
		searchKNNFn:    prefetchEntries(entries...),
		hgetAllMultiFn: payloadsByKey(payloads),
	}

	b := &rep.Bundle{DenseCoarse: []float32{1, 0, 0, 0}}
	p := plan.Plan{Stages: []plan.Stage{{Kind: rep.DenseCoarse, Limit: 1000}}, Limit: 2}

	hits, err := newTestRepo(ms).QueryFunnel(context.Background(), b, p, filter.Expression{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected limit-truncated hits, got %d", len(hits))
	}
}

func TestQueryFunnel_Unavailable(t *testing.T) {
	ms := &mockStore{
		searchKNNFn: func(_ context.Context, _ *db.KNNQuery) (*db.SearchResult, error) {
			return nil, &db.Error{Op: db.OpSearch, Err: fmt.Errorf("%w: dial tcp: connection refused", db.ErrUnavailable)}
		},
	}

	b := &rep.Bundle{DenseCoarse: []float32{1, 0, 0, 0}}
	p := plan.Plan{Stages: []plan.Stage{{Kind: rep.DenseCoarse, Limit: 100}}, Limit: 10}

	_, err := newTestRepo(ms).QueryFunnel(context.Background(), b, p, filter.Expression{})
	if !errors.Is(err, domain.ErrIndexUnavailable) {
		t.Fatalf("expected ErrIndexUnavailable, got %v", err)
	}
}

func TestQueryFunnel_EmptyPlan(t *testing.T) {
	_, err := newTestRepo(&mockStore{}).QueryFunnel(context.Background(),
		&rep.Bundle{DenseCoarse: []float32{1}}, plan.Plan{}, filter.Expression{})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestQuerySingle_DenseCoarse(t *testing.T) {
	var gotQuery *db.KNNQuery
	ms := &mockStore{
		searchKNNFn: func(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
			gotQuery = q
			return &db.SearchResult{Total: 1, Entries: []db.SearchEntry{
				{Key: docPrefix + "a", Score: 0.25},
			}}, nil
		},
		hgetAllMultiFn: payloadsByKey(map[string]map[string]string{
			docPrefix + "a": {contract.FieldCaseName: "A"},
		}),
	}

	b := &rep.Bundle{DenseCoarse: []float32{1, 0, 0, 0}}
	hits, err := newTestRepo(ms).QuerySingle(context.Background(), rep.DenseCoarse, b, filter.Expression{}, 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotQuery.K != 20 {
		t.Errorf("expected K=20, got %d", gotQuery.K)
	}
	if len(hits) != 1 || hits[0].Score < 0.74 || hits[0].Score > 0.76 {
		t.Fatalf("expected one hit with similarity 0.75, got %+v", hits)
	}
}

// --- Info / Reset / Scroll ---

func TestInfo_MapsIndexStats(t *testing.T) {
	ms := &mockStore{
		infoFn: func(_ context.Context, name string) (db.IndexInfo, error) {
			if name != IndexName {
				t.Errorf("unexpected index name %q", name)
			}
			return db.IndexInfo{NumDocs: 42, Indexing: true, PercentIndexed: 0.5}, nil
		},
	}
	stats, err := newTestRepo(ms).Info(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Documents != 42 || !stats.Indexing || stats.PercentIndexed != 0.5 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestInfo_MissingIndexIsEmpty(t *testing.T) {
	ms := &mockStore{
		infoFn: func(_ context.Context, _ string) (db.IndexInfo, error) {
			return db.IndexInfo{}, db.ErrIndexNotFound
		},
	}
	stats, err := newTestRepo(ms).Info(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats != (domain.IndexStats{}) {
		t.Errorf("expected zero stats, got %+v", stats)
	}
}

func TestReset_DropsDocsAndRecreates(t *testing.T) {
	var dropped bool
	var deleted []string
	var recreated bool
	ms := &mockStore{
		dropIndexFn: func(_ context.Context, _ string) error {
			dropped = true
			return nil
		},
		scanFn: func(_ context.Context, pattern string) ([]string, error) {
			if pattern != docPrefix+"*" {
				t.Errorf("unexpected scan pattern %q", pattern)
			}
			return []string{docPrefix + "a", docPrefix + "b"}, nil
		},
		delFn: func(_ context.Context, key string) error {
			deleted = append(deleted, key)
			return nil
		},
		indexExistsFn: func(_ context.Context, _ string) (bool, error) { return false, nil },
		createIndexFn: func(_ context.Context, _ *db.IndexDefinition) error {
			recreated = true
			return nil
		},
	}

	if err := newTestRepo(ms).Reset(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !dropped || !recreated {
		t.Errorf("expected drop and recreate, got dropped=%v recreated=%v", dropped, recreated)
	}
	if len(deleted) != 2 {
		t.Errorf("expected 2 deleted keys, got %v", deleted)
	}
}

func TestReset_ToleratesMissingIndex(t *testing.T) {
	ms := &mockStore{
		dropIndexFn: func(_ context.Context, _ string) error { return db.ErrIndexNotFound },
	}
	if err := newTestRepo(ms).Reset(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestScroll_ReturnsContracts(t *testing.T) {
	ms := &mockStore{
		searchListFn: func(_ context.Context, index, query string, offset, limit int, fields []string) (*db.SearchResult, error) {
			if index != IndexName || query != "*" {
				t.Errorf("unexpected list query: %q %q", index, query)
			}
			if offset != 10 || limit != 5 {
				t.Errorf("unexpected paging: offset=%d limit=%d", offset, limit)
			}
			return &db.SearchResult{Total: 100, Entries: []db.SearchEntry{
				{Key: docPrefix + "a", Fields: map[string]string{contract.FieldCaseName: "A"}},
			}}, nil
		},
	}

	cs, total, err := newTestRepo(ms).Scroll(context.Background(), 10, 5, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 100 || len(cs) != 1 || cs[0].ID != "a" || cs[0].CaseName != "A" {
		t.Errorf("unexpected scroll result: total=%d %+v", total, cs)
	}
}
