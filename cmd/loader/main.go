// Command loader ingests a JSONL contract dump into the vector index. Each
// line is one contract record; representations are generated with the
// document instruction and written in batches.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/atticus-search/atticus/internal/config"
	dbRedis "github.com/atticus-search/atticus/internal/db/redis"
	"github.com/atticus-search/atticus/internal/domain"
	"github.com/atticus-search/atticus/internal/domain/contract"
	"github.com/atticus-search/atticus/internal/domain/rep"
	logpkg "github.com/atticus-search/atticus/internal/logger"
	"github.com/atticus-search/atticus/internal/metrics"
	"github.com/atticus-search/atticus/internal/repository/embcache"
	indexrepo "github.com/atticus-search/atticus/internal/repository/index"
	openaiEmb "github.com/atticus-search/atticus/internal/transport/openai"
	collectionuc "github.com/atticus-search/atticus/internal/usecase/collection"
	representuc "github.com/atticus-search/atticus/internal/usecase/represent"
)

// record mirrors one JSONL line of the contract dump.
type record struct {
	ID                string `json:"id"`
	CaseName          string `json:"case_name"`
	Citation          string `json:"citation"`
	Court             string `json:"court"`
	CourtLevel        string `json:"court_level"`
	Jurisdiction      string `json:"jurisdiction"`
	DateFiled         string `json:"date_filed"`
	CaseType          string `json:"case_type"`
	Industry          string `json:"industry"`
	CompanySize       string `json:"company_size"`
	ContractStatus    string `json:"contract_status"`
	EstimatedValue    string `json:"estimated_value"`
	ComplexityLevel   string `json:"complexity_level"`
	RiskLevel         string `json:"risk_level"`
	RenewalTerms      string `json:"renewal_terms"`
	ContractStartDate string `json:"contract_start_date"`
	ContractEndDate   string `json:"contract_end_date"`
	Summary           string `json:"summary"`
	FullText          string `json:"full_text"`
	URL               string `json:"url"`
}

func (r *record) toContract() *contract.Contract {
	return &contract.Contract{
		ID:                r.ID,
		CaseName:          r.CaseName,
		Citation:          r.Citation,
		Court:             r.Court,
		CourtLevel:        r.CourtLevel,
		Jurisdiction:      r.Jurisdiction,
		DateFiled:         r.DateFiled,
		CaseType:          r.CaseType,
		Industry:          r.Industry,
		CompanySize:       r.CompanySize,
		ContractStatus:    r.ContractStatus,
		EstimatedValue:    r.EstimatedValue,
		ComplexityLevel:   r.ComplexityLevel,
		RiskLevel:         r.RiskLevel,
		RenewalTerms:      r.RenewalTerms,
		ContractStartDate: r.ContractStartDate,
		ContractEndDate:   r.ContractEndDate,
		Summary:           r.Summary,
		FullText:          r.FullText,
		URL:               r.URL,
	}
}

// embedText joins the fields the representations are built from.
func (r *record) embedText() string {
	return strings.TrimSpace(r.CaseName + " " + r.Summary + " " + r.FullText)
}

func main() {
	var (
		file      = flag.String("file", "", "path to the JSONL contract dump")
		batchSize = flag.Int("batch", 100, "documents per upsert batch")
		reset     = flag.Bool("reset", false, "drop and recreate the index before loading")
	)
	flag.Parse()

	if *file == "" {
		fmt.Fprintln(os.Stderr, "usage: loader -file contracts.jsonl [-batch 100] [-reset]")
		os.Exit(2)
	}

	env := config.GetEnv()
	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}

	metrics.RegisterEmbeddingMetrics()

	// Documents get the document instruction, unlike the API server.
	coarseCfg, ok := cfg.Embedding.Vectorizers[config.VectorizerCoarse]
	if !ok {
		logger.Fatal("Missing coarse vectorizer config")
	}
	coarseEmb := buildEmbedder(cfg, coarseCfg, config.VectorizerCoarse, coarseCfg.DocumentInstruction, store, logger)

	var fineEmb representuc.Embedder
	fineDim := 0
	if fineCfg, ok := cfg.Embedding.Vectorizers[config.VectorizerFine]; ok {
		fineEmb = buildEmbedder(cfg, fineCfg, config.VectorizerFine, fineCfg.DocumentInstruction, store, logger)
		fineDim = fineCfg.Dimensions
	}

	var chunkEmb representuc.BatchEmbedder
	chunkDim := 0
	if chunkCfg, ok := cfg.Embedding.Vectorizers[config.VectorizerChunk]; ok {
		chunkEmb = buildEmbedder(cfg, chunkCfg, config.VectorizerChunk, chunkCfg.DocumentInstruction, store, logger)
		chunkDim = chunkCfg.Dimensions
	}

	repo := indexrepo.New(store, indexrepo.Schema{
		DenseDim:        coarseCfg.Dimensions,
		FineDim:         fineDim,
		ChunkDim:        chunkDim,
		HNSWM:           cfg.Index.HNSWM,
		HNSWEFConstruct: cfg.Index.HNSWEFConstruct,
	}, logger)

	representSvc := representuc.New(coarseEmb, fineEmb, chunkEmb, representuc.Limits{
		MaxChars:   cfg.Representation.MaxChars,
		ChunkChars: cfg.Representation.ChunkChars,
		MaxChunks:  cfg.Representation.MaxChunks,
	}, logger)

	collectionSvc := collectionuc.New(repo, logger)
	if *reset {
		if err := collectionSvc.Reset(ctx); err != nil {
			logger.Fatal("Failed to reset index", zap.Error(err))
		}
	} else if err := collectionSvc.Ensure(ctx); err != nil {
		logger.Fatal("Failed to ensure index schema", zap.Error(err))
	}

	if err := load(ctx, *file, *batchSize, representSvc, repo, logger); err != nil {
		logger.Fatal("Load failed", zap.Error(err))
	}
}

func load(
	ctx context.Context,
	path string,
	batchSize int,
	reps *representuc.Service,
	repo *indexrepo.Repository,
	logger *zap.Logger,
) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open dump: %w", err)
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	// full_text can run to megabytes per line
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)

	var (
		contracts []*contract.Contract
		vectors   []*rep.Vectors
		line      int
		loaded    int
		skipped   int
	)

	flush := func() error {
		if len(contracts) == 0 {
			return nil
		}
		if err := repo.UpsertMulti(ctx, contracts, vectors); err != nil {
			return fmt.Errorf("upsert batch ending at line %d: %w", line, err)
		}
		loaded += len(contracts)
		logger.Info("Batch loaded", zap.Int("total", loaded))
		contracts = contracts[:0]
		vectors = vectors[:0]
		return nil
	}

	start := time.Now()
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}

		var rec record
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			logger.Warn("Skipping malformed line", zap.Int("line", line), zap.Error(err))
			skipped++
			continue
		}
		if rec.ID == "" || rec.embedText() == "" {
			logger.Warn("Skipping record without id or text", zap.Int("line", line))
			skipped++
			continue
		}

		v, err := reps.Document(ctx, rec.embedText())
		if err != nil {
			return fmt.Errorf("represent %q (line %d): %w", rec.ID, line, err)
		}

		contracts = append(contracts, rec.toContract())
		vectors = append(vectors, v)

		if len(contracts) >= batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read dump: %w", err)
	}
	if err := flush(); err != nil {
		return err
	}

	logger.Info("Load complete",
		zap.Int("loaded", loaded),
		zap.Int("skipped", skipped),
		zap.Duration("took", time.Since(start)),
	)
	return nil
}

// embedder is the full vectorization surface produced by the decorator chain.
type embedder interface {
	domain.Embedder
	domain.BatchEmbedder
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instruction
func buildEmbedder(
	cfg config.Config,
	vecCfg config.VectorizerConfig,
	scope string,
	instruction string,
	store *dbRedis.Store,
	logger *zap.Logger,
) embedder {
	provCfg := cfg.Embedding.Providers[vecCfg.Provider]

	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     provCfg.APIKey,
		BaseURL:    provCfg.BaseURL,
		Model:      vecCfg.Model,
		Dimensions: vecCfg.Dimensions,
		Provider:   vecCfg.Provider,
		Logger:     logger,
	})

	var e embedder = base
	if store != nil {
		e = embcache.New(base, store, scope, metrics.EmbeddingCacheTotal, logger)
	}

	if instruction != "" {
		return domain.NewInstructionEmbedder(e, instruction)
	}

	return e
}
