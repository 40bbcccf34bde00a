package graphrag

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"

	"github.com/oakmoss/graphrag/pkg/alert"
	"github.com/oakmoss/graphrag/pkg/config"
	"github.com/oakmoss/graphrag/pkg/contentid"
	"github.com/oakmoss/graphrag/pkg/embedder"
	"github.com/oakmoss/graphrag/pkg/graph"
	"github.com/oakmoss/graphrag/pkg/indexer"
	"github.com/oakmoss/graphrag/pkg/llmclient"
	"github.com/oakmoss/graphrag/pkg/openie"
	"github.com/oakmoss/graphrag/pkg/qa"
	"github.com/oakmoss/graphrag/pkg/rerank"
	"github.com/oakmoss/graphrag/pkg/retriever"
	"github.com/oakmoss/graphrag/pkg/telemetry"
	"github.com/oakmoss/graphrag/pkg/vectorstore"
)

const (
	chunkFile  = "vdb_chunk.json"
	entityFile = "vdb_entity.json"
	factFile   = "vdb_fact.json"
	graphFile  = "graph.json"
)

// Session binds one working directory's stores, graph, and OpenIE
// cache to the indexer/retriever/qa pipeline (spec §5). Two Sessions
// backed by the same (llm, embedding) pair and save_dir share a working
// directory; construct at most one at a time per directory.
type Session struct {
	cfg     *config.Config
	workDir string

	llmClient   llmclient.Client
	embedClient embedder.Client

	chunkStore  *vectorstore.Store
	entityStore *vectorstore.Store
	factStore   *vectorstore.Store
	graph       *graph.Graph
	openie      *openie.Store

	indexer   *indexer.Indexer
	retriever *retriever.Retriever
	qa        *qa.Answerer
	telemetry *telemetry.Handler
}

// New builds a Session for the working directory
// {save_dir}/{llm_label}_{embedding_label} (spec §5), opening (or
// force-recreating) its stores, graph, and OpenIE cache. dataset
// selects the QA chat template ("rag_qa_<dataset>", falling back to
// rag_qa_musique).
func New(cfg *config.Config, dataset string) (*Session, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	llmLabel := sanitizeLabel(cfg.LLM.Model)
	embLabel := sanitizeLabel(cfg.Embedding.Model)
	workDir := filepath.Join(cfg.WorkDir.SaveDir, llmLabel+"_"+embLabel)
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, fmt.Errorf("graphrag: create work dir %s: %w", workDir, err)
	}

	if cfg.Retrieval.ForceIndexFromScratch {
		removeAll(workDir, chunkFile, entityFile, factFile, graphFile)
	}
	if cfg.Retrieval.ForceOpenIEFromScratch {
		removeAll(workDir, openieFileName(llmLabel))
	}

	var alerter alert.Alerter = &alert.NoOpAlerter{}
	if cfg.Alert.Enabled {
		alerter = alert.NewEmailAlerter(cfg.Alert)
	}

	embedClient, err := buildEmbedder(cfg)
	if err != nil {
		return nil, err
	}
	llmClient, err := buildLLMClient(cfg, "default", alerter)
	if err != nil {
		return nil, err
	}
	openieClient, err := buildLLMClient(cfg, "openie", alerter)
	if err != nil {
		return nil, err
	}
	rerankClient, err := buildLLMClient(cfg, "rerank", alerter)
	if err != nil {
		return nil, err
	}

	chunkStore, err := vectorstore.Open(filepath.Join(workDir, chunkFile), contentid.ChunkPrefix, embedClient)
	if err != nil {
		return nil, fmt.Errorf("graphrag: open chunk store: %w", err)
	}
	entityStore, err := vectorstore.Open(filepath.Join(workDir, entityFile), contentid.EntityPrefix, embedClient)
	if err != nil {
		return nil, fmt.Errorf("graphrag: open entity store: %w", err)
	}
	factStore, err := vectorstore.Open(filepath.Join(workDir, factFile), contentid.FactPrefix, embedClient)
	if err != nil {
		return nil, fmt.Errorf("graphrag: open fact store: %w", err)
	}

	graphPath := filepath.Join(workDir, graphFile)
	g, err := graph.Load(graphPath)
	if err != nil {
		return nil, fmt.Errorf("graphrag: load graph: %w", err)
	}

	openieStore, err := openie.Open(filepath.Join(workDir, openieFileName(llmLabel)))
	if err != nil {
		return nil, fmt.Errorf("graphrag: open openie cache: %w", err)
	}

	idx := indexer.New(chunkStore, entityStore, factStore, g, graphPath, openieStore, openie.NewReferenceExtractor(openieClient), indexer.Config{
		OpenIEMode:               cfg.Retrieval.OpenIEMode,
		SynonymyEdgeTopK:         cfg.Retrieval.SynonymyEdgeTopK,
		SynonymyEdgeSimThreshold: cfg.Retrieval.SynonymyEdgeSimThreshold,
	})

	demos, err := rerank.LoadDemos(cfg.Retrieval.RerankDemosPath)
	if err != nil {
		return nil, fmt.Errorf("graphrag: load rerank demos: %w", err)
	}

	var telemetryHandler *telemetry.Handler
	if cfg.Telemetry.Enabled {
		telemetryHandler, err = telemetry.NewHandler(slog.Default().Handler(), filepath.Join(workDir, "telemetry"), cfg.Telemetry.BatchSize)
		if err != nil {
			return nil, fmt.Errorf("graphrag: build telemetry handler: %w", err)
		}
		slog.SetDefault(slog.New(telemetryHandler))
	}

	retr := retriever.New(chunkStore, entityStore, factStore, g, openieStore, embedClient, rerank.New(rerankClient, demos), retriever.Config{
		Damping:           cfg.Retrieval.Damping,
		LinkingTopK:       cfg.Retrieval.LinkingTopK,
		PassageNodeWeight: cfg.Retrieval.PassageNodeWeight,
	})

	answerer := qa.New(llmClient, nil, dataset, cfg.Retrieval.QATopK)

	return &Session{
		cfg:         cfg,
		workDir:     workDir,
		llmClient:   llmClient,
		embedClient: embedClient,
		chunkStore:  chunkStore,
		entityStore: entityStore,
		factStore:   factStore,
		graph:       g,
		openie:      openieStore,
		indexer:     idx,
		retriever:   retr,
		qa:          answerer,
		telemetry:   telemetryHandler,
	}, nil
}

// WorkDir returns the session's on-disk working directory.
func (s *Session) WorkDir() string { return s.workDir }

// Index runs the incremental index procedure over docs (spec §4.6).
func (s *Session) Index(ctx context.Context, docs []string) error {
	return s.indexer.Index(ctx, docs)
}

// PreOpenIE runs OpenIE extraction only, for offline_mode's separate
// extraction pass (spec §5).
func (s *Session) PreOpenIE(ctx context.Context, docs []string) error {
	return s.indexer.PreOpenIE(ctx, docs)
}

// Delete removes docs and cascades to entities/facts no surviving chunk
// still references (spec §4.6).
func (s *Session) Delete(_ context.Context, docs []string) error {
	return s.indexer.Delete(docs)
}

// Retrieve runs the graph-aware hybrid retrieval path (spec §4.7).
func (s *Session) Retrieve(ctx context.Context, queries []string, k int) ([]retriever.QuerySolution, error) {
	return s.retriever.Retrieve(ctx, queries, k)
}

// RagQA retrieves then answers queries (spec §4.8), scoring against
// goldAnswers when provided.
func (s *Session) RagQA(ctx context.Context, queries []string, k int, goldAnswers [][]string) ([]qa.Result, []qa.Score, error) {
	solutions, err := s.retriever.Retrieve(ctx, queries, k)
	if err != nil {
		return nil, nil, fmt.Errorf("graphrag: retrieve: %w", err)
	}

	results := s.qa.Answer(ctx, solutions)

	var scores []qa.Score
	if goldAnswers != nil {
		scores = qa.Evaluate(results, goldAnswers)
	}
	return results, scores, nil
}

// Close releases the session's LLM and embedding client connections.
func (s *Session) Close() error {
	var flushErr error
	if s.telemetry != nil {
		flushErr = s.telemetry.Flush()
	}
	llmErr := s.llmClient.Close()
	embErr := s.embedClient.Close()
	if llmErr != nil {
		return llmErr
	}
	if embErr != nil {
		return embErr
	}
	return flushErr
}

func buildEmbedder(cfg *config.Config) (embedder.Client, error) {
	embCfg := &embedder.Config{
		APIKey:     cfg.Embedding.APIKey,
		Model:      cfg.Embedding.Model,
		BaseURL:    cfg.Embedding.BaseURL,
		Dimensions: cfg.Embedding.Dimensions,
		BatchSize:  cfg.Embedding.BatchSize,
	}

	var base embedder.Client
	var err error
	if cfg.Embedding.Provider == "embed_everything" {
		base, err = embedder.NewEmbedEverythingClient(embCfg)
	} else {
		base, err = embedder.NewOpenAIEmbedder(embCfg)
	}
	if err != nil {
		return nil, fmt.Errorf("graphrag: build embedder: %w", err)
	}
	return embedder.NewRetryClient(base, nil), nil
}

// buildLLMClient builds a retrying, circuit-broken chat client for
// role, applying any per-role override from cfg.LLM.Roles over the base
// LLMConfig. This is how a single provider account fields the distinct
// rerank/openie/qa call sites with independently tunable models.
func buildLLMClient(cfg *config.Config, role string, alerter alert.Alerter) (llmclient.Client, error) {
	llmCfg := &llmclient.Config{
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		BaseURL:     cfg.LLM.BaseURL,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		MaxRetries:  cfg.LLM.MaxRetries,
	}
	if override, ok := cfg.LLM.Roles[role]; ok {
		if override.Model != "" {
			llmCfg.Model = override.Model
		}
		if override.Temperature != 0 {
			llmCfg.Temperature = override.Temperature
		}
		if override.MaxTokens != 0 {
			llmCfg.MaxTokens = override.MaxTokens
		}
	}

	var base llmclient.Client
	var err error
	if cfg.LLM.Provider == "azure_openai" {
		base, err = llmclient.NewAzureOpenAIClient(llmCfg)
	} else {
		base, err = llmclient.NewOpenAIClient(llmCfg)
	}
	if err != nil {
		return nil, fmt.Errorf("graphrag: build %s llm client: %w", role, err)
	}

	retried := llmclient.NewRetryClient(base, nil)
	return llmclient.NewCircuitBreakerClient(retried, cfg.CircuitBreaker, alerter, "graphrag-"+role), nil
}

var unsafeLabelChars = regexp.MustCompile(`[^a-zA-Z0-9_.-]`)

// sanitizeLabel converts a model name into a filesystem-safe path
// segment for the working directory name (spec §5).
func sanitizeLabel(model string) string {
	if model == "" {
		return "default"
	}
	return unsafeLabelChars.ReplaceAllString(model, "_")
}

func openieFileName(llmLabel string) string {
	return fmt.Sprintf("openie_results_ner_%s.json", llmLabel)
}

func removeAll(dir string, names ...string) {
	for _, name := range names {
		_ = os.Remove(filepath.Join(dir, name))
	}
}
