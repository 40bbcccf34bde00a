package graphrag

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/spf13/cobra"

	rag "github.com/oakmoss/graphrag"
	"github.com/oakmoss/graphrag/pkg/batch"
	"github.com/oakmoss/graphrag/pkg/qa"
)

var (
	batchSamplesFile string
	batchConcurrency int
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "index and answer many independent samples in parallel (spec §5)",
	RunE:  runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)
	batchCmd.Flags().StringVar(&batchSamplesFile, "samples", "", "path to a JSON file of {id, docs, queries, gold_docs, gold_answers} samples")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", batch.DefaultConcurrency, "maximum sessions running concurrently")
	batchCmd.MarkFlagRequired("samples")
}

type batchSample struct {
	ID          string     `json:"id"`
	Docs        []string   `json:"docs"`
	Queries     []string   `json:"queries"`
	GoldDocs    [][]string `json:"gold_docs"`
	GoldAnswers [][]string `json:"gold_answers"`
}

var sampleIDChars = regexp.MustCompile(`[^a-zA-Z0-9_.-]`)

// sessionAdapter narrows *rag.Session's richer RagQA (which also returns
// scores) to the batch.Session contract, which only needs answers: gold
// answers aren't threaded through per-sample here since the samples file
// already carries them for any offline scoring pass.
type sessionAdapter struct {
	*rag.Session
	topK int
}

func (a *sessionAdapter) RagQA(ctx context.Context, queries []string) ([]qa.Result, error) {
	results, _, err := a.Session.RagQA(ctx, queries, a.topK, nil)
	return results, err
}

func runBatch(cmd *cobra.Command, args []string) error {
	path, err := canonicalizeWithinCWD(batchSamplesFile)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read samples %s: %w", path, err)
	}

	var raw []batchSample
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse samples %s: %w", path, err)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	baseSaveDir := cfg.WorkDir.SaveDir

	samples := make([]batch.Sample, len(raw))
	for i, s := range raw {
		samples[i] = batch.Sample{ID: s.ID, Docs: s.Docs, Queries: s.Queries, GoldDocs: s.GoldDocs, GoldAnswers: s.GoldAnswers}
	}

	workDirFor := func(sampleID string) string {
		return filepath.Join(baseSaveDir, sampleIDChars.ReplaceAllString(sampleID, "_"))
	}

	factory := func(sampleID, workDir string) (batch.Session, error) {
		sampleCfg := *cfg
		sampleCfg.WorkDir.SaveDir = workDir
		session, err := newSession(&sampleCfg)
		if err != nil {
			return nil, err
		}
		return &sessionAdapter{Session: session, topK: cfg.Retrieval.QATopK}, nil
	}

	results := batch.Run(context.Background(), samples, workDirFor, factory, batchConcurrency)

	out := make([]struct {
		SampleID string      `json:"sample_id"`
		Answers  []qa.Result `json:"answers,omitempty"`
		Error    string      `json:"error,omitempty"`
	}, len(results))
	for i, r := range results {
		out[i].SampleID = r.SampleID
		out[i].Answers = r.Answers
		if r.Err != nil {
			out[i].Error = r.Err.Error()
		}
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
