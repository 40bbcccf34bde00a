package batch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/oakmoss/graphrag/pkg/qa"
)

// DefaultConcurrency bounds how many samples run at once when the
// caller does not specify one.
const DefaultConcurrency = 4

// Sample is one unit of batch work: a set of documents to index and
// queries to answer against them, plus optional gold data for
// evaluation.
type Sample struct {
	ID          string
	Docs        []string
	Queries     []string
	GoldDocs    [][]string
	GoldAnswers [][]string
}

// Session is the subset of the graphrag façade the batch driver needs:
// index the sample's documents, then answer its queries. Each Sample
// gets its own Session bound to its own working directory, so sessions
// never share on-disk state.
type Session interface {
	Index(ctx context.Context, docs []string) error
	RagQA(ctx context.Context, queries []string) ([]qa.Result, error)
	Close() error
}

// SessionFactory builds a Session rooted at workDir, one per sample.
type SessionFactory func(sampleID, workDir string) (Session, error)

// Result is one sample's outcome: either a completed answer set or an
// error that aborted it. A sample's failure never aborts the batch.
type Result struct {
	SampleID string
	Answers  []qa.Result
	Err      error
}

// Run indexes and answers every sample concurrently, bounded by
// concurrency (DefaultConcurrency if <= 0), and returns results in the
// same order as samples regardless of completion order.
func Run(ctx context.Context, samples []Sample, workDirFor func(sampleID string) string, factory SessionFactory, concurrency int) []Result {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	log := slog.Default().With("component", "batch")

	results := make([]Result, len(samples))
	semaphore := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i, sample := range samples {
		wg.Add(1)
		go func(i int, sample Sample) {
			defer wg.Done()

			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			answers, err := runSample(ctx, sample, workDirFor(sample.ID), factory)
			if err != nil {
				log.Error("batch: sample failed", "sample_id", sample.ID, "error", err)
			}
			results[i] = Result{SampleID: sample.ID, Answers: answers, Err: err}
		}(i, sample)
	}

	wg.Wait()
	return results
}

func runSample(ctx context.Context, sample Sample, workDir string, factory SessionFactory) ([]qa.Result, error) {
	session, err := factory(sample.ID, workDir)
	if err != nil {
		return nil, fmt.Errorf("batch: build session for sample %s: %w", sample.ID, err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			slog.Default().With("component", "batch").Warn("close session", "sample_id", sample.ID, "error", err)
		}
	}()

	if len(sample.Docs) > 0 {
		if err := session.Index(ctx, sample.Docs); err != nil {
			return nil, fmt.Errorf("batch: index sample %s: %w", sample.ID, err)
		}
	}

	answers, err := session.RagQA(ctx, sample.Queries)
	if err != nil {
		return nil, fmt.Errorf("batch: answer sample %s: %w", sample.ID, err)
	}
	return answers, nil
}
