package batch

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/oakmoss/graphrag/pkg/qa"
	"github.com/stretchr/testify/assert"
)

type fakeSession struct {
	sampleID string
	failQA   bool
}

func (s *fakeSession) Index(_ context.Context, _ []string) error { return nil }

func (s *fakeSession) Close() error { return nil }

func (s *fakeSession) RagQA(_ context.Context, queries []string) ([]qa.Result, error) {
	if s.failQA {
		return nil, errors.New("qa boom")
	}
	out := make([]qa.Result, len(queries))
	for i, q := range queries {
		out[i] = qa.Result{Question: q, Answer: s.sampleID + "-answer"}
	}
	return out, nil
}

func TestRunPreservesSampleOrderAndConcurrencyBound(t *testing.T) {
	var inFlight, maxInFlight int32
	samples := make([]Sample, 8)
	for i := range samples {
		samples[i] = Sample{ID: fmt.Sprintf("s%d", i), Queries: []string{"q"}}
	}

	factory := func(sampleID, _ string) (Session, error) {
		return &fakeSession{sampleID: sampleID}, nil
	}

	results := Run(context.Background(), samples, func(id string) string { return id }, func(sampleID, workDir string) (Session, error) {
		cur := atomic.AddInt32(&inFlight, 1)
		defer atomic.AddInt32(&inFlight, -1)
		for {
			m := atomic.LoadInt32(&maxInFlight)
			if cur <= m || atomic.CompareAndSwapInt32(&maxInFlight, m, cur) {
				break
			}
		}
		return factory(sampleID, workDir)
	}, 2)

	assert.LessOrEqual(t, int(maxInFlight), 2)
	assert.Len(t, results, 8)
	for i, r := range results {
		assert.Equal(t, samples[i].ID, r.SampleID)
		assert.NoError(t, r.Err)
		assert.Equal(t, samples[i].ID+"-answer", r.Answers[0].Answer)
	}
}

func TestRunIsolatesSampleFailures(t *testing.T) {
	samples := []Sample{{ID: "good", Queries: []string{"q"}}, {ID: "bad", Queries: []string{"q"}}}

	factory := func(sampleID, _ string) (Session, error) {
		return &fakeSession{sampleID: sampleID, failQA: sampleID == "bad"}, nil
	}

	results := Run(context.Background(), samples, func(id string) string { return id }, factory, 2)

	require := assert.New(t)
	require.Len(results, 2)
	require.NoError(results[0].Err)
	require.Error(results[1].Err)
	require.Equal("bad", results[1].SampleID)
}
