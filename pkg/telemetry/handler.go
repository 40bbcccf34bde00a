package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Record is one retrieval timing entry, extracted from the "retrieve"
// log emitted by pkg/retriever (spec §4.7).
type Record struct {
	ID              string `json:"id"`
	Timestamp       string `json:"timestamp"`
	Query           string `json:"query"`
	UsedDPRFallback bool   `json:"used_dpr_fallback"`
	RerankTimeMs    int64  `json:"rerank_time_ms"`
	PprTimeMs       int64  `json:"ppr_time_ms"`
	TotalTimeMs     int64  `json:"total_time_ms"`
}

// Handler is a slog.Handler middleware that skims retrieval timing
// records out of the log stream and batches them to JSON-lines files,
// mirroring the teacher's buffer-then-flush ParquetHandler shape.
type Handler struct {
	next      slog.Handler
	outputDir string
	batchSize int

	mu     sync.Mutex
	buffer []Record
}

// NewHandler wraps next, flushing buffered timing records to outputDir
// every batchSize records.
func NewHandler(next slog.Handler, outputDir string, batchSize int) (*Handler, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("telemetry: create output dir: %w", err)
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Handler{next: next, outputDir: outputDir, batchSize: batchSize, buffer: make([]Record, 0, batchSize)}, nil
}

func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	if err := h.next.Handle(ctx, r); err != nil {
		return err
	}

	if r.Message != "retrieve" {
		return nil
	}

	rec := Record{ID: uuid.New().String(), Timestamp: r.Time.UTC().Format(time.RFC3339Nano)}
	var isRetrievalRecord bool
	r.Attrs(func(a slog.Attr) bool {
		switch a.Key {
		case "component":
			if a.Value.String() == "retriever" {
				isRetrievalRecord = true
			}
		case "query":
			rec.Query = a.Value.String()
		case "used_dpr_fallback":
			rec.UsedDPRFallback = a.Value.Bool()
		case "rerank_time_ms":
			rec.RerankTimeMs = a.Value.Int64()
		case "ppr_time_ms":
			rec.PprTimeMs = a.Value.Int64()
		case "total_time_ms":
			rec.TotalTimeMs = a.Value.Int64()
		}
		return true
	})
	if !isRetrievalRecord {
		return nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.buffer = append(h.buffer, rec)
	if len(h.buffer) >= h.batchSize {
		return h.flushLocked()
	}
	return nil
}

// Flush writes any buffered records to a new file regardless of batch
// size, for use at process shutdown.
func (h *Handler) Flush() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.flushLocked()
}

func (h *Handler) flushLocked() error {
	if len(h.buffer) == 0 {
		return nil
	}

	name := fmt.Sprintf("retrieval_timing_%s.jsonl", uuid.New().String())
	path := filepath.Join(h.outputDir, name)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("telemetry: create timing file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	for _, rec := range h.buffer {
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("telemetry: write timing record: %w", err)
		}
	}

	h.buffer = h.buffer[:0]
	return nil
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &Handler{next: h.next.WithAttrs(attrs), outputDir: h.outputDir, batchSize: h.batchSize, buffer: make([]Record, 0, h.batchSize)}
}

func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{next: h.next.WithGroup(name), outputDir: h.outputDir, batchSize: h.batchSize, buffer: make([]Record, 0, h.batchSize)}
}
