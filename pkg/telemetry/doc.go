// Package telemetry buffers per-query retrieval timing (spec §4.7's
// rerank/total timing) into batched JSON-lines files via a slog.Handler
// middleware, the same buffer-then-flush shape the teacher used for its
// Parquet error log, adapted to a plain JSONL sink since nothing in
// this repo consumes a columnar format.
package telemetry
