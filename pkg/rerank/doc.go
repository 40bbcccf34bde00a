// Package rerank implements the fact reranker (spec §4.5): a
// DSPy-style prompt asks the LLM to pick the query-relevant subset of
// candidate triples, and a tolerant parse-then-match step maps its
// answer back onto candidate indices, falling back to dense-similarity
// order on any failure.
package rerank
