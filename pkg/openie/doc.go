// Package openie implements the OpenIE result store and the reference
// LLM-driven extractor (spec §4.4, §6): per-chunk (entities, triples)
// extraction, content-addressed caching, and the raw/processed triple
// filtering the indexer relies on.
package openie
