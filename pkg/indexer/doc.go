// Package indexer implements the incremental index/delete pipeline
// (spec §4.6): chunk embedding, OpenIE extraction and caching, entity
// and fact embedding, triple/passage/synonymy edge construction, and the
// accounting that makes delete only remove entities and facts no
// surviving chunk still references.
package indexer
