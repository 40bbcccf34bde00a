// Package vectorstore implements the namespaced, persistent embedding
// store (spec §4.2): an ordered hash_id -> (content, vector) mapping,
// with the reverse content -> hash_id mapping kept for dedup, backed by
// a single atomically-rewritten JSON file per namespace.
package vectorstore
