// Package utils provides the generic vector-scoring helpers shared by
// the indexer and retriever: cosine/dot-product similarity, min-max
// normalization, and a bounded top-k selector over scored items.
package utils
