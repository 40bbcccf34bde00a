// Package retriever implements dense passage retrieval and the
// graph-aware hybrid retrieval path (spec §4.7): query embedding
// caching, fact scoring and reranking, phrase-weighted Personalized
// PageRank over the property graph, and final passage assembly.
package retriever
