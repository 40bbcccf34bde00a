// Package graphrag implements a graph-indexed hybrid retrieval system:
// dense passage retrieval fused with personalized PageRank seeded from
// query-linked facts, over an incrementally maintained property graph
// of chunks, entities, and OpenIE-extracted triples.
//
// # Basic usage
//
//	cfg, err := config.Load("graphrag.yaml")
//	session, err := graphrag.New(cfg, "musique")
//	defer session.Close()
//
//	err = session.Index(ctx, []string{"Paris is the capital of France."})
//
//	results, scores, err := session.RagQA(ctx, []string{"What is the capital of France?"}, 5, nil)
package graphrag
