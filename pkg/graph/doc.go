// Package graph implements the arena-based property graph (spec §4.3):
// vertices indexed by position with a name -> index side table, weighted
// edges, and a from-scratch Jacobi-iteration Personalized PageRank with
// dangling-mass handling.
package graph
