// Package embedder defines the external embedding-client contract (spec
// §6): batch_encode(texts, instruction?, norm) -> one vector per input, in
// the same order. Concrete clients wrap OpenAI's embeddings endpoint or a
// local EmbedEverything model; both are wrapped with RetryClient for
// bounded exponential-backoff retry on External-transient failures.
package embedder
