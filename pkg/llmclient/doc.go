// Package llmclient defines the language-model collaborator contract used
// by the fact reranker, the QA formatter, and the reference OpenIE
// extractor: a single blocking Infer call over chat-style messages.
//
// Concrete clients (OpenAIClient, AzureOpenAIClient) are wrapped with
// RetryClient for bounded exponential-backoff retry and optionally with
// CircuitBreakerClient so a run of external-transient failures trips
// before every caller pays the full retry budget.
package llmclient
