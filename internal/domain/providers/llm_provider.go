package providers

import "context"

// LLMProvider is the generative inference black box. Invoke may fail
// (network, timeout, non-2xx); callers must treat any failure as soft and
// fall back to deterministic text.
type LLMProvider interface {
	Invoke(ctx context.Context, prompt string, maxTokens int, modelKey string) (string, error)
}

// Embedder turns a query string into a dense vector for passage retrieval.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
