package ai

import "context"

// GenerateRequest carries one text-generation call to an external provider.
type GenerateRequest struct {
	Prompt      string
	System      string
	Temperature float64
	MaxTokens   int
}

// Provider generates text for a prompt. Implementations are network-bound;
// ctx controls cancellation and the per-attempt timeout.
type Provider interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// Embedder maps text to a fixed-dimension vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// EmbeddingDim is the vector size used across the knowledge base.
const EmbeddingDim = 384

// ZeroEmbedding is the fallback vector when the embedder fails. Entries
// carrying it score 0 in semantic search (zero norm).
func ZeroEmbedding() []float64 {
	return make([]float64, EmbeddingDim)
}
