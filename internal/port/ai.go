package port

import "context"

// GenerateOptions are the limited knobs the generation backend accepts.
type GenerateOptions struct {
	Temperature float64
	MaxTokens   int
}

// AIProvider abstracts the AI/LLM backend for embeddings and text
// generation. Implementations can target Ollama, OpenAI, or any
// compatible API. Both calls are fallible and latency-bearing; the
// generation side is capacity-one and must only be reached through the
// inference queue.
type AIProvider interface {
	// ModelName returns the identifier of the generation model in use.
	ModelName() string

	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts in one call.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Generate produces text from a prompt.
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
}
