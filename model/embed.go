package model

import "context"

// Embedder turns text into a fixed-dimension vector. The same implementation
// and model must be used at indexing and at query time, otherwise similarity
// scores are meaningless.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
