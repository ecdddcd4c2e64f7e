package embedding

import "context"

// Provider maps text to a fixed-length vector. Implementations call an
// external embedding API and must respect the context deadline.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
