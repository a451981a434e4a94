package ai

import "context"

// Generator sends a single prompt to a text-generation service and returns its completion.
// Implementations must wrap ErrRateLimited when the provider signals rate limiting.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
