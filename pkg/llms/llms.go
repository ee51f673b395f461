package llms

import (
	"context"
)

// Model is the completion collaborator. It accepts a message history and a
// tool catalog (via call options) and produces a response, streaming text
// chunks through the configured StreamingFunc as they are generated.
// Implementations wrap a concrete provider API; this package treats the
// provider as a black box.
type Model interface {
	// GetName returns the model name, used for logging and metrics.
	GetName() string
	// GenerateContent asks the model to generate content from a sequence of
	// messages. Text chunks are delivered through CallOptions.StreamingFunc
	// before the final response is returned.
	GenerateContent(ctx context.Context, messages []Message, options ...CallOption) (*ContentResponse, error)
}
