package llm

import "context"

// Client abstracts the generative service used for resume enhancement.
// Analyze returns the raw message content produced by the upstream model, or one
// of *ConfigurationError, *NetworkError or *UpstreamFormatError.
type Client interface {
	Analyze(ctx context.Context, content string) (string, error)
}

// Message is a single chat prompt message.
type Message struct {
	Role    string
	Content string
}

// ClientFunc adapts a function to the Client interface.
type ClientFunc func(ctx context.Context, content string) (string, error)

// Analyze calls f.
func (f ClientFunc) Analyze(ctx context.Context, content string) (string, error) {
	return f(ctx, content)
}
