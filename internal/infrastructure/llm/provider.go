// Package llm generates the final grounded answer through a fixed chain
// of completion providers.
package llm

import "context"

// Provider is one completion backend in the fallback chain. Any error
// from Complete means "try the next provider".
type Provider interface {
	Name() string
	Complete(ctx context.Context, prompt string, maxTokens int) (string, error)
}
