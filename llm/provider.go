// Package llm defines the summarization contract shared by all completion
// vendors: a normalized Summary, a Provider interface, and the prompt
// rendering that turns a speaker-labeled transcript into chat messages.
package llm

import (
	"context"

	"github.com/taoxee/scribeflow/provider"
)

// Provider is the interface that summarization backends must implement.
type Provider interface {
	provider.Provider

	// Summarize renders the prompt, calls the vendor, and returns the
	// normalized summary. Implementations validate credentials before any
	// network call and retry only transient failures per their bounded
	// policy.
	Summarize(ctx context.Context, req Request) (*Summary, error)
}

// NewRegistry creates an empty summarization provider registry.
func NewRegistry() *provider.Registry[Provider] {
	return provider.NewRegistry[Provider]()
}
