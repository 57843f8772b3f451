// Package asr defines the normalized transcription contract and the provider
// interface every speech-recognition vendor adapter implements. Adapters hide
// their protocol shape, synchronous upload or submit-then-poll, behind the
// same blocking call, so the orchestrator stays protocol-agnostic.
package asr

import (
	"context"

	"github.com/taoxee/scribeflow/provider"
)

// Provider is the interface that transcription backends must implement.
type Provider interface {
	provider.Provider

	// Transcribe sends media for transcription and blocks until a normalized
	// transcript is available or a terminal error occurs. Implementations
	// validate their credential fields before building any request, retry
	// transient failures per their own bounded policy, and return segments
	// sorted by start time with speakers normalized to "Speaker N" labels.
	Transcribe(ctx context.Context, req Request) (*Transcript, error)
}

// NewRegistry creates a provider registry for transcription adapters.
func NewRegistry() *provider.Registry[Provider] {
	return provider.NewRegistry[Provider]()
}
