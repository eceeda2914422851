package llm

import (
	"context"

	"github.com/heydayle/next-gen-ai/internal/domain"
)

// Request contains one completion round trip: the new question plus the
// full turn history used as conversation context.
type Request struct {
	Prompt  string
	History []domain.Turn
}

// Response contains the reply turn produced by a provider
type Response struct {
	Text       string
	Model      string
	TokensUsed int
	LatencyMs  int64
}

// Provider defines the interface for completion providers
type Provider interface {
	// Name returns the provider identifier
	Name() string

	// AvailableModels returns list of supported models
	AvailableModels() []string

	// DefaultModel returns the default model
	DefaultModel() string

	// IsConfigured checks if provider has valid credentials
	IsConfigured() bool

	// Complete returns one reply turn for the prompt, or fails. No
	// streaming, no partial results.
	Complete(ctx context.Context, req Request, model string) (*Response, error)
}
