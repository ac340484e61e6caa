package providers

import "errors"

// Provider is the base interface for all pricing sources.
type Provider interface {
	// Key returns the unique identifier for the provider (e.g., "runpod",
	// "vast_ai"). It matches the id used in providers.yaml.
	Key() string
	// Name returns the human-readable name of the provider.
	Name() string
	// LandingURL returns the URL of the provider's public pricing page.
	LandingURL() string
}

// Common errors shared across providers.
var (
	ErrProviderNotFound = errors.New("provider not found")
	ErrFetchFailed      = errors.New("failed to fetch pricing")
	ErrNotImplemented   = errors.New("not implemented")
)
