package providers

import "errors"

var (
	// ErrUnknownModel is returned for a model whose prefix names no provider type.
	ErrUnknownModel = errors.New("model not recognised")

	// ErrProviderNotConfigured is returned when the provider type exists but
	// has no credentials.
	ErrProviderNotConfigured = errors.New("provider not configured")

	// ErrMissingAPIKey is returned by constructors that need an api_key credential.
	ErrMissingAPIKey = errors.New("api_key is required")

	// ErrUnsupportedType is returned by the factory for unregistered types.
	ErrUnsupportedType = errors.New("unsupported provider type")
)
