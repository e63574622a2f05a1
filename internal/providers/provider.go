package providers

import (
	"context"
	"time"
)

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest represents a normalized internal request to a provider.
type ChatRequest struct {
	Model    string // provider-specific model name, prefix already stripped
	Messages []Message
	Stream   bool // accepted but always forwarded as false
}

// LastPrompt returns the content of the final message, or "".
func (r ChatRequest) LastPrompt() string {
	if len(r.Messages) == 0 {
		return ""
	}
	return r.Messages[len(r.Messages)-1].Content
}

// ChatResponse is a normalized provider response.
type ChatResponse struct {
	Content         string
	InputTokens     int64
	OutputTokens    int64
	CostEUR         float64
	ProviderLatency time.Duration
}

// Provider is implemented by each concrete LLM provider (OpenAI, Mistral, OpenRouter, ...).
type Provider interface {
	// ID returns the unique identifier for this provider instance
	ID() string

	// Type returns the provider type, which is also its model prefix
	Type() string

	// Chat sends a chat completion request to the provider. Upstream
	// failures are reported in the response content; the error is reserved
	// for requests that could not be built.
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)

	// Close performs cleanup when the provider is no longer needed
	Close() error
}

// Authenticator handles authentication for a provider.
type Authenticator interface {
	// Authenticate prepares authentication for a request
	Authenticate(ctx context.Context) (AuthContext, error)
}

// AuthContext holds authentication information for a request
type AuthContext interface {
	// ApplyToRequest applies authentication to an HTTP request
	ApplyToRequest(ctx context.Context, req any) error
}

// ProviderConfig holds configuration for creating a provider instance
type ProviderConfig struct {
	ID          string
	Type        string
	Credentials map[string]string // api_key
	Config      map[string]any    // base_url, timeout, input_price_per_1k, output_price_per_1k
}

func (c ProviderConfig) id() string {
	if c.ID != "" {
		return c.ID
	}
	return c.Type
}

func (c ProviderConfig) apiKey() (string, error) {
	key := c.Credentials["api_key"]
	if key == "" {
		return "", ErrMissingAPIKey
	}
	return key, nil
}

func (c ProviderConfig) stringOption(name, fallback string) string {
	if v, ok := c.Config[name].(string); ok && v != "" {
		return v
	}
	return fallback
}

func (c ProviderConfig) durationOption(name string, fallback time.Duration) time.Duration {
	if v, ok := c.Config[name].(time.Duration); ok && v > 0 {
		return v
	}
	return fallback
}

func (c ProviderConfig) floatOption(name string) float64 {
	if v, ok := c.Config[name].(float64); ok && v > 0 {
		return v
	}
	return 0
}

// Factory creates provider instances based on type and configuration
type Factory interface {
	// CreateProvider creates a new provider instance
	CreateProvider(config ProviderConfig) (Provider, error)

	// SupportedTypes returns the list of supported provider types
	SupportedTypes() []string
}
