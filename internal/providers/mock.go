package providers

import (
	"context"
	"fmt"
	"time"
)

// Fixed figures reported by the mock provider.
const (
	MockInputTokens  = 32
	MockOutputTokens = 58
	MockCostEUR      = 0.0001
)

// MockProvider answers locally without any network call.
type MockProvider struct {
	id string
}

// NewMockProvider creates a mock provider. It needs no credentials.
func NewMockProvider(config ProviderConfig) (Provider, error) {
	return &MockProvider{id: config.id()}, nil
}

func (p *MockProvider) ID() string {
	return p.id
}

func (p *MockProvider) Type() string {
	return TypeMock
}

// Chat echoes the first 100 characters of the last prompt.
func (p *MockProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &ChatResponse{
		Content:         fmt.Sprintf("(MOCK) Simulated reply to: '%s'", truncate(req.LastPrompt(), 100)),
		InputTokens:     MockInputTokens,
		OutputTokens:    MockOutputTokens,
		CostEUR:         MockCostEUR,
		ProviderLatency: time.Since(start),
	}, nil
}

func (p *MockProvider) Close() error {
	return nil
}
