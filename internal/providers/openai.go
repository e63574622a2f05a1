package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	openAIDefaultBaseURL = "https://api.openai.com/v1"
	defaultTimeout       = 60 * time.Second

	// maxErrorBody caps how much of an upstream error body is echoed back.
	maxErrorBody = 300
)

// openAICompatOptions describes one OpenAI-compatible upstream.
type openAICompatOptions struct {
	providerType string
	label        string // prefix used in error content, e.g. "(OpenRouter)"
	baseURL      string
	headers      map[string]string
	resolveModel func(string) string
}

// OpenAIProvider talks to any /chat/completions endpoint that follows the
// OpenAI request and response layout. OpenAI, Mistral and OpenRouter all
// use it with different options.
type OpenAIProvider struct {
	id           string
	providerType string
	label        string
	auth         Authenticator
	client       *http.Client
	baseURL      string
	headers      map[string]string
	resolveModel func(string) string
	inputPrice   float64 // EUR per 1000 input tokens
	outputPrice  float64 // EUR per 1000 output tokens
}

// NewOpenAIProvider creates a new OpenAI provider instance
func NewOpenAIProvider(config ProviderConfig) (Provider, error) {
	return newOpenAICompatible(config, openAICompatOptions{
		providerType: TypeOpenAI,
		label:        "OpenAI",
		baseURL:      openAIDefaultBaseURL,
	})
}

func newOpenAICompatible(config ProviderConfig, opts openAICompatOptions) (*OpenAIProvider, error) {
	apiKey, err := config.apiKey()
	if err != nil {
		return nil, err
	}

	return &OpenAIProvider{
		id:           config.id(),
		providerType: opts.providerType,
		label:        opts.label,
		auth:         NewSimpleAPIKeyAuth(apiKey, "Authorization", "Bearer "),
		client:       newHTTPClient(config.durationOption("timeout", defaultTimeout)),
		baseURL:      strings.TrimRight(config.stringOption("base_url", opts.baseURL), "/"),
		headers:      opts.headers,
		resolveModel: opts.resolveModel,
		inputPrice:   config.floatOption("input_price_per_1k"),
		outputPrice:  config.floatOption("output_price_per_1k"),
	}, nil
}

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// ID returns the provider ID
func (p *OpenAIProvider) ID() string {
	return p.id
}

// Type returns the provider type
func (p *OpenAIProvider) Type() string {
	return p.providerType
}

type chatCompletionRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Chat sends a chat completion request. Transport failures and non-200
// answers become the response content with zero usage.
func (p *OpenAIProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	start := time.Now()

	model := req.Model
	if p.resolveModel != nil {
		model = p.resolveModel(model)
	}

	body, err := json.Marshal(chatCompletionRequest{Model: model, Messages: req.Messages})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range p.headers {
		httpReq.Header.Set(k, v)
	}

	authCtx, err := p.auth.Authenticate(ctx)
	if err != nil {
		return nil, fmt.Errorf("authentication failed: %w", err)
	}
	if err := authCtx.ApplyToRequest(ctx, httpReq); err != nil {
		return nil, fmt.Errorf("failed to apply auth: %w", err)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return p.failure(start, fmt.Sprintf("Exception: %v", err)), nil
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return p.failure(start, fmt.Sprintf("Exception: %v", err)), nil
	}

	if resp.StatusCode != http.StatusOK {
		return p.failure(start, fmt.Sprintf("%d %s - %s",
			resp.StatusCode, http.StatusText(resp.StatusCode), truncate(string(respBody), maxErrorBody))), nil
	}

	usage := extractUsageFromResponse(respBody)
	return &ChatResponse{
		Content:         extractContent(respBody),
		InputTokens:     usage.InputTokens,
		OutputTokens:    usage.OutputTokens,
		CostEUR:         p.cost(usage),
		ProviderLatency: time.Since(start),
	}, nil
}

func (p *OpenAIProvider) failure(start time.Time, detail string) *ChatResponse {
	return &ChatResponse{
		Content:         fmt.Sprintf("(%s) %s", p.label, detail),
		ProviderLatency: time.Since(start),
	}
}

func (p *OpenAIProvider) cost(usage *UsageInfo) float64 {
	return float64(usage.InputTokens)/1000*p.inputPrice + float64(usage.OutputTokens)/1000*p.outputPrice
}

// Close cleans up resources
func (p *OpenAIProvider) Close() error {
	p.client.CloseIdleConnections()
	return nil
}

// UsageInfo contains token usage information from the response
type UsageInfo struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}

// extractUsageFromResponse extracts token usage, accepting both the
// input/output and the prompt/completion field names.
func extractUsageFromResponse(body []byte) *UsageInfo {
	var response struct {
		Usage struct {
			InputTokens      int64 `json:"input_tokens"`
			OutputTokens     int64 `json:"output_tokens"`
			TotalTokens      int64 `json:"total_tokens"`
			PromptTokens     int64 `json:"prompt_tokens"`
			CompletionTokens int64 `json:"completion_tokens"`
		} `json:"usage"`
	}

	if err := json.Unmarshal(body, &response); err != nil {
		return &UsageInfo{}
	}

	usage := &UsageInfo{
		InputTokens:  response.Usage.InputTokens,
		OutputTokens: response.Usage.OutputTokens,
		TotalTokens:  response.Usage.TotalTokens,
	}
	if usage.InputTokens == 0 && response.Usage.PromptTokens > 0 {
		usage.InputTokens = response.Usage.PromptTokens
	}
	if usage.OutputTokens == 0 && response.Usage.CompletionTokens > 0 {
		usage.OutputTokens = response.Usage.CompletionTokens
	}

	return usage
}

// extractContent returns the first choice's message, or the raw body when
// there is none.
func extractContent(body []byte) string {
	var response chatCompletionResponse
	if err := json.Unmarshal(body, &response); err == nil && len(response.Choices) > 0 {
		if content := strings.TrimSpace(response.Choices[0].Message.Content); content != "" {
			return content
		}
	}
	return strings.TrimSpace(string(body))
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
