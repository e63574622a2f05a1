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
	huggingFaceDefaultBaseURL = "https://api-inference.huggingface.co/models"
	huggingFaceDefaultAlias   = "zephyr"
)

var huggingFaceRepos = map[string]string{
	"zephyr":  "bigscience/bloom-560m",
	"falcon":  "tiiuae/falcon-7b-instruct",
	"mistral": "mistralai/Mistral-7B-Instruct-v0.2",
}

// HuggingFaceRepo resolves a catalog alias, case-insensitively, to a model
// repository. Unknown aliases fall back to the default model.
func HuggingFaceRepo(alias string) string {
	if repo, ok := huggingFaceRepos[strings.ToLower(alias)]; ok {
		return repo
	}
	return huggingFaceRepos[huggingFaceDefaultAlias]
}

// HuggingFaceProvider calls the hosted Inference API text-generation task.
// The API reports no token usage, so responses carry zero counts.
type HuggingFaceProvider struct {
	id      string
	auth    Authenticator
	client  *http.Client
	baseURL string
}

// NewHuggingFaceProvider creates a new Hugging Face provider instance
func NewHuggingFaceProvider(config ProviderConfig) (Provider, error) {
	apiKey, err := config.apiKey()
	if err != nil {
		return nil, err
	}

	return &HuggingFaceProvider{
		id:      config.id(),
		auth:    NewSimpleAPIKeyAuth(apiKey, "Authorization", "Bearer "),
		client:  newHTTPClient(config.durationOption("timeout", defaultTimeout)),
		baseURL: strings.TrimRight(config.stringOption("base_url", huggingFaceDefaultBaseURL), "/"),
	}, nil
}

func (p *HuggingFaceProvider) ID() string {
	return p.id
}

func (p *HuggingFaceProvider) Type() string {
	return TypeHuggingFace
}

// Chat sends the last prompt as the generation input.
func (p *HuggingFaceProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	start := time.Now()
	repo := HuggingFaceRepo(req.Model)

	body, err := json.Marshal(map[string]string{"inputs": req.LastPrompt()})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/"+repo, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Wait-For-Model", "true")

	authCtx, err := p.auth.Authenticate(ctx)
	if err != nil {
		return nil, fmt.Errorf("authentication failed: %w", err)
	}
	if err := authCtx.ApplyToRequest(ctx, httpReq); err != nil {
		return nil, fmt.Errorf("failed to apply auth: %w", err)
	}

	reply := func(content string) *ChatResponse {
		return &ChatResponse{Content: content, ProviderLatency: time.Since(start)}
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return reply(fmt.Sprintf("(HF) Exception: %v", err)), nil
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return reply(fmt.Sprintf("(HF) Exception: %v", err)), nil
	}

	if resp.StatusCode != http.StatusOK {
		return reply(fmt.Sprintf("(HF) %d %s for %s - body: %s",
			resp.StatusCode, http.StatusText(resp.StatusCode), repo, truncate(string(respBody), maxErrorBody))), nil
	}

	return reply(generatedText(respBody)), nil
}

// generatedText reads [{"generated_text": ...}], falling back to the raw body.
func generatedText(body []byte) string {
	var out []struct {
		GeneratedText string `json:"generated_text"`
	}
	if err := json.Unmarshal(body, &out); err == nil && len(out) > 0 && out[0].GeneratedText != "" {
		return strings.TrimSpace(out[0].GeneratedText)
	}
	if text := strings.TrimSpace(string(body)); text != "" {
		return text
	}
	return "(HF) empty response"
}

func (p *HuggingFaceProvider) Close() error {
	p.client.CloseIdleConnections()
	return nil
}
