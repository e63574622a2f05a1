package models

import (
	"errors"
	"strings"
)

// DefaultUserID is recorded when a chat request names no user.
const DefaultUserID = "anonymous"

var (
	ErrModelRequired    = errors.New("model is required")
	ErrMessagesRequired = errors.New("messages are required")
)

//
// Chat (POST /chat)
//

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	UserID   string    `json:"user_id,omitempty"`
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream,omitempty"`
}

// Normalize fills defaults in place.
func (r *ChatRequest) Normalize() {
	r.Model = strings.TrimSpace(r.Model)
	if strings.TrimSpace(r.UserID) == "" {
		r.UserID = DefaultUserID
	}
}

// Validate reports the first missing required field.
func (r *ChatRequest) Validate() error {
	if r.Model == "" {
		return ErrModelRequired
	}
	if r.Messages == nil {
		return ErrMessagesRequired
	}
	return nil
}

type Usage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

type ChatResponse struct {
	Content  string  `json:"content"`
	Usage    Usage   `json:"usage"`
	CostEUR  float64 `json:"cost_eur"`
	EstKWh   float64 `json:"est_kwh"`
	EstCO2eG float64 `json:"est_co2e_g"`
}

//
// Footprint calculator (POST /calculate_footprint)
//

type FootprintRequest struct {
	ModelName  string `json:"model_name"`
	TokensUsed int64  `json:"tokens_used"`
}
