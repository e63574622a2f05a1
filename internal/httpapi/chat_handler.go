package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"eco_gateway/internal/billing"
	"eco_gateway/internal/middleware"
	"eco_gateway/internal/models"
	"eco_gateway/internal/providers"
	"eco_gateway/internal/queue"
	"eco_gateway/internal/utils"
)

const maxChatBodyBytes = 1 << 20

// handleChat forwards a chat request to the provider named by the model
// prefix and estimates its footprint.
//
// Flow:
//  1. Decode and validate the body
//  2. Check the API key may use the model
//  3. Resolve model → provider + provider model
//  4. Budget check
//  5. Call provider
//  6. Estimate (appends to the event log and publishes to the workers)
//  7. Return content, usage and estimates
func (d *Dependencies) handleChat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req models.ChatRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxChatBodyBytes)).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		utils.RespondWithError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	var keyID string
	if rec, ok := middleware.GetAPIKeyRecord(ctx); ok {
		if !rec.AllowsModel(req.Model) {
			utils.RespondWithError(w, http.StatusForbidden, fmt.Sprintf("API key may not use model '%s'", req.Model))
			return
		}
		keyID = rec.ID
	}

	provider, providerModel, err := d.Providers.Resolve(req.Model)
	if err != nil {
		d.respondResolveError(w, req.Model, err)
		return
	}

	caller := billing.CallerID(&queue.Event{APIKeyID: keyID, UserID: req.UserID})
	if !d.Billing.WithinBudget(ctx, caller) {
		utils.RespondWithError(w, http.StatusPaymentRequired, "monthly budget exceeded")
		return
	}

	pResp, err := provider.Chat(ctx, providers.ChatRequest{
		Model:    providerModel,
		Messages: toProviderMessages(req.Messages),
	})
	if err != nil {
		if ctx.Err() != nil {
			d.logger.Debug("Client went away during provider call", "model", req.Model)
			return
		}
		d.logger.Error("Provider call failed", "provider", provider.ID(), "model", req.Model, "error", err)
		utils.RespondWithError(w, http.StatusBadGateway, "provider error")
		return
	}

	// The estimate must land even if the client disconnects now.
	estimateCtx := queue.WithMeta(context.WithoutCancel(ctx), queue.Meta{
		RequestID: middleware.GetRequestID(ctx),
		APIKeyID:  keyID,
		UserID:    req.UserID,
		CostEUR:   pResp.CostEUR,
	})
	rec := d.Estimator.Estimate(estimateCtx, req.Model, pResp.InputTokens, pResp.OutputTokens)

	d.logger.Debug("Chat completed",
		"model", req.Model,
		"caller", caller,
		"input_tokens", pResp.InputTokens,
		"output_tokens", pResp.OutputTokens,
		"provider_ms", pResp.ProviderLatency.Milliseconds(),
	)

	_ = utils.RespondWithJSON(w, http.StatusOK, models.ChatResponse{
		Content: pResp.Content,
		Usage: models.Usage{
			InputTokens:  pResp.InputTokens,
			OutputTokens: pResp.OutputTokens,
		},
		CostEUR:  pResp.CostEUR,
		EstKWh:   rec.EnergyKWh,
		EstCO2eG: rec.CarbonGCO2eq,
	})
}

func (d *Dependencies) respondResolveError(w http.ResponseWriter, model string, err error) {
	switch {
	case errors.Is(err, providers.ErrUnknownModel):
		utils.RespondWithError(w, http.StatusNotFound, fmt.Sprintf("Model '%s' not recognised.", model))
	case errors.Is(err, providers.ErrProviderNotConfigured):
		prefix, _, _ := providers.SplitModel(model)
		utils.RespondWithError(w, http.StatusInternalServerError, fmt.Sprintf("API key for provider '%s' is not configured", prefix))
	default:
		d.logger.Error("Failed to resolve model", "model", model, "error", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "internal error")
	}
}

func toProviderMessages(in []models.Message) []providers.Message {
	out := make([]providers.Message, len(in))
	for i, m := range in {
		out[i] = providers.Message{Role: m.Role, Content: m.Content}
	}
	return out
}
