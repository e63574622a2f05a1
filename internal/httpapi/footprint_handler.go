package httpapi

import (
	"encoding/json"
	"io"
	"net/http"

	"eco_gateway/internal/carbon"
	"eco_gateway/internal/models"
	"eco_gateway/internal/utils"
)

func (d *Dependencies) handleFootprint(w http.ResponseWriter, r *http.Request) {
	var req models.FootprintRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 64<<10)).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.ModelName == "" {
		utils.RespondWithError(w, http.StatusUnprocessableEntity, "model_name is required")
		return
	}
	_ = utils.RespondWithJSON(w, http.StatusOK, carbon.CalculateFootprint(req.ModelName, req.TokensUsed))
}
