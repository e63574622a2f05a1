package auth

import (
	"errors"
	"net/http"
	"time"

	"eco_gateway/internal/utils"
)

// TokenResponse is returned by the token exchange endpoint.
type TokenResponse struct {
	Token string `json:"token"`
	Exp   int64  `json:"exp"`
}

// AuthHandler exchanges an API key (X-API-Key header) for a JWT
func AuthHandler(store APIKeyStore, secret []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		apiKey := r.Header.Get("X-API-Key")
		if apiKey == "" {
			utils.RespondWithError(w, http.StatusBadRequest, "API Key is required")
			return
		}

		keyRecord, err := store.Lookup(r.Context(), apiKey)
		if err != nil {
			if errors.Is(err, ErrKeyNotFound) {
				utils.RespondWithError(w, http.StatusUnauthorized, "Invalid API Key")
				return
			}
			utils.RespondWithError(w, http.StatusInternalServerError, "Error validating API Key")
			return
		}

		if keyRecord.Revoked {
			utils.RespondWithError(w, http.StatusUnauthorized, "API Key has been revoked")
			return
		}

		token, exp, err := GenerateJWT(keyRecord.ID, utils.Fingerprint(apiKey), secret, time.Now())
		if err != nil {
			utils.RespondWithError(w, http.StatusInternalServerError, "Error generating token")
			return
		}

		_ = utils.RespondWithJSON(w, http.StatusOK, TokenResponse{Token: token, Exp: exp})
	}
}
