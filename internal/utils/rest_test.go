package utils

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondWithError(t *testing.T) {
	tests := []struct {
		name    string
		code    int
		message string
	}{
		{name: "unknown model", code: http.StatusNotFound, message: "Unknown model"},
		{name: "missing provider key", code: http.StatusInternalServerError, message: "MISTRAL_API_KEY missing"},
		{name: "bad body", code: http.StatusBadRequest, message: "invalid request body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			RespondWithError(w, tt.code, tt.message)

			assert.Equal(t, tt.code, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

			var body ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.message, body.Detail)
		})
	}
}

func TestRespondWithJSON(t *testing.T) {
	w := httptest.NewRecorder()
	payload := map[string]interface{}{"status": "ok", "models_supported": 5}

	err := RespondWithJSON(w, http.StatusOK, payload)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","models_supported":5}`, w.Body.String())
}

func TestRespondWithJSONEncodeFailure(t *testing.T) {
	w := httptest.NewRecorder()

	err := RespondWithJSON(w, http.StatusOK, map[string]float64{"bad": math.NaN()})
	require.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
