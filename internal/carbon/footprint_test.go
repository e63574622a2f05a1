package carbon

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculateFootprint(t *testing.T) {
	tests := []struct {
		name   string
		model  string
		tokens int64
		want   Footprint
	}{
		{
			name:   "reference point",
			model:  "mistral-small",
			tokens: 5000,
			want: Footprint{
				ModelName: "mistral-small", TokensUsed: 5000,
				EnergyWh: 22.3, CO2G: 13.7, Equivalent: "12.8 min of video streaming",
			},
		},
		{
			name:   "case insensitive",
			model:  "ChatGPT-4o",
			tokens: 5000,
			want: Footprint{
				ModelName: "chatgpt-4o", TokensUsed: 5000,
				EnergyWh: 439, CO2G: 268, Equivalent: "250.4 min of video streaming",
			},
		},
		{
			name:   "scaled",
			model:  "llama-3",
			tokens: 1000,
			want: Footprint{
				ModelName: "llama-3", TokensUsed: 1000,
				EnergyWh: 12.54, CO2G: 7.66, Equivalent: "7.2 min of video streaming",
			},
		},
		{
			name:   "zero tokens",
			model:  "llama-3",
			tokens: 0,
			want: Footprint{
				ModelName: "llama-3", TokensUsed: 0,
				Equivalent: "0.0 min of video streaming",
			},
		},
		{
			name:   "unknown model",
			model:  "Gemini",
			tokens: 1234,
			want: Footprint{
				ModelName: "gemini", TokensUsed: 1234,
				Equivalent: UnknownModelEquivalent,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateFootprint(tt.model, tt.tokens)
			assert.Equal(t, tt.want.ModelName, got.ModelName)
			assert.Equal(t, tt.want.TokensUsed, got.TokensUsed)
			assert.InDelta(t, tt.want.EnergyWh, got.EnergyWh, 1e-9)
			assert.InDelta(t, tt.want.CO2G, got.CO2G, 1e-9)
			assert.Equal(t, tt.want.Equivalent, got.Equivalent)
		})
	}
}
