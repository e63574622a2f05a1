package carbon

import (
	"fmt"
	"strings"
)

// referenceTokens is the token count the reference measurements were taken at.
const referenceTokens = 5000.0

// ReferenceMeasurement is a measured footprint for referenceTokens tokens.
type ReferenceMeasurement struct {
	EnergyWh float64
	CO2G     float64
}

var referenceData = map[string]ReferenceMeasurement{
	"chatgpt-4o":    {EnergyWh: 439, CO2G: 268},
	"mistral-small": {EnergyWh: 22.3, CO2G: 13.7},
	"llama-3":       {EnergyWh: 62.7, CO2G: 38.3},
}

// Footprint is the result of a reference-data footprint calculation.
type Footprint struct {
	ModelName  string  `json:"model_name"`
	TokensUsed int64   `json:"tokens_used"`
	EnergyWh   float64 `json:"energy_wh"`
	CO2G       float64 `json:"co2_g"`
	Equivalent string  `json:"equivalent"`
}

// UnknownModelEquivalent is the equivalent label for models without reference data.
const UnknownModelEquivalent = "model not recognised"

// CalculateFootprint scales the reference measurement for modelName to
// tokensUsed. Model names are matched case-insensitively; unknown models
// yield zero values.
func CalculateFootprint(modelName string, tokensUsed int64) Footprint {
	model := strings.ToLower(modelName)
	ref, ok := referenceData[model]
	if !ok {
		return Footprint{
			ModelName:  model,
			TokensUsed: tokensUsed,
			Equivalent: UnknownModelEquivalent,
		}
	}

	ratio := float64(tokensUsed) / referenceTokens
	energy := Round(ref.EnergyWh*ratio, 3)
	co2 := Round(ref.CO2G*ratio, 3)

	// 13.7 g is roughly 12.8 minutes of video streaming.
	minutes := Round(co2/13.7*12.8, 1)

	return Footprint{
		ModelName:  model,
		TokensUsed: tokensUsed,
		EnergyWh:   energy,
		CO2G:       co2,
		Equivalent: fmt.Sprintf("%s min of video streaming", formatDecimal(minutes)),
	}
}

// ReferenceModels lists the models with reference data.
func ReferenceModels() []string {
	return []string{"chatgpt-4o", "llama-3", "mistral-small"}
}

// formatDecimal prints at least one fractional digit, e.g. 12.8 or 25.0.
func formatDecimal(v float64) string {
	s := fmt.Sprintf("%v", v)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
