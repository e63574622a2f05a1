package insights

import (
	"math"
	"sort"

	"eco_gateway/internal/carbon"
)

// ModelStats summarises one model's usage.
type ModelStats struct {
	Model               string  `json:"model"`
	Requests            int     `json:"requests"`
	TotalCarbonGCO2eq   float64 `json:"total_carbon_gco2eq"`
	TotalEnergyKWh      float64 `json:"total_energy_kwh"`
	TotalTokens         int64   `json:"total_tokens"`
	InputTokens         int64   `json:"input_tokens"`
	OutputTokens        int64   `json:"output_tokens"`
	CarbonPer1kTokens   float64 `json:"carbon_per_1k_tokens"`
	AvgCarbonPerRequest float64 `json:"avg_carbon_per_request"`
	EfficiencyScore     int     `json:"efficiency_score"`
}

// ModelComparison groups records by the raw model string and sorts the groups
// by total carbon, highest first. Ties keep first-seen order.
func (a *Analyzer) ModelComparison() []ModelStats {
	type acc struct {
		requests            int
		carbon, energy      float64
		inputTok, outputTok int64
	}
	var order []string
	groups := make(map[string]*acc)
	for _, r := range a.records {
		g, ok := groups[r.Model]
		if !ok {
			g = &acc{}
			groups[r.Model] = g
			order = append(order, r.Model)
		}
		g.requests++
		g.carbon += r.CarbonGCO2eq
		g.energy += r.EnergyKWh
		g.inputTok += r.InputTokens
		g.outputTok += r.OutputTokens
	}

	out := make([]ModelStats, 0, len(order))
	for _, model := range order {
		g := groups[model]
		tokens := g.inputTok + g.outputTok
		var per1k float64
		if tokens != 0 {
			per1k = g.carbon / float64(tokens) * 1000
		}
		out = append(out, ModelStats{
			Model:               model,
			Requests:            g.requests,
			TotalCarbonGCO2eq:   carbon.Round(g.carbon, 2),
			TotalEnergyKWh:      carbon.Round(g.energy, 4),
			TotalTokens:         tokens,
			InputTokens:         g.inputTok,
			OutputTokens:        g.outputTok,
			CarbonPer1kTokens:   carbon.Round(per1k, 3),
			AvgCarbonPerRequest: carbon.Round(ratio(g.carbon, float64(g.requests)), 3),
			EfficiencyScore:     EfficiencyScore(per1k),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TotalCarbonGCO2eq > out[j].TotalCarbonGCO2eq
	})
	return out
}

// EfficiencyScore rates grams of CO2eq per 1000 tokens on a 30-100 scale.
func EfficiencyScore(carbonPer1k float64) int {
	switch {
	case math.IsNaN(carbonPer1k):
		return 0
	case carbonPer1k <= 0.3:
		return 100
	case carbonPer1k <= 0.5:
		return 85
	case carbonPer1k <= 0.8:
		return 70
	case carbonPer1k <= 1.2:
		return 55
	}
	score := 100 - carbonPer1k*30
	if score < 30 {
		return 30
	}
	return int(score)
}
