package insights

import "eco_gateway/internal/carbon"

// DateRange is the span of timestamps in the snapshot.
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Overview holds aggregate totals. DateRange is nil for an empty snapshot.
type Overview struct {
	TotalRequests       int        `json:"total_requests"`
	TotalTokens         int64      `json:"total_tokens"`
	TotalEnergyKWh      float64    `json:"total_energy_kwh"`
	TotalCarbonGCO2eq   float64    `json:"total_carbon_gco2eq"`
	AvgCarbonPerRequest float64    `json:"avg_carbon_per_request"`
	DateRange           *DateRange `json:"date_range"`
}

// Overview returns aggregate totals over the snapshot.
func (a *Analyzer) Overview() Overview {
	if len(a.records) == 0 {
		return Overview{}
	}

	var tokens int64
	var energy, carbonG float64
	for _, r := range a.records {
		tokens += r.TotalTokens()
		energy += r.EnergyKWh
		carbonG += r.CarbonGCO2eq
	}

	return Overview{
		TotalRequests:       len(a.records),
		TotalTokens:         tokens,
		TotalEnergyKWh:      carbon.Round(energy, 4),
		TotalCarbonGCO2eq:   carbon.Round(carbonG, 2),
		AvgCarbonPerRequest: carbon.Round(ratio(carbonG, float64(len(a.records))), 3),
		DateRange: &DateRange{
			Start: carbon.FormatTimestamp(a.records[0].Timestamp),
			End:   carbon.FormatTimestamp(a.records[len(a.records)-1].Timestamp),
		},
	}
}
