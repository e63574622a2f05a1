package insights

import "eco_gateway/internal/carbon"

// HeatmapCell aggregates records by hour of day.
type HeatmapCell struct {
	Hour         int     `json:"hour"`
	CarbonGCO2eq float64 `json:"carbon_gco2eq"`
	Requests     int     `json:"requests"`
	Intensity    float64 `json:"intensity"`
}

// HourlyHeatmap groups records by the stored hour of day. Only hours with at
// least one record appear, in ascending order.
func (a *Analyzer) HourlyHeatmap() []HeatmapCell {
	var carbonByHour [24]float64
	var requestsByHour [24]int
	for _, r := range a.records {
		h := r.Timestamp.Hour()
		carbonByHour[h] += r.CarbonGCO2eq
		requestsByHour[h]++
	}

	out := make([]HeatmapCell, 0, 24)
	for h := 0; h < 24; h++ {
		if requestsByHour[h] == 0 {
			continue
		}
		out = append(out, HeatmapCell{
			Hour:         h,
			CarbonGCO2eq: carbon.Round(carbonByHour[h], 2),
			Requests:     requestsByHour[h],
			Intensity:    carbon.Round(ratio(carbonByHour[h], float64(requestsByHour[h])), 3),
		})
	}
	return out
}
