package insights

import (
	"sort"

	"eco_gateway/internal/carbon"
)

// Timeline granularities.
const (
	GranularityDay  = "day"
	GranularityHour = "hour"
)

// TimelineBucket aggregates records sharing a day or hour key.
type TimelineBucket struct {
	Date         string  `json:"date"`
	CarbonGCO2eq float64 `json:"carbon_gco2eq"`
	EnergyKWh    float64 `json:"energy_kwh"`
	Requests     int     `json:"requests"`
}

// Timeline buckets records by day ("YYYY-MM-DD") or hour ("YYYY-MM-DD HH:00").
// Any granularity other than "hour" buckets by day.
func (a *Analyzer) Timeline(granularity string) []TimelineBucket {
	layout := "2006-01-02"
	if granularity == GranularityHour {
		layout = "2006-01-02 15:00"
	}

	type acc struct {
		carbon, energy float64
		requests       int
	}
	buckets := make(map[string]*acc)
	for _, r := range a.records {
		key := r.Timestamp.Format(layout)
		b, ok := buckets[key]
		if !ok {
			b = &acc{}
			buckets[key] = b
		}
		b.carbon += r.CarbonGCO2eq
		b.energy += r.EnergyKWh
		b.requests++
	}

	keys := make([]string, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]TimelineBucket, 0, len(keys))
	for _, k := range keys {
		b := buckets[k]
		out = append(out, TimelineBucket{
			Date:         k,
			CarbonGCO2eq: carbon.Round(b.carbon, 2),
			EnergyKWh:    carbon.Round(b.energy, 4),
			Requests:     b.requests,
		})
	}
	return out
}
