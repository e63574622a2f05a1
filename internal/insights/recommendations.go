package insights

import "fmt"

// Recommendation types.
const (
	TypeModelOptimization = "model_optimization"
	TypeTiming            = "timing"
	TypeTrend             = "trend"
)

// Recommendation priorities.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
)

const (
	heavyRatioThreshold = 0.5
	heavyRatioBaseline  = 0.3
	peakHourMinRequests = 5
	trendMinRecords     = 20
	trendWindow         = 10
	trendGrowthFactor   = 1.2
)

// Recommendation is a heuristic finding about usage patterns.
type Recommendation struct {
	Type               string `json:"type"`
	Priority           string `json:"priority"`
	Title              string `json:"title"`
	Description        string `json:"description"`
	PotentialReduction string `json:"potential_reduction"`
}

// Recommendations evaluates the heavy-model, peak-hour and trend heuristics in
// that order. Each contributes at most one finding.
func (a *Analyzer) Recommendations() []Recommendation {
	out := []Recommendation{}
	if len(a.records) == 0 {
		return out
	}

	if rec, ok := a.heavyModelFinding(); ok {
		out = append(out, rec)
	}
	if rec, ok := a.peakHourFinding(); ok {
		out = append(out, rec)
	}
	if rec, ok := a.trendFinding(); ok {
		out = append(out, rec)
	}
	return out
}

// HeavyModelRatio is the fraction of requests made with heavy models.
func (a *Analyzer) HeavyModelRatio() float64 {
	heavy := 0
	for _, r := range a.records {
		if _, ok := a.heavyModels[r.Model]; ok {
			heavy++
		}
	}
	return ratio(float64(heavy), float64(len(a.records)))
}

func (a *Analyzer) heavyModelFinding() (Recommendation, bool) {
	r := a.HeavyModelRatio()
	if r <= heavyRatioThreshold {
		return Recommendation{}, false
	}
	// Not clamped: the reduction may be reported as negative.
	return Recommendation{
		Type:     TypeModelOptimization,
		Priority: PriorityHigh,
		Title:    "Optimize your model choice",
		Description: fmt.Sprintf(
			"%d%% of your requests use heavy models. Try GPT-4o-Mini or Mistral 7B for simple tasks.",
			int(r*100)),
		PotentialReduction: fmt.Sprintf("%d%%", int((r-heavyRatioBaseline)*100)),
	}, true
}

func (a *Analyzer) peakHourFinding() (Recommendation, bool) {
	cells := a.HourlyHeatmap()
	if len(cells) == 0 {
		return Recommendation{}, false
	}

	peak := cells[0]
	for _, c := range cells[1:] {
		if c.CarbonGCO2eq > peak.CarbonGCO2eq {
			peak = c
		}
	}
	if peak.Requests <= peakHourMinRequests {
		return Recommendation{}, false
	}

	return Recommendation{
		Type:     TypeTiming,
		Priority: PriorityMedium,
		Title:    "Avoid consumption peaks",
		Description: fmt.Sprintf(
			"You have an emissions peak at %dh (%sg CO₂). Spreading your requests reduces the impact.",
			peak.Hour, formatGrams(peak.CarbonGCO2eq)),
		PotentialReduction: "10-15%",
	}, true
}

func (a *Analyzer) trendFinding() (Recommendation, bool) {
	n := len(a.records)
	if n <= trendMinRecords {
		return Recommendation{}, false
	}

	recent := meanCarbon(a.records[n-trendWindow:])
	older := meanCarbon(a.records[n-2*trendWindow : n-trendWindow])
	if older == 0 || recent <= older*trendGrowthFactor {
		return Recommendation{}, false
	}

	increase := int((recent/older - 1) * 100)
	return Recommendation{
		Type:     TypeTrend,
		Priority: PriorityHigh,
		Title:    "Your footprint is rising",
		Description: fmt.Sprintf(
			"Your emissions increased by %d%% recently. Check the complexity of your prompts.",
			increase),
		PotentialReduction: fmt.Sprintf("%d%%", increase),
	}, true
}
