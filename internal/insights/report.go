package insights

// Report bundles every view for a single dashboard request.
type Report struct {
	Overview        Overview         `json:"overview"`
	Timeline        []TimelineBucket `json:"timeline"`
	Models          []ModelStats     `json:"models"`
	Heatmap         []HeatmapCell    `json:"heatmap"`
	Equivalents     Equivalents      `json:"equivalents"`
	Recommendations []Recommendation `json:"recommendations"`
}

// Report computes all views, with the timeline at the given granularity.
func (a *Analyzer) Report(granularity string) Report {
	return Report{
		Overview:        a.Overview(),
		Timeline:        a.Timeline(granularity),
		Models:          a.ModelComparison(),
		Heatmap:         a.HourlyHeatmap(),
		Equivalents:     a.Equivalents(),
		Recommendations: a.Recommendations(),
	}
}
