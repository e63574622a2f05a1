package httpapi

import (
	"net/http"

	"eco_gateway/internal/insights"
	"eco_gateway/internal/utils"
)

type insightsView func(a *insights.Analyzer, r *http.Request) any

// insights builds a fresh Analyzer from the event log for every request,
// so new records are visible immediately.
func (d *Dependencies) insights(view insightsView) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := insights.NewAnalyzer(d.EventLogPath, d.AnalyzerOptions...)
		if err != nil {
			d.logger.Error("Failed to load event log", "path", d.EventLogPath, "error", err)
			utils.RespondWithError(w, http.StatusInternalServerError, "failed to read event log")
			return
		}
		_ = utils.RespondWithJSON(w, http.StatusOK, view(a, r))
	}
}

func granularity(r *http.Request) string {
	if g := r.URL.Query().Get("granularity"); g != "" {
		return g
	}
	return insights.GranularityDay
}

func overviewView(a *insights.Analyzer, r *http.Request) any {
	return a.Overview()
}

func timelineView(a *insights.Analyzer, r *http.Request) any {
	return a.Timeline(granularity(r))
}

func modelsView(a *insights.Analyzer, r *http.Request) any {
	return a.ModelComparison()
}

func heatmapView(a *insights.Analyzer, r *http.Request) any {
	return a.HourlyHeatmap()
}

func equivalentsView(a *insights.Analyzer, r *http.Request) any {
	return a.Equivalents()
}

func recommendationsView(a *insights.Analyzer, r *http.Request) any {
	return a.Recommendations()
}

func reportView(a *insights.Analyzer, r *http.Request) any {
	return a.Report(granularity(r))
}
