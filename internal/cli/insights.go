package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"eco_gateway/internal/insights"
)

// insightsCmd wires a read-only view over the event log.
func insightsCmd(opts *options, use, short string, render func(cmd *cobra.Command, a *insights.Analyzer) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.analyzer()
			if err != nil {
				return err
			}
			return render(cmd, a)
		},
	}
}

func newOverviewCmd(opts *options) *cobra.Command {
	return insightsCmd(opts, "overview", "Show request, token, energy and carbon totals", func(cmd *cobra.Command, a *insights.Analyzer) error {
		o := a.Overview()
		if opts.jsonOutput {
			return writeJSON(cmd.OutOrStdout(), o)
		}
		span := "-"
		if o.DateRange != nil {
			span = o.DateRange.Start + " .. " + o.DateRange.End
		}
		return table(cmd.OutOrStdout(), "Overview", []string{"METRIC", "VALUE"}, [][]string{
			{"requests", strconv.Itoa(o.TotalRequests)},
			{"tokens", strconv.FormatInt(o.TotalTokens, 10)},
			{"energy (kWh)", num(o.TotalEnergyKWh)},
			{"carbon (gCO2eq)", num(o.TotalCarbonGCO2eq)},
			{"carbon per request (g)", num(o.AvgCarbonPerRequest)},
			{"date range", span},
		})
	})
}

func newTimelineCmd(opts *options) *cobra.Command {
	var granularity string
	cmd := insightsCmd(opts, "timeline", "Show carbon per day or per hour", func(cmd *cobra.Command, a *insights.Analyzer) error {
		buckets := a.Timeline(granularity)
		if opts.jsonOutput {
			return writeJSON(cmd.OutOrStdout(), buckets)
		}
		rows := make([][]string, 0, len(buckets))
		for _, b := range buckets {
			rows = append(rows, []string{b.Date, num(b.CarbonGCO2eq), num(b.EnergyKWh), strconv.Itoa(b.Requests)})
		}
		return table(cmd.OutOrStdout(), "Timeline", []string{"BUCKET", "CARBON (g)", "ENERGY (kWh)", "REQUESTS"}, rows)
	})
	cmd.Flags().StringVarP(&granularity, "granularity", "g", insights.GranularityDay, "Bucket size: day or hour")
	return cmd
}

func newModelsCmd(opts *options) *cobra.Command {
	return insightsCmd(opts, "models", "Compare models by carbon efficiency", func(cmd *cobra.Command, a *insights.Analyzer) error {
		stats := a.ModelComparison()
		if opts.jsonOutput {
			return writeJSON(cmd.OutOrStdout(), stats)
		}
		rows := make([][]string, 0, len(stats))
		for _, s := range stats {
			rows = append(rows, []string{
				s.Model,
				strconv.Itoa(s.Requests),
				strconv.FormatInt(s.TotalTokens, 10),
				num(s.TotalCarbonGCO2eq),
				num(s.CarbonPer1kTokens),
				strconv.Itoa(s.EfficiencyScore),
			})
		}
		return table(cmd.OutOrStdout(), "Models", []string{"MODEL", "REQUESTS", "TOKENS", "CARBON (g)", "g/1K TOKENS", "SCORE"}, rows)
	})
}

func newHeatmapCmd(opts *options) *cobra.Command {
	return insightsCmd(opts, "heatmap", "Show carbon per hour of day", func(cmd *cobra.Command, a *insights.Analyzer) error {
		cells := a.HourlyHeatmap()
		if opts.jsonOutput {
			return writeJSON(cmd.OutOrStdout(), cells)
		}
		rows := make([][]string, 0, len(cells))
		for _, c := range cells {
			rows = append(rows, []string{fmt.Sprintf("%02d:00", c.Hour), num(c.CarbonGCO2eq), strconv.Itoa(c.Requests), num(c.Intensity)})
		}
		return table(cmd.OutOrStdout(), "Hourly heatmap", []string{"HOUR", "CARBON (g)", "REQUESTS", "INTENSITY"}, rows)
	})
}

func newEquivalentsCmd(opts *options) *cobra.Command {
	return insightsCmd(opts, "equivalents", "Express total carbon as everyday equivalents", func(cmd *cobra.Command, a *insights.Analyzer) error {
		e := a.Equivalents()
		if opts.jsonOutput {
			return writeJSON(cmd.OutOrStdout(), e)
		}
		return table(cmd.OutOrStdout(), "Equivalents", []string{"ANALOGY", "AMOUNT"}, [][]string{
			{"streaming hours", num(e.NetflixHours)},
			{"emails sent", num(e.EmailsSent)},
			{"km by car", num(e.KmCar)},
			{"smartphone charges", num(e.SmartphoneCharges)},
			{"tree-years to absorb", num(e.TreesNeeded)},
		})
	})
}

func newRecommendationsCmd(opts *options) *cobra.Command {
	return insightsCmd(opts, "recommendations", "Suggest ways to cut emissions", func(cmd *cobra.Command, a *insights.Analyzer) error {
		recs := a.Recommendations()
		if opts.jsonOutput {
			return writeJSON(cmd.OutOrStdout(), recs)
		}
		out := cmd.OutOrStdout()
		headerColor.Fprintln(out, "Recommendations")
		if len(recs) == 0 {
			fmt.Fprintln(out, "No recommendations.")
			return nil
		}
		for _, r := range recs {
			fmt.Fprintf(out, "[%s] %s\n  %s\n  potential reduction: %s\n", r.Priority, r.Title, r.Description, r.PotentialReduction)
		}
		return nil
	})
}

func newReportCmd(opts *options) *cobra.Command {
	var granularity string
	cmd := insightsCmd(opts, "report", "Print every view as one JSON document", func(cmd *cobra.Command, a *insights.Analyzer) error {
		return writeJSON(cmd.OutOrStdout(), a.Report(granularity))
	})
	cmd.Flags().StringVarP(&granularity, "granularity", "g", insights.GranularityDay, "Timeline bucket size: day or hour")
	return cmd
}
