package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"eco_gateway/internal/carbon"
	"eco_gateway/internal/eventlog"
	"eco_gateway/internal/insights"
)

// Version will be set at build time
var Version = "dev"

var headerColor = color.New(color.FgCyan, color.Bold)

// options holds the persistent flags shared by every command.
type options struct {
	logPath          string
	coefficientsFile string
	jsonOutput       bool
	noColor          bool
}

// getEnvOrDefault returns the value of an environment variable or a default value
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// NewRootCmd builds the ecoctl command tree.
func NewRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "ecoctl",
		Short: "Inspect the carbon footprint recorded by the eco gateway",
		Long: `ecoctl reads the gateway's event log and prints the same insights the
HTTP API serves, runs one-off estimates and manages gateway API keys.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.noColor {
				color.NoColor = true
			}
		},
	}

	root.PersistentFlags().StringVar(&opts.logPath, "log", getEnvOrDefault("EVENT_LOG_PATH", eventlog.DefaultPath), "Path of the JSONL event log")
	root.PersistentFlags().StringVar(&opts.coefficientsFile, "coefficients", os.Getenv("COEFFICIENTS_FILE"), "Optional YAML coefficient table")
	root.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "Print JSON instead of tables")
	root.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "Disable colored output")

	root.AddCommand(
		newOverviewCmd(opts),
		newTimelineCmd(opts),
		newModelsCmd(opts),
		newHeatmapCmd(opts),
		newEquivalentsCmd(opts),
		newRecommendationsCmd(opts),
		newReportCmd(opts),
		newEstimateCmd(opts),
		newCoefficientsCmd(opts),
		newFootprintCmd(opts),
		newHashKeyCmd(),
	)
	return root
}

// Execute runs the root command and exits non-zero on failure.
// This is called by main.main().
func Execute() {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(root.ErrOrStderr(), "Error:", err)
		os.Exit(1)
	}
}

func (o *options) profile() (carbon.Profile, error) {
	if o.coefficientsFile == "" {
		return carbon.DefaultProfile(), nil
	}
	return carbon.LoadCoefficientFile(o.coefficientsFile)
}

func (o *options) analyzer() (*insights.Analyzer, error) {
	profile, err := o.profile()
	if err != nil {
		return nil, err
	}
	return insights.NewAnalyzer(o.logPath, insights.WithHeavyModels(profile.HeavyModels))
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// table prints a colored header followed by tab-aligned rows.
func table(w io.Writer, title string, header []string, rows [][]string) error {
	headerColor.Fprintln(w, title)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	writeRow(tw, header)
	for _, row := range rows {
		writeRow(tw, row)
	}
	return tw.Flush()
}

func writeRow(w io.Writer, cells []string) {
	for i, c := range cells {
		if i > 0 {
			fmt.Fprint(w, "\t")
		}
		fmt.Fprint(w, c)
	}
	fmt.Fprintln(w)
}

func num(v float64) string {
	return fmt.Sprintf("%g", v)
}
