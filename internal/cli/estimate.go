package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"eco_gateway/internal/carbon"
	"eco_gateway/internal/eventlog"
)

func newEstimateCmd(opts *options) *cobra.Command {
	var record bool

	cmd := &cobra.Command{
		Use:   "estimate MODEL INPUT_TOKENS OUTPUT_TOKENS",
		Short: "Estimate energy and carbon for one call",
		Example: `  ecoctl estimate openai:gpt-4o-mini 1200 300
  ecoctl estimate mistral:small 500 500 --record`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid input token count %q: %w", args[1], err)
			}
			out, err := strconv.ParseInt(args[2], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid output token count %q: %w", args[2], err)
			}

			profile, err := opts.profile()
			if err != nil {
				return err
			}

			var appender carbon.Appender
			if record {
				appender = eventlog.NewWriter(opts.logPath)
			}
			rec := carbon.NewEstimator(profile.Table, appender).Estimate(context.Background(), args[0], in, out)

			if opts.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), rec)
			}
			return table(cmd.OutOrStdout(), "Estimate", []string{"FIELD", "VALUE"}, [][]string{
				{"model", rec.Model},
				{"coefficient (g/1K tokens)", num(profile.Table.Coefficient(rec.Model))},
				{"tokens", strconv.FormatInt(rec.TotalTokens(), 10)},
				{"carbon (gCO2eq)", num(rec.CarbonGCO2eq)},
				{"energy (kWh)", num(rec.EnergyKWh)},
			})
		},
	}
	cmd.Flags().BoolVar(&record, "record", false, "Append the estimate to the event log")
	return cmd
}

func newCoefficientsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "coefficients",
		Short: "List the carbon coefficient table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			profile, err := opts.profile()
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), struct {
					Default     float64        `json:"default"`
					Models      []carbon.Entry `json:"models"`
					HeavyModels []string       `json:"heavy_models"`
				}{profile.Table.Default(), profile.Table.Entries(), profile.HeavyModels})
			}

			heavy := make(map[string]bool, len(profile.HeavyModels))
			for _, m := range profile.HeavyModels {
				heavy[m] = true
			}
			rows := [][]string{}
			for _, e := range profile.Table.Entries() {
				flag := ""
				if heavy[e.Model] {
					flag = "heavy"
				}
				rows = append(rows, []string{e.Model, num(e.Coefficient), flag})
			}
			rows = append(rows, []string{"(default)", num(profile.Table.Default()), ""})
			return table(cmd.OutOrStdout(), fmt.Sprintf("Coefficients (grid %g gCO2eq/kWh)", carbon.GridIntensity),
				[]string{"MODEL", "g/1K TOKENS", ""}, rows)
		},
	}
}

func newFootprintCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "footprint MODEL_NAME TOKENS",
		Short: "Scale reference measurements to a token count",
		Long: fmt.Sprintf(`Scales a measured reference footprint to TOKENS.

Reference models: %v`, carbon.ReferenceModels()),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			tokens, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid token count %q: %w", args[1], err)
			}
			fp := carbon.CalculateFootprint(args[0], tokens)
			if opts.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), fp)
			}
			return table(cmd.OutOrStdout(), "Footprint", []string{"FIELD", "VALUE"}, [][]string{
				{"model", fp.ModelName},
				{"tokens", strconv.FormatInt(fp.TokensUsed, 10)},
				{"energy (Wh)", num(fp.EnergyWh)},
				{"co2 (g)", num(fp.CO2G)},
				{"equivalent", fp.Equivalent},
			})
		},
	}
}
