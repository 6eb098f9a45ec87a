package main

import (
	"fmt"
	"strconv"

	"github.com/manyblack/studio/pkg/domain"
	"github.com/manyblack/studio/pkg/schema"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var intakeCmd = &cobra.Command{
	Use:   "intake",
	Short: "Check classifier settings and preview the strategy per confidence",
	Long: `Validates an intake configuration (the backend defaults unless --file is given) and
prints which path the classifier takes for each --confidence: direct, parallel or fallback.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := domain.DefaultIntakeConfig()
		if path, _ := cmd.Flags().GetString("file"); path != "" {
			data, err := readInput(path)
			if err != nil {
				return err
			}
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return fmt.Errorf("%w: %v", domain.ErrInvalid, err)
			}
		}
		report := schema.ValidateIntakeConfig(cfg)
		if err := report.Err(); err != nil {
			return reportErr(report, err)
		}
		app.out.Report(report)

		confidences, _ := cmd.Flags().GetFloat64Slice("confidence")
		type preview struct {
			Confidence float64         `json:"confidence"`
			Strategy   domain.Strategy `json:"strategy"`
		}
		out := make([]preview, len(confidences))
		for i, c := range confidences {
			if c < 0 || c > 1 {
				return fmt.Errorf("%w: confidence %v is outside 0..1", domain.ErrInvalid, c)
			}
			out[i] = preview{Confidence: c, Strategy: cfg.Strategy(c)}
		}
		return printOr(cmd, out, func() {
			app.out.Printf("direct >= %.2f, parallel >= %.2f\n", cfg.Thresholds.Direct, cfg.Thresholds.Parallel)
			rows := make([][]string, len(out))
			for i, p := range out {
				rows[i] = []string{strconv.FormatFloat(p.Confidence, 'f', 2, 64), string(p.Strategy)}
			}
			app.out.Table([]string{"CONFIDENCE", "STRATEGY"}, rows)
		})
	},
}

func init() {
	intakeCmd.Flags().StringP("file", "f", "", `Intake YAML file, or "-" for stdin`)
	intakeCmd.Flags().Float64Slice("confidence", []float64{0.9, 0.7, 0.4}, "Confidence scores to preview")
	rootCmd.AddCommand(intakeCmd)
}
