package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/routeops-cli/internal/cleaning"
	"github.com/sells-group/routeops-cli/internal/export"
)

var (
	dedupeProximity float64
	dedupeOutput    string
	dedupeQuiet     bool
)

var dedupeCmd = &cobra.Command{
	Use:   "dedupe",
	Short: "Flag suspected duplicate customer records",
	Long:  "Scans the customer dataset for records that look like the same physical store entered twice and writes a reviewable YAML report with per-pair evidence.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		cs, closeStore, err := initCustomerStore(ctx)
		if err != nil {
			return err
		}
		defer closeStore()

		records, err := cs.ListCustomers(ctx)
		if err != nil {
			return err
		}

		proximity := dedupeProximity
		if proximity == 0 {
			proximity = cfg.Dedupe.ProximityDeg
		}

		opts := []cleaning.DetectorOption{cleaning.WithProximity(proximity)}
		if !dedupeQuiet {
			bar := progressbar.Default(int64(len(records)), "scanning")
			opts = append(opts, cleaning.WithProgress(func(done, total int) {
				_ = bar.Set(done)
			}))
		}

		pairs := cleaning.NewDetector(opts...).Detect(records)

		out := os.Stdout
		if dedupeOutput != "" {
			f, err := os.Create(dedupeOutput)
			if err != nil {
				return eris.Wrap(err, "create output file")
			}
			defer f.Close()
			out = f
		}
		if err := export.Report(out, &export.CleaningReport{Duplicates: pairs}); err != nil {
			return err
		}

		zap.L().Info("dedupe scan complete",
			zap.Int("records", len(records)),
			zap.Int("pairs", len(pairs)),
		)
		return nil
	},
}

func init() {
	dedupeCmd.Flags().Float64Var(&dedupeProximity, "proximity", 0, "coordinate proximity in degrees (default from config)")
	dedupeCmd.Flags().StringVar(&dedupeOutput, "output", "", "write report to file instead of stdout")
	dedupeCmd.Flags().BoolVar(&dedupeQuiet, "quiet", false, "suppress the progress bar")
	rootCmd.AddCommand(dedupeCmd)
}
