package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/routeops-cli/internal/cleaning"
)

var (
	applyDecisionsPath string
	applyDryRun        bool
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply an approved decisions file to the store",
	Long:  "Reads a YAML decisions file (edited dedupe/standardize output with resolutions filled in), translates it into the minimal set of upserts and deletes, and executes them. Failures are reported per item; a partial apply is surfaced, not rolled back.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		data, err := os.ReadFile(applyDecisionsPath)
		if err != nil {
			return eris.Wrap(err, "read decisions file")
		}
		var decisions cleaning.Decisions
		if err := yaml.Unmarshal(data, &decisions); err != nil {
			return eris.Wrap(err, "parse decisions file")
		}

		cs := cleaning.BuildChangeSet(decisions)
		if len(cs.Upserts) == 0 && len(cs.Deletes) == 0 {
			fmt.Fprintln(os.Stdout, "nothing to apply")
			return nil
		}

		if applyDryRun {
			out := yaml.NewEncoder(os.Stdout)
			out.SetIndent(2)
			defer out.Close()
			return out.Encode(cs)
		}

		st, closeStore, err := initCustomerStore(ctx)
		if err != nil {
			return err
		}
		defer closeStore()

		result := cleaning.NewApplier(st).Apply(ctx, cs)

		fmt.Fprintf(os.Stdout, "upserted %d, deleted %d\n", result.Upserted, result.Deleted)
		for _, f := range result.Failures {
			fmt.Fprintf(os.Stderr, "FAILED %s %s: %s\n", f.Op, f.ID, f.Err)
		}

		zap.L().Info("apply complete",
			zap.Int("upserted", result.Upserted),
			zap.Int("deleted", result.Deleted),
			zap.Int("failures", len(result.Failures)),
		)
		if len(result.Failures) > 0 {
			return eris.Errorf("apply finished with %d failed operations", len(result.Failures))
		}
		return nil
	},
}

func init() {
	applyCmd.Flags().StringVar(&applyDecisionsPath, "decisions", "", "path to YAML decisions file (required)")
	_ = applyCmd.MarkFlagRequired("decisions")
	applyCmd.Flags().BoolVar(&applyDryRun, "dry-run", false, "print the change set without touching the store")
	rootCmd.AddCommand(applyCmd)
}
