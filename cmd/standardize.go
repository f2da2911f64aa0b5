package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/routeops-cli/internal/cleaning"
	"github.com/sells-group/routeops-cli/internal/export"
	"github.com/sells-group/routeops-cli/internal/model"
	"github.com/sells-group/routeops-cli/pkg/geocode"
)

var standardizeOutput string

var standardizeCmd = &cobra.Command{
	Use:   "standardize",
	Short: "Propose address gap fills and branch name consolidations",
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

		var reverser cleaning.Reverser
		if cfg.Geocode.Enabled {
			reverser = geocode.NewClient(
				geocode.WithBaseURL(cfg.Geocode.BaseURL),
				geocode.WithUserAgent(cfg.Geocode.UserAgent),
				geocode.WithRateLimit(cfg.Geocode.RateRPS),
			)
		}

		// The two analyses are independent; the gap pass may spend time on
		// reverse geocode lookups, so run them concurrently.
		var (
			proposals []model.StandardizationProposal
			clusters  []model.BranchVariationCluster
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			proposals = cleaning.NewGapAnalyzer(reverser).Proposals(gctx, records)
			return nil
		})
		g.Go(func() error {
			clusters = cleaning.AnalyzeBranchVariations(records)
			return nil
		})
		if err := g.Wait(); err != nil {
			return err
		}

		out := os.Stdout
		if standardizeOutput != "" {
			f, err := os.Create(standardizeOutput)
			if err != nil {
				return eris.Wrap(err, "create output file")
			}
			defer f.Close()
			out = f
		}
		if err := export.Report(out, &export.CleaningReport{
			Proposals: proposals,
			Branches:  clusters,
		}); err != nil {
			return err
		}

		zap.L().Info("standardize scan complete",
			zap.Int("records", len(records)),
			zap.Int("proposals", len(proposals)),
			zap.Int("branch_clusters", len(clusters)),
		)
		return nil
	},
}

func init() {
	standardizeCmd.Flags().StringVar(&standardizeOutput, "output", "", "write report to file instead of stdout")
	rootCmd.AddCommand(standardizeCmd)
}
