package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/routeops-cli/internal/export"
	"github.com/sells-group/routeops-cli/internal/model"
)

var (
	optimizeBranch string
	optimizeWeek   int
	optimizeRoutes []string
	optimizeFormat string
	optimizeOutput string
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Suggest route re-assignments that cut travel distance",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		format, err := export.ParseFormat(optimizeFormat)
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		svc := newOptimizerService(st)
		result := svc.Analyze(ctx, model.VisitFilter{
			BranchCode: optimizeBranch,
			WeekNumber: optimizeWeek,
			RouteNames: optimizeRoutes,
		})
		if !result.Success {
			return eris.Errorf("optimization failed: %s", result.Debug)
		}

		out := os.Stdout
		if optimizeOutput != "" {
			f, err := os.Create(optimizeOutput)
			if err != nil {
				return eris.Wrap(err, "create output file")
			}
			defer f.Close()
			out = f
		}

		if err := export.Candidates(out, format, result); err != nil {
			return err
		}

		zap.L().Info("optimization complete",
			zap.String("run_id", result.RunID),
			zap.Int("visits", result.VisitCount),
			zap.Int("groups", result.GroupCount),
			zap.Int("suggestions", result.Summary.Count),
			zap.Float64("total_km", result.Summary.TotalDistanceKM),
			zap.Duration("took", result.Duration),
		)
		return nil
	},
}

func init() {
	optimizeCmd.Flags().StringVar(&optimizeBranch, "branch", "", "restrict to one branch code")
	optimizeCmd.Flags().IntVar(&optimizeWeek, "week", 0, "restrict to one week number")
	optimizeCmd.Flags().StringSliceVar(&optimizeRoutes, "route", nil, "restrict to route names (repeatable)")
	optimizeCmd.Flags().StringVar(&optimizeFormat, "format", "table", "output format: table, csv, xlsx or yaml")
	optimizeCmd.Flags().StringVar(&optimizeOutput, "output", "", "write to file instead of stdout")
	rootCmd.AddCommand(optimizeCmd)
}
