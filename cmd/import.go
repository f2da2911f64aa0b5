package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/routeops-cli/internal/ingest"
)

var (
	importVisitsPath    string
	importCustomersPath string
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Load a visit roster or customer export into the store",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if importVisitsPath == "" && importCustomersPath == "" {
			return eris.New("nothing to import: pass --visits and/or --customers")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if importVisitsPath != "" {
			visits, err := ingest.ReadVisits(importVisitsPath)
			if err != nil {
				return err
			}
			if err := st.InsertVisits(ctx, visits); err != nil {
				return err
			}
			zap.L().Info("visits imported",
				zap.String("file", importVisitsPath),
				zap.Int("rows", len(visits)),
			)
		}

		if importCustomersPath != "" {
			records, err := ingest.ReadCustomers(importCustomersPath)
			if err != nil {
				return err
			}
			n, err := st.UpsertCustomers(ctx, records)
			if err != nil {
				return err
			}
			zap.L().Info("customers imported",
				zap.String("file", importCustomersPath),
				zap.Int64("rows", n),
			)
		}

		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importVisitsPath, "visits", "", "visit roster file (.csv or .xlsx)")
	importCmd.Flags().StringVar(&importCustomersPath, "customers", "", "customer dataset file (.csv or .xlsx)")
	rootCmd.AddCommand(importCmd)
}
