package main

import (
	"fmt"
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/mkfnx/dashboard-afluencia-metro-cdmx/internal/dataset"
	"github.com/mkfnx/dashboard-afluencia-metro-cdmx/internal/model"
	"github.com/mkfnx/dashboard-afluencia-metro-cdmx/internal/store"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Summarize the configured sources and the last import",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		loader, err := newLoader()
		if err != nil {
			return err
		}
		ds, err := loader.Load(ctx)
		if err != nil {
			return eris.Wrap(err, "status: load sources")
		}
		formatDatasetSummary(out, ds, cfg.Sources.RidershipCSV, cfg.Sources.StationsFile)

		st, err := store.Open(ctx, cfg.Store)
		if err != nil {
			return eris.Wrap(err, "status: open store")
		}
		defer st.Close() //nolint:errcheck

		if err := st.Migrate(ctx); err != nil {
			return err
		}
		run, err := st.LastImport(ctx)
		if err != nil {
			return err
		}
		formatLastImport(out, run)

		return nil
	},
}

func formatDatasetSummary(w io.Writer, ds *dataset.Dataset, ridershipPath, stationsPath string) {
	fmt.Fprintf(w, "sources:\n")
	fmt.Fprintf(w, "  ridership: %s (%d records)\n", ridershipPath, len(ds.Records()))
	fmt.Fprintf(w, "  stations:  %s (%d stations)\n", stationsPath, len(ds.Stations()))
	fmt.Fprintf(w, "  join misses: %d ridership-only, %d geometry-only\n", ds.RidershipOnly, ds.GeometryOnly)

	fmt.Fprintf(w, "lines:\n")
	for _, line := range ds.Lines() {
		if bounds, ok := ds.DateBounds(line); ok {
			fmt.Fprintf(w, "  %-12s %s .. %s\n", line,
				bounds.Min.Format("2006-01-02"), bounds.Max.Format("2006-01-02"))
		} else {
			fmt.Fprintf(w, "  %-12s (no positive ridership)\n", line)
		}
	}
}

func formatLastImport(w io.Writer, run *model.ImportRun) {
	if run == nil {
		fmt.Fprintln(w, "store: no imports yet")
		return
	}
	fmt.Fprintf(w, "store: last import %s at %s (%d records, %d stations, %d join misses)\n",
		run.ID, run.ImportedAt.Format("2006-01-02 15:04"), run.Records, run.Stations, run.JoinMisses)
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
