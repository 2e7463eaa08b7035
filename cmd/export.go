package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/tealeg/xlsx/v2"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/mkfnx/dashboard-afluencia-metro-cdmx/internal/dataset"
)

var (
	exportLine   string
	exportStart  string
	exportEnd    string
	exportOutput string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the ranked station table for a line to an xlsx workbook",
	Example: `  afluencia export --line "linea 1" --start 2024-01 --end 2024-02 -o linea1.xlsx`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		loader, err := newLoader()
		if err != nil {
			return err
		}
		ds, err := loader.Load(ctx)
		if err != nil {
			return eris.Wrap(err, "export: load sources")
		}

		line := exportLine
		start, end := exportStart, exportEnd
		if start == "" || end == "" {
			bounds, ok := ds.DateBounds(line)
			if !ok {
				return eris.Errorf("export: no ridership for line %q", line)
			}
			if start == "" {
				start = bounds.Min.Format("2006-01")
			}
			if end == "" {
				end = bounds.Max.Format("2006-01")
			}
		}

		rows := ds.Filter(line, start, end)
		if len(rows) == 0 {
			return eris.Errorf("export: no rows for line %q in [%s, %s]", line, start, end)
		}
		mt := dataset.BuildMapTable(rows, cfg.Map.MaxMarkerSize)

		file := xlsx.NewFile()
		sheet, err := file.AddSheet("Afluencia")
		if err != nil {
			return eris.Wrap(err, "export: add sheet")
		}

		header := sheet.AddRow()
		header.AddCell().Value = "Estación"
		header.AddCell().Value = "Afluencia"
		header.AddCell().Value = "Afluencia (formato)"

		printer := message.NewPrinter(language.Spanish)
		for _, a := range mt.Stations {
			row := sheet.AddRow()
			row.AddCell().Value = a.StationKey
			row.AddCell().SetInt(a.Riders)
			row.AddCell().Value = printer.Sprintf("%d", a.Riders)
		}

		if err := file.Save(exportOutput); err != nil {
			return eris.Wrapf(err, "export: save %s", exportOutput)
		}

		fmt.Printf("wrote %d stations to %s\n", len(mt.Stations), exportOutput)
		return nil
	},
}

func init() {
	f := exportCmd.Flags()
	f.StringVar(&exportLine, "line", "", "normalized line key (e.g. \"linea 1\")")
	f.StringVar(&exportStart, "start", "", "start month YYYY-MM (default: line minimum)")
	f.StringVar(&exportEnd, "end", "", "end month YYYY-MM (default: line maximum)")
	f.StringVarP(&exportOutput, "output", "o", "afluencia.xlsx", "output xlsx path")
	_ = exportCmd.MarkFlagRequired("line")
	rootCmd.AddCommand(exportCmd)
}
