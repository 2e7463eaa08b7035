// Package ingest loads the two external sources: the tabular ridership CSV
// and the station geometry file (KML or shapefile). All name normalization
// goes through internal/normalize so the two sources share one key space.
package ingest

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/rotisserie/eris"
	"github.com/spkg/bom"
	"go.uber.org/zap"

	"github.com/mkfnx/dashboard-afluencia-metro-cdmx/internal/model"
	"github.com/mkfnx/dashboard-afluencia-metro-cdmx/internal/normalize"
)

// ridershipRow mirrors one CSV row of the afluencia export.
type ridershipRow struct {
	Fecha     string `csv:"fecha"`
	Linea     string `csv:"linea"`
	Estacion  string `csv:"estacion"`
	Afluencia string `csv:"afluencia"`
}

// dateLayouts are the date formats accepted in the fecha column.
var dateLayouts = []string{"2006-01-02", "02/01/2006"}

// LoadRidership reads the ridership CSV and returns one record per row with
// the derived year-month bucket and normalized keys populated. Any missing
// file, malformed row, unparseable date, or negative count fails the load.
func LoadRidership(path string, n *normalize.Normalizer) ([]model.RidershipRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: open ridership csv %s", path)
	}
	defer f.Close() //nolint:errcheck

	var rows []ridershipRow
	if err := gocsv.Unmarshal(bom.NewReader(f), &rows); err != nil {
		return nil, eris.Wrapf(err, "ingest: parse ridership csv %s", path)
	}

	records := make([]model.RidershipRecord, 0, len(rows))
	for i, row := range rows {
		date, err := parseDate(row.Fecha)
		if err != nil {
			return nil, eris.Wrapf(err, "ingest: ridership row %d", i+1)
		}

		riders, err := strconv.Atoi(strings.TrimSpace(row.Afluencia))
		if err != nil {
			return nil, eris.Wrapf(err, "ingest: ridership row %d: count %q", i+1, row.Afluencia)
		}
		if riders < 0 {
			return nil, eris.Errorf("ingest: ridership row %d: negative count %d", i+1, riders)
		}

		records = append(records, model.RidershipRecord{
			Date:       date,
			Station:    strings.TrimSpace(row.Estacion),
			Line:       strings.TrimSpace(row.Linea),
			Riders:     riders,
			StationKey: n.Station(row.Estacion),
			LineKey:    n.Line(row.Linea),
			YearMonth:  date.Format(model.YearMonthLayout),
		})
	}

	zap.L().Info("ridership loaded",
		zap.String("path", path),
		zap.Int("records", len(records)),
	)
	return records, nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, eris.Errorf("unparseable date %q", s)
}
