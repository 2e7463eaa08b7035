// Package dataset builds the in-memory joined view of ridership and station
// geometry and derives the dashboard views from it: the filtered subsequence,
// the top-station chart, and the map/table aggregates.
package dataset

import (
	"sort"

	"go.uber.org/zap"

	"github.com/mkfnx/dashboard-afluencia-metro-cdmx/internal/model"
)

// Dataset is one fully-loaded session of both sources: raw ridership rows,
// station geometry, and the monthly joined view. It is immutable after Build
// and safe for concurrent readers.
type Dataset struct {
	records  []model.RidershipRecord
	stations []model.StationGeometry
	joined   []model.MonthlyStationRidership

	// Join misses in either direction. The source behavior was to drop
	// these silently; they are counted and logged here instead.
	RidershipOnly int
	GeometryOnly  int
}

type joinKey struct {
	stationKey string
	lineKey    string
}

// Build aggregates ridership to (year-month, line, station) and left-joins
// station geometry on (station key, line key). Rows are ordered by month,
// then line, then station, so every derived view is deterministic.
func Build(records []model.RidershipRecord, stations []model.StationGeometry) *Dataset {
	geo := make(map[joinKey]model.StationGeometry, len(stations))
	for _, s := range stations {
		k := joinKey{s.StationKey, s.LineKey}
		if _, ok := geo[k]; !ok {
			geo[k] = s
		}
	}

	type monthKey struct {
		yearMonth string
		join      joinKey
	}
	sums := make(map[monthKey]int)
	for _, r := range records {
		sums[monthKey{r.YearMonth, joinKey{r.StationKey, r.LineKey}}] += r.Riders
	}

	joined := make([]model.MonthlyStationRidership, 0, len(sums))
	matched := make(map[joinKey]bool)
	missed := make(map[joinKey]bool)
	for k, riders := range sums {
		row := model.MonthlyStationRidership{
			YearMonth:  k.yearMonth,
			LineKey:    k.join.lineKey,
			StationKey: k.join.stationKey,
			Riders:     riders,
		}
		if g, ok := geo[k.join]; ok {
			row.Lat = g.Lat()
			row.Lon = g.Lon()
			row.HasGeometry = true
			matched[k.join] = true
		} else {
			missed[k.join] = true
		}
		joined = append(joined, row)
	}

	sort.Slice(joined, func(i, j int) bool {
		a, b := joined[i], joined[j]
		if a.YearMonth != b.YearMonth {
			return a.YearMonth < b.YearMonth
		}
		if a.LineKey != b.LineKey {
			return a.LineKey < b.LineKey
		}
		return a.StationKey < b.StationKey
	})

	geometryOnly := 0
	for k := range geo {
		if !matched[k] {
			geometryOnly++
		}
	}

	ds := &Dataset{
		records:       records,
		stations:      stations,
		joined:        joined,
		RidershipOnly: len(missed),
		GeometryOnly:  geometryOnly,
	}

	if ds.RidershipOnly > 0 || ds.GeometryOnly > 0 {
		zap.L().Warn("join misses between ridership and geometry sources",
			zap.Int("ridership_without_geometry", ds.RidershipOnly),
			zap.Int("geometry_without_ridership", ds.GeometryOnly),
		)
	}

	return ds
}

// Records returns the raw ridership rows.
func (d *Dataset) Records() []model.RidershipRecord { return d.records }

// Stations returns the loaded station geometries.
func (d *Dataset) Stations() []model.StationGeometry { return d.stations }

// Joined returns the full monthly joined view.
func (d *Dataset) Joined() []model.MonthlyStationRidership { return d.joined }

// Lines returns the distinct normalized line keys present in the ridership
// source, sorted.
func (d *Dataset) Lines() []string {
	seen := make(map[string]bool)
	var lines []string
	for _, r := range d.records {
		if !seen[r.LineKey] {
			seen[r.LineKey] = true
			lines = append(lines, r.LineKey)
		}
	}
	sort.Strings(lines)
	return lines
}

// DateBounds returns the min and max calendar days with positive ridership
// for the line. ok is false when the line has no such rows.
func (d *Dataset) DateBounds(lineKey string) (bounds model.DateBounds, ok bool) {
	for _, r := range d.records {
		if r.LineKey != lineKey || r.Riders <= 0 {
			continue
		}
		if !ok || r.Date.Before(bounds.Min) {
			bounds.Min = r.Date
		}
		if !ok || r.Date.After(bounds.Max) {
			bounds.Max = r.Date
		}
		ok = true
	}
	return bounds, ok
}

// Filter returns the joined rows whose line key matches exactly and whose
// year-month lies in the inclusive [start, end] range. Keys are "YYYY-MM",
// so lexicographic comparison is chronological. No matches (including an
// inverted range) yields an empty result, not an error.
func (d *Dataset) Filter(lineKey, startYM, endYM string) []model.MonthlyStationRidership {
	var out []model.MonthlyStationRidership
	for _, row := range d.joined {
		if row.LineKey != lineKey {
			continue
		}
		if row.YearMonth < startYM || row.YearMonth > endYM {
			continue
		}
		out = append(out, row)
	}
	return out
}
