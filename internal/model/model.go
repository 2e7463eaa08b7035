// Package model holds the core data types shared across loaders, the
// dataset layer, the store, and the HTTP server.
package model

import (
	"time"

	"github.com/twpayne/go-geom"
)

// YearMonthLayout is the time layout for the month bucket key. Lexicographic
// comparison of keys in this layout is equivalent to chronological order.
const YearMonthLayout = "2006-01"

// RidershipRecord is one row of the ridership source: the rider count for a
// station on a calendar day. Records are immutable once loaded.
type RidershipRecord struct {
	Date    time.Time `json:"date"`
	Station string    `json:"station"`
	Line    string    `json:"line"`
	Riders  int       `json:"riders"`

	// Derived at load time.
	StationKey string `json:"station_key"`
	LineKey    string `json:"line_key"`
	YearMonth  string `json:"year_month"`
}

// StationGeometry is one station point from the geospatial source, with the
// raw names extracted from the embedded description markup.
type StationGeometry struct {
	Station string      `json:"station"`
	Line    string      `json:"line"`
	Point   *geom.Point `json:"-"`

	StationKey string `json:"station_key"`
	LineKey    string `json:"line_key"`
}

// Lat returns the point latitude (Y coordinate).
func (s StationGeometry) Lat() float64 { return s.Point.Y() }

// Lon returns the point longitude (X coordinate).
func (s StationGeometry) Lon() float64 { return s.Point.X() }

// MonthlyStationRidership is one row of the joined view: ridership summed to
// (year-month, line, station), left-joined against station geometry. Rows
// with no geometry match have HasGeometry false and zero coordinates.
type MonthlyStationRidership struct {
	YearMonth  string `json:"year_month"`
	LineKey    string `json:"line_key"`
	StationKey string `json:"station_key"`
	Riders     int    `json:"riders"`

	Lat         float64 `json:"lat,omitempty"`
	Lon         float64 `json:"lon,omitempty"`
	HasGeometry bool    `json:"has_geometry"`
}

// StationAggregate is per-station ridership aggregated over a filtered range,
// carrying first-seen coordinates and the computed marker size.
type StationAggregate struct {
	StationKey  string  `json:"station_key"`
	Riders      int     `json:"riders"`
	Lat         float64 `json:"lat,omitempty"`
	Lon         float64 `json:"lon,omitempty"`
	HasGeometry bool    `json:"has_geometry"`
	Size        float64 `json:"size"`
}

// ChartSeries is one plotted line: a station's ridership per month bucket.
type ChartSeries struct {
	Station string `json:"station"`
	Values  []int  `json:"values"`
}

// Chart is the pivoted time-series view: the top stations by total ridership
// plus a Total series summed across all stations in the filtered set.
type Chart struct {
	Months []string      `json:"months"`
	Series []ChartSeries `json:"series"`
	Total  []int         `json:"total"`
}

// Empty reports whether the chart has no data to plot.
func (c *Chart) Empty() bool { return len(c.Months) == 0 }

// DateBounds is the min/max calendar-day range of positive ridership for a
// line, used to bound the dashboard date pickers.
type DateBounds struct {
	Min time.Time `json:"min"`
	Max time.Time `json:"max"`
}

// ImportRun records one ingest of the two sources into the store.
type ImportRun struct {
	ID            string    `json:"id"`
	RidershipPath string    `json:"ridership_path"`
	StationsPath  string    `json:"stations_path"`
	Records       int       `json:"records"`
	Stations      int       `json:"stations"`
	JoinMisses    int       `json:"join_misses"`
	ImportedAt    time.Time `json:"imported_at"`
}
