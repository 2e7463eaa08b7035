package dataset

import (
	"sort"

	"github.com/twpayne/go-geom"

	"github.com/mkfnx/dashboard-afluencia-metro-cdmx/internal/model"
)

// MapTable is the per-station aggregate view behind the map and the ranked
// table: one entry per station, descending by ridership.
type MapTable struct {
	Stations []model.StationAggregate
	// Viewport bounds the mapped points; nil when nothing has geometry.
	Viewport *geom.Bounds
}

// BuildMapTable aggregates filtered rows per station (summed ridership,
// first-seen coordinates) and computes marker sizes scaled so the station
// with maximum ridership receives exactly maxMarkerSize. The maximum is
// taken over every station, so a geometry-less station can set the scale
// even though it is excluded from Mapped.
func BuildMapTable(rows []model.MonthlyStationRidership, maxMarkerSize float64) *MapTable {
	order := make([]string, 0)
	agg := make(map[string]*model.StationAggregate)

	for _, row := range rows {
		a, ok := agg[row.StationKey]
		if !ok {
			a = &model.StationAggregate{StationKey: row.StationKey}
			agg[row.StationKey] = a
			order = append(order, row.StationKey)
		}
		a.Riders += row.Riders
		if !a.HasGeometry && row.HasGeometry {
			a.Lat = row.Lat
			a.Lon = row.Lon
			a.HasGeometry = true
		}
	}

	maxRiders := 0
	for _, a := range agg {
		if a.Riders > maxRiders {
			maxRiders = a.Riders
		}
	}

	mt := &MapTable{Stations: make([]model.StationAggregate, 0, len(order))}
	for _, key := range order {
		a := agg[key]
		if maxRiders > 0 {
			a.Size = float64(a.Riders) / float64(maxRiders) * maxMarkerSize
		}
		mt.Stations = append(mt.Stations, *a)
	}

	sort.Slice(mt.Stations, func(i, j int) bool {
		if mt.Stations[i].Riders != mt.Stations[j].Riders {
			return mt.Stations[i].Riders > mt.Stations[j].Riders
		}
		return mt.Stations[i].StationKey < mt.Stations[j].StationKey
	})

	for _, a := range mt.Stations {
		if !a.HasGeometry {
			continue
		}
		if mt.Viewport == nil {
			mt.Viewport = geom.NewBounds(geom.XY)
		}
		mt.Viewport.Extend(geom.NewPointFlat(geom.XY, []float64{a.Lon, a.Lat}))
	}

	return mt
}

// Mapped returns the aggregates that can be drawn on the map: stations with
// no geometry match are dropped rather than plotted at an undefined spot.
func (mt *MapTable) Mapped() []model.StationAggregate {
	out := make([]model.StationAggregate, 0, len(mt.Stations))
	for _, a := range mt.Stations {
		if a.HasGeometry {
			out = append(out, a)
		}
	}
	return out
}
