package dataset

import (
	"sort"

	"github.com/mkfnx/dashboard-afluencia-metro-cdmx/internal/model"
)

// BuildChart pivots filtered rows into the time-series chart: one series per
// top-N station (by total ridership over the range, descending, ties broken
// alphabetically by station key) plus a Total series that sums every station
// in the filtered set, not just the displayed ones. Months with no row for a
// station plot as zero. An empty input yields an empty chart.
func BuildChart(rows []model.MonthlyStationRidership, topN int) *model.Chart {
	if len(rows) == 0 {
		return &model.Chart{}
	}

	months := make([]string, 0)
	monthIdx := make(map[string]int)
	totals := make(map[string]int)
	cells := make(map[string]map[string]int) // station -> month -> riders

	for _, row := range rows {
		if _, ok := monthIdx[row.YearMonth]; !ok {
			monthIdx[row.YearMonth] = 0
			months = append(months, row.YearMonth)
		}
		totals[row.StationKey] += row.Riders
		if cells[row.StationKey] == nil {
			cells[row.StationKey] = make(map[string]int)
		}
		cells[row.StationKey][row.YearMonth] += row.Riders
	}

	sort.Strings(months)
	for i, m := range months {
		monthIdx[m] = i
	}

	stations := make([]string, 0, len(totals))
	for s := range totals {
		stations = append(stations, s)
	}
	sort.Slice(stations, func(i, j int) bool {
		if totals[stations[i]] != totals[stations[j]] {
			return totals[stations[i]] > totals[stations[j]]
		}
		return stations[i] < stations[j]
	})

	top := stations
	if topN > 0 && len(top) > topN {
		top = top[:topN]
	}

	chart := &model.Chart{
		Months: months,
		Series: make([]model.ChartSeries, 0, len(top)),
		Total:  make([]int, len(months)),
	}

	for _, station := range top {
		values := make([]int, len(months))
		for m, riders := range cells[station] {
			values[monthIdx[m]] = riders
		}
		chart.Series = append(chart.Series, model.ChartSeries{Station: station, Values: values})
	}

	// Total spans all stations in the filtered set, including those not
	// plotted as their own series.
	for _, station := range stations {
		for m, riders := range cells[station] {
			chart.Total[monthIdx[m]] += riders
		}
	}

	return chart
}
