package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/mkfnx/dashboard-afluencia-metro-cdmx/internal/model"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func testReplaceRequest() ReplaceRequest {
	return ReplaceRequest{
		Monthly: []model.MonthlyStationRidership{
			{YearMonth: "2024-01", LineKey: "linea 1", StationKey: "balderas", Riders: 100, Lat: 19.427, Lon: -99.149, HasGeometry: true},
			{YearMonth: "2024-02", LineKey: "linea 1", StationKey: "balderas", Riders: 200, Lat: 19.427, Lon: -99.149, HasGeometry: true},
			{YearMonth: "2024-01", LineKey: "linea 1", StationKey: "orphan", Riders: 50},
			{YearMonth: "2024-01", LineKey: "linea 2", StationKey: "pantitlan", Riders: 75, Lat: 19.415, Lon: -99.072, HasGeometry: true},
		},
		Stations: []model.StationGeometry{
			{Station: "Balderas", Line: "01", StationKey: "balderas", LineKey: "linea 1",
				Point: geom.NewPointFlat(geom.XY, []float64{-99.149, 19.427})},
		},
		Bounds: map[string]model.DateBounds{
			"linea 1": {
				Min: time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
				Max: time.Date(2024, 2, 28, 0, 0, 0, 0, time.UTC),
			},
		},
		RidershipPath: "afluencia.csv",
		StationsPath:  "stations.kml",
		Records:       4,
		JoinMisses:    1,
	}
}

func TestSQLiteReplaceAndQuery(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	run, err := s.ReplaceDataset(ctx, testReplaceRequest())
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, 1, run.JoinMisses)

	lines, err := s.ListLines(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"linea 1", "linea 2"}, lines)

	rows, err := s.MonthlyByLine(ctx, "linea 1", "2024-01", "2024-01")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "balderas", rows[0].StationKey)
	assert.True(t, rows[0].HasGeometry)
	assert.InDelta(t, 19.427, rows[0].Lat, 1e-9)
	assert.Equal(t, "orphan", rows[1].StationKey)
	assert.False(t, rows[1].HasGeometry)

	stations, err := s.Stations(ctx)
	require.NoError(t, err)
	require.Len(t, stations, 1)
	assert.Equal(t, "balderas", stations[0].StationKey)
	assert.InDelta(t, -99.149, stations[0].Lon(), 1e-9)
}

func TestSQLiteLineBounds(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	_, err := s.ReplaceDataset(ctx, testReplaceRequest())
	require.NoError(t, err)

	bounds, err := s.LineBounds(ctx, "linea 1")
	require.NoError(t, err)
	require.NotNil(t, bounds)
	assert.Equal(t, "2024-01-05", bounds.Min.Format("2006-01-02"))
	assert.Equal(t, "2024-02-28", bounds.Max.Format("2006-01-02"))

	missing, err := s.LineBounds(ctx, "linea 9")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSQLiteReplaceIsFullSwap(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	_, err := s.ReplaceDataset(ctx, testReplaceRequest())
	require.NoError(t, err)

	second := ReplaceRequest{
		Monthly: []model.MonthlyStationRidership{
			{YearMonth: "2024-03", LineKey: "linea 3", StationKey: "indios verdes", Riders: 10},
		},
		RidershipPath: "afluencia.csv",
		StationsPath:  "stations.kml",
		Records:       1,
	}
	_, err = s.ReplaceDataset(ctx, second)
	require.NoError(t, err)

	lines, err := s.ListLines(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"linea 3"}, lines)

	// Import history is append-only.
	last, err := s.LastImport(ctx)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, 1, last.Records)
}

func TestSQLiteLastImportEmpty(t *testing.T) {
	s := newTestSQLite(t)

	last, err := s.LastImport(context.Background())
	require.NoError(t, err)
	assert.Nil(t, last)
}

func TestSQLiteRangeFilter(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	_, err := s.ReplaceDataset(ctx, testReplaceRequest())
	require.NoError(t, err)

	// Inverted range yields nothing.
	rows, err := s.MonthlyByLine(ctx, "linea 1", "2024-02", "2024-01")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Config{Driver: "oracle"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown driver")
}
