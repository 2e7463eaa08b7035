package dataset

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkfnx/dashboard-afluencia-metro-cdmx/internal/normalize"
)

const loaderKML = `<kml><Document><Placemark>
  <name>Balderas</name>
  <description><![CDATA[<table><tr><td>NOMBRE</td><td>Balderas</td></tr><tr><td>LINEA</td><td>01</td></tr></table>]]></description>
  <Point><coordinates>-99.149,19.427</coordinates></Point>
</Placemark></Document></kml>`

func writeSources(t *testing.T) (csvPath, kmlPath string) {
	t.Helper()
	dir := t.TempDir()
	csvPath = filepath.Join(dir, "afluencia.csv")
	kmlPath = filepath.Join(dir, "stations.kml")
	require.NoError(t, os.WriteFile(csvPath, []byte("fecha,linea,estacion,afluencia\n2024-01-15,Línea 1,Balderas,100\n"), 0o644))
	require.NoError(t, os.WriteFile(kmlPath, []byte(loaderKML), 0o644))
	return csvPath, kmlPath
}

func TestLoaderMemoizes(t *testing.T) {
	csvPath, kmlPath := writeSources(t)
	l := NewLoader(csvPath, kmlPath, normalize.New(), time.Minute)

	ds1, err := l.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, ds1.Records(), 1)

	ds2, err := l.Load(context.Background())
	require.NoError(t, err)
	assert.Same(t, ds1, ds2)
}

func TestLoaderReloadsOnSourceChange(t *testing.T) {
	csvPath, kmlPath := writeSources(t)
	l := NewLoader(csvPath, kmlPath, normalize.New(), time.Minute)

	ds1, err := l.Load(context.Background())
	require.NoError(t, err)

	// Rewrite the CSV with a future mtime so the source key changes.
	require.NoError(t, os.WriteFile(csvPath, []byte("fecha,linea,estacion,afluencia\n2024-01-15,Línea 1,Balderas,100\n2024-02-15,Línea 1,Balderas,200\n"), 0o644))
	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(csvPath, future, future))

	ds2, err := l.Load(context.Background())
	require.NoError(t, err)
	assert.NotSame(t, ds1, ds2)
	assert.Len(t, ds2.Records(), 2)
}

func TestLoaderJoins(t *testing.T) {
	csvPath, kmlPath := writeSources(t)
	l := NewLoader(csvPath, kmlPath, normalize.New(), time.Minute)

	ds, err := l.Load(context.Background())
	require.NoError(t, err)

	rows := ds.Filter("linea 1", "2024-01", "2024-01")
	require.Len(t, rows, 1)
	assert.Equal(t, "balderas", rows[0].StationKey)
	assert.True(t, rows[0].HasGeometry)
	assert.Equal(t, 0, ds.RidershipOnly)
}

func TestLoaderMissingSource(t *testing.T) {
	csvPath, _ := writeSources(t)
	l := NewLoader(csvPath, filepath.Join(t.TempDir(), "nope.kml"), normalize.New(), time.Minute)

	_, err := l.Load(context.Background())
	require.Error(t, err)
}

func TestLoaderUnsupportedExtension(t *testing.T) {
	csvPath, _ := writeSources(t)
	bad := filepath.Join(t.TempDir(), "stations.geojson")
	require.NoError(t, os.WriteFile(bad, []byte("{}"), 0o644))

	l := NewLoader(csvPath, bad, normalize.New(), time.Minute)
	_, err := l.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported")
}
