package ingest

import (
	"strings"

	shp "github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/mkfnx/dashboard-afluencia-metro-cdmx/internal/model"
	"github.com/mkfnx/dashboard-afluencia-metro-cdmx/internal/normalize"
)

// LoadStationsShapefile reads station point features from a shapefile whose
// attribute table carries NOMBRE and LINEA fields. It is the alternate
// geometry source for agencies that publish shapefiles instead of KML.
func LoadStationsShapefile(path string, n *normalize.Normalizer) ([]model.StationGeometry, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	nameIdx := fieldIndex(reader, labelStation)
	lineIdx := fieldIndex(reader, labelLine)
	if nameIdx < 0 || lineIdx < 0 {
		return nil, eris.Errorf("ingest: shapefile %s missing required fields (%s, %s)", path, labelStation, labelLine)
	}

	var stations []model.StationGeometry
	var skipped int
	for reader.Next() {
		_, shape := reader.Shape()
		point, ok := shape.(*shp.Point)
		if !ok {
			skipped++
			continue
		}

		name := strings.TrimSpace(reader.Attribute(nameIdx))
		line := strings.TrimSpace(reader.Attribute(lineIdx))
		if name == "" || line == "" {
			return nil, eris.Errorf("ingest: shapefile %s: feature with empty %s or %s", path, labelStation, labelLine)
		}

		stations = append(stations, model.StationGeometry{
			Station:    name,
			Line:       line,
			Point:      geom.NewPointFlat(geom.XY, []float64{point.X, point.Y}),
			StationKey: n.Station(name),
			LineKey:    n.LineFromSuffix(line),
		})
	}

	zap.L().Info("stations loaded from shapefile",
		zap.String("path", path),
		zap.Int("stations", len(stations)),
		zap.Int("non_point_features", skipped),
	)
	return stations, nil
}

// fieldIndex returns the index of a named field in the shapefile, or -1.
func fieldIndex(reader *shp.Reader, name string) int {
	for i, f := range reader.Fields() {
		if strings.EqualFold(strings.TrimRight(f.String(), "\x00"), name) {
			return i
		}
	}
	return -1
}
