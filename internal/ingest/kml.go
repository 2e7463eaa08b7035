package ingest

import (
	"encoding/xml"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/mkfnx/dashboard-afluencia-metro-cdmx/internal/model"
	"github.com/mkfnx/dashboard-afluencia-metro-cdmx/internal/normalize"
)

// Labels of the description-markup cells carrying the station and line names.
const (
	labelStation = "NOMBRE"
	labelLine    = "LINEA"
)

// kmlPlacemark is one Placemark element. Placemarks without a Point are not
// station features and are skipped.
type kmlPlacemark struct {
	Name        string `xml:"name"`
	Description string `xml:"description"`
	Coordinates string `xml:"Point>coordinates"`
}

// LoadStationsKML reads station point features from a KML file. Station and
// line names come from the embedded description markup: the cell labeled
// NOMBRE (resp. LINEA) followed by its value cell. A point feature whose
// description lacks either label is a malformed-input error.
func LoadStationsKML(path string, n *normalize.Normalizer) ([]model.StationGeometry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: open kml %s", path)
	}
	defer f.Close() //nolint:errcheck

	return parseKML(f, n)
}

func parseKML(r io.Reader, n *normalize.Normalizer) ([]model.StationGeometry, error) {
	decoder := xml.NewDecoder(r)

	var stations []model.StationGeometry
	var skipped int
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "ingest: read kml token")
		}

		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "Placemark" {
			continue
		}

		var pm kmlPlacemark
		if err := decoder.DecodeElement(&pm, &se); err != nil {
			return nil, eris.Wrap(err, "ingest: decode placemark")
		}
		if strings.TrimSpace(pm.Coordinates) == "" {
			skipped++
			continue
		}

		station, err := placemarkStation(pm, n)
		if err != nil {
			return nil, err
		}
		stations = append(stations, station)
	}

	zap.L().Info("stations loaded from kml",
		zap.Int("stations", len(stations)),
		zap.Int("non_point_features", skipped),
	)
	return stations, nil
}

func placemarkStation(pm kmlPlacemark, n *normalize.Normalizer) (model.StationGeometry, error) {
	name, err := descriptionValue(pm.Description, labelStation)
	if err != nil {
		return model.StationGeometry{}, eris.Wrapf(err, "ingest: placemark %q", pm.Name)
	}
	line, err := descriptionValue(pm.Description, labelLine)
	if err != nil {
		return model.StationGeometry{}, eris.Wrapf(err, "ingest: placemark %q", pm.Name)
	}

	point, err := parseCoordinates(pm.Coordinates)
	if err != nil {
		return model.StationGeometry{}, eris.Wrapf(err, "ingest: placemark %q", pm.Name)
	}

	return model.StationGeometry{
		Station:    name,
		Line:       line,
		Point:      point,
		StationKey: n.Station(name),
		LineKey:    n.LineFromSuffix(line),
	}, nil
}

// parseCoordinates parses a KML coordinate tuple "lon,lat[,alt]".
func parseCoordinates(s string) (*geom.Point, error) {
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) < 2 {
		return nil, eris.Errorf("malformed coordinates %q", s)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return nil, eris.Wrapf(err, "longitude %q", parts[0])
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return nil, eris.Wrapf(err, "latitude %q", parts[1])
	}
	return geom.NewPointFlat(geom.XY, []float64{lon, lat}), nil
}
