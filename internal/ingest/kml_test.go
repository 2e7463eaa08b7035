package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkfnx/dashboard-afluencia-metro-cdmx/internal/normalize"
)

const stationsKML = `<?xml version="1.0" encoding="UTF-8"?>
<kml xmlns="http://www.opengis.net/kml/2.2">
<Document>
  <Folder>
    <Placemark>
      <name>Balderas</name>
      <description><![CDATA[<table><tr><td>NOMBRE</td><td>Balderas</td></tr><tr><td>LINEA</td><td>01</td></tr></table>]]></description>
      <Point><coordinates>-99.149,19.427,0</coordinates></Point>
    </Placemark>
    <Placemark>
      <name>Terminal Aérea</name>
      <description><![CDATA[<table><tr><td>NOMBRE</td><td>Terminal Aérea</td></tr><tr><td>LINEA</td><td>05</td></tr></table>]]></description>
      <Point><coordinates>-99.086,19.434</coordinates></Point>
    </Placemark>
    <Placemark>
      <name>Route overlay</name>
      <description><![CDATA[not a station]]></description>
      <LineString><coordinates>-99.1,19.4 -99.2,19.5</coordinates></LineString>
    </Placemark>
  </Folder>
</Document>
</kml>`

func TestParseKML(t *testing.T) {
	stations, err := parseKML(strings.NewReader(stationsKML), normalize.New())
	require.NoError(t, err)
	require.Len(t, stations, 2)

	assert.Equal(t, "Balderas", stations[0].Station)
	assert.Equal(t, "balderas", stations[0].StationKey)
	assert.Equal(t, "linea 1", stations[0].LineKey)
	assert.InDelta(t, -99.149, stations[0].Lon(), 1e-9)
	assert.InDelta(t, 19.427, stations[0].Lat(), 1e-9)

	// Alias correction and leading-zero stripping.
	assert.Equal(t, "terminal area", stations[1].StationKey)
	assert.Equal(t, "linea 5", stations[1].LineKey)
}

func TestParseKMLMissingLabel(t *testing.T) {
	kml := `<kml><Document><Placemark>
	  <name>Broken</name>
	  <description><![CDATA[<table><tr><td>NOMBRE</td><td>Balderas</td></tr></table>]]></description>
	  <Point><coordinates>-99.1,19.4</coordinates></Point>
	</Placemark></Document></kml>`

	_, err := parseKML(strings.NewReader(kml), normalize.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LINEA")
}

func TestParseKMLMalformedCoordinates(t *testing.T) {
	kml := `<kml><Document><Placemark>
	  <description><![CDATA[<table><tr><td>NOMBRE</td><td>X</td></tr><tr><td>LINEA</td><td>1</td></tr></table>]]></description>
	  <Point><coordinates>garbage</coordinates></Point>
	</Placemark></Document></kml>`

	_, err := parseKML(strings.NewReader(kml), normalize.New())
	require.Error(t, err)
}

func TestDescriptionValue(t *testing.T) {
	frag := `<center><table><tr><td>NOMBRE</td><td> Pino Suárez </td></tr>
	<tr><td>LINEA</td><td>02</td></tr></table></center>`

	name, err := descriptionValue(frag, "NOMBRE")
	require.NoError(t, err)
	assert.Equal(t, "Pino Suárez", name)

	line, err := descriptionValue(frag, "LINEA")
	require.NoError(t, err)
	assert.Equal(t, "02", line)
}

func TestDescriptionValueUnclosedCells(t *testing.T) {
	// Real-world KML descriptions are frequently malformed; the tolerant
	// parser must still find the labeled cell.
	frag := `<table><tr><td>NOMBRE<td>Balderas<tr><td>LINEA<td>01</table>`

	name, err := descriptionValue(frag, "NOMBRE")
	require.NoError(t, err)
	assert.Equal(t, "Balderas", name)
}

func TestDescriptionValueMissingValueCell(t *testing.T) {
	_, err := descriptionValue(`<table><tr><td>NOMBRE</td></tr></table>`, "NOMBRE")
	require.Error(t, err)
}
