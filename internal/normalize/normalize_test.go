package normalize

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStation(t *testing.T) {
	n := New()
	tests := []struct {
		input, expected string
	}{
		{"Pino Suárez", "pino suarez"},
		{"  Balderas  ", "balderas"},
		{"Terminal Aérea", "terminal area"},
		{"Lázaro Cárdenas", "l. cardenas"},
		{"Niños Héroes/Poder Judicial CDMX", "ninos heroes"},
		{"UAM Azcapotzalco", "uam-azcapotzalco"},
		{"Mixhiuca", "mixiuhca"},
		{"Cuatro Caminos", "cuatro caminos"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, n.Station(tt.input), "input: %q", tt.input)
	}
}

func TestStationIdempotent(t *testing.T) {
	n := New()
	inputs := []string{
		"Pino Suárez", "Terminal Aérea", "Lázaro Cárdenas", "Mixhiuca",
		"UAM Azcapotzalco", "Niños Héroes/Poder Judicial CDMX", "Zócalo",
	}
	for _, in := range inputs {
		once := n.Station(in)
		assert.Equal(t, once, n.Station(once), "input: %q", in)
	}
}

func TestLine(t *testing.T) {
	n := New()
	assert.Equal(t, "linea 1", n.Line("Línea 1"))
	assert.Equal(t, "linea b", n.Line("  LÍNEA B "))
}

func TestLineFromSuffix(t *testing.T) {
	n := New()
	tests := []struct {
		input, expected string
	}{
		{"01", "linea 1"},
		{"1", "linea 1"},
		{"12", "linea 12"},
		{"B", "linea b"},
		{"A", "linea a"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, n.LineFromSuffix(tt.input), "input: %q", tt.input)
	}
}

func TestAliasLongestMatchFirst(t *testing.T) {
	// Overlapping aliases must resolve by pattern length, not table order.
	n := NewWithAliases(map[string]string{
		"centro medico":          "centro medico nacional",
		"centro medico nacional": "centro medico nacional",
	})
	assert.Equal(t, "centro medico nacional", n.Station("Centro Médico Nacional"))
	assert.Equal(t, "centro medico nacional", n.Station("Centro Médico"))
}

func TestLoadAliases(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "aliases.yaml")
	require.NoError(t, os.WriteFile(path, []byte("aliases:\n  \"refineria\": \"refineria 18 de marzo\"\n"), 0o644))

	n, err := LoadAliases(path)
	require.NoError(t, err)
	assert.Equal(t, "refineria 18 de marzo", n.Station("Refinería"))
	// Built-in table still applies.
	assert.Equal(t, "mixiuhca", n.Station("Mixhiuca"))
}

func TestLoadAliasesEmptyPath(t *testing.T) {
	n, err := LoadAliases("")
	require.NoError(t, err)
	assert.Equal(t, "balderas", n.Station("Balderas"))
}

func TestLoadAliasesMissingFile(t *testing.T) {
	_, err := LoadAliases(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
