// Package normalize produces the canonical station and line keys used to
// join the ridership source against the station geometry source. Both
// loaders must go through this package or the join silently misses.
package normalize

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// defaultAliases corrects known spelling mismatches between the ridership
// source and the KML station names. Keys and values are in already-normalized
// (lowercase, diacritic-free) form.
var defaultAliases = map[string]string{
	"terminal aerea":                   "terminal area",
	"lazaro cardenas":                  "l. cardenas",
	"ninos heroes/poder judicial cdmx": "ninos heroes",
	"uam azcapotzalco":                 "uam-azcapotzalco",
	"mixhiuca":                         "mixiuhca",
}

// Normalizer maps raw station/line names to canonical join keys. The zero
// value is not usable; construct with New.
type Normalizer struct {
	aliases map[string]string
	// patterns holds alias keys sorted longest-first so that overlapping
	// aliases resolve deterministically in a single pass, independent of
	// table declaration order.
	patterns []string
}

// New returns a Normalizer using the built-in alias table.
func New() *Normalizer {
	return NewWithAliases(nil)
}

// NewWithAliases returns a Normalizer whose alias table is the built-in one
// extended (and overridden) by extra. Alias keys in extra are themselves
// normalized before insertion so operator-supplied tables may contain
// accented text.
func NewWithAliases(extra map[string]string) *Normalizer {
	aliases := make(map[string]string, len(defaultAliases)+len(extra))
	for k, v := range defaultAliases {
		aliases[k] = v
	}
	for k, v := range extra {
		aliases[fold(k)] = fold(v)
	}

	patterns := make([]string, 0, len(aliases))
	for k := range aliases {
		patterns = append(patterns, k)
	}
	sort.Slice(patterns, func(i, j int) bool {
		if len(patterns[i]) != len(patterns[j]) {
			return len(patterns[i]) > len(patterns[j])
		}
		return patterns[i] < patterns[j]
	})

	return &Normalizer{aliases: aliases, patterns: patterns}
}

// Station returns the canonical key for a raw station name: lowercased,
// trimmed, diacritics stripped, then alias-corrected. It never fails.
func (n *Normalizer) Station(name string) string {
	return n.applyAliases(fold(name))
}

// applyAliases rewrites alias patterns in a single left-to-right pass,
// trying longer patterns first at each position. Emitted replacement text is
// never rescanned, so chained substitutions cannot occur and the result is
// independent of table declaration order.
func (n *Normalizer) applyAliases(s string) string {
	if rep, ok := n.aliases[s]; ok {
		return rep
	}

	var b strings.Builder
	i := 0
	for i < len(s) {
		matched := false
		for _, pat := range n.patterns {
			if strings.HasPrefix(s[i:], pat) {
				b.WriteString(n.aliases[pat])
				i += len(pat)
				matched = true
				break
			}
		}
		if !matched {
			b.WriteByte(s[i])
			i++
		}
	}
	return b.String()
}

// Line returns the canonical key for a raw line name as it appears in the
// ridership source (e.g. "Línea 1" -> "linea 1").
func (n *Normalizer) Line(name string) string {
	return fold(name)
}

// LineFromSuffix builds the canonical line key from the bare line identifier
// used by the geometry source (e.g. "01" -> "linea 1", "B" -> "linea b").
// Leading zeros are stripped so both sources land in the same key space.
func (n *Normalizer) LineFromSuffix(suffix string) string {
	s := strings.TrimLeft(fold(suffix), "0")
	return "linea " + s
}

// fold lowercases, trims, and strips combining marks via NFD decomposition.
// Transformers are stateful, so a fresh chain is built per call.
func fold(s string) string {
	folder := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(folder, strings.TrimSpace(strings.ToLower(s)))
	if err != nil {
		// The chain cannot fail on valid UTF-8.
		return strings.TrimSpace(strings.ToLower(s))
	}
	return out
}
