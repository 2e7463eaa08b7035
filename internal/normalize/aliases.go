package normalize

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// aliasFile is the on-disk shape of an operator-supplied alias table.
type aliasFile struct {
	Aliases map[string]string `yaml:"aliases"`
}

// LoadAliases reads an alias table from a YAML file of the form:
//
//	aliases:
//	  "terminal aérea": "terminal area"
//
// and returns a Normalizer extended with it. An empty path returns the
// default Normalizer.
func LoadAliases(path string) (*Normalizer, error) {
	if path == "" {
		return New(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "normalize: read alias file %s", path)
	}

	var f aliasFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrapf(err, "normalize: parse alias file %s", path)
	}

	return NewWithAliases(f.Aliases), nil
}
