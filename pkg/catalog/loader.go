package catalog

import (
	"fmt"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// ruleFile is the YAML shape of a catalog rule file.
type ruleFile struct {
	Functions []FunctionRule `koanf:"functions"`
	Patterns  []PatternRule  `koanf:"patterns"`
}

// Load builds a catalog from the built-in rules plus an optional YAML
// rule file. File function rules override built-ins with the same name;
// file pattern rules run after the built-in ones. Passing an empty path
// returns the built-in catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Builtin(), nil
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("loading catalog file %s: %w", path, err)
	}

	var rf ruleFile
	if err := k.Unmarshal("", &rf); err != nil {
		return nil, fmt.Errorf("parsing catalog file %s: %w", path, err)
	}

	functions := append(append([]FunctionRule{}, builtinFunctions...), rf.Functions...)
	patterns := append(append([]PatternRule{}, builtinPatterns...), rf.Patterns...)
	return New(functions, patterns)
}
