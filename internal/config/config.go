// Package config loads conversion settings from file, environment and
// flags with the precedence flags > env > config file > defaults.
package config

import (
	"fmt"

	"github.com/x2s-labs/x2s/internal/sqlcheck"
	"github.com/x2s-labs/x2s/pkg/dialect"
)

// Defaults applied before any other source.
const (
	DefaultDialect    = "hana"
	DefaultConfidence = string(sqlcheck.ConfidenceHigh)
	DefaultOutput     = "text"
)

// Config is the fully resolved tool configuration.
type Config struct {
	// Dialect names the target SQL dialect.
	Dialect string `koanf:"dialect"`
	// Catalog optionally points to a YAML function-rule overlay.
	Catalog string `koanf:"catalog"`

	// SchemaMap maps logical schema names to physical ones.
	SchemaMap map[string]string `koanf:"schema_map"`
	// TargetSchema, when set, replaces every schema reference.
	TargetSchema string `koanf:"target_schema"`
	Client       string `koanf:"client"`
	Language     string `koanf:"language"`
	// Params supplies input-parameter values by name.
	Params map[string]string `koanf:"params"`

	// CreateView wraps output in the dialect's view DDL.
	CreateView bool `koanf:"create_view"`
	// ViewName overrides the scenario ID as the view name.
	ViewName string `koanf:"view_name"`

	// Strict turns validation errors into conversion failures.
	Strict bool `koanf:"strict"`

	Autocorrect AutocorrectConfig `koanf:"autocorrect"`

	// Output selects the report format (text or json).
	Output  string `koanf:"output"`
	Verbose bool   `koanf:"verbose"`
}

// AutocorrectConfig controls automatic SQL correction.
type AutocorrectConfig struct {
	Enabled bool `koanf:"enabled"`
	// Confidence is the minimum fix confidence to apply: high,
	// medium or low.
	Confidence string `koanf:"confidence"`
}

// Validate rejects configurations the engine cannot honor.
func (c *Config) Validate() error {
	if _, ok := dialect.Get(c.Dialect); !ok {
		return fmt.Errorf("unknown dialect %q (registered: %v)", c.Dialect, dialect.List())
	}
	switch sqlcheck.Confidence(c.Autocorrect.Confidence) {
	case sqlcheck.ConfidenceHigh, sqlcheck.ConfidenceMedium, sqlcheck.ConfidenceLow:
	default:
		return fmt.Errorf("invalid autocorrect confidence %q (use high, medium or low)", c.Autocorrect.Confidence)
	}
	if c.Output != "text" && c.Output != "json" {
		return fmt.Errorf("invalid output format %q (use text or json)", c.Output)
	}
	return nil
}
