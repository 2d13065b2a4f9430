package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/x2s-labs/x2s/pkg/dialects/hana"
	_ "github.com/x2s-labs/x2s/pkg/dialects/snowflake"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "x2s.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	Reset()
	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "hana", cfg.Dialect)
	assert.Equal(t, "high", cfg.Autocorrect.Confidence)
	assert.False(t, cfg.Autocorrect.Enabled)
	assert.Equal(t, "text", cfg.Output)
	assert.False(t, cfg.Strict)
}

func TestLoadConfigFile(t *testing.T) {
	Reset()
	path := writeConfig(t, `
dialect: snowflake
target_schema: MIGRATED
schema_map:
  SAPABAP1: RAW_SAP
params:
  IP_COUNTRY: "'DE'"
autocorrect:
  enabled: true
  confidence: medium
strict: true
`)

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "snowflake", cfg.Dialect)
	assert.Equal(t, "MIGRATED", cfg.TargetSchema)
	assert.Equal(t, map[string]string{"SAPABAP1": "RAW_SAP"}, cfg.SchemaMap)
	assert.Equal(t, map[string]string{"IP_COUNTRY": "'DE'"}, cfg.Params)
	assert.True(t, cfg.Autocorrect.Enabled)
	assert.Equal(t, "medium", cfg.Autocorrect.Confidence)
	assert.True(t, cfg.Strict)
	assert.Equal(t, path, ConfigFileUsed())
}

func TestLoadEnvOverridesFile(t *testing.T) {
	Reset()
	path := writeConfig(t, "dialect: hana\n")

	t.Setenv("X2S_DIALECT", "snowflake")
	t.Setenv("X2S_AUTOCORRECT__CONFIDENCE", "low")

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "snowflake", cfg.Dialect)
	assert.Equal(t, "low", cfg.Autocorrect.Confidence)
}

func TestLoadFlagsOverrideEnv(t *testing.T) {
	Reset()
	t.Setenv("X2S_DIALECT", "snowflake")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("dialect", DefaultDialect, "")
	flags.Bool("autocorrect", false, "")
	flags.String("confidence", DefaultConfidence, "")
	require.NoError(t, flags.Parse([]string{"--dialect", "hana", "--autocorrect", "--confidence", "medium"}))

	cfg, err := Load("", flags)
	require.NoError(t, err)

	assert.Equal(t, "hana", cfg.Dialect)
	assert.True(t, cfg.Autocorrect.Enabled)
	assert.Equal(t, "medium", cfg.Autocorrect.Confidence)
}

func TestLoadUnsetFlagsDoNotOverride(t *testing.T) {
	Reset()
	path := writeConfig(t, "dialect: snowflake\n")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("dialect", DefaultDialect, "")
	require.NoError(t, flags.Parse(nil))

	cfg, err := Load(path, flags)
	require.NoError(t, err)
	assert.Equal(t, "snowflake", cfg.Dialect)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"unknown dialect", func(c *Config) { c.Dialect = "oracle" }, "unknown dialect"},
		{"bad confidence", func(c *Config) { c.Autocorrect.Confidence = "certain" }, "confidence"},
		{"bad output", func(c *Config) { c.Output = "xml" }, "output format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Dialect:     DefaultDialect,
				Autocorrect: AutocorrectConfig{Confidence: DefaultConfidence},
				Output:      DefaultOutput,
			}
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	Reset()
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}
