package catalog_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/x2s-labs/x2s/pkg/catalog"
	"github.com/x2s-labs/x2s/pkg/dialect"
	_ "github.com/x2s-labs/x2s/pkg/dialects/hana"
	_ "github.com/x2s-labs/x2s/pkg/dialects/snowflake"
)

func mustDialect(t *testing.T, name string) *dialect.Dialect {
	t.Helper()
	d, err := dialect.MustGet(name)
	require.NoError(t, err)
	return d
}

func TestBuiltinLookup(t *testing.T) {
	c := catalog.Builtin()

	rule, ok := c.Function("leftstr")
	require.True(t, ok, "lookup is case-insensitive")
	assert.Equal(t, "LEFTSTR", rule.Name)

	_, ok = c.Function("NO_SUCH_HELPER")
	assert.False(t, ok)
}

func TestRewriteTemplate(t *testing.T) {
	c := catalog.Builtin()
	sf := mustDialect(t, "snowflake")
	hd := mustDialect(t, "hana")

	rule, ok := c.Function("IF")
	require.True(t, ok)

	got, ok := catalog.Rewrite(rule, []string{`"FLAG" = 'X'`, "'yes'", "'no'"}, sf)
	require.True(t, ok)
	assert.Equal(t, `IFF("FLAG" = 'X', 'yes', 'no')`, got)

	got, ok = catalog.Rewrite(rule, []string{`"FLAG" = 'X'`, "'yes'", "'no'"}, hd)
	require.True(t, ok)
	assert.Equal(t, `CASE WHEN "FLAG" = 'X' THEN 'yes' ELSE 'no' END`, got)

	// arity below the rule's minimum fails the rewrite
	_, ok = catalog.Rewrite(rule, []string{"'x'"}, sf)
	assert.False(t, ok)
}

func TestRewriteRename(t *testing.T) {
	c := catalog.Builtin()
	sf := mustDialect(t, "snowflake")

	rule, ok := c.Function("RIGHTSTR")
	require.True(t, ok)

	got, ok := catalog.Rewrite(rule, []string{`"CALMONTH"`, "2"}, sf)
	require.True(t, ok)
	assert.Equal(t, `RIGHT("CALMONTH", 2)`, got)
}

func TestRewriteConcat(t *testing.T) {
	c := catalog.Builtin()
	sf := mustDialect(t, "snowflake")

	rule, ok := c.Function("CONCAT")
	require.True(t, ok)

	got, ok := catalog.Rewrite(rule, []string{`"A"`, `"B"`}, sf)
	require.True(t, ok)
	assert.Equal(t, `COALESCE("A", '') || COALESCE("B", '')`, got)
}

func TestRewriteInList(t *testing.T) {
	c := catalog.Builtin()
	sf := mustDialect(t, "snowflake")

	rule, ok := c.Function("IN")
	require.True(t, ok)

	got, ok := catalog.Rewrite(rule, []string{`"VKORG"`, `"1000"`, "'2000'"}, sf)
	require.True(t, ok)
	assert.Equal(t, `("VKORG" IN ('1000', '2000'))`, got)
}

func TestRewriteRegexpLike(t *testing.T) {
	c := catalog.Builtin()
	sf := mustDialect(t, "snowflake")

	rule, ok := c.Function("MATCH")
	require.True(t, ok)

	got, ok := catalog.Rewrite(rule, []string{`"MATNR"`, "'AB*'"}, sf)
	require.True(t, ok)
	assert.Contains(t, got, "REGEXP_LIKE(\"MATNR\"")
	assert.Contains(t, got, "REPLACE(REPLACE('AB*', '*', '.*'), '?', '.')")
}

func TestApplyPatterns(t *testing.T) {
	c := catalog.Builtin()

	tests := []struct {
		name    string
		formula string
		dialect string
		want    string
	}{
		{
			"now minus days on hana",
			`NOW() - 365`,
			"hana",
			"ADD_DAYS(CURRENT_DATE, -365)",
		},
		{
			"now minus days on snowflake",
			`NOW() - 30`,
			"snowflake",
			"DATEADD(DAY, -30, CURRENT_DATE())",
		},
		{
			"empty date literal becomes null",
			`DATE('') <= "BUDAT"`,
			"hana",
			`NULL <= "BUDAT"`,
		},
		{
			"unmatched text passes through",
			`"NETWR" * 2`,
			"snowflake",
			`"NETWR" * 2`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.ApplyPatterns(tt.formula, tt.dialect))
		})
	}
}

func TestLoadOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	content := `
functions:
  - name: zhelper
    handler: rename
    target: MY_HELPER
  - name: leftstr
    handler: template
    template: "LEFT({0}, {1})"
    min_args: 2
patterns:
  - name: magic_token
    match: '\bMAGIC\b'
    replacements:
      snowflake: "42"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	c, err := catalog.Load(path)
	require.NoError(t, err)

	// new rule is added
	rule, ok := c.Function("ZHELPER")
	require.True(t, ok)
	assert.Equal(t, "MY_HELPER", rule.Target)

	// file rule overrides the built-in with the same name
	rule, ok = c.Function("LEFTSTR")
	require.True(t, ok)
	assert.Equal(t, "LEFT({0}, {1})", rule.Template)

	// file patterns run after built-in patterns
	assert.Equal(t, "42", c.ApplyPatterns("MAGIC", "snowflake"))
}

func TestLoadEmptyPathReturnsBuiltin(t *testing.T) {
	c, err := catalog.Load("")
	require.NoError(t, err)
	assert.Positive(t, c.FunctionCount())
	assert.Positive(t, c.PatternCount())
}

func TestLoadBadPattern(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	content := `
patterns:
  - name: broken
    match: '([unclosed'
    replacements:
      hana: "X"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := catalog.Load(path)
	assert.ErrorContains(t, err, "broken")
}
