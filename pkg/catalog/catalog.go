// Package catalog provides the declarative rewrite-rule table used to
// translate source-system formula functions into target-dialect SQL.
//
// A Catalog holds two rule kinds: function rules, keyed by function
// name and applied during bottom-up expression translation, and
// pattern rules, regex rewrites applied to raw formula text before it
// is parsed. The catalog is loaded once and never mutated afterwards,
// so it is safe to share across concurrent conversions.
package catalog

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Handler names recognized in function rules.
const (
	HandlerTemplate   = "template"
	HandlerRename     = "rename"
	HandlerConcat     = "concat"
	HandlerRegexpLike = "regexp_like"
	HandlerInList     = "in_list"
)

// FunctionRule rewrites a single function call. Handler selects the
// rewrite strategy; Template and Target feed the template and rename
// handlers. Dialects optionally overrides Template per target dialect.
type FunctionRule struct {
	Name        string            `koanf:"name"`
	Handler     string            `koanf:"handler"`
	Template    string            `koanf:"template"`
	Target      string            `koanf:"target"`
	MinArgs     int               `koanf:"min_args"`
	Dialects    map[string]string `koanf:"dialects"`
	Description string            `koanf:"description"`
}

// TemplateFor returns the rewrite template for the given dialect,
// falling back to the rule's default template.
func (r FunctionRule) TemplateFor(dialectName string) string {
	if t, ok := r.Dialects[strings.ToLower(dialectName)]; ok && t != "" {
		return t
	}
	return r.Template
}

// PatternRule is a regex rewrite applied to raw formula text before
// parsing. Replacements is keyed by dialect name; capture groups are
// referenced as $1, $2 in the replacement.
type PatternRule struct {
	Name         string            `koanf:"name"`
	Match        string            `koanf:"match"`
	Replacements map[string]string `koanf:"replacements"`
	Description  string            `koanf:"description"`

	re *regexp.Regexp
}

// Catalog is the immutable rule table. Function rules are keyed by
// uppercased name; pattern rules keep their declaration order because
// earlier patterns may consume text later ones would otherwise match.
type Catalog struct {
	functions map[string]FunctionRule
	patterns  []PatternRule
}

// New builds a catalog from explicit rule lists. Function names are
// uppercased, pattern regexes compiled case-insensitively. Invalid
// patterns are rejected.
func New(functions []FunctionRule, patterns []PatternRule) (*Catalog, error) {
	c := &Catalog{
		functions: make(map[string]FunctionRule, len(functions)),
	}
	for _, fr := range functions {
		if fr.Name == "" || fr.Handler == "" {
			continue
		}
		fr.Name = strings.ToUpper(fr.Name)
		c.functions[fr.Name] = fr
	}
	for _, pr := range patterns {
		if pr.Name == "" || pr.Match == "" {
			continue
		}
		re, err := regexp.Compile("(?i)" + pr.Match)
		if err != nil {
			return nil, fmt.Errorf("pattern rule %q: %w", pr.Name, err)
		}
		pr.re = re
		c.patterns = append(c.patterns, pr)
	}
	return c, nil
}

// Function looks up a function rule by name (case-insensitive).
func (c *Catalog) Function(name string) (FunctionRule, bool) {
	r, ok := c.functions[strings.ToUpper(name)]
	return r, ok
}

// FunctionCount returns the number of function rules.
func (c *Catalog) FunctionCount() int { return len(c.functions) }

// PatternCount returns the number of pattern rules.
func (c *Catalog) PatternCount() int { return len(c.patterns) }

// Functions returns all function rules sorted by name.
func (c *Catalog) Functions() []FunctionRule {
	out := make([]FunctionRule, 0, len(c.functions))
	for _, r := range c.functions {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Patterns returns the pattern rules in declaration order.
func (c *Catalog) Patterns() []PatternRule {
	out := make([]PatternRule, len(c.patterns))
	copy(out, c.patterns)
	return out
}

// ApplyPatterns runs every pattern rule that has a replacement for the
// given dialect over the formula text, in declaration order.
func (c *Catalog) ApplyPatterns(formula, dialectName string) string {
	result := formula
	key := strings.ToLower(dialectName)
	for _, pr := range c.patterns {
		repl, ok := pr.Replacements[key]
		if !ok || repl == "" {
			continue
		}
		result = pr.re.ReplaceAllString(result, repl)
	}
	return result
}
