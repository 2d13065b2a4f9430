package catalog

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/x2s-labs/x2s/pkg/dialect"
)

// Rewrite applies a function rule to already-rendered argument SQL and
// returns the replacement text. The second return is false when the
// rule cannot apply (wrong arity, missing template index), in which
// case the caller keeps the original call and records a warning.
func Rewrite(rule FunctionRule, args []string, d *dialect.Dialect) (string, bool) {
	if len(args) < rule.MinArgs {
		return "", false
	}

	switch strings.ToLower(rule.Handler) {
	case HandlerTemplate:
		tmpl := rule.TemplateFor(d.Name)
		if tmpl == "" {
			return "", false
		}
		return expandTemplate(tmpl, args)

	case HandlerRename:
		if rule.Target == "" {
			return "", false
		}
		return fmt.Sprintf("%s(%s)", rule.Target, strings.Join(args, ", ")), true

	case HandlerConcat:
		if len(args) < 2 {
			return "", false
		}
		parts := make([]string, len(args))
		for i, a := range args {
			parts[i] = fmt.Sprintf("COALESCE(%s, '')", a)
		}
		return strings.Join(parts, " "+d.ConcatOperator+" "), true

	case HandlerRegexpLike:
		if len(args) == 0 {
			return "", false
		}
		pattern := "'*'"
		if len(args) > 1 {
			pattern = args[1]
		}
		// Glob-style pattern: * and ? become regex wildcards, anchored.
		translated := fmt.Sprintf(
			"'^' %[1]s REPLACE(REPLACE(%[2]s, '*', '.*'), '?', '.') %[1]s '$'",
			d.ConcatOperator, pattern)
		return fmt.Sprintf("REGEXP_LIKE(%s, %s)", args[0], translated), true

	case HandlerInList:
		if len(args) < 2 {
			return "", false
		}
		target := args[0]
		options := make([]string, len(args)-1)
		for i, a := range args[1:] {
			options[i] = normalizeScalar(a)
		}
		return fmt.Sprintf("(%s IN (%s))", target, strings.Join(options, ", ")), true
	}

	return "", false
}

// expandTemplate substitutes {0}, {1}, ... placeholders with argument
// text. A placeholder with no matching argument fails the rewrite.
func expandTemplate(tmpl string, args []string) (string, bool) {
	var b strings.Builder
	for i := 0; i < len(tmpl); {
		if tmpl[i] == '{' {
			end := strings.IndexByte(tmpl[i:], '}')
			if end > 1 {
				idx, err := strconv.Atoi(tmpl[i+1 : i+end])
				if err == nil {
					if idx < 0 || idx >= len(args) {
						return "", false
					}
					b.WriteString(args[idx])
					i += end + 1
					continue
				}
			}
		}
		b.WriteByte(tmpl[i])
		i++
	}
	return b.String(), true
}

// normalizeScalar converts double-quoted literals to single-quoted so
// list members render as SQL string literals rather than identifiers.
func normalizeScalar(arg string) string {
	trimmed := strings.TrimSpace(arg)
	if len(trimmed) >= 2 && trimmed[0] == '"' && trimmed[len(trimmed)-1] == '"' {
		inner := strings.ReplaceAll(trimmed[1:len(trimmed)-1], "'", "''")
		return "'" + inner + "'"
	}
	return trimmed
}
