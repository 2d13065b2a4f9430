// Package translate rewrites calculated-column formulas into
// target-dialect SQL. Pattern rules run first over the raw text, then
// the formula is parsed into an expression tree and translated bottom
// up: arguments are rewritten before the calls that contain them, so
// nested helper calls are converted at every depth, not just the
// outermost one.
package translate

import (
	"regexp"
	"strings"

	"github.com/x2s-labs/x2s/pkg/catalog"
	"github.com/x2s-labs/x2s/pkg/dialect"
	"github.com/x2s-labs/x2s/pkg/ir"
)

// Translator rewrites formulas for one target dialect. It is a pure
// function of its inputs and holds no per-call state, so a single
// instance may serve concurrent conversions.
type Translator struct {
	Dialect  *dialect.Dialect
	Catalog  *catalog.Catalog
	Client   string
	Language string
	// Params are supplied input-parameter values; Defaults come from
	// the scenario's parameter declarations.
	Params   map[string]string
	Defaults map[string]string
}

// placeholderRe matches $$name$$ substitution markers.
var placeholderRe = regexp.MustCompile(`\$\$([A-Za-z_][A-Za-z0-9_]*)\$\$`)

// portableFunctions render identically across the supported dialects
// and pass through without a catalog rule or a warning.
var portableFunctions = map[string]struct{}{
	"ABS": {}, "ADD_DAYS": {}, "ADD_MONTHS": {}, "AVG": {}, "CAST": {},
	"CEIL": {}, "COALESCE": {}, "COUNT": {}, "DAYS_BETWEEN": {},
	"FLOOR": {}, "LEFT": {}, "LENGTH": {}, "LOWER": {}, "LPAD": {},
	"LTRIM": {}, "MAX": {}, "MIN": {}, "MOD": {}, "REGEXP_LIKE": {},
	"REPLACE": {}, "RIGHT": {}, "ROUND": {}, "RPAD": {}, "RTRIM": {},
	"SUBSTR": {}, "SUBSTRING": {}, "SUM": {}, "TO_DATE": {},
	"TO_DECIMAL": {}, "TO_INTEGER": {}, "TO_TIMESTAMP": {},
	"TO_VARCHAR": {}, "TRIM": {}, "UPPER": {},
}

// TranslateFormula rewrites a raw formula string into dialect SQL.
// Unresolved input-parameter placeholders are an error; unmatched
// functions pass through with a warning.
func (t *Translator) TranslateFormula(formula string) (string, []Warning, error) {
	substituted, err := t.substitutePlaceholders(formula)
	if err != nil {
		return "", nil, err
	}

	substituted = t.Catalog.ApplyPatterns(substituted, t.Dialect.Name)

	expr, err := ParseFormula(substituted)
	if err != nil {
		return "", nil, err
	}

	sql, warnings := t.Render(expr)
	return sql, warnings, nil
}

// substitutePlaceholders replaces $$client$$, $$language$$, and input
// parameter markers with literal text. Supplied values win over
// declared defaults; a parameter with neither is an error.
func (t *Translator) substitutePlaceholders(formula string) (string, error) {
	var missing string
	result := placeholderRe.ReplaceAllStringFunc(formula, func(m string) string {
		name := placeholderRe.FindStringSubmatch(m)[1]
		switch strings.ToLower(name) {
		case "client":
			return t.Client
		case "language":
			return t.Language
		}
		if v, ok := t.Params[name]; ok {
			return v
		}
		if v, ok := t.Defaults[name]; ok {
			return v
		}
		if missing == "" {
			missing = name
		}
		return m
	})
	if missing != "" {
		return "", &FormulaError{
			Formula: formula,
			Pos:     strings.Index(formula, "$$"+missing+"$$"),
			Message: "input parameter " + missing + " has no supplied value and no default",
		}
	}
	return result, nil
}

// Render produces dialect SQL for an expression tree, bottom up.
func (t *Translator) Render(expr *ir.Expression) (string, []Warning) {
	var warnings []Warning
	sql := t.render(expr, &warnings)
	return sql, warnings
}

func (t *Translator) render(expr *ir.Expression, warnings *[]Warning) string {
	switch expr.Kind {
	case ir.ExprColumn:
		return `"` + strings.ToUpper(expr.Value) + `"`

	case ir.ExprLiteral, ir.ExprRaw:
		return expr.Value

	case ir.ExprOperator:
		return t.renderOperator(expr, warnings)

	case ir.ExprFunction:
		return t.renderFunction(expr, warnings)
	}
	return expr.Value
}

func (t *Translator) renderFunction(expr *ir.Expression, warnings *[]Warning) string {
	// Arguments first. A rule applied here sees already-translated
	// argument text, which is what makes nested helper calls convert
	// at every level.
	args := make([]string, len(expr.Args))
	for i, a := range expr.Args {
		args[i] = t.render(a, warnings)
	}

	if rule, ok := t.Catalog.Function(expr.Value); ok {
		if out, ok := catalog.Rewrite(rule, args, t.Dialect); ok {
			return out
		}
		*warnings = append(*warnings, Warning{
			Function: expr.Value,
			Message:  "catalog rule did not apply (argument count?); call kept as-is",
		})
		return expr.Value + "(" + strings.Join(args, ", ") + ")"
	}

	if _, ok := portableFunctions[expr.Value]; !ok {
		*warnings = append(*warnings, Warning{
			Function: expr.Value,
			Message:  "no catalog rule; call passed through unchanged",
		})
	}
	return expr.Value + "(" + strings.Join(args, ", ") + ")"
}

func (t *Translator) renderOperator(expr *ir.Expression, warnings *[]Warning) string {
	switch expr.Value {
	case "NOT":
		return "NOT " + t.renderOperand(expr.Args[0], precNot, warnings)
	case "NEG":
		return "-" + t.renderOperand(expr.Args[0], precUnary, warnings)
	case "IS NULL", "IS NOT NULL":
		return "(" + t.render(expr.Args[0], warnings) + " " + expr.Value + ")"
	}

	op := expr.Value
	prec := operatorPrec(op)
	left := t.renderOperand(expr.Args[0], prec, warnings)
	right := t.renderOperand(expr.Args[1], prec, warnings)

	switch op {
	case "||":
		op = t.Dialect.ConcatOperator
	case "+":
		// Source formulas overload + for string concatenation.
		if isStringish(expr.Args[0]) || isStringish(expr.Args[1]) {
			op = t.Dialect.ConcatOperator
		}
	}

	return left + " " + op + " " + right
}

func (t *Translator) renderOperand(arg *ir.Expression, parentPrec int, warnings *[]Warning) string {
	rendered := t.render(arg, warnings)
	if arg.Kind == ir.ExprOperator && operatorPrec(arg.Value) < parentPrec {
		return "(" + rendered + ")"
	}
	return rendered
}

func operatorPrec(symbol string) int {
	switch symbol {
	case "OR":
		return precOr
	case "AND":
		return precAnd
	case "NOT":
		return precNot
	case "=", "!=", "<>", "<", ">", "<=", ">=", "LIKE", "IS NULL", "IS NOT NULL":
		return precCompare
	case "+", "-", "||":
		return precAdd
	case "*", "/", "%":
		return precMul
	case "NEG":
		return precUnary
	}
	return precLowest
}

// isStringish reports whether an operand is a string literal or a
// concatenation of one.
func isStringish(expr *ir.Expression) bool {
	switch expr.Kind {
	case ir.ExprLiteral:
		return strings.HasPrefix(expr.Value, "'")
	case ir.ExprOperator:
		if expr.Value == "||" || expr.Value == "+" {
			return isStringish(expr.Args[0]) || isStringish(expr.Args[1])
		}
	}
	return false
}
