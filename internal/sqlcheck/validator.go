// Package sqlcheck scans rendered SQL for known defect patterns and
// applies automatic fixes for the subset of findings that have a
// deterministic correction.
//
// Validation is advisory: a Report annotates the SQL without blocking
// it. Callers that want failing behavior check Report.HasErrors (or
// use Report.Err) themselves.
package sqlcheck

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/x2s-labs/x2s/pkg/dialect"
	"github.com/x2s-labs/x2s/pkg/ir"
)

// Severity classifies how serious an Issue is.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Stable issue codes. Consumers key corrections and reporting off
// these, so they never change once published.
const (
	CodeEmptySQL          = "EMPTY_SQL"
	CodeNoSelect          = "NO_SELECT"
	CodeUnbalancedParens  = "UNBALANCED_PARENTHESES"
	CodeUnbalancedQuotes  = "UNBALANCED_QUOTES"
	CodeDuplicateCTE      = "DUPLICATE_CTE"
	CodeNoSelectAfterCTE  = "NO_SELECT_AFTER_CTE"
	CodeUndefinedCTE      = "UNDEFINED_CTE_REFERENCE"
	CodeCartesianProduct  = "CARTESIAN_PRODUCT"
	CodeSelectStar        = "SELECT_STAR"
	CodeMissingWhere      = "MISSING_WHERE"
	CodeAggWithoutGroup   = "AGGREGATE_WITHOUT_GROUP_BY"
	CodeReservedIdent     = "RESERVED_KEYWORD_IDENTIFIER"
	CodeHighCTECount      = "HIGH_CTE_COUNT"
	CodeHighJoinCount     = "HIGH_JOIN_COUNT"
	CodeHighSubqueryCount = "HIGH_SUBQUERY_COUNT"
	CodeMixedStatements   = "MIXED_STATEMENT_TYPES"
	CodeForeignFunction   = "FOREIGN_FUNCTION"
	CodeForeignType       = "FOREIGN_TYPE"
	CodeInvalidViewDDL    = "INVALID_VIEW_DDL"
	CodeStringConcat      = "STRING_CONCAT_PLUS"
)

// Complexity thresholds above which the validator flags the SQL.
const (
	maxCTECount      = 20
	maxJoinCount     = 10
	maxSubqueryCount = 5
)

// Issue is a single validator finding.
type Issue struct {
	Severity Severity `json:"severity"`
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	// Line is 1-based; 0 when the issue has no single location.
	Line int `json:"line,omitempty"`
}

func (i Issue) String() string {
	if i.Line > 0 {
		return fmt.Sprintf("[%s] %s: %s (line %d)", i.Severity, i.Code, i.Message, i.Line)
	}
	return fmt.Sprintf("[%s] %s: %s", i.Severity, i.Code, i.Message)
}

// Report is the outcome of one validation pass.
type Report struct {
	Issues []Issue
}

// Errors returns the error-severity issues.
func (r Report) Errors() []Issue { return r.filter(SeverityError) }

// Warnings returns the warning-severity issues.
func (r Report) Warnings() []Issue { return r.filter(SeverityWarning) }

// HasErrors reports whether any issue has error severity.
func (r Report) HasErrors() bool { return len(r.Errors()) > 0 }

// Err converts the report into an error for strict-mode callers. It
// returns nil when no error-severity issue is present.
func (r Report) Err() error {
	errs := r.Errors()
	if len(errs) == 0 {
		return nil
	}
	return &ValidationError{Issues: errs}
}

func (r Report) filter(sev Severity) []Issue {
	var out []Issue
	for _, i := range r.Issues {
		if i.Severity == sev {
			out = append(out, i)
		}
	}
	return out
}

// ValidationError is returned by Report.Err in strict mode.
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	codes := make([]string, len(e.Issues))
	for i, is := range e.Issues {
		codes[i] = is.Code
	}
	return fmt.Sprintf("sql validation failed with %d error(s): %s", len(e.Issues), strings.Join(codes, ", "))
}

// Validator scans SQL text for structural, dialect and complexity
// problems. It never modifies the SQL.
type Validator struct {
	dialect *dialect.Dialect
}

// NewValidator creates a validator for the given target dialect.
func NewValidator(d *dialect.Dialect) *Validator {
	return &Validator{dialect: d}
}

var (
	cteDefRe     = regexp.MustCompile(`(?i)(?:\bWITH|,)\s*([A-Za-z_][A-Za-z0-9_]*)\s+AS\s*\(`)
	cteFinalRe   = regexp.MustCompile(`(?i)\)\s*(?:,\s*[A-Za-z_][A-Za-z0-9_]*\s+AS\s*\(|SELECT\b)`)
	fromRefRe    = regexp.MustCompile(`(?i)\b(?:FROM|JOIN)\s+([A-Za-z_][A-Za-z0-9_]*)\b\s*(\.|\()?`)
	cartesianRe  = regexp.MustCompile(`(?i)\bON\s+1\s*=\s*1\b`)
	selectStarRe = regexp.MustCompile(`(?i)\bSELECT\s+\*`)
	aggFuncRe    = regexp.MustCompile(`(?i)\b(?:SUM|AVG|MIN|MAX|COUNT)\s*\(`)
	aliasRe      = regexp.MustCompile(`(?i)\bAS\s+([A-Za-z_][A-Za-z0-9_]*)`)
	joinRe       = regexp.MustCompile(`(?i)\bJOIN\b`)
	subqueryRe   = regexp.MustCompile(`(?i)\(\s*SELECT\b`)
	dmlRe        = regexp.MustCompile(`(?i)\b(?:INSERT|UPDATE|DELETE)\b`)
	concatPlusRe = regexp.MustCompile(`'(?:[^']|'')*'\s*\+|\+\s*'(?:[^']|'')*'`)
	orReplaceRe  = regexp.MustCompile(`(?i)\bCREATE\s+OR\s+REPLACE\s+VIEW\b`)
)

// Validate scans sql and returns all findings. The scenario is
// optional context: when present it sharpens severities (SELECT * is a
// warning when the logical model declares an explicit attribute list,
// informational otherwise).
func (v *Validator) Validate(sql string, sc *ir.Scenario) Report {
	var rep Report

	if strings.TrimSpace(sql) == "" {
		rep.add(SeverityError, CodeEmptySQL, "SQL is empty", 0)
		return rep
	}
	upper := strings.ToUpper(sql)

	v.checkStructure(sql, upper, &rep)
	v.checkCTEs(sql, &rep)
	v.checkPatterns(sql, upper, sc, &rep)
	v.checkDialect(sql, &rep)
	v.checkComplexity(sql, &rep)
	return rep
}

func (r *Report) add(sev Severity, code, msg string, line int) {
	r.Issues = append(r.Issues, Issue{Severity: sev, Code: code, Message: msg, Line: line})
}

func (v *Validator) checkStructure(sql, upper string, rep *Report) {
	if !strings.Contains(upper, "SELECT") {
		rep.add(SeverityError, CodeNoSelect, "SQL contains no SELECT statement", 0)
	}

	depth, quotes := 0, 0
	inString := false
	for _, r := range sql {
		switch {
		case r == '\'':
			quotes++
			inString = !inString
		case inString:
		case r == '(':
			depth++
		case r == ')':
			depth--
		}
	}
	if depth != 0 {
		rep.add(SeverityError, CodeUnbalancedParens,
			fmt.Sprintf("unbalanced parentheses (depth %+d at end of input)", depth), 0)
	}
	if quotes%2 != 0 {
		rep.add(SeverityWarning, CodeUnbalancedQuotes, "odd number of single quotes", 0)
	}

	if dmlRe.MatchString(upper) && strings.Contains(upper, "SELECT") {
		rep.add(SeverityWarning, CodeMixedStatements, "SELECT mixed with data-modification statements", 0)
	}
}

func (v *Validator) checkCTEs(sql string, rep *Report) {
	defs := cteDefRe.FindAllStringSubmatchIndex(sql, -1)
	if len(defs) == 0 {
		return
	}

	seen := make(map[string]string, len(defs))
	names := make(map[string]struct{}, len(defs))
	for _, m := range defs {
		name := sql[m[2]:m[3]]
		key := strings.ToLower(name)
		if first, ok := seen[key]; ok {
			rep.add(SeverityError, CodeDuplicateCTE,
				fmt.Sprintf("CTE %q is defined more than once (first as %q)", name, first),
				lineOf(sql, m[2]))
		} else {
			seen[key] = name
		}
		names[key] = struct{}{}
	}

	if !cteFinalRe.MatchString(sql) {
		rep.add(SeverityError, CodeNoSelectAfterCTE, "WITH clause is not followed by a SELECT statement", 0)
	}

	// The renderer emits stage names in lower case; unqualified
	// lower-case FROM targets are CTE references and must resolve.
	for _, m := range fromRefRe.FindAllStringSubmatchIndex(sql, -1) {
		if m[4] >= 0 && m[4] < len(sql) {
			if tail := sql[m[4]:m[5]]; tail == "." || tail == "(" {
				continue
			}
		}
		name := sql[m[2]:m[3]]
		if name != strings.ToLower(name) {
			continue
		}
		if _, ok := names[strings.ToLower(name)]; !ok {
			rep.add(SeverityWarning, CodeUndefinedCTE,
				fmt.Sprintf("reference to undefined CTE %q", name), lineOf(sql, m[2]))
		}
	}
}

func (v *Validator) checkPatterns(sql, upper string, sc *ir.Scenario, rep *Report) {
	for _, m := range cartesianRe.FindAllStringIndex(sql, -1) {
		rep.add(SeverityWarning, CodeCartesianProduct,
			"join condition ON 1=1 produces a cartesian product", lineOf(sql, m[0]))
	}

	if m := selectStarRe.FindStringIndex(sql); m != nil {
		sev := SeverityInfo
		if sc != nil && sc.Logical != nil && len(sc.Logical.Attributes) > 0 {
			sev = SeverityWarning
		}
		rep.add(sev, CodeSelectStar, "SELECT * bypasses the declared column list", lineOf(sql, m[0]))
	}

	if !strings.Contains(upper, "WHERE") {
		rep.add(SeverityInfo, CodeMissingWhere, "no WHERE clause: query scans all rows", 0)
	}

	if aggFuncRe.MatchString(sql) && !strings.Contains(upper, "GROUP BY") {
		rep.add(SeverityWarning, CodeAggWithoutGroup,
			"aggregate function used without GROUP BY", 0)
	}

	for _, m := range aliasRe.FindAllStringSubmatchIndex(sql, -1) {
		name := sql[m[2]:m[3]]
		switch strings.ToUpper(name) {
		case "SELECT", "WITH": // DDL preamble, not an alias
			continue
		}
		if v.dialect.IsReserved(name) {
			rep.add(SeverityWarning, CodeReservedIdent,
				fmt.Sprintf("reserved keyword %q used as an unquoted alias", name), lineOf(sql, m[2]))
		}
	}

	for _, m := range concatPlusRe.FindAllStringIndex(sql, -1) {
		rep.add(SeverityWarning, CodeStringConcat,
			"string concatenation uses + instead of "+v.dialect.ConcatOperator, lineOf(sql, m[0]))
	}
}

func (v *Validator) checkDialect(sql string, rep *Report) {
	for _, fn := range sortedKeys(v.dialect.ForeignFunctions) {
		re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(fn) + `\s*\(`)
		for _, m := range re.FindAllStringIndex(sql, -1) {
			rep.add(SeverityError, CodeForeignFunction,
				fmt.Sprintf("function %s() is not available in dialect %s", fn, v.dialect.Name),
				lineOf(sql, m[0]))
		}
	}

	for _, tn := range sortedKeys(v.dialect.ForeignTypes) {
		re := regexp.MustCompile(`(?i)\bAS\s+` + regexp.QuoteMeta(tn) + `\b`)
		for _, m := range re.FindAllStringIndex(sql, -1) {
			rep.add(SeverityError, CodeForeignType,
				fmt.Sprintf("type %s is not available in dialect %s", tn, v.dialect.Name),
				lineOf(sql, m[0]))
		}
	}

	if m := orReplaceRe.FindStringIndex(sql); m != nil {
		if !strings.Contains(strings.ToUpper(v.dialect.ViewDDL), "CREATE OR REPLACE") {
			rep.add(SeverityError, CodeInvalidViewDDL,
				fmt.Sprintf("dialect %s does not support CREATE OR REPLACE VIEW", v.dialect.Name),
				lineOf(sql, m[0]))
		}
	}
}

func (v *Validator) checkComplexity(sql string, rep *Report) {
	if n := len(cteDefRe.FindAllString(sql, -1)); n > maxCTECount {
		rep.add(SeverityWarning, CodeHighCTECount,
			fmt.Sprintf("%d CTEs (threshold %d); consider splitting the view", n, maxCTECount), 0)
	}
	if n := len(joinRe.FindAllString(sql, -1)); n > maxJoinCount {
		rep.add(SeverityWarning, CodeHighJoinCount,
			fmt.Sprintf("%d joins (threshold %d)", n, maxJoinCount), 0)
	}
	if n := len(subqueryRe.FindAllString(sql, -1)); n > maxSubqueryCount {
		rep.add(SeverityInfo, CodeHighSubqueryCount,
			fmt.Sprintf("%d subqueries (threshold %d)", n, maxSubqueryCount), 0)
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func lineOf(sql string, pos int) int {
	if pos > len(sql) {
		pos = len(sql)
	}
	return strings.Count(sql[:pos], "\n") + 1
}
