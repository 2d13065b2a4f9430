package sqlcheck

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/x2s-labs/x2s/pkg/dialect"
)

// Confidence grades how safe a correction is to apply automatically.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

var confidenceRank = map[Confidence]int{
	ConfidenceLow:    1,
	ConfidenceMedium: 2,
	ConfidenceHigh:   3,
}

// Meets reports whether c is at or above the threshold.
func (c Confidence) Meets(threshold Confidence) bool {
	return confidenceRank[c] >= confidenceRank[threshold]
}

// Correction records one textual fix the corrector applied.
type Correction struct {
	// Code is the validator issue code the fix targets.
	Code        string     `json:"code"`
	Original    string     `json:"original"`
	Corrected   string     `json:"corrected"`
	Line        int        `json:"line,omitempty"`
	Description string     `json:"description"`
	Confidence  Confidence `json:"confidence"`
}

func (c Correction) String() string {
	loc := ""
	if c.Line > 0 {
		loc = fmt.Sprintf(" (line %d)", c.Line)
	}
	return fmt.Sprintf("[%s] %s%s: %q -> %q",
		strings.ToUpper(string(c.Confidence)), c.Description, loc, c.Original, c.Corrected)
}

// FixResult is the outcome of one correction pass. Remaining holds the
// input issues whose codes no applied fix covered; the input slice is
// never modified.
type FixResult struct {
	SQL       string
	Original  string
	Applied   []Correction
	Remaining []Issue
}

// Changed reports whether any fix altered the SQL.
func (r FixResult) Changed() bool { return r.SQL != r.Original }

type fixFunc func(sql string, d *dialect.Dialect) (string, []Correction)

type registeredFix struct {
	code       string
	confidence Confidence
	apply      fixFunc
}

// fixes is the registry of deterministic corrections, in application
// order. A fix runs only when the validator reported its issue code.
var fixes = []registeredFix{
	{CodeForeignFunction, ConfidenceHigh, fixForeignFunctions},
	{CodeForeignType, ConfidenceHigh, fixForeignTypes},
	{CodeStringConcat, ConfidenceHigh, fixStringConcat},
	{CodeReservedIdent, ConfidenceMedium, fixReservedAliases},
	{CodeInvalidViewDDL, ConfidenceMedium, fixViewDDL},
}

// Corrector applies registered fixes to validated SQL. It is safe for
// concurrent use.
type Corrector struct {
	dialect   *dialect.Dialect
	threshold Confidence
}

// NewCorrector creates a corrector that applies fixes with confidence
// at or above threshold.
func NewCorrector(d *dialect.Dialect, threshold Confidence) *Corrector {
	if _, ok := confidenceRank[threshold]; !ok {
		threshold = ConfidenceHigh
	}
	return &Corrector{dialect: d, threshold: threshold}
}

// Apply runs every registered fix whose issue code appears in issues
// and whose confidence meets the corrector's threshold. Re-applying
// the corrector to its own output with the same issue set is a no-op:
// each fix rewrites the offending pattern into a form it no longer
// matches.
func (c *Corrector) Apply(sql string, issues []Issue) FixResult {
	res := FixResult{SQL: sql, Original: sql}

	present := make(map[string]bool, len(issues))
	for _, is := range issues {
		present[is.Code] = true
	}

	fixed := make(map[string]bool)
	for _, f := range fixes {
		if !present[f.code] || !f.confidence.Meets(c.threshold) {
			continue
		}
		out, corrections := f.apply(res.SQL, c.dialect)
		if len(corrections) == 0 {
			continue
		}
		res.SQL = out
		res.Applied = append(res.Applied, corrections...)
		fixed[f.code] = true
	}

	for _, is := range issues {
		if !fixed[is.Code] {
			res.Remaining = append(res.Remaining, is)
		}
	}
	return res
}

// fixForeignFunctions renames functions the dialect does not have to
// their local equivalent (IF -> IFF on Snowflake). Functions without a
// mechanical rename are left for the caller.
func fixForeignFunctions(sql string, d *dialect.Dialect) (string, []Correction) {
	var corrections []Correction
	for _, fn := range sortedKeys(d.ForeignFunctions) {
		rename := d.ForeignFunctions[fn]
		if rename == "" {
			continue
		}
		re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(fn) + `\s*\(`)
		sql = replaceTracked(sql, re, rename+"(", &corrections, Correction{
			Code:        CodeForeignFunction,
			Description: fmt.Sprintf("renamed %s() to %s()", fn, rename),
			Confidence:  ConfidenceHigh,
		})
	}
	return sql, corrections
}

// fixForeignTypes rewrites CAST target types into the dialect's
// spelling (NUMBER -> DECIMAL on HANA).
func fixForeignTypes(sql string, d *dialect.Dialect) (string, []Correction) {
	var corrections []Correction
	for _, tn := range sortedKeys(d.ForeignTypes) {
		rename := d.ForeignTypes[tn]
		if rename == "" {
			continue
		}
		re := regexp.MustCompile(`(?i)\bAS\s+` + regexp.QuoteMeta(tn) + `\b`)
		sql = replaceTracked(sql, re, "AS "+rename, &corrections, Correction{
			Code:        CodeForeignType,
			Description: fmt.Sprintf("rewrote type %s as %s", tn, rename),
			Confidence:  ConfidenceHigh,
		})
	}
	return sql, corrections
}

var (
	concatLeftRe  = regexp.MustCompile(`('(?:[^']|'')*')(\s*)\+`)
	concatRightRe = regexp.MustCompile(`\+(\s*)('(?:[^']|'')*')`)
)

// fixStringConcat replaces + with the dialect concatenation operator
// when at least one operand is a string literal. A + between two bare
// identifiers stays untouched: it may be numeric addition.
func fixStringConcat(sql string, d *dialect.Dialect) (string, []Correction) {
	var corrections []Correction
	sql = replaceTracked(sql, concatLeftRe, "${1}${2}"+d.ConcatOperator, &corrections, Correction{
		Code:        CodeStringConcat,
		Description: "replaced string concatenation + with " + d.ConcatOperator,
		Confidence:  ConfidenceHigh,
	})
	sql = replaceTracked(sql, concatRightRe, d.ConcatOperator+"${1}${2}", &corrections, Correction{
		Code:        CodeStringConcat,
		Description: "replaced string concatenation + with " + d.ConcatOperator,
		Confidence:  ConfidenceHigh,
	})
	return sql, corrections
}

// fixReservedAliases quotes reserved keywords used as bare aliases.
func fixReservedAliases(sql string, d *dialect.Dialect) (string, []Correction) {
	var corrections []Correction
	out := aliasRe.ReplaceAllStringFunc(sql, func(match string) string {
		name := aliasRe.FindStringSubmatch(match)[1]
		switch strings.ToUpper(name) {
		case "SELECT", "WITH":
			return match
		}
		if !d.IsReserved(name) {
			return match
		}
		quoted := d.Identifiers.Quote + strings.ToUpper(name) + d.Identifiers.QuoteEnd
		corrections = append(corrections, Correction{
			Code:        CodeReservedIdent,
			Original:    name,
			Corrected:   quoted,
			Description: fmt.Sprintf("quoted reserved keyword %q", name),
			Confidence:  ConfidenceMedium,
		})
		return match[:len(match)-len(name)] + quoted
	})
	return out, corrections
}

var createOrReplaceRe = regexp.MustCompile(`(?i)\bCREATE\s+OR\s+REPLACE\s+VIEW\s+((?:"[^"]*"|[A-Za-z0-9_$.])+)\s+AS`)

// fixViewDDL rewrites CREATE OR REPLACE VIEW into the dialect's view
// DDL form when the dialect does not support it.
func fixViewDDL(sql string, d *dialect.Dialect) (string, []Correction) {
	if strings.Contains(strings.ToUpper(d.ViewDDL), "CREATE OR REPLACE") {
		return sql, nil
	}
	var corrections []Correction
	out := createOrReplaceRe.ReplaceAllStringFunc(sql, func(match string) string {
		name := createOrReplaceRe.FindStringSubmatch(match)[1]
		replacement := fmt.Sprintf(d.ViewDDL, name)
		corrections = append(corrections, Correction{
			Code:        CodeInvalidViewDDL,
			Original:    match,
			Corrected:   replacement,
			Line:        lineOf(sql, strings.Index(sql, match)),
			Description: "rewrote CREATE OR REPLACE VIEW for dialect " + d.Name,
			Confidence:  ConfidenceMedium,
		})
		return replacement
	})
	return out, corrections
}

// replaceTracked applies re as a template replacement, recording one
// Correction per match with the original and replaced text filled in.
func replaceTracked(sql string, re *regexp.Regexp, template string, corrections *[]Correction, proto Correction) string {
	matches := re.FindAllStringIndex(sql, -1)
	if len(matches) == 0 {
		return sql
	}
	out := re.ReplaceAllString(sql, template)
	for _, m := range matches {
		c := proto
		c.Original = sql[m[0]:m[1]]
		c.Corrected = re.ReplaceAllString(c.Original, template)
		c.Line = lineOf(sql, m[0])
		*corrections = append(*corrections, c)
	}
	return out
}
