// Package lineage re-parses rendered stage-structured SQL into a
// dependency graph the procedural transpiler can walk.
//
// The input is the renderer's output: a WITH clause with one CTE per
// pipeline stage and a final SELECT. Each stage's column list is
// partitioned into real columns (traceable to an upstream table or
// stage field) and calculated columns (expressions, literals), because
// the two are typed differently downstream. Stage identity is
// case-insensitive, matching the IR the SQL was rendered from.
package lineage

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/x2s-labs/x2s/internal/dag"
	"github.com/x2s-labs/x2s/pkg/ir"
)

// StageKind classifies a parsed stage by the shape of its body.
type StageKind int

const (
	KindBase    StageKind = iota // SELECT from a schema-qualified table
	KindJoin                     // JOIN between two stages
	KindUnion                    // UNION of stages
	KindDerived                  // SELECT from another stage (filter, aggregation, rank)
)

func (k StageKind) String() string {
	switch k {
	case KindBase:
		return "base"
	case KindJoin:
		return "join"
	case KindUnion:
		return "union"
	default:
		return "derived"
	}
}

// Column is one output column of a stage. Source is the table or stage
// qualifier the column traces to, when the select item carried one.
type Column struct {
	Name   string
	Source string
	Expr   string // select-item text as it appeared
	Calc   bool   // expression or literal, not a field reference
}

// Calculated reports whether the column is an expression rather than a
// direct field reference.
func (c Column) Calculated() bool { return c.Calc }

// JoinKey is one equality pair from a join's ON clause.
type JoinKey struct {
	LeftColumn  string
	RightColumn string
}

// Condition is one predicate from a stage's WHERE clause.
type Condition struct {
	Column   string
	Operator string
	Value    string // literal text, kept verbatim
}

// Stage is one parsed CTE.
type Stage struct {
	Name    string // display name as written in the SQL
	Kind    StageKind
	Columns []Column

	// Base stages.
	Schema string
	Table  string

	Where []Condition

	// Join stages.
	LeftInput  string // canonical stage key
	RightInput string
	JoinType   string // INNER, LEFT, RIGHT, FULL
	JoinKeys   []JoinKey

	// Union stages.
	UnionInputs []string
	UnionAll    bool

	// Derived stages.
	Input string
}

// HasColumn reports whether the stage outputs the named column,
// calculated or not.
func (s *Stage) HasColumn(name string) bool {
	for _, c := range s.Columns {
		if strings.EqualFold(c.Name, name) {
			return true
		}
	}
	return false
}

// HasRealColumn reports whether the stage outputs the named column as
// a direct field reference.
func (s *Stage) HasRealColumn(name string) bool {
	for _, c := range s.Columns {
		if strings.EqualFold(c.Name, name) && !c.Calculated() {
			return true
		}
	}
	return false
}

// inputs returns the stage keys this stage reads from, in a fixed
// order (left before right, union branches in declaration order).
func (s *Stage) inputs() []string {
	switch s.Kind {
	case KindJoin:
		return []string{s.LeftInput, s.RightInput}
	case KindUnion:
		return s.UnionInputs
	case KindDerived:
		if s.Input != "" {
			return []string{s.Input}
		}
	}
	return nil
}

// Graph is the parsed stage graph of one rendered SQL document.
type Graph struct {
	Stages       []*Stage // declaration order
	FinalStage   string   // canonical key of the stage the final SELECT reads
	FinalColumns []string
	Order        []string // stage keys, dependencies before dependents

	index map[string]*Stage
}

// Stage looks a stage up by name, case-insensitively.
func (g *Graph) Stage(name string) (*Stage, bool) {
	s, ok := g.index[ir.Key(name)]
	return s, ok
}

var (
	wsRe        = regexp.MustCompile(`\s+`)
	asWithRe    = regexp.MustCompile(`(?i)\bAS\s+WITH\b`)
	qualFromRe  = regexp.MustCompile(`(?i)\bFROM\s+"?(\w+)"?\."?([\w/.]+)"?`)
	bareFromRe  = regexp.MustCompile(`(?i)\bFROM\s+(\w+)`)
	unionRe     = regexp.MustCompile(`(?i)\s+UNION(?:\s+ALL)?\s+`)
	selectRe    = regexp.MustCompile(`(?i)^SELECT\s+(.*?)\s+FROM\s`)
	whereRe     = regexp.MustCompile(`(?i)\bWHERE\s+(.*)$`)
	joinRe      = regexp.MustCompile(`(?is)FROM\s+(\w+)\s+AS\s+(\w+)\s+(INNER|LEFT(?:\s+OUTER)?|RIGHT(?:\s+OUTER)?|FULL(?:\s+OUTER)?)?\s*JOIN\s+(\w+)\s+AS\s+(\w+)\s+ON\s+(.*?)(?:\s+WHERE\s|$)`)
	joinKeyRe   = regexp.MustCompile(`(?i)^(\w+)\."?(\w+)"?\s*=\s*(\w+)\."?(\w+)"?$`)
	threePartRe = regexp.MustCompile(`(?i)^(\w+)\.(\w+)\."?(\w+)"?$`)
	twoPartRe   = regexp.MustCompile(`(?i)^(\w+)\."?(\w+)"?$`)
	bareColRe   = regexp.MustCompile(`(?i)^"?(\w+)"?$`)
	aliasTailRe = regexp.MustCompile(`(?i)\s+AS\s+"?(\w+)"?\s*$`)
	condRe      = regexp.MustCompile(`(?i)^(?:(\w+)\.)?"?(\w+)"?\s*(NOT\s+IN|IS\s+NOT\s+NULL|IS\s+NULL|NOT\s+LIKE|IN|LIKE|BETWEEN|<=|>=|<>|!=|=|<|>)\s*(.*)$`)
)

// Parse decomposes rendered SQL into a stage graph. It accepts the
// renderer's full output, including an optional view-DDL preamble
// (DROP VIEW ...; CREATE [OR REPLACE] VIEW ... AS) before the WITH
// clause.
func Parse(sqlText string) (*Graph, error) {
	sql := normalize(sqlText)

	// Skip DDL preamble.
	for hasPrefixFold(sql, "DROP VIEW") {
		semi := strings.Index(sql, ";")
		if semi < 0 {
			break
		}
		sql = strings.TrimSpace(sql[semi+1:])
	}
	if hasPrefixFold(sql, "CREATE ") {
		m := asWithRe.FindStringIndex(sql)
		if m == nil {
			return nil, &ParseError{Message: "CREATE VIEW without a stage-structured body"}
		}
		sql = strings.TrimSpace(sql[m[0]+2:]) // keep from WITH
	}
	if !hasPrefixFold(sql, "WITH") {
		return nil, &ParseError{Message: "stage-structured SQL requires a WITH clause"}
	}

	cteSection, finalSelect, err := splitFinal(sql)
	if err != nil {
		return nil, err
	}

	defs, err := scanStages(cteSection)
	if err != nil {
		return nil, err
	}

	g := &Graph{index: make(map[string]*Stage, len(defs))}
	for _, def := range defs {
		stage, err := parseStageBody(def.name, def.body)
		if err != nil {
			return nil, err
		}
		key := ir.Key(def.name)
		if _, dup := g.index[key]; dup {
			return nil, &ParseError{Message: fmt.Sprintf("stage %q is defined twice", def.name)}
		}
		g.Stages = append(g.Stages, stage)
		g.index[key] = stage
	}

	g.FinalColumns, g.FinalStage = parseFinalSelect(finalSelect)
	if g.FinalStage == "" {
		return nil, &ParseError{Message: "final SELECT references no stage"}
	}

	if err := g.sort(); err != nil {
		return nil, err
	}
	return g, nil
}

// normalize strips comments and collapses whitespace so the stage
// scanner can work on a single line.
func normalize(sqlText string) string {
	var kept []string
	for _, line := range strings.Split(sqlText, "\n") {
		if i := strings.Index(line, "--"); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line != "" {
			kept = append(kept, line)
		}
	}
	return wsRe.ReplaceAllString(strings.Join(kept, " "), " ")
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

// splitFinal cuts the SQL at the last top-level SELECT. Parens and
// keywords inside string literals are ignored.
func splitFinal(sql string) (string, string, error) {
	depth := 0
	last := -1
	inString := false
	for i := 0; i < len(sql); i++ {
		switch {
		case sql[i] == '\'':
			inString = !inString
		case inString:
		case sql[i] == '(':
			depth++
		case sql[i] == ')':
			depth--
		default:
			if depth == 0 && i+6 <= len(sql) && strings.EqualFold(sql[i:i+6], "SELECT") {
				last = i
			}
		}
	}
	if last < 0 {
		return "", "", &ParseError{Message: "no final SELECT found"}
	}
	cte := strings.TrimSpace(sql[:last])
	cte = strings.TrimSuffix(cte, ",")
	return strings.TrimSpace(cte), strings.TrimSpace(sql[last:]), nil
}

type stageDef struct {
	name string
	body string
}

// scanStages walks the WITH clause token by token: identifier, AS,
// parenthesized body, comma, repeat. Scanning by token instead of by
// character keeps stage names containing "as" intact.
func scanStages(section string) ([]stageDef, error) {
	s := strings.TrimSpace(section)
	if hasPrefixFold(s, "WITH") {
		s = strings.TrimSpace(s[4:])
	}

	var defs []stageDef
	for s != "" {
		s = strings.TrimLeft(s, ", ")
		if s == "" {
			break
		}

		end := strings.IndexAny(s, " (")
		if end <= 0 {
			return nil, &ParseError{Message: "malformed stage definition near " + snippet(s)}
		}
		name := s[:end]
		s = strings.TrimSpace(s[end:])

		if hasPrefixFold(s, "AS") {
			s = strings.TrimSpace(s[2:])
		}
		if !strings.HasPrefix(s, "(") {
			return nil, &ParseError{Message: fmt.Sprintf("stage %q has no body", name)}
		}

		depth := 0
		closing := -1
		inString := false
		for i := 0; i < len(s); i++ {
			switch {
			case s[i] == '\'':
				inString = !inString
			case inString:
			case s[i] == '(':
				depth++
			case s[i] == ')':
				depth--
				if depth == 0 {
					closing = i
				}
			}
			if closing >= 0 {
				break
			}
		}
		if closing < 0 {
			return nil, &ParseError{Message: fmt.Sprintf("stage %q has an unterminated body", name)}
		}

		defs = append(defs, stageDef{name: name, body: strings.TrimSpace(s[1:closing])})
		s = strings.TrimSpace(s[closing+1:])
	}
	return defs, nil
}

func snippet(s string) string {
	if len(s) > 30 {
		s = s[:30] + "..."
	}
	return fmt.Sprintf("%q", s)
}

func parseStageBody(name, body string) (*Stage, error) {
	st := &Stage{Name: name}
	upper := strings.ToUpper(body)

	switch {
	case unionRe.MatchString(body):
		st.Kind = KindUnion
		parseUnionStage(st, body)
	case strings.Contains(upper, " JOIN "):
		st.Kind = KindJoin
		if err := parseJoinStage(st, body); err != nil {
			return nil, err
		}
	default:
		if m := qualFromRe.FindStringSubmatch(body); m != nil {
			st.Kind = KindBase
			st.Schema = m[1]
			st.Table = m[2]
			st.Columns = parseColumns(selectList(body), st.Table)
			st.Where = parseWhere(body)
		} else if m := bareFromRe.FindStringSubmatch(body); m != nil {
			st.Kind = KindDerived
			st.Input = ir.Key(m[1])
			st.Columns = parseColumns(selectList(body), "")
			st.Where = parseWhere(body)
		} else {
			return nil, &ParseError{Message: fmt.Sprintf("stage %q has no FROM clause", name)}
		}
	}
	return st, nil
}

func parseJoinStage(st *Stage, body string) error {
	st.Columns = parseColumns(selectList(body), "")

	m := joinRe.FindStringSubmatch(body)
	if m == nil {
		return &ParseError{Message: fmt.Sprintf("stage %q has an unrecognized join shape", st.Name)}
	}
	st.LeftInput = ir.Key(m[1])
	st.RightInput = ir.Key(m[4])

	// Select-list qualifiers are the join aliases; rewrite them to the
	// canonical input keys so side resolution downstream never depends
	// on alias spelling.
	aliases := map[string]string{
		ir.Key(m[2]): st.LeftInput,
		ir.Key(m[5]): st.RightInput,
	}
	for i, c := range st.Columns {
		if in, ok := aliases[ir.Key(c.Source)]; ok {
			st.Columns[i].Source = in
		}
	}

	joinType := strings.ToUpper(strings.TrimSpace(m[3]))
	switch {
	case strings.HasPrefix(joinType, "LEFT"):
		st.JoinType = "LEFT"
	case strings.HasPrefix(joinType, "RIGHT"):
		st.JoinType = "RIGHT"
	case strings.HasPrefix(joinType, "FULL"):
		st.JoinType = "FULL"
	default:
		st.JoinType = "INNER"
	}

	for _, part := range splitTopLevel(m[6], " AND ") {
		if km := joinKeyRe.FindStringSubmatch(strings.TrimSpace(part)); km != nil {
			st.JoinKeys = append(st.JoinKeys, JoinKey{LeftColumn: km[2], RightColumn: km[4]})
		}
	}
	st.Where = parseWhere(body)
	return nil
}

func parseUnionStage(st *Stage, body string) {
	st.UnionAll = strings.Contains(strings.ToUpper(body), "UNION ALL")

	parts := unionRe.Split(body, -1)
	for _, part := range parts {
		if m := bareFromRe.FindStringSubmatch(part); m != nil {
			st.UnionInputs = append(st.UnionInputs, ir.Key(m[1]))
		}
	}
	if len(parts) > 0 {
		st.Columns = parseColumns(selectList(parts[0]), "")
	}
}

// selectList extracts the text between SELECT and the first top-level
// FROM.
func selectList(body string) string {
	if !hasPrefixFold(strings.TrimSpace(body), "SELECT") {
		return ""
	}
	s := strings.TrimSpace(body)[6:]
	depth := 0
	inString := false
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] == '\'':
			inString = !inString
		case inString:
		case s[i] == '(':
			depth++
		case s[i] == ')':
			depth--
		default:
			if depth == 0 && i+6 <= len(s) && strings.EqualFold(s[i:i+6], " FROM ") {
				return strings.TrimSpace(s[:i])
			}
		}
	}
	return strings.TrimSpace(s)
}

// parseColumns splits a SELECT list and classifies each item as a real
// or calculated column. Calculated columns are detected structurally:
// function calls, arithmetic, or literal values with no direct column
// reference.
func parseColumns(list, defaultSource string) []Column {
	if list == "" || list == "*" {
		return nil
	}

	var cols []Column
	for _, part := range splitTopLevel(list, ",") {
		part = strings.TrimSpace(part)
		if part == "" || part == "*" || strings.HasSuffix(part, ".*") {
			continue
		}

		expr := part
		alias := ""
		if am := aliasTailRe.FindStringSubmatchIndex(part); am != nil {
			alias = part[am[2]:am[3]]
			expr = strings.TrimSpace(part[:am[0]])
		}

		if m := threePartRe.FindStringSubmatch(expr); m != nil {
			cols = append(cols, Column{Name: coalesce(alias, m[3]), Source: m[1] + "." + m[2], Expr: part})
			continue
		}
		if m := twoPartRe.FindStringSubmatch(expr); m != nil {
			cols = append(cols, Column{Name: coalesce(alias, m[2]), Source: m[1], Expr: part})
			continue
		}
		if m := bareColRe.FindStringSubmatch(expr); m != nil && !isLiteral(expr) {
			cols = append(cols, Column{Name: coalesce(alias, m[1]), Source: defaultSource, Expr: part})
			continue
		}

		// Expression or literal: calculated column. Without an alias
		// there is no name to carry it under, so it is dropped.
		if alias != "" {
			cols = append(cols, Column{Name: alias, Expr: part, Calc: true})
		}
	}
	return cols
}

func coalesce(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func isLiteral(expr string) bool {
	if expr == "" {
		return false
	}
	c := expr[0]
	return c == '\'' || (c >= '0' && c <= '9') || c == '-'
}

func parseWhere(body string) []Condition {
	m := whereRe.FindStringSubmatch(body)
	if m == nil {
		return nil
	}

	var conds []Condition
	for _, part := range splitTopLevel(m[1], " AND ") {
		part = strings.TrimSpace(part)
		cm := condRe.FindStringSubmatch(part)
		if cm == nil {
			continue
		}
		op := strings.ToUpper(wsRe.ReplaceAllString(cm[3], " "))
		conds = append(conds, Condition{
			Column:   cm[2],
			Operator: op,
			Value:    strings.TrimSpace(cm[4]),
		})
	}
	return conds
}

func parseFinalSelect(finalSelect string) ([]string, string) {
	var cols []string
	if m := selectRe.FindStringSubmatch(finalSelect); m != nil {
		for _, part := range splitTopLevel(m[1], ",") {
			part = strings.TrimSpace(part)
			if part == "" || part == "*" {
				continue
			}
			name := part
			if am := aliasTailRe.FindStringSubmatch(part); am != nil {
				name = am[1]
			} else if bm := bareColRe.FindStringSubmatch(part); bm != nil {
				name = bm[1]
			}
			cols = append(cols, name)
		}
	}

	stage := ""
	if m := bareFromRe.FindStringSubmatch(finalSelect); m != nil {
		stage = ir.Key(m[1])
	}
	return cols, stage
}

// splitTopLevel splits s on sep, ignoring separators inside parens or
// string literals. The separator match is case-insensitive.
func splitTopLevel(s, sep string) []string {
	var parts []string
	depth := 0
	inString := false
	start := 0
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] == '\'':
			inString = !inString
		case inString:
		case s[i] == '(':
			depth++
		case s[i] == ')':
			depth--
		default:
			if depth == 0 && i+len(sep) <= len(s) && strings.EqualFold(s[i:i+len(sep)], sep) {
				parts = append(parts, s[start:i])
				i += len(sep) - 1
				start = i + 1
			}
		}
	}
	parts = append(parts, s[start:])
	return parts
}

// sort computes a deterministic dependency order over the stages,
// declaration order breaking ties.
func (g *Graph) sort() error {
	d := dag.NewGraph()
	for _, st := range g.Stages {
		d.AddNode(ir.Key(st.Name), st)
	}
	for _, st := range g.Stages {
		key := ir.Key(st.Name)
		for _, in := range st.inputs() {
			if !d.HasNode(in) {
				continue // base table reference, not a stage
			}
			if err := d.AddEdge(in, key); err != nil {
				return &ParseError{Message: err.Error()}
			}
		}
	}

	sorted, err := d.TopologicalSort()
	if err != nil {
		return &ParseError{Message: err.Error()}
	}
	g.Order = make([]string, len(sorted))
	for i, n := range sorted {
		g.Order[i] = n.ID
	}
	return nil
}
