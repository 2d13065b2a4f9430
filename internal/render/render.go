// Package render generates dialect-specific SQL from a scenario. Each
// graph node becomes one named CTE, emitted in topological order with
// ties broken by declaration order, so the same scenario and
// configuration always produce byte-identical SQL.
package render

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/x2s-labs/x2s/internal/dag"
	"github.com/x2s-labs/x2s/internal/translate"
	"github.com/x2s-labs/x2s/pkg/catalog"
	"github.com/x2s-labs/x2s/pkg/dialect"
	"github.com/x2s-labs/x2s/pkg/ir"
)

// Config carries the per-conversion rendering options.
type Config struct {
	// SchemaOverrides maps logical schema names to physical ones.
	SchemaOverrides map[string]string
	// TargetSchema, when set, replaces every table schema reference.
	TargetSchema string
	Client       string
	Language     string
	// Params are supplied input-parameter values by name.
	Params map[string]string
	// CreateView wraps the output in a view definition.
	CreateView bool
	// ViewName overrides the scenario ID as the created view's name.
	ViewName string
}

// Stage is one rendered CTE. Its name matches the originating node's
// name; the alias is the SQL-safe form used in the generated text.
type Stage struct {
	Name    string
	Alias   string
	Columns []string
	SQL     string
}

// Result is the rendered SQL plus its per-stage structure and any
// non-fatal translation warnings.
type Result struct {
	SQL      string
	Stages   []Stage
	Warnings []string
}

// Renderer generates SQL for one dialect. It is stateless across calls
// and safe for concurrent use.
type Renderer struct {
	dialect *dialect.Dialect
	catalog *catalog.Catalog
	cfg     Config
}

func New(d *dialect.Dialect, cat *catalog.Catalog, cfg Config) *Renderer {
	return &Renderer{dialect: d, catalog: cat, cfg: cfg}
}

// Render converts a scenario into stage-structured SQL.
func (r *Renderer) Render(sc *ir.Scenario) (*Result, error) {
	s := newSession(r, sc)

	ordered, err := s.sortNodes()
	if err != nil {
		return nil, err
	}

	res := &Result{}
	var ctes []string
	for _, node := range ordered {
		body, err := s.renderNode(node)
		if err != nil {
			return nil, err
		}
		alias := s.alias(node.Name)
		ctes = append(ctes, "  "+alias+" AS (\n"+indent(body, "    ")+"\n  )")
		res.Stages = append(res.Stages, Stage{
			Name:    node.Name,
			Alias:   alias,
			Columns: stageColumns(node),
			SQL:     body,
		})
	}

	terminal, ok := sc.TerminalNode()
	if !ok {
		return nil, &RenderError{Message: "scenario has no terminal node"}
	}

	var final string
	if len(terminal.ViewAttributes) > 0 {
		cols := make([]string, len(terminal.ViewAttributes))
		for i, c := range terminal.ViewAttributes {
			cols[i] = quoteCol(c)
		}
		final = fmt.Sprintf("SELECT %s FROM %s", strings.Join(cols, ", "), s.alias(terminal.Name))
	} else {
		final = "SELECT * FROM " + s.alias(terminal.Name)
	}

	var b strings.Builder
	if r.cfg.CreateView {
		name := r.cfg.ViewName
		if name == "" {
			name = sc.ID
		}
		b.WriteString(r.dialect.CreateViewClause(name))
		b.WriteString("\n")
	}
	if len(ctes) > 0 {
		b.WriteString("WITH\n")
		b.WriteString(strings.Join(ctes, ",\n"))
		b.WriteString("\n\n")
	}
	b.WriteString(final)

	res.SQL = b.String()
	res.Warnings = s.warnings
	return res, nil
}

// session is the mutable state of one Render call.
type session struct {
	r        *Renderer
	sc       *ir.Scenario
	tr       *translate.Translator
	aliases  map[string]string
	warnings []string
}

func newSession(r *Renderer, sc *ir.Scenario) *session {
	client := r.cfg.Client
	if client == "" {
		client = sc.DefaultClient
	}
	if client == "" {
		client = "PROD"
	}
	language := r.cfg.Language
	if language == "" {
		language = sc.DefaultLanguage
	}
	if language == "" {
		language = "EN"
	}
	defaults := make(map[string]string, len(sc.Parameters))
	for _, p := range sc.Parameters {
		if p.Default != "" {
			defaults[p.Name] = p.Default
		}
	}
	return &session{
		r:  r,
		sc: sc,
		tr: &translate.Translator{
			Dialect:  r.dialect,
			Catalog:  r.catalog,
			Client:   client,
			Language: language,
			Params:   r.cfg.Params,
			Defaults: defaults,
		},
		aliases: make(map[string]string),
	}
}

func (s *session) sortNodes() ([]*ir.Node, error) {
	g := dag.NewGraph()
	for _, node := range s.sc.Nodes {
		g.AddNode(ir.Key(node.Name), node)
	}
	for _, node := range s.sc.Nodes {
		for _, in := range node.Inputs {
			if _, ok := s.sc.Node(in); !ok {
				continue
			}
			if err := g.AddEdge(ir.Key(in), ir.Key(node.Name)); err != nil {
				return nil, &RenderError{Node: node.Name, Message: err.Error(), Err: err}
			}
		}
	}
	sorted, err := g.TopologicalSort()
	if err != nil {
		return nil, &RenderError{Message: err.Error(), Err: err}
	}
	nodes := make([]*ir.Node, len(sorted))
	for i, gn := range sorted {
		nodes[i] = gn.Data.(*ir.Node)
	}
	return nodes, nil
}

func (s *session) renderNode(node *ir.Node) (string, error) {
	switch node.Kind {
	case ir.KindJoin:
		return s.renderJoin(node)
	case ir.KindAggregation:
		return s.renderAggregation(node)
	case ir.KindUnion:
		return s.renderUnion(node)
	case ir.KindRank:
		return s.renderRank(node)
	default:
		return s.renderProjection(node)
	}
}

func (s *session) renderProjection(node *ir.Node) (string, error) {
	if len(node.Inputs) == 0 {
		return "", &RenderError{Node: node.Name, Message: "node has no inputs"}
	}
	input := node.Inputs[0]
	from := s.fromClause(input)

	var cols []string
	targetExpr := make(map[string]string)
	for _, m := range node.Columns {
		expr, err := s.renderExpr(node, m.Expr, "")
		if err != nil {
			return "", err
		}
		cols = append(cols, expr+" AS "+quoteCol(m.Target))
		targetExpr[ir.Key(m.Target)] = expr
	}

	calcExpr, calcCols, err := s.renderCalculated(node, targetExpr)
	if err != nil {
		return "", err
	}
	cols = append(cols, calcCols...)

	if len(cols) == 0 {
		cols = []string{"*"}
	}

	where, err := s.renderFilters(node, "", targetExpr, calcExpr)
	if err != nil {
		return "", err
	}

	sql := "SELECT\n    " + strings.Join(cols, ",\n    ") + "\nFROM " + from
	if where != "" {
		sql += "\nWHERE " + where
	}
	return sql, nil
}

func (s *session) renderJoin(node *ir.Node) (string, error) {
	if len(node.Inputs) < 2 {
		return "", &RenderError{Node: node.Name, Message: "join has fewer than two inputs"}
	}
	if len(node.Inputs) > 2 {
		s.warnf("join %s has %d inputs; only the first two are joined", node.Name, len(node.Inputs))
	}
	leftRef, rightRef := node.Inputs[0], node.Inputs[1]
	leftFrom, rightFrom := s.fromClause(leftRef), s.fromClause(rightRef)
	leftAlias, rightAlias := s.alias(leftRef), s.alias(rightRef)

	var conds []string
	for _, jc := range node.JoinConditions {
		left, err := s.renderExpr(node, jc.Left, leftAlias)
		if err != nil {
			return "", err
		}
		right, err := s.renderExpr(node, jc.Right, rightAlias)
		if err != nil {
			return "", err
		}
		op := jc.Operator
		if op == "" {
			op = "="
		}
		conds = append(conds, left+" "+op+" "+right)
	}
	if len(conds) == 0 {
		s.warnf("join %s has no join conditions; cartesian product", node.Name)
		conds = []string{"1=1"}
	}

	exposed := make(map[string]bool, len(node.ViewAttributes))
	for _, v := range node.ViewAttributes {
		exposed[ir.Key(v)] = true
	}

	var cols []string
	seen := make(map[string]bool)
	targetExpr := make(map[string]string)
	for _, m := range node.Columns {
		key := ir.Key(m.Target)
		if len(exposed) > 0 && !exposed[key] {
			continue
		}
		if seen[key] {
			continue
		}
		seen[key] = true

		alias := leftAlias
		if m.SourceNode != "" {
			alias = s.alias(m.SourceNode)
		}
		expr, err := s.renderExpr(node, m.Expr, alias)
		if err != nil {
			return "", err
		}
		cols = append(cols, expr+" AS "+quoteCol(m.Target))
		targetExpr[key] = expr
	}

	calcExpr, calcCols, err := s.renderCalculated(node, targetExpr)
	if err != nil {
		return "", err
	}
	cols = append(cols, calcCols...)

	if len(cols) == 0 {
		cols = []string{leftAlias + ".*", rightAlias + ".*"}
	}

	joinType := string(node.JoinType)
	if joinType == "" {
		joinType = string(ir.JoinInner)
	}

	where, err := s.renderFilters(node, leftAlias, targetExpr, calcExpr)
	if err != nil {
		return "", err
	}

	sql := "SELECT\n    " + strings.Join(cols, ",\n    ") +
		"\nFROM " + leftFrom + " AS " + leftAlias +
		"\n" + joinType + " JOIN " + rightFrom + " AS " + rightAlias +
		" ON " + strings.Join(conds, " AND ")
	if where != "" {
		sql += "\nWHERE " + where
	}
	return sql, nil
}

func (s *session) renderAggregation(node *ir.Node) (string, error) {
	if len(node.Inputs) == 0 {
		return "", &RenderError{Node: node.Name, Message: "aggregation has no inputs"}
	}
	input := node.Inputs[0]
	from := s.fromClause(input)

	calcNames := make(map[string]bool, len(node.Calculated))
	for _, c := range node.Calculated {
		calcNames[ir.Key(c.Name)] = true
	}
	aggTargets := make(map[string]bool, len(node.Aggregations))
	for _, a := range node.Aggregations {
		aggTargets[ir.Key(a.Target)] = true
	}

	targetExpr := make(map[string]string)
	for _, m := range node.Columns {
		expr, err := s.renderExpr(node, m.Expr, "")
		if err != nil {
			return "", err
		}
		targetExpr[ir.Key(m.Target)] = expr
	}

	var groupBy []string
	for _, col := range node.GroupBy {
		key := ir.Key(col)
		if calcNames[key] {
			continue
		}
		if expr, ok := targetExpr[key]; ok {
			groupBy = append(groupBy, expr)
		} else {
			groupBy = append(groupBy, quoteCol(col))
		}
	}

	var items []string
	for _, m := range node.Columns {
		key := ir.Key(m.Target)
		if calcNames[key] || aggTargets[key] {
			continue
		}
		items = append(items, targetExpr[key]+" AS "+quoteCol(m.Target))
	}

	for _, spec := range node.Aggregations {
		inner, err := s.renderExpr(node, spec.Expr, "")
		if err != nil {
			return "", err
		}
		if spec.Expr.IsColumnRef() {
			if expr, ok := targetExpr[ir.Key(spec.Expr.Value)]; ok {
				inner = expr
			}
		}
		if s.needsNumericCast(node, spec) {
			inner = s.r.dialect.Cast(inner, ir.TypeSpec{Base: ir.TypeNumber, Length: 15, Scale: 2})
		}
		items = append(items, spec.Function+"("+inner+") AS "+quoteCol(spec.Target))
	}

	if len(items) == 0 {
		items = []string{"*"}
	}

	where, err := s.renderFilters(node, "", targetExpr, nil)
	if err != nil {
		return "", err
	}

	sql := "SELECT\n    " + strings.Join(items, ",\n    ") + "\nFROM " + from
	if where != "" {
		sql += "\nWHERE " + where
	}
	if len(groupBy) > 0 {
		sql += "\nGROUP BY " + strings.Join(groupBy, ", ")
	}

	// Calculated columns cannot live in the grouped SELECT; an outer
	// query adds them over the aggregated rows.
	if len(node.Calculated) > 0 {
		outer := []string{"agg_inner.*"}
		calcExpr := make(map[string]string)
		for _, c := range node.Calculated {
			formula := c.Expr.Value
			formula = expandColumnRefs(formula, calcExpr, true)
			rendered, err := s.translateFormula(node, formula)
			if err != nil {
				return "", err
			}
			outer = append(outer, rendered+" AS "+quoteCol(c.Name))
			calcExpr[ir.Key(c.Name)] = rendered
		}
		sql = "SELECT\n    " + strings.Join(outer, ",\n    ") +
			"\nFROM (\n" + indent(sql, "  ") + "\n) AS agg_inner"
	}
	return sql, nil
}

func (s *session) renderUnion(node *ir.Node) (string, error) {
	if len(node.Inputs) < 2 {
		return "", &RenderError{Node: node.Name, Message: "union has fewer than two inputs"}
	}

	var targets []string
	seen := make(map[string]bool)
	for _, m := range node.Columns {
		key := ir.Key(m.Target)
		if !seen[key] {
			seen[key] = true
			targets = append(targets, m.Target)
		}
	}

	referenceTypes := make(map[string]*ir.TypeSpec)
	var branches []string
	for i, input := range node.Inputs {
		byTarget := make(map[string]*ir.Mapping)
		for j := range node.Columns {
			m := &node.Columns[j]
			if ir.Key(m.SourceNode) == ir.Key(input) {
				byTarget[ir.Key(m.Target)] = m
			}
		}

		if len(byTarget) != len(targets) {
			return "", &RenderError{
				Node: node.Name,
				Message: fmt.Sprintf("union branch %q provides %d of %d columns",
					input, len(byTarget), len(targets)),
			}
		}

		var items []string
		for _, target := range targets {
			m := byTarget[ir.Key(target)]
			expr, err := s.renderExpr(node, m.Expr, "")
			if err != nil {
				return "", err
			}
			items = append(items, expr+" AS "+quoteCol(target))

			if m.Type != nil {
				if i == 0 {
					referenceTypes[ir.Key(target)] = m.Type
				} else if ref, ok := referenceTypes[ir.Key(target)]; ok && ref.Base != m.Type.Base {
					return "", &RenderError{
						Node: node.Name,
						Message: fmt.Sprintf("union column %q type mismatch: %s vs %s in branch %q",
							target, ref.Base, m.Type.Base, input),
					}
				}
			}
		}

		branches = append(branches, "SELECT\n    "+strings.Join(items, ",\n    ")+"\nFROM "+s.fromClause(input))
	}

	keyword := "UNION"
	if node.UnionAll {
		keyword = "UNION ALL"
	}
	sql := strings.Join(branches, "\n"+keyword+"\n")

	if len(node.Filters) > 0 {
		where, err := s.renderFilters(node, "union_result", nil, nil)
		if err != nil {
			return "", err
		}
		if where != "" {
			sql = "SELECT * FROM (\n" + sql + "\n) AS union_result\nWHERE " + where
		}
	}
	return sql, nil
}

func (s *session) renderRank(node *ir.Node) (string, error) {
	if len(node.Inputs) == 0 {
		return "", &RenderError{Node: node.Name, Message: "rank has no inputs"}
	}
	from := s.fromClause(node.Inputs[0])

	var items []string
	for _, m := range node.Columns {
		expr, err := s.renderExpr(node, m.Expr, "")
		if err != nil {
			return "", err
		}
		items = append(items, expr+" AS "+quoteCol(m.Target))
	}

	var window []string
	if len(node.PartitionBy) > 0 {
		parts := make([]string, len(node.PartitionBy))
		for i, col := range node.PartitionBy {
			parts[i] = quoteCol(col)
		}
		window = append(window, "PARTITION BY "+strings.Join(parts, ", "))
	}
	var order []string
	for _, o := range node.OrderBy {
		dir := o.Direction
		if dir == "" {
			dir = "ASC"
		}
		order = append(order, quoteCol(o.Column)+" "+dir)
	}
	if len(order) == 0 {
		order = []string{"1"}
	}
	window = append(window, "ORDER BY "+strings.Join(order, ", "))

	rankCol := node.RankColumn
	if rankCol == "" {
		rankCol = "RANK_COLUMN"
	}
	items = append(items, "ROW_NUMBER() OVER ("+strings.Join(window, " ")+") AS "+quoteCol(rankCol))

	sql := "SELECT\n    " + strings.Join(items, ",\n    ") + "\nFROM " + from

	if node.Threshold > 0 {
		sql = "SELECT * FROM (\n" + indent(sql, "  ") + "\n) AS ranked\nWHERE " +
			quoteCol(rankCol) + fmt.Sprintf(" <= %d", node.Threshold)
	}
	return sql, nil
}

// renderCalculated renders a node's calculated columns, expanding
// references to sibling calculated columns and mapped targets so the
// generated SELECT never references its own aliases.
func (s *session) renderCalculated(node *ir.Node, targetExpr map[string]string) (map[string]string, []string, error) {
	calcExpr := make(map[string]string)
	var cols []string
	for _, c := range node.Calculated {
		formula := c.Expr.Value
		formula = expandColumnRefs(formula, calcExpr, true)
		formula = expandColumnRefs(formula, targetExpr, false)
		rendered, err := s.translateFormula(node, formula)
		if err != nil {
			return nil, nil, err
		}
		cols = append(cols, rendered+" AS "+quoteCol(c.Name))
		calcExpr[ir.Key(c.Name)] = rendered
	}
	return calcExpr, cols, nil
}

func (s *session) renderFilters(node *ir.Node, alias string, targetExpr, calcExpr map[string]string) (string, error) {
	if len(node.Filters) == 0 {
		return "", nil
	}
	var conds []string
	for _, pred := range node.Filters {
		switch pred.Kind {
		case ir.PredIsNull:
			left, err := s.filterOperand(node, pred.Left, alias, targetExpr, calcExpr)
			if err != nil {
				return "", err
			}
			conds = append(conds, left+" IS NULL")
		case ir.PredRaw:
			raw, err := s.translateFormula(node, pred.Left.Value)
			if err != nil {
				return "", err
			}
			conds = append(conds, "("+raw+")")
		default:
			left, err := s.filterOperand(node, pred.Left, alias, targetExpr, calcExpr)
			if err != nil {
				return "", err
			}
			op := pred.Operator
			if op == "" {
				op = "="
			}
			if !pred.Including {
				op = negateOperator(op)
			}
			right, err := s.renderExpr(node, pred.Right, "")
			if err != nil {
				return "", err
			}
			conds = append(conds, left+" "+op+" "+right)
		}
	}
	return strings.Join(conds, " AND "), nil
}

// filterOperand resolves a filter's column to an expression valid over
// the FROM rows: calculated columns and mapped targets expand to their
// source expressions, since WHERE cannot reference SELECT aliases.
func (s *session) filterOperand(node *ir.Node, expr *ir.Expression, alias string, targetExpr, calcExpr map[string]string) (string, error) {
	if expr.IsColumnRef() {
		key := ir.Key(expr.Value)
		if e, ok := calcExpr[key]; ok {
			return "(" + e + ")", nil
		}
		if e, ok := targetExpr[key]; ok {
			return e, nil
		}
	}
	return s.renderExpr(node, expr, alias)
}

func (s *session) renderExpr(node *ir.Node, expr *ir.Expression, alias string) (string, error) {
	if expr == nil {
		return "NULL", nil
	}
	switch expr.Kind {
	case ir.ExprColumn:
		col := quoteCol(expr.Value)
		if alias != "" {
			return alias + "." + col, nil
		}
		return col, nil
	case ir.ExprLiteral, ir.ExprRaw:
		// Literals and operand lists arrive already in SQL form;
		// formula text goes through translateFormula instead.
		return expr.Value, nil
	default:
		s.warnf("node %s: unsupported mapping expression kind %v", node.Name, expr.Kind)
		return "NULL", nil
	}
}

func (s *session) translateFormula(node *ir.Node, formula string) (string, error) {
	rendered, warns, err := s.tr.TranslateFormula(formula)
	if err != nil {
		return "", &RenderError{Node: node.Name, Message: err.Error(), Err: err}
	}
	for _, w := range warns {
		s.warnf("node %s: %s", node.Name, w.String())
	}
	return rendered, nil
}

// needsNumericCast implements the aggregate-cast policy: SUM and AVG
// over a column whose declared type is not numeric must be cast.
// Calculated columns without a declared type count as string-typed.
func (s *session) needsNumericCast(node *ir.Node, spec ir.AggregationSpec) bool {
	fn := strings.ToUpper(spec.Function)
	if fn != "SUM" && fn != "AVG" {
		return false
	}
	t := spec.Type
	if t == nil && spec.Expr.IsColumnRef() {
		t = s.declaredType(node.Name, spec.Expr.Value, map[string]bool{})
	}
	if t == nil {
		return false
	}
	return !t.Numeric()
}

// declaredType walks the graph looking for the column's declared type:
// calculated-column declarations and typed mappings along the input
// chain. Returns nil when nothing declares a type.
func (s *session) declaredType(nodeName, col string, visited map[string]bool) *ir.TypeSpec {
	key := ir.Key(nodeName)
	if visited[key] {
		return nil
	}
	visited[key] = true

	node, ok := s.sc.Node(nodeName)
	if !ok {
		return nil
	}
	want := ir.Key(col)
	for _, c := range node.Calculated {
		if ir.Key(c.Name) == want {
			if c.Type != nil {
				return c.Type
			}
			// Untyped calculated columns are string-typed by policy.
			return &ir.TypeSpec{Base: ir.TypeVarchar}
		}
	}
	for _, m := range node.Columns {
		if ir.Key(m.Target) != want {
			continue
		}
		if m.Type != nil {
			return m.Type
		}
		if m.Expr.IsColumnRef() {
			source := m.SourceNode
			if source == "" && len(node.Inputs) > 0 {
				source = node.Inputs[0]
			}
			if source != "" {
				return s.declaredType(source, m.Expr.Value, visited)
			}
		}
		return nil
	}
	for _, in := range node.Inputs {
		if t := s.declaredType(in, col, visited); t != nil {
			return t
		}
	}
	return nil
}

// fromClause resolves an input reference to a FROM expression: a
// schema-qualified table for data sources, the stage alias otherwise.
func (s *session) fromClause(ref string) string {
	ds, ok := s.sc.DataSource(ref)
	if !ok {
		return s.alias(ref)
	}

	if ds.Kind == ir.SourceCalculationView && s.r.dialect.CalcViewSchema != "" {
		path := ds.ObjectName
		switch {
		case ds.PackagePath != "":
			path = ds.PackagePath + "/" + ds.ObjectName
		case strings.Contains(ds.SchemaName, "."):
			path = ds.SchemaName + "/" + ds.ObjectName
		}
		// Package paths contain dots that are not schema separators,
		// so the whole path is quoted as one identifier.
		return `"` + s.r.dialect.CalcViewSchema + `"."` + path + `"`
	}

	schema := s.resolveSchema(ds.SchemaName)
	if schema != "" {
		return s.r.dialect.QuoteIdent(schema) + "." + s.r.dialect.QuoteIdent(ds.ObjectName)
	}
	return s.r.dialect.QuoteIdent(ds.ObjectName)
}

func (s *session) resolveSchema(schema string) string {
	if s.r.cfg.TargetSchema != "" {
		return s.r.cfg.TargetSchema
	}
	if mapped, ok := s.r.cfg.SchemaOverrides[schema]; ok {
		return mapped
	}
	return schema
}

var leadingDigitsRe = regexp.MustCompile(`^\d+/`)

// alias converts a node name into a SQL-safe, lowercase stage alias.
func (s *session) alias(ref string) string {
	key := ir.Key(ref)
	if a, ok := s.aliases[key]; ok {
		return a
	}
	cleaned := leadingDigitsRe.ReplaceAllString(strings.TrimSpace(ref), "")
	a := strings.ToLower(cleaned)
	a = strings.ReplaceAll(a, " ", "_")
	a = strings.ReplaceAll(a, "/", "_")
	s.aliases[key] = a
	return a
}

func (s *session) warnf(format string, args ...any) {
	s.warnings = append(s.warnings, fmt.Sprintf(format, args...))
}

func stageColumns(node *ir.Node) []string {
	exposed := make(map[string]bool, len(node.ViewAttributes))
	for _, v := range node.ViewAttributes {
		exposed[ir.Key(v)] = true
	}
	var cols []string
	seen := make(map[string]bool)
	for _, m := range node.Columns {
		key := ir.Key(m.Target)
		if node.Kind == ir.KindJoin && len(exposed) > 0 && !exposed[key] {
			continue
		}
		if !seen[key] {
			seen[key] = true
			cols = append(cols, m.Target)
		}
	}
	for _, c := range node.Calculated {
		if !seen[ir.Key(c.Name)] {
			seen[ir.Key(c.Name)] = true
			cols = append(cols, c.Name)
		}
	}
	if node.Kind == ir.KindRank {
		rankCol := node.RankColumn
		if rankCol == "" {
			rankCol = "RANK_COLUMN"
		}
		if !seen[ir.Key(rankCol)] {
			cols = append(cols, rankCol)
		}
	}
	return cols
}

// expandColumnRefs replaces quoted references to already-rendered
// columns inside a formula with their rendered expressions. Keys are
// iterated in sorted order for deterministic output.
func expandColumnRefs(formula string, rendered map[string]string, wrap bool) string {
	if len(rendered) == 0 {
		return formula
	}
	keys := make([]string, 0, len(rendered))
	for k := range rendered {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		re := regexp.MustCompile(`(?i)"` + regexp.QuoteMeta(key) + `"`)
		repl := rendered[key]
		if wrap {
			repl = "(" + repl + ")"
		}
		formula = re.ReplaceAllLiteralString(formula, repl)
	}
	return formula
}

func negateOperator(op string) string {
	switch strings.ToUpper(op) {
	case "=":
		return "<>"
	case "<>", "!=":
		return "="
	case ">":
		return "<="
	case ">=":
		return "<"
	case "<":
		return ">="
	case "<=":
		return ">"
	case "IN":
		return "NOT IN"
	case "NOT IN":
		return "IN"
	case "LIKE":
		return "NOT LIKE"
	case "NOT LIKE":
		return "LIKE"
	case "BETWEEN":
		return "NOT BETWEEN"
	case "NOT BETWEEN":
		return "BETWEEN"
	default:
		return "NOT " + op
	}
}

func quoteCol(name string) string {
	return `"` + strings.ToUpper(strings.TrimSpace(name)) + `"`
}

func indent(sql, prefix string) string {
	lines := strings.Split(sql, "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}
