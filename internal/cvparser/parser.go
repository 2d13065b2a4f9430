// Package cvparser turns calculation-view XML documents into the
// scenario IR. Node and column declaration order is preserved, node
// lookups are case-insensitive, and the resulting graph is checked for
// undefined references, unresolvable join keys, and cycles before it
// is returned.
package cvparser

import (
	"encoding/xml"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/x2s-labs/x2s/internal/dag"
	"github.com/x2s-labs/x2s/pkg/ir"
)

// ParseFile reads and parses a scenario document from disk.
func ParseFile(path string) (*ir.Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ParseError{Message: "reading " + path, Err: err}
	}
	return Parse(data)
}

// Parse converts scenario XML into a validated ir.Scenario.
func Parse(data []byte) (*ir.Scenario, error) {
	var doc xmlScenario
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, &ParseError{Message: "malformed XML: " + err.Error(), Err: err}
	}

	b := &builder{
		scenario: &ir.Scenario{
			ID:              doc.ID,
			Description:     doc.Descriptions.DefaultDescription,
			DefaultClient:   doc.DefaultClient,
			DefaultLanguage: doc.DefaultLanguage,
		},
		joins: make(map[string]*joinSpec),
	}

	b.buildDataSources(doc.DataSources)
	b.buildParameters(doc.Variables)
	if err := b.buildNodes(doc.Views); err != nil {
		return nil, err
	}
	b.buildLogicalModel(doc.LogicalModel)

	if err := b.checkReferences(); err != nil {
		return nil, err
	}
	if err := b.resolveJoins(); err != nil {
		return nil, err
	}
	if err := b.checkCycles(); err != nil {
		return nil, err
	}
	return b.scenario, nil
}

// inputMappings is the target->source mapping table of one join input,
// kept aside until all nodes exist and join keys can be resolved.
type inputMappings struct {
	ref      string
	byTarget map[string]string
}

type joinSpec struct {
	attrs  []string
	inputs []inputMappings
}

type builder struct {
	scenario *ir.Scenario
	joins    map[string]*joinSpec
}

func (b *builder) buildDataSources(sources []xmlDataSource) {
	for _, ds := range sources {
		if ds.ID == "" {
			continue
		}
		out := &ir.DataSource{
			ID:   ds.ID,
			Kind: mapSourceKind(ds.Type),
		}
		if ds.ColumnObject != nil {
			out.SchemaName = ds.ColumnObject.SchemaName
			out.ObjectName = ds.ColumnObject.ColumnObjectName
		}
		if uri := strings.TrimSpace(ds.ResourceURI); uri != "" {
			// Authoring-tool folder segments are organizational, not
			// part of the referenced view's path.
			name := uri
			for _, folder := range []string{"/calculationviews/", "/analyticviews/", "/attributeviews/"} {
				name = strings.ReplaceAll(name, folder, "/")
			}
			out.ObjectName = strings.TrimPrefix(name, "/")
		}
		b.scenario.AddDataSource(out)
	}
}

func (b *builder) buildParameters(vars []xmlVariable) {
	for _, v := range vars {
		if v.ID == "" || v.Properties == nil {
			continue
		}
		p := ir.InputParameter{
			Name:      v.ID,
			DataType:  v.Properties.Datatype,
			Default:   v.Properties.DefaultValue,
			Mandatory: strings.EqualFold(v.Properties.Mandatory, "true"),
		}
		if v.Properties.Selection != nil {
			p.SelectionType = v.Properties.Selection.Type
		}
		b.scenario.Parameters = append(b.scenario.Parameters, p)
	}
}

func (b *builder) buildNodes(views []xmlView) error {
	for _, view := range views {
		if view.ID == "" {
			continue
		}
		node, spec, err := b.buildNode(view)
		if err != nil {
			return err
		}
		b.scenario.AddNode(node)
		if spec != nil {
			b.joins[ir.Key(node.Name)] = spec
		}
	}
	return nil
}

func (b *builder) buildNode(view xmlView) (*ir.Node, *joinSpec, error) {
	inputs, perInput, err := b.buildInputs(view)
	if err != nil {
		return nil, nil, err
	}

	node := &ir.Node{
		Name:   view.ID,
		Kind:   nodeKind(view),
		Inputs: inputs,
	}

	for _, per := range perInput {
		for _, m := range per.ordered {
			node.Columns = append(node.Columns, ir.Mapping{
				Target:     m.target,
				Expr:       ir.Col(m.source),
				SourceNode: per.ref,
			})
		}
	}

	for _, attr := range view.ViewAttributes {
		if attr.ID == "" || strings.EqualFold(attr.Hidden, "true") {
			continue
		}
		node.ViewAttributes = append(node.ViewAttributes, attr.ID)
	}

	node.Calculated = buildCalculated(view.Calculated)
	node.Filters = buildFilters(view.ViewAttributes)

	switch node.Kind {
	case ir.KindJoin:
		node.JoinType = mapJoinType(view.JoinType)
		spec := &joinSpec{}
		for _, ja := range view.JoinAttributes {
			if ja.Name != "" {
				spec.attrs = append(spec.attrs, ja.Name)
			}
		}
		for _, per := range perInput {
			spec.inputs = append(spec.inputs, inputMappings{ref: per.ref, byTarget: per.byTarget})
		}
		return node, spec, nil

	case ir.KindAggregation:
		for _, attr := range view.ViewAttributes {
			if attr.ID == "" || strings.EqualFold(attr.Hidden, "true") {
				continue
			}
			if attr.AggregationType != "" {
				node.Aggregations = append(node.Aggregations, ir.AggregationSpec{
					Target:   attr.ID,
					Function: strings.ToUpper(attr.AggregationType),
					Expr:     ir.Col(attr.ID),
				})
			} else {
				node.GroupBy = append(node.GroupBy, attr.ID)
			}
		}

	case ir.KindUnion:
		node.UnionAll = true

	case ir.KindRank:
		node.RankColumn = "RANK_COLUMN"
		if w := view.Window; w != nil {
			for _, p := range w.PartitionElements {
				if col := extractColumnName(p); col != "" {
					node.PartitionBy = append(node.PartitionBy, col)
				}
			}
			for _, o := range w.Orders {
				if col := extractColumnName(o.ByElement); col != "" {
					dir := strings.ToUpper(o.Direction)
					if dir == "" {
						dir = "ASC"
					}
					node.OrderBy = append(node.OrderBy, ir.OrderBySpec{Column: col, Direction: dir})
				}
			}
			if col := extractColumnName(w.RankElement); col != "" {
				node.RankColumn = col
			}
			if w.Threshold != nil {
				if n, err := strconv.Atoi(strings.TrimSpace(w.Threshold.ConstantValue)); err == nil {
					node.Threshold = n
				}
			}
		}
	}

	return node, nil, nil
}

// orderedInput keeps one input's mappings in declaration order plus a
// lookup table for join-key resolution.
type orderedInput struct {
	ref      string
	ordered  []targetSource
	byTarget map[string]string
}

type targetSource struct {
	target, source string
}

func (b *builder) buildInputs(view xmlView) ([]string, []orderedInput, error) {
	var inputs []string
	var perInput []orderedInput

	for _, in := range view.Inputs {
		ref := cleanRef(in.Node)
		if ref == "" {
			ref = cleanRef(in.ViewNode)
		}
		if ref == "" {
			ref = cleanRef(in.DataSource)
		}
		if ref == "" && strings.TrimSpace(in.Entity) != "" {
			var err error
			ref, err = b.addEntityInput(in)
			if err != nil {
				return nil, nil, err
			}
			inputs = append(inputs, ref)
			// The synthetic projection already applied the table
			// mappings, so the consuming node reads targets 1:1.
			oi := orderedInput{ref: ref, byTarget: make(map[string]string)}
			for _, m := range in.Mappings {
				if target := m.target(); target != "" {
					oi.ordered = append(oi.ordered, targetSource{target: target, source: target})
					oi.byTarget[target] = target
				}
			}
			perInput = append(perInput, oi)
			continue
		}
		if ref == "" {
			continue
		}
		inputs = append(inputs, ref)

		oi := orderedInput{ref: ref, byTarget: make(map[string]string)}
		for _, m := range in.Mappings {
			target, source := m.target(), m.source()
			if target == "" || source == "" {
				continue
			}
			oi.ordered = append(oi.ordered, targetSource{target: target, source: source})
			oi.byTarget[target] = source
		}
		perInput = append(perInput, oi)
	}
	return inputs, perInput, nil
}

// addEntityInput handles inputs that reference a table directly
// instead of another view node: a synthetic projection node is created
// over a synthetic data source so the rest of the pipeline sees a
// uniform graph.
func (b *builder) addEntityInput(in xmlInput) (string, error) {
	schema, object, pkg := parseEntity(in.Entity)
	if object == "" {
		return "", &ParseError{Message: fmt.Sprintf("entity input %q has no object name", in.Entity)}
	}

	alias := in.Alias
	if alias == "" {
		alias = object
	}
	sourceID := "SRC_" + strings.ToUpper(alias)

	if _, ok := b.scenario.DataSource(sourceID); !ok {
		kind := ir.SourceTable
		if pkg != "" || strings.HasPrefix(object, "CV_") {
			kind = ir.SourceCalculationView
		}
		b.scenario.AddDataSource(&ir.DataSource{
			ID:          sourceID,
			Kind:        kind,
			SchemaName:  schema,
			ObjectName:  object,
			PackagePath: pkg,
		})
	}

	nodeID := "PROJ_" + strings.ToUpper(alias)
	if _, ok := b.scenario.Node(nodeID); !ok {
		proj := &ir.Node{
			Name:   nodeID,
			Kind:   ir.KindProjection,
			Inputs: []string{sourceID},
		}
		for _, m := range in.Mappings {
			target, source := m.target(), m.source()
			if target == "" || source == "" {
				continue
			}
			proj.Columns = append(proj.Columns, ir.Mapping{
				Target:     target,
				Expr:       ir.Col(source),
				SourceNode: sourceID,
			})
		}
		b.scenario.AddNode(proj)
	}
	return nodeID, nil
}

func buildCalculated(attrs []xmlCalculatedAttr) []ir.CalculatedColumn {
	var out []ir.CalculatedColumn
	for _, calc := range attrs {
		if calc.ID == "" {
			continue
		}
		length, _ := strconv.Atoi(calc.Length)
		scale, _ := strconv.Atoi(calc.Scale)
		out = append(out, ir.CalculatedColumn{
			Name:   calc.ID,
			Expr:   ir.Raw(strings.TrimSpace(calc.Formula)),
			Type:   ir.TypeFromDeclaration(calc.Datatype, length, scale),
			Hidden: strings.EqualFold(calc.Hidden, "true"),
		})
	}
	return out
}

var numericLiteralRe = regexp.MustCompile(`^-?[0-9]+(\.[0-9]+)?$`)

func buildFilters(attrs []xmlViewAttribute) []ir.Predicate {
	var out []ir.Predicate
	for _, attr := range attrs {
		if attr.ID == "" || attr.Filter == nil {
			continue
		}
		f := attr.Filter
		including := !strings.EqualFold(f.Including, "false")
		left := ir.Col(attr.ID)

		if f.Value != "" {
			out = append(out, ir.Predicate{
				Kind:      ir.PredComparison,
				Left:      left,
				Operator:  mapFilterOperator(f.Operator),
				Right:     filterLiteral(f.Value),
				Including: including,
			})
			continue
		}

		if len(f.Operands) > 0 {
			values := make([]string, 0, len(f.Operands))
			for _, op := range f.Operands {
				if op.Value != "" {
					values = append(values, "'"+strings.ReplaceAll(op.Value, "'", "''")+"'")
				}
			}
			if len(values) > 0 {
				out = append(out, ir.Predicate{
					Kind:      ir.PredComparison,
					Left:      left,
					Operator:  "IN",
					Right:     ir.Raw("(" + strings.Join(values, ", ") + ")"),
					Including: including,
				})
			}
		}
	}
	return out
}

// filterLiteral decides literal quoting. Values with leading zeros
// stay quoted even though they look numeric; stripping the quotes
// would corrupt identifiers like plant '0070'.
func filterLiteral(value string) *ir.Expression {
	if numericLiteralRe.MatchString(value) && !hasLeadingZero(value) {
		return ir.Lit(value)
	}
	return ir.Lit("'" + strings.ReplaceAll(value, "'", "''") + "'")
}

func hasLeadingZero(value string) bool {
	v := strings.TrimPrefix(value, "-")
	return len(v) > 1 && v[0] == '0' && v[1] != '.'
}

// resolveJoins turns the collected join attributes into key-pair
// conditions. A join attribute that cannot be resolved on a side via
// its input mappings nor traced through that side's own column list is
// a fatal error.
func (b *builder) resolveJoins() error {
	for _, node := range b.scenario.Nodes {
		spec, ok := b.joins[ir.Key(node.Name)]
		if !ok || len(spec.attrs) == 0 || len(spec.inputs) < 2 {
			continue
		}

		left := spec.inputs[0]
		for _, right := range spec.inputs[1:] {
			for _, attr := range spec.attrs {
				leftCol, err := b.resolveJoinSide(node.Name, attr, left)
				if err != nil {
					return err
				}
				rightCol, err := b.resolveJoinSide(node.Name, attr, right)
				if err != nil {
					return err
				}
				node.JoinConditions = append(node.JoinConditions, ir.JoinCondition{
					Left:     ir.Col(leftCol),
					Right:    ir.Col(rightCol),
					Operator: "=",
				})
			}
		}
	}
	return nil
}

func (b *builder) resolveJoinSide(nodeName, attr string, side inputMappings) (string, error) {
	if source, ok := resolveJoinMapping(attr, side.byTarget); ok {
		return source, nil
	}
	if b.exposesColumn(side.ref, attr, map[string]bool{}) {
		return attr, nil
	}
	return "", &ParseError{
		Scenario: b.scenario.ID,
		Node:     nodeName,
		Message:  fmt.Sprintf("join key %q is not exposed by input %q", attr, side.ref),
	}
}

// resolveJoinMapping matches a join attribute against an input's
// mapping targets: exact name first, then generated-name variants
// (JOIN$LEFT$RIGHT patterns), then the name with JOIN$ prefixes
// stripped.
func resolveJoinMapping(name string, byTarget map[string]string) (string, bool) {
	if s, ok := byTarget[name]; ok {
		return s, true
	}
	if strings.Contains(name, "$") {
		segments := []string{}
		for _, seg := range strings.Split(name, "$") {
			if seg != "" {
				segments = append(segments, seg)
			}
		}
		for i := len(segments); i > 0; i-- {
			if s, ok := byTarget[strings.Join(segments[:i], "$")]; ok {
				return s, true
			}
		}
		for i := len(segments) - 1; i >= 0; i-- {
			if s, ok := byTarget[segments[i]]; ok {
				return s, true
			}
		}
	}
	if strings.HasPrefix(name, "JOIN$") {
		if s, ok := byTarget[strings.TrimPrefix(name, "JOIN$")]; ok {
			return s, true
		}
		if s, ok := byTarget[strings.ReplaceAll(name, "JOIN$", "")]; ok {
			return s, true
		}
	}
	return "", false
}

// exposesColumn walks the graph from ref looking for a stage whose
// column list actually contains the named column. Data sources are
// assumed to expose any column; dictionary validation happens later in
// the procedural transpiler where the dictionary is available.
func (b *builder) exposesColumn(ref, col string, visited map[string]bool) bool {
	key := ir.Key(ref)
	if visited[key] {
		return false
	}
	visited[key] = true

	if b.scenario.IsDataSource(ref) {
		return true
	}
	node, ok := b.scenario.Node(ref)
	if !ok {
		return false
	}

	want := ir.Key(col)
	for _, m := range node.Columns {
		if ir.Key(m.Target) == want {
			return true
		}
	}
	for _, c := range node.Calculated {
		if ir.Key(c.Name) == want {
			return true
		}
	}
	for _, v := range node.ViewAttributes {
		if ir.Key(v) == want {
			return true
		}
	}
	for _, in := range node.Inputs {
		if b.exposesColumn(in, col, visited) {
			return true
		}
	}
	return false
}

func (b *builder) checkReferences() error {
	for _, node := range b.scenario.Nodes {
		for _, in := range node.Inputs {
			if _, ok := b.scenario.Node(in); ok {
				continue
			}
			if b.scenario.IsDataSource(in) {
				continue
			}
			return &ParseError{
				Scenario: b.scenario.ID,
				Node:     node.Name,
				Message:  fmt.Sprintf("undefined reference %q", in),
			}
		}
	}
	return nil
}

func (b *builder) checkCycles() error {
	g := dag.NewGraph()
	for _, node := range b.scenario.Nodes {
		g.AddNode(ir.Key(node.Name), nil)
	}
	for _, node := range b.scenario.Nodes {
		for _, in := range node.Inputs {
			if _, ok := b.scenario.Node(in); !ok {
				continue
			}
			if err := g.AddEdge(ir.Key(in), ir.Key(node.Name)); err != nil {
				return &ParseError{Scenario: b.scenario.ID, Node: node.Name, Message: err.Error()}
			}
		}
	}
	if has, path := g.HasCycle(); has {
		return &ParseError{
			Scenario: b.scenario.ID,
			Message:  fmt.Sprintf("node graph contains a cycle: %s", strings.Join(path, " -> ")),
		}
	}
	return nil
}

func (b *builder) buildLogicalModel(lm *xmlLogicalModel) {
	if lm == nil {
		return
	}
	logical := &ir.LogicalModel{ID: lm.ID, BaseNodeID: lm.ID}
	for _, attr := range lm.Attributes {
		if attr.ID == "" {
			continue
		}
		la := ir.LogicalAttribute{
			Name:   attr.ID,
			Hidden: strings.EqualFold(attr.Hidden, "true"),
			IsKey:  strings.EqualFold(attr.Key, "true"),
		}
		if attr.KeyMapping != nil {
			la.ColumnName = attr.KeyMapping.ColumnName
		}
		logical.Attributes = append(logical.Attributes, la)
	}
	b.scenario.Logical = logical
}

func nodeKind(view xmlView) ir.NodeKind {
	t := view.XSIType
	if i := strings.LastIndex(t, ":"); i >= 0 {
		t = t[i+1:]
	}
	switch {
	case strings.HasSuffix(t, "ProjectionView"):
		return ir.KindProjection
	case strings.HasSuffix(t, "JoinView"):
		return ir.KindJoin
	case strings.HasSuffix(t, "AggregationView"):
		return ir.KindAggregation
	case strings.HasSuffix(t, "UnionView"):
		return ir.KindUnion
	case strings.HasSuffix(t, "RankView"), strings.HasSuffix(t, "Rank"):
		return ir.KindRank
	}
	if view.Window != nil {
		return ir.KindRank
	}
	return ir.KindCalculation
}

// cleanRef strips the authoring tool's reference prefixes:
//
//	#/0/Star Join/Join_1 -> Star Join/Join_1
//	#//Aggregation_1     -> Aggregation_1
//	#Projection_1        -> Projection_1
func cleanRef(value string) string {
	text := strings.TrimSpace(value)
	if strings.HasPrefix(text, "#//") {
		return text[3:]
	}
	if strings.HasPrefix(text, "#/") {
		if i := strings.Index(text[2:], "/"); i >= 0 {
			return text[2+i+1:]
		}
		return text[2:]
	}
	return strings.TrimPrefix(text, "#")
}

// parseEntity splits an entity reference into schema, object, and
// package path. Forms: "SCHEMA"."TABLE", SCHEMA.TABLE, pkg.path::VIEW,
// or a bare object name.
func parseEntity(text string) (schema, object, pkg string) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(text), `"`, "")
	if i := strings.Index(cleaned, "::"); i >= 0 {
		return "", cleaned[i+2:], cleaned[:i]
	}
	if i := strings.LastIndex(cleaned, "."); i >= 0 {
		return cleaned[:i], cleaned[i+1:], ""
	}
	return "", cleaned, ""
}

// extractColumnName reads the trailing element name from references
// like "#//Projection_1/$CALMONTH$" or "$NETWR$".
func extractColumnName(text string) string {
	cleaned := cleanRef(strings.TrimSpace(text))
	if i := strings.LastIndex(cleaned, "/"); i >= 0 {
		cleaned = cleaned[i+1:]
	}
	return strings.Trim(cleaned, "$")
}

func mapSourceKind(value string) ir.DataSourceKind {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "", "DATA_BASE_TABLE":
		return ir.SourceTable
	case "CALCULATION_VIEW":
		return ir.SourceCalculationView
	default:
		return ir.SourceView
	}
}

func mapJoinType(value string) ir.JoinType {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "leftouter":
		return ir.JoinLeftOuter
	case "rightouter":
		return ir.JoinRightOuter
	case "fullouter":
		return ir.JoinFullOuter
	default:
		return ir.JoinInner
	}
}

func mapFilterOperator(value string) string {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "", "EQ":
		return "="
	case "NE":
		return "<>"
	case "GT":
		return ">"
	case "GE":
		return ">="
	case "LT":
		return "<"
	case "LE":
		return "<="
	default:
		return strings.ToUpper(strings.TrimSpace(value))
	}
}
