// Package ir defines the intermediate representation for calculation
// scenarios: the node graph, column mappings, expressions, and input
// parameters produced by the XML parser and consumed by the renderer.
package ir

import "strings"

// NodeKind classifies a pipeline stage.
type NodeKind string

const (
	KindProjection  NodeKind = "PROJECTION"
	KindJoin        NodeKind = "JOIN"
	KindAggregation NodeKind = "AGGREGATION"
	KindUnion       NodeKind = "UNION"
	KindRank        NodeKind = "RANK"
	KindCalculation NodeKind = "CALCULATION"
)

// DataSourceKind classifies the physical object a data source points at.
type DataSourceKind string

const (
	SourceTable           DataSourceKind = "TABLE"
	SourceView            DataSourceKind = "VIEW"
	SourceCalculationView DataSourceKind = "CALCULATION_VIEW"
)

// JoinType is the SQL join variant of a join node.
type JoinType string

const (
	JoinInner      JoinType = "INNER"
	JoinLeftOuter  JoinType = "LEFT OUTER"
	JoinRightOuter JoinType = "RIGHT OUTER"
	JoinFullOuter  JoinType = "FULL OUTER"
)

// Key returns the canonical identity for a node or stage name.
// Node identity is case-insensitive throughout the pipeline; the
// original display spelling is kept separately for output.
func Key(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

// DataSource is a reference to a physical table, view, or another
// calculation view.
type DataSource struct {
	ID         string
	Kind       DataSourceKind
	SchemaName string
	ObjectName string
	// PackagePath qualifies calculation-view references (empty for
	// plain tables and views).
	PackagePath string
}

// Mapping maps one output column of a node to its source expression.
// A mapping whose expression is a plain column reference is a real
// column; anything else is calculated.
type Mapping struct {
	Target     string
	Expr       *Expression
	SourceNode string // input node the expression reads from, if known
	Type       *TypeSpec
}

// CalculatedColumn is a node-level calculated attribute with a raw
// formula expression.
type CalculatedColumn struct {
	Name   string
	Expr   *Expression
	Type   *TypeSpec
	Hidden bool
}

// JoinCondition is one equality pair of a join node.
type JoinCondition struct {
	Left     *Expression
	Right    *Expression
	Operator string // "=" unless the source says otherwise
}

// PredicateKind classifies a filter predicate.
type PredicateKind string

const (
	PredComparison PredicateKind = "COMPARISON"
	PredIsNull     PredicateKind = "IS_NULL"
	PredRaw        PredicateKind = "RAW"
)

// Predicate is a filter attached to a node. Including=false inverts
// the operator at render time (an excluding filter).
type Predicate struct {
	Kind      PredicateKind
	Left      *Expression
	Operator  string
	Right     *Expression
	Including bool
}

// AggregationSpec describes one aggregated measure of an aggregation
// node.
type AggregationSpec struct {
	Target   string
	Function string // SUM, MIN, MAX, COUNT, AVG
	Expr     *Expression
	Type     *TypeSpec
}

// OrderBySpec is one ordering column of a rank node window.
type OrderBySpec struct {
	Column    string
	Direction string // ASC or DESC
}

// Node is one stage of the dataflow graph. Exactly one of the
// kind-specific field groups is populated, keyed on Kind.
type Node struct {
	Name    string // original display name
	Kind    NodeKind
	Inputs  []string // node or data-source references, declaration order
	Columns []Mapping
	// ViewAttributes is the declared, ordered output column list
	// (hidden attributes excluded).
	ViewAttributes []string
	Calculated     []CalculatedColumn
	Filters        []Predicate

	// Join fields.
	JoinType       JoinType
	JoinConditions []JoinCondition

	// Aggregation fields.
	GroupBy      []string
	Aggregations []AggregationSpec

	// Union fields.
	UnionAll bool

	// Rank fields.
	PartitionBy []string
	OrderBy     []OrderBySpec
	RankColumn  string
	Threshold   int // 0 means no threshold
}

// InputParameter is a scenario-level variable substituted into
// expressions at render time.
type InputParameter struct {
	Name          string
	DataType      string
	Default       string
	Mandatory     bool
	SelectionType string
}

// LogicalAttribute is one exposed attribute of the logical model.
type LogicalAttribute struct {
	Name       string
	ColumnName string
	Hidden     bool
	IsKey      bool
}

// LogicalModel describes the semantic layer on top of the terminal
// node: which attributes and measures the view exposes.
type LogicalModel struct {
	ID         string
	BaseNodeID string
	Attributes []LogicalAttribute
}

// Scenario is the root IR object for one parsed view document. Node
// and data-source order is declaration order; lookups go through the
// case-insensitive key maps.
type Scenario struct {
	ID              string
	Description     string
	DefaultClient   string
	DefaultLanguage string

	DataSources []*DataSource
	Nodes       []*Node
	Parameters  []InputParameter
	Logical     *LogicalModel

	sourceIndex map[string]*DataSource
	nodeIndex   map[string]*Node
}

// AddDataSource registers a data source, preserving declaration order.
func (s *Scenario) AddDataSource(ds *DataSource) {
	if s.sourceIndex == nil {
		s.sourceIndex = make(map[string]*DataSource)
	}
	key := Key(ds.ID)
	if _, ok := s.sourceIndex[key]; ok {
		return
	}
	s.sourceIndex[key] = ds
	s.DataSources = append(s.DataSources, ds)
}

// AddNode registers a node, preserving declaration order. A node with
// a name differing only in case from an existing node replaces it.
func (s *Scenario) AddNode(n *Node) {
	if s.nodeIndex == nil {
		s.nodeIndex = make(map[string]*Node)
	}
	key := Key(n.Name)
	if prev, ok := s.nodeIndex[key]; ok {
		for i, existing := range s.Nodes {
			if existing == prev {
				s.Nodes[i] = n
				break
			}
		}
		s.nodeIndex[key] = n
		return
	}
	s.nodeIndex[key] = n
	s.Nodes = append(s.Nodes, n)
}

// Node looks up a node by name, case-insensitively.
func (s *Scenario) Node(name string) (*Node, bool) {
	n, ok := s.nodeIndex[Key(name)]
	return n, ok
}

// DataSource looks up a data source by ID, case-insensitively.
func (s *Scenario) DataSource(id string) (*DataSource, bool) {
	ds, ok := s.sourceIndex[Key(id)]
	return ds, ok
}

// IsDataSource reports whether the reference names a data source
// rather than a node.
func (s *Scenario) IsDataSource(ref string) bool {
	_, ok := s.sourceIndex[Key(ref)]
	return ok
}

// TerminalNode returns the node no other node depends on. When the
// logical model names a base node, that node wins. Falls back to the
// last declared unreferenced node.
func (s *Scenario) TerminalNode() (*Node, bool) {
	if s.Logical != nil && s.Logical.BaseNodeID != "" {
		if n, ok := s.Node(s.Logical.BaseNodeID); ok {
			return n, true
		}
	}
	referenced := make(map[string]bool)
	for _, n := range s.Nodes {
		for _, in := range n.Inputs {
			referenced[Key(in)] = true
		}
	}
	for i := len(s.Nodes) - 1; i >= 0; i-- {
		if !referenced[Key(s.Nodes[i].Name)] {
			return s.Nodes[i], true
		}
	}
	if len(s.Nodes) > 0 {
		return s.Nodes[len(s.Nodes)-1], true
	}
	return nil, false
}
