package ir

import "strings"

// ExprKind classifies an expression tree node.
type ExprKind string

const (
	ExprColumn   ExprKind = "COLUMN"
	ExprLiteral  ExprKind = "LITERAL"
	ExprFunction ExprKind = "FUNCTION"
	ExprOperator ExprKind = "OPERATOR"
	ExprRaw      ExprKind = "RAW"
)

// Expression is an immutable expression tree. Column and Literal
// nodes are leaves; Function and Operator nodes carry arguments; Raw
// holds formula text that could not be parsed structurally and passes
// through verbatim.
type Expression struct {
	Kind ExprKind
	// Value is the column name, literal text, function name, or
	// operator symbol, depending on Kind.
	Value string
	Args  []*Expression
	Type  *TypeSpec
}

// Col returns a column-reference leaf.
func Col(name string) *Expression {
	return &Expression{Kind: ExprColumn, Value: name}
}

// Lit returns a literal leaf.
func Lit(text string) *Expression {
	return &Expression{Kind: ExprLiteral, Value: text}
}

// Fn returns a function-call node.
func Fn(name string, args ...*Expression) *Expression {
	return &Expression{Kind: ExprFunction, Value: strings.ToUpper(name), Args: args}
}

// Op returns a binary-operator node.
func Op(symbol string, left, right *Expression) *Expression {
	return &Expression{Kind: ExprOperator, Value: symbol, Args: []*Expression{left, right}}
}

// Raw returns an opaque formula-text leaf.
func Raw(text string) *Expression {
	return &Expression{Kind: ExprRaw, Value: text}
}

// IsColumnRef reports whether the expression is a bare column
// reference. Mappings whose expression is a bare reference are real
// columns; everything else is calculated.
func (e *Expression) IsColumnRef() bool {
	return e != nil && e.Kind == ExprColumn
}

// Clone returns a deep copy. Translation rebuilds trees instead of
// mutating, so shared subtrees are never modified in place.
func (e *Expression) Clone() *Expression {
	if e == nil {
		return nil
	}
	out := &Expression{Kind: e.Kind, Value: e.Value, Type: e.Type}
	if len(e.Args) > 0 {
		out.Args = make([]*Expression, len(e.Args))
		for i, a := range e.Args {
			out.Args[i] = a.Clone()
		}
	}
	return out
}

// Walk visits the tree depth-first, children before parents.
func (e *Expression) Walk(fn func(*Expression)) {
	if e == nil {
		return
	}
	for _, a := range e.Args {
		a.Walk(fn)
	}
	fn(e)
}
