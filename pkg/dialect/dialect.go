// Package dialect provides SQL dialect configuration for the renderer.
//
// This package contains the public contract for dialect definitions used by
// the renderer, validator, and translation catalog. Concrete dialect
// implementations are registered from pkg/dialects/*/ packages.
package dialect

import (
	"fmt"
	"strings"

	"github.com/x2s-labs/x2s/pkg/ir"
)

// IdentifierConfig controls how identifiers are quoted and normalized.
type IdentifierConfig struct {
	Quote    string // opening quote character
	QuoteEnd string // closing quote character
	Escape   string // escape sequence for the quote inside an identifier
}

// Dialect represents a SQL dialect configuration.
type Dialect struct {
	Name          string
	DefaultSchema string
	Identifiers   IdentifierConfig

	// TypeNames maps portable base types to dialect type names.
	TypeNames map[ir.BaseType]string

	// ConcatOperator joins string expressions ("||" everywhere we target,
	// but kept configurable).
	ConcatOperator string

	// CurrentDateFunc is the niladic current-date expression.
	CurrentDateFunc string

	// ViewDDL is the clause emitted before the view body when output is
	// wrapped in a view definition. %[1]s is the quoted view name.
	// Dialects without CREATE OR REPLACE use a DROP;CREATE pair here.
	ViewDDL string

	// CalcViewSchema is the catalog schema that exposes activated
	// calculation views (HANA's _SYS_BIC). Empty when views resolve
	// like ordinary tables.
	CalcViewSchema string

	// ForeignFunctions maps function names that do not exist in this
	// dialect but commonly survive in SQL ported from other systems to
	// their local rename, or "" when no mechanical rename exists.
	ForeignFunctions map[string]string

	// ForeignTypes maps CAST type names invalid in this dialect to the
	// local spelling, or "" when no mechanical rename exists.
	ForeignTypes map[string]string

	// reservedWords are keywords that must be quoted when used as identifiers.
	reservedWords map[string]struct{}
}

// Option configures a Dialect.
type Option func(*Dialect)

// WithReservedWords sets the dialect's reserved word list.
func WithReservedWords(words ...string) Option {
	return func(d *Dialect) {
		d.reservedWords = make(map[string]struct{}, len(words))
		for _, w := range words {
			d.reservedWords[strings.ToUpper(w)] = struct{}{}
		}
	}
}

// New creates a dialect with the given options applied.
func New(d Dialect, opts ...Option) *Dialect {
	for _, opt := range opts {
		opt(&d)
	}
	if d.reservedWords == nil {
		d.reservedWords = map[string]struct{}{}
	}
	return &d
}

// IsReserved reports whether word is a reserved keyword in this dialect.
// The check is case-insensitive.
func (d *Dialect) IsReserved(word string) bool {
	_, ok := d.reservedWords[strings.ToUpper(word)]
	return ok
}

// QuoteIdent quotes an identifier if it needs quoting: reserved words,
// identifiers with embedded spaces or special characters. Plain
// identifiers pass through unchanged so rendered SQL stays readable.
func (d *Dialect) QuoteIdent(name string) string {
	if name == "" {
		return name
	}
	if d.IsReserved(name) || needsQuoting(name) {
		escaped := strings.ReplaceAll(name, d.Identifiers.QuoteEnd, d.Identifiers.Escape)
		return d.Identifiers.Quote + escaped + d.Identifiers.QuoteEnd
	}
	return name
}

// QuoteString renders a string literal with single quotes, doubling any
// embedded single quotes.
func (d *Dialect) QuoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// TypeName renders a TypeSpec in this dialect's syntax.
func (d *Dialect) TypeName(t ir.TypeSpec) string {
	base, ok := d.TypeNames[t.Base]
	if !ok {
		base = string(t.Base)
	}
	switch {
	case t.Base == ir.TypeNumber && t.Length > 0:
		return fmt.Sprintf("%s(%d,%d)", base, t.Length, t.Scale)
	case t.Base == ir.TypeVarchar && t.Length > 0:
		return fmt.Sprintf("%s(%d)", base, t.Length)
	default:
		return base
	}
}

// CreateViewClause renders the DDL preamble for wrapping the output in
// a view. Each dot-separated part of name is quoted individually.
func (d *Dialect) CreateViewClause(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		escaped := strings.ReplaceAll(p, d.Identifiers.QuoteEnd, d.Identifiers.Escape)
		parts[i] = d.Identifiers.Quote + escaped + d.Identifiers.QuoteEnd
	}
	return fmt.Sprintf(d.ViewDDL, strings.Join(parts, "."))
}

// Cast renders an explicit cast of expr to the given type.
func (d *Dialect) Cast(expr string, t ir.TypeSpec) string {
	return fmt.Sprintf("CAST(%s AS %s)", expr, d.TypeName(t))
}

func needsQuoting(name string) bool {
	for i, r := range name {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r == '_':
		case r >= '0' && r <= '9':
			if i == 0 {
				return true
			}
		default:
			return true
		}
	}
	return false
}
