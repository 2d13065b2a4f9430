// Package snowflake provides the Snowflake SQL dialect definition.
// This package is pure Go with no database driver dependencies.
package snowflake

import (
	"github.com/x2s-labs/x2s/pkg/dialect"
	"github.com/x2s-labs/x2s/pkg/ir"
)

func init() {
	dialect.Register(Snowflake)
}

// Snowflake is the Snowflake SQL dialect.
var Snowflake = dialect.New(dialect.Dialect{
	Name:          "snowflake",
	DefaultSchema: "PUBLIC",
	Identifiers: dialect.IdentifierConfig{
		Quote:    `"`,
		QuoteEnd: `"`,
		Escape:   `""`,
	},
	TypeNames: map[ir.BaseType]string{
		ir.TypeVarchar:   "VARCHAR",
		ir.TypeNumber:    "NUMBER",
		ir.TypeBoolean:   "BOOLEAN",
		ir.TypeDate:      "DATE",
		ir.TypeTimestamp: "TIMESTAMP_NTZ",
	},
	ConcatOperator:  "||",
	CurrentDateFunc: "CURRENT_DATE()",
	ViewDDL:         "CREATE OR REPLACE VIEW %[1]s AS",
	ForeignFunctions: map[string]string{
		"IF": "IFF",
	},
}, dialect.WithReservedWords(
	"ACCOUNT", "ALL", "ALTER", "AND", "ANY", "AS", "BETWEEN", "BY",
	"CASE", "CAST", "CHECK", "COLUMN", "CONNECT", "CREATE", "CROSS",
	"CURRENT", "DELETE", "DISTINCT", "DROP", "ELSE", "EXISTS", "FALSE",
	"FOLLOWING", "FOR", "FROM", "FULL", "GRANT", "GROUP", "HAVING",
	"ILIKE", "IN", "INCREMENT", "INNER", "INSERT", "INTERSECT", "INTO",
	"IS", "JOIN", "LATERAL", "LEFT", "LIKE", "LIMIT", "MINUS", "NATURAL",
	"NOT", "NULL", "OF", "ON", "OR", "ORDER", "QUALIFY", "REGEXP",
	"REVOKE", "RIGHT", "RLIKE", "ROW", "ROWS", "SAMPLE", "SELECT", "SET",
	"SOME", "START", "TABLE", "TABLESAMPLE", "THEN", "TO", "TRIGGER",
	"TRUE", "UNION", "UNIQUE", "UPDATE", "USING", "VALUES", "WHEN",
	"WHENEVER", "WHERE", "WITH",
))
