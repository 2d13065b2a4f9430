// Package hana provides the SAP HANA SQL dialect definition.
package hana

import (
	"github.com/x2s-labs/x2s/pkg/dialect"
	"github.com/x2s-labs/x2s/pkg/ir"
)

func init() {
	dialect.Register(HANA)
}

// HANA is the SAP HANA SQL dialect.
var HANA = dialect.New(dialect.Dialect{
	Name:          "hana",
	DefaultSchema: "SAPABAP1",
	Identifiers: dialect.IdentifierConfig{
		Quote:    `"`,
		QuoteEnd: `"`,
		Escape:   `""`,
	},
	TypeNames: map[ir.BaseType]string{
		ir.TypeVarchar:   "NVARCHAR",
		ir.TypeNumber:    "DECIMAL",
		ir.TypeBoolean:   "BOOLEAN",
		ir.TypeDate:      "DATE",
		ir.TypeTimestamp: "TIMESTAMP",
	},
	ConcatOperator:  "||",
	CurrentDateFunc: "CURRENT_DATE",
	// HANA rejects CREATE OR REPLACE on views; drop with CASCADE first.
	ViewDDL:        "DROP VIEW %[1]s CASCADE;\nCREATE VIEW %[1]s AS",
	CalcViewSchema: "_SYS_BIC",
	ForeignFunctions: map[string]string{
		"IFF": "", // three-argument IFF needs a CASE rewrite, not a rename
	},
	ForeignTypes: map[string]string{
		"NUMBER": "DECIMAL",
	},
}, dialect.WithReservedWords(
	"ALL", "ALTER", "AS", "BEFORE", "BEGIN", "BOTH", "CASE", "CHAR",
	"CONDITION", "CONNECT", "CROSS", "CUBE", "CURRENT_CONNECTION",
	"CURRENT_DATE", "CURRENT_SCHEMA", "CURRENT_TIME", "CURRENT_TIMESTAMP",
	"CURRENT_USER", "CURRENT_UTCDATE", "CURRENT_UTCTIME",
	"CURRENT_UTCTIMESTAMP", "CURRVAL", "CURSOR", "DECLARE", "DISTINCT",
	"ELSE", "ELSEIF", "END", "EXCEPT", "EXCEPTION", "EXEC", "FALSE",
	"FOR", "FROM", "FULL", "GROUP", "HAVING", "IN", "INNER", "INOUT",
	"INTERSECT", "INTO", "IS", "JOIN", "LEADING", "LEFT", "LIMIT",
	"LOOP", "MINUS", "NATURAL", "NCHAR", "NEXTVAL", "NULL", "ON",
	"ORDER", "OUT", "PRIOR", "RETURN", "RETURNS", "REVERSE", "RIGHT",
	"ROLLUP", "ROWID", "SELECT", "SESSION_USER", "SET", "SQL", "START",
	"SYSUUID", "TABLESAMPLE", "TOP", "TRAILING", "TRUE", "UNION",
	"UNKNOWN", "USING", "UTCTIMESTAMP", "VALUES", "WHEN", "WHERE",
	"WHILE", "WITH",
))
