package ir

import (
	"fmt"
	"strings"
)

// BaseType is the portable type vocabulary the renderer emits.
type BaseType string

const (
	TypeVarchar   BaseType = "VARCHAR"
	TypeNumber    BaseType = "NUMBER"
	TypeBoolean   BaseType = "BOOLEAN"
	TypeDate      BaseType = "DATE"
	TypeTimestamp BaseType = "TIMESTAMP_NTZ"
)

// TypeSpec is a portable type plus optional precision metadata.
type TypeSpec struct {
	Base   BaseType
	Length int
	Scale  int
}

// GenericString is the policy type for calculated columns whose type
// cannot be inferred statically. It is deliberately a plain string
// variant, never a dictionary-field type.
func GenericString() *TypeSpec {
	return &TypeSpec{Base: TypeVarchar, Length: 255}
}

// Numeric reports whether the type participates in arithmetic without
// an explicit cast.
func (t *TypeSpec) Numeric() bool {
	return t != nil && t.Base == TypeNumber
}

// Render formats the type as it appears in SQL declarations.
func (t *TypeSpec) Render() string {
	if t == nil {
		return string(TypeVarchar)
	}
	switch t.Base {
	case TypeVarchar:
		if t.Length > 0 {
			return fmt.Sprintf("%s(%d)", t.Base, t.Length)
		}
	case TypeNumber:
		if t.Length > 0 && t.Scale > 0 {
			return fmt.Sprintf("%s(%d, %d)", t.Base, t.Length, t.Scale)
		}
		if t.Length > 0 {
			return fmt.Sprintf("%s(%d)", t.Base, t.Length)
		}
	}
	return string(t.Base)
}

// TypeFromDeclaration maps a source-system datatype name to the
// portable type vocabulary. Unknown names fall back to VARCHAR.
func TypeFromDeclaration(datatype string, length, scale int) *TypeSpec {
	switch strings.ToUpper(strings.TrimSpace(datatype)) {
	case "VARCHAR", "NVARCHAR", "ALPHANUM", "CHAR", "STRING":
		if length == 0 {
			length = 255
		}
		return &TypeSpec{Base: TypeVarchar, Length: length}
	case "DECIMAL", "NUMERIC":
		if length == 0 {
			length = 38
		}
		return &TypeSpec{Base: TypeNumber, Length: length, Scale: scale}
	case "INTEGER", "INT", "SMALLINT", "BIGINT":
		return &TypeSpec{Base: TypeNumber, Length: 38}
	case "DOUBLE", "FLOAT", "REAL":
		return &TypeSpec{Base: TypeNumber, Length: 38, Scale: scale}
	case "BOOLEAN":
		return &TypeSpec{Base: TypeBoolean}
	case "DATE":
		return &TypeSpec{Base: TypeDate}
	case "TIMESTAMP", "SECONDDATE", "TIMESTAMP_NTZ":
		return &TypeSpec{Base: TypeTimestamp}
	case "":
		return nil
	}
	if length == 0 {
		length = 255
	}
	return &TypeSpec{Base: TypeVarchar, Length: length}
}
