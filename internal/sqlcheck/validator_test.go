package sqlcheck

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/x2s-labs/x2s/pkg/dialect"
	_ "github.com/x2s-labs/x2s/pkg/dialects/hana"
	_ "github.com/x2s-labs/x2s/pkg/dialects/snowflake"
	"github.com/x2s-labs/x2s/pkg/ir"
)

func newValidator(t *testing.T, name string) *Validator {
	t.Helper()
	d, err := dialect.MustGet(name)
	require.NoError(t, err)
	return NewValidator(d)
}

func codes(rep Report) []string {
	out := make([]string, len(rep.Issues))
	for i, is := range rep.Issues {
		out[i] = is.Code
	}
	return out
}

func TestValidateCleanSQL(t *testing.T) {
	v := newValidator(t, "snowflake")
	sql := `WITH
  projection_1 AS (
    SELECT "VBELN", "NETWR" FROM SAPABAP1.VBAK
    WHERE "AUART" = 'TA'
  ),
  aggregation_1 AS (
    SELECT "VBELN", SUM("NETWR") AS "NETWR" FROM projection_1
    GROUP BY "VBELN"
  )

SELECT "VBELN", "NETWR" FROM aggregation_1`

	rep := v.Validate(sql, nil)
	assert.False(t, rep.HasErrors(), "unexpected issues: %v", rep.Issues)
	assert.NoError(t, rep.Err())
	assert.Empty(t, rep.Warnings())
}

func TestValidateStructuralIssues(t *testing.T) {
	v := newValidator(t, "snowflake")

	tests := []struct {
		name     string
		sql      string
		code     string
		severity Severity
	}{
		{"empty", "   \n ", CodeEmptySQL, SeverityError},
		{"no select", "DROP TABLE T", CodeNoSelect, SeverityError},
		{"unbalanced parens", "SELECT SUM((X) FROM T GROUP BY Y", CodeUnbalancedParens, SeverityError},
		{"unbalanced quotes", "SELECT 'abc FROM T", CodeUnbalancedQuotes, SeverityWarning},
		{"cartesian", "SELECT * FROM A JOIN B ON 1=1", CodeCartesianProduct, SeverityWarning},
		{"agg without group by", "SELECT SUM(X) FROM T WHERE Y = 1", CodeAggWithoutGroup, SeverityWarning},
		{"mixed statements", "DELETE FROM T WHERE X IN (SELECT X FROM U)", CodeMixedStatements, SeverityWarning},
		{"string concat plus", "SELECT 'a' + COL FROM T WHERE X = 1", CodeStringConcat, SeverityWarning},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rep := v.Validate(tt.sql, nil)
			found := false
			for _, is := range rep.Issues {
				if is.Code == tt.code {
					found = true
					assert.Equal(t, tt.severity, is.Severity)
				}
			}
			assert.True(t, found, "expected %s in %v", tt.code, codes(rep))
		})
	}
}

func TestValidateDuplicateCTE(t *testing.T) {
	v := newValidator(t, "snowflake")
	sql := `WITH
  stage_1 AS (SELECT A FROM T WHERE A = 1),
  Stage_1 AS (SELECT B FROM U WHERE B = 2)

SELECT * FROM stage_1`

	rep := v.Validate(sql, nil)
	require.True(t, rep.HasErrors())
	errs := rep.Errors()
	require.Len(t, errs, 1)
	assert.Equal(t, CodeDuplicateCTE, errs[0].Code)
	assert.Contains(t, errs[0].Message, `"Stage_1"`)
	assert.Equal(t, 3, errs[0].Line)
}

func TestValidateUndefinedCTEReference(t *testing.T) {
	v := newValidator(t, "snowflake")
	sql := `WITH
  projection_1 AS (SELECT A FROM SCHEMA1.T WHERE A = 1)

SELECT * FROM projection_2`

	rep := v.Validate(sql, nil)
	found := false
	for _, is := range rep.Issues {
		if is.Code == CodeUndefinedCTE {
			found = true
			assert.Contains(t, is.Message, "projection_2")
		}
	}
	assert.True(t, found, "issues: %v", codes(rep))

	// Qualified and upper-case targets are base tables, not CTE refs.
	rep = v.Validate(`WITH projection_1 AS (SELECT A FROM SCHEMA1.T WHERE A = 1)
SELECT * FROM projection_1 JOIN HR.DEPT ON 1=0`, nil)
	for _, is := range rep.Issues {
		assert.NotEqual(t, CodeUndefinedCTE, is.Code)
	}
}

func TestValidateNoSelectAfterCTE(t *testing.T) {
	v := newValidator(t, "snowflake")
	rep := v.Validate("WITH stage_1 AS (SELECT A FROM T WHERE A = 1)", nil)
	assert.Contains(t, codes(rep), CodeNoSelectAfterCTE)
}

func TestValidateSelectStarSeverity(t *testing.T) {
	v := newValidator(t, "snowflake")
	sql := "SELECT * FROM T WHERE X = 1"

	rep := v.Validate(sql, nil)
	require.Contains(t, codes(rep), CodeSelectStar)
	for _, is := range rep.Issues {
		if is.Code == CodeSelectStar {
			assert.Equal(t, SeverityInfo, is.Severity)
		}
	}

	sc := &ir.Scenario{ID: "CV_TEST", Logical: &ir.LogicalModel{
		ID:         "logicalModel",
		Attributes: []ir.LogicalAttribute{{Name: "VBELN", ColumnName: "VBELN"}},
	}}
	rep = v.Validate(sql, sc)
	for _, is := range rep.Issues {
		if is.Code == CodeSelectStar {
			assert.Equal(t, SeverityWarning, is.Severity)
		}
	}
}

func TestValidateReservedAlias(t *testing.T) {
	v := newValidator(t, "snowflake")
	rep := v.Validate(`SELECT X AS "ORDER", Y AS QUALIFY FROM T WHERE X = 1`, nil)

	var hits []Issue
	for _, is := range rep.Issues {
		if is.Code == CodeReservedIdent {
			hits = append(hits, is)
		}
	}
	// The quoted ORDER alias is fine; bare QUALIFY is not.
	require.Len(t, hits, 1)
	assert.Contains(t, hits[0].Message, `"QUALIFY"`)
}

func TestValidateForeignFunction(t *testing.T) {
	snow := newValidator(t, "snowflake")
	rep := snow.Validate("SELECT IF(X > 1, 'a', 'b') AS R FROM T WHERE X = 1", nil)
	require.True(t, rep.HasErrors())
	assert.Equal(t, CodeForeignFunction, rep.Errors()[0].Code)
	assert.Contains(t, rep.Errors()[0].Message, "IF()")

	// IFF is fine on Snowflake, foreign on HANA.
	rep = snow.Validate("SELECT IFF(X > 1, 'a', 'b') AS R FROM T WHERE X = 1", nil)
	assert.False(t, rep.HasErrors(), "issues: %v", codes(rep))

	hana := newValidator(t, "hana")
	rep = hana.Validate("SELECT IFF(X > 1, 'a', 'b') AS R FROM T WHERE X = 1", nil)
	require.True(t, rep.HasErrors())
	assert.Equal(t, CodeForeignFunction, rep.Errors()[0].Code)
}

func TestValidateForeignType(t *testing.T) {
	hana := newValidator(t, "hana")
	rep := hana.Validate(`SELECT SUM(CAST("SALARY" AS NUMBER(15,2))) AS "SALARY" FROM T WHERE X = 1 GROUP BY Y`, nil)
	require.True(t, rep.HasErrors())
	assert.Equal(t, CodeForeignType, rep.Errors()[0].Code)
	assert.Contains(t, rep.Errors()[0].Message, "NUMBER")

	snow := newValidator(t, "snowflake")
	rep = snow.Validate(`SELECT SUM(CAST("SALARY" AS NUMBER(15,2))) AS "SALARY" FROM T WHERE X = 1 GROUP BY Y`, nil)
	assert.False(t, rep.HasErrors(), "issues: %v", codes(rep))
}

func TestValidateViewDDL(t *testing.T) {
	sql := `CREATE OR REPLACE VIEW "V" AS SELECT A FROM T WHERE A = 1`

	hana := newValidator(t, "hana")
	rep := hana.Validate(sql, nil)
	require.True(t, rep.HasErrors())
	assert.Equal(t, CodeInvalidViewDDL, rep.Errors()[0].Code)

	snow := newValidator(t, "snowflake")
	assert.False(t, snow.Validate(sql, nil).HasErrors())
}

func TestValidateComplexityThresholds(t *testing.T) {
	v := newValidator(t, "snowflake")

	sql := "WITH\n"
	for i := 0; i < maxCTECount+1; i++ {
		if i > 0 {
			sql += ",\n"
		}
		sql += "  stage_" + string(rune('a'+i%26)) + string(rune('a'+i/26)) + " AS (SELECT A FROM T WHERE A = 1)"
	}
	sql += "\nSELECT * FROM stage_aa"

	rep := v.Validate(sql, nil)
	assert.Contains(t, codes(rep), CodeHighCTECount)
}

func TestReportErr(t *testing.T) {
	rep := Report{Issues: []Issue{
		{Severity: SeverityError, Code: CodeDuplicateCTE, Message: "dup"},
		{Severity: SeverityWarning, Code: CodeSelectStar, Message: "star"},
	}}

	err := rep.Err()
	require.Error(t, err)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Issues, 1)
	assert.Contains(t, err.Error(), "1 error(s)")
	assert.Contains(t, err.Error(), CodeDuplicateCTE)
}

func TestIssueString(t *testing.T) {
	is := Issue{Severity: SeverityWarning, Code: CodeCartesianProduct, Message: "cartesian", Line: 4}
	assert.Equal(t, "[warning] CARTESIAN_PRODUCT: cartesian (line 4)", is.String())

	is.Line = 0
	assert.Equal(t, "[warning] CARTESIAN_PRODUCT: cartesian", is.String())
}
