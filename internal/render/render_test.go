package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/x2s-labs/x2s/pkg/catalog"
	"github.com/x2s-labs/x2s/pkg/dialect"
	_ "github.com/x2s-labs/x2s/pkg/dialects/hana"
	_ "github.com/x2s-labs/x2s/pkg/dialects/snowflake"
	"github.com/x2s-labs/x2s/pkg/ir"
)

func newRenderer(t *testing.T, dialectName string, cfg Config) *Renderer {
	t.Helper()
	d, err := dialect.MustGet(dialectName)
	require.NoError(t, err)
	return New(d, catalog.Builtin(), cfg)
}

func varcharType() *ir.TypeSpec {
	return &ir.TypeSpec{Base: ir.TypeVarchar, Length: 20}
}

// employeeScenario builds base(employees), base(dept), a join on id,
// and an aggregation summing a VARCHAR-declared salary.
func employeeScenario() *ir.Scenario {
	sc := &ir.Scenario{ID: "CV_EMP_SPEND"}
	sc.AddDataSource(&ir.DataSource{ID: "EMPLOYEES", Kind: ir.SourceTable, SchemaName: "HR", ObjectName: "EMPLOYEES"})
	sc.AddDataSource(&ir.DataSource{ID: "DEPT", Kind: ir.SourceTable, SchemaName: "HR", ObjectName: "DEPT"})

	sc.AddNode(&ir.Node{
		Name:   "Projection_Emp",
		Kind:   ir.KindProjection,
		Inputs: []string{"EMPLOYEES"},
		Columns: []ir.Mapping{
			{Target: "ID", Expr: ir.Col("ID"), SourceNode: "EMPLOYEES"},
			{Target: "NAME", Expr: ir.Col("NAME"), SourceNode: "EMPLOYEES"},
			{Target: "SALARY", Expr: ir.Col("SALARY"), SourceNode: "EMPLOYEES", Type: varcharType()},
		},
	})
	sc.AddNode(&ir.Node{
		Name:   "Projection_Dept",
		Kind:   ir.KindProjection,
		Inputs: []string{"DEPT"},
		Columns: []ir.Mapping{
			{Target: "ID", Expr: ir.Col("ID"), SourceNode: "DEPT"},
			{Target: "DEPT_NAME", Expr: ir.Col("DEPT_NAME"), SourceNode: "DEPT"},
		},
	})
	sc.AddNode(&ir.Node{
		Name:     "Join_1",
		Kind:     ir.KindJoin,
		JoinType: ir.JoinInner,
		Inputs:   []string{"Projection_Emp", "Projection_Dept"},
		Columns: []ir.Mapping{
			{Target: "ID", Expr: ir.Col("ID"), SourceNode: "Projection_Emp"},
			{Target: "SALARY", Expr: ir.Col("SALARY"), SourceNode: "Projection_Emp"},
			{Target: "DEPT_NAME", Expr: ir.Col("DEPT_NAME"), SourceNode: "Projection_Dept"},
		},
		JoinConditions: []ir.JoinCondition{
			{Left: ir.Col("ID"), Right: ir.Col("ID"), Operator: "="},
		},
	})
	sc.AddNode(&ir.Node{
		Name:    "Aggregation_1",
		Kind:    ir.KindAggregation,
		Inputs:  []string{"Join_1"},
		GroupBy: []string{"DEPT_NAME"},
		Columns: []ir.Mapping{
			{Target: "DEPT_NAME", Expr: ir.Col("DEPT_NAME"), SourceNode: "Join_1"},
			{Target: "SALARY", Expr: ir.Col("SALARY"), SourceNode: "Join_1"},
		},
		Aggregations: []ir.AggregationSpec{
			{Target: "SALARY", Function: "SUM", Expr: ir.Col("SALARY")},
		},
	})
	return sc
}

func TestRenderEmployeePipeline(t *testing.T) {
	r := newRenderer(t, "snowflake", Config{})
	res, err := r.Render(employeeScenario())
	require.NoError(t, err)

	require.Len(t, res.Stages, 4)
	assert.Equal(t, "Projection_Emp", res.Stages[0].Name)
	assert.Equal(t, "Projection_Dept", res.Stages[1].Name)
	assert.Equal(t, "Join_1", res.Stages[2].Name)
	assert.Equal(t, "Aggregation_1", res.Stages[3].Name)

	join := res.Stages[2].SQL
	assert.Contains(t, join, "FROM projection_emp AS projection_emp")
	assert.Contains(t, join, `INNER JOIN projection_dept AS projection_dept ON projection_emp."ID" = projection_dept."ID"`)

	agg := res.Stages[3].SQL
	assert.Contains(t, agg, `SUM(CAST("SALARY" AS NUMBER(15,2))) AS "SALARY"`,
		"aggregate over VARCHAR-declared column must be cast numeric")
	assert.Contains(t, agg, `GROUP BY "DEPT_NAME"`)

	assert.Contains(t, res.SQL, "WITH\n  projection_emp AS (")
	assert.Contains(t, res.SQL, "SELECT * FROM aggregation_1")
	assert.Contains(t, res.SQL, "FROM HR.EMPLOYEES")
}

func TestRenderDeterminism(t *testing.T) {
	r := newRenderer(t, "snowflake", Config{})
	first, err := r.Render(employeeScenario())
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := r.Render(employeeScenario())
		require.NoError(t, err)
		require.Equal(t, first.SQL, again.SQL)
	}
}

func TestRenderNumericColumnNotCast(t *testing.T) {
	sc := employeeScenario()
	node, _ := sc.Node("Projection_Emp")
	node.Columns[2].Type = &ir.TypeSpec{Base: ir.TypeNumber, Length: 15, Scale: 2}

	r := newRenderer(t, "snowflake", Config{})
	res, err := r.Render(sc)
	require.NoError(t, err)
	assert.Contains(t, res.Stages[3].SQL, `SUM("SALARY") AS "SALARY"`)
	assert.NotContains(t, res.Stages[3].SQL, "CAST(")
}

func TestRenderProjectionCalculatedAndFilter(t *testing.T) {
	sc := &ir.Scenario{ID: "CV_FILTERED"}
	sc.AddDataSource(&ir.DataSource{ID: "VBAK", Kind: ir.SourceTable, SchemaName: "SAPABAP1", ObjectName: "VBAK"})
	sc.AddNode(&ir.Node{
		Name:   "Projection_1",
		Kind:   ir.KindProjection,
		Inputs: []string{"VBAK"},
		Columns: []ir.Mapping{
			{Target: "ORDER_ID", Expr: ir.Col("VBELN"), SourceNode: "VBAK"},
			{Target: "NETWR", Expr: ir.Col("NETWR"), SourceNode: "VBAK"},
		},
		Calculated: []ir.CalculatedColumn{
			{Name: "BUCKET", Expr: ir.Raw(`IF("NETWR" > 1000, 'HIGH', 'LOW')`)},
		},
		Filters: []ir.Predicate{
			{Kind: ir.PredComparison, Left: ir.Col("ORDER_ID"), Operator: "=", Right: ir.Lit("'0000012345'"), Including: true},
			{Kind: ir.PredComparison, Left: ir.Col("NETWR"), Operator: ">", Right: ir.Lit("100"), Including: false},
		},
	})

	r := newRenderer(t, "snowflake", Config{})
	res, err := r.Render(sc)
	require.NoError(t, err)

	stage := res.Stages[0].SQL
	assert.Contains(t, stage, `IFF("NETWR" > 1000, 'HIGH', 'LOW') AS "BUCKET"`)
	assert.Contains(t, stage, `"VBELN" = '0000012345'`,
		"filter on mapped column resolves to the source column")
	assert.Contains(t, stage, `"NETWR" <= 100`,
		"excluding filter negates the operator")
}

func TestRenderFilterOnCalculatedColumn(t *testing.T) {
	sc := &ir.Scenario{ID: "CV_CALC_FILTER"}
	sc.AddDataSource(&ir.DataSource{ID: "VBAK", Kind: ir.SourceTable, SchemaName: "SAPABAP1", ObjectName: "VBAK"})
	sc.AddNode(&ir.Node{
		Name:   "Projection_1",
		Kind:   ir.KindProjection,
		Inputs: []string{"VBAK"},
		Columns: []ir.Mapping{
			{Target: "NETWR", Expr: ir.Col("NETWR"), SourceNode: "VBAK"},
		},
		Calculated: []ir.CalculatedColumn{
			{Name: "DOUBLED", Expr: ir.Raw(`"NETWR" * 2`)},
		},
		Filters: []ir.Predicate{
			{Kind: ir.PredComparison, Left: ir.Col("DOUBLED"), Operator: ">", Right: ir.Lit("100"), Including: true},
		},
	})

	r := newRenderer(t, "snowflake", Config{})
	res, err := r.Render(sc)
	require.NoError(t, err)
	assert.Contains(t, res.Stages[0].SQL, `WHERE ("NETWR" * 2) > 100`,
		"filter expands the calculated expression instead of its alias")
}

func TestRenderDialectConditional(t *testing.T) {
	sc := &ir.Scenario{ID: "CV_COND"}
	sc.AddDataSource(&ir.DataSource{ID: "T1", Kind: ir.SourceTable, SchemaName: "S", ObjectName: "T1"})
	sc.AddNode(&ir.Node{
		Name:   "Projection_1",
		Kind:   ir.KindProjection,
		Inputs: []string{"T1"},
		Columns: []ir.Mapping{
			{Target: "FLAG", Expr: ir.Col("FLAG"), SourceNode: "T1"},
		},
		Calculated: []ir.CalculatedColumn{
			{Name: "LABEL", Expr: ir.Raw(`IF("FLAG" = 'X', 'YES', 'NO')`)},
		},
	})

	res, err := newRenderer(t, "hana", Config{}).Render(sc)
	require.NoError(t, err)
	assert.Contains(t, res.Stages[0].SQL, `CASE WHEN "FLAG" = 'X' THEN 'YES' ELSE 'NO' END AS "LABEL"`)
}

func TestRenderUnion(t *testing.T) {
	sc := &ir.Scenario{ID: "CV_UNION"}
	sc.AddDataSource(&ir.DataSource{ID: "A", Kind: ir.SourceTable, SchemaName: "S", ObjectName: "A"})
	sc.AddDataSource(&ir.DataSource{ID: "B", Kind: ir.SourceTable, SchemaName: "S", ObjectName: "B"})
	union := &ir.Node{
		Name:     "Union_1",
		Kind:     ir.KindUnion,
		UnionAll: true,
		Inputs:   []string{"A", "B"},
		Columns: []ir.Mapping{
			{Target: "K", Expr: ir.Col("K1"), SourceNode: "A"},
			{Target: "V", Expr: ir.Col("V1"), SourceNode: "A"},
			{Target: "K", Expr: ir.Col("K2"), SourceNode: "B"},
			{Target: "V", Expr: ir.Col("V2"), SourceNode: "B"},
		},
	}
	sc.AddNode(union)

	r := newRenderer(t, "snowflake", Config{})
	res, err := r.Render(sc)
	require.NoError(t, err)
	stage := res.Stages[0].SQL
	assert.Contains(t, stage, "UNION ALL")
	assert.Contains(t, stage, `"K1" AS "K"`)
	assert.Contains(t, stage, `"K2" AS "K"`)

	// Drop one column from branch B: arity mismatch is fatal.
	union.Columns = union.Columns[:3]
	_, err = r.Render(sc)
	require.Error(t, err)
	var rerr *RenderError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "Union_1", rerr.Node)
	assert.Contains(t, rerr.Message, "1 of 2 columns")
}

func TestRenderUnionTypeMismatch(t *testing.T) {
	sc := &ir.Scenario{ID: "CV_UNION_T"}
	sc.AddDataSource(&ir.DataSource{ID: "A", Kind: ir.SourceTable, SchemaName: "S", ObjectName: "A"})
	sc.AddDataSource(&ir.DataSource{ID: "B", Kind: ir.SourceTable, SchemaName: "S", ObjectName: "B"})
	sc.AddNode(&ir.Node{
		Name:   "Union_1",
		Kind:   ir.KindUnion,
		Inputs: []string{"A", "B"},
		Columns: []ir.Mapping{
			{Target: "V", Expr: ir.Col("V1"), SourceNode: "A", Type: &ir.TypeSpec{Base: ir.TypeNumber}},
			{Target: "V", Expr: ir.Col("V2"), SourceNode: "B", Type: &ir.TypeSpec{Base: ir.TypeVarchar}},
		},
	})

	_, err := newRenderer(t, "snowflake", Config{}).Render(sc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "type mismatch")
}

func TestRenderRankThreshold(t *testing.T) {
	sc := &ir.Scenario{ID: "CV_RANK"}
	sc.AddDataSource(&ir.DataSource{ID: "VBAK", Kind: ir.SourceTable, SchemaName: "S", ObjectName: "VBAK"})
	sc.AddNode(&ir.Node{
		Name:   "Rank_1",
		Kind:   ir.KindRank,
		Inputs: []string{"VBAK"},
		Columns: []ir.Mapping{
			{Target: "KUNNR", Expr: ir.Col("KUNNR"), SourceNode: "VBAK"},
			{Target: "NETWR", Expr: ir.Col("NETWR"), SourceNode: "VBAK"},
		},
		PartitionBy: []string{"KUNNR"},
		OrderBy:     []ir.OrderBySpec{{Column: "NETWR", Direction: "DESC"}},
		RankColumn:  "TOP_N",
		Threshold:   3,
	})

	res, err := newRenderer(t, "snowflake", Config{}).Render(sc)
	require.NoError(t, err)
	stage := res.Stages[0].SQL
	assert.Contains(t, stage, `ROW_NUMBER() OVER (PARTITION BY "KUNNR" ORDER BY "NETWR" DESC) AS "TOP_N"`)
	assert.Contains(t, stage, `WHERE "TOP_N" <= 3`)
}

func TestRenderMissingParameter(t *testing.T) {
	sc := &ir.Scenario{ID: "CV_PARAM"}
	sc.AddDataSource(&ir.DataSource{ID: "T1", Kind: ir.SourceTable, SchemaName: "S", ObjectName: "T1"})
	sc.Parameters = []ir.InputParameter{{Name: "IP_COUNTRY", DataType: "NVARCHAR", Mandatory: true}}
	sc.AddNode(&ir.Node{
		Name:   "Projection_1",
		Kind:   ir.KindProjection,
		Inputs: []string{"T1"},
		Calculated: []ir.CalculatedColumn{
			{Name: "C", Expr: ir.Raw(`IF("LAND1" = '$$IP_COUNTRY$$', 1, 0)`)},
		},
	})

	_, err := newRenderer(t, "snowflake", Config{}).Render(sc)
	require.Error(t, err)
	var rerr *RenderError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "Projection_1", rerr.Node)
	assert.Contains(t, rerr.Message, "IP_COUNTRY")

	// A supplied value resolves it.
	res, err := newRenderer(t, "snowflake", Config{Params: map[string]string{"IP_COUNTRY": "DE"}}).Render(sc)
	require.NoError(t, err)
	assert.Contains(t, res.Stages[0].SQL, `'DE'`)
}

func TestRenderSchemaResolution(t *testing.T) {
	sc := &ir.Scenario{ID: "CV_SCHEMA"}
	sc.AddDataSource(&ir.DataSource{ID: "VBAK", Kind: ir.SourceTable, SchemaName: "SAPABAP1", ObjectName: "VBAK"})
	sc.AddNode(&ir.Node{
		Name:    "Projection_1",
		Kind:    ir.KindProjection,
		Inputs:  []string{"VBAK"},
		Columns: []ir.Mapping{{Target: "VBELN", Expr: ir.Col("VBELN"), SourceNode: "VBAK"}},
	})

	res, err := newRenderer(t, "snowflake", Config{SchemaOverrides: map[string]string{"SAPABAP1": "RAW_SAP"}}).Render(sc)
	require.NoError(t, err)
	assert.Contains(t, res.SQL, "FROM RAW_SAP.VBAK")

	res, err = newRenderer(t, "snowflake", Config{TargetSchema: "MIGRATED"}).Render(sc)
	require.NoError(t, err)
	assert.Contains(t, res.SQL, "FROM MIGRATED.VBAK")
}

func TestRenderCalculationViewSource(t *testing.T) {
	sc := &ir.Scenario{ID: "CV_REF"}
	sc.AddDataSource(&ir.DataSource{
		ID:          "CV_ORDERS",
		Kind:        ir.SourceCalculationView,
		ObjectName:  "CV_ORDERS",
		PackagePath: "acme.sales",
	})
	sc.AddNode(&ir.Node{
		Name:    "Projection_1",
		Kind:    ir.KindProjection,
		Inputs:  []string{"CV_ORDERS"},
		Columns: []ir.Mapping{{Target: "VBELN", Expr: ir.Col("VBELN"), SourceNode: "CV_ORDERS"}},
	})

	res, err := newRenderer(t, "hana", Config{}).Render(sc)
	require.NoError(t, err)
	assert.Contains(t, res.SQL, `FROM "_SYS_BIC"."acme.sales/CV_ORDERS"`)
}

func TestRenderCreateView(t *testing.T) {
	sc := employeeScenario()

	res, err := newRenderer(t, "snowflake", Config{CreateView: true}).Render(sc)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.SQL, `CREATE OR REPLACE VIEW "CV_EMP_SPEND" AS`), res.SQL[:60])

	res, err = newRenderer(t, "hana", Config{CreateView: true, ViewName: "SAPABAP1.V_EMP"}).Render(sc)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.SQL, "DROP VIEW \"SAPABAP1\".\"V_EMP\" CASCADE;\nCREATE VIEW \"SAPABAP1\".\"V_EMP\" AS"))
}

func TestRenderCartesianJoinWarns(t *testing.T) {
	sc := &ir.Scenario{ID: "CV_CART"}
	sc.AddDataSource(&ir.DataSource{ID: "A", Kind: ir.SourceTable, SchemaName: "S", ObjectName: "A"})
	sc.AddDataSource(&ir.DataSource{ID: "B", Kind: ir.SourceTable, SchemaName: "S", ObjectName: "B"})
	sc.AddNode(&ir.Node{
		Name:   "Join_1",
		Kind:   ir.KindJoin,
		Inputs: []string{"A", "B"},
		Columns: []ir.Mapping{
			{Target: "X", Expr: ir.Col("X"), SourceNode: "A"},
		},
	})

	res, err := newRenderer(t, "snowflake", Config{}).Render(sc)
	require.NoError(t, err)
	assert.Contains(t, res.Stages[0].SQL, "ON 1=1")
	require.NotEmpty(t, res.Warnings)
	assert.Contains(t, res.Warnings[0], "cartesian")
}
