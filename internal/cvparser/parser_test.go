package cvparser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/x2s-labs/x2s/pkg/ir"
)

const scenarioXML = `<?xml version="1.0" encoding="UTF-8"?>
<Calculation:scenario xmlns:Calculation="http://www.sap.com/ndb/BiModelCalculation.ecore"
    xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance"
    id="CV_SALES" defaultClient="100" defaultLanguage="E">
  <descriptions defaultDescription="Sales by month"/>
  <localVariables>
    <variable id="IP_COUNTRY">
      <descriptions defaultDescription="Country"/>
      <variableProperties datatype="NVARCHAR" defaultValue="DE" mandatory="true">
        <selection type="SingleValue"/>
      </variableProperties>
    </variable>
  </localVariables>
  <dataSources>
    <DataSource id="VBAK" type="DATA_BASE_TABLE">
      <columnObject schemaName="SAPABAP1" columnObjectName="VBAK"/>
    </DataSource>
    <DataSource id="CV_CUSTOMER" type="CALCULATION_VIEW">
      <resourceUri>/acme.sales/calculationviews/CV_CUSTOMER</resourceUri>
    </DataSource>
  </dataSources>
  <calculationViews>
    <calculationView xsi:type="Calculation:ProjectionView" id="Projection_1">
      <viewAttributes>
        <viewAttribute id="VBELN"/>
        <viewAttribute id="NETWR"/>
        <viewAttribute id="INTERNAL_FLAG" hidden="true"/>
        <viewAttribute id="WERKS">
          <filter value="0070" operator="EQ"/>
        </viewAttribute>
      </viewAttributes>
      <calculatedViewAttributes>
        <calculatedViewAttribute id="NET_BUCKET" datatype="NVARCHAR" length="10">
          <formula>IF("NETWR" &gt; 1000, 'HIGH', 'LOW')</formula>
        </calculatedViewAttribute>
      </calculatedViewAttributes>
      <input node="#VBAK">
        <mapping xsi:type="Calculation:AttributeMapping" target="VBELN" source="VBELN"/>
        <mapping xsi:type="Calculation:AttributeMapping" target="NETWR" source="NETWR"/>
        <mapping xsi:type="Calculation:AttributeMapping" target="WERKS" source="WERKS"/>
      </input>
    </calculationView>
    <calculationView xsi:type="Calculation:AggregationView" id="Aggregation_1">
      <viewAttributes>
        <viewAttribute id="VBELN"/>
        <viewAttribute id="NETWR" aggregationType="sum"/>
      </viewAttributes>
      <input node="#//Projection_1">
        <mapping xsi:type="Calculation:AttributeMapping" target="VBELN" source="VBELN"/>
        <mapping xsi:type="Calculation:AttributeMapping" target="NETWR" source="NETWR"/>
      </input>
    </calculationView>
  </calculationViews>
  <logicalModel id="Aggregation_1">
    <attributes>
      <attribute id="VBELN" key="true">
        <keyMapping columnObjectName="Aggregation_1" columnName="VBELN"/>
      </attribute>
    </attributes>
  </logicalModel>
</Calculation:scenario>`

func TestParseScenario(t *testing.T) {
	sc, err := Parse([]byte(scenarioXML))
	require.NoError(t, err)

	assert.Equal(t, "CV_SALES", sc.ID)
	assert.Equal(t, "Sales by month", sc.Description)
	assert.Equal(t, "100", sc.DefaultClient)
	assert.Equal(t, "E", sc.DefaultLanguage)

	require.Len(t, sc.DataSources, 2)
	vbak, ok := sc.DataSource("vbak")
	require.True(t, ok, "data source lookup is case-insensitive")
	assert.Equal(t, ir.SourceTable, vbak.Kind)
	assert.Equal(t, "SAPABAP1", vbak.SchemaName)
	assert.Equal(t, "VBAK", vbak.ObjectName)

	cust, ok := sc.DataSource("CV_CUSTOMER")
	require.True(t, ok)
	assert.Equal(t, ir.SourceCalculationView, cust.Kind)
	assert.Equal(t, "acme.sales/CV_CUSTOMER", cust.ObjectName)

	require.Len(t, sc.Parameters, 1)
	p := sc.Parameters[0]
	assert.Equal(t, "IP_COUNTRY", p.Name)
	assert.Equal(t, "DE", p.Default)
	assert.True(t, p.Mandatory)
	assert.Equal(t, "SingleValue", p.SelectionType)

	require.Len(t, sc.Nodes, 2)
	proj := sc.Nodes[0]
	assert.Equal(t, "Projection_1", proj.Name)
	assert.Equal(t, ir.KindProjection, proj.Kind)
	assert.Equal(t, []string{"VBAK"}, proj.Inputs)
	assert.Equal(t, []string{"VBELN", "NETWR", "WERKS"}, proj.ViewAttributes,
		"hidden attributes are excluded")

	require.Len(t, proj.Columns, 3)
	assert.Equal(t, "VBELN", proj.Columns[0].Target)
	assert.Equal(t, "VBAK", proj.Columns[0].SourceNode)

	require.Len(t, proj.Calculated, 1)
	assert.Equal(t, "NET_BUCKET", proj.Calculated[0].Name)
	assert.Equal(t, `IF("NETWR" > 1000, 'HIGH', 'LOW')`, proj.Calculated[0].Expr.Value)

	require.Len(t, proj.Filters, 1)
	f := proj.Filters[0]
	assert.Equal(t, "WERKS", f.Left.Value)
	assert.Equal(t, "=", f.Operator)
	assert.Equal(t, "'0070'", f.Right.Value, "leading-zero value stays quoted")
	assert.True(t, f.Including)

	agg := sc.Nodes[1]
	assert.Equal(t, ir.KindAggregation, agg.Kind)
	assert.Equal(t, []string{"Projection_1"}, agg.Inputs)
	assert.Equal(t, []string{"VBELN"}, agg.GroupBy)
	require.Len(t, agg.Aggregations, 1)
	assert.Equal(t, "NETWR", agg.Aggregations[0].Target)
	assert.Equal(t, "SUM", agg.Aggregations[0].Function)

	require.NotNil(t, sc.Logical)
	assert.Equal(t, "Aggregation_1", sc.Logical.ID)
	require.Len(t, sc.Logical.Attributes, 1)
	assert.True(t, sc.Logical.Attributes[0].IsKey)
	assert.Equal(t, "VBELN", sc.Logical.Attributes[0].ColumnName)

	term, ok := sc.TerminalNode()
	require.True(t, ok)
	assert.Equal(t, "Aggregation_1", term.Name)
}

func TestCleanRef(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"#//Projection_1", "Projection_1"},
		{"#/0/Join_1", "Join_1"},
		{"#/0/Star Join/Join_1", "Star Join/Join_1"},
		{"#VBAK", "VBAK"},
		{"#/Aggregation_2", "Aggregation_2"},
		{"  Projection_1  ", "Projection_1"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, cleanRef(tt.in), "cleanRef(%q)", tt.in)
	}
}

func TestParseEntity(t *testing.T) {
	tests := []struct {
		in                  string
		schema, object, pkg string
	}{
		{`"SAPABAP1"."VBAP"`, "SAPABAP1", "VBAP", ""},
		{"SAPABAP1.VBAP", "SAPABAP1", "VBAP", ""},
		{"acme.sales::CV_ORDERS", "", "CV_ORDERS", "acme.sales"},
		{"KNA1", "", "KNA1", ""},
	}
	for _, tt := range tests {
		schema, object, pkg := parseEntity(tt.in)
		assert.Equal(t, tt.schema, schema, "schema of %q", tt.in)
		assert.Equal(t, tt.object, object, "object of %q", tt.in)
		assert.Equal(t, tt.pkg, pkg, "package of %q", tt.in)
	}
}

const joinXML = `<?xml version="1.0" encoding="UTF-8"?>
<scenario xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance" id="CV_JOIN">
  <dataSources>
    <DataSource id="VBAK" type="DATA_BASE_TABLE">
      <columnObject schemaName="SAPABAP1" columnObjectName="VBAK"/>
    </DataSource>
    <DataSource id="VBAP" type="DATA_BASE_TABLE">
      <columnObject schemaName="SAPABAP1" columnObjectName="VBAP"/>
    </DataSource>
  </dataSources>
  <calculationViews>
    <calculationView xsi:type="Calculation:ProjectionView" id="Projection_1">
      <input node="#VBAK">
        <mapping target="ORDER_ID" source="VBELN"/>
      </input>
    </calculationView>
    <calculationView xsi:type="Calculation:ProjectionView" id="Projection_2">
      <input node="#VBAP">
        <mapping target="ORDER_ID" source="VBELN"/>
        <mapping target="POSNR" source="POSNR"/>
      </input>
    </calculationView>
    <calculationView xsi:type="Calculation:JoinView" id="Join_1" joinType="leftOuter">
      <input node="#//Projection_1">
        <mapping target="ORDER_ID" source="ORDER_ID"/>
      </input>
      <input node="#//Projection_2">
        <mapping target="JOIN$ORDER_ID$ORDER_ID" source="ORDER_ID"/>
        <mapping target="POSNR" source="POSNR"/>
      </input>
      <joinAttribute name="ORDER_ID"/>
    </calculationView>
  </calculationViews>
</scenario>`

func TestParseJoin(t *testing.T) {
	sc, err := Parse([]byte(joinXML))
	require.NoError(t, err)

	join, ok := sc.Node("JOIN_1")
	require.True(t, ok, "node lookup is case-insensitive")
	assert.Equal(t, ir.KindJoin, join.Kind)
	assert.Equal(t, ir.JoinLeftOuter, join.JoinType)

	require.Len(t, join.JoinConditions, 1)
	cond := join.JoinConditions[0]
	assert.Equal(t, "ORDER_ID", cond.Left.Value)
	assert.Equal(t, "ORDER_ID", cond.Right.Value,
		"JOIN$ mapping variant resolves to the underlying source column")
	assert.Equal(t, "=", cond.Operator)
}

func TestResolveJoinMapping(t *testing.T) {
	byTarget := map[string]string{
		"MANDT":            "MANDT",
		"VBELN":            "ORDER_ID",
		"JOIN$MANDT$VBELN": "COMPOUND",
	}

	tests := []struct {
		name   string
		want   string
		wantOK bool
	}{
		{"VBELN", "ORDER_ID", true},
		{"JOIN$MANDT$VBELN", "COMPOUND", true},
		{"JOIN$VBELN", "ORDER_ID", true},
		{"MANDT$VBELN$EXTRA", "MANDT", true},
		{"XX$VBELN", "ORDER_ID", true},
		{"KUNNR", "", false},
	}
	for _, tt := range tests {
		got, ok := resolveJoinMapping(tt.name, byTarget)
		assert.Equal(t, tt.wantOK, ok, "resolveJoinMapping(%q) ok", tt.name)
		assert.Equal(t, tt.want, got, "resolveJoinMapping(%q)", tt.name)
	}
}

func TestParseJoinUnresolvableKey(t *testing.T) {
	broken := strings.Replace(joinXML, `<joinAttribute name="ORDER_ID"/>`,
		`<joinAttribute name="KUNNR"/>`, 1)

	_, err := Parse([]byte(broken))
	require.Error(t, err)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "Join_1", perr.Node)
	assert.Contains(t, perr.Message, `"KUNNR"`)
}

func TestParseUndefinedReference(t *testing.T) {
	xml := `<?xml version="1.0"?>
<scenario xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance" id="CV_BAD">
  <calculationViews>
    <calculationView xsi:type="Calculation:ProjectionView" id="Projection_1">
      <input node="#MISSING_TABLE"/>
    </calculationView>
  </calculationViews>
</scenario>`

	_, err := Parse([]byte(xml))
	require.Error(t, err)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "Projection_1", perr.Node)
	assert.Contains(t, perr.Message, `"MISSING_TABLE"`)
}

func TestParseCycle(t *testing.T) {
	xml := `<?xml version="1.0"?>
<scenario xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance" id="CV_CYCLE">
  <calculationViews>
    <calculationView xsi:type="Calculation:ProjectionView" id="Projection_1">
      <input node="#//Projection_2"/>
    </calculationView>
    <calculationView xsi:type="Calculation:ProjectionView" id="Projection_2">
      <input node="#//Projection_1"/>
    </calculationView>
  </calculationViews>
</scenario>`

	_, err := Parse([]byte(xml))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle")
}

func TestParseMalformedXML(t *testing.T) {
	_, err := Parse([]byte("<scenario><unclosed>"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed XML")
}

func TestParseFilterOperands(t *testing.T) {
	xml := `<?xml version="1.0"?>
<scenario xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance" id="CV_FILTER">
  <dataSources>
    <DataSource id="VBAK" type="DATA_BASE_TABLE">
      <columnObject schemaName="SAPABAP1" columnObjectName="VBAK"/>
    </DataSource>
  </dataSources>
  <calculationViews>
    <calculationView xsi:type="Calculation:ProjectionView" id="Projection_1">
      <viewAttributes>
        <viewAttribute id="AUART">
          <filter including="false">
            <operands value="TA"/>
            <operands value="ZOR"/>
          </filter>
        </viewAttribute>
        <viewAttribute id="NETWR">
          <filter value="1000" operator="GT"/>
        </viewAttribute>
      </viewAttributes>
      <input node="#VBAK">
        <mapping target="AUART" source="AUART"/>
        <mapping target="NETWR" source="NETWR"/>
      </input>
    </calculationView>
  </calculationViews>
</scenario>`

	sc, err := Parse([]byte(xml))
	require.NoError(t, err)

	proj, ok := sc.Node("Projection_1")
	require.True(t, ok)
	require.Len(t, proj.Filters, 2)

	in := proj.Filters[0]
	assert.Equal(t, "IN", in.Operator)
	assert.Equal(t, "('TA', 'ZOR')", in.Right.Value)
	assert.False(t, in.Including, "excluding filter must negate at render time")

	gt := proj.Filters[1]
	assert.Equal(t, ">", gt.Operator)
	assert.Equal(t, "1000", gt.Right.Value, "plain numeric value stays unquoted")
}

func TestParseRankNode(t *testing.T) {
	xml := `<?xml version="1.0"?>
<scenario xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance" id="CV_RANK">
  <dataSources>
    <DataSource id="VBAK" type="DATA_BASE_TABLE">
      <columnObject schemaName="SAPABAP1" columnObjectName="VBAK"/>
    </DataSource>
  </dataSources>
  <calculationViews>
    <calculationView xsi:type="Calculation:Rank" id="Rank_1">
      <viewAttributes>
        <viewAttribute id="KUNNR"/>
        <viewAttribute id="NETWR"/>
      </viewAttributes>
      <windowFunction>
        <partitionElement>$KUNNR$</partitionElement>
        <order byElement="#//Rank_1/$NETWR$" direction="DESC"/>
        <rankElement>$RANK_POS$</rankElement>
        <rankThreshold>
          <constantValue>3</constantValue>
        </rankThreshold>
      </windowFunction>
      <input node="#VBAK">
        <mapping target="KUNNR" source="KUNNR"/>
        <mapping target="NETWR" source="NETWR"/>
      </input>
    </calculationView>
  </calculationViews>
</scenario>`

	sc, err := Parse([]byte(xml))
	require.NoError(t, err)

	rank, ok := sc.Node("Rank_1")
	require.True(t, ok)
	assert.Equal(t, ir.KindRank, rank.Kind)
	assert.Equal(t, []string{"KUNNR"}, rank.PartitionBy)
	require.Len(t, rank.OrderBy, 1)
	assert.Equal(t, "NETWR", rank.OrderBy[0].Column)
	assert.Equal(t, "DESC", rank.OrderBy[0].Direction)
	assert.Equal(t, "RANK_POS", rank.RankColumn)
	assert.Equal(t, 3, rank.Threshold)
}

func TestParseEntityInput(t *testing.T) {
	xml := `<?xml version="1.0"?>
<scenario xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance" id="CV_ENTITY">
  <calculationViews>
    <calculationView xsi:type="Calculation:JoinView" id="Join_1" joinType="inner">
      <input node="">
        <entity>"SAPABAP1"."KNA1"</entity>
        <mapping target="KUNNR" source="KUNNR"/>
      </input>
      <input node="">
        <entity>acme.sales::CV_ORDERS</entity>
        <mapping target="KUNNR" source="KUNNR"/>
      </input>
      <joinAttribute name="KUNNR"/>
    </calculationView>
  </calculationViews>
</scenario>`

	sc, err := Parse([]byte(xml))
	require.NoError(t, err)

	join, ok := sc.Node("Join_1")
	require.True(t, ok)
	require.Len(t, join.Inputs, 2)

	left, ok := sc.Node(join.Inputs[0])
	require.True(t, ok, "entity input becomes a synthetic projection")
	assert.Equal(t, ir.KindProjection, left.Kind)

	src, ok := sc.DataSource(left.Inputs[0])
	require.True(t, ok)
	assert.Equal(t, ir.SourceTable, src.Kind)
	assert.Equal(t, "SAPABAP1", src.SchemaName)
	assert.Equal(t, "KNA1", src.ObjectName)

	right, ok := sc.Node(join.Inputs[1])
	require.True(t, ok)
	cvSrc, ok := sc.DataSource(right.Inputs[0])
	require.True(t, ok)
	assert.Equal(t, ir.SourceCalculationView, cvSrc.Kind)
	assert.Equal(t, "acme.sales", cvSrc.PackagePath)
	assert.Equal(t, "CV_ORDERS", cvSrc.ObjectName)
}

func TestParseCaseInsensitiveRedefinition(t *testing.T) {
	xml := `<?xml version="1.0"?>
<scenario xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance" id="CV_CASE">
  <dataSources>
    <DataSource id="VBAK" type="DATA_BASE_TABLE">
      <columnObject schemaName="SAPABAP1" columnObjectName="VBAK"/>
    </DataSource>
  </dataSources>
  <calculationViews>
    <calculationView xsi:type="Calculation:ProjectionView" id="projection_1">
      <input node="#VBAK"/>
    </calculationView>
    <calculationView xsi:type="Calculation:ProjectionView" id="PROJECTION_1">
      <viewAttributes>
        <viewAttribute id="VBELN"/>
      </viewAttributes>
      <input node="#VBAK">
        <mapping target="VBELN" source="VBELN"/>
      </input>
    </calculationView>
  </calculationViews>
</scenario>`

	sc, err := Parse([]byte(xml))
	require.NoError(t, err)

	require.Len(t, sc.Nodes, 1, "same name in a different case replaces the node")
	assert.Equal(t, "PROJECTION_1", sc.Nodes[0].Name)
	assert.Equal(t, []string{"VBELN"}, sc.Nodes[0].ViewAttributes)
}
