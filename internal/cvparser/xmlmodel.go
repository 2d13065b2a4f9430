package cvparser

// XML document shapes. Tags carry local names only, so elements match
// with or without the vendor namespaces the authoring tool emits.

type xmlScenario struct {
	ID              string            `xml:"id,attr"`
	DefaultClient   string            `xml:"defaultClient,attr"`
	DefaultLanguage string            `xml:"defaultLanguage,attr"`
	Descriptions    xmlDescriptions   `xml:"descriptions"`
	DataSources     []xmlDataSource   `xml:"dataSources>DataSource"`
	Variables       []xmlVariable     `xml:"localVariables>variable"`
	Views           []xmlView         `xml:"calculationViews>calculationView"`
	LogicalModel    *xmlLogicalModel  `xml:"logicalModel"`
}

type xmlDescriptions struct {
	DefaultDescription string `xml:"defaultDescription,attr"`
}

type xmlDataSource struct {
	ID           string           `xml:"id,attr"`
	Type         string           `xml:"type,attr"`
	ColumnObject *xmlColumnObject `xml:"columnObject"`
	ResourceURI  string           `xml:"resourceUri"`
}

type xmlColumnObject struct {
	SchemaName       string `xml:"schemaName,attr"`
	ColumnObjectName string `xml:"columnObjectName,attr"`
}

type xmlVariable struct {
	ID           string         `xml:"id,attr"`
	Descriptions xmlDescriptions `xml:"descriptions"`
	Properties   *xmlVarProps   `xml:"variableProperties"`
}

type xmlVarProps struct {
	Datatype     string        `xml:"datatype,attr"`
	DefaultValue string        `xml:"defaultValue,attr"`
	Mandatory    string        `xml:"mandatory,attr"`
	Selection    *xmlSelection `xml:"selection"`
}

type xmlSelection struct {
	Type string `xml:"type,attr"`
}

type xmlView struct {
	XSIType        string              `xml:"http://www.w3.org/2001/XMLSchema-instance type,attr"`
	ID             string              `xml:"id,attr"`
	JoinType       string              `xml:"joinType,attr"`
	Inputs         []xmlInput          `xml:"input"`
	ViewAttributes []xmlViewAttribute  `xml:"viewAttributes>viewAttribute"`
	Calculated     []xmlCalculatedAttr `xml:"calculatedViewAttributes>calculatedViewAttribute"`
	JoinAttributes []xmlJoinAttribute  `xml:"joinAttribute"`
	Window         *xmlWindowFunction  `xml:"windowFunction"`
}

type xmlInput struct {
	Node       string       `xml:"node,attr"`
	Alias      string       `xml:"alias,attr"`
	ViewNode   string       `xml:"viewNode"`
	DataSource string       `xml:"dataSource"`
	Entity     string       `xml:"entity"`
	Mappings   []xmlMapping `xml:"mapping"`
}

type xmlMapping struct {
	Target     string `xml:"target,attr"`
	Source     string `xml:"source,attr"`
	TargetName string `xml:"targetName,attr"`
	SourceName string `xml:"sourceName,attr"`
}

func (m xmlMapping) target() string {
	if m.Target != "" {
		return m.Target
	}
	return m.TargetName
}

func (m xmlMapping) source() string {
	if m.Source != "" {
		return m.Source
	}
	return m.SourceName
}

type xmlViewAttribute struct {
	ID              string     `xml:"id,attr"`
	Hidden          string     `xml:"hidden,attr"`
	AggregationType string     `xml:"aggregationType,attr"`
	Filter          *xmlFilter `xml:"filter"`
}

type xmlFilter struct {
	Value     string       `xml:"value,attr"`
	Operator  string       `xml:"operator,attr"`
	Including string       `xml:"including,attr"`
	Operands  []xmlOperand `xml:"operands"`
}

type xmlOperand struct {
	Value string `xml:"value,attr"`
}

type xmlCalculatedAttr struct {
	ID       string `xml:"id,attr"`
	Datatype string `xml:"datatype,attr"`
	Length   string `xml:"length,attr"`
	Scale    string `xml:"scale,attr"`
	Hidden   string `xml:"hidden,attr"`
	Formula  string `xml:"formula"`
}

type xmlJoinAttribute struct {
	Name string `xml:"name,attr"`
}

type xmlWindowFunction struct {
	PartitionElements []string           `xml:"partitionElement"`
	Orders            []xmlWindowOrder   `xml:"order"`
	RankElement       string             `xml:"rankElement"`
	Threshold         *xmlRankThreshold  `xml:"rankThreshold"`
}

type xmlWindowOrder struct {
	ByElement string `xml:"byElement,attr"`
	Direction string `xml:"direction,attr"`
}

type xmlRankThreshold struct {
	ConstantValue string `xml:"constantValue"`
}

type xmlLogicalModel struct {
	ID         string                `xml:"id,attr"`
	Attributes []xmlLogicalAttribute `xml:"attributes>attribute"`
}

type xmlLogicalAttribute struct {
	ID         string          `xml:"id,attr"`
	Hidden     string          `xml:"hidden,attr"`
	Key        string          `xml:"key,attr"`
	KeyMapping *xmlKeyMapping  `xml:"keyMapping"`
}

type xmlKeyMapping struct {
	ColumnName string `xml:"columnName,attr"`
}
