// Package abapgen emits ABAP report source from a stage lineage
// graph. Joins are emulated with sequential fetches: the driving table
// is read directly, every other table through FOR ALL ENTRIES on the
// key set its lookup source produced. Row types use dictionary
// references (table-field) for real columns and TYPE string for
// calculated ones, so FOR ALL ENTRIES comparisons stay type-safe.
package abapgen

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/x2s-labs/x2s/internal/lineage"
	"github.com/x2s-labs/x2s/pkg/ir"
)

// Config controls report generation.
type Config struct {
	// ProgramID names the generated report (Z_PURE_<ProgramID>).
	ProgramID string
	// SchemaOverrides is accepted for interface symmetry with the
	// renderer; ABAP opens tables through the dictionary, so schema
	// names never appear in the output.
	SchemaOverrides map[string]string
}

// Result is the structured outcome of one transpilation.
type Result struct {
	Program  string
	Plan     *lineage.Plan
	Warnings []string
}

// Generate builds the complete ABAP report for a parsed stage graph.
// It fails with FAEResolutionError when a join's key set cannot be
// traced to an upstream table.
func Generate(g *lineage.Graph, cfg Config) (*Result, error) {
	plan, err := lineage.BuildPlan(g)
	if err != nil {
		return nil, err
	}

	gen := &generator{g: g, plan: plan, cfg: cfg}
	program, err := gen.program()
	if err != nil {
		return nil, err
	}
	return &Result{Program: program, Plan: plan, Warnings: gen.warnings}, nil
}

type generator struct {
	g        *lineage.Graph
	plan     *lineage.Plan
	cfg      Config
	warnings []string
}

func (gen *generator) warnf(format string, args ...any) {
	gen.warnings = append(gen.warnings, fmt.Sprintf(format, args...))
}

func (gen *generator) program() (string, error) {
	id := gen.cfg.ProgramID
	if id == "" {
		id = "CONVERTED"
	}
	name := "Z_PURE_" + sanitize(id, 20)

	var b strings.Builder
	fmt.Fprintf(&b, `*&---------------------------------------------------------------------*
*& Report %s
*&---------------------------------------------------------------------*
*& Source: %s
*&
*& Uses native ABAP SELECT statements with FOR ALL ENTRIES, so the
*& program runs on any backend database.
*&---------------------------------------------------------------------*
REPORT %s.

`, name, id, strings.ToLower(name))

	b.WriteString(selectionScreen(id))

	b.WriteString(section("Type Definitions"))
	b.WriteString(gen.typeDefinitions())

	b.WriteString(section("Data Declarations"))
	b.WriteString(gen.dataDeclarations())

	fmt.Fprintf(&b, `START-OF-SELECTION.

  PERFORM fetch_data.
  PERFORM export_csv.

  WRITE: / 'Export completed.'.
  WRITE: / 'Records:', lv_count.
  WRITE: / 'File:', p_path.

*&---------------------------------------------------------------------*
*& Form FETCH_DATA
*&---------------------------------------------------------------------*
FORM fetch_data.
%s
ENDFORM.

*&---------------------------------------------------------------------*
*& Form EXPORT_CSV
*&---------------------------------------------------------------------*
FORM export_csv.
  DATA: lv_sep TYPE string.
  lv_sep = p_delim.

%s
  IF p_gui = abap_true.
    PERFORM download_gui.
  ELSE.
    PERFORM download_server.
  ENDIF.
ENDFORM.

%s`, gen.fetchCode(), gen.exportCode(), downloadForms)

	return b.String(), nil
}

func selectionScreen(id string) string {
	return fmt.Sprintf(`SELECTION-SCREEN BEGIN OF BLOCK b1 WITH FRAME TITLE TEXT-001.
  PARAMETERS:
    p_path   TYPE string DEFAULT 'C:\temp\%s.csv' LOWER CASE,
    p_gui    TYPE abap_bool AS CHECKBOX DEFAULT abap_true,
    p_head   TYPE abap_bool AS CHECKBOX DEFAULT abap_true,
    p_delim  TYPE c LENGTH 1 DEFAULT ','.
SELECTION-SCREEN END OF BLOCK b1.

`, strings.ToLower(id))
}

func section(title string) string {
	return fmt.Sprintf(`*----------------------------------------------------------------------*
* %s
*----------------------------------------------------------------------*
`, title)
}

// typeDefinitions emits one row type per stage. Real columns reference
// the dictionary field of their source table; calculated columns are
// generic strings regardless of what their expression contains.
func (gen *generator) typeDefinitions() string {
	var lines []string

	for _, key := range gen.g.Order {
		st, _ := gen.g.Stage(key)
		lines = append(lines, "TYPES: BEGIN OF "+gen.typeName(st)+",")
		for _, c := range st.Columns {
			line := "         " + gen.fieldDecl(st, c) + ","
			if c.Calculated() {
				line += `  " calculated column`
			}
			lines = append(lines, line)
		}
		if len(st.Columns) == 0 {
			lines = append(lines, "         dummy TYPE string,")
		}
		lines = append(lines, "       END OF "+gen.typeName(st)+".", "")
	}

	if len(gen.g.FinalColumns) > 0 {
		final, _ := gen.g.Stage(gen.g.FinalStage)
		lines = append(lines, "TYPES: BEGIN OF ty_result,")
		for _, col := range gen.g.FinalColumns {
			lines = append(lines, "         "+gen.resultFieldDecl(final, col)+",")
		}
		lines = append(lines, "       END OF ty_result.", "")
	}

	return strings.Join(lines, "\n") + "\n"
}

func (gen *generator) fieldDecl(st *lineage.Stage, c lineage.Column) string {
	field := strings.ToLower(c.Name)
	if c.Calculated() {
		return field + " TYPE string"
	}
	if st.Kind == lineage.KindBase {
		return fmt.Sprintf("%s TYPE %s-%s", field, strings.ToLower(st.Table), field)
	}
	if table, ok := lineage.ColumnSource(gen.g, st, c.Name); ok {
		return fmt.Sprintf("%s TYPE %s-%s", field, strings.ToLower(table), field)
	}
	return field + " TYPE string"
}

func (gen *generator) resultFieldDecl(final *lineage.Stage, col string) string {
	field := strings.ToLower(col)
	if final != nil {
		if table, ok := lineage.ColumnSource(gen.g, final, col); ok {
			return fmt.Sprintf("%s TYPE %s-%s", field, strings.ToLower(table), field)
		}
	}
	return field + " TYPE string"
}

func (gen *generator) dataDeclarations() string {
	var lines []string
	for _, key := range gen.g.Order {
		st, _ := gen.g.Stage(key)
		lines = append(lines,
			fmt.Sprintf("DATA: %s TYPE TABLE OF %s,", gen.tableVar(st), gen.typeName(st)),
			fmt.Sprintf("      %s TYPE %s.", gen.rowVar(st), gen.typeName(st)),
			"")
	}
	if len(gen.g.FinalColumns) > 0 {
		lines = append(lines,
			"DATA: lt_result TYPE TABLE OF ty_result,",
			"      ls_result TYPE ty_result.",
			"")
	}
	lines = append(lines,
		"DATA: lt_csv    TYPE TABLE OF string,",
		"      lv_line   TYPE string,",
		"      lv_found  TYPE abap_bool,",
		"      lv_count  TYPE i.",
		"")
	return strings.Join(lines, "\n") + "\n"
}

func (gen *generator) fetchCode() string {
	var lines []string

	lines = append(lines, `  " Step 1: Fetch base tables`)
	for _, key := range gen.plan.FetchOrder {
		st, ok := gen.g.Stage(key)
		if !ok {
			continue
		}
		lines = append(lines, gen.baseFetch(st)...)
	}

	if sorts := gen.sortStatements(); len(sorts) > 0 {
		lines = append(lines, `  " Step 2: Sort lookup tables for keyed access`)
		lines = append(lines, sorts...)
		lines = append(lines, "")
	}

	lines = append(lines, `  " Step 3: Assemble derived stages`)
	for _, key := range gen.g.Order {
		st, _ := gen.g.Stage(key)
		switch st.Kind {
		case lineage.KindJoin:
			lines = append(lines, gen.joinAssembly(st)...)
		case lineage.KindUnion:
			lines = append(lines, gen.unionAssembly(st)...)
		case lineage.KindDerived:
			lines = append(lines, gen.derivedAssembly(st)...)
		}
	}

	lines = append(lines, `  " Step 4: Build final result`)
	lines = append(lines, gen.finalAssembly()...)
	return strings.Join(lines, "\n")
}

// baseFetch emits the SELECT for one base stage. Tables with a lookup
// plan entry fetch through FOR ALL ENTRIES, guarded so an empty key
// set skips the lookup entirely instead of matching every row.
func (gen *generator) baseFetch(st *lineage.Stage) []string {
	table := strings.ToUpper(st.Table)
	lt := gen.tableVar(st)

	var cols []string
	for _, c := range st.Columns {
		if !c.Calculated() {
			cols = append(cols, strings.ToLower(c.Name))
		}
	}
	colList := strings.Join(cols, " ")
	if colList == "" {
		colList = "*"
	}

	var where []string
	for _, wc := range st.Where {
		where = append(where, abapCondition(wc))
	}

	var lines []string
	lines = append(lines, fmt.Sprintf(`  " %s (stage %s)`, table, st.Name))

	if lk, ok := gen.plan.Lookups[table]; ok {
		ltSource := "lt_" + strings.ToLower(sanitize(lk.Source, 26))
		keyed := make([]string, 0, len(lk.Keys)+len(where))
		for _, kp := range lk.Keys {
			keyed = append(keyed, fmt.Sprintf("%s = %s-%s",
				strings.ToLower(kp.TargetColumn), ltSource, strings.ToLower(kp.SourceColumn)))
		}
		keyed = append(keyed, where...)

		sel := []string{
			fmt.Sprintf("    SELECT %s", colList),
			fmt.Sprintf("      INTO CORRESPONDING FIELDS OF TABLE %s", lt),
			fmt.Sprintf("      FROM %s FOR ALL ENTRIES IN %s", strings.ToLower(table), ltSource),
		}
		lines = append(lines, fmt.Sprintf("  IF %s IS NOT INITIAL.", ltSource))
		lines = append(lines, withWhere(sel, keyed, "      ")...)
		lines = append(lines, "  ENDIF.")
	} else {
		sel := []string{
			fmt.Sprintf("  SELECT %s", colList),
			fmt.Sprintf("    INTO CORRESPONDING FIELDS OF TABLE %s", lt),
			fmt.Sprintf("    FROM %s", strings.ToLower(table)),
		}
		lines = append(lines, withWhere(sel, where, "    ")...)
	}

	lines = append(lines, "")
	return lines
}

// withWhere renders an ABAP WHERE clause onto a SELECT, terminating
// the statement on the last line.
func withWhere(sel []string, conds []string, indent string) []string {
	if len(conds) == 0 {
		sel[len(sel)-1] += "."
		return sel
	}
	sel = append(sel, indent+"WHERE "+conds[0])
	for _, c := range conds[1:] {
		sel = append(sel, indent+"  AND "+c)
	}
	sel[len(sel)-1] += "."
	return sel
}

func abapCondition(wc lineage.Condition) string {
	col := strings.ToLower(wc.Column)
	switch wc.Operator {
	case "!=":
		return fmt.Sprintf("%s <> %s", col, wc.Value)
	case "IS NULL":
		return fmt.Sprintf("%s IS INITIAL", col)
	case "IS NOT NULL":
		return fmt.Sprintf("%s IS NOT INITIAL", col)
	case "NOT IN":
		return fmt.Sprintf("NOT %s IN %s", col, wc.Value)
	default:
		return fmt.Sprintf("%s %s %s", col, wc.Operator, wc.Value)
	}
}

func (gen *generator) sortStatements() []string {
	var lines []string
	seen := map[string][]string{}
	var order []string

	for _, key := range gen.g.Order {
		st, _ := gen.g.Stage(key)
		if st.Kind != lineage.KindJoin {
			continue
		}
		right, ok := gen.g.Stage(st.RightInput)
		if !ok {
			continue
		}
		lt := gen.tableVar(right)
		for _, jk := range st.JoinKeys {
			col := strings.ToLower(jk.RightColumn)
			if !containsStr(seen[lt], col) {
				if len(seen[lt]) == 0 {
					order = append(order, lt)
				}
				seen[lt] = append(seen[lt], col)
			}
		}
	}

	for _, lt := range order {
		lines = append(lines, fmt.Sprintf("  SORT %s BY %s.", lt, strings.Join(seen[lt], " ")))
	}
	return lines
}

// joinAssembly emits a nested loop join. The inner LOOP AT ... WHERE
// rides the SORT from step 2; LEFT joins keep unmatched left rows with
// initial right-side fields.
func (gen *generator) joinAssembly(st *lineage.Stage) []string {
	left, lok := gen.g.Stage(st.LeftInput)
	right, rok := gen.g.Stage(st.RightInput)
	if !lok || !rok {
		gen.warnf("join stage %s: input not found", st.Name)
		return []string{fmt.Sprintf(`  " join %s skipped: input not found`, st.Name), ""}
	}

	ltT, lsT := gen.tableVar(st), gen.rowVar(st)
	ltL, lsL := gen.tableVar(left), gen.rowVar(left)
	ltR, lsR := gen.tableVar(right), gen.rowVar(right)

	var keys []string
	for _, jk := range st.JoinKeys {
		keys = append(keys, fmt.Sprintf("%s = %s-%s",
			strings.ToLower(jk.RightColumn), lsL, strings.ToLower(jk.LeftColumn)))
	}
	whereClause := strings.Join(keys, " AND ")

	// sourceRow picks the input row a column is copied from. Qualified
	// columns follow their parsed qualifier; only unqualified ones fall
	// back to whichever side carries the name, left first.
	sourceRow := func(c lineage.Column) string {
		if c.Source != "" {
			switch ir.Key(c.Source) {
			case st.LeftInput:
				return lsL
			case st.RightInput:
				return lsR
			}
		}
		if left.HasColumn(c.Name) {
			return lsL
		}
		if right.HasColumn(c.Name) {
			return lsR
		}
		return lsL
	}

	assign := func(indent string) []string {
		var out []string
		for _, c := range st.Columns {
			col := strings.ToLower(c.Name)
			out = append(out, fmt.Sprintf("%s%s-%s = %s-%s.", indent, lsT, col, sourceRow(c), col))
		}
		return out
	}

	lines := []string{fmt.Sprintf(`  " join stage %s`, st.Name)}
	lines = append(lines, fmt.Sprintf("  LOOP AT %s INTO %s.", ltL, lsL))

	if st.JoinType == "LEFT" {
		lines = append(lines, "    lv_found = abap_false.")
		lines = append(lines, fmt.Sprintf("    LOOP AT %s INTO %s WHERE %s.", ltR, lsR, whereClause))
		lines = append(lines, "      lv_found = abap_true.")
		lines = append(lines, fmt.Sprintf("      CLEAR %s.", lsT))
		lines = append(lines, assign("      ")...)
		lines = append(lines, fmt.Sprintf("      APPEND %s TO %s.", lsT, ltT))
		lines = append(lines, "    ENDLOOP.")
		lines = append(lines, "    IF lv_found = abap_false.")
		lines = append(lines, fmt.Sprintf("      CLEAR %s.", lsT))
		for _, c := range st.Columns {
			if sourceRow(c) != lsL || !left.HasColumn(c.Name) {
				continue
			}
			col := strings.ToLower(c.Name)
			lines = append(lines, fmt.Sprintf("      %s-%s = %s-%s.", lsT, col, lsL, col))
		}
		lines = append(lines, fmt.Sprintf("      APPEND %s TO %s.", lsT, ltT))
		lines = append(lines, "    ENDIF.")
	} else {
		lines = append(lines, fmt.Sprintf("    LOOP AT %s INTO %s WHERE %s.", ltR, lsR, whereClause))
		lines = append(lines, fmt.Sprintf("      CLEAR %s.", lsT))
		lines = append(lines, assign("      ")...)
		lines = append(lines, fmt.Sprintf("      APPEND %s TO %s.", lsT, ltT))
		lines = append(lines, "    ENDLOOP.")
	}

	lines = append(lines, "  ENDLOOP.", "")
	return lines
}

// unionAssembly appends every branch into the union's table, mapping
// columns positionally the way SQL UNION aligns them.
func (gen *generator) unionAssembly(st *lineage.Stage) []string {
	ltT, lsT := gen.tableVar(st), gen.rowVar(st)
	lines := []string{fmt.Sprintf(`  " union stage %s`, st.Name)}

	for _, inputKey := range st.UnionInputs {
		input, ok := gen.g.Stage(inputKey)
		if !ok {
			gen.warnf("union stage %s: input %s not found", st.Name, inputKey)
			continue
		}
		ltS, lsS := gen.tableVar(input), gen.rowVar(input)

		lines = append(lines, fmt.Sprintf("  LOOP AT %s INTO %s.", ltS, lsS))
		lines = append(lines, fmt.Sprintf("    CLEAR %s.", lsT))
		for i, c := range st.Columns {
			target := strings.ToLower(c.Name)
			source := target
			if i < len(input.Columns) {
				source = strings.ToLower(input.Columns[i].Name)
			}
			lines = append(lines, fmt.Sprintf("    %s-%s = %s-%s.", lsT, target, lsS, source))
		}
		lines = append(lines, fmt.Sprintf("    APPEND %s TO %s.", lsT, ltT))
		lines = append(lines, "  ENDLOOP.", "")
	}
	return lines
}

// derivedAssembly copies a stage's rows from its input, applying the
// stage's WHERE predicates as an IF guard.
func (gen *generator) derivedAssembly(st *lineage.Stage) []string {
	input, ok := gen.g.Stage(st.Input)
	if !ok {
		gen.warnf("stage %s: input %s not found", st.Name, st.Input)
		return []string{fmt.Sprintf(`  " stage %s skipped: input not found`, st.Name), ""}
	}

	ltT, lsT := gen.tableVar(st), gen.rowVar(st)
	ltS, lsS := gen.tableVar(input), gen.rowVar(input)

	copyCols := func(indent string) []string {
		var out []string
		for _, c := range st.Columns {
			col := strings.ToLower(c.Name)
			out = append(out, fmt.Sprintf("%s%s-%s = %s-%s.", indent, lsT, col, lsS, col))
		}
		return out
	}

	lines := []string{fmt.Sprintf(`  " stage %s`, st.Name)}
	lines = append(lines, fmt.Sprintf("  LOOP AT %s INTO %s.", ltS, lsS))

	if len(st.Where) > 0 {
		conds := make([]string, 0, len(st.Where))
		for _, wc := range st.Where {
			conds = append(conds, abapRowCondition(lsS, wc))
		}
		lines = append(lines, "    IF "+strings.Join(conds, " AND ")+".")
		lines = append(lines, fmt.Sprintf("      CLEAR %s.", lsT))
		lines = append(lines, copyCols("      ")...)
		lines = append(lines, fmt.Sprintf("      APPEND %s TO %s.", lsT, ltT))
		lines = append(lines, "    ENDIF.")
	} else {
		lines = append(lines, fmt.Sprintf("    CLEAR %s.", lsT))
		lines = append(lines, copyCols("    ")...)
		lines = append(lines, fmt.Sprintf("    APPEND %s TO %s.", lsT, ltT))
	}

	lines = append(lines, "  ENDLOOP.", "")
	return lines
}

func abapRowCondition(row string, wc lineage.Condition) string {
	col := row + "-" + strings.ToLower(wc.Column)
	switch wc.Operator {
	case "!=":
		return fmt.Sprintf("%s <> %s", col, wc.Value)
	case "IS NULL":
		return col + " IS INITIAL"
	case "IS NOT NULL":
		return col + " IS NOT INITIAL"
	case "NOT IN":
		return fmt.Sprintf("NOT %s IN %s", col, wc.Value)
	default:
		return fmt.Sprintf("%s %s %s", col, wc.Operator, wc.Value)
	}
}

func (gen *generator) finalAssembly() []string {
	final, ok := gen.g.Stage(gen.g.FinalStage)
	if !ok {
		gen.warnf("final stage %s not found", gen.g.FinalStage)
		return []string{`  " final stage not found`}
	}

	ltS, lsS := gen.tableVar(final), gen.rowVar(final)
	lines := []string{fmt.Sprintf("  LOOP AT %s INTO %s.", ltS, lsS)}
	lines = append(lines, "    CLEAR ls_result.")
	for _, col := range gen.g.FinalColumns {
		c := strings.ToLower(col)
		lines = append(lines, fmt.Sprintf("    ls_result-%s = %s-%s.", c, lsS, c))
	}
	lines = append(lines, "    APPEND ls_result TO lt_result.")
	lines = append(lines, "  ENDLOOP.")
	lines = append(lines, "")
	lines = append(lines, "  WRITE: / 'Result rows:', lines( lt_result ).")
	return lines
}

func (gen *generator) exportCode() string {
	var lines []string

	if len(gen.g.FinalColumns) > 0 {
		lines = append(lines, "  IF p_head = abap_true.")
		lines = append(lines, "    CLEAR lv_line.")
		lines = append(lines, fmt.Sprintf("    lv_line = '%s'.", strings.ToUpper(gen.g.FinalColumns[0])))
		for _, col := range gen.g.FinalColumns[1:] {
			lines = append(lines, fmt.Sprintf("    CONCATENATE lv_line lv_sep '%s' INTO lv_line.", strings.ToUpper(col)))
		}
		lines = append(lines, "    APPEND lv_line TO lt_csv.")
		lines = append(lines, "  ENDIF.")
		lines = append(lines, "")
	}

	lines = append(lines, "  LOOP AT lt_result INTO ls_result.")
	lines = append(lines, "    CLEAR lv_line.")
	if len(gen.g.FinalColumns) > 0 {
		lines = append(lines, fmt.Sprintf("    lv_line = ls_result-%s.", strings.ToLower(gen.g.FinalColumns[0])))
		for _, col := range gen.g.FinalColumns[1:] {
			lines = append(lines, fmt.Sprintf("    CONCATENATE lv_line lv_sep ls_result-%s INTO lv_line.", strings.ToLower(col)))
		}
	}
	lines = append(lines, "    APPEND lv_line TO lt_csv.")
	lines = append(lines, "  ENDLOOP.")
	lines = append(lines, "")
	lines = append(lines, "  lv_count = lines( lt_csv ).")
	lines = append(lines, "")
	return strings.Join(lines, "\n")
}

const downloadForms = `*&---------------------------------------------------------------------*
*& Form DOWNLOAD_GUI
*&---------------------------------------------------------------------*
FORM download_gui.
  DATA: lv_fullpath TYPE string.
  lv_fullpath = p_path.

  CALL FUNCTION 'GUI_DOWNLOAD'
    EXPORTING
      filename              = lv_fullpath
      filetype              = 'ASC'
      codepage              = '4103'
      write_field_separator = space
    TABLES
      data_tab              = lt_csv
    EXCEPTIONS
      OTHERS                = 99.

  IF sy-subrc <> 0.
    WRITE: / 'Error during GUI download. RC:', sy-subrc.
  ELSE.
    WRITE: / 'File downloaded to:', lv_fullpath.
  ENDIF.
ENDFORM.

*&---------------------------------------------------------------------*
*& Form DOWNLOAD_SERVER
*&---------------------------------------------------------------------*
FORM download_server.
  DATA: lv_filename TYPE string.
  lv_filename = p_path.

  OPEN DATASET lv_filename FOR OUTPUT IN TEXT MODE ENCODING UTF-8.

  IF sy-subrc <> 0.
    WRITE: / 'Error opening file:', lv_filename.
    RETURN.
  ENDIF.

  LOOP AT lt_csv INTO lv_line.
    TRANSFER lv_line TO lv_filename.
  ENDLOOP.

  CLOSE DATASET lv_filename.
  WRITE: / 'File saved to server:', lv_filename.
ENDFORM.
`

// tableVar is the internal-table variable for a stage: base stages
// are named after their table, derived stages after the stage itself.
func (gen *generator) tableVar(st *lineage.Stage) string {
	return "lt_" + strings.ToLower(sanitize(gen.holderName(st), 26))
}

func (gen *generator) rowVar(st *lineage.Stage) string {
	return "ls_" + strings.ToLower(sanitize(gen.holderName(st), 26))
}

func (gen *generator) typeName(st *lineage.Stage) string {
	return "ty_" + strings.ToLower(sanitize(gen.holderName(st), 26))
}

func (gen *generator) holderName(st *lineage.Stage) string {
	if st.Kind == lineage.KindBase && st.Table != "" {
		return st.Table
	}
	return ir.Key(st.Name)
}

var identRe = regexp.MustCompile(`[^A-Za-z0-9_]`)

// sanitize makes a string a valid ABAP identifier fragment.
func sanitize(name string, maxLen int) string {
	clean := identRe.ReplaceAllString(name, "_")
	if clean == "" || !isLetter(clean[0]) {
		clean = "X_" + clean
	}
	if len(clean) > maxLen {
		clean = clean[:maxLen]
	}
	return strings.ToUpper(clean)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func containsStr(slice []string, s string) bool {
	for _, v := range slice {
		if v == s {
			return true
		}
	}
	return false
}
