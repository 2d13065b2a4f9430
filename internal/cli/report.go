package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/x2s-labs/x2s/internal/engine"
	"github.com/x2s-labs/x2s/internal/sqlcheck"
)

// printReport renders the validation findings and applied corrections
// for one conversion as text tables.
func printReport(w io.Writer, res *engine.ConvertResult) {
	if res == nil {
		return
	}

	fmt.Fprintf(w, "%s: %d stages", res.ScenarioID, len(res.Stages))
	if len(res.Report.Issues) == 0 {
		fmt.Fprintln(w, ", validation clean")
	} else {
		fmt.Fprintf(w, ", %d finding(s)\n", len(res.Report.Issues))
		printIssueTable(w, res.Report.Issues)
	}

	if len(res.Corrections) > 0 {
		fmt.Fprintf(w, "%d correction(s) applied\n", len(res.Corrections))
		printCorrectionTable(w, res.Corrections)
	}

	for _, warn := range res.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warn)
	}
}

func printIssueTable(w io.Writer, issues []sqlcheck.Issue) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Severity", "Code", "Line", "Message"})
	for _, issue := range issues {
		line := ""
		if issue.Line > 0 {
			line = fmt.Sprintf("%d", issue.Line)
		}
		t.AppendRow(table.Row{issue.Severity, issue.Code, line, issue.Message})
	}
	t.Render()
}

func printCorrectionTable(w io.Writer, corrections []sqlcheck.Correction) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Code", "Confidence", "Original", "Corrected"})
	for _, c := range corrections {
		t.AppendRow(table.Row{c.Code, c.Confidence, c.Original, c.Corrected})
	}
	t.Render()
}

// conversionReport is the JSON shape emitted with --output json.
type conversionReport struct {
	Path        string                `json:"path"`
	ScenarioID  string                `json:"scenario_id,omitempty"`
	SQL         string                `json:"sql,omitempty"`
	ABAP        string                `json:"abap,omitempty"`
	Issues      []sqlcheck.Issue      `json:"issues,omitempty"`
	Corrections []sqlcheck.Correction `json:"corrections,omitempty"`
	Warnings    []string              `json:"warnings,omitempty"`
	Error       string                `json:"error,omitempty"`
}

func writeJSONReport(w io.Writer, item engine.BatchItem, abap *engine.TranspileResult) error {
	rep := conversionReport{Path: item.Path}
	if item.Err != nil {
		rep.Error = item.Err.Error()
	}
	if item.Result != nil {
		rep.ScenarioID = item.Result.ScenarioID
		rep.SQL = item.Result.SQL
		rep.Issues = item.Result.Report.Issues
		rep.Corrections = item.Result.Corrections
		rep.Warnings = item.Result.Warnings
	}
	if abap != nil {
		rep.ABAP = abap.Program
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}
