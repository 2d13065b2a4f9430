package translate

import "fmt"

// FormulaError reports a formula that could not be parsed or resolved.
type FormulaError struct {
	Formula string
	Pos     int
	Message string
}

func (e *FormulaError) Error() string {
	return fmt.Sprintf("formula error at offset %d: %s (in %q)", e.Pos, e.Message, e.Formula)
}

// Warning records a non-fatal translation finding. Unmatched functions
// pass through unchanged but are reported so reviewers can extend the
// catalog.
type Warning struct {
	Function string
	Message  string
}

func (w Warning) String() string {
	if w.Function != "" {
		return fmt.Sprintf("%s: %s", w.Function, w.Message)
	}
	return w.Message
}
