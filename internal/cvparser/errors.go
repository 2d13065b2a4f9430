package cvparser

import "fmt"

// ParseError reports a document that could not be turned into a valid
// scenario: malformed XML, an undefined node reference, an
// unresolvable join key, or a cyclic node graph.
type ParseError struct {
	Scenario string // scenario ID when known
	Node     string // node being processed when the error was found
	Message  string
	Err      error
}

func (e *ParseError) Error() string {
	where := e.Scenario
	if e.Node != "" {
		where += "/" + e.Node
	}
	if where != "" {
		return fmt.Sprintf("parse error in %s: %s", where, e.Message)
	}
	return "parse error: " + e.Message
}

func (e *ParseError) Unwrap() error { return e.Err }
