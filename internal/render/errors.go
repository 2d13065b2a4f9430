package render

import "fmt"

// RenderError is a fatal code-generation failure: an unresolved column
// or parameter, a union shape mismatch, or a scenario with no terminal
// node. It aborts the conversion.
type RenderError struct {
	Node    string
	Message string
	Err     error
}

func (e *RenderError) Error() string {
	if e.Node != "" {
		return fmt.Sprintf("render error in node %s: %s", e.Node, e.Message)
	}
	return "render error: " + e.Message
}

func (e *RenderError) Unwrap() error { return e.Err }
