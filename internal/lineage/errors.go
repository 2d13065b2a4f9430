package lineage

import "fmt"

// ParseError reports SQL that cannot be decomposed into stages.
type ParseError struct {
	Message string
}

func (e *ParseError) Error() string {
	return "lineage parse error: " + e.Message
}

// FAEResolutionError reports a batched-lookup source that could not be
// resolved: no ancestor of the join's left side exposes the required
// key as a real column.
type FAEResolutionError struct {
	Stage  string // join stage being resolved
	Table  string // table that needs a key set
	Column string // join key that must be provided
}

func (e *FAEResolutionError) Error() string {
	return fmt.Sprintf("cannot resolve lookup source for table %q in stage %q: no ancestor exposes column %q",
		e.Table, e.Stage, e.Column)
}
