package lineage

import (
	"strings"

	"github.com/x2s-labs/x2s/pkg/ir"
)

// KeyPair binds one lookup key: TargetColumn on the fetched table must
// equal SourceColumn in the already-fetched key set.
type KeyPair struct {
	TargetColumn string
	SourceColumn string
}

// Lookup describes how one base table is fetched via a batched key
// lookup instead of a full scan.
type Lookup struct {
	Table  string    // table being fetched
	Source string    // upstream table providing the key set
	Keys   []KeyPair // join keys, declaration order
}

// Plan is the join-emulation fetch plan for a stage graph.
type Plan struct {
	Driving    string            // first base table, fetched without a key set
	FetchOrder []string          // base stage keys, key-set providers first
	Lookups    map[string]Lookup // by upper-cased table name
}

// FindAncestorWithColumn walks the lineage graph upward from stage and
// returns the first base stage whose real-column set contains column.
// The walk is deterministic: a join's left side is searched before its
// right, union branches in declaration order. Picking an ancestor
// without this containment check is exactly the defect this function
// replaces: an unrelated sibling table can resolve first and lack the
// key.
func FindAncestorWithColumn(g *Graph, stage *Stage, column string) (*Stage, bool) {
	return findAncestorWithColumns(g, stage, []string{column})
}

// findAncestorWithColumns is FindAncestorWithColumn over a column set:
// the ancestor must carry every column, so a multi-key lookup never
// resolves to a table that provides only part of the key.
func findAncestorWithColumns(g *Graph, stage *Stage, columns []string) (*Stage, bool) {
	visited := make(map[string]bool)

	var walk func(s *Stage) (*Stage, bool)
	walk = func(s *Stage) (*Stage, bool) {
		key := ir.Key(s.Name)
		if visited[key] {
			return nil, false
		}
		visited[key] = true

		if s.Kind == KindBase {
			if hasAllRealColumns(s, columns) {
				return s, true
			}
			return nil, false
		}
		for _, in := range s.inputs() {
			next, ok := g.Stage(in)
			if !ok {
				continue
			}
			if found, ok := walk(next); ok {
				return found, true
			}
		}
		return nil, false
	}

	return walk(stage)
}

func hasAllRealColumns(s *Stage, columns []string) bool {
	for _, c := range columns {
		if !s.HasRealColumn(c) {
			return false
		}
	}
	return true
}

// BuildPlan derives the batched-lookup fetch plan from the graph's
// join stages. For every join whose right side is an unfetched base
// table, the key-set source is the join's left side when that is a
// base table, otherwise the nearest left ancestor that actually
// carries the join key as a real column. No ancestor carrying the key
// is a FAEResolutionError, never a silent fallback.
func BuildPlan(g *Graph) (*Plan, error) {
	plan := &Plan{Lookups: make(map[string]Lookup)}

	baseStages := make([]*Stage, 0, len(g.Stages))
	for _, key := range g.Order {
		st := g.index[key]
		if st.Kind == KindBase && st.Table != "" {
			baseStages = append(baseStages, st)
		}
	}
	if len(baseStages) == 0 {
		return plan, nil
	}

	plan.Driving = upper(baseStages[0].Table)
	resolved := map[string]bool{plan.Driving: true}

	for _, key := range g.Order {
		join := g.index[key]
		if join.Kind != KindJoin || len(join.JoinKeys) == 0 {
			continue
		}
		left, lok := g.Stage(join.LeftInput)
		right, rok := g.Stage(join.RightInput)
		if !lok || !rok {
			continue
		}

		if t := baseTable(right); t != "" && !resolved[t] {
			lookup, err := resolveLookup(g, join, left, t, false)
			if err != nil {
				return nil, err
			}
			plan.Lookups[t] = lookup
			resolved[t] = true
		}
		if t := baseTable(left); t != "" && !resolved[t] {
			lookup, err := resolveLookup(g, join, right, t, true)
			if err != nil {
				return nil, err
			}
			plan.Lookups[t] = lookup
			resolved[t] = true
		}
	}

	plan.FetchOrder = fetchOrder(baseStages, plan.Lookups)
	return plan, nil
}

// resolveLookup finds the key-set source for fetching table, tracing
// through other's lineage. flip swaps key direction for the left-side
// case.
func resolveLookup(g *Graph, join *Stage, other *Stage, table string, flip bool) (Lookup, error) {
	keyCols := make([]string, len(join.JoinKeys))
	for i, jk := range join.JoinKeys {
		if flip {
			keyCols[i] = jk.RightColumn
		} else {
			keyCols[i] = jk.LeftColumn
		}
	}

	var source string
	if t := baseTable(other); t != "" && hasAllRealColumns(other, keyCols) {
		source = t
	} else {
		ancestor, ok := findAncestorWithColumns(g, other, keyCols)
		if !ok {
			return Lookup{}, &FAEResolutionError{Stage: join.Name, Table: table, Column: missingKeyColumn(g, other, keyCols)}
		}
		source = upper(ancestor.Table)
	}

	keys := make([]KeyPair, 0, len(join.JoinKeys))
	for _, jk := range join.JoinKeys {
		if flip {
			keys = append(keys, KeyPair{TargetColumn: upper(jk.LeftColumn), SourceColumn: upper(jk.RightColumn)})
		} else {
			keys = append(keys, KeyPair{TargetColumn: upper(jk.RightColumn), SourceColumn: upper(jk.LeftColumn)})
		}
	}
	return Lookup{Table: table, Source: source, Keys: keys}, nil
}

// missingKeyColumn names the key column that blocked resolution: the
// first one no ancestor provides at all, else the first key (every key
// resolves somewhere, but no single table carries them all).
func missingKeyColumn(g *Graph, other *Stage, keyCols []string) string {
	for _, c := range keyCols {
		if _, ok := FindAncestorWithColumn(g, other, c); !ok {
			return c
		}
	}
	return keyCols[0]
}

// fetchOrder orders base stages so every lookup's key-set source is
// fetched before the lookup itself. Stages stuck behind an unfetchable
// source fall back to declaration order at the end.
func fetchOrder(baseStages []*Stage, lookups map[string]Lookup) []string {
	order := make([]string, 0, len(baseStages))
	fetched := make(map[string]bool)
	remaining := make([]*Stage, len(baseStages))
	copy(remaining, baseStages)

	for len(remaining) > 0 {
		var next []*Stage
		progressed := false
		for _, st := range remaining {
			table := upper(st.Table)
			if lk, ok := lookups[table]; ok && !fetched[lk.Source] {
				next = append(next, st)
				continue
			}
			order = append(order, ir.Key(st.Name))
			fetched[table] = true
			progressed = true
		}
		if !progressed {
			for _, st := range next {
				order = append(order, ir.Key(st.Name))
			}
			break
		}
		remaining = next
	}
	return order
}

// ColumnSource traces a column through the lineage graph to the base
// table it originates from. It returns false for calculated columns
// and columns no ancestor provides.
func ColumnSource(g *Graph, stage *Stage, column string) (string, bool) {
	visited := make(map[string]bool)

	var walk func(s *Stage) (string, bool)
	walk = func(s *Stage) (string, bool) {
		key := ir.Key(s.Name)
		if visited[key] {
			return "", false
		}
		visited[key] = true

		if s.Kind == KindBase {
			for _, c := range s.Columns {
				if equalFoldName(c, column) {
					if c.Calculated() {
						return "", false
					}
					return upper(s.Table), true
				}
			}
			return "", false
		}
		// A non-base stage that redefines the column as an expression
		// breaks the trace: downstream the column is calculated.
		for _, c := range s.Columns {
			if equalFoldName(c, column) && c.Calculated() {
				return "", false
			}
		}
		// A qualified join column traces only through its own side;
		// a same-named column on the other side is a different value.
		if s.Kind == KindJoin {
			for _, c := range s.Columns {
				if equalFoldName(c, column) && c.Source != "" {
					if side, ok := g.Stage(c.Source); ok {
						return walk(side)
					}
				}
			}
		}
		for _, in := range s.inputs() {
			next, ok := g.Stage(in)
			if !ok {
				continue
			}
			if t, ok := walk(next); ok {
				return t, true
			}
		}
		return "", false
	}

	return walk(stage)
}

func baseTable(s *Stage) string {
	if s.Kind == KindBase && s.Table != "" {
		return upper(s.Table)
	}
	return ""
}

func equalFoldName(c Column, name string) bool {
	return ir.Key(c.Name) == ir.Key(name)
}

func upper(s string) string {
	return strings.ToUpper(s)
}
