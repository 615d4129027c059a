package graph

import (
	"sort"
	"strings"

	"tabula-hq/formula/pkg/formula/ast"
	ferrors "tabula-hq/formula/pkg/formula/errors"
	"tabula-hq/formula/pkg/formula/functions"
	"tabula-hq/formula/pkg/formula/parser"
	"tabula-hq/formula/pkg/schema"
)

// Node is one column of the dependency graph.
type Node struct {
	// ColumnID is the id of the column.
	ColumnID string

	// Expression is the formula expression, empty for data columns.
	Expression string

	// Dependencies are the ids of the columns this column reads.
	Dependencies []string

	// Dependents are the ids of the columns that read this column.
	Dependents []string

	// Level is 0 for columns without dependencies, otherwise one more than
	// the highest level among Dependencies.
	Level int
}

// Graph is the dependency graph of a column schema. It is built once per
// schema and never modified, so it is safe for concurrent reads.
type Graph struct {
	columns []schema.Column
	nodes   map[string]*Node
	order   []string // column ids in source order
}

// New builds the dependency graph of columns. Edges come from each formula's
// declared dependencies plus every column referenced anywhere in its
// expression, both branches of IF included. References are matched to
// columns by id, key or name; references to fields outside the schema add
// no edge. An expression that does not parse contributes only its declared
// dependencies.
func New(columns []schema.Column) *Graph {
	g := &Graph{
		columns: append([]schema.Column(nil), columns...),
		nodes:   make(map[string]*Node, len(columns)),
	}

	first := make(map[string]int, len(columns))
	for i := range g.columns {
		id := ColumnID(&g.columns[i])
		if _, dup := g.nodes[id]; dup {
			continue
		}
		first[id] = i
		node := &Node{ColumnID: id}
		if g.columns[i].HasFormula() {
			node.Expression = g.columns[i].Formula.Expression
		}
		g.nodes[id] = node
		g.order = append(g.order, id)
	}

	for i := range g.columns {
		col := &g.columns[i]
		id := ColumnID(col)
		if !col.HasFormula() || first[id] != i {
			continue // duplicate ids keep the first definition
		}
		node := g.nodes[id]

		seen := make(map[string]bool)
		for _, ref := range references(col.Formula) {
			dep, ok := g.Resolve(ref)
			if !ok || seen[dep] {
				continue
			}
			seen[dep] = true
			node.Dependencies = append(node.Dependencies, dep)
			g.nodes[dep].Dependents = append(g.nodes[dep].Dependents, node.ColumnID)
		}
	}

	g.assignLevels()
	return g
}

// ColumnID returns the graph key of a column: its id, or its field key when
// the id is empty.
func ColumnID(c *schema.Column) string {
	if c.ID != "" {
		return c.ID
	}
	return c.FieldKey()
}

// columnArgs maps each built-in that names columns as text to the positions
// of those arguments.
var columnArgs = func() map[string][]int {
	m := make(map[string][]int)
	for _, def := range functions.Builtins() {
		if len(def.ColumnArgs) > 0 {
			m[strings.ToUpper(def.Name)] = def.ColumnArgs
		}
	}
	return m
}()

// references lists declared dependencies followed by the identifiers the
// expression references statically, then the literal column names passed
// to functions such as LOOKUP and COUNTIF.
func references(f *schema.Formula) []string {
	refs := append([]string(nil), f.Dependencies...)
	node, err := parser.Parse(f.Expression)
	if err != nil {
		return refs
	}
	refs = append(refs, ast.ColumnRefs(node)...)
	_ = ast.Walk(node, func(n ast.Node) error {
		call, ok := n.(*ast.FunctionCall)
		if !ok {
			return nil
		}
		for _, i := range columnArgs[strings.ToUpper(call.Name)] {
			if i >= len(call.Args) {
				continue
			}
			if lit, ok := call.Args[i].(*ast.Literal); ok {
				if name, ok := lit.Value.(string); ok {
					refs = append(refs, name)
				}
			}
		}
		return nil
	})
	return refs
}

// Resolve maps a column reference (id, key or name) to a column id.
func (g *Graph) Resolve(ref string) (string, bool) {
	if _, ok := g.nodes[ref]; ok {
		return ref, true
	}
	col, ok := schema.FindColumn(g.columns, ref)
	if !ok {
		return "", false
	}
	return ColumnID(col), true
}

// assignLevels computes every node's level with a memoized DFS. Nodes on a
// cycle get a finite level; the cycle itself is reported by
// HasCircularDependency.
func (g *Graph) assignLevels() {
	done := make(map[string]bool, len(g.nodes))
	visiting := make(map[string]bool)

	var level func(id string) int
	level = func(id string) int {
		node := g.nodes[id]
		if done[id] {
			return node.Level
		}
		if visiting[id] {
			return 0
		}
		visiting[id] = true

		l := 0
		for _, dep := range node.Dependencies {
			if dep == id {
				continue
			}
			if d := level(dep) + 1; d > l {
				l = d
			}
		}

		visiting[id] = false
		done[id] = true
		node.Level = l
		return l
	}

	for _, id := range g.order {
		level(id)
	}
}

// Len returns the number of columns in the graph.
func (g *Graph) Len() int {
	return len(g.order)
}

// Columns returns a copy of the schema the graph was built from.
func (g *Graph) Columns() []schema.Column {
	return append([]schema.Column(nil), g.columns...)
}

// Node returns a copy of the node for id.
func (g *Graph) Node(id string) (Node, bool) {
	node, ok := g.nodes[id]
	if !ok {
		return Node{}, false
	}
	c := *node
	c.Dependencies = append([]string(nil), node.Dependencies...)
	c.Dependents = append([]string(nil), node.Dependents...)
	return c, true
}

// Column returns the schema column for id.
func (g *Graph) Column(id string) (schema.Column, bool) {
	for i := range g.columns {
		if ColumnID(&g.columns[i]) == id {
			return g.columns[i], true
		}
	}
	return schema.Column{}, false
}

// Level returns the level of id, or -1 if id is not in the graph.
func (g *Graph) Level(id string) int {
	if node, ok := g.nodes[id]; ok {
		return node.Level
	}
	return -1
}

// Dependencies returns the ids of the columns id reads directly.
func (g *Graph) Dependencies(id string) []string {
	if node, ok := g.nodes[id]; ok {
		return append([]string(nil), node.Dependencies...)
	}
	return nil
}

// Dependents returns the ids of the columns that read id directly.
func (g *Graph) Dependents(id string) []string {
	if node, ok := g.nodes[id]; ok {
		return append([]string(nil), node.Dependents...)
	}
	return nil
}

// CalculationOrder returns every column id sorted by ascending level, ties
// in source order. A column is never listed before a column it reads.
func (g *Graph) CalculationOrder() []string {
	order := append([]string(nil), g.order...)
	sort.SliceStable(order, func(i, j int) bool {
		return g.nodes[order[i]].Level < g.nodes[order[j]].Level
	})
	return order
}

// FormulaColumns returns the ids of the formula columns in calculation order.
func (g *Graph) FormulaColumns() []string {
	var ids []string
	for _, id := range g.CalculationOrder() {
		if g.nodes[id].Expression != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// AffectedColumns returns every column that directly or transitively reads
// id, in breadth-first order. id itself is included only if it is on a cycle.
func (g *Graph) AffectedColumns(id string) []string {
	node, ok := g.nodes[id]
	if !ok {
		return nil
	}

	visited := map[string]bool{}
	queue := append([]string(nil), node.Dependents...)
	var affected []string

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if visited[current] {
			continue
		}
		visited[current] = true
		affected = append(affected, current)
		queue = append(queue, g.nodes[current].Dependents...)
	}
	return affected
}

// HasCircularDependency reports whether any column depends on itself,
// directly or through other columns.
func (g *Graph) HasCircularDependency() bool {
	return g.FindCycle() != nil
}

// FindCycle returns the first cycle found by a depth-first search in source
// order, as a path that starts and ends with the same column id, or nil.
func (g *Graph) FindCycle() []string {
	visited := make(map[string]bool, len(g.nodes))
	onStack := make(map[string]bool)
	var stack []string
	var cycle []string

	var visit func(id string) bool
	visit = func(id string) bool {
		visited[id] = true
		onStack[id] = true
		stack = append(stack, id)

		for _, dep := range g.nodes[id].Dependencies {
			if onStack[dep] {
				start := indexOf(stack, dep)
				cycle = append(append([]string(nil), stack[start:]...), dep)
				return true
			}
			if !visited[dep] && visit(dep) {
				return true
			}
		}

		onStack[id] = false
		stack = stack[:len(stack)-1]
		return false
	}

	for _, id := range g.order {
		if !visited[id] && visit(id) {
			return cycle
		}
	}
	return nil
}

// InCycle reports whether id can reach itself through its dependencies.
func (g *Graph) InCycle(id string) bool {
	if _, ok := g.nodes[id]; !ok {
		return false
	}
	visited := make(map[string]bool)
	stack := g.Dependencies(id)
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if current == id {
			return true
		}
		if visited[current] {
			continue
		}
		visited[current] = true
		stack = append(stack, g.nodes[current].Dependencies...)
	}
	return false
}

// Validate returns a circular FormulaError when the graph has a cycle.
func (g *Graph) Validate() error {
	cycle := g.FindCycle()
	if cycle == nil {
		return nil
	}
	return ferrors.New(ferrors.KindCircular, "circular dependency: %s", strings.Join(cycle, " -> ")).
		WithColumn(cycle[0])
}

func indexOf(s []string, v string) int {
	for i, x := range s {
		if x == v {
			return i
		}
	}
	return -1
}
