package ast

// Visitor is called for each node during Walk. Returning a non-nil error
// stops the traversal and Walk returns that error.
type Visitor func(Node) error

// Walk traverses the tree rooted at node in depth-first, left-to-right order.
// Every child is visited, including both branches of IF, so Walk is suitable
// for static analysis.
func Walk(node Node, visit Visitor) error {
	if node == nil {
		return nil
	}
	if err := visit(node); err != nil {
		return err
	}

	switch n := node.(type) {
	case *FunctionCall:
		for _, arg := range n.Args {
			if err := Walk(arg, visit); err != nil {
				return err
			}
		}
	case *BinaryOp:
		if err := Walk(n.Left, visit); err != nil {
			return err
		}
		return Walk(n.Right, visit)
	case *UnaryOp:
		return Walk(n.Operand, visit)
	}

	return nil
}

// ColumnRefs returns the distinct column names referenced anywhere in the
// tree, in order of first appearance. Conditional branches are included.
func ColumnRefs(node Node) []string {
	seen := make(map[string]bool)
	var refs []string
	_ = Walk(node, func(n Node) error {
		if ref, ok := n.(*ColumnRef); ok && !seen[ref.Name] {
			seen[ref.Name] = true
			refs = append(refs, ref.Name)
		}
		return nil
	})
	return refs
}

// FunctionNames returns the distinct function names called in the tree.
func FunctionNames(node Node) []string {
	seen := make(map[string]bool)
	var names []string
	_ = Walk(node, func(n Node) error {
		if call, ok := n.(*FunctionCall); ok && !seen[call.Name] {
			seen[call.Name] = true
			names = append(names, call.Name)
		}
		return nil
	})
	return names
}

// Depth returns the height of the tree; a single leaf has depth 1.
func Depth(node Node) int {
	if node == nil {
		return 0
	}
	max := 0
	switch n := node.(type) {
	case *FunctionCall:
		for _, arg := range n.Args {
			if d := Depth(arg); d > max {
				max = d
			}
		}
	case *BinaryOp:
		max = Depth(n.Left)
		if d := Depth(n.Right); d > max {
			max = d
		}
	case *UnaryOp:
		max = Depth(n.Operand)
	}
	return max + 1
}
