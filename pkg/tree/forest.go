// ABOUTME: Pure walks over assembled forests: flatten, find, depth, filter, map
// ABOUTME: ParentIDs works on the flat list instead of an assembled forest

package tree

// Walk visits nodes in pre-order. Returning false from fn skips the node's children.
func Walk[T any](forest []*Node[T], fn func(n *Node[T], depth int) bool) {
	var visit func(nodes []*Node[T], depth int)
	visit = func(nodes []*Node[T], depth int) {
		for _, n := range nodes {
			if fn(n, depth) && len(n.Children) > 0 {
				visit(n.Children, depth+1)
			}
		}
	}
	visit(forest, 0)
}

// Flatten returns every record in pre-order, without the children wrapper.
func Flatten[T any](forest []*Node[T]) []T {
	out := make([]T, 0, len(forest))
	Walk(forest, func(n *Node[T], _ int) bool {
		out = append(out, n.Record)
		return true
	})
	return out
}

// Find returns the first node, depth-first, whose id equals id.
func Find[T any](forest []*Node[T], id string, acc Accessor[T]) *Node[T] {
	for _, n := range forest {
		if acc.ID(n.Record) == id {
			return n
		}
		if found := Find(n.Children, id, acc); found != nil {
			return found
		}
	}
	return nil
}

// ParentIDs follows parent links through the flat list starting at itemID and
// returns ancestor ids nearest first. The walk stops at a record without a
// parent, at a parent missing from items, or on reaching an id twice.
func ParentIDs[T any](items []T, itemID string, acc Accessor[T]) []string {
	byID := make(map[string]T, len(items))
	for _, item := range items {
		byID[acc.ID(item)] = item
	}

	var out []string
	seen := map[string]bool{itemID: true}
	current, ok := byID[itemID]
	for ok {
		parentID := acc.ParentID(current)
		if parentID == "" || seen[parentID] {
			break
		}
		out = append(out, parentID)
		seen[parentID] = true
		current, ok = byID[parentID]
	}
	return out
}

// Depth is the number of nodes on the longest root-to-leaf path.
func Depth[T any](forest []*Node[T]) int {
	deepest := 0
	for _, n := range forest {
		if d := 1 + Depth(n.Children); d > deepest {
			deepest = d
		}
	}
	return deepest
}

// Count returns the number of nodes in the forest.
func Count[T any](forest []*Node[T]) int {
	total := 0
	for _, n := range forest {
		total += 1 + Count(n.Children)
	}
	return total
}

// Filter keeps nodes that match keep or still have a surviving descendant.
// Children are filtered first, so a non-matching ancestor survives only to
// host matches. The input forest is not modified.
func Filter[T any](forest []*Node[T], keep func(T) bool) []*Node[T] {
	out := make([]*Node[T], 0)
	for _, n := range forest {
		children := Filter(n.Children, keep)
		if keep(n.Record) || len(children) > 0 {
			out = append(out, &Node[T]{Record: n.Record, Children: children, childrenKey: n.childrenKey})
		}
	}
	return out
}

// Map rebuilds the forest with every record transformed by fn, keeping shape
// and children key.
func Map[T, U any](forest []*Node[T], fn func(T) U) []*Node[U] {
	out := make([]*Node[U], len(forest))
	for i, n := range forest {
		out[i] = &Node[U]{Record: fn(n.Record), Children: Map(n.Children, fn), childrenKey: n.childrenKey}
	}
	return out
}
