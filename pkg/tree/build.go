// ABOUTME: Forest assembly from a flat adjacency list
// ABOUTME: Arena-and-index construction: one pass to index, one pass to link

package tree

import (
	"slices"

	"github.com/nainya/catalogtree/pkg/record"
)

// Options controls forest assembly.
type Options[T any] struct {
	// Fields supplies the children key used when encoding nodes.
	Fields FieldConfig
	// IsRoot overrides the default "no parent id" root predicate.
	IsRoot func(T) bool
	// Compare, when set, orders the roots and every children list.
	Compare func(a, b T) int
	// Observer receives a diagnostic for every record that is dropped.
	Observer Observer
}

// Build assembles records into a forest.
//
// Roots keep input order, as do siblings, unless Compare is supplied. A record
// whose parent is absent from items is dropped and reported, never promoted to
// a root. Records caught in a parent cycle are unreachable and reported too. A
// repeated id keeps its first occurrence.
func Build[T any](items []T, acc Accessor[T], opts Options[T]) []*Node[T] {
	if len(items) == 0 {
		return []*Node[T]{}
	}

	isRoot := opts.IsRoot
	if isRoot == nil {
		isRoot = HasNoParent(acc)
	}
	childrenKey := opts.Fields.WithDefaults().ChildrenField

	// Arena: one node per accepted record, addressed by index.
	arena := make([]Node[T], 0, len(items))
	index := make(map[string]int, len(items))
	for _, item := range items {
		id := acc.ID(item)
		if record.IsBlank(id) {
			emit(opts.Observer, Event{Kind: EventInvalidDropped, ParentID: acc.ParentID(item)})
			continue
		}
		if _, seen := index[id]; seen {
			emit(opts.Observer, Event{Kind: EventDuplicateDropped, ID: id, ParentID: acc.ParentID(item)})
			continue
		}
		index[id] = len(arena)
		arena = append(arena, Node[T]{Record: item, childrenKey: childrenKey})
	}

	roots := make([]int, 0)
	orphans := make([]int, 0)
	kids := make([][]int, len(arena))
	for i := range arena {
		item := arena[i].Record
		if isRoot(item) {
			roots = append(roots, i)
			continue
		}
		parentID := acc.ParentID(item)
		p, ok := index[parentID]
		if !ok {
			emit(opts.Observer, Event{Kind: EventOrphanDropped, ID: acc.ID(item), ParentID: parentID})
			orphans = append(orphans, i)
			continue
		}
		kids[p] = append(kids[p], i)
	}

	if opts.Observer != nil {
		reportCycles(arena, kids, roots, orphans, acc, opts.Observer)
	}

	for i := range arena {
		arena[i].Children = make([]*Node[T], len(kids[i]))
		for j, k := range kids[i] {
			arena[i].Children[j] = &arena[k]
		}
	}

	forest := make([]*Node[T], len(roots))
	for i, r := range roots {
		forest[i] = &arena[r]
	}

	if opts.Compare != nil {
		SortRecursive(forest, opts.Compare)
	}
	return forest
}

// reportCycles emits EventCycleDropped for every linked record that no root
// and no dropped orphan leads to. Those records sit on, or hang below, a
// parent cycle.
func reportCycles[T any](arena []Node[T], kids [][]int, roots, orphans []int, acc Accessor[T], o Observer) {
	reached := make([]bool, len(arena))
	stack := append(slices.Clone(roots), orphans...)
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if reached[i] {
			continue
		}
		reached[i] = true
		stack = append(stack, kids[i]...)
	}
	for i := range arena {
		if !reached[i] {
			item := arena[i].Record
			o.Observe(Event{Kind: EventCycleDropped, ID: acc.ID(item), ParentID: acc.ParentID(item)})
		}
	}
}

// SortRecursive stably sorts nodes and every descendant children list.
func SortRecursive[T any](nodes []*Node[T], cmp func(a, b T) int) {
	slices.SortStableFunc(nodes, func(a, b *Node[T]) int {
		return cmp(a.Record, b.Record)
	})
	for _, n := range nodes {
		if len(n.Children) > 0 {
			SortRecursive(n.Children, cmp)
		}
	}
}
