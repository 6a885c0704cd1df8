// ABOUTME: Ancestor and descendant walks against a live row source
// ABOUTME: One batched IN-list fetch per round, so round-trips track depth, not node count

package hierarchy

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/nainya/catalogtree/pkg/normalize"
	"github.com/nainya/catalogtree/pkg/query"
	"github.com/nainya/catalogtree/pkg/record"
	"github.com/nainya/catalogtree/pkg/tree"
)

// ErrDepthLimit is returned, together with the records gathered so far,
// when a walk needs more rounds than MaxDepth allows.
var ErrDepthLimit = errors.New("hierarchy: traversal depth limit reached")

// Defaults for batching IN-lists.
const (
	DefaultBatchSize   = 500
	DefaultConcurrency = 4
)

// Direction of a walk.
type Direction string

const (
	Up   Direction = "ancestors"
	Down Direction = "descendants"
)

// Round describes one completed traversal round.
type Round struct {
	Direction Direction
	Number    int
	Frontier  int
	Found     int
}

// RoundObserver is told about every completed round.
type RoundObserver interface {
	RoundCompleted(Round)
}

// RoundObservers fans one round out to several observers.
type RoundObservers []RoundObserver

func (obs RoundObservers) RoundCompleted(r Round) {
	for _, o := range obs {
		if o != nil {
			o.RoundCompleted(r)
		}
	}
}

// Walker discovers ancestors and descendants of seed ids.
type Walker[T any] struct {
	Source   Source[T]
	Accessor tree.Accessor[T]
	Fields   tree.FieldConfig

	// BaseWhere is AND-ed into every fetch after the first ancestor round.
	BaseWhere map[string]any
	CountJoin *query.CountJoin

	// MaxDepth caps the number of rounds per walk; 0 means unlimited.
	MaxDepth int
	// BatchSize splits large IN-lists; chunks of one round may run concurrently.
	BatchSize   int
	Concurrency int

	Observer RoundObserver
	Logger   zerolog.Logger
}

// NewWalker creates a walker with default batching and a no-op logger.
func NewWalker[T any](src Source[T], acc tree.Accessor[T], fields tree.FieldConfig) *Walker[T] {
	return &Walker[T]{
		Source:      src,
		Accessor:    acc,
		Fields:      fields.WithDefaults(),
		BatchSize:   DefaultBatchSize,
		Concurrency: DefaultConcurrency,
		Logger:      zerolog.Nop(),
	}
}

// Ancestors returns every record above the seeds, nearest rounds first. The
// seeds themselves are not included.
func (w *Walker[T]) Ancestors(ctx context.Context, seedIDs []string) ([]T, error) {
	_, ancestors, err := w.ancestors(ctx, uniqueIDs(seedIDs))
	return ancestors, err
}

// ancestors also returns the seed records fetched by the first round.
func (w *Walker[T]) ancestors(ctx context.Context, seeds []string) ([]T, []T, error) {
	if len(seeds) == 0 {
		return []T{}, []T{}, nil
	}
	fields := w.Fields.WithDefaults()

	// Round 1 reads the seeds unfiltered to learn their parent ids.
	seedRows, err := w.fetch(ctx, fields.IDField, seeds, false)
	if err != nil {
		return nil, nil, err
	}

	visited := make(map[string]bool, len(seeds))
	for _, id := range seeds {
		visited[id] = true
	}
	ancestors := make([]T, 0)
	frontier := w.unvisitedParents(seedRows, visited)

	for round := 1; len(frontier) > 0; round++ {
		if w.MaxDepth > 0 && round > w.MaxDepth {
			return seedRows, ancestors, ErrDepthLimit
		}
		parents, err := w.fetch(ctx, fields.IDField, frontier, true)
		if err != nil {
			return nil, nil, err
		}
		collected := normalize.FilterValid(parents, w.Accessor.ID)
		ancestors = append(ancestors, collected...)
		w.roundDone(Up, round, len(frontier), len(collected))
		frontier = w.unvisitedParents(collected, visited)
	}
	return seedRows, ancestors, nil
}

// unvisitedParents collects distinct, non-blank parent ids not yet visited
// and marks them visited.
func (w *Walker[T]) unvisitedParents(items []T, visited map[string]bool) []string {
	var out []string
	for _, item := range items {
		pid := w.Accessor.ParentID(item)
		if record.IsBlank(pid) || visited[pid] {
			continue
		}
		visited[pid] = true
		out = append(out, pid)
	}
	return out
}

// Descendants returns every record below the seeds, one level per round.
// The seeds themselves are not included.
func (w *Walker[T]) Descendants(ctx context.Context, seedIDs []string) ([]T, error) {
	seeds := uniqueIDs(seedIDs)
	if len(seeds) == 0 {
		return []T{}, nil
	}
	fields := w.Fields.WithDefaults()

	visited := make(map[string]bool, len(seeds))
	for _, id := range seeds {
		visited[id] = true
	}
	descendants := make([]T, 0)
	frontier := seeds

	for round := 1; len(frontier) > 0; round++ {
		if w.MaxDepth > 0 && round > w.MaxDepth {
			return descendants, ErrDepthLimit
		}
		children, err := w.fetch(ctx, fields.ParentIDField, frontier, true)
		if err != nil {
			return nil, err
		}
		next := make([]string, 0, len(children))
		for _, child := range children {
			id := w.Accessor.ID(child)
			if record.IsBlank(id) || visited[id] {
				continue
			}
			visited[id] = true
			descendants = append(descendants, child)
			next = append(next, id)
		}
		w.roundDone(Down, round, len(frontier), len(next))
		frontier = next
	}
	return descendants, nil
}

// AllRelated returns the matching records together with all their ancestors
// and every descendant of the matches and of those ancestors, deduplicated by
// id. The result is closed: running AllRelated on its own ids adds nothing.
func (w *Walker[T]) AllRelated(ctx context.Context, matchingIDs []string) ([]T, error) {
	seeds := uniqueIDs(matchingIDs)
	if len(seeds) == 0 {
		return []T{}, nil
	}

	seedRows, ancestors, err := w.ancestors(ctx, seeds)
	if err != nil && !errors.Is(err, ErrDepthLimit) {
		return nil, err
	}
	depthErr := err

	structural := normalize.RemoveDuplicates(normalize.Merge(seedRows, ancestors), w.Accessor.ID)
	ids := uniqueIDs(append(append([]string{}, seeds...), normalize.ExtractIDs(ancestors, w.Accessor.ID)...))

	descendants, err := w.Descendants(ctx, ids)
	if err != nil && !errors.Is(err, ErrDepthLimit) {
		return nil, err
	}
	if depthErr == nil {
		depthErr = err
	}

	related := normalize.RemoveDuplicates(normalize.Merge(structural, descendants), w.Accessor.ID)
	return related, depthErr
}

// fetch reads every record whose field is in ids, splitting the IN-list into
// batches. Batches of one round are independent and run concurrently; results
// keep batch order.
func (w *Walker[T]) fetch(ctx context.Context, field string, ids []string, filtered bool) ([]T, error) {
	size := w.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}
	batches := chunk(ids, size)

	build := func(batch []string) query.Query {
		qb := query.NewBuilder().IDField(w.Fields.WithDefaults().IDField).WhereIn(field, batch)
		if filtered {
			qb = qb.Filters(w.BaseWhere).WithCount(w.CountJoin)
		}
		return qb.Build()
	}

	if len(batches) == 1 {
		return w.Source.FetchMany(ctx, build(batches[0]))
	}

	results := make([][]T, len(batches))
	g, gctx := errgroup.WithContext(ctx)
	limit := w.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	g.SetLimit(limit)
	for i, batch := range batches {
		g.Go(func() error {
			rows, err := w.Source.FetchMany(gctx, build(batch))
			if err != nil {
				return err
			}
			results[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return normalize.Merge(results...), nil
}

func (w *Walker[T]) roundDone(dir Direction, number, frontier, found int) {
	w.Logger.Debug().
		Str("direction", string(dir)).
		Int("round", number).
		Int("frontier", frontier).
		Int("found", found).
		Msg("traversal round completed")
	if w.Observer != nil {
		w.Observer.RoundCompleted(Round{Direction: dir, Number: number, Frontier: frontier, Found: found})
	}
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if record.IsBlank(id) || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func chunk(ids []string, size int) [][]string {
	if len(ids) <= size {
		return [][]string{ids}
	}
	out := make([][]string, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		out = append(out, ids[start:end])
	}
	return out
}
