package logger

import (
	"github.com/nainya/catalogtree/pkg/hierarchy"
	"github.com/nainya/catalogtree/pkg/tree"
)

// TreeObserver reports dropped records and traversal rounds through zerolog.
// It satisfies tree.Observer and hierarchy.RoundObserver.
type TreeObserver struct {
	log *Logger
}

// NewTreeObserver creates an observer writing under the tree component.
func NewTreeObserver(l *Logger) *TreeObserver {
	return &TreeObserver{log: l.TreeLogger("assemble")}
}

// Observe logs a record dropped during assembly. Orphans are expected while
// partial fetches are being expanded, so they log at debug. Blank ids and
// parent cycles point at bad data and log at warn.
func (o *TreeObserver) Observe(e tree.Event) {
	event := o.log.zlog.Debug()
	switch e.Kind {
	case tree.EventInvalidDropped, tree.EventCycleDropped:
		event = o.log.zlog.Warn()
	}
	event.Str("event", e.Kind.String()).
		Str("id", e.ID).
		Str("parent_id", e.ParentID).
		Msg("record dropped from forest")
}

// RoundCompleted logs one traversal round.
func (o *TreeObserver) RoundCompleted(r hierarchy.Round) {
	o.log.zlog.Debug().
		Str("direction", string(r.Direction)).
		Int("round", r.Number).
		Int("frontier", r.Frontier).
		Int("found", r.Found).
		Msg("traversal round completed")
}
