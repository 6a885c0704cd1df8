package tree

// EventKind classifies a diagnostic emitted while assembling a forest.
type EventKind int

const (
	// EventOrphanDropped: the record references a parent missing from the input.
	EventOrphanDropped EventKind = iota
	// EventDuplicateDropped: a later record repeated an id already seen.
	EventDuplicateDropped
	// EventInvalidDropped: the record has a blank id.
	EventInvalidDropped
	// EventCycleDropped: the record is only reachable through a parent cycle.
	EventCycleDropped
)

func (k EventKind) String() string {
	switch k {
	case EventOrphanDropped:
		return "orphan_dropped"
	case EventDuplicateDropped:
		return "duplicate_dropped"
	case EventInvalidDropped:
		return "invalid_dropped"
	case EventCycleDropped:
		return "cycle_dropped"
	default:
		return "unknown"
	}
}

// Event is a structural diagnostic. Dropping a record is never an error.
type Event struct {
	Kind     EventKind
	ID       string
	ParentID string
}

// Observer receives assembly diagnostics.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) Observe(e Event) { f(e) }

// Observers fans one event out to several observers. Nil entries are skipped.
type Observers []Observer

func (obs Observers) Observe(e Event) {
	for _, o := range obs {
		if o != nil {
			o.Observe(e)
		}
	}
}

// Recorder keeps every event it sees, in order.
type Recorder struct {
	Events []Event
}

func (r *Recorder) Observe(e Event) { r.Events = append(r.Events, e) }

// Count returns how many recorded events have the given kind.
func (r *Recorder) Count(kind EventKind) int {
	n := 0
	for _, e := range r.Events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

func emit(o Observer, e Event) {
	if o != nil {
		o.Observe(e)
	}
}
