// Package telemetry provides population tracking, bookmarking, and snapshots.
package telemetry

// EventType identifies telemetry events.
type EventType uint8

const (
	EventReaction EventType = iota
	EventAdd
	EventRemove
	EventReset
	EventRulesLoaded
)

// String returns the event name used in logs.
func (t EventType) String() string {
	switch t {
	case EventReaction:
		return "reaction"
	case EventAdd:
		return "add"
	case EventRemove:
		return "remove"
	case EventReset:
		return "reset"
	case EventRulesLoaded:
		return "rules_loaded"
	}
	return "unknown"
}

// Event represents a batch of identical occurrences at one tick.
type Event struct {
	Type  EventType
	Tick  int32
	Count int
}

// NewReactionEvent records the reactions applied during one step.
func NewReactionEvent(tick int32, count int) Event {
	return Event{Type: EventReaction, Tick: tick, Count: count}
}

// NewAddEvent records particles added by the editor.
func NewAddEvent(tick int32, count int) Event {
	return Event{Type: EventAdd, Tick: tick, Count: count}
}

// NewRemoveEvent records particles removed by the editor.
func NewRemoveEvent(tick int32, count int) Event {
	return Event{Type: EventRemove, Tick: tick, Count: count}
}

// NewResetEvent records a reseed of n particles.
func NewResetEvent(tick int32, n int) Event {
	return Event{Type: EventReset, Tick: tick, Count: n}
}

// NewRulesLoadedEvent records an imported rules file.
func NewRulesLoadedEvent(tick int32, rules int) Event {
	return Event{Type: EventRulesLoaded, Tick: tick, Count: rules}
}
