package watcher

import "time"

// EventType classifies what happened to a watched file.
type EventType int

const (
	// EventChanged fires after a watched file was written or replaced and
	// its contents have settled.
	EventChanged EventType = iota
	// EventRemoved fires when a watched file disappears.
	EventRemoved
)

// String returns the string representation of the event type.
func (t EventType) String() string {
	switch t {
	case EventChanged:
		return "changed"
	case EventRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// Event is one settled change to a watched file.
type Event struct {
	Type    EventType
	Path    string
	Size    int64
	ModTime time.Time
}
