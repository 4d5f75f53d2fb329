package federa

import "time"

// Event represents a federation lifecycle event.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Container string    `json:"container,omitempty"`
	Scope     string    `json:"scope,omitempty"`
	Path      string    `json:"path,omitempty"`
	Dep       string    `json:"dep,omitempty"`
	Version   string    `json:"version,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// EventType identifies the kind of event.
type EventType string

const (
	EventContainerRegistered EventType = "container_registered"
	EventContainerReady      EventType = "container_ready"
	EventContainerFailed     EventType = "container_failed"
	EventPublicPathResolved  EventType = "public_path_resolved"
	EventSharedMerged        EventType = "shared_merged"
	EventSharedDiscarded     EventType = "shared_discarded"
	EventVersionConflict     EventType = "version_conflict"
)

// EventSink receives federation events, e.g. the SQLite journal.
// Sinks must not call back into the loader.
type EventSink interface {
	Append(Event) error
}

// SinkFunc adapts a function into an EventSink.
type SinkFunc func(Event) error

// Append calls f.
func (f SinkFunc) Append(e Event) error {
	return f(e)
}
