package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventTranspile EventType = "transpile"
	EventImport    EventType = "import"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time     `json:"timestamp"`
	Type      EventType     `json:"type"`
	Duration  time.Duration `json:"duration"`
	Success   bool          `json:"success"`
	Warnings  int           `json:"warnings"`
	Errors    int           `json:"errors"`
}

// TranspileEvent is emitted after a graph has been turned into a document.
type TranspileEvent struct {
	EventBase
	GraphID  string   `json:"graph_id"`
	Nodes    int      `json:"nodes"`
	Shape    string   `json:"shape"`
	Strategy Strategy `json:"strategy"`
}

// ImportEvent is emitted after a document has been read back into a graph.
type ImportEvent struct {
	EventBase
	Nodes       int  `json:"nodes"`
	HadMetadata bool `json:"had_metadata"`
}

// LifecycleHooks defines callbacks for transpiler observability.
type LifecycleHooks struct {
	OnTranspile func(context.Context, *TranspileEvent)
	OnImport    func(context.Context, *ImportEvent)
}
