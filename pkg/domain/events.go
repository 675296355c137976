package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventSessionOpen  EventType = "session_open"
	EventSessionClose EventType = "session_close"
	EventNodeEnter    EventType = "node_enter"
	EventIntentMatch  EventType = "intent_match"
	EventFallback     EventType = "fallback"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp    time.Time `json:"timestamp"`
	Type         EventType `json:"type"`
	ConnectionID string    `json:"connection_id"`
}

// SessionEvent represents a connection opening or closing.
type SessionEvent struct {
	EventBase
	Phase Phase `json:"phase"`
}

// NodeEvent represents entry into a dialogue node.
type NodeEvent struct {
	EventBase
	NodeID   string `json:"node_id"`
	Terminal bool   `json:"terminal,omitempty"`
}

// IntentEvent represents a free-text match.
type IntentEvent struct {
	EventBase
	Label         string `json:"label"`
	Score         int    `json:"score"`
	LowConfidence bool   `json:"low_confidence,omitempty"`
}

// FallbackEvent represents a scripted turn that could not be navigated.
type FallbackEvent struct {
	EventBase
	NodeID string `json:"node_id"`
	Reason string `json:"reason"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnSessionOpen  func(context.Context, *SessionEvent)
	OnSessionClose func(context.Context, *SessionEvent)
	OnNodeEnter    func(context.Context, *NodeEvent)
	OnIntentMatch  func(context.Context, *IntentEvent)
	OnFallback     func(context.Context, *FallbackEvent)
}
