package domain

import (
	"context"
	"encoding/json"
	"time"
)

// EventType identifies the kind of event being published.
type EventType string

const (
	EventSearchStarted   EventType = "search.started"
	EventListingLoaded   EventType = "search.listing.loaded"
	EventResultExtracted EventType = "search.result.extracted"
	EventSearchCompleted EventType = "search.completed"
	EventSearchFailed    EventType = "search.failed"
)

// Event is the envelope published on the event bus.
type Event struct {
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	RunID     string          `json:"run_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// SearchProgress is the payload of every search event. Fields not relevant
// to an event type are left zero.
type SearchProgress struct {
	Query        string `json:"query,omitempty"`
	URL          string `json:"url,omitempty"`
	Index        int    `json:"index,omitempty"` // 1-based position of the result
	Total        int    `json:"total,omitempty"`
	Status       string `json:"status,omitempty"`
	Reason       string `json:"reason,omitempty"`
	ArtifactPath string `json:"artifact_path,omitempty"`
	Error        string `json:"error,omitempty"`
}

// NewSearchEvent builds an event carrying p.
func NewSearchEvent(t EventType, runID string, at time.Time, p SearchProgress) Event {
	payload, _ := json.Marshal(p)
	return Event{Type: t, Timestamp: at, RunID: runID, Payload: payload}
}

// Progress decodes the event payload.
func (e Event) Progress() (SearchProgress, error) {
	var p SearchProgress
	if len(e.Payload) == 0 {
		return p, nil
	}
	err := json.Unmarshal(e.Payload, &p)
	return p, err
}

// EventHandler is a callback invoked when an event is received.
type EventHandler func(ctx context.Context, event Event)

// EventBus provides a publish/subscribe mechanism for domain events.
type EventBus interface {
	// Publish sends an event to all matching subscribers.
	Publish(ctx context.Context, event Event)
	// Subscribe registers a handler for a specific event type.
	// Returns an unsubscribe function.
	Subscribe(eventType EventType, handler EventHandler) func()
	// SubscribeAll registers a handler that receives every event.
	// Returns an unsubscribe function.
	SubscribeAll(handler EventHandler) func()
	// Close drains in-flight handlers and prevents new publishes.
	Close()
}
