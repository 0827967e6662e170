package kafka

import "time"

// ChangeEvent announces that an owner's mirrored collection changed. It
// carries no payload; receivers reload the collection from storage.
type ChangeEvent struct {
	EventID    string    `json:"event_id"`
	EventType  string    `json:"event_type"`
	OwnerID    string    `json:"owner_id"`
	Collection string    `json:"collection"`
	Timestamp  time.Time `json:"timestamp"`
}

// Event types
const (
	EventTypeDishesChanged = "dishes.changed"
	EventTypeSlotsChanged  = "slots.changed"
)

// TopicPlannerChanges carries every planner change event.
const TopicPlannerChanges = "planner-changes"

// Record headers set by the publisher besides the trace context.
const (
	headerEventType = "event_type"
	headerEventID   = "event_id"
)

// EventTypeFor maps a collection name to its event type.
func EventTypeFor(collection string) string {
	if collection == "slots" {
		return EventTypeSlotsChanged
	}
	return EventTypeDishesChanged
}
