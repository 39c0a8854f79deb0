// Package events provides the in-process activity feed for thread updates.
// Ingesting a message publishes an event; subscribers (metrics, the activity
// endpoint) consume them without coupling to the registry.
package events

import (
	"time"

	"github.com/google/uuid"
)

// Wildcard subscribes a handler to events for every thread.
const Wildcard = "*"

// Type identifies what happened to a thread.
type Type string

const (
	TypeThreadCreated   Type = "thread_created"
	TypeMessageIngested Type = "message_ingested"
)

// Event records one change to a thread.
type Event struct {
	ID        string    `json:"id"`
	Type      Type      `json:"type"`
	ThreadID  string    `json:"thread_id"`
	MessageID string    `json:"message_id,omitempty"`
	Subject   string    `json:"subject,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Handler is a function that receives published events.
type Handler func(event Event)

// Bus publishes thread activity to subscribers and keeps a replay window.
type Bus interface {
	// Publish delivers an event to subscribers of its thread and to
	// wildcard subscribers.
	Publish(event Event) error
	// Subscribe registers a handler for one thread (or Wildcard).
	// The returned function removes the subscription.
	Subscribe(threadID string, handler Handler) (unsubscribe func())
	// Recent returns stored events after lastEventID for a thread;
	// an empty lastEventID returns the most recent events.
	Recent(threadID string, lastEventID string) ([]Event, error)
}

// NewMessageIngested builds the event published for every processed message.
func NewMessageIngested(threadID, messageID, subject string) Event {
	return Event{
		ID:        uuid.New().String(),
		Type:      TypeMessageIngested,
		ThreadID:  threadID,
		MessageID: messageID,
		Subject:   subject,
		Timestamp: time.Now().UTC(),
	}
}

// NewThreadCreated builds the event published when a message starts a
// new thread.
func NewThreadCreated(threadID, messageID, subject string) Event {
	return Event{
		ID:        uuid.New().String(),
		Type:      TypeThreadCreated,
		ThreadID:  threadID,
		MessageID: messageID,
		Subject:   subject,
		Timestamp: time.Now().UTC(),
	}
}
