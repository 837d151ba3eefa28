package domain

import "time"

type EventKind string

const (
	EventSessionRotated    EventKind = "session.rotated"
	EventSessionDead       EventKind = "session.dead"
	EventDocumentPersisted EventKind = "document.persisted"
	EventDocumentLoaded    EventKind = "document.loaded"
)

// Event is published for operator awareness. It never carries cookie values.
type Event struct {
	Kind         EventKind `json:"kind"`
	AccountIndex int       `json:"account_index"`
	Email        string    `json:"email,omitempty"`
	Detail       string    `json:"detail,omitempty"`
	CycleID      string    `json:"cycle_id,omitempty"`
	At           time.Time `json:"at"`
}
