package core

import "time"

// EventKind identifies an entry of the session chain log.
type EventKind string

const (
	EventThought     EventKind = "thought"
	EventThinking    EventKind = "thinking"
	EventExecute     EventKind = "execute"
	EventObservation EventKind = "observation"
	EventFinish      EventKind = "finish"
	EventFail        EventKind = "fail"
	EventConclusion  EventKind = "conclusion"
	EventRanking     EventKind = "ranking"
	EventAnswer      EventKind = "answer"
	EventChainEnd    EventKind = "chain_end"
)

// Event is one chain log entry.
type Event struct {
	Kind      EventKind `json:"type"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"-"`
}

// NewEvent builds an event stamped with the current time.
func NewEvent(kind EventKind, content string) Event {
	return Event{
		Kind:      kind,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
}
