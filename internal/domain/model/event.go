package model

import "time"

// EventKind identifies one of the notifications emitted to subscribers.
type EventKind string

// Event kinds.
const (
	KindPlayerJoinedQueue EventKind = "player_joined_queue"
	KindPlayerLeftQueue   EventKind = "player_left_queue"
	KindMatchFound        EventKind = "match_found"
	KindStatusChanged     EventKind = "status_changed"
)

// Event is a single notification. Seq and At are stamped by the sink on publish;
// Seq is strictly increasing per sink.
type Event struct {
	Seq         uint64       `json:"seq"`
	Kind        EventKind    `json:"kind"`
	At          time.Time    `json:"at"`
	Participant *Participant `json:"participant,omitempty"`
	Reason      LeaveReason  `json:"reason,omitempty"`
	Match       *Match       `json:"match,omitempty"`
	Message     string       `json:"message,omitempty"`
}

// PlayerJoined builds a PlayerJoinedQueue event.
func PlayerJoined(p Participant) Event {
	return Event{Kind: KindPlayerJoinedQueue, Participant: &p}
}

// PlayerLeft builds a PlayerLeftQueue event.
func PlayerLeft(p Participant, reason LeaveReason) Event {
	return Event{Kind: KindPlayerLeftQueue, Participant: &p, Reason: reason}
}

// MatchFound builds a MatchFound event.
func MatchFound(m Match) Event {
	return Event{Kind: KindMatchFound, Match: &m}
}

// StatusChanged builds a StatusChanged event.
func StatusChanged(msg string) Event {
	return Event{Kind: KindStatusChanged, Message: msg}
}
