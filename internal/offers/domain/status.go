// Package domain provides core business rules for the offers bounded context:
// the status state machine and its transition table.
package domain

// Status is the lifecycle state of an offer. The enum is closed: an offer is
// always in exactly one of these states once it has been dispatched.
type Status string

const (
	StatusPending          Status = "pending"
	StatusAwaitingResponse Status = "awaiting_response"
	StatusAccepted         Status = "accepted"
	StatusRejected         Status = "rejected"
	StatusExpired          Status = "expired"
)

// ActorSystem identifies automated transitions in status history. Manual
// transitions carry the acting user's ID instead.
const ActorSystem = "system"

// Reasons recorded on automated history entries. The evaluator and the
// notification pipeline write these; reporting queries match on them.
const (
	ReasonValidityElapsed    = "validity period elapsed"
	ReasonEscalated          = "escalated to branch admin"
	ReasonValidityExtended   = "validity extended"
	ReasonNotificationFailed = "notification failed"
	ReasonDispatched         = "offer dispatched"
)

// transitions is the full reachability table. Terminal statuses are absent
// as keys: nothing is reachable from accepted, rejected or expired.
var transitions = map[Status][]Status{
	StatusPending:          {StatusAwaitingResponse, StatusAccepted, StatusRejected, StatusExpired},
	StatusAwaitingResponse: {StatusAccepted, StatusRejected, StatusExpired},
}

// Valid reports whether s is a member of the closed status enum.
func Valid(s Status) bool {
	switch s {
	case StatusPending, StatusAwaitingResponse, StatusAccepted, StatusRejected, StatusExpired:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition, manual or automated, is
// permitted from s.
func IsTerminal(s Status) bool {
	return s == StatusAccepted || s == StatusRejected || s == StatusExpired
}

// IsOpen reports whether the temporal evaluator still governs an offer in
// this status.
func IsOpen(s Status) bool {
	return s == StatusPending || s == StatusAwaitingResponse
}

// IsResolved reports whether the customer answered the offer.
func IsResolved(s Status) bool {
	return s == StatusAccepted || s == StatusRejected
}

// CanTransition reports whether to is reachable from from in one step.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// OpenStatuses returns the statuses the sweep queries for.
func OpenStatuses() []Status {
	return []Status{StatusPending, StatusAwaitingResponse}
}
