package events

import (
	"time"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketOpened  EventType = "ticket_opened"
	EventTicketClaimed EventType = "ticket_claimed"
	EventTicketClosed  EventType = "ticket_closed"
	EventTicketRated   EventType = "ticket_rated"
	EventUserBlocked   EventType = "user_blocked"
	EventUserUnblocked EventType = "user_unblocked"
)

// AllEventTypes lists every event the lifecycle engine publishes.
var AllEventTypes = []EventType{
	EventTicketOpened,
	EventTicketClaimed,
	EventTicketClosed,
	EventTicketRated,
	EventUserBlocked,
	EventUserUnblocked,
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  int64       `json:"ticket_id,omitempty"`
	ChannelID string      `json:"channel_id,omitempty"`
	ActorID   string      `json:"actor_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// TicketOpenedPayload payload.
type TicketOpenedPayload struct {
	UserID      string `json:"user_id"`
	CategoryKey string `json:"category"`
}

// TicketClaimedPayload payload.
type TicketClaimedPayload struct {
	StaffID string `json:"staff_id"`
}

// TicketClosedPayload payload.
type TicketClosedPayload struct {
	OpenedBy       string    `json:"opened_by"`
	ClosedAt       time.Time `json:"closed_at"`
	ChannelDeleted bool      `json:"channel_deleted"`
}

// TicketRatedPayload payload.
type TicketRatedPayload struct {
	Rating int `json:"rating"`
}

// UserBlockPayload is carried by user_blocked and user_unblocked.
type UserBlockPayload struct {
	UserID string `json:"user_id"`
}
