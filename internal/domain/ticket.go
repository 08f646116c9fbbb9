package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen   TicketStatus = "open"
	TicketStatusClosed TicketStatus = "closed"
)

// Rating bounds accepted from the opener.
const (
	MinRating = 1
	MaxRating = 5
)

// Ticket is one support request and the chat channel that hosts it.
type Ticket struct {
	ID          int64        `json:"id"`
	UserID      string       `json:"user_id"`
	ChannelID   string       `json:"channel_id"`
	CategoryKey string       `json:"category"`
	Status      TicketStatus `json:"status"`
	CreatedAt   time.Time    `json:"created_at"`
	ClosedAt    *time.Time   `json:"closed_at"`
	ClaimedBy   *string      `json:"claimed_by"`
	Rating      *int         `json:"rating"`
}

// IsOpen reports whether the ticket still accepts claim and close.
func (t *Ticket) IsOpen() bool {
	return t.Status == TicketStatusOpen
}

// IsClaimed reports whether a staff member already took the ticket.
func (t *Ticket) IsClaimed() bool {
	return t.ClaimedBy != nil && *t.ClaimedBy != ""
}

// IsRated reports whether the opener already submitted a rating.
func (t *Ticket) IsRated() bool {
	return t.Rating != nil
}

// Clone returns a deep copy so callers can mutate without aliasing store state.
func (t *Ticket) Clone() *Ticket {
	c := *t
	if t.ClosedAt != nil {
		closedAt := *t.ClosedAt
		c.ClosedAt = &closedAt
	}
	if t.ClaimedBy != nil {
		claimedBy := *t.ClaimedBy
		c.ClaimedBy = &claimedBy
	}
	if t.Rating != nil {
		rating := *t.Rating
		c.Rating = &rating
	}
	return &c
}

// ValidRating reports whether v is inside the accepted star range.
func ValidRating(v int) bool {
	return v >= MinRating && v <= MaxRating
}
