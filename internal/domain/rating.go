package domain

import "time"

// RatingPrompt is a time-boxed invitation for the opener to rate a closed ticket.
type RatingPrompt struct {
	ID        string    `json:"id"`
	TicketID  int64     `json:"ticket_id"`
	ChannelID string    `json:"channel_id"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}
