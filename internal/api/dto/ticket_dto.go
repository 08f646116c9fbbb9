package dto

import (
	"time"

	"github.com/spec-kit/ticket-bot/internal/domain"
)

// TicketListQuery captures query filters for GET /tickets.
type TicketListQuery struct {
	Statuses    []domain.TicketStatus
	UserID      *string
	CategoryKey *string
	ClaimedBy   *string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Page        int
	PageSize    int
}

// TicketResponse is the ops view of one ticket.
type TicketResponse struct {
	ID          int64               `json:"id"`
	UserID      string              `json:"user_id"`
	ChannelID   string              `json:"channel_id"`
	CategoryKey string              `json:"category"`
	Status      domain.TicketStatus `json:"status"`
	ClaimedBy   *string             `json:"claimed_by"`
	Rating      *int                `json:"rating"`
	CreatedAt   time.Time           `json:"created_at"`
	ClosedAt    *time.Time          `json:"closed_at"`
}

// TicketListResponse wraps a page of tickets.
type TicketListResponse struct {
	Items    []TicketResponse `json:"items"`
	Page     int              `json:"page"`
	PageSize int              `json:"page_size"`
}

// BlockedUsersResponse lists users barred from opening tickets.
type BlockedUsersResponse struct {
	UserIDs []string `json:"user_ids"`
}
