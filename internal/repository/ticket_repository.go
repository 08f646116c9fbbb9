package repository

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/spec-kit/ticket-bot/internal/domain"
)

var (
	// ErrTicketNotFound is returned when no ticket references the channel or id.
	ErrTicketNotFound = errors.New("ticket not found")
	// ErrDuplicateChannel is returned when a ticket already references the channel.
	ErrDuplicateChannel = errors.New("channel already belongs to a ticket")
	// ErrOpenTicketExists is returned when the user already has an open ticket.
	ErrOpenTicketExists = errors.New("user already has an open ticket")
)

// NewTicket carries the immutable fields of a ticket being created.
type NewTicket struct {
	UserID      string
	ChannelID   string
	CategoryKey string
	CreatedAt   time.Time
}

// TicketFilter captures ops search parameters.
type TicketFilter struct {
	UserID      *string
	CategoryKey *string
	ClaimedBy   *string
	Statuses    []domain.TicketStatus
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// Mutator changes a ticket inside Update. Returning an error aborts the update.
type Mutator func(t *domain.Ticket) error

// TicketStore is the durable record of tickets and blocked users.
//
// Update is the only way to change an existing ticket and is atomic with
// respect to concurrent callers on the same ticket. Only Status, ClosedAt,
// ClaimedBy and Rating are persisted from the mutated copy.
type TicketStore interface {
	Create(ctx context.Context, t NewTicket) (*domain.Ticket, error)
	Get(ctx context.Context, channelID string) (*domain.Ticket, error)
	GetByID(ctx context.Context, id int64) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	Update(ctx context.Context, channelID string, mutate Mutator) (*domain.Ticket, error)
	HasOpenTicket(ctx context.Context, userID string) (bool, error)

	IsBlocked(ctx context.Context, userID string) (bool, error)
	Block(ctx context.Context, userID string) error
	Unblock(ctx context.Context, userID string) error
	ListBlocked(ctx context.Context) ([]string, error)
}

const defaultListLimit = 20

// applyMutable copies the fields a mutator is allowed to change.
func applyMutable(dst, src *domain.Ticket) {
	dst.Status = src.Status
	dst.ClosedAt = src.ClosedAt
	dst.ClaimedBy = src.ClaimedBy
	dst.Rating = src.Rating
}

// matches reports whether t passes filter; used by the in-process backends.
func (f TicketFilter) matches(t *domain.Ticket) bool {
	if f.UserID != nil && t.UserID != *f.UserID {
		return false
	}
	if f.CategoryKey != nil && t.CategoryKey != *f.CategoryKey {
		return false
	}
	if f.ClaimedBy != nil && (t.ClaimedBy == nil || *t.ClaimedBy != *f.ClaimedBy) {
		return false
	}
	if len(f.Statuses) > 0 {
		found := false
		for _, s := range f.Statuses {
			if t.Status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.CreatedFrom != nil && t.CreatedAt.Before(*f.CreatedFrom) {
		return false
	}
	if f.CreatedTo != nil && t.CreatedAt.After(*f.CreatedTo) {
		return false
	}
	return true
}

func (f TicketFilter) window() (limit, offset int) {
	limit = f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	offset = f.Offset
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// paginate orders tickets newest first and applies the filter window.
func paginate(tickets []domain.Ticket, filter TicketFilter) []domain.Ticket {
	sortNewestFirst(tickets)
	limit, offset := filter.window()
	if offset >= len(tickets) {
		return []domain.Ticket{}
	}
	end := offset + limit
	if end > len(tickets) {
		end = len(tickets)
	}
	return tickets[offset:end]
}

func sortNewestFirst(tickets []domain.Ticket) {
	sort.Slice(tickets, func(i, j int) bool { return tickets[i].ID > tickets[j].ID })
}

var (
	_ TicketStore = (*MemoryStore)(nil)
	_ TicketStore = (*JSONStore)(nil)
	_ TicketStore = (*PostgresStore)(nil)
)
