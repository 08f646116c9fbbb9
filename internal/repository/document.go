package repository

import (
	"github.com/spec-kit/ticket-bot/internal/domain"
)

// document is the whole ticket database as held by the in-process backends.
// The JSON layout matches the file the bot has always written; decodeDocument
// also accepts the integer snowflakes of older files.
type document struct {
	Tickets      map[string]*domain.Ticket `json:"tickets"`
	BlockedUsers []string                  `json:"blocked_users"`
	NextTicketID int64                     `json:"next_ticket_id"`
}

func newDocument() *document {
	return &document{
		Tickets:      make(map[string]*domain.Ticket),
		BlockedUsers: []string{},
		NextTicketID: 1,
	}
}

// normalize repairs zero values left by older or hand-edited files.
func (d *document) normalize() {
	if d.Tickets == nil {
		d.Tickets = make(map[string]*domain.Ticket)
	}
	if d.BlockedUsers == nil {
		d.BlockedUsers = []string{}
	}
	var maxID int64
	for channelID, t := range d.Tickets {
		if t.ChannelID == "" {
			t.ChannelID = channelID
		}
		if t.ID > maxID {
			maxID = t.ID
		}
	}
	if d.NextTicketID <= maxID {
		d.NextTicketID = maxID + 1
	}
}

func (d *document) create(nt NewTicket) (*domain.Ticket, error) {
	if _, exists := d.Tickets[nt.ChannelID]; exists {
		return nil, ErrDuplicateChannel
	}
	if d.hasOpenTicket(nt.UserID) {
		return nil, ErrOpenTicketExists
	}
	t := &domain.Ticket{
		ID:          d.NextTicketID,
		UserID:      nt.UserID,
		ChannelID:   nt.ChannelID,
		CategoryKey: nt.CategoryKey,
		Status:      domain.TicketStatusOpen,
		CreatedAt:   nt.CreatedAt,
	}
	d.Tickets[nt.ChannelID] = t
	d.NextTicketID++
	return t.Clone(), nil
}

func (d *document) get(channelID string) (*domain.Ticket, error) {
	t, ok := d.Tickets[channelID]
	if !ok {
		return nil, ErrTicketNotFound
	}
	return t.Clone(), nil
}

func (d *document) getByID(id int64) (*domain.Ticket, error) {
	for _, t := range d.Tickets {
		if t.ID == id {
			return t.Clone(), nil
		}
	}
	return nil, ErrTicketNotFound
}

func (d *document) list(filter TicketFilter) []domain.Ticket {
	out := make([]domain.Ticket, 0, len(d.Tickets))
	for _, t := range d.Tickets {
		if filter.matches(t) {
			out = append(out, *t.Clone())
		}
	}
	return paginate(out, filter)
}

// update runs mutate on a copy and writes back the mutable fields.
// changed is false when the mutator failed and nothing was touched.
func (d *document) update(channelID string, mutate Mutator) (*domain.Ticket, bool, error) {
	current, ok := d.Tickets[channelID]
	if !ok {
		return nil, false, ErrTicketNotFound
	}
	working := current.Clone()
	if err := mutate(working); err != nil {
		return nil, false, err
	}
	applyMutable(current, working)
	return current.Clone(), true, nil
}

func (d *document) hasOpenTicket(userID string) bool {
	for _, t := range d.Tickets {
		if t.UserID == userID && t.IsOpen() {
			return true
		}
	}
	return false
}

func (d *document) isBlocked(userID string) bool {
	for _, id := range d.BlockedUsers {
		if id == userID {
			return true
		}
	}
	return false
}

// block returns false when the user was already blocked.
func (d *document) block(userID string) bool {
	if d.isBlocked(userID) {
		return false
	}
	d.BlockedUsers = append(d.BlockedUsers, userID)
	return true
}

// unblock returns false when the user was not blocked.
func (d *document) unblock(userID string) bool {
	for i, id := range d.BlockedUsers {
		if id == userID {
			d.BlockedUsers = append(d.BlockedUsers[:i], d.BlockedUsers[i+1:]...)
			return true
		}
	}
	return false
}

func (d *document) listBlocked() []string {
	return append([]string{}, d.BlockedUsers...)
}
