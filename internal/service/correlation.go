package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spec-kit/ticket-bot/internal/domain"
	"github.com/spec-kit/ticket-bot/internal/repository"
	apperrors "github.com/spec-kit/ticket-bot/pkg/util"
)

// TicketChannelPrefix starts the name of every channel created for a ticket.
const TicketChannelPrefix = "ticket-"

const maxChannelNameLen = 100

// Correlator joins chat channels to ticket records.
type Correlator struct {
	store repository.TicketStore
}

// NewCorrelator builds a correlator over store.
func NewCorrelator(store repository.TicketStore) *Correlator {
	return &Correlator{store: store}
}

// Resolve returns the ticket recorded for the channel.
//
// A missing record on a channel that carries the ticket naming convention is
// an inconsistency; on any other channel it simply is not a ticket channel.
func (c *Correlator) Resolve(ctx context.Context, ch domain.ChannelRef) (*domain.Ticket, error) {
	ticket, err := c.store.Get(ctx, ch.ID)
	if err == nil {
		return ticket, nil
	}
	if !errors.Is(err, repository.ErrTicketNotFound) {
		return nil, fmt.Errorf("load ticket for channel %s: %w", ch.ID, err)
	}
	if IsTicketChannelName(ch.Name) {
		return nil, apperrors.NewInconsistentState(err, map[string]any{"channel_id": ch.ID})
	}
	return nil, apperrors.NewRejection(apperrors.CodeNotTicketChannel, msgNotTicketChannel)
}

// RequireTicketChannel resolves ch for commands that change channel access.
// The channel must carry the naming convention and host an open ticket.
func (c *Correlator) RequireTicketChannel(ctx context.Context, ch domain.ChannelRef) (*domain.Ticket, error) {
	if !IsTicketChannelName(ch.Name) {
		return nil, apperrors.NewRejection(apperrors.CodeNotTicketChannel, msgNotTicketNamed)
	}
	ticket, err := c.Resolve(ctx, ch)
	if err != nil {
		return nil, err
	}
	if !ticket.IsOpen() {
		return nil, apperrors.NewRejection(apperrors.CodeNotTicketChannel, msgNotTicketNamed)
	}
	return ticket, nil
}

// IsTicketChannelName reports whether name follows the ticket channel convention.
func IsTicketChannelName(name string) bool {
	return strings.HasPrefix(name, TicketChannelPrefix) && len(name) > len(TicketChannelPrefix)
}

// ChannelName builds the ticket channel name for a user.
// Discord text channel names are lower case without spaces; fallback is used
// when nothing of userName survives.
func ChannelName(userName, fallback string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(userName) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
			lastDash = false
		case !lastDash:
			b.WriteByte('-')
			lastDash = true
		}
	}
	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		slug = strings.ToLower(fallback)
	}
	name := TicketChannelPrefix + slug
	if len(name) > maxChannelNameLen {
		name = strings.TrimRight(name[:maxChannelNameLen], "-")
	}
	return name
}
