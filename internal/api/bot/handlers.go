package bot

import (
	"context"
	"fmt"

	"github.com/spec-kit/ticket-bot/internal/domain"
	"github.com/spec-kit/ticket-bot/internal/service"
	apperrors "github.com/spec-kit/ticket-bot/pkg/util"
)

// TicketOperations is the slice of the ticket service the chat surface drives.
type TicketOperations interface {
	Open(ctx context.Context, actor domain.Actor, categoryKey string) (*domain.Ticket, error)
	Claim(ctx context.Context, actor domain.Actor, ch domain.ChannelRef) (*domain.Ticket, error)
	Close(ctx context.Context, actor domain.Actor, ch domain.ChannelRef) (*service.CloseResult, error)
	Rate(ctx context.Context, actor domain.Actor, promptID string, rating int) (*domain.Ticket, error)
	Block(ctx context.Context, actor domain.Actor, userID string) error
	Unblock(ctx context.Context, actor domain.Actor, userID string) error
	AddUser(ctx context.Context, actor domain.Actor, ch domain.ChannelRef, memberID string) error
	RemoveUser(ctx context.Context, actor domain.Actor, ch domain.ChannelRef, memberID string) error
	SetupPanel(ctx context.Context, actor domain.Actor, channelID string) error
}

// Handlers turns interactions into ticket operations.
type Handlers struct {
	tickets TicketOperations
}

// NewHandlers constructs the handler set.
func NewHandlers(tickets TicketOperations) *Handlers {
	return &Handlers{tickets: tickets}
}

// Register binds every command and control to r.
func (h *Handlers) Register(r *Router) {
	r.Component(domain.ControlCreateSelect, h.selectCategory)
	r.Component(domain.ControlClaim, h.claim)
	r.Component(domain.ControlClose, h.close)
	r.ComponentPrefix(domain.ControlRatePrefix, h.rate)

	r.Command(CommandSetupTickets, h.setupTickets)
	r.Command(CommandAddUser, h.addUser)
	r.Command(CommandRemoveUser, h.removeUser)
	r.Command(CommandBlockUser, h.blockUser)
	r.Command(CommandUnblockUser, h.unblockUser)
}

func (h *Handlers) selectCategory(ctx context.Context, in Interaction) (string, error) {
	if len(in.Values) == 0 {
		return "", apperrors.NewValidationError("Please pick a ticket category.", nil)
	}
	ticket, err := h.tickets.Open(ctx, in.Actor, in.Values[0])
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Your ticket has been created: <#%s>", ticket.ChannelID), nil
}

func (h *Handlers) claim(ctx context.Context, in Interaction) (string, error) {
	if _, err := h.tickets.Claim(ctx, in.Actor, in.Channel); err != nil {
		return "", err
	}
	return "You have claimed this ticket.", nil
}

func (h *Handlers) close(ctx context.Context, in Interaction) (string, error) {
	res, err := h.tickets.Close(ctx, in.Actor, in.Channel)
	if err != nil {
		return "", err
	}
	if !res.ChannelDeleted {
		return fmt.Sprintf("Ticket #%d has been closed. The channel could not be deleted; press Close again to retry or delete it by hand.", res.Ticket.ID), nil
	}
	return fmt.Sprintf("Ticket #%d has been closed.", res.Ticket.ID), nil
}

func (h *Handlers) rate(ctx context.Context, in Interaction) (string, error) {
	promptID, rating, ok := domain.ParseRatingControlID(in.Name)
	if !ok {
		return "", apperrors.NewValidationError("This rating button is not valid.", nil)
	}
	if _, err := h.tickets.Rate(ctx, in.Actor, promptID, rating); err != nil {
		return "", err
	}
	return fmt.Sprintf("Thank you! You rated this ticket %d/%d.", rating, domain.MaxRating), nil
}

func (h *Handlers) setupTickets(ctx context.Context, in Interaction) (string, error) {
	if err := h.tickets.SetupPanel(ctx, in.Actor, in.Channel.ID); err != nil {
		return "", err
	}
	return "The ticket panel has been posted.", nil
}

func (h *Handlers) addUser(ctx context.Context, in Interaction) (string, error) {
	user, err := requireUserOption(in)
	if err != nil {
		return "", err
	}
	if err := h.tickets.AddUser(ctx, in.Actor, in.Channel, user); err != nil {
		return "", err
	}
	return fmt.Sprintf("<@%s> has been added to this ticket.", user), nil
}

func (h *Handlers) removeUser(ctx context.Context, in Interaction) (string, error) {
	user, err := requireUserOption(in)
	if err != nil {
		return "", err
	}
	if err := h.tickets.RemoveUser(ctx, in.Actor, in.Channel, user); err != nil {
		return "", err
	}
	return fmt.Sprintf("<@%s> has been removed from this ticket.", user), nil
}

func (h *Handlers) blockUser(ctx context.Context, in Interaction) (string, error) {
	user, err := requireUserOption(in)
	if err != nil {
		return "", err
	}
	if err := h.tickets.Block(ctx, in.Actor, user); err != nil {
		return "", err
	}
	return fmt.Sprintf("<@%s> can no longer open tickets.", user), nil
}

func (h *Handlers) unblockUser(ctx context.Context, in Interaction) (string, error) {
	user, err := requireUserOption(in)
	if err != nil {
		return "", err
	}
	if err := h.tickets.Unblock(ctx, in.Actor, user); err != nil {
		return "", err
	}
	return fmt.Sprintf("<@%s> can open tickets again.", user), nil
}

func requireUserOption(in Interaction) (string, error) {
	user := in.Option(optionUser)
	if user == "" {
		return "", apperrors.NewValidationError("Please pick a user.", map[string]any{"option": optionUser})
	}
	return user, nil
}
