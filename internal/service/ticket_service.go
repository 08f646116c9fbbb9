package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-bot/internal/auth"
	"github.com/spec-kit/ticket-bot/internal/config"
	"github.com/spec-kit/ticket-bot/internal/domain"
	"github.com/spec-kit/ticket-bot/internal/events"
	"github.com/spec-kit/ticket-bot/internal/platform"
	"github.com/spec-kit/ticket-bot/internal/repository"
	apperrors "github.com/spec-kit/ticket-bot/pkg/util"
)

// TicketService enforces the ticket lifecycle: open, claim, close, rate.
type TicketService struct {
	store      repository.TicketStore
	prompts    repository.PromptRepository
	platform   platform.Platform
	archive    *ArchiveService
	correlator *Correlator
	policy     *auth.StaffPolicy
	guild      config.GuildConfig
	dispatcher events.Dispatcher
	closing    *channelLocks
	logger     *zap.Logger
	now        func() time.Time
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	Store      repository.TicketStore
	Prompts    repository.PromptRepository
	Platform   platform.Platform
	Archive    *ArchiveService
	Policy     *auth.StaffPolicy
	Guild      config.GuildConfig
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Now        func() time.Time
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		store:      deps.Store,
		prompts:    deps.Prompts,
		platform:   deps.Platform,
		archive:    deps.Archive,
		correlator: NewCorrelator(deps.Store),
		policy:     deps.Policy,
		guild:      deps.Guild,
		dispatcher: deps.Dispatcher,
		closing:    newChannelLocks(),
		logger:     orNop(deps.Logger),
		now:        orNow(deps.Now),
	}
}

// CloseResult reports what happened to the channel of a closed ticket.
type CloseResult struct {
	Ticket         *domain.Ticket
	ChannelDeleted bool
}

// Open creates a private channel and the ticket record for it.
// Either both exist afterwards or neither does.
func (s *TicketService) Open(ctx context.Context, actor domain.Actor, categoryKey string) (*domain.Ticket, error) {
	category, ok := s.guild.Category(categoryKey)
	if !ok {
		return nil, apperrors.NewRejection(apperrors.CodeUnknownCategory, msgUnknownCategory)
	}

	blocked, err := s.store.IsBlocked(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("check blocked user: %w", err)
	}
	if blocked {
		return nil, apperrors.NewRejection(apperrors.CodeBlocked, msgBlocked)
	}

	open, err := s.store.HasOpenTicket(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("check open ticket: %w", err)
	}
	if open {
		return nil, apperrors.NewRejection(apperrors.CodeOpenTicketExists, msgOpenTicketExists)
	}

	channelID, err := s.platform.CreateChannel(ctx, platform.ChannelSpec{
		Name:      ChannelName(actor.Name, actor.ID),
		ParentID:  category.ParentID,
		Topic:     fmt.Sprintf("%s ticket for %s", category.Label, actor.Name),
		MemberIDs: []string{actor.ID},
		RoleIDs:   []string{category.StaffRoleID},
	})
	if err != nil {
		return nil, apperrors.NewCollaboratorFailure(apperrors.CodeChannelCreateFailed, msgChannelCreate, err)
	}

	ticket, err := s.store.Create(ctx, repository.NewTicket{
		UserID:      actor.ID,
		ChannelID:   channelID,
		CategoryKey: category.Key,
		CreatedAt:   s.now(),
	})
	if err != nil {
		s.rollbackChannel(ctx, channelID)
		switch {
		case errors.Is(err, repository.ErrOpenTicketExists):
			return nil, apperrors.NewRejection(apperrors.CodeOpenTicketExists, msgOpenTicketExists)
		case errors.Is(err, repository.ErrDuplicateChannel):
			return nil, apperrors.NewInconsistentState(err, map[string]any{"channel_id": channelID})
		default:
			return nil, fmt.Errorf("create ticket record: %w", err)
		}
	}

	if _, err := s.platform.SendMessage(ctx, channelID, welcomeMessage(ticket, category)); err != nil {
		s.logger.Warn("welcome message not posted", zap.Int64("ticket_id", ticket.ID), zap.Error(err))
	}

	s.logger.Info("ticket opened",
		zap.Int64("ticket_id", ticket.ID),
		zap.String("user_id", actor.ID),
		zap.String("channel_id", channelID),
		zap.String("category", category.Key))
	s.publishEvent(ctx, events.Event{
		Type:      events.EventTicketOpened,
		TicketID:  ticket.ID,
		ChannelID: channelID,
		ActorID:   actor.ID,
		Payload:   events.TicketOpenedPayload{UserID: actor.ID, CategoryKey: category.Key},
	})
	return ticket, nil
}

// Claim records actor as the staff member handling the ticket. First claim wins.
func (s *TicketService) Claim(ctx context.Context, actor domain.Actor, ch domain.ChannelRef) (*domain.Ticket, error) {
	if !s.policy.IsStaff(actor) {
		return nil, apperrors.NewRejection(apperrors.CodeNotStaff, msgClaimNotStaff)
	}
	if _, err := s.correlator.Resolve(ctx, ch); err != nil {
		return nil, err
	}

	ticket, err := s.update(ctx, ch, func(t *domain.Ticket) error {
		if !t.IsOpen() {
			return apperrors.NewRejection(apperrors.CodeAlreadyClosed, msgAlreadyClosed)
		}
		if t.IsClaimed() {
			return apperrors.NewRejection(apperrors.CodeAlreadyClaimed, fmt.Sprintf(msgAlreadyClaimedBy, *t.ClaimedBy))
		}
		staffID := actor.ID
		t.ClaimedBy = &staffID
		return nil
	})
	if err != nil {
		return nil, err
	}

	notice := platform.Message{Embed: &platform.Embed{
		Description: fmt.Sprintf(msgClaimNotice, actor.ID),
		Color:       colorGold,
	}}
	if _, err := s.platform.SendMessage(ctx, ch.ID, notice); err != nil {
		s.logger.Warn("claim notice not posted", zap.Int64("ticket_id", ticket.ID), zap.Error(err))
	}

	s.publishEvent(ctx, events.Event{
		Type:      events.EventTicketClaimed,
		TicketID:  ticket.ID,
		ChannelID: ch.ID,
		ActorID:   actor.ID,
		Payload:   events.TicketClaimedPayload{StaffID: actor.ID},
	})
	return ticket, nil
}

// Close archives the channel, marks the ticket closed, asks for a rating and
// deletes the channel, in that order. An archive failure leaves everything untouched.
func (s *TicketService) Close(ctx context.Context, actor domain.Actor, ch domain.ChannelRef) (*CloseResult, error) {
	// A second close of the same channel waits here and then sees the closed record.
	unlock := s.closing.lock(ch.ID)
	defer unlock()

	ticket, err := s.correlator.Resolve(ctx, ch)
	if err != nil {
		return nil, err
	}
	if actor.ID != ticket.UserID && !s.policy.IsStaff(actor) {
		return nil, apperrors.NewRejection(apperrors.CodeForbidden, msgCloseForbidden)
	}
	if !ticket.IsOpen() {
		return nil, s.retryChannelDelete(ctx, ticket, ch)
	}

	closedAt := s.now()
	if err := s.archive.Archive(ctx, ArchiveRequest{
		Ticket:   *ticket,
		Channel:  ch,
		Closer:   actor,
		ClosedAt: closedAt,
	}); err != nil {
		return nil, apperrors.NewCollaboratorFailure(apperrors.CodeArchiveFailed, msgArchiveFailed, err)
	}

	closed, err := s.update(ctx, ch, func(t *domain.Ticket) error {
		if !t.IsOpen() {
			return apperrors.NewRejection(apperrors.CodeAlreadyClosed, msgAlreadyClosed)
		}
		t.Status = domain.TicketStatusClosed
		t.ClosedAt = &closedAt
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.archive.PromptRating(ctx, *closed)

	result := &CloseResult{Ticket: closed, ChannelDeleted: true}
	if err := s.platform.DeleteChannel(ctx, ch.ID); err != nil {
		result.ChannelDeleted = false
		s.logger.Error("ticket closed but channel not deleted",
			zap.Int64("ticket_id", closed.ID),
			zap.String("channel_id", ch.ID),
			zap.Error(err))
	}

	s.logger.Info("ticket closed",
		zap.Int64("ticket_id", closed.ID),
		zap.String("closed_by", actor.ID),
		zap.Bool("channel_deleted", result.ChannelDeleted))
	s.publishEvent(ctx, events.Event{
		Type:      events.EventTicketClosed,
		TicketID:  closed.ID,
		ChannelID: ch.ID,
		ActorID:   actor.ID,
		Payload: events.TicketClosedPayload{
			OpenedBy:       closed.UserID,
			ClosedAt:       closedAt,
			ChannelDeleted: result.ChannelDeleted,
		},
	})
	return result, nil
}

// retryChannelDelete handles close on an already closed ticket. The channel
// outlived its ticket only if the delete after the first close failed, so the
// delete is attempted again. The ticket itself is never touched.
func (s *TicketService) retryChannelDelete(ctx context.Context, ticket *domain.Ticket, ch domain.ChannelRef) error {
	err := s.platform.DeleteChannel(ctx, ch.ID)
	if err == nil || errors.Is(err, platform.ErrNotFound) {
		s.logger.Info("channel of closed ticket deleted on retry",
			zap.Int64("ticket_id", ticket.ID),
			zap.String("channel_id", ch.ID))
		return apperrors.NewRejection(apperrors.CodeAlreadyClosed, msgAlreadyClosed)
	}
	s.logger.Warn("channel of closed ticket still not deleted",
		zap.Int64("ticket_id", ticket.ID),
		zap.String("channel_id", ch.ID),
		zap.Error(err))
	return apperrors.NewRejection(apperrors.CodeAlreadyClosed, msgChannelStranded)
}

// Rate stores the opener's answer to a rating prompt.
func (s *TicketService) Rate(ctx context.Context, actor domain.Actor, promptID string, rating int) (*domain.Ticket, error) {
	prompt, err := s.prompts.Resolve(ctx, promptID)
	if errors.Is(err, repository.ErrPromptExpired) {
		return nil, apperrors.NewRejection(apperrors.CodeRatingExpired, msgRatingExpired)
	}
	if err != nil {
		return nil, fmt.Errorf("resolve rating prompt: %w", err)
	}
	if actor.ID != prompt.UserID {
		return nil, apperrors.NewRejection(apperrors.CodeForbidden, msgNotOpener)
	}
	if !domain.ValidRating(rating) {
		return nil, apperrors.NewRejection(apperrors.CodeInvalidRating, msgInvalidRating)
	}

	ch := domain.ChannelRef{ID: prompt.ChannelID}
	ticket, err := s.update(ctx, ch, func(t *domain.Ticket) error {
		if t.ID != prompt.TicketID {
			return apperrors.NewInconsistentState(nil, map[string]any{
				"channel_id": prompt.ChannelID,
				"ticket_id":  prompt.TicketID,
			})
		}
		if t.IsOpen() {
			return apperrors.NewRejection(apperrors.CodeNotClosed, msgNotClosed)
		}
		if t.IsRated() {
			return apperrors.NewRejection(apperrors.CodeAlreadyRated, msgAlreadyRated)
		}
		value := rating
		t.Rating = &value
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.prompts.Consume(ctx, promptID); err != nil {
		s.logger.Warn("rating prompt not consumed", zap.String("prompt_id", promptID), zap.Error(err))
	}

	s.publishEvent(ctx, events.Event{
		Type:      events.EventTicketRated,
		TicketID:  ticket.ID,
		ChannelID: ticket.ChannelID,
		ActorID:   actor.ID,
		Payload:   events.TicketRatedPayload{Rating: rating},
	})
	return ticket, nil
}

// Block bars userID from opening new tickets. Existing tickets are unaffected.
func (s *TicketService) Block(ctx context.Context, actor domain.Actor, userID string) error {
	if !s.policy.IsStaff(actor) {
		return apperrors.NewRejection(apperrors.CodeNotStaff, msgNotStaff)
	}
	if err := s.store.Block(ctx, userID); err != nil {
		return fmt.Errorf("block user: %w", err)
	}
	s.publishEvent(ctx, events.Event{
		Type:    events.EventUserBlocked,
		ActorID: actor.ID,
		Payload: events.UserBlockPayload{UserID: userID},
	})
	return nil
}

// Unblock lifts a block placed with Block.
func (s *TicketService) Unblock(ctx context.Context, actor domain.Actor, userID string) error {
	if !s.policy.IsStaff(actor) {
		return apperrors.NewRejection(apperrors.CodeNotStaff, msgNotStaff)
	}
	if err := s.store.Unblock(ctx, userID); err != nil {
		return fmt.Errorf("unblock user: %w", err)
	}
	s.publishEvent(ctx, events.Event{
		Type:    events.EventUserUnblocked,
		ActorID: actor.ID,
		Payload: events.UserBlockPayload{UserID: userID},
	})
	return nil
}

// AddUser lets memberID see and write in the ticket channel.
func (s *TicketService) AddUser(ctx context.Context, actor domain.Actor, ch domain.ChannelRef, memberID string) error {
	return s.changeAccess(ctx, actor, ch, memberID, s.platform.GrantAccess)
}

// RemoveUser drops the member specific access granted by AddUser.
func (s *TicketService) RemoveUser(ctx context.Context, actor domain.Actor, ch domain.ChannelRef, memberID string) error {
	return s.changeAccess(ctx, actor, ch, memberID, s.platform.RevokeAccess)
}

func (s *TicketService) changeAccess(
	ctx context.Context,
	actor domain.Actor,
	ch domain.ChannelRef,
	memberID string,
	apply func(ctx context.Context, channelID, memberID string) error,
) error {
	if !s.policy.IsStaff(actor) {
		return apperrors.NewRejection(apperrors.CodeNotStaff, msgNotStaff)
	}
	if _, err := s.correlator.RequireTicketChannel(ctx, ch); err != nil {
		return err
	}
	if err := apply(ctx, ch.ID, memberID); err != nil {
		return apperrors.NewCollaboratorFailure(apperrors.CodePlatformFailed, msgAccessFailed, err)
	}
	return nil
}

// SetupPanel posts the ticket creation panel into channelID.
func (s *TicketService) SetupPanel(ctx context.Context, actor domain.Actor, channelID string) error {
	if !actor.IsAdmin {
		return apperrors.NewRejection(apperrors.CodeForbidden, msgNotAdmin)
	}
	if _, err := s.platform.SendMessage(ctx, channelID, panelMessage(s.guild)); err != nil {
		return fmt.Errorf("post ticket panel: %w", err)
	}
	return nil
}

// FindTicket returns a ticket by id for the ops API.
func (s *TicketService) FindTicket(ctx context.Context, id int64) (*domain.Ticket, error) {
	ticket, err := s.store.GetByID(ctx, id)
	if errors.Is(err, repository.ErrTicketNotFound) {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"id": id})
	}
	return ticket, err
}

// ListTickets returns tickets matching filter, newest first.
func (s *TicketService) ListTickets(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	return s.store.List(ctx, filter)
}

// ListBlocked returns the blocked user ids.
func (s *TicketService) ListBlocked(ctx context.Context) ([]string, error) {
	return s.store.ListBlocked(ctx)
}

// update applies mutate through the store. A record that vanished after the
// channel was resolved is an inconsistency, not a missing ticket.
func (s *TicketService) update(ctx context.Context, ch domain.ChannelRef, mutate repository.Mutator) (*domain.Ticket, error) {
	ticket, err := s.store.Update(ctx, ch.ID, mutate)
	if errors.Is(err, repository.ErrTicketNotFound) {
		return nil, apperrors.NewInconsistentState(err, map[string]any{"channel_id": ch.ID})
	}
	return ticket, err
}

func (s *TicketService) rollbackChannel(ctx context.Context, channelID string) {
	if err := s.platform.DeleteChannel(ctx, channelID); err != nil {
		s.logger.Error("orphan ticket channel left behind",
			zap.String("channel_id", channelID),
			zap.Error(err))
	}
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func welcomeMessage(ticket *domain.Ticket, category domain.Category) platform.Message {
	return platform.Message{
		Content:      userMention(ticket.UserID) + " " + roleMention(category.StaffRoleID),
		MentionUsers: []string{ticket.UserID},
		MentionRoles: []string{category.StaffRoleID},
		Embed: &platform.Embed{
			Title:       fmt.Sprintf("Ticket #%d", ticket.ID),
			Description: fmt.Sprintf(msgWelcome, category.Label),
			Color:       colorBlue,
		},
		Components: []platform.ActionRow{{Buttons: []platform.Button{
			{CustomID: domain.ControlClose, Label: "Close", Emoji: "🔒", Style: platform.ButtonDanger},
			{CustomID: domain.ControlClaim, Label: "Claim", Emoji: "🙋", Style: platform.ButtonSuccess},
		}}},
	}
}

func panelMessage(guild config.GuildConfig) platform.Message {
	options := make([]platform.SelectOption, 0, len(guild.Categories))
	for _, c := range guild.Categories {
		options = append(options, platform.SelectOption{
			Label:       c.Label,
			Value:       c.Key,
			Description: c.Description,
			Emoji:       c.Emoji,
		})
	}
	return platform.Message{
		Embed: &platform.Embed{
			Title:       guild.EmbedTitle,
			Description: guild.EmbedText,
			Color:       colorBlue,
		},
		Components: []platform.ActionRow{{Select: &platform.Select{
			CustomID:    domain.ControlCreateSelect,
			Placeholder: panelPlaceholder,
			Options:     options,
		}}},
	}
}

func orNop(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

func orNow(now func() time.Time) func() time.Time {
	if now == nil {
		return time.Now
	}
	return now
}

func orUUID(newID func() string) func() string {
	if newID == nil {
		return uuid.NewString
	}
	return newID
}
