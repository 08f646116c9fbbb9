package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-bot/internal/domain"
	"github.com/spec-kit/ticket-bot/internal/platform"
	"github.com/spec-kit/ticket-bot/internal/repository"
	"github.com/spec-kit/ticket-bot/internal/transcript"
)

// ArchiveRequest is the state captured when a close is accepted.
type ArchiveRequest struct {
	Ticket   domain.Ticket
	Channel  domain.ChannelRef
	Closer   domain.Actor
	ClosedAt time.Time
}

// ArchiveService snapshots a ticket channel before it is destroyed and asks the opener for a rating.
type ArchiveService struct {
	platform     platform.Platform
	exporter     transcript.Exporter
	prompts      repository.PromptRepository
	logger       *zap.Logger
	logChannelID string
	categories   map[string]domain.Category
	promptTTL    time.Duration
	now          func() time.Time
	newID        func() string
}

// ArchiveDependencies bundles collaborators for the archive service.
type ArchiveDependencies struct {
	Platform     platform.Platform
	Exporter     transcript.Exporter
	Prompts      repository.PromptRepository
	Logger       *zap.Logger
	LogChannelID string
	Categories   []domain.Category
	PromptTTL    time.Duration
	Now          func() time.Time
	NewID        func() string
}

// NewArchiveService constructs the service.
func NewArchiveService(deps ArchiveDependencies) *ArchiveService {
	categories := make(map[string]domain.Category, len(deps.Categories))
	for _, c := range deps.Categories {
		categories[c.Key] = c
	}
	return &ArchiveService{
		platform:     deps.Platform,
		exporter:     deps.Exporter,
		prompts:      deps.Prompts,
		logger:       orNop(deps.Logger),
		logChannelID: deps.LogChannelID,
		categories:   categories,
		promptTTL:    deps.PromptTTL,
		now:          orNow(deps.Now),
		newID:        orUUID(deps.NewID),
	}
}

// Archive exports the transcript and posts it with a summary to the log channel.
// Any failure is returned; the caller must not destroy the channel afterwards.
func (a *ArchiveService) Archive(ctx context.Context, req ArchiveRequest) error {
	history, err := a.platform.History(ctx, req.Channel.ID, 0)
	if err != nil {
		return fmt.Errorf("read history of %s: %w", req.Channel.ID, err)
	}

	file, err := a.exporter.Export(ctx, transcript.Document{
		Ticket:      req.Ticket,
		ChannelName: req.Channel.Name,
		Category:    a.categories[req.Ticket.CategoryKey].Label,
		Messages:    history,
		GeneratedAt: req.ClosedAt,
	})
	if err != nil {
		return fmt.Errorf("export transcript of %s: %w", req.Channel.ID, err)
	}

	if _, err := a.platform.SendMessage(ctx, a.logChannelID, platform.Message{
		Embed: closedEmbed(req),
		File:  file,
	}); err != nil {
		return fmt.Errorf("post transcript to log channel: %w", err)
	}

	a.logger.Info("ticket archived",
		zap.Int64("ticket_id", req.Ticket.ID),
		zap.String("channel_id", req.Channel.ID),
		zap.Int("messages", len(history)))
	return nil
}

// PromptRating sends the opener a time boxed rating prompt. Failures are logged and dropped.
func (a *ArchiveService) PromptRating(ctx context.Context, ticket domain.Ticket) {
	prompt := domain.RatingPrompt{
		ID:        a.newID(),
		TicketID:  ticket.ID,
		ChannelID: ticket.ChannelID,
		UserID:    ticket.UserID,
		ExpiresAt: a.now().Add(a.promptTTL),
	}
	log := a.logger.With(zap.Int64("ticket_id", ticket.ID), zap.String("prompt_id", prompt.ID))

	if err := a.prompts.Issue(ctx, prompt); err != nil {
		log.Debug("rating prompt not issued", zap.Error(err))
		return
	}

	err := a.platform.SendDirect(ctx, ticket.UserID, platform.Message{
		Content:    msgRatingPrompt,
		Components: []platform.ActionRow{ratingRow(prompt.ID)},
	})
	if err == nil {
		return
	}
	if errors.Is(err, platform.ErrDirectMessagesClosed) {
		log.Debug("opener does not accept direct messages")
	} else {
		log.Debug("rating prompt not delivered", zap.Error(err))
	}
	if err := a.prompts.Consume(ctx, prompt.ID); err != nil {
		log.Debug("drop undelivered rating prompt", zap.Error(err))
	}
}

func closedEmbed(req ArchiveRequest) *platform.Embed {
	return &platform.Embed{
		Title: "Ticket Closed",
		Color: colorRed,
		Fields: []platform.EmbedField{
			{Name: "Ticket ID", Value: strconv.FormatInt(req.Ticket.ID, 10), Inline: true},
			{Name: "Opened By", Value: userMention(req.Ticket.UserID), Inline: true},
			{Name: "Closed By", Value: userMention(req.Closer.ID), Inline: true},
			{Name: "Created At", Value: discordTime(req.Ticket.CreatedAt), Inline: false},
			{Name: "Closed At", Value: discordTime(req.ClosedAt), Inline: false},
		},
	}
}

func ratingRow(promptID string) platform.ActionRow {
	row := platform.ActionRow{Buttons: make([]platform.Button, 0, domain.MaxRating)}
	for n := domain.MinRating; n <= domain.MaxRating; n++ {
		row.Buttons = append(row.Buttons, platform.Button{
			CustomID: domain.RatingControlID(promptID, n),
			Label:    strings.Repeat("⭐", n),
			Style:    platform.ButtonPrimary,
		})
	}
	return row
}

// discordTime renders t as a client side absolute and relative timestamp.
func discordTime(t time.Time) string {
	unix := t.Unix()
	return fmt.Sprintf("<t:%d:f> (<t:%d:R>)", unix, unix)
}

func userMention(id string) string {
	return "<@" + id + ">"
}

func roleMention(id string) string {
	return "<@&" + id + ">"
}
