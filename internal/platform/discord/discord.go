// Package discord implements platform.Platform on top of discordgo.
package discord

import (
	"bytes"
	"context"
	"errors"
	"net/http"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-bot/internal/platform"
)

const (
	historyPageSize = 100

	ticketAllow = discordgo.PermissionViewChannel |
		discordgo.PermissionSendMessages |
		discordgo.PermissionReadMessageHistory |
		discordgo.PermissionAttachFiles |
		discordgo.PermissionEmbedLinks
	botAllow = ticketAllow | discordgo.PermissionManageChannels | discordgo.PermissionManageRoles
)

// Adapter talks to one guild through a discordgo session.
type Adapter struct {
	session *discordgo.Session
	guildID string
	logger  *zap.Logger
}

// New wraps an opened session for guildID.
func New(session *discordgo.Session, guildID string, logger *zap.Logger) *Adapter {
	return &Adapter{session: session, guildID: guildID, logger: logger}
}

func (a *Adapter) botID() string {
	if a.session.State != nil && a.session.State.User != nil {
		return a.session.State.User.ID
	}
	return ""
}

func (a *Adapter) CreateChannel(ctx context.Context, spec platform.ChannelSpec) (string, error) {
	overwrites := []*discordgo.PermissionOverwrite{
		// the @everyone role shares the guild id
		{ID: a.guildID, Type: discordgo.PermissionOverwriteTypeRole, Deny: discordgo.PermissionViewChannel},
	}
	for _, roleID := range spec.RoleIDs {
		overwrites = append(overwrites, &discordgo.PermissionOverwrite{
			ID: roleID, Type: discordgo.PermissionOverwriteTypeRole, Allow: ticketAllow,
		})
	}
	for _, memberID := range spec.MemberIDs {
		overwrites = append(overwrites, &discordgo.PermissionOverwrite{
			ID: memberID, Type: discordgo.PermissionOverwriteTypeMember, Allow: ticketAllow,
		})
	}
	if bot := a.botID(); bot != "" {
		overwrites = append(overwrites, &discordgo.PermissionOverwrite{
			ID: bot, Type: discordgo.PermissionOverwriteTypeMember, Allow: botAllow,
		})
	}

	ch, err := a.session.GuildChannelCreateComplex(a.guildID, discordgo.GuildChannelCreateData{
		Name:                 spec.Name,
		Type:                 discordgo.ChannelTypeGuildText,
		Topic:                spec.Topic,
		ParentID:             spec.ParentID,
		PermissionOverwrites: overwrites,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", mapError(err)
	}
	return ch.ID, nil
}

func (a *Adapter) DeleteChannel(ctx context.Context, channelID string) error {
	_, err := a.session.ChannelDelete(channelID, discordgo.WithContext(ctx))
	return mapError(err)
}

func (a *Adapter) SendMessage(ctx context.Context, channelID string, msg platform.Message) (string, error) {
	sent, err := a.session.ChannelMessageSendComplex(channelID, toMessageSend(msg), discordgo.WithContext(ctx))
	if err != nil {
		return "", mapError(err)
	}
	return sent.ID, nil
}

func (a *Adapter) SendDirect(ctx context.Context, userID string, msg platform.Message) error {
	dm, err := a.session.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return mapError(err)
	}
	_, err = a.session.ChannelMessageSendComplex(dm.ID, toMessageSend(msg), discordgo.WithContext(ctx))
	return mapError(err)
}

func (a *Adapter) GrantAccess(ctx context.Context, channelID, memberID string) error {
	err := a.session.ChannelPermissionSet(channelID, memberID,
		discordgo.PermissionOverwriteTypeMember, ticketAllow, 0, discordgo.WithContext(ctx))
	return mapError(err)
}

func (a *Adapter) RevokeAccess(ctx context.Context, channelID, memberID string) error {
	err := a.session.ChannelPermissionDelete(channelID, memberID, discordgo.WithContext(ctx))
	return mapError(err)
}

func (a *Adapter) Member(ctx context.Context, userID string) (*platform.Member, error) {
	m, err := a.session.GuildMember(a.guildID, userID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, mapError(err)
	}
	return toMember(m), nil
}

func (a *Adapter) History(ctx context.Context, channelID string, limit int) ([]platform.HistoryMessage, error) {
	var (
		collected []*discordgo.Message
		before    string
	)
	for {
		page := historyPageSize
		if limit > 0 && limit-len(collected) < page {
			page = limit - len(collected)
		}
		msgs, err := a.session.ChannelMessages(channelID, page, before, "", "", discordgo.WithContext(ctx))
		if err != nil {
			return nil, mapError(err)
		}
		collected = append(collected, msgs...)
		if len(msgs) < page || (limit > 0 && len(collected) >= limit) {
			break
		}
		before = msgs[len(msgs)-1].ID
	}

	// discord pages newest first
	out := make([]platform.HistoryMessage, 0, len(collected))
	for i := len(collected) - 1; i >= 0; i-- {
		out = append(out, toHistoryMessage(collected[i]))
	}
	return out, nil
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) {
		if restErr.Message != nil && restErr.Message.Code == discordgo.ErrCodeCannotSendMessagesToThisUser {
			return errors.Join(platform.ErrDirectMessagesClosed, err)
		}
		if restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound {
			return errors.Join(platform.ErrNotFound, err)
		}
	}
	return err
}

func toMessageSend(msg platform.Message) *discordgo.MessageSend {
	send := &discordgo.MessageSend{
		Content:    msg.Content,
		Components: toComponents(msg.Components),
		AllowedMentions: &discordgo.MessageAllowedMentions{
			Users: msg.MentionUsers,
			Roles: msg.MentionRoles,
		},
	}
	if msg.Embed != nil {
		send.Embeds = []*discordgo.MessageEmbed{toEmbed(msg.Embed)}
	}
	if msg.File != nil {
		send.Files = []*discordgo.File{{
			Name:        msg.File.Name,
			ContentType: msg.File.ContentType,
			Reader:      bytes.NewReader(msg.File.Data),
		}}
	}
	return send
}
