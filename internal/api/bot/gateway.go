package bot

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-bot/internal/domain"
)

// Gateway feeds discordgo interaction events into a Router.
type Gateway struct {
	session *discordgo.Session
	router  *Router
	guildID string
	logger  *zap.Logger
	remove  []func()
}

// NewGateway binds router to session for guildID.
func NewGateway(session *discordgo.Session, router *Router, guildID string, logger *zap.Logger) *Gateway {
	return &Gateway{session: session, router: router, guildID: guildID, logger: logger}
}

// Start installs the event handlers and opens the websocket connection.
func (g *Gateway) Start() error {
	g.session.Identify.Intents = discordgo.IntentsGuilds
	g.remove = append(g.remove,
		g.session.AddHandler(g.onReady),
		g.session.AddHandler(g.onInteraction),
	)
	if err := g.session.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}
	return nil
}

// Stop removes the handlers and closes the connection.
func (g *Gateway) Stop() error {
	for _, remove := range g.remove {
		remove()
	}
	g.remove = nil
	return g.session.Close()
}

func (g *Gateway) onReady(s *discordgo.Session, r *discordgo.Ready) {
	g.logger.Info("discord gateway ready",
		zap.String("bot_id", r.User.ID),
		zap.String("guild_id", g.guildID),
		zap.Strings("routes", g.router.Describe()))

	registered, err := s.ApplicationCommandBulkOverwrite(r.User.ID, g.guildID, Commands())
	if err != nil {
		g.logger.Error("register slash commands", zap.Error(err))
		return
	}
	g.logger.Info("slash commands registered", zap.Int("count", len(registered)))
}

func (g *Gateway) onInteraction(s *discordgo.Session, ev *discordgo.InteractionCreate) {
	in, ok := interactionFrom(ev, g.channelName(s, ev.ChannelID))
	if !ok {
		return
	}

	ctx := context.Background()
	err := s.InteractionRespond(ev.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	}, discordgo.WithContext(ctx))
	if err != nil {
		g.logger.Warn("defer interaction response",
			zap.String("interaction", in.Name),
			zap.Error(err))
		return
	}

	reply := g.router.Dispatch(ctx, in)

	_, err = s.FollowupMessageCreate(ev.Interaction, true, &discordgo.WebhookParams{
		Content:         reply.Content,
		Flags:           discordgo.MessageFlagsEphemeral,
		AllowedMentions: &discordgo.MessageAllowedMentions{},
	}, discordgo.WithContext(ctx))
	if err != nil {
		// the channel is gone after a successful close
		g.logger.Debug("interaction followup not delivered",
			zap.String("interaction", in.Name),
			zap.Error(err))
	}
}

func (g *Gateway) channelName(s *discordgo.Session, channelID string) string {
	if channelID == "" {
		return ""
	}
	if ch, err := s.State.Channel(channelID); err == nil {
		return ch.Name
	}
	ch, err := s.Channel(channelID)
	if err != nil {
		g.logger.Debug("channel lookup failed", zap.String("channel_id", channelID), zap.Error(err))
		return ""
	}
	return ch.Name
}

// interactionFrom converts a gateway event. Unsupported interaction types report false.
func interactionFrom(ev *discordgo.InteractionCreate, channelName string) (Interaction, bool) {
	in := Interaction{
		Actor:   actorFrom(ev.Interaction),
		Channel: domain.ChannelRef{ID: ev.ChannelID, Name: channelName},
	}

	switch ev.Type {
	case discordgo.InteractionApplicationCommand:
		data := ev.ApplicationCommandData()
		in.Kind = KindCommand
		in.Name = data.Name
		in.Options = make(map[string]string, len(data.Options))
		for _, opt := range data.Options {
			switch opt.Type {
			case discordgo.ApplicationCommandOptionUser:
				in.Options[opt.Name] = opt.UserValue(nil).ID
			case discordgo.ApplicationCommandOptionString:
				in.Options[opt.Name] = opt.StringValue()
			}
		}
	case discordgo.InteractionMessageComponent:
		data := ev.MessageComponentData()
		in.Kind = KindComponent
		in.Name = data.CustomID
		in.Values = data.Values
	default:
		return Interaction{}, false
	}
	return in, true
}

// actorFrom names the actor by account username, which ticket channel names derive from.
func actorFrom(i *discordgo.Interaction) domain.Actor {
	if i.Member != nil && i.Member.User != nil {
		return domain.Actor{
			ID:      i.Member.User.ID,
			Name:    i.Member.User.Username,
			RoleIDs: i.Member.Roles,
			IsAdmin: i.Member.Permissions&discordgo.PermissionAdministrator != 0,
		}
	}
	if i.User != nil {
		return domain.Actor{ID: i.User.ID, Name: i.User.Username}
	}
	return domain.Actor{}
}
