package discord

import (
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticket-bot/internal/platform"
)

func TestToComponents(t *testing.T) {
	rows := []platform.ActionRow{
		{Buttons: []platform.Button{
			{CustomID: "ticket_close", Label: "Close", Emoji: "🔒", Style: platform.ButtonDanger},
			{CustomID: "ticket_claim", Label: "Claim", Style: platform.ButtonSuccess},
		}},
		{Select: &platform.Select{
			CustomID:    "ticket_creation_select",
			Placeholder: "Choose",
			Options:     []platform.SelectOption{{Label: "Support", Value: "support1", Emoji: "🎫"}},
		}},
	}

	out := toComponents(rows)
	require.Len(t, out, 2)

	first := out[0].(discordgo.ActionsRow)
	require.Len(t, first.Components, 2)
	closeBtn := first.Components[0].(discordgo.Button)
	require.Equal(t, "ticket_close", closeBtn.CustomID)
	require.Equal(t, discordgo.DangerButton, closeBtn.Style)
	require.Equal(t, "🔒", closeBtn.Emoji.Name)
	claimBtn := first.Components[1].(discordgo.Button)
	require.Nil(t, claimBtn.Emoji)

	second := out[1].(discordgo.ActionsRow)
	menu := second.Components[0].(discordgo.SelectMenu)
	require.Equal(t, "ticket_creation_select", menu.CustomID)
	require.Equal(t, "support1", menu.Options[0].Value)

	require.Nil(t, toComponents(nil))
}

func TestToMessageSend(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	send := toMessageSend(platform.Message{
		Content:      "<@u1> <@&r1>",
		MentionUsers: []string{"u1"},
		MentionRoles: []string{"r1"},
		Embed: &platform.Embed{
			Title:     "Ticket #1",
			Fields:    []platform.EmbedField{{Name: "Ticket ID", Value: "1", Inline: true}},
			Footer:    "footer",
			Timestamp: &ts,
		},
		File: &platform.File{Name: "transcript-c1.html", ContentType: "text/html", Data: []byte("<html>")},
	})

	require.Equal(t, []string{"u1"}, send.AllowedMentions.Users)
	require.Equal(t, []string{"r1"}, send.AllowedMentions.Roles)
	require.Len(t, send.Embeds, 1)
	require.Equal(t, "Ticket #1", send.Embeds[0].Title)
	require.Equal(t, "2024-05-01T12:00:00Z", send.Embeds[0].Timestamp)
	require.Equal(t, "footer", send.Embeds[0].Footer.Text)
	require.Len(t, send.Files, 1)
	require.Equal(t, "transcript-c1.html", send.Files[0].Name)
}

func TestToMemberPrefersNick(t *testing.T) {
	m := toMember(&discordgo.Member{
		Nick:  "Nick",
		Roles: []string{"r1"},
		User:  &discordgo.User{ID: "u1", Username: "user", GlobalName: "Global"},
	})
	require.Equal(t, "u1", m.ID)
	require.Equal(t, "Nick", m.DisplayName)
	require.Equal(t, []string{"r1"}, m.RoleIDs)

	m = toMember(&discordgo.Member{User: &discordgo.User{ID: "u2", Username: "plain"}})
	require.Equal(t, "plain", m.DisplayName)
}

func TestToHistoryMessage(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	msg := toHistoryMessage(&discordgo.Message{
		ID:          "m1",
		Content:     "hello",
		Timestamp:   ts,
		Author:      &discordgo.User{ID: "u1", Username: "user", Bot: true},
		Attachments: []*discordgo.MessageAttachment{{Filename: "a.png", URL: "https://cdn/a.png"}},
		Embeds:      []*discordgo.MessageEmbed{{Title: "Ticket #1"}},
	})
	require.Equal(t, "user", msg.AuthorName)
	require.True(t, msg.AuthorBot)
	require.Equal(t, ts, msg.Timestamp)
	require.Equal(t, "a.png", msg.Attachments[0].Filename)
	require.Equal(t, "Ticket #1", msg.Embeds[0].Title)
}
