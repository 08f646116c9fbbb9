package discord

import (
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/spec-kit/ticket-bot/internal/platform"
)

// ToEmbed converts a declarative embed to its discordgo form.
func ToEmbed(e *platform.Embed) *discordgo.MessageEmbed {
	return toEmbed(e)
}

// ToComponents converts declarative action rows to discordgo components.
func ToComponents(rows []platform.ActionRow) []discordgo.MessageComponent {
	return toComponents(rows)
}

func toEmbed(e *platform.Embed) *discordgo.MessageEmbed {
	out := &discordgo.MessageEmbed{
		Title:       e.Title,
		Description: e.Description,
		Color:       e.Color,
	}
	for _, f := range e.Fields {
		out.Fields = append(out.Fields, &discordgo.MessageEmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
	}
	if e.Footer != "" {
		out.Footer = &discordgo.MessageEmbedFooter{Text: e.Footer}
	}
	if e.Timestamp != nil {
		out.Timestamp = e.Timestamp.Format(time.RFC3339)
	}
	return out
}

func toComponents(rows []platform.ActionRow) []discordgo.MessageComponent {
	if len(rows) == 0 {
		return nil
	}
	out := make([]discordgo.MessageComponent, 0, len(rows))
	for _, row := range rows {
		var items []discordgo.MessageComponent
		for _, b := range row.Buttons {
			btn := discordgo.Button{
				CustomID: b.CustomID,
				Label:    b.Label,
				Style:    buttonStyle(b.Style),
			}
			if b.Emoji != "" {
				btn.Emoji = &discordgo.ComponentEmoji{Name: b.Emoji}
			}
			items = append(items, btn)
		}
		if row.Select != nil {
			menu := discordgo.SelectMenu{
				MenuType:    discordgo.StringSelectMenu,
				CustomID:    row.Select.CustomID,
				Placeholder: row.Select.Placeholder,
			}
			for _, o := range row.Select.Options {
				opt := discordgo.SelectMenuOption{
					Label:       o.Label,
					Value:       o.Value,
					Description: o.Description,
				}
				if o.Emoji != "" {
					opt.Emoji = &discordgo.ComponentEmoji{Name: o.Emoji}
				}
				menu.Options = append(menu.Options, opt)
			}
			items = append(items, menu)
		}
		out = append(out, discordgo.ActionsRow{Components: items})
	}
	return out
}

func buttonStyle(s platform.ButtonStyle) discordgo.ButtonStyle {
	switch s {
	case platform.ButtonSecondary:
		return discordgo.SecondaryButton
	case platform.ButtonSuccess:
		return discordgo.SuccessButton
	case platform.ButtonDanger:
		return discordgo.DangerButton
	default:
		return discordgo.PrimaryButton
	}
}

func toMember(m *discordgo.Member) *platform.Member {
	out := &platform.Member{RoleIDs: append([]string{}, m.Roles...)}
	if m.User != nil {
		out.ID = m.User.ID
		out.Username = m.User.Username
		out.DisplayName = m.User.GlobalName
		out.Bot = m.User.Bot
	}
	if m.Nick != "" {
		out.DisplayName = m.Nick
	}
	if out.DisplayName == "" {
		out.DisplayName = out.Username
	}
	return out
}

func toHistoryMessage(m *discordgo.Message) platform.HistoryMessage {
	out := platform.HistoryMessage{
		ID:        m.ID,
		Content:   m.Content,
		Timestamp: m.Timestamp,
	}
	if m.Author != nil {
		out.AuthorID = m.Author.ID
		out.AuthorName = m.Author.Username
		if m.Author.GlobalName != "" {
			out.AuthorName = m.Author.GlobalName
		}
		out.AuthorBot = m.Author.Bot
	}
	for _, a := range m.Attachments {
		out.Attachments = append(out.Attachments, platform.Attachment{Filename: a.Filename, URL: a.URL})
	}
	for _, e := range m.Embeds {
		embed := platform.Embed{Title: e.Title, Description: e.Description, Color: e.Color}
		for _, f := range e.Fields {
			embed.Fields = append(embed.Fields, platform.EmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
		}
		out.Embeds = append(out.Embeds, embed)
	}
	return out
}
