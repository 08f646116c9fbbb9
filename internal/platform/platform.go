// Package platform describes the chat operations the ticket workflow needs,
// independent of any particular chat SDK.
package platform

import (
	"context"
	"errors"
	"time"
)

// ErrDirectMessagesClosed is returned when a user does not accept direct messages from the bot.
var ErrDirectMessagesClosed = errors.New("direct messages closed")

// ErrNotFound is returned when the channel, member or message does not exist.
var ErrNotFound = errors.New("platform object not found")

// Platform is the chat platform collaborator. Every call may fail independently.
type Platform interface {
	// CreateChannel creates a private text channel and returns its id.
	CreateChannel(ctx context.Context, spec ChannelSpec) (string, error)
	DeleteChannel(ctx context.Context, channelID string) error
	// SendMessage posts msg and returns the new message id.
	SendMessage(ctx context.Context, channelID string, msg Message) (string, error)
	SendDirect(ctx context.Context, userID string, msg Message) error
	// GrantAccess lets a member read and write in the channel.
	GrantAccess(ctx context.Context, channelID, memberID string) error
	// RevokeAccess removes the member specific overwrite only.
	RevokeAccess(ctx context.Context, channelID, memberID string) error
	Member(ctx context.Context, userID string) (*Member, error)
	// History returns up to limit messages, oldest first. limit <= 0 means all.
	History(ctx context.Context, channelID string, limit int) ([]HistoryMessage, error)
}

// ChannelSpec describes a private channel. Everyone else is denied, the bot itself is always allowed.
type ChannelSpec struct {
	Name      string
	ParentID  string
	Topic     string
	MemberIDs []string
	RoleIDs   []string
}

// Member is a guild member as seen by the bot.
type Member struct {
	ID          string
	Username    string
	DisplayName string
	RoleIDs     []string
	Bot         bool
}

// HistoryMessage is one message of a channel transcript.
type HistoryMessage struct {
	ID          string
	AuthorID    string
	AuthorName  string
	AuthorBot   bool
	Content     string
	Timestamp   time.Time
	Attachments []Attachment
	Embeds      []Embed
}

// Attachment is a file uploaded with a message.
type Attachment struct {
	Filename string
	URL      string
}

// Message is a declarative outgoing message.
type Message struct {
	Content    string
	Embed      *Embed
	File       *File
	Components []ActionRow
	// Mentions lists user and role ids allowed to be pinged by Content.
	MentionUsers []string
	MentionRoles []string
}

// Embed is a rich message card.
type Embed struct {
	Title       string
	Description string
	Color       int
	Fields      []EmbedField
	Footer      string
	Timestamp   *time.Time
}

// EmbedField is a named value inside an embed.
type EmbedField struct {
	Name   string
	Value  string
	Inline bool
}

// File is an in-memory attachment.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// ButtonStyle selects the button color.
type ButtonStyle int

const (
	ButtonPrimary ButtonStyle = iota + 1
	ButtonSecondary
	ButtonSuccess
	ButtonDanger
)

// ActionRow holds either buttons or one select menu.
type ActionRow struct {
	Buttons []Button
	Select  *Select
}

// Button is a clickable control identified by CustomID.
type Button struct {
	CustomID string
	Label    string
	Emoji    string
	Style    ButtonStyle
}

// Select is a single choice dropdown identified by CustomID.
type Select struct {
	CustomID    string
	Placeholder string
	Options     []SelectOption
}

// SelectOption is one dropdown entry.
type SelectOption struct {
	Label       string
	Value       string
	Description string
	Emoji       string
}
