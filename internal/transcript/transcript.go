// Package transcript renders a ticket channel's history into a standalone HTML file.
package transcript

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"
	"sync"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/spec-kit/ticket-bot/internal/domain"
	"github.com/spec-kit/ticket-bot/internal/platform"
)

const contentType = "text/html; charset=utf-8"

// Document is everything a transcript is rendered from.
type Document struct {
	Ticket      domain.Ticket
	ChannelName string
	Category    string
	Messages    []platform.HistoryMessage
	GeneratedAt time.Time
}

// Exporter turns a ticket history into an attachment.
type Exporter interface {
	Export(ctx context.Context, doc Document) (*platform.File, error)
}

// FileName is the attachment name for a channel's transcript.
func FileName(channelName string) string {
	return fmt.Sprintf("transcript-%s.html", channelName)
}

// HTMLExporter renders transcripts as a single HTML page.
type HTMLExporter struct {
	loc *time.Location
}

// NewHTMLExporter renders timestamps in loc; nil means UTC.
func NewHTMLExporter(loc *time.Location) *HTMLExporter {
	if loc == nil {
		loc = time.UTC
	}
	return &HTMLExporter{loc: loc}
}

var (
	markdownOnce sync.Once
	markdown     goldmark.Markdown
)

func markdownRenderer() goldmark.Markdown {
	markdownOnce.Do(func() {
		// raw HTML in messages stays escaped: html.WithUnsafe is not set
		markdown = goldmark.New(
			goldmark.WithExtensions(extension.Strikethrough, extension.Linkify),
			goldmark.WithRendererOptions(html.WithHardWraps()),
		)
	})
	return markdown
}

type messageView struct {
	Author      string
	Bot         bool
	Time        string
	Body        template.HTML
	Attachments []platform.Attachment
	Embeds      []platform.Embed
}

type pageView struct {
	Title       string
	TicketID    int64
	Category    string
	OpenedBy    string
	CreatedAt   string
	GeneratedAt string
	Messages    []messageView
}

func (e *HTMLExporter) Export(ctx context.Context, doc Document) (*platform.File, error) {
	view := pageView{
		Title:       "Transcript of #" + doc.ChannelName,
		TicketID:    doc.Ticket.ID,
		Category:    doc.Category,
		OpenedBy:    doc.Ticket.UserID,
		CreatedAt:   e.format(doc.Ticket.CreatedAt),
		GeneratedAt: e.format(doc.GeneratedAt),
		Messages:    make([]messageView, 0, len(doc.Messages)),
	}
	for _, m := range doc.Messages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		body, err := renderMarkdown(m.Content)
		if err != nil {
			return nil, fmt.Errorf("render message %s: %w", m.ID, err)
		}
		view.Messages = append(view.Messages, messageView{
			Author:      m.AuthorName,
			Bot:         m.AuthorBot,
			Time:        e.format(m.Timestamp),
			Body:        body,
			Attachments: m.Attachments,
			Embeds:      m.Embeds,
		})
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, view); err != nil {
		return nil, fmt.Errorf("render transcript: %w", err)
	}
	return &platform.File{
		Name:        FileName(doc.ChannelName),
		ContentType: contentType,
		Data:        buf.Bytes(),
	}, nil
}

func (e *HTMLExporter) format(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(e.loc).Format("2006-01-02 15:04:05 MST")
}

func renderMarkdown(content string) (template.HTML, error) {
	if strings.TrimSpace(content) == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := markdownRenderer().Convert([]byte(content), &buf); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil //nolint:gosec // goldmark escapes raw HTML
}

var _ Exporter = (*HTMLExporter)(nil)
