package repository

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spec-kit/ticket-bot/internal/domain"
)

// fileID is a Discord snowflake as found in a ticket file. Older files store
// snowflakes as JSON integers; current ones store strings.
type fileID string

func (id *fileID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = fileID(s)
		return nil
	}
	// Snowflakes exceed float64 precision, so the digits are kept verbatim.
	if _, err := strconv.ParseUint(string(data), 10, 64); err != nil {
		return fmt.Errorf("snowflake %s is neither a string nor an unsigned integer", data)
	}
	*id = fileID(data)
	return nil
}

// fileTicket shadows the id fields of domain.Ticket so either form decodes.
type fileTicket struct {
	domain.Ticket
	UserID    fileID  `json:"user_id"`
	ClaimedBy *fileID `json:"claimed_by"`
}

type fileDocument struct {
	Tickets      map[string]*fileTicket `json:"tickets"`
	BlockedUsers []fileID               `json:"blocked_users"`
	NextTicketID int64                  `json:"next_ticket_id"`
}

// decodeDocument reads a ticket file. Writes always go through document, so
// integer ids are rewritten as strings the first time the file is saved.
func decodeDocument(data []byte) (*document, error) {
	var raw fileDocument
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	doc := newDocument()
	if raw.NextTicketID > 0 {
		doc.NextTicketID = raw.NextTicketID
	}
	for channelID, ft := range raw.Tickets {
		if ft == nil {
			continue
		}
		t := ft.Ticket
		t.UserID = string(ft.UserID)
		t.ClaimedBy = nil
		if ft.ClaimedBy != nil && *ft.ClaimedBy != "" {
			claimer := string(*ft.ClaimedBy)
			t.ClaimedBy = &claimer
		}
		doc.Tickets[channelID] = &t
	}
	for _, id := range raw.BlockedUsers {
		if id != "" {
			doc.BlockedUsers = append(doc.BlockedUsers, string(id))
		}
	}
	doc.normalize()
	return doc, nil
}
