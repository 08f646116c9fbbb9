package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Stable custom ids of the interactive controls the bot posts.
const (
	ControlCreateSelect = "ticket_creation_select"
	ControlClose        = "ticket_close"
	ControlClaim        = "ticket_claim"
	ControlRatePrefix   = "ticket_rate"
)

// RatingControlID encodes the prompt and the star value into a button id.
func RatingControlID(promptID string, rating int) string {
	return fmt.Sprintf("%s:%s:%d", ControlRatePrefix, promptID, rating)
}

// ParseRatingControlID is the inverse of RatingControlID.
func ParseRatingControlID(customID string) (promptID string, rating int, ok bool) {
	parts := strings.Split(customID, ":")
	if len(parts) != 3 || parts[0] != ControlRatePrefix || parts[1] == "" {
		return "", 0, false
	}
	rating, err := strconv.Atoi(parts[2])
	if err != nil {
		return "", 0, false
	}
	return parts[1], rating, true
}
