package dto

import "time"

// TokenRequest exchanges the operator API key for a bearer token.
type TokenRequest struct {
	APIKey string `json:"api_key"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
