package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-bot/internal/api/dto"
	"github.com/spec-kit/ticket-bot/internal/auth"
	apperrors "github.com/spec-kit/ticket-bot/pkg/util"
)

const operatorSubjectID = "operator"

// AuthHandler issues operator tokens.
type AuthHandler struct {
	apiKeyHash string
	tokens     *auth.TokenManager
}

// NewAuthHandler constructs handler. An empty apiKeyHash rejects every request.
func NewAuthHandler(apiKeyHash string, tokens *auth.TokenManager) *AuthHandler {
	return &AuthHandler{apiKeyHash: apiKeyHash, tokens: tokens}
}

// IssueToken handles POST /auth/token.
func (h *AuthHandler) IssueToken(c *fiber.Ctx) error {
	var req dto.TokenRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.APIKey == "" {
		return apperrors.NewValidationError("api_key required", nil)
	}
	if err := auth.VerifyAPIKey(h.apiKeyHash, req.APIKey); err != nil {
		return apperrors.NewUnauthorized("invalid api key")
	}

	token, exp, err := h.tokens.IssueOperatorToken(operatorSubjectID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.AuthResponse{Token: token, ExpiresAt: exp}})
}
