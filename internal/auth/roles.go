package auth

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-bot/internal/domain"
)

// StaffPolicy answers "is this actor staff" from the configured category roles.
type StaffPolicy struct {
	roles      map[string]struct{}
	byCategory map[string]string
}

// NewStaffPolicy indexes the staff role of every category.
func NewStaffPolicy(categories []domain.Category) *StaffPolicy {
	p := &StaffPolicy{
		roles:      make(map[string]struct{}, len(categories)),
		byCategory: make(map[string]string, len(categories)),
	}
	for _, c := range categories {
		p.roles[c.StaffRoleID] = struct{}{}
		p.byCategory[c.Key] = c.StaffRoleID
	}
	return p
}

// IsStaff reports whether the actor holds the staff role of any category.
func (p *StaffPolicy) IsStaff(actor domain.Actor) bool {
	for _, roleID := range actor.RoleIDs {
		if _, ok := p.roles[roleID]; ok {
			return true
		}
	}
	return false
}

// IsStaffFor reports whether the actor holds the staff role of categoryKey.
func (p *StaffPolicy) IsStaffFor(actor domain.Actor, categoryKey string) bool {
	roleID, ok := p.byCategory[categoryKey]
	return ok && actor.HasRole(roleID)
}

// RequireOperator ensures an operator token was presented.
func RequireOperator() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || principal.Operator == "" {
			return fiber.NewError(http.StatusForbidden, "operator required")
		}
		return c.Next()
	}
}
