package handlers

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-bot/internal/api/dto"
	"github.com/spec-kit/ticket-bot/internal/domain"
	"github.com/spec-kit/ticket-bot/internal/repository"
	apperrors "github.com/spec-kit/ticket-bot/pkg/util"
)

const maxPageSize = 100

// TicketReader is the read side of the ticket service.
type TicketReader interface {
	FindTicket(ctx context.Context, id int64) (*domain.Ticket, error)
	ListTickets(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error)
	ListBlocked(ctx context.Context) ([]string, error)
}

// TicketsHandler serves the operator ticket endpoints.
type TicketsHandler struct {
	service TicketReader
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService TicketReader) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	query, err := parseTicketQuery(c)
	if err != nil {
		return err
	}
	tickets, err := h.service.ListTickets(c.UserContext(), toFilter(query))
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketResponse(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": dto.TicketListResponse{
		Items:    items,
		Page:     query.Page,
		PageSize: query.PageSize,
	}})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return apperrors.NewValidationError("id must be a positive integer", map[string]any{"id": c.Params("id")})
	}
	ticket, err := h.service.FindTicket(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// ListBlocked GET /blocked.
func (h *TicketsHandler) ListBlocked(c *fiber.Ctx) error {
	ids, err := h.service.ListBlocked(c.UserContext())
	if err != nil {
		return err
	}
	if ids == nil {
		ids = []string{}
	}
	return c.JSON(fiber.Map{"data": dto.BlockedUsersResponse{UserIDs: ids}})
}

func parseTicketQuery(c *fiber.Ctx) (dto.TicketListQuery, error) {
	q := dto.TicketListQuery{
		UserID:      optional(c.Query("user_id")),
		CategoryKey: optional(c.Query("category")),
		ClaimedBy:   optional(c.Query("claimed_by")),
		Page:        parseInt(c.Query("page"), 1),
		PageSize:    parseInt(c.Query("page_size"), 20),
	}
	if q.PageSize > maxPageSize {
		q.PageSize = maxPageSize
	}
	if raw := c.Query("status"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			status := domain.TicketStatus(strings.TrimSpace(part))
			if status != domain.TicketStatusOpen && status != domain.TicketStatusClosed {
				return q, apperrors.NewValidationError("unknown status", map[string]any{"status": part})
			}
			q.Statuses = append(q.Statuses, status)
		}
	}
	var err error
	if q.CreatedFrom, err = parseTime("created_from", c.Query("created_from")); err != nil {
		return q, err
	}
	if q.CreatedTo, err = parseTime("created_to", c.Query("created_to")); err != nil {
		return q, err
	}
	return q, nil
}

func toFilter(q dto.TicketListQuery) repository.TicketFilter {
	return repository.TicketFilter{
		UserID:      q.UserID,
		CategoryKey: q.CategoryKey,
		ClaimedBy:   q.ClaimedBy,
		Statuses:    q.Statuses,
		CreatedFrom: q.CreatedFrom,
		CreatedTo:   q.CreatedTo,
		Limit:       q.PageSize,
		Offset:      (q.Page - 1) * q.PageSize,
	}
}

func optional(val string) *string {
	if val == "" {
		return nil
	}
	return &val
}

func parseTime(name, val string) (*time.Time, error) {
	if val == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return nil, apperrors.NewValidationError(name+" must be RFC3339", map[string]any{name: val})
	}
	return &t, nil
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func ticketResponse(ticket *domain.Ticket) dto.TicketResponse {
	return dto.TicketResponse{
		ID:          ticket.ID,
		UserID:      ticket.UserID,
		ChannelID:   ticket.ChannelID,
		CategoryKey: ticket.CategoryKey,
		Status:      ticket.Status,
		ClaimedBy:   ticket.ClaimedBy,
		Rating:      ticket.Rating,
		CreatedAt:   ticket.CreatedAt,
		ClosedAt:    ticket.ClosedAt,
	}
}
