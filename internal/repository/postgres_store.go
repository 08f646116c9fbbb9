package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticket-bot/internal/domain"
)

const (
	uniqueViolation = "23505"

	constraintChannel  = "tickets_channel_id_key"
	constraintOpenUser = "tickets_one_open_per_user"
)

const ticketColumns = `id, user_id, channel_id, category_key, status, created_at, closed_at, claimed_by, rating`

// PostgresStore persists tickets in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore instantiates the store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Create(ctx context.Context, nt NewTicket) (*domain.Ticket, error) {
	const query = `
        INSERT INTO tickets (user_id, channel_id, category_key, status, created_at)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING ` + ticketColumns
	t, err := scanTicket(s.pool.QueryRow(ctx, query,
		nt.UserID,
		nt.ChannelID,
		nt.CategoryKey,
		domain.TicketStatusOpen,
		nt.CreatedAt,
	))
	if err != nil {
		return nil, mapUniqueViolation(err)
	}
	return t, nil
}

func (s *PostgresStore) Get(ctx context.Context, channelID string) (*domain.Ticket, error) {
	const query = `SELECT ` + ticketColumns + ` FROM tickets WHERE channel_id=$1`
	return s.fetchSingle(ctx, query, channelID)
}

func (s *PostgresStore) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	const query = `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	return s.fetchSingle(ctx, query, id)
}

func (s *PostgresStore) fetchSingle(ctx context.Context, query string, arg any) (*domain.Ticket, error) {
	t, err := scanTicket(s.pool.QueryRow(ctx, query, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTicketNotFound
	}
	return t, err
}

// Update locks the row for the duration of the mutator so concurrent
// claims, closes and ratings on one ticket are applied one after another.
func (s *PostgresStore) Update(ctx context.Context, channelID string, mutate Mutator) (*domain.Ticket, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const selectQuery = `SELECT ` + ticketColumns + ` FROM tickets WHERE channel_id=$1 FOR UPDATE`
	current, err := scanTicket(tx.QueryRow(ctx, selectQuery, channelID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTicketNotFound
	}
	if err != nil {
		return nil, err
	}

	working := current.Clone()
	if err := mutate(working); err != nil {
		return nil, err
	}
	applyMutable(current, working)

	const updateQuery = `
        UPDATE tickets SET status=$1, closed_at=$2, claimed_by=$3, rating=$4
        WHERE id=$5`
	if _, err := tx.Exec(ctx, updateQuery,
		current.Status,
		current.ClosedAt,
		current.ClaimedBy,
		current.Rating,
		current.ID,
	); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return current, nil
}

func (s *PostgresStore) HasOpenTicket(ctx context.Context, userID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM tickets WHERE user_id=$1 AND status=$2)`
	var exists bool
	err := s.pool.QueryRow(ctx, query, userID, domain.TicketStatusOpen).Scan(&exists)
	return exists, err
}

func (s *PostgresStore) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	base := `SELECT ` + ticketColumns + ` FROM tickets`
	clauses := []string{"1=1"}
	args := []any{}

	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		clauses = append(clauses, fmt.Sprintf("user_id=$%d", len(args)))
	}
	if filter.CategoryKey != nil {
		args = append(args, *filter.CategoryKey)
		clauses = append(clauses, fmt.Sprintf("category_key=$%d", len(args)))
	}
	if filter.ClaimedBy != nil {
		args = append(args, *filter.ClaimedBy)
		clauses = append(clauses, fmt.Sprintf("claimed_by=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}

	limit, offset := filter.window()
	query := fmt.Sprintf(`%s WHERE %s ORDER BY id DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Ticket{}
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *t)
	}
	return result, rows.Err()
}

func (s *PostgresStore) IsBlocked(ctx context.Context, userID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM blocked_users WHERE user_id=$1)`
	var blocked bool
	err := s.pool.QueryRow(ctx, query, userID).Scan(&blocked)
	return blocked, err
}

func (s *PostgresStore) Block(ctx context.Context, userID string) error {
	const query = `INSERT INTO blocked_users (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`
	_, err := s.pool.Exec(ctx, query, userID)
	return err
}

func (s *PostgresStore) Unblock(ctx context.Context, userID string) error {
	const query = `DELETE FROM blocked_users WHERE user_id=$1`
	_, err := s.pool.Exec(ctx, query, userID)
	return err
}

func (s *PostgresStore) ListBlocked(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT user_id FROM blocked_users ORDER BY blocked_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var (
		t      domain.Ticket
		status string
		rating *int16
	)
	if err := row.Scan(
		&t.ID,
		&t.UserID,
		&t.ChannelID,
		&t.CategoryKey,
		&status,
		&t.CreatedAt,
		&t.ClosedAt,
		&t.ClaimedBy,
		&rating,
	); err != nil {
		return nil, err
	}
	t.Status = domain.TicketStatus(status)
	if rating != nil {
		v := int(*rating)
		t.Rating = &v
	}
	return &t, nil
}

func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return err
	}
	switch pgErr.ConstraintName {
	case constraintChannel:
		return ErrDuplicateChannel
	case constraintOpenUser:
		return ErrOpenTicketExists
	}
	return err
}
