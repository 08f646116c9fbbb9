package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticket-bot/internal/domain"
)

var errRejected = errors.New("rejected by mutator")

// runStoreContract exercises the TicketStore contract against a fresh store per subtest.
func runStoreContract(t *testing.T, newStore func(t *testing.T) TicketStore) {
	ctx := context.Background()
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("create assigns monotonic ids", func(t *testing.T) {
		s := newStore(t)
		a, err := s.Create(ctx, NewTicket{UserID: "u1", ChannelID: "c1", CategoryKey: "support1", CreatedAt: created})
		require.NoError(t, err)
		b, err := s.Create(ctx, NewTicket{UserID: "u2", ChannelID: "c2", CategoryKey: "support2", CreatedAt: created})
		require.NoError(t, err)

		require.Equal(t, int64(1), a.ID)
		require.Equal(t, int64(2), b.ID)
		require.Equal(t, domain.TicketStatusOpen, a.Status)
		require.Equal(t, "u1", a.UserID)
		require.Equal(t, "c1", a.ChannelID)
		require.Equal(t, "support1", a.CategoryKey)
		require.True(t, a.CreatedAt.Equal(created))
		require.Nil(t, a.ClosedAt)
		require.Nil(t, a.ClaimedBy)
		require.Nil(t, a.Rating)
	})

	t.Run("get by channel and id", func(t *testing.T) {
		s := newStore(t)
		a, err := s.Create(ctx, NewTicket{UserID: "u1", ChannelID: "c1", CategoryKey: "support1", CreatedAt: created})
		require.NoError(t, err)

		byChannel, err := s.Get(ctx, "c1")
		require.NoError(t, err)
		require.Equal(t, a.ID, byChannel.ID)

		byID, err := s.GetByID(ctx, a.ID)
		require.NoError(t, err)
		require.Equal(t, "c1", byID.ChannelID)

		_, err = s.Get(ctx, "missing")
		require.ErrorIs(t, err, ErrTicketNotFound)
		_, err = s.GetByID(ctx, 999)
		require.ErrorIs(t, err, ErrTicketNotFound)
	})

	t.Run("duplicate channel is rejected even after close", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Create(ctx, NewTicket{UserID: "u1", ChannelID: "c1", CategoryKey: "support1", CreatedAt: created})
		require.NoError(t, err)

		_, err = s.Create(ctx, NewTicket{UserID: "u2", ChannelID: "c1", CategoryKey: "support1", CreatedAt: created})
		require.ErrorIs(t, err, ErrDuplicateChannel)

		_, err = s.Update(ctx, "c1", func(tk *domain.Ticket) error {
			closedAt := created.Add(time.Hour)
			tk.Status = domain.TicketStatusClosed
			tk.ClosedAt = &closedAt
			return nil
		})
		require.NoError(t, err)

		_, err = s.Create(ctx, NewTicket{UserID: "u2", ChannelID: "c1", CategoryKey: "support1", CreatedAt: created})
		require.ErrorIs(t, err, ErrDuplicateChannel)
	})

	t.Run("one open ticket per user", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Create(ctx, NewTicket{UserID: "u1", ChannelID: "c1", CategoryKey: "support1", CreatedAt: created})
		require.NoError(t, err)

		open, err := s.HasOpenTicket(ctx, "u1")
		require.NoError(t, err)
		require.True(t, open)

		_, err = s.Create(ctx, NewTicket{UserID: "u1", ChannelID: "c2", CategoryKey: "support1", CreatedAt: created})
		require.ErrorIs(t, err, ErrOpenTicketExists)

		_, err = s.Update(ctx, "c1", func(tk *domain.Ticket) error {
			tk.Status = domain.TicketStatusClosed
			return nil
		})
		require.NoError(t, err)

		open, err = s.HasOpenTicket(ctx, "u1")
		require.NoError(t, err)
		require.False(t, open)

		second, err := s.Create(ctx, NewTicket{UserID: "u1", ChannelID: "c2", CategoryKey: "support1", CreatedAt: created})
		require.NoError(t, err)
		require.Equal(t, int64(2), second.ID)
	})

	t.Run("update persists only mutable fields", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Create(ctx, NewTicket{UserID: "u1", ChannelID: "c1", CategoryKey: "support1", CreatedAt: created})
		require.NoError(t, err)

		updated, err := s.Update(ctx, "c1", func(tk *domain.Ticket) error {
			staff := "staff-1"
			tk.ClaimedBy = &staff
			tk.UserID = "someone-else"
			tk.CategoryKey = "support2"
			return nil
		})
		require.NoError(t, err)
		require.Equal(t, "staff-1", *updated.ClaimedBy)

		got, err := s.Get(ctx, "c1")
		require.NoError(t, err)
		require.Equal(t, "u1", got.UserID)
		require.Equal(t, "support1", got.CategoryKey)
		require.Equal(t, "staff-1", *got.ClaimedBy)
	})

	t.Run("mutator error aborts without writing", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Create(ctx, NewTicket{UserID: "u1", ChannelID: "c1", CategoryKey: "support1", CreatedAt: created})
		require.NoError(t, err)

		_, err = s.Update(ctx, "c1", func(tk *domain.Ticket) error {
			tk.Status = domain.TicketStatusClosed
			return errRejected
		})
		require.ErrorIs(t, err, errRejected)

		got, err := s.Get(ctx, "c1")
		require.NoError(t, err)
		require.Equal(t, domain.TicketStatusOpen, got.Status)

		_, err = s.Update(ctx, "missing", func(*domain.Ticket) error { return nil })
		require.ErrorIs(t, err, ErrTicketNotFound)
	})

	t.Run("concurrent first-writer-wins updates", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Create(ctx, NewTicket{UserID: "u1", ChannelID: "c1", CategoryKey: "support1", CreatedAt: created})
		require.NoError(t, err)

		const workers = 16
		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			successes int
		)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				staff := fmt.Sprintf("staff-%d", i)
				_, err := s.Update(ctx, "c1", func(tk *domain.Ticket) error {
					if tk.IsClaimed() {
						return errRejected
					}
					tk.ClaimedBy = &staff
					return nil
				})
				if err == nil {
					mu.Lock()
					successes++
					mu.Unlock()
				} else {
					assert.ErrorIs(t, err, errRejected)
				}
			}(i)
		}
		wg.Wait()

		require.Equal(t, 1, successes)
		got, err := s.Get(ctx, "c1")
		require.NoError(t, err)
		require.True(t, got.IsClaimed())
	})

	t.Run("block and unblock are idempotent", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Block(ctx, "u1"))
		require.NoError(t, s.Block(ctx, "u1"))

		blocked, err := s.IsBlocked(ctx, "u1")
		require.NoError(t, err)
		require.True(t, blocked)

		ids, err := s.ListBlocked(ctx)
		require.NoError(t, err)
		require.Equal(t, []string{"u1"}, ids)

		require.NoError(t, s.Unblock(ctx, "u1"))
		require.NoError(t, s.Unblock(ctx, "u1"))
		blocked, err = s.IsBlocked(ctx, "u1")
		require.NoError(t, err)
		require.False(t, blocked)
	})

	t.Run("list filters and orders newest first", func(t *testing.T) {
		s := newStore(t)
		for i, user := range []string{"u1", "u2", "u3"} {
			_, err := s.Create(ctx, NewTicket{
				UserID:      user,
				ChannelID:   fmt.Sprintf("c%d", i+1),
				CategoryKey: "support1",
				CreatedAt:   created.Add(time.Duration(i) * time.Minute),
			})
			require.NoError(t, err)
		}
		_, err := s.Update(ctx, "c2", func(tk *domain.Ticket) error {
			tk.Status = domain.TicketStatusClosed
			return nil
		})
		require.NoError(t, err)

		all, err := s.List(ctx, TicketFilter{})
		require.NoError(t, err)
		require.Len(t, all, 3)
		require.Equal(t, int64(3), all[0].ID)

		open, err := s.List(ctx, TicketFilter{Statuses: []domain.TicketStatus{domain.TicketStatusOpen}})
		require.NoError(t, err)
		require.Len(t, open, 2)

		user := "u2"
		mine, err := s.List(ctx, TicketFilter{UserID: &user})
		require.NoError(t, err)
		require.Len(t, mine, 1)
		require.Equal(t, "c2", mine[0].ChannelID)

		page, err := s.List(ctx, TicketFilter{Limit: 1, Offset: 1})
		require.NoError(t, err)
		require.Len(t, page, 1)
		require.Equal(t, int64(2), page[0].ID)
	})
}
