package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticket-bot/internal/domain"
	"github.com/spec-kit/ticket-bot/internal/platform"
	"github.com/spec-kit/ticket-bot/internal/repository"
	apperrors "github.com/spec-kit/ticket-bot/pkg/util"
)

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	require.Truef(t, apperrors.HasCode(err, code), "want %s, got %v", code, err)
}

func TestTicketLifecycleScenario(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	ticket, ch := h.open(t, userA)
	require.Equal(t, int64(1), ticket.ID)
	require.Equal(t, domain.TicketStatusOpen, ticket.Status)
	require.Equal(t, userA.ID, ticket.UserID)
	require.Nil(t, ticket.ClaimedBy)
	require.Equal(t, "ticket-alice", ch.Name)

	spec := h.platform.channels[ch.ID]
	require.Equal(t, "cat-1", spec.ParentID)
	require.Equal(t, []string{userA.ID}, spec.MemberIDs)
	require.Equal(t, []string{roleGeneral}, spec.RoleIDs)

	welcome := h.platform.messagesTo(ch.ID)
	require.Len(t, welcome, 1)
	require.Equal(t, "Ticket #1", welcome[0].Embed.Title)
	require.Contains(t, welcome[0].Embed.Description, "Reason: **General Support**")
	require.Equal(t, "<@user-a> <@&"+roleGeneral+">", welcome[0].Content)
	require.Equal(t, domain.ControlClose, welcome[0].Components[0].Buttons[0].CustomID)
	require.Equal(t, domain.ControlClaim, welcome[0].Components[0].Buttons[1].CustomID)

	claimed, err := h.svc.Claim(ctx, staffB, ch)
	require.NoError(t, err)
	require.Equal(t, staffB.ID, *claimed.ClaimedBy)

	_, err = h.svc.Claim(ctx, staffC, ch)
	requireCode(t, err, apperrors.CodeAlreadyClaimed)
	require.True(t, apperrors.IsRejection(err))

	h.platform.history[ch.ID] = []platform.HistoryMessage{{ID: "m1", AuthorName: "Alice", Content: "help"}}
	h.now = h.now.Add(time.Hour)
	result, err := h.svc.Close(ctx, staffB, ch)
	require.NoError(t, err)
	require.True(t, result.ChannelDeleted)
	require.Equal(t, domain.TicketStatusClosed, result.Ticket.Status)
	require.True(t, result.Ticket.ClosedAt.Equal(h.now))
	require.Equal(t, []string{ch.ID}, h.platform.deleted)

	logged := h.platform.messagesTo(logChannel)
	require.Len(t, logged, 1)
	require.Equal(t, "Ticket Closed", logged[0].Embed.Title)
	require.Equal(t, "transcript-ticket-alice.html", logged[0].File.Name)
	require.Len(t, h.exporter.docs, 1)
	require.Equal(t, "General Support", h.exporter.docs[0].Category)
	require.Len(t, h.exporter.docs[0].Messages, 1)

	dms := h.platform.direct[userA.ID]
	require.Len(t, dms, 1)
	require.Equal(t, "Please rate your support experience:", dms[0].Content)
	buttons := dms[0].Components[0].Buttons
	require.Len(t, buttons, 5)
	promptID, rating, ok := domain.ParseRatingControlID(buttons[3].CustomID)
	require.True(t, ok)
	require.Equal(t, 4, rating)

	rated, err := h.svc.Rate(ctx, userA, promptID, rating)
	require.NoError(t, err)
	require.Equal(t, 4, *rated.Rating)

	_, err = h.svc.Rate(ctx, userA, promptID, 5)
	requireCode(t, err, apperrors.CodeRatingExpired)

	stored, err := h.store.Get(ctx, ch.ID)
	require.NoError(t, err)
	require.Equal(t, 4, *stored.Rating)
	require.Equal(t, staffB.ID, *stored.ClaimedBy)
}

func TestOpenRejectsSecondOpenTicket(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	first, _ := h.open(t, userA)

	_, err := h.svc.Open(ctx, userA, "billing")
	requireCode(t, err, apperrors.CodeOpenTicketExists)
	require.Equal(t, 1, h.openTickets(t, userA.ID))
	require.Len(t, h.platform.channels, 1)

	untouched, err := h.store.Get(ctx, first.ChannelID)
	require.NoError(t, err)
	require.Equal(t, first, untouched)
}

func TestConcurrentOpensKeepSingleOpenTicket(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.svc.Open(ctx, userA, "general")
			if err != nil {
				assert.True(t, apperrors.HasCode(err, apperrors.CodeOpenTicketExists), "unexpected error %v", err)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, h.openTickets(t, userA.ID))
	h.platform.mu.Lock()
	defer h.platform.mu.Unlock()
	require.Len(t, h.platform.channels, 1, "losing opens roll their channel back")
}

func TestBlockedUserGate(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	require.NoError(t, h.svc.Block(ctx, staffB, userD.ID))
	require.NoError(t, h.svc.Block(ctx, staffB, userD.ID))

	for _, key := range []string{"general", "billing"} {
		_, err := h.svc.Open(ctx, userD, key)
		requireCode(t, err, apperrors.CodeBlocked)
	}
	require.Empty(t, h.platform.channels)
	require.Equal(t, 0, h.openTickets(t, userD.ID))

	require.NoError(t, h.svc.Unblock(ctx, staffC, userD.ID))
	ticket, err := h.svc.Open(ctx, userD, "billing")
	require.NoError(t, err)
	require.Equal(t, "billing", ticket.CategoryKey)
}

func TestBlockRequiresStaff(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	requireCode(t, h.svc.Block(ctx, userA, userD.ID), apperrors.CodeNotStaff)
	requireCode(t, h.svc.Unblock(ctx, admin, userD.ID), apperrors.CodeNotStaff)

	blocked, err := h.store.IsBlocked(ctx, userD.ID)
	require.NoError(t, err)
	require.False(t, blocked)
}

func TestOpenUnknownCategory(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.Open(context.Background(), userA, "nope")
	requireCode(t, err, apperrors.CodeUnknownCategory)
	require.Empty(t, h.platform.channels)
}

func TestOpenChannelFailureCreatesNoRecord(t *testing.T) {
	h := newHarness(t)
	h.platform.createErr = errPlatform

	_, err := h.svc.Open(context.Background(), userA, "general")
	requireCode(t, err, apperrors.CodeChannelCreateFailed)
	require.ErrorIs(t, err, errPlatform)
	require.True(t, apperrors.IsRejection(err))
	require.Equal(t, 0, h.openTickets(t, userA.ID))
}

func TestOpenStoreFailureRemovesChannel(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code string
	}{
		{name: "open ticket race", err: repository.ErrOpenTicketExists, code: apperrors.CodeOpenTicketExists},
		{name: "duplicate channel", err: repository.ErrDuplicateChannel, code: apperrors.CodeInconsistentState},
		{name: "storage fault", err: errors.New("disk full"), code: apperrors.CodeInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, withStore(failingCreateStore{TicketStore: repository.NewMemoryStore(), err: tc.err}))

			_, err := h.svc.Open(context.Background(), userA, "general")
			require.Error(t, err)
			require.Equal(t, tc.code, apperrors.ToDomainError(err).Code)
			require.Empty(t, h.platform.channels)
			require.Equal(t, []string{"ch-1"}, h.platform.deleted)
		})
	}
}

func TestOpenWelcomeFailureKeepsTicket(t *testing.T) {
	h := newHarness(t)
	h.platform.sendErr["ch-1"] = errPlatform

	ticket, err := h.svc.Open(context.Background(), userA, "general")
	require.NoError(t, err)
	require.Equal(t, "ch-1", ticket.ChannelID)
	require.Equal(t, 1, h.openTickets(t, userA.ID))
}

func TestClaimRules(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	_, ch := h.open(t, userA)

	_, err := h.svc.Claim(ctx, userA, ch)
	requireCode(t, err, apperrors.CodeNotStaff)

	// staff of another category may claim
	claimed, err := h.svc.Claim(ctx, staffC, ch)
	require.NoError(t, err)
	require.Equal(t, staffC.ID, *claimed.ClaimedBy)

	notices := h.platform.messagesTo(ch.ID)
	require.Equal(t, "This ticket has been claimed by <@staff-c>.", notices[len(notices)-1].Embed.Description)

	_, err = h.svc.Claim(ctx, staffC, domain.ChannelRef{ID: "general-chat", Name: "general"})
	requireCode(t, err, apperrors.CodeNotTicketChannel)
}

func TestConcurrentClaimsExactlyOneWins(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	_, ch := h.open(t, userA)

	staff := []domain.Actor{staffB, staffC, {ID: "staff-e", RoleIDs: []string{roleGeneral}}, {ID: "staff-f", RoleIDs: []string{roleBilling}}}
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners []string
	)
	for _, actor := range staff {
		wg.Add(1)
		go func(actor domain.Actor) {
			defer wg.Done()
			_, err := h.svc.Claim(ctx, actor, ch)
			if err != nil {
				assert.True(t, apperrors.HasCode(err, apperrors.CodeAlreadyClaimed), "unexpected error %v", err)
				return
			}
			mu.Lock()
			winners = append(winners, actor.ID)
			mu.Unlock()
		}(actor)
	}
	wg.Wait()

	require.Len(t, winners, 1)
	stored, err := h.store.Get(ctx, ch.ID)
	require.NoError(t, err)
	require.Equal(t, winners[0], *stored.ClaimedBy)
}

func TestCloseAuthorization(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	_, ch := h.open(t, userA)

	_, err := h.svc.Close(ctx, userD, ch)
	requireCode(t, err, apperrors.CodeForbidden)
	require.Empty(t, h.platform.deleted)

	result, err := h.svc.Close(ctx, userA, ch)
	require.NoError(t, err)
	require.Equal(t, domain.TicketStatusClosed, result.Ticket.Status)
}

func TestCloseFinality(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.platform.deleteErr = errPlatform
	_, ch := h.open(t, userA)

	result, err := h.svc.Close(ctx, staffB, ch)
	require.NoError(t, err)
	require.False(t, result.ChannelDeleted)

	stored, err := h.store.Get(ctx, ch.ID)
	require.NoError(t, err)
	require.Equal(t, domain.TicketStatusClosed, stored.Status)

	_, err = h.svc.Close(ctx, staffB, ch)
	requireCode(t, err, apperrors.CodeAlreadyClosed)
	_, err = h.svc.Claim(ctx, staffB, ch)
	requireCode(t, err, apperrors.CodeAlreadyClosed)

	_, err = h.store.Create(ctx, repository.NewTicket{UserID: userD.ID, ChannelID: ch.ID, CategoryKey: "general", CreatedAt: h.now})
	require.ErrorIs(t, err, repository.ErrDuplicateChannel)
}

func TestConcurrentClosesArchiveOnce(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	_, ch := h.open(t, userA)
	h.platform.historyGate = make(chan struct{})
	h.platform.historyEntered = make(chan struct{}, 2)

	errs := make([]error, 2)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, errs[0] = h.svc.Close(ctx, staffB, ch)
	}()
	<-h.platform.historyEntered

	wg.Add(1)
	go func() {
		defer wg.Done()
		_, errs[1] = h.svc.Close(ctx, userA, ch)
	}()
	require.Eventually(t, func() bool { return h.svc.closing.holders(ch.ID) == 2 },
		time.Second, time.Millisecond, "second close must be waiting on the first")

	close(h.platform.historyGate)
	wg.Wait()

	require.NoError(t, errs[0])
	requireCode(t, errs[1], apperrors.CodeAlreadyClosed)
	require.Len(t, h.platform.messagesTo(logChannel), 1)
	require.Len(t, h.exporter.docs, 1)
	require.Zero(t, h.svc.closing.holders(ch.ID))
}

func TestCloseRetriesStrandedChannelDelete(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	_, ch := h.open(t, userA)
	h.platform.deleteErr = errPlatform

	result, err := h.svc.Close(ctx, staffB, ch)
	require.NoError(t, err)
	require.False(t, result.ChannelDeleted)

	_, err = h.svc.Close(ctx, staffB, ch)
	requireCode(t, err, apperrors.CodeAlreadyClosed)
	require.Equal(t, msgChannelStranded, apperrors.ToDomainError(err).Message)

	_, err = h.svc.Close(ctx, userD, ch)
	requireCode(t, err, apperrors.CodeForbidden)

	h.platform.deleteErr = nil
	_, err = h.svc.Close(ctx, staffB, ch)
	requireCode(t, err, apperrors.CodeAlreadyClosed)
	require.Equal(t, msgAlreadyClosed, apperrors.ToDomainError(err).Message)
	require.Equal(t, []string{ch.ID}, h.platform.deleted)
	require.NotContains(t, h.platform.channels, ch.ID)

	stored, err := h.store.Get(ctx, ch.ID)
	require.NoError(t, err)
	require.Equal(t, domain.TicketStatusClosed, stored.Status)
	require.Len(t, h.platform.messagesTo(logChannel), 1, "a retry never archives again")
}

func TestCloseArchiveFailureLeavesTicketOpen(t *testing.T) {
	ctx := context.Background()
	failures := map[string]func(h *harness){
		"history":   func(h *harness) { h.platform.historyErr = errPlatform },
		"export":    func(h *harness) { h.exporter.err = errPlatform },
		"log trail": func(h *harness) { h.platform.sendErr[logChannel] = errPlatform },
	}
	for name, inject := range failures {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t)
			_, ch := h.open(t, userA)
			inject(h)

			_, err := h.svc.Close(ctx, staffB, ch)
			requireCode(t, err, apperrors.CodeArchiveFailed)
			require.ErrorIs(t, err, errPlatform)

			stored, err := h.store.Get(ctx, ch.ID)
			require.NoError(t, err)
			require.Equal(t, domain.TicketStatusOpen, stored.Status)
			require.Nil(t, stored.ClosedAt)
			require.Empty(t, h.platform.deleted)
			require.Empty(t, h.platform.direct)
		})
	}
}

func TestCloseSwallowsRatingDeliveryFailure(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.platform.directErr = platform.ErrDirectMessagesClosed
	_, ch := h.open(t, userA)

	result, err := h.svc.Close(ctx, userA, ch)
	require.NoError(t, err)
	require.True(t, result.ChannelDeleted)

	_, err = h.prompts.Resolve(ctx, "prompt-1")
	require.ErrorIs(t, err, repository.ErrPromptExpired, "undelivered prompts are dropped")
}

func TestCloseMissingRecordOnTicketChannel(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.Close(context.Background(), staffB, domain.ChannelRef{ID: "ghost", Name: "ticket-ghost"})
	requireCode(t, err, apperrors.CodeInconsistentState)
	require.Empty(t, h.platform.sent)
	require.Empty(t, h.platform.deleted)
}

func TestRateRules(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	_, ch := h.open(t, userA)
	_, err := h.svc.Close(ctx, staffB, ch)
	require.NoError(t, err)

	_, err = h.svc.Rate(ctx, userA, "unknown", 3)
	requireCode(t, err, apperrors.CodeRatingExpired)

	_, err = h.svc.Rate(ctx, staffB, "prompt-1", 3)
	requireCode(t, err, apperrors.CodeForbidden)

	for _, bad := range []int{0, 6, -1} {
		_, err = h.svc.Rate(ctx, userA, "prompt-1", bad)
		requireCode(t, err, apperrors.CodeInvalidRating)
	}

	stored, err := h.store.Get(ctx, ch.ID)
	require.NoError(t, err)
	require.Nil(t, stored.Rating)

	h.now = h.now.Add(181 * time.Second)
	_, err = h.svc.Rate(ctx, userA, "prompt-1", 3)
	requireCode(t, err, apperrors.CodeRatingExpired)
}

func TestRateRequiresClosedAndUnrated(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	ticket, ch := h.open(t, userA)

	issue := func(id string) {
		require.NoError(t, h.prompts.Issue(ctx, domain.RatingPrompt{
			ID: id, TicketID: ticket.ID, ChannelID: ch.ID, UserID: userA.ID, ExpiresAt: h.now.Add(time.Minute),
		}))
	}

	issue("early")
	_, err := h.svc.Rate(ctx, userA, "early", 5)
	requireCode(t, err, apperrors.CodeNotClosed)

	_, err = h.svc.Close(ctx, staffB, ch)
	require.NoError(t, err)
	_, err = h.svc.Rate(ctx, userA, "prompt-1", 2)
	require.NoError(t, err)

	issue("late")
	_, err = h.svc.Rate(ctx, userA, "late", 5)
	requireCode(t, err, apperrors.CodeAlreadyRated)

	stored, err := h.store.Get(ctx, ch.ID)
	require.NoError(t, err)
	require.Equal(t, 2, *stored.Rating)
}

func TestAddAndRemoveUser(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	_, ch := h.open(t, userA)

	require.NoError(t, h.svc.AddUser(ctx, staffB, ch, userD.ID))
	require.Equal(t, []string{userD.ID}, h.platform.granted[ch.ID])
	require.NoError(t, h.svc.RemoveUser(ctx, staffB, ch, userD.ID))
	require.Equal(t, []string{userD.ID}, h.platform.revoked[ch.ID])

	requireCode(t, h.svc.AddUser(ctx, userA, ch, userD.ID), apperrors.CodeNotStaff)

	renamed := domain.ChannelRef{ID: ch.ID, Name: "support-alice"}
	requireCode(t, h.svc.AddUser(ctx, staffB, renamed, userD.ID), apperrors.CodeNotTicketChannel)

	h.platform.accessErr = errPlatform
	requireCode(t, h.svc.AddUser(ctx, staffB, ch, userD.ID), apperrors.CodePlatformFailed)
	h.platform.accessErr = nil

	h.platform.deleteErr = errPlatform
	_, err := h.svc.Close(ctx, staffB, ch)
	require.NoError(t, err)
	requireCode(t, h.svc.RemoveUser(ctx, staffB, ch, userD.ID), apperrors.CodeNotTicketChannel)
}

func TestSetupPanel(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	requireCode(t, h.svc.SetupPanel(ctx, staffB, "intake"), apperrors.CodeForbidden)
	require.NoError(t, h.svc.SetupPanel(ctx, admin, "intake"))

	panel := h.platform.messagesTo("intake")
	require.Len(t, panel, 1)
	require.Equal(t, "Support Tickets", panel[0].Embed.Title)
	sel := panel[0].Components[0].Select
	require.Equal(t, domain.ControlCreateSelect, sel.CustomID)
	require.Len(t, sel.Options, 2)
	require.Equal(t, "general", sel.Options[0].Value)
	require.Equal(t, "💳", sel.Options[1].Emoji)
}

func TestFindTicket(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	ticket, _ := h.open(t, userA)

	found, err := h.svc.FindTicket(ctx, ticket.ID)
	require.NoError(t, err)
	require.Equal(t, ticket.ChannelID, found.ChannelID)

	_, err = h.svc.FindTicket(ctx, 99)
	requireCode(t, err, apperrors.CodeNotFound)
}
