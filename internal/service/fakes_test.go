package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticket-bot/internal/auth"
	"github.com/spec-kit/ticket-bot/internal/config"
	"github.com/spec-kit/ticket-bot/internal/domain"
	"github.com/spec-kit/ticket-bot/internal/platform"
	"github.com/spec-kit/ticket-bot/internal/repository"
	"github.com/spec-kit/ticket-bot/internal/transcript"
)

var errPlatform = errors.New("platform unavailable")

type sentMessage struct {
	ChannelID string
	Message   platform.Message
}

type fakePlatform struct {
	mu sync.Mutex

	nextChannel int
	channels    map[string]platform.ChannelSpec
	deleted     []string
	sent        []sentMessage
	direct      map[string][]platform.Message
	granted     map[string][]string
	revoked     map[string][]string
	history     map[string][]platform.HistoryMessage

	createErr  error
	deleteErr  error
	sendErr    map[string]error
	directErr  error
	historyErr error
	accessErr  error

	// historyGate, when set, holds History until the test closes it.
	historyGate    chan struct{}
	historyEntered chan struct{}
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		channels: make(map[string]platform.ChannelSpec),
		direct:   make(map[string][]platform.Message),
		granted:  make(map[string][]string),
		revoked:  make(map[string][]string),
		history:  make(map[string][]platform.HistoryMessage),
		sendErr:  make(map[string]error),
	}
}

func (p *fakePlatform) CreateChannel(_ context.Context, spec platform.ChannelSpec) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.createErr != nil {
		return "", p.createErr
	}
	p.nextChannel++
	id := fmt.Sprintf("ch-%d", p.nextChannel)
	p.channels[id] = spec
	return id, nil
}

func (p *fakePlatform) DeleteChannel(_ context.Context, channelID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.deleteErr != nil {
		return p.deleteErr
	}
	delete(p.channels, channelID)
	p.deleted = append(p.deleted, channelID)
	return nil
}

func (p *fakePlatform) SendMessage(_ context.Context, channelID string, msg platform.Message) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.sendErr[channelID]; err != nil {
		return "", err
	}
	p.sent = append(p.sent, sentMessage{ChannelID: channelID, Message: msg})
	return fmt.Sprintf("msg-%d", len(p.sent)), nil
}

func (p *fakePlatform) SendDirect(_ context.Context, userID string, msg platform.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.directErr != nil {
		return p.directErr
	}
	p.direct[userID] = append(p.direct[userID], msg)
	return nil
}

func (p *fakePlatform) GrantAccess(_ context.Context, channelID, memberID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.accessErr != nil {
		return p.accessErr
	}
	p.granted[channelID] = append(p.granted[channelID], memberID)
	return nil
}

func (p *fakePlatform) RevokeAccess(_ context.Context, channelID, memberID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.accessErr != nil {
		return p.accessErr
	}
	p.revoked[channelID] = append(p.revoked[channelID], memberID)
	return nil
}

func (p *fakePlatform) Member(_ context.Context, userID string) (*platform.Member, error) {
	return &platform.Member{ID: userID, Username: userID, DisplayName: userID}, nil
}

func (p *fakePlatform) History(_ context.Context, channelID string, _ int) ([]platform.HistoryMessage, error) {
	if p.historyGate != nil {
		p.historyEntered <- struct{}{}
		<-p.historyGate
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.historyErr != nil {
		return nil, p.historyErr
	}
	return p.history[channelID], nil
}

func (p *fakePlatform) messagesTo(channelID string) []platform.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []platform.Message
	for _, s := range p.sent {
		if s.ChannelID == channelID {
			out = append(out, s.Message)
		}
	}
	return out
}

type fakeExporter struct {
	docs []transcript.Document
	err  error
}

func (e *fakeExporter) Export(_ context.Context, doc transcript.Document) (*platform.File, error) {
	if e.err != nil {
		return nil, e.err
	}
	e.docs = append(e.docs, doc)
	return &platform.File{Name: transcript.FileName(doc.ChannelName), Data: []byte("<html></html>")}, nil
}

// failingCreateStore fails Create after the wrapped store checks pass.
type failingCreateStore struct {
	repository.TicketStore
	err error
}

func (s failingCreateStore) Create(context.Context, repository.NewTicket) (*domain.Ticket, error) {
	return nil, s.err
}

type harness struct {
	svc      *TicketService
	store    repository.TicketStore
	prompts  *repository.MemoryPromptRepository
	platform *fakePlatform
	exporter *fakeExporter
	now      time.Time
}

const (
	roleGeneral = "900000000000000001"
	roleBilling = "900000000000000002"
	logChannel  = "log-channel"
)

var (
	userA  = domain.Actor{ID: "user-a", Name: "Alice"}
	userD  = domain.Actor{ID: "user-d", Name: "Dave"}
	staffB = domain.Actor{ID: "staff-b", Name: "Bob", RoleIDs: []string{roleGeneral}}
	staffC = domain.Actor{ID: "staff-c", Name: "Carol", RoleIDs: []string{roleBilling}}
	admin  = domain.Actor{ID: "admin", Name: "Root", IsAdmin: true}
)

func testGuild() config.GuildConfig {
	return config.GuildConfig{
		GuildID:      "100",
		LogChannelID: logChannel,
		EmbedTitle:   "Support Tickets",
		EmbedText:    "Pick a reason below.",
		Categories: []domain.Category{
			{Key: "general", Label: "General Support", Description: "Anything else", Emoji: "🎫", ParentID: "cat-1", StaffRoleID: roleGeneral},
			{Key: "billing", Label: "Billing", Description: "Payments", Emoji: "💳", ParentID: "cat-2", StaffRoleID: roleBilling},
		},
	}
}

type harnessOption func(*harness, *TicketDependencies)

func withStore(store repository.TicketStore) harnessOption {
	return func(h *harness, deps *TicketDependencies) {
		h.store = store
		deps.Store = store
	}
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()
	h := &harness{
		store:    repository.NewMemoryStore(),
		platform: newFakePlatform(),
		exporter: &fakeExporter{},
		now:      time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return h.now }
	h.prompts = repository.NewMemoryPromptRepository(clock)
	guild := testGuild()

	ids := 0
	archive := NewArchiveService(ArchiveDependencies{
		Platform:     h.platform,
		Exporter:     h.exporter,
		Prompts:      h.prompts,
		LogChannelID: guild.LogChannelID,
		Categories:   guild.Categories,
		PromptTTL:    180 * time.Second,
		Now:          clock,
		NewID: func() string {
			ids++
			return fmt.Sprintf("prompt-%d", ids)
		},
	})
	deps := TicketDependencies{
		Store:    h.store,
		Prompts:  h.prompts,
		Platform: h.platform,
		Archive:  archive,
		Policy:   auth.NewStaffPolicy(guild.Categories),
		Guild:    guild,
		Now:      clock,
	}
	for _, opt := range opts {
		opt(h, &deps)
	}
	h.svc = NewTicketService(deps)
	return h
}

func (h *harness) open(t *testing.T, actor domain.Actor) (*domain.Ticket, domain.ChannelRef) {
	t.Helper()
	ticket, err := h.svc.Open(context.Background(), actor, "general")
	require.NoError(t, err)
	return ticket, domain.ChannelRef{ID: ticket.ChannelID, Name: h.platform.channels[ticket.ChannelID].Name}
}

func (h *harness) openTickets(t *testing.T, userID string) int {
	t.Helper()
	open, err := h.store.List(context.Background(), repository.TicketFilter{
		UserID:   &userID,
		Statuses: []domain.TicketStatus{domain.TicketStatusOpen},
		Limit:    1000,
	})
	require.NoError(t, err)
	return len(open)
}
