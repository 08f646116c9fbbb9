package repository

import (
	"context"
	"sync"

	"github.com/spec-kit/ticket-bot/internal/domain"
)

// MemoryStore keeps tickets in process memory. All operations serialize on one lock.
type MemoryStore struct {
	mu  sync.Mutex
	doc *document
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{doc: newDocument()}
}

func (s *MemoryStore) Create(_ context.Context, nt NewTicket) (*domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.create(nt)
}

func (s *MemoryStore) Get(_ context.Context, channelID string) (*domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.get(channelID)
}

func (s *MemoryStore) GetByID(_ context.Context, id int64) (*domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.getByID(id)
}

func (s *MemoryStore) List(_ context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.list(filter), nil
}

func (s *MemoryStore) Update(_ context.Context, channelID string, mutate Mutator) (*domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, _, err := s.doc.update(channelID, mutate)
	return t, err
}

func (s *MemoryStore) HasOpenTicket(_ context.Context, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.hasOpenTicket(userID), nil
}

func (s *MemoryStore) IsBlocked(_ context.Context, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.isBlocked(userID), nil
}

func (s *MemoryStore) Block(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.block(userID)
	return nil
}

func (s *MemoryStore) Unblock(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.unblock(userID)
	return nil
}

func (s *MemoryStore) ListBlocked(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.listBlocked(), nil
}
