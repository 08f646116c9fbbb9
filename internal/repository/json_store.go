package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/natefinch/atomic"

	"github.com/spec-kit/ticket-bot/internal/domain"
)

// JSONStore persists the ticket document in a single JSON file.
//
// The file is re-read on every operation and replaced atomically on every
// write, so the file on disk is always the authoritative state. The mutex
// serializes read-modify-write cycles within this process; the file must not
// be shared between processes.
type JSONStore struct {
	mu   sync.Mutex
	path string
}

// NewJSONStore returns a store backed by path. The file is created on first write.
func NewJSONStore(path string) *JSONStore {
	return &JSONStore{path: path}
}

func (s *JSONStore) load() (*document, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return newDocument(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return newDocument(), nil
	}
	doc, err := decodeDocument(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.path, err)
	}
	return doc, nil
}

func (s *JSONStore) save(doc *document) error {
	data, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return fmt.Errorf("encode ticket document: %w", err)
	}
	if err := atomic.WriteFile(s.path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	return nil
}

// read runs fn against a freshly loaded document without writing it back.
func (s *JSONStore) read(fn func(doc *document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load()
	if err != nil {
		return err
	}
	return fn(doc)
}

// write runs fn and saves the document when fn reports a change.
func (s *JSONStore) write(fn func(doc *document) (bool, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load()
	if err != nil {
		return err
	}
	changed, err := fn(doc)
	if err != nil || !changed {
		return err
	}
	return s.save(doc)
}

func (s *JSONStore) Create(_ context.Context, nt NewTicket) (*domain.Ticket, error) {
	var created *domain.Ticket
	err := s.write(func(doc *document) (bool, error) {
		t, err := doc.create(nt)
		if err != nil {
			return false, err
		}
		created = t
		return true, nil
	})
	return created, err
}

func (s *JSONStore) Get(_ context.Context, channelID string) (*domain.Ticket, error) {
	var found *domain.Ticket
	err := s.read(func(doc *document) error {
		t, err := doc.get(channelID)
		found = t
		return err
	})
	return found, err
}

func (s *JSONStore) GetByID(_ context.Context, id int64) (*domain.Ticket, error) {
	var found *domain.Ticket
	err := s.read(func(doc *document) error {
		t, err := doc.getByID(id)
		found = t
		return err
	})
	return found, err
}

func (s *JSONStore) List(_ context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	var out []domain.Ticket
	err := s.read(func(doc *document) error {
		out = doc.list(filter)
		return nil
	})
	return out, err
}

func (s *JSONStore) Update(_ context.Context, channelID string, mutate Mutator) (*domain.Ticket, error) {
	var updated *domain.Ticket
	err := s.write(func(doc *document) (bool, error) {
		t, changed, err := doc.update(channelID, mutate)
		updated = t
		return changed, err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *JSONStore) HasOpenTicket(_ context.Context, userID string) (bool, error) {
	var open bool
	err := s.read(func(doc *document) error {
		open = doc.hasOpenTicket(userID)
		return nil
	})
	return open, err
}

func (s *JSONStore) IsBlocked(_ context.Context, userID string) (bool, error) {
	var blocked bool
	err := s.read(func(doc *document) error {
		blocked = doc.isBlocked(userID)
		return nil
	})
	return blocked, err
}

func (s *JSONStore) Block(_ context.Context, userID string) error {
	return s.write(func(doc *document) (bool, error) {
		return doc.block(userID), nil
	})
}

func (s *JSONStore) Unblock(_ context.Context, userID string) error {
	return s.write(func(doc *document) (bool, error) {
		return doc.unblock(userID), nil
	})
}

func (s *JSONStore) ListBlocked(_ context.Context) ([]string, error) {
	var out []string
	err := s.read(func(doc *document) error {
		out = doc.listBlocked()
		return nil
	})
	return out, err
}
