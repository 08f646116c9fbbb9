package repository

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/spec-kit/ticket-bot/internal/domain"
)

// ErrPromptExpired is returned for unknown, consumed or timed out rating prompts.
var ErrPromptExpired = errors.New("rating prompt expired")

// PromptRepository tracks rating prompts for their bounded lifetime.
type PromptRepository interface {
	Issue(ctx context.Context, prompt domain.RatingPrompt) error
	Resolve(ctx context.Context, id string) (*domain.RatingPrompt, error)
	Consume(ctx context.Context, id string) error
}

// MemoryPromptRepository keeps prompts in process memory and expires them lazily.
type MemoryPromptRepository struct {
	mu      sync.Mutex
	now     func() time.Time
	prompts map[string]domain.RatingPrompt
}

// NewMemoryPromptRepository builds a repository; now defaults to time.Now.
func NewMemoryPromptRepository(now func() time.Time) *MemoryPromptRepository {
	if now == nil {
		now = time.Now
	}
	return &MemoryPromptRepository{now: now, prompts: make(map[string]domain.RatingPrompt)}
}

func (r *MemoryPromptRepository) Issue(_ context.Context, prompt domain.RatingPrompt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweep()
	r.prompts[prompt.ID] = prompt
	return nil
}

func (r *MemoryPromptRepository) Resolve(_ context.Context, id string) (*domain.RatingPrompt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.prompts[id]
	if !ok {
		return nil, ErrPromptExpired
	}
	if !r.now().Before(p.ExpiresAt) {
		delete(r.prompts, id)
		return nil, ErrPromptExpired
	}
	return &p, nil
}

func (r *MemoryPromptRepository) Consume(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.prompts, id)
	return nil
}

// Sweep drops every expired prompt and reports how many were removed.
func (r *MemoryPromptRepository) Sweep(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sweep(), nil
}

func (r *MemoryPromptRepository) sweep() int {
	now := r.now()
	removed := 0
	for id, p := range r.prompts {
		if !now.Before(p.ExpiresAt) {
			delete(r.prompts, id)
			removed++
		}
	}
	return removed
}
