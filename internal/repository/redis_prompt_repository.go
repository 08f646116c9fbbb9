package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/ticket-bot/internal/domain"
)

// RedisPromptRepository stores prompts as keys that expire with the prompt.
type RedisPromptRepository struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisPromptRepository wraps client; now defaults to time.Now.
func NewRedisPromptRepository(client *redis.Client, now func() time.Time) *RedisPromptRepository {
	if now == nil {
		now = time.Now
	}
	return &RedisPromptRepository{client: client, now: now}
}

func (r *RedisPromptRepository) Issue(ctx context.Context, prompt domain.RatingPrompt) error {
	ttl := prompt.ExpiresAt.Sub(r.now())
	if ttl <= 0 {
		return ErrPromptExpired
	}
	body, err := json.Marshal(prompt)
	if err != nil {
		return fmt.Errorf("encode prompt: %w", err)
	}
	return r.client.Set(ctx, promptKey(prompt.ID), body, ttl).Err()
}

func (r *RedisPromptRepository) Resolve(ctx context.Context, id string) (*domain.RatingPrompt, error) {
	body, err := r.client.Get(ctx, promptKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrPromptExpired
	}
	if err != nil {
		return nil, err
	}
	var prompt domain.RatingPrompt
	if err := json.Unmarshal(body, &prompt); err != nil {
		return nil, fmt.Errorf("decode prompt %s: %w", id, err)
	}
	return &prompt, nil
}

func (r *RedisPromptRepository) Consume(ctx context.Context, id string) error {
	return r.client.Del(ctx, promptKey(id)).Err()
}

func promptKey(id string) string {
	return fmt.Sprintf("ticket:rating:%s", id)
}

var (
	_ PromptRepository = (*MemoryPromptRepository)(nil)
	_ PromptRepository = (*RedisPromptRepository)(nil)
)
