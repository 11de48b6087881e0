package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// HeaderIdempotencyKey is the inbound header checked before falling back to
// a JSON-field-derived idempotency key.
const HeaderIdempotencyKey = "Idempotency-Key"

// ErrDuplicate is returned by Service.CheckAndSet when key was already set
// and has not yet expired.
var ErrDuplicate = errors.New("webhook: duplicate delivery")

// ErrKeyNotFound is returned by DeriveKey when neither the header nor the
// requested JSON field could produce a usable key.
var ErrKeyNotFound = errors.New("webhook: idempotency key not found")

// RedisClient is the subset of a Redis client Service needs for dedup.
type RedisClient interface {
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) (bool, error)
}

// Service performs idempotent-delivery suppression.
type Service interface {
	CheckAndSet(ctx context.Context, key string, ttl time.Duration) error
}

type redisSvc struct {
	client RedisClient
}

// NewRedisService builds a Service backed by client.
func NewRedisService(client RedisClient) Service {
	return &redisSvc{client: client}
}

// CheckAndSet atomically claims key for ttl, returning ErrDuplicate if it
// was already claimed.
func (s *redisSvc) CheckAndSet(ctx context.Context, key string, ttl time.Duration) error {
	ok, err := s.client.SetNX(ctx, key, 1, ttl)
	if err != nil {
		return fmt.Errorf("webhook: redis setnx failed: %w", err)
	}
	if !ok {
		return ErrDuplicate
	}
	return nil
}

// DeriveKey resolves an idempotency key from the HeaderIdempotencyKey header
// first, falling back to a (possibly dotted) field path in the JSON body.
func DeriveKey(h http.Header, body []byte, jsonField string) (string, error) {
	if v := strings.TrimSpace(h.Get(HeaderIdempotencyKey)); v != "" {
		return v, nil
	}

	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return "", fmt.Errorf("webhook: invalid json body: %w", err)
	}

	cur := doc
	parts := strings.Split(jsonField, ".")
	for i, part := range parts {
		m, ok := cur.(map[string]any)
		if !ok {
			return "", ErrKeyNotFound
		}
		val, exists := m[part]
		if !exists {
			return "", ErrKeyNotFound
		}
		if i == len(parts)-1 {
			s := fmt.Sprintf("%v", val)
			if strings.TrimSpace(s) == "" {
				return "", ErrKeyNotFound
			}
			return s, nil
		}
		cur = val
	}
	return "", ErrKeyNotFound
}
