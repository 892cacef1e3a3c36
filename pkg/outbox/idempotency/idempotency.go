package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

// Store is the redis surface the guard needs. *redis.Client satisfies it.
type Store interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

var _ Store = (*redis.Client)(nil)

// Guard remembers which envelope IDs a relay already appended to a stream,
// so a row whose publish mark failed is not appended twice on the next poll.
// Keys follow the `sf:idempotency:evt:relayed:<relay>:<event_id>` pattern.
type Guard struct {
	store Store
	ttl   time.Duration
}

// NewGuard builds a guard whose markers expire after ttl.
func NewGuard(store Store, ttl time.Duration) (*Guard, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	return &Guard{store: store, ttl: ttl}, nil
}

// Claim marks the event as relayed. It returns true when a marker was
// already present, meaning the event must not be appended again.
func (g *Guard) Claim(ctx context.Context, relay string, eventID uuid.UUID) (bool, error) {
	key, err := g.key(relay, eventID)
	if err != nil {
		return false, err
	}
	set, err := g.store.SetNX(ctx, key, "1", g.ttl)
	if err != nil {
		return false, err
	}
	return !set, nil
}

// Release drops the marker after a failed append so the next poll retries.
func (g *Guard) Release(ctx context.Context, relay string, eventID uuid.UUID) error {
	key, err := g.key(relay, eventID)
	if err != nil {
		return err
	}
	return g.store.Del(ctx, key)
}

func (g *Guard) key(relay string, eventID uuid.UUID) (string, error) {
	if relay == "" {
		return "", errors.New("relay name is required")
	}
	if eventID == uuid.Nil {
		return "", errors.New("event id is required")
	}
	return g.store.IdempotencyKey(fmt.Sprintf("evt:relayed:%s", relay), eventID.String()), nil
}
