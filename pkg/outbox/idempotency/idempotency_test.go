package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	keys        map[string]bool
	setNXError  error
	lastTTL     time.Duration
	lastDeleted string
}

func newFakeStore() *fakeStore {
	return &fakeStore{keys: map[string]bool{}}
}

func (f *fakeStore) Get(context.Context, string) (string, error) {
	return "", nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, _ any, ttl time.Duration) (bool, error) {
	if f.setNXError != nil {
		return false, f.setNXError
	}
	f.lastTTL = ttl
	if f.keys[key] {
		return false, nil
	}
	f.keys[key] = true
	return true, nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return "sf:idempotency:" + scope + ":" + id
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.keys, key)
		f.lastDeleted = key
	}
	return nil
}

func TestClaimOnlyOnce(t *testing.T) {
	store := newFakeStore()
	guard, err := NewGuard(store, 24*time.Hour)
	require.NoError(t, err)
	eventID := uuid.New()

	already, err := guard.Claim(context.Background(), "outbox-publisher", eventID)
	require.NoError(t, err)
	assert.False(t, already)
	assert.Equal(t, 24*time.Hour, store.lastTTL)
	assert.True(t, store.keys["sf:idempotency:evt:relayed:outbox-publisher:"+eventID.String()])

	already, err = guard.Claim(context.Background(), "outbox-publisher", eventID)
	require.NoError(t, err)
	assert.True(t, already)
}

func TestReleaseAllowsRetry(t *testing.T) {
	store := newFakeStore()
	guard, err := NewGuard(store, time.Hour)
	require.NoError(t, err)
	eventID := uuid.New()

	_, err = guard.Claim(context.Background(), "outbox-publisher", eventID)
	require.NoError(t, err)
	require.NoError(t, guard.Release(context.Background(), "outbox-publisher", eventID))
	assert.Equal(t, "sf:idempotency:evt:relayed:outbox-publisher:"+eventID.String(), store.lastDeleted)

	already, err := guard.Claim(context.Background(), "outbox-publisher", eventID)
	require.NoError(t, err)
	assert.False(t, already)
}

func TestClaimErrors(t *testing.T) {
	guard, err := NewGuard(&fakeStore{keys: map[string]bool{}, setNXError: errors.New("boom")}, time.Hour)
	require.NoError(t, err)

	_, err = guard.Claim(context.Background(), "outbox-publisher", uuid.New())
	assert.Error(t, err)
	_, err = guard.Claim(context.Background(), "", uuid.New())
	assert.Error(t, err)
	_, err = guard.Claim(context.Background(), "outbox-publisher", uuid.Nil)
	assert.Error(t, err)
}

func TestNewGuardValidation(t *testing.T) {
	_, err := NewGuard(nil, time.Hour)
	assert.Error(t, err)
	_, err = NewGuard(newFakeStore(), -time.Second)
	assert.Error(t, err)
}
