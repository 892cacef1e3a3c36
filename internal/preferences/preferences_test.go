package preferences

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type memStore struct {
	states  map[string]State
	saveErr error
}

func (m *memStore) LoadPreferences(_ context.Context, id string) (State, error) {
	return m.states[id], nil
}

func (m *memStore) SavePreferences(_ context.Context, id string, state State) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.states[id] = state
	return nil
}

func newTestService(t *testing.T, store Store) Service {
	t.Helper()
	svc, err := NewService(store, logger.New(logger.Options{ServiceName: "test", Output: &bytes.Buffer{}}))
	require.NoError(t, err)
	return svc
}

func TestStateDefaults(t *testing.T) {
	t.Parallel()

	st := State{}.Normalize()
	assert.False(t, st.AgeVerified)
	assert.Equal(t, enums.CookieConsentUnset, st.CookieConsent)
	assert.False(t, st.ConsentAnswered())
}

func TestSetConsentNeverReturnsToUnset(t *testing.T) {
	t.Parallel()

	var st State
	st.SetConsent(false)
	assert.Equal(t, enums.CookieConsentRejected, st.CookieConsent)
	st.SetConsent(true)
	assert.Equal(t, enums.CookieConsentAccepted, st.CookieConsent)
	assert.True(t, st.ConsentAnswered())
}

func TestNormalizeUnknownConsent(t *testing.T) {
	t.Parallel()

	st := State{CookieConsent: "maybe"}.Normalize()
	assert.Equal(t, enums.CookieConsentUnset, st.CookieConsent)
}

func TestServicePersistsAnswers(t *testing.T) {
	t.Parallel()

	store := &memStore{states: map[string]State{}}
	svc := newTestService(t, store)
	ctx := context.Background()

	st, err := svc.Get(ctx, "sess")
	require.NoError(t, err)
	assert.Equal(t, enums.CookieConsentUnset, st.CookieConsent)

	_, err = svc.SetAgeVerified(ctx, "sess", true)
	require.NoError(t, err)
	st, err = svc.SetCookieConsent(ctx, "sess", true)
	require.NoError(t, err)
	assert.True(t, st.AgeVerified)
	assert.Equal(t, State{AgeVerified: true, CookieConsent: enums.CookieConsentAccepted}, store.states["sess"])

	other, err := svc.Get(ctx, "other")
	require.NoError(t, err)
	assert.False(t, other.AgeVerified)
}

func TestServiceErrors(t *testing.T) {
	t.Parallel()

	_, err := NewService(nil, nil)
	assert.Error(t, err)

	store := &memStore{states: map[string]State{}, saveErr: errors.New("redis down")}
	svc := newTestService(t, store)
	_, err = svc.SetAgeVerified(context.Background(), "sess", true)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
	_, err = svc.Get(context.Background(), "")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
