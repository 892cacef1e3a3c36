package preferences

import (
	"context"
	"errors"
	"strings"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// Store persists preference state per shopper session.
type Store interface {
	LoadPreferences(ctx context.Context, sessionID string) (State, error)
	SavePreferences(ctx context.Context, sessionID string, state State) error
}

type Service interface {
	Get(ctx context.Context, sessionID string) (State, error)
	SetAgeVerified(ctx context.Context, sessionID string, verified bool) (State, error)
	SetCookieConsent(ctx context.Context, sessionID string, accepted bool) (State, error)
}

type service struct {
	store Store
	logg  *logger.Logger
}

// NewService builds the preferences service.
func NewService(store Store, logg *logger.Logger) (Service, error) {
	if store == nil {
		return nil, errors.New("preferences store required")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	return &service{store: store, logg: logg}, nil
}

func (s *service) Get(ctx context.Context, sessionID string) (State, error) {
	return s.load(ctx, sessionID)
}

func (s *service) SetAgeVerified(ctx context.Context, sessionID string, verified bool) (State, error) {
	return s.update(ctx, sessionID, func(st *State) { st.SetVerified(verified) })
}

func (s *service) SetCookieConsent(ctx context.Context, sessionID string, accepted bool) (State, error) {
	return s.update(ctx, sessionID, func(st *State) { st.SetConsent(accepted) })
}

func (s *service) update(ctx context.Context, sessionID string, apply func(*State)) (State, error) {
	state, err := s.load(ctx, sessionID)
	if err != nil {
		return State{}, err
	}
	apply(&state)
	if err := s.store.SavePreferences(ctx, sessionID, state); err != nil {
		return State{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save preferences")
	}
	s.logg.Debug(s.logg.WithSessionID(ctx, sessionID), "preferences updated")
	return state, nil
}

func (s *service) load(ctx context.Context, sessionID string) (State, error) {
	if strings.TrimSpace(sessionID) == "" {
		return State{}, pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	state, err := s.store.LoadPreferences(ctx, sessionID)
	if err != nil {
		return State{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load preferences")
	}
	return state.Normalize(), nil
}
