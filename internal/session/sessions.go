package session

import (
	"context"
	"errors"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/preferences"
	"github.com/angelmondragon/storefront-backend/internal/wishlist"
)

// Sessions exposes one document as the separate cart, wishlist and preference
// stores. Each save rewrites only its own section of the freshly loaded document.
type Sessions struct {
	store Store
}

func NewSessions(store Store) (*Sessions, error) {
	if store == nil {
		return nil, errors.New("session store required")
	}
	return &Sessions{store: store}, nil
}

func (s *Sessions) LoadCart(ctx context.Context, sessionID string) (cart.State, error) {
	state, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return cart.State{}, err
	}
	return state.Cart, nil
}

func (s *Sessions) SaveCart(ctx context.Context, sessionID string, c cart.State) error {
	return s.update(ctx, sessionID, func(st *State) { st.Cart = c })
}

func (s *Sessions) LoadWishlist(ctx context.Context, sessionID string) (wishlist.State, error) {
	state, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return state.Wishlist, nil
}

func (s *Sessions) SaveWishlist(ctx context.Context, sessionID string, w wishlist.State) error {
	return s.update(ctx, sessionID, func(st *State) { st.Wishlist = w })
}

func (s *Sessions) LoadPreferences(ctx context.Context, sessionID string) (preferences.State, error) {
	state, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return preferences.State{}, err
	}
	return state.Preferences(), nil
}

func (s *Sessions) SavePreferences(ctx context.Context, sessionID string, p preferences.State) error {
	return s.update(ctx, sessionID, func(st *State) { st.setPreferences(p) })
}

func (s *Sessions) update(ctx context.Context, sessionID string, apply func(*State)) error {
	state, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return err
	}
	apply(&state)
	return s.store.Save(ctx, sessionID, state)
}

var (
	_ cart.Store        = (*Sessions)(nil)
	_ wishlist.Store    = (*Sessions)(nil)
	_ preferences.Store = (*Sessions)(nil)
)
