package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hazyhaar/leadsync/kv"
)

// StateKey is the kv key holding the backend session.
const StateKey = "auth:state"

// User is the backend account the session belongs to.
type User struct {
	ID     int64    `json:"id"`
	Name   string   `json:"name"`
	Email  string   `json:"email"`
	Avatar string   `json:"avatar,omitempty"`
	Roles  []string `json:"roles,omitempty"`
}

// State is the persisted backend session.
type State struct {
	Token           string          `json:"token"`
	IsAuthenticated bool            `json:"isAuthenticated"`
	User            *User           `json:"user"`
	Subscription    json.RawMessage `json:"subscription,omitempty"`
}

// TokenStore owns the backend session in a kv.Store. The gateway only
// reads the token and clears it on 401.
type TokenStore struct {
	kv kv.Store
}

// NewTokenStore returns a TokenStore over s.
func NewTokenStore(s kv.Store) *TokenStore {
	return &TokenStore{kv: s}
}

// Get returns the stored state, nil when signed out.
func (t *TokenStore) Get(ctx context.Context) (*State, error) {
	raw, err := t.kv.Get(ctx, StateKey)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var st State
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("auth: decode state: %w", err)
	}
	return &st, nil
}

// Set replaces the stored state.
func (t *TokenStore) Set(ctx context.Context, st *State) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("auth: encode state: %w", err)
	}
	return t.kv.Set(ctx, StateKey, raw)
}

// Clear signs out.
func (t *TokenStore) Clear(ctx context.Context) error {
	return t.kv.Delete(ctx, StateKey)
}

// Token returns the bearer token, "" when signed out.
func (t *TokenStore) Token(ctx context.Context) (string, error) {
	st, err := t.Get(ctx)
	if err != nil || st == nil {
		return "", err
	}
	return st.Token, nil
}
