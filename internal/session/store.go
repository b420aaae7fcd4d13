// Package session owns the persisted session: one token key and one
// JSON user-record key per browser session id. The store is the single
// source of truth; everything else holds derived views.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/ddfinv/portal/internal/entity"
)

// KV is the durable key/value backend. Set persists all entries atomically:
// readers observe the whole write or none of it.
type KV interface {
	Set(ctx context.Context, entries map[string]string) error
	Get(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, keys ...string) error
}

func tokenKey(sid string) string { return "session:" + sid + ":token" }
func userKey(sid string) string  { return "session:" + sid + ":user" }

type Store struct {
	kv KV

	mu   sync.RWMutex
	subs []func(sid string)
}

func NewStore(kv KV) *Store {
	return &Store{kv: kv}
}

// Subscribe registers a change listener. Listeners run synchronously from
// the write that triggered them, so a subscriber never observes a session
// update out of order relative to the write.
func (s *Store) Subscribe(fn func(sid string)) {
	s.mu.Lock()
	s.subs = append(s.subs, fn)
	s.mu.Unlock()
}

func (s *Store) notify(sid string) {
	s.mu.RLock()
	subs := s.subs
	s.mu.RUnlock()

	for _, fn := range subs {
		fn(sid)
	}
}

// Invalidate fans a change made by another gateway instance out to local
// subscribers. The shared store already holds the new state.
func (s *Store) Invalidate(sid string) {
	s.notify(sid)
}

func (s *Store) SetSession(ctx context.Context, sid, token string, user entity.UserAccount) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("marshal user record: %w", err)
	}

	err = s.kv.Set(ctx, map[string]string{
		tokenKey(sid): token,
		userKey(sid):  string(raw),
	})
	if err != nil {
		return fmt.Errorf("persist session: %w", err)
	}

	s.notify(sid)

	return nil
}

func (s *Store) Token(ctx context.Context, sid string) (string, error) {
	token, err := s.kv.Get(ctx, tokenKey(sid))
	if errors.Is(err, entity.ErrNotFound) {
		return "", nil
	}

	return token, err
}

func (s *Store) User(ctx context.Context, sid string) (entity.UserAccount, error) {
	raw, err := s.kv.Get(ctx, userKey(sid))
	if errors.Is(err, entity.ErrNotFound) {
		return entity.UserAccount{}, nil
	}

	if err != nil {
		return entity.UserAccount{}, err
	}

	var user entity.UserAccount

	err = json.Unmarshal([]byte(raw), &user)
	if err != nil {
		return entity.UserAccount{}, fmt.Errorf("decode user record: %w", err)
	}

	return user, nil
}

func (s *Store) Session(ctx context.Context, sid string) (entity.Session, error) {
	token, err := s.Token(ctx, sid)
	if err != nil {
		return entity.Session{}, err
	}

	if token == "" {
		return entity.Session{}, nil
	}

	user, err := s.User(ctx, sid)
	if err != nil {
		// A readable token with a corrupt user record still identifies the
		// actor; the resolver re-fetches the profile.
		return entity.Session{Token: token}, nil
	}

	return entity.Session{Token: token, User: user}, nil
}

// Clear removes both keys. Safe to call when no session exists.
func (s *Store) Clear(ctx context.Context, sid string) error {
	err := s.kv.Delete(ctx, tokenKey(sid), userKey(sid))
	if err != nil {
		return fmt.Errorf("clear session: %w", err)
	}

	s.notify(sid)

	return nil
}

// IsValid reports whether a token exists and its exp claim lies in the
// future. The claim is decoded without signature verification, which is the
// backend's job. Malformed tokens and tokens without an exp claim are
// invalid: the check fails closed.
func (s *Store) IsValid(ctx context.Context, sid string) bool {
	token, err := s.Token(ctx, sid)
	if err != nil || token == "" {
		return false
	}

	return TokenValid(token, time.Now())
}

func TokenValid(token string, now time.Time) bool {
	var claims jwt.RegisteredClaims

	_, _, err := jwt.NewParser().ParseUnverified(token, &claims)
	if err != nil {
		return false
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}

	return exp.After(now)
}
