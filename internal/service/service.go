// Package service is the auth flow controller: it orchestrates login,
// registration and logout against the backend, owns every session mutation,
// and proxies dashboard calls with the clear-on-401 rule applied.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gofrs/uuid/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/ddfinv/portal/internal/clients/ddfinv"
	"github.com/ddfinv/portal/internal/entity"
	"github.com/ddfinv/portal/internal/guard"
	"github.com/ddfinv/portal/internal/rbac"
	"github.com/ddfinv/portal/pkg/broker"
	"github.com/ddfinv/portal/pkg/config"
)

// SessionStore is the slice of the session store the controller writes.
// Nothing else in the gateway mutates session state.
type SessionStore interface {
	SetSession(ctx context.Context, sid, token string, user entity.UserAccount) error
	Session(ctx context.Context, sid string) (entity.Session, error)
	Clear(ctx context.Context, sid string) error
	IsValid(ctx context.Context, sid string) bool
	Invalidate(sid string)
}

type BackendClient interface {
	Authenticate(ctx context.Context, email, password string) (ddfinv.AuthenticateResponse, error)
	Register(ctx context.Context, req ddfinv.RegisterRequest) error
	Logout(ctx context.Context, token string) error
	SessionProfile(ctx context.Context, token string) (entity.UserAccount, error)
	Fetch(ctx context.Context, token, path string) (json.RawMessage, error)
	Send(ctx context.Context, token, method, path string, payload any) (json.RawMessage, error)
}

type EventPublisher interface {
	PublishSessionEvent(ctx context.Context, eventType, sessionID, origin string)
}

type Service struct {
	cfg     config.Config
	store   SessionStore
	backend BackendClient
	events  EventPublisher
	guard   *guard.Guard

	// instanceID marks events published by this process so the consumer
	// can skip its own notifications.
	instanceID string
}

func NewService(
	cfg config.Config,
	store SessionStore,
	backend BackendClient,
	events EventPublisher,
	g *guard.Guard,
) *Service {
	return &Service{
		cfg:        cfg,
		store:      store,
		backend:    backend,
		events:     events,
		guard:      g,
		instanceID: uuid.Must(uuid.NewV4()).String(),
	}
}

func (s *Service) InstanceID() string {
	return s.instanceID
}

// Login authenticates against the backend and, on success, performs the
// single session mutation: token and user record persisted atomically.
// It returns the landing route the guard resolves for the new session.
// On any failure the prior session is left untouched.
func (s *Service) Login(ctx context.Context, sid, email, password string) (string, error) {
	email, err := NormalizeEmail(email)
	if err != nil {
		return "", err
	}

	resp, err := s.backend.Authenticate(ctx, email, password)
	if err != nil {
		return "", fmt.Errorf("authenticate: %w", err)
	}

	role, err := entity.ParseRole(resp.Role)
	if err != nil {
		// The backend may answer with a role this gateway does not know
		// yet. Fall back to the most limited one instead of refusing a
		// successful authentication.
		slog.WarnContext(ctx, "unknown role in authentication response", "role", resp.Role)
		role = entity.RoleRestricted
	}

	user := entity.UserAccount{
		ID:          resp.ID,
		Email:       resp.Email,
		FirstName:   resp.FirstName,
		LastName:    resp.LastName,
		Role:        role,
		Permissions: entity.ParsePermissions(resp.Permissions),
	}

	if user.Email == "" {
		user.Email = email
	}

	err = s.store.SetSession(ctx, sid, resp.Token, user)
	if err != nil {
		return "", fmt.Errorf("persist session: %w", err)
	}

	s.events.PublishSessionEvent(ctx, broker.SessionEventCreated, sid, s.instanceID)

	snap, err := rbac.SnapshotFor(user)
	if err != nil {
		return guard.PathDashboard, nil
	}

	return s.guard.Landing(snap), nil
}

// Register validates locally, then forwards to the backend. Registration
// never mutates the session.
func (s *Service) Register(ctx context.Context, firstName, lastName, email, password string) error {
	if err := ValidateName(firstName); err != nil {
		return err
	}

	if err := ValidateName(lastName); err != nil {
		return err
	}

	email, err := NormalizeEmail(email)
	if err != nil {
		return err
	}

	if err := ValidatePassword(password); err != nil {
		return err
	}

	err = s.backend.Register(ctx, ddfinv.RegisterRequest{
		FirstName: firstName,
		LastName:  lastName,
		Email:     email,
		Password:  password,
	})
	if err != nil {
		return fmt.Errorf("register: %w", err)
	}

	return nil
}

// Logout clears the session and tells the backend to drop the token.
// Safe to call with no session at all.
func (s *Service) Logout(ctx context.Context, sid string) error {
	sess, err := s.store.Session(ctx, sid)
	if err == nil && sess.Present() {
		err = s.backend.Logout(ctx, sess.Token)
		if err != nil {
			// Best effort: the token expires on its own.
			slog.WarnContext(ctx, "backend logout failed", "error", err.Error())
		}
	}

	err = s.store.Clear(ctx, sid)
	if err != nil {
		return fmt.Errorf("clear session: %w", err)
	}

	s.events.PublishSessionEvent(ctx, broker.SessionEventRevoked, sid, s.instanceID)

	return nil
}

// CurrentSession returns the persisted session for handlers that render it.
func (s *Service) CurrentSession(ctx context.Context, sid string) (entity.Session, bool, error) {
	sess, err := s.store.Session(ctx, sid)
	if err != nil {
		return entity.Session{}, false, err
	}

	return sess, s.store.IsValid(ctx, sid), nil
}

// Proxy forwards a dashboard call to the backend with the session's token.
// A backend-confirmed 401 clears the session; a 403 never does — it only
// means this actor may not do that, not that the actor is gone. Network
// failures preserve all state.
func (s *Service) Proxy(ctx context.Context, sid, method, path string, payload any) (json.RawMessage, error) {
	sess, err := s.store.Session(ctx, sid)
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}

	if !sess.Present() {
		return nil, entity.ErrNoSession
	}

	var raw json.RawMessage

	if method == http.MethodGet {
		raw, err = s.backend.Fetch(ctx, sess.Token, path)
	} else {
		raw, err = s.backend.Send(ctx, sess.Token, method, path, payload)
	}

	if errors.Is(err, entity.ErrUnauthorized) {
		s.expireSession(ctx, sid)
		return nil, err
	}

	return raw, err
}

// expireSession is the clear-on-401 path: the only session write outside
// of Login and Logout.
func (s *Service) expireSession(ctx context.Context, sid string) {
	err := s.store.Clear(ctx, sid)
	if err != nil {
		slog.ErrorContext(ctx, "clear session after 401", "error", err.Error())
		return
	}

	s.events.PublishSessionEvent(ctx, broker.SessionEventRevoked, sid, s.instanceID)
}

// RevokeSession serves the internal operator endpoint. The credential is
// checked against the configured bcrypt hash; with no hash configured the
// endpoint is disabled.
func (s *Service) RevokeSession(ctx context.Context, credential, sid string) error {
	if s.cfg.InternalCredentialHash == "" {
		return entity.ErrForbidden
	}

	err := bcrypt.CompareHashAndPassword([]byte(s.cfg.InternalCredentialHash), []byte(credential))
	if err != nil {
		return entity.ErrForbidden
	}

	err = s.store.Clear(ctx, sid)
	if err != nil {
		return fmt.Errorf("clear session: %w", err)
	}

	s.events.PublishSessionEvent(ctx, broker.SessionEventRevoked, sid, s.instanceID)

	return nil
}

// HandleSessionEvent consumes the session topic: a change produced by
// another instance invalidates the local derived state for that session id.
func (s *Service) HandleSessionEvent(_ context.Context, event broker.SessionEvent) error {
	if event.Origin == s.instanceID {
		return nil
	}

	if event.SessionID == "" {
		return fmt.Errorf("session event without session id")
	}

	s.store.Invalidate(event.SessionID)

	return nil
}
