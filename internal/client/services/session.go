// Package services contains application services for the authkeeper client.
// This file defines the session manager: it owns who is signed in, keeps the
// renewal credential in durable storage, and renews the access credential at
// startup.
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/client/client"
	"github.com/dmitrijs2005/authkeeper/internal/client/models"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"golang.org/x/sync/semaphore"
)

// Status is derived from the session's owned fields; it is never stored.
type Status string

const (
	StatusLoading         Status = "loading"
	StatusAuthenticated   Status = "authenticated"
	StatusUnauthenticated Status = "unauthenticated"
)

const (
	loginFailedMessage        = "Login failed"
	registrationFailedMessage = "Registration failed"
)

// errEmptyResult stands in for a client that reported success without data.
var errEmptyResult = errors.New("auth api returned no result")

// State is an immutable snapshot of the session as consumers see it.
// User is non-nil exactly when Status is StatusAuthenticated.
type State struct {
	Status Status
	User   *models.User
	// Error is the message of the last failed login or registration, or "".
	Error string
	// Busy is true while a login or registration request is in flight.
	Busy bool
	// AccessExpiresAt is the exp claim of the last access token received in
	// a response body; zero when unknown.
	AccessExpiresAt time.Time
}

type listener struct {
	id int
	fn func(State)
}

// SessionManager is the single owner of client authentication state.
//
// Mutating operations (Initialize, Login, Register, Logout) run one at a
// time in call order. A network call, once issued, runs to completion even if
// the caller's context is cancelled; only the HTTP client's timeout bounds it.
// Safe for concurrent use.
type SessionManager struct {
	api   client.Client
	store CredentialStore
	log   logging.Logger

	ops *semaphore.Weighted

	mu              sync.RWMutex
	user            *models.User
	refreshToken    string
	errMsg          string
	busy            bool
	resolved        bool
	initialized     bool
	accessExpiresAt time.Time

	// notifyMu orders publication so listeners see snapshots in mutation order.
	notifyMu    sync.Mutex
	listenersMu sync.Mutex
	listeners   []listener
	nextID      int
}

// NewSessionManager builds a session in the Loading state and reads the
// stored renewal credential. A store read failure is logged and treated as
// "nothing stored".
func NewSessionManager(ctx context.Context, api client.Client, store CredentialStore, log logging.Logger) *SessionManager {
	s := &SessionManager{
		api:   api,
		store: store,
		log:   log.With("component", "session"),
		ops:   semaphore.NewWeighted(1),
	}

	tok, err := store.Load(ctx)
	if err != nil {
		s.log.Warn(ctx, "could not read stored credential", "error", err)
		tok = ""
	}
	s.refreshToken = tok
	return s
}

// State returns the current snapshot.
func (s *SessionManager) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Subscribe registers fn to receive every published snapshot, synchronously
// and in order. fn must not call mutating methods of the session.
func (s *SessionManager) Subscribe(fn func(State)) (unsubscribe func()) {
	s.listenersMu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners = append(s.listeners, listener{id: id, fn: fn})
	s.listenersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.listenersMu.Lock()
			defer s.listenersMu.Unlock()
			for i, l := range s.listeners {
				if l.id == id {
					s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

// Initialize resolves the session once per manager:
//
//  1. ask the backend who the ambient access cookie belongs to;
//  2. failing that, renew with the stored credential, at most once;
//  3. failing that, drop the stored credential.
//
// It never fails; the worst outcome is StatusUnauthenticated. If another
// mutating operation settled first, Initialize does nothing.
func (s *SessionManager) Initialize(ctx context.Context) State {
	ctx = context.WithoutCancel(ctx)
	_ = s.ops.Acquire(ctx, 1)
	defer s.ops.Release(1)

	s.mu.Lock()
	if s.initialized || s.resolved {
		s.initialized = true
		st := s.snapshotLocked()
		s.mu.Unlock()
		return st
	}
	s.initialized = true
	stored := s.refreshToken
	s.mu.Unlock()

	user, err := s.api.CurrentUser(ctx)
	if err == nil && user == nil {
		err = errEmptyResult
	}
	if err == nil {
		st := s.update(func() {
			s.user = user.Clone()
			s.resolved = true
		})
		s.log.Info(ctx, "session restored from access cookie", "user_id", user.ID)
		return st
	}

	if stored == "" {
		s.log.Info(ctx, "no active session", "reason", err)
		return s.update(func() { s.resolved = true })
	}

	res, err := s.api.Refresh(ctx, stored)
	if err == nil && res == nil {
		err = errEmptyResult
	}
	if err != nil {
		s.log.Warn(ctx, "renewal failed, clearing stored credential", "error", err)
		if cerr := s.store.Clear(ctx); cerr != nil {
			s.log.Error(ctx, "could not clear stored credential", "error", cerr)
		}
		return s.update(func() {
			s.clearLocked()
			s.resolved = true
		})
	}

	s.persist(ctx, res.RefreshToken)
	exp := s.accessExpiry(ctx, res.AccessToken)
	st := s.update(func() {
		s.adoptLocked(res, exp)
		s.resolved = true
	})
	s.log.Info(ctx, "session renewed", "user_id", res.User.ID)
	return st
}

// Login signs in with email and password. The outcome is reported twice:
// in the returned State (and to subscribers) and as the returned error.
func (s *SessionManager) Login(ctx context.Context, email, password string) (State, error) {
	return s.authenticate(ctx, "login", loginFailedMessage, func(ctx context.Context) (*models.AuthResult, error) {
		return s.api.Login(ctx, email, password)
	})
}

// Register creates an account and signs in with it. Same contract as Login.
func (s *SessionManager) Register(ctx context.Context, username, email, password string) (State, error) {
	return s.authenticate(ctx, "registration", registrationFailedMessage, func(ctx context.Context) (*models.AuthResult, error) {
		return s.api.Register(ctx, username, email, password)
	})
}

// Logout tells the backend to revoke the renewal credential, if one is held,
// and then clears the session locally regardless of the outcome.
func (s *SessionManager) Logout(ctx context.Context) State {
	ctx = context.WithoutCancel(ctx)
	_ = s.ops.Acquire(ctx, 1)
	defer s.ops.Release(1)

	s.mu.RLock()
	tok := s.refreshToken
	s.mu.RUnlock()

	if tok != "" {
		if err := s.api.Logout(ctx, tok); err != nil {
			s.log.Warn(ctx, "logout notification failed", "error", err)
		}
	}
	if err := s.store.Clear(ctx); err != nil {
		s.log.Error(ctx, "could not clear stored credential", "error", err)
	}

	st := s.update(func() {
		s.clearLocked()
		s.busy = false
		s.resolved = true
	})
	s.log.Info(ctx, "signed out")
	return st
}

// ClearError drops the last error message. Nothing else changes.
func (s *SessionManager) ClearError() State {
	s.mu.RLock()
	has := s.errMsg != ""
	s.mu.RUnlock()

	if !has {
		return s.State()
	}
	return s.update(func() { s.errMsg = "" })
}

// authenticate runs a login-style call. A caller whose ctx ends while the
// call is still queued gets ctx.Err() and nothing changes.
func (s *SessionManager) authenticate(ctx context.Context, op, fallback string, call func(context.Context) (*models.AuthResult, error)) (State, error) {
	if err := s.ops.Acquire(ctx, 1); err != nil {
		return s.State(), err
	}
	defer s.ops.Release(1)
	ctx = context.WithoutCancel(ctx)

	s.update(func() {
		s.errMsg = ""
		s.busy = true
	})

	res, err := call(ctx)
	if err == nil && res == nil {
		err = errEmptyResult
	}
	if err != nil {
		msg := err.Error()
		if msg == "" || errors.Is(err, errEmptyResult) {
			msg = fallback
		}
		st := s.update(func() {
			s.user = nil
			s.accessExpiresAt = time.Time{}
			s.errMsg = msg
			s.busy = false
			s.resolved = true
		})
		s.log.Warn(ctx, op+" failed", "error", err)
		return st, fmt.Errorf("%s: %w", op, err)
	}

	s.persist(ctx, res.RefreshToken)
	exp := s.accessExpiry(ctx, res.AccessToken)
	st := s.update(func() {
		s.adoptLocked(res, exp)
		s.busy = false
		s.resolved = true
	})
	s.log.Info(ctx, op+" succeeded", "user_id", res.User.ID)
	return st, nil
}

// persist writes the credential to durable storage. A write failure leaves
// the in-memory session intact; it only costs the next process a login.
func (s *SessionManager) persist(ctx context.Context, tok string) {
	if err := s.store.Save(ctx, tok); err != nil {
		s.log.Error(ctx, "could not persist credential", "error", err)
	}
}

func (s *SessionManager) accessExpiry(ctx context.Context, tok string) time.Time {
	if tok == "" {
		return time.Time{}
	}
	exp, err := client.AccessTokenExpiry(tok)
	if err != nil {
		s.log.Debug(ctx, "access token expiry unknown", "error", err)
		return time.Time{}
	}
	return exp
}

// update applies fn under the state lock and publishes the result.
func (s *SessionManager) update(fn func()) State {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	fn()
	st := s.snapshotLocked()
	s.mu.Unlock()

	s.listenersMu.Lock()
	ls := make([]listener, len(s.listeners))
	copy(ls, s.listeners)
	s.listenersMu.Unlock()

	for _, l := range ls {
		l.fn(st)
	}
	return st
}

func (s *SessionManager) adoptLocked(res *models.AuthResult, exp time.Time) {
	u := res.User
	s.user = &u
	s.refreshToken = res.RefreshToken
	s.accessExpiresAt = exp
}

func (s *SessionManager) clearLocked() {
	s.user = nil
	s.refreshToken = ""
	s.accessExpiresAt = time.Time{}
}

func (s *SessionManager) snapshotLocked() State {
	st := State{
		User:            s.user.Clone(),
		Error:           s.errMsg,
		Busy:            s.busy,
		AccessExpiresAt: s.accessExpiresAt,
	}
	switch {
	case s.user != nil:
		st.Status = StatusAuthenticated
	case !s.resolved:
		st.Status = StatusLoading
	default:
		st.Status = StatusUnauthenticated
	}
	return st
}
