package portalx

import (
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// Storage keys for the persisted session triple. The triple is one logical
// entity: either all three entries agree or the session is invalid.
const (
	storageKeyToken           = "token"
	storageKeyIsAuthenticated = "isAuthenticated"
	storageKeyUser            = "user"

	// transientPrefix namespaces ephemeral per-surface state that is wiped
	// on logout but is otherwise outside the session contract.
	transientPrefix = "tab."
)

// Session is the authenticated identity read from durable storage.
type Session struct {
	Token           string
	User            UserProfile
	IsAuthenticated bool
}

// TokenExpiresAt inspects the bearer token locally, without verifying its
// signature. Informational only: session validity is decided by the stored
// triple and by the server's 401 responses, never by this inspection.
func (s *Session) TokenExpiresAt() (time.Time, bool) {
	if s == nil || s.Token == "" {
		return time.Time{}, false
	}
	parsed, err := jwt.Parse([]byte(s.Token), jwt.WithVerify(false), jwt.WithValidate(false))
	if err != nil {
		return time.Time{}, false
	}
	exp := parsed.Expiration()
	if exp.IsZero() {
		return time.Time{}, false
	}
	return exp, true
}

// SessionListener observes session changes. A nil session means logged out.
// Listeners must return quickly; they may subscribe, unsubscribe, or mutate
// the store, and any notifications that causes are delivered after the
// current one, in order.
type SessionListener func(*Session)

type listenerEntry struct {
	id uuid.UUID
	fn SessionListener
}

// delivery is one pending notification: the state to report and the listeners
// registered at the time the change was applied.
type delivery struct {
	targets []listenerEntry
	session *Session
}

// SessionStore is the single authority over the persisted session. All
// components read credentials through it and observe changes through
// Subscribe; none touch the storage keys directly.
type SessionStore struct {
	mu         sync.Mutex
	storage    Storage
	logger     *zap.Logger
	listeners  []listenerEntry
	queue      []delivery
	delivering bool
}

// SessionStoreOption customizes a SessionStore.
type SessionStoreOption func(*SessionStore)

// WithSessionLogger sets the logger used for storage failures.
func WithSessionLogger(logger *zap.Logger) SessionStoreOption {
	return func(s *SessionStore) {
		s.logger = logger
	}
}

// NewSessionStore builds a store on top of the given storage backend.
func NewSessionStore(storage Storage, opts ...SessionStoreOption) *SessionStore {
	store := &SessionStore{
		storage: storage,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// Read returns the current session, or nil when logged out. A partially
// present or unparseable triple is self-healed: the store clears every entry
// and notifies subscribers instead of surfacing a corrupt session. Storage
// access failures read as logged out and are never propagated.
func (s *SessionStore) Read() *Session {
	s.mu.Lock()
	session, corrupt := s.readLocked()
	if !corrupt {
		s.mu.Unlock()
		return session
	}
	s.clearLocked()
	s.notifyLocked(nil)
	return nil
}

// Save persists the session triple produced by a successful login and
// notifies subscribers.
func (s *SessionStore) Save(token string, user UserProfile) error {
	if token == "" {
		return newError(ErrCodeInternal, errors.New("empty session token"))
	}
	payload, err := json.Marshal(user)
	if err != nil {
		return newError(ErrCodeInternal, err)
	}

	s.mu.Lock()
	if err := s.setAll(token, string(payload)); err != nil {
		s.mu.Unlock()
		s.logger.Warn("persist session", zap.Error(err))
		return newError(ErrCodeStorage, err)
	}
	s.notifyLocked(&Session{Token: token, User: user, IsAuthenticated: true})
	return nil
}

// Clear removes the session triple and every transient entry, then emits a
// single logged-out notification. Storage failures are logged, not returned:
// by the time Clear is called the session is already considered dead.
func (s *SessionStore) Clear() {
	s.mu.Lock()
	s.clearLocked()
	s.notifyLocked(nil)
}

// Subscribe registers a listener. It is invoked first with the current state
// and again after every future change, in the order the changes are applied.
// The returned function removes the listener.
func (s *SessionStore) Subscribe(fn SessionListener) (unsubscribe func()) {
	id := uuid.New()

	s.mu.Lock()
	s.listeners = append(s.listeners, listenerEntry{id: id, fn: fn})
	session, corrupt := s.readLocked()
	if corrupt {
		// Healing a corrupt triple is a state change every subscriber,
		// including the new one, must observe.
		s.clearLocked()
		s.notifyLocked(nil)
	} else {
		// Initial snapshot for the new listener only.
		s.queue = append(s.queue, delivery{targets: []listenerEntry{{id: id, fn: fn}}, session: session})
		s.drainLocked()
	}

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, entry := range s.listeners {
			if entry.id == id {
				s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
				return
			}
		}
	}
}

// Token implements oauth2.TokenSource over the persisted session, so the
// HTTP layer can treat the store as its credential source.
func (s *SessionStore) Token() (*oauth2.Token, error) {
	session := s.Read()
	if session == nil {
		return nil, newError(ErrCodeUnauthenticated, errors.New("no session"))
	}
	tok := &oauth2.Token{AccessToken: session.Token}
	if exp, ok := session.TokenExpiresAt(); ok {
		tok.Expiry = exp
	}
	return tok, nil
}

// BearerToken returns the raw stored token when a valid session exists.
func (s *SessionStore) BearerToken() (string, bool) {
	session := s.Read()
	if session == nil {
		return "", false
	}
	return session.Token, true
}

// SetTransient stores ephemeral per-surface state under the transient
// namespace. It survives restarts but is wiped on logout.
func (s *SessionStore) SetTransient(key, value string) {
	if err := s.storage.Set(transientPrefix+key, value); err != nil {
		s.logger.Warn("persist transient entry", zap.String("key", key), zap.Error(err))
	}
}

// GetTransient reads ephemeral per-surface state. Missing or failing reads
// return the empty string.
func (s *SessionStore) GetTransient(key string) string {
	value, err := s.storage.Get(transientPrefix + key)
	if err != nil {
		s.logger.Warn("read transient entry", zap.String("key", key), zap.Error(err))
		return ""
	}
	return value
}

// readLocked returns (session, corrupt). A fully absent triple is a quiet
// logged-out state; a partial or unparseable one is corrupt and must be
// healed by the caller.
func (s *SessionStore) readLocked() (*Session, bool) {
	token, errToken := s.storage.Get(storageKeyToken)
	flag, errFlag := s.storage.Get(storageKeyIsAuthenticated)
	userRaw, errUser := s.storage.Get(storageKeyUser)
	if errToken != nil || errFlag != nil || errUser != nil {
		s.logger.Warn("session storage read failed",
			zap.NamedError("token", errToken),
			zap.NamedError("flag", errFlag),
			zap.NamedError("user", errUser))
		return nil, false
	}

	if token == "" && flag == "" && userRaw == "" {
		return nil, false
	}
	if token == "" || flag != "true" || userRaw == "" {
		return nil, true
	}

	var user UserProfile
	if err := json.Unmarshal([]byte(userRaw), &user); err != nil {
		s.logger.Warn("stored user payload unparseable", zap.Error(err))
		return nil, true
	}
	return &Session{Token: token, User: user, IsAuthenticated: true}, false
}

func (s *SessionStore) setAll(token, userPayload string) error {
	if err := s.storage.Set(storageKeyToken, token); err != nil {
		return err
	}
	if err := s.storage.Set(storageKeyIsAuthenticated, "true"); err != nil {
		return err
	}
	return s.storage.Set(storageKeyUser, userPayload)
}

func (s *SessionStore) clearLocked() {
	for _, key := range []string{storageKeyToken, storageKeyIsAuthenticated, storageKeyUser} {
		if err := s.storage.Delete(key); err != nil {
			s.logger.Warn("clear session entry", zap.String("key", key), zap.Error(err))
		}
	}
	keys, err := s.storage.Keys()
	if err != nil {
		s.logger.Warn("list transient entries", zap.Error(err))
		return
	}
	for _, key := range keys {
		if strings.HasPrefix(key, transientPrefix) {
			if err := s.storage.Delete(key); err != nil {
				s.logger.Warn("clear transient entry", zap.String("key", key), zap.Error(err))
			}
		}
	}
}

// notifyLocked queues the new state for every listener in registration order
// and drains the queue. Called with mu held; the lock is released before
// returning.
func (s *SessionStore) notifyLocked(session *Session) {
	snapshot := make([]listenerEntry, len(s.listeners))
	copy(snapshot, s.listeners)
	s.queue = append(s.queue, delivery{targets: snapshot, session: session})
	s.drainLocked()
}

// drainLocked delivers queued notifications in the order the changes were
// applied. Exactly one goroutine drains at a time; any other caller enqueues
// and returns, and the drainer picks the entry up on its next pass. No lock
// is held while a listener runs, so listeners may subscribe, unsubscribe, or
// mutate the store without deadlocking. Called with mu held; the lock is
// released before returning.
func (s *SessionStore) drainLocked() {
	if s.delivering {
		s.mu.Unlock()
		return
	}
	s.delivering = true
	for len(s.queue) > 0 {
		next := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()
		for _, entry := range next.targets {
			entry.fn(next.session)
		}
		s.mu.Lock()
	}
	s.delivering = false
	s.mu.Unlock()
}
