// Package session holds the per-client authentication state: the signed-in
// user, the list of known accounts for quick switching, and the active token
// pair. One Store exists per client namespace.
package session

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	apperrors "github.com/halolight/halolight/internal/common/errors"
	"github.com/halolight/halolight/internal/common/logger"
	"github.com/halolight/halolight/internal/events"
	"github.com/halolight/halolight/internal/events/bus"
	"github.com/halolight/halolight/internal/identity"
	"github.com/halolight/halolight/internal/identity/auth"
	"github.com/halolight/halolight/internal/storage"
)

// ErrLoginSuperseded is returned to a login call whose result arrived after a
// newer login attempt started. Only the latest attempt may commit state.
var ErrLoginSuperseded = errors.New("login superseded by a newer attempt")

// Authenticator is the slice of the identity service the store depends on.
type Authenticator interface {
	Authenticate(ctx context.Context, creds identity.Credentials) (*identity.User, *auth.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*identity.User, *auth.TokenPair, error)
}

// Account is one entry in the quick-switch account list.
type Account struct {
	ID          string          `json:"id"`
	DisplayName string          `json:"displayName"`
	Email       string          `json:"email"`
	Role        string          `json:"role"`
	Avatar      string          `json:"avatar,omitempty"`
	Tokens      *auth.TokenPair `json:"tokens,omitempty"`
}

// State is an observable snapshot of the session.
type State struct {
	User            *identity.User  `json:"user"`
	Accounts        []Account       `json:"accounts"`
	ActiveAccountID string          `json:"activeAccountId"`
	Tokens          *auth.TokenPair `json:"tokens"`
	RememberMe      bool            `json:"rememberMe"`
	Error           string          `json:"error"`
}

// Observer receives a state snapshot after every committed mutation.
type Observer func(State)

// Store serializes all session mutations behind a mutex. Authentication I/O
// runs outside the lock; a generation counter decides which concurrent login
// attempt is allowed to commit.
type Store struct {
	mu           sync.Mutex
	state        State
	loginGen     uint64
	ns           *storage.Namespace
	ids          Authenticator
	bus          bus.EventBus
	log          *logger.Logger
	observers    map[int]Observer
	nextObserver int
}

// NewStore creates a session store bound to one storage namespace.
func NewStore(ns *storage.Namespace, ids Authenticator, eventBus bus.EventBus, log *logger.Logger) *Store {
	return &Store{
		ns:        ns,
		ids:       ids,
		bus:       eventBus,
		log:       log.WithFields(zap.String("component", "session")).WithNamespace(ns.Name()),
		observers: make(map[int]Observer),
	}
}

// Subscribe registers an observer and returns its unsubscribe function.
func (s *Store) Subscribe(fn Observer) func() {
	s.mu.Lock()
	id := s.nextObserver
	s.nextObserver++
	s.observers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}
}

// State returns a snapshot of the current session state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// IsAuthenticated reports whether a user is signed in.
func (s *Store) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.User != nil && s.state.Tokens != nil
}

// Login authenticates and, on success, replaces the session: the user and
// tokens are set, the account is upserted into the switch list and made
// active. On failure the state is unchanged apart from the error field.
//
// When logins race, only the attempt that started last commits; earlier
// attempts get ErrLoginSuperseded even if their credentials were valid.
func (s *Store) Login(ctx context.Context, creds identity.Credentials) error {
	s.mu.Lock()
	s.loginGen++
	gen := s.loginGen
	s.mu.Unlock()

	user, tokens, err := s.ids.Authenticate(ctx, creds)

	s.mu.Lock()
	if gen != s.loginGen {
		s.mu.Unlock()
		return ErrLoginSuperseded
	}

	if err != nil {
		s.state.Error = loginErrorMessage(err)
		s.log.Warn("Login failed", zap.Error(err))
		s.notifyAndPublishLocked(ctx, events.SessionChanged, nil)
		return err
	}

	s.state.User = user
	s.state.Tokens = tokens
	s.state.RememberMe = creds.RememberMe
	s.state.Error = ""
	s.upsertAccountLocked(accountFromUser(user, tokens))
	s.state.ActiveAccountID = user.ID
	s.persistLocked(ctx)

	s.log.Info("Login succeeded", zap.String("user_id", user.ID))
	s.notifyAndPublishLocked(ctx, events.SessionLoggedIn, map[string]interface{}{"user_id": user.ID})
	return nil
}

// Logout unconditionally clears the session and its persisted keys. It also
// supersedes any login still in flight so a slow Authenticate cannot
// resurrect the session afterwards.
func (s *Store) Logout(ctx context.Context) {
	s.mu.Lock()
	s.loginGen++
	s.state = State{}
	s.ns.Remove(ctx, storage.KeyToken)
	s.ns.Remove(ctx, storage.KeyUser)
	s.ns.Remove(ctx, storage.KeyAccounts)
	s.ns.Remove(ctx, storage.KeyActiveAccountID)
	s.ns.Remove(ctx, storage.KeyRememberMe)

	s.log.Info("Logged out")
	s.notifyAndPublishLocked(ctx, events.SessionLoggedOut, nil)
}

// SwitchAccount makes the given account active. An unknown id sets the error
// field and leaves the rest of the state unchanged.
func (s *Store) SwitchAccount(ctx context.Context, id string) error {
	s.mu.Lock()
	account := s.findAccountLocked(id)
	if account == nil {
		s.state.Error = "account not found"
		s.notifyAndPublishLocked(ctx, events.SessionChanged, nil)
		return apperrors.NotFound("account", id)
	}

	s.state.ActiveAccountID = account.ID
	s.state.User = userFromAccount(account)
	s.state.Tokens = account.Tokens
	s.state.Error = ""
	s.persistLocked(ctx)

	s.log.Info("Switched account", zap.String("account_id", id))
	s.notifyAndPublishLocked(ctx, events.SessionAccountSwitched, map[string]interface{}{"account_id": id})
	return nil
}

// AddAccount upserts an account into the switch list without signing it in,
// unless no account is active yet, in which case it becomes the session.
func (s *Store) AddAccount(ctx context.Context, user *identity.User, tokens *auth.TokenPair) {
	s.mu.Lock()
	s.upsertAccountLocked(accountFromUser(user, tokens))

	if s.state.ActiveAccountID == "" {
		s.state.ActiveAccountID = user.ID
		s.state.User = user
		s.state.Tokens = tokens
	}
	s.persistLocked(ctx)
	s.notifyAndPublishLocked(ctx, events.SessionChanged, nil)
}

// RemoveAccount drops an account from the switch list. Removing the active
// account promotes the first remaining one; removing the last account is a
// full logout.
func (s *Store) RemoveAccount(ctx context.Context, id string) {
	s.mu.Lock()
	idx := -1
	for i := range s.state.Accounts {
		if s.state.Accounts[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return
	}

	s.state.Accounts = append(s.state.Accounts[:idx], s.state.Accounts[idx+1:]...)

	if s.state.ActiveAccountID == id {
		if len(s.state.Accounts) == 0 {
			// Mutex is not reentrant; release before the full logout.
			s.mu.Unlock()
			s.Logout(ctx)
			return
		}
		next := s.state.Accounts[0]
		s.state.ActiveAccountID = next.ID
		s.state.User = userFromAccount(&next)
		s.state.Tokens = next.Tokens
	}
	s.persistLocked(ctx)
	s.notifyAndPublishLocked(ctx, events.SessionChanged, nil)
}

// RefreshToken exchanges the current refresh token for a new pair. Any
// failure invalidates the whole session: the store logs out and returns the
// error.
func (s *Store) RefreshToken(ctx context.Context) error {
	s.mu.Lock()
	if s.state.Tokens == nil || s.state.Tokens.RefreshToken == "" {
		s.mu.Unlock()
		err := apperrors.Unauthorized("no refresh token available")
		s.Logout(ctx)
		return err
	}
	refreshToken := s.state.Tokens.RefreshToken
	s.mu.Unlock()

	user, tokens, err := s.ids.Refresh(ctx, refreshToken)
	if err != nil {
		s.log.Warn("Token refresh failed, logging out", zap.Error(err))
		s.Logout(ctx)
		return err
	}

	s.mu.Lock()
	s.state.User = user
	s.state.Tokens = tokens
	s.state.Error = ""
	if account := s.findAccountLocked(user.ID); account != nil {
		account.Tokens = tokens
	}
	s.persistLocked(ctx)
	s.notifyAndPublishLocked(ctx, events.SessionTokenRefreshed, map[string]interface{}{"user_id": user.ID})
	return nil
}

// Initialize rehydrates the session from storage. A namespace with nothing
// persisted leaves the store empty; partial data is loaded as far as it goes.
func (s *Store) Initialize(ctx context.Context) {
	s.mu.Lock()

	var tokens auth.TokenPair
	if s.ns.Get(ctx, storage.KeyToken, &tokens) {
		s.state.Tokens = &tokens
	}
	var user identity.User
	if s.ns.Get(ctx, storage.KeyUser, &user) {
		s.state.User = &user
	}
	var accounts []Account
	if s.ns.Get(ctx, storage.KeyAccounts, &accounts) {
		s.state.Accounts = accounts
	}
	var activeID string
	if s.ns.Get(ctx, storage.KeyActiveAccountID, &activeID) {
		s.state.ActiveAccountID = activeID
	}
	var rememberMe bool
	if s.ns.Get(ctx, storage.KeyRememberMe, &rememberMe) {
		s.state.RememberMe = rememberMe
	}

	if s.state.User == nil && s.state.Tokens == nil && len(s.state.Accounts) == 0 {
		s.mu.Unlock()
		return
	}
	s.notifyAndPublishLocked(ctx, events.SessionChanged, nil)
}

func (s *Store) findAccountLocked(id string) *Account {
	for i := range s.state.Accounts {
		if s.state.Accounts[i].ID == id {
			return &s.state.Accounts[i]
		}
	}
	return nil
}

// upsertAccountLocked replaces an existing entry in place, preserving list
// order; new accounts are appended.
func (s *Store) upsertAccountLocked(account Account) {
	for i := range s.state.Accounts {
		if s.state.Accounts[i].ID == account.ID {
			s.state.Accounts[i] = account
			return
		}
	}
	s.state.Accounts = append(s.state.Accounts, account)
}

func (s *Store) persistLocked(ctx context.Context) {
	s.ns.Set(ctx, storage.KeyToken, s.state.Tokens)
	s.ns.Set(ctx, storage.KeyUser, s.state.User)
	s.ns.Set(ctx, storage.KeyAccounts, s.state.Accounts)
	s.ns.Set(ctx, storage.KeyActiveAccountID, s.state.ActiveAccountID)
	s.ns.Set(ctx, storage.KeyRememberMe, s.state.RememberMe)
}

func (s *Store) snapshotLocked() State {
	snapshot := s.state
	snapshot.Accounts = append([]Account(nil), s.state.Accounts...)
	return snapshot
}

// notifyAndPublishLocked snapshots state and observers, releases the lock,
// then runs callbacks and publishes the change event. Callers must hold the
// lock; it is released on return.
func (s *Store) notifyAndPublishLocked(ctx context.Context, eventType string, data map[string]interface{}) {
	snapshot := s.snapshotLocked()
	observers := make([]Observer, 0, len(s.observers))
	for _, fn := range s.observers {
		observers = append(observers, fn)
	}
	s.mu.Unlock()

	for _, fn := range observers {
		fn(snapshot)
	}

	if s.bus != nil {
		if data == nil {
			data = map[string]interface{}{}
		}
		data["namespace"] = s.ns.Name()
		event := bus.NewEvent(eventType, "session-store", data)
		subject := events.BuildSessionSubject(s.ns.Name())
		if err := s.bus.Publish(ctx, subject, event); err != nil {
			s.log.Warn("Failed to publish session event", zap.Error(err))
		}
	}
}

func accountFromUser(user *identity.User, tokens *auth.TokenPair) Account {
	return Account{
		ID:          user.ID,
		DisplayName: user.DisplayName,
		Email:       user.Email,
		Role:        user.Role,
		Avatar:      user.Avatar,
		Tokens:      tokens,
	}
}

func userFromAccount(account *Account) *identity.User {
	return &identity.User{
		ID:          account.ID,
		DisplayName: account.DisplayName,
		Email:       account.Email,
		Role:        account.Role,
		Avatar:      account.Avatar,
		Status:      identity.StatusActive,
	}
}

// loginErrorMessage keeps the user-facing error short; internal failures get
// a generic message.
func loginErrorMessage(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case apperrors.ErrCodeUnauthorized, apperrors.ErrCodeBadRequest, apperrors.ErrCodeValidationError:
			return appErr.Message
		}
	}
	return "login failed, please try again"
}
