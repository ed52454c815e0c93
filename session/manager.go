package session

import (
	"context"
	"sync"

	"github.com/loyaltyhub/go-auth-client/authapi"
	"github.com/loyaltyhub/go-auth-client/credentials"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// State names the session's position in its lifecycle. A manager starts in
// StateChecking and settles into StateAuthenticated or StateAnonymous; later
// transitions only move between the latter two.
type State string

const (
	StateChecking      State = "checking"
	StateAuthenticated State = "authenticated"
	StateAnonymous     State = "anonymous"
)

// ErrOperationInFlight is returned when a session mutation is attempted while
// another one is still running.
var ErrOperationInFlight = errors.New("session operation already in flight")

// Snapshot is an immutable view of the session handed to readers.
type Snapshot struct {
	State State
	User  *authapi.User
}

// IsAuthenticated reports whether a user is attached to the session.
func (s Snapshot) IsAuthenticated() bool {
	return s.User != nil
}

// AuthAPI is the part of the auth API client the manager depends on.
type AuthAPI interface {
	Register(ctx context.Context, input authapi.RegisterInput) (authapi.TokenResponse, error)
	Login(ctx context.Context, input authapi.LoginInput) (authapi.TokenResponse, error)
	LoginWithEmail(ctx context.Context, input authapi.EmailLoginInput) (authapi.TokenResponse, error)
	RequestPhoneOTP(ctx context.Context, phoneNumber string) (authapi.OTPResponse, error)
	VerifyPhoneOTP(ctx context.Context, input authapi.OTPVerifyInput) (authapi.TokenResponse, error)
	GoogleAuthURL(ctx context.Context) (authapi.GoogleAuthURL, error)
	GoogleAuthCallback(ctx context.Context, code string) (authapi.TokenResponse, error)
	CurrentUser(ctx context.Context, token string) (authapi.User, error)
}

var _ AuthAPI = (*authapi.Client)(nil)

// Manager owns the in-memory session state. It is the single writer; readers
// observe through Snapshot and OnChange. Mutating operations are serialized
// by an in-flight guard rather than racing each other.
type Manager struct {
	api    AuthAPI
	store  *credentials.Store
	logger zerolog.Logger

	opLock sync.Mutex // serializes Login/Register/Logout/RefreshUser/Restore

	stateLock sync.RWMutex
	state     State
	user      *authapi.User
	observers []func(Snapshot)
}

// Option modifies a Manager during construction.
type Option func(*Manager)

// WithLogger sets the manager's logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a session manager. The session starts in StateChecking
// until Restore or a login settles it.
func NewManager(api AuthAPI, store *credentials.Store, options ...Option) (*Manager, error) {
	if api == nil {
		return nil, errors.New("[NewManager] auth API client is required")
	}
	if store == nil {
		return nil, errors.New("[NewManager] credential store is required")
	}

	manager := &Manager{
		api:    api,
		store:  store,
		logger: zerolog.Nop(),
		state:  StateChecking,
	}

	for _, opt := range options {
		opt(manager)
	}

	return manager, nil
}

// Snapshot returns the current session view.
func (m *Manager) Snapshot() Snapshot {
	m.stateLock.RLock()
	defer m.stateLock.RUnlock()
	return Snapshot{State: m.state, User: m.user}
}

// OnChange registers an observer called after every state transition. The
// callback runs on the mutating goroutine and must not block.
func (m *Manager) OnChange(fn func(Snapshot)) {
	m.stateLock.Lock()
	defer m.stateLock.Unlock()
	m.observers = append(m.observers, fn)
}

// Restore settles the initial state from the credential store without a
// network round trip: a stored token plus a cached profile is trusted as-is.
func (m *Manager) Restore(ctx context.Context) Snapshot {
	if !m.opLock.TryLock() {
		return m.Snapshot()
	}
	defer m.opLock.Unlock()

	token, hasToken := m.store.AccessToken(ctx)
	user, hasUser := m.store.User(ctx)

	if hasToken && token != "" && hasUser {
		m.setState(StateAuthenticated, user)
	} else {
		m.setState(StateAnonymous, nil)
	}
	return m.Snapshot()
}

// Login authenticates with a phone number and optional password.
func (m *Manager) Login(ctx context.Context, phoneNumber, password string) error {
	if !m.opLock.TryLock() {
		return ErrOperationInFlight
	}
	defer m.opLock.Unlock()

	token, err := m.api.Login(ctx, authapi.LoginInput{PhoneNumber: phoneNumber, Password: password})
	if err != nil {
		return err
	}
	return m.establish(ctx, token)
}

// Register creates an account and signs it in.
func (m *Manager) Register(ctx context.Context, input authapi.RegisterInput) error {
	if !m.opLock.TryLock() {
		return ErrOperationInFlight
	}
	defer m.opLock.Unlock()

	token, err := m.api.Register(ctx, input)
	if err != nil {
		return err
	}
	return m.establish(ctx, token)
}

// LoginWithEmail authenticates with an email address and password.
func (m *Manager) LoginWithEmail(ctx context.Context, email, password string) error {
	if !m.opLock.TryLock() {
		return ErrOperationInFlight
	}
	defer m.opLock.Unlock()

	token, err := m.api.LoginWithEmail(ctx, authapi.EmailLoginInput{Email: email, Password: password})
	if err != nil {
		return err
	}
	return m.establish(ctx, token)
}

// RequestOTP asks the server to send a one-time code. Read-only, so it is
// not subject to the in-flight guard.
func (m *Manager) RequestOTP(ctx context.Context, phoneNumber string) (authapi.OTPResponse, error) {
	return m.api.RequestPhoneOTP(ctx, phoneNumber)
}

// LoginWithOTP exchanges a one-time code for a session.
func (m *Manager) LoginWithOTP(ctx context.Context, phoneNumber, code string) error {
	if !m.opLock.TryLock() {
		return ErrOperationInFlight
	}
	defer m.opLock.Unlock()

	token, err := m.api.VerifyPhoneOTP(ctx, authapi.OTPVerifyInput{PhoneNumber: phoneNumber, Code: code})
	if err != nil {
		return err
	}
	return m.establish(ctx, token)
}

// GoogleAuthURL fetches the URL the user should visit to authorize with
// Google.
func (m *Manager) GoogleAuthURL(ctx context.Context) (string, error) {
	authURL, err := m.api.GoogleAuthURL(ctx)
	if err != nil {
		return "", err
	}
	return authURL.AuthURL, nil
}

// GoogleLogin completes the Google flow with the code from the redirect.
func (m *Manager) GoogleLogin(ctx context.Context, code string) error {
	if !m.opLock.TryLock() {
		return ErrOperationInFlight
	}
	defer m.opLock.Unlock()

	token, err := m.api.GoogleAuthCallback(ctx, code)
	if err != nil {
		return err
	}
	return m.establish(ctx, token)
}

// Logout drops the session. In-memory state goes anonymous before storage is
// touched, so a storage fault can never strand the UI looking authenticated.
func (m *Manager) Logout(ctx context.Context) error {
	if !m.opLock.TryLock() {
		return ErrOperationInFlight
	}
	defer m.opLock.Unlock()
	return m.logout(ctx)
}

// RefreshUser re-fetches the profile behind the stored token and updates
// memory and storage. Any failure, including a missing token while the
// session looks authenticated, is treated as an invalid session and triggers
// the logout path.
func (m *Manager) RefreshUser(ctx context.Context) error {
	if !m.opLock.TryLock() {
		return ErrOperationInFlight
	}
	defer m.opLock.Unlock()

	token, ok := m.store.AccessToken(ctx)
	if !ok || token == "" {
		if m.Snapshot().IsAuthenticated() {
			return m.logout(ctx)
		}
		return nil
	}

	user, err := m.api.CurrentUser(ctx, token)
	if err == nil {
		err = m.store.StoreUser(ctx, user)
	}
	if err != nil {
		m.logger.Warn().Err(err).Msg("session refresh failed, logging out")
		if logoutErr := m.logout(ctx); logoutErr != nil {
			m.logger.Error().Err(logoutErr).Msg("logout after failed refresh")
		}
		return err
	}

	m.setState(StateAuthenticated, &user)
	return nil
}

// logout assumes the in-flight guard is held.
func (m *Manager) logout(ctx context.Context) error {
	m.setState(StateAnonymous, nil)
	if err := m.store.Clear(ctx); err != nil {
		return errors.Wrap(err, "[logout] clearing credential store")
	}
	return nil
}

// establish persists the token, fetches and persists the profile, then
// transitions to authenticated. If anything after the token write fails, the
// token is rolled back so no partial session is left behind.
func (m *Manager) establish(ctx context.Context, token authapi.TokenResponse) error {
	if err := m.store.StoreAuthData(ctx, token); err != nil {
		return err
	}

	user, err := m.api.CurrentUser(ctx, token.AccessToken)
	if err != nil {
		m.rollback(ctx)
		return err
	}
	if err := m.store.StoreUser(ctx, user); err != nil {
		m.rollback(ctx)
		return err
	}

	m.setState(StateAuthenticated, &user)
	return nil
}

func (m *Manager) rollback(ctx context.Context) {
	if err := m.store.Clear(ctx); err != nil {
		m.logger.Error().Err(err).Msg("failed to roll back stored token")
	}
}

// setState performs the transition and notifies observers outside the state
// lock, so observers may safely read the snapshot.
func (m *Manager) setState(state State, user *authapi.User) {
	m.stateLock.Lock()
	previous := m.state
	m.state = state
	m.user = user
	observers := make([]func(Snapshot), len(m.observers))
	copy(observers, m.observers)
	m.stateLock.Unlock()

	snapshot := Snapshot{State: state, User: user}
	if previous != state {
		m.logger.Info().
			Str("from", string(previous)).
			Str("to", string(state)).
			Msg("session state transition")
	}
	for _, fn := range observers {
		fn(snapshot)
	}
}
