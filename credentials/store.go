package credentials

import (
	"context"
	"encoding/json"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/loyaltyhub/go-auth-client/authapi"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// ErrStorageFailure wraps persistence-layer write faults.
var ErrStorageFailure = errors.New("storage failure")

const (
	keyAccessToken = "access_token"
	keyTokenExpiry = "token_expiry"
	keyUserData    = "user_data"
)

// Store persists the credential record (token + expiry) and the cached user
// profile on top of a KV backend. Reads degrade to "absent" on backend or
// decode faults so a corrupted store behaves like a logged-out state. Expiry
// is enforced in AccessToken and nowhere else.
type Store struct {
	kv        KV
	namespace string
	logger    zerolog.Logger
	nowTime   func() time.Time
}

// Option modifies a Store during construction.
type Option func(*Store)

// WithNamespace prefixes every key, isolating multiple stores sharing one
// backend.
func WithNamespace(namespace string) Option {
	return func(s *Store) {
		s.namespace = namespace
	}
}

// WithLogger sets the store's logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithNowTime sets the now time function (primarily for testing).
func WithNowTime(nowFunc func() time.Time) Option {
	return func(s *Store) {
		s.nowTime = nowFunc
	}
}

// NewStore creates a credential store over the given backend.
func NewStore(kv KV, options ...Option) (*Store, error) {
	if kv == nil {
		return nil, errors.New("[NewStore] kv backend is required")
	}

	store := &Store{
		kv:        kv,
		namespace: "auth",
		logger:    zerolog.Nop(),
		nowTime:   time.Now,
	}

	for _, opt := range options {
		opt(store)
	}

	return store, nil
}

// StoreAuthData persists the access token together with its absolute expiry.
// The expiry is now + expires_in; when the server omits expires_in and the
// token is a JWT, the exp claim is used instead. A token with no derivable
// expiry is stored without one and lives until cleared.
func (s *Store) StoreAuthData(ctx context.Context, token authapi.TokenResponse) error {
	if token.AccessToken == "" {
		return errors.New("[StoreAuthData] access token is empty")
	}

	if err := s.kv.Set(ctx, s.key(keyAccessToken), token.AccessToken); err != nil {
		return errors.Wrapf(ErrStorageFailure, "[StoreAuthData] storing token: %v", err)
	}

	expiry := s.expiryOf(token)
	if expiry.IsZero() {
		// Drop any expiry left over from a previous token.
		if err := s.kv.Delete(ctx, s.key(keyTokenExpiry)); err != nil && !errors.Is(err, ErrKeyNotFound) {
			return errors.Wrapf(ErrStorageFailure, "[StoreAuthData] clearing stale expiry: %v", err)
		}
		return nil
	}
	if err := s.kv.Set(ctx, s.key(keyTokenExpiry), expiry.Format(time.RFC3339)); err != nil {
		return errors.Wrapf(ErrStorageFailure, "[StoreAuthData] storing expiry: %v", err)
	}
	return nil
}

// AccessToken returns the stored token. A token whose expiry has been
// reached is treated as absent and all auth data is cleared. Read faults
// degrade to absent.
func (s *Store) AccessToken(ctx context.Context) (string, bool) {
	token, err := s.kv.Get(ctx, s.key(keyAccessToken))
	if err != nil {
		if !errors.Is(err, ErrKeyNotFound) {
			s.logger.Warn().Err(err).Msg("failed to read access token")
		}
		return "", false
	}
	if token == "" {
		return "", false
	}

	expiryValue, err := s.kv.Get(ctx, s.key(keyTokenExpiry))
	if err != nil {
		if !errors.Is(err, ErrKeyNotFound) {
			s.logger.Warn().Err(err).Msg("failed to read token expiry")
			return "", false
		}
		return token, true
	}

	expiry, err := time.Parse(time.RFC3339, expiryValue)
	if err != nil {
		s.logger.Warn().Err(err).Msg("stored token expiry is unreadable")
		return "", false
	}

	if !expiry.After(s.nowTime()) {
		if err := s.Clear(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("failed to clear expired auth data")
		}
		return "", false
	}

	return token, true
}

// StoreUser caches the user profile.
func (s *Store) StoreUser(ctx context.Context, user authapi.User) error {
	encoded, err := json.Marshal(user)
	if err != nil {
		return errors.Wrap(err, "[StoreUser] marshalling user")
	}
	if err := s.kv.Set(ctx, s.key(keyUserData), string(encoded)); err != nil {
		return errors.Wrapf(ErrStorageFailure, "[StoreUser] storing user: %v", err)
	}
	return nil
}

// User returns the cached profile, or absent when none is stored or the
// stored value is unreadable.
func (s *Store) User(ctx context.Context) (*authapi.User, bool) {
	encoded, err := s.kv.Get(ctx, s.key(keyUserData))
	if err != nil {
		if !errors.Is(err, ErrKeyNotFound) {
			s.logger.Warn().Err(err).Msg("failed to read cached user")
		}
		return nil, false
	}

	var user authapi.User
	if err := json.Unmarshal([]byte(encoded), &user); err != nil {
		s.logger.Warn().Err(err).Msg("cached user is unreadable")
		return nil, false
	}
	return &user, true
}

// Clear deletes the token, expiry and cached user. Safe to call when nothing
// is stored.
func (s *Store) Clear(ctx context.Context) error {
	for _, key := range []string{keyAccessToken, keyTokenExpiry, keyUserData} {
		if err := s.kv.Delete(ctx, s.key(key)); err != nil && !errors.Is(err, ErrKeyNotFound) {
			return errors.Wrapf(ErrStorageFailure, "[Clear] deleting %s: %v", key, err)
		}
	}
	return nil
}

func (s *Store) key(name string) string {
	return s.namespace + ":" + name
}

// expiryOf derives the absolute expiry of a token response. Zero means no
// expiry is known.
func (s *Store) expiryOf(token authapi.TokenResponse) time.Time {
	if token.ExpiresIn > 0 {
		return s.nowTime().Add(time.Duration(token.ExpiresIn) * time.Second)
	}

	// The client holds no signing key, so the claim set is read unverified.
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token.AccessToken, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
