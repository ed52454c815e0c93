package rediskv_test

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/loyaltyhub/go-auth-client/authapi"
	"github.com/loyaltyhub/go-auth-client/credentials"
	"github.com/loyaltyhub/go-auth-client/credentials/rediskv"
	"github.com/loyaltyhub/go-auth-client/internal/logging"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T) *rediskv.Store {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	store, err := rediskv.New(client)
	require.NoError(t, err)
	return store
}

func TestSetGetDelete(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	_, err := store.Get(ctx, "auth:access_token")
	require.ErrorIs(t, err, credentials.ErrKeyNotFound)

	require.NoError(t, store.Set(ctx, "auth:access_token", "t1"))
	value, err := store.Get(ctx, "auth:access_token")
	require.NoError(t, err)
	require.Equal(t, "t1", value)

	require.NoError(t, store.Delete(ctx, "auth:access_token"))
	_, err = store.Get(ctx, "auth:access_token")
	require.ErrorIs(t, err, credentials.ErrKeyNotFound)
}

func TestCredentialStoreOverRedis(t *testing.T) {
	kv := setupStore(t)
	ctx := context.Background()

	store, err := credentials.NewStore(kv,
		credentials.WithNamespace("auth"),
		credentials.WithLogger(logging.Discard()),
	)
	require.NoError(t, err)

	require.NoError(t, store.StoreAuthData(ctx, authapi.TokenResponse{AccessToken: "t1", ExpiresIn: 3600}))
	require.NoError(t, store.StoreUser(ctx, authapi.User{ID: 1, PhoneNumber: "5551234567", FullName: "Jane"}))

	token, ok := store.AccessToken(ctx)
	require.True(t, ok)
	require.Equal(t, "t1", token)

	user, ok := store.User(ctx)
	require.True(t, ok)
	require.Equal(t, "Jane", user.FullName)

	require.NoError(t, store.Clear(ctx))
	_, ok = store.AccessToken(ctx)
	require.False(t, ok)
}

func TestNewRequiresClient(t *testing.T) {
	_, err := rediskv.New(nil)
	require.Error(t, err)
}
