package filekv_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/loyaltyhub/go-auth-client/credentials"
	"github.com/loyaltyhub/go-auth-client/credentials/filekv"
	"github.com/stretchr/testify/require"
)

func TestSetGetDelete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "auth.json")
	store, err := filekv.New(path)
	require.NoError(t, err)

	ctx := context.Background()

	_, err = store.Get(ctx, "missing")
	require.ErrorIs(t, err, credentials.ErrKeyNotFound)

	require.NoError(t, store.Set(ctx, "token", "t1"))
	value, err := store.Get(ctx, "token")
	require.NoError(t, err)
	require.Equal(t, "t1", value)

	require.NoError(t, store.Delete(ctx, "token"))
	_, err = store.Get(ctx, "token")
	require.ErrorIs(t, err, credentials.ErrKeyNotFound)

	// deleting an absent key is not an error
	require.NoError(t, store.Delete(ctx, "token"))
}

func TestValuesSurviveReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth.json")
	ctx := context.Background()

	store, err := filekv.New(path)
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, "token", "t1"))
	require.NoError(t, store.Set(ctx, "expiry", "2026-03-01T12:00:00Z"))

	reopened, err := filekv.New(path)
	require.NoError(t, err)
	value, err := reopened.Get(ctx, "token")
	require.NoError(t, err)
	require.Equal(t, "t1", value)
}
