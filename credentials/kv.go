package credentials

import "context"

// ErrKeyNotFound is returned by KV backends for absent keys.
var ErrKeyNotFound = kvError("key not found")

type kvError string

func (e kvError) Error() string { return string(e) }

// KV is the persistence contract the credential store runs on. Backends live
// under credentials/memkv, credentials/filekv and credentials/rediskv.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}
