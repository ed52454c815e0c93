// Package filekv provides a credentials.KV backend persisting to a single
// JSON file, for environments without a Redis to hand.
package filekv

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/loyaltyhub/go-auth-client/credentials"
	"github.com/pkg/errors"
)

var _ credentials.KV = (*Store)(nil)

type Store struct {
	path string
	lock sync.Mutex
}

// New creates a file-backed store at path, creating parent directories as
// needed.
func New(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("[New] path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, errors.Wrap(err, "[New] creating data folder")
	}
	return &Store{path: path}, nil
}

func (s *Store) Get(_ context.Context, key string) (string, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	values, err := s.load()
	if err != nil {
		return "", err
	}
	value, ok := values[key]
	if !ok {
		return "", credentials.ErrKeyNotFound
	}
	return value, nil
}

func (s *Store) Set(_ context.Context, key, value string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	values, err := s.load()
	if err != nil {
		return err
	}
	values[key] = value
	return s.save(values)
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	values, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := values[key]; !ok {
		return nil
	}
	delete(values, key)
	return s.save(values)
}

func (s *Store) load() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, errors.Wrap(err, "[load] reading store file")
	}

	values := map[string]string{}
	if len(data) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, errors.Wrap(err, "[load] decoding store file")
	}
	return values, nil
}

// save writes via a temp file and rename so a crash never leaves a
// half-written store behind.
func (s *Store) save(values map[string]string) error {
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return errors.Wrap(err, "[save] encoding store file")
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return errors.Wrap(err, "[save] writing store file")
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return errors.Wrap(err, "[save] replacing store file")
	}
	return nil
}
