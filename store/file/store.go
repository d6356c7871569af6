package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/passkey-wallet/go-sdk/types"
)

const filename = "state.json"

// store keeps every key in a single json file, rewritten on each mutation.
type store struct {
	filePath string
	lock     *sync.RWMutex
}

func NewStore(baseDir string) (types.KeyValueStore, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("missing base directory")
	}
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	filePath := filepath.Join(baseDir, filename)
	s := &store{filePath: filePath, lock: &sync.RWMutex{}}
	if _, err := os.Stat(filePath); errors.Is(err, os.ErrNotExist) {
		if err := s.write(make(map[string][]byte)); err != nil {
			return nil, fmt.Errorf("failed to initialize store: %w", err)
		}
	}
	return s, nil
}

func (s *store) GetType() string {
	return types.FileStore
}

func (s *store) Get(_ context.Context, key string) ([]byte, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	data, err := s.read()
	if err != nil {
		return nil, err
	}
	return data[key], nil
}

func (s *store) Set(_ context.Context, key string, value []byte) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	data, err := s.read()
	if err != nil {
		return err
	}
	data[key] = value
	return s.write(data)
}

func (s *store) Clear(_ context.Context, key string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	data, err := s.read()
	if err != nil {
		return err
	}
	if _, ok := data[key]; !ok {
		return nil
	}
	delete(data, key)
	return s.write(data)
}

func (s *store) Close() {}

func (s *store) read() (map[string][]byte, error) {
	buf, err := os.ReadFile(s.filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return make(map[string][]byte), nil
		}
		return nil, fmt.Errorf("failed to read file store: %w", err)
	}

	data := make(map[string][]byte)
	if len(buf) == 0 {
		return data, nil
	}
	if err := json.Unmarshal(buf, &data); err != nil {
		return nil, fmt.Errorf("failed to decode file store: %w", err)
	}
	return data, nil
}

func (s *store) write(data map[string][]byte) error {
	buf, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode file store: %w", err)
	}

	tmp := s.filePath + ".tmp"
	if err := os.WriteFile(tmp, buf, 0600); err != nil {
		return fmt.Errorf("failed to write file store: %w", err)
	}
	if err := os.Rename(tmp, s.filePath); err != nil {
		return fmt.Errorf("failed to write file store: %w", err)
	}
	return nil
}
