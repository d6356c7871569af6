package inmemorystore

import (
	"context"
	"sync"

	"github.com/passkey-wallet/go-sdk/types"
)

type store struct {
	data map[string][]byte
	lock *sync.RWMutex
}

func NewStore() types.KeyValueStore {
	return &store{
		data: make(map[string][]byte),
		lock: &sync.RWMutex{},
	}
}

func (s *store) GetType() string {
	return types.InMemoryStore
}

func (s *store) Get(_ context.Context, key string) ([]byte, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	value, ok := s.data[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), value...), nil
}

func (s *store) Set(_ context.Context, key string, value []byte) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.data[key] = append([]byte(nil), value...)
	return nil
}

func (s *store) Clear(_ context.Context, key string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	delete(s.data, key)
	return nil
}

func (s *store) Close() {}
