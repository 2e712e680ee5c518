// Nextbackup - Scheduled File and Database Backups for Self-Hosted Clouds
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextbackup

package store

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

// GetValue implements Store.
func (s *MemoryStore) GetValue(_ context.Context, namespace, key, def string) (string, error) {
	k, err := compositeKey(namespace, key)
	if err != nil {
		return "", err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.values[k]; ok {
		return v, nil
	}
	return def, nil
}

// SetValue implements Store.
func (s *MemoryStore) SetValue(_ context.Context, namespace, key, value string) error {
	k, err := compositeKey(namespace, key)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[k] = value
	return nil
}

// DeleteValue implements Store.
func (s *MemoryStore) DeleteValue(_ context.Context, namespace, key string) error {
	k, err := compositeKey(namespace, key)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, k)
	return nil
}
