// Nextbackup - Scheduled File and Database Backups for Self-Hosted Clouds
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextbackup

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// BadgerStore implements Store on top of BadgerDB.
type BadgerStore struct {
	db *badger.DB
}

// OpenBadger opens (or creates) a BadgerDB at path.
func OpenBadger(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // Suppress BadgerDB logs

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger store at %s: %w", path, err)
	}
	return &BadgerStore{db: db}, nil
}

// GetValue implements Store.
func (s *BadgerStore) GetValue(_ context.Context, namespace, key, def string) (string, error) {
	k, err := compositeKey(namespace, key)
	if err != nil {
		return "", err
	}

	value := def
	err = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(k))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			value = string(val)
			return nil
		})
	})
	if err != nil {
		return "", fmt.Errorf("get %s: %w", k, err)
	}
	return value, nil
}

// SetValue implements Store.
func (s *BadgerStore) SetValue(_ context.Context, namespace, key, value string) error {
	k, err := compositeKey(namespace, key)
	if err != nil {
		return err
	}
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(k), []byte(value))
	}); err != nil {
		return fmt.Errorf("set %s: %w", k, err)
	}
	return nil
}

// DeleteValue implements Store.
func (s *BadgerStore) DeleteValue(_ context.Context, namespace, key string) error {
	k, err := compositeKey(namespace, key)
	if err != nil {
		return err
	}
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(k))
	}); err != nil {
		return fmt.Errorf("delete %s: %w", k, err)
	}
	return nil
}

// RunGC reclaims value-log space until Badger reports nothing left to
// rewrite. In-memory databases have no value log and return nil.
func (s *BadgerStore) RunGC(discardRatio float64) error {
	if discardRatio <= 0 || discardRatio >= 1 {
		discardRatio = 0.5
	}
	for {
		err := s.db.RunValueLogGC(discardRatio)
		if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrGCInMemoryMode) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("run value log gc: %w", err)
		}
	}
}

// Close closes the underlying database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}
