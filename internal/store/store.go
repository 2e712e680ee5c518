// Nextbackup - Scheduled File and Database Backups for Self-Hosted Clouds
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextbackup

// Package store provides the namespaced key/value configuration store that
// holds user settings and backup status.
//
// Two implementations exist:
//   - BadgerStore: durable, used by the server (store.type=badger)
//   - MemoryStore: process-local, used in tests and with store.type=memory
//
// System-level values of the protected application (data directory,
// database coordinates) are read through the separate System interface;
// they are owned by the application's own configuration and never written.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Store is a namespaced string key/value store. Writes are last-writer-wins.
type Store interface {
	// GetValue returns the stored value, or def when the key is absent.
	GetValue(ctx context.Context, namespace, key, def string) (string, error)

	// SetValue stores value, replacing any previous value.
	SetValue(ctx context.Context, namespace, key, value string) error

	// DeleteValue removes the key. Removing an absent key is not an error.
	DeleteValue(ctx context.Context, namespace, key string) error
}

// System exposes read-only infrastructure parameters of the protected
// application, such as "datadirectory" or "dbtype".
type System interface {
	GetSystemValue(key, def string) string
}

// Type selects a Store implementation.
type Type string

const (
	TypeBadger Type = "badger"
	TypeMemory Type = "memory"
)

// ErrInvalidKey is returned for empty namespaces or keys, or keys containing
// the namespace separator.
var ErrInvalidKey = errors.New("invalid store key")

const separator = "/"

// compositeKey builds "<namespace>/<key>".
func compositeKey(namespace, key string) (string, error) {
	if namespace == "" || key == "" {
		return "", fmt.Errorf("%w: namespace and key are required", ErrInvalidKey)
	}
	if strings.Contains(namespace, separator) {
		return "", fmt.Errorf("%w: namespace %q contains %q", ErrInvalidKey, namespace, separator)
	}
	return namespace + separator + key, nil
}

// Open returns the Store selected by typ. For TypeBadger, path is the
// database directory. The returned close function must be called on shutdown.
func Open(typ Type, path string) (Store, func() error, error) {
	switch typ {
	case TypeBadger:
		s, err := OpenBadger(path)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case TypeMemory, "":
		return NewMemoryStore(), func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown store type %q", typ)
	}
}

// MapSystem is a System backed by a fixed map. Keys are case-insensitive.
type MapSystem map[string]string

// NewMapSystem copies values into a MapSystem with lower-cased keys.
func NewMapSystem(values map[string]string) MapSystem {
	m := make(MapSystem, len(values))
	for k, v := range values {
		m[strings.ToLower(k)] = v
	}
	return m
}

// GetSystemValue implements System.
func (m MapSystem) GetSystemValue(key, def string) string {
	if v, ok := m[strings.ToLower(key)]; ok && v != "" {
		return v
	}
	return def
}
