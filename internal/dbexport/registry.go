// Nextbackup - Scheduled File and Database Backups for Self-Hosted Clouds
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextbackup

package dbexport

import (
	"fmt"
	"sort"
	"strings"
)

// UnsupportedEngineError reports an engine identifier with no descriptor.
type UnsupportedEngineError struct {
	Engine    string
	Supported []string
}

func (e *UnsupportedEngineError) Error() string {
	return fmt.Sprintf("unsupported database engine %q (supported: %s)",
		e.Engine, strings.Join(e.Supported, ", "))
}

// Registry maps engine identifiers and their aliases to engines.
type Registry struct {
	engines map[string]Engine
	aliases map[string]string
}

// NewRegistry registers engines under their names and aliases.
func NewRegistry(engines ...Engine) *Registry {
	r := &Registry{engines: make(map[string]Engine), aliases: make(map[string]string)}
	for _, e := range engines {
		r.Register(e)
	}
	return r
}

// DefaultRegistry holds every engine this build supports.
func DefaultRegistry() *Registry {
	return NewRegistry(
		NewMySQLEngine(),
		NewPostgresEngine(),
		NewSQLiteEngine(),
		NewOracleEngine(),
		NewDuckDBEngine(),
	)
}

// Register adds e, replacing an engine of the same name.
func (r *Registry) Register(e Engine) {
	name := strings.ToLower(e.Name())
	r.engines[name] = e
	for _, a := range e.Descriptor().Aliases {
		r.aliases[strings.ToLower(a)] = name
	}
}

// Lookup resolves id (case-insensitive, aliases allowed).
func (r *Registry) Lookup(id string) (Engine, error) {
	key := strings.ToLower(strings.TrimSpace(id))
	if canonical, ok := r.aliases[key]; ok {
		key = canonical
	}
	if e, ok := r.engines[key]; ok {
		return e, nil
	}
	return nil, &UnsupportedEngineError{Engine: id, Supported: r.Names()}
}

// Names returns the canonical engine names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.engines))
	for n := range r.engines {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
