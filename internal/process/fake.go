// Nextbackup - Scheduled File and Database Backups for Self-Hosted Clouds
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nextbackup

package process

import (
	"context"
	"strings"
	"sync"
)

// FakeRunner records invocations and returns scripted results. It is
// exported so tests in other packages can drive components deterministically.
//
//	fake := process.NewFakeRunner()
//	fake.On("rsync", process.Result{ExitCode: 23, Output: "permission denied"}, nil)
type FakeRunner struct {
	mu      sync.Mutex
	calls   []Command
	scripts map[string][]scripted

	// Hook, when set, runs for every call before the scripted result is
	// returned, e.g. to inspect files that only exist during the call.
	Hook func(Command)
}

type scripted struct {
	match  string
	result Result
	err    error
}

// NewFakeRunner returns a runner where every command succeeds with no output.
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{scripts: make(map[string][]scripted)}
}

// On scripts the result for commands named name. Results queue up: each call
// consumes one, and the last one repeats.
func (f *FakeRunner) On(name string, result Result, err error) *FakeRunner {
	return f.OnArgs(name, "", result, err)
}

// OnArgs is like On but only matches when the rendered argument list
// contains argsContain.
func (f *FakeRunner) OnArgs(name, argsContain string, result Result, err error) *FakeRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scripts[name] = append(f.scripts[name], scripted{match: argsContain, result: result, err: err})
	return f
}

// Run implements Runner.
func (f *FakeRunner) Run(_ context.Context, cmd Command) (Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, cmd)
	hook := f.Hook
	f.mu.Unlock()

	if hook != nil {
		hook(cmd)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	queue := f.scripts[cmd.Name]
	args := strings.Join(cmd.Args, " ")
	for i, s := range queue {
		if s.match != "" && !strings.Contains(args, s.match) {
			continue
		}
		if countMatching(queue, args) > 1 {
			f.scripts[cmd.Name] = append(queue[:i:i], queue[i+1:]...)
		}
		return s.result, s.err
	}
	return Result{}, nil
}

func countMatching(queue []scripted, args string) int {
	n := 0
	for _, s := range queue {
		if s.match == "" || strings.Contains(args, s.match) {
			n++
		}
	}
	return n
}

// Calls returns a copy of the recorded invocations in order.
func (f *FakeRunner) Calls() []Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Command(nil), f.calls...)
}

// CallsTo returns the recorded invocations of commands named name.
func (f *FakeRunner) CallsTo(name string) []Command {
	var out []Command
	for _, c := range f.Calls() {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}
