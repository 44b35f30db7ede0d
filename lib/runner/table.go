// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package runner

import (
	"context"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/bureau-foundation/cmdsocket/lib/dispatch"
)

// Table routes commands by name.
type Table struct {
	mu       sync.RWMutex
	commands map[string]dispatch.Runner
	fallback dispatch.Runner
}

var _ dispatch.Runner = (*Table)(nil)

// NewTable returns an empty table. Names with no entry go to fallback;
// with a nil fallback they exit 127.
func NewTable(fallback dispatch.Runner) *Table {
	return &Table{commands: make(map[string]dispatch.Runner), fallback: fallback}
}

// Handle registers runner under name, replacing any previous entry.
// The runner receives the full argument list, name included.
func (t *Table) Handle(name string, runner dispatch.Runner) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.commands[name] = runner
}

// Names returns the registered names in sorted order.
func (t *Table) Names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Sorted(maps.Keys(t.commands))
}

// Run dispatches on args[0]. An empty argument list prints the
// registered names and exits with the usage code.
func (t *Table) Run(ctx context.Context, args []string, stdout, stderr io.Writer) (int, error) {
	if len(args) == 0 {
		fmt.Fprintf(stderr, "usage: <command> [argument...]\nbuilt-in commands: %s\n", strings.Join(t.Names(), ", "))
		return ExitUsage, nil
	}

	t.mu.RLock()
	runner, ok := t.commands[args[0]]
	t.mu.RUnlock()
	if ok {
		return runner.Run(ctx, args, stdout, stderr)
	}
	if t.fallback != nil {
		return t.fallback.Run(ctx, args, stdout, stderr)
	}
	fmt.Fprintf(stderr, "%s: command not found\n", args[0])
	return ExitNotFound, nil
}
