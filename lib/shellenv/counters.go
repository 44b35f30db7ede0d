// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package shellenv

import "sync/atomic"

// Counters hands out per-kind command sequence numbers, starting at 0.
// It is safe for concurrent use.
type Counters struct {
	appShell        atomic.Uint64
	terminalSession atomic.Uint64
}

// NewCounters returns counters starting at zero.
func NewCounters() *Counters { return &Counters{} }

// NextAppShell returns the current app-shell number and increments it.
func (c *Counters) NextAppShell() uint64 { return c.appShell.Add(1) - 1 }

// NextTerminalSession returns the current terminal-session number and
// increments it.
func (c *Counters) NextTerminalSession() uint64 { return c.terminalSession.Add(1) - 1 }
