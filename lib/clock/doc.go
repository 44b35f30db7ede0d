// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source.
//
// Components that read the time or wait on it take a Clock instead of
// calling time.Now or time.After directly. Production code passes
// Real(); tests pass Fake() and move time forward explicitly with
// Advance:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	manager := localsocket.NewManager(config, handler, localsocket.Options{Clock: c})
//	c.Advance(90 * time.Second)
//	manager.Stats().Uptime // 1m30s
//
// Connection read/write deadlines are not routed through Clock: the
// kernel compares them against wall time, so a fake clock cannot
// drive them.
package clock
