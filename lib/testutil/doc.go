// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for the command socket
// packages.
//
// [SocketDir] creates a short-named temporary directory for Unix domain
// sockets. sun_path is limited to 108 bytes, and t.TempDir() paths
// under a long TMPDIR can exceed it.
//
// [RequireReceive], [RequireClosed], and [RequireNoReceive] encapsulate
// the select-with-timeout pattern so that tests never block forever on
// a channel when the code under test misbehaves.
//
// All helpers call t.Fatalf on failure rather than returning errors.
package testutil
