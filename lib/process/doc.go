// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides entrypoint helpers for cmdsocket binaries:
// reporting a fatal error to stderr when the structured logger may not
// exist yet, and exiting.
package process
