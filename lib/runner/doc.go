// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package runner provides dispatch.Runner implementations.
//
// [Exec] starts a child process in a shellenv.Environment. [Table]
// routes the first argument to in-process runners and falls through to
// another runner, typically an Exec, for everything else.
//
// Exit codes follow shell conventions: 126 for a command that is not
// permitted, 127 for one that cannot be found, 128+N for a child killed
// by signal N.
package runner
