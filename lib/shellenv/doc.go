// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package shellenv builds the environment and argument vector for
// commands run on behalf of socket clients.
//
// [Environment] is the capability the command runner depends on. [Unix]
// is the implementation for Unix-like hosts: it carries HOME, PATH,
// TMPDIR, LANG, PWD, TERM, COLORTERM and LD_LIBRARY_PATH, captured once
// at construction rather than re-read per command.
//
// Commands are numbered per kind since process start. The numbers live
// in a [Counters] value that the binary creates and injects, so tests
// and multiple servers in one process do not share hidden state.
package shellenv
