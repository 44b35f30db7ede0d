// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package localsocket runs a Unix domain socket server that
// authenticates peers by their kernel-reported credentials and hands
// each authorized connection to a [Handler].
//
// A [Manager] owns one listening socket, identified by a filesystem
// path or a Linux abstract-namespace name. Its lifecycle is
//
//	created → starting → listening → stopping → stopped
//	created → starting → failed
//
// and nothing leaves stopped or failed. Start and Stop are serialized
// per manager, Stop is idempotent, and a process-wide registry keeps
// two managers from listening on the same address.
//
// One goroutine runs the accept loop. For every accepted connection
// the peer's uid is read (SO_PEERCRED on Linux, LOCAL_PEERCRED on
// Darwin) and checked against the [AllowList] before a single byte of
// payload is read. Unauthorized peers are disconnected without a
// response. Authorized connections are wrapped in a [Client] and
// served on their own goroutine, so one stuck peer never blocks the
// next accept. Stop affects only the accept loop; connections already
// being served run to completion, and [Manager.Drain] waits for them.
//
// The base behaviour places no bound on concurrent connections and no
// deadline on reads or writes. [RunConfig] exposes an admission limit,
// read/write timeouts, and a request size limit for deployments that
// want them.
package localsocket
