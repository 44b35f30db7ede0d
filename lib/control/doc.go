// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package control serves a CBOR request-response protocol for
// administering a running command socket server.
//
// A [Server] is a localsocket.Handler, so the control socket gets the
// same peer-credential gate, admission limit and deadlines as the
// command socket. Each connection carries one CBOR request map with an
// "action" field and receives one [Response] envelope:
//
//	{ok: true, data: <action result>}
//	{ok: false, error: "message"}
//
// The "status" action (see [StatusAction]) reports the lifecycle state
// and counters of the managers passed to it. [Call] is the client.
package control
