// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package dispatch turns one client request into one response.
//
// A [Dispatcher] is a localsocket.Handler. For each connection it reads
// the request text, splits it into arguments with shellargs, hands the
// arguments to its [Runner], and sends the encoded result. A runner
// error or panic is a fault: the response carries exit code 1 and the
// fault text appended to whatever the runner wrote to stderr.
//
// Request text is never logged; records carry a BLAKE3 digest of it so
// repeated requests can be correlated without exposing arguments.
package dispatch
