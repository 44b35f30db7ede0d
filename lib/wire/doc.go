// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package wire implements the framing of the command socket protocol.
//
// A request is the raw UTF-8 command string (no leading program name).
// The client writes it and then half-closes its write direction; there
// is no length prefix, so end-of-stream is the frame boundary.
//
// A response is written once by the server, followed by its own
// half-close:
//
//	<exit_code>\0<stdout>\0<stderr>
//
// where exit_code is base-10 in [0,255]. The response always contains
// at least two NUL delimiters; [DecodeResponse] splits on the first two
// only, so stderr may itself contain NUL bytes.
//
// [Call] is the client side: dial, write, half-close, read to EOF,
// decode.
package wire
