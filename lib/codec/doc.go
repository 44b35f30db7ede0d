// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec holds the CBOR configuration shared by the control
// socket's server and client.
//
// The command socket speaks its own NUL-delimited text format (see
// lib/wire). The control socket, which reports server status, speaks
// CBOR: one self-delimiting value per direction per connection.
//
//	encoder := codec.NewEncoder(conn)
//	decoder := codec.NewDecoder(conn)
//
// Types that are only ever CBOR use `cbor` struct tags. Types that are
// also printed as JSON by the command-line client use `json` tags,
// which fxamacker/cbor reads when no `cbor` tag is present. A field
// never carries both.
package codec
