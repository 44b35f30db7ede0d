// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package shellargs splits a command string into arguments the way a
// bourne shell would, without performing any expansion, and builds
// command strings that split back into the same arguments.
//
// Quoting rules for [Tokenize]:
//
//   - Unquoted whitespace separates arguments.
//   - Inside single quotes nothing is special; the region ends at the
//     next single quote.
//   - Inside double quotes a backslash escapes only a double quote or
//     a backslash. Any other backslash sequence is kept as written.
//   - Outside quotes a backslash makes the next character literal.
//   - Quoted and unquoted segments with no whitespace between them form
//     one argument, and an empty quoted segment is an empty argument.
//
// An unterminated quote or a trailing backslash is a
// socketerr.KindMalformedInput error; input is never silently
// truncated.
package shellargs
