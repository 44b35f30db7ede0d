// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package socketerr defines the error taxonomy shared by the command
// socket packages. Every failure that crosses a package boundary is an
// [*Error] carrying a [Kind], an optional cause, and a formatted
// context string (typically the offending input or address), so a
// caller can always tell why an operation failed without parsing
// message text.
//
// Use the kind-specific constructors ([BindFailed], [PermissionDenied],
// [MalformedInput], [IOFailure], [RunnerFault]) and inspect with
// [KindOf] or [Is]. Both walk the full wrapped chain, so an *Error
// wrapped again with fmt.Errorf("...: %w") still classifies.
//
// This package has no internal dependencies.
package socketerr
