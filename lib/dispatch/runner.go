// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package dispatch

import (
	"context"
	"io"
)

// Runner executes one command. The returned code is the command's exit
// status; any nonzero code is a normal outcome. A non-nil error is a
// fault: the command could not be run to completion at all.
type Runner interface {
	Run(ctx context.Context, args []string, stdout, stderr io.Writer) (int, error)
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context, args []string, stdout, stderr io.Writer) (int, error)

// Run calls f.
func (f RunnerFunc) Run(ctx context.Context, args []string, stdout, stderr io.Writer) (int, error) {
	return f(ctx, args, stdout, stderr)
}
