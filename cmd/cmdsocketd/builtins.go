// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/bureau-foundation/cmdsocket/lib/dispatch"
	"github.com/bureau-foundation/cmdsocket/lib/runner"
	"github.com/bureau-foundation/cmdsocket/lib/shellenv"
	"github.com/bureau-foundation/cmdsocket/lib/version"
)

// registerBuiltins adds the in-process commands to table.
func registerBuiltins(table *runner.Table, environment *shellenv.Unix) {
	table.Handle("ping", dispatch.RunnerFunc(ping))
	table.Handle("version", dispatch.RunnerFunc(printVersion))
	table.Handle("login-shell", dispatch.RunnerFunc(func(_ context.Context, _ []string, stdout, stderr io.Writer) (int, error) {
		shell := environment.LoginShell()
		if shell == "" {
			fmt.Fprintf(stderr, "no login shell in %s\n", environment.DefaultBinPath())
			return 1, nil
		}
		fmt.Fprintln(stdout, shell)
		return 0, nil
	}))
	table.Handle("builtins", dispatch.RunnerFunc(func(_ context.Context, _ []string, stdout, _ io.Writer) (int, error) {
		fmt.Fprintln(stdout, strings.Join(table.Names(), "\n"))
		return 0, nil
	}))
}

// ping answers "pong", followed by its arguments if any.
func ping(_ context.Context, args []string, stdout, _ io.Writer) (int, error) {
	if len(args) > 1 {
		fmt.Fprintln(stdout, "pong", strings.Join(args[1:], " "))
		return 0, nil
	}
	fmt.Fprintln(stdout, "pong")
	return 0, nil
}

func printVersion(_ context.Context, args []string, stdout, stderr io.Writer) (int, error) {
	if len(args) > 1 {
		fmt.Fprintf(stderr, "usage: version\n")
		return runner.ExitUsage, nil
	}
	fmt.Fprintln(stdout, version.Info())
	return 0, nil
}
