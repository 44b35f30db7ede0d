// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/bureau-foundation/cmdsocket/lib/dispatch"
	"github.com/bureau-foundation/cmdsocket/lib/shellenv"
	"github.com/bureau-foundation/cmdsocket/lib/socketerr"
)

// Shell-convention exit codes.
const (
	ExitUsage        = 2
	ExitTimedOut     = 124
	ExitNotPermitted = 126
	ExitNotFound     = 127
	ExitSignalBase   = 128
)

// outputWaitDelay bounds how long Wait keeps copying output after the
// child exits or is killed.
const outputWaitDelay = 2 * time.Second

// ExecOptions configures an Exec runner.
type ExecOptions struct {
	// Timeout bounds each command. Zero means no limit beyond the
	// caller's context.
	Timeout time.Duration

	// Allowed, when non-empty, lists the command names that may run.
	// Names are compared against the base name of the first argument.
	Allowed []string

	// FailSafe requests the environment's minimal variable set.
	FailSafe bool

	// Kind is reported to the environment when setting up each
	// command. The default is shellenv.KindAppShell.
	Kind shellenv.Kind

	// WorkingDirectory is where commands start. Empty means the
	// environment's default.
	WorkingDirectory string

	Logger *slog.Logger
}

// Exec runs commands as child processes.
type Exec struct {
	environment shellenv.Environment
	timeout     time.Duration
	allowed     []string
	kind        shellenv.Kind
	directory   string
	failSafe    bool
	logger      *slog.Logger
}

var _ dispatch.Runner = (*Exec)(nil)

// NewExec returns an Exec runner using environment.
func NewExec(environment shellenv.Environment, options ExecOptions) *Exec {
	if options.Kind == shellenv.KindOther {
		options.Kind = shellenv.KindAppShell
	}
	if options.Logger == nil {
		options.Logger = slog.New(slog.DiscardHandler)
	}
	allowed := slices.Clone(options.Allowed)
	slices.Sort(allowed)
	return &Exec{
		environment: environment,
		timeout:     options.Timeout,
		allowed:     slices.Compact(allowed),
		kind:        options.Kind,
		directory:   options.WorkingDirectory,
		failSafe:    options.FailSafe,
		logger:      options.Logger,
	}
}

// Run starts args[0] with the remaining arguments and waits for it.
// The child's exit status is returned as the exit code. Only a failure
// to start the child is reported as an error.
func (e *Exec) Run(ctx context.Context, args []string, stdout, stderr io.Writer) (int, error) {
	if len(args) == 0 {
		fmt.Fprintln(stderr, "no command given")
		return ExitUsage, nil
	}

	name := args[0]
	if !e.permits(name) {
		fmt.Fprintf(stderr, "%s: command not permitted\n", name)
		return ExitNotPermitted, nil
	}

	env := e.environment.SetupShellCommandEnvironment(shellenv.ExecutionCommand{
		Executable:       name,
		Arguments:        args[1:],
		WorkingDirectory: e.directory,
		Kind:             e.kind,
		FailSafe:         e.failSafe,
	})
	path, err := lookPath(name, env[shellenv.EnvPath])
	if err != nil {
		fmt.Fprintf(stderr, "%s: command not found\n", name)
		return ExitNotFound, nil
	}
	argv := e.environment.SetupShellCommandArguments(path, args[1:])

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	command := exec.CommandContext(ctx, argv[0], argv[1:]...)
	command.Env = shellenv.Pairs(env)
	command.Dir = env[shellenv.EnvPWD]
	command.Stdout = stdout
	command.Stderr = stderr
	// A grandchild that inherits the output pipes must not hold the
	// response open after the command itself has exited.
	command.WaitDelay = outputWaitDelay

	started := time.Now()
	if err := command.Start(); err != nil {
		return 0, socketerr.RunnerFault(err, "starting %s", name)
	}
	err = command.Wait()
	e.logger.Debug("command exited",
		"command", filepath.Base(name),
		"duration", time.Since(started),
		"error", err,
	)
	if err == nil {
		return 0, nil
	}

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return 0, socketerr.RunnerFault(err, "waiting for %s", name)
	}
	if e.timeout > 0 && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		fmt.Fprintf(stderr, "%s: timed out after %s\n", name, e.timeout)
		return ExitTimedOut, nil
	}
	if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
		return ExitSignalBase + int(status.Signal()), nil
	}
	return exitErr.ExitCode(), nil
}

func (e *Exec) permits(name string) bool {
	if len(e.allowed) == 0 {
		return true
	}
	_, found := slices.BinarySearch(e.allowed, filepath.Base(name))
	return found
}

// lookPath resolves name against searchPath, the environment's PATH
// rather than the server's own. Names containing a slash are used as
// given.
func lookPath(name, searchPath string) (string, error) {
	if strings.Contains(name, "/") {
		if isExecutable(name) {
			return name, nil
		}
		return "", exec.ErrNotFound
	}
	for _, directory := range filepath.SplitList(searchPath) {
		if directory == "" {
			continue
		}
		candidate := filepath.Join(directory, name)
		if isExecutable(candidate) {
			return candidate, nil
		}
	}
	return "", exec.ErrNotFound
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular() && info.Mode()&0o111 != 0
}
