// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package dispatch

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/zeebo/blake3"

	"github.com/bureau-foundation/cmdsocket/lib/localsocket"
	"github.com/bureau-foundation/cmdsocket/lib/netutil"
	"github.com/bureau-foundation/cmdsocket/lib/shellargs"
	"github.com/bureau-foundation/cmdsocket/lib/socketerr"
	"github.com/bureau-foundation/cmdsocket/lib/wire"
)

// Result is the outcome of one dispatched command.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Response converts r to its wire form.
func (r Result) Response() wire.Response {
	return wire.Response{
		ExitCode: wire.SanitizeExitCode(r.ExitCode),
		Stdout:   r.Stdout,
		Stderr:   r.Stderr,
	}
}

// Dispatcher runs client requests through a Runner.
type Dispatcher struct {
	runner Runner
	logger *slog.Logger
}

// New returns a dispatcher for runner. A nil logger discards.
func New(runner Runner, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Dispatcher{runner: runner, logger: logger}
}

var _ localsocket.Handler = (*Dispatcher)(nil)

// Dispatch runs args and captures the output. Faults are folded into
// the result; Dispatch itself never fails.
func (d *Dispatcher) Dispatch(ctx context.Context, args []string) Result {
	var stdout, stderr bytes.Buffer
	exitCode, err := d.run(ctx, args, &stdout, &stderr)
	if err != nil {
		return Result{
			ExitCode: 1,
			Stdout:   stdout.String(),
			Stderr:   appendFault(stderr.String(), err),
		}
	}
	return Result{
		ExitCode: wire.SanitizeExitCode(exitCode),
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}
}

// run calls the runner, converting a panic into a fault.
func (d *Dispatcher) run(ctx context.Context, args []string, stdout, stderr *bytes.Buffer) (exitCode int, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = socketerr.RunnerFault(nil, "runner panicked: %v", recovered)
		}
	}()
	exitCode, err = d.runner.Run(ctx, args, stdout, stderr)
	if err != nil && socketerr.KindOf(err) == "" {
		err = socketerr.RunnerFault(err, "")
	}
	return exitCode, err
}

// appendFault separates the fault text from prior stderr output with a
// blank line.
func appendFault(stderr string, fault error) string {
	if stderr == "" {
		return fault.Error()
	}
	return stderr + "\n\n" + fault.Error()
}

// ServeClient handles one connection: read, tokenize, dispatch, and
// send exactly one response. A request that cannot be read gets no
// response. A request that cannot be tokenized gets exit code 1 with
// the tokenizer error on stderr.
func (d *Dispatcher) ServeClient(ctx context.Context, client *localsocket.Client) {
	logger := d.logger.With("client", client.ID, "peer_pid", client.Peer.PID)

	request, err := client.ReadRequest()
	if err != nil {
		logger.Warn("reading request", "kind", socketerr.KindOf(err), "error", err)
		return
	}
	logger = logger.With("request_digest", Digest(request), "request_bytes", len(request))

	var result Result
	args, err := shellargs.Tokenize(request)
	if err != nil {
		logger.Warn("rejecting malformed request", "kind", socketerr.KindOf(err))
		result = Result{ExitCode: 1, Stderr: err.Error()}
	} else {
		result = d.Dispatch(ctx, args)
		logger.Debug("command finished", "args", len(args), "result", result.String())
	}

	if err := client.SendResponse(result.Response().Encode()); err != nil {
		if netutil.IsExpectedCloseError(err) {
			logger.Debug("client left before response", "error", err)
		} else {
			logger.Warn("sending response", "error", err)
		}
	}
}

// Digest returns a short hex BLAKE3 digest of request for log records.
func Digest(request string) string {
	sum := blake3.Sum256([]byte(request))
	return hex.EncodeToString(sum[:8])
}

// String formats a result for human-readable logs.
func (r Result) String() string {
	return fmt.Sprintf("exit %d (%d bytes stdout, %d bytes stderr)", r.ExitCode, len(r.Stdout), len(r.Stderr))
}
