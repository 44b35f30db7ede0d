// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Cmdsocket-call runs one command through a cmdsocketd command socket
// and exits with the command's exit code.
//
//	cmdsocket-call echo "hello world"
//	echo 'ls -la' | cmdsocket-call
//	cmdsocket-call --status
//
// Arguments are quoted and joined into a single command line. With no
// arguments and stdin not a terminal, stdin is sent verbatim as the
// command line. The command's stdout and stderr are copied to this
// process's stdout and stderr.
//
// With --status the control socket is queried instead and the result
// printed as a table, as JSON with --json, or as the raw CBOR reply in
// diagnostic notation with --raw.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/bureau-foundation/cmdsocket/lib/codec"
	"github.com/bureau-foundation/cmdsocket/lib/config"
	"github.com/bureau-foundation/cmdsocket/lib/control"
	"github.com/bureau-foundation/cmdsocket/lib/process"
	"github.com/bureau-foundation/cmdsocket/lib/shellargs"
	"github.com/bureau-foundation/cmdsocket/lib/version"
	"github.com/bureau-foundation/cmdsocket/lib/wire"
)

// exitCodeError carries the remote command's exit code out of run.
type exitCodeError int

func (e exitCodeError) Error() string { return fmt.Sprintf("exit status %d", int(e)) }
func (e exitCodeError) ExitCode() int { return int(e) }

func main() {
	err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	if code, ok := remoteExitCode(err); ok {
		os.Exit(code)
	}
	if err != nil {
		process.Fatal(err)
	}
}

// remoteExitCode reports whether err carries the remote command's exit
// code, which is passed through without an error message.
func remoteExitCode(err error) (int, bool) {
	var code exitCodeError
	if errors.As(err, &code) {
		return int(code), true
	}
	return 0, false
}

type options struct {
	socket   string
	abstract bool
	control  string
	status   bool
	json     bool
	raw      bool
	timeout  time.Duration
}

func run(args []string, stdin *os.File, stdout, stderr io.Writer) error {
	var opts options
	flagSet := pflag.NewFlagSet("cmdsocket-call", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVar(&opts.socket, "socket", "", "command socket path or abstract name (default: $CMDSOCKET_SOCKET or "+config.DefaultSocketPath+")")
	flagSet.BoolVar(&opts.abstract, "abstract", false, "connect to an abstract-namespace socket")
	flagSet.StringVar(&opts.control, "control-socket", "", "control socket path (default: "+config.DefaultControlPath+")")
	flagSet.BoolVar(&opts.status, "status", false, "query server status from the control socket")
	flagSet.BoolVar(&opts.json, "json", false, "print --status output as JSON")
	flagSet.BoolVar(&opts.raw, "raw", false, "print the undecoded --status reply in CBOR diagnostic notation")
	flagSet.DurationVar(&opts.timeout, "timeout", 0, "give up after this long (0 waits indefinitely)")
	showVersion := flagSet.Bool("version", false, "print version information and exit")
	// Everything after the first positional argument belongs to the
	// remote command, including things that look like flags.
	flagSet.SetInterspersed(false)

	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}
	if *showVersion {
		version.Print("cmdsocket-call")
		return nil
	}

	ctx := context.Background()
	if opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.timeout)
		defer cancel()
	}

	if opts.status {
		if flagSet.NArg() > 0 {
			return errors.New("--status takes no command arguments")
		}
		if opts.raw {
			return printRawStatus(ctx, resolveControl(opts), stdout)
		}
		return printStatus(ctx, resolveControl(opts), opts.json, stdout)
	}

	request, err := buildRequest(flagSet.Args(), stdin)
	if err != nil {
		return err
	}
	response, err := wire.Call(ctx, resolveSocket(opts), request)
	if err != nil {
		return err
	}
	io.WriteString(stdout, response.Stdout)
	io.WriteString(stderr, response.Stderr)
	if response.ExitCode != 0 {
		return exitCodeError(response.ExitCode)
	}
	return nil
}

// buildRequest returns the command line to send: the quoted arguments,
// or stdin when there are none and stdin is not a terminal.
func buildRequest(args []string, stdin *os.File) (string, error) {
	if len(args) > 0 {
		return shellargs.Join(args), nil
	}
	if stdin == nil || term.IsTerminal(int(stdin.Fd())) {
		return "", errors.New("no command given; pass arguments or pipe a command line on stdin")
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return strings.TrimRight(string(data), "\n"), nil
}

func resolveSocket(opts options) string {
	socket := opts.socket
	if socket == "" {
		socket = os.Getenv("CMDSOCKET_SOCKET")
	}
	if socket == "" {
		socket = config.ExpandPath(config.DefaultSocketPath)
	}
	if opts.abstract && !strings.HasPrefix(socket, "@") {
		socket = "@" + socket
	}
	return socket
}

func resolveControl(opts options) string {
	if opts.control != "" {
		return opts.control
	}
	return config.ExpandPath(config.DefaultControlPath)
}

func printRawStatus(ctx context.Context, address string, stdout io.Writer) error {
	raw, err := control.CallRaw(ctx, address, control.ActionStatus, nil)
	if err != nil {
		return err
	}
	text, err := codec.Diagnose(raw)
	if err != nil {
		return fmt.Errorf("rendering status reply: %w", err)
	}
	_, err = fmt.Fprintln(stdout, text)
	return err
}

func printStatus(ctx context.Context, address string, asJSON bool, stdout io.Writer) error {
	var status control.Status
	if err := control.Call(ctx, address, control.ActionStatus, nil, &status); err != nil {
		return err
	}

	if asJSON {
		encoder := json.NewEncoder(stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(status)
	}

	fmt.Fprintf(stdout, "version: %s\n", status.Version)
	if status.BinaryDigest != "" {
		fmt.Fprintf(stdout, "binary:  %s\n", status.BinaryDigest)
	}
	writer := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "SERVER\tADDRESS\tSTATE\tUPTIME\tACCEPTED\tDENIED\tREJECTED\tACTIVE")
	for _, server := range status.Servers {
		uptime := time.Duration(server.UptimeSeconds * float64(time.Second)).Truncate(time.Second)
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%d\n",
			server.Title, server.Address, server.State, uptime,
			server.Accepted, server.Denied, server.Rejected, server.Active)
	}
	return writer.Flush()
}
