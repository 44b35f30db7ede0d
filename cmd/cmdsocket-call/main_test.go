// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bureau-foundation/cmdsocket/lib/control"
	"github.com/bureau-foundation/cmdsocket/lib/localsocket"
	"github.com/bureau-foundation/cmdsocket/lib/testutil"
	"github.com/bureau-foundation/cmdsocket/lib/wire"
)

// startEcho serves a socket that reports each request back on stdout
// and exits 3 when the request is "fail".
func startEcho(t *testing.T) string {
	t.Helper()
	socketPath := filepath.Join(testutil.SocketDir(t), "cmd.sock")
	manager, err := localsocket.Start(localsocket.DefaultRunConfig("echo", socketPath),
		localsocket.HandlerFunc(func(_ context.Context, client *localsocket.Client) {
			request, err := client.ReadRequest()
			if err != nil {
				return
			}
			if request == "fail" {
				client.SendResponse(wire.EncodeResponse(3, "", "failed\n"))
				return
			}
			client.SendResponse(wire.EncodeResponse(0, request, ""))
		}),
		localsocket.Options{})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { manager.Stop() })
	return socketPath
}

func TestRunSendsQuotedArguments(t *testing.T) {
	socketPath := startEcho(t)
	var stdout, stderr bytes.Buffer
	err := run([]string{"--socket", socketPath, "echo", "two words", "--not-a-flag"}, nil, &stdout, &stderr)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := stdout.String(); got != `echo 'two words' --not-a-flag` {
		t.Errorf("request seen by server = %q", got)
	}
}

func TestRunPropagatesExitCode(t *testing.T) {
	socketPath := startEcho(t)
	var stdout, stderr bytes.Buffer
	err := run([]string{"--socket", socketPath, "fail"}, nil, &stdout, &stderr)

	var coded interface{ ExitCode() int }
	if !errors.As(err, &coded) || coded.ExitCode() != 3 {
		t.Fatalf("run error = %v, want exit code 3", err)
	}
	if stderr.String() != "failed\n" {
		t.Errorf("stderr = %q", stderr.String())
	}
	if code, ok := remoteExitCode(err); !ok || code != 3 {
		t.Errorf("remoteExitCode = %d, %v; want 3, true", code, ok)
	}
}

func TestRemoteExitCodeOnlyForRemoteStatus(t *testing.T) {
	if code, ok := remoteExitCode(fmt.Errorf("call: %w", exitCodeError(42))); !ok || code != 42 {
		t.Errorf("wrapped exit code = %d, %v", code, ok)
	}
	if _, ok := remoteExitCode(errors.New("connecting: refused")); ok {
		t.Error("local error treated as a remote exit code")
	}
	if _, ok := remoteExitCode(nil); ok {
		t.Error("nil error treated as a remote exit code")
	}
}

func TestRunReadsPipedStdin(t *testing.T) {
	socketPath := startEcho(t)

	reader, writer, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	writer.WriteString("ls -la 'my dir'\n")
	writer.Close()
	defer reader.Close()

	var stdout, stderr bytes.Buffer
	if err := run([]string{"--socket", socketPath}, reader, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := stdout.String(); got != "ls -la 'my dir'" {
		t.Errorf("request seen by server = %q", got)
	}
}

func TestRunWithoutCommand(t *testing.T) {
	var stdout, stderr bytes.Buffer
	err := run([]string{"--socket", "/nonexistent.sock"}, nil, &stdout, &stderr)
	if err == nil || !strings.Contains(err.Error(), "no command given") {
		t.Errorf("run error = %v", err)
	}
}

func TestResolveSocket(t *testing.T) {
	t.Setenv("CMDSOCKET_SOCKET", "")
	t.Setenv("XDG_RUNTIME_DIR", "/run/user/7")
	if got := resolveSocket(options{}); got != "/run/user/7/cmdsocket/command.sock" {
		t.Errorf("default = %q", got)
	}
	t.Setenv("CMDSOCKET_SOCKET", "/srv/cmd.sock")
	if got := resolveSocket(options{}); got != "/srv/cmd.sock" {
		t.Errorf("from environment = %q", got)
	}
	if got := resolveSocket(options{socket: "termux-am", abstract: true}); got != "@termux-am" {
		t.Errorf("abstract = %q", got)
	}
}

func TestStatusOutput(t *testing.T) {
	controlPath := filepath.Join(testutil.SocketDir(t), "ctl.sock")
	server := control.NewServer(nil)
	server.Handle(control.ActionStatus, control.StatusAction(control.Build{Version: "9.9.9"}))
	manager, err := localsocket.Start(localsocket.DefaultRunConfig("control", controlPath), server, localsocket.Options{})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { manager.Stop() })

	var stdout, stderr bytes.Buffer
	if err := run([]string{"--status", "--control-socket", controlPath}, nil, &stdout, &stderr); err != nil {
		t.Fatalf("run --status: %v", err)
	}
	if !strings.Contains(stdout.String(), "version: 9.9.9") || !strings.Contains(stdout.String(), "SERVER") {
		t.Errorf("status table = %q", stdout.String())
	}

	stdout.Reset()
	if err := run([]string{"--status", "--json", "--control-socket", controlPath}, nil, &stdout, &stderr); err != nil {
		t.Fatalf("run --status --json: %v", err)
	}
	var decoded control.Status
	if err := json.Unmarshal(stdout.Bytes(), &decoded); err != nil {
		t.Fatalf("status JSON: %v\n%s", err, stdout.String())
	}
	if decoded.Version != "9.9.9" {
		t.Errorf("decoded = %+v", decoded)
	}

	stdout.Reset()
	if err := run([]string{"--status", "--raw", "--control-socket", controlPath}, nil, &stdout, &stderr); err != nil {
		t.Fatalf("run --status --raw: %v", err)
	}
	for _, want := range []string{`"ok"`, `"version"`, `"9.9.9"`} {
		if !strings.Contains(stdout.String(), want) {
			t.Errorf("raw status %q lacks %s", stdout.String(), want)
		}
	}
}
