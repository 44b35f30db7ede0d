// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/cmdsocket/lib/localsocket"
	"github.com/bureau-foundation/cmdsocket/lib/socketerr"
	"github.com/bureau-foundation/cmdsocket/lib/testutil"
	"github.com/bureau-foundation/cmdsocket/lib/wire"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// echoRunner implements "echo", "fail N", "warn-then-error" and
// "explode"; anything else exits 127.
func echoRunner() Runner {
	return RunnerFunc(func(_ context.Context, args []string, stdout, stderr io.Writer) (int, error) {
		if len(args) == 0 {
			return 0, nil
		}
		switch args[0] {
		case "echo":
			fmt.Fprintln(stdout, strings.Join(args[1:], " "))
			return 0, nil
		case "fail":
			var code int
			fmt.Sscanf(args[1], "%d", &code)
			fmt.Fprint(stderr, "failing")
			return code, nil
		case "warn-then-error":
			fmt.Fprint(stdout, "partial")
			fmt.Fprint(stderr, "warning")
			return 0, errors.New("backend unavailable")
		case "explode":
			panic("kaboom")
		}
		fmt.Fprintf(stderr, "%s: not found", args[0])
		return 127, nil
	})
}

func TestDispatch(t *testing.T) {
	dispatcher := New(echoRunner(), testLogger())
	tests := []struct {
		name string
		args []string
		want Result
	}{
		{"success", []string{"echo", "hi"}, Result{0, "hi\n", ""}},
		{"no arguments", []string{}, Result{0, "", ""}},
		{"nonzero exit", []string{"fail", "3"}, Result{3, "", "failing"}},
		{"exit code above range", []string{"fail", "300"}, Result{1, "", "failing"}},
		{"negative exit code", []string{"fail", "-2"}, Result{1, "", "failing"}},
		{"not found", []string{"nope"}, Result{127, "", "nope: not found"}},
		{"fault after output", []string{"warn-then-error"}, Result{1, "partial", "warning\n\nbackend unavailable"}},
		{"panic", []string{"explode"}, Result{1, "", "runner panicked: kaboom"}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := dispatcher.Dispatch(context.Background(), test.args)
			if got != test.want {
				t.Errorf("Dispatch(%q) = %+v, want %+v", test.args, got, test.want)
			}
		})
	}
}

func TestDispatchFaultWithoutStderr(t *testing.T) {
	dispatcher := New(RunnerFunc(func(context.Context, []string, io.Writer, io.Writer) (int, error) {
		return 0, errors.New("no runner")
	}), nil)

	got := dispatcher.Dispatch(context.Background(), []string{"x"})
	if got.ExitCode != 1 || got.Stderr != "no runner" {
		t.Errorf("Dispatch = %+v, want exit 1 with bare fault text", got)
	}
}

func TestDispatchFaultKeepsExistingKind(t *testing.T) {
	dispatcher := New(RunnerFunc(func(context.Context, []string, io.Writer, io.Writer) (int, error) {
		return 5, socketerr.IOFailure(nil, "pipe closed")
	}), nil)

	got := dispatcher.Dispatch(context.Background(), []string{"x"})
	if got.ExitCode != 1 || got.Stderr != "pipe closed" {
		t.Errorf("Dispatch = %+v", got)
	}
}

func TestDispatchPassesArgumentsAndContext(t *testing.T) {
	type key struct{}
	var gotArgs []string
	var gotValue any
	dispatcher := New(RunnerFunc(func(ctx context.Context, args []string, _, _ io.Writer) (int, error) {
		gotArgs = args
		gotValue = ctx.Value(key{})
		return 0, nil
	}), nil)

	ctx := context.WithValue(context.Background(), key{}, "marker")
	dispatcher.Dispatch(ctx, []string{"a", "b c"})
	if !slices.Equal(gotArgs, []string{"a", "b c"}) {
		t.Errorf("runner args = %q", gotArgs)
	}
	if gotValue != "marker" {
		t.Errorf("runner context value = %v", gotValue)
	}
}

func TestResultResponseSanitizes(t *testing.T) {
	if got := (Result{ExitCode: 256}).Response().ExitCode; got != 1 {
		t.Errorf("Response().ExitCode = %d, want 1", got)
	}
	if got := (Result{ExitCode: 255}).Response().ExitCode; got != 255 {
		t.Errorf("Response().ExitCode = %d, want 255", got)
	}
}

func TestDigest(t *testing.T) {
	a, b := Digest("echo hi"), Digest("echo ho")
	if len(a) != 16 {
		t.Errorf("digest %q has length %d, want 16", a, len(a))
	}
	if a == b {
		t.Error("different requests share a digest")
	}
	if a != Digest("echo hi") {
		t.Error("digest is not deterministic")
	}
	if strings.Contains(a, "echo") {
		t.Error("digest contains request text")
	}
}

// startServer serves dispatcher on a fresh socket for the duration of
// the test and returns its path.
func startServer(t *testing.T, dispatcher *Dispatcher) string {
	t.Helper()
	socketPath := filepath.Join(testutil.SocketDir(t), "cmd.sock")
	manager, err := localsocket.Start(
		localsocket.DefaultRunConfig("dispatch-test", socketPath),
		dispatcher,
		localsocket.Options{Logger: testLogger()},
	)
	if err != nil {
		t.Fatalf("starting server: %v", err)
	}
	t.Cleanup(func() { manager.Stop() })
	return socketPath
}

// rawExchange sends request, half-closes, and returns everything the
// server wrote.
func rawExchange(t *testing.T, socketPath, request string) string {
	t.Helper()
	conn, err := net.DialUnix("unix", nil, &net.UnixAddr{Name: socketPath, Net: "unix"})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(5 * time.Second))

	if _, err := io.WriteString(conn, request); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := conn.CloseWrite(); err != nil {
		t.Fatalf("CloseWrite: %v", err)
	}
	data, err := io.ReadAll(conn)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return string(data)
}

func TestServeClientEndToEnd(t *testing.T) {
	socketPath := startServer(t, New(echoRunner(), testLogger()))

	tests := []struct {
		name    string
		request string
		want    string
	}{
		{"echo", "echo hi", "0\x00hi\n\x00"},
		{"quoted argument", `echo "a  b" 'c'`, "0\x00a  b c\n\x00"},
		{"nonzero", "fail 2", "2\x00\x00failing"},
		{"empty request", "", "0\x00\x00"},
		{"fault", "warn-then-error", "1\x00partial\x00warning\n\nbackend unavailable"},
		{"panic", "explode", "1\x00\x00runner panicked: kaboom"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := rawExchange(t, socketPath, test.request); got != test.want {
				t.Errorf("response to %q = %q, want %q", test.request, got, test.want)
			}
		})
	}
}

func TestServeClientMalformedRequest(t *testing.T) {
	called := make(chan struct{}, 1)
	dispatcher := New(RunnerFunc(func(context.Context, []string, io.Writer, io.Writer) (int, error) {
		called <- struct{}{}
		return 0, nil
	}), testLogger())
	socketPath := startServer(t, dispatcher)

	response, err := wire.Call(context.Background(), socketPath, `echo "unterminated`)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if response.ExitCode != 1 || response.Stdout != "" || response.Stderr == "" {
		t.Errorf("response = %+v, want exit 1 with tokenizer error", response)
	}
	testutil.RequireNoReceive(t, called, 50*time.Millisecond, "runner invoked for malformed request")
}

func TestServeClientSingleResponse(t *testing.T) {
	socketPath := startServer(t, New(echoRunner(), testLogger()))

	got := rawExchange(t, socketPath, "echo once")
	if strings.Count(got, "\x00") != 2 {
		t.Errorf("response %q does not contain exactly one encoded result", got)
	}
}

func TestServeClientConcurrent(t *testing.T) {
	socketPath := startServer(t, New(echoRunner(), testLogger()))

	const clients = 20
	errs := make(chan error, clients)
	for i := range clients {
		go func() {
			want := fmt.Sprintf("client-%d", i)
			response, err := wire.Call(context.Background(), socketPath, "echo "+want)
			if err == nil && response.Stdout != want+"\n" {
				err = fmt.Errorf("client %d got %q", i, response.Stdout)
			}
			errs <- err
		}()
	}
	for range clients {
		if err := testutil.RequireReceive(t, errs, 5*time.Second, "client result"); err != nil {
			t.Error(err)
		}
	}
}
