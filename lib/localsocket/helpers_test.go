// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package localsocket

import (
	"context"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bureau-foundation/cmdsocket/lib/testutil"
	"github.com/bureau-foundation/cmdsocket/lib/wire"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

func testSocketPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(testutil.SocketDir(t), "test.sock")
}

// echoHandler answers every request with exit code 0 and the request
// text as stdout.
func echoHandler() Handler {
	return HandlerFunc(func(_ context.Context, client *Client) {
		request, err := client.ReadRequest()
		if err != nil {
			return
		}
		client.SendResponse(wire.EncodeResponse(0, request, ""))
	})
}

// startManager starts a manager on a fresh path and stops it when the
// test ends.
func startManager(t *testing.T, config RunConfig, handler Handler, options Options) *Manager {
	t.Helper()
	if options.Logger == nil {
		options.Logger = testLogger()
	}
	manager, err := Start(config, handler, options)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { manager.Stop() })
	return manager
}

func call(t *testing.T, address, command string) wire.Response {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	response, err := wire.Call(ctx, address, command)
	if err != nil {
		t.Fatalf("Call(%q): %v", command, err)
	}
	return response
}

// readUntilClosed reads from conn until the server closes it and
// returns what was received.
func readUntilClosed(t *testing.T, conn net.Conn) []byte {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	data, err := io.ReadAll(conn)
	if err != nil {
		t.Fatalf("reading until close: %v", err)
	}
	return data
}

// waitFor polls condition until it holds or five seconds pass.
func waitFor(t *testing.T, description string, condition func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !condition() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", description)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// fixedPeer is a credential inspector that reports the same identity
// for every connection.
func fixedPeer(peer Peer) CredentialInspector {
	return CredentialInspectorFunc(func(*net.UnixConn) (Peer, error) {
		return peer, nil
	})
}
