// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package control

import (
	"context"
	"fmt"
	"io"
	"maps"
	"net"
	"time"

	"github.com/bureau-foundation/cmdsocket/lib/codec"
)

// dialTimeout covers only the connect phase.
const dialTimeout = 5 * time.Second

// responseReadTimeout applies when ctx has no deadline.
const responseReadTimeout = 30 * time.Second

// maxResponseSize bounds a decoded response.
const maxResponseSize = 1024 * 1024

// ActionError is returned by Call when the server answers ok=false.
type ActionError struct {
	Action  string
	Message string
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("control action %q failed: %s", e.Action, e.Message)
}

// Call sends action with fields to the control socket at address and
// decodes the response data into result, if result is non-nil. fields
// must not contain an "action" key. Each call uses a new connection.
func Call(ctx context.Context, address, action string, fields map[string]any, result any) error {
	raw, err := CallRaw(ctx, address, action, fields)
	if err != nil {
		return err
	}
	var response Response
	if err := codec.Unmarshal(raw, &response); err != nil {
		return fmt.Errorf("decoding response to %q: %w", action, err)
	}
	if !response.OK {
		return &ActionError{Action: action, Message: response.Error}
	}
	if result != nil && len(response.Data) > 0 {
		if err := codec.Unmarshal(response.Data, result); err != nil {
			return fmt.Errorf("decoding response data for %q: %w", action, err)
		}
	}
	return nil
}

// CallRaw sends action like Call and returns the undecoded CBOR
// response envelope.
func CallRaw(ctx context.Context, address, action string, fields map[string]any) ([]byte, error) {
	request := make(map[string]any, len(fields)+1)
	maps.Copy(request, fields)
	request["action"] = action

	raw, err := send(ctx, address, request)
	if err != nil {
		return nil, fmt.Errorf("calling %q on %s: %w", action, address, err)
	}
	return raw, nil
}

func send(ctx context.Context, address string, request any) ([]byte, error) {
	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "unix", address)
	if err != nil {
		return nil, fmt.Errorf("connecting: %w", err)
	}
	defer conn.Close()

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(responseReadTimeout)
	}
	conn.SetDeadline(deadline)
	stop := context.AfterFunc(ctx, func() { conn.SetDeadline(time.Now()) })
	defer stop()

	if err := codec.NewEncoder(conn).Encode(request); err != nil {
		return nil, fmt.Errorf("writing request: %w", err)
	}
	// The server reads until end-of-stream.
	if err := conn.(*net.UnixConn).CloseWrite(); err != nil {
		return nil, fmt.Errorf("closing request stream: %w", err)
	}

	raw, err := io.ReadAll(io.LimitReader(conn, maxResponseSize+1))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if len(raw) > maxResponseSize {
		return nil, fmt.Errorf("response exceeds %d bytes", maxResponseSize)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("reading response: %w", io.ErrUnexpectedEOF)
	}
	return raw, nil
}
