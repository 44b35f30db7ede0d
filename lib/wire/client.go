// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"context"
	"io"
	"net"
	"time"

	"github.com/bureau-foundation/cmdsocket/lib/socketerr"
)

// dialTimeout bounds the connect phase only. The exchange itself has
// no deadline unless ctx carries one: a command may legitimately run
// for a long time.
const dialTimeout = 5 * time.Second

// Call sends command to the server at address and returns its decoded
// response. Address is a filesystem path, or "@name" for a Linux
// abstract-namespace socket.
func Call(ctx context.Context, address, command string) (Response, error) {
	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "unix", address)
	if err != nil {
		return Response{}, socketerr.IOFailure(err, "connecting to %s", address)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	// Abort the exchange if ctx is cancelled while blocked in I/O.
	stop := context.AfterFunc(ctx, func() {
		conn.SetDeadline(time.Unix(1, 0))
	})
	defer stop()

	if _, err := io.WriteString(conn, command); err != nil {
		return Response{}, socketerr.IOFailure(err, "writing request to %s", address)
	}
	// The half-close is the request frame boundary.
	if err := conn.(*net.UnixConn).CloseWrite(); err != nil {
		return Response{}, socketerr.IOFailure(err, "half-closing connection to %s", address)
	}

	data, err := io.ReadAll(conn)
	if err != nil {
		if ctx.Err() != nil {
			return Response{}, socketerr.IOFailure(ctx.Err(), "reading response from %s", address)
		}
		return Response{}, socketerr.IOFailure(err, "reading response from %s", address)
	}
	if len(data) == 0 {
		// The server closes without writing when the peer is not
		// authorized or the request could not be read.
		return Response{}, socketerr.IOFailure(io.ErrUnexpectedEOF, "server at %s closed the connection without a response", address)
	}

	return DecodeResponse(string(data))
}
