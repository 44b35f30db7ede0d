// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package localsocket

import (
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bureau-foundation/cmdsocket/lib/socketerr"
	"github.com/bureau-foundation/cmdsocket/lib/wire"
)

// Client is one accepted, authorized connection. It supports a single
// request/response exchange: ReadRequest consumes the request and
// releases the read side; SendResponse writes the response and
// releases the write side. Every release happens at most once, and the
// manager closes the connection when the handler returns.
type Client struct {
	// ID identifies the connection in log records.
	ID string

	// Peer is the verified identity of the connecting process.
	Peer Peer

	conn           *net.UnixConn
	readTimeout    time.Duration
	writeTimeout   time.Duration
	maxRequestSize int64

	inputOnce  sync.Once
	outputOnce sync.Once
	closeOnce  sync.Once
}

func newClient(conn *net.UnixConn, peer Peer, config RunConfig) *Client {
	return &Client{
		ID:             uuid.NewString(),
		Peer:           peer,
		conn:           conn,
		readTimeout:    config.ReadTimeout,
		writeTimeout:   config.WriteTimeout,
		maxRequestSize: config.MaxRequestSize,
	}
}

// ReadRequest blocks until the peer half-closes its write direction
// and returns everything it sent, decoded as UTF-8. The read side is
// released afterwards whether or not the read succeeded.
func (c *Client) ReadRequest() (string, error) {
	defer c.releaseInput()

	if err := c.armReadDeadline(); err != nil {
		return "", err
	}
	return wire.ReadRequest(c.conn, c.maxRequestSize)
}

// ReadRequestBytes is ReadRequest without text decoding, for binary
// protocols.
func (c *Client) ReadRequestBytes() ([]byte, error) {
	defer c.releaseInput()

	if err := c.armReadDeadline(); err != nil {
		return nil, err
	}
	return wire.ReadPayload(c.conn, c.maxRequestSize)
}

// SendResponse writes text in full and then releases the write side,
// which the peer observes as end-of-stream. No retry is attempted.
func (c *Client) SendResponse(text string) error {
	return c.SendResponseBytes([]byte(text))
}

// SendResponseBytes is SendResponse for binary protocols.
func (c *Client) SendResponseBytes(data []byte) error {
	defer c.releaseOutput()

	if c.writeTimeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return socketerr.IOFailure(err, "setting write deadline for client %s", c.ID)
		}
	}
	if _, err := c.conn.Write(data); err != nil {
		return socketerr.IOFailure(err, "writing response to client %s", c.ID)
	}
	return nil
}

func (c *Client) armReadDeadline() error {
	if c.readTimeout <= 0 {
		return nil
	}
	if err := c.conn.SetReadDeadline(time.Now().Add(c.readTimeout)); err != nil {
		return socketerr.IOFailure(err, "setting read deadline for client %s", c.ID)
	}
	return nil
}

// Close closes the connection. Calls after the first return nil.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		if closeErr := c.conn.Close(); closeErr != nil {
			err = socketerr.IOFailure(closeErr, "closing client %s", c.ID)
		}
	})
	return err
}

// The half-close errors below are ignored: the peer may already be
// gone, and the full close that follows releases the descriptor
// regardless.

func (c *Client) releaseInput() {
	c.inputOnce.Do(func() { _ = c.conn.CloseRead() })
}

func (c *Client) releaseOutput() {
	c.outputOnce.Do(func() { _ = c.conn.CloseWrite() })
}
