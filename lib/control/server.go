// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package control

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/bureau-foundation/cmdsocket/lib/codec"
	"github.com/bureau-foundation/cmdsocket/lib/localsocket"
	"github.com/bureau-foundation/cmdsocket/lib/netutil"
)

// ActionFunc handles one action. raw is the full CBOR request,
// including the "action" field, for handlers that take parameters.
// A nil result produces {ok: true} with no data.
type ActionFunc func(ctx context.Context, raw []byte) (any, error)

// Response is the envelope for every control response.
type Response struct {
	OK    bool             `cbor:"ok"`
	Error string           `cbor:"error,omitempty"`
	Data  codec.RawMessage `cbor:"data,omitempty"`
}

// Server routes control requests to registered actions.
type Server struct {
	mu       sync.RWMutex
	handlers map[string]ActionFunc
	logger   *slog.Logger
}

var _ localsocket.Handler = (*Server)(nil)

// NewServer returns a server with no actions. A nil logger discards.
func NewServer(logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{
		handlers: make(map[string]ActionFunc),
		logger:   logger,
	}
}

// Handle registers handler for action. Registering an action twice
// panics.
func (s *Server) Handle(action string, handler ActionFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.handlers[action]; exists {
		panic(fmt.Sprintf("control.Server: duplicate handler for action %q", action))
	}
	s.handlers[action] = handler
}

// ServeClient processes one request-response cycle.
func (s *Server) ServeClient(ctx context.Context, client *localsocket.Client) {
	logger := s.logger.With("client", client.ID)

	payload, err := client.ReadRequestBytes()
	if err != nil {
		logger.Warn("reading control request", "error", err)
		return
	}
	if len(payload) == 0 {
		// Connected and sent nothing.
		return
	}

	response := s.respond(ctx, payload, logger)
	var buffer bytes.Buffer
	if err := codec.NewEncoder(&buffer).Encode(response); err != nil {
		logger.Error("encoding control response", "error", err)
		return
	}
	if err := client.SendResponseBytes(buffer.Bytes()); err != nil && !netutil.IsExpectedCloseError(err) {
		logger.Debug("writing control response", "error", err)
	}
}

func (s *Server) respond(ctx context.Context, payload []byte, logger *slog.Logger) Response {
	var raw codec.RawMessage
	if err := codec.NewDecoder(bytes.NewReader(payload)).Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return failure("invalid request: empty")
		}
		return failure(fmt.Sprintf("invalid request: %v", err))
	}

	var header struct {
		Action string `cbor:"action"`
	}
	if err := codec.Unmarshal(raw, &header); err != nil {
		return failure(fmt.Sprintf("invalid request: %v", err))
	}
	if header.Action == "" {
		return failure("missing required field: action")
	}

	s.mu.RLock()
	handler, exists := s.handlers[header.Action]
	s.mu.RUnlock()
	if !exists {
		return failure(fmt.Sprintf("unknown action %q", header.Action))
	}

	result, err := handler(ctx, raw)
	if err != nil {
		logger.Debug("action failed", "action", header.Action, "error", err)
		return failure(err.Error())
	}

	response := Response{OK: true}
	if result != nil {
		data, err := codec.Marshal(result)
		if err != nil {
			return failure(fmt.Sprintf("internal: marshaling response: %v", err))
		}
		response.Data = data
	}
	return response
}

func failure(message string) Response {
	return Response{OK: false, Error: message}
}
