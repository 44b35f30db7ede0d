// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package localsocket

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bureau-foundation/cmdsocket/lib/clock"
	"github.com/bureau-foundation/cmdsocket/lib/socketerr"
)

// State is a position in the manager lifecycle.
type State int32

const (
	StateCreated State = iota
	StateStarting
	StateListening
	StateStopping
	StateStopped
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateStarting:
		return "starting"
	case StateListening:
		return "listening"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Handler serves one authorized connection. The manager closes the
// client after ServeClient returns and recovers any panic it raises.
type Handler interface {
	ServeClient(ctx context.Context, client *Client)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, client *Client)

// ServeClient calls f.
func (f HandlerFunc) ServeClient(ctx context.Context, client *Client) { f(ctx, client) }

// Options holds the collaborators of a Manager. Zero fields get
// defaults: a discarding logger, SocketCredentials, and the real clock.
type Options struct {
	Logger    *slog.Logger
	Inspector CredentialInspector
	Clock     clock.Clock
}

// Stats is a point-in-time snapshot of a manager's counters.
type Stats struct {
	State     State
	Address   string
	StartedAt time.Time
	Uptime    time.Duration

	// Accepted counts connections handed to the handler.
	Accepted uint64
	// Denied counts connections closed for failed or unauthorized
	// credentials.
	Denied uint64
	// Rejected counts connections closed by the admission limit.
	Rejected uint64
	// Panics counts handler panics recovered.
	Panics uint64
	// Active is the number of connections currently being served.
	Active int64
}

// maxAcceptBackoff caps the delay after consecutive accept errors
// (EMFILE and similar) so the loop does not spin.
const maxAcceptBackoff = time.Second

// Manager owns one listening socket and its accept loop.
type Manager struct {
	config      RunConfig
	registryKey string
	handler     Handler
	logger      *slog.Logger
	inspector   CredentialInspector
	clock       clock.Clock

	// lifecycle serializes Start and Stop.
	lifecycle  sync.Mutex
	state      atomic.Int32
	listener   *net.UnixListener
	stopping   chan struct{}
	acceptDone chan struct{}
	startedAt  atomic.Pointer[time.Time]

	// admission holds one token per served connection when
	// MaxConnections is set; nil means unbounded.
	admission   chan struct{}
	connections sync.WaitGroup

	accepted atomic.Uint64
	denied   atomic.Uint64
	rejected atomic.Uint64
	panics   atomic.Uint64
	active   atomic.Int64
}

// NewManager creates a manager in the created state. Nothing is bound
// until Start.
func NewManager(config RunConfig, handler Handler, options Options) *Manager {
	if options.Logger == nil {
		options.Logger = slog.New(slog.DiscardHandler)
	}
	if options.Inspector == nil {
		options.Inspector = SocketCredentials{}
	}
	if options.Clock == nil {
		options.Clock = clock.Real()
	}

	m := &Manager{
		config:      config,
		registryKey: registryKey(config),
		handler:     handler,
		inspector:   options.Inspector,
		clock:       options.Clock,
		logger: options.Logger.With(
			"server", config.Title,
			"address", config.Address(),
		),
	}
	if config.MaxConnections > 0 {
		m.admission = make(chan struct{}, config.MaxConnections)
	}
	return m
}

// Start creates a manager and starts it. On failure the error is
// returned and no manager is.
func Start(config RunConfig, handler Handler, options Options) (*Manager, error) {
	m := NewManager(config, handler, options)
	if err := m.Start(); err != nil {
		return nil, err
	}
	return m, nil
}

// State returns the current lifecycle state.
func (m *Manager) State() State { return State(m.state.Load()) }

func (m *Manager) setState(s State) { m.state.Store(int32(s)) }

// Address returns the configured socket address.
func (m *Manager) Address() string { return m.config.Address() }

// Config returns the manager's run configuration.
func (m *Manager) Config() RunConfig { return m.config }

// Start binds the socket and launches the accept loop. Starting a
// listening manager is a no-op. Starting a stopped or failed manager,
// or any bind failure, returns a socketerr.KindBindFailed error; a bind
// failure also moves the manager to failed.
func (m *Manager) Start() error {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()

	switch state := m.State(); state {
	case StateListening:
		return nil
	case StateCreated:
	default:
		return socketerr.BindFailed(nil, "cannot start %s manager for %s", state, m.Address())
	}

	m.setState(StateStarting)
	listener, err := m.listen()
	if err != nil {
		m.setState(StateFailed)
		m.logger.Error("socket server failed to start", "error", err)
		return err
	}

	startedAt := m.clock.Now()
	m.startedAt.Store(&startedAt)
	m.listener = listener
	m.stopping = make(chan struct{})
	m.acceptDone = make(chan struct{})
	m.setState(StateListening)

	go m.acceptLoop(listener, m.stopping, m.acceptDone)

	m.logger.Info("socket server listening",
		"abstract", m.config.Abstract,
		"mode", m.config.Mode.String(),
		"allowed_uids", m.config.Allowed.String(),
		"max_connections", m.config.MaxConnections,
	)
	return nil
}

// Stop closes the listening socket and waits for the accept loop to
// exit. Connections already being served are not interrupted. Stop is
// idempotent; a manager that never started moves straight to stopped,
// and a failed manager stays failed.
func (m *Manager) Stop() error {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()

	switch m.State() {
	case StateCreated:
		m.setState(StateStopped)
		return nil
	case StateListening:
	default:
		return nil
	}

	m.setState(StateStopping)
	close(m.stopping)
	// Closing the listener unblocks the pending accept and, for a
	// filesystem socket, unlinks the socket file.
	closeErr := m.listener.Close()
	<-m.acceptDone

	releaseAddress(m.registryKey, m)
	m.setState(StateStopped)

	if closeErr != nil && !errors.Is(closeErr, net.ErrClosed) {
		m.logger.Warn("closing listener", "error", closeErr)
		return socketerr.IOFailure(closeErr, "closing listener on %s", m.Address())
	}
	m.logger.Info("socket server stopped", "active_connections", m.active.Load())
	return nil
}

// ErrNotStopped is returned by Drain on a manager that is still
// accepting connections.
var ErrNotStopped = errors.New("drain requires a stopped manager")

// Drain waits until every connection being served has finished, or
// ctx is done. Call it after Stop: while the accept loop runs, new
// connections may still be added.
func (m *Manager) Drain(ctx context.Context) error {
	// Taking the lifecycle lock waits out a concurrent Stop.
	m.lifecycle.Lock()
	state := m.State()
	m.lifecycle.Unlock()
	if state == StateListening {
		return ErrNotStopped
	}

	done := make(chan struct{})
	go func() {
		m.connections.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns a snapshot of the manager's counters.
func (m *Manager) Stats() Stats {
	stats := Stats{
		State:    m.State(),
		Address:  m.Address(),
		Accepted: m.accepted.Load(),
		Denied:   m.denied.Load(),
		Rejected: m.rejected.Load(),
		Panics:   m.panics.Load(),
		Active:   m.active.Load(),
	}
	if startedAt := m.startedAt.Load(); startedAt != nil {
		stats.StartedAt = *startedAt
		if stats.State == StateListening {
			stats.Uptime = m.clock.Now().Sub(*startedAt)
		}
	}
	return stats
}

func (m *Manager) acceptLoop(listener *net.UnixListener, stopping <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	var backoff time.Duration
	for {
		conn, err := listener.AcceptUnix()
		if err != nil {
			select {
			case <-stopping:
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}

			backoff = min(max(2*backoff, 5*time.Millisecond), maxAcceptBackoff)
			m.logger.Error("accept failed", "error", err, "retry_in", backoff)
			select {
			case <-stopping:
				return
			case <-m.clock.After(backoff):
			}
			continue
		}
		backoff = 0
		m.admit(conn)
	}
}

// admit checks the peer and, if authorized, starts serving the
// connection. It runs on the accept goroutine and never reads from
// the connection.
func (m *Manager) admit(conn *net.UnixConn) {
	peer, err := m.inspector.PeerCredentials(conn)
	if err != nil {
		m.denied.Add(1)
		m.logger.Warn("connection denied",
			"kind", socketerr.KindPermissionDenied,
			"error", socketerr.PermissionDenied(err, "reading peer credentials"),
		)
		conn.Close()
		return
	}

	if !m.config.Allowed.Permits(peer) {
		m.denied.Add(1)
		m.logger.Warn("connection denied",
			"kind", socketerr.KindPermissionDenied,
			"peer_uid", peer.UID,
			"peer_gid", peer.GID,
			"peer_pid", peer.PID,
		)
		conn.Close()
		return
	}

	if m.admission != nil {
		select {
		case m.admission <- struct{}{}:
		default:
			m.rejected.Add(1)
			m.logger.Warn("connection rejected at admission limit",
				"peer_uid", peer.UID,
				"peer_pid", peer.PID,
				"max_connections", m.config.MaxConnections,
			)
			conn.Close()
			return
		}
	}

	client := newClient(conn, peer, m.config)
	m.accepted.Add(1)
	m.active.Add(1)
	m.connections.Add(1)
	go m.serve(client)
}

func (m *Manager) serve(client *Client) {
	defer func() {
		if recovered := recover(); recovered != nil {
			m.panics.Add(1)
			m.logger.Error("handler panicked",
				"client", client.ID,
				"panic", recovered,
				"stack", string(debug.Stack()),
			)
		}
		if err := client.Close(); err != nil {
			m.logger.Debug("closing client", "client", client.ID, "error", err)
		}
		if m.admission != nil {
			<-m.admission
		}
		m.active.Add(-1)
		m.connections.Done()
	}()

	m.logger.Debug("client accepted",
		"client", client.ID,
		"peer_uid", client.Peer.UID,
		"peer_pid", client.Peer.PID,
	)
	m.handler.ServeClient(context.Background(), client)
}
