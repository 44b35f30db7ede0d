// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package localsocket

import (
	"errors"
	"fmt"
	"net"
)

// Peer is the kernel-reported identity of the process on the other end
// of a connection. PID is zero when the platform does not report it.
type Peer struct {
	PID int
	UID uint32
	GID uint32
}

func (p Peer) String() string {
	return fmt.Sprintf("pid=%d uid=%d gid=%d", p.PID, p.UID, p.GID)
}

// CredentialInspector reads the credentials of a connected peer. An
// error denies the connection.
type CredentialInspector interface {
	PeerCredentials(conn *net.UnixConn) (Peer, error)
}

// CredentialInspectorFunc adapts a function to CredentialInspector.
type CredentialInspectorFunc func(conn *net.UnixConn) (Peer, error)

// PeerCredentials calls f.
func (f CredentialInspectorFunc) PeerCredentials(conn *net.UnixConn) (Peer, error) {
	return f(conn)
}

// SocketCredentials reads peer credentials from the socket itself.
type SocketCredentials struct{}

// errCredentialsUnsupported is returned on platforms with no peer
// credential mechanism.
var errCredentialsUnsupported = errors.New("peer credentials are not supported on this platform")

// PeerCredentials queries the kernel for the peer of conn.
func (SocketCredentials) PeerCredentials(conn *net.UnixConn) (Peer, error) {
	raw, err := conn.SyscallConn()
	if err != nil {
		return Peer{}, fmt.Errorf("accessing socket descriptor: %w", err)
	}

	var peer Peer
	var queryErr error
	if err := raw.Control(func(fd uintptr) {
		peer, queryErr = queryPeer(int(fd))
	}); err != nil {
		return Peer{}, fmt.Errorf("accessing socket descriptor: %w", err)
	}
	if queryErr != nil {
		return Peer{}, queryErr
	}
	return peer, nil
}
