// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package localsocket

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/bureau-foundation/cmdsocket/lib/socketerr"
)

// probeTimeout bounds the connect attempt used to tell a live socket
// from a stale file left by a crashed process.
const probeTimeout = 500 * time.Millisecond

// listen binds the configured address. Every failure is a
// socketerr.KindBindFailed error.
func (m *Manager) listen() (*net.UnixListener, error) {
	config := m.config
	address := config.Address()

	if err := config.Validate(); err != nil {
		return nil, socketerr.BindFailed(err, "invalid configuration for %s", address)
	}

	if !claimAddress(m.registryKey, m) {
		return nil, socketerr.BindFailed(nil, "%s is already served by another manager in this process", address)
	}

	listener, err := m.bind()
	if err != nil {
		releaseAddress(m.registryKey, m)
		return nil, err
	}
	return listener, nil
}

func (m *Manager) bind() (*net.UnixListener, error) {
	config := m.config
	address := config.Address()

	if !config.Abstract {
		if err := prepareSocketPath(config.Path); err != nil {
			return nil, socketerr.BindFailed(err, "preparing %s", address)
		}
	}

	listener, err := net.ListenUnix("unix", &net.UnixAddr{Name: address, Net: "unix"})
	if err != nil {
		return nil, socketerr.BindFailed(err, "listening on %s", address)
	}

	if !config.Abstract {
		if err := os.Chmod(config.Path, config.Mode); err != nil {
			listener.Close()
			return nil, socketerr.BindFailed(err, "setting mode %#o on %s", config.Mode, address)
		}
	}
	return listener, nil
}

// prepareSocketPath makes path bindable. The parent directory is
// created if missing. An existing socket file is removed only if
// nothing is listening on it; a live listener or a non-socket file is
// an error.
func prepareSocketPath(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating socket directory: %w", err)
	}

	info, err := os.Lstat(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if info.Mode()&os.ModeSocket == 0 {
		return fmt.Errorf("%s exists and is not a socket", path)
	}

	conn, err := net.DialTimeout("unix", path, probeTimeout)
	if err == nil {
		conn.Close()
		return fmt.Errorf("%s is in use by another listener", path)
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing stale socket: %w", err)
	}
	return nil
}
