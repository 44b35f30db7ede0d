// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build linux

package localsocket

import (
	"fmt"

	"golang.org/x/sys/unix"
)

func queryPeer(fd int) (Peer, error) {
	ucred, err := unix.GetsockoptUcred(fd, unix.SOL_SOCKET, unix.SO_PEERCRED)
	if err != nil {
		return Peer{}, fmt.Errorf("getsockopt SO_PEERCRED: %w", err)
	}
	return Peer{PID: int(ucred.Pid), UID: ucred.Uid, GID: ucred.Gid}, nil
}
