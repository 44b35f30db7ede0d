// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build darwin

package localsocket

import (
	"fmt"

	"golang.org/x/sys/unix"
)

func queryPeer(fd int) (Peer, error) {
	xucred, err := unix.GetsockoptXucred(fd, unix.SOL_LOCAL, unix.LOCAL_PEERCRED)
	if err != nil {
		return Peer{}, fmt.Errorf("getsockopt LOCAL_PEERCRED: %w", err)
	}
	peer := Peer{UID: xucred.Uid}
	if xucred.Ngroups > 0 {
		peer.GID = xucred.Groups[0]
	}
	// The pid is informational only; authorization uses the uid.
	if pid, err := unix.GetsockoptInt(fd, unix.SOL_LOCAL, unix.LOCAL_PEERPID); err == nil {
		peer.PID = pid
	}
	return peer, nil
}
