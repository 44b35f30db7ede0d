// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package localsocket

import (
	"fmt"
	"os"
	"runtime"
	"slices"
	"strings"
	"time"
)

// RunConfig describes one listening socket. A manager copies it at
// construction; later changes to the caller's value have no effect.
type RunConfig struct {
	// Title names the server in log records.
	Title string

	// Path is the filesystem path of the socket, or the abstract
	// namespace name (without the leading '@') when Abstract is set.
	Path string

	// Abstract selects the Linux abstract socket namespace. Abstract
	// sockets have no file, so Mode does not apply and access control
	// rests entirely on the allow-list.
	Abstract bool

	// Mode is applied to the socket file after binding.
	Mode os.FileMode

	// Allowed lists the peer uids that may connect.
	Allowed AllowList

	// MaxConnections bounds concurrently served connections. Zero
	// means unbounded. Connections over the limit are closed without
	// a response.
	MaxConnections int

	// ReadTimeout and WriteTimeout bound a client's request read and
	// response write. Zero means no deadline.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// MaxRequestSize bounds the request payload in bytes. Zero means
	// unlimited.
	MaxRequestSize int64
}

// DefaultRunConfig returns a filesystem socket config that admits the
// current user and root, with mode 0600.
func DefaultRunConfig(title, path string) RunConfig {
	return RunConfig{
		Title:   title,
		Path:    path,
		Mode:    0o600,
		Allowed: OwnerAndRoot(),
	}
}

// Address returns the address passed to the socket layer: the path,
// or "@name" for an abstract socket.
func (c RunConfig) Address() string {
	if c.Abstract {
		return "@" + c.Path
	}
	return c.Path
}

// Validate reports configuration errors that would make binding
// impossible.
func (c RunConfig) Validate() error {
	if c.Path == "" {
		return fmt.Errorf("socket path is empty")
	}
	if c.Abstract && runtime.GOOS != "linux" && runtime.GOOS != "android" {
		return fmt.Errorf("abstract socket %q requested on %s", c.Path, runtime.GOOS)
	}
	if c.MaxConnections < 0 {
		return fmt.Errorf("max connections must not be negative, got %d", c.MaxConnections)
	}
	if c.ReadTimeout < 0 || c.WriteTimeout < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}
	if c.MaxRequestSize < 0 {
		return fmt.Errorf("max request size must not be negative, got %d", c.MaxRequestSize)
	}
	return nil
}

// AllowList is an immutable set of peer uids. The zero value admits
// nobody.
type AllowList struct {
	uids []uint32
}

// NewAllowList returns an allow-list containing uids.
func NewAllowList(uids ...uint32) AllowList {
	sorted := slices.Clone(uids)
	slices.Sort(sorted)
	return AllowList{uids: slices.Compact(sorted)}
}

// OwnerAndRoot admits the uid of the current process and root.
func OwnerAndRoot() AllowList {
	return NewAllowList(uint32(os.Getuid()), 0)
}

// Permits reports whether peer's uid is in the list.
func (a AllowList) Permits(peer Peer) bool {
	_, found := slices.BinarySearch(a.uids, peer.UID)
	return found
}

// UIDs returns a copy of the allowed uids in ascending order.
func (a AllowList) UIDs() []uint32 {
	return slices.Clone(a.uids)
}

func (a AllowList) String() string {
	parts := make([]string, len(a.uids))
	for i, uid := range a.uids {
		parts[i] = fmt.Sprint(uid)
	}
	return "[" + strings.Join(parts, ",") + "]"
}
