// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package control

import (
	"context"
	"time"

	"github.com/bureau-foundation/cmdsocket/lib/localsocket"
)

// ActionStatus is the name of the status action.
const ActionStatus = "status"

// Status is the result of the status action.
type Status struct {
	Version      string         `json:"version"`
	BinaryDigest string         `json:"binary_digest,omitempty"`
	Servers      []ServerStatus `json:"servers"`
}

// Build identifies the serving binary in status output.
type Build struct {
	Version string
	// BinaryDigest is the hex BLAKE3 digest of the executable, if
	// known.
	BinaryDigest string
}

// ServerStatus describes one socket server.
type ServerStatus struct {
	Title         string    `json:"title"`
	Address       string    `json:"address"`
	State         string    `json:"state"`
	AllowedUIDs   []uint32  `json:"allowed_uids"`
	StartedAt     time.Time `json:"started_at,omitzero"`
	UptimeSeconds float64   `json:"uptime_seconds"`
	Accepted      uint64    `json:"accepted"`
	Denied        uint64    `json:"denied"`
	Rejected      uint64    `json:"rejected"`
	Panics        uint64    `json:"panics"`
	Active        int64     `json:"active"`
}

// StatusAction reports build and the state of each manager, in the
// order given.
func StatusAction(build Build, managers ...*localsocket.Manager) ActionFunc {
	return func(context.Context, []byte) (any, error) {
		status := Status{
			Version:      build.Version,
			BinaryDigest: build.BinaryDigest,
			Servers:      make([]ServerStatus, 0, len(managers)),
		}
		for _, manager := range managers {
			status.Servers = append(status.Servers, serverStatus(manager))
		}
		return status, nil
	}
}

func serverStatus(manager *localsocket.Manager) ServerStatus {
	stats := manager.Stats()
	config := manager.Config()
	return ServerStatus{
		Title:         config.Title,
		Address:       stats.Address,
		State:         stats.State.String(),
		AllowedUIDs:   config.Allowed.UIDs(),
		StartedAt:     stats.StartedAt,
		UptimeSeconds: stats.Uptime.Seconds(),
		Accepted:      stats.Accepted,
		Denied:        stats.Denied,
		Rejected:      stats.Rejected,
		Panics:        stats.Panics,
		Active:        stats.Active,
	}
}
