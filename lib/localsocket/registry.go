// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package localsocket

import (
	"path/filepath"
	"sync"
)

// addressRegistry records which manager holds each address in this
// process. A filesystem socket from another process is detected by
// probing instead; see prepareSocketPath.
var addressRegistry = struct {
	sync.Mutex
	owners map[string]*Manager
}{owners: make(map[string]*Manager)}

// registryKey normalizes an address so that two spellings of the same
// filesystem path collide.
func registryKey(config RunConfig) string {
	if config.Abstract {
		return config.Address()
	}
	if absolute, err := filepath.Abs(config.Path); err == nil {
		return absolute
	}
	return filepath.Clean(config.Path)
}

// claimAddress records m as the owner of key. Returns false if another
// manager already holds it.
func claimAddress(key string, m *Manager) bool {
	addressRegistry.Lock()
	defer addressRegistry.Unlock()
	if owner, held := addressRegistry.owners[key]; held && owner != m {
		return false
	}
	addressRegistry.owners[key] = m
	return true
}

func releaseAddress(key string, m *Manager) {
	addressRegistry.Lock()
	defer addressRegistry.Unlock()
	if addressRegistry.owners[key] == m {
		delete(addressRegistry.owners, key)
	}
}
