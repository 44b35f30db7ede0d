// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package localsocket

import (
	"os"
	"reflect"
	"runtime"
	"testing"
)

func TestAllowList(t *testing.T) {
	allowed := NewAllowList(1000, 0, 1000, 2000)

	if got := allowed.UIDs(); !reflect.DeepEqual(got, []uint32{0, 1000, 2000}) {
		t.Errorf("UIDs() = %v, want [0 1000 2000]", got)
	}
	for _, uid := range []uint32{0, 1000, 2000} {
		if !allowed.Permits(Peer{UID: uid}) {
			t.Errorf("Permits(uid %d) = false", uid)
		}
	}
	for _, uid := range []uint32{1, 999, 1001, 65534} {
		if allowed.Permits(Peer{UID: uid}) {
			t.Errorf("Permits(uid %d) = true", uid)
		}
	}
	if allowed.String() != "[0,1000,2000]" {
		t.Errorf("String() = %q", allowed.String())
	}
}

func TestAllowListZeroValueDeniesEveryone(t *testing.T) {
	var allowed AllowList
	if allowed.Permits(Peer{UID: 0}) {
		t.Error("zero AllowList permits root")
	}
}

func TestOwnerAndRoot(t *testing.T) {
	allowed := OwnerAndRoot()
	if !allowed.Permits(Peer{UID: uint32(os.Getuid())}) {
		t.Error("OwnerAndRoot does not permit the current uid")
	}
	if !allowed.Permits(Peer{UID: 0}) {
		t.Error("OwnerAndRoot does not permit root")
	}
}

func TestRunConfigAddress(t *testing.T) {
	config := DefaultRunConfig("am", "/run/cmdsocket/am.sock")
	if config.Address() != "/run/cmdsocket/am.sock" {
		t.Errorf("Address() = %q", config.Address())
	}
	if config.Mode != 0o600 {
		t.Errorf("default mode = %#o, want 0600", config.Mode)
	}
	config.Abstract = true
	config.Path = "cmdsocket-am"
	if config.Address() != "@cmdsocket-am" {
		t.Errorf("abstract Address() = %q", config.Address())
	}
}

func TestRunConfigValidate(t *testing.T) {
	valid := DefaultRunConfig("test", "/tmp/x.sock")
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate(valid): %v", err)
	}

	invalid := map[string]func(*RunConfig){
		"empty path":           func(c *RunConfig) { c.Path = "" },
		"negative connections": func(c *RunConfig) { c.MaxConnections = -1 },
		"negative timeout":     func(c *RunConfig) { c.ReadTimeout = -1 },
		"negative size":        func(c *RunConfig) { c.MaxRequestSize = -1 },
	}
	if runtime.GOOS != "linux" && runtime.GOOS != "android" {
		invalid["abstract off linux"] = func(c *RunConfig) { c.Abstract = true }
	}
	for name, mutate := range invalid {
		t.Run(name, func(t *testing.T) {
			config := valid
			mutate(&config)
			if err := config.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}
