// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/zeebo/blake3"
)

// These variables are set via -ldflags at build time, for example:
//
//	go build -ldflags "-X github.com/bureau-foundation/cmdsocket/lib/version.GitCommit=$(git rev-parse --short HEAD)"
var (
	GitCommit = "unknown"
	GitDirty  = "false"
	BuildTime = "unknown"
	Version   = "0.1.0-dev"
)

// Info returns a formatted version string suitable for --version output.
func Info() string {
	dirty := ""
	if GitDirty == "true" {
		dirty = "-dirty"
	}
	return fmt.Sprintf("%s (%s%s, %s)", Version, GitCommit, dirty, BuildTime)
}

// Full returns Info plus the Go version and platform.
func Full() string {
	return fmt.Sprintf("%s\n  Go: %s\n  Platform: %s/%s",
		Info(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// SelfDigest returns the hex BLAKE3 digest of the running executable
// and its path.
func SelfDigest() (digest string, binaryPath string, err error) {
	binaryPath, err = os.Executable()
	if err != nil {
		return "", "", fmt.Errorf("locating executable: %w", err)
	}
	digest, err = FileDigest(binaryPath)
	if err != nil {
		return "", binaryPath, err
	}
	return digest, binaryPath, nil
}

// FileDigest returns the hex BLAKE3 digest of the file at path.
func FileDigest(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer file.Close()

	hasher := blake3.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// Print writes "name Full()" to stdout, for --version flags.
func Print(name string) {
	fmt.Printf("%s %s\n", name, Full())
}
