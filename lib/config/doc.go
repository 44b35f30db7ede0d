// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the command socket daemon's configuration.
//
// Configuration comes from a single file named by the CMDSOCKET_CONFIG
// environment variable (via [Load]) or a --config flag (via
// [LoadFile]). There is no discovery and no per-field environment
// override. Files ending in .json or .jsonc are read as JSON with
// comments and trailing commas (tidwall/jsonc); anything else is YAML.
//
// The file may carry development and production sections that override
// base values when [Config].Environment matches. Production without an
// explicit section gets hardened defaults: an admission limit, socket
// deadlines, a request size limit and a command timeout.
//
// ${VAR} and ${VAR:-default} patterns are expanded in path fields after
// loading.
//
// This package depends on no other cmdsocket packages.
package config
