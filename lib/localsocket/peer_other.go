// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !linux && !darwin

package localsocket

func queryPeer(int) (Peer, error) {
	return Peer{}, errCredentialsUnsupported
}
