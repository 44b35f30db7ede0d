// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/bureau-foundation/cmdsocket/lib/socketerr"
)

// Delimiter separates the fields of a response.
const Delimiter = '\x00'

// Response is a decoded command result.
type Response struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// SanitizeExitCode maps codes outside [0,255] to 1. A shell would
// otherwise report an out-of-range status as its own error.
func SanitizeExitCode(code int) int {
	if code < 0 || code > 255 {
		return 1
	}
	return code
}

// EncodeResponse formats a response. The exit code is sanitized; the
// result always has exactly three fields.
func EncodeResponse(exitCode int, stdout, stderr string) string {
	var builder strings.Builder
	builder.Grow(len(stdout) + len(stderr) + 5)
	builder.WriteString(strconv.Itoa(SanitizeExitCode(exitCode)))
	builder.WriteByte(Delimiter)
	builder.WriteString(stdout)
	builder.WriteByte(Delimiter)
	builder.WriteString(stderr)
	return builder.String()
}

// Encode formats r with EncodeResponse.
func (r Response) Encode() string {
	return EncodeResponse(r.ExitCode, r.Stdout, r.Stderr)
}

// DecodeResponse parses a response. Only the first two delimiters are
// significant.
func DecodeResponse(text string) (Response, error) {
	fields := strings.SplitN(text, string(Delimiter), 3)
	if len(fields) != 3 {
		return Response{}, socketerr.MalformedInput(nil,
			"response has %d field(s), want 3", len(fields))
	}

	exitCode, err := strconv.Atoi(fields[0])
	if err != nil {
		return Response{}, socketerr.MalformedInput(err, "parsing exit code %q", fields[0])
	}
	if exitCode != SanitizeExitCode(exitCode) {
		return Response{}, socketerr.MalformedInput(nil, "exit code %d out of range [0,255]", exitCode)
	}

	return Response{
		ExitCode: exitCode,
		Stdout:   fields[1],
		Stderr:   fields[2],
	}, nil
}

// ReadPayload reads r until end-of-stream. When limit is positive, a
// payload longer than limit bytes is rejected rather than truncated.
func ReadPayload(r io.Reader, limit int64) ([]byte, error) {
	source := r
	if limit > 0 {
		// One extra byte distinguishes "exactly limit" from "over".
		source = io.LimitReader(r, limit+1)
	}

	data, err := io.ReadAll(source)
	if err != nil {
		return nil, socketerr.IOFailure(err, "reading request")
	}
	if limit > 0 && int64(len(data)) > limit {
		return nil, socketerr.MalformedInput(nil, "request exceeds %d bytes", limit)
	}
	return data, nil
}

// ReadRequest reads a payload with ReadPayload and returns it as text.
// Invalid UTF-8 sequences are replaced with U+FFFD.
func ReadRequest(r io.Reader, limit int64) (string, error) {
	data, err := ReadPayload(r, limit)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(data) {
		return strings.ToValidUTF8(string(data), string(utf8.RuneError)), nil
	}
	return string(data), nil
}
