// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package shellargs

import (
	"strings"
	"unicode"

	"github.com/bureau-foundation/cmdsocket/lib/socketerr"
)

type quoteState int

const (
	unquoted quoteState = iota
	singleQuoted
	doubleQuoted
)

// Tokenize splits input into arguments. Empty or all-whitespace input
// yields an empty slice and no error.
func Tokenize(input string) ([]string, error) {
	tokens := []string{}
	runes := []rune(input)

	var current strings.Builder
	// inToken distinguishes an empty quoted argument ('') from no
	// argument at all.
	inToken := false
	state := unquoted

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch state {
		case singleQuoted:
			if r == '\'' {
				state = unquoted
				continue
			}
			current.WriteRune(r)

		case doubleQuoted:
			switch r {
			case '"':
				state = unquoted
			case '\\':
				if i+1 < len(runes) && (runes[i+1] == '"' || runes[i+1] == '\\') {
					i++
					current.WriteRune(runes[i])
				} else {
					current.WriteRune(r)
				}
			default:
				current.WriteRune(r)
			}

		case unquoted:
			switch {
			case r == '\'':
				state = singleQuoted
				inToken = true
			case r == '"':
				state = doubleQuoted
				inToken = true
			case r == '\\':
				if i+1 >= len(runes) {
					return nil, socketerr.MalformedInput(nil, "trailing backslash in command %q", input)
				}
				i++
				current.WriteRune(runes[i])
				inToken = true
			case unicode.IsSpace(r):
				if inToken {
					tokens = append(tokens, current.String())
					current.Reset()
					inToken = false
				}
			default:
				current.WriteRune(r)
				inToken = true
			}
		}
	}

	switch state {
	case singleQuoted:
		return nil, socketerr.MalformedInput(nil, "unterminated single quote in command %q", input)
	case doubleQuoted:
		return nil, socketerr.MalformedInput(nil, "unterminated double quote in command %q", input)
	}

	if inToken {
		tokens = append(tokens, current.String())
	}
	return tokens, nil
}
