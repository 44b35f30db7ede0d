// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package shellargs

import (
	"strings"
	"unicode"
)

// Quote returns arg in a form that Tokenize reads back as exactly one
// argument equal to arg. Arguments made only of safe characters are
// returned unchanged; everything else is single-quoted, with embedded
// single quotes written as '\''.
func Quote(arg string) string {
	if arg == "" {
		return "''"
	}
	if !needsQuoting(arg) {
		return arg
	}
	return "'" + strings.ReplaceAll(arg, "'", `'\''`) + "'"
}

// Join quotes each argument and joins them with single spaces. For any
// args, Tokenize(Join(args)) returns args.
func Join(args []string) string {
	quoted := make([]string, len(args))
	for i, arg := range args {
		quoted[i] = Quote(arg)
	}
	return strings.Join(quoted, " ")
}

func needsQuoting(arg string) bool {
	for _, r := range arg {
		if unicode.IsSpace(r) {
			return true
		}
		switch r {
		case '\'', '"', '\\', '$', '`', '!', '*', '?', '[', ']', '(', ')',
			'{', '}', '<', '>', '|', '&', ';', '#', '~':
			return true
		}
	}
	return false
}
