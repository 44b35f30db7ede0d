// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package shellenv

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// headerSize bounds how much of an executable is read to classify it.
const headerSize = 256

var elfMagic = []byte{0x7f, 'E', 'L', 'F'}

// ShellCommandArguments returns the argv that runs executable with
// arguments. ELF binaries and unreadable files run directly. A "#!"
// script runs through its interpreter; an interpreter under /bin or
// /usr/bin that does not exist is looked up by name in binPath. Any
// other file is handed to binPath/sh.
func ShellCommandArguments(executable string, arguments []string, binPath string) []string {
	argv := append([]string{executable}, arguments...)

	header, err := readHeader(executable)
	if err != nil || bytes.HasPrefix(header, elfMagic) {
		return argv
	}

	if line, ok := bytes.CutPrefix(header, []byte("#!")); ok {
		if newline := bytes.IndexByte(line, '\n'); newline >= 0 {
			line = line[:newline]
		}
		fields := strings.Fields(string(line))
		if len(fields) == 0 {
			return argv
		}
		interpreter := remapInterpreter(fields[0], binPath)
		// Everything after the interpreter is one argument, as the
		// kernel passes it.
		prefix := []string{interpreter}
		if len(fields) > 1 {
			prefix = append(prefix, strings.Join(fields[1:], " "))
		}
		return append(prefix, argv...)
	}

	if binPath == "" {
		return argv
	}
	return append([]string{filepath.Join(binPath, "sh")}, argv...)
}

func readHeader(path string) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	header := make([]byte, headerSize)
	n, err := io.ReadFull(file, header)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, err
	}
	return header[:n], nil
}

func remapInterpreter(interpreter, binPath string) string {
	if binPath == "" {
		return interpreter
	}
	if _, err := os.Stat(interpreter); err == nil {
		return interpreter
	}
	directory := filepath.Dir(interpreter)
	if directory != "/bin" && directory != "/usr/bin" {
		return interpreter
	}
	return filepath.Join(binPath, filepath.Base(interpreter))
}
