// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package shellenv

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func writeFile(t *testing.T, path, content string, mode os.FileMode) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), mode); err != nil {
		t.Fatal(err)
	}
}

func TestShellCommandArguments(t *testing.T) {
	dir := t.TempDir()
	binPath := filepath.Join(dir, "bin")

	elf := filepath.Join(dir, "prog")
	writeFile(t, elf, "\x7fELF\x02\x01\x01rest", 0o755)

	script := filepath.Join(dir, "script")
	writeFile(t, script, "#!"+filepath.Join(dir, "interp")+" -e -x\necho\n", 0o755)
	writeFile(t, filepath.Join(dir, "interp"), "", 0o755)

	missingInterpreter := filepath.Join(dir, "legacy")
	writeFile(t, missingInterpreter, "#!/usr/bin/cmdsocket-no-such-shell\n", 0o755)

	plain := filepath.Join(dir, "plain")
	writeFile(t, plain, "echo hello\n", 0o755)

	emptyShebang := filepath.Join(dir, "empty")
	writeFile(t, emptyShebang, "#!\n", 0o755)

	tests := []struct {
		name       string
		executable string
		want       []string
	}{
		{"elf runs directly", elf, []string{elf, "a", "b"}},
		{"missing file runs directly", filepath.Join(dir, "absent"), []string{filepath.Join(dir, "absent"), "a", "b"}},
		{"shebang with argument", script, []string{filepath.Join(dir, "interp"), "-e -x", script, "a", "b"}},
		{"missing system interpreter remapped", missingInterpreter, []string{filepath.Join(binPath, "cmdsocket-no-such-shell"), missingInterpreter, "a", "b"}},
		{"plain text through sh", plain, []string{filepath.Join(binPath, "sh"), plain, "a", "b"}},
		{"empty shebang runs directly", emptyShebang, []string{emptyShebang, "a", "b"}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := ShellCommandArguments(test.executable, []string{"a", "b"}, binPath)
			if !slices.Equal(got, test.want) {
				t.Errorf("got %q, want %q", got, test.want)
			}
		})
	}
}

func TestShellCommandArgumentsNoBinPath(t *testing.T) {
	plain := filepath.Join(t.TempDir(), "plain")
	writeFile(t, plain, "echo\n", 0o755)
	got := ShellCommandArguments(plain, nil, "")
	if !slices.Equal(got, []string{plain}) {
		t.Errorf("got %q", got)
	}
}

func TestUnixSetupShellCommandArguments(t *testing.T) {
	dir := t.TempDir()
	plain := filepath.Join(dir, "plain")
	writeFile(t, plain, "echo\n", 0o755)

	environment := &Unix{BinPath: "/opt/bin:/usr/bin"}
	got := environment.SetupShellCommandArguments(plain, []string{"x"})
	want := []string{"/opt/bin/sh", plain, "x"}
	if !slices.Equal(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}
}
