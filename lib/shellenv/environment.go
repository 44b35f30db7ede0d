// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package shellenv

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
)

// Environment variable names set by [Unix].
const (
	EnvHome          = "HOME"
	EnvPath          = "PATH"
	EnvTmpDir        = "TMPDIR"
	EnvLang          = "LANG"
	EnvPWD           = "PWD"
	EnvTerm          = "TERM"
	EnvColorTerm     = "COLORTERM"
	EnvLibraryPath   = "LD_LIBRARY_PATH"
	EnvAppShellCount = "SHELL_CMD__APP_SHELL_NUMBER_SINCE_APP_START"
	EnvSessionCount  = "SHELL_CMD__TERMINAL_SESSION_NUMBER_SINCE_APP_START"
)

// LoginShellBinaries lists the login shells looked for, in order of
// preference.
var LoginShellBinaries = []string{"login", "bash", "zsh", "fish", "sh"}

// Kind says how a command is being run.
type Kind int

const (
	// KindOther commands get no sequence number.
	KindOther Kind = iota
	// KindAppShell is a background command with no terminal.
	KindAppShell
	// KindTerminalSession is a command attached to a terminal session.
	KindTerminalSession
)

func (k Kind) String() string {
	switch k {
	case KindAppShell:
		return "app-shell"
	case KindTerminalSession:
		return "terminal-session"
	default:
		return "other"
	}
}

// ParseKind parses a kind name as written by [Kind.String]. The empty
// name is KindAppShell.
func ParseKind(name string) (Kind, error) {
	switch name {
	case "", "app-shell":
		return KindAppShell, nil
	case "terminal-session":
		return KindTerminalSession, nil
	}
	return KindOther, fmt.Errorf("unknown command kind %q", name)
}

// ExecutionCommand describes one command about to be started.
type ExecutionCommand struct {
	Executable string
	Arguments  []string

	// WorkingDirectory overrides the environment's default when set.
	WorkingDirectory string

	Kind Kind

	// FailSafe requests the minimal environment, for recovering from a
	// broken user configuration.
	FailSafe bool
}

// Environment supplies the execution context for commands.
type Environment interface {
	DefaultWorkingDirectory() string
	Environment(failSafe bool) map[string]string
	DefaultBinPath() string
	SetupShellCommandEnvironment(command ExecutionCommand) map[string]string
	SetupShellCommandArguments(executable string, arguments []string) []string
}

// Unix is the Environment for Unix-like hosts.
type Unix struct {
	Home        string
	BinPath     string
	TmpDir      string
	Lang        string
	Term        string
	ColorTerm   string
	LibraryPath string

	// Counters numbers commands by kind. Nil disables numbering.
	Counters *Counters
}

// FromProcess captures the current process environment. Unset values
// fall back to conventional defaults.
func FromProcess(counters *Counters) *Unix {
	home := os.Getenv(EnvHome)
	if home == "" {
		if dir, err := os.UserHomeDir(); err == nil {
			home = dir
		} else {
			home = "/"
		}
	}
	return &Unix{
		Home:        home,
		BinPath:     getenvDefault(EnvPath, "/usr/local/bin:/usr/bin:/bin"),
		TmpDir:      getenvDefault(EnvTmpDir, os.TempDir()),
		Lang:        getenvDefault(EnvLang, "en_US.UTF-8"),
		Term:        getenvDefault(EnvTerm, "xterm-256color"),
		ColorTerm:   getenvDefault(EnvColorTerm, "truecolor"),
		LibraryPath: os.Getenv(EnvLibraryPath),
		Counters:    counters,
	}
}

func getenvDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

// DefaultWorkingDirectory is the home directory.
func (u *Unix) DefaultWorkingDirectory() string { return u.Home }

// DefaultBinPath returns the first PATH entry.
func (u *Unix) DefaultBinPath() string {
	first, _, _ := strings.Cut(u.BinPath, string(os.PathListSeparator))
	return first
}

// Environment returns the base variables. The fail-safe form carries
// only what a shell needs to start: HOME, PATH, TMPDIR and LANG.
func (u *Unix) Environment(failSafe bool) map[string]string {
	env := map[string]string{
		EnvHome:   u.Home,
		EnvPath:   u.BinPath,
		EnvTmpDir: u.TmpDir,
		EnvLang:   u.Lang,
	}
	if failSafe {
		return env
	}
	putIfSet(env, EnvTerm, u.Term)
	putIfSet(env, EnvColorTerm, u.ColorTerm)
	putIfSet(env, EnvLibraryPath, u.LibraryPath)
	return env
}

// SetupShellCommandEnvironment returns the variables for command. PWD
// follows the working directory; the per-kind sequence number is taken
// and exported for app-shell and terminal-session commands.
func (u *Unix) SetupShellCommandEnvironment(command ExecutionCommand) map[string]string {
	env := maps.Clone(u.Environment(command.FailSafe))

	directory := command.WorkingDirectory
	if directory == "" {
		directory = u.DefaultWorkingDirectory()
	}
	env[EnvPWD] = directory

	if u.Counters == nil {
		return env
	}
	switch command.Kind {
	case KindAppShell:
		env[EnvAppShellCount] = strconv.FormatUint(u.Counters.NextAppShell(), 10)
	case KindTerminalSession:
		env[EnvSessionCount] = strconv.FormatUint(u.Counters.NextTerminalSession(), 10)
	}
	return env
}

// SetupShellCommandArguments returns the argv that starts executable
// with arguments; see [ShellCommandArguments].
func (u *Unix) SetupShellCommandArguments(executable string, arguments []string) []string {
	return ShellCommandArguments(executable, arguments, u.DefaultBinPath())
}

// LoginShell returns the first of LoginShellBinaries present and
// executable in the environment's bin directory, or "" if none is.
func (u *Unix) LoginShell() string {
	binPath := u.DefaultBinPath()
	for _, name := range LoginShellBinaries {
		candidate := filepath.Join(binPath, name)
		if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() && info.Mode()&0o111 != 0 {
			return candidate
		}
	}
	return ""
}

// Pairs flattens env into sorted KEY=VALUE strings as expected by
// os/exec.
func Pairs(env map[string]string) []string {
	pairs := make([]string, 0, len(env))
	for _, key := range slices.Sorted(maps.Keys(env)) {
		pairs = append(pairs, key+"="+env[key])
	}
	return pairs
}

func putIfSet(env map[string]string, key, value string) {
	if value != "" {
		env[key] = value
	}
}
