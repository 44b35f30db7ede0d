// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/cmdsocket/lib/shellenv"
)

// EnvConfig names the environment variable read by Load.
const EnvConfig = "CMDSOCKET_CONFIG"

// Environment represents the deployment environment.
type Environment string

const (
	Development Environment = "development"
	Production  Environment = "production"
)

// Config is the daemon configuration.
type Config struct {
	Environment Environment `yaml:"environment"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	Socket  SocketConfig  `yaml:"socket"`
	Control ControlConfig `yaml:"control"`
	Runner  RunnerConfig  `yaml:"runner"`

	Development *Overrides `yaml:"development,omitempty"`
	Production  *Overrides `yaml:"production,omitempty"`
}

// Overrides holds the fields an environment section may replace.
// Zero fields leave the top-level value alone.
type Overrides struct {
	Socket *SocketConfig    `yaml:"socket,omitempty"`
	Runner *RunnerOverrides `yaml:"runner,omitempty"`
}

// RunnerOverrides is RunnerConfig with FailSafe optional, so a section
// that does not mention fail_safe keeps the top-level setting.
type RunnerOverrides struct {
	Timeout          time.Duration `yaml:"timeout"`
	AllowedCommands  []string      `yaml:"allowed_commands"`
	Path             string        `yaml:"path"`
	FailSafe         *bool         `yaml:"fail_safe"`
	Kind             string        `yaml:"kind"`
	WorkingDirectory string        `yaml:"working_directory"`
}

// SocketConfig configures the command socket.
type SocketConfig struct {
	// Title names the server in logs and status output.
	Title string `yaml:"title"`

	// Path is a filesystem path, or a name in the Linux abstract
	// namespace when Abstract is set.
	Path     string `yaml:"path"`
	Abstract bool   `yaml:"abstract"`

	// Mode is the socket file's permission bits, written in octal.
	Mode FileMode `yaml:"mode"`

	// AllowedUIDs lists the peer uids admitted. Empty means the
	// daemon's own uid and root.
	AllowedUIDs []uint32 `yaml:"allowed_uids"`

	MaxConnections int           `yaml:"max_connections"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	MaxRequestSize int64         `yaml:"max_request_size"`
}

// ControlConfig configures the status socket. It shares the command
// socket's allowed uids and mode.
type ControlConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// RunnerConfig configures command execution.
type RunnerConfig struct {
	// Timeout bounds each command; zero means none.
	Timeout time.Duration `yaml:"timeout"`

	// AllowedCommands restricts which commands may run. Empty allows
	// all.
	AllowedCommands []string `yaml:"allowed_commands"`

	// Path replaces PATH for commands; empty inherits the daemon's.
	Path string `yaml:"path"`

	// FailSafe runs commands with the minimal environment.
	FailSafe bool `yaml:"fail_safe"`

	// Kind numbers commands as app-shell (the default) or
	// terminal-session.
	Kind string `yaml:"kind"`

	// WorkingDirectory is where commands start; empty means the
	// daemon user's home directory.
	WorkingDirectory string `yaml:"working_directory"`
}

// FileMode is an os.FileMode written in octal ("0600", "0o660").
type FileMode os.FileMode

// UnmarshalYAML parses the scalar as octal regardless of how YAML
// would resolve it.
func (m *FileMode) UnmarshalYAML(value *yaml.Node) error {
	text := strings.TrimPrefix(strings.TrimPrefix(value.Value, "0o"), "0O")
	parsed, err := strconv.ParseUint(text, 8, 32)
	if err != nil {
		return fmt.Errorf("line %d: mode %q is not an octal number", value.Line, value.Value)
	}
	*m = FileMode(parsed)
	return nil
}

// MarshalYAML writes the mode in octal.
func (m FileMode) MarshalYAML() (any, error) {
	return fmt.Sprintf("%04o", uint32(m)), nil
}

// Default socket locations, before variable expansion.
const (
	DefaultSocketPath  = "${XDG_RUNTIME_DIR:-/tmp}/cmdsocket/command.sock"
	DefaultControlPath = "${XDG_RUNTIME_DIR:-/tmp}/cmdsocket/control.sock"
)

// Default returns the base configuration applied before the file.
func Default() *Config {
	return &Config{
		Environment: Development,
		LogLevel:    "info",
		Socket: SocketConfig{
			Title: "command",
			Path:  DefaultSocketPath,
			Mode:  0o600,
		},
		Control: ControlConfig{
			Enabled: true,
			Path:    DefaultControlPath,
		},
	}
}

// applyProductionDefaults fills the hardening limits the file left
// unset. It applies when the environment is production and the file
// has no production section.
func (c *Config) applyProductionDefaults() {
	fill(&c.Socket.MaxConnections, 64)
	fill(&c.Socket.ReadTimeout, 10*time.Second)
	fill(&c.Socket.WriteTimeout, 10*time.Second)
	fill(&c.Socket.MaxRequestSize, 1<<20)
	fill(&c.Runner.Timeout, time.Minute)
}

func fill[T comparable](field *T, value T) {
	var zero T
	if *field == zero {
		*field = value
	}
}

// Load loads the file named by CMDSOCKET_CONFIG. It fails when the
// variable is unset.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvConfig)
	if configPath == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your configuration file, or use --config flag", EnvConfig)
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from path over the defaults, applies
// the environment section and expands path variables.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.loadFile(path); err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()
	return cfg, nil
}

// Builtin returns the configuration used when no file is given:
// Default with the environment section applied and variables expanded.
func Builtin() *Config {
	cfg := Default()
	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()
	return cfg
}

// ExpandPath expands ${VAR} and ${VAR:-default} in path using the
// process environment.
func ExpandPath(path string) string {
	return expandVars(path, map[string]string{"HOME": os.Getenv("HOME")})
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		// JSON is a subset of YAML, so one decoder serves both once
		// comments and trailing commas are stripped.
		data = jsonc.ToJSON(data)
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) applyEnvironmentOverrides() {
	var overrides *Overrides
	switch c.Environment {
	case Development:
		overrides = c.Development
	case Production:
		overrides = c.Production
		if overrides == nil {
			c.applyProductionDefaults()
		}
	}
	if overrides == nil {
		return
	}

	if socket := overrides.Socket; socket != nil {
		if socket.Path != "" {
			c.Socket.Path = socket.Path
		}
		if socket.Mode != 0 {
			c.Socket.Mode = socket.Mode
		}
		if len(socket.AllowedUIDs) > 0 {
			c.Socket.AllowedUIDs = socket.AllowedUIDs
		}
		if socket.MaxConnections != 0 {
			c.Socket.MaxConnections = socket.MaxConnections
		}
		if socket.ReadTimeout != 0 {
			c.Socket.ReadTimeout = socket.ReadTimeout
		}
		if socket.WriteTimeout != 0 {
			c.Socket.WriteTimeout = socket.WriteTimeout
		}
		if socket.MaxRequestSize != 0 {
			c.Socket.MaxRequestSize = socket.MaxRequestSize
		}
	}

	if runner := overrides.Runner; runner != nil {
		if runner.Timeout != 0 {
			c.Runner.Timeout = runner.Timeout
		}
		if len(runner.AllowedCommands) > 0 {
			c.Runner.AllowedCommands = runner.AllowedCommands
		}
		if runner.Path != "" {
			c.Runner.Path = runner.Path
		}
		if runner.FailSafe != nil {
			c.Runner.FailSafe = *runner.FailSafe
		}
		if runner.Kind != "" {
			c.Runner.Kind = runner.Kind
		}
		if runner.WorkingDirectory != "" {
			c.Runner.WorkingDirectory = runner.WorkingDirectory
		}
	}
}

func (c *Config) expandVariables() {
	vars := map[string]string{"HOME": os.Getenv("HOME")}
	if !c.Socket.Abstract {
		c.Socket.Path = expandVars(c.Socket.Path, vars)
	}
	c.Control.Path = expandVars(c.Control.Path, vars)
	c.Runner.Path = expandVars(c.Runner.Path, vars)
	c.Runner.WorkingDirectory = expandVars(c.Runner.WorkingDirectory, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default}. vars is consulted
// before the process environment.
func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		name, defaultValue := parts[1], parts[2]
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Level returns the configured log level.
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid log_level %q", c.LogLevel)
	}
	return level, nil
}

// Validate reports every problem in the configuration.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}

	if c.Socket.Path == "" {
		errs = append(errs, errors.New("socket.path is required"))
	}
	if c.Socket.Abstract {
		if runtime.GOOS != "linux" && runtime.GOOS != "android" {
			errs = append(errs, fmt.Errorf("socket.abstract is not supported on %s", runtime.GOOS))
		}
		if strings.Contains(c.Socket.Path, "/") {
			errs = append(errs, fmt.Errorf("socket.path %q: abstract names must not contain '/'", c.Socket.Path))
		}
	} else if c.Socket.Path != "" && !filepath.IsAbs(c.Socket.Path) {
		errs = append(errs, fmt.Errorf("socket.path %q must be absolute", c.Socket.Path))
	}
	if c.Socket.Mode == 0 || c.Socket.Mode&^0o777 != 0 {
		errs = append(errs, fmt.Errorf("socket.mode %04o must be nonzero permission bits", uint32(c.Socket.Mode)))
	}
	if c.Socket.MaxConnections < 0 {
		errs = append(errs, errors.New("socket.max_connections must not be negative"))
	}
	if c.Socket.ReadTimeout < 0 || c.Socket.WriteTimeout < 0 {
		errs = append(errs, errors.New("socket timeouts must not be negative"))
	}
	if c.Socket.MaxRequestSize < 0 {
		errs = append(errs, errors.New("socket.max_request_size must not be negative"))
	}

	if c.Control.Enabled {
		switch {
		case c.Control.Path == "":
			errs = append(errs, errors.New("control.path is required when control is enabled"))
		case !filepath.IsAbs(c.Control.Path):
			errs = append(errs, fmt.Errorf("control.path %q must be absolute", c.Control.Path))
		case !c.Socket.Abstract && filepath.Clean(c.Control.Path) == filepath.Clean(c.Socket.Path):
			errs = append(errs, errors.New("control.path must differ from socket.path"))
		}
	}

	if c.Runner.Timeout < 0 {
		errs = append(errs, errors.New("runner.timeout must not be negative"))
	}
	for _, name := range c.Runner.AllowedCommands {
		if name == "" || strings.Contains(name, "/") {
			errs = append(errs, fmt.Errorf("runner.allowed_commands entry %q must be a bare command name", name))
		}
	}
	if _, err := shellenv.ParseKind(c.Runner.Kind); err != nil {
		errs = append(errs, fmt.Errorf("runner.kind: %w", err))
	}
	if c.Runner.WorkingDirectory != "" && !filepath.IsAbs(c.Runner.WorkingDirectory) {
		errs = append(errs, fmt.Errorf("runner.working_directory %q must be absolute", c.Runner.WorkingDirectory))
	}

	return errors.Join(errs...)
}
