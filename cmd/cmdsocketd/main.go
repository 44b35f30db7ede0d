// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Cmdsocketd serves a local command socket. Clients connect to a Unix
// domain socket, write a command line, half-close, and read back
// "exit_code\0stdout\0stderr". Only peers whose uid is on the allow
// list (by default the daemon's own uid and root) are served.
//
// Commands run through a small built-in table (ping, version,
// login-shell, builtins) and otherwise as child processes in the
// daemon's shell environment. A second, CBOR-speaking control socket
// reports server status; query it with "cmdsocket-call --status".
//
// Configuration is a YAML or JSONC file named by --config or
// CMDSOCKET_CONFIG. Without one, built-in defaults place the sockets
// under $XDG_RUNTIME_DIR/cmdsocket. Flags override the file.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/cmdsocket/lib/config"
	"github.com/bureau-foundation/cmdsocket/lib/control"
	"github.com/bureau-foundation/cmdsocket/lib/dispatch"
	"github.com/bureau-foundation/cmdsocket/lib/localsocket"
	"github.com/bureau-foundation/cmdsocket/lib/logging"
	"github.com/bureau-foundation/cmdsocket/lib/process"
	"github.com/bureau-foundation/cmdsocket/lib/runner"
	"github.com/bureau-foundation/cmdsocket/lib/shellenv"
	"github.com/bureau-foundation/cmdsocket/lib/version"
)

// drainTimeout bounds how long shutdown waits for in-flight commands.
const drainTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

type flags struct {
	configPath    string
	socketPath    string
	abstract      bool
	controlSocket string
	noControl     bool
	logLevel      string
}

func run() error {
	var options flags
	flagSet := pflag.NewFlagSet("cmdsocketd", pflag.ContinueOnError)
	flagSet.StringVar(&options.configPath, "config", "", "configuration file (default: $"+config.EnvConfig+", else built-in defaults)")
	flagSet.StringVar(&options.socketPath, "socket", "", "command socket path, or abstract name with --abstract")
	flagSet.BoolVar(&options.abstract, "abstract", false, "bind the command socket in the Linux abstract namespace")
	flagSet.StringVar(&options.controlSocket, "control-socket", "", "control socket path")
	flagSet.BoolVar(&options.noControl, "no-control", false, "do not serve the control socket")
	flagSet.StringVar(&options.logLevel, "log-level", "", "log level: debug, info, warn, error")
	showVersion := flagSet.Bool("version", false, "print version information and exit")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}
	if *showVersion {
		version.Print("cmdsocketd")
		return nil
	}
	if flagSet.NArg() > 0 {
		return fmt.Errorf("unexpected argument: %s", flagSet.Arg(0))
	}

	cfg, err := loadConfig(options)
	if err != nil {
		return err
	}
	level, err := cfg.Level()
	if err != nil {
		return err
	}
	logger := logging.Stderr(level).With("pid", os.Getpid())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return serve(ctx, cfg, logger)
}

// loadConfig reads the configuration file, applies flag overrides and
// validates the result.
func loadConfig(options flags) (*config.Config, error) {
	var cfg *config.Config
	var err error
	switch {
	case options.configPath != "":
		cfg, err = config.LoadFile(options.configPath)
	case os.Getenv(config.EnvConfig) != "":
		cfg, err = config.Load()
	default:
		cfg = config.Builtin()
	}
	if err != nil {
		return nil, err
	}

	if options.socketPath != "" {
		cfg.Socket.Path = options.socketPath
	}
	if options.abstract {
		cfg.Socket.Abstract = true
	}
	if options.controlSocket != "" {
		cfg.Control.Path = options.controlSocket
		cfg.Control.Enabled = true
	}
	if options.noControl {
		cfg.Control.Enabled = false
	}
	if options.logLevel != "" {
		cfg.LogLevel = options.logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration:\n%w", err)
	}
	return cfg, nil
}

// serve runs the command socket, and the control socket if enabled,
// until ctx is cancelled.
func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	environment := shellenv.FromProcess(shellenv.NewCounters())
	if cfg.Runner.Path != "" {
		environment.BinPath = cfg.Runner.Path
	}

	kind, err := shellenv.ParseKind(cfg.Runner.Kind)
	if err != nil {
		return err
	}

	table := runner.NewTable(runner.NewExec(environment, runner.ExecOptions{
		Timeout:          cfg.Runner.Timeout,
		Allowed:          cfg.Runner.AllowedCommands,
		FailSafe:         cfg.Runner.FailSafe,
		Kind:             kind,
		WorkingDirectory: cfg.Runner.WorkingDirectory,
		Logger:           logger.With("component", "exec"),
	}))
	registerBuiltins(table, environment)

	commandConfig := commandRunConfig(cfg)
	commands, err := localsocket.Start(commandConfig,
		dispatch.New(table, logger.With("component", "dispatch")),
		localsocket.Options{Logger: logger},
	)
	if err != nil {
		return err
	}
	defer shutdown(commands, logger)

	if cfg.Control.Enabled {
		controlServer := control.NewServer(logger.With("component", "control"))
		controlServer.Handle(control.ActionStatus, control.StatusAction(buildInfo(logger), commands))

		controlConfig := commandConfig
		controlConfig.Title = "control"
		controlConfig.Path = cfg.Control.Path
		controlConfig.Abstract = false
		controls, err := localsocket.Start(controlConfig, controlServer, localsocket.Options{Logger: logger})
		if err != nil {
			return err
		}
		defer shutdown(controls, logger)
	}

	logger.Info("cmdsocketd running",
		"version", version.Info(),
		"environment", cfg.Environment,
		"socket", commands.Address(),
		"control", cfg.Control.Enabled,
	)
	<-ctx.Done()
	logger.Info("shutting down")
	return nil
}

// commandRunConfig converts the socket section to a run configuration.
func commandRunConfig(cfg *config.Config) localsocket.RunConfig {
	runConfig := localsocket.DefaultRunConfig(cfg.Socket.Title, cfg.Socket.Path)
	runConfig.Abstract = cfg.Socket.Abstract
	runConfig.Mode = os.FileMode(cfg.Socket.Mode)
	if len(cfg.Socket.AllowedUIDs) > 0 {
		runConfig.Allowed = localsocket.NewAllowList(cfg.Socket.AllowedUIDs...)
	}
	runConfig.MaxConnections = cfg.Socket.MaxConnections
	runConfig.ReadTimeout = cfg.Socket.ReadTimeout
	runConfig.WriteTimeout = cfg.Socket.WriteTimeout
	runConfig.MaxRequestSize = cfg.Socket.MaxRequestSize
	return runConfig
}

// shutdown stops accepting and waits a bounded time for in-flight
// connections.
func shutdown(manager *localsocket.Manager, logger *slog.Logger) {
	if err := manager.Stop(); err != nil {
		logger.Warn("stopping socket server", "address", manager.Address(), "error", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	if err := manager.Drain(ctx); err != nil {
		logger.Warn("connections still active after drain timeout",
			"address", manager.Address(),
			"active", manager.Stats().Active,
		)
	}
}

func buildInfo(logger *slog.Logger) control.Build {
	build := control.Build{Version: version.Info()}
	digest, path, err := version.SelfDigest()
	if err != nil {
		logger.Warn("hashing executable", "path", path, "error", err)
		return build
	}
	build.BinaryDigest = digest
	return build
}
