// moded: a mode-aware task server speaking newline-delimited JSON-RPC
// over stdin/stdout.
//
// Usage:
//
//	moded serve      # Start the server (stdio transport)
//	moded version    # Print the version
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelab/moded/config"
	"github.com/modelab/moded/logger"
	"github.com/modelab/moded/mcp"
	"github.com/modelab/moded/mode"
	"github.com/modelab/moded/paths"
	"github.com/modelab/moded/policy"
	"github.com/modelab/moded/session"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		if err := runServe(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "--help", "-h", "help":
		printUsage()
	case "--version", "-v", "version":
		fmt.Printf("moded v%s\n", mcp.ServerVersion)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	debug := fs.Bool("debug", false, "enable debug logging")
	configPath := fs.String("config", "", "path to config.yaml (default: XDG config dir)")
	workDir := fs.String("workdir", "", "project directory for .moded/modes.yaml (default: cwd)")
	timeout := fs.Duration("timeout", 0, "session idle timeout (overrides config)")
	sweep := fs.Duration("sweep", 0, "sweep interval (overrides config)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	logPath, err := logger.DefaultLogPath()
	if err != nil {
		return fmt.Errorf("resolving log path: %w", err)
	}
	if err := logger.Init(logPath); err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer logger.Close()

	cfgPath := *configPath
	if cfgPath == "" {
		cfgPath, err = paths.ConfigFilePath()
		if err != nil {
			return fmt.Errorf("resolving config path: %w", err)
		}
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if *debug || cfg.Debug {
		logger.SetDebug(true)
	}
	if *timeout > 0 {
		cfg.SessionTimeout.Duration = *timeout
	}
	if *sweep > 0 {
		cfg.SweepInterval.Duration = *sweep
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	dir := *workDir
	if dir == "" {
		dir, err = os.Getwd()
		if err != nil {
			return fmt.Errorf("resolving working directory: %w", err)
		}
	}
	globalModes, err := paths.GlobalModesPath()
	if err != nil {
		return fmt.Errorf("resolving global modes path: %w", err)
	}
	projectModes := paths.ProjectModesPath(dir)

	registry, err := mode.BuildRegistry(globalModes, cfg.ModeFiles, projectModes)
	if err != nil {
		return fmt.Errorf("loading modes: %w", err)
	}

	log := logger.WithComponent("main")
	log.Info("moded starting",
		"version", mcp.ServerVersion,
		"modes", registry.Len(),
		"sessionTimeout", cfg.SessionTimeout.Duration,
		"sweepInterval", cfg.SweepInterval.Duration)

	sessions := session.NewManager(cfg.SessionTimeout.Duration, cfg.SweepInterval.Duration)
	sessions.Start()
	defer func() {
		sessions.Stop()
		if n := sessions.CleanupAll(); n > 0 {
			log.Info("sessions cleaned up at shutdown", "count", n)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	// Reload the mode table when a mode file changes. The registry is
	// swapped wholesale so in-flight readers never see a partial merge.
	watchFiles := append([]string{globalModes}, cfg.ModeFiles...)
	watchFiles = append(watchFiles, projectModes)
	watcher := mode.NewWatcher(watchFiles, logger.WithComponent("watcher"))
	if err := watcher.Start(ctx); err != nil {
		log.Warn("mode file watcher unavailable", "error", err)
	} else {
		go func() {
			for changed := range watcher.Events() {
				reloaded, err := mode.BuildRegistry(globalModes, cfg.ModeFiles, projectModes)
				if err != nil {
					log.Warn("mode reload failed, keeping previous table", "file", changed, "error", err)
					continue
				}
				registry.Replace(reloaded.All())
				log.Info("modes reloaded", "file", changed, "modes", registry.Len())
			}
		}()
	}

	engine := policy.NewEngine(registry)
	srv := mcp.NewServer(os.Stdin, os.Stdout, registry, sessions, engine)
	return srv.Run()
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `moded v%s — mode-aware task server (stdio JSON-RPC)

Usage:
  moded serve [-debug] [-config path] [-workdir dir]
  moded version
  moded help

Serve flags:
  -debug         enable debug logging
  -config path   config file (default: $XDG_CONFIG_HOME/moded/config.yaml)
  -workdir dir   project directory holding .moded/modes.yaml (default: cwd)
  -timeout dur   session idle timeout (overrides config)
  -sweep dur     sweep interval (overrides config)
`, mcp.ServerVersion)
}
