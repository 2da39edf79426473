package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/Atiyakh/dyright/internal/api"
	"github.com/Atiyakh/dyright/internal/codec"
	"github.com/Atiyakh/dyright/internal/config"
	"github.com/Atiyakh/dyright/internal/dispatch"
	"github.com/Atiyakh/dyright/internal/doctor"
	"github.com/Atiyakh/dyright/internal/history"
	"github.com/Atiyakh/dyright/internal/lock"
	"github.com/Atiyakh/dyright/internal/log"
	"github.com/Atiyakh/dyright/internal/pool"
	"github.com/Atiyakh/dyright/internal/script"
)

const version = "0.1.0"

// defaultScriptTypes maps default script filenames (without extension) to
// the type names they inspect.
var defaultScriptTypes = map[string]string{
	"dataframe": "pandas.DataFrame",
	"series":    "pandas.Series",
	"ndarray":   "numpy.ndarray",
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("dyright", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to YAML config file")
	listen := fs.String("listen", "", "Listen address (overrides config)")
	scriptsDir := fs.String("scripts-dir", "", "Directory containing inspection scripts (overrides config)")
	workers := fs.Int("workers", 0, "Inspection worker count (overrides config)")
	logLevel := fs.String("log-level", "", "Log level: DEBUG, INFO, WARN, ERROR (overrides config)")
	debug := fs.Bool("debug", false, "Enable debug logging")
	check := fs.Bool("check", false, "Validate config and scripts, then exit")
	showVersion := fs.Bool("version", false, "Show version and exit")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	if *showVersion {
		fmt.Printf("dyright version %s\n", version)
		return 0
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if *listen != "" {
		cfg.Listen = *listen
	}
	if *scriptsDir != "" {
		cfg.Scripts.Dir = *scriptsDir
	}
	if *workers > 0 {
		cfg.Execute.Workers = *workers
	}
	if *logLevel != "" {
		cfg.Service.LogLevel = *logLevel
	}
	if *debug {
		cfg.Service.LogLevel = "DEBUG"
	}

	if *check {
		result := doctor.New(cfg).Validate()
		fmt.Print(doctor.FormatHuman(result))
		if !result.Valid {
			return 1
		}
		return 0
	}

	log.Setup(cfg.Service.LogLevel)
	logger := log.WithComponent("main")
	logger.Info("starting dyright", "version", version, "listen", cfg.Listen, "workers", cfg.Execute.Workers)

	instLock, err := lock.Acquire(lock.DefaultPath(cfg.Listen))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer func() { _ = instLock.Release() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registry := script.NewRegistry(cfg.Scripts.Dir, cfg.Scripts.VMMemoryLimitMB)
	defer registry.Close()

	registerDefaultScripts(registry, cfg.Scripts.Dir)

	workerPool := pool.New(cfg.Execute.Workers, cfg.Execute.QueueDepth)
	defer workerPool.Stop()

	dispatcher := dispatch.New(registry, codec.NewRegistry(), workerPool, dispatch.Defaults{
		Timeout: cfg.Execute.DefaultTimeout,
		RAMMB:   cfg.Execute.DefaultRAMMB,
	})

	var hist api.HistoryStore
	if cfg.History.Enabled {
		store, err := history.Open(ctx, cfg.History.Keep)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: open inspection history: %v\n", err)
			return 1
		}
		defer store.Close()
		hist = store
	}

	server := api.New(api.Config{
		Listen:        cfg.Listen,
		APIKey:        cfg.API.APIKey,
		Workers:       cfg.Execute.Workers,
		ShutdownDelay: cfg.Execute.ShutdownDelay,
	}, dispatcher, registry, hist, log.WithComponent("api"), cancel)

	// SIGINT/SIGTERM stop the control loop the same way /shutdown does.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	if err := server.Start(ctx); err != nil && err != context.Canceled {
		logger.Error("server stopped with error", "error", err)
		return 1
	}

	logger.Info("dyright stopped")
	return 0
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// registerDefaultScripts scans the scripts directory and registers scripts
// whose filenames match the known default type mapping. Load failures are
// recorded on the entries, not fatal.
func registerDefaultScripts(registry *script.Registry, dir string) {
	logger := log.WithComponent("main")

	entries, err := os.ReadDir(dir)
	if err != nil {
		logger.Warn("scripts directory not readable, skipping default registration", "dir", dir, "error", err)
		return
	}

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".js") {
			continue
		}
		stem := strings.ToLower(strings.TrimSuffix(e.Name(), ".js"))
		typeName, ok := defaultScriptTypes[stem]
		if !ok {
			continue
		}
		loaded := registry.Register(typeName, filepath.Join(dir, e.Name()))
		log.WithScript(typeName).Info("registered default script", "script", e.Name(), "loaded", loaded)
	}
}
