package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"gopkg.in/yaml.v3"

	"github.com/mistbot/kommorelay/internal/analysis"
	"github.com/mistbot/kommorelay/internal/config"
	"github.com/mistbot/kommorelay/internal/doctor"
	"github.com/mistbot/kommorelay/internal/event"
	"github.com/mistbot/kommorelay/internal/kommo"
	"github.com/mistbot/kommorelay/internal/lock"
	"github.com/mistbot/kommorelay/internal/log"
	"github.com/mistbot/kommorelay/internal/outlog"
	"github.com/mistbot/kommorelay/internal/relay"
	"github.com/mistbot/kommorelay/internal/webhook"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "start":
		os.Exit(runStart(args))
	case "config":
		os.Exit(runConfigNoun(args))
	case "version":
		fmt.Printf("kommorelay version %s\n", version)
		os.Exit(0)
	case "help", "--help", "-h":
		printUsage()
		os.Exit(0)

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`kommorelay - Kommo CRM chat-message webhook relay

Usage:
  kommorelay <command> [flags]

Commands:
  start             Run the relay in the foreground
  config check      Validate configuration and report problems
  config show       Print the effective configuration
  version           Show version information
  help              Show this help message

Configuration is read from an optional YAML file (--config) and overridden by
environment variables (KOMMO_DOMAIN, KOMMO_TOKEN, KOMMO_SECRET, PORT, ...).
`)
}

func runConfigNoun(args []string) int {
	if len(args) < 1 {
		printConfigNounHelp(os.Stderr)
		return 1
	}
	if isHelpToken(args[0]) {
		printConfigNounHelp(os.Stdout)
		return 0
	}

	action := args[0]
	actionArgs := args[1:]

	switch action {
	case "check":
		if hasHelpFlag(actionArgs) {
			printConfigCheckHelp()
			return 0
		}
		return runConfigCheck(actionArgs)
	case "show":
		if hasHelpFlag(actionArgs) {
			printConfigShowHelp()
			return 0
		}
		return runConfigShow(actionArgs)
	case "help":
		printConfigNounHelp(os.Stdout)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown config action: %s\n", action)
		return 1
	}
}

func isHelpToken(token string) bool {
	return token == "help" || token == "--help" || token == "-h"
}

func hasHelpFlag(args []string) bool {
	for _, arg := range args {
		if arg == "--help" || arg == "-h" {
			return true
		}
	}
	return false
}

func printConfigNounHelp(w *os.File) {
	fmt.Fprintln(w, "Usage: kommorelay config <action> [flags]")
	fmt.Fprintln(w, "Actions: check, show")
}

func printConfigCheckHelp() {
	fmt.Println("Usage: kommorelay config check [--config PATH] [--json] [--strict]")
	fmt.Println("Validate configuration; --strict also fails on warnings.")
}

func printConfigShowHelp() {
	fmt.Println("Usage: kommorelay config show [--config PATH] [--json]")
	fmt.Println("Print the effective configuration with secrets redacted.")
}

// --- ACTION IMPLEMENTATIONS ---

func runStart(args []string) int {
	fs := flag.NewFlagSet("start", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file")
	pidFile := fs.String("pidfile", "", "Path to PID lock file (empty disables locking)")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	log.Setup(cfg.LogLevel)
	logger := log.WithComponent("main")
	logger.Info("kommorelay starting", "version", version, "port", cfg.Port)

	if *pidFile != "" {
		pidLock, err := lock.AcquirePIDLock(*pidFile)
		if err != nil {
			logger.Error("failed to acquire PID lock (another instance may be running)", "path", *pidFile, "error", err)
			return 1
		}
		defer pidLock.Release()
		logger.Info("acquired PID lock", "path", *pidFile)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sink, err := openSink(ctx, cfg)
	if err != nil {
		logger.Error("failed to open outgoing sink", "store", cfg.Outgoing.Store, "error", err)
		return 1
	}
	defer sink.Close()
	logger.Info("outgoing sink ready", "store", cfg.Outgoing.Store, "path", cfg.Outgoing.Path)

	kommoClient := kommo.NewClient(cfg.KommoDomain, cfg.KommoToken, cfg.RequestTimeout)
	analysisClient := analysis.NewClient(cfg.AnalyzeURL, cfg.RequestTimeout)

	pipeline := relay.New(
		analysisClient,
		kommoClient,
		kommoClient,
		sink,
		relay.Options{HistoryEnabled: cfg.HistoryEnabled, HistoryLimit: cfg.HistoryLimit},
		log.WithComponent("relay"),
	)

	classifier := event.NewClassifier(cfg.TechnicalPhrases)
	server := webhook.New(webhook.Config{
		Addr:             fmt.Sprintf(":%d", cfg.Port),
		Secret:           cfg.KommoSecret,
		RequireSignature: cfg.RequireSignature,
		MaxBodySize:      cfg.MaxBodySize,
	}, classifier, pipeline, log.WithComponent("webhook"))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(ctx); err != nil && err != context.Canceled {
			errCh <- fmt.Errorf("webhook: %w", err)
		}
	}()

	logger.Info("kommorelay running (press Ctrl+C to stop)")

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	case err := <-errCh:
		logger.Error("component failed", "error", err)
		cancel()
		return 1
	}

	logger.Info("kommorelay stopped")
	return 0
}

// openSink builds the configured outgoing-message sink.
func openSink(ctx context.Context, cfg *config.Config) (outlog.Sink, error) {
	switch cfg.Outgoing.Store {
	case config.StoreFile:
		return outlog.NewFileSink(cfg.Outgoing.Path)
	case config.StoreSQLite:
		return outlog.NewSQLiteSink(ctx, cfg.Outgoing.Path)
	case config.StoreOff:
		return outlog.Discard{}, nil
	default:
		return nil, fmt.Errorf("unknown outgoing store %q", cfg.Outgoing.Store)
	}
}

func runConfigCheck(args []string) int {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file")
	jsonOut := fs.Bool("json", false, "Output report in JSON")
	strict := fs.Bool("strict", false, "Treat warnings as errors")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	cfg, err := config.LoadUnchecked(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Load error: %v\n", err)
		return 1
	}

	result := doctor.New(cfg).Validate()

	if *jsonOut {
		out, err := doctor.FormatJSON(result)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Format error: %v\n", err)
			return 1
		}
		fmt.Println(out)
	} else {
		fmt.Print(doctor.FormatHuman(result))
	}

	if !result.Valid {
		return 1
	}
	if *strict && len(result.Warnings) > 0 {
		return 1
	}
	return 0
}

func runConfigShow(args []string) int {
	fs := flag.NewFlagSet("show", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file")
	jsonOut := fs.Bool("json", false, "Output in structured JSON format")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	cfg, err := config.LoadUnchecked(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Load error: %v\n", err)
		return 1
	}

	redacted := *cfg
	if redacted.KommoToken != "" {
		redacted.KommoToken = "<redacted>"
	}
	if redacted.KommoSecret != "" {
		redacted.KommoSecret = "<redacted>"
	}

	if *jsonOut {
		data, _ := json.MarshalIndent(redacted, "", "  ")
		fmt.Println(string(data))
	} else {
		data, _ := yaml.Marshal(redacted)
		fmt.Print(string(data))
	}
	return 0
}
