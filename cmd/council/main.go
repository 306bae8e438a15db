package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/hpungsan/council/internal/advisor"
	"github.com/hpungsan/council/internal/config"
	"github.com/hpungsan/council/internal/db"
	"github.com/hpungsan/council/internal/mcp"
	"github.com/hpungsan/council/internal/ops"
	"github.com/hpungsan/council/internal/persona"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"advisors": true, "ask": true, "toggle": true, "begin": true,
	"follow-up": true, "adjust": true, "reset": true, "clear": true,
	"status": true, "history": true, "open": true, "delete": true,
	"export": true, "archive-export": true, "archive-import": true,
	"serve": true, "mcp": true, "help": true,
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode() bool {
	if len(os.Args) < 2 {
		return false
	}
	arg := os.Args[1]
	if cliCommands[arg] {
		return true
	}
	if arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" {
		return true
	}
	return false
}

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion() bool {
	if len(os.Args) < 2 {
		return false
	}
	arg := os.Args[1]
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" || arg == "help"
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, _ := os.Stdin.Stat()
	return (stat.Mode() & os.ModeCharDevice) != 0
}

func printBanner() {
	fmt.Println(`
    ___ ___  _   _ _  _  ___ ___ _
   / __/ _ \| | | | \| |/ __|_ _| |
  | (_| (_) | |_| | .' | (__ | || |__
   \___\___/ \___/|_|\_|\___|___|____|

  人生顾问团: a round table of mentors

  Usage: council <command> [options]
         council --help

  MCP server mode requires piped input.`)
}

// newLogger builds a zap logger on stderr; stdout carries CLI JSON and MCP frames.
// COUNCIL_LOG_LEVEL overrides the default level (warn).
func newLogger() *zap.Logger {
	level := zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if s := os.Getenv("COUNCIL_LOG_LEVEL"); s != "" {
		if parsed, err := zap.ParseAtomicLevel(s); err == nil {
			level = parsed
		}
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = level
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// loadRegistry returns the persona registry named by cfg, or the built-in one.
func loadRegistry(cfg *config.Config) (*persona.Registry, error) {
	if cfg.PersonasFile == "" {
		return persona.Builtin(), nil
	}
	return persona.Load(cfg.PersonasFile)
}

// newAdvisor wires the configured provider. A missing key or unknown provider
// does not stop the process: rounds degrade to placeholder answers.
func newAdvisor(ctx context.Context, cfg *config.Config, registry *persona.Registry, logger *zap.Logger) *advisor.Service {
	backend, err := advisor.NewBackend(ctx, cfg)
	if err != nil {
		logger.Warn("advice provider unavailable", zap.Error(err))
		backend = advisor.Unavailable(err)
	} else {
		logger.Debug("advice provider ready", zap.String("backend", backend.Name()))
	}

	return advisor.NewService(backend, registry, advisor.Options{
		AdviceContext:     cfg.AdviceContext,
		MaxRetries:        cfg.MaxRetries,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Burst:             cfg.Burst,
		ClassifyTimeout:   cfg.ClassifyTimeout(),
		Logger:            logger.Named("advisor"),
	})
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}

func main() {
	// No args + interactive terminal → show banner and exit
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	// Handle --help/--version before DB init (no DB needed)
	if isHelpOrVersion() {
		app := newCLIApp(nil, nil)
		if err := app.Run(os.Args); err != nil {
			fatal("%v", err)
		}
		return
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	if !isCLIMode() && len(os.Args) >= 2 && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'council --help' for usage.\n")
		os.Exit(1)
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		fatal("could not determine home directory: %v", err)
	}
	baseDir := filepath.Join(homeDir, ".council")

	logger := newLogger()
	defer func() { _ = logger.Sync() }()

	if err := config.LoadEnv(baseDir); err != nil {
		logger.Warn("failed to load .env", zap.Error(err))
	}

	cwd, err := os.Getwd()
	if err != nil {
		fatal("could not determine working directory: %v", err)
	}
	cfg, err := config.LoadWithRepo(baseDir, cwd)
	if err != nil {
		fatal("failed to load config: %v", err)
	}

	registry, err := loadRegistry(cfg)
	if err != nil {
		fatal("failed to load personas: %v", err)
	}

	database, err := db.Init(baseDir)
	if err != nil {
		fatal("failed to initialize database: %v", err)
	}
	defer database.Close()
	db.ConfigurePool(database, cfg)

	ctx := context.Background()
	ctrl := ops.New(ctx, ops.Deps{
		Store:    db.NewStore(database, logger.Named("db")),
		Advisor:  newAdvisor(ctx, cfg, registry, logger),
		Registry: registry,
		Config:   cfg,
		Logger:   logger.Named("ops"),
	})
	defer ctrl.Close()

	if isCLIMode() {
		app := newCLIApp(ctrl, logger)
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// MCP server mode (default)
	if unknown := mcp.ValidateDisabledTools(cfg.DisabledTools); len(unknown) > 0 {
		logger.Warn("unknown tools in disabled_tools", zap.Strings("tools", unknown))
	}
	if err := mcp.Run(ctrl, cfg, Version); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
