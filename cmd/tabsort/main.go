package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"pkt.systems/psi"
	"pkt.systems/pslog"

	"github.com/hpungsan/tabsort/internal/config"
	"github.com/hpungsan/tabsort/internal/db"
	"github.com/hpungsan/tabsort/internal/grouping"
	"github.com/hpungsan/tabsort/internal/host"
	"github.com/hpungsan/tabsort/internal/mcp"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"serve": true, "resolve": true, "state": true, "prune": true,
	"stats": true, "config": true,
	"help": true,
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode() bool {
	if len(os.Args) < 2 {
		return false // No args → MCP server
	}
	arg := os.Args[1]
	if cliCommands[arg] {
		return true
	}
	if arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" {
		return true
	}
	return false // Default → MCP server
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

// printBanner displays a friendly banner when run interactively without args.
func printBanner() {
	fmt.Println(`
   _        _                    _
  | |_ __ _| |__  ___  ___  _ __| |_
  | __/ _' | '_ \/ __|/ _ \| '__| __|
  | || (_| | |_) \__ \ (_) | |  | |_
   \__\__,_|_.__/|___/\___/|_|   \__|

  Category tab grouping engine

  Usage: tabsort <command> [options]
         tabsort --help

  MCP server mode requires piped input.`)
}

// engine is everything a command needs, wired once per process.
type engine struct {
	db  *sql.DB
	cfg *config.Config
	svc *grouping.Service
	mem *host.Memory
}

// newEngine wires the store, the in-process host and the grouping service, and
// loads the persisted grouping state.
func newEngine(ctx context.Context, database *sql.DB, cfg *config.Config) (*engine, error) {
	mem := host.NewMemory()
	svc := grouping.NewService(mem, db.NewStore(database), func() *config.Config { return cfg })
	if err := svc.Initialize(ctx); err != nil {
		return nil, err
	}
	mem.Subscribe(svc)
	return &engine{db: database, cfg: cfg, svc: svc, mem: mem}, nil
}

// serve runs the MCP server on stdio with the periodic cleanup sweep alongside.
func serve(ctx context.Context, env *engine) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go env.svc.Sweeper().Run(ctx, env.cfg.SweepInterval())

	pslog.Ctx(ctx).Info("tabsort mcp server starting",
		"version", Version, "sweep_interval", env.cfg.SweepInterval().String())
	return mcp.Run(ctx, env.svc, env.mem, env.cfg, Version)
}

func main() {
	psi.Run(submain)
}

func submain(ctx context.Context) int {
	logger := pslog.LoggerFromEnv(
		pslog.WithEnvWriter(os.Stderr),
		pslog.WithEnvOptions(pslog.Options{Mode: pslog.ModeConsole}),
	)
	ctx = pslog.ContextWithLogger(ctx, logger)

	// No args + interactive terminal → show banner and exit
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return 0
	}

	// Handle --help/--version before DB init (no DB needed)
	if isHelpOrVersion() {
		app := newCLIApp(nil)
		if err := app.RunContext(ctx, os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 1
		}
		return 0
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: could not determine home directory: %v\n", err)
		return 1
	}
	baseDir := filepath.Join(homeDir, ".tabsort")

	database, err := db.Init(baseDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to initialize database: %v\n", err)
		return 1
	}
	defer database.Close()

	cwd, _ := os.Getwd()
	cfg, err := config.LoadWithRepo(baseDir, cwd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to load config: %v\n", err)
		return 1
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "error: invalid config: %v\n", err)
		return 1
	}
	db.ConfigurePool(database, cfg)
	if unknown := mcp.ValidateDisabledTools(cfg.DisabledTools); len(unknown) > 0 {
		logger.Warn("unknown tools in disabled_tools", "tools", unknown)
	}

	env, err := newEngine(ctx, database, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to load grouping state: %v\n", err)
		return 1
	}

	// CLI mode: known subcommand
	if isCLIMode() {
		app := newCLIApp(env)
		if err := app.RunContext(ctx, os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 1
		}
		return 0
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	if len(os.Args) >= 2 && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'tabsort --help' for usage.\n")
		return 1
	}

	// MCP server mode (default)
	if err := serve(ctx, env); err != nil {
		pslog.Ctx(ctx).With("err", err).Error("tabsort server failed")
		return 1
	}
	return 0
}
