package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/hpungsan/rhizome/internal/config"
	"github.com/hpungsan/rhizome/internal/db"
	"github.com/hpungsan/rhizome/internal/embed"
	"github.com/hpungsan/rhizome/internal/mcp"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"ingest": true, "search": true, "backlinks": true,
	"connections": true, "hidden": true, "shared-tags": true,
	"boosted": true, "sql": true, "stats": true, "serve": true,
	"help": true,
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode() bool {
	if len(os.Args) < 2 {
		return false // No args → MCP server
	}
	arg := os.Args[1]
	// Known subcommand → CLI
	if cliCommands[arg] {
		return true
	}
	// --help or --version → CLI
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
   ___ _    _
  | _ \ |_ (_)______ _ __  ___
  |   / ' \| |_ / _ \ '  \/ -_)
  |_|_\_||_|_/__\___/_|_|_\___|

  Obsidian vault knowledge base

  Usage: rhizome <command> [options]
         rhizome --help

  MCP server mode requires piped input.`)
}

// baseDir returns the rhizome home directory (~/.rhizome).
func baseDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".rhizome"), nil
}

// newEmbedder builds the embedding client from config and environment.
func newEmbedder(cfg *config.Config) (embed.Embedder, error) {
	baseURL := cfg.EmbedBaseURL
	if env := os.Getenv("RHIZOME_EMBED_BASE_URL"); env != "" {
		baseURL = env
	}
	apiKey := os.Getenv("OPENAI_API_KEY")
	return embed.NewOpenAIEmbedder(baseURL, apiKey, cfg.EmbedModel, cfg.EmbedDimension, cfg.EmbedBatchSize)
}

func main() {
	// No args + interactive terminal → show banner and exit
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	// Handle --help/--version before config load (nothing needed)
	if isHelpOrVersion() {
		app := newCLIApp(nil)
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Best-effort: a .env in the working directory may carry
	// OPENAI_API_KEY or RHIZOME_EMBED_BASE_URL.
	_ = godotenv.Load()

	base, err := baseDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(base)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to load config: %v\n", err)
		os.Exit(1)
	}

	// CLI mode: known subcommand
	if isCLIMode() {
		app := newCLIApp(cfg)
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	if len(os.Args) >= 2 && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'rhizome --help' for usage.\n")
		os.Exit(1)
	}

	// MCP server mode (default)
	database, err := db.Open(defaultDBPath(base))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer database.Close()
	db.ConfigurePool(database, cfg)

	embedder, err := newEmbedder(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if err := mcp.Run(database, embedder, cfg, Version); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
