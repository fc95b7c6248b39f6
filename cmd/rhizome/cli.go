package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/rhizome/internal/config"
	"github.com/hpungsan/rhizome/internal/db"
	"github.com/hpungsan/rhizome/internal/errors"
	"github.com/hpungsan/rhizome/internal/ops"
	"github.com/hpungsan/rhizome/internal/web"
)

// defaultDBPath returns the store path: $RHIZOME_DB if set, otherwise
// rhizome.db under the base directory.
func defaultDBPath(base string) string {
	if env := os.Getenv("RHIZOME_DB"); env != "" {
		return env
	}
	return filepath.Join(base, "rhizome.db")
}

// dbFlag is shared by every command that touches the store.
func dbFlag() *cli.StringFlag {
	return &cli.StringFlag{Name: "db", Usage: "Path to the knowledge base file (default: ~/.rhizome/rhizome.db)"}
}

// jsonFlag switches a query command from formatted text to JSON output.
func jsonFlag() *cli.BoolFlag {
	return &cli.BoolFlag{Name: "json", Usage: "Print raw JSON instead of a formatted report"}
}

// newCLIApp creates the CLI application with all commands.
func newCLIApp(cfg *config.Config) *cli.App {
	app := &cli.App{
		Name:    "rhizome",
		Usage:   "Obsidian vault knowledge base",
		Version: Version,
		Commands: []*cli.Command{
			ingestCmd(cfg),
			searchCmd(cfg),
			backlinksCmd(),
			connectionsCmd(),
			hiddenCmd(cfg),
			sharedTagsCmd(),
			boostedCmd(cfg),
			sqlCmd(),
			statsCmd(),
			serveCmd(cfg),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// openStore opens an existing knowledge base for a query command.
func openStore(c *cli.Context, cfg *config.Config) (*sql.DB, error) {
	path := c.String("db")
	if path == "" {
		base, err := baseDir()
		if err != nil {
			return nil, err
		}
		path = defaultDBPath(base)
	}
	database, err := db.Open(path)
	if err != nil {
		return nil, err
	}
	if cfg != nil {
		db.ConfigurePool(database, cfg)
	}
	return database, nil
}

// ingestCmd creates the ingest command.
func ingestCmd(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "ingest",
		Usage:     "Rebuild the knowledge base from a vault directory",
		ArgsUsage: "<vault-path>",
		Flags: []cli.Flag{
			dbFlag(),
			&cli.StringFlag{Name: "model", Usage: "Embedding model name"},
			&cli.StringFlag{Name: "base-url", Usage: "Embedding endpoint base URL"},
			&cli.IntFlag{Name: "embed-batch", Usage: "Texts per embedding API call"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("vault path is required"))
			}
			vaultPath := c.Args().First()

			run := *cfg
			if m := c.String("model"); m != "" {
				run.EmbedModel = m
				run.EmbedDimension = 0
			}
			if u := c.String("base-url"); u != "" {
				run.EmbedBaseURL = u
			}
			if b := c.Int("embed-batch"); b > 0 {
				run.EmbedBatchSize = b
			}

			path := c.String("db")
			if path == "" {
				base, err := baseDir()
				if err != nil {
					return outputError(err)
				}
				path = defaultDBPath(base)
			}
			database, err := db.Init(path)
			if err != nil {
				return outputError(err)
			}
			defer database.Close()
			db.ConfigurePool(database, &run)

			embedder, err := newEmbedder(&run)
			if err != nil {
				return outputError(err)
			}

			output, err := ops.Ingest(context.Background(), database, embedder, &run, ops.IngestInput{
				VaultPath: vaultPath,
				Progress:  os.Stderr,
			})
			if err != nil {
				return outputError(err)
			}

			fmt.Printf("Ingested %d notes (%d links, %d chunks, %d embeddings, %d hyperedges)\n",
				output.Notes, output.Links, output.Chunks, output.Embeddings, output.Hyperedges)
			if output.Skipped > 0 {
				fmt.Printf("Skipped %d files\n", output.Skipped)
			}
			fmt.Printf("Run %s completed in %s\n", output.RunID, output.Elapsed.Round(10*time.Millisecond))
			return nil
		},
	}
}

// searchCmd creates the search command.
func searchCmd(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Semantic search over note chunks",
		ArgsUsage: "<query>",
		Flags: []cli.Flag{
			dbFlag(),
			jsonFlag(),
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultSearchLimit, Usage: "Maximum results"},
			&cli.StringFlag{Name: "tags", Usage: "Comma-separated tag filter"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("query is required"))
			}
			database, err := openStore(c, cfg)
			if err != nil {
				return outputError(err)
			}
			defer database.Close()

			embedder, err := newEmbedder(cfg)
			if err != nil {
				return outputError(err)
			}

			output, err := ops.Search(context.Background(), database, embedder, ops.SearchInput{
				Query: strings.Join(c.Args().Slice(), " "),
				Limit: c.Int("limit"),
				Tags:  parseTags(c.String("tags")),
			})
			if err != nil {
				return outputError(err)
			}
			if c.Bool("json") {
				return outputJSON(output)
			}

			if len(output.Results) == 0 {
				fmt.Printf("No results for %q\n", output.Query)
				return nil
			}
			fmt.Printf("Results for %q:\n\n", output.Query)
			for i, r := range output.Results {
				fmt.Printf("%2d. %s (%.1f%%)\n", i+1, r.Title, r.Similarity*100)
				fmt.Printf("    %s\n", r.FilePath)
				if r.Heading != "" {
					fmt.Printf("    under: %s\n", r.Heading)
				}
				fmt.Printf("    %s\n\n", r.Snippet)
			}
			return nil
		},
	}
}

// backlinksCmd creates the backlinks command.
func backlinksCmd() *cli.Command {
	return &cli.Command{
		Name:      "backlinks",
		Usage:     "List notes linking to the given note",
		ArgsUsage: "<note>",
		Flags:     []cli.Flag{dbFlag(), jsonFlag()},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("note slug or title is required"))
			}
			database, err := openStore(c, nil)
			if err != nil {
				return outputError(err)
			}
			defer database.Close()

			output, err := ops.Backlinks(database, ops.BacklinksInput{Note: c.Args().First()})
			if err != nil {
				return outputError(err)
			}
			if c.Bool("json") {
				return outputJSON(output)
			}

			if len(output.Backlinks) == 0 {
				fmt.Printf("No backlinks to %s\n", output.Title)
				return nil
			}
			fmt.Printf("Backlinks to %s:\n", output.Title)
			for _, b := range output.Backlinks {
				line := fmt.Sprintf("  %s (%s)", b.SourceTitle, b.LinkType)
				if b.LinkText != "" && b.LinkText != output.Title {
					line += fmt.Sprintf(" as %q", b.LinkText)
				}
				fmt.Println(line)
			}
			return nil
		},
	}
}

// connectionsCmd creates the connections command.
func connectionsCmd() *cli.Command {
	return &cli.Command{
		Name:      "connections",
		Usage:     "Walk the outbound link graph from a note",
		ArgsUsage: "<note>",
		Flags: []cli.Flag{
			dbFlag(),
			jsonFlag(),
			&cli.IntFlag{Name: "hops", Value: ops.DefaultHops, Usage: "Traversal depth (1-3)"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("note slug or title is required"))
			}
			database, err := openStore(c, nil)
			if err != nil {
				return outputError(err)
			}
			defer database.Close()

			output, err := ops.Connections(database, ops.ConnectionsInput{
				Note: c.Args().First(),
				Hops: c.Int("hops"),
			})
			if err != nil {
				return outputError(err)
			}
			if c.Bool("json") {
				return outputJSON(output)
			}

			if len(output.Connections) == 0 {
				fmt.Printf("No connections from %s within %d hops\n", output.Title, output.Hops)
				return nil
			}
			fmt.Printf("Connections from %s (%d hops):\n", output.Title, output.Hops)
			hop := 0
			for _, conn := range output.Connections {
				if conn.Hop != hop {
					hop = conn.Hop
					fmt.Printf("  %d hop(s) away:\n", hop)
				}
				fmt.Printf("    %s\n", conn.Title)
			}
			return nil
		},
	}
}

// hiddenCmd creates the hidden command.
func hiddenCmd(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "hidden",
		Usage:     "Find notes relevant to a query with no direct link to the seed",
		ArgsUsage: "<query>",
		Flags: []cli.Flag{
			dbFlag(),
			jsonFlag(),
			&cli.StringFlag{Name: "seed", Aliases: []string{"s"}, Required: true, Usage: "Note slug or title to check link distance from"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultHiddenLimit, Usage: "Maximum results"},
			&cli.Float64Flag{Name: "max-distance", Usage: "Cosine-distance ceiling (default from config)"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("query is required"))
			}
			database, err := openStore(c, cfg)
			if err != nil {
				return outputError(err)
			}
			defer database.Close()

			embedder, err := newEmbedder(cfg)
			if err != nil {
				return outputError(err)
			}

			output, err := ops.HiddenConnections(context.Background(), database, embedder, ops.HiddenInput{
				Query:       strings.Join(c.Args().Slice(), " "),
				Seed:        c.String("seed"),
				Limit:       c.Int("limit"),
				MaxDistance: c.Float64("max-distance"),
			}, cfg.HiddenDistance)
			if err != nil {
				return outputError(err)
			}
			if c.Bool("json") {
				return outputJSON(output)
			}

			if len(output.Connections) == 0 {
				fmt.Printf("No hidden connections to %s for %q (distance < %.2f)\n", output.Title, output.Query, output.MaxDistance)
				return nil
			}
			fmt.Printf("Hidden connections to %s for %q (distance < %.2f):\n", output.Title, output.Query, output.MaxDistance)
			for _, conn := range output.Connections {
				fmt.Printf("  %s (distance %.3f)\n", conn.Title, conn.Distance)
			}
			return nil
		},
	}
}

// sharedTagsCmd creates the shared-tags command.
func sharedTagsCmd() *cli.Command {
	return &cli.Command{
		Name:      "shared-tags",
		Usage:     "List notes sharing tags with the given note",
		ArgsUsage: "<note>",
		Flags: []cli.Flag{
			dbFlag(),
			jsonFlag(),
			&cli.IntFlag{Name: "min-shared", Value: ops.DefaultMinShared, Usage: "Minimum shared tag count"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultSharedTagsLimit, Usage: "Maximum results"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("note slug or title is required"))
			}
			database, err := openStore(c, nil)
			if err != nil {
				return outputError(err)
			}
			defer database.Close()

			output, err := ops.SharedTags(database, ops.SharedTagsInput{
				Note:      c.Args().First(),
				MinShared: c.Int("min-shared"),
				Limit:     c.Int("limit"),
			})
			if err != nil {
				return outputError(err)
			}
			if c.Bool("json") {
				return outputJSON(output)
			}

			if len(output.Notes) == 0 {
				fmt.Printf("No notes share %d+ tags with %s\n", output.MinShared, output.Title)
				return nil
			}
			fmt.Printf("Notes sharing tags with %s:\n", output.Title)
			for _, n := range output.Notes {
				fmt.Printf("  %s (%d shared: %s)\n", n.Title, n.SharedCount, strings.Join(n.Tags, ", "))
			}
			return nil
		},
	}
}

// boostedCmd creates the boosted command.
func boostedCmd(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "boosted",
		Usage:     "Semantic search that boosts results linked to a seed note",
		ArgsUsage: "<query>",
		Flags: []cli.Flag{
			dbFlag(),
			jsonFlag(),
			&cli.StringFlag{Name: "seed", Aliases: []string{"s"}, Required: true, Usage: "Note slug or title to check graph connectivity from"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultSearchLimit, Usage: "Maximum results"},
			&cli.Float64Flag{Name: "boost", Usage: "Boost factor for linked results (default from config)"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("query is required"))
			}
			database, err := openStore(c, cfg)
			if err != nil {
				return outputError(err)
			}
			defer database.Close()

			embedder, err := newEmbedder(cfg)
			if err != nil {
				return outputError(err)
			}

			boost := cfg.BoostFactor
			if b := c.Float64("boost"); b > 0 {
				boost = b
			}

			output, err := ops.BoostedSearch(context.Background(), database, embedder, ops.BoostedInput{
				Query: strings.Join(c.Args().Slice(), " "),
				Seed:  c.String("seed"),
				Limit: c.Int("limit"),
			}, boost)
			if err != nil {
				return outputError(err)
			}
			if c.Bool("json") {
				return outputJSON(output)
			}

			if len(output.Results) == 0 {
				fmt.Printf("No results for %q\n", output.Query)
				return nil
			}
			fmt.Printf("Boosted results for %q around %s (boost %.2f):\n\n", output.Query, output.Seed, output.Boost)
			for i, r := range output.Results {
				marker := " "
				if r.GraphBoosted {
					marker = "*"
				}
				fmt.Printf("%2d.%s %s (score %.3f, similarity %.1f%%)\n", i+1, marker, r.Title, r.Score, r.Similarity*100)
				fmt.Printf("     %s\n\n", r.Snippet)
			}
			return nil
		},
	}
}

// sqlCmd creates the sql command.
func sqlCmd() *cli.Command {
	return &cli.Command{
		Name:      "sql",
		Usage:     "Run a read-only SQL query against the knowledge base",
		ArgsUsage: "[query]",
		Flags:     []cli.Flag{dbFlag(), jsonFlag()},
		Action: func(c *cli.Context) error {
			query := strings.Join(c.Args().Slice(), " ")
			if query == "" && stdinHasData() {
				piped, err := readStdin()
				if err != nil {
					return outputError(errors.NewInternal(err))
				}
				query = piped
			}
			if query == "" {
				return outputError(errors.NewInvalidRequest("query is required (argument or stdin)"))
			}

			database, err := openStore(c, nil)
			if err != nil {
				return outputError(err)
			}
			defer database.Close()

			output, err := ops.RawSQL(database, ops.RawSQLInput{Query: query})
			if err != nil {
				return outputError(err)
			}
			if c.Bool("json") {
				return outputJSON(output)
			}

			fmt.Println(output.FormatTable())
			fmt.Printf("(%d rows)\n", len(output.Rows))
			return nil
		},
	}
}

// statsCmd creates the stats command.
func statsCmd() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Show knowledge base counts and ingestion metadata",
		Flags: []cli.Flag{dbFlag(), jsonFlag()},
		Action: func(c *cli.Context) error {
			database, err := openStore(c, nil)
			if err != nil {
				return outputError(err)
			}
			defer database.Close()

			output, err := ops.Stats(database)
			if err != nil {
				return outputError(err)
			}
			if c.Bool("json") {
				return outputJSON(output)
			}

			fmt.Printf("Notes:      %d\n", output.Notes)
			fmt.Printf("Links:      %d\n", output.Links)
			fmt.Printf("Chunks:     %d\n", output.Chunks)
			fmt.Printf("Embeddings: %d\n", output.Embeddings)
			fmt.Printf("Hyperedges: %d\n", output.Hyperedges)
			if output.EmbedModel != "" {
				fmt.Printf("Model:      %s\n", output.EmbedModel)
			}
			if output.IngestedAt != "" {
				fmt.Printf("Ingested:   %s\n", output.IngestedAt)
			}
			return nil
		},
	}
}

// serveCmd creates the serve command.
func serveCmd(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the read-only web viewer",
		Flags: []cli.Flag{
			dbFlag(),
			&cli.StringFlag{Name: "bind", Value: "127.0.0.1", Usage: "Bind address"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Value: 8080, Usage: "Listen port"},
		},
		Action: func(c *cli.Context) error {
			database, err := openStore(c, cfg)
			if err != nil {
				return outputError(err)
			}
			defer database.Close()

			embedder, err := newEmbedder(cfg)
			if err != nil {
				return outputError(err)
			}

			srv := web.NewServer(database, embedder, cfg, Version, c.String("bind"), c.Int("port"))
			if err := web.Run(srv); err != nil {
				return outputError(err)
			}
			return nil
		},
	}
}

// Helper functions

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if rerr, ok := err.(*errors.RhizomeError); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", rerr.Code, rerr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readStdin reads all content from stdin.
func readStdin() (string, error) {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// parseTags splits a comma-separated string into a slice of tags.
func parseTags(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
