// Package mcp exposes the vault query operations as MCP tools over
// stdio transport.
package mcp

import (
	"database/sql"
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hpungsan/rhizome/internal/config"
	"github.com/hpungsan/rhizome/internal/embed"
)

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"vault_search": {
		def:     searchToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSearch },
	},
	"vault_backlinks": {
		def:     backlinksToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleBacklinks },
	},
	"vault_connections": {
		def:     connectionsToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleConnections },
	},
	"vault_hidden": {
		def:     hiddenToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleHidden },
	},
	"vault_shared_tags": {
		def:     sharedTagsToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSharedTags },
	},
	"vault_boosted_search": {
		def:     boostedToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleBoosted },
	},
	"vault_sql": {
		def:     sqlToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSQL },
	},
	"vault_stats": {
		def:     statsToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleStats },
	},
}

// AllToolNames returns a sorted list of all valid tool names.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// NewServer creates a new MCP server with vault tools registered.
// Tools listed in cfg.DisabledTools are excluded from registration.
func NewServer(db *sql.DB, embedder embed.Embedder, cfg *config.Config, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"rhizome",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(db, embedder, cfg)

	disabled := make(map[string]bool)
	for _, name := range cfg.DisabledTools {
		disabled[name] = true
	}

	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run starts the MCP server using stdio transport.
func Run(db *sql.DB, embedder embed.Embedder, cfg *config.Config, version string) error {
	s := NewServer(db, embedder, cfg, version)
	return server.ServeStdio(s)
}
