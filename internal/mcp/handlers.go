package mcp

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/rhizome/internal/config"
	"github.com/hpungsan/rhizome/internal/embed"
	"github.com/hpungsan/rhizome/internal/errors"
	"github.com/hpungsan/rhizome/internal/ops"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	db       *sql.DB
	embedder embed.Embedder
	cfg      *config.Config
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(db *sql.DB, embedder embed.Embedder, cfg *config.Config) *Handlers {
	return &Handlers{db: db, embedder: embedder, cfg: cfg}
}

// Request types for each tool

// SearchRequest represents the arguments for vault_search.
type SearchRequest struct {
	Query string   `json:"query"`
	Limit int      `json:"limit,omitempty"`
	Tags  []string `json:"tags,omitempty"`
}

// BacklinksRequest represents the arguments for vault_backlinks.
type BacklinksRequest struct {
	Note string `json:"note"`
}

// ConnectionsRequest represents the arguments for vault_connections.
type ConnectionsRequest struct {
	Note string `json:"note"`
	Hops int    `json:"hops,omitempty"`
}

// HiddenRequest represents the arguments for vault_hidden.
type HiddenRequest struct {
	Query       string  `json:"query"`
	Seed        string  `json:"seed"`
	Limit       int     `json:"limit,omitempty"`
	MaxDistance float64 `json:"max_distance,omitempty"`
}

// SharedTagsRequest represents the arguments for vault_shared_tags.
type SharedTagsRequest struct {
	Note      string `json:"note"`
	MinShared int    `json:"min_shared,omitempty"`
	Limit     int    `json:"limit,omitempty"`
}

// BoostedRequest represents the arguments for vault_boosted_search.
type BoostedRequest struct {
	Query string `json:"query"`
	Seed  string `json:"seed"`
	Limit int    `json:"limit,omitempty"`
}

// SQLRequest represents the arguments for vault_sql.
type SQLRequest struct {
	Query string `json:"query"`
}

// Handler implementations

// HandleSearch handles the vault_search tool call.
func (h *Handlers) HandleSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SearchRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Search(ctx, h.db, h.embedder, ops.SearchInput{
		Query: input.Query,
		Limit: input.Limit,
		Tags:  input.Tags,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleBacklinks handles the vault_backlinks tool call.
func (h *Handlers) HandleBacklinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[BacklinksRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Backlinks(h.db, ops.BacklinksInput{Note: input.Note})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleConnections handles the vault_connections tool call.
func (h *Handlers) HandleConnections(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ConnectionsRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Connections(h.db, ops.ConnectionsInput{Note: input.Note, Hops: input.Hops})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleHidden handles the vault_hidden tool call.
func (h *Handlers) HandleHidden(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[HiddenRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.HiddenConnections(ctx, h.db, h.embedder, ops.HiddenInput{
		Query:       input.Query,
		Seed:        input.Seed,
		Limit:       input.Limit,
		MaxDistance: input.MaxDistance,
	}, h.cfg.HiddenDistance)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleSharedTags handles the vault_shared_tags tool call.
func (h *Handlers) HandleSharedTags(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SharedTagsRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.SharedTags(h.db, ops.SharedTagsInput{Note: input.Note, MinShared: input.MinShared, Limit: input.Limit})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleBoosted handles the vault_boosted_search tool call.
func (h *Handlers) HandleBoosted(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[BoostedRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.BoostedSearch(ctx, h.db, h.embedder, ops.BoostedInput{
		Query: input.Query,
		Seed:  input.Seed,
		Limit: input.Limit,
	}, h.cfg.BoostFactor)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleSQL handles the vault_sql tool call.
func (h *Handlers) HandleSQL(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SQLRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.RawSQL(h.db, ops.RawSQLInput{Query: input.Query})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleStats handles the vault_stats tool call.
func (h *Handlers) HandleStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := ops.Stats(h.db)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// errorResult creates an MCP error result with a structured payload.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if rhizomeErr, ok := err.(*errors.RhizomeError); ok {
		errorObj := map[string]any{
			"code":    rhizomeErr.Code,
			"message": rhizomeErr.Message,
			"status":  rhizomeErr.Status,
		}
		// Only include details for non-internal errors to avoid leaking
		// sensitive info like file paths or SQL errors
		if rhizomeErr.Code != errors.ErrInternal && rhizomeErr.Details != nil {
			errorObj["details"] = rhizomeErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
