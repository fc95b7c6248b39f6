package mcp

import "github.com/mark3labs/mcp-go/mcp"

var searchToolDef = mcp.NewTool("vault_search",
	mcp.WithDescription("Semantic search over the vault. Ranks notes by the cosine similarity of their closest chunk to the query. Returns at most one result per note."),
	mcp.WithString("query", mcp.Required(), mcp.Description("Natural-language search query")),
	mcp.WithNumber("limit", mcp.Description("Maximum results (default 10, max 100)")),
	mcp.WithArray("tags", mcp.Description("Restrict results to notes carrying any of these tags")),
)

var backlinksToolDef = mcp.NewTool("vault_backlinks",
	mcp.WithDescription("List every note that links to the given note, with link text and type."),
	mcp.WithString("note", mcp.Required(), mcp.Description("Note slug or title")),
)

var connectionsToolDef = mcp.NewTool("vault_connections",
	mcp.WithDescription("Walk the outbound link graph from a note. Reports each reachable note once at its minimum hop distance."),
	mcp.WithString("note", mcp.Required(), mcp.Description("Note slug or title")),
	mcp.WithNumber("hops", mcp.Description("Traversal depth (default 2, max 3)")),
)

var hiddenToolDef = mcp.NewTool("vault_hidden",
	mcp.WithDescription("Find notes relevant to the query that share no direct link with the seed note. Surfaces connections the author never made explicit."),
	mcp.WithString("query", mcp.Required(), mcp.Description("Natural-language search query")),
	mcp.WithString("seed", mcp.Required(), mcp.Description("Note slug or title to check link distance from")),
	mcp.WithNumber("limit", mcp.Description("Maximum results (default 10)")),
	mcp.WithNumber("max_distance", mcp.Description("Cosine-distance ceiling (default 0.6)")),
)

var sharedTagsToolDef = mcp.NewTool("vault_shared_tags",
	mcp.WithDescription("List notes sharing tags with the given note, ordered by how many tags they share."),
	mcp.WithString("note", mcp.Required(), mcp.Description("Note slug or title")),
	mcp.WithNumber("min_shared", mcp.Description("Minimum shared tag count (default 2)")),
	mcp.WithNumber("limit", mcp.Description("Maximum results (default 20)")),
)

var boostedToolDef = mcp.NewTool("vault_boosted_search",
	mcp.WithDescription("Semantic search where results directly linked to the seed note get their score multiplied by the graph boost factor before re-ranking. The seed itself is excluded."),
	mcp.WithString("query", mcp.Required(), mcp.Description("Natural-language search query")),
	mcp.WithString("seed", mcp.Required(), mcp.Description("Note slug or title to check graph connectivity from")),
	mcp.WithNumber("limit", mcp.Description("Maximum results (default 10, max 100)")),
)

var sqlToolDef = mcp.NewTool("vault_sql",
	mcp.WithDescription("Run a read-only SQL query against the knowledge base. Only SELECT and WITH statements are accepted. Tables: notes, links, chunks, embeddings, hyperedges, hyperedge_members, meta."),
	mcp.WithString("query", mcp.Required(), mcp.Description("SQL statement beginning with SELECT or WITH")),
)

var statsToolDef = mcp.NewTool("vault_stats",
	mcp.WithDescription("Report knowledge-base size: note, link, chunk, embedding, and hyperedge counts plus ingestion metadata."),
)
