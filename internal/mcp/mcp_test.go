package mcp

import (
	"context"
	"database/sql"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/rhizome/internal/config"
	"github.com/hpungsan/rhizome/internal/db"
	"github.com/hpungsan/rhizome/internal/note"
)

// fakeEmbedder returns a fixed vector for any text.
type fakeEmbedder struct{}

func (fakeEmbedder) ModelName() string { return "fake-model" }
func (fakeEmbedder) Dimension() int    { return 2 }

func (fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0}, nil
}

func (f fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

// testSetup creates a seeded database and handlers for testing.
func testSetup(t *testing.T) *Handlers {
	t.Helper()

	database, err := db.Init(filepath.Join(t.TempDir(), "vault.db"))
	if err != nil {
		t.Fatalf("failed to init db: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	seed(t, database)

	return NewHandlers(database, fakeEmbedder{}, config.DefaultConfig())
}

func seed(t *testing.T, database *sql.DB) {
	t.Helper()
	notes := []db.NoteRecord{
		{NoteID: 1, FilePath: "Alpha.md", Slug: "alpha", Title: "Alpha", Content: "# Alpha",
			Tags: []string{"go"}, ModifiedDate: time.Now(), WordCount: 2},
		{NoteID: 2, FilePath: "Beta.md", Slug: "beta", Title: "Beta", Content: "# Beta",
			Tags: []string{"go"}, ModifiedDate: time.Now(), WordCount: 2},
		{NoteID: 3, FilePath: "Gamma.md", Slug: "gamma", Title: "Gamma", Content: "# Gamma",
			Tags: []string{"go"}, ModifiedDate: time.Now(), WordCount: 2},
	}
	if err := db.InsertNotes(database, notes, 0); err != nil {
		t.Fatalf("InsertNotes() error = %v", err)
	}
	links := []note.WikiLink{
		{SourceSlug: "alpha", TargetSlug: "beta", LinkText: "Beta", LinkType: note.LinkTypeWikilink},
	}
	if err := db.InsertLinks(database, links, 0); err != nil {
		t.Fatalf("InsertLinks() error = %v", err)
	}
	chunks := []db.ChunkRecord{
		{ChunkID: 1, NoteID: 1, ChunkIndex: 0, Content: "alpha body", ChunkType: "paragraph"},
		{ChunkID: 2, NoteID: 2, ChunkIndex: 0, Content: "beta body", ChunkType: "paragraph"},
		{ChunkID: 3, NoteID: 3, ChunkIndex: 0, Content: "gamma body", ChunkType: "paragraph"},
	}
	if err := db.InsertChunks(database, chunks, 0); err != nil {
		t.Fatalf("InsertChunks() error = %v", err)
	}
	embeddings := []db.EmbeddingRecord{
		{ChunkID: 1, Vector: []float32{1, 0}, ModelName: "fake-model"},
		{ChunkID: 2, Vector: []float32{0, 1}, ModelName: "fake-model"},
		{ChunkID: 3, Vector: []float32{0.6, 0.8}, ModelName: "fake-model"},
	}
	if err := db.InsertEmbeddings(database, embeddings, 0); err != nil {
		t.Fatalf("InsertEmbeddings() error = %v", err)
	}
}

// makeRequest creates a CallToolRequest with the given arguments.
func makeRequest(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
}

// resultPayload unmarshals the first text content of a result.
func resultPayload(t *testing.T, res *mcp.CallToolResult) map[string]any {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatal("result has no content")
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T, want TextContent", res.Content[0])
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(text.Text), &payload); err != nil {
		t.Fatalf("unmarshal result: %v (%s)", err, text.Text)
	}
	return payload
}

func TestHandleSearch(t *testing.T) {
	h := testSetup(t)

	res, err := h.HandleSearch(context.Background(), makeRequest(map[string]any{"query": "alpha"}))
	if err != nil {
		t.Fatalf("HandleSearch() error = %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected error result: %+v", res)
	}
	payload := resultPayload(t, res)
	results, ok := payload["results"].([]any)
	if !ok || len(results) != 3 {
		t.Fatalf("results = %+v", payload["results"])
	}
	top := results[0].(map[string]any)
	if top["slug"] != "alpha" {
		t.Errorf("top slug = %v, want alpha", top["slug"])
	}
}

func TestHandleSearch_MissingQuery(t *testing.T) {
	h := testSetup(t)

	res, err := h.HandleSearch(context.Background(), makeRequest(map[string]any{}))
	if err != nil {
		t.Fatalf("HandleSearch() error = %v", err)
	}
	if !res.IsError {
		t.Fatal("expected error result")
	}
	payload := resultPayload(t, res)
	errObj := payload["error"].(map[string]any)
	if errObj["code"] != "INVALID_REQUEST" {
		t.Errorf("code = %v, want INVALID_REQUEST", errObj["code"])
	}
}

func TestHandleBacklinks(t *testing.T) {
	h := testSetup(t)

	res, err := h.HandleBacklinks(context.Background(), makeRequest(map[string]any{"note": "beta"}))
	if err != nil {
		t.Fatalf("HandleBacklinks() error = %v", err)
	}
	payload := resultPayload(t, res)
	backlinks := payload["backlinks"].([]any)
	if len(backlinks) != 1 {
		t.Fatalf("backlinks = %+v", backlinks)
	}
	if backlinks[0].(map[string]any)["source_slug"] != "alpha" {
		t.Errorf("backlink = %+v", backlinks[0])
	}
}

func TestHandleBacklinks_NotFound(t *testing.T) {
	h := testSetup(t)

	res, err := h.HandleBacklinks(context.Background(), makeRequest(map[string]any{"note": "nonexistent"}))
	if err != nil {
		t.Fatalf("HandleBacklinks() error = %v", err)
	}
	if !res.IsError {
		t.Fatal("expected error result")
	}
	payload := resultPayload(t, res)
	errObj := payload["error"].(map[string]any)
	if errObj["code"] != "NOT_FOUND" {
		t.Errorf("code = %v, want NOT_FOUND", errObj["code"])
	}
	if errObj["status"] != float64(404) {
		t.Errorf("status = %v, want 404", errObj["status"])
	}
}

func TestHandleConnections(t *testing.T) {
	h := testSetup(t)

	res, err := h.HandleConnections(context.Background(), makeRequest(map[string]any{"note": "alpha"}))
	if err != nil {
		t.Fatalf("HandleConnections() error = %v", err)
	}
	payload := resultPayload(t, res)
	conns := payload["connections"].([]any)
	if len(conns) != 1 || conns[0].(map[string]any)["slug"] != "beta" {
		t.Errorf("connections = %+v", conns)
	}
}

func TestHandleHidden(t *testing.T) {
	h := testSetup(t)

	res, err := h.HandleHidden(context.Background(), makeRequest(map[string]any{
		"query": "unrelated topic",
		"seed":  "alpha",
	}))
	if err != nil {
		t.Fatalf("HandleHidden() error = %v", err)
	}
	payload := resultPayload(t, res)
	conns := payload["connections"].([]any)
	// beta is a direct neighbor of the seed; only gamma qualifies,
	// at distance 1 - 0.6 = 0.4 from the query vector.
	if len(conns) != 1 || conns[0].(map[string]any)["slug"] != "gamma" {
		t.Fatalf("connections = %+v", conns)
	}
}

func TestHandleHidden_MissingQuery(t *testing.T) {
	h := testSetup(t)

	res, err := h.HandleHidden(context.Background(), makeRequest(map[string]any{"seed": "alpha"}))
	if err != nil {
		t.Fatalf("HandleHidden() error = %v", err)
	}
	if !res.IsError {
		t.Fatal("expected error result")
	}
	payload := resultPayload(t, res)
	errObj := payload["error"].(map[string]any)
	if errObj["code"] != "INVALID_REQUEST" {
		t.Errorf("code = %v, want INVALID_REQUEST", errObj["code"])
	}
}

func TestHandleBoosted(t *testing.T) {
	h := testSetup(t)

	res, err := h.HandleBoosted(context.Background(), makeRequest(map[string]any{
		"query": "anything",
		"seed":  "alpha",
	}))
	if err != nil {
		t.Fatalf("HandleBoosted() error = %v", err)
	}
	payload := resultPayload(t, res)
	results := payload["results"].([]any)
	if len(results) != 2 {
		t.Fatalf("results = %+v", results)
	}
	for _, r := range results {
		if r.(map[string]any)["slug"] == "alpha" {
			t.Fatal("seed appeared in results")
		}
	}
	// gamma has no link to the seed, beta does: only beta gets the flag.
	top := results[0].(map[string]any)
	if top["slug"] != "gamma" || top["graph_boosted"] != false {
		t.Errorf("top result = %+v, want unboosted gamma", top)
	}
	second := results[1].(map[string]any)
	if second["slug"] != "beta" || second["graph_boosted"] != true {
		t.Errorf("second result = %+v, want boosted beta", second)
	}
}

func TestHandleSQL(t *testing.T) {
	h := testSetup(t)

	res, err := h.HandleSQL(context.Background(), makeRequest(map[string]any{
		"query": "SELECT COUNT(*) AS n FROM notes",
	}))
	if err != nil {
		t.Fatalf("HandleSQL() error = %v", err)
	}
	payload := resultPayload(t, res)
	rows := payload["rows"].([]any)
	if len(rows) != 1 {
		t.Fatalf("rows = %+v", rows)
	}
}

func TestHandleSQL_RejectsWrites(t *testing.T) {
	h := testSetup(t)

	res, err := h.HandleSQL(context.Background(), makeRequest(map[string]any{
		"query": "DELETE FROM notes",
	}))
	if err != nil {
		t.Fatalf("HandleSQL() error = %v", err)
	}
	if !res.IsError {
		t.Fatal("expected error result for a write statement")
	}
	payload := resultPayload(t, res)
	errObj := payload["error"].(map[string]any)
	if errObj["code"] != "INVALID_QUERY" {
		t.Errorf("code = %v, want INVALID_QUERY", errObj["code"])
	}
}

func TestHandleStats(t *testing.T) {
	h := testSetup(t)

	res, err := h.HandleStats(context.Background(), makeRequest(nil))
	if err != nil {
		t.Fatalf("HandleStats() error = %v", err)
	}
	payload := resultPayload(t, res)
	if payload["notes"] != float64(3) {
		t.Errorf("notes = %v, want 3", payload["notes"])
	}
}

func TestAllToolNames(t *testing.T) {
	names := AllToolNames()
	if len(names) != len(toolRegistry) {
		t.Fatalf("len = %d, want %d", len(names), len(toolRegistry))
	}
	for _, want := range []string{"vault_search", "vault_sql", "vault_stats"} {
		found := false
		for _, n := range names {
			if n == want {
				found = true
			}
		}
		if !found {
			t.Errorf("missing tool %s", want)
		}
	}
}

func TestValidateDisabledTools(t *testing.T) {
	unknown := ValidateDisabledTools([]string{"vault_search", "bogus_tool"})
	if len(unknown) != 1 || unknown[0] != "bogus_tool" {
		t.Errorf("unknown = %v", unknown)
	}
}
