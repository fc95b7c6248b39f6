package ops

import (
	"context"
	"database/sql"
	"math"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hpungsan/rhizome/internal/db"
	"github.com/hpungsan/rhizome/internal/errors"
	"github.com/hpungsan/rhizome/internal/note"
)

// fakeEmbedder maps known query strings to fixed 2-dimensional
// vectors so expected rankings can be computed by hand.
type fakeEmbedder struct {
	vectors map[string][]float32
}

func (f *fakeEmbedder) ModelName() string { return "fake-model" }
func (f *fakeEmbedder) Dimension() int    { return 2 }

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return []float32{1, 0}, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := f.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// seedStore builds a vault with a known graph:
//
//	alpha -> beta -> gamma -> alpha
//	alpha -> delta
//	omega is unlinked
//
// Chunk vectors: alpha (1,0), beta (0.9,0.1), gamma (0,1),
// omega (0.8,0.6). delta has no chunks.
func seedStore(t *testing.T) *sql.DB {
	t.Helper()
	database, err := db.Init(filepath.Join(t.TempDir(), "vault.db"))
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	t.Cleanup(func() { database.Close() })

	mkNote := func(id int64, slug, title string, tags []string) db.NoteRecord {
		return db.NoteRecord{
			NoteID:       id,
			FilePath:     slug + ".md",
			Slug:         slug,
			Title:        title,
			Content:      "# " + title,
			Tags:         tags,
			ModifiedDate: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
			WordCount:    2,
		}
	}
	notes := []db.NoteRecord{
		mkNote(1, "alpha", "Alpha", []string{"go", "testing"}),
		mkNote(2, "beta", "Beta", []string{"go"}),
		mkNote(3, "gamma", "Gamma", []string{"testing", "zettelkasten"}),
		mkNote(4, "delta", "Delta", nil),
		mkNote(5, "omega", "Omega", []string{"go", "testing"}),
	}
	if err := db.InsertNotes(database, notes, 0); err != nil {
		t.Fatalf("InsertNotes() error = %v", err)
	}

	links := []note.WikiLink{
		{SourceSlug: "alpha", TargetSlug: "beta", LinkText: "Beta", LinkType: note.LinkTypeWikilink},
		{SourceSlug: "alpha", TargetSlug: "delta", LinkText: "Delta", LinkType: note.LinkTypeWikilink},
		{SourceSlug: "beta", TargetSlug: "gamma", LinkText: "Gamma", LinkType: note.LinkTypeWikilink},
		{SourceSlug: "gamma", TargetSlug: "alpha", LinkText: "Alpha", LinkType: note.LinkTypeOrigin},
	}
	if err := db.InsertLinks(database, links, 0); err != nil {
		t.Fatalf("InsertLinks() error = %v", err)
	}

	chunks := []db.ChunkRecord{
		{ChunkID: 1, NoteID: 1, ChunkIndex: 0, Content: "alpha body", HeadingContext: "Alpha", ChunkType: "paragraph"},
		{ChunkID: 2, NoteID: 2, ChunkIndex: 0, Content: "beta body", HeadingContext: "Beta", ChunkType: "paragraph"},
		{ChunkID: 3, NoteID: 3, ChunkIndex: 0, Content: "gamma body", HeadingContext: "Gamma", ChunkType: "paragraph"},
		{ChunkID: 4, NoteID: 5, ChunkIndex: 0, Content: "omega body", HeadingContext: "Omega", ChunkType: "paragraph"},
	}
	if err := db.InsertChunks(database, chunks, 0); err != nil {
		t.Fatalf("InsertChunks() error = %v", err)
	}

	embeddings := []db.EmbeddingRecord{
		{ChunkID: 1, Vector: []float32{1, 0}, ModelName: "fake-model"},
		{ChunkID: 2, Vector: []float32{0.9, 0.1}, ModelName: "fake-model"},
		{ChunkID: 3, Vector: []float32{0, 1}, ModelName: "fake-model"},
		{ChunkID: 4, Vector: []float32{0.8, 0.6}, ModelName: "fake-model"},
	}
	if err := db.InsertEmbeddings(database, embeddings, 0); err != nil {
		t.Fatalf("InsertEmbeddings() error = %v", err)
	}

	edges := []db.HyperedgeRecord{
		{HyperedgeID: 1, EdgeType: "tag", EdgeValue: "go", NoteIDs: []int64{1, 2, 5}},
		{HyperedgeID: 2, EdgeType: "tag", EdgeValue: "testing", NoteIDs: []int64{1, 3, 5}},
		{HyperedgeID: 3, EdgeType: "tag", EdgeValue: "zettelkasten", NoteIDs: []int64{3}},
	}
	if err := db.InsertHyperedges(database, edges); err != nil {
		t.Fatalf("InsertHyperedges() error = %v", err)
	}

	return database
}

func TestSearch(t *testing.T) {
	database := seedStore(t)
	embedder := &fakeEmbedder{vectors: map[string][]float32{"alpha things": {1, 0}}}

	out, err := Search(context.Background(), database, embedder, SearchInput{Query: "alpha things"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(out.Results) != 4 {
		t.Fatalf("results = %+v", out.Results)
	}
	if out.Results[0].Slug != "alpha" {
		t.Errorf("top result = %q, want alpha", out.Results[0].Slug)
	}
	if math.Abs(out.Results[0].Similarity-1) > 1e-6 {
		t.Errorf("top similarity = %v, want 1", out.Results[0].Similarity)
	}
}

func TestSearch_EmptyQuery(t *testing.T) {
	database := seedStore(t)

	_, err := Search(context.Background(), database, &fakeEmbedder{}, SearchInput{Query: "  "})
	if !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("error = %v, want INVALID_REQUEST", err)
	}
}

func TestSearch_LimitAndTags(t *testing.T) {
	database := seedStore(t)
	embedder := &fakeEmbedder{vectors: map[string][]float32{"q": {1, 0}}}

	out, err := Search(context.Background(), database, embedder, SearchInput{Query: "q", Limit: 2, Tags: []string{"testing"}})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(out.Results) != 2 {
		t.Fatalf("results = %+v", out.Results)
	}
	for _, r := range out.Results {
		if r.Slug == "beta" {
			t.Error("beta lacks the testing tag")
		}
	}
}

func TestBacklinks(t *testing.T) {
	database := seedStore(t)

	out, err := Backlinks(database, BacklinksInput{Note: "alpha"})
	if err != nil {
		t.Fatalf("Backlinks() error = %v", err)
	}
	if len(out.Backlinks) != 1 || out.Backlinks[0].SourceSlug != "gamma" {
		t.Errorf("backlinks = %+v", out.Backlinks)
	}
	if out.Backlinks[0].LinkType != "origin" {
		t.Errorf("link type = %q", out.Backlinks[0].LinkType)
	}
}

func TestBacklinks_ByTitle(t *testing.T) {
	database := seedStore(t)

	out, err := Backlinks(database, BacklinksInput{Note: "Alpha"})
	if err != nil {
		t.Fatalf("Backlinks() by title error = %v", err)
	}
	if out.Slug != "alpha" {
		t.Errorf("resolved slug = %q", out.Slug)
	}
}

func TestBacklinks_NotFound(t *testing.T) {
	database := seedStore(t)

	_, err := Backlinks(database, BacklinksInput{Note: "missing"})
	if !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("error = %v, want NOT_FOUND", err)
	}
}

func TestConnections(t *testing.T) {
	database := seedStore(t)

	out, err := Connections(database, ConnectionsInput{Note: "alpha", Hops: 2})
	if err != nil {
		t.Fatalf("Connections() error = %v", err)
	}
	want := []Connection{
		{Slug: "beta", Title: "Beta", Hop: 1},
		{Slug: "delta", Title: "Delta", Hop: 1},
		{Slug: "gamma", Title: "Gamma", Hop: 2},
	}
	if len(out.Connections) != len(want) {
		t.Fatalf("connections = %+v", out.Connections)
	}
	for i := range want {
		if out.Connections[i] != want[i] {
			t.Errorf("connections[%d] = %+v, want %+v", i, out.Connections[i], want[i])
		}
	}
}

func TestConnections_HopClamp(t *testing.T) {
	database := seedStore(t)

	out, err := Connections(database, ConnectionsInput{Note: "alpha", Hops: 99})
	if err != nil {
		t.Fatalf("Connections() error = %v", err)
	}
	if out.Hops != MaxHops {
		t.Errorf("hops = %d, want %d", out.Hops, MaxHops)
	}

	out, err = Connections(database, ConnectionsInput{Note: "alpha"})
	if err != nil {
		t.Fatalf("Connections() error = %v", err)
	}
	if out.Hops != DefaultHops {
		t.Errorf("default hops = %d, want %d", out.Hops, DefaultHops)
	}
}

func TestHiddenConnections(t *testing.T) {
	database := seedStore(t)
	embedder := &fakeEmbedder{vectors: map[string][]float32{"q": {1, 0}}}

	out, err := HiddenConnections(context.Background(), database, embedder, HiddenInput{Query: "q", Seed: "alpha"}, 0.6)
	if err != nil {
		t.Fatalf("HiddenConnections() error = %v", err)
	}
	// beta, gamma, delta are direct neighbors of the seed; only omega
	// qualifies, at distance 1 - 0.8 = 0.2 from the query vector.
	if len(out.Connections) != 1 || out.Connections[0].Slug != "omega" {
		t.Fatalf("connections = %+v", out.Connections)
	}
	if math.Abs(out.Connections[0].Distance-0.2) > 1e-6 {
		t.Errorf("distance = %v, want 0.2", out.Connections[0].Distance)
	}
}

func TestHiddenConnections_QueryDrivesRanking(t *testing.T) {
	database := seedStore(t)
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"near": {1, 0},
		"far":  {0, 1},
	}}

	near, err := HiddenConnections(context.Background(), database, embedder, HiddenInput{Query: "near", Seed: "alpha"}, 0.6)
	if err != nil {
		t.Fatalf("HiddenConnections() error = %v", err)
	}
	far, err := HiddenConnections(context.Background(), database, embedder, HiddenInput{Query: "far", Seed: "alpha"}, 0.6)
	if err != nil {
		t.Fatalf("HiddenConnections() error = %v", err)
	}
	// Same seed, different query text: omega sits at 0.2 from (1,0)
	// but 0.4 from (0,1). The ranking must follow the query.
	if len(near.Connections) != 1 || len(far.Connections) != 1 {
		t.Fatalf("near = %+v, far = %+v", near.Connections, far.Connections)
	}
	if math.Abs(near.Connections[0].Distance-0.2) > 1e-6 {
		t.Errorf("near distance = %v, want 0.2", near.Connections[0].Distance)
	}
	if math.Abs(far.Connections[0].Distance-0.4) > 1e-6 {
		t.Errorf("far distance = %v, want 0.4", far.Connections[0].Distance)
	}
}

func TestHiddenConnections_Threshold(t *testing.T) {
	database := seedStore(t)
	embedder := &fakeEmbedder{vectors: map[string][]float32{"q": {1, 0}}}

	out, err := HiddenConnections(context.Background(), database, embedder, HiddenInput{Query: "q", Seed: "alpha", MaxDistance: 0.1}, 0.6)
	if err != nil {
		t.Fatalf("HiddenConnections() error = %v", err)
	}
	if len(out.Connections) != 0 {
		t.Errorf("connections = %+v, want none under a 0.1 ceiling", out.Connections)
	}
}

func TestHiddenConnections_EmptyQuery(t *testing.T) {
	database := seedStore(t)

	_, err := HiddenConnections(context.Background(), database, &fakeEmbedder{}, HiddenInput{Seed: "alpha"}, 0.6)
	if !errors.Is(err, errors.ErrInvalidRequest) {
		t.Fatalf("err = %v, want INVALID_REQUEST", err)
	}
}

func TestSharedTags(t *testing.T) {
	database := seedStore(t)

	// Default min_shared is 2: only omega shares both of alpha's tags.
	out, err := SharedTags(database, SharedTagsInput{Note: "alpha"})
	if err != nil {
		t.Fatalf("SharedTags() error = %v", err)
	}
	if out.MinShared != DefaultMinShared {
		t.Errorf("MinShared = %d, want %d", out.MinShared, DefaultMinShared)
	}
	if len(out.Notes) != 1 || out.Notes[0].Slug != "omega" || out.Notes[0].SharedCount != 2 {
		t.Errorf("notes = %+v", out.Notes)
	}

	out, err = SharedTags(database, SharedTagsInput{Note: "alpha", MinShared: 1})
	if err != nil {
		t.Fatalf("SharedTags() error = %v", err)
	}
	if len(out.Notes) != 3 || out.Notes[0].Slug != "omega" {
		t.Errorf("min_shared=1 notes = %+v", out.Notes)
	}
}

func TestSharedTags_Limit(t *testing.T) {
	database := seedStore(t)

	out, err := SharedTags(database, SharedTagsInput{Note: "alpha", MinShared: 1, Limit: 1})
	if err != nil {
		t.Fatalf("SharedTags() error = %v", err)
	}
	if len(out.Notes) != 1 || out.Notes[0].Slug != "omega" {
		t.Errorf("notes = %+v, want only the top row", out.Notes)
	}
}

func TestBoostedSearch(t *testing.T) {
	database := seedStore(t)
	embedder := &fakeEmbedder{vectors: map[string][]float32{"q": {0.5, 0.866}}}

	out, err := BoostedSearch(context.Background(), database, embedder, BoostedInput{Query: "q", Seed: "alpha"}, 1.2)
	if err != nil {
		t.Fatalf("BoostedSearch() error = %v", err)
	}
	if len(out.Results) != 3 {
		t.Fatalf("results = %+v", out.Results)
	}
	// Raw ranking puts unlinked omega (0.92) above gamma (0.87); the
	// 1.2x boost for alpha's neighbors lifts gamma to the top.
	if out.Results[0].Slug != "gamma" || !out.Results[0].GraphBoosted {
		t.Errorf("top result = %+v, want boosted gamma", out.Results[0])
	}
	if out.Results[1].Slug != "omega" || out.Results[1].GraphBoosted {
		t.Errorf("second result = %+v, want unboosted omega", out.Results[1])
	}
	if out.Results[2].Slug != "beta" || !out.Results[2].GraphBoosted {
		t.Errorf("third result = %+v, want boosted beta", out.Results[2])
	}
	if out.Results[0].Score <= out.Results[0].Similarity {
		t.Error("boosted score should exceed raw similarity")
	}
}

func TestBoostedSearch_SeedExcluded(t *testing.T) {
	database := seedStore(t)
	// Query vector identical to alpha's chunk: the seed would be the
	// best raw match, and must still be dropped.
	embedder := &fakeEmbedder{vectors: map[string][]float32{"q": {1, 0}}}

	out, err := BoostedSearch(context.Background(), database, embedder, BoostedInput{Query: "q", Seed: "alpha"}, 1.2)
	if err != nil {
		t.Fatalf("BoostedSearch() error = %v", err)
	}
	for _, r := range out.Results {
		if r.Slug == "alpha" {
			t.Fatalf("seed appeared in results: %+v", out.Results)
		}
	}
	// omega is not linked to alpha, so its score stays raw even though
	// beta and gamma in the same pool are boosted.
	for _, r := range out.Results {
		if r.Slug == "omega" && r.GraphBoosted {
			t.Error("omega is not a neighbor of the seed")
		}
	}
}

func TestBoostedSearch_MissingSeed(t *testing.T) {
	database := seedStore(t)

	_, err := BoostedSearch(context.Background(), database, &fakeEmbedder{}, BoostedInput{Query: "q"}, 1.2)
	if !errors.Is(err, errors.ErrInvalidRequest) {
		t.Fatalf("err = %v, want INVALID_REQUEST", err)
	}

	_, err = BoostedSearch(context.Background(), database, &fakeEmbedder{}, BoostedInput{Query: "q", Seed: "ghost"}, 1.2)
	if !errors.Is(err, errors.ErrNotFound) {
		t.Fatalf("err = %v, want NOT_FOUND", err)
	}
}

func TestRawSQL(t *testing.T) {
	database := seedStore(t)

	out, err := RawSQL(database, RawSQLInput{Query: "SELECT slug FROM notes ORDER BY slug LIMIT 2"})
	if err != nil {
		t.Fatalf("RawSQL() error = %v", err)
	}
	if len(out.Rows) != 2 || out.Rows[0][0] != "alpha" {
		t.Errorf("rows = %+v", out.Rows)
	}

	table := out.FormatTable()
	if !strings.Contains(table, "slug") || !strings.Contains(table, "alpha") {
		t.Errorf("table = %q", table)
	}
}

func TestRawSQL_RejectsWrites(t *testing.T) {
	database := seedStore(t)

	for _, query := range []string{
		"DELETE FROM notes",
		"INSERT INTO meta VALUES ('a', 'b')",
		"DROP TABLE notes",
		"UPDATE notes SET title = 'x'",
		"PRAGMA user_version=9",
	} {
		_, err := RawSQL(database, RawSQLInput{Query: query})
		if !errors.Is(err, errors.ErrInvalidQuery) {
			t.Errorf("RawSQL(%q) error = %v, want INVALID_QUERY", query, err)
		}
	}

	// The gate is syntactic, not keyword-blocking: a WITH statement
	// that only reads is fine.
	out, err := RawSQL(database, RawSQLInput{Query: "WITH c AS (SELECT COUNT(*) AS n FROM notes) SELECT n FROM c"})
	if err != nil {
		t.Fatalf("RawSQL(WITH) error = %v", err)
	}
	if len(out.Rows) != 1 || out.Rows[0][0] != "5" {
		t.Errorf("rows = %+v", out.Rows)
	}
}

func TestStats(t *testing.T) {
	database := seedStore(t)
	if err := db.SetMeta(database, "embed_model", "fake-model"); err != nil {
		t.Fatalf("SetMeta() error = %v", err)
	}

	out, err := Stats(database)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if out.Notes != 5 || out.Links != 4 || out.Chunks != 4 {
		t.Errorf("stats = %+v", out)
	}
	if out.EmbedModel != "fake-model" {
		t.Errorf("embed model = %q", out.EmbedModel)
	}
}

func TestIngest_EmptyVaultPath(t *testing.T) {
	database := seedStore(t)

	_, err := Ingest(context.Background(), database, &fakeEmbedder{}, nil, IngestInput{})
	if !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("error = %v, want INVALID_REQUEST", err)
	}
}
