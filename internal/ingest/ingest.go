// Package ingest builds a knowledge base from an Obsidian vault: it
// scans markdown files, parses and chunks them, embeds the chunks, and
// writes everything to SQLite in a single rebuild pass.
package ingest

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/hpungsan/rhizome/internal/config"
	"github.com/hpungsan/rhizome/internal/db"
	"github.com/hpungsan/rhizome/internal/embed"
	"github.com/hpungsan/rhizome/internal/note"
	"github.com/oklog/ulid/v2"
)

// Summary reports what an ingestion run produced.
type Summary struct {
	RunID      string
	Notes      int
	Links      int
	Chunks     int
	Embeddings int
	Hyperedges int
	Skipped    int
	Elapsed    time.Duration
}

// Options configures an ingestion run.
type Options struct {
	// VaultPath is the root directory of the markdown vault.
	VaultPath string

	// Progress receives human-readable progress lines. Nil means silent.
	Progress io.Writer
}

// Run rebuilds the knowledge base from the vault. The store is dropped
// and recreated so an interrupted run never leaves a partially
// populated database behind the next successful one.
func Run(ctx context.Context, database *sql.DB, embedder embed.Embedder, cfg *config.Config, opts Options) (*Summary, error) {
	start := time.Now()
	progress := opts.Progress
	if progress == nil {
		progress = io.Discard
	}

	files, err := scanVault(opts.VaultPath)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(progress, "found %d markdown files in %s\n", len(files), opts.VaultPath)

	if err := db.Rebuild(database); err != nil {
		return nil, fmt.Errorf("rebuild store: %w", err)
	}

	summary := &Summary{}
	var (
		noteRecords  []db.NoteRecord
		links        []note.WikiLink
		chunkRecords []db.ChunkRecord
		chunkTexts   []string
		notes        []*note.Note
		slugCounts   = map[string]int{}
		usedSlugs    = map[string]bool{}
		noteIDs      = map[string]int64{}
	)

	nextNoteID := int64(1)
	nextChunkID := int64(1)
	for _, relPath := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(filepath.Join(opts.VaultPath, relPath))
		if err != nil {
			fmt.Fprintf(progress, "skipping %s: %v\n", relPath, err)
			summary.Skipped++
			continue
		}
		info, err := os.Stat(filepath.Join(opts.VaultPath, relPath))
		if err != nil {
			fmt.Fprintf(progress, "skipping %s: %v\n", relPath, err)
			summary.Skipped++
			continue
		}

		n, err := note.Parse(relPath, data, info.ModTime())
		if err != nil {
			fmt.Fprintf(progress, "skipping %s: %v\n", relPath, err)
			summary.Skipped++
			continue
		}
		n.Slug = uniqueSlug(n.Slug, slugCounts, usedSlugs)

		noteID := nextNoteID
		nextNoteID++
		noteIDs[n.Slug] = noteID
		notes = append(notes, n)
		noteRecords = append(noteRecords, db.NewNoteRecord(noteID, n))
		links = append(links, note.ExtractWikilinks(n.Content, n.Slug)...)

		for i, c := range note.ChunkMarkdown(n.Content, cfg.MaxChunkSize) {
			chunkRecords = append(chunkRecords, db.ChunkRecord{
				ChunkID:        nextChunkID,
				NoteID:         noteID,
				ChunkIndex:     i,
				Content:        c.Content,
				HeadingContext: c.HeadingContext,
				ChunkType:      string(c.ChunkType),
				StartLine:      c.StartLine,
				EndLine:        c.EndLine,
			})
			chunkTexts = append(chunkTexts, embed.PrepareChunkText(c.Content, c.HeadingContext, n.Title))
			nextChunkID++
		}
	}

	fmt.Fprintf(progress, "parsed %d notes (%d skipped), %d chunks\n", len(noteRecords), summary.Skipped, len(chunkRecords))

	fmt.Fprintf(progress, "embedding %d chunks with %s\n", len(chunkTexts), embedder.ModelName())
	vectors, err := embedder.EmbedBatch(ctx, chunkTexts)
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunkRecords) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunkRecords))
	}
	embeddings := make([]db.EmbeddingRecord, len(vectors))
	for i, vec := range vectors {
		embeddings[i] = db.EmbeddingRecord{
			ChunkID:   chunkRecords[i].ChunkID,
			Vector:    vec,
			ModelName: embedder.ModelName(),
		}
	}

	edges := BuildHyperedges(notes)
	edgeRecords := make([]db.HyperedgeRecord, len(edges))
	for i, e := range edges {
		rec := db.HyperedgeRecord{
			HyperedgeID: int64(i + 1),
			EdgeType:    string(e.EdgeType),
			EdgeValue:   e.EdgeValue,
		}
		for _, member := range e.Members {
			rec.NoteIDs = append(rec.NoteIDs, noteIDs[member])
		}
		edgeRecords[i] = rec
	}

	batch := cfg.CommitBatchSize
	if err := db.InsertNotes(database, noteRecords, batch); err != nil {
		return nil, fmt.Errorf("write notes: %w", err)
	}
	if err := db.InsertLinks(database, links, batch); err != nil {
		return nil, fmt.Errorf("write links: %w", err)
	}
	if err := db.InsertChunks(database, chunkRecords, batch); err != nil {
		return nil, fmt.Errorf("write chunks: %w", err)
	}
	if err := db.InsertEmbeddings(database, embeddings, batch); err != nil {
		return nil, fmt.Errorf("write embeddings: %w", err)
	}
	if err := db.InsertHyperedges(database, edgeRecords); err != nil {
		return nil, fmt.Errorf("write hyperedges: %w", err)
	}

	summary.RunID = newRunID()
	summary.Notes = len(noteRecords)
	summary.Links = len(links)
	summary.Chunks = len(chunkRecords)
	summary.Embeddings = len(embeddings)
	summary.Hyperedges = len(edgeRecords)
	summary.Elapsed = time.Since(start)

	meta := map[string]string{
		"run_id":          summary.RunID,
		"ingested_at":     time.Now().UTC().Format(time.RFC3339),
		"vault_path":      opts.VaultPath,
		"embed_model":     embedder.ModelName(),
		"embed_dimension": strconv.Itoa(embedder.Dimension()),
	}
	for k, v := range meta {
		if err := db.SetMeta(database, k, v); err != nil {
			return nil, fmt.Errorf("write meta: %w", err)
		}
	}

	fmt.Fprintf(progress, "ingested %d notes, %d links, %d chunks in %s\n",
		summary.Notes, summary.Links, summary.Chunks, summary.Elapsed.Round(time.Millisecond))
	return summary, nil
}

// scanVault collects markdown file paths relative to the vault root,
// sorted for deterministic ids across runs. Hidden directories
// (.obsidian, .git, ...) are skipped.
func scanVault(vaultPath string) ([]string, error) {
	info, err := os.Stat(vaultPath)
	if err != nil {
		return nil, fmt.Errorf("vault path: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("vault path %s is not a directory", vaultPath)
	}

	var files []string
	err = filepath.WalkDir(vaultPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != vaultPath && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.EqualFold(filepath.Ext(d.Name()), ".md") {
			return nil
		}
		rel, err := filepath.Rel(vaultPath, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan vault: %w", err)
	}
	sort.Strings(files)
	return files, nil
}

// uniqueSlug resolves slug collisions by appending -1, -2, ... in
// file-scan order. The suffixed form is itself checked against slugs
// already handed out.
func uniqueSlug(slug string, counts map[string]int, used map[string]bool) string {
	if !used[slug] {
		used[slug] = true
		return slug
	}
	for {
		counts[slug]++
		candidate := fmt.Sprintf("%s-%d", slug, counts[slug])
		if !used[candidate] {
			used[candidate] = true
			return candidate
		}
	}
}

func newRunID() string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return ulid.Make().String()
	}
	return id.String()
}
