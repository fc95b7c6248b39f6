package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hpungsan/rhizome/internal/note"
)

// DefaultCommitBatchSize is how many rows a bulk writer inserts per
// transaction when the config does not override it.
const DefaultCommitBatchSize = 1000

// NoteRecord is a note row ready for insertion.
type NoteRecord struct {
	NoteID       int64
	FilePath     string
	Slug         string
	Title        string
	Content      string
	Frontmatter  map[string]any
	Tags         []string
	Aliases      []string
	CreatedDate  *time.Time
	ModifiedDate time.Time
	WordCount    int
}

// NewNoteRecord builds a NoteRecord from a parsed note, assigning the
// given row id.
func NewNoteRecord(id int64, n *note.Note) NoteRecord {
	return NoteRecord{
		NoteID:       id,
		FilePath:     n.FilePath,
		Slug:         n.Slug,
		Title:        n.Title,
		Content:      n.Content,
		Frontmatter:  n.Frontmatter,
		Tags:         n.Tags,
		Aliases:      n.Aliases,
		CreatedDate:  n.CreatedDate,
		ModifiedDate: n.ModifiedDate,
		WordCount:    n.WordCount,
	}
}

// ChunkRecord is a chunk row ready for insertion.
type ChunkRecord struct {
	ChunkID        int64
	NoteID         int64
	ChunkIndex     int
	Content        string
	HeadingContext string
	ChunkType      string
	StartLine      int
	EndLine        int
}

// EmbeddingRecord pairs a chunk with its vector.
type EmbeddingRecord struct {
	ChunkID   int64
	Vector    []float32
	ModelName string
}

// HyperedgeRecord is a hyperedge plus its member note ids.
type HyperedgeRecord struct {
	HyperedgeID int64
	EdgeType    string
	EdgeValue   string
	NoteIDs     []int64
}

// insertGrouped runs insert over items, committing a transaction every
// batchSize rows. A short final group is committed as-is.
func insertGrouped[T any](db *sql.DB, items []T, batchSize int, query string, args func(T) []any) error {
	if batchSize <= 0 {
		batchSize = DefaultCommitBatchSize
	}
	for start := 0; start < len(items); start += batchSize {
		end := start + batchSize
		if end > len(items) {
			end = len(items)
		}
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		stmt, err := tx.Prepare(query)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("prepare insert: %w", err)
		}
		for _, item := range items[start:end] {
			if _, err := stmt.Exec(args(item)...); err != nil {
				stmt.Close()
				tx.Rollback()
				return fmt.Errorf("insert row: %w", err)
			}
		}
		stmt.Close()
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit batch: %w", err)
		}
	}
	return nil
}

// InsertNotes bulk-inserts note rows in grouped transactions.
func InsertNotes(db *sql.DB, notes []NoteRecord, batchSize int) error {
	query := `INSERT INTO notes
		(note_id, file_path, slug, title, content, frontmatter_json, tags_json, aliases_json, created_date, modified_date, word_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	return insertGrouped(db, notes, batchSize, query, func(n NoteRecord) []any {
		var created any
		if n.CreatedDate != nil {
			created = n.CreatedDate.Format("2006-01-02")
		}
		return []any{
			n.NoteID, n.FilePath, n.Slug, n.Title, n.Content,
			mustJSON(n.Frontmatter), mustJSON(n.Tags), mustJSON(n.Aliases),
			created, n.ModifiedDate.Unix(), n.WordCount,
		}
	})
}

// InsertLinks bulk-inserts link rows in grouped transactions.
func InsertLinks(db *sql.DB, links []note.WikiLink, batchSize int) error {
	query := `INSERT INTO links (source_slug, target_slug, link_text, link_type) VALUES (?, ?, ?, ?)`
	return insertGrouped(db, links, batchSize, query, func(l note.WikiLink) []any {
		return []any{l.SourceSlug, l.TargetSlug, l.LinkText, string(l.LinkType)}
	})
}

// InsertChunks bulk-inserts chunk rows in grouped transactions.
func InsertChunks(db *sql.DB, chunks []ChunkRecord, batchSize int) error {
	query := `INSERT INTO chunks
		(chunk_id, note_id, chunk_index, content, heading_context, chunk_type, start_line, end_line)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	return insertGrouped(db, chunks, batchSize, query, func(c ChunkRecord) []any {
		return []any{c.ChunkID, c.NoteID, c.ChunkIndex, c.Content, c.HeadingContext, c.ChunkType, c.StartLine, c.EndLine}
	})
}

// InsertEmbeddings bulk-inserts embedding rows in grouped transactions.
func InsertEmbeddings(db *sql.DB, embeddings []EmbeddingRecord, batchSize int) error {
	query := `INSERT INTO embeddings (chunk_id, vector, model_name) VALUES (?, ?, ?)`
	return insertGrouped(db, embeddings, batchSize, query, func(e EmbeddingRecord) []any {
		return []any{e.ChunkID, EncodeVector(e.Vector), e.ModelName}
	})
}

// InsertHyperedges inserts hyperedges and their memberships. Edges are
// few relative to notes, so each edge and its members share one
// transaction.
func InsertHyperedges(db *sql.DB, edges []HyperedgeRecord) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	edgeStmt, err := tx.Prepare(`INSERT INTO hyperedges (hyperedge_id, edge_type, edge_value) VALUES (?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare hyperedge insert: %w", err)
	}
	memberStmt, err := tx.Prepare(`INSERT INTO hyperedge_members (hyperedge_id, note_id) VALUES (?, ?)`)
	if err != nil {
		edgeStmt.Close()
		tx.Rollback()
		return fmt.Errorf("prepare member insert: %w", err)
	}
	for _, e := range edges {
		if _, err := edgeStmt.Exec(e.HyperedgeID, e.EdgeType, e.EdgeValue); err != nil {
			edgeStmt.Close()
			memberStmt.Close()
			tx.Rollback()
			return fmt.Errorf("insert hyperedge: %w", err)
		}
		for _, noteID := range e.NoteIDs {
			if _, err := memberStmt.Exec(e.HyperedgeID, noteID); err != nil {
				edgeStmt.Close()
				memberStmt.Close()
				tx.Rollback()
				return fmt.Errorf("insert hyperedge member: %w", err)
			}
		}
	}
	edgeStmt.Close()
	memberStmt.Close()
	return tx.Commit()
}

func mustJSON(v any) string {
	if v == nil {
		return "null"
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}
