package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// NoteSummary is a lightweight note row for listings.
type NoteSummary struct {
	Slug      string
	Title     string
	FilePath  string
	WordCount int
	Tags      []string
}

// NoteDetail is a full note row.
type NoteDetail struct {
	NoteID       int64
	Slug         string
	Title        string
	FilePath     string
	Content      string
	Tags         []string
	Aliases      []string
	CreatedDate  string
	ModifiedDate time.Time
	WordCount    int
}

// SemanticMatch is one ranked result of a vector search.
type SemanticMatch struct {
	Slug       string
	Title      string
	FilePath   string
	Content    string
	Heading    string
	Similarity float64
}

// BacklinkRow is one inbound link to a note.
type BacklinkRow struct {
	SourceSlug  string
	SourceTitle string
	LinkText    string
	LinkType    string
}

// ConnectionRow is a note reachable through the link graph.
type ConnectionRow struct {
	Slug  string
	Title string
	Hop   int
}

// NoteSimilarity is a per-note best similarity against a set of seed
// vectors.
type NoteSimilarity struct {
	Slug       string
	Title      string
	Similarity float64
}

// SharedTagRow is a note sharing tag hyperedges with another.
type SharedTagRow struct {
	Slug        string
	Title       string
	SharedCount int
	Tags        []string
}

// RawResult holds the columns and stringified rows of an arbitrary
// read-only query.
type RawResult struct {
	Columns []string
	Rows    [][]string
}

// StoreStats summarizes the size of the knowledge base.
type StoreStats struct {
	Notes      int
	Links      int
	Chunks     int
	Embeddings int
	Hyperedges int
	EmbedModel string
	IngestedAt string
}

// ListNotes returns all notes ordered by title.
func ListNotes(db *sql.DB) ([]NoteSummary, error) {
	rows, err := db.Query(`SELECT slug, title, file_path, word_count, tags_json FROM notes ORDER BY title COLLATE NOCASE`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notes []NoteSummary
	for rows.Next() {
		var n NoteSummary
		var tagsJSON string
		if err := rows.Scan(&n.Slug, &n.Title, &n.FilePath, &n.WordCount, &tagsJSON); err != nil {
			return nil, err
		}
		n.Tags = decodeStrings(tagsJSON)
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

// NoteBySlug returns the note with the given slug, or nil if absent.
func NoteBySlug(db *sql.DB, slug string) (*NoteDetail, error) {
	var n NoteDetail
	var tagsJSON, aliasesJSON string
	var created sql.NullString
	var modified int64
	err := db.QueryRow(
		`SELECT note_id, slug, title, file_path, content, tags_json, aliases_json, created_date, modified_date, word_count
		 FROM notes WHERE slug = ?`, slug,
	).Scan(&n.NoteID, &n.Slug, &n.Title, &n.FilePath, &n.Content, &tagsJSON, &aliasesJSON, &created, &modified, &n.WordCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	n.Tags = decodeStrings(tagsJSON)
	n.Aliases = decodeStrings(aliasesJSON)
	n.CreatedDate = created.String
	n.ModifiedDate = time.Unix(modified, 0)
	return &n, nil
}

// SlugByTitle returns the slug of the note with the given title
// (case-insensitive), or "" if no note matches.
func SlugByTitle(db *sql.DB, title string) (string, error) {
	var slug string
	err := db.QueryRow(
		`SELECT slug FROM notes WHERE title = ? COLLATE NOCASE ORDER BY slug LIMIT 1`, title,
	).Scan(&slug)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return slug, nil
}

// SemanticMatches ranks all stored chunks against queryVec by cosine
// similarity and returns the top limit matches, at most one per note
// (the best chunk wins). An optional tag filter restricts candidates
// to notes carrying at least one of the tags.
func SemanticMatches(db *sql.DB, queryVec []float32, limit int, tags []string) ([]SemanticMatch, error) {
	query := `SELECT n.slug, n.title, n.file_path, c.content, c.heading_context, e.vector
		FROM embeddings e
		JOIN chunks c ON c.chunk_id = e.chunk_id
		JOIN notes n ON n.note_id = c.note_id`
	var args []any
	if len(tags) > 0 {
		placeholders := strings.Repeat("?,", len(tags))
		placeholders = placeholders[:len(placeholders)-1]
		query += fmt.Sprintf(
			` WHERE EXISTS (SELECT 1 FROM json_each(n.tags_json) je WHERE je.value IN (%s))`,
			placeholders,
		)
		for _, t := range tags {
			args = append(args, t)
		}
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []SemanticMatch
	for rows.Next() {
		var m SemanticMatch
		var blob []byte
		if err := rows.Scan(&m.Slug, &m.Title, &m.FilePath, &m.Content, &m.Heading, &blob); err != nil {
			return nil, err
		}
		vec, err := DecodeVector(blob)
		if err != nil {
			return nil, err
		}
		m.Similarity = CosineSimilarity(queryVec, vec)
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Similarity > matches[j].Similarity })

	// One result per note: the highest-ranked chunk represents it.
	seen := make(map[string]bool)
	var out []SemanticMatch
	for _, m := range matches {
		if seen[m.Slug] {
			continue
		}
		seen[m.Slug] = true
		out = append(out, m)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// Backlinks returns all inbound links to the given slug, ordered by
// the linking note's title.
func Backlinks(db *sql.DB, slug string) ([]BacklinkRow, error) {
	rows, err := db.Query(
		`SELECT l.source_slug, n.title, COALESCE(l.link_text, ''), l.link_type
		 FROM links l
		 JOIN notes n ON n.slug = l.source_slug
		 WHERE l.target_slug = ?
		 ORDER BY n.title COLLATE NOCASE`, slug,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []BacklinkRow
	for rows.Next() {
		var b BacklinkRow
		if err := rows.Scan(&b.SourceSlug, &b.SourceTitle, &b.LinkText, &b.LinkType); err != nil {
			return nil, err
		}
		links = append(links, b)
	}
	return links, rows.Err()
}

// Connections walks the outbound link graph from slug up to maxHops
// edges deep. Each reachable note is reported once at its minimum hop
// distance. Cycles are cut by tracking the traversal path as a
// comma-delimited slug string.
func Connections(db *sql.DB, slug string, maxHops int) ([]ConnectionRow, error) {
	rows, err := db.Query(
		`WITH RECURSIVE connected(slug, hop, path) AS (
			SELECT target_slug, 1, ',' || source_slug || ',' || target_slug || ','
			FROM links WHERE source_slug = ?
			UNION
			SELECT l.target_slug, c.hop + 1, c.path || l.target_slug || ','
			FROM connected c
			JOIN links l ON l.source_slug = c.slug
			WHERE c.hop < ? AND instr(c.path, ',' || l.target_slug || ',') = 0
		 )
		 SELECT c.slug, n.title, MIN(c.hop) AS hop
		 FROM connected c
		 JOIN notes n ON n.slug = c.slug
		 WHERE c.slug != ?
		 GROUP BY c.slug, n.title
		 ORDER BY hop, n.title COLLATE NOCASE`,
		slug, maxHops, slug,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var conns []ConnectionRow
	for rows.Next() {
		var c ConnectionRow
		if err := rows.Scan(&c.Slug, &c.Title, &c.Hop); err != nil {
			return nil, err
		}
		conns = append(conns, c)
	}
	return conns, rows.Err()
}

// DirectNeighbors returns the set of slugs linked to or from the given
// slug.
func DirectNeighbors(db *sql.DB, slug string) (map[string]bool, error) {
	rows, err := db.Query(
		`SELECT target_slug FROM links WHERE source_slug = ?
		 UNION
		 SELECT source_slug FROM links WHERE target_slug = ?`, slug, slug,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	neighbors := make(map[string]bool)
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		neighbors[s] = true
	}
	return neighbors, rows.Err()
}

// NoteBestSimilarities scans every stored chunk vector outside
// excludeSlug and reports, per note, the best cosine similarity
// against any of the seed vectors. Results are ordered by descending
// similarity.
func NoteBestSimilarities(db *sql.DB, seedVecs [][]float32, excludeSlug string) ([]NoteSimilarity, error) {
	rows, err := db.Query(
		`SELECT n.slug, n.title, e.vector
		 FROM embeddings e
		 JOIN chunks c ON c.chunk_id = e.chunk_id
		 JOIN notes n ON n.note_id = c.note_id
		 WHERE n.slug != ?`, excludeSlug,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	best := make(map[string]*NoteSimilarity)
	for rows.Next() {
		var slug, title string
		var blob []byte
		if err := rows.Scan(&slug, &title, &blob); err != nil {
			return nil, err
		}
		vec, err := DecodeVector(blob)
		if err != nil {
			return nil, err
		}
		var sim float64
		for _, seed := range seedVecs {
			if s := CosineSimilarity(seed, vec); s > sim {
				sim = s
			}
		}
		if cur, ok := best[slug]; !ok || sim > cur.Similarity {
			best[slug] = &NoteSimilarity{Slug: slug, Title: title, Similarity: sim}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]NoteSimilarity, 0, len(best))
	for _, ns := range best {
		out = append(out, *ns)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Similarity != out[j].Similarity {
			return out[i].Similarity > out[j].Similarity
		}
		return out[i].Slug < out[j].Slug
	})
	return out, nil
}

// SharedTags returns up to limit notes sharing at least minShared tag
// hyperedges with the given note, ordered by shared count then title.
func SharedTags(db *sql.DB, slug string, minShared, limit int) ([]SharedTagRow, error) {
	if minShared < 1 {
		minShared = 1
	}
	rows, err := db.Query(
		`SELECT n2.slug, n2.title, COUNT(*) AS shared, GROUP_CONCAT(h.edge_value, ',')
		 FROM hyperedge_members m1
		 JOIN hyperedges h ON h.hyperedge_id = m1.hyperedge_id AND h.edge_type = 'tag'
		 JOIN hyperedge_members m2 ON m2.hyperedge_id = m1.hyperedge_id AND m2.note_id != m1.note_id
		 JOIN notes n1 ON n1.note_id = m1.note_id
		 JOIN notes n2 ON n2.note_id = m2.note_id
		 WHERE n1.slug = ?
		 GROUP BY n2.note_id, n2.slug, n2.title
		 HAVING COUNT(*) >= ?
		 ORDER BY shared DESC, n2.title COLLATE NOCASE
		 LIMIT ?`,
		slug, minShared, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SharedTagRow
	for rows.Next() {
		var r SharedTagRow
		var tagList string
		if err := rows.Scan(&r.Slug, &r.Title, &r.SharedCount, &tagList); err != nil {
			return nil, err
		}
		if tagList != "" {
			r.Tags = strings.Split(tagList, ",")
			sort.Strings(r.Tags)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// RawQuery executes an arbitrary query and returns its columns and
// stringified rows. Callers are responsible for restricting the
// statement to read-only forms.
func RawQuery(db *sql.DB, query string) (*RawResult, error) {
	rows, err := db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	result := &RawResult{Columns: cols}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make([]string, len(cols))
		for i, v := range values {
			row[i] = formatValue(v)
		}
		result.Rows = append(result.Rows, row)
	}
	return result, rows.Err()
}

// Stats counts the rows in each table and reads ingestion metadata.
func Stats(db *sql.DB) (*StoreStats, error) {
	s := &StoreStats{}
	counts := []struct {
		table string
		dst   *int
	}{
		{"notes", &s.Notes},
		{"links", &s.Links},
		{"chunks", &s.Chunks},
		{"embeddings", &s.Embeddings},
		{"hyperedges", &s.Hyperedges},
	}
	for _, c := range counts {
		if err := db.QueryRow("SELECT COUNT(*) FROM " + c.table).Scan(c.dst); err != nil {
			return nil, err
		}
	}
	var err error
	if s.EmbedModel, err = GetMeta(db, "embed_model"); err != nil {
		return nil, err
	}
	if s.IngestedAt, err = GetMeta(db, "ingested_at"); err != nil {
		return nil, err
	}
	return s, nil
}

func decodeStrings(jsonText string) []string {
	var out []string
	if jsonText == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(jsonText), &out); err != nil {
		return nil
	}
	return out
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(val)
	case string:
		return val
	case float64:
		return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.4f", val), "0"), ".")
	default:
		return fmt.Sprint(val)
	}
}
