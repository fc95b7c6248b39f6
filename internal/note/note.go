// Package note parses Obsidian markdown files into structured records:
// frontmatter metadata, wikilink edges, and retrieval-sized content chunks.
package note

import "time"

// LinkType classifies how a wikilink was declared in the source note.
type LinkType string

const (
	// LinkTypeWikilink is an inline [[reference]] anywhere in the body.
	LinkTypeWikilink LinkType = "wikilink"

	// LinkTypeOrigin comes from an "Origin:" metadata line.
	LinkTypeOrigin LinkType = "origin"

	// LinkTypeReference comes from a "References:" metadata line.
	LinkTypeReference LinkType = "reference"
)

// ChunkType classifies the dominant block structure of a chunk.
type ChunkType string

const (
	ChunkTypeParagraph ChunkType = "paragraph"
	ChunkTypeCode      ChunkType = "code_block"
	ChunkTypeList      ChunkType = "list"
)

// Note is the parsed representation of a single markdown file.
// Instances are immutable once returned by Parse.
type Note struct {
	// FilePath is the path of the source file relative to the vault root.
	FilePath string

	// Slug is the canonical identifier derived from FilePath.
	// Collision suffixes (-1, -2, ...) are applied later by the ingester.
	Slug string

	// Title is the first H1 heading, or the filename without extension.
	Title string

	// Content is the note body with the frontmatter block removed.
	Content string

	// Frontmatter is the decoded metadata mapping (empty if absent or malformed).
	Frontmatter map[string]any

	// Tags is the union of frontmatter tags and inline #tags.
	Tags []string

	// Aliases come from the frontmatter "aliases" field only.
	Aliases []string

	// CreatedDate resolves from frontmatter, else a "Created: [[YYYY-MM-DD]]"
	// marker in the body. Nil when neither is present.
	CreatedDate *time.Time

	// ModifiedDate is the filesystem mtime of the source file.
	ModifiedDate time.Time

	// WordCount is the whitespace-separated word count of Content.
	WordCount int
}

// WikiLink is a directed edge between two notes.
// The target may reference a note that does not exist in the corpus.
type WikiLink struct {
	SourceSlug string
	TargetSlug string

	// LinkText is the display text ([[target|display]]), or the raw target.
	LinkText string

	LinkType LinkType
}

// Chunk is a retrieval-sized excerpt of a note body.
type Chunk struct {
	Content string

	// HeadingContext is the nearest enclosing heading line, empty at the
	// top of the document.
	HeadingContext string

	ChunkType ChunkType

	// StartLine and EndLine are zero-based line offsets into the note body.
	StartLine int
	EndLine   int
}

// HyperedgeType names the relation grouping notes into a hyperedge.
type HyperedgeType string

const (
	HyperedgeTag    HyperedgeType = "tag"
	HyperedgeFolder HyperedgeType = "folder"
	HyperedgeAlias  HyperedgeType = "alias"
)

// Hyperedge is a named multi-member relation over notes. Identity is
// (EdgeType, EdgeValue); members are note slugs in first-seen order.
type Hyperedge struct {
	EdgeType  HyperedgeType
	EdgeValue string
	Members   []string
}
