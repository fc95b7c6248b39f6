package ops

import (
	"context"
	"database/sql"
	"strings"

	"github.com/hpungsan/rhizome/internal/db"
	"github.com/hpungsan/rhizome/internal/embed"
	"github.com/hpungsan/rhizome/internal/errors"
)

// SearchInput contains parameters for the Search operation.
type SearchInput struct {
	Query string   // required
	Limit int      // default: 10, max: 100
	Tags  []string // optional: restrict to notes carrying any of these tags
}

// SearchResult is one semantic match.
type SearchResult struct {
	Title      string  `json:"title"`
	Slug       string  `json:"slug"`
	FilePath   string  `json:"file_path"`
	Snippet    string  `json:"snippet"`
	Heading    string  `json:"heading,omitempty"`
	Similarity float64 `json:"similarity"`
}

// SearchOutput contains the result of the Search operation.
type SearchOutput struct {
	Query   string         `json:"query"`
	Results []SearchResult `json:"results"`
}

// MaxSnippetChars bounds the chunk excerpt returned per result.
const MaxSnippetChars = 300

// Search embeds the query and ranks notes by the cosine similarity of
// their closest chunk. At most one result per note.
func Search(ctx context.Context, database *sql.DB, embedder embed.Embedder, input SearchInput) (*SearchOutput, error) {
	query := strings.TrimSpace(input.Query)
	if query == "" {
		return nil, errors.NewInvalidRequest("query must not be empty")
	}
	limit := clampLimit(input.Limit, DefaultSearchLimit, MaxSearchLimit)

	vec, err := embedder.Embed(ctx, query)
	if err != nil {
		return nil, errors.NewEmbeddingFailed(err)
	}

	matches, err := db.SemanticMatches(database, vec, limit, input.Tags)
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	out := &SearchOutput{Query: query, Results: []SearchResult{}}
	for _, m := range matches {
		out.Results = append(out.Results, SearchResult{
			Title:      m.Title,
			Slug:       m.Slug,
			FilePath:   m.FilePath,
			Snippet:    snippet(m.Content),
			Heading:    m.Heading,
			Similarity: m.Similarity,
		})
	}
	return out, nil
}

// snippet truncates chunk content to MaxSnippetChars at a word
// boundary where possible.
func snippet(content string) string {
	content = strings.TrimSpace(content)
	if len(content) <= MaxSnippetChars {
		return content
	}
	truncated := content[:MaxSnippetChars]
	if lastSpace := strings.LastIndex(truncated, " "); lastSpace > MaxSnippetChars/2 {
		truncated = truncated[:lastSpace]
	}
	return truncated + "..."
}
