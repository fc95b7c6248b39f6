package ops

import (
	"context"
	"database/sql"
	"sort"
	"strings"

	"github.com/hpungsan/rhizome/internal/db"
	"github.com/hpungsan/rhizome/internal/embed"
	"github.com/hpungsan/rhizome/internal/errors"
)

// BoostedInput contains parameters for the BoostedSearch operation.
type BoostedInput struct {
	Query string // required
	Seed  string // required: slug or title to check graph connectivity from
	Limit int    // default: 10, max: 100
}

// BoostedResult is one graph-aware search result.
type BoostedResult struct {
	Title        string  `json:"title"`
	Slug         string  `json:"slug"`
	FilePath     string  `json:"file_path"`
	Snippet      string  `json:"snippet"`
	Similarity   float64 `json:"similarity"`
	Score        float64 `json:"score"`
	GraphBoosted bool    `json:"graph_boosted"`
}

// BoostedOutput contains the result of the BoostedSearch operation.
type BoostedOutput struct {
	Query   string          `json:"query"`
	Seed    string          `json:"seed"`
	Boost   float64         `json:"boost"`
	Results []BoostedResult `json:"results"`
}

// BoostedSearch runs a semantic search over a widened candidate pool,
// multiplies the similarity of candidates directly linked to the seed
// note by boostFactor, and re-ranks. Notes already in the seed's
// neighborhood surface above isolated matches of similar similarity.
// The seed itself is never returned.
func BoostedSearch(ctx context.Context, database *sql.DB, embedder embed.Embedder, input BoostedInput, boostFactor float64) (*BoostedOutput, error) {
	query := strings.TrimSpace(input.Query)
	if query == "" {
		return nil, errors.NewInvalidRequest("query must not be empty")
	}
	seed, err := resolveNote(database, input.Seed)
	if err != nil {
		return nil, err
	}
	limit := clampLimit(input.Limit, DefaultSearchLimit, MaxSearchLimit)
	if boostFactor <= 0 {
		boostFactor = 1
	}

	vec, err := embedder.Embed(ctx, query)
	if err != nil {
		return nil, errors.NewEmbeddingFailed(err)
	}

	// Widen the pool so a boosted candidate just below the cut can
	// still make the final ranking, and to absorb dropping the seed.
	matches, err := db.SemanticMatches(database, vec, limit*2, nil)
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	neighbors, err := db.DirectNeighbors(database, seed.Slug)
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	results := make([]BoostedResult, 0, len(matches))
	for _, m := range matches {
		if m.Slug == seed.Slug {
			continue
		}
		score := m.Similarity
		if neighbors[m.Slug] {
			score *= boostFactor
		}
		results = append(results, BoostedResult{
			Title:        m.Title,
			Slug:         m.Slug,
			FilePath:     m.FilePath,
			Snippet:      snippet(m.Content),
			Similarity:   m.Similarity,
			Score:        score,
			GraphBoosted: neighbors[m.Slug],
		})
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > limit {
		results = results[:limit]
	}

	return &BoostedOutput{Query: query, Seed: seed.Slug, Boost: boostFactor, Results: results}, nil
}
