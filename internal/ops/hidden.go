package ops

import (
	"context"
	"database/sql"
	"strings"

	"github.com/hpungsan/rhizome/internal/db"
	"github.com/hpungsan/rhizome/internal/embed"
	"github.com/hpungsan/rhizome/internal/errors"
)

// HiddenInput contains parameters for the HiddenConnections operation.
type HiddenInput struct {
	Query string // required: text to rank notes against
	Seed  string // required: slug or title to check link distance from
	Limit int    // default: 10

	// MaxDistance is the cosine-distance ceiling. Zero means use the
	// configured default.
	MaxDistance float64
}

// HiddenConnection is a relevant note with no direct link to the seed.
type HiddenConnection struct {
	Slug     string  `json:"slug"`
	Title    string  `json:"title"`
	Distance float64 `json:"distance"`
}

// HiddenOutput contains the result of the HiddenConnections operation.
type HiddenOutput struct {
	Query       string             `json:"query"`
	Slug        string             `json:"slug"`
	Title       string             `json:"title"`
	MaxDistance float64            `json:"max_distance"`
	Connections []HiddenConnection `json:"connections"`
}

// HiddenConnections finds notes relevant to the query that share no
// direct link with the seed note. Distance is 1 minus the best cosine
// similarity between the query and any chunk of the note. Results are
// ordered by ascending distance; the seed and its direct neighbors
// never appear.
func HiddenConnections(ctx context.Context, database *sql.DB, embedder embed.Embedder, input HiddenInput, defaultMaxDistance float64) (*HiddenOutput, error) {
	query := strings.TrimSpace(input.Query)
	if query == "" {
		return nil, errors.NewInvalidRequest("query must not be empty")
	}
	n, err := resolveNote(database, input.Seed)
	if err != nil {
		return nil, err
	}

	maxDistance := input.MaxDistance
	if maxDistance <= 0 {
		maxDistance = defaultMaxDistance
	}
	limit := clampLimit(input.Limit, DefaultHiddenLimit, MaxSearchLimit)

	vec, err := embedder.Embed(ctx, query)
	if err != nil {
		return nil, errors.NewEmbeddingFailed(err)
	}

	neighbors, err := db.DirectNeighbors(database, n.Slug)
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	sims, err := db.NoteBestSimilarities(database, [][]float32{vec}, n.Slug)
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	out := &HiddenOutput{Query: query, Slug: n.Slug, Title: n.Title, MaxDistance: maxDistance, Connections: []HiddenConnection{}}
	for _, s := range sims {
		if neighbors[s.Slug] {
			continue
		}
		distance := 1 - s.Similarity
		if distance >= maxDistance {
			continue
		}
		out.Connections = append(out.Connections, HiddenConnection{
			Slug:     s.Slug,
			Title:    s.Title,
			Distance: distance,
		})
		if len(out.Connections) >= limit {
			break
		}
	}
	return out, nil
}
