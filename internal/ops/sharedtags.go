package ops

import (
	"database/sql"

	"github.com/hpungsan/rhizome/internal/db"
	"github.com/hpungsan/rhizome/internal/errors"
)

// SharedTagsInput contains parameters for the SharedTags operation.
type SharedTagsInput struct {
	Note      string // required: slug or title
	MinShared int    // default: 2
	Limit     int    // default: 20, max: 100
}

// SharedTagNote is a note sharing tags with the subject.
type SharedTagNote struct {
	Slug        string   `json:"slug"`
	Title       string   `json:"title"`
	SharedCount int      `json:"shared_count"`
	Tags        []string `json:"tags"`
}

// SharedTagsOutput contains the result of the SharedTags operation.
type SharedTagsOutput struct {
	Slug      string          `json:"slug"`
	Title     string          `json:"title"`
	MinShared int             `json:"min_shared"`
	Notes     []SharedTagNote `json:"notes"`
}

// SharedTags lists notes that share tag hyperedges with the given one,
// ordered by how many tags they share.
func SharedTags(database *sql.DB, input SharedTagsInput) (*SharedTagsOutput, error) {
	n, err := resolveNote(database, input.Note)
	if err != nil {
		return nil, err
	}

	minShared := input.MinShared
	if minShared < 1 {
		minShared = DefaultMinShared
	}
	limit := clampLimit(input.Limit, DefaultSharedTagsLimit, MaxSearchLimit)

	rows, err := db.SharedTags(database, n.Slug, minShared, limit)
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	out := &SharedTagsOutput{Slug: n.Slug, Title: n.Title, MinShared: minShared, Notes: []SharedTagNote{}}
	for _, r := range rows {
		out.Notes = append(out.Notes, SharedTagNote{
			Slug:        r.Slug,
			Title:       r.Title,
			SharedCount: r.SharedCount,
			Tags:        r.Tags,
		})
	}
	return out, nil
}
