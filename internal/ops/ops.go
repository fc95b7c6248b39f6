// Package ops implements the query and ingestion operations shared by
// the CLI, the MCP server, and the web UI. Each operation takes an
// Input struct and returns an Output struct so every surface formats
// the same data its own way.
package ops

import (
	"database/sql"
	"strings"

	"github.com/hpungsan/rhizome/internal/db"
	"github.com/hpungsan/rhizome/internal/errors"
	"github.com/hpungsan/rhizome/internal/note"
)

// Operation limits
const (
	DefaultSearchLimit = 10
	MaxSearchLimit     = 100

	DefaultHops = 2
	MaxHops     = 3

	DefaultHiddenLimit = 10

	DefaultSharedTagsLimit = 20
	DefaultMinShared       = 2
)

// resolveNote finds a note by slug, accepting either a canonical slug
// or a note title. Returns a NOT_FOUND error when neither matches.
func resolveNote(database *sql.DB, ref string) (*db.NoteDetail, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, errors.NewInvalidRequest("note must not be empty")
	}

	n, err := db.NoteBySlug(database, note.Slugify(ref))
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	if n != nil {
		return n, nil
	}

	// Fall back to a title lookup so "Deep Work" finds notes/deep-work.
	slug, err := db.SlugByTitle(database, ref)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	if slug != "" {
		n, err = db.NoteBySlug(database, slug)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		if n != nil {
			return n, nil
		}
	}
	return nil, errors.NewNotFound(ref)
}

// clampLimit normalizes a result limit to [1, max] with a default for
// zero or negative values.
func clampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}
