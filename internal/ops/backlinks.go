package ops

import (
	"database/sql"

	"github.com/hpungsan/rhizome/internal/db"
	"github.com/hpungsan/rhizome/internal/errors"
)

// BacklinksInput contains parameters for the Backlinks operation.
type BacklinksInput struct {
	Note string // required: slug or title
}

// Backlink is one inbound link.
type Backlink struct {
	SourceSlug  string `json:"source_slug"`
	SourceTitle string `json:"source_title"`
	LinkText    string `json:"link_text,omitempty"`
	LinkType    string `json:"link_type"`
}

// BacklinksOutput contains the result of the Backlinks operation.
type BacklinksOutput struct {
	Slug      string     `json:"slug"`
	Title     string     `json:"title"`
	Backlinks []Backlink `json:"backlinks"`
}

// Backlinks lists every note linking to the given one, ordered by the
// linking note's title.
func Backlinks(database *sql.DB, input BacklinksInput) (*BacklinksOutput, error) {
	n, err := resolveNote(database, input.Note)
	if err != nil {
		return nil, err
	}

	rows, err := db.Backlinks(database, n.Slug)
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	out := &BacklinksOutput{Slug: n.Slug, Title: n.Title, Backlinks: []Backlink{}}
	for _, r := range rows {
		out.Backlinks = append(out.Backlinks, Backlink{
			SourceSlug:  r.SourceSlug,
			SourceTitle: r.SourceTitle,
			LinkText:    r.LinkText,
			LinkType:    r.LinkType,
		})
	}
	return out, nil
}
