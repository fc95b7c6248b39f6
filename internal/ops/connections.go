package ops

import (
	"database/sql"

	"github.com/hpungsan/rhizome/internal/db"
	"github.com/hpungsan/rhizome/internal/errors"
)

// ConnectionsInput contains parameters for the Connections operation.
type ConnectionsInput struct {
	Note string // required: slug or title
	Hops int    // default: 2, clamped to [1, 3]
}

// Connection is one note reachable through outbound links.
type Connection struct {
	Slug  string `json:"slug"`
	Title string `json:"title"`
	Hop   int    `json:"hop"`
}

// ConnectionsOutput contains the result of the Connections operation.
type ConnectionsOutput struct {
	Slug        string       `json:"slug"`
	Title       string       `json:"title"`
	Hops        int          `json:"hops"`
	Connections []Connection `json:"connections"`
}

// Connections walks the outbound link graph from a note. Each
// reachable note is reported once at its minimum hop distance, ordered
// by hop then title.
func Connections(database *sql.DB, input ConnectionsInput) (*ConnectionsOutput, error) {
	n, err := resolveNote(database, input.Note)
	if err != nil {
		return nil, err
	}

	hops := input.Hops
	if hops <= 0 {
		hops = DefaultHops
	}
	if hops > MaxHops {
		hops = MaxHops
	}

	rows, err := db.Connections(database, n.Slug, hops)
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	out := &ConnectionsOutput{Slug: n.Slug, Title: n.Title, Hops: hops, Connections: []Connection{}}
	for _, r := range rows {
		out.Connections = append(out.Connections, Connection{Slug: r.Slug, Title: r.Title, Hop: r.Hop})
	}
	return out, nil
}
