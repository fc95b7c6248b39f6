package ops

import (
	"database/sql"

	"github.com/hpungsan/rhizome/internal/db"
	"github.com/hpungsan/rhizome/internal/errors"
)

// StatsOutput summarizes the knowledge base.
type StatsOutput struct {
	Notes      int    `json:"notes"`
	Links      int    `json:"links"`
	Chunks     int    `json:"chunks"`
	Embeddings int    `json:"embeddings"`
	Hyperedges int    `json:"hyperedges"`
	EmbedModel string `json:"embed_model,omitempty"`
	IngestedAt string `json:"ingested_at,omitempty"`
}

// Stats reports table counts and ingestion metadata.
func Stats(database *sql.DB) (*StatsOutput, error) {
	s, err := db.Stats(database)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return &StatsOutput{
		Notes:      s.Notes,
		Links:      s.Links,
		Chunks:     s.Chunks,
		Embeddings: s.Embeddings,
		Hyperedges: s.Hyperedges,
		EmbedModel: s.EmbedModel,
		IngestedAt: s.IngestedAt,
	}, nil
}
