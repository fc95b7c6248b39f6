package ops

import (
	"context"
	"database/sql"
	"io"
	"time"

	"github.com/hpungsan/rhizome/internal/config"
	"github.com/hpungsan/rhizome/internal/embed"
	"github.com/hpungsan/rhizome/internal/errors"
	"github.com/hpungsan/rhizome/internal/ingest"
)

// IngestInput contains parameters for the Ingest operation.
type IngestInput struct {
	VaultPath string // required
	Progress  io.Writer
}

// IngestOutput contains the result of the Ingest operation.
type IngestOutput struct {
	RunID      string        `json:"run_id"`
	Notes      int           `json:"notes"`
	Links      int           `json:"links"`
	Chunks     int           `json:"chunks"`
	Embeddings int           `json:"embeddings"`
	Hyperedges int           `json:"hyperedges"`
	Skipped    int           `json:"skipped"`
	Elapsed    time.Duration `json:"-"`
}

// Ingest rebuilds the knowledge base from a vault directory.
func Ingest(ctx context.Context, database *sql.DB, embedder embed.Embedder, cfg *config.Config, input IngestInput) (*IngestOutput, error) {
	if input.VaultPath == "" {
		return nil, errors.NewInvalidRequest("vault path must not be empty")
	}

	summary, err := ingest.Run(ctx, database, embedder, cfg, ingest.Options{
		VaultPath: input.VaultPath,
		Progress:  input.Progress,
	})
	if err != nil {
		return nil, err
	}

	return &IngestOutput{
		RunID:      summary.RunID,
		Notes:      summary.Notes,
		Links:      summary.Links,
		Chunks:     summary.Chunks,
		Embeddings: summary.Embeddings,
		Hyperedges: summary.Hyperedges,
		Skipped:    summary.Skipped,
		Elapsed:    summary.Elapsed,
	}, nil
}
