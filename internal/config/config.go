// Package config loads Rhizome configuration from JSON files.
package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// Config holds application configuration.
type Config struct {
	// EmbedBaseURL is the base URL of the OpenAI-compatible embedding
	// endpoint (e.g. http://localhost:11434/v1 for Ollama).
	EmbedBaseURL string `json:"embed_base_url,omitempty"`

	// EmbedModel is the embedding model name. Must be a known model or
	// paired with EmbedDimension.
	EmbedModel string `json:"embed_model,omitempty"`

	// EmbedDimension overrides the vector dimension for models absent
	// from the built-in registry. 0 means look the model up.
	EmbedDimension int `json:"embed_dimension,omitempty"`

	// EmbedBatchSize is the number of texts per embedding API call.
	EmbedBatchSize int `json:"embed_batch_size,omitempty"`

	// MaxChunkSize is the target chunk size in characters.
	MaxChunkSize int `json:"max_chunk_size,omitempty"`

	// CommitBatchSize is the number of rows per write transaction during
	// ingestion.
	CommitBatchSize int `json:"commit_batch_size,omitempty"`

	// HiddenDistance is the cosine-distance ceiling for hidden-connection
	// candidates. Notes farther than this from the query are dropped.
	HiddenDistance float64 `json:"hidden_distance,omitempty"`

	// BoostFactor multiplies the similarity of graph-connected results in
	// boosted search. Values above 1 favor connected notes.
	BoostFactor float64 `json:"boost_factor,omitempty"`

	// DBMaxOpenConns limits open database connections. 0 means the
	// sql.DB default.
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits idle database connections.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from
	// registration. Unknown names are logged as warnings.
	DisabledTools []string `json:"disabled_tools,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		EmbedModel:      "all-MiniLM-L6-v2",
		EmbedBatchSize:  64,
		MaxChunkSize:    512,
		CommitBatchSize: 1000,
		HiddenDistance:  0.6,
		BoostFactor:     1.2,
	}
}

// Load loads configuration from baseDir/config.json, merged over
// defaults. Returns defaults if the file doesn't exist. The baseDir
// parameter allows tests to use t.TempDir().
func Load(baseDir string) (*Config, error) {
	cfg, err := loadFileRaw(filepath.Join(baseDir, "config.json"))
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Merge combines base and overlay configs. Overlay values take
// precedence for scalars when non-zero; arrays are merged and
// deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	result.EmbedBaseURL = overlay.EmbedBaseURL
	if result.EmbedBaseURL == "" {
		result.EmbedBaseURL = base.EmbedBaseURL
	}

	result.EmbedModel = overlay.EmbedModel
	if result.EmbedModel == "" {
		result.EmbedModel = base.EmbedModel
	}

	result.EmbedDimension = overlay.EmbedDimension
	if result.EmbedDimension == 0 {
		result.EmbedDimension = base.EmbedDimension
	}

	result.EmbedBatchSize = overlay.EmbedBatchSize
	if result.EmbedBatchSize == 0 {
		result.EmbedBatchSize = base.EmbedBatchSize
	}

	result.MaxChunkSize = overlay.MaxChunkSize
	if result.MaxChunkSize == 0 {
		result.MaxChunkSize = base.MaxChunkSize
	}

	result.CommitBatchSize = overlay.CommitBatchSize
	if result.CommitBatchSize == 0 {
		result.CommitBatchSize = base.CommitBatchSize
	}

	result.HiddenDistance = overlay.HiddenDistance
	if result.HiddenDistance == 0 {
		result.HiddenDistance = base.HiddenDistance
	}

	result.BoostFactor = overlay.BoostFactor
	if result.BoostFactor == 0 {
		result.BoostFactor = base.BoostFactor
	}

	result.DBMaxOpenConns = overlay.DBMaxOpenConns
	if result.DBMaxOpenConns == 0 {
		result.DBMaxOpenConns = base.DBMaxOpenConns
	}

	result.DBMaxIdleConns = overlay.DBMaxIdleConns
	if result.DBMaxIdleConns == 0 {
		result.DBMaxIdleConns = base.DBMaxIdleConns
	}

	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)

	return result
}

// mergeStringSlice combines two slices, trims whitespace, and removes
// duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range append(append([]string{}, a...), b...) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
