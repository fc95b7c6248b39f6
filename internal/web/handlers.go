package web

import (
	"database/sql"
	"net/http"

	"github.com/hpungsan/rhizome/internal/config"
	"github.com/hpungsan/rhizome/internal/db"
	"github.com/hpungsan/rhizome/internal/embed"
	"github.com/hpungsan/rhizome/internal/errors"
	"github.com/hpungsan/rhizome/internal/ops"
)

// Handlers contains HTTP route handlers for the web UI.
type Handlers struct {
	db       *sql.DB
	cfg      *config.Config
	embedder embed.Embedder
	renderer *Renderer
}

// HandleList handles GET /notes — list all notes, optionally filtered
// by tag.
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	tag := r.URL.Query().Get("tag")

	notes, err := db.ListNotes(h.db)
	if err != nil {
		h.renderer.renderError(w, r, errors.NewInternal(err))
		return
	}

	items := make([]NoteListItem, 0, len(notes))
	for _, n := range notes {
		if tag != "" && !hasTag(n.Tags, tag) {
			continue
		}
		items = append(items, NoteListItem{
			Slug:      n.Slug,
			Title:     n.Title,
			FilePath:  n.FilePath,
			WordCount: n.WordCount,
			Tags:      n.Tags,
		})
	}

	stats, err := ops.Stats(h.db)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	h.renderer.renderPage(w, "list", ListPageData{
		PageData: PageData{
			Title:   "Notes",
			Version: h.renderer.version,
			Nav:     "notes",
		},
		Notes: items,
		Tag:   tag,
		Stats: stats,
	})
}

// HandleDetail handles GET /notes/{slug...} — rendered note with its
// graph context.
func (h *Handlers) HandleDetail(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")

	n, err := db.NoteBySlug(h.db, slug)
	if err != nil {
		h.renderer.renderError(w, r, errors.NewInternal(err))
		return
	}
	if n == nil {
		h.renderer.renderError(w, r, errors.NewNotFound(slug))
		return
	}

	backlinks, err := ops.Backlinks(h.db, ops.BacklinksInput{Note: n.Slug})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	connections, err := ops.Connections(h.db, ops.ConnectionsInput{Note: n.Slug})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	sharedTags, err := ops.SharedTags(h.db, ops.SharedTagsInput{Note: n.Slug})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	h.renderer.renderPage(w, "detail", DetailPageData{
		PageData: PageData{
			Title:   n.Title,
			Version: h.renderer.version,
			Nav:     "notes",
		},
		Slug:         n.Slug,
		NoteTitle:    n.Title,
		FilePath:     n.FilePath,
		Tags:         n.Tags,
		Aliases:      n.Aliases,
		CreatedDate:  n.CreatedDate,
		ModifiedDate: n.ModifiedDate.Unix(),
		WordCount:    n.WordCount,
		RenderedHTML: renderMarkdown(n.Content),
		Backlinks:    backlinks.Backlinks,
		Connections:  connections.Connections,
		SharedTags:   sharedTags.Notes,
	})
}

// HandleSearch handles GET /notes/search — semantic search.
func (h *Handlers) HandleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")

	data := SearchPageData{
		PageData: PageData{
			Title:   "Search",
			Version: h.renderer.version,
			Nav:     "search",
		},
		Query:    query,
		HasQuery: query != "",
	}

	if query == "" {
		h.renderer.renderPage(w, "search", data)
		return
	}

	result, err := ops.Search(r.Context(), h.db, h.embedder, ops.SearchInput{Query: query})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	data.Results = result.Results

	h.renderer.renderPage(w, "search", data)
}

func hasTag(tags []string, want string) bool {
	for _, t := range tags {
		if t == want {
			return true
		}
	}
	return false
}
