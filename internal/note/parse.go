package note

import (
	"fmt"
	"path"
	"regexp"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	h1Re          = regexp.MustCompile(`(?m)^#\s+(.+)$`)
	inlineTagRe   = regexp.MustCompile(`#[\w/-]+`)
	createdRe     = regexp.MustCompile(`Created:?\s*\[\[(\d{4}-\d{2}-\d{2})\]\]`)
	wrappedDateRe = regexp.MustCompile(`^\[\[(\d{4}-\d{2}-\d{2})\]\]$`)
)

// Parse turns raw file bytes into a Note. relPath is the file path
// relative to the vault root; modTime is the filesystem mtime.
// Malformed frontmatter never fails the note: it degrades to an empty
// metadata mapping with the whole file treated as body.
func Parse(relPath string, data []byte, modTime time.Time) (*Note, error) {
	if relPath == "" {
		return nil, fmt.Errorf("parse: empty file path")
	}

	fm, body := splitFrontmatter(string(data))

	n := &Note{
		FilePath:     relPath,
		Slug:         PathSlug(relPath),
		Title:        extractTitle(body, relPath),
		Content:      body,
		Frontmatter:  fm,
		Tags:         extractTags(string(data), fm),
		Aliases:      extractAliases(fm),
		CreatedDate:  extractCreatedDate(string(data), fm),
		ModifiedDate: modTime,
		WordCount:    len(strings.Fields(body)),
	}
	return n, nil
}

// splitFrontmatter separates a leading YAML block delimited by "---"
// lines from the body. Absent or malformed frontmatter yields an empty
// mapping and the full input as body.
func splitFrontmatter(content string) (map[string]any, string) {
	const delim = "---"

	if !strings.HasPrefix(content, delim) {
		return map[string]any{}, content
	}
	rest := content[len(delim):]
	if !strings.HasPrefix(rest, "\n") && !strings.HasPrefix(rest, "\r\n") {
		// "---something" is a horizontal rule or text, not frontmatter.
		return map[string]any{}, content
	}

	idx := strings.Index(rest, "\n"+delim)
	if idx < 0 {
		return map[string]any{}, content
	}
	yamlBlock := rest[:idx]

	// The closing delimiter must sit on its own line.
	after := rest[idx+1+len(delim):]
	if after != "" && !strings.HasPrefix(after, "\n") && !strings.HasPrefix(after, "\r\n") {
		return map[string]any{}, content
	}
	body := strings.TrimPrefix(strings.TrimPrefix(after, "\r\n"), "\n")

	var fm map[string]any
	if err := yaml.Unmarshal([]byte(yamlBlock), &fm); err != nil || fm == nil {
		return map[string]any{}, content
	}
	return fm, body
}

// extractTitle returns the first H1 heading, falling back to the
// filename without extension.
func extractTitle(body, relPath string) string {
	if m := h1Re.FindStringSubmatch(body); m != nil {
		return strings.TrimSpace(m[1])
	}
	base := path.Base(strings.ReplaceAll(relPath, "\\", "/"))
	return strings.TrimSuffix(base, path.Ext(base))
}

// extractTags unions frontmatter-declared tags with inline #tags.
// Inline tags inside code spans (adjacent backtick) or URLs (preceded
// by '/' or a word character) are excluded. Result is sorted for
// deterministic output.
func extractTags(content string, fm map[string]any) []string {
	seen := make(map[string]struct{})

	for _, t := range stringOrList(fm["tags"]) {
		t = strings.TrimPrefix(strings.TrimSpace(t), "#")
		if t != "" {
			seen[t] = struct{}{}
		}
	}

	for _, loc := range inlineTagRe.FindAllStringIndex(content, -1) {
		if !validTagBoundary(content, loc[0], loc[1]) {
			continue
		}
		seen[content[loc[0]+1:loc[1]]] = struct{}{}
	}

	tags := make([]string, 0, len(seen))
	for t := range seen {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags
}

// validTagBoundary reports whether a #tag match at [start,end) stands
// alone: not preceded by a backtick, word character, or slash, and not
// followed by a backtick or word character.
func validTagBoundary(content string, start, end int) bool {
	if start > 0 {
		switch c := content[start-1]; {
		case c == '`' || c == '/' || c == '_':
			return false
		case c >= '0' && c <= '9', c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z':
			return false
		}
	}
	if end < len(content) {
		switch c := content[end]; {
		case c == '`' || c == '_':
			return false
		case c >= '0' && c <= '9', c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z':
			return false
		}
	}
	return true
}

// extractAliases reads the frontmatter "aliases" field. A bare string
// promotes to a single-element list.
func extractAliases(fm map[string]any) []string {
	var out []string
	for _, a := range stringOrList(fm["aliases"]) {
		a = strings.TrimSpace(a)
		if a != "" {
			out = append(out, a)
		}
	}
	return out
}

// extractCreatedDate resolves the creation date: frontmatter "created"
// first, else a "Created: [[YYYY-MM-DD]]" marker in the body.
func extractCreatedDate(content string, fm map[string]any) *time.Time {
	if v, ok := fm["created"]; ok {
		if t := parseDateValue(v); t != nil {
			return t
		}
	}
	if m := createdRe.FindStringSubmatch(content); m != nil {
		if t, err := time.Parse("2006-01-02", m[1]); err == nil {
			return &t
		}
	}
	return nil
}

// parseDateValue coerces a frontmatter value into a date. yaml.v3
// decodes bare timestamps to time.Time; strings may carry a [[...]]
// wrapper or trailing time-of-day noise.
func parseDateValue(v any) *time.Time {
	switch val := v.(type) {
	case time.Time:
		return &val
	case string:
		s := strings.TrimSpace(val)
		if m := wrappedDateRe.FindStringSubmatch(s); m != nil {
			s = m[1]
		}
		if len(s) > 10 {
			s = s[:10]
		}
		if t, err := time.Parse("2006-01-02", s); err == nil {
			return &t
		}
	}
	return nil
}

// stringOrList coerces a frontmatter value that may be a scalar string
// or a sequence into a string slice.
func stringOrList(v any) []string {
	switch val := v.(type) {
	case string:
		return []string{val}
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok {
				out = append(out, s)
			} else if item != nil {
				out = append(out, fmt.Sprint(item))
			}
		}
		return out
	case []string:
		return val
	}
	return nil
}
