package note

import (
	"path"
	"regexp"
	"strings"
)

var (
	// nonSlugRe matches every run of characters that may not appear in a
	// slug. Word characters, hyphens, and path separators survive.
	nonSlugRe = regexp.MustCompile(`[^\w\-/]+`)

	hyphenRunRe = regexp.MustCompile(`-+`)
)

// Slugify normalizes a wikilink target or path fragment into a canonical
// slug: heading anchor stripped, lowercased, non-word runs hyphenated,
// leading/trailing hyphens trimmed. Slugify is idempotent.
func Slugify(target string) string {
	// Heading anchors ([[Note#Section]]) do not affect target identity.
	if i := strings.Index(target, "#"); i >= 0 {
		target = target[:i]
	}
	s := strings.ToLower(strings.TrimSpace(target))
	s = nonSlugRe.ReplaceAllString(s, "-")
	s = hyphenRunRe.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// PathSlug derives the base slug for a file path relative to the vault
// root. The extension is stripped and each path component is normalized
// independently so separators survive as "/".
func PathSlug(relPath string) string {
	p := strings.TrimSuffix(relPath, path.Ext(relPath))
	p = strings.ReplaceAll(p, "\\", "/")
	parts := strings.Split(p, "/")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		// Anchors are meaningless in file names; Slugify would truncate at
		// a literal '#', so strip it up front instead.
		part = strings.ReplaceAll(part, "#", " ")
		if s := Slugify(part); s != "" {
			out = append(out, s)
		}
	}
	return strings.Join(out, "/")
}

// Folder returns the parent folder portion of a relative path, or ""
// for files at the vault root.
func Folder(relPath string) string {
	relPath = strings.ReplaceAll(relPath, "\\", "/")
	dir := path.Dir(relPath)
	if dir == "." || dir == "/" {
		return ""
	}
	return dir
}
