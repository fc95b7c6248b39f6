package note

import (
	"regexp"
	"strings"
)

var (
	// wikilinkRe captures [[target]], [[target|display]], [[target#heading]],
	// and [[target#heading|display]]. Group 1 is the target before any
	// anchor, group 2 the optional display text.
	wikilinkRe = regexp.MustCompile(`\[\[([^\]|#]+)(?:#[^\]|]*)?(?:\|([^\]]+))?\]\]`)

	pureDateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

	originRe = regexp.MustCompile(`Origin:?\s*\[\[([^\]|]+)(?:\|[^\]]+)?\]\]`)

	// referencesRe captures the remainder of a "References:" line, which
	// may hold several wikilinks.
	referencesRe = regexp.MustCompile(`References:?\s*(.+)`)

	bareLinkRe = regexp.MustCompile(`\[\[([^\]|]+)(?:\|[^\]]+)?\]\]`)
)

// ExtractWikilinks scans a note body for directed link edges. Inline
// [[references]] come first in document order, then Origin: and
// References: metadata links. Duplicate edges, pure-date targets, and
// embedded content (![[...]]) are suppressed.
func ExtractWikilinks(content, sourceSlug string) []WikiLink {
	var links []WikiLink
	seen := make(map[[3]string]struct{})

	add := func(target, text string, typ LinkType) {
		slug := Slugify(target)
		if slug == "" {
			return
		}
		key := [3]string{sourceSlug, slug, text}
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		links = append(links, WikiLink{
			SourceSlug: sourceSlug,
			TargetSlug: slug,
			LinkText:   text,
			LinkType:   typ,
		})
	}

	for _, m := range wikilinkRe.FindAllStringSubmatchIndex(content, -1) {
		target := strings.TrimSpace(content[m[2]:m[3]])
		if target == "" {
			continue
		}
		// Calendar back-references like [[2024-01-01]] are noise, not edges.
		if pureDateRe.MatchString(target) {
			continue
		}
		// ![[image.png]] embeds content instead of linking to it.
		if m[0] > 0 && content[m[0]-1] == '!' {
			continue
		}

		display := target
		if m[4] >= 0 {
			display = strings.TrimSpace(content[m[4]:m[5]])
		}
		add(target, display, LinkTypeWikilink)
	}

	for _, m := range originRe.FindAllStringSubmatch(content, -1) {
		target := strings.TrimSpace(m[1])
		add(target, target, LinkTypeOrigin)
	}

	for _, m := range referencesRe.FindAllStringSubmatch(content, -1) {
		for _, ref := range bareLinkRe.FindAllStringSubmatch(m[1], -1) {
			target := strings.TrimSpace(ref[1])
			add(target, target, LinkTypeReference)
		}
	}

	return links
}
