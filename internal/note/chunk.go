package note

import (
	"regexp"
	"strings"
	"unicode"
)

const (
	// DefaultMaxChunkSize is the target chunk size in characters.
	DefaultMaxChunkSize = 512

	// minBlockSize is the buffer size below which a blank line is folded
	// into the current block instead of closing it. Keeps short
	// paragraphs from fragmenting on incidental blank lines.
	minBlockSize = 100
)

var listItemRe = regexp.MustCompile(`^(?:[-*+]\s|\d+\.\s)`)

// block is an intermediate structural unit produced by the first
// chunking pass.
type block struct {
	lines     []string
	blockType ChunkType
	heading   bool // zero-length structural marker, never emitted
	start     int
	end       int
	context   string // heading in effect when the block began
}

func (b *block) text() string {
	return strings.TrimSpace(strings.Join(b.lines, "\n"))
}

// ChunkMarkdown splits a note body into retrieval-sized chunks while
// respecting markdown structure. Pass one classifies lines into
// paragraph/list/code blocks; pass two merges small blocks up to
// maxChunkSize and splits oversized ones at sentence boundaries. Fenced
// code blocks are never split mid-fence. maxChunkSize <= 0 selects
// DefaultMaxChunkSize.
func ChunkMarkdown(content string, maxChunkSize int) []Chunk {
	if maxChunkSize <= 0 {
		maxChunkSize = DefaultMaxChunkSize
	}
	if strings.TrimSpace(content) == "" {
		return nil
	}
	return mergeBlocks(segmentBlocks(content), maxChunkSize)
}

// segmentBlocks is the first pass: a single left-to-right line scan
// accumulating contiguous block buffers. State transitions:
//   - a code fence toggles code mode; inside it every line (blank lines
//     included) is appended verbatim until the closing fence
//   - a heading closes the current block, emits a marker, and updates
//     the heading context
//   - a blank line closes the current block only once the buffer
//     exceeds minBlockSize
//   - a list-item line marks the block as a list
func segmentBlocks(content string) []*block {
	lines := strings.Split(content, "\n")

	var blocks []*block
	cur := &block{blockType: ChunkTypeParagraph}
	curHeading := ""
	inCode := false

	flush := func(endLine int) {
		if len(cur.lines) > 0 && strings.TrimSpace(strings.Join(cur.lines, "")) != "" {
			cur.end = endLine
			blocks = append(blocks, cur)
		}
		cur = &block{blockType: ChunkTypeParagraph}
	}

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)

		switch {
		case strings.HasPrefix(trimmed, "```"):
			if inCode {
				// Closing fence completes the code block.
				cur.lines = append(cur.lines, line)
				cur.end = i
				blocks = append(blocks, cur)
				cur = &block{blockType: ChunkTypeParagraph}
				inCode = false
			} else {
				flush(i - 1)
				cur = &block{
					lines:     []string{line},
					blockType: ChunkTypeCode,
					start:     i,
					context:   curHeading,
				}
				inCode = true
			}

		case inCode:
			cur.lines = append(cur.lines, line)

		case strings.HasPrefix(trimmed, "#"):
			flush(i - 1)
			curHeading = trimmed
			// Structural marker: carries context forward, never embedded.
			blocks = append(blocks, &block{
				lines:     []string{line},
				blockType: ChunkTypeParagraph,
				heading:   true,
				start:     i,
				end:       i,
				context:   curHeading,
			})
			cur = &block{blockType: ChunkTypeParagraph}

		case trimmed == "":
			if len(cur.lines) > 0 && len(strings.Join(cur.lines, "\n")) > minBlockSize {
				flush(i - 1)
			} else if len(cur.lines) > 0 {
				cur.lines = append(cur.lines, line)
			}

		default:
			if len(cur.lines) == 0 {
				cur.start = i
				cur.context = curHeading
			}
			if listItemRe.MatchString(trimmed) {
				cur.blockType = ChunkTypeList
			}
			cur.lines = append(cur.lines, line)
		}
	}
	flush(len(lines) - 1)

	return blocks
}

// mergeBlocks is the second pass: size normalization. Blocks accumulate
// while the merged text stays under maxChunkSize; a block larger than
// twice the target is split independently by sentence boundary.
func mergeBlocks(blocks []*block, maxChunkSize int) []Chunk {
	var chunks []Chunk

	var (
		merged      []string
		mergedType  ChunkType
		mergedCtx   string
		mergedStart int
		mergedEnd   int
	)

	flushMerged := func() {
		if len(merged) == 0 {
			return
		}
		chunks = append(chunks, Chunk{
			Content:        strings.TrimSpace(strings.Join(merged, "\n")),
			HeadingContext: mergedCtx,
			ChunkType:      mergedType,
			StartLine:      mergedStart,
			EndLine:        mergedEnd,
		})
		merged = nil
	}

	for _, b := range blocks {
		if b.heading {
			continue
		}
		text := b.text()
		if text == "" {
			continue
		}

		switch {
		case len(text) > maxChunkSize*2:
			flushMerged()
			if b.blockType == ChunkTypeCode {
				// Fenced code is never split, whatever its size.
				chunks = append(chunks, Chunk{
					Content:        text,
					HeadingContext: b.context,
					ChunkType:      ChunkTypeCode,
					StartLine:      b.start,
					EndLine:        b.end,
				})
				continue
			}
			chunks = append(chunks, splitBySentence(text, b, maxChunkSize)...)

		case len(strings.Join(merged, "\n"))+len(text) < maxChunkSize:
			if len(merged) == 0 {
				mergedType = b.blockType
				mergedCtx = b.context
				mergedStart = b.start
			}
			merged = append(merged, text)
			mergedEnd = b.end

		default:
			flushMerged()
			merged = []string{text}
			mergedType = b.blockType
			mergedCtx = b.context
			mergedStart = b.start
			mergedEnd = b.end
		}
	}
	flushMerged()

	return chunks
}

// splitBySentence breaks an oversized block into chunks of at most
// maxChunkSize characters without cutting mid-sentence. The block's
// heading context, type, and line span carry over to every piece.
func splitBySentence(text string, b *block, maxChunkSize int) []Chunk {
	var chunks []Chunk
	emit := func(parts []string) {
		chunks = append(chunks, Chunk{
			Content:        strings.TrimSpace(strings.Join(parts, " ")),
			HeadingContext: b.context,
			ChunkType:      b.blockType,
			StartLine:      b.start,
			EndLine:        b.end,
		})
	}

	var parts []string
	size := 0
	for _, sentence := range splitSentences(text) {
		if size+len(sentence) > maxChunkSize && len(parts) > 0 {
			emit(parts)
			parts = []string{sentence}
			size = len(sentence)
		} else {
			parts = append(parts, sentence)
			size += len(sentence)
		}
	}
	if len(parts) > 0 {
		emit(parts)
	}
	return chunks
}

// splitSentences splits text at sentence boundaries: terminal
// punctuation (. ! ?) followed by whitespace and a capital letter. The
// boundary whitespace is consumed.
func splitSentences(text string) []string {
	runes := []rune(text)
	var sentences []string
	start := 0

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		j := i + 1
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			j++
		}
		if j == i+1 || j >= len(runes) || !unicode.IsUpper(runes[j]) {
			continue
		}
		sentences = append(sentences, string(runes[start:i+1]))
		start = j
		i = j - 1
	}
	if start < len(runes) {
		sentences = append(sentences, string(runes[start:]))
	}
	return sentences
}
