package note

import (
	"strings"
	"testing"
)

func TestChunkMarkdownEmpty(t *testing.T) {
	if got := ChunkMarkdown("", 0); got != nil {
		t.Errorf("ChunkMarkdown(\"\") = %v, want nil", got)
	}
	if got := ChunkMarkdown("   \n\n  ", 0); got != nil {
		t.Errorf("ChunkMarkdown(whitespace) = %v, want nil", got)
	}
}

func TestChunkMarkdownHeadingContext(t *testing.T) {
	content := "# Intro\n\nFirst paragraph under intro.\n\n## Details\n\nSecond paragraph under details.\n"
	chunks := ChunkMarkdown(content, 20)
	if len(chunks) < 2 {
		t.Fatalf("expected at least 2 chunks, got %d", len(chunks))
	}

	if chunks[0].HeadingContext != "# Intro" {
		t.Errorf("chunk 0 heading = %q, want %q", chunks[0].HeadingContext, "# Intro")
	}
	last := chunks[len(chunks)-1]
	if last.HeadingContext != "## Details" {
		t.Errorf("last chunk heading = %q, want %q", last.HeadingContext, "## Details")
	}

	// Heading lines are structural markers, never retrievable chunks.
	for i, c := range chunks {
		if strings.TrimSpace(c.Content) == "# Intro" || strings.TrimSpace(c.Content) == "## Details" {
			t.Errorf("chunk %d is a bare heading: %q", i, c.Content)
		}
	}
}

func TestChunkMarkdownCodeFenceNeverSplit(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("Intro paragraph.\n\n```go\n")
	for range 60 {
		sb.WriteString("fmt.Println(\"a fairly long line of code to inflate the block\")\n")
	}
	sb.WriteString("```\n\nOutro paragraph.\n")

	chunks := ChunkMarkdown(sb.String(), 128)
	if len(chunks) == 0 {
		t.Fatal("no chunks produced")
	}

	for i, c := range chunks {
		if strings.Count(c.Content, "```")%2 != 0 {
			t.Errorf("chunk %d contains an unterminated code fence:\n%s", i, c.Content)
		}
	}

	var code *Chunk
	for i := range chunks {
		if chunks[i].ChunkType == ChunkTypeCode {
			code = &chunks[i]
			break
		}
	}
	if code == nil {
		t.Fatal("no code chunk emitted")
	}
	if !strings.HasPrefix(code.Content, "```go") || !strings.HasSuffix(code.Content, "```") {
		t.Errorf("code chunk lost its fences:\n%s", code.Content)
	}
}

func TestChunkMarkdownBlankLinesFoldIntoShortBlocks(t *testing.T) {
	// Two tiny paragraphs separated by a blank line stay together because
	// the buffer is below the minimum block size.
	content := "short one\n\nshort two\n"
	chunks := ChunkMarkdown(content, 512)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if !strings.Contains(chunks[0].Content, "short one") || !strings.Contains(chunks[0].Content, "short two") {
		t.Errorf("chunk lost content: %q", chunks[0].Content)
	}
}

func TestChunkMarkdownListDetection(t *testing.T) {
	content := "- alpha item\n- beta item\n1. numbered item\n"
	chunks := ChunkMarkdown(content, 512)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].ChunkType != ChunkTypeList {
		t.Errorf("ChunkType = %q, want %q", chunks[0].ChunkType, ChunkTypeList)
	}
}

func TestChunkMarkdownSentenceSplit(t *testing.T) {
	sentence := "The quick brown fox jumps over the lazy dog near the riverbank today. "
	content := strings.Repeat(sentence, 30) // ~2100 chars, one giant block
	maxSize := 512

	chunks := ChunkMarkdown(content, maxSize)
	if len(chunks) < 2 {
		t.Fatalf("oversized block not split, got %d chunks", len(chunks))
	}

	for i, c := range chunks {
		if len(c.Content) > maxSize*2 {
			t.Errorf("chunk %d exceeds 2x max size: %d chars", i, len(c.Content))
		}
		// No mid-sentence cuts: every chunk ends with terminal punctuation.
		if !strings.HasSuffix(strings.TrimSpace(c.Content), ".") {
			t.Errorf("chunk %d cut mid-sentence: %q", i, c.Content)
		}
	}
}

func TestChunkMarkdownLosslessReconstruction(t *testing.T) {
	content := `# Notes on Go

Go is a statically typed language. It compiles fast.

## Concurrency

Goroutines are lightweight. Channels coordinate them safely across the
program without explicit locks in most designs.

- cheap to start
- multiplexed onto OS threads

` + "```go\ngo func() {\n\tdone <- true\n}()\n```" + `

Final thoughts paragraph that wraps up the note with a conclusion.
`
	chunks := ChunkMarkdown(content, 128)
	if len(chunks) == 0 {
		t.Fatal("no chunks produced")
	}

	var joined strings.Builder
	for _, c := range chunks {
		joined.WriteString(c.Content)
		joined.WriteString(" ")
	}

	// Whitespace-normalized reconstruction: every non-heading word of the
	// body appears in order in the concatenated chunks.
	normalize := func(s string) string {
		return strings.Join(strings.Fields(s), " ")
	}
	var bodyNoHeadings []string
	for _, line := range strings.Split(content, "\n") {
		t := strings.TrimSpace(line)
		if strings.HasPrefix(t, "#") && !strings.HasPrefix(t, "#!") {
			continue
		}
		bodyNoHeadings = append(bodyNoHeadings, line)
	}
	want := normalize(strings.Join(bodyNoHeadings, "\n"))
	got := normalize(joined.String())
	if got != want {
		t.Errorf("reconstruction mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestChunkMarkdownLineSpans(t *testing.T) {
	content := "para one line\n\nlonger paragraph that definitely exceeds the minimum block size threshold of one hundred characters so it closes on the blank line\n\npara three\n"
	chunks := ChunkMarkdown(content, 64)
	if len(chunks) == 0 {
		t.Fatal("no chunks produced")
	}
	if chunks[0].StartLine != 0 {
		t.Errorf("first chunk StartLine = %d, want 0", chunks[0].StartLine)
	}
	for i := 1; i < len(chunks); i++ {
		if chunks[i].StartLine < chunks[i-1].StartLine {
			t.Errorf("chunks out of document order at %d", i)
		}
	}
}
