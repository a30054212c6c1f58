package knowledge

import (
	"strings"

	"github.com/octobrain/octobrain/internal/embedding"
)

const (
	defaultChunkTokens  = 512
	defaultChunkOverlap = 64
)

// ChunkText is one sliding-window chunk before it is persisted as a
// KnowledgeChunk: the breadcrumb of headings it falls under, plus its text.
type ChunkText struct {
	SectionPath string
	Text        string
}

// Chunk splits Extracted into a sequence of chunks targeting chunkTokens
// tokens with chunkOverlap tokens of repeated tail text between consecutive
// chunks. Small sections are merged forward until the target is reached; a
// section's heading and its first paragraph are never separated across a
// chunk boundary.
func Chunk(ex *Extracted, chunkTokens, chunkOverlap int) []ChunkText {
	if chunkTokens <= 0 {
		chunkTokens = defaultChunkTokens
	}
	if chunkOverlap <= 0 {
		chunkOverlap = defaultChunkOverlap
	}

	var chunks []ChunkText
	var path []string
	var curText strings.Builder
	var curPath string
	curTokens := 0

	flush := func() {
		text := strings.TrimSpace(curText.String())
		if text == "" {
			return
		}
		chunks = append(chunks, ChunkText{SectionPath: curPath, Text: text})
		curText.Reset()
		curTokens = 0
	}

	overlapTail := func(text string, overlapTokens int) string {
		overlapChars := overlapTokens * 4
		if overlapChars >= len(text) {
			return text
		}
		return text[len(text)-overlapChars:]
	}

	for _, sec := range ex.Sections {
		if sec.Heading != "" {
			path = truncatePath(path, sec.Level)
			path = append(path, sec.Heading)
		}
		sectionPath := strings.Join(path, " > ")

		paragraphs := splitParagraphs(sec.Text)
		if len(paragraphs) == 0 {
			continue
		}

		// The heading's introductory paragraph is never split. If it would
		// push the current chunk over target, the current chunk is flushed
		// first, so the intro opens the next chunk under this section's path.
		intro := paragraphs[0]
		rest := paragraphs[1:]

		if curTokens > 0 && curTokens+embedding.EstimateTokens(intro) > chunkTokens {
			prevText := curText.String()
			flush()
			curText.WriteString(overlapTail(prevText, chunkOverlap))
		}
		if curText.Len() > 0 {
			curText.WriteString("\n\n")
		}
		curText.WriteString(intro)
		curTokens += embedding.EstimateTokens(intro)
		curPath = sectionPath

		for _, p := range rest {
			if curTokens+embedding.EstimateTokens(p) > chunkTokens {
				prevText := curText.String()
				flush()
				curText.WriteString(overlapTail(prevText, chunkOverlap))
				curPath = sectionPath
			}
			if curText.Len() > 0 {
				curText.WriteString("\n\n")
			}
			curText.WriteString(p)
			curTokens += embedding.EstimateTokens(p)
		}
	}
	flush()

	for i := range chunks {
		chunks[i].Text = strings.TrimSpace(chunks[i].Text)
	}
	return chunks
}

// truncatePath drops breadcrumb entries at or below level, so a new H2
// replaces the previous H2 (and anything under it) rather than nesting
// beside it.
func truncatePath(path []string, level int) []string {
	if level <= 0 || level > len(path) {
		return path
	}
	return path[:level-1]
}

func splitParagraphs(text string) []string {
	raw := strings.Split(text, "\n")
	var out []string
	for _, p := range raw {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
