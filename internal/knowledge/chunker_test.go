package knowledge

import (
	"strings"
	"testing"
)

func TestChunk(t *testing.T) {
	t.Run("starts a new chunk when the next section would overflow the target", func(t *testing.T) {
		ex := &Extracted{
			Title: "doc",
			Sections: []Section{
				{Heading: "Intro", Level: 1, Text: "short intro paragraph"},
				{Heading: "Details", Level: 2, Text: strings.Repeat("word ", 600)},
			},
		}
		chunks := Chunk(ex, 100, 20)
		if len(chunks) < 2 {
			t.Fatalf("expected the overflowing section to start a new chunk, got %d chunks", len(chunks))
		}
		if !strings.Contains(chunks[0].Text, "short intro paragraph") {
			t.Fatalf("expected the intro section in the first chunk, got %q", chunks[0].Text)
		}
	})

	t.Run("keeps a heading with its first paragraph", func(t *testing.T) {
		ex := &Extracted{
			Sections: []Section{
				{Heading: "Setup", Level: 1, Text: "Install the tool.\nThen configure it.\nThen run it."},
			},
		}
		chunks := Chunk(ex, 2, 0)
		if len(chunks) == 0 {
			t.Fatal("expected at least one chunk")
		}
		if !strings.HasPrefix(chunks[0].Text, "Install the tool.") {
			t.Fatalf("expected first chunk to start with the intro paragraph, got %q", chunks[0].Text)
		}
	})

	t.Run("empty document produces no chunks", func(t *testing.T) {
		if chunks := Chunk(&Extracted{}, 512, 64); len(chunks) != 0 {
			t.Fatalf("expected no chunks, got %d", len(chunks))
		}
	})
}
