package knowledge

import (
	"strings"
	"testing"
)

func TestExtract(t *testing.T) {
	doc := `<html><head><title>My Page</title></head><body>
		<nav>Skip this</nav>
		<h1>Welcome</h1>
		<p>This is the intro.</p>
		<h2>Details</h2>
		<p>More content here.</p>
		<footer>Skip this too</footer>
	</body></html>`

	ex, err := Extract(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}

	t.Run("captures the title", func(t *testing.T) {
		if ex.Title != "My Page" {
			t.Fatalf("expected title %q, got %q", "My Page", ex.Title)
		}
	})

	t.Run("drops boilerplate tags", func(t *testing.T) {
		for _, sec := range ex.Sections {
			if strings.Contains(sec.Text, "Skip this") {
				t.Fatalf("expected nav/footer text to be dropped, got %q", sec.Text)
			}
		}
	})

	t.Run("preserves heading hierarchy", func(t *testing.T) {
		var headings []string
		for _, sec := range ex.Sections {
			if sec.Heading != "" {
				headings = append(headings, sec.Heading)
			}
		}
		if len(headings) != 2 || headings[0] != "Welcome" || headings[1] != "Details" {
			t.Fatalf("expected [Welcome Details], got %v", headings)
		}
	})
}
