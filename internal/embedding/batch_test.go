package embedding

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

// flakyEmbedder fails every call whose first text is in failOn, succeeding
// otherwise. Each batch is embedded with a fixed vector keyed off its first
// text so tests can tell batches apart.
type flakyEmbedder struct {
	failOn map[string]bool
	calls  [][]string
}

func (f *flakyEmbedder) Embed(ctx context.Context, texts []string, mode Mode) ([][]float32, error) {
	f.calls = append(f.calls, texts)
	if len(texts) > 0 && f.failOn[texts[0]] {
		return nil, fmt.Errorf("provider unavailable for %q", texts[0])
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}
func (f *flakyEmbedder) Dimension() int { return 3 }
func (f *flakyEmbedder) Model() string  { return "fake" }

func TestBatchEmbedReturnsPartialResultsOnOneBatchFailure(t *testing.T) {
	texts := []string{"a", "b", "c", "d"}
	e := &flakyEmbedder{failOn: map[string]bool{"c": true}}

	// maxBatch=1 puts each text in its own batch, so only "c" fails.
	out, err := BatchEmbed(context.Background(), e, texts, ModeDocument, 1, 0, 4)
	if err == nil {
		t.Fatal("expected an error from the failed batch")
	}
	if out[0] == nil || out[1] == nil || out[3] == nil {
		t.Fatalf("expected results for the succeeding batches, got %v", out)
	}
	if out[2] != nil {
		t.Fatalf("expected nil at the failed batch's offset, got %v", out[2])
	}
}

func TestBatchEmbedResumeOnlyReembedsFailedOffsets(t *testing.T) {
	texts := []string{"a", "b", "c"}
	e := &flakyEmbedder{failOn: map[string]bool{"b": true}}

	out, err := BatchEmbed(context.Background(), e, texts, ModeDocument, 1, 0, 3)
	if err == nil {
		t.Fatal("expected an error on the first attempt")
	}

	var resumeIdx []int
	var resumeTexts []string
	for i, v := range out {
		if v == nil {
			resumeIdx = append(resumeIdx, i)
			resumeTexts = append(resumeTexts, texts[i])
		}
	}
	if len(resumeTexts) != 1 || resumeTexts[0] != "b" {
		t.Fatalf("expected only %q to need resuming, got %v", "b", resumeTexts)
	}

	callsBeforeResume := len(e.calls)
	e.failOn = nil // the transient failure clears before the retry
	retried, err := BatchEmbed(context.Background(), e, resumeTexts, ModeDocument, 1, 0, 3)
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	for i, idx := range resumeIdx {
		out[idx] = retried[i]
	}

	for i, v := range out {
		if v == nil {
			t.Fatalf("offset %d still unresolved after resume", i)
		}
	}
	// the resume call only re-submitted the one unfinished text
	if got := len(e.calls) - callsBeforeResume; got != 1 {
		t.Fatalf("expected exactly 1 resume call, got %d", got)
	}
	if resumed := e.calls[len(e.calls)-1]; len(resumed) != 1 || resumed[0] != "b" {
		t.Fatalf("expected resume to re-embed only %q, got %v", "b", resumed)
	}
}

func TestBatchEmbedJoinsMultipleBatchFailures(t *testing.T) {
	texts := []string{"a", "b"}
	e := &flakyEmbedder{failOn: map[string]bool{"a": true, "b": true}}

	_, err := BatchEmbed(context.Background(), e, texts, ModeDocument, 1, 0, 2)
	if err == nil {
		t.Fatal("expected a joined error")
	}
	var joined interface{ Unwrap() []error }
	if !errors.As(err, &joined) {
		t.Fatalf("expected an errors.Join result carrying both batch failures, got %v", err)
	}
	if len(joined.Unwrap()) != 2 {
		t.Fatalf("expected 2 joined batch errors, got %d", len(joined.Unwrap()))
	}
}
