package recognize

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParsePages_WrappedResponse(t *testing.T) {
	content := `{
		"pages": [
			{"width": 800, "height": 600, "words": [
				{"text": "hello", "bbox": [10, 10, 50, 12], "confidence": 0.95, "language": "en"},
				{"text": "world", "bbox": [70, 10, 50, 12], "confidence": 0.90}
			]},
			{"width": 800, "height": 600, "words": []}
		]
	}`

	pages, err := parsePages(content)
	if err != nil {
		t.Fatalf("parsePages() error = %v", err)
	}

	if len(pages) != 2 {
		t.Fatalf("expected 2 pages, got %d", len(pages))
	}
	if len(pages[0].Tokens) != 2 {
		t.Fatalf("expected 2 tokens on page 0, got %d", len(pages[0].Tokens))
	}
	if pages[0].Tokens[0].Text != "hello" {
		t.Errorf("token text = %q, want hello", pages[0].Tokens[0].Text)
	}
	if pages[0].Tokens[0].Language != "en" {
		t.Errorf("token language = %q, want en", pages[0].Tokens[0].Language)
	}
	if pages[0].Width != 800 || pages[0].Height != 600 {
		t.Errorf("page dimensions = %dx%d, want 800x600", pages[0].Width, pages[0].Height)
	}
	if len(pages[1].Tokens) != 0 {
		t.Errorf("expected empty page 1, got %d tokens", len(pages[1].Tokens))
	}
}

func TestParsePages_BareSinglePage(t *testing.T) {
	// Some models flatten to a single page object despite the prompt
	content := `{"width": 400, "height": 300, "words": [{"text": "only", "bbox": [5, 5, 30, 10]}]}`

	pages, err := parsePages(content)
	if err != nil {
		t.Fatalf("parsePages() error = %v", err)
	}
	if len(pages) != 1 || len(pages[0].Tokens) != 1 {
		t.Fatalf("expected 1 page with 1 token, got %d pages", len(pages))
	}
}

func TestParsePages_DefaultsConfidence(t *testing.T) {
	content := `{"width": 400, "height": 300, "words": [{"text": "w", "bbox": [5, 5, 30, 10]}]}`

	pages, err := parsePages(content)
	if err != nil {
		t.Fatalf("parsePages() error = %v", err)
	}
	if got := pages[0].Tokens[0].Confidence; got != 0.8 {
		t.Errorf("default confidence = %f, want 0.8", got)
	}
}

func TestParsePages_SkipsMalformedWords(t *testing.T) {
	content := `{"width": 400, "height": 300, "words": [
		{"text": "", "bbox": [5, 5, 30, 10]},
		{"text": "short-bbox", "bbox": [5, 5]},
		{"text": "good", "bbox": [5, 5, 30, 10]}
	]}`

	pages, err := parsePages(content)
	if err != nil {
		t.Fatalf("parsePages() error = %v", err)
	}
	if len(pages[0].Tokens) != 1 {
		t.Fatalf("expected only the well-formed token, got %d", len(pages[0].Tokens))
	}
	if pages[0].Tokens[0].Text != "good" {
		t.Errorf("kept token = %q, want good", pages[0].Tokens[0].Text)
	}
}

func TestParsePages_ClampsBoxesToPage(t *testing.T) {
	content := `{"width": 100, "height": 100, "words": [{"text": "edge", "bbox": [90, 90, 50, 50]}]}`

	pages, err := parsePages(content)
	if err != nil {
		t.Fatalf("parsePages() error = %v", err)
	}
	box := pages[0].Tokens[0].BoundingBox
	if box.Right() > 100 || box.Bottom() > 100 {
		t.Errorf("box should be clamped to the page, got %+v", box)
	}
}

func TestParsePages_UnparseableIsTransient(t *testing.T) {
	_, err := parsePages("I could not read this document, sorry!")
	if err == nil {
		t.Fatal("expected an error for a non-JSON response")
	}
	if IsPermanent(err) {
		t.Error("parse failures should be transient so the call is retried")
	}
}

func TestPromptConfig_Render(t *testing.T) {
	cfg := DefaultPromptConfig()

	plain := cfg.Render(nil)
	if plain != cfg.Prompt {
		t.Error("rendering without hints should return the prompt unchanged")
	}

	hinted := cfg.Render([]string{"en", "fr"})
	if !strings.Contains(hinted, "en, fr") {
		t.Errorf("rendered prompt should mention the hints, got: %s", hinted)
	}
}

func TestLoadPromptConfig(t *testing.T) {
	tmpDir := t.TempDir()

	path := filepath.Join(tmpDir, "prompt.yaml")
	content := "system: You are an OCR engine.\nprompt: Extract the text.\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write prompt file: %v", err)
	}

	cfg, err := LoadPromptConfig(path)
	if err != nil {
		t.Fatalf("LoadPromptConfig() error = %v", err)
	}
	if cfg.System != "You are an OCR engine." {
		t.Errorf("System = %q", cfg.System)
	}
	if cfg.Prompt != "Extract the text." {
		t.Errorf("Prompt = %q", cfg.Prompt)
	}
}

func TestLoadPromptConfig_Errors(t *testing.T) {
	tmpDir := t.TempDir()

	if _, err := LoadPromptConfig(filepath.Join(tmpDir, "missing.yaml")); err == nil {
		t.Error("expected an error for a missing file")
	}

	empty := filepath.Join(tmpDir, "empty.yaml")
	if err := os.WriteFile(empty, []byte("system: hi\n"), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	if _, err := LoadPromptConfig(empty); err == nil {
		t.Error("expected an error for a file without a prompt")
	}
}
