package recognize

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/platinummonkey/docsift/internal/document"
)

// defaultPrompt instructs vision models to emit the wire format the
// providers parse. Tokens come back in whatever order the model chooses;
// reading order is reconstructed downstream from the geometry.
const defaultPrompt = `Extract all printed and handwritten text from this document page.
Return ONLY valid JSON with no markdown formatting, no code blocks, no explanation.

Format:
{
  "pages": [
    {
      "width": 1700,
      "height": 2200,
      "words": [
        {"text": "Invoice", "bbox": [x, y, width, height], "confidence": 0.98, "language": "en"}
      ]
    }
  ]
}

Rules:
- One entry in "pages" per page of the input, in page order
- "width" and "height" are the page dimensions in pixels
- bbox coordinates are pixels from the top-left (0,0)
- confidence is 0.0-1.0, use 0.8 if uncertain
- language is the BCP-47 code of the word, omit if unsure
- Include ALL text, even if partially visible
- Return {"pages": [{"width": 0, "height": 0, "words": []}]} if no text is found`

// PromptConfig is an optional YAML-supplied override for the recognition
// prompt sent to vision providers.
type PromptConfig struct {
	// System is an optional system prompt
	System string `yaml:"system,omitempty"`

	// Prompt is the user prompt template
	Prompt string `yaml:"prompt"`
}

// DefaultPromptConfig returns the built-in prompt.
func DefaultPromptConfig() *PromptConfig {
	return &PromptConfig{Prompt: defaultPrompt}
}

// LoadPromptConfig reads a prompt configuration from a YAML file.
func LoadPromptConfig(path string) (*PromptConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt file: %w", err)
	}

	var cfg PromptConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse prompt file: %w", err)
	}
	if cfg.Prompt == "" {
		return nil, fmt.Errorf("prompt file %s has an empty prompt", path)
	}
	return &cfg, nil
}

// Render produces the final prompt, appending language hints when present.
func (p *PromptConfig) Render(hints []string) string {
	if len(hints) == 0 {
		return p.Prompt
	}
	return p.Prompt + fmt.Sprintf("\n\nThe document is expected to be in: %s", strings.Join(hints, ", "))
}

// wirePage and wireWord are the JSON shapes the providers expect back from
// the vision models.
type wirePage struct {
	Width  int        `json:"width"`
	Height int        `json:"height"`
	Words  []wireWord `json:"words"`
}

type wireWord struct {
	Text       string  `json:"text"`
	BBox       []int   `json:"bbox"` // [x, y, width, height]
	Confidence float64 `json:"confidence,omitempty"`
	Language   string  `json:"language,omitempty"`
}

// parsePages decodes a model response into pages of clamped tokens.
// Responses wrapped as {"pages": [...]} and bare single-page {"words": [...]}
// objects are both accepted; some models flatten despite the prompt.
// Parse failures are transient: a retried generation often produces valid
// JSON where the previous one did not.
func parsePages(content string) ([]document.Page, error) {
	content = strings.TrimSpace(content)

	var wrapped struct {
		Pages []wirePage `json:"pages"`
	}
	if err := json.Unmarshal([]byte(content), &wrapped); err == nil && wrapped.Pages != nil {
		return convertWirePages(wrapped.Pages), nil
	}

	var single wirePage
	if err := json.Unmarshal([]byte(content), &single); err == nil && single.Words != nil {
		return convertWirePages([]wirePage{single}), nil
	}

	return nil, Transientf("unparseable model response: %.120s", content)
}

func convertWirePages(wire []wirePage) []document.Page {
	pages := make([]document.Page, 0, len(wire))
	for i, wp := range wire {
		page := document.Page{
			Index:  i,
			Width:  wp.Width,
			Height: wp.Height,
			Tokens: []document.Token{},
		}
		for _, w := range wp.Words {
			if len(w.BBox) < 4 || w.Text == "" {
				continue
			}
			conf := w.Confidence
			if conf == 0 {
				conf = 0.8
			}
			token := document.NewToken(w.Text, document.NewBoundingBox(w.BBox[0], w.BBox[1], w.BBox[2], w.BBox[3]), conf)
			token.Language = w.Language
			page.AddToken(token)
		}
		pages = append(pages, page)
	}
	return pages
}
