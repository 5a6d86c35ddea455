package recognize

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/platinummonkey/docsift/internal/document"
	"github.com/platinummonkey/docsift/internal/logger"
)

// AnthropicRecognizer implements Recognizer for Anthropic's Claude API.
// Unlike the other providers it also accepts PDF chunks directly via
// document blocks.
type AnthropicRecognizer struct {
	client      anthropic.Client
	model       string
	prompt      *PromptConfig
	temperature float64
	logger      *logger.Logger
}

// NewAnthropicRecognizer creates a Claude-backed recognizer.
func NewAnthropicRecognizer(apiKey, model string, temperature float64, prompt *PromptConfig, log *logger.Logger) *AnthropicRecognizer {
	if prompt == nil {
		prompt = DefaultPromptConfig()
	}
	if log == nil {
		log = logger.Get()
	}

	return &AnthropicRecognizer{
		client:      anthropic.NewClient(option.WithAPIKey(apiKey), option.WithMaxRetries(0)),
		model:       model,
		prompt:      prompt,
		temperature: temperature,
		logger:      log,
	}
}

// Recognize performs recognition for an image or PDF chunk.
func (a *AnthropicRecognizer) Recognize(ctx context.Context, req Request) ([]document.Page, error) {
	a.logger.WithFields("model", a.model, "provider", a.Name()).Debug("Recognizing with Anthropic")

	encoded := base64.StdEncoding.EncodeToString(req.Data)

	var payload anthropic.ContentBlockParamUnion
	if req.ContentType == ContentTypePDF {
		payload = anthropic.NewDocumentBlock(anthropic.Base64PDFSourceParam{Data: encoded})
	} else {
		payload = anthropic.NewImageBlockBase64(req.ContentType, encoded)
	}

	resp, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: 8192,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewTextBlock(a.prompt.Render(req.LanguageHints)),
				payload,
			),
		},
		Temperature: anthropic.Float(a.temperature),
	})
	if err != nil {
		var apierr *anthropic.Error
		if errors.As(err, &apierr) {
			return nil, FromStatusCode(apierr.StatusCode, fmt.Errorf("anthropic API error: %w", err))
		}
		return nil, Transientf("anthropic API error: %v", err)
	}

	var content string
	for _, block := range resp.Content {
		if block.Type == "text" {
			content = block.Text
			break
		}
	}
	if content == "" {
		return nil, Transientf("no text content in Anthropic response")
	}

	return parsePages(content)
}

// Name returns the provider name.
func (a *AnthropicRecognizer) Name() string {
	return string(ProviderAnthropic)
}
