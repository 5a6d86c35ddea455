package recognize

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/platinummonkey/docsift/internal/document"
	"github.com/platinummonkey/docsift/internal/logger"
)

// GeminiRecognizer implements Recognizer for Google's Gemini API. Gemini
// accepts both image and PDF payloads as inline blobs.
type GeminiRecognizer struct {
	client      *genai.Client
	model       string
	prompt      *PromptConfig
	temperature float64
	logger      *logger.Logger
}

// NewGeminiRecognizer creates a Gemini-backed recognizer.
func NewGeminiRecognizer(ctx context.Context, apiKey, model string, temperature float64, prompt *PromptConfig, log *logger.Logger) (*GeminiRecognizer, error) {
	if prompt == nil {
		prompt = DefaultPromptConfig()
	}
	if log == nil {
		log = logger.Get()
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiRecognizer{
		client:      client,
		model:       model,
		prompt:      prompt,
		temperature: temperature,
		logger:      log,
	}, nil
}

// Recognize performs recognition for an image or PDF chunk.
func (g *GeminiRecognizer) Recognize(ctx context.Context, req Request) ([]document.Page, error) {
	g.logger.WithFields("model", g.model, "provider", g.Name()).Debug("Recognizing with Gemini")

	genModel := g.client.GenerativeModel(g.model)
	genModel.SetTemperature(float32(g.temperature))
	genModel.ResponseMIMEType = "application/json"

	resp, err := genModel.GenerateContent(
		ctx,
		genai.Text(g.prompt.Render(req.LanguageHints)),
		genai.Blob{MIMEType: req.ContentType, Data: req.Data},
	)
	if err != nil {
		var apierr *googleapi.Error
		if errors.As(err, &apierr) {
			return nil, FromStatusCode(apierr.Code, fmt.Errorf("gemini API error: %w", err))
		}
		return nil, Transientf("gemini API error: %v", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, Transientf("no response from Gemini")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	if sb.Len() == 0 {
		return nil, Transientf("no text content in Gemini response")
	}

	return parsePages(sb.String())
}

// Name returns the provider name.
func (g *GeminiRecognizer) Name() string {
	return string(ProviderGemini)
}

// Close releases the underlying client.
func (g *GeminiRecognizer) Close() error {
	return g.client.Close()
}
