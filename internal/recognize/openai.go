package recognize

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/platinummonkey/docsift/internal/document"
	"github.com/platinummonkey/docsift/internal/logger"
)

// OpenAIRecognizer implements Recognizer for OpenAI's vision-capable chat API.
type OpenAIRecognizer struct {
	client      openai.Client
	model       string
	prompt      *PromptConfig
	temperature float64
	logger      *logger.Logger
}

// NewOpenAIRecognizer creates an OpenAI-backed recognizer.
func NewOpenAIRecognizer(apiKey, model string, temperature float64, prompt *PromptConfig, log *logger.Logger) *OpenAIRecognizer {
	if prompt == nil {
		prompt = DefaultPromptConfig()
	}
	if log == nil {
		log = logger.Get()
	}

	return &OpenAIRecognizer{
		client:      openai.NewClient(option.WithAPIKey(apiKey), option.WithMaxRetries(0)),
		model:       model,
		prompt:      prompt,
		temperature: temperature,
		logger:      log,
	}
}

// Recognize performs recognition for a single image payload.
func (o *OpenAIRecognizer) Recognize(ctx context.Context, req Request) ([]document.Page, error) {
	if req.ContentType == ContentTypePDF {
		return nil, Permanentf("openai provider does not accept PDF input")
	}

	o.logger.WithFields("model", o.model, "provider", o.Name()).Debug("Recognizing with OpenAI")

	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: o.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(o.prompt.Render(req.LanguageHints)),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
					URL: fmt.Sprintf("data:%s;base64,%s", req.ContentType, encodeBase64(req.Data)),
				}),
			}),
		},
		Temperature: openai.Float(o.temperature),
	})
	if err != nil {
		var apierr *openai.Error
		if errors.As(err, &apierr) {
			return nil, FromStatusCode(apierr.StatusCode, fmt.Errorf("openai API error: %w", err))
		}
		return nil, Transientf("openai API error: %v", err)
	}

	if len(resp.Choices) == 0 {
		return nil, Transientf("no response from OpenAI")
	}

	return parsePages(resp.Choices[0].Message.Content)
}

// Name returns the provider name.
func (o *OpenAIRecognizer) Name() string {
	return string(ProviderOpenAI)
}
