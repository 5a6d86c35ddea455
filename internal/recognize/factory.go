package recognize

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/platinummonkey/docsift/internal/logger"
)

// ProviderConfig holds common configuration for all recognition providers.
type ProviderConfig struct {
	// Provider is the provider type (ollama, openai, anthropic, gemini)
	Provider ProviderType

	// Model is the specific model to use
	Model string

	// Endpoint is the API endpoint (required for Ollama)
	Endpoint string

	// APIKey is the API key for cloud providers
	APIKey string

	// Temperature controls randomness (0.0 = deterministic, recommended for OCR)
	Temperature float64

	// Prompt optionally overrides the built-in recognition prompt
	Prompt *PromptConfig
}

// NewRecognizer creates the provider named by the configuration.
func NewRecognizer(ctx context.Context, cfg *ProviderConfig, log *logger.Logger) (Recognizer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("provider config is nil")
	}
	if log == nil {
		log = logger.Get()
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModelForProvider(cfg.Provider)
	}

	switch cfg.Provider {
	case ProviderOllama:
		return NewOllamaRecognizer(cfg.Endpoint, model, cfg.Prompt, log), nil

	case ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("OpenAI API key is required (set OPENAI_API_KEY)")
		}
		return NewOpenAIRecognizer(cfg.APIKey, model, cfg.Temperature, cfg.Prompt, log), nil

	case ProviderAnthropic:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("anthropic API key is required (set ANTHROPIC_API_KEY)")
		}
		return NewAnthropicRecognizer(cfg.APIKey, model, cfg.Temperature, cfg.Prompt, log), nil

	case ProviderGemini:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("gemini API key is required (set GOOGLE_API_KEY)")
		}
		return NewGeminiRecognizer(ctx, cfg.APIKey, model, cfg.Temperature, cfg.Prompt, log)

	default:
		return nil, fmt.Errorf("unsupported provider: %s (supported: ollama, openai, anthropic, gemini)", cfg.Provider)
	}
}

// DefaultModelForProvider returns a recommended default model.
func DefaultModelForProvider(provider ProviderType) string {
	switch provider {
	case ProviderOllama:
		return "llava"
	case ProviderOpenAI:
		return "gpt-4o"
	case ProviderAnthropic:
		return "claude-3-5-sonnet-20241022"
	case ProviderGemini:
		return "gemini-1.5-pro"
	default:
		return ""
	}
}

// encodeBase64 encodes raw bytes for data-URL style payloads.
func encodeBase64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}
