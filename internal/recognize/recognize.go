// Package recognize adapts documents to a remote OCR capability and owns
// rate-limit compliance, retry, and backoff for those calls.
package recognize

import (
	"context"

	"github.com/platinummonkey/docsift/internal/document"
)

// Content types accepted by the gateway.
const (
	ContentTypePDF  = "application/pdf"
	ContentTypePNG  = "image/png"
	ContentTypeJPEG = "image/jpeg"
	ContentTypeTIFF = "image/tiff"
	ContentTypeGIF  = "image/gif"
	ContentTypeBMP  = "image/bmp"
	ContentTypeWebP = "image/webp"
)

// Request is one call against the remote recognition capability. For
// multi-page PDFs the gateway splits the document so a single request
// never exceeds the service's page limit.
type Request struct {
	// Data is the raw document or page chunk bytes
	Data []byte

	// ContentType identifies the payload format (e.g. image/png)
	ContentType string

	// LanguageHints are BCP-47 language codes passed to the service
	LanguageHints []string
}

// Recognizer is the remote recognition capability. Implementations return
// recognized pages with zero-based indices relative to the request, and
// signal failures with transient or permanent recognition errors so the
// gateway can decide whether to retry.
type Recognizer interface {
	// Recognize performs text recognition on the request payload
	Recognize(ctx context.Context, req Request) ([]document.Page, error)

	// Name returns the provider name (e.g. "ollama", "openai")
	Name() string
}

// ProviderType identifies a recognition provider implementation.
type ProviderType string

const (
	// ProviderOllama is a local Ollama instance with a vision model
	ProviderOllama ProviderType = "ollama"

	// ProviderOpenAI is OpenAI's vision-capable chat API
	ProviderOpenAI ProviderType = "openai"

	// ProviderAnthropic is Anthropic's Claude API with vision
	ProviderAnthropic ProviderType = "anthropic"

	// ProviderGemini is Google's Gemini API
	ProviderGemini ProviderType = "gemini"
)
