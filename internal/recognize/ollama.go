package recognize

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/platinummonkey/docsift/internal/document"
	"github.com/platinummonkey/docsift/internal/logger"
)

const (
	// DefaultOllamaEndpoint is the default Ollama API endpoint
	DefaultOllamaEndpoint = "http://localhost:11434"

	// DefaultOllamaTimeout is the per-request HTTP timeout
	DefaultOllamaTimeout = 5 * time.Minute
)

// OllamaRecognizer implements Recognizer against a local Ollama instance
// running a vision model. Retry policy lives in the gateway; this client
// makes exactly one HTTP call per Recognize and classifies the failure.
type OllamaRecognizer struct {
	endpoint   string
	model      string
	prompt     *PromptConfig
	httpClient *http.Client
	logger     *logger.Logger
}

// NewOllamaRecognizer creates an Ollama-backed recognizer.
func NewOllamaRecognizer(endpoint, model string, prompt *PromptConfig, log *logger.Logger) *OllamaRecognizer {
	if endpoint == "" {
		endpoint = DefaultOllamaEndpoint
	}
	if prompt == nil {
		prompt = DefaultPromptConfig()
	}
	if log == nil {
		log = logger.Get()
	}

	return &OllamaRecognizer{
		endpoint: endpoint,
		model:    model,
		prompt:   prompt,
		httpClient: &http.Client{
			Timeout: DefaultOllamaTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		logger: log,
	}
}

// generateRequest is the Ollama generate API request body.
type generateRequest struct {
	Model  string   `json:"model"`
	Prompt string   `json:"prompt"`
	Images []string `json:"images,omitempty"` // base64 encoded
	Stream bool     `json:"stream"`
	Format string   `json:"format,omitempty"`
}

// generateResponse is the Ollama generate API response body.
type generateResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

// Recognize performs recognition for a single image payload.
func (o *OllamaRecognizer) Recognize(ctx context.Context, req Request) ([]document.Page, error) {
	if req.ContentType == ContentTypePDF {
		return nil, Permanentf("ollama provider does not accept PDF input")
	}

	o.logger.WithFields("model", o.model, "provider", o.Name()).Debug("Recognizing with Ollama")

	body := &generateRequest{
		Model:  o.model,
		Prompt: o.prompt.Render(req.LanguageHints),
		Images: []string{base64.StdEncoding.EncodeToString(req.Data)},
		Stream: false,
		Format: "json",
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, Permanent(fmt.Errorf("failed to marshal request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint+"/api/generate", bytes.NewReader(jsonData))
	if err != nil {
		return nil, Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(httpReq)
	if err != nil {
		return nil, Transientf("request failed: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, Transientf("failed to read response: %v", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, FromStatusCode(resp.StatusCode,
			fmt.Errorf("ollama API error (status %d): %s", resp.StatusCode, string(respBody)))
	}

	var genResp generateResponse
	if err := json.Unmarshal(respBody, &genResp); err != nil {
		return nil, Transientf("failed to unmarshal response: %v", err)
	}
	if genResp.Error != "" {
		return nil, Transientf("ollama generation error: %s", genResp.Error)
	}

	return parsePages(genResp.Response)
}

// Name returns the provider name.
func (o *OllamaRecognizer) Name() string {
	return string(ProviderOllama)
}
