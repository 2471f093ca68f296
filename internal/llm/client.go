// Package llm sends an analysis prompt together with a stimulus image to a
// multimodal generative model. It supports Gemini, OpenAI and Anthropic
// over their REST APIs, plus an offline placeholder.
package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Providers.
const (
	ProviderGemini      = "gemini"
	ProviderOpenAI      = "openai"
	ProviderAnthropic   = "anthropic"
	ProviderPlaceholder = "placeholder"
)

// ErrUnavailable is returned when a client lacks credentials.
var ErrUnavailable = errors.New("llm client not available: missing API key")

// ClientConfig configures a model client.
type ClientConfig struct {
	// Provider identifies the backend: "gemini", "openai", "anthropic" or
	// "placeholder".
	Provider string `json:"provider" yaml:"provider"`

	// APIKey is the provider key. When empty the provider's standard
	// environment variable is used.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// BaseURL overrides the API endpoint root.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`

	// Model is the model identifier to use for requests.
	Model string `json:"model,omitempty" yaml:"model,omitempty"`

	// Timeout is the maximum duration to wait for a response.
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`

	// MaxTokens caps the response length where the API requires it.
	MaxTokens int `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
}

// DefaultConfig returns a ClientConfig with sensible defaults.
func DefaultConfig() ClientConfig {
	return ClientConfig{
		Provider:  ProviderGemini,
		Timeout:   2 * time.Minute,
		MaxTokens: 4096,
	}
}

// Client analyzes an image with a prompt.
type Client interface {
	// Analyze sends prompt and the image at imagePath to the model and
	// returns its text response.
	Analyze(ctx context.Context, prompt, imagePath string) (string, error)

	// Available returns true if the client is configured and ready to handle
	// requests. For API-based clients this checks that credentials are present.
	Available() bool
}

// NewClient returns the client for cfg.Provider.
func NewClient(cfg ClientConfig) (Client, error) {
	switch cfg.Provider {
	case ProviderGemini, "":
		return NewGeminiClient(cfg), nil
	case ProviderOpenAI:
		return NewOpenAIClient(cfg), nil
	case ProviderAnthropic:
		return NewAnthropicClient(cfg), nil
	case ProviderPlaceholder:
		return NewPlaceholderClient(), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

// ResponseText converts an Analyze outcome into the text stored in a result
// record. Failures become "ERROR: ..." so a batch keeps going.
func ResponseText(resp string, err error) string {
	if err != nil {
		return "ERROR: " + err.Error()
	}
	return resp
}

// inlineImage is an image file prepared for embedding in a request.
type inlineImage struct {
	MIMEType string
	Data     string // base64, standard encoding
}

// DataURI returns the image as a data: URI.
func (i inlineImage) DataURI() string {
	return "data:" + i.MIMEType + ";base64," + i.Data
}

func loadImage(path string) (inlineImage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return inlineImage{}, fmt.Errorf("reading image: %w", err)
	}
	mimeType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if !strings.HasPrefix(mimeType, "image/") {
		mimeType = http.DetectContentType(data)
	}
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	return inlineImage{
		MIMEType: mimeType,
		Data:     base64.StdEncoding.EncodeToString(data),
	}, nil
}

func timeoutOrDefault(d time.Duration) time.Duration {
	if d == 0 {
		return 2 * time.Minute
	}
	return d
}

func apiKeyOrEnv(key, env string) string {
	if key != "" {
		return key
	}
	return os.Getenv(env)
}
