package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	anthropicBaseURL      = "https://api.anthropic.com/v1"
	anthropicAPIVersion   = "2023-06-01"
	anthropicDefaultModel = "claude-3-5-haiku-latest"
)

// AnthropicClient implements the Client interface using the Anthropic Messages API.
type AnthropicClient struct {
	apiKey     string
	baseURL    string
	model      string
	maxTokens  int
	timeout    time.Duration
	httpClient *http.Client
}

// NewAnthropicClient creates a new AnthropicClient with the given configuration.
// If config.APIKey is empty, it falls back to the ANTHROPIC_API_KEY environment variable.
func NewAnthropicClient(config ClientConfig) *AnthropicClient {
	model := config.Model
	if model == "" {
		model = anthropicDefaultModel
	}
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = anthropicBaseURL
	}
	maxTokens := config.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	timeout := timeoutOrDefault(config.Timeout)

	return &AnthropicClient{
		apiKey:    apiKeyOrEnv(config.APIKey, "ANTHROPIC_API_KEY"),
		baseURL:   strings.TrimRight(baseURL, "/"),
		model:     model,
		maxTokens: maxTokens,
		timeout:   timeout,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// anthropicRequest represents a request to the Anthropic Messages API.
type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string             `json:"role"`
	Content []anthropicContent `json:"content"`
}

type anthropicContent struct {
	Type   string           `json:"type"`
	Text   string           `json:"text,omitempty"`
	Source *anthropicSource `json:"source,omitempty"`
}

type anthropicSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

// anthropicResponse represents a response from the Anthropic Messages API.
type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Error      *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Available returns true if the API key is present.
func (c *AnthropicClient) Available() bool {
	return c.apiKey != ""
}

// Analyze sends the image followed by the prompt.
func (c *AnthropicClient) Analyze(ctx context.Context, prompt, imagePath string) (string, error) {
	if !c.Available() {
		return "", ErrUnavailable
	}
	img, err := loadImage(imagePath)
	if err != nil {
		return "", err
	}

	reqBody := anthropicRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages: []anthropicMessage{{
			Role: "user",
			Content: []anthropicContent{
				{Type: "image", Source: &anthropicSource{Type: "base64", MediaType: img.MIMEType, Data: img.Data}},
				{Type: "text", Text: prompt},
			},
		}},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicAPIVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var apiResp anthropicResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return "", fmt.Errorf("parsing API response: %w", err)
	}

	if apiResp.Error != nil {
		return "", fmt.Errorf("API error: %s - %s", apiResp.Error.Type, apiResp.Error.Message)
	}

	var text strings.Builder
	for _, content := range apiResp.Content {
		if content.Type == "text" {
			text.WriteString(content.Text)
		}
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("no text content in API response")
	}
	return text.String(), nil
}
