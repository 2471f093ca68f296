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
	openAIBaseURL      = "https://api.openai.com/v1"
	openAIDefaultModel = "gpt-4o-mini"
)

// OpenAIClient implements the Client interface using the OpenAI chat
// completions API. Any OpenAI-compatible endpoint works through BaseURL.
type OpenAIClient struct {
	apiKey  string
	baseURL string
	model   string
	timeout time.Duration
	client  *http.Client
}

// NewOpenAIClient creates a new OpenAIClient with the given configuration.
// If config.APIKey is empty, it falls back to the OPENAI_API_KEY environment variable.
// If config.Model is empty, it defaults to gpt-4o-mini.
func NewOpenAIClient(config ClientConfig) *OpenAIClient {
	model := config.Model
	if model == "" {
		model = openAIDefaultModel
	}
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = openAIBaseURL
	}
	timeout := timeoutOrDefault(config.Timeout)

	return &OpenAIClient{
		apiKey:  apiKeyOrEnv(config.APIKey, "OPENAI_API_KEY"),
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		timeout: timeout,
		client:  &http.Client{Timeout: timeout},
	}
}

// openAIChatRequest represents a request to the OpenAI chat completions API.
type openAIChatRequest struct {
	Model    string              `json:"model"`
	Messages []openAIChatMessage `json:"messages"`
}

// openAIChatMessage carries a mixed text and image content array.
type openAIChatMessage struct {
	Role    string              `json:"role"`
	Content []openAIContentPart `json:"content"`
}

type openAIContentPart struct {
	Type     string          `json:"type"`
	Text     string          `json:"text,omitempty"`
	ImageURL *openAIImageURL `json:"image_url,omitempty"`
}

type openAIImageURL struct {
	URL string `json:"url"`
}

// openAIChatResponse represents a response from the OpenAI chat completions API.
type openAIChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Available returns true if the OpenAI API key is present.
func (c *OpenAIClient) Available() bool {
	return c.apiKey != ""
}

// Analyze sends the prompt and the image as a data URI.
func (c *OpenAIClient) Analyze(ctx context.Context, prompt, imagePath string) (string, error) {
	if !c.Available() {
		return "", ErrUnavailable
	}
	img, err := loadImage(imagePath)
	if err != nil {
		return "", err
	}

	reqBody := openAIChatRequest{
		Model: c.model,
		Messages: []openAIChatMessage{{
			Role: "user",
			Content: []openAIContentPart{
				{Type: "text", Text: prompt},
				{Type: "image_url", ImageURL: &openAIImageURL{URL: img.DataURI()}},
			},
		}},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	var chatResp openAIChatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", fmt.Errorf("parsing API response: %w", err)
	}

	if chatResp.Error != nil {
		return "", fmt.Errorf("API error: %s", chatResp.Error.Message)
	}

	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("no choices in API response")
	}

	return chatResp.Choices[0].Message.Content, nil
}
