package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	geminiBaseURL      = "https://generativelanguage.googleapis.com/v1beta"
	geminiDefaultModel = "gemini-2.5-flash"
)

// GeminiClient implements Client using the Gemini generateContent API.
type GeminiClient struct {
	apiKey  string
	baseURL string
	model   string
	timeout time.Duration
	client  *http.Client
}

// NewGeminiClient creates a new GeminiClient with the given configuration.
// If config.APIKey is empty, it falls back to the GOOGLE_API_KEY environment variable.
// If config.Model is empty, it defaults to gemini-2.5-flash.
func NewGeminiClient(config ClientConfig) *GeminiClient {
	model := config.Model
	if model == "" {
		model = geminiDefaultModel
	}
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = geminiBaseURL
	}
	timeout := timeoutOrDefault(config.Timeout)

	return &GeminiClient{
		apiKey:  apiKeyOrEnv(config.APIKey, "GOOGLE_API_KEY"),
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		timeout: timeout,
		client:  &http.Client{Timeout: timeout},
	}
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inline_data,omitempty"`
}

type geminiInlineData struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

// Available returns true if the Google API key is present.
func (c *GeminiClient) Available() bool {
	return c.apiKey != ""
}

// Analyze sends the prompt followed by the image as inline data.
func (c *GeminiClient) Analyze(ctx context.Context, prompt, imagePath string) (string, error) {
	if !c.Available() {
		return "", ErrUnavailable
	}
	img, err := loadImage(imagePath)
	if err != nil {
		return "", err
	}

	reqBody := geminiRequest{
		Contents: []geminiContent{{
			Role: "user",
			Parts: []geminiPart{
				{Text: prompt},
				{InlineData: &geminiInlineData{MIMEType: img.MIMEType, Data: img.Data}},
			},
		}},
	}
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, url.PathEscape(c.model))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response body: %w", err)
	}

	var apiResp geminiResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
		}
		return "", fmt.Errorf("parsing API response: %w", err)
	}
	if apiResp.Error != nil {
		return "", fmt.Errorf("API error %d %s: %s", apiResp.Error.Code, apiResp.Error.Status, apiResp.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}
	if apiResp.PromptFeedback != nil && apiResp.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("prompt blocked: %s", apiResp.PromptFeedback.BlockReason)
	}
	if len(apiResp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in API response")
	}

	var text strings.Builder
	for _, p := range apiResp.Candidates[0].Content.Parts {
		text.WriteString(p.Text)
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("no text in API response (finish reason %s)", apiResp.Candidates[0].FinishReason)
	}
	return text.String(), nil
}
