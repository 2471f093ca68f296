package llm

import "context"

// PlaceholderResponse is the text returned by PlaceholderClient.
const PlaceholderResponse = "Model response placeholder (offline run)."

// PlaceholderClient implements Client without contacting any model. It lets
// the full pipeline run offline.
type PlaceholderClient struct{}

// NewPlaceholderClient creates a new PlaceholderClient.
func NewPlaceholderClient() *PlaceholderClient {
	return &PlaceholderClient{}
}

// Analyze returns PlaceholderResponse.
func (c *PlaceholderClient) Analyze(ctx context.Context, prompt, imagePath string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return PlaceholderResponse, nil
}

// Available always returns true.
func (c *PlaceholderClient) Available() bool {
	return true
}
