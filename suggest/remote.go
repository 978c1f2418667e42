package suggest

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"io"
	"net/http"
)

// maxResponseBytes bounds the body read from a remote advisor.
const maxResponseBytes = 1 << 20

// Remote asks a vision service for a suggestion. The image is POSTed as
// PNG and the reply must be the JSON accepted by ParseResponse.
type Remote struct {
	URL string
	// Client defaults to http.DefaultClient.
	Client *http.Client
}

// Suggest implements Advisor.
func (r Remote) Suggest(ctx context.Context, img image.Image) (Suggestion, error) {
	var body bytes.Buffer
	if err := png.Encode(&body, img); err != nil {
		return Suggestion{}, fmt.Errorf("suggest: encode image: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.URL, &body)
	if err != nil {
		return Suggestion{}, fmt.Errorf("suggest: build request: %w", err)
	}
	req.Header.Set("Content-Type", "image/png")
	req.Header.Set("Accept", "application/json")

	client := r.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return Suggestion{}, fmt.Errorf("suggest: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Suggestion{}, fmt.Errorf("suggest: advisor returned %s", resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Suggestion{}, fmt.Errorf("suggest: read response: %w", err)
	}
	return ParseResponse(data)
}
