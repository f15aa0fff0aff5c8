// Package facerec is a client for the face feature-extraction microservice.
// The service receives a base64 image and answers with zero or more
// fixed-length feature vectors, one per detected face.
package facerec

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Client calls the extraction endpoint. It implements facematch.Extractor.
type Client struct {
	baseURL string
	http    *http.Client
	logger  zerolog.Logger
}

// New constructs a client for the given base URL.
func New(baseURL string, logger zerolog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		// Face processing can take a while on cold models.
		http:   &http.Client{Timeout: 30 * time.Second},
		logger: logger.With().Str("component", "facerec").Logger(),
	}
}

type extractRequest struct {
	Image string `json:"image"`
}

type extractResponse struct {
	Vectors [][]float64 `json:"vectors"`
}

// ExtractFeatures posts the image and returns the detected face vectors.
// An empty slice means no face was found; that is not an error here.
func (c *Client) ExtractFeatures(ctx context.Context, image []byte) ([][]float64, error) {
	if len(image) == 0 {
		return nil, fmt.Errorf("image payload required")
	}

	body, err := json.Marshal(extractRequest{Image: base64.StdEncoding.EncodeToString(image)})
	if err != nil {
		return nil, fmt.Errorf("failed to encode extraction request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/extract", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("face service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("face service error %s: %s", resp.Status, string(detail))
	}

	var out extractResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode extraction response: %w", err)
	}

	c.logger.Debug().Int("faces", len(out.Vectors)).Msg("features extracted")

	return out.Vectors, nil
}

// Health checks the extraction service availability.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("face service unavailable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("face service unhealthy: %s", resp.Status)
	}

	return nil
}
