package detect

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// RemoteDetectorConfig configures the HTTP detector client.
type RemoteDetectorConfig struct {
	// URL is the inference service endpoint, e.g. "http://gliner:8080/detect".
	URL string `json:"url"`

	// Timeout bounds a single detection request.
	Timeout time.Duration `json:"timeout"`
}

// DefaultRemoteDetectorConfig returns default detector client settings.
func DefaultRemoteDetectorConfig() *RemoteDetectorConfig {
	return &RemoteDetectorConfig{
		URL:     "http://localhost:8080/detect",
		Timeout: 10 * time.Second,
	}
}

// RemoteDetector calls an entity-recognition inference service over
// HTTP. The service contract is a single POST accepting
// {text, labels, threshold} and returning a span list.
type RemoteDetector struct {
	url    string
	client *http.Client
}

// Ensure RemoteDetector implements the Detector interface.
var _ Detector = (*RemoteDetector)(nil)

// NewRemoteDetector creates a detector client with the given configuration.
func NewRemoteDetector(config *RemoteDetectorConfig) *RemoteDetector {
	if config == nil {
		config = DefaultRemoteDetectorConfig()
	}
	return &RemoteDetector{
		url: config.URL,
		client: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

type detectRequest struct {
	Text      string   `json:"text"`
	Labels    []string `json:"labels"`
	Threshold float64  `json:"threshold"`
}

type detectResponse struct {
	Entities []Span `json:"entities"`
}

// Detect sends text to the inference service and returns the raw spans.
func (d *RemoteDetector) Detect(ctx context.Context, text string, labels []string, threshold float64) ([]Span, error) {
	body, err := json.Marshal(detectRequest{
		Text:      text,
		Labels:    labels,
		Threshold: threshold,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding detect request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building detect request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling detector: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("detector returned status %d", resp.StatusCode)
	}

	var parsed detectResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decoding detect response: %w", err)
	}

	return parsed.Entities, nil
}
