package imagegen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/evyataryagoni/timebot/internal/logger"
)

// ErrNotConfigured means no image-generation endpoint was configured.
var ErrNotConfigured = errors.New("image generation is not configured")

// ErrGeneration means the endpoint answered but not with a usable image URL.
var ErrGeneration = errors.New("image generation failed")

// Client forwards text prompts to an external image-generation endpoint.
// This is a pure passthrough - prompt in, image URL out.
type Client interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// HTTPClient posts {"prompt": ...} to the configured endpoint and expects
// {"url": ...} back.
type HTTPClient struct {
	client   *http.Client
	endpoint string
	logger   *logger.Logger
}

type generateRequest struct {
	Prompt string `json:"prompt"`
}

type generateResponse struct {
	URL   string `json:"url"`
	Error string `json:"error"`
}

// NewHTTPClient creates an image-generation client. An empty endpoint is
// allowed; Generate then reports ErrNotConfigured so the agent can tell the
// user instead of crashing at startup.
func NewHTTPClient(endpoint string, timeout time.Duration, log *logger.Logger) *HTTPClient {
	if log == nil {
		log = logger.NewDefault()
	}
	return &HTTPClient{
		client:   &http.Client{Timeout: timeout},
		endpoint: endpoint,
		logger:   log.WithComponent("ImageGen"),
	}
}

// Generate forwards the prompt and returns the generated image URL.
func (c *HTTPClient) Generate(ctx context.Context, prompt string) (string, error) {
	if c.endpoint == "" {
		return "", ErrNotConfigured
	}

	payload, err := json.Marshal(generateRequest{Prompt: prompt})
	if err != nil {
		return "", fmt.Errorf("%w: encode request: %v", ErrGeneration, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%w: build request: %v", ErrGeneration, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Msg("Image generation request failed")
		return "", fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read body: %v", ErrGeneration, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn().Int("status", resp.StatusCode).Msg("Image generation returned non-success status")
		return "", fmt.Errorf("%w: endpoint returned status %d", ErrGeneration, resp.StatusCode)
	}

	var parsed generateResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("%w: malformed response: %v", ErrGeneration, err)
	}
	if parsed.URL == "" {
		return "", fmt.Errorf("%w: response carries no image URL: %s", ErrGeneration, parsed.Error)
	}

	c.logger.Info().Str("url", parsed.URL).Msg("Image generated")
	return parsed.URL, nil
}

// MockClient is a test double for the Client interface.
type MockClient struct {
	URL           string
	GenerateCalls []string
	GenerateError error
}

// Generate implements the Client interface.
func (m *MockClient) Generate(ctx context.Context, prompt string) (string, error) {
	m.GenerateCalls = append(m.GenerateCalls, prompt)
	if m.GenerateError != nil {
		return "", m.GenerateError
	}
	if m.URL == "" {
		return "https://images.example.com/mock.png", nil
	}
	return m.URL, nil
}
