// HTTP-backed provider speaking the OpenAI chat completions shape to a local
// engine endpoint.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// chatMessage mirrors the OpenAI wire message for upstream calls.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatRequest is the upstream request body.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Stream      bool          `json:"stream"`
}

// chatResponse is the upstream response body.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// HTTPGenerator calls an OpenAI-compatible chat completions endpoint.
type HTTPGenerator struct {
	endpoint    string
	model       string
	temperature float64
	client      *http.Client
}

// NewHTTPGenerator builds a generator for the given endpoint and model.
func NewHTTPGenerator(endpoint, model string, temperature float64, timeout time.Duration) *HTTPGenerator {
	return &HTTPGenerator{
		endpoint:    endpoint,
		model:       model,
		temperature: temperature,
		client:      &http.Client{Timeout: timeout},
	}
}

// Generate implements TextGenerator.
func (g *HTTPGenerator) Generate(ctx context.Context, params GenerateParams) (string, error) {
	temp := params.Temperature
	if temp < 0 {
		temp = g.temperature
	}

	body, err := json.Marshal(chatRequest{
		Model:       g.model,
		Messages:    []chatMessage{{Role: "user", Content: params.Prompt}},
		Temperature: temp,
		MaxTokens:   params.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("encode provider request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build provider request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := g.client.Do(req)
	if err != nil {
		if isConnectionError(err) {
			return "", fmt.Errorf("dial %s: %w", g.endpoint, ErrUnavailable)
		}
		return "", fmt.Errorf("provider request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read provider response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := http.StatusText(resp.StatusCode)
		var decoded chatResponse
		if json.Unmarshal(respBody, &decoded) == nil && decoded.Error != nil {
			msg = decoded.Error.Message
		}
		return "", &ProviderError{Status: resp.StatusCode, Message: msg}
	}

	var decoded chatResponse
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return "", &ProviderError{Message: fmt.Sprintf("unparseable response: %v", err)}
	}
	if decoded.Error != nil {
		return "", &ProviderError{Message: decoded.Error.Message}
	}
	if len(decoded.Choices) == 0 {
		return "", &ProviderError{Message: "response contained no choices"}
	}

	log.Debug().
		Int("prompt_chars", len(params.Prompt)).
		Int("output_chars", len(decoded.Choices[0].Message.Content)).
		Dur("elapsed", time.Since(start)).
		Msg("Generation call completed")

	return decoded.Choices[0].Message.Content, nil
}

// isConnectionError distinguishes "engine not running" from other transport
// failures so callers can map it to ErrUnavailable.
func isConnectionError(err error) bool {
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
