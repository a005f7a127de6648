// Package groq implements a domain.GenerationClient backed by the Groq
// OpenAI-compatible chat completions API.
package groq

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/nextstep-labs/nextstep/internal/adapter/observability"
	"github.com/nextstep-labs/nextstep/internal/config"
	"github.com/nextstep-labs/nextstep/internal/domain"
)

// Client is the secondary generation provider. Like the primary there is
// exactly one attempt per call; failures are handled by provider fallback,
// not retries.
type Client struct {
	apiKey  string
	baseURL string
	model   string
	hc      *http.Client
}

// New constructs a Groq client from configuration.
func New(cfg config.Config) *Client {
	return &Client{
		apiKey:  cfg.GroqAPIKey,
		baseURL: strings.TrimSuffix(cfg.GroqBaseURL, "/"),
		model:   cfg.GroqModel,
		hc:      &http.Client{Timeout: cfg.ProviderTimeout},
	}
}

// Name identifies the provider in logs and metrics.
func (c *Client) Name() string { return "groq" }

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []message `json:"messages"`
	Stream   bool      `json:"stream,omitempty"`
}

// Generate performs a blocking chat completion and returns the first
// choice's message content.
func (c *Client) Generate(ctx domain.Context, prompt string) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("groq api key not configured: %w", domain.ErrProvider)
	}
	start := time.Now()
	defer func() {
		observability.GenerationDuration.WithLabelValues(c.Name()).Observe(time.Since(start).Seconds())
	}()

	body, err := c.do(ctx, chatRequest{
		Model:    c.model,
		Messages: []message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", err
	}
	defer func() { _ = body.Close() }()

	var out struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(body).Decode(&out); err != nil {
		return "", fmt.Errorf("groq decode: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("groq returned no choices: %w", domain.ErrProvider)
	}
	return out.Choices[0].Message.Content, nil
}

// GenerateStream performs a streaming chat completion using SSE delta
// frames terminated by [DONE].
func (c *Client) GenerateStream(ctx domain.Context, prompt string) (<-chan string, <-chan error) {
	out := make(chan string, 16)
	errc := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errc)

		if c.apiKey == "" {
			errc <- fmt.Errorf("groq api key not configured: %w", domain.ErrProvider)
			return
		}
		start := time.Now()
		body, err := c.do(ctx, chatRequest{
			Model:    c.model,
			Messages: []message{{Role: "user", Content: prompt}},
			Stream:   true,
		})
		if err != nil {
			errc <- err
			return
		}
		defer func() { _ = body.Close() }()

		scanner := bufio.NewScanner(body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data:") {
				continue
			}
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if data == "" {
				continue
			}
			if data == "[DONE]" {
				break
			}
			var chunk struct {
				Choices []struct {
					Delta struct {
						Content string `json:"content"`
					} `json:"delta"`
				} `json:"choices"`
			}
			if err := json.Unmarshal([]byte(data), &chunk); err != nil {
				continue
			}
			for _, ch := range chunk.Choices {
				if ch.Delta.Content == "" {
					continue
				}
				select {
				case out <- ch.Delta.Content:
				case <-ctx.Done():
					errc <- ctx.Err()
					return
				}
			}
		}
		if err := scanner.Err(); err != nil {
			errc <- fmt.Errorf("groq stream read: %w", err)
			return
		}
		slog.Debug("groq stream completed",
			slog.String("model", c.model),
			slog.Duration("elapsed", time.Since(start)))
	}()
	return out, errc
}

func (c *Client) do(ctx domain.Context, payload chatRequest) (io.ReadCloser, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("groq marshal: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("groq request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.hc.Do(req)
	if err != nil {
		if errors.Is(err, ctx.Err()) {
			return nil, fmt.Errorf("groq request: %w", err)
		}
		var nerr interface{ Timeout() bool }
		if errors.As(err, &nerr) && nerr.Timeout() {
			return nil, fmt.Errorf("groq request timed out: %w", domain.ErrUpstreamTimeout)
		}
		return nil, fmt.Errorf("groq request: %v: %w", err, domain.ErrProvider)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		_ = resp.Body.Close()
		slog.Warn("groq non-2xx",
			slog.Int("status", resp.StatusCode),
			slog.String("model", c.model),
			slog.String("body", string(snippet)))
		return nil, fmt.Errorf("groq status %d: %s: %w", resp.StatusCode, strings.TrimSpace(string(snippet)), domain.ErrProvider)
	}
	return resp.Body, nil
}
