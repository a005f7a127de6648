// Package gemini implements a domain.GenerationClient backed by the Google
// Generative Language API.
package gemini

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

// Client calls the generateContent and streamGenerateContent endpoints.
// One attempt per call: retry-for-latency is deliberately left to the
// fallback layer, which switches provider instead.
type Client struct {
	apiKey  string
	baseURL string
	model   string
	hc      *http.Client
}

// New constructs a Gemini client from configuration.
func New(cfg config.Config) *Client {
	return &Client{
		apiKey:  cfg.GeminiAPIKey,
		baseURL: strings.TrimSuffix(cfg.GeminiBaseURL, "/"),
		model:   cfg.GeminiModel,
		hc:      &http.Client{Timeout: cfg.ProviderTimeout},
	}
}

// Name identifies the provider in logs and metrics.
func (c *Client) Name() string { return "gemini" }

type request struct {
	Contents []content `json:"contents"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type response struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *apiError `json:"error"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// Generate performs a blocking generateContent call and returns the
// concatenated text of the first candidate.
func (c *Client) Generate(ctx domain.Context, prompt string) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("gemini api key not configured: %w", domain.ErrProvider)
	}
	start := time.Now()
	defer func() {
		observability.GenerationDuration.WithLabelValues(c.Name()).Observe(time.Since(start).Seconds())
	}()

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	body, err := c.do(ctx, url, prompt, "")
	if err != nil {
		return "", err
	}
	defer func() { _ = body.Close() }()

	var out response
	if err := json.NewDecoder(body).Decode(&out); err != nil {
		return "", fmt.Errorf("gemini decode: %w", err)
	}
	if out.Error != nil {
		return "", fmt.Errorf("gemini api error status=%s: %s: %w", out.Error.Status, out.Error.Message, domain.ErrProvider)
	}
	if len(out.Candidates) == 0 {
		return "", fmt.Errorf("gemini returned no candidates: %w", domain.ErrProvider)
	}
	var sb strings.Builder
	for _, p := range out.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String(), nil
}

// GenerateStream performs a streamGenerateContent call with SSE framing and
// forwards candidate text incrementally.
func (c *Client) GenerateStream(ctx domain.Context, prompt string) (<-chan string, <-chan error) {
	out := make(chan string, 16)
	errc := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errc)

		if c.apiKey == "" {
			errc <- fmt.Errorf("gemini api key not configured: %w", domain.ErrProvider)
			return
		}
		start := time.Now()
		url := fmt.Sprintf("%s/models/%s:streamGenerateContent?alt=sse&key=%s", c.baseURL, c.model, c.apiKey)
		body, err := c.do(ctx, url, prompt, "text/event-stream")
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
			if data == "" || data == "[DONE]" {
				continue
			}
			var chunk response
			if err := json.Unmarshal([]byte(data), &chunk); err != nil {
				continue
			}
			if chunk.Error != nil {
				errc <- fmt.Errorf("gemini stream error status=%s: %s: %w", chunk.Error.Status, chunk.Error.Message, domain.ErrProvider)
				return
			}
			if len(chunk.Candidates) == 0 {
				continue
			}
			for _, p := range chunk.Candidates[0].Content.Parts {
				if p.Text == "" {
					continue
				}
				select {
				case out <- p.Text:
				case <-ctx.Done():
					errc <- ctx.Err()
					return
				}
			}
		}
		if err := scanner.Err(); err != nil {
			errc <- fmt.Errorf("gemini stream read: %w", err)
			return
		}
		slog.Debug("gemini stream completed",
			slog.String("model", c.model),
			slog.Duration("elapsed", time.Since(start)))
	}()
	return out, errc
}

// do issues the POST and normalizes transport and status failures into
// domain errors. The caller owns the returned body.
func (c *Client) do(ctx domain.Context, url, prompt, accept string) (io.ReadCloser, error) {
	payload := request{Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}}}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("gemini marshal: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("gemini request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		if errors.Is(err, ctx.Err()) {
			return nil, fmt.Errorf("gemini request: %w", err)
		}
		var nerr interface{ Timeout() bool }
		if errors.As(err, &nerr) && nerr.Timeout() {
			return nil, fmt.Errorf("gemini request timed out: %w", domain.ErrUpstreamTimeout)
		}
		return nil, fmt.Errorf("gemini request: %v: %w", err, domain.ErrProvider)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		_ = resp.Body.Close()
		slog.Warn("gemini non-2xx",
			slog.Int("status", resp.StatusCode),
			slog.String("model", c.model),
			slog.String("body", string(snippet)))
		return nil, fmt.Errorf("gemini status %d: %s: %w", resp.StatusCode, strings.TrimSpace(string(snippet)), domain.ErrProvider)
	}
	return resp.Body, nil
}
