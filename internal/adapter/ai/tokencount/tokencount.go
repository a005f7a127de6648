// Package tokencount provides token counting for generation prompts.
//
// It uses tiktoken-go to measure assembled prompts so chat history can be
// trimmed to a fixed token budget before a provider call, instead of
// guessing by character length.
package tokencount

import (
	"strings"
	"sync"

	"log/slog"

	tiktoken "github.com/pkoukk/tiktoken-go"
)

// Counter provides thread-safe token counting.
type Counter struct {
	encodingCache map[string]*tiktoken.Tiktoken
	mu            sync.RWMutex
}

// NewCounter creates a new token counter instance.
func NewCounter() *Counter {
	return &Counter{
		encodingCache: make(map[string]*tiktoken.Tiktoken),
	}
}

// DefaultCounter is a global token counter instance.
var DefaultCounter = NewCounter()

// getEncodingForModel returns the appropriate tiktoken encoding for a model,
// cached for performance.
func (c *Counter) getEncodingForModel(model string) (*tiktoken.Tiktoken, error) {
	normalizedModel := normalizeModelName(model)

	c.mu.RLock()
	if enc, ok := c.encodingCache[normalizedModel]; ok {
		c.mu.RUnlock()
		return enc, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	if enc, ok := c.encodingCache[normalizedModel]; ok {
		return enc, nil
	}

	enc, err := tiktoken.EncodingForModel(normalizedModel)
	if err != nil {
		// cl100k_base is a reasonable approximation for every model family
		// this service talks to.
		slog.Debug("falling back to cl100k_base encoding",
			slog.String("model", model),
			slog.String("normalized", normalizedModel),
			slog.Any("error", err))
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, err
		}
	}

	c.encodingCache[normalizedModel] = enc
	return enc, nil
}

// normalizeModelName converts provider model IDs to tiktoken-compatible
// names. Neither Gemini nor Groq publish tiktoken vocabularies, so both map
// onto the GPT-4 encoding as an approximation; budget trimming only needs a
// consistent measure, not an exact one.
func normalizeModelName(model string) string {
	model = strings.ToLower(model)
	if strings.Contains(model, "/") {
		parts := strings.Split(model, "/")
		model = parts[len(parts)-1]
	}
	switch {
	case strings.Contains(model, "gpt-4"):
		return "gpt-4"
	case strings.Contains(model, "gpt-3.5"):
		return "gpt-3.5-turbo"
	default:
		return "gpt-4"
	}
}

// CountTokens counts the number of tokens in a text string for a given model.
func (c *Counter) CountTokens(text, model string) (int, error) {
	enc, err := c.getEncodingForModel(model)
	if err != nil {
		return 0, err
	}
	return len(enc.Encode(text, nil, nil)), nil
}

// CountOrEstimate counts tokens and falls back to a rough 4-chars-per-token
// estimate when the encoder is unavailable.
func (c *Counter) CountOrEstimate(text, model string) int {
	n, err := c.CountTokens(text, model)
	if err != nil {
		slog.Warn("token count failed, using estimate",
			slog.String("model", model),
			slog.Any("error", err))
		return len(text) / 4
	}
	return n
}

// TrimToBudget drops the oldest entries of segments until the fixed parts
// plus the surviving segments fit within budget tokens. The newest segments
// are always preferred. A non-positive budget returns segments unchanged.
func (c *Counter) TrimToBudget(fixed string, segments []string, budget int, model string) []string {
	if budget <= 0 || len(segments) == 0 {
		return segments
	}
	remaining := budget - c.CountOrEstimate(fixed, model)
	kept := make([]string, 0, len(segments))
	// Walk newest to oldest, keep while the budget allows.
	for i := len(segments) - 1; i >= 0; i-- {
		cost := c.CountOrEstimate(segments[i], model)
		if cost > remaining {
			break
		}
		remaining -= cost
		kept = append(kept, segments[i])
	}
	// Restore chronological order.
	for i, j := 0, len(kept)-1; i < j; i, j = i+1, j-1 {
		kept[i], kept[j] = kept[j], kept[i]
	}
	return kept
}

// CountTokensDefault uses the default counter to count tokens.
func CountTokensDefault(text, model string) (int, error) {
	return DefaultCounter.CountTokens(text, model)
}
