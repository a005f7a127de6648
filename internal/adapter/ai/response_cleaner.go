// Package ai provides the provider-facing plumbing shared by all generation
// calls: response sanitization and primary/secondary fallback.
package ai

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// ResponseCleaner extracts a single JSON object from raw model output.
// Models routinely wrap JSON in markdown fences or explanatory prose and
// leave trailing commas; the cleaner strips all of that. It never fabricates
// fields: if the input contains no object at all, the input is returned
// unchanged so the caller's parse fails with a clear error.
type ResponseCleaner struct{}

// NewResponseCleaner creates a new response cleaner.
func NewResponseCleaner() *ResponseCleaner {
	return &ResponseCleaner{}
}

var trailingCommaRe = regexp.MustCompile(`,(\s*[}\]])`)

// CleanJSONResponse sanitizes raw model output into a JSON object string.
// Idempotent: running it on already-clean JSON returns the same text.
func (rc *ResponseCleaner) CleanJSONResponse(response string) string {
	extracted := rc.extractJSON(response)
	if extracted == "" {
		// No object span at all: hand the original back untouched.
		return response
	}
	extracted = rc.removeMarkdownBlocks(extracted)
	extracted = trailingCommaRe.ReplaceAllString(extracted, "$1")
	if rc.IsValidJSON(extracted) {
		return extracted
	}
	// Last resort for structurally broken output (unbalanced quotes,
	// single-quoted keys). Repair failures fall through to the caller's
	// parse error.
	if fixed, err := jsonrepair.JSONRepair(extracted); err == nil {
		return fixed
	}
	return extracted
}

// extractJSON slices the outermost {...} span. The last closing brace is
// found greedily so nested objects survive intact. Returns "" when the text
// holds no such span.
func (rc *ResponseCleaner) extractJSON(response string) string {
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start == -1 || end <= start {
		return ""
	}
	return response[start : end+1]
}

// removeMarkdownBlocks drops fence markers that survived inside the sliced
// span (a fence between the braces would otherwise corrupt the object).
func (rc *ResponseCleaner) removeMarkdownBlocks(response string) string {
	response = strings.ReplaceAll(response, "```json", "")
	response = strings.ReplaceAll(response, "```", "")
	return strings.TrimSpace(response)
}

// IsValidJSON checks if a string is valid JSON.
func (rc *ResponseCleaner) IsValidJSON(response string) bool {
	var tmp any
	return json.Unmarshal([]byte(response), &tmp) == nil
}

// CleanAndParse sanitizes the response and unmarshals it into out. The
// returned error wraps the original and cleaned text for observability.
func (rc *ResponseCleaner) CleanAndParse(response string, out any) error {
	cleaned := rc.CleanJSONResponse(response)
	if err := json.Unmarshal([]byte(cleaned), out); err != nil {
		return &JSONValidationError{Original: response, Cleaned: cleaned, Err: err}
	}
	return nil
}

// JSONValidationError reports model output that stayed unparseable after
// sanitization.
type JSONValidationError struct {
	Original string
	Cleaned  string
	Err      error
}

func (e *JSONValidationError) Error() string {
	return "response is not valid JSON after cleanup: " + e.Err.Error()
}

func (e *JSONValidationError) Unwrap() error { return e.Err }
