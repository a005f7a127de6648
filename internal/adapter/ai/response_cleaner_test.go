package ai

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanJSONResponse_FencedWithTrailingComma(t *testing.T) {
	t.Parallel()
	rc := NewResponseCleaner()

	in := "Here is the result:\n```json\n{\"a\":1,}\n```"
	out := rc.CleanJSONResponse(in)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, map[string]any{"a": float64(1)}, got)
}

func TestCleanJSONResponse_IdempotentOnCleanInput(t *testing.T) {
	t.Parallel()
	rc := NewResponseCleaner()

	clean := `{"recommended_stream":"Commerce","stream_pros":["a","b","c"],"nested":{"k":1}}`
	once := rc.CleanJSONResponse(clean)
	twice := rc.CleanJSONResponse(once)
	assert.Equal(t, clean, once)
	assert.Equal(t, once, twice)
}

func TestCleanJSONResponse_ProseAroundNestedObject(t *testing.T) {
	t.Parallel()
	rc := NewResponseCleaner()

	in := `Sure! Based on the answers, my recommendation is:
{"analysis":"deep {nested} braces","options":[{"title":"A"},{"title":"B"}]}
Hope this helps.`
	out := rc.CleanJSONResponse(in)
	assert.True(t, rc.IsValidJSON(out), "output: %s", out)

	var got struct {
		Options []struct {
			Title string `json:"title"`
		} `json:"options"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got.Options, 2)
	assert.Equal(t, "B", got.Options[1].Title)
}

func TestCleanJSONResponse_TrailingCommaInArray(t *testing.T) {
	t.Parallel()
	rc := NewResponseCleaner()

	out := rc.CleanJSONResponse(`{"pros":["x","y","z",],"cons":[],}`)
	assert.True(t, rc.IsValidJSON(out), "output: %s", out)
}

func TestCleanJSONResponse_NoObjectPassesThrough(t *testing.T) {
	t.Parallel()
	rc := NewResponseCleaner()

	in := "I cannot produce JSON for this request."
	assert.Equal(t, in, rc.CleanJSONResponse(in))
}

func TestCleanAndParse(t *testing.T) {
	t.Parallel()
	rc := NewResponseCleaner()

	var out struct {
		A int `json:"a"`
	}
	require.NoError(t, rc.CleanAndParse("```json\n{\"a\": 7,}\n```", &out))
	assert.Equal(t, 7, out.A)

	err := rc.CleanAndParse("no json here at all", &out)
	require.Error(t, err)
	var verr *JSONValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "no json here at all", verr.Original)
}
