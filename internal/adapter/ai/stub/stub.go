// Package stub implements a deterministic offline domain.GenerationClient.
// It is wired in when no provider API keys are configured, so local
// development and end-to-end tests run without network access.
package stub

import (
	"encoding/json"
	"strings"

	"github.com/nextstep-labs/nextstep/internal/domain"
)

// Client fabricates schema-correct responses by inspecting which output
// keys the prompt asks for.
type Client struct{}

// New constructs the stub client.
func New() *Client { return &Client{} }

// Name identifies the provider in logs.
func (c *Client) Name() string { return "stub" }

// Generate inspects the prompt for the requested output schema and returns
// matching canned JSON. Prompts that do not ask for JSON get plain text.
func (c *Client) Generate(_ domain.Context, prompt string) (string, error) {
	switch {
	case strings.Contains(prompt, "recommended_stream"):
		return marshal(map[string]any{
			"recommended_stream": "Science (PCM)",
			"final_analysis":     "Your responses show a strong pull toward structured, analytical problem solving. You favor objective data over intuition, and the aptitude answers reinforce a comfort with mathematical reasoning. Science (PCM) gives that inclination the widest runway.",
			"stream_pros":        []string{"Strong foundation for engineering and technology careers", "Develops rigorous analytical thinking", "Keeps competitive entrance exams within reach"},
			"stream_cons":        []string{"Heavy workload with demanding mathematics", "Less room for open-ended creative expression", "Narrower fallback options if interest fades"},
		})
	case strings.Contains(prompt, "primary_field"):
		return marshal(map[string]any{
			"primary_field":  "Technology & Applied Sciences",
			"final_analysis": "Your answers show sustained curiosity about how systems work and a preference for learning by doing. The options below lean into that pattern.",
			"options": []map[string]any{
				{"title": "Software Engineering", "reason": "You described debugging and building as energizing rather than draining.", "pros": []string{"High demand across industries", "Skills compound quickly"}, "cons": []string{"Requires continuous re-learning", "Long screen hours"}},
				{"title": "Data Science", "reason": "Pattern-finding showed up repeatedly in your scenario answers.", "pros": []string{"Blends math with real-world questions", "Versatile across domains"}, "cons": []string{"Entry roles can be repetitive", "Strong statistics prerequisite"}},
				{"title": "Product Design", "reason": "You valued how things feel to use, not only how they work.", "pros": []string{"Creative and technical balance", "Visible impact on users"}, "cons": []string{"Subjective success criteria", "Portfolio pressure"}},
			},
		})
	case strings.Contains(prompt, "phase_2_category"):
		return marshal(map[string]any{
			"personality":      "Introvert",
			"goal_status":      "Clear",
			"phase_2_category": domain.ArchetypeFocusedSpecialist,
			"confidence":       0.85,
			"reasoning":        "Consistent preference for solitary, deep-focus options with a clearly named goal.",
		})
	default:
		return "This is a deterministic offline response. Configure provider API keys for real generation.", nil
	}
}

// GenerateStream yields the Generate result in small chunks.
func (c *Client) GenerateStream(ctx domain.Context, prompt string) (<-chan string, <-chan error) {
	out := make(chan string, 4)
	errc := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errc)
		text, err := c.Generate(ctx, prompt)
		if err != nil {
			errc <- err
			return
		}
		const chunkSize = 48
		for len(text) > 0 {
			n := chunkSize
			if n > len(text) {
				n = len(text)
			}
			select {
			case out <- text[:n]:
				text = text[n:]
			case <-ctx.Done():
				errc <- ctx.Err()
				return
			}
		}
	}()
	return out, errc
}

func marshal(v any) (string, error) {
	b, err := json.Marshal(v)
	return string(b), err
}
