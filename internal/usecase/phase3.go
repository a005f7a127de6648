package usecase

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nextstep-labs/nextstep/internal/catalog"
	"github.com/nextstep-labs/nextstep/internal/domain"
)

// Phase3Analyzer produces the deep-dive work-style analysis from the
// archetype-specific scenario answers.
type Phase3Analyzer struct {
	Client  domain.GenerationClient
	Catalog *catalog.Catalog
}

// NewPhase3Analyzer constructs a Phase3Analyzer.
func NewPhase3Analyzer(c domain.GenerationClient, cat *catalog.Catalog) Phase3Analyzer {
	return Phase3Analyzer{Client: c, Catalog: cat}
}

// Analyze prompts the model for an advice paragraph reflecting on how the
// scenario choices fit the archetype. Failures degrade to a generic line.
func (a Phase3Analyzer) Analyze(ctx domain.Context, archetype string, answers map[string]string) string {
	resolved := a.resolveAnswers(archetype, answers)
	payload, err := json.MarshalIndent(resolved, "", "  ")
	if err != nil {
		payload = []byte("{}")
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Analyze these scenario responses for a student identified as '%s'.\n\n", archetype)
	b.WriteString("Scenarios & Answers:\n")
	b.Write(payload)
	fmt.Fprintf(&b, "\n\nProvide a specific, actionable advice paragraph (approx 3-4 sentences) focusing on their work style preferences revealed by these choices.\nReflect on how they fit into the '%s' archetype based on these nuances.\nReply with the paragraph only, no JSON, no markdown.", archetype)

	text, err := a.Client.Generate(ctx, b.String())
	if err != nil {
		slog.Warn("phase3 analysis degraded",
			slog.String("archetype", archetype),
			slog.Any("error", err))
		return fmt.Sprintf("Analysis for %s: Based on your scenario choices, you show a consistent pattern of behavior aligned with your archetype.", archetype)
	}
	return strings.TrimSpace(text)
}

// resolveAnswers maps scenario option codes back to their display text so
// the model sees choices, not letters. Unknown ids keep the raw value.
func (a Phase3Analyzer) resolveAnswers(archetype string, answers map[string]string) map[string]string {
	set, err := a.Catalog.ScenariosFor(archetype)
	if err != nil {
		return answers
	}
	byID := make(map[string]catalog.Scenario, len(set.Scenarios))
	for _, s := range set.Scenarios {
		byID[s.ID] = s
	}
	resolved := make(map[string]string, len(answers))
	for id, val := range answers {
		resolved[id] = val
		s, ok := byID[id]
		if !ok {
			continue
		}
		for _, opt := range s.Options {
			if opt.Value == val {
				resolved[id] = s.Title + ": " + opt.Text
				break
			}
		}
	}
	return resolved
}
