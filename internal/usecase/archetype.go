package usecase

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nextstep-labs/nextstep/internal/adapter/ai"
	"github.com/nextstep-labs/nextstep/internal/catalog"
	"github.com/nextstep-labs/nextstep/internal/domain"
)

// ArchetypeClassifier turns the visual this-or-that answers of the second
// phase into one of the six personality archetypes via the generation
// provider. Classification failures degrade to an error archetype rather
// than failing the submission.
type ArchetypeClassifier struct {
	Client  domain.GenerationClient
	Cleaner *ai.ResponseCleaner
	Catalog *catalog.Catalog
}

// NewArchetypeClassifier constructs an ArchetypeClassifier.
func NewArchetypeClassifier(c domain.GenerationClient, cl *ai.ResponseCleaner, cat *catalog.Catalog) ArchetypeClassifier {
	return ArchetypeClassifier{Client: c, Cleaner: cl, Catalog: cat}
}

// ArchetypeOutcome is the parsed classification for one user.
type ArchetypeOutcome struct {
	Personality string  `json:"personality"`
	GoalStatus  string  `json:"goal_status"`
	Category    string  `json:"phase_2_category"`
	Confidence  float64 `json:"confidence"`
	Reasoning   string  `json:"reasoning"`
}

// Classify resolves answer codes to option text, prompts the model, and
// parses the classification. The returned map carries the resolved answer
// texts so callers can persist them alongside the outcome.
func (c ArchetypeClassifier) Classify(ctx domain.Context, answers map[string]string) (ArchetypeOutcome, map[string]string) {
	resolved := c.resolveAnswers(answers)
	prompt := c.buildPrompt(resolved)
	raw, err := c.Client.Generate(ctx, prompt)
	if err == nil {
		var out ArchetypeOutcome
		perr := c.Cleaner.CleanAndParse(raw, &out)
		if perr == nil {
			return out, resolved
		}
		err = fmt.Errorf("%w: %v", domain.ErrSanitization, perr)
	}
	slog.Warn("archetype classification degraded", slog.Any("error", err))
	return ArchetypeOutcome{
		Personality: "Error",
		GoalStatus:  "Error",
		Category:    "System Error",
		Confidence:  0,
		Reasoning:   "Could not process assessment at this time.",
	}, resolved
}

// resolveAnswers swaps each option code for its display text; unknown
// question ids keep the raw submitted value.
func (c ArchetypeClassifier) resolveAnswers(answers map[string]string) map[string]string {
	byID := make(map[string]catalog.PhaseQuestion)
	for _, q := range c.Catalog.Phase2Questions() {
		byID[q.ID] = q
	}
	resolved := make(map[string]string, len(answers))
	for id, val := range answers {
		resolved[id] = val
		q, ok := byID[id]
		if !ok {
			continue
		}
		for _, opt := range q.Options {
			if opt.Value == val {
				resolved[id] = opt.Text
				break
			}
		}
	}
	return resolved
}

func (c ArchetypeClassifier) buildPrompt(resolved map[string]string) string {
	payload, err := json.MarshalIndent(resolved, "", "  ")
	if err != nil {
		payload = []byte("{}")
	}
	var b strings.Builder
	b.WriteString(`You are an expert student career psychologist.

Your task:
1. Identify the user's Personality Type based on Q1-Q6:
   - Introvert
   - Ambivert
   - Extrovert

2. Identify Goal Status based on Q7-Q10:
   - Goal Aware
   - Exploring

3. Combine them into ONE of these 6 categories (Phase 2 Category):
   - Focused Specialist
   - Quiet Explorer
   - Strategic Builder
   - Adaptive Explorer
   - Visionary Leader
   - Dynamic Generalist

Rules:
- Do NOT invent traits.
- Use majority patterns, but handle mixed answers intelligently.
- Output must be VALID JSON only. Do not include markdown formatting.

Structure:
{
  "personality": "String",
  "goal_status": "String",
  "phase_2_category": "String",
  "confidence": 0.0,
  "reasoning": "String (2-3 sentences max)"
}

User Answers (Text Descriptions of Visual Choices):
`)
	b.Write(payload)
	return b.String()
}
