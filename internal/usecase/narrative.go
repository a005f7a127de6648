// Package usecase contains application business logic services.
package usecase

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/nextstep-labs/nextstep/internal/adapter/ai"
	"github.com/nextstep-labs/nextstep/internal/adapter/observability"
	"github.com/nextstep-labs/nextstep/internal/catalog"
	"github.com/nextstep-labs/nextstep/internal/domain"
)

// NarrativeGenerator builds a track-specific prompt from the accumulated
// assessment state, calls the generation provider, and maps whatever valid
// JSON fields come back onto a partial result update. Generation failures
// never propagate: they degrade to a placeholder analysis string.
type NarrativeGenerator struct {
	Client  domain.GenerationClient
	Cleaner *ai.ResponseCleaner
	Catalog *catalog.Catalog
}

// NewNarrativeGenerator constructs a NarrativeGenerator.
func NewNarrativeGenerator(c domain.GenerationClient, cl *ai.ResponseCleaner, cat *catalog.Catalog) NarrativeGenerator {
	return NarrativeGenerator{Client: c, Cleaner: cl, Catalog: cat}
}

// Generate produces the narrative fields for a final submission. The
// returned update only sets fields the model actually returned; on any
// failure it sets FinalAnalysis to a visible placeholder embedding the
// error and leaves everything else untouched.
func (g NarrativeGenerator) Generate(ctx domain.Context, track domain.Track, res domain.AssessmentResult, answers map[string]string, scores map[domain.StreamCode]int, winner domain.StreamCode) domain.ResultUpdate {
	var (
		upd domain.ResultUpdate
		err error
	)
	if track.Scored() {
		upd, err = g.generateFixed(ctx, res, answers, scores, winner)
	} else {
		upd, err = g.generateOpen(ctx, track, res, answers)
	}
	if err != nil {
		slog.Warn("narrative generation degraded",
			slog.String("track", string(track)),
			slog.Any("error", err))
		observability.NarrativeDegraded.WithLabelValues(string(track)).Inc()
		placeholder := fmt.Sprintf("AI Analysis Unavailable. Recommendation based on scoring rules. (Error: %v)", err)
		return domain.ResultUpdate{FinalAnalysis: &placeholder}
	}
	return upd
}

type fixedNarrative struct {
	RecommendedStream *string  `json:"recommended_stream"`
	FinalAnalysis     *string  `json:"final_analysis"`
	StreamPros        []string `json:"stream_pros"`
	StreamCons        []string `json:"stream_cons"`
}

func (g NarrativeGenerator) generateFixed(ctx domain.Context, res domain.AssessmentResult, answers map[string]string, scores map[domain.StreamCode]int, winner domain.StreamCode) (domain.ResultUpdate, error) {
	prompt := g.buildFixedPrompt(res, answers, scores)
	raw, err := g.Client.Generate(ctx, prompt)
	if err != nil {
		return domain.ResultUpdate{}, err
	}
	var out fixedNarrative
	if err := g.Cleaner.CleanAndParse(raw, &out); err != nil {
		return domain.ResultUpdate{}, fmt.Errorf("%w: %v", domain.ErrSanitization, err)
	}
	// Partial application: absent keys leave the stored fields alone.
	upd := domain.ResultUpdate{
		RecommendedStream: out.RecommendedStream,
		FinalAnalysis:     out.FinalAnalysis,
		StreamPros:        out.StreamPros,
		StreamCons:        out.StreamCons,
	}
	_ = winner // the rule-based winner is already persisted by the orchestrator
	return upd, nil
}

type openNarrative struct {
	PrimaryField     *string             `json:"primary_field"`
	FinalAnalysis    *string             `json:"final_analysis"`
	Options          []domain.GoalOption `json:"options"`
	OverallReasoning *string             `json:"overall_reasoning"`
}

func (g NarrativeGenerator) generateOpen(ctx domain.Context, track domain.Track, res domain.AssessmentResult, answers map[string]string) (domain.ResultUpdate, error) {
	prompt := g.buildOpenPrompt(track, res, answers)
	raw, err := g.Client.Generate(ctx, prompt)
	if err != nil {
		return domain.ResultUpdate{}, err
	}
	var out openNarrative
	if err := g.Cleaner.CleanAndParse(raw, &out); err != nil {
		return domain.ResultUpdate{}, fmt.Errorf("%w: %v", domain.ErrSanitization, err)
	}
	return domain.ResultUpdate{
		PrimaryField:  out.PrimaryField,
		FinalAnalysis: out.FinalAnalysis,
		GoalOptions:   out.Options,
		GoalReasoning: out.OverallReasoning,
	}, nil
}

// buildFixedPrompt reconstructs every answered question as readable text,
// folds in the prior-phase context, and pins the exact JSON schema the
// model must return.
func (g NarrativeGenerator) buildFixedPrompt(res domain.AssessmentResult, answers map[string]string, scores map[domain.StreamCode]int) string {
	var readable []string
	for _, id := range sortedKeys(answers) {
		ans := answers[id]
		_, q, ok := g.Catalog.LookupFinal(id)
		if !ok {
			continue
		}
		text := ans
		for _, opt := range q.Options {
			if opt.Value == ans {
				text = opt.Text
				break
			}
		}
		readable = append(readable, fmt.Sprintf("Question: %s\nSelected Answer: %s", q.Question, text))
	}
	archetype := res.ArchetypeCategory
	if archetype == "" {
		archetype = "Unknown"
	}
	phase3 := res.Phase3Analysis
	if phase3 == "" {
		phase3 = "Not completed"
	}
	var b strings.Builder
	b.WriteString("You are an expert career counselor for Class 10 students. Analyze the following student profile to recommend the best academic stream.\n\n")
	b.WriteString("Student Profile:\n")
	fmt.Fprintf(&b, "- Identified Archetype (Phase 2): %s\n", archetype)
	fmt.Fprintf(&b, "- Deep Dive Analysis (Phase 3): %s\n\n", phase3)
	b.WriteString("Phase 4 Assessment Answers (Aptitude, Interests, Personality, Scenarios):\n")
	b.WriteString(strings.Join(readable, "\n\n"))
	b.WriteString("\n\nPreliminary Rule-Based Scores:\n")
	b.WriteString(marshalScores(scores))
	b.WriteString(`

Task:
1. Recommend the SINGLE best academic stream from: "Science (PCM)", "Science (PCB)", "Commerce", "Arts & Humanities", "Vocational Studies".
2. Provide a "Final Analysis" (approx 150 words) explaining WHY this is the best fit. IMPORTANT: Do NOT refer to question codes like FA1, FB2. Refer to the specific topics or skills mentioned in the answers.
3. Provide a list of 3 "Pros" (Why this is good for the student).
4. Provide a list of 3 "Cons" (Challenges to consider).

Output must be valid JSON only:
{
  "recommended_stream": "Exact Stream Name",
  "final_analysis": "Detailed explanation...",
  "stream_pros": ["Pro 1", "Pro 2", "Pro 3"],
  "stream_cons": ["Con 1", "Con 2", "Con 3"]
}`)
	return b.String()
}

func (g NarrativeGenerator) buildOpenPrompt(track domain.Track, res domain.AssessmentResult, answers map[string]string) string {
	var readable []string
	for _, id := range sortedKeys(answers) {
		text := g.Catalog.QuestionText(track, id)
		if text == "" {
			text = id
		}
		readable = append(readable, fmt.Sprintf("Question: %s\nAnswer: %s", text, answers[id]))
	}
	archetype := res.ArchetypeCategory
	if archetype == "" {
		archetype = "Unknown"
	}
	phase3 := res.Phase3Analysis
	if phase3 == "" {
		phase3 = "Not completed"
	}
	goalKind := "post-12th career paths"
	if track == domain.TrackOpenScenarioAbove {
		goalKind = "higher education & career pathways"
	}
	var b strings.Builder
	b.WriteString("You are an expert academic and career advisor. Based on the student's assessment profile, identify their primary field of interest and recommend 3 distinct ")
	b.WriteString(goalKind)
	b.WriteString(" they can pursue.\n\n")
	b.WriteString("Student Profile:\n")
	fmt.Fprintf(&b, "- Identified Archetype: %s\n", archetype)
	fmt.Fprintf(&b, "- Deep Dive Analysis: %s\n\n", phase3)
	b.WriteString("Assessment Answers:\n")
	b.WriteString(strings.Join(readable, "\n\n"))
	b.WriteString(`

Task:
1. Name the single "primary_field" that best captures the student's interests.
2. Provide a "final_analysis" (approx 100 words) connecting their answers to that field.
3. Recommend exactly 3 distinct options, a mix of traditional and emerging paths. For each: a title, a reason it fits (2-3 sentences), 2 pros, and 2 cons.

Output must be valid JSON only:
{
  "primary_field": "Field Name",
  "final_analysis": "Explanation...",
  "options": [
    {"title": "Option 1", "reason": "...", "pros": ["...", "..."], "cons": ["...", "..."]},
    {"title": "Option 2", "reason": "...", "pros": ["...", "..."], "cons": ["...", "..."]},
    {"title": "Option 3", "reason": "...", "pros": ["...", "..."], "cons": ["...", "..."]}
  ],
  "overall_reasoning": "1-2 sentence summary of why these options align with this student's profile"
}`)
	return b.String()
}

func marshalScores(scores map[domain.StreamCode]int) string {
	named := make(map[string]int, len(scores))
	for code, n := range scores {
		named[domain.StreamName(code)] = n
	}
	b, err := json.MarshalIndent(named, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
