// Package scoring implements the rule-based stream scorer for the
// fixed-stream assessment track. Scoring is pure and deterministic: the same
// answers and archetype always produce the same tally and winner.
package scoring

import (
	"strings"

	"github.com/nextstep-labs/nextstep/internal/catalog"
	"github.com/nextstep-labs/nextstep/internal/domain"
)

// Point weights per answer kind.
const (
	AptitudePoints   = 2
	PreferencePoints = 1
	ArchetypePoints  = 3
)

// pcbKeywords steer option "a" answers toward PCB when the question text
// suggests life sciences; everything else defaults to PCM.
var pcbKeywords = []string{"plant", "health", "bio", "nutri", "species", "cures"}

// InferStreamFromKeywords resolves the PCM/PCB ambiguity of an option "a"
// answer from the surrounding question text. Matching is case-insensitive
// substring search.
func InferStreamFromKeywords(text string) domain.StreamCode {
	lower := strings.ToLower(text)
	for _, kw := range pcbKeywords {
		if strings.Contains(lower, kw) {
			return domain.StreamPCB
		}
	}
	return domain.StreamPCM
}

// Score tallies the fixed-stream answers against the question bank and
// applies the archetype bonus. Every canonical stream is present in the
// returned map, zero-valued streams included. Unanswered questions score
// nothing; answers for unknown question IDs are ignored.
func Score(cat *catalog.Catalog, answers map[string]string, archetype string) map[domain.StreamCode]int {
	scores := make(map[domain.StreamCode]int, len(domain.CanonicalStreams))
	for _, c := range domain.CanonicalStreams {
		scores[c] = 0
	}
	addPoints := func(streams []domain.StreamCode, points int) {
		for _, s := range streams {
			if _, ok := scores[s]; ok {
				scores[s] += points
			}
		}
	}

	for _, sec := range cat.FinalSections() {
		for _, q := range sec.Questions {
			ans, ok := answers[q.ID]
			if !ok || ans == "" {
				continue
			}
			if sec.Kind == catalog.KindAptitude {
				if ans == q.Correct {
					addPoints(q.Streams, AptitudePoints)
				}
				continue
			}
			scoreMissing := true
			for _, opt := range q.Options {
				if opt.Value != ans {
					continue
				}
				scoreMissing = false
				if opt.Stream != "" {
					addPoints([]domain.StreamCode{opt.Stream}, PreferencePoints)
				} else {
					addPoints([]domain.StreamCode{fallbackStream(ans, q.Question+" "+opt.Text)}, PreferencePoints)
				}
				break
			}
			if scoreMissing {
				if s := fallbackStream(ans, q.Question); s != "" {
					addPoints([]domain.StreamCode{s}, PreferencePoints)
				}
			}
		}
	}

	if bonus, ok := domain.ArchetypeBonusStreams[archetype]; ok {
		addPoints(bonus, ArchetypePoints)
	}
	return scores
}

// fallbackStream maps an answer letter to a stream when the option carries
// no explicit mapping. Answers outside a-d score nothing.
func fallbackStream(ans, text string) domain.StreamCode {
	switch ans {
	case "a":
		return InferStreamFromKeywords(text)
	case "b":
		return domain.StreamCOMM
	case "c":
		return domain.StreamARTS
	case "d":
		return domain.StreamVOC
	}
	return ""
}

// Winner picks the highest-scoring stream. Ties resolve to the stream that
// appears first in domain.CanonicalStreams, so the result is stable across
// runs regardless of map iteration order.
func Winner(scores map[domain.StreamCode]int) domain.StreamCode {
	best := domain.CanonicalStreams[0]
	bestScore := scores[best]
	for _, c := range domain.CanonicalStreams[1:] {
		if scores[c] > bestScore {
			best, bestScore = c, scores[c]
		}
	}
	return best
}
