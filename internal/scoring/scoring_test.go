package scoring_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nextstep-labs/nextstep/internal/catalog"
	"github.com/nextstep-labs/nextstep/internal/domain"
	"github.com/nextstep-labs/nextstep/internal/scoring"
)

func TestInferStreamFromKeywords(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		text string
		want domain.StreamCode
	}{
		{name: "nutrition", text: "Explaining the scientific benefits of the diet and presenting nutritional data.", want: domain.StreamPCB},
		{name: "species", text: "You discover a new SPECIES of plant in your backyard.", want: domain.StreamPCB},
		{name: "health_case_insensitive", text: "A scientific exhibit about a HEALTH issue", want: domain.StreamPCB},
		{name: "robotics", text: "Building a functioning robot arm or demonstrating a chemical reaction.", want: domain.StreamPCM},
		{name: "empty", text: "", want: domain.StreamPCM},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, scoring.InferStreamFromKeywords(tc.text))
		})
	}
}

func TestScore_EmptyAnswers(t *testing.T) {
	t.Parallel()
	c := catalog.MustLoad()
	scores := scoring.Score(c, nil, "")
	require.Len(t, scores, len(domain.CanonicalStreams))
	for _, code := range domain.CanonicalStreams {
		assert.Zero(t, scores[code], "stream %s", code)
	}
	// All-zero tally resolves to the first canonical stream.
	assert.Equal(t, domain.StreamPCM, scoring.Winner(scores))
}

func TestScore_AptitudeCorrectness(t *testing.T) {
	t.Parallel()
	c := catalog.MustLoad()

	// FA1 correct answer is "b", mapped to PCM and COMM.
	scores := scoring.Score(c, map[string]string{"FA1_Math": "b"}, "")
	assert.Equal(t, scoring.AptitudePoints, scores[domain.StreamPCM])
	assert.Equal(t, scoring.AptitudePoints, scores[domain.StreamCOMM])
	assert.Zero(t, scores[domain.StreamARTS])

	// Wrong answers score nothing.
	scores = scoring.Score(c, map[string]string{"FA1_Math": "a"}, "")
	for _, code := range domain.CanonicalStreams {
		assert.Zero(t, scores[code])
	}
}

func TestScore_PreferenceMapping(t *testing.T) {
	t.Parallel()
	c := catalog.MustLoad()
	scores := scoring.Score(c, map[string]string{
		"FB1_FreeTime": "c", // ARTS
		"FC1_Learning": "a", // PCB
		"FD1_Charity":  "d", // VOC
	}, "")
	assert.Equal(t, scoring.PreferencePoints, scores[domain.StreamARTS])
	assert.Equal(t, scoring.PreferencePoints, scores[domain.StreamPCB])
	assert.Equal(t, scoring.PreferencePoints, scores[domain.StreamVOC])
	assert.Zero(t, scores[domain.StreamPCM])
	assert.Zero(t, scores[domain.StreamCOMM])
}

func TestScore_ArchetypeBonus(t *testing.T) {
	t.Parallel()
	c := catalog.MustLoad()

	scores := scoring.Score(c, nil, domain.ArchetypeFocusedSpecialist)
	assert.Equal(t, scoring.ArchetypePoints, scores[domain.StreamPCM])
	assert.Equal(t, scoring.ArchetypePoints, scores[domain.StreamPCB])
	assert.Zero(t, scores[domain.StreamCOMM])

	// Unknown archetypes add nothing.
	scores = scoring.Score(c, nil, "Mystery Wanderer")
	for _, code := range domain.CanonicalStreams {
		assert.Zero(t, scores[code])
	}
}

func TestScore_Deterministic(t *testing.T) {
	t.Parallel()
	c := catalog.MustLoad()
	answers := map[string]string{
		"FA1_Math":     "b",
		"FA2_Science":  "c",
		"FB1_FreeTime": "a",
		"FB3_Media":    "a",
		"FC4_Decision": "b",
		"FD9_Puzzle":   "c",
	}
	first := scoring.Score(c, answers, domain.ArchetypeStrategicBuilder)
	for i := 0; i < 50; i++ {
		assert.Equal(t, first, scoring.Score(c, answers, domain.ArchetypeStrategicBuilder))
		assert.Equal(t, scoring.Winner(first), scoring.Winner(scoring.Score(c, answers, domain.ArchetypeStrategicBuilder)))
	}
}

func TestScore_AddingAnswersNeverDecreases(t *testing.T) {
	t.Parallel()
	c := catalog.MustLoad()
	base := map[string]string{"FA1_Math": "b", "FB1_FreeTime": "c"}
	before := scoring.Score(c, base, domain.ArchetypeVisionaryLeader)

	more := map[string]string{"FA1_Math": "b", "FB1_FreeTime": "c", "FD4_Project": "a"}
	after := scoring.Score(c, more, domain.ArchetypeVisionaryLeader)

	for _, code := range domain.CanonicalStreams {
		assert.GreaterOrEqual(t, after[code], before[code], "stream %s", code)
	}
}

func TestScore_IgnoresUnknownQuestionIDs(t *testing.T) {
	t.Parallel()
	c := catalog.MustLoad()
	scores := scoring.Score(c, map[string]string{"XX9_Ghost": "a", "csrf_token": "abc123"}, "")
	for _, code := range domain.CanonicalStreams {
		assert.Zero(t, scores[code])
	}
}

func TestWinner_TieBreakOrder(t *testing.T) {
	t.Parallel()
	// PCB and COMM tied: PCB is declared earlier and wins.
	scores := map[domain.StreamCode]int{
		domain.StreamPCM:  1,
		domain.StreamPCB:  4,
		domain.StreamCOMM: 4,
		domain.StreamARTS: 0,
		domain.StreamVOC:  2,
	}
	assert.Equal(t, domain.StreamPCB, scoring.Winner(scores))

	// A later stream with a strictly higher score still wins.
	scores[domain.StreamVOC] = 9
	assert.Equal(t, domain.StreamVOC, scoring.Winner(scores))
}

func TestScore_FocusedSpecialistScienceLean(t *testing.T) {
	t.Parallel()
	c := catalog.MustLoad()
	// A science-leaning answer set plus the Focused Specialist bonus must
	// recommend a science stream.
	answers := map[string]string{
		"FA2_Science":  "c", // PCM, PCB, VOC (+2 each)
		"FB3_Media":    "a", // PCB
		"FC1_Learning": "a", // PCB
		"FD2_Plant":    "a", // PCB
	}
	scores := scoring.Score(c, answers, domain.ArchetypeFocusedSpecialist)
	assert.Equal(t, domain.StreamPCB, scoring.Winner(scores))
	assert.Equal(t, 2+1+1+1+3, scores[domain.StreamPCB])
	assert.Equal(t, 2+3, scores[domain.StreamPCM])
}
