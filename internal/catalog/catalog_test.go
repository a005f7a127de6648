package catalog_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nextstep-labs/nextstep/internal/catalog"
	"github.com/nextstep-labs/nextstep/internal/domain"
)

func TestLoad(t *testing.T) {
	t.Parallel()
	c, err := catalog.Load()
	require.NoError(t, err)
	require.NotNil(t, c)
}

func TestPhase2Questions(t *testing.T) {
	t.Parallel()
	c := catalog.MustLoad()
	qs := c.Phase2Questions()
	require.Len(t, qs, 10)
	assert.Equal(t, "Q1_SocialBattery", qs[0].ID)
	for _, q := range qs {
		assert.Len(t, q.Options, 2, "phase 2 questions are binary: %s", q.ID)
	}
}

func TestScenariosForEveryArchetype(t *testing.T) {
	t.Parallel()
	c := catalog.MustLoad()
	for _, a := range domain.Archetypes {
		set, err := c.ScenariosFor(a)
		require.NoError(t, err, "archetype %s", a)
		assert.Len(t, set.Scenarios, 10)
	}
	_, err := c.ScenariosFor("Mystery Wanderer")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFinalSections(t *testing.T) {
	t.Parallel()
	c := catalog.MustLoad()
	secs := c.FinalSections()
	require.Len(t, secs, 4)
	assert.Equal(t, catalog.KindAptitude, secs[0].Kind)
	require.Len(t, secs[0].Questions, 5)
	require.Len(t, secs[1].Questions, 5)
	require.Len(t, secs[2].Questions, 5)
	require.Len(t, secs[3].Questions, 10)

	// Aptitude questions carry a key and mapped streams.
	for _, q := range secs[0].Questions {
		assert.NotEmpty(t, q.Correct, "aptitude question %s", q.ID)
		assert.NotEmpty(t, q.Streams, "aptitude question %s", q.ID)
	}
	// Preference questions map every option to a stream.
	for _, sec := range secs[1:] {
		assert.Equal(t, catalog.KindPreference, sec.Kind)
		for _, q := range sec.Questions {
			for _, o := range q.Options {
				assert.NotEmpty(t, o.Stream, "question %s option %s", q.ID, o.Value)
				assert.Contains(t, domain.StreamNames, o.Stream)
			}
		}
	}
}

func TestOpenQuestions(t *testing.T) {
	t.Parallel()
	c := catalog.MustLoad()

	q12, err := c.OpenQuestions(domain.TrackOpenScenario12)
	require.NoError(t, err)
	assert.Len(t, q12, 10)

	qAbove, err := c.OpenQuestions(domain.TrackOpenScenarioAbove)
	require.NoError(t, err)
	assert.Len(t, qAbove, 5)

	_, err = c.OpenQuestions(domain.TrackFixedStream)
	require.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestLookupFinal(t *testing.T) {
	t.Parallel()
	c := catalog.MustLoad()

	sec, q, ok := c.LookupFinal("FA5_Logic")
	require.True(t, ok)
	assert.Equal(t, "section_a", sec.Key)
	assert.Equal(t, "b", q.Correct)
	assert.ElementsMatch(t, []domain.StreamCode{
		domain.StreamPCM, domain.StreamPCB, domain.StreamCOMM, domain.StreamARTS,
	}, q.Streams)

	_, _, ok = c.LookupFinal("FZ9_Nope")
	assert.False(t, ok)
}

func TestQuestionText(t *testing.T) {
	t.Parallel()
	c := catalog.MustLoad()
	assert.Contains(t, c.QuestionText(domain.TrackFixedStream, "FD2_Plant"), "new species of plant")
	assert.Contains(t, c.QuestionText(domain.TrackOpenScenario12, "12_Q3"), "free pass")
	assert.Empty(t, c.QuestionText(domain.TrackOpenScenarioAbove, "12_Q3"))
}
