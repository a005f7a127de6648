// Package catalog serves the assessment question banks. All question data is
// embedded at build time from YAML files; the catalog is immutable after load.
package catalog

import (
	"embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/nextstep-labs/nextstep/internal/domain"
)

//go:embed data/*.yaml
var dataFS embed.FS

// Option is one selectable answer of a closed-form question. Stream is set
// for preference questions only.
type Option struct {
	Value  string            `yaml:"value" json:"value"`
	Text   string            `yaml:"text" json:"text"`
	Image  string            `yaml:"image,omitempty" json:"image,omitempty"`
	Stream domain.StreamCode `yaml:"stream,omitempty" json:"-"`
}

// FinalQuestion is one question of the fixed-stream final assessment.
// Aptitude questions carry Correct and Streams; preference questions carry a
// stream per option instead.
type FinalQuestion struct {
	ID       string              `yaml:"id" json:"id"`
	Question string              `yaml:"question" json:"question"`
	Options  []Option            `yaml:"options" json:"options"`
	Correct  string              `yaml:"correct,omitempty" json:"-"`
	Streams  []domain.StreamCode `yaml:"streams,omitempty" json:"-"`
}

// Section groups final-assessment questions. Kind is "aptitude" or
// "preference" and selects the scoring rule.
type Section struct {
	Key       string          `yaml:"key" json:"key"`
	Title     string          `yaml:"title" json:"title"`
	Kind      string          `yaml:"kind" json:"-"`
	Questions []FinalQuestion `yaml:"questions" json:"questions"`
}

// Section kinds.
const (
	KindAptitude   = "aptitude"
	KindPreference = "preference"
)

// PhaseQuestion is a binary this-or-that question of the archetype phase.
type PhaseQuestion struct {
	ID      string   `yaml:"id" json:"id"`
	Title   string   `yaml:"title" json:"title"`
	Options []Option `yaml:"options" json:"options"`
}

// OpenQuestion is a free-text scenario question of the open tracks.
type OpenQuestion struct {
	ID      string `yaml:"id" json:"id"`
	Title   string `yaml:"title" json:"title"`
	Text    string `yaml:"text" json:"text"`
	Insight string `yaml:"insight" json:"insight"`
}

// ScenarioOption is one choice of a deep-dive scenario.
type ScenarioOption struct {
	Value string `yaml:"value" json:"value"`
	Text  string `yaml:"text" json:"text"`
	Hint  string `yaml:"hint" json:"hint"`
}

// Scenario is one deep-dive story with its choices.
type Scenario struct {
	ID      string           `yaml:"id" json:"id"`
	Title   string           `yaml:"title" json:"title"`
	Story   string           `yaml:"story" json:"story"`
	Options []ScenarioOption `yaml:"options" json:"options"`
}

// ScenarioSet is the deep-dive scenario bank for one archetype.
type ScenarioSet struct {
	Archetype string     `yaml:"archetype" json:"archetype"`
	Label     string     `yaml:"label" json:"label"`
	Scenarios []Scenario `yaml:"scenarios" json:"scenarios"`
}

// Catalog is the full, immutable question bank.
type Catalog struct {
	phase2       []PhaseQuestion
	scenarioSets map[string]ScenarioSet
	sections     []Section
	open12       []OpenQuestion
	openAbove    []OpenQuestion
	// questionIndex maps final-assessment question IDs for the scorer.
	questionIndex map[string]indexedQuestion
}

type indexedQuestion struct {
	section  Section
	question FinalQuestion
}

// Load parses the embedded YAML banks into a Catalog.
func Load() (*Catalog, error) {
	c := &Catalog{
		scenarioSets:  make(map[string]ScenarioSet),
		questionIndex: make(map[string]indexedQuestion),
	}

	var p2 struct {
		Questions []PhaseQuestion `yaml:"questions"`
	}
	if err := readYAML("data/phase2.yaml", &p2); err != nil {
		return nil, err
	}
	c.phase2 = p2.Questions

	var p3 struct {
		Sets []ScenarioSet `yaml:"sets"`
	}
	if err := readYAML("data/phase3.yaml", &p3); err != nil {
		return nil, err
	}
	for _, s := range p3.Sets {
		c.scenarioSets[s.Archetype] = s
	}

	var fin struct {
		Sections []Section `yaml:"sections"`
	}
	if err := readYAML("data/final_10th.yaml", &fin); err != nil {
		return nil, err
	}
	c.sections = fin.Sections
	for _, sec := range c.sections {
		for _, q := range sec.Questions {
			c.questionIndex[q.ID] = indexedQuestion{section: sec, question: q}
		}
	}

	var o12 struct {
		Questions []OpenQuestion `yaml:"questions"`
	}
	if err := readYAML("data/open_12th.yaml", &o12); err != nil {
		return nil, err
	}
	c.open12 = o12.Questions

	var oAbove struct {
		Questions []OpenQuestion `yaml:"questions"`
	}
	if err := readYAML("data/open_above12.yaml", &oAbove); err != nil {
		return nil, err
	}
	c.openAbove = oAbove.Questions

	return c, nil
}

// MustLoad is Load with a panic on failure; embedded data is validated by
// tests, so failure here means a broken build.
func MustLoad() *Catalog {
	c, err := Load()
	if err != nil {
		panic(err)
	}
	return c
}

func readYAML(name string, out any) error {
	b, err := dataFS.ReadFile(name)
	if err != nil {
		return fmt.Errorf("op=catalog.read name=%s: %w", name, err)
	}
	if err := yaml.Unmarshal(b, out); err != nil {
		return fmt.Errorf("op=catalog.parse name=%s: %w", name, err)
	}
	return nil
}

// Phase2Questions returns the archetype-phase question bank.
func (c *Catalog) Phase2Questions() []PhaseQuestion { return c.phase2 }

// ScenariosFor returns the deep-dive scenario set for an archetype.
func (c *Catalog) ScenariosFor(archetype string) (ScenarioSet, error) {
	s, ok := c.scenarioSets[archetype]
	if !ok {
		return ScenarioSet{}, fmt.Errorf("no scenarios for archetype %q: %w", archetype, domain.ErrNotFound)
	}
	return s, nil
}

// FinalSections returns the fixed-stream assessment sections in order.
func (c *Catalog) FinalSections() []Section { return c.sections }

// OpenQuestions returns the question bank for an open track.
func (c *Catalog) OpenQuestions(t domain.Track) ([]OpenQuestion, error) {
	switch t {
	case domain.TrackOpenScenario12:
		return c.open12, nil
	case domain.TrackOpenScenarioAbove:
		return c.openAbove, nil
	}
	return nil, fmt.Errorf("track %q has no open question bank: %w", t, domain.ErrInvalidArgument)
}

// LookupFinal resolves a fixed-stream question by ID and reports the section
// it belongs to.
func (c *Catalog) LookupFinal(id string) (Section, FinalQuestion, bool) {
	iq, ok := c.questionIndex[id]
	return iq.section, iq.question, ok
}

// QuestionText returns the prompt text for a question of any track, used
// when assembling narrative prompts. Unknown IDs return the empty string.
func (c *Catalog) QuestionText(t domain.Track, id string) string {
	switch t {
	case domain.TrackFixedStream:
		if iq, ok := c.questionIndex[id]; ok {
			return iq.question.Question
		}
	case domain.TrackOpenScenario12, domain.TrackOpenScenarioAbove:
		qs, err := c.OpenQuestions(t)
		if err != nil {
			return ""
		}
		for _, q := range qs {
			if q.ID == id {
				return q.Text
			}
		}
	}
	return ""
}
