// Package domain holds the core entities and ports of the NextStep
// career-guidance service. It has no dependencies on adapters.
package domain

import (
	"context"
	"errors"
	"time"
)

// Error taxonomy (sentinels)
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrProvider        = errors.New("provider error")
	ErrSanitization    = errors.New("sanitization failure")
	ErrUpstreamTimeout = errors.New("upstream timeout")
	ErrInternal        = errors.New("internal error")
)

// StreamCode identifies one of the five canonical academic streams.
type StreamCode string

// Canonical stream codes. Declaration order is load-bearing: score ties
// resolve to the code declared earlier in CanonicalStreams.
const (
	StreamPCM  StreamCode = "PCM"
	StreamPCB  StreamCode = "PCB"
	StreamCOMM StreamCode = "COMM"
	StreamARTS StreamCode = "ARTS"
	StreamVOC  StreamCode = "VOC"
)

// CanonicalStreams lists every stream code in tie-break order.
var CanonicalStreams = []StreamCode{StreamPCM, StreamPCB, StreamCOMM, StreamARTS, StreamVOC}

// StreamNames maps stream codes to their user-facing names.
var StreamNames = map[StreamCode]string{
	StreamPCM:  "Science (PCM)",
	StreamPCB:  "Science (PCB)",
	StreamCOMM: "Commerce",
	StreamARTS: "Arts & Humanities",
	StreamVOC:  "Vocational Studies",
}

// StreamName resolves a code to its display name, falling back to the raw
// code for unknown values.
func StreamName(c StreamCode) string {
	if n, ok := StreamNames[c]; ok {
		return n
	}
	return string(c)
}

// Archetype labels produced by the phase-2 classification.
const (
	ArchetypeFocusedSpecialist = "Focused Specialist"
	ArchetypeQuietExplorer     = "Quiet Explorer"
	ArchetypeStrategicBuilder  = "Strategic Builder"
	ArchetypeAdaptiveExplorer  = "Adaptive Explorer"
	ArchetypeVisionaryLeader   = "Visionary Leader"
	ArchetypeDynamicGeneralist = "Dynamic Generalist"
)

// Archetypes lists all recognized archetype labels.
var Archetypes = []string{
	ArchetypeFocusedSpecialist,
	ArchetypeQuietExplorer,
	ArchetypeStrategicBuilder,
	ArchetypeAdaptiveExplorer,
	ArchetypeVisionaryLeader,
	ArchetypeDynamicGeneralist,
}

// ArchetypeBonusStreams maps each archetype to the streams that receive the
// archetype bonus during final scoring. Unknown archetypes get no bonus.
var ArchetypeBonusStreams = map[string][]StreamCode{
	ArchetypeFocusedSpecialist: {StreamPCM, StreamPCB},
	ArchetypeQuietExplorer:     {StreamPCB, StreamARTS},
	ArchetypeVisionaryLeader:   {StreamCOMM, StreamARTS},
	ArchetypeStrategicBuilder:  {StreamPCM, StreamCOMM},
	ArchetypeAdaptiveExplorer:  {StreamARTS, StreamVOC},
	ArchetypeDynamicGeneralist: {StreamCOMM, StreamVOC},
}

// Track identifies which question track a submission used.
type Track string

const (
	// TrackFixedStream is the closed-form class-10 track: the only track
	// that runs the rule-based stream scorer.
	TrackFixedStream Track = "10th"
	// TrackOpenScenario12 is the open-ended class-12 track.
	TrackOpenScenario12 Track = "12th"
	// TrackOpenScenarioAbove is the open-ended track for students above
	// class 12.
	TrackOpenScenarioAbove Track = "above12"
)

// ParseTrack validates a mode string from the API into a Track.
func ParseTrack(s string) (Track, error) {
	switch Track(s) {
	case TrackFixedStream, TrackOpenScenario12, TrackOpenScenarioAbove:
		return Track(s), nil
	}
	return "", errors.New("unknown track: " + s)
}

// Scored reports whether the rule-based scorer applies to this track.
func (t Track) Scored() bool { return t == TrackFixedStream }

// User is an account in the system.
type User struct {
	ID            string
	Email         string
	PasswordHash  string
	FullName      string
	ContactNumber string
	Role          string
	CreatedAt     time.Time
}

// GoalOption is one titled recommendation produced for the open tracks:
// a career path (12th) or a higher-education pathway (above 12th).
type GoalOption struct {
	Title  string   `json:"title"`
	Reason string   `json:"reason"`
	Pros   []string `json:"pros,omitempty"`
	Cons   []string `json:"cons,omitempty"`
}

// AssessmentResult is the single durable aggregate per user. It is created
// lazily on the first phase interaction and updated in place by each
// phase's submission; repeat submissions overwrite.
type AssessmentResult struct {
	UserID string

	// Phase 1
	SelectedClass string

	// Phase 2 (archetype classification)
	ArchetypeCategory string
	Personality       string
	GoalStatus        string
	Confidence        float64
	Reasoning         string
	RawAnswers        map[string]string

	// Phase 3 (deep dive)
	Phase3Answers  map[string]string
	Phase3Analysis string

	// Phase 4 (final assessment)
	Track             Track
	FinalAnswers      map[string]string
	StreamScores      map[StreamCode]int
	RecommendedStream string
	FinalAnalysis     string
	StreamPros        []string
	StreamCons        []string
	// GoalOptions and GoalReasoning hold the open-track recommendations
	// as a distinct typed field rather than overloading StreamPros.
	GoalOptions   []GoalOption
	GoalReasoning string
	PrimaryField  string

	UpdatedAt time.Time
}

// ChatMessage is one turn of the counselling chat.
type ChatMessage struct {
	ID        string
	UserID    string
	Sender    string // "user" or "ai"
	Content   string
	CreatedAt time.Time
}

// Feedback is a user-submitted product rating.
type Feedback struct {
	ID        string
	UserID    string
	Content   string
	Rating    int
	CreatedAt time.Time
}

// Ticket is a support request.
type Ticket struct {
	ID          string
	UserID      string
	Subject     string
	Description string
	Status      string
	CreatedAt   time.Time
}

// TicketStatusOpen is the initial ticket status.
const TicketStatusOpen = "Open"

// UserRepository persists accounts.
type UserRepository interface {
	Create(ctx Context, u User) (string, error)
	GetByEmail(ctx Context, email string) (User, error)
	Get(ctx Context, id string) (User, error)
	Delete(ctx Context, id string) error
}

// ResultUpdate carries one field group of an AssessmentResult. Nil fields
// are left untouched by the repository; non-nil fields are written together
// in a single commit.
type ResultUpdate struct {
	SelectedClass *string

	ArchetypeCategory *string
	Personality       *string
	GoalStatus        *string
	Confidence        *float64
	Reasoning         *string
	RawAnswers        map[string]string

	Phase3Answers  map[string]string
	Phase3Analysis *string

	Track             *Track
	FinalAnswers      map[string]string
	StreamScores      map[StreamCode]int
	RecommendedStream *string
	FinalAnalysis     *string
	StreamPros        []string
	StreamCons        []string
	GoalOptions       []GoalOption
	GoalReasoning     *string
	PrimaryField      *string
}

// ResultRepository persists the per-user assessment aggregate.
type ResultRepository interface {
	Load(ctx Context, userID string) (AssessmentResult, error)
	// CreateOrUpdate applies the non-nil fields of upd atomically,
	// creating the row when absent, and returns the merged aggregate.
	CreateOrUpdate(ctx Context, userID string, upd ResultUpdate) (AssessmentResult, error)
}

// ChatRepository persists chat turns.
type ChatRepository interface {
	Append(ctx Context, m ChatMessage) (string, error)
	Recent(ctx Context, userID string, limit int) ([]ChatMessage, error)
}

// FeedbackRepository persists feedback entries.
type FeedbackRepository interface {
	Create(ctx Context, f Feedback) (string, error)
}

// TicketRepository persists support tickets.
type TicketRepository interface {
	Create(ctx Context, t Ticket) (string, error)
	ListByUser(ctx Context, userID string) ([]Ticket, error)
}

// GenerationClient is a generative text provider. Implementations must be
// safe for concurrent use; every call is independent.
type GenerationClient interface {
	// Generate returns the full response text for the prompt.
	Generate(ctx Context, prompt string) (string, error)
	// GenerateStream delivers response text incrementally. The content
	// channel is closed when the stream ends; at most one error is sent
	// on the error channel, which is closed afterwards.
	GenerateStream(ctx Context, prompt string) (<-chan string, <-chan error)
	// Name identifies the provider in logs and metrics.
	Name() string
}

// Context is an alias to context.Context so domain signatures stay concise.
type Context = context.Context
