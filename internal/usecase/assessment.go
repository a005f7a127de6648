package usecase

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/nextstep-labs/nextstep/internal/adapter/observability"
	"github.com/nextstep-labs/nextstep/internal/catalog"
	"github.com/nextstep-labs/nextstep/internal/domain"
	"github.com/nextstep-labs/nextstep/internal/scoring"
)

// PendingRecommendation is stored as the winner placeholder for the open
// tracks, which have no rule-based stream winner.
const PendingRecommendation = "Pending AI Analysis"

// AssessmentService orchestrates the assessment phases: it runs the scorer
// when the track calls for one, always runs the relevant generator, and
// commits each submission's field group in a single atomic update.
// ProfileInvalidator drops cached chat profile context after a submission
// changes the underlying assessment state.
type ProfileInvalidator interface {
	Invalidate(ctx domain.Context, userID string) error
}

type AssessmentService struct {
	Results    domain.ResultRepository
	Catalog    *catalog.Catalog
	Classifier ArchetypeClassifier
	Analyzer   Phase3Analyzer
	Narrative  NarrativeGenerator
	// Profiles is optional; set when a chat profile cache is in use.
	Profiles ProfileInvalidator
}

// NewAssessmentService constructs an AssessmentService with its dependencies.
func NewAssessmentService(r domain.ResultRepository, cat *catalog.Catalog, cl ArchetypeClassifier, an Phase3Analyzer, na NarrativeGenerator) AssessmentService {
	return AssessmentService{Results: r, Catalog: cat, Classifier: cl, Analyzer: an, Narrative: na}
}

// Start records the selected class level, creating the result row if this
// is the user's first interaction.
func (s AssessmentService) Start(ctx domain.Context, userID, classLevel string) (domain.AssessmentResult, error) {
	if userID == "" {
		return domain.AssessmentResult{}, fmt.Errorf("%w: user id required", domain.ErrInvalidArgument)
	}
	if _, err := domain.ParseTrack(classLevel); err != nil {
		return domain.AssessmentResult{}, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err)
	}
	return s.Results.CreateOrUpdate(ctx, userID, domain.ResultUpdate{SelectedClass: &classLevel})
}

// SubmitArchetype classifies the phase-2 visual answers and persists the
// outcome together with the resolved raw answers. Classification failures
// degrade inside the classifier; the submission itself always persists.
func (s AssessmentService) SubmitArchetype(ctx domain.Context, userID string, answers map[string]string) (domain.AssessmentResult, error) {
	if userID == "" {
		return domain.AssessmentResult{}, fmt.Errorf("%w: user id required", domain.ErrInvalidArgument)
	}
	start := time.Now()
	out, resolved := s.Classifier.Classify(ctx, answers)
	res, err := s.Results.CreateOrUpdate(ctx, userID, domain.ResultUpdate{
		ArchetypeCategory: &out.Category,
		Personality:       &out.Personality,
		GoalStatus:        &out.GoalStatus,
		Confidence:        &out.Confidence,
		Reasoning:         &out.Reasoning,
		RawAnswers:        resolved,
	})
	if err != nil {
		observability.SubmissionsTotal.WithLabelValues("phase2", "error").Inc()
		return domain.AssessmentResult{}, err
	}
	observability.SubmissionsTotal.WithLabelValues("phase2", "ok").Inc()
	s.invalidateProfile(ctx, userID)
	slog.Info("archetype submission persisted",
		slog.String("user_id", userID),
		slog.String("category", out.Category),
		slog.Duration("took", time.Since(start)))
	return res, nil
}

// SubmitPhase3 persists the deep-dive scenario answers with their analysis.
// It requires an existing archetype from phase 2.
func (s AssessmentService) SubmitPhase3(ctx domain.Context, userID string, answers map[string]string) (domain.AssessmentResult, error) {
	if userID == "" {
		return domain.AssessmentResult{}, fmt.Errorf("%w: user id required", domain.ErrInvalidArgument)
	}
	cur, err := s.Results.Load(ctx, userID)
	if err != nil {
		observability.SubmissionsTotal.WithLabelValues("phase3", "error").Inc()
		return domain.AssessmentResult{}, fmt.Errorf("op=assessment.SubmitPhase3: %w", err)
	}
	analysis := s.Analyzer.Analyze(ctx, cur.ArchetypeCategory, answers)
	res, err := s.Results.CreateOrUpdate(ctx, userID, domain.ResultUpdate{
		Phase3Answers:  answers,
		Phase3Analysis: &analysis,
	})
	if err != nil {
		observability.SubmissionsTotal.WithLabelValues("phase3", "error").Inc()
		return domain.AssessmentResult{}, err
	}
	observability.SubmissionsTotal.WithLabelValues("phase3", "ok").Inc()
	s.invalidateProfile(ctx, userID)
	return res, nil
}

// invalidateProfile is best-effort; a failed cache drop only delays fresh
// context by one TTL.
func (s AssessmentService) invalidateProfile(ctx domain.Context, userID string) {
	if s.Profiles == nil {
		return
	}
	if err := s.Profiles.Invalidate(ctx, userID); err != nil {
		slog.Warn("profile cache invalidation failed",
			slog.String("user_id", userID),
			slog.Any("error", err))
	}
}

// SubmitFinal handles the last assessment phase for all tracks. For the
// fixed-stream track it runs the rule-based scorer first; for the open
// tracks it stores an empty tally and a placeholder winner pending the AI
// analysis. The raw answers, tally, winner, and whatever narrative fields
// the generator produced are committed in one update.
func (s AssessmentService) SubmitFinal(ctx domain.Context, userID, mode string, answers map[string]string) (domain.AssessmentResult, error) {
	if userID == "" {
		return domain.AssessmentResult{}, fmt.Errorf("%w: user id required", domain.ErrInvalidArgument)
	}
	track, err := domain.ParseTrack(mode)
	if err != nil {
		return domain.AssessmentResult{}, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err)
	}
	cur, err := s.Results.Load(ctx, userID)
	if err != nil {
		observability.SubmissionsTotal.WithLabelValues("final", "error").Inc()
		return domain.AssessmentResult{}, fmt.Errorf("op=assessment.SubmitFinal: %w", err)
	}

	scores := map[domain.StreamCode]int{}
	recommended := PendingRecommendation
	var winner domain.StreamCode
	if track.Scored() {
		scores = scoring.Score(s.Catalog, answers, cur.ArchetypeCategory)
		winner = scoring.Winner(scores)
		recommended = domain.StreamName(winner)
		observability.StreamRecommendations.WithLabelValues(string(winner)).Inc()
	}

	upd := s.Narrative.Generate(ctx, track, cur, answers, scores, winner)
	upd.Track = &track
	upd.FinalAnswers = answers
	upd.StreamScores = scores
	if upd.RecommendedStream == nil {
		upd.RecommendedStream = &recommended
	}

	res, err := s.Results.CreateOrUpdate(ctx, userID, upd)
	if err != nil {
		observability.SubmissionsTotal.WithLabelValues("final", "error").Inc()
		return domain.AssessmentResult{}, err
	}
	observability.SubmissionsTotal.WithLabelValues("final", "ok").Inc()
	s.invalidateProfile(ctx, userID)
	slog.Info("final submission persisted",
		slog.String("user_id", userID),
		slog.String("track", string(track)),
		slog.String("recommended", res.RecommendedStream))
	return res, nil
}
