package postgres

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"

	"github.com/nextstep-labs/nextstep/internal/domain"
)

// ResultRepo persists the per-user assessment aggregate. Each submission's
// field group is applied in a single upsert statement so readers never see
// a partially-updated aggregate.
type ResultRepo struct{ Pool PgxPool }

// NewResultRepo constructs a ResultRepo with the given pool.
func NewResultRepo(p PgxPool) *ResultRepo { return &ResultRepo{Pool: p} }

const resultColumns = `user_id, selected_class, archetype_category, personality, goal_status, confidence, reasoning,
	raw_answers, phase3_answers, phase3_analysis, track, final_answers, stream_scores,
	recommended_stream, final_analysis, stream_pros, stream_cons, goal_options, goal_reasoning, primary_field, updated_at`

// Load returns the aggregate for a user.
func (r *ResultRepo) Load(ctx domain.Context, userID string) (domain.AssessmentResult, error) {
	tracer := otel.Tracer("repo.results")
	ctx, span := tracer.Start(ctx, "results.Load")
	defer span.End()
	q := `SELECT ` + resultColumns + ` FROM assessment_results WHERE user_id=$1`
	res, err := scanResult(r.Pool.QueryRow(ctx, q, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.AssessmentResult{}, fmt.Errorf("op=result.load: %w", domain.ErrNotFound)
		}
		return domain.AssessmentResult{}, fmt.Errorf("op=result.load: %w", err)
	}
	return res, nil
}

// CreateOrUpdate applies the non-nil fields of upd in one upsert and
// returns the merged aggregate.
func (r *ResultRepo) CreateOrUpdate(ctx domain.Context, userID string, upd domain.ResultUpdate) (domain.AssessmentResult, error) {
	tracer := otel.Tracer("repo.results")
	ctx, span := tracer.Start(ctx, "results.CreateOrUpdate")
	defer span.End()

	cols := []string{"user_id", "updated_at"}
	args := []any{userID, time.Now().UTC()}
	add := func(col string, v any) {
		cols = append(cols, col)
		args = append(args, v)
	}
	if upd.SelectedClass != nil {
		add("selected_class", *upd.SelectedClass)
	}
	if upd.ArchetypeCategory != nil {
		add("archetype_category", *upd.ArchetypeCategory)
	}
	if upd.Personality != nil {
		add("personality", *upd.Personality)
	}
	if upd.GoalStatus != nil {
		add("goal_status", *upd.GoalStatus)
	}
	if upd.Confidence != nil {
		add("confidence", *upd.Confidence)
	}
	if upd.Reasoning != nil {
		add("reasoning", *upd.Reasoning)
	}
	if upd.RawAnswers != nil {
		add("raw_answers", upd.RawAnswers)
	}
	if upd.Phase3Answers != nil {
		add("phase3_answers", upd.Phase3Answers)
	}
	if upd.Phase3Analysis != nil {
		add("phase3_analysis", *upd.Phase3Analysis)
	}
	if upd.Track != nil {
		add("track", string(*upd.Track))
	}
	if upd.FinalAnswers != nil {
		add("final_answers", upd.FinalAnswers)
	}
	if upd.StreamScores != nil {
		add("stream_scores", upd.StreamScores)
	}
	if upd.RecommendedStream != nil {
		add("recommended_stream", *upd.RecommendedStream)
	}
	if upd.FinalAnalysis != nil {
		add("final_analysis", *upd.FinalAnalysis)
	}
	if upd.StreamPros != nil {
		add("stream_pros", upd.StreamPros)
	}
	if upd.StreamCons != nil {
		add("stream_cons", upd.StreamCons)
	}
	if upd.GoalOptions != nil {
		add("goal_options", upd.GoalOptions)
	}
	if upd.GoalReasoning != nil {
		add("goal_reasoning", *upd.GoalReasoning)
	}
	if upd.PrimaryField != nil {
		add("primary_field", *upd.PrimaryField)
	}

	placeholders := make([]string, len(cols))
	sets := make([]string, 0, len(cols)-1)
	for i, col := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		if col != "user_id" {
			sets = append(sets, col+"=EXCLUDED."+col)
		}
	}
	q := fmt.Sprintf(`INSERT INTO assessment_results (%s) VALUES (%s)
	ON CONFLICT (user_id) DO UPDATE SET %s
	RETURNING `+resultColumns,
		strings.Join(cols, ", "), strings.Join(placeholders, ","), strings.Join(sets, ", "))

	res, err := scanResult(r.Pool.QueryRow(ctx, q, args...))
	if err != nil {
		return domain.AssessmentResult{}, fmt.Errorf("op=result.upsert: %w", err)
	}
	return res, nil
}

func scanResult(row pgx.Row) (domain.AssessmentResult, error) {
	var (
		res   domain.AssessmentResult
		track string
	)
	err := row.Scan(&res.UserID, &res.SelectedClass, &res.ArchetypeCategory, &res.Personality, &res.GoalStatus,
		&res.Confidence, &res.Reasoning, &res.RawAnswers, &res.Phase3Answers, &res.Phase3Analysis,
		&track, &res.FinalAnswers, &res.StreamScores, &res.RecommendedStream, &res.FinalAnalysis,
		&res.StreamPros, &res.StreamCons, &res.GoalOptions, &res.GoalReasoning, &res.PrimaryField, &res.UpdatedAt)
	if err != nil {
		return domain.AssessmentResult{}, err
	}
	res.Track = domain.Track(track)
	return res, nil
}
