package usecase

import (
	"fmt"

	"github.com/nextstep-labs/nextstep/internal/domain"
)

// ResultService provides read access to a user's assessment aggregate.
type ResultService struct {
	Results domain.ResultRepository
}

// NewResultService constructs a ResultService.
func NewResultService(r domain.ResultRepository) ResultService {
	return ResultService{Results: r}
}

// Fetch returns the persisted assessment result for the user.
func (s ResultService) Fetch(ctx domain.Context, userID string) (domain.AssessmentResult, error) {
	if userID == "" {
		return domain.AssessmentResult{}, fmt.Errorf("%w: user id required", domain.ErrInvalidArgument)
	}
	res, err := s.Results.Load(ctx, userID)
	if err != nil {
		return domain.AssessmentResult{}, fmt.Errorf("op=result.Fetch: %w", err)
	}
	return res, nil
}
