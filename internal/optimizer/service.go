package optimizer

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/routeops-cli/internal/model"
)

// VisitSource supplies the read-only visit snapshot for one analysis run.
type VisitSource interface {
	ListVisits(ctx context.Context, filter model.VisitFilter) ([]model.Visit, error)
}

// Service is the stateless analysis entry point. All tuning lives in the
// injected configuration; nothing is carried between runs, and each run
// reads a full fresh snapshot.
type Service struct {
	source VisitSource
	search *Search
	maxOut int
}

// NewService wires a Service from its collaborators.
func NewService(source VisitSource, search *Search, maxSuggestions int) *Service {
	if maxSuggestions <= 0 {
		maxSuggestions = DefaultMaxSuggestions
	}
	return &Service{source: source, search: search, maxOut: maxSuggestions}
}

// Analyze runs one full optimization pass: fetch snapshot, group, search,
// rank. A failed snapshot fetch never escapes as an error; it yields an
// empty, not-successful result carrying a debug message so the caller can
// render a graceful empty state.
func (s *Service) Analyze(ctx context.Context, filter model.VisitFilter) *model.OptimizationResult {
	started := time.Now()
	result := &model.OptimizationResult{
		RunID:       uuid.NewString(),
		Suggestions: []model.SwapCandidate{},
		StartedAt:   started,
	}

	visits, err := s.source.ListVisits(ctx, filter)
	if err != nil {
		result.Debug = "fetch visit snapshot: " + err.Error()
		result.Duration = time.Since(started)
		zap.L().Warn("optimizer: snapshot fetch failed",
			zap.String("run_id", result.RunID),
			zap.Error(err),
		)
		return result
	}

	groups := GroupVisits(visits)
	candidates := s.search.FindCandidates(groups)
	result.Suggestions = Rank(candidates, s.maxOut)
	result.Summary = Summarize(result.Suggestions)
	result.VisitCount = len(visits)
	result.GroupCount = len(groups)
	result.Success = true
	result.Duration = time.Since(started)

	zap.L().Info("optimizer: analysis complete",
		zap.String("run_id", result.RunID),
		zap.Int("visits", result.VisitCount),
		zap.Int("groups", result.GroupCount),
		zap.Int("suggestions", result.Summary.Count),
		zap.Float64("total_km", result.Summary.TotalDistanceKM),
		zap.Duration("duration", result.Duration),
	)
	return result
}
