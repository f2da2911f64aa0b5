package optimizer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/routeops-cli/internal/geo"
	"github.com/sells-group/routeops-cli/internal/model"
)

type mockVisitSource struct {
	listFunc func(ctx context.Context, filter model.VisitFilter) ([]model.Visit, error)
}

func (m *mockVisitSource) ListVisits(ctx context.Context, filter model.VisitFilter) ([]model.Visit, error) {
	return m.listFunc(ctx, filter)
}

var _ VisitSource = (*mockVisitSource)(nil)

func fixtureVisits() []model.Visit {
	const lat, lng = 24.0, 46.7
	return []model.Visit{
		visit("C1", "R1", "Monday", 1, "RUH", lat, lng),
		visit("P1", "R1", "Monday", 1, "RUH", lat+fiftyKMDeg, lng),
		visit("P2", "R1", "Monday", 1, "RUH", lat+fiftyKMDeg, lng),
		visit("U1", "R2", "Monday", 1, "RUH", lat, lng),
		visit("U2", "R2", "Monday", 1, "RUH", lat, lng),
	}
}

func newTestService(src VisitSource) *Service {
	return NewService(src, NewSearch(SearchConfig{}, geo.NewSpeedModel(30, 60)), 50)
}

func TestService_Analyze(t *testing.T) {
	src := &mockVisitSource{
		listFunc: func(_ context.Context, filter model.VisitFilter) ([]model.Visit, error) {
			assert.Equal(t, "RUH", filter.BranchCode)
			return fixtureVisits(), nil
		},
	}

	result := newTestService(src).Analyze(context.Background(), model.VisitFilter{BranchCode: "RUH"})

	require.True(t, result.Success)
	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, 5, result.VisitCount)
	assert.Equal(t, 2, result.GroupCount)
	require.NotEmpty(t, result.Suggestions)
	assert.Equal(t, result.Summary.Count, len(result.Suggestions))
}

func TestService_FetchFailureYieldsEmptyResult(t *testing.T) {
	src := &mockVisitSource{
		listFunc: func(context.Context, model.VisitFilter) ([]model.Visit, error) {
			return nil, errors.New("connection refused")
		},
	}

	result := newTestService(src).Analyze(context.Background(), model.VisitFilter{})

	assert.False(t, result.Success)
	assert.Empty(t, result.Suggestions)
	assert.Contains(t, result.Debug, "connection refused")
}

// Re-running on an unchanged snapshot yields an identical candidate set
// (run ids and timings aside).
func TestService_Idempotent(t *testing.T) {
	src := &mockVisitSource{
		listFunc: func(context.Context, model.VisitFilter) ([]model.Visit, error) {
			return fixtureVisits(), nil
		},
	}
	svc := newTestService(src)

	first := svc.Analyze(context.Background(), model.VisitFilter{})
	second := svc.Analyze(context.Background(), model.VisitFilter{})

	assert.Equal(t, first.Suggestions, second.Suggestions)
	assert.Equal(t, first.Summary, second.Summary)
}
