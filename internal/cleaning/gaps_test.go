package cleaning

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/routeops-cli/internal/model"
)

type mockReverser struct {
	reverseFunc func(ctx context.Context, lat, lng float64) (string, error)
	calls       int
}

func (m *mockReverser) Reverse(ctx context.Context, lat, lng float64) (string, error) {
	m.calls++
	return m.reverseFunc(ctx, lat, lng)
}

var _ Reverser = (*mockReverser)(nil)

func TestGapAnalyzer_PlaceholderWithoutReverser(t *testing.T) {
	records := []model.CustomerRecord{
		{ID: "1", Latitude: 24.713600, Longitude: 46.675300},
		{ID: "2", Latitude: 24.713600, Longitude: 46.675300},
		{ID: "3", Latitude: 21.485800, Longitude: 39.192500},
	}

	proposals := NewGapAnalyzer(nil).Proposals(context.Background(), records)

	require.Len(t, proposals, 3)
	assert.Equal(t, "Near 24.713600, 46.675300", proposals[0].NewValue)
	assert.Equal(t, proposals[0].NewValue, proposals[1].NewValue,
		"records sharing coordinates share one proposed address")
	assert.Equal(t, "Near 21.485800, 39.192500", proposals[2].NewValue)
	assert.Equal(t, AddressField, proposals[0].Field)
	assert.Equal(t, "1_address", proposals[0].Key())
}

func TestGapAnalyzer_SkipsRecordsWithAddressOrNoCoords(t *testing.T) {
	records := []model.CustomerRecord{
		{ID: "1", Latitude: 24.7, Longitude: 46.7, Address: "King Fahd Rd"},
		{ID: "2"}, // no coordinates
		{ID: "3", Latitude: 24.7, Longitude: 46.7},
	}

	proposals := NewGapAnalyzer(nil).Proposals(context.Background(), records)

	require.Len(t, proposals, 1)
	assert.Equal(t, "3", proposals[0].RecordID)
}

func TestGapAnalyzer_UsesReverserOncePerGroup(t *testing.T) {
	rev := &mockReverser{
		reverseFunc: func(_ context.Context, lat, lng float64) (string, error) {
			return "Olaya Street, Riyadh", nil
		},
	}
	records := []model.CustomerRecord{
		{ID: "1", Latitude: 24.7, Longitude: 46.7},
		{ID: "2", Latitude: 24.7, Longitude: 46.7},
	}

	proposals := NewGapAnalyzer(rev).Proposals(context.Background(), records)

	require.Len(t, proposals, 2)
	assert.Equal(t, "Olaya Street, Riyadh", proposals[0].NewValue)
	assert.Equal(t, 1, rev.calls, "one lookup per coordinate group")
}

func TestGapAnalyzer_ReverserFailureFallsBack(t *testing.T) {
	rev := &mockReverser{
		reverseFunc: func(context.Context, float64, float64) (string, error) {
			return "", errors.New("rate limited")
		},
	}
	records := []model.CustomerRecord{
		{ID: "1", Latitude: 24.7, Longitude: 46.7},
	}

	proposals := NewGapAnalyzer(rev).Proposals(context.Background(), records)

	require.Len(t, proposals, 1)
	assert.Equal(t, "Near 24.700000, 46.700000", proposals[0].NewValue)
}

func TestAnalyzeBranchVariations_Fixture(t *testing.T) {
	records := []model.CustomerRecord{
		{ID: "1", Branch: "Riyadh-01"},
		{ID: "2", Branch: "Riyadh-02"},
		{ID: "3", Branch: "Riyadh_03"},
		{ID: "4", Branch: "Jeddah"},
	}

	clusters := AnalyzeBranchVariations(records)

	require.Len(t, clusters, 1, "a single Jeddah with no sibling variation produces no cluster")
	assert.Equal(t, "Riyadh", clusters[0].Master)
	assert.ElementsMatch(t, []string{"Riyadh-01", "Riyadh-02", "Riyadh_03"}, clusters[0].Variations)
	assert.ElementsMatch(t, []string{"1", "2", "3"}, clusters[0].RecordIDs)
}

func TestAnalyzeBranchVariations_RepeatedLabelsNotVariations(t *testing.T) {
	records := []model.CustomerRecord{
		{ID: "1", Branch: "Dammam-01"},
		{ID: "2", Branch: "Dammam-01"},
	}

	assert.Empty(t, AnalyzeBranchVariations(records),
		"one distinct raw label is not a variation cluster")
}

func TestAnalyzeBranchVariations_ShortMastersRejected(t *testing.T) {
	records := []model.CustomerRecord{
		{ID: "1", Branch: "AB-01"},
		{ID: "2", Branch: "AB-02"},
	}
	assert.Empty(t, AnalyzeBranchVariations(records))
}
