package cleaning

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/routeops-cli/internal/model"
)

func record(id, name, branch string, lat, lng float64) model.CustomerRecord {
	return model.CustomerRecord{
		ID:        id,
		NameEn:    name,
		Branch:    branch,
		Latitude:  lat,
		Longitude: lng,
	}
}

func TestDetect_NearbySameName(t *testing.T) {
	// ~5 meters apart in latitude.
	records := []model.CustomerRecord{
		record("1", "Panda Market", "RUH", 24.700000, 46.700000),
		record("2", "Panda Market", "JED", 24.700045, 46.700000),
	}

	pairs := NewDetector().Detect(records)

	require.Len(t, pairs, 1)
	assert.Equal(t, "1", pairs[0].A.ID)
	assert.Equal(t, "2", pairs[0].B.ID)
	assert.Equal(t, "same-location", pairs[0].ConflictType)
	assert.Contains(t, pairs[0].Proof, "names match")
	assert.Contains(t, pairs[0].Proof, "coordinates within")
	assert.NotContains(t, pairs[0].Proof, "same branch")
}

// Greedy single consumption: once matched, a record never appears in a
// second pair in the same run.
func TestDetect_SingleConsumption(t *testing.T) {
	records := []model.CustomerRecord{
		record("1", "Panda Market", "RUH", 24.700000, 46.700000),
		record("2", "Panda Market", "RUH", 24.700045, 46.700000),
		record("3", "Panda Market", "RUH", 24.700090, 46.700000),
	}

	pairs := NewDetector().Detect(records)

	require.Len(t, pairs, 1, "three-way cluster yields exactly one pair")
	seen := map[string]int{}
	for _, p := range pairs {
		seen[p.A.ID]++
		seen[p.B.ID]++
	}
	for id, n := range seen {
		assert.Equal(t, 1, n, "record %s consumed more than once", id)
	}
}

func TestDetect_NoMatchWhenNothingFires(t *testing.T) {
	records := []model.CustomerRecord{
		record("1", "Panda Market", "RUH", 24.7, 46.7),
		record("2", "Carrefour", "JED", 21.5, 39.2),
	}

	pairs := NewDetector().Detect(records)
	assert.Empty(t, pairs)
}

// Name similarity alone is not enough; one of proximity or branch equality
// must also hold.
func TestDetect_NameAloneInsufficient(t *testing.T) {
	records := []model.CustomerRecord{
		record("1", "Panda Market", "RUH", 24.7, 46.7),
		record("2", "Panda Market", "JED", 21.5, 39.2),
	}

	pairs := NewDetector().Detect(records)
	assert.Empty(t, pairs)
}

func TestDetect_BranchEqualityPath(t *testing.T) {
	records := []model.CustomerRecord{
		record("1", "Panda Market", "RUH", 24.7, 46.7),
		record("2", "Panda Market", "RUH", 21.5, 39.2), // far away, same branch
	}

	pairs := NewDetector().Detect(records)

	require.Len(t, pairs, 1)
	assert.Equal(t, "same-branch", pairs[0].ConflictType)
	assert.Contains(t, pairs[0].Proof, "same branch")
}

func TestDetect_BothEvidences(t *testing.T) {
	records := []model.CustomerRecord{
		record("1", "Panda Market", "RUH", 24.700000, 46.700000),
		record("2", "Panda", "RUH", 24.700045, 46.700000),
	}

	pairs := NewDetector().Detect(records)

	require.Len(t, pairs, 1)
	assert.Equal(t, "same-location-and-branch", pairs[0].ConflictType)
	assert.True(t, pairs[0].Evidence.Proximity)
	assert.True(t, pairs[0].Evidence.SameBranch)
}

// Records without usable coordinates can still match through the branch
// path, but never through proximity.
func TestDetect_InvalidCoordinates(t *testing.T) {
	records := []model.CustomerRecord{
		record("1", "Panda Market", "", 0, 0),
		record("2", "Panda Market", "", 0, 0),
	}
	assert.Empty(t, NewDetector().Detect(records))

	records = []model.CustomerRecord{
		record("1", "Panda Market", "RUH", 0, 0),
		record("2", "Panda Market", "RUH", 0, 0),
	}
	pairs := NewDetector().Detect(records)
	require.Len(t, pairs, 1)
	assert.False(t, pairs[0].Evidence.Proximity)
}

func TestDetect_ProgressCallback(t *testing.T) {
	records := []model.CustomerRecord{
		record("1", "A Market", "RUH", 24.7, 46.7),
		record("2", "B Market", "JED", 21.5, 39.2),
		record("3", "C Market", "DMM", 26.4, 50.1),
	}

	var calls []int
	NewDetector(WithProgress(func(done, total int) {
		assert.Equal(t, 3, total)
		calls = append(calls, done)
	})).Detect(records)

	assert.Equal(t, []int{1, 2, 3}, calls)
}

func TestDetect_EmissionOrder(t *testing.T) {
	records := []model.CustomerRecord{
		record("a1", "Alpha Stores", "RUH", 24.7, 46.7),
		record("b1", "Beta Stores", "RUH", 24.8, 46.8),
		record("a2", "Alpha Stores", "RUH", 21.5, 39.2),
		record("b2", "Beta Stores", "RUH", 21.6, 39.3),
	}

	pairs := NewDetector().Detect(records)

	require.Len(t, pairs, 2)
	assert.Equal(t, "a1", pairs[0].A.ID, "pairs emitted in first-record index order")
	assert.Equal(t, "b1", pairs[1].A.ID)
}
