package optimizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/routeops-cli/internal/geo"
	"github.com/sells-group/routeops-cli/internal/model"
)

// fiftyKMDeg is the latitude offset corresponding to 50 km of great-circle
// distance: 50 * 180 / (pi * 6371).
const fiftyKMDeg = 0.4496608029593652

func newTestSearch() *Search {
	return NewSearch(SearchConfig{MinImprovementKM: 5.0}, geo.NewSpeedModel(30, 60))
}

// Two groups sharing one branch: a customer in A with three peers 50 km away
// and zero distance to all of B's five members must produce a USER_SWAP with
// distanceSaved ~= 50.0 and impactScore 100.
func TestSearch_UserSwapFixture(t *testing.T) {
	const lat, lng = 24.0, 46.7

	groupA := []model.Visit{
		visit("C1", "R1", "Monday", 1, "RUH", lat, lng),
		visit("P1", "R1", "Monday", 1, "RUH", lat+fiftyKMDeg, lng),
		visit("P2", "R1", "Monday", 1, "RUH", lat+fiftyKMDeg, lng),
		visit("P3", "R1", "Monday", 1, "RUH", lat+fiftyKMDeg, lng),
	}
	var groupB []model.Visit
	for _, code := range []string{"B1", "B2", "B3", "B4", "B5"} {
		groupB = append(groupB, visit(code, "R2", "Monday", 1, "RUH", lat, lng))
	}

	groups := GroupVisits(append(groupA, groupB...))
	require.Len(t, groups, 2)

	cands := newTestSearch().FindCandidates(groups)

	var c1 *model.SwapCandidate
	for i := range cands {
		if cands[i].ClientCode == "C1" && cands[i].Type == model.SwapTypeUser {
			c1 = &cands[i]
		}
	}
	require.NotNil(t, c1, "expected a USER_SWAP candidate for C1")

	assert.InDelta(t, 50.0, c1.DistanceSaved, 0.05)
	assert.Equal(t, 100, c1.ImpactScore)
	assert.Equal(t, 95, c1.Confidence) // min(95, 70+50)
	assert.Equal(t, 100, c1.TimeSaved) // 50 km at 30 km/h
	assert.Equal(t, "R1", c1.FromUser)
	assert.Equal(t, "R2", c1.ToUser)
	assert.Equal(t, "Monday", c1.ToDay)
	assert.Contains(t, c1.Reason, "R2")
}

func TestSearch_DaySwap(t *testing.T) {
	const lat, lng = 24.0, 46.7

	visits := []model.Visit{
		// Monday group: customer C1 far from its peer.
		visit("C1", "R1", "Monday", 1, "RUH", lat, lng),
		visit("P1", "R1", "Monday", 1, "RUH", lat+fiftyKMDeg, lng),
		// Tuesday group for the same rep, at C1's location.
		visit("T1", "R1", "Tuesday", 1, "RUH", lat, lng),
		visit("T2", "R1", "Tuesday", 1, "RUH", lat, lng),
	}

	cands := newTestSearch().FindCandidates(GroupVisits(visits))

	var found *model.SwapCandidate
	for i := range cands {
		if cands[i].ClientCode == "C1" && cands[i].Type == model.SwapTypeDay {
			found = &cands[i]
		}
	}
	require.NotNil(t, found, "expected a DAY_SWAP candidate for C1")
	assert.Equal(t, "Tuesday", found.ToDay)
	assert.Equal(t, "R1", found.ToUser)
	assert.InDelta(t, 50.0, found.DistanceSaved, 0.05)
	assert.Contains(t, found.Reason, "Tuesday")
	assert.Contains(t, found.Reason, "backtracking")
}

// Both directions are evaluated independently: the same customer may carry a
// USER_SWAP and a DAY_SWAP candidate before deduplication.
func TestSearch_BothDirectionsForOneCustomer(t *testing.T) {
	const lat, lng = 24.0, 46.7

	visits := []model.Visit{
		visit("C1", "R1", "Monday", 1, "RUH", lat, lng),
		visit("P1", "R1", "Monday", 1, "RUH", lat+fiftyKMDeg, lng),
		visit("U1", "R2", "Monday", 1, "RUH", lat, lng),
		visit("D1", "R1", "Tuesday", 1, "RUH", lat, lng),
	}

	cands := newTestSearch().FindCandidates(GroupVisits(visits))

	types := map[model.SwapType]bool{}
	for _, c := range cands {
		if c.ClientCode == "C1" {
			types[c.Type] = true
		}
	}
	assert.True(t, types[model.SwapTypeUser], "expected USER_SWAP for C1")
	assert.True(t, types[model.SwapTypeDay], "expected DAY_SWAP for C1")
}

func TestSearch_NeverCrossesBranches(t *testing.T) {
	const lat, lng = 24.0, 46.7

	visits := []model.Visit{
		visit("C1", "R1", "Monday", 1, "RUH", lat, lng),
		visit("P1", "R1", "Monday", 1, "RUH", lat+fiftyKMDeg, lng),
		// Perfect target, wrong branch.
		visit("J1", "R2", "Monday", 1, "JED", lat, lng),
		visit("J2", "R2", "Monday", 1, "JED", lat, lng),
	}

	cands := newTestSearch().FindCandidates(GroupVisits(visits))
	assert.Empty(t, cands, "cross-branch candidates must never be emitted")
}

func TestSearch_RespectsMinimumImprovement(t *testing.T) {
	const lat, lng = 24.0, 46.7
	// Peers ~6 km away; target at ~1.5 km. Saving ~4.5 km <= 5.0 threshold.
	sixKM := 6.0 / 50.0 * fiftyKMDeg
	oneHalfKM := 1.5 / 50.0 * fiftyKMDeg

	visits := []model.Visit{
		visit("C1", "R1", "Monday", 1, "RUH", lat, lng),
		visit("P1", "R1", "Monday", 1, "RUH", lat+sixKM, lng),
		visit("U1", "R2", "Monday", 1, "RUH", lat+oneHalfKM, lng),
	}

	cands := newTestSearch().FindCandidates(GroupVisits(visits))
	for _, c := range cands {
		assert.NotEqual(t, "C1", c.ClientCode,
			"saving below threshold must not produce a candidate")
	}
}

// A customer alone in its group gets the 999 km sentinel for the current
// average instead of a division by zero; against any real target group this
// yields a (large) saving, matching the reference behavior.
func TestSearch_LoneCustomerSentinel(t *testing.T) {
	const lat, lng = 24.0, 46.7

	visits := []model.Visit{
		visit("C1", "R1", "Monday", 1, "RUH", lat, lng),
		visit("U1", "R2", "Monday", 1, "RUH", lat, lng),
	}

	cands := newTestSearch().FindCandidates(GroupVisits(visits))

	require.NotEmpty(t, cands)
	var c1 *model.SwapCandidate
	for i := range cands {
		if cands[i].ClientCode == "C1" {
			c1 = &cands[i]
		}
	}
	require.NotNil(t, c1)
	assert.InDelta(t, noPeerSentinelKM, c1.DistanceSaved, 0.05)
	assert.Equal(t, 100, c1.ImpactScore)
}

func TestSearch_DeterministicAcrossRuns(t *testing.T) {
	const lat, lng = 24.0, 46.7

	visits := []model.Visit{
		visit("C1", "R1", "Monday", 1, "RUH", lat, lng),
		visit("P1", "R1", "Monday", 1, "RUH", lat+fiftyKMDeg, lng),
		visit("U1", "R2", "Monday", 1, "RUH", lat, lng),
		visit("D1", "R1", "Tuesday", 1, "RUH", lat, lng),
	}

	s := newTestSearch()
	first := s.FindCandidates(GroupVisits(visits))
	second := s.FindCandidates(GroupVisits(visits))
	assert.Equal(t, first, second)
}
