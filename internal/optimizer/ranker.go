package optimizer

import (
	"sort"

	"github.com/sells-group/routeops-cli/internal/geo"
	"github.com/sells-group/routeops-cli/internal/model"
)

// DefaultMaxSuggestions caps the ranked list handed to the UI.
const DefaultMaxSuggestions = 50

// Rank sorts candidates by impact score descending, keeps the first
// occurrence per client code (each physical customer's single best
// suggestion), and truncates to max. The sort is stable, so exact impact
// ties are broken by scan order; across differently ordered inputs that
// tie-break is arbitrary. Candidate ids are renumbered sequentially over the
// retained set.
func Rank(candidates []model.SwapCandidate, max int) []model.SwapCandidate {
	if max <= 0 {
		max = DefaultMaxSuggestions
	}

	ranked := make([]model.SwapCandidate, len(candidates))
	copy(ranked, candidates)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].ImpactScore > ranked[j].ImpactScore
	})

	seen := make(map[string]bool, len(ranked))
	out := ranked[:0]
	for _, c := range ranked {
		if seen[c.ClientCode] {
			continue
		}
		seen[c.ClientCode] = true
		c.ID = len(out) + 1
		out = append(out, c)
		if len(out) == max {
			break
		}
	}
	return out
}

// Summarize computes the aggregate statistics for a retained candidate set:
// total km saved (1 dp), total hours saved (minutes/60, 1 dp), and count.
func Summarize(candidates []model.SwapCandidate) model.OptimizationSummary {
	var km float64
	var minutes int
	for _, c := range candidates {
		km += c.DistanceSaved
		minutes += c.TimeSaved
	}
	return model.OptimizationSummary{
		TotalDistanceKM: geo.Round1(km),
		TotalTimeHours:  geo.Round1(float64(minutes) / 60),
		Count:           len(candidates),
	}
}
