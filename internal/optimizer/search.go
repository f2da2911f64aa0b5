package optimizer

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/sells-group/routeops-cli/internal/geo"
	"github.com/sells-group/routeops-cli/internal/model"
)

// DefaultMinImprovementKM is the minimum average-distance improvement a move
// must deliver before it is surfaced as a suggestion.
const DefaultMinImprovementKM = 5.0

// noPeerSentinelKM stands in for the average peer distance of a customer
// with zero valid peers in its own group. A lone customer must never report
// huge savings from a division by zero, but still scores poorly against any
// real target group.
const noPeerSentinelKM = 999.0

// SearchConfig tunes the swap candidate search.
type SearchConfig struct {
	MinImprovementKM float64
}

// Search evaluates every customer in every route group against every
// compatible other group and emits move candidates that beat the improvement
// threshold. The search is exact: O(G^2 * M^2) over G groups of average size
// M. Do not replace it with an approximate neighbor search without
// re-pinning the fixture outputs.
type Search struct {
	cfg       SearchConfig
	estimator geo.TravelTimeEstimator
}

// NewSearch creates a Search. A nil estimator falls back to the default
// speed model.
func NewSearch(cfg SearchConfig, estimator geo.TravelTimeEstimator) *Search {
	if cfg.MinImprovementKM <= 0 {
		cfg.MinImprovementKM = DefaultMinImprovementKM
	}
	if estimator == nil {
		estimator = geo.NewSpeedModel(0, 0)
	}
	return &Search{cfg: cfg, estimator: estimator}
}

// FindCandidates runs both swap directions over the grouped snapshot.
// A customer may yield both a USER_SWAP and a DAY_SWAP candidate in the same
// run; deduplication is the ranker's job. Candidate ids are sequential and
// run-scoped.
func (s *Search) FindCandidates(groups []*RouteGroup) []model.SwapCandidate {
	var out []model.SwapCandidate

	for _, g := range groups {
		for _, other := range groups {
			if g == other {
				continue
			}
			swapType, ok := compatible(g, other)
			if !ok {
				continue
			}
			out = s.compareGroups(g, other, swapType, out)
		}
	}

	zap.L().Debug("optimizer: search complete",
		zap.Int("groups", len(groups)),
		zap.Int("candidates", len(out)),
	)
	return out
}

// compatible decides whether a move from g to other is a USER_SWAP (same
// day+week, different rep), a DAY_SWAP (same rep+week, different day), or
// neither. Groups with different branch tags never match; a group with no
// branch tag matches nothing.
func compatible(g, other *RouteGroup) (model.SwapType, bool) {
	if g.Branch == "" || g.Branch != other.Branch {
		return "", false
	}
	gk, ok := g.Key, other.Key
	if gk.WeekNumber != ok.WeekNumber {
		return "", false
	}
	if gk.DayName == ok.DayName && gk.RepCode != ok.RepCode {
		return model.SwapTypeUser, true
	}
	if gk.RepCode == ok.RepCode && gk.DayName != ok.DayName {
		return model.SwapTypeDay, true
	}
	return "", false
}

func (s *Search) compareGroups(g, other *RouteGroup, swapType model.SwapType, out []model.SwapCandidate) []model.SwapCandidate {
	for i, c := range g.Members {
		if !geo.ValidCoordinate(c.Latitude, c.Longitude) {
			continue
		}

		avgCurrent := avgDistanceToPeers(c, g.Members, i)
		avgOther, peers := avgDistanceToMembers(c, other.Members)
		if peers == 0 {
			// Target group has no valid-coordinate members; skip the
			// pair entirely.
			continue
		}

		saved := avgCurrent - avgOther
		if saved <= s.cfg.MinImprovementKM {
			continue
		}

		out = append(out, s.buildCandidate(len(out)+1, c, g, other, swapType, saved, avgCurrent))
	}
	return out
}

func (s *Search) buildCandidate(id int, c model.Visit, g, other *RouteGroup, swapType model.SwapType, saved, avgCurrent float64) model.SwapCandidate {
	impact := int(math.Min(100, math.Round(saved/avgCurrent*100)))
	confidence := int(math.Min(95, 70+math.Round(saved)))
	rounded := geo.Round1(saved)

	cand := model.SwapCandidate{
		ID:            id,
		Type:          swapType,
		ClientCode:    c.ClientCode,
		CustomerName:  c.CustomerName(),
		District:      c.District,
		Branch:        g.Branch,
		FromUser:      g.Key.RepCode,
		FromDay:       g.Key.DayName,
		FromWeek:      g.Key.WeekNumber,
		FromRoute:     g.RouteName,
		ToUser:        other.Key.RepCode,
		ToDay:         other.Key.DayName,
		ToWeek:        other.Key.WeekNumber,
		ToRoute:       other.RouteName,
		DistanceSaved: rounded,
		TimeSaved:     s.estimator.Minutes(saved, true),
		ImpactScore:   impact,
		Confidence:    confidence,
		Latitude:      c.Latitude,
		Longitude:     c.Longitude,
	}

	switch swapType {
	case model.SwapTypeUser:
		cand.Reason = fmt.Sprintf(
			"Customer in %s district sits %.1f km closer to %s's route (branch %s) than to its current group",
			c.District, rounded, other.Key.RepCode, other.Branch,
		)
	case model.SwapTypeDay:
		cand.Reason = fmt.Sprintf(
			"Visiting this %s district customer on %s instead removes %.1f km of backtracking",
			c.District, other.Key.DayName, rounded,
		)
	}
	return cand
}

// avgDistanceToPeers is the mean haversine distance from c to every other
// valid-coordinate member of its own group. Self-exclusion is positional:
// client codes are not guaranteed unique across data glitches, and a
// same-code sibling is still a peer. Zero valid peers yields the sentinel,
// not a division by zero.
func avgDistanceToPeers(c model.Visit, members []model.Visit, selfIdx int) float64 {
	var sum float64
	var n int
	for i, m := range members {
		if i == selfIdx {
			continue
		}
		if !geo.ValidCoordinate(m.Latitude, m.Longitude) {
			continue
		}
		sum += geo.Haversine(c.Latitude, c.Longitude, m.Latitude, m.Longitude)
		n++
	}
	if n == 0 {
		return noPeerSentinelKM
	}
	return sum / float64(n)
}

// avgDistanceToMembers is the mean haversine distance from c to every
// valid-coordinate member of a target group, and the peer count used.
func avgDistanceToMembers(c model.Visit, members []model.Visit) (float64, int) {
	var sum float64
	var n int
	for _, m := range members {
		if !geo.ValidCoordinate(m.Latitude, m.Longitude) {
			continue
		}
		sum += geo.Haversine(c.Latitude, c.Longitude, m.Latitude, m.Longitude)
		n++
	}
	if n == 0 {
		return 0, 0
	}
	return sum / float64(n), n
}
