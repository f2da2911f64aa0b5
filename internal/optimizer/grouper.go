// Package optimizer discovers route re-assignments that reduce travel
// distance: moving a customer to a different rep's same-day route, or to a
// different day for the same rep. The search is an exact pairwise comparison
// over route groups; candidates are scored, ranked, and deduplicated to one
// best suggestion per customer.
package optimizer

import (
	"fmt"

	"github.com/sells-group/routeops-cli/internal/geo"
	"github.com/sells-group/routeops-cli/internal/model"
)

// GroupKey identifies a route group: the set of visits sharing rep, day and
// week. The struct key is collision-free across the three fields by
// construction.
type GroupKey struct {
	RepCode    string
	DayName    string
	WeekNumber int
}

// String renders the composite key for logs and display.
func (k GroupKey) String() string {
	return fmt.Sprintf("%s|%s|%d", k.RepCode, k.DayName, k.WeekNumber)
}

// RouteGroup is the ephemeral, derived set of visits sharing a GroupKey.
// Branch and RouteName are taken from the first inserted member; the source
// data is assumed homogeneous per group and is not re-validated here.
type RouteGroup struct {
	Key       GroupKey
	Branch    string
	RouteName string
	Members   []model.Visit
}

// GroupVisits partitions a flat visit list into route groups. Visits missing
// any of rep/day/week, or carrying invalid coordinates, are silently dropped;
// that is a data filter, not an error. Groups are returned in first-seen
// order so repeated runs over the same snapshot produce identical output.
func GroupVisits(visits []model.Visit) []*RouteGroup {
	byKey := make(map[GroupKey]*RouteGroup)
	var ordered []*RouteGroup

	for _, v := range visits {
		if v.RepCode == "" || v.DayName == "" || v.WeekNumber == 0 {
			continue
		}
		if !geo.ValidCoordinate(v.Latitude, v.Longitude) {
			continue
		}
		key := GroupKey{RepCode: v.RepCode, DayName: v.DayName, WeekNumber: v.WeekNumber}
		g, ok := byKey[key]
		if !ok {
			g = &RouteGroup{
				Key:       key,
				Branch:    v.BranchCode,
				RouteName: v.RouteName,
			}
			byKey[key] = g
			ordered = append(ordered, g)
		}
		g.Members = append(g.Members, v)
	}

	return ordered
}
