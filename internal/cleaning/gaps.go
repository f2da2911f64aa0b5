package cleaning

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sells-group/routeops-cli/internal/geo"
	"github.com/sells-group/routeops-cli/internal/model"
)

// Reverser resolves coordinates to a human-readable address. The gap
// analyzer works without one; a nil Reverser means proposals carry a
// coordinate-derived placeholder instead of a looked-up address.
type Reverser interface {
	Reverse(ctx context.Context, lat, lng float64) (string, error)
}

// AddressField is the record field targeted by gap-fill proposals.
const AddressField = "address"

// BranchField is the record field targeted by branch consolidation.
const BranchField = "branch"

// GapAnalyzer proposes address fill-ins for records that carry coordinates
// but no address.
type GapAnalyzer struct {
	reverser Reverser
}

// NewGapAnalyzer creates a GapAnalyzer. reverser may be nil.
func NewGapAnalyzer(reverser Reverser) *GapAnalyzer {
	return &GapAnalyzer{reverser: reverser}
}

// Proposals groups records by exact coordinate string among those with valid
// coordinates and an empty address, and proposes one shared address per
// coordinate group. One lookup (or placeholder) serves every record at that
// location.
func (g *GapAnalyzer) Proposals(ctx context.Context, records []model.CustomerRecord) []model.StandardizationProposal {
	type coordGroup struct {
		lat, lng float64
		members  []model.CustomerRecord
	}
	byCoord := make(map[string]*coordGroup)
	var order []string

	for _, r := range records {
		if r.Address != "" || !geo.ValidCoordinate(r.Latitude, r.Longitude) {
			continue
		}
		key := fmt.Sprintf("%.6f,%.6f", r.Latitude, r.Longitude)
		grp, ok := byCoord[key]
		if !ok {
			grp = &coordGroup{lat: r.Latitude, lng: r.Longitude}
			byCoord[key] = grp
			order = append(order, key)
		}
		grp.members = append(grp.members, r)
	}

	var proposals []model.StandardizationProposal
	for _, key := range order {
		grp := byCoord[key]
		address := g.resolveAddress(ctx, grp.lat, grp.lng)
		for _, r := range grp.members {
			proposals = append(proposals, model.StandardizationProposal{
				RecordID: r.ID,
				Field:    AddressField,
				OldValue: r.Address,
				NewValue: address,
			})
		}
	}
	return proposals
}

// resolveAddress asks the reverse geocoder when one is configured and falls
// back to a descriptive coordinate placeholder. The placeholder is an
// explicit stand-in, not a pretend geocode result.
func (g *GapAnalyzer) resolveAddress(ctx context.Context, lat, lng float64) string {
	if g.reverser != nil {
		addr, err := g.reverser.Reverse(ctx, lat, lng)
		if err == nil && addr != "" {
			return addr
		}
		if err != nil {
			zap.L().Debug("cleaning: reverse geocode failed, using placeholder",
				zap.Float64("lat", lat),
				zap.Float64("lng", lng),
				zap.Error(err),
			)
		}
	}
	return fmt.Sprintf("Near %.6f, %.6f", lat, lng)
}

// AnalyzeBranchVariations groups records by derived branch master name and
// surfaces a consolidation cluster for every master observed under more than
// one distinct raw label.
func AnalyzeBranchVariations(records []model.CustomerRecord) []model.BranchVariationCluster {
	type branchGroup struct {
		variations []string
		seen       map[string]bool
		recordIDs  []string
	}
	byMaster := make(map[string]*branchGroup)
	var order []string

	for _, r := range records {
		master := BranchMaster(r.Branch)
		if master == "" {
			continue
		}
		grp, ok := byMaster[master]
		if !ok {
			grp = &branchGroup{seen: make(map[string]bool)}
			byMaster[master] = grp
			order = append(order, master)
		}
		if !grp.seen[r.Branch] {
			grp.seen[r.Branch] = true
			grp.variations = append(grp.variations, r.Branch)
		}
		grp.recordIDs = append(grp.recordIDs, r.ID)
	}

	var clusters []model.BranchVariationCluster
	for _, master := range order {
		grp := byMaster[master]
		if len(grp.variations) < 2 {
			continue
		}
		clusters = append(clusters, model.BranchVariationCluster{
			Master:     master,
			Variations: grp.variations,
			RecordIDs:  grp.recordIDs,
		})
	}
	return clusters
}
