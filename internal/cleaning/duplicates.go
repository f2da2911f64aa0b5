package cleaning

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/routeops-cli/internal/geo"
	"github.com/sells-group/routeops-cli/internal/model"
)

// DefaultProximityDeg is the planar degree-space threshold below which two
// records count as co-located; roughly 100 m at the equator. This is a
// coarse same-building check, not a geodesic distance.
const DefaultProximityDeg = 0.001

// ProgressFunc reports scan progress to the calling layer. The scan itself
// is a plain blocking computation; responsiveness is the caller's concern.
type ProgressFunc func(done, total int)

// Detector finds probable duplicate customer pairs in a single greedy pass:
// each record is consumed by at most one pair, and the first match wins.
// The pairing is order-dependent on the input slice; switching to an
// exhaustive or maximum-weight matching would change which records in a
// cluster of three or more get paired and must be treated as a behavior
// change, not a bug fix.
type Detector struct {
	proximityDeg float64
	progress     ProgressFunc
}

// DetectorOption configures a Detector.
type DetectorOption func(*Detector)

// WithProximity overrides the degree-space proximity threshold.
func WithProximity(deg float64) DetectorOption {
	return func(d *Detector) {
		if deg > 0 {
			d.proximityDeg = deg
		}
	}
}

// WithProgress installs a progress callback, invoked once per outer-loop
// record.
func WithProgress(fn ProgressFunc) DetectorOption {
	return func(d *Detector) { d.progress = fn }
}

// NewDetector creates a Detector.
func NewDetector(opts ...DetectorOption) *Detector {
	d := &Detector{proximityDeg: DefaultProximityDeg}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Detect scans the full dataset for duplicate pairs. A pair matches when the
// names are similar AND the records are either co-located or share a branch.
// Pairs are emitted in the order their lower-indexed record appears in the
// input.
func (d *Detector) Detect(records []model.CustomerRecord) []model.DuplicatePair {
	var pairs []model.DuplicatePair
	processed := make([]bool, len(records))

	for i := range records {
		if d.progress != nil {
			d.progress(i+1, len(records))
		}
		if processed[i] {
			continue
		}
		for j := i + 1; j < len(records); j++ {
			if processed[j] {
				continue
			}
			pair, ok := d.match(records[i], records[j])
			if !ok {
				continue
			}
			pairs = append(pairs, pair)
			processed[i] = true
			processed[j] = true
			break
		}
	}

	zap.L().Debug("cleaning: duplicate scan complete",
		zap.Int("records", len(records)),
		zap.Int("pairs", len(pairs)),
	)
	return pairs
}

func (d *Detector) match(a, b model.CustomerRecord) (model.DuplicatePair, bool) {
	evidence := model.DuplicateProof{
		NameSimilar: NameSimilar(a.Name(), b.Name()),
		SameBranch:  a.Branch != "" && a.Branch == b.Branch,
	}
	if geo.ValidCoordinate(a.Latitude, a.Longitude) && geo.ValidCoordinate(b.Latitude, b.Longitude) {
		evidence.Proximity = geo.DegreeDistance(a.Latitude, a.Longitude, b.Latitude, b.Longitude) < d.proximityDeg
	}

	if !evidence.NameSimilar || (!evidence.Proximity && !evidence.SameBranch) {
		return model.DuplicatePair{}, false
	}

	return model.DuplicatePair{
		A:            a,
		B:            b,
		ConflictType: conflictType(evidence),
		Proof:        proofString(evidence, d.proximityDeg),
		Evidence:     evidence,
	}, true
}

func conflictType(e model.DuplicateProof) string {
	switch {
	case e.Proximity && e.SameBranch:
		return "same-location-and-branch"
	case e.Proximity:
		return "same-location"
	default:
		return "same-branch"
	}
}

func proofString(e model.DuplicateProof, proximityDeg float64) string {
	parts := []string{"names match"}
	if e.Proximity {
		parts = append(parts, fmt.Sprintf("coordinates within %g deg", proximityDeg))
	}
	if e.SameBranch {
		parts = append(parts, "same branch")
	}
	return strings.Join(parts, " + ")
}
