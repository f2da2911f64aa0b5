package geo

import "math"

// Default average speeds for the travel time model (km/h). Urban traffic is
// materially slower than highway driving between districts.
const (
	DefaultUrbanSpeedKMH   = 30.0
	DefaultHighwaySpeedKMH = 60.0
)

// TravelTimeEstimator converts a distance delta into an estimated time
// saving. Injectable so tests can substitute a deterministic speed constant.
type TravelTimeEstimator interface {
	// Minutes returns the estimated travel time in whole minutes for the
	// given distance under the urban or highway speed profile.
	Minutes(distanceKM float64, urban bool) int
}

// SpeedModel is a simple average-speed TravelTimeEstimator.
type SpeedModel struct {
	UrbanKMH   float64
	HighwayKMH float64
}

// NewSpeedModel returns a SpeedModel, substituting defaults for
// non-positive speeds.
func NewSpeedModel(urbanKMH, highwayKMH float64) SpeedModel {
	if urbanKMH <= 0 {
		urbanKMH = DefaultUrbanSpeedKMH
	}
	if highwayKMH <= 0 {
		highwayKMH = DefaultHighwaySpeedKMH
	}
	return SpeedModel{UrbanKMH: urbanKMH, HighwayKMH: highwayKMH}
}

// Minutes implements TravelTimeEstimator.
func (m SpeedModel) Minutes(distanceKM float64, urban bool) int {
	speed := m.HighwayKMH
	if urban {
		speed = m.UrbanKMH
	}
	if speed <= 0 || distanceKM <= 0 {
		return 0
	}
	return int(math.Round(distanceKM / speed * 60))
}

// Round1 rounds to one decimal place. Distance and hour figures surfaced to
// the sales-ops team are reported at this precision.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}
