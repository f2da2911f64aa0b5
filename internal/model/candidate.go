package model

import "time"

// SwapType is the closed set of move types the optimizer proposes.
type SwapType string

const (
	// SwapTypeUser reassigns a customer's visit to a different rep's route
	// on the same day and week.
	SwapTypeUser SwapType = "USER_SWAP"
	// SwapTypeDay reassigns the same rep's visit to a different day in the
	// same week.
	SwapTypeDay SwapType = "DAY_SWAP"
)

// SwapCandidate is a proposed single-customer move. The ID is synthetic and
// sequential, stable only within one analysis run; treat it as a UI list key,
// never a foreign key.
type SwapCandidate struct {
	ID           int      `json:"id"`
	Type         SwapType `json:"type"`
	ClientCode   string   `json:"client_code"`
	CustomerName string   `json:"customer_name"`
	District     string   `json:"district"`
	Branch       string   `json:"branch"`

	FromUser  string `json:"from_user"`
	FromDay   string `json:"from_day"`
	FromWeek  int    `json:"from_week"`
	FromRoute string `json:"from_route"`
	ToUser    string `json:"to_user"`
	ToDay     string `json:"to_day"`
	ToWeek    int    `json:"to_week"`
	ToRoute   string `json:"to_route"`

	DistanceSaved float64 `json:"distance_saved"` // km, 1-decimal rounded
	TimeSaved     int     `json:"time_saved"`     // minutes
	ImpactScore   int     `json:"impact_score"`   // 0-100
	Confidence    int     `json:"confidence"`     // 0-100
	Reason        string  `json:"reason"`

	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// OptimizationSummary aggregates the retained candidate set.
type OptimizationSummary struct {
	TotalDistanceKM float64 `json:"total_distance_km"` // 1-decimal rounded
	TotalTimeHours  float64 `json:"total_time_hours"`  // 1-decimal rounded
	Count           int     `json:"count"`
}

// OptimizationResult is the outcome of one optimizer run. A failed snapshot
// fetch yields Success=false with Debug set and an empty suggestion list so
// the caller can render a graceful empty state.
type OptimizationResult struct {
	RunID       string              `json:"run_id"`
	Success     bool                `json:"success"`
	Debug       string              `json:"debug,omitempty"`
	Suggestions []SwapCandidate     `json:"suggestions"`
	Summary     OptimizationSummary `json:"summary"`
	VisitCount  int                 `json:"visit_count"`
	GroupCount  int                 `json:"group_count"`
	StartedAt   time.Time           `json:"started_at"`
	Duration    time.Duration       `json:"duration"`
}
