package model

// Visit is one scheduled customer stop on a rep's route. Visits are read-only
// snapshots fetched per analysis run; the optimizer never mutates them.
type Visit struct {
	ClientCode     string  `json:"client_code"`
	CustomerNameEn string  `json:"customer_name_en"`
	CustomerNameAr string  `json:"customer_name_ar"`
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	RepCode        string  `json:"rep_code"`
	DayName        string  `json:"day_name"`
	WeekNumber     int     `json:"week_number"`
	RouteName      string  `json:"route_name"`
	BranchCode     string  `json:"branch_code"`
	District       string  `json:"district"`
	Classification string  `json:"classification"`
	StoreType      string  `json:"store_type"`
}

// CustomerName returns the English name, falling back to Arabic when the
// English field is empty.
func (v Visit) CustomerName() string {
	if v.CustomerNameEn != "" {
		return v.CustomerNameEn
	}
	return v.CustomerNameAr
}

// Branch is a (code, display name) pair for populating filter UIs.
type Branch struct {
	Code        string `json:"code"`
	DisplayName string `json:"display_name"`
}

// VisitFilter restricts the visit snapshot fetched for an analysis run.
// Zero values mean no restriction; week filtering is optional for sources
// that cannot support it.
type VisitFilter struct {
	BranchCode string   `json:"branch_code,omitempty"`
	WeekNumber int      `json:"week_number,omitempty"`
	RouteNames []string `json:"route_names,omitempty"`
}
