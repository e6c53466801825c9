package model

// SearchIntent holds the structured conditions extracted from a question.
// A nil field means the question did not mention it.
type SearchIntent struct {
	Ward             *string `json:"ward,omitempty"`
	Station          *string `json:"station,omitempty"`
	Usage            *string `json:"usage,omitempty"`
	TimeToStationMax *int    `json:"time_to_station_max,omitempty"` // minutes on foot

	RequireMaxPrice                 *bool `json:"require_max_price,omitempty"`
	RequireMinPrice                 *bool `json:"require_min_price,omitempty"`
	RequireTop1PercentPrice         *bool `json:"require_top_1_percent_price,omitempty"`
	RequireBottom1PercentPrice      *bool `json:"require_bottom_1_percent_price,omitempty"`
	RequireMaxChangeRate            *bool `json:"require_max_change_rate,omitempty"`
	RequireMinChangeRate            *bool `json:"require_min_change_rate,omitempty"`
	RequireTop1PercentChangeRate    *bool `json:"require_top_1_percent_change_rate,omitempty"`
	RequireBottom1PercentChangeRate *bool `json:"require_bottom_1_percent_change_rate,omitempty"`
}

// IsEmpty reports whether no field is set
func (i SearchIntent) IsEmpty() bool {
	return i == SearchIntent{}
}
