package model

// GeoPoint is a WGS84 coordinate
type GeoPoint struct {
	Lat float64 `json:"lat" db:"lat"`
	Lon float64 `json:"lon" db:"lon"`
}

// LandPrice is the payload stored with every record in the vector store.
// Tiers, percentiles and extremal flags are computed once over the whole corpus at ingestion.
type LandPrice struct {
	Price                  int64   `json:"price" db:"price"` // JPY per m²
	PriceTier              int     `json:"price_tier" db:"price_tier"`
	PricePercentile        float64 `json:"price_percentile" db:"price_percentile"`
	IsMaxPrice             bool    `json:"is_max_price" db:"is_max_price"`
	IsMinPrice             bool    `json:"is_min_price" db:"is_min_price"`
	IsTop1PercentPrice     bool    `json:"is_top_1_percent_price" db:"is_top_1_percent_price"`
	IsBottom1PercentPrice  bool    `json:"is_bottom_1_percent_price" db:"is_bottom_1_percent_price"`
	ChangeRate             float64 `json:"change_rate" db:"change_rate"` // signed, percent year over year
	ChangeRateTier         int     `json:"change_rate_tier" db:"change_rate_tier"`
	ChangeRatePercentile   float64 `json:"change_rate_percentile" db:"change_rate_percentile"`
	IsMaxChangeRate        bool    `json:"is_max_change_rate" db:"is_max_change_rate"`
	IsMinChangeRate        bool    `json:"is_min_change_rate" db:"is_min_change_rate"`
	IsTop1PercentChange    bool    `json:"is_top_1_percent_change_rate" db:"is_top_1_percent_change_rate"`
	IsBottom1PercentChange bool    `json:"is_bottom_1_percent_change_rate" db:"is_bottom_1_percent_change_rate"`
	Ward                   string  `json:"ward" db:"ward"`
	Station                string  `json:"station" db:"station"`
	Usage                  string  `json:"usage" db:"usage"`
	UsageDetail            string  `json:"usage_detail" db:"usage_detail"`
	SurroundingDetail      string  `json:"surrounding_detail" db:"surrounding_detail"`
	DistanceToStation      int     `json:"distance_to_station" db:"distance_to_station"` // meters
	DistanceToStationTier  int     `json:"distance_to_station_tier" db:"distance_to_station_tier"`
	TimeToStation          int     `json:"time_to_station" db:"time_to_station"` // minutes on foot

	Location     GeoPoint `json:"location" db:"location"`
	SemanticText string   `json:"semantic_text" db:"semantic_text"`
}

// Point is a record as written to the store
type Point struct {
	ID      uint64
	Vector  []float32
	Payload LandPrice
}

// ScoredRecord is a record returned by a similarity query
type ScoredRecord struct {
	ID      uint64    `json:"id"`
	Score   float32   `json:"score"`
	Payload LandPrice `json:"payload"`
}
