package service

import (
	"landprice/internal/model"
)

// Unit conversions used by the filter builder
const (
	DefaultMetersPerMinute = 80
	MetersPerDegreeLat     = 111000.0
	MetersPerDegreeLon     = 91000.0 // at Tokyo's latitude
)

// Payload keys referenced by filters
const (
	FieldWard              = "ward"
	FieldStation           = "station"
	FieldUsage             = "usage"
	FieldDistanceToStation = "distance_to_station"
	FieldLocation          = "location"
)

// FilterBuilder compiles a SearchIntent into a store-neutral QueryFilter
type FilterBuilder struct {
	MetersPerMinute int
}

// BuildFilter compiles an intent with the default walking pace
func BuildFilter(intent model.SearchIntent) *model.QueryFilter {
	return FilterBuilder{MetersPerMinute: DefaultMetersPerMinute}.Build(intent)
}

// Build emits one condition per populated intent field in a fixed order.
// It returns nil when the intent yields no condition.
func (b FilterBuilder) Build(intent model.SearchIntent) *model.QueryFilter {
	var must []model.Condition

	keyword := func(field string, value *string) {
		if value != nil && *value != "" {
			must = append(must, model.Condition{Kind: model.ConditionKeyword, Field: field, Keyword: *value})
		}
	}
	requireTrue := func(field string, flag *bool) {
		if flag != nil && *flag {
			must = append(must, model.Condition{Kind: model.ConditionBool, Field: field, Bool: true})
		}
	}

	keyword(FieldWard, intent.Ward)
	keyword(FieldStation, intent.Station)
	keyword(FieldUsage, intent.Usage)

	if intent.TimeToStationMax != nil {
		pace := b.MetersPerMinute
		if pace <= 0 {
			pace = DefaultMetersPerMinute
		}
		meters := float64(*intent.TimeToStationMax * pace)
		must = append(must, model.Condition{Kind: model.ConditionRange, Field: FieldDistanceToStation, Lte: &meters})
	}

	requireTrue("is_max_price", intent.RequireMaxPrice)
	requireTrue("is_min_price", intent.RequireMinPrice)
	requireTrue("is_top_1_percent_price", intent.RequireTop1PercentPrice)
	requireTrue("is_bottom_1_percent_price", intent.RequireBottom1PercentPrice)
	requireTrue("is_max_change_rate", intent.RequireMaxChangeRate)
	requireTrue("is_min_change_rate", intent.RequireMinChangeRate)
	requireTrue("is_top_1_percent_change_rate", intent.RequireTop1PercentChangeRate)
	requireTrue("is_bottom_1_percent_change_rate", intent.RequireBottom1PercentChangeRate)

	if len(must) == 0 {
		return nil
	}
	return &model.QueryFilter{Must: must}
}

// BuildGeoFilter returns a single bounding-box condition on location,
// centred on (lat, lon) with an edge of bboxSizeMeters.
func BuildGeoFilter(lat, lon, bboxSizeMeters float64) *model.QueryFilter {
	halfLat := (bboxSizeMeters / 2) / MetersPerDegreeLat
	halfLon := (bboxSizeMeters / 2) / MetersPerDegreeLon

	return &model.QueryFilter{
		Must: []model.Condition{
			{
				Kind:  model.ConditionGeoBox,
				Field: FieldLocation,
				GeoBox: &model.GeoBox{
					TopLeft:     model.GeoPoint{Lat: lat + halfLat, Lon: lon - halfLon},
					BottomRight: model.GeoPoint{Lat: lat - halfLat, Lon: lon + halfLon},
				},
			},
		},
	}
}
