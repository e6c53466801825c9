package ingest

import (
	"fmt"
	"math"
	"sort"

	"landprice/internal/model"
)

// Corpus statistics constants
const (
	TierCount        = 5
	MetersPerMinute  = 80
	topPercentile    = 0.99
	bottomPercentile = 0.01
)

// columnStats holds the corpus-wide view of one numeric attribute
type columnStats struct {
	sorted []float64 // ascending
	tiers  map[uint64]int
	p99    float64
	p01    float64
}

// BuildPayloads computes tiers, percentiles, extremal flags, walking time and
// the semantic text for every parcel. The result is ordered by id and depends
// only on the input values, not on their order.
func BuildPayloads(parcels []RawParcel) ([]model.Point, error) {
	if len(parcels) == 0 {
		return nil, nil
	}

	sorted := make([]RawParcel, len(parcels))
	copy(sorted, parcels)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	for i := 1; i < len(sorted); i++ {
		if sorted[i].ID == sorted[i-1].ID {
			return nil, fmt.Errorf("duplicate parcel id %d", sorted[i].ID)
		}
	}

	price := newColumnStats(sorted, func(p RawParcel) float64 { return float64(p.Price) })
	rate := newColumnStats(sorted, func(p RawParcel) float64 { return p.ChangeRate })
	distance := newColumnStats(sorted, func(p RawParcel) float64 { return float64(p.DistanceToStation) })

	points := make([]model.Point, len(sorted))
	for i, p := range sorted {
		lp := model.LandPrice{
			Price:           p.Price,
			PriceTier:       price.tiers[p.ID],
			PricePercentile: price.percentile(float64(p.Price)),

			ChangeRate:           p.ChangeRate,
			ChangeRateTier:       rate.tiers[p.ID],
			ChangeRatePercentile: rate.percentile(p.ChangeRate),

			Ward:                  p.Ward,
			Station:               p.Station,
			Usage:                 p.Usage,
			UsageDetail:           p.UsageDetail,
			SurroundingDetail:     p.SurroundingDetail,
			DistanceToStation:     p.DistanceToStation,
			DistanceToStationTier: distance.tiers[p.ID],
			TimeToStation:         WalkingMinutes(p.DistanceToStation),
			Location:              model.GeoPoint{Lat: p.Lat, Lon: p.Lon},
		}

		lp.IsMaxPrice, lp.IsMinPrice = price.extremes(float64(p.Price))
		lp.IsTop1PercentPrice = float64(p.Price) >= price.p99
		lp.IsBottom1PercentPrice = float64(p.Price) <= price.p01

		lp.IsMaxChangeRate, lp.IsMinChangeRate = rate.extremes(p.ChangeRate)
		lp.IsTop1PercentChange = p.ChangeRate >= rate.p99
		lp.IsBottom1PercentChange = p.ChangeRate <= rate.p01

		text, err := RenderSemanticText(lp)
		if err != nil {
			return nil, fmt.Errorf("parcel %d: %w", p.ID, err)
		}
		lp.SemanticText = text

		points[i] = model.Point{ID: p.ID, Payload: lp}
	}
	return points, nil
}

// WalkingMinutes converts meters to whole minutes on foot, rounding up
func WalkingMinutes(meters int) int {
	if meters <= 0 {
		return 0
	}
	return (meters + MetersPerMinute - 1) / MetersPerMinute
}

func newColumnStats(parcels []RawParcel, value func(RawParcel) float64) *columnStats {
	n := len(parcels)

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	// ties are broken by id so equal values never depend on input order
	sort.SliceStable(order, func(a, b int) bool {
		va, vb := value(parcels[order[a]]), value(parcels[order[b]])
		if va != vb {
			return va < vb
		}
		return parcels[order[a]].ID < parcels[order[b]].ID
	})

	s := &columnStats{
		sorted: make([]float64, n),
		tiers:  make(map[uint64]int, n),
	}
	for rank, idx := range order {
		s.sorted[rank] = value(parcels[idx])
		s.tiers[parcels[idx].ID] = rank*TierCount/n + 1
	}
	s.p99 = quantile(s.sorted, topPercentile)
	s.p01 = quantile(s.sorted, bottomPercentile)
	return s
}

// percentile is the share of the corpus at or below v, in (0, 100]
func (s *columnStats) percentile(v float64) float64 {
	atOrBelow := sort.Search(len(s.sorted), func(i int) bool { return s.sorted[i] > v })
	return math.Round(float64(atOrBelow)/float64(len(s.sorted))*10000) / 100
}

// extremes reports whether v is the corpus maximum and minimum. When every
// value is equal and there is more than one record, only the maximum flag is set.
func (s *columnStats) extremes(v float64) (isMax, isMin bool) {
	lo, hi := s.sorted[0], s.sorted[len(s.sorted)-1]
	isMax = v == hi
	isMin = v == lo && (lo != hi || len(s.sorted) == 1)
	return isMax, isMin
}

// quantile interpolates linearly between closest ranks
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q * float64(len(sorted)-1)
	lower := int(math.Floor(pos))
	upper := int(math.Ceil(pos))
	frac := pos - float64(lower)
	return sorted[lower] + (sorted[upper]-sorted[lower])*frac
}
