// Package ingest builds land-price records from a source dataset and writes
// them to the record store. It runs offline, never on the serving path.
package ingest

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"landprice/internal/utils"
)

// Property keys read from each GeoJSON feature
const (
	PropID                = "id"
	PropPrice             = "price"
	PropChangeRate        = "change_rate"
	PropDistanceToStation = "distance_to_station"
	PropWard              = "ward"
	PropStation           = "station"
	PropUsage             = "usage"
	PropUsageDetail       = "usage_detail"
	PropSurroundingDetail = "surrounding_detail"
)

// RawParcel is one source row before corpus statistics are applied
type RawParcel struct {
	ID                uint64
	Price             int64   // JPY per m²
	ChangeRate        float64 // percent
	DistanceToStation int     // meters
	Ward              string
	Station           string
	Usage             string
	UsageDetail       string
	SurroundingDetail string
	Lat               float64
	Lon               float64
}

// LoadGeoJSON reads a FeatureCollection of Point features. Features without an
// id property are numbered from 1 in file order.
func LoadGeoJSON(r io.Reader) ([]RawParcel, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset: %w", err)
	}

	var fc geojson.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("failed to decode GeoJSON: %w", err)
	}

	parcels := make([]RawParcel, 0, len(fc.Features))
	for i, f := range fc.Features {
		p, err := parcelFromFeature(f, uint64(i+1))
		if err != nil {
			return nil, fmt.Errorf("feature %d: %w", i, err)
		}
		parcels = append(parcels, p)
	}
	return parcels, nil
}

func parcelFromFeature(f *geojson.Feature, fallbackID uint64) (RawParcel, error) {
	point, ok := f.Geometry.(*geom.Point)
	if !ok {
		return RawParcel{}, fmt.Errorf("expected Point geometry, got %T", f.Geometry)
	}

	props := f.Properties
	p := RawParcel{
		ID:                fallbackID,
		Ward:              utils.CanonicalWard(stringProp(props, PropWard)),
		Station:           utils.CanonicalStation(stringProp(props, PropStation)),
		Usage:             stringProp(props, PropUsage),
		UsageDetail:       stringProp(props, PropUsageDetail),
		SurroundingDetail: stringProp(props, PropSurroundingDetail),
		Lat:               point.Y(),
		Lon:               point.X(),
	}

	if id, ok, err := numberProp(props, PropID); err != nil {
		return p, err
	} else if ok {
		if id < 0 || id != math.Trunc(id) {
			return p, fmt.Errorf("invalid id %v", id)
		}
		p.ID = uint64(id)
	}

	price, ok, err := numberProp(props, PropPrice)
	if err != nil {
		return p, err
	}
	if !ok || price <= 0 {
		return p, fmt.Errorf("parcel %d: missing or non-positive price", p.ID)
	}
	p.Price = int64(math.Round(price))

	rate, _, err := numberProp(props, PropChangeRate)
	if err != nil {
		return p, err
	}
	p.ChangeRate = rate

	distance, _, err := numberProp(props, PropDistanceToStation)
	if err != nil {
		return p, err
	}
	if distance < 0 {
		return p, fmt.Errorf("parcel %d: negative distance_to_station", p.ID)
	}
	p.DistanceToStation = int(math.Round(distance))

	if p.Ward == "" {
		return p, fmt.Errorf("parcel %d: missing ward", p.ID)
	}
	return p, nil
}

func stringProp(props map[string]interface{}, key string) string {
	switch v := props[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// numberProp accepts JSON numbers and numeric strings such as "1,230,000" or "+2.5"
func numberProp(props map[string]interface{}, key string) (float64, bool, error) {
	switch v := props[key].(type) {
	case nil:
		return 0, false, nil
	case float64:
		return v, true, nil
	case string:
		s := strings.TrimSpace(strings.ReplaceAll(v, ",", ""))
		if s == "" {
			return 0, false, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false, fmt.Errorf("property %s: invalid number %q", key, v)
		}
		return f, true, nil
	default:
		return 0, false, fmt.Errorf("property %s: unexpected type %T", key, v)
	}
}
