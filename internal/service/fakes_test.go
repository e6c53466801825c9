package service

import (
	"context"

	"landprice/internal/model"
)

// fakeChat answers JSON-mode requests with intentReply and the rest with answerReply
type fakeChat struct {
	intentReply string
	intentErr   error
	answerReply string
	answerErr   error

	intentCalls []CompletionRequest
	answerCalls []CompletionRequest
}

func (f *fakeChat) Complete(_ context.Context, req CompletionRequest) (string, error) {
	if req.JSON {
		f.intentCalls = append(f.intentCalls, req)
		return f.intentReply, f.intentErr
	}
	f.answerCalls = append(f.answerCalls, req)
	return f.answerReply, f.answerErr
}

type fakeEmbedder struct {
	vector []float32
	err    error
	inputs [][]string
}

func (f *fakeEmbedder) CreateEmbeddings(_ context.Context, texts []string) ([][]float32, error) {
	f.inputs = append(f.inputs, texts)
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vector
	}
	return out, nil
}

// fakeStore returns the records whose payload satisfies the filter, in the
// order they were given, up to limit
type fakeStore struct {
	records []model.ScoredRecord
	err     error

	queries []*model.QueryFilter
	limits  []int
}

func (f *fakeStore) QuerySimilar(_ context.Context, _ []float32, filter *model.QueryFilter, limit int) ([]model.ScoredRecord, error) {
	f.queries = append(f.queries, filter)
	f.limits = append(f.limits, limit)
	if f.err != nil {
		return nil, f.err
	}

	var out []model.ScoredRecord
	for _, r := range f.records {
		if len(out) == limit {
			break
		}
		if matches(r.Payload, filter) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) UpsertPoints(context.Context, []model.Point) error { return nil }
func (f *fakeStore) CollectionExists(context.Context) (bool, error) { return true, nil }
func (f *fakeStore) CreateCollection(context.Context, int) error { return nil }
func (f *fakeStore) EnsureIndexes(context.Context) error { return nil }
func (f *fakeStore) DeleteCollection(context.Context) error { return nil }
func (f *fakeStore) Close() error { return nil }

func matches(p model.LandPrice, filter *model.QueryFilter) bool {
	if filter == nil {
		return true
	}
	flags := map[string]bool{
		"is_max_price":                    p.IsMaxPrice,
		"is_min_price":                    p.IsMinPrice,
		"is_top_1_percent_price":          p.IsTop1PercentPrice,
		"is_bottom_1_percent_price":       p.IsBottom1PercentPrice,
		"is_max_change_rate":              p.IsMaxChangeRate,
		"is_min_change_rate":              p.IsMinChangeRate,
		"is_top_1_percent_change_rate":    p.IsTop1PercentChange,
		"is_bottom_1_percent_change_rate": p.IsBottom1PercentChange,
	}
	keywords := map[string]string{
		FieldWard:    p.Ward,
		FieldStation: p.Station,
		FieldUsage:   p.Usage,
	}

	for _, c := range filter.Must {
		switch c.Kind {
		case model.ConditionKeyword:
			if keywords[c.Field] != c.Keyword {
				return false
			}
		case model.ConditionBool:
			if flags[c.Field] != c.Bool {
				return false
			}
		case model.ConditionRange:
			if float64(p.DistanceToStation) > *c.Lte {
				return false
			}
		case model.ConditionGeoBox:
			b := c.GeoBox
			if p.Location.Lat > b.TopLeft.Lat || p.Location.Lat < b.BottomRight.Lat ||
				p.Location.Lon < b.TopLeft.Lon || p.Location.Lon > b.BottomRight.Lon {
				return false
			}
		}
	}
	return true
}

func strPtr(v string) *string { return &v }

func intPtr(v int) *int { return &v }

func boolPtr(v bool) *bool { return &v }

func float64Ptr(v float64) *float64 { return &v }
