package ingest

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"landprice/internal/model"
	"landprice/internal/service"
)

// replyChat answers every completion with a fixed reply
type replyChat struct{ reply string }

func (c replyChat) Complete(context.Context, service.CompletionRequest) (string, error) {
	return c.reply, nil
}

func loadWard(t *testing.T, ward string) RawParcel {
	t.Helper()
	doc := fmt.Sprintf(`{"type": "FeatureCollection", "features": [{
		"type": "Feature",
		"geometry": {"type": "Point", "coordinates": [139.33, 35.76]},
		"properties": {"id": 1, "price": 150000, "change_rate": 0.5, "distance_to_station": 600, "ward": %q}
	}]}`, ward)
	parcels, err := LoadGeoJSON(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, parcels, 1)
	return parcels[0]
}

func extractWard(t *testing.T, ward string) model.Condition {
	t.Helper()
	extractor := service.NewIntentExtractor(replyChat{reply: fmt.Sprintf(`{"ward": %q}`, ward)}, zerolog.Nop())
	intent, err := extractor.Extract(context.Background(), "question")
	require.NoError(t, err)
	filter := service.BuildFilter(intent)
	require.Equal(t, 1, filter.Len())
	return filter.Must[0]
}

// The ward a question filters on must equal the ward stored for the same
// municipality, whichever spelling either side starts from.
func TestWardCanonicalizationAgrees(t *testing.T) {
	municipalities := []struct {
		kanji, suffix, roman string
	}{
		{"羽村", "市", "Hamura"},
		{"町田", "市", "Machida"},
		{"東村山", "市", "Higashimurayama"},
		{"武蔵村山", "市", "Musashimurayama"},
		{"八王子", "市", "Hachioji"},
		{"港", "区", "Minato"},
		{"北", "区", "Kita"},
		{"中央", "区", "Chuo"},
		{"世田谷", "区", "Setagaya"},
		{"奥多摩", "町", "Okutama"},
		{"檜原", "村", "Hinohara"},
		{"小笠原", "村", "Ogasawara"},
		{"利島", "村", ""},
	}

	for _, m := range municipalities {
		forms := []string{m.kanji, m.kanji + m.suffix}
		if m.roman != "" {
			forms = append(forms, m.roman)
		}
		t.Run(m.kanji, func(t *testing.T) {
			for _, stored := range forms {
				parcel := loadWard(t, stored)
				assert.Equal(t, m.kanji, parcel.Ward, "stored %q", stored)

				for _, asked := range forms {
					cond := extractWard(t, asked)
					assert.Equal(t, model.ConditionKeyword, cond.Kind)
					assert.Equal(t, service.FieldWard, cond.Field)
					assert.Equal(t, parcel.Ward, cond.Keyword, "stored %q, asked %q", stored, asked)
				}
			}
		})
	}
}
