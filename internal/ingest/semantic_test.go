package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"landprice/internal/model"
)

func TestRenderSemanticText(t *testing.T) {
	text, err := RenderSemanticText(model.LandPrice{
		Price:                 1230000,
		PriceTier:             5,
		PricePercentile:       99.5,
		IsMaxPrice:            true,
		IsTop1PercentPrice:    true,
		ChangeRate:            3.4,
		ChangeRateTier:        4,
		ChangeRatePercentile:  71.25,
		Ward:                  "港",
		Station:               "田町",
		Usage:                 "商業地",
		UsageDetail:           "店舗兼事務所",
		DistanceToStation:     250,
		DistanceToStationTier: 1,
		TimeToStation:         4,
	})
	require.NoError(t, err)

	assert.Contains(t, text, "東京都港の商業地の地点です。")
	assert.Contains(t, text, "最寄り駅は田町駅で、距離は250m（徒歩約4分、駅のすぐ近く）です。")
	assert.Contains(t, text, "1平方メートルあたり1,230,000円")
	assert.Contains(t, text, "非常に高い水準")
	assert.Contains(t, text, "+3.4%")
	assert.Contains(t, text, "71.25%")
	assert.Contains(t, text, "東京都内で最も地価が高い地点です。")
	assert.Contains(t, text, "地価は上位1%に入ります。")
	assert.Contains(t, text, "利用状況：店舗兼事務所。")
	assert.NotContains(t, text, "最も地価が低い")
	assert.NotContains(t, text, "周辺の状況")
}

func TestRenderSemanticText_NoStation(t *testing.T) {
	text, err := RenderSemanticText(model.LandPrice{Ward: "檜原村", Usage: "林地", Price: 1500, PriceTier: 1, ChangeRateTier: 3, ChangeRate: -0.5})
	require.NoError(t, err)

	assert.NotContains(t, text, "最寄り駅")
	assert.Contains(t, text, "-0.5%")
}

func TestGroupThousands(t *testing.T) {
	tests := map[int64]string{
		0:        "0",
		999:      "999",
		1000:     "1,000",
		1230000:  "1,230,000",
		-45000:   "-45,000",
		12345678: "12,345,678",
	}
	for in, want := range tests {
		assert.Equal(t, want, groupThousands(in))
	}
}
