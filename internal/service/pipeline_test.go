package service

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"landprice/internal/model"
	"landprice/internal/repository"
)

func testCorpus() []model.ScoredRecord {
	return []model.ScoredRecord{
		{
			ID:    1,
			Score: 0.91,
			Payload: model.LandPrice{
				Ward: "渋谷", Station: "渋谷", Usage: "商業地", DistanceToStation: 120,
				Location:     model.GeoPoint{Lat: 35.6581, Lon: 139.7015},
				SemanticText: "Shibuya commercial land near Shibuya Station.",
			},
		},
		{
			ID:    2,
			Score: 0.88,
			Payload: model.LandPrice{
				Ward: "千代田", Station: "東京", Usage: "商業地", DistanceToStation: 300, IsMaxPrice: true,
				Location:     model.GeoPoint{Lat: 35.6812, Lon: 139.7671},
				SemanticText: "Ginza-adjacent land with the highest price in Tokyo.",
			},
		},
		{
			ID:    3,
			Score: 0.75,
			Payload: model.LandPrice{
				Ward: "八王子", Station: "高尾", Usage: "住宅地", DistanceToStation: 1500, IsMinPrice: true,
				Location:     model.GeoPoint{Lat: 35.6420, Lon: 139.2820},
				SemanticText: "Residential land in Hachioji, the cheapest record.",
			},
		},
	}
}

type pipelineFixture struct {
	chat     *fakeChat
	embedder *fakeEmbedder
	store    *fakeStore
	pipeline *Pipeline
}

func newPipelineFixture(intentReply string) *pipelineFixture {
	f := &pipelineFixture{
		chat:     &fakeChat{intentReply: intentReply, answerReply: "generated answer"},
		embedder: &fakeEmbedder{vector: []float32{0.1, 0.2, 0.3}},
		store:    &fakeStore{records: testCorpus()},
	}
	f.pipeline = NewPipeline(
		NewIntentExtractor(f.chat, zerolog.Nop()),
		f.embedder,
		NewRetriever(f.store),
		NewAnswerGenerator(f.chat, "English"),
		PipelineConfig{SearchLimit: 5, PointBoxMeters: 100, AreaBoxMeters: 500, MetersPerMinute: 80, DefaultLanguage: "en"},
		zerolog.Nop(),
	)
	return f
}

func TestPipeline_HighestPriceScenario(t *testing.T) {
	f := newPipelineFixture(`{"require_max_price": true}`)

	out, err := f.pipeline.Run(context.Background(), &model.MessageRequest{Message: "Which area has the highest land price?"})
	require.NoError(t, err)

	require.Len(t, f.store.queries, 1)
	assert.Equal(t, []model.Condition{{Kind: model.ConditionBool, Field: "is_max_price", Bool: true}}, f.store.queries[0].Must)

	require.Len(t, out.Hits, 1)
	assert.Equal(t, uint64(2), out.Hits[0].ID)

	require.Len(t, f.chat.answerCalls, 1)
	prompt := f.chat.answerCalls[0].User
	assert.Equal(t, BuildAnswerPrompt("Which area has the highest land price?", []string{testCorpus()[1].Payload.SemanticText}), prompt)
	assert.NotContains(t, prompt, testCorpus()[0].Payload.SemanticText)

	assert.Equal(t, "generated answer", out.Response)
	assert.Equal(t, StageDone, out.Stage)
}

func TestPipeline_WardWhoseNameEndsInSuffixCharacter(t *testing.T) {
	f := newPipelineFixture(`{"ward": "羽村"}`)
	f.store.records = append(f.store.records, model.ScoredRecord{
		ID:    4,
		Score: 0.8,
		Payload: model.LandPrice{
			Ward: "羽村", Station: "羽村", Usage: "住宅地", DistanceToStation: 700,
			SemanticText: "Residential land in Hamura near Hamura Station.",
		},
	})

	out, err := f.pipeline.Run(context.Background(), &model.MessageRequest{Message: "羽村市の住宅地の地価は？"})
	require.NoError(t, err)

	require.Len(t, f.store.queries, 1)
	assert.Equal(t, []model.Condition{{Kind: model.ConditionKeyword, Field: "ward", Keyword: "羽村"}}, f.store.queries[0].Must)
	require.Len(t, out.Hits, 1)
	assert.Equal(t, uint64(4), out.Hits[0].ID)
	assert.Equal(t, "generated answer", out.Response)
}

func TestPipeline_GeoPointSkipsIntentExtraction(t *testing.T) {
	f := newPipelineFixture(`{"require_max_price": true}`)
	lat, lon := 35.658, 139.701

	resp, err := f.pipeline.Answer(context.Background(), &model.MessageRequest{
		Message: "Tell me about this location.",
		Lat:     &lat,
		Lon:     &lon,
		IsPoint: boolPtr(true),
	})
	require.NoError(t, err)
	assert.Equal(t, "generated answer", resp.Response)

	assert.Empty(t, f.chat.intentCalls)
	require.Len(t, f.embedder.inputs, 1)
	assert.Equal(t, []string{"Tell me about this location."}, f.embedder.inputs[0])

	require.Len(t, f.store.queries, 1)
	filter := f.store.queries[0]
	require.Equal(t, 1, filter.Len())
	box := filter.Must[0].GeoBox
	require.NotNil(t, box)
	assert.InDelta(t, 50, (box.TopLeft.Lat-lat)*MetersPerDegreeLat, 1e-6)
	assert.InDelta(t, 50, (box.BottomRight.Lon-lon)*MetersPerDegreeLon, 1e-6)

	require.Len(t, f.chat.answerCalls, 1)
	assert.Contains(t, f.chat.answerCalls[0].User, "Shibuya commercial land")
}

func TestPipeline_AreaBoxWhenNotPoint(t *testing.T) {
	f := newPipelineFixture(`{}`)
	lat, lon := 35.658, 139.701

	_, err := f.pipeline.Run(context.Background(), &model.MessageRequest{Message: "area", Lat: &lat, Lon: &lon})
	require.NoError(t, err)

	box := f.store.queries[0].Must[0].GeoBox
	assert.InDelta(t, 250, (box.TopLeft.Lat-lat)*MetersPerDegreeLat, 1e-6)
}

func TestPipeline_EmptyHitsNeverGenerate(t *testing.T) {
	tests := []struct {
		name     string
		language *string
		want     string
	}{
		{"no hint uses default", nil, notFoundMessages["en"]},
		{"japanese hint", strPtr("ja"), notFoundMessages["ja"]},
		{"regional tag", strPtr("ja-JP"), notFoundMessages["ja"]},
		{"unknown hint falls back", strPtr("fr"), notFoundMessages["en"]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// no record is both the max and the min
			f := newPipelineFixture(`{"require_max_price": true, "require_min_price": true}`)

			out, err := f.pipeline.Run(context.Background(), &model.MessageRequest{Message: "q", Language: tt.language})
			require.NoError(t, err)

			assert.Equal(t, tt.want, out.Response)
			assert.Empty(t, out.Hits)
			assert.Empty(t, f.chat.answerCalls)
		})
	}
}

func TestPipeline_DefaultLanguageConfigurable(t *testing.T) {
	f := newPipelineFixture(`{"ward": "存在しない"}`)
	f.pipeline.cfg.DefaultLanguage = "ja"

	resp, err := f.pipeline.Answer(context.Background(), &model.MessageRequest{Message: "q"})
	require.NoError(t, err)
	assert.Equal(t, notFoundMessages["ja"], resp.Response)
}

func TestPipeline_IntentParseFailureDegradesToUnfiltered(t *testing.T) {
	var logs bytes.Buffer
	f := newPipelineFixture("I am not JSON")
	f.pipeline.logger = zerolog.New(&logs)

	out, err := f.pipeline.Run(context.Background(), &model.MessageRequest{Message: "Tell me about Tokyo"})
	require.NoError(t, err)

	require.Len(t, f.store.queries, 1)
	assert.Nil(t, f.store.queries[0])
	assert.True(t, out.IntentDegraded)
	assert.Len(t, out.Hits, 3)
	assert.Equal(t, "generated answer", out.Response)

	assert.Contains(t, logs.String(), `"level":"warn"`)
	assert.Contains(t, logs.String(), "I am not JSON")
}

func TestPipeline_ContextsKeepRankingOrder(t *testing.T) {
	f := newPipelineFixture(`{}`)

	out, err := f.pipeline.Run(context.Background(), &model.MessageRequest{Message: "q"})
	require.NoError(t, err)

	corpus := testCorpus()
	want := []string{corpus[0].Payload.SemanticText, corpus[1].Payload.SemanticText, corpus[2].Payload.SemanticText}
	assert.Equal(t, want, out.Contexts)
	assert.Contains(t, f.chat.answerCalls[0].User, want[0]+"\n\n"+want[1]+"\n\n"+want[2])
}

func TestPipeline_DownstreamFailures(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name      string
		mutate    func(f *pipelineFixture)
		wantStage string
	}{
		{"intent transport", func(f *pipelineFixture) { f.chat.intentErr = boom }, StageIntent},
		{"embedding", func(f *pipelineFixture) { f.embedder.err = boom }, StageEmbedding},
		{"store", func(f *pipelineFixture) { f.store.err = repository.ErrStoreUnavailable }, StageRetrieving},
		{"generation", func(f *pipelineFixture) { f.chat.answerErr = boom }, StageGenerating},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newPipelineFixture(`{}`)
			tt.mutate(f)

			out, err := f.pipeline.Run(context.Background(), &model.MessageRequest{Message: "q"})
			require.Error(t, err)
			assert.Nil(t, out)

			var pipeErr *PipelineError
			require.True(t, errors.As(err, &pipeErr))
			assert.Equal(t, tt.wantStage, pipeErr.Stage)
		})
	}
}

func TestPipeline_StoreFailureDistinctFromEmpty(t *testing.T) {
	f := newPipelineFixture(`{}`)
	f.store.err = repository.ErrStoreUnavailable

	_, err := f.pipeline.Answer(context.Background(), &model.MessageRequest{Message: "q"})
	require.Error(t, err)
	assert.ErrorIs(t, err, repository.ErrStoreUnavailable)
	assert.Empty(t, f.chat.answerCalls)
}

func TestLookupLanguage(t *testing.T) {
	msg, ok := lookupLanguage(" EN_us ")
	assert.True(t, ok)
	assert.Equal(t, notFoundMessages["en"], msg)

	_, ok = lookupLanguage("")
	assert.False(t, ok)
}
