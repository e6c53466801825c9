package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"landprice/internal/model"
)

// Stage names reported in pipeline logs
const (
	StageStart      = "start"
	StageGeo        = "geo"
	StageIntent     = "intent"
	StageEmbedding  = "embedding"
	StageRetrieving = "retrieving"
	StageGenerating = "generating"
	StageDone       = "done"
)

var notFoundMessages = map[string]string{
	"ja": "関連する情報が見つかりませんでした。",
	"en": "No relevant information was found.",
}

// PipelineConfig holds the tunables of a Pipeline
type PipelineConfig struct {
	SearchLimit     int
	PointBoxMeters  float64
	AreaBoxMeters   float64
	MetersPerMinute int
	DefaultLanguage string
}

// PipelineError wraps a failure with the stage it happened in
type PipelineError struct {
	Stage string
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// Pipeline answers one question end to end
type Pipeline struct {
	intents   *IntentExtractor
	embedder  Embedder
	retriever *Retriever
	generator *AnswerGenerator
	filters   FilterBuilder
	cfg       PipelineConfig
	logger    zerolog.Logger
}

// NewPipeline creates a pipeline from its injected collaborators
func NewPipeline(intents *IntentExtractor, embedder Embedder, retriever *Retriever, generator *AnswerGenerator, cfg PipelineConfig, logger zerolog.Logger) *Pipeline {
	if cfg.SearchLimit <= 0 {
		cfg.SearchLimit = DefaultSearchLimit
	}
	if cfg.PointBoxMeters <= 0 {
		cfg.PointBoxMeters = 100
	}
	if cfg.AreaBoxMeters <= 0 {
		cfg.AreaBoxMeters = 500
	}
	if cfg.DefaultLanguage == "" {
		cfg.DefaultLanguage = "en"
	}

	return &Pipeline{
		intents:   intents,
		embedder:  embedder,
		retriever: retriever,
		generator: generator,
		filters:   FilterBuilder{MetersPerMinute: cfg.MetersPerMinute},
		cfg:       cfg,
		logger:    logger.With().Str("component", "pipeline").Logger(),
	}
}

// Outcome is the result of one pipeline run
type Outcome struct {
	Response string               `json:"response"`
	Stage    string               `json:"stage"` // last stage reached
	Filter   *model.QueryFilter   `json:"filter"`
	Contexts []string             `json:"contexts"`
	Hits     []model.ScoredRecord `json:"hits"`
	// IntentDegraded is set when intent parsing failed and retrieval ran unfiltered
	IntentDegraded bool `json:"intent_degraded"`
}

// Answer runs the pipeline and returns only the response body
func (p *Pipeline) Answer(ctx context.Context, req *model.MessageRequest) (*model.MessageResponse, error) {
	outcome, err := p.Run(ctx, req)
	if err != nil {
		return nil, err
	}
	return &model.MessageResponse{Response: outcome.Response}, nil
}

// Run answers a validated request: filter selection, embedding, retrieval and,
// when something matched, generation. With no hits the not-found message is
// returned and the generator is not called.
func (p *Pipeline) Run(ctx context.Context, req *model.MessageRequest) (*Outcome, error) {
	log := p.loggerFrom(ctx)
	out := &Outcome{Stage: StageStart}

	fail := func(err error) (*Outcome, error) {
		log.Error().
			Err(err).
			Str("stage", out.Stage).
			Interface("filter", out.Filter).
			Int("hits", len(out.Hits)).
			Bool("intent_degraded", out.IntentDegraded).
			Msg("pipeline failed")
		return nil, &PipelineError{Stage: out.Stage, Err: err}
	}

	if req.HasLocation() {
		out.Stage = StageGeo
		out.Filter = BuildGeoFilter(*req.Lat, *req.Lon, p.boxSize(req))
	} else {
		out.Stage = StageIntent
		intent, err := p.intents.Extract(ctx, req.Message)
		if err != nil {
			var parseErr *IntentParseError
			if !errors.As(err, &parseErr) {
				return fail(err)
			}
			log.Warn().
				Err(parseErr.Err).
				Str("raw", truncate(parseErr.Raw, 500)).
				Msg("intent parse failed, searching without filter")
			intent = model.SearchIntent{}
			out.IntentDegraded = true
		}
		out.Filter = p.filters.Build(intent)
	}

	out.Stage = StageEmbedding
	vector, err := EmbedOne(ctx, p.embedder, req.Message)
	if err != nil {
		return fail(err)
	}

	out.Stage = StageRetrieving
	result, err := p.retriever.Retrieve(ctx, vector, out.Filter, p.cfg.SearchLimit)
	if err != nil {
		return fail(err)
	}
	out.Hits = result.Hits
	out.Contexts = result.Contexts

	log.Info().
		Interface("filter", out.Filter).
		Int("hits", len(out.Hits)).
		Msg("retrieval finished")

	if len(out.Hits) == 0 {
		out.Stage = StageDone
		out.Response = p.notFoundMessage(req.Language)
		return out, nil
	}

	out.Stage = StageGenerating
	answer, err := p.generator.Generate(ctx, req.Message, out.Contexts)
	if err != nil {
		return fail(err)
	}

	out.Stage = StageDone
	out.Response = answer
	log.Debug().Int("contexts", len(out.Contexts)).Msg("answer generated")
	return out, nil
}

func (p *Pipeline) boxSize(req *model.MessageRequest) float64 {
	if req.TargetsPoint() {
		return p.cfg.PointBoxMeters
	}
	return p.cfg.AreaBoxMeters
}

func (p *Pipeline) notFoundMessage(language *string) string {
	if language != nil {
		if msg, ok := lookupLanguage(*language); ok {
			return msg
		}
	}
	if msg, ok := lookupLanguage(p.cfg.DefaultLanguage); ok {
		return msg
	}
	return notFoundMessages["en"]
}

// lookupLanguage matches a tag such as "ja-JP" by its primary subtag
func lookupLanguage(tag string) (string, bool) {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if i := strings.IndexAny(tag, "-_"); i >= 0 {
		tag = tag[:i]
	}
	msg, ok := notFoundMessages[tag]
	return msg, ok
}

// loggerFrom prefers the request-scoped logger set by the HTTP middleware
func (p *Pipeline) loggerFrom(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		base := l.With().Str("component", "pipeline").Logger()
		return &base
	}
	return &p.logger
}
