// Package pipeline runs one survey submission through normalization,
// classification, tiering and advice generation.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Skufu/diabetes-risk/internal/advice"
	"github.com/Skufu/diabetes-risk/internal/model"
	"github.com/Skufu/diabetes-risk/internal/risk"
	"github.com/Skufu/diabetes-risk/internal/survey"
)

var (
	// ErrInvalidInput wraps normalization failures; the request is rejected.
	ErrInvalidInput = errors.New("invalid survey answers")
	// ErrInference wraps classifier failures; the request halts before advice.
	ErrInference = errors.New("risk inference failed")
	// ErrAdviceDisabled is reported when no advisor is configured.
	ErrAdviceDisabled = errors.New("advice generation is not configured")
)

// Outcome is what the audit log keeps of an assessment. Answers and the
// feature vector are not part of it.
type Outcome struct {
	ID          uuid.UUID
	Probability float64
	Tier        risk.Tier
	Model       string
	AdviceOK    bool
	CreatedAt   time.Time
}

// Recorder persists outcomes.
type Recorder interface {
	Record(ctx context.Context, o Outcome) error
}

// Observer receives per-stage measurements.
type Observer interface {
	ObserveAssessment(tier risk.Tier, elapsed time.Duration)
	ObserveFailure(stage string)
}

// Stage names reported to Observer.ObserveFailure.
const (
	StageNormalize = "normalize"
	StageInference = "inference"
	StageAdvice    = "advice"
	StageRecord    = "record"
)

// Result is the outcome of one submission. Estimate is valid whenever Assess
// returns a nil error, even if AdviceError is set.
type Result struct {
	ID          uuid.UUID
	Features    survey.FeatureVector
	Estimate    risk.Estimate
	Model       string
	Advice      string
	AdviceError error
}

// AssessOptions tunes a single run.
type AssessOptions struct {
	SkipAdvice bool
}

// Pipeline holds the collaborators shared across requests. The classifier is
// read-only after construction.
type Pipeline struct {
	classifier model.Classifier
	advisor    advice.Advisor
	recorder   Recorder
	observer   Observer
	logger     *zap.Logger
}

type Option func(*Pipeline)

func WithAdvisor(a advice.Advisor) Option { return func(p *Pipeline) { p.advisor = a } }
func WithRecorder(r Recorder) Option { return func(p *Pipeline) { p.recorder = r } }
func WithObserver(o Observer) Option { return func(p *Pipeline) { p.observer = o } }
func WithLogger(l *zap.Logger) Option { return func(p *Pipeline) { p.logger = l } }

// New builds a pipeline around classifier.
func New(classifier model.Classifier, opts ...Option) *Pipeline {
	p := &Pipeline{
		classifier: classifier,
		observer:   nopObserver{},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.Named("pipeline")
	return p
}

// AdviceEnabled reports whether an advisor is configured.
func (p *Pipeline) AdviceEnabled() bool { return p.advisor != nil }

// Features normalizes answers without scoring them.
func (p *Pipeline) Features(answers survey.Answers) (survey.FeatureVector, error) {
	v, err := survey.Normalize(answers)
	if err != nil {
		p.observer.ObserveFailure(StageNormalize)
		return survey.FeatureVector{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return v, nil
}

// Estimate normalizes and scores answers, without advice.
func (p *Pipeline) Estimate(ctx context.Context, answers survey.Answers) (survey.FeatureVector, risk.Estimate, error) {
	v, err := p.Features(answers)
	if err != nil {
		return v, risk.Estimate{}, err
	}

	prob, err := p.classifier.Predict(ctx, v)
	if err != nil {
		p.observer.ObserveFailure(StageInference)
		return v, risk.Estimate{}, fmt.Errorf("%w: %w", ErrInference, err)
	}
	est, err := risk.NewEstimate(prob)
	if err != nil {
		p.observer.ObserveFailure(StageInference)
		return v, risk.Estimate{}, fmt.Errorf("%w: %w", ErrInference, err)
	}
	return v, est, nil
}

// Assess runs the whole pipeline. Input and inference failures are returned
// as errors; an advice failure is reported in Result.AdviceError and leaves
// the estimate intact.
func (p *Pipeline) Assess(ctx context.Context, answers survey.Answers, opts AssessOptions) (*Result, error) {
	start := time.Now()
	v, est, err := p.Estimate(ctx, answers)
	if err != nil {
		return nil, err
	}

	res := &Result{
		ID:       uuid.New(),
		Features: v,
		Estimate: est,
		Model:    p.classifier.Name(),
	}
	p.observer.ObserveAssessment(est.Tier, time.Since(start))
	p.logger.Info("risk estimated",
		zap.String("assessment_id", res.ID.String()),
		zap.Float64("probability", est.Probability),
		zap.Stringer("tier", est.Tier),
	)

	if !opts.SkipAdvice {
		p.advise(ctx, answers, res)
	}
	p.record(ctx, res)
	return res, nil
}

func (p *Pipeline) advise(ctx context.Context, answers survey.Answers, res *Result) {
	if p.advisor == nil {
		res.AdviceError = ErrAdviceDisabled
		return
	}
	text, err := p.advisor.Advise(ctx, advice.Request{Answers: answers, Estimate: res.Estimate})
	if err != nil {
		p.observer.ObserveFailure(StageAdvice)
		p.logger.Warn("advice generation failed",
			zap.String("assessment_id", res.ID.String()), zap.Error(err))
		res.AdviceError = err
		return
	}
	res.Advice = text
}

func (p *Pipeline) record(ctx context.Context, res *Result) {
	if p.recorder == nil {
		return
	}
	err := p.recorder.Record(ctx, Outcome{
		ID:          res.ID,
		Probability: res.Estimate.Probability,
		Tier:        res.Estimate.Tier,
		Model:       res.Model,
		AdviceOK:    res.AdviceError == nil && res.Advice != "",
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		p.observer.ObserveFailure(StageRecord)
		p.logger.Error("failed to record assessment",
			zap.String("assessment_id", res.ID.String()), zap.Error(err))
	}
}

type nopObserver struct{}

func (nopObserver) ObserveAssessment(risk.Tier, time.Duration) {}
func (nopObserver) ObserveFailure(string) {}
