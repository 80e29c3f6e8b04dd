// Package analyze turns extracted signals into the judged sections of the
// report: hook, script structure, narrative pattern, production methods,
// virality drivers and adaptation ideas. Two strategies exist: LLM-backed
// when an inference credential is present, deterministic rules otherwise.
// LLM failure degrades to the rule-based path instead of failing the run.
package analyze

import (
	"context"

	"go.uber.org/zap"

	"github.com/Hchen1218/viral-content-breakdown/internal/capability"
	"github.com/Hchen1218/viral-content-breakdown/internal/extract"
	"github.com/Hchen1218/viral-content-breakdown/internal/model"
)

// Input is everything the analyzers may look at. Analyzers never touch
// raw media; all material arrives pre-extracted.
type Input struct {
	Platform    model.Platform
	ContentType model.ContentType
	Post        model.PostContent
	Metrics     model.EngagementMetrics
	Signals     *extract.Signals
}

// Analysis is the analytical half of the report. Evidence items inside it
// must reference the input pool; the validator enforces that.
type Analysis struct {
	Hook              model.TextSection
	ScriptStructure   []model.ScriptSection
	NarrativePattern  model.NarrativePattern
	CoverTitle        model.TextSection
	VoiceoverCopy     model.TextSection
	ProductionMethods []model.ProductionMethod
	ViralityDrivers   []model.ViralityDriver
	AdaptationIdeas   []model.AdaptationIdea
	Mode              model.AnalysisMode
	Limitations       []string
}

// Analyzer is one analysis strategy.
type Analyzer interface {
	Analyze(ctx context.Context, in *Input) (*Analysis, error)
	Mode() model.AnalysisMode
}

// Engine selects the strategy and guarantees a result: the fallback path
// is deterministic and cannot fail.
type Engine struct {
	llm      Analyzer
	fallback *Fallback
	logger   *zap.Logger
}

func NewEngine(caps capability.Set, cfg model.LLMConfig, logger *zap.Logger) *Engine {
	e := &Engine{fallback: NewFallback(), logger: logger}
	if caps.HasInferenceCredential && cfg.APIKey != "" {
		e.llm = NewLLMAnalyzer(cfg, logger)
	}
	return e
}

// Analyze runs the preferred strategy. A failed LLM pass is recorded as a
// limitation on the fallback result, never surfaced as a pipeline error.
func (e *Engine) Analyze(ctx context.Context, in *Input) (*Analysis, error) {
	if e.llm != nil {
		result, err := e.llm.Analyze(ctx, in)
		if err == nil {
			return result, nil
		}
		e.logger.Warn("llm analysis failed, degrading to rule-based", zap.Error(err))

		result, fallbackErr := e.fallback.Analyze(ctx, in)
		if fallbackErr != nil {
			return nil, fallbackErr
		}
		result.Limitations = append(result.Limitations,
			"llm analysis unavailable, report produced by rule-based analyzer: "+err.Error())
		return result, nil
	}
	return e.fallback.Analyze(ctx, in)
}
