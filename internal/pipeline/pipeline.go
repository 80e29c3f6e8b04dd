// Package pipeline wires the stages end to end: classify, probe, fetch,
// extract, analyze, assemble, validate, persist. It owns run directories
// and the failure trace; stages stay ignorant of each other.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/Hchen1218/viral-content-breakdown/internal/analyze"
	"github.com/Hchen1218/viral-content-breakdown/internal/cache"
	"github.com/Hchen1218/viral-content-breakdown/internal/capability"
	"github.com/Hchen1218/viral-content-breakdown/internal/extract"
	"github.com/Hchen1218/viral-content-breakdown/internal/fetch"
	"github.com/Hchen1218/viral-content-breakdown/internal/model"
	"github.com/Hchen1218/viral-content-breakdown/internal/platform"
	"github.com/Hchen1218/viral-content-breakdown/internal/report"
	"github.com/Hchen1218/viral-content-breakdown/internal/session"
)

// Options are the per-run knobs the CLI passes through.
type Options struct {
	URL         string
	InputVideo  string // local files bypassing the fetch chain
	InputImages []string
	InputAudio  string
	InputTexts  []string // transcript or article body files
	SessionFile string
	SkipSession bool
	OutputDir   string
	ExportDir   string // named export library; empty disables export
}

// localInputs flattens the manual override flags. Any non-empty result
// bypasses the fetch chain entirely.
func (o Options) localInputs() []string {
	var paths []string
	if o.InputVideo != "" {
		paths = append(paths, o.InputVideo)
	}
	paths = append(paths, o.InputImages...)
	if o.InputAudio != "" {
		paths = append(paths, o.InputAudio)
	}
	paths = append(paths, o.InputTexts...)
	return paths
}

// Outcome is what a finished run hands back to the CLI.
type Outcome struct {
	Report     *model.Report
	RunDir     string
	ReportPath string
	ExportDir  string
}

// Pipeline executes breakdown runs. One Pipeline serves many runs; all
// per-run state lives on the stack.
type Pipeline struct {
	cfg      *model.Config
	logger   *zap.Logger
	prober   *capability.Prober
	memCache *cache.Memory
	confirm  func(string) bool
}

func New(cfg *model.Config, confirm func(string) bool, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		logger:   logger,
		prober:   capability.NewProber(logger),
		memCache: cache.NewMemory(cfg.Cache.TTL, 2*cfg.Cache.TTL),
		confirm:  confirm,
	}
}

// Run executes one breakdown. Failures after the run directory exists
// leave an error.json trace in it.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*Outcome, error) {
	detectedPlatform, guessedType := platform.Classify(opts.URL)
	normalized, note := platform.Normalize(opts.URL)
	p.logger.Info("run started",
		zap.String("url", opts.URL),
		zap.String("platform", string(detectedPlatform)),
		zap.String("normalized", normalized))

	caps := p.prober.Probe(ctx)
	runDir, err := p.runDir(opts, detectedPlatform)
	if err != nil {
		return nil, err
	}
	persister := report.NewPersister(p.cfg.Output, p.confirm, p.logger)
	runMeta := report.NewRunMeta(opts.URL, detectedPlatform)

	fail := func(cause error) (*Outcome, error) {
		structured := asStructured(cause)
		if writeErr := persister.WriteError(runDir, structured); writeErr != nil {
			p.logger.Warn("could not write error trace", zap.Error(writeErr))
		}
		_ = persister.WriteRunMeta(runDir, runMeta)
		return nil, cause
	}

	bundle, fetchedAt, err := p.fetchBundle(ctx, opts, detectedPlatform, normalized, runDir, caps, runMeta)
	if err != nil {
		return fail(err)
	}

	contentType := fetch.InferContentType(bundle)
	if contentType == model.ContentUnknown {
		contentType = guessedType
	}
	metadata := fetch.ExtractMetadata(bundle)

	extractor := extract.NewExtractor(p.cfg.Extract, caps, p.transcriber(caps), p.logger)
	signals, err := extractor.Run(ctx, bundle)
	if err != nil {
		return fail(err)
	}

	engine := analyze.NewEngine(caps, p.llmConfig(), p.logger)
	analysis, err := engine.Analyze(ctx, &analyze.Input{
		Platform:    detectedPlatform,
		ContentType: contentType,
		Post:        metadata.PostContent,
		Metrics:     metadata.Metrics,
		Signals:     signals,
	})
	if err != nil {
		return fail(err)
	}

	var notes []string
	if note != "" {
		notes = append(notes, note)
	}
	assembled := report.Assemble(&report.Inputs{
		URL:           opts.URL,
		NormalizedURL: normalized,
		Platform:      detectedPlatform,
		ContentType:   contentType,
		Quality:       p.cfg.Fetch.Quality,
		Language:      p.cfg.Output.Language,
		FetchedAt:     fetchedAt,
		PublishedAt:   metadata.PublishedAt,
		Post:          metadata.PostContent,
		Metrics:       metadata.Metrics,
		Signals:       signals,
		Analysis:      analysis,
		Notes:         notes,
	})

	if err := report.Validate(assembled, signals.Pool, caps); err != nil {
		var vErr *model.ValidationError
		if errors.As(err, &vErr) {
			return fail(vErr.Structured())
		}
		return fail(err)
	}

	reportPath, _, err := persister.WriteReport(runDir, assembled)
	if err != nil {
		return fail(err)
	}
	if err := persister.WriteRunMeta(runDir, runMeta); err != nil {
		return fail(err)
	}
	if err := persister.ApplyRetention(runDir); err != nil {
		p.logger.Warn("artifact retention failed", zap.Error(err))
	}

	outcome := &Outcome{Report: assembled, RunDir: runDir, ReportPath: reportPath}
	if opts.ExportDir != "" {
		exported, err := persister.ExportNamed(opts.ExportDir, runDir, assembled)
		if err != nil {
			p.logger.Warn("named export failed", zap.Error(err))
		} else {
			outcome.ExportDir = exported
		}
	}

	p.logger.Info("run finished",
		zap.String("report", reportPath),
		zap.Float64("confidence", assembled.ConfidenceOverall),
		zap.String("mode", string(assembled.Meta.AnalysisMode)))
	return outcome, nil
}

// fetchBundle either wraps a local input file or walks the adapter chain.
func (p *Pipeline) fetchBundle(ctx context.Context, opts Options, detected model.Platform, normalized, runDir string, caps capability.Set, runMeta *report.RunMeta) (*fetch.Bundle, time.Time, error) {
	if locals := opts.localInputs(); len(locals) > 0 {
		for _, path := range locals {
			if _, err := os.Stat(path); err != nil {
				return nil, time.Time{}, fmt.Errorf("local input: %w", err)
			}
		}
		bundle := fetch.ClassifyPaths(locals, runDir)
		bundle.DownloadDir = runDir
		runMeta.AdapterID = "local-input"
		return bundle, time.Now(), nil
	}

	chain := fetch.ChainFor(detected, fetch.ChainDeps{
		Config:   p.cfg,
		Caps:     caps,
		Provider: p.sessionProvider(opts),
		Cache:    p.memCache,
		Logger:   p.logger,
	})
	result, err := chain.Run(ctx, &fetch.Request{
		URL:           opts.URL,
		NormalizedURL: normalized,
		Platform:      detected,
		Quality:       p.cfg.Fetch.Quality,
		DownloadDir:   runDir,
	})
	if err != nil {
		return nil, time.Time{}, err
	}
	runMeta.AdapterID = result.AdapterID
	runMeta.Attempts = result.Attempts
	return result.Bundle, time.Now(), nil
}

func (p *Pipeline) sessionProvider(opts Options) session.Provider {
	if opts.SkipSession {
		return nil
	}
	if opts.SessionFile != "" {
		return &session.FileProvider{Path: opts.SessionFile}
	}
	if p.cfg.Session.File != "" {
		return &session.FileProvider{Path: p.cfg.Session.File}
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	return session.NewQRLoginProvider(p.cfg.Session.Browser, filepath.Join(home, ".vcb", "sessions"), p.logger)
}

// transcriber picks the ASR backend behind HasASRBackend: the hosted
// endpoint when a credential is present, the local whisper binary
// otherwise. A true HasASRBackend always yields a usable transcriber.
func (p *Pipeline) transcriber(caps capability.Set) extract.Transcriber {
	if p.cfg.LLM.APIKey != "" {
		return extract.NewOpenAITranscriber(p.cfg.LLM.APIKey, p.cfg.LLM.BaseURL)
	}
	if caps.WhisperPath != "" {
		return extract.NewWhisperTranscriber(caps.WhisperPath)
	}
	return nil
}

func (p *Pipeline) llmConfig() model.LLMConfig {
	return p.cfg.LLM
}

func (p *Pipeline) runDir(opts Options, detected model.Platform) (string, error) {
	base := opts.OutputDir
	if base == "" {
		base = p.cfg.Output.Dir
	}
	if base == "" {
		base = "vcb_runs"
	}
	dir := filepath.Join(base, time.Now().Format("20060102-150405")+"-"+string(detected))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create run dir: %w", err)
	}
	return dir, nil
}

// asStructured maps any stage failure to its structured form for the
// error.json trace.
func asStructured(err error) *model.StructuredError {
	var structured *model.StructuredError
	if errors.As(err, &structured) {
		return structured
	}
	var fetchErr *model.FetchError
	if errors.As(err, &fetchErr) {
		return &fetchErr.StructuredError
	}
	var sessionErr *model.SessionExpiredError
	if errors.As(err, &sessionErr) {
		return model.NewStructuredError(model.CodeSessionExpired,
			sessionErr.Error(), "run `vcb session login` and retry")
	}
	var vErr *model.ValidationError
	if errors.As(err, &vErr) {
		return vErr.Structured()
	}
	return model.NewStructuredError(model.CodePipelineFailed, err.Error(),
		"re-run with --verbose for stage logs")
}
