// Package extract turns a fetched asset bundle into textual and visual
// signals: sampled frames, OCR text, a transcript, and the evidence pool
// the analysis stage cites from. Every extractor is capability-gated; an
// absent tool produces a recorded limitation, never an error.
package extract

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/Hchen1218/viral-content-breakdown/internal/capability"
	"github.com/Hchen1218/viral-content-breakdown/internal/fetch"
	"github.com/Hchen1218/viral-content-breakdown/internal/model"
	"github.com/Hchen1218/viral-content-breakdown/internal/worker"
)

// FrameText is the OCR outcome for one sampled frame.
type FrameText struct {
	Index      int
	Path       string
	Text       string
	Confidence float64
}

// Signals is everything extraction learned about the material.
type Signals struct {
	Assets           model.AssetIndex
	Visual           model.VisualSpecs
	Transcript       []Span
	TranscriptSource string // subtitles | asr | article | ""
	FrameTexts       []FrameText
	CoverText        string
	CoverConfidence  float64
	Pool             *Pool
	Limitations      []string
}

// Extractor orchestrates the capability-gated extraction pass.
type Extractor struct {
	cfg         model.ExtractConfig
	caps        capability.Set
	sampler     *FrameSampler
	ocr         *OCR
	transcriber Transcriber
	logger      *zap.Logger
}

func NewExtractor(cfg model.ExtractConfig, caps capability.Set, transcriber Transcriber, logger *zap.Logger) *Extractor {
	e := &Extractor{cfg: cfg, caps: caps, transcriber: transcriber, logger: logger}
	if caps.HasFrameDecoder {
		e.sampler = NewFrameSampler(caps.FFmpegPath)
	}
	if caps.HasOCR {
		e.ocr = NewOCR(caps.TesseractPath)
	}
	return e
}

// Run extracts signals from the bundle. The returned Signals always has a
// non-nil pool; missing capabilities surface as Limitations entries.
func (e *Extractor) Run(ctx context.Context, bundle *fetch.Bundle) (*Signals, error) {
	signals := &Signals{Pool: NewPool()}

	frames, audioPath := e.sampleVideo(ctx, bundle, signals)
	e.buildTranscript(ctx, bundle, audioPath, signals)
	e.runOCR(ctx, bundle, frames, signals)
	e.inferVisual(bundle, frames, signals)
	e.indexAssets(bundle, frames, audioPath, signals)
	e.collectEvidence(signals)

	e.logger.Info("extraction complete",
		zap.Int("frames", len(frames)),
		zap.Int("transcript_spans", len(signals.Transcript)),
		zap.Int("evidence", signals.Pool.Len()),
		zap.Strings("limitations", signals.Limitations))
	return signals, nil
}

func (e *Extractor) sampleVideo(ctx context.Context, bundle *fetch.Bundle, signals *Signals) (frames []string, audioPath string) {
	if len(bundle.VideoPaths) == 0 {
		return nil, ""
	}
	if e.sampler == nil {
		signals.limitAbsent("ffmpeg", "frame sampling skipped")
		return nil, ""
	}

	video := bundle.VideoPaths[0]
	framesDir := filepath.Join(bundle.DownloadDir, "frames")
	sampled, err := e.sampler.SampleFrames(ctx, video, framesDir, e.cfg.MaxFrames)
	if err != nil {
		signals.limit("frame sampling failed: " + err.Error())
	} else {
		frames = sampled
	}

	if len(bundle.AudioPaths) > 0 {
		return frames, bundle.AudioPaths[0]
	}
	wav, err := e.sampler.DemuxAudio(ctx, video, filepath.Join(bundle.DownloadDir, "audio.wav"))
	if err != nil {
		e.logger.Debug("audio demux failed", zap.Error(err))
		return frames, ""
	}
	return frames, wav
}

func (e *Extractor) buildTranscript(ctx context.Context, bundle *fetch.Bundle, audioPath string, signals *Signals) {
	for _, path := range preferTimedSubtitles(bundle.TranscriptPaths) {
		spans, err := ParseSubtitleFile(path)
		if err != nil || len(spans) == 0 {
			continue
		}
		signals.Transcript = spans
		if strings.ToLower(filepath.Ext(path)) == ".txt" {
			signals.TranscriptSource = "article"
		} else {
			signals.TranscriptSource = "subtitles"
		}
		return
	}

	if audioPath != "" && e.transcriber != nil {
		spans, err := e.transcriber.Transcribe(ctx, audioPath)
		if err != nil {
			signals.limit("voiceover transcription failed: " + err.Error())
			return
		}
		if len(spans) > 0 {
			signals.Transcript = spans
			signals.TranscriptSource = "asr"
			return
		}
	}

	if len(bundle.VideoPaths) > 0 {
		if e.transcriber == nil {
			signals.limitAbsent("speech recognition", "no subtitles and no transcription backend")
		} else {
			signals.limit("voiceover transcript unavailable: no usable subtitles and transcription produced no text")
		}
	}
}

// preferTimedSubtitles orders transcript candidates so timed formats are
// parsed before plain text dumps.
func preferTimedSubtitles(paths []string) []string {
	ordered := append([]string{}, paths...)
	rank := func(p string) int {
		switch strings.ToLower(filepath.Ext(p)) {
		case ".srt", ".vtt", ".ass":
			return 0
		case ".lrc":
			return 1
		}
		return 2
	}
	sort.SliceStable(ordered, func(i, j int) bool { return rank(ordered[i]) < rank(ordered[j]) })
	return ordered
}

type ocrJob struct {
	index int
	path  string
	ocr   *OCR
}

type ocrResult struct {
	frame FrameText
	err   error
}

func (r ocrResult) GetError() error { return r.err }

func (j ocrJob) Execute(ctx context.Context) worker.Result {
	text, conf, err := j.ocr.Recognize(ctx, j.path)
	return ocrResult{
		frame: FrameText{Index: j.index, Path: j.path, Text: text, Confidence: conf},
		err:   err,
	}
}

func (e *Extractor) runOCR(ctx context.Context, bundle *fetch.Bundle, frames []string, signals *Signals) {
	hasStills := len(frames) > 0 || len(bundle.ImagePaths) > 0 || len(bundle.VideoPaths) > 0
	if !hasStills {
		return
	}
	if e.ocr == nil {
		signals.limitAbsent("tesseract OCR", "cover and frame text skipped")
		return
	}

	if cover := coverImage(bundle, frames); cover != "" {
		text, conf, err := e.ocr.Recognize(ctx, cover)
		if err != nil {
			signals.limit("cover text recognition failed: " + err.Error())
		} else {
			signals.CoverText = text
			signals.CoverConfidence = conf
		}
	}

	targets := frames
	if len(targets) == 0 {
		targets = bundle.ImagePaths
	}
	if len(targets) > e.cfg.MaxOCRImages && e.cfg.MaxOCRImages > 0 {
		targets = targets[:e.cfg.MaxOCRImages]
	}

	jobs := make([]worker.Job, 0, len(targets))
	for i, path := range targets {
		jobs = append(jobs, ocrJob{index: i, path: path, ocr: e.ocr})
	}
	for _, result := range worker.RunAll(ctx, e.cfg.OCRWorkers, jobs) {
		res := result.(ocrResult)
		if res.err != nil {
			e.logger.Debug("frame ocr failed", zap.String("path", res.frame.Path), zap.Error(res.err))
			continue
		}
		if res.frame.Text != "" {
			signals.FrameTexts = append(signals.FrameTexts, res.frame)
		}
	}
	sort.Slice(signals.FrameTexts, func(i, j int) bool {
		return signals.FrameTexts[i].Index < signals.FrameTexts[j].Index
	})
}

// coverImage picks the still most likely to be the post cover: a fetched
// thumbnail if present, otherwise the first sampled frame.
func coverImage(bundle *fetch.Bundle, frames []string) string {
	if len(bundle.ImagePaths) > 0 {
		return bundle.ImagePaths[0]
	}
	if len(frames) > 0 {
		return frames[0]
	}
	return ""
}

func (e *Extractor) inferVisual(bundle *fetch.Bundle, frames []string, signals *Signals) {
	source := ""
	if len(frames) > 0 {
		source = frames[0]
	} else if len(bundle.ImagePaths) > 0 {
		source = bundle.ImagePaths[0]
	}
	if source != "" {
		signals.Visual.VideoMainAspectRatio = AspectFromImage(source)
	} else {
		signals.Visual.VideoMainAspectRatio = model.AspectRatio{Value: "unknown"}
	}

	textedFrames := 0
	for _, ft := range signals.FrameTexts {
		if ft.Text != "" {
			textedFrames++
		}
	}
	switch {
	case textedFrames >= 2:
		signals.Visual.SubtitleStyleInference = model.SubtitleStyle{
			SubtitleSize: "medium-large",
			FontStyle:    "bold sans-serif",
			Confidence:   0.4,
			Reason:       fmt.Sprintf("recognizable text on %d of %d sampled frames", textedFrames, len(frames)),
		}
	default:
		signals.Visual.SubtitleStyleInference = model.SubtitleStyle{
			SubtitleSize: "unknown",
			FontStyle:    "unknown",
			Confidence:   0,
			Reason:       "insufficient on-frame text to infer subtitle rendering",
		}
	}
}

func (e *Extractor) indexAssets(bundle *fetch.Bundle, frames []string, audioPath string, signals *Signals) {
	signals.Assets = model.AssetIndex{
		Video:      append([]string{}, bundle.VideoPaths...),
		Images:     append(append([]string{}, bundle.ImagePaths...), frames...),
		Audio:      append([]string{}, bundle.AudioPaths...),
		Transcript: append([]string{}, bundle.TranscriptPaths...),
	}
	if audioPath != "" && len(bundle.AudioPaths) == 0 {
		signals.Assets.Audio = append(signals.Assets.Audio, audioPath)
	}
	if signals.CoverText != "" {
		signals.Assets.CoverText = strings.Split(signals.CoverText, "\n")
	}
}

// maxTranscriptEvidence caps how many transcript spans enter the pool so
// a long video does not drown frame and cover evidence.
const maxTranscriptEvidence = 20

func (e *Extractor) collectEvidence(signals *Signals) {
	transcriptConfidence := 0.9
	if signals.TranscriptSource == "asr" {
		transcriptConfidence = 0.75
	}
	for i, span := range signals.Transcript {
		if i == maxTranscriptEvidence {
			break
		}
		evidenceType := model.EvidenceTranscriptSpan
		if span.Timed() {
			evidenceType = model.EvidenceTimestamp
		}
		signals.Pool.Add(model.Evidence{
			Type:       evidenceType,
			Source:     signals.TranscriptSource,
			Locator:    span.Locator(i + 1),
			Snippet:    span.Text,
			Confidence: transcriptConfidence,
		})
	}

	for _, ft := range signals.FrameTexts {
		signals.Pool.Add(model.Evidence{
			Type:       model.EvidenceFrameOCR,
			Source:     ft.Path,
			Locator:    fmt.Sprintf("frame:%d", ft.Index),
			Snippet:    ft.Text,
			Confidence: ft.Confidence,
		})
	}

	if signals.CoverText != "" {
		signals.Pool.Add(model.Evidence{
			Type:       model.EvidenceCoverOCR,
			Source:     "cover",
			Locator:    "cover",
			Snippet:    signals.CoverText,
			Confidence: signals.CoverConfidence,
		})
	}

	if aspect := signals.Visual.VideoMainAspectRatio; aspect.Value != "unknown" {
		signals.Pool.Add(model.Evidence{
			Type:       model.EvidenceVisualPattern,
			Source:     "frame geometry",
			Locator:    "aspect_ratio",
			Snippet:    "dominant frame aspect ratio " + aspect.Value,
			Confidence: aspect.Confidence,
		})
	}
}

func (s *Signals) limit(msg string) {
	s.Limitations = append(s.Limitations, msg)
}

// limitAbsent records a missing-capability degradation in the uniform
// CapabilityAbsentError wording, so the validator can match skipped
// capabilities against limitations.
func (s *Signals) limitAbsent(capability, detail string) {
	err := &model.CapabilityAbsentError{Capability: capability, Detail: detail}
	s.Limitations = append(s.Limitations, err.Error())
}
