package report

import (
	"fmt"
	"strings"

	"github.com/Hchen1218/viral-content-breakdown/internal/capability"
	"github.com/Hchen1218/viral-content-breakdown/internal/extract"
	"github.com/Hchen1218/viral-content-breakdown/internal/model"
)

// Validate freezes the report: every schema and invariant check runs, all
// problems are collected, and any problem is fatal for report emission.
// Cited evidence must match the extraction pool on type, locator and
// snippet; a citation the pool never produced is a fabrication. The
// capability set lets the validator confirm that every capability the run
// skipped left a matching limitation in the report.
func Validate(r *model.Report, pool *extract.Pool, caps capability.Set) error {
	var problems []string
	fail := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if r.Meta.URL == "" {
		fail("meta.url is empty")
	}
	if !validPlatform(r.Meta.Platform) {
		fail("meta.platform %q outside closed enum", r.Meta.Platform)
	}
	if !validContentType(r.Meta.ContentType) {
		fail("meta.content_type %q outside closed enum", r.Meta.ContentType)
	}
	if r.Meta.Language == "" {
		fail("meta.language is empty")
	}
	if r.Meta.AnalysisMode != model.AnalysisLLM && r.Meta.AnalysisMode != model.AnalysisFallback {
		fail("meta.analysis_mode %q outside closed enum", r.Meta.AnalysisMode)
	}
	if r.Meta.FetchedAt.IsZero() || r.Meta.AnalyzedAt.IsZero() {
		fail("meta timestamps incomplete")
	}

	checkEvidence := func(field string, evidence []model.Evidence) {
		for i, e := range evidence {
			if !e.Type.Valid() {
				fail("%s.evidence[%d].type %q outside closed enum", field, i, e.Type)
			}
			if e.Confidence < 0 || e.Confidence > 1 {
				fail("%s.evidence[%d].confidence %v outside [0,1]", field, i, e.Confidence)
			}
			if pool != nil && !pool.Contains(e) {
				fail("%s.evidence[%d] (%s %s) not found in extraction pool", field, i, e.Type, e.Locator)
			}
		}
	}

	checkEvidence("hook", r.Hook.Evidence)
	checkEvidence("cover_title", r.CoverTitle.Evidence)
	checkEvidence("voiceover_copy", r.VoiceoverCopy.Evidence)
	checkEvidence("narrative_pattern", r.NarrativePattern.Evidence)
	for i, s := range r.ScriptStructure {
		checkEvidence(fmt.Sprintf("script_structure[%d]", i), s.Evidence)
	}
	for i, m := range r.ProductionMethodInference {
		checkEvidence(fmt.Sprintf("production_method_inference[%d]", i), m.Evidence)
	}
	for i, d := range r.ViralityDrivers {
		checkEvidence(fmt.Sprintf("virality_drivers[%d]", i), d.Evidence)
	}

	if len(r.ProductionMethodInference) != 3 {
		fail("production_method_inference has %d entries, exactly 3 required", len(r.ProductionMethodInference))
	}
	for i, m := range r.ProductionMethodInference {
		if m.Method == "" {
			fail("production_method_inference[%d].method is empty", i)
		}
		if m.Confidence < 0 || m.Confidence > 1 {
			fail("production_method_inference[%d].confidence %v outside [0,1]", i, m.Confidence)
		}
		if i > 0 && m.Confidence > r.ProductionMethodInference[i-1].Confidence {
			fail("production_method_inference not sorted by confidence descending at index %d", i)
		}
	}

	// An empty judged section is only acceptable when the report says why.
	if (r.CoverTitle.Text == "" || r.VoiceoverCopy.Text == "" || r.Hook.Text == "") && len(r.Limitations) == 0 {
		fail("empty judged section without any recorded limitation")
	}

	checkCapabilityCoverage(r, caps, fail)

	if r.ConfidenceOverall < 0 || r.ConfidenceOverall > 1 {
		fail("confidence_overall %v outside [0,1]", r.ConfidenceOverall)
	}

	if len(problems) > 0 {
		return &model.ValidationError{Problems: problems}
	}
	return nil
}

// checkCapabilityCoverage confirms that every capability the run skipped
// for this material is acknowledged in limitations. The marker strings
// match the extraction stage's CapabilityAbsentError wording.
func checkCapabilityCoverage(r *model.Report, caps capability.Set, fail func(string, ...any)) {
	limitationMentions := func(marker string) bool {
		for _, l := range r.Limitations {
			if strings.Contains(l, marker) {
				return true
			}
		}
		return false
	}

	hasVideo := len(r.AssetIndex.Video) > 0
	hasStills := hasVideo || len(r.AssetIndex.Images) > 0

	if hasVideo && !caps.HasFrameDecoder && !limitationMentions("ffmpeg") {
		fail("frame decoding skipped but no ffmpeg limitation recorded")
	}
	if hasStills && !caps.HasOCR && !limitationMentions("OCR") {
		fail("text recognition skipped but no OCR limitation recorded")
	}
	if hasVideo && !caps.HasASRBackend && len(r.AssetIndex.Transcript) == 0 && !limitationMentions("speech recognition") {
		fail("voiceover transcription skipped but no speech recognition limitation recorded")
	}
}

func validPlatform(p model.Platform) bool {
	switch p {
	case model.PlatformDouyin, model.PlatformXiaohongshu, model.PlatformWechatMP, model.PlatformUnknown:
		return true
	}
	return false
}

func validContentType(c model.ContentType) bool {
	switch c {
	case model.ContentVideo, model.ContentImagePost, model.ContentArticle, model.ContentUnknown:
		return true
	}
	return false
}
