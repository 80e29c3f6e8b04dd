// Package report assembles, validates, renders and persists the final
// breakdown report. Assembly is additive merging; validation freezes the
// report and is the only stage allowed to reject it.
package report

import (
	"math"
	"time"

	"github.com/Hchen1218/viral-content-breakdown/internal/analyze"
	"github.com/Hchen1218/viral-content-breakdown/internal/extract"
	"github.com/Hchen1218/viral-content-breakdown/internal/model"
)

// Inputs carries each stage's contribution to the final report.
type Inputs struct {
	URL           string
	NormalizedURL string
	Platform      model.Platform
	ContentType   model.ContentType
	Quality       string
	Language      string
	FetchedAt     time.Time
	PublishedAt   string
	Post          model.PostContent
	Metrics       model.EngagementMetrics
	Signals       *extract.Signals
	Analysis      *analyze.Analysis
	Notes         []string // fetch/normalization notes that become limitations
}

// Assemble merges the stage outputs into one report and computes the
// overall confidence. It never rejects; validation does that.
func Assemble(in *Inputs) *model.Report {
	r := &model.Report{
		Meta: model.Meta{
			URL:           in.URL,
			NormalizedURL: in.NormalizedURL,
			Platform:      in.Platform,
			ContentType:   in.ContentType,
			FetchedAt:     in.FetchedAt.UTC(),
			AnalyzedAt:    time.Now().UTC(),
			PublishedAt:   in.PublishedAt,
			Quality:       in.Quality,
			Language:      in.Language,
			AnalysisMode:  in.Analysis.Mode,
		},
		AssetIndex:                in.Signals.Assets,
		EngagementMetrics:         in.Metrics,
		VisualSpecs:               in.Signals.Visual,
		PostContent:               in.Post,
		Hook:                      in.Analysis.Hook,
		ScriptStructure:           in.Analysis.ScriptStructure,
		NarrativePattern:          in.Analysis.NarrativePattern,
		CoverTitle:                in.Analysis.CoverTitle,
		VoiceoverCopy:             in.Analysis.VoiceoverCopy,
		ProductionMethodInference: in.Analysis.ProductionMethods,
		ViralityDrivers:           in.Analysis.ViralityDrivers,
		AdaptationIdeas:           in.Analysis.AdaptationIdeas,
		Limitations:               mergeLimitations(in.Notes, in.Signals.Limitations, in.Analysis.Limitations),
	}
	r.ConfidenceOverall = overallConfidence(r)
	return r
}

func mergeLimitations(groups ...[]string) []string {
	seen := make(map[string]struct{})
	var merged []string
	for _, group := range groups {
		for _, l := range group {
			if l == "" {
				continue
			}
			if _, dup := seen[l]; dup {
				continue
			}
			seen[l] = struct{}{}
			merged = append(merged, l)
		}
	}
	return merged
}

// evidenceFloorWeight keeps evidence-less but populated sections from
// vanishing out of the weighted mean entirely.
const evidenceFloorWeight = 0.2

// overallConfidence is the evidence-count-weighted mean of the judged
// sections: each populated section contributes its confidence with weight
// floor + citation count, so well-evidenced sections dominate. Clamped to
// [0,1], two decimals.
func overallConfidence(r *model.Report) float64 {
	var weightedSum, totalWeight float64

	add := func(confidence float64, evidenceCount int) {
		weight := evidenceFloorWeight + float64(evidenceCount)
		weightedSum += confidence * weight
		totalWeight += weight
	}
	textSection := func(s model.TextSection) {
		if s.Text == "" {
			return
		}
		add(meanEvidenceConfidence(s.Evidence), len(s.Evidence))
	}

	textSection(r.Hook)
	textSection(r.CoverTitle)
	textSection(r.VoiceoverCopy)
	for _, section := range r.ScriptStructure {
		if section.Text != "" {
			add(meanEvidenceConfidence(section.Evidence), len(section.Evidence))
		}
	}
	if r.NarrativePattern.Name != "" {
		add(meanEvidenceConfidence(r.NarrativePattern.Evidence), len(r.NarrativePattern.Evidence))
	}
	for _, method := range r.ProductionMethodInference {
		add(method.Confidence, len(method.Evidence))
	}
	for _, driver := range r.ViralityDrivers {
		add(meanEvidenceConfidence(driver.Evidence), len(driver.Evidence))
	}

	if totalWeight == 0 {
		return 0
	}
	overall := weightedSum / totalWeight
	if overall < 0 {
		overall = 0
	}
	if overall > 1 {
		overall = 1
	}
	return math.Round(overall*100) / 100
}

// uncitedConfidence is what a populated section with no citations is
// worth: present, but unverifiable.
const uncitedConfidence = 0.3

func meanEvidenceConfidence(evidence []model.Evidence) float64 {
	if len(evidence) == 0 {
		return uncitedConfidence
	}
	var sum float64
	for _, e := range evidence {
		sum += e.Confidence
	}
	return sum / float64(len(evidence))
}
