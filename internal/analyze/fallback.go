package analyze

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/Hchen1218/viral-content-breakdown/internal/extract"
	"github.com/Hchen1218/viral-content-breakdown/internal/model"
)

// Fallback is the deterministic analyzer used when no inference credential
// is available or LLM analysis fails. Same input, same output: it ranks
// and cites purely from extracted signals.
type Fallback struct{}

func NewFallback() *Fallback { return &Fallback{} }

func (f *Fallback) Mode() model.AnalysisMode { return model.AnalysisFallback }

func (f *Fallback) Analyze(_ context.Context, in *Input) (*Analysis, error) {
	out := &Analysis{Mode: model.AnalysisFallback}

	out.Hook = f.hook(in)
	out.ScriptStructure = f.scriptStructure(in)
	out.NarrativePattern = f.narrativePattern(in)
	out.CoverTitle = f.coverTitle(in)
	out.VoiceoverCopy = f.voiceoverCopy(in, out)
	out.ProductionMethods = f.productionMethods(in)
	out.ViralityDrivers = f.viralityDrivers(in)
	out.AdaptationIdeas = f.adaptationIdeas(in, out.NarrativePattern.Name)

	return out, nil
}

// hook picks the first thing a viewer meets: the opening transcript span,
// else the cover text, else the post title.
func (f *Fallback) hook(in *Input) model.TextSection {
	if len(in.Signals.Transcript) > 0 {
		span := in.Signals.Transcript[0]
		return model.TextSection{
			Text:     span.Text,
			Evidence: citeTranscript(in, 0, 1),
		}
	}
	if in.Signals.CoverText != "" {
		return model.TextSection{
			Text:     firstLine(in.Signals.CoverText),
			Evidence: in.Signals.Pool.ByType(model.EvidenceCoverOCR),
		}
	}
	if in.Post.Title != "" {
		return model.TextSection{Text: in.Post.Title}
	}
	return model.TextSection{}
}

var scriptSectionNames = []string{"开场钩子", "核心内容", "结尾引导"}

// scriptStructure splits the transcript into three acts. Short material
// yields fewer sections rather than empty padding.
func (f *Fallback) scriptStructure(in *Input) []model.ScriptSection {
	spans := in.Signals.Transcript
	if len(spans) == 0 {
		if in.Post.Body == "" {
			return nil
		}
		return []model.ScriptSection{{Section: scriptSectionNames[1], Text: in.Post.Body}}
	}

	bounds := splitThirds(len(spans))
	var sections []model.ScriptSection
	for i, b := range bounds {
		if b.from == b.to {
			continue
		}
		var texts []string
		for _, span := range spans[b.from:b.to] {
			texts = append(texts, span.Text)
		}
		sections = append(sections, model.ScriptSection{
			Section:  scriptSectionNames[i],
			Text:     strings.Join(texts, " "),
			Evidence: citeTranscript(in, b.from, b.to),
		})
	}
	return sections
}

type bound struct{ from, to int }

func splitThirds(n int) []bound {
	first := (n + 2) / 3
	second := first + (n-first+1)/2
	return []bound{{0, first}, {first, second}, {second, n}}
}

// pattern keywords, checked in order; first hit wins
var narrativeTaxonomy = []struct {
	name        string
	description string
	keywords    []string
}{
	{"悬念反转", "以悬念开场，中段抛出与预期相反的信息维持注意力", []string{"没想到", "反转", "竟然", "结果", "真相", "最后一个"}},
	{"教程清单", "按步骤或清单推进，观众为拿走方法而看完", []string{"第一步", "步骤", "方法", "教程", "教你", "三个", "3个", "干货"}},
	{"对比测评", "并列多个对象给出结论，替观众完成筛选决策", []string{"对比", "测评", "实测", "哪个", "区别", "值不值"}},
	{"情感共鸣", "以个人经历或情绪叙事触发认同与转发", []string{"故事", "经历", "感动", "泪", "治愈", "致敬"}},
}

func (f *Fallback) narrativePattern(in *Input) model.NarrativePattern {
	corpus := strings.Join([]string{
		in.Post.Title,
		in.Post.Body,
		transcriptText(in),
		in.Signals.CoverText,
	}, "\n")

	for _, candidate := range narrativeTaxonomy {
		for _, kw := range candidate.keywords {
			if strings.Contains(corpus, kw) {
				return model.NarrativePattern{
					Name:        candidate.name,
					Description: candidate.description,
					Evidence:    citeKeyword(in, kw),
				}
			}
		}
	}
	return model.NarrativePattern{
		Name:        "直给式讲解",
		Description: "无明显叙事装置，信息直接线性展开",
	}
}

func (f *Fallback) coverTitle(in *Input) model.TextSection {
	if in.Signals.CoverText == "" {
		return model.TextSection{}
	}
	return model.TextSection{
		Text:     firstLine(in.Signals.CoverText),
		Evidence: in.Signals.Pool.ByType(model.EvidenceCoverOCR),
	}
}

// voiceoverCopy is the spoken script. Article text and image posts have no
// voiceover; that absence is recorded as a limitation, not faked from body
// text.
func (f *Fallback) voiceoverCopy(in *Input, out *Analysis) model.TextSection {
	src := in.Signals.TranscriptSource
	if (src == "subtitles" || src == "asr") && len(in.Signals.Transcript) > 0 {
		return model.TextSection{
			Text:     transcriptText(in),
			Evidence: citeTranscript(in, 0, len(in.Signals.Transcript)),
		}
	}
	if in.ContentType == model.ContentVideo {
		out.Limitations = append(out.Limitations, "voiceover copy unavailable: no transcript could be extracted from the video")
	} else {
		out.Limitations = append(out.Limitations, "voiceover copy not applicable: material has no audio track")
	}
	return model.TextSection{}
}

type methodCandidate struct {
	method string
	score  float64
	cite   []model.Evidence
}

// productionMethods ranks tooling hypotheses by signal presence and always
// returns exactly three, confidence descending. Ties break on evidence
// count, then on candidate declaration order.
func (f *Fallback) productionMethods(in *Input) []model.ProductionMethod {
	s := in.Signals
	hasVideo := len(s.Assets.Video) > 0
	hasSubtitledFrames := len(s.FrameTexts) >= 2
	vertical := s.Visual.VideoMainAspectRatio.Value == "9:16" || s.Visual.VideoMainAspectRatio.Value == "3:4"
	hasASR := s.TranscriptSource == "asr"
	isArticle := in.ContentType == model.ContentArticle
	isImagePost := in.ContentType == model.ContentImagePost

	frameEvidence := s.Pool.ByType(model.EvidenceFrameOCR)
	visualEvidence := s.Pool.ByType(model.EvidenceVisualPattern)

	candidates := []methodCandidate{
		{method: "手机竖屏实拍 + 移动端剪辑", score: scoreIf(0.3, hasVideo) + scoreIf(0.25, vertical), cite: visualEvidence},
		{method: "真人出镜口播 + 花字字幕", score: scoreIf(0.2, hasVideo) + scoreIf(0.3, hasSubtitledFrames), cite: frameEvidence},
		{method: "素材混剪 + AI 配音", score: scoreIf(0.15, hasVideo) + scoreIf(0.2, hasASR && !hasSubtitledFrames), cite: nil},
		{method: "图文模板排版", score: scoreIf(0.5, isImagePost), cite: visualEvidence},
		{method: "长文编辑器排版 + 配图", score: scoreIf(0.5, isArticle), cite: nil},
		{method: "录屏演示 + 后期标注", score: scoreIf(0.1, hasVideo && !vertical), cite: nil},
	}

	for i := range candidates {
		// Floor keeps the mandatory third hypothesis above zero.
		candidates[i].score += 0.1
		if candidates[i].score > 0.95 {
			candidates[i].score = 0.95
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return len(candidates[i].cite) > len(candidates[j].cite)
	})

	methods := make([]model.ProductionMethod, 0, 3)
	for _, c := range candidates[:3] {
		methods = append(methods, model.ProductionMethod{
			Method:     c.method,
			Confidence: round2(c.score),
			Evidence:   c.cite,
		})
	}
	return methods
}

func (f *Fallback) viralityDrivers(in *Input) []model.ViralityDriver {
	var drivers []model.ViralityDriver

	if len(in.Signals.Transcript) > 0 {
		first := in.Signals.Transcript[0].Text
		if len([]rune(first)) <= 25 {
			drivers = append(drivers, model.ViralityDriver{
				Driver:   "强开场钩子",
				Why:      "开场信息密度高，首句即给出看点，降低划走率",
				Evidence: citeTranscript(in, 0, 1),
			})
		}
	}
	if in.Signals.CoverText != "" {
		drivers = append(drivers, model.ViralityDriver{
			Driver:   "封面大字点题",
			Why:      "封面文字直接承诺内容价值，提高点击率",
			Evidence: in.Signals.Pool.ByType(model.EvidenceCoverOCR),
		})
	}
	if len(in.Post.Tags) >= 3 {
		drivers = append(drivers, model.ViralityDriver{
			Driver: "话题标签铺量",
			Why:    fmt.Sprintf("携带 %d 个话题标签，扩大推荐池覆盖", len(in.Post.Tags)),
		})
	}
	if in.Metrics.Likes != nil && *in.Metrics.Likes >= 10000 {
		drivers = append(drivers, model.ViralityDriver{
			Driver: "互动数据滚雪球",
			Why:    "高点赞基数触发平台二次分发",
		})
	}

	if len(drivers) == 0 {
		drivers = append(drivers, model.ViralityDriver{
			Driver: "信号不足",
			Why:    "可提取信号过少，无法归因传播驱动",
		})
	}
	return drivers
}

func (f *Fallback) adaptationIdeas(in *Input, pattern string) []model.AdaptationIdea {
	ideas := []model.AdaptationIdea{
		{
			Idea:      "沿用同款开场结构，替换为自己领域的具体案例",
			Rationale: "开场钩子结构与领域无关，替换素材即可复用注意力曲线",
		},
	}
	switch pattern {
	case "教程清单":
		ideas = append(ideas, model.AdaptationIdea{
			Idea:      "把步骤数做进标题与封面，保持三到五步",
			Rationale: "清单式承诺明确交付物，观众完播意愿更强",
		})
	case "悬念反转":
		ideas = append(ideas, model.AdaptationIdea{
			Idea:      "前三秒抛出反常识结论，正片再展开论证",
			Rationale: "反转结构依赖前置悬念，复刻时保留信息差",
		})
	default:
		ideas = append(ideas, model.AdaptationIdea{
			Idea:      "为同主题补充一个人格化视角或口头禅",
			Rationale: "直给式内容同质化高，人格化是最低成本的差异点",
		})
	}
	if in.Platform == model.PlatformXiaohongshu {
		ideas = append(ideas, model.AdaptationIdea{
			Idea:      "首图做成对比图或清单图，正文前两行放结论",
			Rationale: "该平台流量由首图点击率主导",
		})
	}
	return ideas
}

// citation helpers

func citeTranscript(in *Input, from, to int) []model.Evidence {
	var cites []model.Evidence
	for i, span := range in.Signals.Transcript {
		if i < from || i >= to || i >= 20 {
			continue
		}
		evidenceType := model.EvidenceTranscriptSpan
		if span.Timed() {
			evidenceType = model.EvidenceTimestamp
		}
		for _, e := range in.Signals.Pool.ByType(evidenceType) {
			if e.Locator == span.Locator(i+1) {
				cites = append(cites, e)
				break
			}
		}
		if len(cites) == 3 {
			break
		}
	}
	return cites
}

func citeKeyword(in *Input, keyword string) []model.Evidence {
	for _, e := range in.Signals.Pool.All() {
		if strings.Contains(e.Snippet, keyword) {
			return []model.Evidence{e}
		}
	}
	return nil
}

func transcriptText(in *Input) string {
	return extract.JoinSpans(in.Signals.Transcript)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func scoreIf(score float64, cond bool) float64 {
	if cond {
		return score
	}
	return 0
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}
