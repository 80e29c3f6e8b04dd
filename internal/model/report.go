package model

import "time"

// Platform identifies the source platform of a post URL
type Platform string

const (
	PlatformDouyin      Platform = "douyin"
	PlatformXiaohongshu Platform = "xiaohongshu"
	PlatformWechatMP    Platform = "wechat_mp"
	PlatformUnknown     Platform = "unknown"
)

// ContentType is the best-guess content shape of a post
type ContentType string

const (
	ContentVideo     ContentType = "video"
	ContentImagePost ContentType = "image_post"
	ContentArticle   ContentType = "article"
	ContentUnknown   ContentType = "unknown"
)

// AnalysisMode records which analysis strategy produced the judgment fields
type AnalysisMode string

const (
	AnalysisLLM      AnalysisMode = "llm"
	AnalysisFallback AnalysisMode = "fallback"
)

// Meta identifies the analyzed post and how the run treated it
type Meta struct {
	URL           string       `json:"url"`
	NormalizedURL string       `json:"normalized_url,omitempty"`
	Platform      Platform     `json:"platform"`
	ContentType   ContentType  `json:"content_type"`
	FetchedAt     time.Time    `json:"fetched_at"`
	AnalyzedAt    time.Time    `json:"analyzed_at"`
	PublishedAt   string       `json:"published_at,omitempty"`
	Quality       string       `json:"quality,omitempty"`
	Language      string       `json:"language"`
	AnalysisMode  AnalysisMode `json:"analysis_mode"`
}

// AssetIndex lists local paths/identifiers of fetched material, never raw bytes
type AssetIndex struct {
	Video      []string `json:"video"`
	Images     []string `json:"images"`
	Audio      []string `json:"audio"`
	Transcript []string `json:"transcript"`
	CoverText  []string `json:"cover_text"`
}

// EngagementMetrics are best-effort platform counters; nil means unavailable,
// which is not an error.
type EngagementMetrics struct {
	Likes    *int64 `json:"likes"`
	Comments *int64 `json:"comments"`
	Plays    *int64 `json:"plays"`
}

// AspectRatio describes the dominant frame geometry of the video
type AspectRatio struct {
	Value      string  `json:"value"` // e.g. "9:16", "unknown"
	Width      int     `json:"width,omitempty"`
	Height     int     `json:"height,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

// SubtitleStyle is an inference about on-screen subtitle rendering
type SubtitleStyle struct {
	SubtitleSize string  `json:"subtitle_size"`
	FontStyle    string  `json:"font_style"`
	Confidence   float64 `json:"confidence"`
	Reason       string  `json:"reason"`
}

// VisualSpecs groups screen-level observations about the material
type VisualSpecs struct {
	VideoMainAspectRatio   AspectRatio   `json:"video_main_aspect_ratio"`
	SubtitleStyleInference SubtitleStyle `json:"subtitle_style_inference"`
}

// PostContent is the author-supplied title/body/tags of the post
type PostContent struct {
	Title string   `json:"title"`
	Body  string   `json:"body"`
	Tags  []string `json:"tags"`
}

// TextSection is a judged text field with its supporting evidence
// (hook, cover title, voiceover copy).
type TextSection struct {
	Text     string     `json:"text"`
	Evidence []Evidence `json:"evidence"`
}

// ScriptSection is one named segment of the reconstructed script
type ScriptSection struct {
	Section  string     `json:"section"`
	Text     string     `json:"text"`
	Evidence []Evidence `json:"evidence"`
}

// NarrativePattern names the storytelling structure the post follows
type NarrativePattern struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Evidence    []Evidence `json:"evidence"`
}

// ProductionMethod is one ranked hypothesis about the tooling used to
// produce the content. Reports carry exactly three, confidence descending.
type ProductionMethod struct {
	Method     string     `json:"method"`
	Confidence float64    `json:"confidence"`
	Evidence   []Evidence `json:"evidence"`
}

// ViralityDriver explains one mechanism behind the post's spread
type ViralityDriver struct {
	Driver   string     `json:"driver"`
	Why      string     `json:"why"`
	Evidence []Evidence `json:"evidence"`
}

// AdaptationIdea is directional creative guidance, never a full rewrite
type AdaptationIdea struct {
	Idea      string `json:"idea"`
	Rationale string `json:"rationale"`
}

// Report is the root aggregate emitted once per run. Stages fill their own
// fields additively; the report is frozen at validation time.
type Report struct {
	Meta                      Meta               `json:"meta"`
	AssetIndex                AssetIndex         `json:"asset_index"`
	EngagementMetrics         EngagementMetrics  `json:"engagement_metrics"`
	VisualSpecs               VisualSpecs        `json:"visual_specs"`
	PostContent               PostContent        `json:"post_content"`
	Hook                      TextSection        `json:"hook"`
	ScriptStructure           []ScriptSection    `json:"script_structure"`
	NarrativePattern          NarrativePattern   `json:"narrative_pattern"`
	CoverTitle                TextSection        `json:"cover_title"`
	VoiceoverCopy             TextSection        `json:"voiceover_copy"`
	ProductionMethodInference []ProductionMethod `json:"production_method_inference"`
	ViralityDrivers           []ViralityDriver   `json:"virality_drivers"`
	AdaptationIdeas           []AdaptationIdea   `json:"adaptation_ideas"`
	Limitations               []string           `json:"limitations"`
	ConfidenceOverall         float64            `json:"confidence_overall"`
}
