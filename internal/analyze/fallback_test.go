package analyze

import (
	"context"
	"reflect"
	"testing"

	"github.com/Hchen1218/viral-content-breakdown/internal/extract"
	"github.com/Hchen1218/viral-content-breakdown/internal/model"
)

func videoInput() *Input {
	pool := extract.NewPool()
	spans := []extract.Span{
		{Start: 0, End: 2.5, Text: "三个方法教你涨粉"},
		{Start: 2.5, End: 6, Text: "第一步，先定位你的领域"},
		{Start: 6, End: 10, Text: "第二步，做封面钩子"},
		{Start: 10, End: 14, Text: "第三步，保持日更"},
		{Start: 14, End: 16, Text: "关注我，下期拆解案例"},
	}
	for i, span := range spans {
		pool.Add(model.Evidence{
			Type:       model.EvidenceTimestamp,
			Source:     "subtitles",
			Locator:    span.Locator(i + 1),
			Snippet:    span.Text,
			Confidence: 0.9,
		})
	}
	pool.Add(model.Evidence{
		Type:       model.EvidenceCoverOCR,
		Source:     "cover",
		Locator:    "cover",
		Snippet:    "涨粉秘籍\n三步搞定",
		Confidence: 0.8,
	})
	pool.Add(model.Evidence{
		Type:       model.EvidenceVisualPattern,
		Source:     "frame geometry",
		Locator:    "aspect_ratio",
		Snippet:    "dominant frame aspect ratio 9:16",
		Confidence: 0.9,
	})

	return &Input{
		Platform:    model.PlatformDouyin,
		ContentType: model.ContentVideo,
		Post: model.PostContent{
			Title: "三个方法教你涨粉 #运营 #涨粉 #干货",
			Tags:  []string{"运营", "涨粉", "干货"},
		},
		Signals: &extract.Signals{
			Assets:           model.AssetIndex{Video: []string{"v.mp4"}},
			Transcript:       spans,
			TranscriptSource: "subtitles",
			CoverText:        "涨粉秘籍\n三步搞定",
			CoverConfidence:  0.8,
			Visual: model.VisualSpecs{
				VideoMainAspectRatio: model.AspectRatio{Value: "9:16", Confidence: 0.9},
			},
			FrameTexts: []extract.FrameText{
				{Index: 0, Text: "三个方法", Confidence: 0.8},
				{Index: 1, Text: "第一步", Confidence: 0.8},
			},
			Pool: pool,
		},
	}
}

func TestFallbackProducesExactlyThreeMethodsSorted(t *testing.T) {
	analysis, err := NewFallback().Analyze(context.Background(), videoInput())
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if len(analysis.ProductionMethods) != 3 {
		t.Fatalf("methods = %d, want exactly 3", len(analysis.ProductionMethods))
	}
	for i := 1; i < 3; i++ {
		if analysis.ProductionMethods[i].Confidence > analysis.ProductionMethods[i-1].Confidence {
			t.Errorf("methods not sorted descending: %+v", analysis.ProductionMethods)
		}
	}
	for _, m := range analysis.ProductionMethods {
		if m.Confidence <= 0 || m.Confidence > 1 {
			t.Errorf("confidence out of range: %+v", m)
		}
	}
}

func TestFallbackIsDeterministic(t *testing.T) {
	fallback := NewFallback()
	first, err := fallback.Analyze(context.Background(), videoInput())
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	second, err := fallback.Analyze(context.Background(), videoInput())
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("identical input must produce identical analysis")
	}
}

func TestFallbackHookCitesOpeningSpan(t *testing.T) {
	analysis, _ := NewFallback().Analyze(context.Background(), videoInput())

	if analysis.Hook.Text != "三个方法教你涨粉" {
		t.Errorf("hook = %q", analysis.Hook.Text)
	}
	if len(analysis.Hook.Evidence) == 0 {
		t.Fatal("hook must cite evidence")
	}
	if analysis.Hook.Evidence[0].Type != model.EvidenceTimestamp {
		t.Errorf("hook evidence type = %q", analysis.Hook.Evidence[0].Type)
	}
}

func TestFallbackNarrativePatternKeywordMatch(t *testing.T) {
	analysis, _ := NewFallback().Analyze(context.Background(), videoInput())

	if analysis.NarrativePattern.Name != "教程清单" {
		t.Errorf("pattern = %q, want tutorial taxonomy hit", analysis.NarrativePattern.Name)
	}
	if len(analysis.NarrativePattern.Evidence) == 0 {
		t.Error("keyword-matched pattern must carry the matching evidence")
	}
}

func TestFallbackScriptStructureCoversTranscript(t *testing.T) {
	analysis, _ := NewFallback().Analyze(context.Background(), videoInput())

	if len(analysis.ScriptStructure) != 3 {
		t.Fatalf("sections = %+v", analysis.ScriptStructure)
	}
	names := []string{analysis.ScriptStructure[0].Section, analysis.ScriptStructure[1].Section, analysis.ScriptStructure[2].Section}
	if !reflect.DeepEqual(names, scriptSectionNames) {
		t.Errorf("section names = %v", names)
	}
}

func articleInput() *Input {
	pool := extract.NewPool()
	spans := []extract.Span{
		{Start: -1, End: -1, Text: "这篇文章拆解了三个增长方法"},
		{Start: -1, End: -1, Text: "方法一：先做定位"},
	}
	for i, span := range spans {
		pool.Add(model.Evidence{
			Type:       model.EvidenceTranscriptSpan,
			Source:     "article",
			Locator:    span.Locator(i + 1),
			Snippet:    span.Text,
			Confidence: 0.9,
		})
	}
	return &Input{
		Platform:    model.PlatformWechatMP,
		ContentType: model.ContentArticle,
		Post:        model.PostContent{Title: "增长方法拆解"},
		Signals: &extract.Signals{
			Transcript:       spans,
			TranscriptSource: "article",
			Pool:             pool,
		},
	}
}

func TestFallbackArticleHasNoVoiceover(t *testing.T) {
	analysis, err := NewFallback().Analyze(context.Background(), articleInput())
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if analysis.VoiceoverCopy.Text != "" {
		t.Errorf("voiceover = %q, want empty for article", analysis.VoiceoverCopy.Text)
	}
	found := false
	for _, l := range analysis.Limitations {
		if l != "" {
			found = true
		}
	}
	if !found {
		t.Error("missing voiceover must be recorded as a limitation")
	}
	if len(analysis.ProductionMethods) != 3 {
		t.Errorf("articles still get exactly 3 production methods, got %d", len(analysis.ProductionMethods))
	}
}

func TestSplitThirds(t *testing.T) {
	cases := []struct {
		n    int
		want []bound
	}{
		{1, []bound{{0, 1}, {1, 1}, {1, 1}}},
		{3, []bound{{0, 1}, {1, 2}, {2, 3}}},
		{5, []bound{{0, 2}, {2, 4}, {4, 5}}},
		{9, []bound{{0, 3}, {3, 6}, {6, 9}}},
	}
	for _, tc := range cases {
		if got := splitThirds(tc.n); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("splitThirds(%d) = %v, want %v", tc.n, got, tc.want)
		}
	}
}
