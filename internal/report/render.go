package report

import (
	"fmt"
	"strings"

	"github.com/Hchen1218/viral-content-breakdown/internal/model"
)

// RenderMarkdown renders the validated report as a human-readable
// breakdown. Structure mirrors report.json so the two stay comparable.
func RenderMarkdown(r *model.Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# 爆款内容拆解报告\n\n")
	fmt.Fprintf(&b, "- 链接: %s\n", r.Meta.URL)
	fmt.Fprintf(&b, "- 平台: %s\n", r.Meta.Platform)
	fmt.Fprintf(&b, "- 内容形态: %s\n", r.Meta.ContentType)
	if r.Meta.PublishedAt != "" {
		fmt.Fprintf(&b, "- 发布时间: %s\n", r.Meta.PublishedAt)
	}
	fmt.Fprintf(&b, "- 分析模式: %s\n", r.Meta.AnalysisMode)
	fmt.Fprintf(&b, "- 综合置信度: %.2f\n\n", r.ConfidenceOverall)

	if r.PostContent.Title != "" || r.PostContent.Body != "" {
		b.WriteString("## 文案\n\n")
		if r.PostContent.Title != "" {
			fmt.Fprintf(&b, "**标题**: %s\n\n", r.PostContent.Title)
		}
		if r.PostContent.Body != "" {
			fmt.Fprintf(&b, "%s\n\n", r.PostContent.Body)
		}
		if len(r.PostContent.Tags) > 0 {
			fmt.Fprintf(&b, "标签: %s\n\n", strings.Join(r.PostContent.Tags, " "))
		}
	}

	if hasMetrics(r.EngagementMetrics) {
		b.WriteString("## 互动数据\n\n")
		writeCounter(&b, "点赞", r.EngagementMetrics.Likes)
		writeCounter(&b, "评论", r.EngagementMetrics.Comments)
		writeCounter(&b, "播放", r.EngagementMetrics.Plays)
		b.WriteString("\n")
	}

	if aspect := r.VisualSpecs.VideoMainAspectRatio; aspect.Value != "" && aspect.Value != "unknown" {
		b.WriteString("## 画面规格\n\n")
		fmt.Fprintf(&b, "- 主画幅: %s\n", aspect.Value)
		if style := r.VisualSpecs.SubtitleStyleInference; style.SubtitleSize != "" && style.SubtitleSize != "unknown" {
			fmt.Fprintf(&b, "- 字幕样式: %s / %s（%s）\n", style.SubtitleSize, style.FontStyle, style.Reason)
		}
		b.WriteString("\n")
	}

	writeTextSection(&b, "开场钩子", r.Hook)

	if len(r.ScriptStructure) > 0 {
		b.WriteString("## 脚本结构\n\n")
		for _, section := range r.ScriptStructure {
			fmt.Fprintf(&b, "### %s\n\n%s\n\n", section.Section, section.Text)
			writeEvidence(&b, section.Evidence)
		}
	}

	if r.NarrativePattern.Name != "" {
		b.WriteString("## 叙事模式\n\n")
		fmt.Fprintf(&b, "**%s**：%s\n\n", r.NarrativePattern.Name, r.NarrativePattern.Description)
		writeEvidence(&b, r.NarrativePattern.Evidence)
	}

	writeTextSection(&b, "封面标题", r.CoverTitle)
	writeTextSection(&b, "口播文案", r.VoiceoverCopy)

	b.WriteString("## 制作方式推断\n\n")
	for i, method := range r.ProductionMethodInference {
		fmt.Fprintf(&b, "%d. %s（置信度 %.2f）\n", i+1, method.Method, method.Confidence)
	}
	b.WriteString("\n")

	if len(r.ViralityDrivers) > 0 {
		b.WriteString("## 传播驱动\n\n")
		for _, driver := range r.ViralityDrivers {
			fmt.Fprintf(&b, "- **%s**: %s\n", driver.Driver, driver.Why)
		}
		b.WriteString("\n")
	}

	if len(r.AdaptationIdeas) > 0 {
		b.WriteString("## 改编方向\n\n")
		for _, idea := range r.AdaptationIdeas {
			fmt.Fprintf(&b, "- %s（%s）\n", idea.Idea, idea.Rationale)
		}
		b.WriteString("\n")
	}

	if len(r.Limitations) > 0 {
		b.WriteString("## 局限说明\n\n")
		for _, l := range r.Limitations {
			fmt.Fprintf(&b, "- %s\n", l)
		}
		b.WriteString("\n")
	}

	return b.String()
}

func writeTextSection(b *strings.Builder, heading string, s model.TextSection) {
	if s.Text == "" {
		return
	}
	fmt.Fprintf(b, "## %s\n\n%s\n\n", heading, s.Text)
	writeEvidence(b, s.Evidence)
}

func writeEvidence(b *strings.Builder, evidence []model.Evidence) {
	if len(evidence) == 0 {
		return
	}
	for _, e := range evidence {
		fmt.Fprintf(b, "> [%s @ %s] %s\n", e.Type, e.Locator, e.Snippet)
	}
	b.WriteString("\n")
}

func writeCounter(b *strings.Builder, label string, value *int64) {
	if value == nil {
		return
	}
	fmt.Fprintf(b, "- %s: %d\n", label, *value)
}

func hasMetrics(m model.EngagementMetrics) bool {
	return m.Likes != nil || m.Comments != nil || m.Plays != nil
}
