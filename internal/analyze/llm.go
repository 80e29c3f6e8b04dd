package analyze

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/Hchen1218/viral-content-breakdown/internal/model"
)

// LLMAnalyzer delegates the judged sections to a chat model. Evidence is
// cited by index into the numbered pool included in the prompt; indices
// outside the pool are dropped during normalization, so the model cannot
// fabricate evidence.
type LLMAnalyzer struct {
	client    *openai.Client
	model     string
	maxTokens int
	logger    *zap.Logger
}

func NewLLMAnalyzer(cfg model.LLMConfig, logger *zap.Logger) *LLMAnalyzer {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &LLMAnalyzer{
		client:    openai.NewClientWithConfig(clientCfg),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		logger:    logger,
	}
}

func (a *LLMAnalyzer) Mode() model.AnalysisMode { return model.AnalysisLLM }

const systemPrompt = `你是短视频与图文内容的拆解分析师。你会收到一条爆款内容的提取信号，
包括文案、逐字稿、画面文字和编号证据池。请输出 JSON 拆解报告。
规则：
1. 只输出 JSON，不要输出其他文本。
2. 每个 evidence 数组只能引用证据池中的编号，不得编造。
3. production_method_inference 恰好给出 3 个假设，confidence 降序。
4. 信息不足时给出空字符串或空数组，不要臆测。`

type llmText struct {
	Text     string `json:"text"`
	Evidence []int  `json:"evidence"`
}

type llmScriptSection struct {
	Section  string `json:"section"`
	Text     string `json:"text"`
	Evidence []int  `json:"evidence"`
}

type llmPayload struct {
	Hook             llmText            `json:"hook"`
	ScriptStructure  []llmScriptSection `json:"script_structure"`
	NarrativePattern struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Evidence    []int  `json:"evidence"`
	} `json:"narrative_pattern"`
	CoverTitle                llmText `json:"cover_title"`
	VoiceoverCopy             llmText `json:"voiceover_copy"`
	ProductionMethodInference []struct {
		Method     string  `json:"method"`
		Confidence float64 `json:"confidence"`
		Evidence   []int   `json:"evidence"`
	} `json:"production_method_inference"`
	ViralityDrivers []struct {
		Driver   string `json:"driver"`
		Why      string `json:"why"`
		Evidence []int  `json:"evidence"`
	} `json:"virality_drivers"`
	AdaptationIdeas []struct {
		Idea      string `json:"idea"`
		Rationale string `json:"rationale"`
	} `json:"adaptation_ideas"`
}

func (a *LLMAnalyzer) Analyze(ctx context.Context, in *Input) (*Analysis, error) {
	pool := in.Signals.Pool.All()

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     a.model,
		MaxTokens: a.maxTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildUserPrompt(in, pool)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("chat completion returned no choices")
	}

	var payload llmPayload
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &payload); err != nil {
		return nil, fmt.Errorf("parse model response: %w", err)
	}
	return a.normalize(&payload, pool)
}

// buildUserPrompt packs the extracted signals and the numbered evidence
// pool into one message. Long transcripts are truncated; evidence indices
// stay stable because the pool itself is never truncated.
func buildUserPrompt(in *Input, pool []model.Evidence) string {
	var b strings.Builder

	fmt.Fprintf(&b, "平台: %s\n内容形态: %s\n", in.Platform, in.ContentType)
	fmt.Fprintf(&b, "标题: %s\n", in.Post.Title)
	if in.Post.Body != "" {
		fmt.Fprintf(&b, "正文: %s\n", clip(in.Post.Body, 1500))
	}
	if len(in.Post.Tags) > 0 {
		fmt.Fprintf(&b, "标签: %s\n", strings.Join(in.Post.Tags, " "))
	}
	if in.Signals.CoverText != "" {
		fmt.Fprintf(&b, "封面文字: %s\n", clip(in.Signals.CoverText, 300))
	}
	if text := transcriptText(in); text != "" {
		fmt.Fprintf(&b, "\n逐字稿(%s):\n%s\n", in.Signals.TranscriptSource, clip(text, 4000))
	}
	if len(in.Signals.FrameTexts) > 0 {
		b.WriteString("\n画面文字:\n")
		for _, ft := range in.Signals.FrameTexts {
			fmt.Fprintf(&b, "frame:%d %s\n", ft.Index, clip(ft.Text, 120))
		}
	}

	b.WriteString("\n证据池(引用时使用编号):\n")
	for i, e := range pool {
		fmt.Fprintf(&b, "[%d] type=%s locator=%s snippet=%s\n", i, e.Type, e.Locator, e.Snippet)
	}
	return b.String()
}

func (a *LLMAnalyzer) normalize(payload *llmPayload, pool []model.Evidence) (*Analysis, error) {
	if len(payload.ProductionMethodInference) < 3 {
		return nil, fmt.Errorf("model returned %d production methods, need 3", len(payload.ProductionMethodInference))
	}
	payload.ProductionMethodInference = payload.ProductionMethodInference[:3]

	resolve := func(indices []int) []model.Evidence {
		var cites []model.Evidence
		for _, idx := range indices {
			if idx < 0 || idx >= len(pool) {
				a.logger.Debug("dropping out-of-pool evidence reference", zap.Int("index", idx))
				continue
			}
			cites = append(cites, pool[idx])
		}
		return cites
	}

	out := &Analysis{Mode: model.AnalysisLLM}
	out.Hook = model.TextSection{Text: payload.Hook.Text, Evidence: resolve(payload.Hook.Evidence)}
	out.CoverTitle = model.TextSection{Text: payload.CoverTitle.Text, Evidence: resolve(payload.CoverTitle.Evidence)}
	out.VoiceoverCopy = model.TextSection{Text: payload.VoiceoverCopy.Text, Evidence: resolve(payload.VoiceoverCopy.Evidence)}
	out.NarrativePattern = model.NarrativePattern{
		Name:        payload.NarrativePattern.Name,
		Description: payload.NarrativePattern.Description,
		Evidence:    resolve(payload.NarrativePattern.Evidence),
	}
	for _, s := range payload.ScriptStructure {
		out.ScriptStructure = append(out.ScriptStructure, model.ScriptSection{
			Section:  s.Section,
			Text:     s.Text,
			Evidence: resolve(s.Evidence),
		})
	}
	for _, m := range payload.ProductionMethodInference {
		out.ProductionMethods = append(out.ProductionMethods, model.ProductionMethod{
			Method:     m.Method,
			Confidence: clamp01(m.Confidence),
			Evidence:   resolve(m.Evidence),
		})
	}
	sortMethodsDescending(out.ProductionMethods)
	for _, d := range payload.ViralityDrivers {
		out.ViralityDrivers = append(out.ViralityDrivers, model.ViralityDriver{
			Driver:   d.Driver,
			Why:      d.Why,
			Evidence: resolve(d.Evidence),
		})
	}
	for _, idea := range payload.AdaptationIdeas {
		out.AdaptationIdeas = append(out.AdaptationIdeas, model.AdaptationIdea{
			Idea:      idea.Idea,
			Rationale: idea.Rationale,
		})
	}
	return out, nil
}

func sortMethodsDescending(methods []model.ProductionMethod) {
	for i := 1; i < len(methods); i++ {
		for j := i; j > 0 && methods[j].Confidence > methods[j-1].Confidence; j-- {
			methods[j], methods[j-1] = methods[j-1], methods[j]
		}
	}
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

func clip(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "…"
}
