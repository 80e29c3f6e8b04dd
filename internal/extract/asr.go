package extract

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// Transcriber converts a local audio file into transcript spans.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) ([]Span, error)
}

// OpenAITranscriber sends the demuxed audio track to the hosted whisper
// endpoint. Preferred when a credential is present; a local whisper-cli
// install serves as the offline fallback.
type OpenAITranscriber struct {
	client *openai.Client
	model  string
}

func NewOpenAITranscriber(apiKey, baseURL string) *OpenAITranscriber {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAITranscriber{
		client: openai.NewClientWithConfig(cfg),
		model:  openai.Whisper1,
	}
}

func (t *OpenAITranscriber) Transcribe(ctx context.Context, audioPath string) ([]Span, error) {
	resp, err := t.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    t.model,
		FilePath: audioPath,
		Format:   openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		return nil, fmt.Errorf("transcription request: %w", err)
	}

	var spans []Span
	for _, segment := range resp.Segments {
		text := strings.TrimSpace(segment.Text)
		if text == "" {
			continue
		}
		spans = append(spans, Span{Start: segment.Start, End: segment.End, Text: text})
	}
	if len(spans) == 0 {
		if text := strings.TrimSpace(resp.Text); text != "" {
			spans = append(spans, Span{Start: -1, End: -1, Text: text})
		}
	}
	return spans, nil
}

// whisperLinePattern matches whisper-cli's timestamped stdout lines:
// [00:00:00.000 --> 00:00:02.480]  text
var whisperLinePattern = regexp.MustCompile(`^\[(\d{2}):(\d{2}):(\d{2})\.(\d{1,3}) --> (\d{2}):(\d{2}):(\d{2})\.(\d{1,3})\]\s*(.*)$`)

// WhisperTranscriber runs a local whisper-cli binary over the demuxed
// audio track. Used when no API credential is available.
type WhisperTranscriber struct {
	binPath string
	run     ocrRunner
}

func NewWhisperTranscriber(binPath string) *WhisperTranscriber {
	return &WhisperTranscriber{binPath: binPath, run: runOCRCommand}
}

func (t *WhisperTranscriber) Transcribe(ctx context.Context, audioPath string) ([]Span, error) {
	stdout, err := t.run(ctx, []string{t.binPath, "-f", audioPath, "-l", "auto"})
	if err != nil {
		return nil, fmt.Errorf("whisper-cli: %w", err)
	}

	var spans []Span
	var plain []string
	for _, line := range strings.Split(stdout, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		m := whisperLinePattern.FindStringSubmatch(line)
		if m == nil {
			plain = append(plain, line)
			continue
		}
		text := strings.TrimSpace(m[9])
		if text == "" {
			continue
		}
		spans = append(spans, Span{
			Start: clockToSeconds(m[1], m[2], m[3], m[4]),
			End:   clockToSeconds(m[5], m[6], m[7], m[8]),
			Text:  text,
		})
	}
	if len(spans) == 0 && len(plain) > 0 {
		spans = append(spans, Span{Start: -1, End: -1, Text: strings.Join(plain, "\n")})
	}
	return spans, nil
}
