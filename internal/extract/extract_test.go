package extract

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/Hchen1218/viral-content-breakdown/internal/capability"
	"github.com/Hchen1218/viral-content-breakdown/internal/fetch"
	"github.com/Hchen1218/viral-content-breakdown/internal/model"
)

func testExtractConfig() model.ExtractConfig {
	return model.ExtractConfig{MaxFrames: 8, MaxOCRImages: 10, OCRWorkers: 2}
}

func TestTextConfidence(t *testing.T) {
	cases := []struct {
		text string
		want float64
	}{
		{"", 0},
		{"清晰的中文文本", 0.95},
		{"|_~ -- ##", 0.25},
	}
	for _, tc := range cases {
		if got := textConfidence(tc.text); got != tc.want {
			t.Errorf("textConfidence(%q) = %v, want %v", tc.text, got, tc.want)
		}
	}
}

func TestNormalizeOCRText(t *testing.T) {
	got := normalizeOCRText("  第一行   文字  \n\n\n 第二行\n")
	if got != "第一行 文字\n第二行" {
		t.Errorf("normalizeOCRText = %q", got)
	}
}

func TestOCRRecognizeWithFakeRunner(t *testing.T) {
	ocr := NewOCR("/usr/bin/tesseract")
	ocr.run = func(_ context.Context, argv []string) (string, error) {
		if argv[0] != "/usr/bin/tesseract" || argv[2] != "stdout" {
			t.Errorf("argv = %v", argv)
		}
		if argv[4] != "chi_sim+eng" {
			t.Errorf("languages = %q", argv[4])
		}
		return "封面大字标题\n", nil
	}

	text, conf, err := ocr.Recognize(context.Background(), "/tmp/cover.jpg")
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if text != "封面大字标题" {
		t.Errorf("text = %q", text)
	}
	if conf < 0.25 || conf > 0.95 {
		t.Errorf("confidence out of range: %v", conf)
	}
}

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	file, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer func() { _ = file.Close() }()
	if err := png.Encode(file, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
}

func TestAspectFromImage(t *testing.T) {
	dir := t.TempDir()

	vertical := filepath.Join(dir, "vertical.png")
	writePNG(t, vertical, 540, 960)
	if got := AspectFromImage(vertical); got.Value != "9:16" || got.Confidence != 0.9 {
		t.Errorf("vertical aspect = %+v", got)
	}

	odd := filepath.Join(dir, "odd.png")
	writePNG(t, odd, 500, 233)
	if got := AspectFromImage(odd); got.Value != "500:233" || got.Confidence != 0.5 {
		t.Errorf("odd aspect = %+v", got)
	}

	if got := AspectFromImage(filepath.Join(dir, "missing.png")); got.Value != "unknown" {
		t.Errorf("missing image aspect = %+v", got)
	}
}

func TestFrameSamplerWithFakeRunner(t *testing.T) {
	dir := t.TempDir()
	sampler := NewFrameSampler("/usr/bin/ffmpeg")
	sampler.run = func(_ context.Context, argv []string) (string, error) {
		out := argv[len(argv)-1]
		switch {
		case strings.HasSuffix(out, "frame_000.jpg"):
			writePNG(t, out, 540, 960)
		case strings.Contains(out, "scene_"):
			for i := 1; i <= 3; i++ {
				writePNG(t, strings.ReplaceAll(out, "%03d", fmt.Sprintf("%03d", i)), 540, 960)
			}
		}
		return "", nil
	}

	frames, err := sampler.SampleFrames(context.Background(), "/tmp/in.mp4", dir, 8)
	if err != nil {
		t.Fatalf("SampleFrames: %v", err)
	}
	if len(frames) != 4 {
		t.Fatalf("frames = %v", frames)
	}
	if filepath.Base(frames[0]) != "frame_000.jpg" {
		t.Errorf("first frame must sort first: %v", frames)
	}
}

func TestFrameSamplerSceneFailureKeepsFirstFrame(t *testing.T) {
	dir := t.TempDir()
	sampler := NewFrameSampler("/usr/bin/ffmpeg")
	sampler.run = func(_ context.Context, argv []string) (string, error) {
		out := argv[len(argv)-1]
		if strings.HasSuffix(out, "frame_000.jpg") {
			writePNG(t, out, 100, 100)
			return "", nil
		}
		return "", errors.New("scene filter crashed")
	}

	frames, err := sampler.SampleFrames(context.Background(), "/tmp/in.mp4", dir, 8)
	if err != nil {
		t.Fatalf("SampleFrames: %v", err)
	}
	if len(frames) != 1 {
		t.Errorf("frames = %v, want first frame only", frames)
	}
}

type fakeTranscriber struct {
	spans []Span
	err   error
	calls int
}

func (f *fakeTranscriber) Transcribe(_ context.Context, _ string) ([]Span, error) {
	f.calls++
	return f.spans, f.err
}

func TestExtractorRecordsLimitationsWhenToolsAbsent(t *testing.T) {
	extractor := NewExtractor(testExtractConfig(), capability.Set{}, nil, zap.NewNop())
	bundle := &fetch.Bundle{
		VideoPaths:  []string{"/tmp/video.mp4"},
		DownloadDir: t.TempDir(),
	}

	signals, err := extractor.Run(context.Background(), bundle)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	joined := strings.Join(signals.Limitations, "\n")
	for _, want := range []string{"ffmpeg", "transcript"} {
		if !strings.Contains(joined, want) {
			t.Errorf("limitations missing %q: %v", want, signals.Limitations)
		}
	}
	if signals.CoverText != "" {
		t.Errorf("cover text without OCR = %q, want empty", signals.CoverText)
	}
	if signals.Pool == nil {
		t.Fatal("pool must never be nil")
	}
}

func TestExtractorOCRAbsentWithImages(t *testing.T) {
	extractor := NewExtractor(testExtractConfig(), capability.Set{}, nil, zap.NewNop())
	bundle := &fetch.Bundle{
		ImagePaths:  []string{"/tmp/cover.jpg"},
		DownloadDir: t.TempDir(),
	}

	signals, err := extractor.Run(context.Background(), bundle)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if signals.CoverText != "" {
		t.Errorf("cover text = %q, want empty when OCR absent", signals.CoverText)
	}
	joined := strings.Join(signals.Limitations, "\n")
	if !strings.Contains(joined, "OCR") {
		t.Errorf("limitations = %v, want OCR skip recorded", signals.Limitations)
	}
	want := (&model.CapabilityAbsentError{Capability: "tesseract OCR", Detail: "cover and frame text skipped"}).Error()
	if !strings.Contains(joined, want) {
		t.Errorf("limitations = %v, want capability-absent wording %q", signals.Limitations, want)
	}
}

func TestExtractorPrefersSubtitlesOverASR(t *testing.T) {
	dir := t.TempDir()
	srt := filepath.Join(dir, "video.zh.srt")
	if err := os.WriteFile(srt, []byte("1\n00:00:00,000 --> 00:00:02,000\n开场第一句\n"), 0o644); err != nil {
		t.Fatalf("write srt: %v", err)
	}

	transcriber := &fakeTranscriber{spans: []Span{{Start: 0, End: 1, Text: "asr text"}}}
	extractor := NewExtractor(testExtractConfig(), capability.Set{HasASRBackend: true}, transcriber, zap.NewNop())

	bundle := &fetch.Bundle{
		TranscriptPaths: []string{srt},
		DownloadDir:     dir,
	}
	signals, err := extractor.Run(context.Background(), bundle)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if signals.TranscriptSource != "subtitles" {
		t.Errorf("source = %q, want subtitles", signals.TranscriptSource)
	}
	if transcriber.calls != 0 {
		t.Error("transcriber must not run when subtitles parse")
	}
	if len(signals.Transcript) != 1 || signals.Transcript[0].Text != "开场第一句" {
		t.Errorf("transcript = %+v", signals.Transcript)
	}

	timed := signals.Pool.ByType(model.EvidenceTimestamp)
	if len(timed) != 1 || timed[0].Locator != "0.0s-2.0s" {
		t.Errorf("timestamp evidence = %+v", timed)
	}
}

func TestExtractorArticleBodyBecomesUntimedSpans(t *testing.T) {
	dir := t.TempDir()
	body := filepath.Join(dir, "article_body.txt")
	if err := os.WriteFile(body, []byte("第一段\n第二段\n"), 0o644); err != nil {
		t.Fatalf("write body: %v", err)
	}

	extractor := NewExtractor(testExtractConfig(), capability.Set{}, nil, zap.NewNop())
	signals, err := extractor.Run(context.Background(), &fetch.Bundle{
		TranscriptPaths: []string{body},
		DownloadDir:     dir,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if signals.TranscriptSource != "article" {
		t.Errorf("source = %q", signals.TranscriptSource)
	}
	spans := signals.Pool.ByType(model.EvidenceTranscriptSpan)
	if len(spans) != 2 || spans[0].Locator != "line:1" {
		t.Errorf("span evidence = %+v", spans)
	}
}
