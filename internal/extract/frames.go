package extract

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"

	"github.com/Hchen1218/viral-content-breakdown/internal/model"
)

// sceneThreshold is the ffmpeg scene-change score above which a frame is
// considered a new shot worth sampling.
const sceneThreshold = "0.35"

// frameRunner executes an ffmpeg invocation. Injectable for tests.
type frameRunner func(ctx context.Context, argv []string) (string, error)

// FrameSampler drives ffmpeg to turn a video into analyzable stills and a
// speech-ready audio track.
type FrameSampler struct {
	binPath string
	run     frameRunner
}

func NewFrameSampler(binPath string) *FrameSampler {
	return &FrameSampler{binPath: binPath, run: runOCRCommand}
}

// SampleFrames writes the first frame plus up to maxFrames-1 scene-change
// frames into outDir and returns the sorted frame paths. The first frame
// is always taken: hooks live there, and some videos have no scene cuts.
func (f *FrameSampler) SampleFrames(ctx context.Context, videoPath, outDir string, maxFrames int) ([]string, error) {
	if maxFrames <= 0 {
		maxFrames = 8
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create frames dir: %w", err)
	}

	firstFrame := filepath.Join(outDir, "frame_000.jpg")
	if _, err := f.run(ctx, []string{
		f.binPath, "-hide_banner", "-loglevel", "error", "-y",
		"-i", videoPath,
		"-frames:v", "1", "-q:v", "2",
		firstFrame,
	}); err != nil {
		return nil, fmt.Errorf("extract first frame: %w", err)
	}

	if maxFrames > 1 {
		scenePattern := filepath.Join(outDir, "scene_%03d.jpg")
		_, err := f.run(ctx, []string{
			f.binPath, "-hide_banner", "-loglevel", "error", "-y",
			"-i", videoPath,
			"-vf", "select=gt(scene\\," + sceneThreshold + ")",
			"-vsync", "vfr",
			"-frames:v", fmt.Sprint(maxFrames - 1),
			"-q:v", "2",
			scenePattern,
		})
		if err != nil {
			// Scene detection failing is not fatal; the first frame alone
			// still supports cover and hook analysis.
			return []string{firstFrame}, nil
		}
	}

	entries, err := os.ReadDir(outDir)
	if err != nil {
		return nil, fmt.Errorf("list frames dir: %w", err)
	}
	var frames []string
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".jpg" {
			continue
		}
		frames = append(frames, filepath.Join(outDir, entry.Name()))
	}
	sort.Strings(frames)
	if len(frames) > maxFrames {
		frames = frames[:maxFrames]
	}
	return frames, nil
}

// DemuxAudio extracts the audio track as mono 16kHz wav, the input format
// speech recognizers expect.
func (f *FrameSampler) DemuxAudio(ctx context.Context, videoPath, outPath string) (string, error) {
	if _, err := f.run(ctx, []string{
		f.binPath, "-hide_banner", "-loglevel", "error", "-y",
		"-i", videoPath,
		"-vn", "-ac", "1", "-ar", "16000",
		"-f", "wav",
		outPath,
	}); err != nil {
		return "", fmt.Errorf("demux audio: %w", err)
	}
	if info, err := os.Stat(outPath); err != nil || info.Size() == 0 {
		return "", fmt.Errorf("demux audio produced no output")
	}
	return outPath, nil
}

// canonical aspect ratios, widest first within each orientation
var knownRatios = []struct {
	value string
	ratio float64
}{
	{"9:16", 9.0 / 16.0},
	{"3:4", 3.0 / 4.0},
	{"1:1", 1.0},
	{"4:3", 4.0 / 3.0},
	{"16:9", 16.0 / 9.0},
}

// AspectFromImage decodes only the image header and snaps the dimensions
// to the nearest canonical ratio. Within 2% of a canonical value the match
// is confident; otherwise the raw ratio is reported with low confidence.
func AspectFromImage(path string) model.AspectRatio {
	file, err := os.Open(path)
	if err != nil {
		return model.AspectRatio{Value: "unknown"}
	}
	defer func() { _ = file.Close() }()

	cfg, _, err := image.DecodeConfig(file)
	if err != nil || cfg.Width <= 0 || cfg.Height <= 0 {
		return model.AspectRatio{Value: "unknown"}
	}

	ratio := float64(cfg.Width) / float64(cfg.Height)
	best := model.AspectRatio{
		Value:      fmt.Sprintf("%d:%d", cfg.Width, cfg.Height),
		Width:      cfg.Width,
		Height:     cfg.Height,
		Confidence: 0.5,
	}
	for _, known := range knownRatios {
		if diff := ratio/known.ratio - 1; diff > -0.02 && diff < 0.02 {
			best.Value = known.value
			best.Confidence = 0.9
			break
		}
	}
	return best
}
