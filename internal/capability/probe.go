// Package capability detects optional local tools and credentials once per
// run. The resulting Set is an immutable value threaded into every stage;
// stages branch on its fields instead of re-querying the environment.
package capability

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// Set is the outcome of a single probe pass. Any probe failure means
// "capability absent", never a pipeline error.
type Set struct {
	HasFrameDecoder        bool // ffmpeg usable for frame/audio extraction
	HasOCR                 bool // tesseract usable for frame/cover OCR
	HasASRBackend          bool // transcription possible (API credential or local whisper)
	HasInferenceCredential bool // LLM-backed analysis possible

	FFmpegPath    string
	TesseractPath string
	YtDlpPath     string
	WhisperPath   string
}

// Prober runs the detection pass. Lookup and version execution are
// injectable so tests can simulate arbitrary environments.
type Prober struct {
	logger       *zap.Logger
	lookPath     func(string) (string, error)
	getenv       func(string) string
	runVersion   func(ctx context.Context, path, versionArg string) error
	probeTimeout time.Duration
}

func NewProber(logger *zap.Logger) *Prober {
	p := &Prober{
		logger:       logger,
		lookPath:     exec.LookPath,
		getenv:       os.Getenv,
		probeTimeout: 3 * time.Second,
	}
	p.runVersion = func(ctx context.Context, path, versionArg string) error {
		cmd := exec.CommandContext(ctx, path, versionArg)
		cmd.Stdout = nil
		cmd.Stderr = nil
		return cmd.Run()
	}
	return p
}

// Probe runs all checks non-destructively: a short version query per
// binary, an environment presence check for the credential. Total time is
// bounded by the per-binary timeout; it never blocks a run for long.
func (p *Prober) Probe(ctx context.Context) Set {
	var set Set

	set.FFmpegPath = p.findExecutable(ctx, "ffmpeg", "-version")
	set.HasFrameDecoder = set.FFmpegPath != ""

	set.TesseractPath = p.findExecutable(ctx, "tesseract", "--version")
	set.HasOCR = set.TesseractPath != ""

	set.YtDlpPath = p.findExecutable(ctx, "yt-dlp", "--version")
	set.WhisperPath = p.findExecutable(ctx, "whisper-cli", "--help")

	set.HasInferenceCredential = p.getenv("OPENAI_API_KEY") != ""
	set.HasASRBackend = set.HasInferenceCredential || set.WhisperPath != ""

	p.logger.Debug("capability probe complete",
		zap.Bool("frame_decoder", set.HasFrameDecoder),
		zap.Bool("ocr", set.HasOCR),
		zap.Bool("asr_backend", set.HasASRBackend),
		zap.Bool("inference_credential", set.HasInferenceCredential),
		zap.String("yt_dlp", set.YtDlpPath))
	return set
}

// findExecutable resolves a binary on PATH or in common user-install
// locations, then confirms it answers a version query within the timeout.
func (p *Prober) findExecutable(ctx context.Context, name string, versionArg string) string {
	path, err := p.lookPath(name)
	if err != nil {
		path = p.searchFallbackDirs(name)
	}
	if path == "" {
		return ""
	}
	if !p.answersVersionQuery(ctx, path, versionArg) {
		p.logger.Debug("binary found but version query failed", zap.String("binary", path))
		return ""
	}
	return path
}

// searchFallbackDirs covers pip --user and homebrew installs that are not
// always on PATH for non-login shells.
func (p *Prober) searchFallbackDirs(name string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}
	candidates := []string{
		filepath.Join(home, ".local", "bin", name),
		filepath.Join(home, "Library", "Python", "3.9", "bin", name),
		filepath.Join("/opt", "homebrew", "bin", name),
		filepath.Join("/usr", "local", "bin", name),
	}
	for _, candidate := range candidates {
		info, err := os.Stat(candidate)
		if err == nil && info.Mode().IsRegular() && info.Mode().Perm()&0o111 != 0 {
			return candidate
		}
	}
	return ""
}

func (p *Prober) answersVersionQuery(ctx context.Context, path, versionArg string) bool {
	queryCtx, cancel := context.WithTimeout(ctx, p.probeTimeout)
	defer cancel()
	return p.runVersion(queryCtx, path, versionArg) == nil
}
