package fetch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/Hchen1218/viral-content-breakdown/internal/model"
)

// A variant that exits 0 without downloading anything must not claim a
// failed earlier variant's partial files as its own output.
func TestYtDlpVariantIgnoresEarlierPartialFiles(t *testing.T) {
	dir := t.TempDir()
	adapter := NewYtDlpAdapter("/usr/bin/yt-dlp", zap.NewNop())

	call := 0
	adapter.run = func(_ context.Context, runDir string, argv []string) cmdResult {
		call++
		switch call {
		case 1:
			// Partial download, then auth failure.
			writeFetchFile(t, filepath.Join(runDir, "partial.mp4.part"))
			return cmdResult{ExitCode: 1, StderrTail: "ERROR: login required"}
		case 2:
			// Exits clean but produces nothing.
			return cmdResult{ExitCode: 0}
		case 3:
			writeFetchFile(t, filepath.Join(runDir, "730", "video.mp4"))
			return cmdResult{ExitCode: 0}
		}
		t.Fatalf("unexpected call %d with argv %v", call, argv)
		return cmdResult{}
	}

	bundle, err := adapter.Fetch(context.Background(), &Request{
		URL:           "https://v.douyin.com/abc/",
		NormalizedURL: "https://www.douyin.com/video/730",
		Platform:      model.PlatformDouyin,
		DownloadDir:   dir,
	}, nil)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if call != 3 {
		t.Fatalf("succeeded after %d variants, want 3", call)
	}
	if len(bundle.VideoPaths) != 1 || !strings.HasSuffix(bundle.VideoPaths[0], "video.mp4") {
		t.Errorf("bundle videos = %v, want only the third variant's file", bundle.VideoPaths)
	}
}

func writeFetchFile(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
