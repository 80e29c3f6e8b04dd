package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/Hchen1218/viral-content-breakdown/internal/model"
)

func populatedRunDir(t *testing.T, p *Persister) string {
	t.Helper()
	dir := t.TempDir()
	r := Assemble(videoInputs())
	if _, _, err := p.WriteReport(dir, r); err != nil {
		t.Fatalf("WriteReport: %v", err)
	}
	if err := p.WriteRunMeta(dir, NewRunMeta(r.Meta.URL, r.Meta.Platform)); err != nil {
		t.Fatalf("WriteRunMeta: %v", err)
	}
	for _, artifact := range []string{"video.mp4", "cover.jpg"} {
		if err := os.WriteFile(filepath.Join(dir, artifact), []byte("x"), 0o644); err != nil {
			t.Fatalf("write artifact: %v", err)
		}
	}
	if err := os.MkdirAll(filepath.Join(dir, "frames"), 0o755); err != nil {
		t.Fatalf("mkdir frames: %v", err)
	}
	return dir
}

func listNames(t *testing.T, dir string) map[string]bool {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	names := map[string]bool{}
	for _, e := range entries {
		names[e.Name()] = true
	}
	return names
}

func TestRetentionNeverPrunesArtifactsKeepsReports(t *testing.T) {
	p := NewPersister(model.OutputConfig{SaveArtifacts: "never"}, nil, zap.NewNop())
	dir := populatedRunDir(t, p)

	if err := p.ApplyRetention(dir); err != nil {
		t.Fatalf("ApplyRetention: %v", err)
	}

	names := listNames(t, dir)
	for _, want := range []string{"report.json", "report.md", "run_meta.json"} {
		if !names[want] {
			t.Errorf("%s must survive pruning", want)
		}
	}
	for _, gone := range []string{"video.mp4", "cover.jpg", "frames"} {
		if names[gone] {
			t.Errorf("%s must be pruned", gone)
		}
	}
}

func TestRetentionAlwaysKeepsEverything(t *testing.T) {
	p := NewPersister(model.OutputConfig{SaveArtifacts: "always"}, nil, zap.NewNop())
	dir := populatedRunDir(t, p)

	if err := p.ApplyRetention(dir); err != nil {
		t.Fatalf("ApplyRetention: %v", err)
	}
	if names := listNames(t, dir); !names["video.mp4"] || !names["frames"] {
		t.Errorf("always policy must keep artifacts: %v", names)
	}
}

func TestRetentionAskNonInteractiveKeeps(t *testing.T) {
	prompted := false
	p := NewPersister(
		model.OutputConfig{SaveArtifacts: "ask", NonInteractive: true},
		func(string) bool { prompted = true; return false },
		zap.NewNop())
	dir := populatedRunDir(t, p)

	if err := p.ApplyRetention(dir); err != nil {
		t.Fatalf("ApplyRetention: %v", err)
	}
	if prompted {
		t.Error("non-interactive run must not prompt")
	}
	if names := listNames(t, dir); !names["video.mp4"] {
		t.Error("non-interactive ask must default to keeping")
	}
}

func TestRetentionAskPrunesWhenDeclined(t *testing.T) {
	p := NewPersister(
		model.OutputConfig{SaveArtifacts: "ask"},
		func(string) bool { return false },
		zap.NewNop())
	dir := populatedRunDir(t, p)

	if err := p.ApplyRetention(dir); err != nil {
		t.Fatalf("ApplyRetention: %v", err)
	}
	if names := listNames(t, dir); names["video.mp4"] || !names["report.json"] {
		t.Errorf("declined keep must prune artifacts only: %v", names)
	}
}

func TestExportNamedCollisionSuffix(t *testing.T) {
	p := NewPersister(model.OutputConfig{SaveArtifacts: "always"}, nil, zap.NewNop())
	runDir := populatedRunDir(t, p)
	base := t.TempDir()
	r := Assemble(videoInputs())

	first, err := p.ExportNamed(base, runDir, r)
	if err != nil {
		t.Fatalf("ExportNamed: %v", err)
	}
	second, err := p.ExportNamed(base, runDir, r)
	if err != nil {
		t.Fatalf("ExportNamed collision: %v", err)
	}

	if first == second {
		t.Fatalf("collision produced same dir %s", first)
	}
	if !strings.HasSuffix(second, "-2") {
		t.Errorf("second export = %s, want -2 suffix", second)
	}
	if _, err := os.Stat(filepath.Join(second, "report.json")); err != nil {
		t.Errorf("exported report.json missing: %v", err)
	}
}

func TestSlugify(t *testing.T) {
	cases := []struct{ in, want string }{
		{"三个方法教你涨粉 #运营", "三个方法教你涨粉-运营"},
		{"Hello, World! 2024", "hello-world-2024"},
		{"!!!", ""},
	}
	for _, tc := range cases {
		if got := slugify(tc.in); got != tc.want {
			t.Errorf("slugify(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestWriteErrorEmitsStructuredJSON(t *testing.T) {
	p := NewPersister(model.OutputConfig{}, nil, zap.NewNop())
	dir := t.TempDir()

	structured := model.NewStructuredError(model.CodeDownloadFailed, "boom", "retry")
	if err := p.WriteError(dir, structured); err != nil {
		t.Fatalf("WriteError: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "error.json"))
	if err != nil {
		t.Fatalf("read error.json: %v", err)
	}
	for _, want := range []string{"DOWNLOAD_FAILED", "boom", "retry", "next_action"} {
		if !strings.Contains(string(raw), want) {
			t.Errorf("error.json missing %q", want)
		}
	}
}

func TestRenderMarkdownSections(t *testing.T) {
	r := Assemble(videoInputs())
	md := RenderMarkdown(r)

	for _, want := range []string{
		"# 爆款内容拆解报告",
		"## 开场钩子",
		"## 制作方式推断",
		"置信度",
		"三个方法教你涨粉",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}
