package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Hchen1218/viral-content-breakdown/internal/fetch"
	"github.com/Hchen1218/viral-content-breakdown/internal/model"
)

// RunMeta is the per-run audit record stored next to the report.
type RunMeta struct {
	RunID     string          `json:"run_id"`
	URL       string          `json:"url"`
	Platform  model.Platform  `json:"platform"`
	AdapterID string          `json:"adapter_id,omitempty"`
	Attempts  []fetch.Attempt `json:"attempts,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

func NewRunMeta(url string, platform model.Platform) *RunMeta {
	return &RunMeta{
		RunID:     uuid.NewString(),
		URL:       url,
		Platform:  platform,
		CreatedAt: time.Now().UTC(),
	}
}

// reportFiles survive every retention policy; raw artifacts do not.
var reportFiles = map[string]struct{}{
	"report.json":   {},
	"report.md":     {},
	"run_meta.json": {},
	"error.json":    {},
}

// Persister writes run outputs and applies the artifact retention policy.
// The confirmation prompt is injected so the CLI owns terminal I/O.
type Persister struct {
	saveArtifacts  string // ask | always | never
	nonInteractive bool
	confirm        func(prompt string) bool
	logger         *zap.Logger
}

func NewPersister(cfg model.OutputConfig, confirm func(string) bool, logger *zap.Logger) *Persister {
	return &Persister{
		saveArtifacts:  cfg.SaveArtifacts,
		nonInteractive: cfg.NonInteractive,
		confirm:        confirm,
		logger:         logger,
	}
}

// WriteReport emits report.json and report.md into dir.
func (p *Persister) WriteReport(dir string, r *model.Report) (jsonPath, mdPath string, err error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("create output dir: %w", err)
	}

	jsonPath = filepath.Join(dir, "report.json")
	raw, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", "", fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(jsonPath, raw, 0o644); err != nil {
		return "", "", fmt.Errorf("write report.json: %w", err)
	}

	mdPath = filepath.Join(dir, "report.md")
	if err := os.WriteFile(mdPath, []byte(RenderMarkdown(r)), 0o644); err != nil {
		return "", "", fmt.Errorf("write report.md: %w", err)
	}
	return jsonPath, mdPath, nil
}

func (p *Persister) WriteRunMeta(dir string, meta *RunMeta) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	raw, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal run meta: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, "run_meta.json"), raw, 0o644)
}

// WriteError emits error.json so a failed run still leaves a structured,
// machine-readable trace.
func (p *Persister) WriteError(dir string, structured *model.StructuredError) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	raw, err := json.MarshalIndent(structured, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal error: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, "error.json"), raw, 0o644)
}

// ApplyRetention decides the fate of downloaded artifacts in dir.
// Policy "ask" defaults to keeping when no terminal is available.
func (p *Persister) ApplyRetention(dir string) error {
	switch p.saveArtifacts {
	case "always":
		return nil
	case "never":
		return p.prune(dir)
	}

	if p.nonInteractive || p.confirm == nil {
		p.logger.Info("keeping downloaded artifacts (non-interactive default)", zap.String("dir", dir))
		return nil
	}
	if p.confirm(fmt.Sprintf("保留 %s 下的原始下载素材吗?", dir)) {
		return nil
	}
	return p.prune(dir)
}

// prune removes everything under dir except the report files.
func (p *Persister) prune(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read output dir: %w", err)
	}
	for _, entry := range entries {
		if _, keep := reportFiles[entry.Name()]; keep {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			return fmt.Errorf("remove artifact %s: %w", path, err)
		}
		p.logger.Debug("pruned artifact", zap.String("path", path))
	}
	return nil
}

// ExportNamed copies the report files into a stable, human-named library
// directory: <base>/<date>-<slug>, suffixed -2, -3, ... on collision.
func (p *Persister) ExportNamed(baseDir, runDir string, r *model.Report) (string, error) {
	slug := slugify(r.PostContent.Title)
	if slug == "" {
		slug = string(r.Meta.Platform) + "-" + string(r.Meta.ContentType)
	}
	name := r.Meta.AnalyzedAt.Format("2006-01-02") + "-" + slug

	target := filepath.Join(baseDir, name)
	for i := 2; ; i++ {
		if _, err := os.Stat(target); os.IsNotExist(err) {
			break
		}
		if i > 100 {
			return "", fmt.Errorf("no free export name for %s", name)
		}
		target = filepath.Join(baseDir, fmt.Sprintf("%s-%d", name, i))
	}
	if err := os.MkdirAll(target, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}

	for file := range reportFiles {
		src := filepath.Join(runDir, file)
		if _, err := os.Stat(src); err != nil {
			continue
		}
		if err := copyFile(src, filepath.Join(target, file)); err != nil {
			return "", err
		}
	}
	return target, nil
}

const maxSlugRunes = 40

// slugify keeps letters, digits and CJK, joins the rest with hyphens.
func slugify(s string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteRune('-')
				lastHyphen = true
			}
		}
	}
	slug := strings.Trim(b.String(), "-")
	runes := []rune(slug)
	if len(runes) > maxSlugRunes {
		slug = strings.Trim(string(runes[:maxSlugRunes]), "-")
	}
	return slug
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copy %s: %w", dst, err)
	}
	return out.Sync()
}
