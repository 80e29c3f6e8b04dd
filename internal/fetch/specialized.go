package fetch

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"go.uber.org/zap"

	"github.com/Hchen1218/viral-content-breakdown/internal/session"
)

// SpecializedAdapter tries community downloader binaries dedicated to a
// single platform. Each candidate is an argv template with {url} and
// {output} placeholders; the first installed candidate that produces new
// files wins.
type SpecializedAdapter struct {
	id         string
	candidates [][]string
	logger     *zap.Logger
	run        commandRunner
	lookPath   func(string) (string, error)
}

func newSpecializedAdapter(id string, candidates [][]string, logger *zap.Logger) *SpecializedAdapter {
	return &SpecializedAdapter{
		id:         id,
		candidates: candidates,
		logger:     logger,
		run:        runCommand,
		lookPath:   exec.LookPath,
	}
}

// NewDouyinAdapter covers dedicated douyin downloaders.
func NewDouyinAdapter(logger *zap.Logger) *SpecializedAdapter {
	return newSpecializedAdapter("douyin-specialized", [][]string{
		{"douyin-downloader", "--url", "{url}", "--output", "{output}"},
		{"res-downloader", "--url", "{url}", "--output", "{output}"},
	}, logger)
}

// NewXiaohongshuAdapter covers the xiaohongshu downloader ecosystem.
func NewXiaohongshuAdapter(logger *zap.Logger) *SpecializedAdapter {
	return newSpecializedAdapter("xhs-specialized", [][]string{
		{"xhs-downloader", "--url", "{url}", "--output", "{output}"},
		{"rednote-video-assist", "--url", "{url}", "--output", "{output}"},
		{"xhsdl", "{url}", "--output", "{output}"},
		{"res-downloader", "--url", "{url}", "--output", "{output}"},
	}, logger)
}

// NewWechatExporterAdapter covers wechat_mp article exporters.
func NewWechatExporterAdapter(logger *zap.Logger) *SpecializedAdapter {
	return newSpecializedAdapter("wechat-specialized", [][]string{
		{"wechat-article-exporter", "--url", "{url}", "--output", "{output}"},
		{"res-downloader", "--url", "{url}", "--output", "{output}"},
	}, logger)
}

func (a *SpecializedAdapter) ID() string { return a.id }

// Specialized binaries carry their own auth flows.
func (a *SpecializedAdapter) NeedsSession() bool { return false }

func (a *SpecializedAdapter) Fetch(ctx context.Context, req *Request, _ *session.Handle) (*Bundle, error) {
	tried := 0
	var lastErr error

	for _, template := range a.candidates {
		binPath, err := a.lookPath(template[0])
		if err != nil {
			continue
		}
		tried++

		argv := make([]string, 0, len(template))
		argv = append(argv, binPath)
		for _, arg := range template[1:] {
			switch arg {
			case "{url}":
				argv = append(argv, req.NormalizedURL)
			case "{output}":
				argv = append(argv, req.DownloadDir)
			default:
				argv = append(argv, arg)
			}
		}

		before := listFiles(req.DownloadDir)
		res := a.run(ctx, req.DownloadDir, argv)
		added := newFiles(before, listFiles(req.DownloadDir))

		if res.ExitCode == 0 && len(added) > 0 {
			a.logger.Debug("specialized downloader succeeded",
				zap.String("binary", template[0]), zap.Int("new_files", len(added)))
			return ClassifyPaths(added, req.DownloadDir), nil
		}
		lastErr = fmt.Errorf("%s exit=%d: %s", template[0], res.ExitCode, strings.TrimSpace(res.StderrTail))
	}

	if tried == 0 {
		return nil, fmt.Errorf("no %s downloader installed for %s", a.id, req.Platform)
	}
	return nil, lastErr
}

var (
	_ Adapter = (*SpecializedAdapter)(nil)
	_ Adapter = (*YtDlpAdapter)(nil)
)
