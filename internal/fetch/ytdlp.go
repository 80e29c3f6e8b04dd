package fetch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/Hchen1218/viral-content-breakdown/internal/model"
	"github.com/Hchen1218/viral-content-breakdown/internal/session"
)

// YtDlpAdapter drives yt-dlp as the general-purpose downloader for douyin
// and xiaohongshu. It walks a ladder of cookie variants: the session
// handle's cookie file first, then live browser profiles, then none.
type YtDlpAdapter struct {
	binPath string
	logger  *zap.Logger
	run     commandRunner
}

func NewYtDlpAdapter(binPath string, logger *zap.Logger) *YtDlpAdapter {
	return &YtDlpAdapter{binPath: binPath, logger: logger, run: runCommand}
}

func (a *YtDlpAdapter) ID() string { return "yt-dlp" }

func (a *YtDlpAdapter) NeedsSession() bool { return true }

type cookieVariant struct {
	label string
	args  []string
}

// cookieVariants builds the ladder. Xiaohongshu is notoriously hostile to
// Safari cookie extraction, so chromium-family browsers go first there.
func cookieVariants(handle *session.Handle, platform model.Platform) []cookieVariant {
	var variants []cookieVariant

	if handle != nil && handle.OK {
		if file := handle.Cookies.CookiesFile; file != "" {
			if _, err := os.Stat(file); err == nil {
				variants = append(variants, cookieVariant{"session", []string{"--cookies", file}})
			}
		} else if browser := handle.Cookies.CookiesFromBrowser; browser != "" {
			variants = append(variants, cookieVariant{"session", []string{"--cookies-from-browser", browser}})
		}
	}

	preferred := []string{"chrome", "chromium", "firefox", "safari"}
	if platform == model.PlatformXiaohongshu {
		preferred = []string{"chrome", "chromium", "safari", "firefox"}
	}
	for _, browser := range preferred {
		variants = append(variants, cookieVariant{"browser:" + browser, []string{"--cookies-from-browser", browser}})
	}
	variants = append(variants, cookieVariant{"no-cookies", nil})

	// Session args can duplicate a browser variant; keep first occurrence.
	seen := make(map[string]struct{}, len(variants))
	deduped := variants[:0]
	for _, v := range variants {
		key := strings.Join(v.args, "\x00")
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		deduped = append(deduped, v)
	}
	return deduped
}

func (a *YtDlpAdapter) Fetch(ctx context.Context, req *Request, handle *session.Handle) (*Bundle, error) {
	if a.binPath == "" {
		return nil, fmt.Errorf("yt-dlp is not installed: install it with `python3 -m pip install --user yt-dlp`")
	}

	outputTemplate := filepath.Join(req.DownloadDir, "%(id)s", "%(title).120B.%(ext)s")
	baseArgs := []string{
		a.binPath,
		"--no-progress",
		"--no-warnings",
		"--write-info-json",
		"--write-thumbnail",
		"--write-subs",
		"--write-auto-subs",
		"--sub-langs", "zh.*,en.*",
		"-o", outputTemplate,
	}

	var lastErr error

	for _, variant := range cookieVariants(handle, req.Platform) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		argv := append(append([]string{}, baseArgs...), variant.args...)
		argv = append(argv, req.NormalizedURL)

		// Snapshot per variant: leftovers from a failed earlier variant
		// must not count toward this one's output.
		before := listFiles(req.DownloadDir)
		res := a.run(ctx, req.DownloadDir, argv)
		added := newFiles(before, listFiles(req.DownloadDir))

		if res.ExitCode == 0 && len(added) > 0 {
			a.logger.Debug("yt-dlp succeeded",
				zap.String("cookie_variant", variant.label),
				zap.Int("new_files", len(added)))
			return ClassifyPaths(added, req.DownloadDir), nil
		}

		lastErr = fmt.Errorf("yt-dlp (%s) exit=%d: %s", variant.label, res.ExitCode, strings.TrimSpace(res.StderrTail))
		a.logger.Debug("yt-dlp variant failed", zap.String("cookie_variant", variant.label), zap.Int("exit", res.ExitCode))
	}

	return nil, lastErr
}
