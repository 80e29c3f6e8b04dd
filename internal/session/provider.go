package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"github.com/Hchen1218/viral-content-breakdown/internal/model"
)

// Provider supplies a session handle on demand. Adapters that need
// authentication request one lazily; nothing is acquired up front.
type Provider interface {
	Acquire(ctx context.Context, platform model.Platform) (*Handle, error)
}

// FileProvider serves a pre-existing handle from disk.
type FileProvider struct {
	Path string
}

func (p *FileProvider) Acquire(ctx context.Context, platform model.Platform) (*Handle, error) {
	handle, err := Load(p.Path)
	if err != nil {
		return nil, err
	}
	if !handle.OK {
		return nil, &model.SessionExpiredError{Platform: platform}
	}
	return handle, nil
}

var loginURLs = map[model.Platform]string{
	model.PlatformDouyin:      "https://www.douyin.com/",
	model.PlatformXiaohongshu: "https://www.xiaohongshu.com/",
	model.PlatformUnknown:     "https://www.douyin.com/",
}

// Cookie names whose presence marks a completed login.
var loginCookies = map[model.Platform][]string{
	model.PlatformDouyin:      {"sessionid", "sessionid_ss"},
	model.PlatformXiaohongshu: {"web_session"},
}

// QRLoginProvider opens the platform login page in a visible browser,
// waits for the user to scan the QR code, then exports the resulting
// cookies to a Netscape-format file for downloader adapters.
type QRLoginProvider struct {
	Browser    string // safari | chromium (safari falls back to the local chromium launch)
	SessionDir string
	Logger     *zap.Logger
	poll       time.Duration
}

func NewQRLoginProvider(browser, sessionDir string, logger *zap.Logger) *QRLoginProvider {
	return &QRLoginProvider{
		Browser:    browser,
		SessionDir: sessionDir,
		Logger:     logger,
		poll:       2 * time.Second,
	}
}

func (p *QRLoginProvider) Acquire(ctx context.Context, platform model.Platform) (*Handle, error) {
	loginURL, ok := loginURLs[platform]
	if !ok {
		loginURL = loginURLs[model.PlatformUnknown]
	}

	controlURL, err := launcher.New().Headless(false).Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser for QR login: %w", err)
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}
	defer func() { _ = browser.Close() }()

	if _, err := browser.Page(proto.TargetCreateTarget{URL: loginURL}); err != nil {
		return nil, fmt.Errorf("open login page %s: %w", loginURL, err)
	}

	p.Logger.Info("waiting for QR login", zap.String("url", loginURL), zap.String("platform", string(platform)))

	cookies, err := p.waitForLogin(ctx, browser, platform)
	if err != nil {
		return nil, err
	}

	cookieFile := filepath.Join(p.SessionDir, "cookies.txt")
	if err := writeNetscapeCookies(cookieFile, cookies); err != nil {
		return nil, err
	}

	handle := &Handle{
		OK:        true,
		Mode:      "qr-login",
		Platform:  platform,
		Browser:   p.Browser,
		CreatedAt: time.Now().UTC(),
		Cookies: CookieSource{
			Source:      "cookies_file",
			CookiesFile: cookieFile,
		},
		Notes: []string{"refresh the login and retry if downloads start failing with auth errors"},
	}
	return handle, nil
}

// waitForLogin polls browser cookies until a login marker appears or the
// context runs out. The wait is scoped and cancellable; there is no
// fallback timeout beyond the caller's.
func (p *QRLoginProvider) waitForLogin(ctx context.Context, browser *rod.Browser, platform model.Platform) ([]*proto.NetworkCookie, error) {
	markers := loginCookies[platform]
	ticker := time.NewTicker(p.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("QR login not completed: %w", ctx.Err())
		case <-ticker.C:
			cookies, err := browser.GetCookies()
			if err != nil {
				p.Logger.Debug("cookie poll failed", zap.Error(err))
				continue
			}
			if len(markers) == 0 && len(cookies) > 0 {
				return cookies, nil
			}
			for _, cookie := range cookies {
				for _, marker := range markers {
					if cookie.Name == marker && cookie.Value != "" {
						return cookies, nil
					}
				}
			}
		}
	}
}

// writeNetscapeCookies exports cookies in the format yt-dlp's --cookies
// flag expects, with 0600 permissions.
func writeNetscapeCookies(path string, cookies []*proto.NetworkCookie) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create cookie dir: %w", err)
	}

	var b strings.Builder
	b.WriteString("# Netscape HTTP Cookie File\n")
	for _, c := range cookies {
		includeSub := "FALSE"
		if strings.HasPrefix(c.Domain, ".") {
			includeSub = "TRUE"
		}
		secure := "FALSE"
		if c.Secure {
			secure = "TRUE"
		}
		expiry := int64(0)
		if c.Expires > 0 {
			expiry = int64(c.Expires)
		}
		fmt.Fprintf(&b, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n", c.Domain, includeSub, c.Path, secure, expiry, c.Name, c.Value)
	}

	if err := os.WriteFile(path, []byte(b.String()), 0o600); err != nil {
		return fmt.Errorf("write cookie file: %w", err)
	}
	return os.Chmod(path, 0o600)
}
