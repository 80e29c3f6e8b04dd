package fetch

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Hchen1218/viral-content-breakdown/internal/model"
	"github.com/Hchen1218/viral-content-breakdown/internal/session"
)

type fakeAdapter struct {
	id     string
	bundle *Bundle
	err    error
	calls  int
}

func (f *fakeAdapter) ID() string         { return f.id }
func (f *fakeAdapter) NeedsSession() bool { return false }

func (f *fakeAdapter) Fetch(_ context.Context, _ *Request, _ *session.Handle) (*Bundle, error) {
	f.calls++
	return f.bundle, f.err
}

func testRequest() *Request {
	return &Request{
		URL:           "https://v.douyin.com/abc123/",
		NormalizedURL: "https://www.douyin.com/video/7300000000000000000",
		Platform:      model.PlatformDouyin,
		Quality:       "high",
		DownloadDir:   "/tmp/vcb-test",
	}
}

func TestChainExhaustionYieldsNextAction(t *testing.T) {
	first := &fakeAdapter{id: "douyin-specialized", err: errors.New("no installed downloader binary")}
	second := &fakeAdapter{id: "yt-dlp", err: errors.New("yt-dlp (no-cookies) exit=1: ERROR: HTTP Error 404: Not Found")}
	chain := NewChain([]Adapter{first, second}, nil, nil, time.Minute, zap.NewNop())

	_, err := chain.Run(context.Background(), testRequest())
	if err == nil {
		t.Fatal("expected chain exhaustion error")
	}

	var fetchErr *model.FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("error type = %T, want *model.FetchError", err)
	}
	if fetchErr.Code != model.CodeNotFound {
		t.Errorf("code = %q, want %q", fetchErr.Code, model.CodeNotFound)
	}
	if fetchErr.NextAction == "" {
		t.Error("next_action must not be empty after exhaustion")
	}
	if len(fetchErr.Attempts) != 2 {
		t.Errorf("attempts = %v, want both adapter ids", fetchErr.Attempts)
	}
}

func TestChainFallsBackAfterRateLimit(t *testing.T) {
	primary := &fakeAdapter{id: "yt-dlp", err: errors.New("HTTP Error 429: Too Many Requests")}
	fallback := &fakeAdapter{id: "generic-html", bundle: &Bundle{HTML: "<html>ok</html>"}}
	chain := NewChain([]Adapter{primary, fallback}, nil, nil, time.Minute, zap.NewNop())

	result, err := chain.Run(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.AdapterID != "generic-html" {
		t.Errorf("winning adapter = %q, want fallback", result.AdapterID)
	}
	if len(result.Attempts) != 2 {
		t.Fatalf("attempts = %d, want 2", len(result.Attempts))
	}
	if result.Attempts[0].Err == "" {
		t.Error("rate limited attempt should record its error")
	}
	if result.Attempts[1].Err != "" {
		t.Errorf("winning attempt recorded error: %q", result.Attempts[1].Err)
	}
}

func TestChainSkipsEmptyBundle(t *testing.T) {
	hollow := &fakeAdapter{id: "hollow", bundle: &Bundle{}}
	solid := &fakeAdapter{id: "solid", bundle: &Bundle{VideoPaths: []string{"a.mp4"}}}
	chain := NewChain([]Adapter{hollow, solid}, nil, nil, time.Minute, zap.NewNop())

	result, err := chain.Run(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.AdapterID != "solid" {
		t.Errorf("winning adapter = %q, want solid", result.AdapterID)
	}
}

func TestChainWithoutAdapters(t *testing.T) {
	chain := NewChain(nil, nil, nil, time.Minute, zap.NewNop())
	_, err := chain.Run(context.Background(), testRequest())

	var fetchErr *model.FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("error type = %T, want *model.FetchError", err)
	}
	if fetchErr.Code != model.CodeDownloadFailed || fetchErr.NextAction == "" {
		t.Errorf("unexpected structured error: %+v", fetchErr)
	}
}

func TestDiagnoseFailure(t *testing.T) {
	cases := []struct {
		text string
		code string
	}{
		{"nodename nor servname provided, or not known", model.CodeDNSFailure},
		{"error: http error 429: too many requests", model.CodeRateLimited},
		{"could not copy chrome cookie database: cookies.binarycookies", model.CodeAuthRequired},
		{"fresh cookies are needed", model.CodeAuthRequired},
		{"http error 403: forbidden", model.CodeAuthRequired},
		{"http error 404: not found", model.CodeNotFound},
		{"context deadline exceeded", model.CodeAdapterTimeout},
		{"some novel failure", model.CodeDownloadFailed},
	}
	for _, tc := range cases {
		code, reason, nextAction := diagnoseFailure(tc.text)
		if code != tc.code {
			t.Errorf("diagnoseFailure(%q) code = %q, want %q", tc.text, code, tc.code)
		}
		if reason == "" || nextAction == "" {
			t.Errorf("diagnoseFailure(%q) returned empty reason or next_action", tc.text)
		}
	}
}

func TestChainForAdapterOrder(t *testing.T) {
	deps := ChainDeps{Config: model.DefaultConfig(), Logger: zap.NewNop()}
	cases := []struct {
		platform model.Platform
		first    string
		last     string
	}{
		{model.PlatformDouyin, "douyin-specialized", "yt-dlp"},
		{model.PlatformXiaohongshu, "xhs-specialized", "yt-dlp"},
		{model.PlatformWechatMP, "wechat-specialized", "wechat-html-fallback"},
		{model.PlatformUnknown, "yt-dlp", "generic-html"},
	}
	for _, tc := range cases {
		chain := ChainFor(tc.platform, deps)
		if len(chain.adapters) < 2 {
			t.Fatalf("%s: chain has %d adapters, want at least 2", tc.platform, len(chain.adapters))
		}
		if got := chain.adapters[0].ID(); got != tc.first {
			t.Errorf("%s: first adapter = %q, want %q", tc.platform, got, tc.first)
		}
		if got := chain.adapters[len(chain.adapters)-1].ID(); got != tc.last {
			t.Errorf("%s: last adapter = %q, want %q", tc.platform, got, tc.last)
		}
	}
}

func TestCookieVariantOrder(t *testing.T) {
	handle := &session.Handle{
		OK:      true,
		Cookies: session.CookieSource{Source: "cookies_from_browser", CookiesFromBrowser: "chromium"},
	}

	variants := cookieVariants(handle, model.PlatformDouyin)
	if variants[0].label != "session" {
		t.Errorf("first variant = %q, want session cookies", variants[0].label)
	}
	// The session handle points at chromium, so the bare chromium browser
	// variant must be deduplicated away.
	for _, v := range variants[1:] {
		if fmt.Sprint(v.args) == fmt.Sprint([]string{"--cookies-from-browser", "chromium"}) {
			t.Errorf("duplicate chromium variant survived dedupe: %+v", variants)
		}
	}
	if last := variants[len(variants)-1]; last.label != "no-cookies" || last.args != nil {
		t.Errorf("last variant = %+v, want bare no-cookies attempt", last)
	}
}

func TestCookieVariantXiaohongshuPrefersChromiumFamily(t *testing.T) {
	variants := cookieVariants(nil, model.PlatformXiaohongshu)
	var browsers []string
	for _, v := range variants {
		if len(v.args) == 2 && v.args[0] == "--cookies-from-browser" {
			browsers = append(browsers, v.args[1])
		}
	}
	want := []string{"chrome", "chromium", "safari", "firefox"}
	if fmt.Sprint(browsers) != fmt.Sprint(want) {
		t.Errorf("browser order = %v, want %v", browsers, want)
	}
}
