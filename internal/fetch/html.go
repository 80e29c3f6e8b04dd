package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/Hchen1218/viral-content-breakdown/internal/cache"
	"github.com/Hchen1218/viral-content-breakdown/internal/model"
	"github.com/Hchen1218/viral-content-breakdown/internal/session"
	"github.com/Hchen1218/viral-content-breakdown/internal/util"
)

var (
	nicknamePattern  = regexp.MustCompile(`var\s+nickname\s*=\s*"([^"]*)"`)
	msgDescPattern   = regexp.MustCompile(`var\s+msg_desc\s*=\s*"([^"]*)"`)
	publishTSPattern = regexp.MustCompile(`\bct\s*=\s*['"]?(\d{10})['"]?`)
	runSpacePattern  = regexp.MustCompile(`[ \t]+`)
	runNLPattern     = regexp.MustCompile(`\n{3,}`)
	keywordSplit     = regexp.MustCompile(`[,，\s]+`)
)

// HTMLAdapter fetches the post page directly and extracts article text and
// metadata without any external binary. It is the terminal fallback for
// wechat_mp and the whole chain for unknown platforms.
type HTMLAdapter struct {
	id        string
	client    *http.Client
	userAgent string
	maxBytes  int64
	memCache  *cache.Memory
	cacheTTL  time.Duration
	robots    *util.RobotsChecker
	logger    *zap.Logger
}

func NewHTMLAdapter(id string, httpCfg model.HTTPConfig, memCache *cache.Memory, cacheTTL time.Duration, robots *util.RobotsChecker, logger *zap.Logger) *HTMLAdapter {
	return &HTMLAdapter{
		id: id,
		client: &http.Client{
			Timeout: httpCfg.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		userAgent: httpCfg.UserAgent,
		maxBytes:  httpCfg.MaxBodyBytes,
		memCache:  memCache,
		cacheTTL:  cacheTTL,
		robots:    robots,
		logger:    logger,
	}
}

func (a *HTMLAdapter) ID() string { return a.id }

func (a *HTMLAdapter) NeedsSession() bool { return false }

func (a *HTMLAdapter) Fetch(ctx context.Context, req *Request, _ *session.Handle) (*Bundle, error) {
	if a.robots != nil && !a.robots.IsAllowed(ctx, req.NormalizedURL) {
		return nil, fmt.Errorf("robots.txt disallows fetching %s", req.NormalizedURL)
	}

	raw, err := a.fetchPage(ctx, req.NormalizedURL)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(req.DownloadDir, 0o755); err != nil {
		return nil, fmt.Errorf("create download dir: %w", err)
	}
	articlePath := filepath.Join(req.DownloadDir, "article.html")
	if err := os.WriteFile(articlePath, []byte(raw), 0o644); err != nil {
		return nil, fmt.Errorf("save article html: %w", err)
	}

	doc, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse article html: %w", err)
	}

	title := metaContent(doc, "property", "og:title")
	if title == "" {
		title = nodeText(findFirst(doc, func(n *html.Node) bool {
			return n.Type == html.ElementNode && n.Data == "title"
		}))
	}
	desc := metaContent(doc, "name", "description")
	if desc == "" {
		desc = firstMatch(msgDescPattern, raw)
	}
	tags := splitKeywords(metaContent(doc, "name", "keywords"))

	bodyText := nodeText(findFirst(doc, func(n *html.Node) bool {
		return n.Type == html.ElementNode && attrValue(n, "id") == "js_content"
	}))
	if bodyText == "" {
		bodyText = desc
	}
	if bodyText == "" {
		bodyText = title
	}
	bodyPath := filepath.Join(req.DownloadDir, "article_body.txt")
	if err := os.WriteFile(bodyPath, []byte(bodyText), 0o644); err != nil {
		return nil, fmt.Errorf("save article body: %w", err)
	}

	coverURL := metaContent(doc, "property", "og:image")
	coverPath := a.downloadCover(ctx, coverURL, req.DownloadDir)

	info := map[string]any{
		"title":             title,
		"description":       truncate(bodyText, 2000),
		"tags":              tags,
		"platform":          string(req.Platform),
		"uploader":          firstMatch(nicknamePattern, raw),
		"webpage_url":       req.URL,
		"publish_timestamp": firstMatch(publishTSPattern, raw),
		"cover_url":         coverURL,
		"cover_local_file":  coverPath,
	}
	infoPath := filepath.Join(req.DownloadDir, "article.info.json")
	infoJSON, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal article info: %w", err)
	}
	if err := os.WriteFile(infoPath, infoJSON, 0o644); err != nil {
		return nil, fmt.Errorf("save article info: %w", err)
	}

	bundle := &Bundle{
		HTML:            raw,
		TranscriptPaths: []string{bodyPath},
		InfoJSONPaths:   []string{infoPath},
		DownloadDir:     req.DownloadDir,
	}
	if coverPath != "" {
		bundle.ImagePaths = append(bundle.ImagePaths, coverPath)
	}
	return bundle, nil
}

func (a *HTMLAdapter) fetchPage(ctx context.Context, rawURL string) (string, error) {
	key := cache.Key(rawURL)
	if a.memCache != nil {
		if cached, ok := a.memCache.Get(key); ok {
			a.logger.Debug("html cache hit", zap.String("url", rawURL))
			return string(cached), nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", a.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "zh-CN,zh;q=0.9")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch page: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("unexpected status fetching page: %d %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, a.maxBytes))
	if err != nil {
		return "", fmt.Errorf("read page body: %w", err)
	}

	if a.memCache != nil {
		a.memCache.Set(key, body, a.cacheTTL)
	}
	return string(body), nil
}

func (a *HTMLAdapter) downloadCover(ctx context.Context, coverURL, dir string) string {
	if coverURL == "" {
		return ""
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, coverURL, nil)
	if err != nil {
		return ""
	}
	req.Header.Set("User-Agent", a.userAgent)

	resp, err := a.client.Do(req)
	if err != nil {
		return ""
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return ""
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, a.maxBytes))
	if err != nil {
		return ""
	}
	ext := ".jpg"
	if strings.Contains(strings.ToLower(coverURL), ".png") {
		ext = ".png"
	}
	path := filepath.Join(dir, "cover"+ext)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return ""
	}
	return path
}

// HTML node helpers

func findFirst(n *html.Node, predicate func(*html.Node) bool) *html.Node {
	if n == nil {
		return nil
	}
	if predicate(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, predicate); found != nil {
			return found
		}
	}
	return nil
}

func metaContent(doc *html.Node, attrKey, attrVal string) string {
	node := findFirst(doc, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == "meta" && attrValue(n, attrKey) == attrVal
	})
	if node == nil {
		return ""
	}
	return strings.TrimSpace(attrValue(node, "content"))
}

func attrValue(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

func nodeText(n *html.Node) string {
	if n == nil {
		return ""
	}
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		switch {
		case node.Type == html.TextNode:
			b.WriteString(node.Data)
		case node.Type == html.ElementNode && (node.Data == "script" || node.Data == "style"):
			return
		case node.Type == html.ElementNode && (node.Data == "br" || node.Data == "p"):
			b.WriteString("\n")
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)

	text := runSpacePattern.ReplaceAllString(b.String(), " ")
	text = runNLPattern.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

func firstMatch(pattern *regexp.Regexp, text string) string {
	m := pattern.FindStringSubmatch(text)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}

func splitKeywords(raw string) []string {
	parts := keywordSplit.Split(raw, -1)
	var tags []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tags = append(tags, p)
		}
		if len(tags) == 20 {
			break
		}
	}
	return tags
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

var _ Adapter = (*HTMLAdapter)(nil)
