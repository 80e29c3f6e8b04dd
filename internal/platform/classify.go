// Package platform maps post URLs to a platform tag and content-type guess.
package platform

import (
	"net/url"
	"strings"

	"github.com/Hchen1218/viral-content-breakdown/internal/model"
)

// Classify pattern-matches a raw URL against known domain shapes. An
// unknown platform is a valid result that routes to the generic HTML chain.
func Classify(rawURL string) (model.Platform, model.ContentType) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return model.PlatformUnknown, model.ContentUnknown
	}
	host := strings.ToLower(parsed.Hostname())

	switch {
	case hasDomain(host, "douyin.com"), hasDomain(host, "iesdouyin.com"):
		return model.PlatformDouyin, model.ContentVideo
	case hasDomain(host, "xiaohongshu.com"), hasDomain(host, "xhslink.com"):
		return model.PlatformXiaohongshu, model.ContentImagePost
	case host == "mp.weixin.qq.com":
		return model.PlatformWechatMP, model.ContentArticle
	}
	return model.PlatformUnknown, model.ContentUnknown
}

// Normalize rewrites URL shapes that downloaders commonly reject into
// their canonical form. The second return value is a note for run metadata,
// empty when nothing changed.
func Normalize(rawURL string) (string, string) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return rawURL, ""
	}
	host := strings.ToLower(parsed.Hostname())

	if hasDomain(host, "douyin.com") && strings.HasPrefix(parsed.Path, "/user/") {
		if modalID := parsed.Query().Get("modal_id"); modalID != "" {
			return "https://www.douyin.com/video/" + modalID, "converted_user_modal_to_video"
		}
	}
	if hasDomain(host, "xhslink.com") {
		return rawURL, "xhs_short_link_detected"
	}
	return rawURL, ""
}

func hasDomain(host, domain string) bool {
	return host == domain || strings.HasSuffix(host, "."+domain)
}
