package platform

import (
	"testing"

	"github.com/Hchen1218/viral-content-breakdown/internal/model"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		url         string
		platform    model.Platform
		contentType model.ContentType
	}{
		{"https://www.douyin.com/video/7301234567890", model.PlatformDouyin, model.ContentVideo},
		{"https://v.douyin.com/iRxYz/", model.PlatformDouyin, model.ContentVideo},
		{"https://www.iesdouyin.com/share/video/7301234567890", model.PlatformDouyin, model.ContentVideo},
		{"https://www.xiaohongshu.com/explore/6543abc", model.PlatformXiaohongshu, model.ContentImagePost},
		{"http://xhslink.com/AbCdEf", model.PlatformXiaohongshu, model.ContentImagePost},
		{"https://mp.weixin.qq.com/s/AbCdEfGh", model.PlatformWechatMP, model.ContentArticle},
		{"https://example.com/post/123", model.PlatformUnknown, model.ContentUnknown},
		{"not a url at all ::", model.PlatformUnknown, model.ContentUnknown},
	}

	for _, c := range cases {
		platform, contentType := Classify(c.url)
		if platform != c.platform {
			t.Errorf("Classify(%q) platform = %q, want %q", c.url, platform, c.platform)
		}
		if contentType != c.contentType {
			t.Errorf("Classify(%q) content type = %q, want %q", c.url, contentType, c.contentType)
		}
	}
}

func TestClassifyDoesNotMatchLookalikeDomains(t *testing.T) {
	platform, _ := Classify("https://notdouyin.com.evil.example/video/1")
	if platform != model.PlatformUnknown {
		t.Errorf("expected unknown platform for lookalike domain, got %q", platform)
	}
}

func TestNormalizeDouyinModalURL(t *testing.T) {
	got, note := Normalize("https://www.douyin.com/user/MS4wLjAB?modal_id=7301234567890")
	want := "https://www.douyin.com/video/7301234567890"
	if got != want {
		t.Errorf("Normalize = %q, want %q", got, want)
	}
	if note != "converted_user_modal_to_video" {
		t.Errorf("unexpected note %q", note)
	}
}

func TestNormalizePassthrough(t *testing.T) {
	url := "https://www.douyin.com/video/7301234567890"
	got, note := Normalize(url)
	if got != url || note != "" {
		t.Errorf("Normalize(%q) = (%q, %q), want passthrough", url, got, note)
	}
}

func TestNormalizeXHSShortLinkNote(t *testing.T) {
	url := "http://xhslink.com/AbCdEf"
	got, note := Normalize(url)
	if got != url {
		t.Errorf("short link must not be rewritten, got %q", got)
	}
	if note != "xhs_short_link_detected" {
		t.Errorf("unexpected note %q", note)
	}
}
