package fetch

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/Hchen1218/viral-content-breakdown/internal/model"
)

var (
	videoExts      = extSet(".mp4", ".mov", ".mkv", ".webm", ".m4v", ".flv")
	imageExts      = extSet(".jpg", ".jpeg", ".png", ".webp", ".gif", ".bmp")
	audioExts      = extSet(".mp3", ".wav", ".m4a", ".aac", ".flac", ".ogg")
	transcriptExts = extSet(".srt", ".vtt", ".ass", ".lrc", ".txt")
)

func extSet(exts ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(exts))
	for _, e := range exts {
		set[e] = struct{}{}
	}
	return set
}

// ClassifyPaths sorts file paths into a bundle by extension. Sidecar
// .info.json metadata files are tracked separately from media.
func ClassifyPaths(paths []string, downloadDir string) *Bundle {
	bundle := &Bundle{DownloadDir: downloadDir}
	for _, path := range paths {
		ext := strings.ToLower(filepath.Ext(path))
		name := strings.ToLower(filepath.Base(path))
		switch {
		case ext == ".json" && (strings.HasSuffix(name, ".info.json") || strings.Contains(name, "article.info")):
			bundle.InfoJSONPaths = append(bundle.InfoJSONPaths, path)
		case has(videoExts, ext):
			bundle.VideoPaths = append(bundle.VideoPaths, path)
		case has(imageExts, ext):
			bundle.ImagePaths = append(bundle.ImagePaths, path)
		case has(audioExts, ext):
			bundle.AudioPaths = append(bundle.AudioPaths, path)
		case has(transcriptExts, ext):
			bundle.TranscriptPaths = append(bundle.TranscriptPaths, path)
		}
	}
	return bundle
}

func has(set map[string]struct{}, ext string) bool {
	_, ok := set[ext]
	return ok
}

// InferContentType guesses the content shape from what was fetched.
func InferContentType(bundle *Bundle) model.ContentType {
	switch {
	case len(bundle.VideoPaths) > 0:
		return model.ContentVideo
	case len(bundle.ImagePaths) > 0:
		return model.ContentImagePost
	case len(bundle.TranscriptPaths) > 0 || bundle.HTML != "":
		return model.ContentArticle
	}
	return model.ContentUnknown
}

// Metadata is what the sidecar info.json files yielded: author-supplied
// content plus best-effort engagement counters.
type Metadata struct {
	PostContent model.PostContent
	Metrics     model.EngagementMetrics
	PublishedAt string
}

var hashTagPattern = regexp.MustCompile(`#([A-Za-z0-9_\x{4e00}-\x{9fa5}]{2,30})`)

// ExtractMetadata reads every info.json in the bundle, first writer wins
// per field. Absent counters stay nil; absence is not an error.
func ExtractMetadata(bundle *Bundle) Metadata {
	var meta Metadata

	for _, path := range bundle.InfoJSONPaths {
		raw, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var data map[string]any
		if err := json.Unmarshal(raw, &data); err != nil {
			continue
		}

		title := firstString(data, "title", "fulltitle")
		body := firstString(data, "description", "desc")
		tags := stringList(data, "tags")
		if len(tags) == 0 {
			tags = stringList(data, "categories")
		}
		if len(tags) > 30 {
			tags = tags[:30]
		}

		if meta.PostContent.Title == "" && title != "" {
			meta.PostContent.Title = title
		}
		if meta.PostContent.Body == "" && body != "" {
			meta.PostContent.Body = body
		}
		if len(meta.PostContent.Tags) == 0 && len(tags) > 0 {
			meta.PostContent.Tags = tags
		}

		if meta.Metrics.Likes == nil {
			meta.Metrics.Likes = pickInt(data, "like_count", "digg_count", "likes")
		}
		if meta.Metrics.Comments == nil {
			meta.Metrics.Comments = pickInt(data, "comment_count", "comments_count", "comments")
		}
		if meta.Metrics.Plays == nil {
			meta.Metrics.Plays = pickInt(data, "view_count", "play_count", "plays")
		}
		if meta.PublishedAt == "" {
			meta.PublishedAt = firstString(data, "upload_date", "release_date", "timestamp", "publish_timestamp")
		}
	}

	// Derive tags from #hashtags in title/body when the sidecars had none.
	if len(meta.PostContent.Tags) == 0 {
		source := meta.PostContent.Title + " " + meta.PostContent.Body
		for _, match := range hashTagPattern.FindAllStringSubmatch(source, 15) {
			meta.PostContent.Tags = append(meta.PostContent.Tags, match[1])
		}
	}
	return meta
}

func firstString(data map[string]any, keys ...string) string {
	for _, key := range keys {
		switch v := data[key].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			if v != 0 {
				return strconv.FormatInt(int64(v), 10)
			}
		}
	}
	return ""
}

func stringList(data map[string]any, key string) []string {
	raw, ok := data[key].([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range raw {
		if s, ok := item.(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

var nonDigits = regexp.MustCompile(`[^\d]`)

// pickInt coerces the first usable counter value: platforms report the
// same metric as a number in one field and a "1,234" string in another.
func pickInt(data map[string]any, keys ...string) *int64 {
	for _, key := range keys {
		switch v := data[key].(type) {
		case float64:
			n := int64(v)
			return &n
		case string:
			digits := nonDigits.ReplaceAllString(v, "")
			if digits == "" {
				continue
			}
			var n int64
			for _, ch := range digits {
				n = n*10 + int64(ch-'0')
			}
			return &n
		}
	}
	return nil
}
