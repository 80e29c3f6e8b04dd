package extract

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Span is one transcript segment. Start/End are seconds; -1 means the
// source carried no timing (plain text, article body).
type Span struct {
	Start float64
	End   float64
	Text  string
}

// Timed reports whether the span carries usable timing.
func (s Span) Timed() bool { return s.Start >= 0 && s.End > s.Start }

// Locator renders the span's evidence locator: "12.4s-15.1s" for timed
// spans, "line:N" otherwise.
func (s Span) Locator(line int) string {
	if s.Timed() {
		return fmt.Sprintf("%.1fs-%.1fs", s.Start, s.End)
	}
	return fmt.Sprintf("line:%d", line)
}

var (
	srtTimingPattern = regexp.MustCompile(`(\d{1,2}):(\d{2}):(\d{2})[,.](\d{1,3})\s*-->\s*(\d{1,2}):(\d{2}):(\d{2})[,.](\d{1,3})`)
	lrcTimingPattern = regexp.MustCompile(`^\[(\d{1,2}):(\d{2})(?:\.(\d{1,2}))?\](.*)$`)
	markupPattern    = regexp.MustCompile(`<[^>]*>|\{[^}]*\}`)
	counterPattern   = regexp.MustCompile(`^\d+$`)
)

// ParseSubtitleFile reads a subtitle or plain-text transcript file into
// spans. Format is chosen by extension; unknown extensions fall back to
// line-per-span plain text.
func ParseSubtitleFile(path string) ([]Span, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read subtitle file: %w", err)
	}
	text := string(raw)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".srt", ".vtt", ".ass":
		return parseTimedSubtitles(text), nil
	case ".lrc":
		return parseLRC(text), nil
	}
	return parsePlainText(text), nil
}

// parseTimedSubtitles handles srt and vtt: timing lines anchor the spans,
// sequence counters and headers are dropped, markup tags stripped.
func parseTimedSubtitles(text string) []Span {
	var spans []Span
	var current *Span

	scanner := bufio.NewScanner(strings.NewReader(text))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if m := srtTimingPattern.FindStringSubmatch(line); m != nil {
			if current != nil && current.Text != "" {
				spans = append(spans, *current)
			}
			current = &Span{
				Start: clockToSeconds(m[1], m[2], m[3], m[4]),
				End:   clockToSeconds(m[5], m[6], m[7], m[8]),
			}
			continue
		}

		switch {
		case line == "", line == "WEBVTT":
			if current != nil && current.Text != "" {
				spans = append(spans, *current)
				current = nil
			}
		case counterPattern.MatchString(line):
			// srt sequence number
		case strings.HasPrefix(line, "NOTE"), strings.HasPrefix(line, "STYLE"):
		default:
			clean := strings.TrimSpace(markupPattern.ReplaceAllString(line, ""))
			if clean == "" || current == nil {
				continue
			}
			if current.Text != "" {
				current.Text += " "
			}
			current.Text += clean
		}
	}
	if current != nil && current.Text != "" {
		spans = append(spans, *current)
	}
	return dedupeAdjacent(spans)
}

func parseLRC(text string) []Span {
	var spans []Span
	scanner := bufio.NewScanner(strings.NewReader(text))
	for scanner.Scan() {
		m := lrcTimingPattern.FindStringSubmatch(strings.TrimSpace(scanner.Text()))
		if m == nil {
			continue
		}
		body := strings.TrimSpace(m[4])
		if body == "" {
			continue
		}
		start := float64(atoi(m[1]))*60 + float64(atoi(m[2]))
		if m[3] != "" {
			start += float64(atoi(m[3])) / 100
		}
		spans = append(spans, Span{Start: start, End: -1, Text: body})
	}
	// lrc carries only start times; borrow each end from the next start.
	for i := range spans {
		if i+1 < len(spans) {
			spans[i].End = spans[i+1].Start
		} else {
			spans[i].End = spans[i].Start + 5
		}
	}
	return spans
}

func parsePlainText(text string) []Span {
	var spans []Span
	scanner := bufio.NewScanner(strings.NewReader(text))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		spans = append(spans, Span{Start: -1, End: -1, Text: line})
	}
	return spans
}

// dedupeAdjacent drops consecutive spans with identical text, which srt
// auto-subs produce when a caption is re-displayed across timing blocks.
func dedupeAdjacent(spans []Span) []Span {
	out := spans[:0]
	for _, s := range spans {
		if len(out) > 0 && out[len(out)-1].Text == s.Text {
			out[len(out)-1].End = s.End
			continue
		}
		out = append(out, s)
	}
	return out
}

// JoinSpans renders the spans as a single text block for analysis prompts.
func JoinSpans(spans []Span) string {
	parts := make([]string, 0, len(spans))
	for _, s := range spans {
		parts = append(parts, s.Text)
	}
	return strings.Join(parts, "\n")
}

func clockToSeconds(h, m, s, frac string) float64 {
	seconds := float64(atoi(h))*3600 + float64(atoi(m))*60 + float64(atoi(s))
	if frac != "" {
		f, _ := strconv.ParseFloat("0."+frac, 64)
		seconds += f
	}
	return seconds
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
