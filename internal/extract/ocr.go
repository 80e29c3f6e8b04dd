package extract

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"unicode"
)

// ocrLangs covers the platforms this tool targets: simplified Chinese
// first, latin text second.
const ocrLangs = "chi_sim+eng"

// ocrRunner executes a recognition command and returns its stdout.
// Injectable so tests never need a tesseract install.
type ocrRunner func(ctx context.Context, argv []string) (string, error)

func runOCRCommand(ctx context.Context, argv []string) (string, error) {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%s: %w: %s", argv[0], err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// OCR recognizes text on still images through tesseract.
type OCR struct {
	binPath string
	run     ocrRunner
}

func NewOCR(binPath string) *OCR {
	return &OCR{binPath: binPath, run: runOCRCommand}
}

// Recognize runs tesseract over one image. The returned confidence is a
// text-quality proxy, not tesseract's own score: the share of letter,
// digit and CJK runes among all non-space runes, clamped to [0.25, 0.95].
// Garbage recognition (box noise, punctuation soup) scores low.
func (o *OCR) Recognize(ctx context.Context, imagePath string) (string, float64, error) {
	stdout, err := o.run(ctx, []string{o.binPath, imagePath, "stdout", "-l", ocrLangs, "--psm", "6"})
	if err != nil {
		return "", 0, err
	}

	text := normalizeOCRText(stdout)
	if text == "" {
		return "", 0, nil
	}
	return text, textConfidence(text), nil
}

// normalizeOCRText collapses tesseract output into clean lines: interior
// runs of whitespace become single spaces, empty lines are dropped.
func normalizeOCRText(raw string) string {
	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		lines = append(lines, strings.Join(fields, " "))
	}
	return strings.Join(lines, "\n")
}

func textConfidence(text string) float64 {
	var content, total int
	for _, r := range text {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			content++
		}
	}
	if total == 0 {
		return 0
	}
	ratio := float64(content) / float64(total)
	if ratio < 0.25 {
		return 0.25
	}
	if ratio > 0.95 {
		return 0.95
	}
	return ratio
}
