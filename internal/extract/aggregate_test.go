package extract

import (
	"strings"
	"testing"

	"github.com/Hchen1218/viral-content-breakdown/internal/model"
)

func TestPoolDedupeLaterWriterWins(t *testing.T) {
	pool := NewPool()
	pool.Add(model.Evidence{Type: model.EvidenceFrameOCR, Locator: "frame:0", Snippet: "rough", Confidence: 0.3})
	pool.Add(model.Evidence{Type: model.EvidenceFrameOCR, Locator: "frame:1", Snippet: "other", Confidence: 0.5})
	pool.Add(model.Evidence{Type: model.EvidenceFrameOCR, Locator: "frame:0", Snippet: "refined", Confidence: 0.8})

	if pool.Len() != 2 {
		t.Fatalf("len = %d, want dedupe on (type, locator)", pool.Len())
	}
	all := pool.All()
	if all[0].Snippet != "refined" || all[0].Confidence != 0.8 {
		t.Errorf("later writer should win: %+v", all[0])
	}
	if all[0].Locator != "frame:0" || all[1].Locator != "frame:1" {
		t.Errorf("first-insertion order lost: %+v", all)
	}
}

func TestPoolSameLocatorDifferentType(t *testing.T) {
	pool := NewPool()
	pool.Add(model.Evidence{Type: model.EvidenceFrameOCR, Locator: "cover", Snippet: "a"})
	pool.Add(model.Evidence{Type: model.EvidenceCoverOCR, Locator: "cover", Snippet: "b"})

	if pool.Len() != 2 {
		t.Errorf("distinct types at one locator must both survive, len = %d", pool.Len())
	}
	if got := pool.ByType(model.EvidenceCoverOCR); len(got) != 1 || got[0].Snippet != "b" {
		t.Errorf("ByType = %+v", got)
	}
}

func TestPoolContains(t *testing.T) {
	pool := NewPool()
	pool.Add(model.Evidence{Type: model.EvidenceTimestamp, Locator: "1.0s-2.0s", Snippet: "hook text"})

	if !pool.Contains(model.Evidence{Type: model.EvidenceTimestamp, Locator: "1.0s-2.0s", Snippet: "hook text"}) {
		t.Error("exact match must be contained")
	}
	if pool.Contains(model.Evidence{Type: model.EvidenceTimestamp, Locator: "1.0s-2.0s", Snippet: "fabricated"}) {
		t.Error("snippet mismatch must not be contained")
	}
	if pool.Contains(model.Evidence{Type: model.EvidenceTranscriptSpan, Locator: "1.0s-2.0s", Snippet: "hook text"}) {
		t.Error("type mismatch must not be contained")
	}
}

func TestSnippetClamp(t *testing.T) {
	long := strings.Repeat("长", 300)
	pool := NewPool()
	pool.Add(model.Evidence{Type: model.EvidenceCoverOCR, Locator: "cover", Snippet: long})

	got := pool.All()[0].Snippet
	if len([]rune(got)) != maxSnippetRunes {
		t.Errorf("snippet runes = %d, want %d", len([]rune(got)), maxSnippetRunes)
	}
	if !pool.Contains(model.Evidence{Type: model.EvidenceCoverOCR, Locator: "cover", Snippet: long}) {
		t.Error("Contains must clamp the candidate the same way")
	}
}
