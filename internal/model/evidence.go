package model

// EvidenceType classifies where a piece of evidence came from
type EvidenceType string

const (
	EvidenceTimestamp      EvidenceType = "timestamp"       // Time-located transcript segment
	EvidenceFrameOCR       EvidenceType = "frame_ocr"       // Text recognized on a sampled video frame
	EvidenceTranscriptSpan EvidenceType = "transcript_span" // Transcript/subtitle/description span without timing
	EvidenceCoverOCR       EvidenceType = "cover_ocr"       // Text recognized on the cover image or title field
	EvidenceVisualPattern  EvidenceType = "visual_pattern"  // Non-textual visual signal (tags, layout, aspect)
)

// Valid reports whether t is one of the five closed enum values.
func (t EvidenceType) Valid() bool {
	switch t {
	case EvidenceTimestamp, EvidenceFrameOCR, EvidenceTranscriptSpan, EvidenceCoverOCR, EvidenceVisualPattern:
		return true
	}
	return false
}

// Evidence is a typed, attributable snippet backing an analytical claim.
// Immutable once created; report fields hold copies, never references.
type Evidence struct {
	Type       EvidenceType `json:"type"`
	Source     string       `json:"source"`     // File path or field the snippet came from
	Locator    string       `json:"locator"`    // e.g. "frame:3", "12.4s-15.1s", "line:7", "field:title"
	Snippet    string       `json:"snippet"`    // Truncated text, max ~200 chars
	Confidence float64      `json:"confidence"` // [0,1]
}

// Key is the identity used for aggregation dedupe: same type + locator
// means the same underlying observation.
func (e Evidence) Key() string {
	return string(e.Type) + "\x00" + e.Locator
}
