package extract

import "github.com/Hchen1218/viral-content-breakdown/internal/model"

// Pool collects evidence from every extractor, deduplicated by
// (type, locator). Later writers win: OCR and ASR refine earlier,
// lower-confidence observations of the same locator.
type Pool struct {
	order []string
	items map[string]model.Evidence
}

func NewPool() *Pool {
	return &Pool{items: make(map[string]model.Evidence)}
}

// Add inserts or replaces the evidence at its (type, locator) key.
// Insertion order of first appearance is preserved for deterministic output.
func (p *Pool) Add(e model.Evidence) {
	e.Snippet = clampSnippet(e.Snippet)
	key := e.Key()
	if _, exists := p.items[key]; !exists {
		p.order = append(p.order, key)
	}
	p.items[key] = e
}

// All returns the evidence in first-insertion order.
func (p *Pool) All() []model.Evidence {
	out := make([]model.Evidence, 0, len(p.order))
	for _, key := range p.order {
		out = append(out, p.items[key])
	}
	return out
}

// ByType filters the pool, preserving insertion order.
func (p *Pool) ByType(t model.EvidenceType) []model.Evidence {
	var out []model.Evidence
	for _, key := range p.order {
		if e := p.items[key]; e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// Contains reports whether e matches a pool entry on type, locator and
// snippet. This is the reference check the report validator runs against
// every cited evidence item.
func (p *Pool) Contains(e model.Evidence) bool {
	item, ok := p.items[e.Key()]
	return ok && item.Snippet == clampSnippet(e.Snippet)
}

func (p *Pool) Len() int { return len(p.order) }

const maxSnippetRunes = 200

func clampSnippet(s string) string {
	runes := []rune(s)
	if len(runes) <= maxSnippetRunes {
		return s
	}
	return string(runes[:maxSnippetRunes])
}
