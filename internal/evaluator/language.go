package evaluator

import "strings"

// detectLanguage tags text with the configured language whose function
// words occur most often. Ties and zero hits fall back to the first
// configured language, keeping detection deterministic.
func (e *Evaluator) detectLanguage(text string) string {
	words := strings.Fields(strings.ToLower(text))
	if len(words) == 0 {
		return e.fallback
	}

	counts := make(map[string]int, len(words))
	for _, w := range words {
		counts[strings.Trim(w, ".,;:!?()\"'")]++
	}

	best := e.fallback
	bestHits := 0
	for _, code := range e.order {
		hits := 0
		for _, marker := range e.languages[code].DetectionWords {
			hits += counts[marker]
		}
		if hits > bestHits {
			best = code
			bestHits = hits
		}
	}
	return best
}
