package navigator

import (
	"strings"

	"github.com/raphaelgruber/jobsurfer/internal/models"
)

// Navigation-menu vocabulary, deliberately cross-language: these words
// appear in chrome (menus, footers) rather than content.
var navigationWords = []string{
	"home", "contact", "about", "login", "privacy", "imprint", "impressum",
	"datenschutz", "kontakt", "startseite", "sitemap", "newsletter", "cookie",
}

// classify tags a chunk with the cheap heuristic class that decides
// whether it reaches the Evaluator. Listing beats navigation: a menu
// that mentions vacancies is still the way to the listings.
func (n *Navigator) classify(content string) models.ChunkClass {
	lower := strings.ToLower(content)

	relevanceHits := 0
	for _, lang := range n.languages {
		for _, term := range lang.RelevanceTerms {
			if strings.Contains(lower, strings.ToLower(term)) {
				relevanceHits++
			}
		}
	}
	if relevanceHits >= 2 {
		return models.ChunkListing
	}

	navHits := 0
	for _, w := range navigationWords {
		if strings.Contains(lower, w) {
			navHits++
		}
	}
	// Menus read as many short fragments: penalize long average lines.
	if navHits >= 2 && averageLineLength(content) < 60 {
		return models.ChunkNavigation
	}

	if relevanceHits == 1 {
		return models.ChunkListing
	}
	return models.ChunkUnrelated
}

func averageLineLength(content string) int {
	lines := strings.Split(content, "\n")
	total, count := 0, 0
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		total += len(line)
		count++
	}
	if count == 0 {
		return 0
	}
	return total / count
}
