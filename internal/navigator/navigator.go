// Package navigator turns raw fetched pages into structured, chunked,
// classified fragments plus discovered links. Stateless per call.
package navigator

import (
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/raphaelgruber/jobsurfer/internal/config"
	"github.com/raphaelgruber/jobsurfer/internal/models"
)

// Result is everything Analyze extracts from one page.
type Result struct {
	Chunks      []models.ContentChunk
	Links       []string // normalized discovered URLs, in document order
	Fingerprint string
}

// Navigator structures raw page content.
type Navigator struct {
	chunking  models.ChunkingConfig
	languages map[string]config.LanguageConfig
	log       *slog.Logger
}

// New creates a Navigator.
func New(chunking models.ChunkingConfig, languages map[string]config.LanguageConfig, log *slog.Logger) *Navigator {
	return &Navigator{
		chunking:  chunking,
		languages: languages,
		log:       log,
	}
}

// Analyze parses the page and returns classified chunks, discovered
// links and the structural fingerprint. Malformed content yields an
// empty result, never an error; the degraded visit shows up in the
// site's success rate instead.
func (n *Navigator) Analyze(rawContent, pageURL string) Result {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawContent))
	if err != nil {
		n.log.Warn("unparseable content", "url", pageURL, "error", err)
		return Result{}
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		n.log.Warn("bad page url", "url", pageURL, "error", err)
		return Result{}
	}

	doc.Find("script, style, noscript").Remove()

	blocks := extractBlocks(doc)
	links := n.extractLinks(doc, base)

	chunks := splitChunks(blocks, n.chunking)
	out := make([]models.ContentChunk, 0, len(chunks))
	for i, content := range chunks {
		out = append(out, models.ContentChunk{
			SourceURL: pageURL,
			Index:     i,
			Content:   content,
			Class:     n.classify(content),
		})
	}

	return Result{
		Chunks:      out,
		Links:       links,
		Fingerprint: Fingerprint(doc),
	}
}

// extractBlocks collects text blocks in document order from the
// elements that carry page content.
func extractBlocks(doc *goquery.Document) []string {
	var blocks []string
	doc.Find("h1, h2, h3, h4, h5, h6, p, li, th, td, dt, dd, caption, blockquote").Each(func(_ int, sel *goquery.Selection) {
		// Skip containers whose text only comes from nested block
		// elements, to avoid duplicating their content.
		if sel.ChildrenFiltered("p, li, table, ul, ol").Length() > 0 {
			return
		}
		text := normalizeSpace(sel.Text())
		if text != "" {
			blocks = append(blocks, text)
		}
	})

	if len(blocks) == 0 {
		if text := normalizeSpace(doc.Find("body").Text()); text != "" {
			blocks = append(blocks, text)
		}
	}
	return blocks
}

// extractLinks returns the page's hyperlinks, normalized and
// deduplicated, preserving document order.
func (n *Navigator) extractLinks(doc *goquery.Document, base *url.URL) []string {
	seen := make(map[string]struct{})
	var links []string

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") ||
			strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "mailto:") {
			return
		}

		normalized, err := models.NormalizeURL(href, base)
		if err != nil {
			return
		}
		if _, ok := seen[normalized]; ok {
			return
		}
		seen[normalized] = struct{}{}
		links = append(links, normalized)
	})

	return links
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
