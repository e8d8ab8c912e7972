package navigator

import (
	"strings"
	"unicode"

	"github.com/raphaelgruber/jobsurfer/internal/models"
)

// splitChunks packs text blocks into chunks bounded by the configured
// max size, splitting only at block, sentence or word boundaries —
// never mid-token. Content below the threshold stays a single chunk.
func splitChunks(blocks []string, cfg models.ChunkingConfig) []string {
	if len(blocks) == 0 {
		return nil
	}

	total := 0
	for _, b := range blocks {
		total += len(b) + 2
	}
	if total <= cfg.Threshold {
		return []string{strings.Join(blocks, "\n\n")}
	}

	var chunks []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, strings.TrimSpace(current.String()))
			current.Reset()
		}
	}

	for _, block := range blocks {
		// Oversized block: flush and split it at sentence boundaries.
		if len(block) > cfg.MaxSize {
			flush()
			chunks = append(chunks, splitOversized(block, cfg.MaxSize)...)
			continue
		}

		if current.Len()+len(block)+2 > cfg.MaxSize {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(block)
	}
	flush()

	return mergeSmall(chunks, cfg.MinSize, cfg.MaxSize)
}

// splitOversized breaks a single block into pieces of at most maxSize,
// preferring sentence boundaries and falling back to word boundaries.
func splitOversized(block string, maxSize int) []string {
	sentences := splitSentences(block)

	var chunks []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, strings.TrimSpace(current.String()))
			current.Reset()
		}
	}

	for _, sentence := range sentences {
		if len(sentence) > maxSize {
			flush()
			chunks = append(chunks, splitWords(sentence, maxSize)...)
			continue
		}
		if current.Len()+len(sentence)+1 > maxSize {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(sentence)
	}
	flush()

	return chunks
}

// splitWords splits at spaces only, for pathological unbroken text.
func splitWords(text string, maxSize int) []string {
	words := strings.Fields(text)

	var chunks []string
	var current strings.Builder

	for _, word := range words {
		if current.Len()+len(word)+1 > maxSize && current.Len() > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(word)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}

	return chunks
}

// splitSentences splits text into sentences.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		current.WriteRune(r)

		if r == '.' || r == '!' || r == '?' {
			// Look ahead for space or end
			if i+1 >= len(runes) || unicode.IsSpace(runes[i+1]) {
				// Not an abbreviation (simple heuristic)
				if i > 1 && unicode.IsUpper(runes[i-1]) {
					continue // Likely abbreviation like "Dr."
				}
				sentences = append(sentences, strings.TrimSpace(current.String()))
				current.Reset()
			}
		}
	}

	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}

	return sentences
}

// mergeSmall folds chunks below minSize into their predecessor when
// the merge stays within maxSize.
func mergeSmall(chunks []string, minSize, maxSize int) []string {
	if minSize <= 0 || len(chunks) <= 1 {
		return chunks
	}

	out := chunks[:1]
	for _, c := range chunks[1:] {
		prev := out[len(out)-1]
		if len(c) < minSize && len(prev)+len(c)+2 <= maxSize {
			out[len(out)-1] = prev + "\n\n" + c
			continue
		}
		out = append(out, c)
	}
	return out
}
