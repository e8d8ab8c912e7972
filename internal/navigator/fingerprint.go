package navigator

import (
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// fingerprintDepth bounds how deep the tag skeleton is sampled. The
// top levels carry the template shape; leaf content churns per page.
const fingerprintDepth = 4

// Fingerprint derives a reproducible structural signature from the
// page's tag skeleton. Pages rendered from the same site template hash
// to the same value even when their text differs.
func Fingerprint(doc *goquery.Document) string {
	var sb strings.Builder

	body := doc.Find("body").First()
	if body.Length() == 0 {
		return ""
	}
	writeSkeleton(body, 0, &sb)

	h := fnv.New64a()
	h.Write([]byte(sb.String()))
	return fmt.Sprintf("%016x", h.Sum64())
}

func writeSkeleton(sel *goquery.Selection, depth int, sb *strings.Builder) {
	if depth > fingerprintDepth {
		return
	}

	sel.Children().Each(func(_ int, child *goquery.Selection) {
		name := goquery.NodeName(child)
		// Inline formatting tags say nothing about layout.
		switch name {
		case "b", "i", "em", "strong", "span", "br", "small", "u":
			return
		}
		sb.WriteString(strings.Repeat(">", depth))
		sb.WriteString(name)
		if class, ok := child.Attr("class"); ok {
			// First class name only: utility class lists churn.
			if first := strings.Fields(class); len(first) > 0 {
				sb.WriteString("." + first[0])
			}
		}
		sb.WriteString(";")
		writeSkeleton(child, depth+1, sb)
	})
}
