package scraper

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/t77yq/scrape-scheduler/internal/model"
)

// contentSelectors lists semantic content regions in priority order.
// The first matching region wins; otherwise the full document text is
// used.
var contentSelectors = []string{
	"main", "article", ".content", ".main-content",
	"#content", "#main", ".post-content", ".entry-content",
}

// maxRefs caps how many outbound links and image references are
// collected into the metadata.
const maxRefs = 10

// extractContent returns the text of the highest-priority content
// region, stripped of script and style elements.
func extractContent(doc *goquery.Document) string {
	doc.Find("script, style").Remove()

	for _, selector := range contentSelectors {
		if region := doc.Find(selector).First(); region.Length() > 0 {
			return normalizeSpace(region.Text())
		}
	}

	if body := doc.Find("body").First(); body.Length() > 0 {
		return normalizeSpace(body.Text())
	}
	return normalizeSpace(doc.Text())
}

// extractMetadata collects meta tag pairs plus the first few outbound
// links and embedded image references.
func extractMetadata(doc *goquery.Document) model.Metadata {
	md := model.Metadata{}

	doc.Find("meta").Each(func(_ int, sel *goquery.Selection) {
		name, ok := sel.Attr("name")
		if !ok {
			name, ok = sel.Attr("property")
		}
		content, hasContent := sel.Attr("content")
		if ok && name != "" && hasContent && content != "" {
			md.Set(name, content)
		}
	})

	var links []string
	doc.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if href, ok := sel.Attr("href"); ok && href != "" {
			links = append(links, href)
		}
		return len(links) < maxRefs
	})
	md.Set("links", links)

	var images []string
	doc.Find("img[src]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if src, ok := sel.Attr("src"); ok && src != "" {
			images = append(images, src)
		}
		return len(images) < maxRefs
	})
	md.Set("images", images)

	return md
}

func extractTitle(doc *goquery.Document) string {
	return strings.TrimSpace(doc.Find("title").First().Text())
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
