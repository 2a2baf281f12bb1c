// Package listing parses the HTML fragments the archive server returns
// for directory-like URLs into plain child names.
package listing

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Links extracts the child names referenced by anchor tags in a
// directory-listing page. Trailing path separators are trimmed and empty
// results are dropped. The function is total: an unparseable page yields
// no links, and callers that expected children must detect that through
// the surrounding HTTP failure handling.
func Links(page string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return nil
	}

	var links []string
	doc.Find("a").Each(func(_ int, sel *goquery.Selection) {
		name := strings.TrimSuffix(strings.TrimSpace(sel.Text()), "/")
		if name != "" {
			links = append(links, name)
		}
	})

	return links
}
