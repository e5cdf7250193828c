package fetch

import (
	"errors"
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// ErrNoPreview is returned when a page names no preview image.
var ErrNoPreview = errors.New("no preview image")

// Candidate priorities, lowest wins.
var metaPriority = map[string]int{
	"og:image":            0,
	"og:image:url":        0,
	"og:image:secure_url": 0,
	"twitter:image":       1,
	"twitter:image:src":   1,
}

var linkPriority = map[string]int{
	"apple-touch-icon":             2,
	"apple-touch-icon-precomposed": 2,
	"icon":                         3,
	"shortcut icon":                3,
}

// DiscoverImage parses an HTML page and returns the absolute URL of its best
// preview image: Open Graph, then Twitter card, then touch icon, then icon.
func DiscoverImage(r io.Reader, base *url.URL) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", err
	}

	best := ""
	bestPriority := len(metaPriority) + len(linkPriority)

	consider := func(priority int, ref string) {
		ref = strings.TrimSpace(ref)
		if ref == "" || priority >= bestPriority {
			return
		}
		best = ref
		bestPriority = priority
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch strings.ToLower(n.Data) {
			case "meta":
				key := getAttr(n, "property")
				if key == "" {
					key = getAttr(n, "name")
				}
				if p, ok := metaPriority[strings.ToLower(key)]; ok {
					consider(p, getAttr(n, "content"))
				}
				return
			case "link":
				if p, ok := linkPriority[strings.ToLower(strings.TrimSpace(getAttr(n, "rel")))]; ok {
					consider(p, getAttr(n, "href"))
				}
				return
			case "body":
				// Preview metadata lives in the head.
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if best == "" {
		return "", ErrNoPreview
	}

	ref, err := url.Parse(best)
	if err != nil {
		return "", err
	}
	if base != nil {
		ref = base.ResolveReference(ref)
	}
	return ref.String(), nil
}

// getAttr returns the value of an attribute, case-insensitive.
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if strings.EqualFold(attr.Key, key) {
			return attr.Val
		}
	}
	return ""
}
