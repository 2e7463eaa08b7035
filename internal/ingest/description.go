package ingest

import (
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/net/html"
)

// descriptionValue extracts a labeled value from the HTML fragment embedded
// in a placemark description: it locates the td cell whose text equals label
// and returns the text of the next td cell. The fragment is tolerant-parsed,
// so malformed markup still yields a tree; a missing label is an error.
func descriptionValue(fragment, label string) (string, error) {
	root, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return "", eris.Wrapf(err, "parse description markup for %s", label)
	}

	cell := findLabelCell(root, label)
	if cell == nil {
		return "", eris.Errorf("description markup has no %s cell", label)
	}

	for sib := cell.NextSibling; sib != nil; sib = sib.NextSibling {
		if sib.Type == html.ElementNode && sib.Data == "td" {
			return strings.TrimSpace(nodeText(sib)), nil
		}
	}
	return "", eris.Errorf("description markup has no value cell after %s", label)
}

// findLabelCell walks the tree for a td whose collected text equals label.
func findLabelCell(n *html.Node, label string) *html.Node {
	if n.Type == html.ElementNode && n.Data == "td" && strings.TrimSpace(nodeText(n)) == label {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findLabelCell(c, label); found != nil {
			return found
		}
	}
	return nil
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
