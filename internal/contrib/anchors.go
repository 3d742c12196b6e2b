// internal/contrib/anchors.go
package contrib

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"skillet/internal/hooks"
	"skillet/internal/page"
	"skillet/internal/util"
)

var documentRE = regexp.MustCompile(`(?i)<html[\s>]`)

// HeadingAnchors adds a permalink anchor to every heading up to MaxHeading
// in a page's templated output, and sets the heading's id to match. It runs
// at page.template.post and leaves non-HTML pages alone.
type HeadingAnchors struct {
	MaxHeading int
	log        logrus.FieldLogger
}

func NewHeadingAnchors(maxHeading int, log logrus.FieldLogger) *HeadingAnchors {
	log.Info("loaded hook heading_anchors")
	return &HeadingAnchors{MaxHeading: maxHeading, log: log}
}

// Hook is the hooks.Func for page.template.post.
func (h *HeadingAnchors) Hook(ev *hooks.Event) ([]*page.Meta, error) {
	p := ev.Page
	if p == nil || !isHTMLExt(p.Ext) {
		return nil, nil
	}
	h.log.WithField("page", p.Path).Debug("adding heading anchors")
	out, err := h.Apply(p.Rendered)
	if err != nil {
		return nil, fmt.Errorf("heading anchors for %s: %w", p.Path, err)
	}
	p.Rendered = out
	return nil, nil
}

// Apply returns markup with anchors added. Whole documents come back as
// whole documents and fragments as fragments.
func (h *HeadingAnchors) Apply(markup string) (string, error) {
	var roots []*html.Node
	if documentRE.MatchString(markup) {
		doc, err := html.Parse(strings.NewReader(markup))
		if err != nil {
			return "", err
		}
		roots = []*html.Node{doc}
	} else {
		body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
		nodes, err := html.ParseFragment(strings.NewReader(markup), body)
		if err != nil {
			return "", err
		}
		roots = nodes
	}

	for _, n := range roots {
		h.walk(n)
	}

	var buf bytes.Buffer
	for _, n := range roots {
		if err := html.Render(&buf, n); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}

func (h *HeadingAnchors) walk(n *html.Node) {
	if n.Type == html.ElementNode && h.isHeading(n) {
		h.anchor(n)
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		h.walk(c)
	}
}

func (h *HeadingAnchors) isHeading(n *html.Node) bool {
	if len(n.Data) != 2 || n.Data[0] != 'h' {
		return false
	}
	lvl := int(n.Data[1] - '0')
	return lvl >= 1 && lvl <= h.MaxHeading
}

// anchor uses the heading's leading text, skipping headings that start with
// markup.
func (h *HeadingAnchors) anchor(n *html.Node) {
	first := n.FirstChild
	if first == nil || first.Type != html.TextNode {
		return
	}
	text := strings.TrimSpace(first.Data)
	slug := util.Slugify(text)
	if slug == "" {
		return
	}
	name := "heading-" + slug

	setAttr(n, "id", name)
	n.AppendChild(&html.Node{
		Type:     html.ElementNode,
		Data:     "a",
		DataAtom: atom.A,
		Attr: []html.Attribute{
			{Key: "class", Val: "heading_anchor"},
			{Key: "href", Val: "#" + name},
			{Key: "title", Val: "Permalink to this section."},
		},
	})
	n.LastChild.AppendChild(&html.Node{Type: html.TextNode, Data: "¶"})
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func isHTMLExt(ext string) bool {
	switch strings.ToLower(ext) {
	case "html", "htm", "xhtml":
		return true
	}
	return false
}
