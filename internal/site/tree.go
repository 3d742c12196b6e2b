// internal/site/tree.go
package site

import (
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"skillet/internal/page"
)

// Tree is the category hierarchy of a site. A page's category path names
// the slugs of its ancestors, so pages double as category nodes.
type Tree struct {
	// Categories indexes pages by the first component of their category.
	Categories map[string][]*page.Meta
	// Roots are the placed pages with an empty category.
	Roots []*page.Meta
	// Orphans are pages whose category path has no matching parents. They
	// are still written, but appear in no page's Subpages.
	Orphans []*page.Meta
}

// BuildTree links pages to their parents through Subpages. pages is sorted
// in place by category depth so parents are placed before their children;
// pages of equal depth keep their order.
func BuildTree(pages []*page.Meta, log logrus.FieldLogger) *Tree {
	sort.SliceStable(pages, func(i, j int) bool {
		return len(pages[i].Category) < len(pages[j].Category)
	})

	t := &Tree{Categories: make(map[string][]*page.Meta)}
	for _, p := range pages {
		if len(p.Category) > 0 {
			top := p.Category[0]
			t.Categories[top] = append(t.Categories[top], p)
		}

		siblings := &t.Roots
		placed := true
		for _, cat := range p.Category {
			parent := findSlug(*siblings, cat)
			if parent == nil {
				placed = false
				break
			}
			siblings = &parent.Subpages
		}
		if !placed {
			log.WithField("page", p.Path).Errorf("page is an orphan, no parent page for category %q", strings.Join(p.Category, "/"))
			t.Orphans = append(t.Orphans, p)
			continue
		}
		*siblings = append(*siblings, p)
	}
	return t
}

func findSlug(pages []*page.Meta, slug string) *page.Meta {
	for _, p := range pages {
		if p.Slug == slug {
			return p
		}
	}
	return nil
}
