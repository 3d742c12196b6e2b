package site

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"

	"skillet/internal/page"
)

func meta(slug string, category ...string) *page.Meta {
	return &page.Meta{Slug: slug, Path: slug + ".md", Category: category}
}

func TestBuildTree(t *testing.T) {
	log, hook := test.NewNullLogger()

	bar := meta("bar", "foo")
	baz := meta("baz", "foo", "bar")
	foo := meta("foo")
	about := meta("about")
	pages := []*page.Meta{baz, bar, about, foo}

	tree := BuildTree(pages, log)

	assert.Equal(t, []*page.Meta{about, foo, bar, baz}, pages, "sorted by depth, stable")
	assert.Equal(t, []*page.Meta{about, foo}, tree.Roots)
	assert.Equal(t, []*page.Meta{bar}, foo.Subpages)
	assert.Equal(t, []*page.Meta{baz}, bar.Subpages)
	assert.Equal(t, []*page.Meta{bar, baz}, tree.Categories["foo"])
	assert.Empty(t, tree.Orphans)
	assert.Empty(t, hook.AllEntries())
}

func TestBuildTreeOrphan(t *testing.T) {
	log, hook := test.NewNullLogger()

	foo := meta("foo")
	lost := meta("lost", "foo", "bar")
	stray := meta("stray", "nowhere")
	pages := []*page.Meta{foo, lost, stray}

	tree := BuildTree(pages, log)

	// Pages are placed shallowest first, so orphans come out in depth order.
	assert.Equal(t, []*page.Meta{stray, lost}, tree.Orphans)
	assert.Empty(t, foo.Subpages)
	assert.Equal(t, []*page.Meta{foo}, tree.Roots)
	assert.Len(t, pages, 3, "orphans stay in the page list")
	assert.Equal(t, []*page.Meta{lost}, tree.Categories["foo"])

	errs := 0
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.ErrorLevel {
			errs++
		}
	}
	assert.Equal(t, 2, errs)
}
