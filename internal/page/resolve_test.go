package page

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skillet/internal/config"
	"skillet/internal/templates"
)

func newTestResolver(t *testing.T, opts *config.Site) (*Resolver, *test.Hook) {
	t.Helper()
	dir := t.TempDir()
	for name, body := range map[string]string{
		"default.html": "{{ .page.Title }}",
		"feed.xml":     "{{ .page.Title }}",
		"dup.html":     "",
		"dup.txt":      "",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0644))
	}
	if opts == nil {
		opts = config.Defaults()
	}
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	return NewResolver(opts, templates.NewEnvironment(dir), log), hook
}

func hasLog(hook *test.Hook, level logrus.Level) bool {
	for _, e := range hook.AllEntries() {
		if e.Level == level {
			return true
		}
	}
	return false
}

func TestResolveDefaults(t *testing.T) {
	r, hook := newTestResolver(t, nil)
	m, err := r.ResolveRaw(map[string]any{}, "content/My First Post.md")
	require.NoError(t, err)

	assert.Equal(t, "My First Post", m.Title)
	assert.Equal(t, "my-first-post", m.Slug)
	assert.Empty(t, m.Authors)
	assert.NotNil(t, m.Authors)
	assert.Equal(t, []string{}, m.Category)
	assert.Equal(t, []string{}, m.Tags)
	assert.True(t, m.Published)
	assert.True(t, m.MakeFile)
	assert.Nil(t, m.Datetime)
	assert.Equal(t, 1, m.Pagination.CurPage)
	assert.Equal(t, 1, m.Pagination.NumPages)
	assert.Equal(t, "default", m.Type)
	assert.Equal(t, "html", m.Ext)
	assert.Equal(t, "/my-first-post.html", m.URL)
	assert.True(t, hasLog(hook, logrus.InfoLevel), "synthesized title is logged")
}

func TestResolveTitleFallbacks(t *testing.T) {
	r, _ := newTestResolver(t, nil)

	m, err := r.ResolveRaw(nil, "content/archive.2011.md")
	require.NoError(t, err)
	assert.Equal(t, "archive.2011", m.Title)

	m, err = r.ResolveRaw(nil, "content/README")
	require.NoError(t, err)
	assert.Equal(t, "README", m.Title)
}

func TestResolveSlug(t *testing.T) {
	r, hook := newTestResolver(t, nil)

	m, err := r.ResolveRaw(map[string]any{"title": "Hello World!"}, "a.md")
	require.NoError(t, err)
	assert.Equal(t, "hello-world", m.Slug)

	hook.Reset()
	m, err = r.ResolveRaw(map[string]any{"title": "x", "slug": "Not_Canonical"}, "b.md")
	require.NoError(t, err)
	assert.Equal(t, "Not_Canonical", m.Slug, "explicit slug wins")
	assert.True(t, hasLog(hook, logrus.WarnLevel))
}

func TestResolveBadMetadata(t *testing.T) {
	r, _ := newTestResolver(t, nil)

	_, err := r.ResolveRaw(map[string]any{"title": "!!!"}, "bang.md")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBadMetadata))

	_, err = r.ResolveRaw(map[string]any{"title": "ok", "slug": ""}, "empty.md")
	assert.True(t, errors.Is(err, ErrBadMetadata))
}

func TestResolveAuthors(t *testing.T) {
	opts := config.Defaults()
	opts.Authors = config.StringList{"Site Owner <owner@example.com>"}
	r, hook := newTestResolver(t, opts)

	m, err := r.ResolveRaw(map[string]any{"title": "a"}, "a.md")
	require.NoError(t, err)
	require.Len(t, m.Authors, 1)
	assert.Equal(t, "owner@example.com", m.Author().Email)

	m, err = r.ResolveRaw(map[string]any{"title": "a", "author": "Ann"}, "a.md")
	require.NoError(t, err)
	assert.Equal(t, []Author{{Raw: "Ann", Name: "Ann"}}, m.Authors)

	for _, empty := range []any{[]any{}, ""} {
		m, err = r.ResolveRaw(map[string]any{"title": "a", "authors": empty}, "a.md")
		require.NoError(t, err)
		require.Len(t, m.Authors, 1, "%#v falls back to the site authors", empty)
		assert.Equal(t, "Site Owner", m.Author().Name)
	}

	hook.Reset()
	m, err = r.ResolveRaw(map[string]any{"title": "a", "authors": "Ann, Bob <bob@here.com>"}, "a.md")
	require.NoError(t, err)
	require.Len(t, m.Authors, 2)
	assert.Equal(t, "bob@here.com", m.Authors[1].Email)
	assert.True(t, hasLog(hook, logrus.WarnLevel), "csv authors are deprecated")

	m, err = r.ResolveRaw(map[string]any{"title": "a", "authors": []any{"Ann", "<c@d.e>"}}, "a.md")
	require.NoError(t, err)
	assert.Equal(t, "c@d.e", m.Authors[1].Email)

	hook.Reset()
	m, err = r.ResolveRaw(map[string]any{"title": "a", "authors": 42}, "a.md")
	require.NoError(t, err)
	assert.Empty(t, m.Authors)
	assert.True(t, hasLog(hook, logrus.ErrorLevel))
}

func TestResolveCategoryAndTags(t *testing.T) {
	r, hook := newTestResolver(t, nil)

	m, err := r.ResolveRaw(map[string]any{
		"title":    "Hello",
		"category": "blog/2011",
		"tags":     []any{"go", "web", "go"},
	}, "a.md")
	require.NoError(t, err)
	assert.Equal(t, []string{"blog", "2011"}, m.Category)
	assert.ElementsMatch(t, []string{"go", "web"}, m.Tags)
	assert.Equal(t, "/blog/2011/hello.html", m.URL)

	m, err = r.ResolveRaw(map[string]any{"title": "x", "category": []any{"a", "b"}, "tags": "one, two"}, "a.md")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, m.Category)
	assert.Equal(t, []string{"one", "two"}, m.Tags)

	hook.Reset()
	m, err = r.ResolveRaw(map[string]any{"title": "x", "category": 7, "tags": 8}, "a.md")
	require.NoError(t, err)
	assert.Empty(t, m.Category)
	assert.Empty(t, m.Tags)
	assert.True(t, hasLog(hook, logrus.ErrorLevel))
}

func TestResolveBooleansAndExtra(t *testing.T) {
	r, _ := newTestResolver(t, nil)
	m, err := r.ResolveRaw(map[string]any{
		"title":     "x",
		"published": false,
		"make_file": "nope",
		"color":     "blue",
	}, "a.md")
	require.NoError(t, err)
	assert.False(t, m.Published)
	assert.True(t, m.MakeFile, "wrong type falls back to the default")
	assert.Equal(t, map[string]any{"color": "blue"}, m.Extra)

	v, ok := m.Field("color")
	assert.True(t, ok)
	assert.Equal(t, "blue", v)
}

func TestResolveTemplateErrors(t *testing.T) {
	r, _ := newTestResolver(t, nil)

	_, err := r.ResolveRaw(map[string]any{"title": "x", "type": "missing"}, "a.md")
	assert.True(t, errors.Is(err, templates.ErrNotFound))

	_, err = r.ResolveRaw(map[string]any{"title": "x", "type": "dup"}, "a.md")
	assert.True(t, errors.Is(err, templates.ErrAmbiguous))

	m, err := r.ResolveRaw(map[string]any{"title": "Feed", "type": "feed"}, "a.md")
	require.NoError(t, err)
	assert.Equal(t, "xml", m.Ext)
	assert.Equal(t, "/feed.xml", m.URL)

	var buf bytes.Buffer
	require.NoError(t, m.Template.Execute(&buf, map[string]any{"page": m}))
	assert.Equal(t, "Feed", buf.String())
}

func TestResolveCustomURLAndDates(t *testing.T) {
	r, _ := newTestResolver(t, nil)
	m, err := r.ResolveRaw(map[string]any{
		"title": "Launch",
		"date":  "2011-10-12",
		"time":  "03:14:15",
		"url":   "/{date}/{slug}/",
	}, "a.md")
	require.NoError(t, err)
	assert.Equal(t, "/2011/10/12/launch/", m.URL)
	require.NotNil(t, m.Datetime)
	assert.Equal(t, 3, m.Datetime.Hour())
}

func TestResolvePaginationSpec(t *testing.T) {
	r, _ := newTestResolver(t, nil)
	m, err := r.ResolveRaw(map[string]any{
		"title": "Blog",
		"pagination": map[string]any{
			"list":         "site.pages",
			"limit":        10,
			"sort_key":     "datetime",
			"sort_reverse": true,
		},
	}, "a.md")
	require.NoError(t, err)
	assert.Equal(t, Pagination{
		List: "site.pages", Limit: 10, SortKey: "datetime", SortReverse: true,
		CurPage: 1, NumPages: 1,
	}, m.Pagination)
}
