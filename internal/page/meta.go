// internal/page/meta.go
package page

import (
	"fmt"
	"time"

	"skillet/internal/render"
	"skillet/internal/templates"
)

// Meta is a single page on the site: its raw front matter and body, the
// normalized metadata resolved from them, and the rendered output.
//
// After Resolve the metadata fields hold these guarantees: Title is
// non-empty, Slug is set, Authors/Category/Tags are non-nil, Pagination has
// CurPage and NumPages of at least 1, URL and Ext are filled in and Template
// is bound.
type Meta struct {
	Title      string
	Slug       string
	Authors    []Author
	Category   []string
	Tags       []string
	Published  bool
	MakeFile   bool
	Date       *time.Time
	Time       *Clock
	Datetime   *time.Time
	Pagination Pagination
	URL        string
	Ext        string
	Type       string
	Content    string
	Preview    string

	// Subpages is filled by the category tree builder. The pages are not
	// owned by this one.
	Subpages []*Meta

	// Extra holds front matter keys with no dedicated field.
	Extra map[string]any

	Path        string
	Raw         map[string]any
	Body        string
	PreviewBody string
	Renderer    render.Renderer
	Template    *templates.Template
	Rendered    string
}

// Pagination is the per-page state of a paginated listing.
type Pagination struct {
	List        string
	Limit       int
	SortKey     string
	SortReverse bool
	CurPage     int
	NumPages    int

	// PageItems is nil until the page has been paginated.
	PageItems []*Meta
	PrevPage  *Meta
	NextPage  *Meta
}

// Clock is a time of day without a date.
type Clock struct {
	Hour, Minute, Second, Nanosecond int
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", c.Hour, c.Minute, c.Second)
}

// New returns an unresolved page for the front matter found in path.
func New(path string, raw map[string]any, body string) *Meta {
	if raw == nil {
		raw = map[string]any{}
	}
	return &Meta{Path: path, Raw: raw, Body: body, Extra: map[string]any{}}
}

// Author returns the first author, or the zero Author.
func (m *Meta) Author() Author {
	if len(m.Authors) == 0 {
		return Author{}
	}
	return m.Authors[0]
}

// HasTag reports whether tag is one of the page's tags.
func (m *Meta) HasTag(tag string) bool {
	for _, t := range m.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Field returns a metadata value by its front matter key. Unknown keys are
// looked up in Extra.
func (m *Meta) Field(key string) (any, bool) {
	switch key {
	case "title":
		return m.Title, true
	case "slug":
		return m.Slug, true
	case "authors":
		return m.Authors, true
	case "author":
		return m.Author(), true
	case "category":
		return m.Category, true
	case "tags":
		return m.Tags, true
	case "published":
		return m.Published, true
	case "make_file":
		return m.MakeFile, true
	case "date":
		return m.Date, m.Date != nil
	case "time":
		return m.Time, m.Time != nil
	case "datetime":
		return m.Datetime, m.Datetime != nil
	case "pagination":
		return &m.Pagination, true
	case "url":
		return m.URL, true
	case "ext":
		return m.Ext, true
	case "type":
		return m.Type, true
	case "content":
		return m.Content, true
	case "preview":
		return m.Preview, true
	case "subpages":
		return m.Subpages, true
	}
	v, ok := m.Extra[key]
	return v, ok
}

func (m *Meta) String() string {
	return fmt.Sprintf("page %q (%s)", m.Slug, m.Path)
}
