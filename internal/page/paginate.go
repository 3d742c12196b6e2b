// internal/page/paginate.go
package page

import (
	"fmt"
	"maps"
	"sort"
	"strings"
	"time"

	"skillet/internal/util"
)

// Paginate splits the collection named by p.Pagination.List into chunks of
// Limit pages. p keeps the first chunk; a new page is resolved for each
// further chunk and returned, in order. All pages of the listing are linked
// through PrevPage and NextPage.
//
// site is the "site" template variable that "site.*" list paths resolve
// against. Pages without a list, or already paginated, yield nothing. Bad
// list paths are logged and the page is left alone; the returned error is
// only set when a new page cannot be resolved.
func (r *Resolver) Paginate(p *Meta, site map[string]any) ([]*Meta, error) {
	pg := &p.Pagination
	if pg.List == "" || pg.PageItems != nil {
		return nil, nil
	}
	log := r.log.WithField("page", p.Path)

	source, err := lookupList(p, site, pg.List)
	if err != nil {
		log.WithError(err).Error("not paginating")
		return nil, nil
	}

	items := append([]*Meta(nil), source...)
	if pg.SortKey != "" {
		sortPages(items, pg.SortKey, pg.SortReverse)
	}
	if pg.Limit <= 0 {
		log.Warnf("pagination limit %d is not positive, putting every item on one page", pg.Limit)
	}

	chunks := util.Chunk(items, pg.Limit)
	if len(chunks) == 0 {
		pg.PageItems = []*Meta{}
		pg.CurPage, pg.NumPages = 1, 1
		return nil, nil
	}

	extra := make([]*Meta, 0, len(chunks)-1)
	for idx, chunk := range chunks[1:] {
		next, err := r.ResolveChunk(p, Pagination{
			CurPage:   idx + 2,
			NumPages:  len(chunks),
			PageItems: chunk,
		})
		if err != nil {
			return nil, err
		}
		extra = append(extra, next)
	}

	pg.PageItems = chunks[0]
	pg.CurPage, pg.NumPages = 1, len(chunks)

	seq := append([]*Meta{p}, extra...)
	for i, page := range seq {
		page.Pagination.PrevPage, page.Pagination.NextPage = nil, nil
		if i > 0 {
			page.Pagination.PrevPage = seq[i-1]
		}
		if i < len(seq)-1 {
			page.Pagination.NextPage = seq[i+1]
		}
	}
	log.Debugf("paginated %d items into %d pages", len(items), len(chunks))
	return extra, nil
}

// ResolveChunk mints the page for a later chunk of orig's listing. It is
// resolved from orig's front matter and shares its body, renderer and
// rendered content.
func (r *Resolver) ResolveChunk(orig *Meta, state Pagination) (*Meta, error) {
	m := New(orig.Path, maps.Clone(orig.Raw), orig.Body)
	if err := r.resolve(m, &state); err != nil {
		return nil, err
	}
	m.Renderer = orig.Renderer
	m.Content = orig.Content
	m.PreviewBody = orig.PreviewBody
	m.Preview = orig.Preview
	return m, nil
}

// lookupList resolves a dotted path such as "site.pages" or
// "page.subpages" to a list of pages.
func lookupList(p *Meta, site map[string]any, path string) ([]*Meta, error) {
	segments := strings.Split(path, ".")
	var cur any
	switch segments[0] {
	case "page":
		cur = p
	case "site":
		cur = site
	default:
		return nil, fmt.Errorf("unknown pagination source %q in %q, expected page or site", segments[0], path)
	}

	for _, seg := range segments[1:] {
		var ok bool
		switch v := cur.(type) {
		case *Meta:
			cur, ok = v.Field(seg)
		case map[string]any:
			cur, ok = v[seg]
		case map[string][]*Meta:
			cur, ok = v[seg]
		}
		if !ok {
			return nil, fmt.Errorf("pagination source %q has no %q", path, seg)
		}
	}

	switch v := cur.(type) {
	case []*Meta:
		return v, nil
	case []any:
		pages := make([]*Meta, 0, len(v))
		for _, item := range v {
			m, ok := item.(*Meta)
			if !ok {
				return nil, fmt.Errorf("pagination source %q holds %T, expected pages", path, item)
			}
			pages = append(pages, m)
		}
		return pages, nil
	}
	return nil, fmt.Errorf("pagination source %q is a %T, expected a list of pages", path, cur)
}

// sortPages orders pages by a metadata key. The sort is stable, so pages
// with equal keys keep their relative order.
func sortPages(pages []*Meta, key string, reverse bool) {
	sort.SliceStable(pages, func(i, j int) bool {
		a, _ := pages[i].Field(key)
		b, _ := pages[j].Field(key)
		c := compareValues(a, b)
		if reverse {
			return c > 0
		}
		return c < 0
	})
}

// compareValues orders two metadata values. Missing values sort first;
// values of different kinds compare by their printed form.
func compareValues(a, b any) int {
	a, b = deref(a), deref(b)
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}

	switch x := a.(type) {
	case string:
		if y, ok := b.(string); ok {
			return strings.Compare(x, y)
		}
	case bool:
		if y, ok := b.(bool); ok {
			switch {
			case x == y:
				return 0
			case !x:
				return -1
			}
			return 1
		}
	case time.Time:
		if y, ok := b.(time.Time); ok {
			return x.Compare(y)
		}
	case Clock:
		if y, ok := b.(Clock); ok {
			return strings.Compare(fmt.Sprintf("%s.%09d", x, x.Nanosecond), fmt.Sprintf("%s.%09d", y, y.Nanosecond))
		}
	}
	if x, ok := toFloat(a); ok {
		if y, ok := toFloat(b); ok {
			switch {
			case x < y:
				return -1
			case x > y:
				return 1
			}
			return 0
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func deref(v any) any {
	switch p := v.(type) {
	case *time.Time:
		if p == nil {
			return nil
		}
		return *p
	case *Clock:
		if p == nil {
			return nil
		}
		return *p
	}
	return v
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
