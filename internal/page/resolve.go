// internal/page/resolve.go
package page

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"skillet/internal/config"
	"skillet/internal/templates"
	"skillet/internal/util"
)

// ErrBadMetadata marks a page whose metadata cannot be made valid. The page
// is dropped from the run.
var ErrBadMetadata = errors.New("bad metadata")

// BadMetadataError describes why a page was rejected.
type BadMetadataError struct {
	Path   string
	Reason string
}

func (e *BadMetadataError) Error() string {
	return fmt.Sprintf("bad metadata in %s: %s", e.Path, e.Reason)
}

func (e *BadMetadataError) Is(target error) bool { return target == ErrBadMetadata }

// TemplateFinder resolves a page type to its template.
type TemplateFinder interface {
	Lookup(kind string) (*templates.Template, error)
}

// knownKeys are front matter keys with a dedicated field; all others go to
// Meta.Extra.
var knownKeys = map[string]bool{
	"title": true, "slug": true, "author": true, "authors": true,
	"category": true, "tags": true, "published": true, "make_file": true,
	"date": true, "time": true, "datetime": true, "pagination": true,
	"type": true, "url": true, "preview": true,
}

// Resolver turns raw front matter into normalized page metadata.
type Resolver struct {
	opts      *config.Site
	templates TemplateFinder
	log       logrus.FieldLogger
	authors   []Author
}

// NewResolver returns a resolver bound to the site options and templates.
func NewResolver(opts *config.Site, finder TemplateFinder, log logrus.FieldLogger) *Resolver {
	return &Resolver{
		opts:      opts,
		templates: finder,
		log:       log,
		authors:   ParseAuthors(opts.Authors),
	}
}

// ResolveRaw creates and resolves a page from raw front matter.
func (r *Resolver) ResolveRaw(raw map[string]any, path string) (*Meta, error) {
	m := New(path, raw, "")
	if err := r.Resolve(m); err != nil {
		return nil, err
	}
	return m, nil
}

// Resolve fills the metadata fields of m from m.Raw. It returns a
// *BadMetadataError for pages that must be dropped, and errors wrapping
// templates.ErrNotFound or templates.ErrAmbiguous when the template for the
// page cannot be chosen. Everything else is logged and defaulted.
func (r *Resolver) Resolve(m *Meta) error {
	return r.resolve(m, nil)
}

func (r *Resolver) resolve(m *Meta, seed *Pagination) error {
	log := r.log.WithField("page", m.Path)
	raw := m.Raw
	if raw == nil {
		raw = map[string]any{}
		m.Raw = raw
	}

	m.Extra = make(map[string]any)
	for k, v := range raw {
		if !knownKeys[k] {
			m.Extra[k] = v
		}
	}

	r.resolveTitle(m, raw, log)
	if err := r.resolveSlug(m, raw, log); err != nil {
		return err
	}
	r.resolveAuthors(m, raw, log)
	r.resolveCategory(m, raw, log)
	m.Published = boolField(raw, "published", true, log)
	m.MakeFile = boolField(raw, "make_file", true, log)
	r.resolveDates(m, raw, log)
	r.resolveTags(m, raw, log)
	r.resolvePagination(m, raw, seed, log)
	if s, ok := raw["preview"].(string); ok {
		m.PreviewBody = s
	}
	if err := r.resolveTemplate(m, raw); err != nil {
		return err
	}
	r.resolveURL(m, raw)

	m.Subpages = nil
	log.WithField("url", m.URL).Debug("resolved metadata")
	return nil
}

func (r *Resolver) resolveTitle(m *Meta, raw map[string]any, log logrus.FieldLogger) {
	if v, ok := raw["title"]; ok && v != nil {
		if m.Title = strings.TrimSpace(fmt.Sprint(v)); m.Title != "" {
			return
		}
	}
	name := filepath.Base(m.Path)
	m.Title = strings.TrimSuffix(name, filepath.Ext(name))
	if m.Title == "" {
		m.Title = name
	}
	log.Infof("no title given, using the file name %q", m.Title)
}

func (r *Resolver) resolveSlug(m *Meta, raw map[string]any, log logrus.FieldLogger) error {
	v, ok := raw["slug"]
	if !ok || v == nil {
		m.Slug = util.Slugify(m.Title)
		if m.Slug == "" {
			return &BadMetadataError{Path: m.Path, Reason: fmt.Sprintf("no slug given and none can be derived from title %q", m.Title)}
		}
		log.Debug("no slug given, generated it from the title")
		return nil
	}

	m.Slug = fmt.Sprint(v)
	if m.Slug == "" {
		return &BadMetadataError{Path: m.Path, Reason: "slug is empty"}
	}
	if m.Slug != util.Slugify(m.Slug) {
		log.Warnf("slug %q should be lower case and match [a-z0-9-]*", m.Slug)
	}
	return nil
}

func (r *Resolver) resolveAuthors(m *Meta, raw map[string]any, log logrus.FieldLogger) {
	v, ok := raw["authors"]
	if !ok {
		v = raw["author"]
	}

	m.Authors = nil
	switch a := v.(type) {
	case nil:
	case string:
		if strings.TrimSpace(a) == "" {
			break
		}
		parts := strings.Split(a, ",")
		if len(parts) > 1 {
			log.Warn(`deprecated: use a YAML list for multiple authors, e.g. ["John Doe", "Jane Smith"]`)
		}
		m.Authors = ParseAuthors(parts)
	case []any:
		m.Authors = make([]Author, 0, len(a))
		for _, item := range a {
			m.Authors = append(m.Authors, ParseAuthor(fmt.Sprint(item)))
		}
	default:
		log.Errorf("authors has unsupported type %T, expected a string or a list", v)
		m.Authors = []Author{}
		return
	}
	// An empty author list falls back to the site authors.
	if len(m.Authors) == 0 {
		m.Authors = append([]Author{}, r.authors...)
	}
}

func (r *Resolver) resolveCategory(m *Meta, raw map[string]any, log logrus.FieldLogger) {
	m.Category = []string{}
	switch c := raw["category"].(type) {
	case nil:
	case string:
		for _, part := range strings.Split(c, "/") {
			if part = strings.TrimSpace(part); part != "" {
				m.Category = append(m.Category, part)
			}
		}
	case []any:
		for _, part := range c {
			m.Category = append(m.Category, fmt.Sprint(part))
		}
	default:
		log.Errorf("category has unsupported type %T, expected a string or a list", c)
	}
}

func (r *Resolver) resolveDates(m *Meta, raw map[string]any, log logrus.FieldLogger) {
	dt, errs := MergeDateTime(raw["date"], raw["time"], raw["datetime"])
	for _, err := range errs {
		log.WithError(err).Error("ignoring unparseable date/time value")
	}
	m.Date, m.Time, m.Datetime = dt.Date, dt.Time, dt.Datetime
}

func (r *Resolver) resolveTags(m *Meta, raw map[string]any, log logrus.FieldLogger) {
	var tags []string
	switch t := raw["tags"].(type) {
	case nil:
	case []any:
		for _, tag := range t {
			tags = append(tags, fmt.Sprint(tag))
		}
	case string:
		for _, tag := range strings.Split(t, ",") {
			tags = append(tags, strings.TrimSpace(tag))
		}
		if len(tags) > 1 {
			log.Warn("deprecated: use a YAML list for multiple tags, e.g. tags: [guide, howto]")
		}
	default:
		log.Errorf("tags has unsupported type %T, expected a string or a list", t)
	}

	m.Tags = make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		m.Tags = append(m.Tags, tag)
	}
	log.Debugf("tags: %v", m.Tags)
}

func (r *Resolver) resolvePagination(m *Meta, raw map[string]any, seed *Pagination, log logrus.FieldLogger) {
	p := Pagination{CurPage: 1, NumPages: 1}
	switch spec := raw["pagination"].(type) {
	case nil:
	case map[string]any:
		if s, ok := spec["list"].(string); ok {
			p.List = s
		}
		if n, ok := toInt(spec["limit"]); ok {
			p.Limit = n
		}
		if s, ok := spec["sort_key"].(string); ok {
			p.SortKey = s
		}
		if b, ok := spec["sort_reverse"].(bool); ok {
			p.SortReverse = b
		}
		if n, ok := toInt(spec["cur_page"]); ok && n >= 1 {
			p.CurPage = n
		}
		if n, ok := toInt(spec["num_pages"]); ok && n >= 1 {
			p.NumPages = n
		}
	default:
		log.Errorf("pagination has unsupported type %T, expected a mapping", spec)
	}

	if seed != nil {
		p.CurPage = seed.CurPage
		p.NumPages = seed.NumPages
		p.PageItems = seed.PageItems
	}
	m.Pagination = p
}

func (r *Resolver) resolveTemplate(m *Meta, raw map[string]any) error {
	m.Type = "default"
	if s, ok := raw["type"].(string); ok && s != "" {
		m.Type = s
	}
	tmpl, err := r.templates.Lookup(m.Type)
	if err != nil {
		return fmt.Errorf("%s: %w", m.Path, err)
	}
	m.Template = tmpl
	m.Ext = tmpl.Ext
	return nil
}

func (r *Resolver) resolveURL(m *Meta, raw map[string]any) {
	pattern := r.opts.URLPattern
	if s, ok := raw["url"].(string); ok && s != "" {
		pattern = s
	}
	m.URL = BuildURL(pattern, m, URLOptions{
		IncludeIndex: r.opts.URLIncludeIndex,
		Relative:     r.opts.RelativeURLs,
	})
}

func boolField(raw map[string]any, key string, def bool, log logrus.FieldLogger) bool {
	v, ok := raw[key]
	if !ok || v == nil {
		return def
	}
	b, ok := v.(bool)
	if !ok {
		log.Errorf("%s should be true or false, got %v", key, v)
		return def
	}
	return b
}
