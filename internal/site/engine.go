// internal/site/engine.go

// Package site runs a full build: it loads content, resolves and renders
// every page, and writes the output tree.
package site

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/natefinch/atomic"
	"github.com/sirupsen/logrus"

	"skillet/internal/config"
	"skillet/internal/hooks"
	"skillet/internal/metrics"
	"skillet/internal/page"
	"skillet/internal/render"
	"skillet/internal/templates"
	"skillet/internal/util"
)

// ErrNotASite is returned when neither the template nor the content
// directory exists.
var ErrNotASite = errors.New("this doesn't look like a skillet site")

// Options that are not handed to templates under `site`.
var internalOptions = map[string]bool{
	"site_title": true, "content_dir": true, "template_dir": true,
	"output_dir": true, "media_dir": true, "url_pattern": true,
}

// Result summarises a build.
type Result struct {
	// Pages holds every page of the run, including pages minted by
	// pagination and unpublished pages.
	Pages []*page.Meta
	// Written counts output files.
	Written int
	// Dropped counts pages left out because of bad content or metadata.
	Dropped int
	// Orphans are pages whose category has no parent page.
	Orphans []*page.Meta
}

// Engine builds one site. It is not safe for concurrent use; create a new
// Engine for every build.
type Engine struct {
	opts      *config.Site
	hooks     *hooks.Registry
	renderers *render.Registry
	resolver  *page.Resolver
	log       logrus.FieldLogger
	rec       *metrics.Recorder

	start   time.Time
	authors []page.Author
	pages   []*page.Meta
	tree    *Tree
	result  Result
}

// New returns an engine for the site described by opts. reg and rec may be
// nil.
func New(opts *config.Site, reg *hooks.Registry, renderers *render.Registry, log logrus.FieldLogger, rec *metrics.Recorder) *Engine {
	if renderers == nil {
		renderers = render.Defaults(render.Options{Sanitize: opts.Sanitize})
	}
	env := templates.NewEnvironment(opts.TemplateDir)
	return &Engine{
		opts:      opts,
		hooks:     reg,
		renderers: renderers,
		resolver:  page.NewResolver(opts, env, log),
		log:       log,
		rec:       rec,
		authors:   page.ParseAuthors(opts.Authors),
	}
}

// Run performs the build. Any returned error aborts the whole run; per-page
// problems are logged and counted in Result.Dropped instead.
func (e *Engine) Run() (res Result, err error) {
	e.start = time.Now()
	e.pages = nil
	e.result = Result{}
	defer func() { e.rec.Build(time.Since(e.start), err) }()

	if err := e.SanityCheck(); err != nil {
		return e.result, err
	}
	if err := e.runHook(hooks.SiteStart, &hooks.Event{}); err != nil {
		return e.result, err
	}

	steps := []struct {
		name string
		fn   func() error
	}{
		{"prepare_output", e.prepareOutput},
		{"load_pages", e.loadPages},
		{"resolve", e.resolveAll},
		{"tree", e.buildTree},
		{"render", e.renderAll},
		{"write", e.writeAll},
	}
	for _, step := range steps {
		done := e.rec.Stage(step.name)
		err := step.fn()
		done()
		if err != nil {
			return e.result, err
		}
	}

	if err := e.runHook(hooks.SiteDone, &hooks.Event{Pages: e.pages}); err != nil {
		return e.result, err
	}
	e.result.Pages = e.pages
	e.log.Infof("built %d pages, wrote %d files in %s", len(e.pages), e.result.Written, time.Since(e.start).Round(time.Millisecond))
	return e.result, nil
}

// SanityCheck fails with ErrNotASite unless the template or the content
// directory exists.
func (e *Engine) SanityCheck() error {
	if isDir(e.opts.TemplateDir) || isDir(e.opts.ContentDir) {
		return nil
	}
	return fmt.Errorf("%w: no %s or %s directory", ErrNotASite, e.opts.TemplateDir, e.opts.ContentDir)
}

func (e *Engine) runHook(point hooks.Point, ev *hooks.Event) error {
	_, err := e.hooks.Run(point, ev)
	return err
}

func (e *Engine) prepareOutput() error {
	out := e.opts.OutputDir
	if err := e.runHook(hooks.OutputPre, &hooks.Event{OutputDir: out}); err != nil {
		return err
	}
	if err := os.RemoveAll(out); err != nil {
		return fmt.Errorf("cleaning output directory %s: %w", out, err)
	}
	if err := os.MkdirAll(out, 0755); err != nil {
		return fmt.Errorf("creating output directory %s: %w", out, err)
	}
	if err := copyMedia(e.opts.MediaDir, out, e.log); err != nil {
		return fmt.Errorf("copying media: %w", err)
	}
	return e.runHook(hooks.OutputPost, &hooks.Event{OutputDir: out})
}

// copyMedia copies the media directory into the output root. A missing
// media directory is skipped.
func copyMedia(mediaDir, outputDir string, log logrus.FieldLogger) error {
	if !isDir(mediaDir) {
		log.Debugf("no media directory at %s", mediaDir)
		return nil
	}
	return filepath.WalkDir(mediaDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(mediaDir, path)
		if err != nil {
			return err
		}
		dest := filepath.Join(outputDir, rel)
		if d.IsDir() {
			return os.MkdirAll(dest, 0755)
		}
		src, err := os.Open(path)
		if err != nil {
			return err
		}
		defer src.Close()
		return atomic.WriteFile(dest, src)
	})
}

func (e *Engine) loadPages() error {
	gathered, err := e.hooks.Run(hooks.ContentGatherPre, &hooks.Event{})
	if err != nil {
		return err
	}
	e.pages = append(e.pages, gathered...)

	if isDir(e.opts.ContentDir) {
		err = filepath.WalkDir(e.opts.ContentDir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			hidden := strings.HasPrefix(d.Name(), ".") && path != e.opts.ContentDir
			if d.IsDir() {
				if hidden {
					return filepath.SkipDir
				}
				return nil
			}
			if hidden {
				return nil
			}
			p, err := e.loadFile(path)
			if err != nil {
				return err
			}
			if p != nil {
				e.pages = append(e.pages, p)
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("loading content from %s: %w", e.opts.ContentDir, err)
		}
	} else {
		e.log.Warnf("no content directory at %s", e.opts.ContentDir)
	}

	ev := &hooks.Event{Pages: e.pages}
	gathered, err = e.hooks.Run(hooks.ContentGatherPost, ev)
	if err != nil {
		return err
	}
	e.pages = append(ev.Pages, gathered...)

	for _, p := range e.pages {
		if p.Renderer == nil {
			p.Renderer = e.renderer(p.Path)
		}
	}
	e.log.Debugf("loaded %d pages", len(e.pages))
	return nil
}

// loadFile reads one content file. A nil page with a nil error means the
// file was dropped.
func (e *Engine) loadFile(path string) (*page.Meta, error) {
	log := e.log.WithField("page", path)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if !utf8.Valid(data) {
		log.Error("content file is not valid UTF-8, skipping")
		e.drop()
		return nil, nil
	}

	doc := page.Split(data)
	if doc.Squashed {
		log.Warn("more than two front matter delimiters, the extra segments are part of the body")
	}
	raw, err := page.ParseHeader(doc.Header)
	if err != nil {
		log.WithError(err).Error("could not parse front matter, skipping")
		e.drop()
		return nil, nil
	}
	if doc.Preview != "" {
		if _, ok := raw["preview"]; !ok {
			raw["preview"] = doc.Preview
		}
	}

	p := page.New(path, raw, doc.Body)
	p.Renderer = e.renderer(path)
	return p, nil
}

func (e *Engine) renderer(path string) render.Renderer {
	rd, ok := e.renderers.Lookup(path)
	if !ok {
		e.log.WithField("page", path).Warn("no renderer for this file type, passing content through")
	}
	return rd
}

func (e *Engine) drop() {
	e.result.Dropped++
	e.rec.Page(metrics.PageDropped, 1)
}

func (e *Engine) resolveAll() error {
	kept := e.pages[:0]
	for _, p := range e.pages {
		ok, err := e.resolvePage(p)
		if err != nil {
			return err
		}
		if ok {
			kept = append(kept, p)
		}
	}
	clear(e.pages[len(kept):])
	e.pages = kept
	return nil
}

// resolvePage resolves and renders the body of p. It reports false when p
// has to be dropped.
func (e *Engine) resolvePage(p *page.Meta) (bool, error) {
	log := e.log.WithField("page", p.Path)
	ev := &hooks.Event{Page: p}

	if err := e.runHook(hooks.MetaPre, ev); err != nil {
		return false, err
	}
	if err := e.resolver.Resolve(p); err != nil {
		if errors.Is(err, page.ErrBadMetadata) {
			log.WithError(err).Error("dropping page")
			e.drop()
			return false, nil
		}
		return false, err
	}
	if err := e.runHook(hooks.MetaPost, ev); err != nil {
		return false, err
	}

	if err := e.runHook(hooks.RenderPre, ev); err != nil {
		return false, err
	}
	content, err := p.Renderer.Render(p.Body)
	if err != nil {
		log.WithError(err).Error("could not render content, dropping page")
		e.drop()
		return false, nil
	}
	p.Content = content
	if p.PreviewBody != "" {
		if p.Preview, err = p.Renderer.Render(p.PreviewBody); err != nil {
			log.WithError(err).Warn("could not render preview")
			p.Preview = ""
		}
	}
	return true, e.runHook(hooks.RenderPost, ev)
}

func (e *Engine) buildTree() error {
	e.tree = BuildTree(e.pages, e.log)
	e.result.Orphans = e.tree.Orphans
	e.rec.Page(metrics.PageOrphaned, len(e.tree.Orphans))
	return nil
}

// tagIndex maps every tag to the pages carrying it.
func tagIndex(pages []*page.Meta) map[string][]*page.Meta {
	idx := make(map[string][]*page.Meta)
	for _, p := range pages {
		for _, tag := range p.Tags {
			idx[tag] = append(idx[tag], p)
		}
	}
	return idx
}

// siteVars builds the `site` template variable. It is rebuilt for every
// page so that hooks mutating it affect one page only.
func (e *Engine) siteVars(tags map[string][]*page.Meta) map[string]any {
	site := make(map[string]any, len(e.opts.Extra)+8)
	for k, v := range e.opts.Extra {
		if !internalOptions[k] {
			site[k] = v
		}
	}
	site["title"] = e.opts.Title
	site["datetime"] = e.start
	site["tags"] = tags
	site["pages"] = append([]*page.Meta(nil), e.pages...)
	site["categories"] = e.tree.Categories
	site["authors"] = e.authors
	if len(e.authors) > 0 {
		site["author"] = e.authors[0]
	}
	return site
}

func (e *Engine) renderAll() error {
	tags := tagIndex(e.pages)
	// Pages minted by pagination are appended and rendered in turn.
	for i := 0; i < len(e.pages); i++ {
		p := e.pages[i]
		if !p.Published {
			e.log.WithField("page", p.Path).Debug("not published, skipping")
			continue
		}
		site := e.siteVars(tags)
		extra, err := e.resolver.Paginate(p, site)
		if err != nil {
			return fmt.Errorf("paginating %s: %w", p.Path, err)
		}
		if len(extra) > 0 {
			e.pages = append(e.pages, extra...)
			e.rec.Page(metrics.PagePaginated, len(extra))
		}
		if err := e.renderPage(p, site); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) renderPage(p *page.Meta, site map[string]any) error {
	vars := map[string]any{
		"site":       site,
		"page":       p,
		"pagination": &p.Pagination,
		"base_href":  util.ComputeBaseHref(p.URL),
	}
	if err := e.runHook(hooks.TemplatePre, &hooks.Event{Page: p, TemplateVars: vars}); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := p.Template.Execute(&buf, vars); err != nil {
		return fmt.Errorf("rendering %s with template %s: %w", p.Path, p.Template.Path, err)
	}
	p.Rendered = buf.String()
	return e.runHook(hooks.TemplatePost, &hooks.Event{Page: p, TemplateVars: vars})
}

// OutputPath returns where p is written under outputDir. A URL ending in a
// slash is completed with index.<ext>.
func OutputPath(outputDir string, p *page.Meta) (string, error) {
	url := p.URL
	if url == "" || strings.HasSuffix(url, "/") {
		url += "index." + p.Ext
	}
	path := filepath.Join(outputDir, filepath.FromSlash(url))
	rel, err := filepath.Rel(outputDir, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("url %q points outside the output directory", p.URL)
	}
	return path, nil
}

func (e *Engine) writeAll() error {
	seen := make(map[string]string)
	for _, p := range e.pages {
		log := e.log.WithField("page", p.Path)
		if !p.Published || !p.MakeFile {
			e.rec.Page(metrics.PageSkipped, 1)
			continue
		}
		path, err := OutputPath(e.opts.OutputDir, p)
		if err != nil {
			log.WithError(err).Error("not writing page")
			e.drop()
			continue
		}
		if prev, ok := seen[path]; ok {
			log.Warnf("overwriting %s, already written for %s", path, prev)
		}
		seen[path] = p.Path

		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("creating directory for %s: %w", path, err)
		}
		log.Infof("writing to %s", path)
		if err := atomic.WriteFile(path, strings.NewReader(p.Rendered)); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		e.result.Written++
		e.rec.Page(metrics.PageWritten, 1)
	}
	return nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
