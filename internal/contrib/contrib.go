// internal/contrib/contrib.go

// Package contrib holds ready-made hooks that sites enable by name in their
// config file.
package contrib

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"sort"

	"github.com/sirupsen/logrus"

	"skillet/internal/config"
	"skillet/internal/hooks"
	"skillet/internal/page"
	"skillet/internal/story"
)

// ErrUnknownHook is returned for hook names with no built-in.
var ErrUnknownHook = errors.New("unknown hook")

type installer func(reg *hooks.Registry, opts *config.Site, log logrus.FieldLogger) error

var builtins = map[string]installer{
	"heading_anchors": func(reg *hooks.Registry, _ *config.Site, log logrus.FieldLogger) error {
		return reg.Register(hooks.TemplatePost, "heading_anchors", NewHeadingAnchors(3, log).Hook)
	},
	"counter": func(reg *hooks.Registry, _ *config.Site, log logrus.FieldLogger) error {
		return reg.Register(hooks.TemplatePre, "counter", (&Counter{log: log}).Hook)
	},
	"trace": func(reg *hooks.Registry, _ *config.Site, log logrus.FieldLogger) error {
		t := &Trace{log: log}
		for _, pt := range hooks.Points {
			if err := reg.Register(pt, "trace", t.Hook); err != nil {
				return err
			}
		}
		return nil
	},
	"story": func(reg *hooks.Registry, opts *config.Site, log logrus.FieldLogger) error {
		return reg.Register(hooks.ContentGatherPre, "story", StoryPages(opts.StoryFile, opts.ContentDir, log))
	},
}

// Names lists the built-in hooks.
func Names() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Install registers the named built-in hooks, in order.
func Install(reg *hooks.Registry, names []string, opts *config.Site, log logrus.FieldLogger) error {
	for _, name := range names {
		install, ok := builtins[name]
		if !ok {
			return fmt.Errorf("%w %q, expected one of %v", ErrUnknownHook, name, Names())
		}
		if err := install(reg, opts, log); err != nil {
			return fmt.Errorf("installing hook %q: %w", name, err)
		}
		log.Debugf("installed hook %s", name)
	}
	return nil
}

// Counter sets the template variable "hooked" to the number of pages it
// has seen before the current one.
type Counter struct {
	n   int
	log logrus.FieldLogger
}

func (c *Counter) Hook(ev *hooks.Event) ([]*page.Meta, error) {
	if c.log != nil && ev.Page != nil {
		c.log.Infof("counter hook got page %s", ev.Page.Slug)
	}
	ev.TemplateVars["hooked"] = c.n
	c.n++
	return nil, nil
}

// Count is the number of calls so far.
func (c *Counter) Count() int { return c.n }

// Trace logs every hook point it is called at.
type Trace struct {
	n   int
	log logrus.FieldLogger
}

func (t *Trace) Hook(ev *hooks.Event) ([]*page.Meta, error) {
	entry := t.log.WithField("call", t.n)
	if ev.Page != nil {
		entry = entry.WithField("page", ev.Page.Path)
	}
	entry.Infof("trace: %s", ev.Point)
	t.n++
	return nil, nil
}

// StoryPages returns a gather hook adding the pages compiled from the story
// at biffPath. Pages are placed as if they lived under contentDir. A
// missing story file adds nothing.
func StoryPages(biffPath, contentDir string, log logrus.FieldLogger) hooks.Func {
	return func(*hooks.Event) ([]*page.Meta, error) {
		if biffPath == "" || !fileExists(biffPath) {
			log.Debugf("no story at %q", biffPath)
			return nil, nil
		}
		compiled, err := story.Load(biffPath)
		if err != nil {
			return nil, err
		}
		pages := make([]*page.Meta, 0, len(compiled))
		for _, sp := range compiled {
			pages = append(pages, page.New(filepath.Join(contentDir, filepath.FromSlash(sp.Path)), maps.Clone(sp.Meta), sp.Body))
		}
		log.Infof("compiled %d pages from story %s", len(pages), biffPath)
		return pages, nil
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
