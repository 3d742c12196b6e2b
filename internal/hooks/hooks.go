// internal/hooks/hooks.go

// Package hooks dispatches named callbacks at fixed points of a site build.
package hooks

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"skillet/internal/page"
)

// Point names a place in the build where callbacks run.
type Point string

const (
	SiteStart         Point = "site.start"
	ContentGatherPre  Point = "site.content.gather.pre"
	ContentGatherPost Point = "site.content.gather.post"
	MetaPre           Point = "page.meta.pre"
	MetaPost          Point = "page.meta.post"
	RenderPre         Point = "page.render.pre"
	RenderPost        Point = "page.render.post"
	TemplatePre       Point = "page.template.pre"
	TemplatePost      Point = "page.template.post"
	OutputPre         Point = "site.output.pre"
	OutputPost        Point = "site.output.post"
	SiteDone          Point = "site.done"
)

// Points lists every point in the order a build reaches them.
var Points = []Point{
	SiteStart,
	ContentGatherPre, ContentGatherPost,
	MetaPre, MetaPost,
	RenderPre, RenderPost,
	TemplatePre, TemplatePost,
	OutputPre, OutputPost,
	SiteDone,
}

// ErrUnknownPoint is returned when registering at a point that does not exist.
var ErrUnknownPoint = errors.New("unknown hook point")

// Valid reports whether p is one of Points.
func (p Point) Valid() bool {
	return slices.Contains(Points, p)
}

// Gathers reports whether pages returned by callbacks at p are added to the
// site.
func (p Point) Gathers() bool {
	return strings.Contains(string(p), ".gather.")
}

// Event is what a callback sees. Fields that do not apply to a point are
// zero: Page and TemplateVars are only set at page points, OutputDir at
// output points.
type Event struct {
	Point        Point
	Pages        []*page.Meta
	Page         *page.Meta
	TemplateVars map[string]any
	OutputDir    string
}

// Func is a callback. Pages it returns are collected at gather points and
// ignored elsewhere.
type Func func(ev *Event) ([]*page.Meta, error)

type entry struct {
	name string
	fn   Func
}

// Registry holds callbacks per point. The zero value is empty and ready
// to use; a nil *Registry runs nothing.
type Registry struct {
	hooks map[Point][]entry
}

func NewRegistry() *Registry {
	return &Registry{hooks: make(map[Point][]entry)}
}

// Register appends fn to the callbacks run at point.
func (r *Registry) Register(point Point, name string, fn Func) error {
	if !point.Valid() {
		return fmt.Errorf("registering %q at %q: %w", name, point, ErrUnknownPoint)
	}
	if fn == nil {
		return fmt.Errorf("registering %q at %q: nil callback", name, point)
	}
	if r.hooks == nil {
		r.hooks = make(map[Point][]entry)
	}
	r.hooks[point] = append(r.hooks[point], entry{name: name, fn: fn})
	return nil
}

// MustRegister is Register for callbacks wired at startup; it panics on error.
func (r *Registry) MustRegister(point Point, name string, fn Func) {
	if err := r.Register(point, name, fn); err != nil {
		panic(err)
	}
}

// Len returns the number of callbacks registered at point.
func (r *Registry) Len(point Point) int {
	if r == nil {
		return 0
	}
	return len(r.hooks[point])
}

// Names returns the callback names at point in registration order.
func (r *Registry) Names(point Point) []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.hooks[point]))
	for _, e := range r.hooks[point] {
		names = append(names, e.name)
	}
	return names
}

// Run invokes the callbacks at point in registration order. ev.Point is set
// to point. The first error stops the run and is returned wrapped with the
// callback's name. At gather points the pages every callback returned are
// concatenated and returned.
func (r *Registry) Run(point Point, ev *Event) ([]*page.Meta, error) {
	if r == nil || len(r.hooks[point]) == 0 {
		return nil, nil
	}
	if ev == nil {
		ev = &Event{}
	}
	ev.Point = point

	var gathered []*page.Meta
	for _, e := range r.hooks[point] {
		pages, err := e.fn(ev)
		if err != nil {
			return nil, fmt.Errorf("hook %q at %s: %w", e.name, point, err)
		}
		if point.Gathers() {
			gathered = append(gathered, pages...)
		}
	}
	return gathered, nil
}
