// internal/templates/templates.go

// Package templates finds and executes page templates. A page of type T is
// rendered with the single file in the template directory matching "T.*";
// the part of the file name after the first dot becomes the page's output
// extension.
package templates

import (
	"errors"
	"fmt"
	htmltemplate "html/template"
	"io"
	"os"
	"path/filepath"
	"strings"
	texttemplate "text/template"
	"time"

	"skillet/internal/util"
)

// PartialsDir is the subdirectory of the template directory whose files are
// parsed alongside every template.
const PartialsDir = "partials"

var (
	// ErrNotFound is returned when no template matches a page type.
	ErrNotFound = errors.New("template not found")
	// ErrAmbiguous is returned when more than one template matches.
	ErrAmbiguous = errors.New("ambiguous template")
)

type executor interface {
	ExecuteTemplate(w io.Writer, name string, data any) error
}

// Template is a parsed template file.
type Template struct {
	Type string
	Path string
	Ext  string

	name string
	exec executor
}

// Execute renders the template with data.
func (t *Template) Execute(w io.Writer, data any) error {
	if err := t.exec.ExecuteTemplate(w, t.name, data); err != nil {
		return fmt.Errorf("execute template %s: %w", t.Path, err)
	}
	return nil
}

// Environment resolves page types to templates. It is built once per run
// and caches every template it has parsed.
type Environment struct {
	dir   string
	cache map[string]*Template
	funcs map[string]any
}

// NewEnvironment returns an environment reading templates from dir.
func NewEnvironment(dir string) *Environment {
	return &Environment{
		dir:   dir,
		cache: make(map[string]*Template),
		funcs: map[string]any{
			"slugify": util.Slugify,
			"join":    strings.Join,
			"date":    formatTime,
			"safe":    safeHTML,
		},
	}
}

// Lookup returns the template for a page type.
func (e *Environment) Lookup(kind string) (*Template, error) {
	if t, ok := e.cache[kind]; ok {
		return t, nil
	}
	if !validType(kind) {
		return nil, fmt.Errorf("%w: invalid page type %q", ErrNotFound, kind)
	}

	files, err := globFiles(filepath.Join(e.dir, kind+".*"))
	if err != nil {
		return nil, fmt.Errorf("%w: bad pattern %q: %v", ErrNotFound, kind+".*", err)
	}
	switch len(files) {
	case 0:
		return nil, fmt.Errorf("%w: no file matches %q in %s", ErrNotFound, kind+".*", e.dir)
	case 1:
	default:
		return nil, fmt.Errorf("%w: %d files match %q in %s", ErrAmbiguous, len(files), kind+".*", e.dir)
	}

	t, err := e.parse(kind, files[0])
	if err != nil {
		return nil, err
	}
	e.cache[kind] = t
	return t, nil
}

// validType reports whether kind names a file directly inside the template
// directory and holds no glob metacharacters.
func validType(kind string) bool {
	return kind != "" && kind != "." && kind != ".." && !strings.ContainsAny(kind, `/\*?[]`)
}

func (e *Environment) parse(kind, path string) (*Template, error) {
	name := filepath.Base(path)
	t := &Template{Type: kind, Path: path, Ext: extOf(name), name: name}

	partials, err := globFiles(filepath.Join(e.dir, PartialsDir, "*"))
	if err != nil {
		return nil, err
	}
	files := append([]string{path}, partials...)

	if isHTML(t.Ext) {
		tmpl, err := htmltemplate.New(name).Funcs(e.funcs).ParseFiles(files...)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", path, err)
		}
		t.exec = tmpl
	} else {
		tmpl, err := texttemplate.New(name).Funcs(e.funcs).ParseFiles(files...)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", path, err)
		}
		t.exec = tmpl
	}
	return t, nil
}

// globFiles is filepath.Glob restricted to regular files.
func globFiles(pattern string) ([]string, error) {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, m := range matches {
		if info, err := os.Stat(m); err == nil && !info.IsDir() {
			files = append(files, m)
		}
	}
	return files, nil
}

// extOf returns everything after the first dot of a file name.
func extOf(name string) string {
	if i := strings.IndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}
	return ""
}

func isHTML(ext string) bool {
	switch strings.ToLower(ext) {
	case "html", "htm", "xhtml":
		return true
	}
	return false
}

// safeHTML marks rendered page content as trusted markup. Content is
// sanitized by its renderer before it gets here.
func safeHTML(s string) htmltemplate.HTML {
	return htmltemplate.HTML(s)
}

func formatTime(layout string, v any) string {
	switch t := v.(type) {
	case time.Time:
		return t.Format(layout)
	case *time.Time:
		if t != nil {
			return t.Format(layout)
		}
	}
	return ""
}
